package models

import (
	"errors"
	"time"
)

// HistoryAction is the kind of mutation a history entry proposes.
type HistoryAction string

const (
	HistoryActionEdit          HistoryAction = "edit"
	HistoryActionDeleteRequest HistoryAction = "delete_request"
)

// HistoryStatus is the moderation state of a history entry.
type HistoryStatus string

const (
	HistoryStatusPending  HistoryStatus = "pending"
	HistoryStatusApproved HistoryStatus = "approved"
	HistoryStatusRejected HistoryStatus = "rejected"
)

// Resolved reports whether the entry reached a terminal state.
func (s HistoryStatus) Resolved() bool {
	return s == HistoryStatusApproved || s == HistoryStatusRejected
}

// PointSnapshot captures the point fields relevant to an edit at
// proposal time, so moderators can diff against the proposal.
type PointSnapshot struct {
	Title   string    `json:"title"`
	Type    PointType `json:"type"`
	Content string    `json:"content"`
	Images  []Image   `json:"images"`
}

// EditProposal is the typed payload of an edit entry. NewImages are
// appended to the point's existing images on approval, capped.
type EditProposal struct {
	Title     string    `json:"title"`
	Type      PointType `json:"type"`
	Content   string    `json:"content"`
	NewImages []Image   `json:"new_images"`
}

// DeletionProposal is the typed payload of a delete_request entry.
type DeletionProposal struct {
	Reason string `json:"reason"`
}

var (
	// ErrHistoryPayloadMismatch means the stored payload does not match
	// the entry's action type.
	ErrHistoryPayloadMismatch = errors.New("history payload does not match action type")
)

// HistoryModel is a proposed, moderation-gated mutation to a point.
// Entries are append-only: resolution updates status fields, nothing
// is ever edited back to pending.
type HistoryModel struct {
	Base
	PointID string        `json:"point_id" gorm:"type:char(36);index;not null"`
	UserID  string        `json:"user_id"  gorm:"type:char(36);index"`
	Action  HistoryAction `json:"action"   gorm:"type:varchar(32);index;not null"`
	Status  HistoryStatus `json:"status"   gorm:"type:varchar(16);index;not null;default:pending"`

	Old      *PointSnapshot    `json:"old_values,omitempty" gorm:"type:longtext;serializer:json"`
	Edit     *EditProposal     `json:"edit,omitempty"       gorm:"type:longtext;serializer:json"`
	Deletion *DeletionProposal `json:"deletion,omitempty"   gorm:"type:longtext;serializer:json"`

	RejectReason string     `json:"reject_reason,omitempty" gorm:"type:text"`
	ResolvedAt   *time.Time `json:"resolved_at,omitempty"`
	ResolvedBy   string     `json:"resolved_by,omitempty"   gorm:"type:char(36)"`
}

func (HistoryModel) TableName() string { return "point_history" }

// ValidatePayload checks that exactly the payload matching the action
// type is present. Called once when the entry enters the system; after
// that the typed fields are trusted.
func (h *HistoryModel) ValidatePayload() error {
	switch h.Action {
	case HistoryActionEdit:
		if h.Edit == nil || h.Deletion != nil {
			return ErrHistoryPayloadMismatch
		}
	case HistoryActionDeleteRequest:
		if h.Deletion == nil || h.Edit != nil {
			return ErrHistoryPayloadMismatch
		}
	default:
		return ErrHistoryPayloadMismatch
	}
	return nil
}

// MergeImages appends incoming images to existing ones and truncates
// to cap, keeping merge order (existing first).
func MergeImages(existing, incoming []Image, cap int) []Image {
	merged := make([]Image, 0, len(existing)+len(incoming))
	merged = append(merged, existing...)
	merged = append(merged, incoming...)
	if cap > 0 && len(merged) > cap {
		merged = merged[:cap]
	}
	return merged
}
