package models

import "time"

// PointStatus is the moderation lifecycle state of a point.
type PointStatus string

const (
	PointStatusPending PointStatus = "pending"
	PointStatusPublish PointStatus = "publish"
	PointStatusTrash   PointStatus = "trash"
)

// CanTransitionTo reports whether moving from s to next is a legal
// lifecycle transition. pending → publish|trash, publish → trash;
// trash is terminal (hard delete aside).
func (s PointStatus) CanTransitionTo(next PointStatus) bool {
	switch s {
	case PointStatusPending:
		return next == PointStatusPublish || next == PointStatusTrash
	case PointStatusPublish:
		return next == PointStatusTrash
	default:
		return false
	}
}

// Valid reports whether s is a known status value.
func (s PointStatus) Valid() bool {
	switch s {
	case PointStatusPending, PointStatusPublish, PointStatusTrash:
		return true
	}
	return false
}

// PointType distinguishes places, curiosities and issue reports.
type PointType string

const (
	PointTypePlace     PointType = "miejsce"
	PointTypeCuriosity PointType = "ciekawostka"
	PointTypeIssue     PointType = "zgloszenie"
)

func (t PointType) Valid() bool {
	switch t {
	case PointTypePlace, PointTypeCuriosity, PointTypeIssue:
		return true
	}
	return false
}

// ReportStatus tracks the issue-report sub-state of a point,
// independent of the moderation status.
type ReportStatus string

const (
	ReportStatusAdded    ReportStatus = "added"
	ReportStatusReported ReportStatus = "reported"
	ReportStatusResolved ReportStatus = "resolved"
)

// PointModel is a user-submitted map location.
type PointModel struct {
	Base
	Title        string       `json:"title"         gorm:"not null"`
	Content      string       `json:"content"       gorm:"type:longtext"`
	Excerpt      string       `json:"excerpt"       gorm:"type:text"`
	Lat          float64      `json:"lat"           gorm:"not null;index:idx_points_coords"`
	Lng          float64      `json:"lng"           gorm:"not null;index:idx_points_coords"`
	Type         PointType    `json:"type"          gorm:"type:varchar(32);index;not null"`
	Category     string       `json:"category"      gorm:"type:varchar(64);index"`
	Address      string       `json:"address"`
	Website      string       `json:"website"`
	Phone        string       `json:"phone"         gorm:"type:varchar(32)"`
	CTAText      string       `json:"cta_text"`
	CTAURL       string       `json:"cta_url"`
	Images       []Image      `json:"images"        gorm:"type:longtext;serializer:json"`
	Status       PointStatus  `json:"status"        gorm:"type:varchar(16);index;not null;default:pending"`
	ReportStatus ReportStatus `json:"report_status" gorm:"type:varchar(16);default:added"`

	IsPromo    bool       `json:"is_promo"    gorm:"index"`
	PromoUntil *time.Time `json:"promo_until"`

	AuthorID     string `json:"author_id"     gorm:"type:char(36);index"`
	AuthorHidden bool   `json:"author_hidden"`

	IsDeletionRequested bool       `json:"is_deletion_requested" gorm:"index"`
	DeletionReason      string     `json:"deletion_reason"       gorm:"type:text"`
	DeletionRequestedAt *time.Time `json:"deletion_requested_at"`

	AdminNote string `json:"admin_note,omitempty" gorm:"type:text"`
	IPAddress string `json:"-"                    gorm:"type:varchar(45)"`
}

func (PointModel) TableName() string { return "points" }

// PromoExpired reports whether the sponsorship window has passed at t.
func (p *PointModel) PromoExpired(t time.Time) bool {
	return p.IsPromo && p.PromoUntil != nil && p.PromoUntil.Before(t)
}

// MaxImages returns the image cap in effect for this point.
func (p *PointModel) MaxImages(normal, promo int) int {
	if p.IsPromo {
		return promo
	}
	return normal
}
