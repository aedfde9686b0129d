package models

// SyncEventType names a state change propagated to polling clients.
type SyncEventType string

const (
	SyncPointCreated      SyncEventType = "point_created"
	SyncPointUpdated      SyncEventType = "point_updated"
	SyncPointApproved     SyncEventType = "point_approved"
	SyncPointDeleted      SyncEventType = "point_deleted"
	SyncReportAdded       SyncEventType = "report_added"
	SyncReportResolved    SyncEventType = "report_resolved"
	SyncEditSubmitted     SyncEventType = "edit_submitted"
	SyncEditApproved      SyncEventType = "edit_approved"
	SyncEditRejected      SyncEventType = "edit_rejected"
	SyncDeletionRequested SyncEventType = "deletion_requested"
	SyncDeletionApproved  SyncEventType = "deletion_approved"
	SyncDeletionRejected  SyncEventType = "deletion_rejected"
)

// DefaultSyncPriority applies to event types without an explicit entry.
const DefaultSyncPriority = 10

var syncPriorities = map[SyncEventType]int{
	SyncPointCreated:      20,
	SyncPointUpdated:      15,
	SyncPointApproved:     25,
	SyncPointDeleted:      30,
	SyncReportAdded:       20,
	SyncReportResolved:    20,
	SyncEditSubmitted:     15,
	SyncEditApproved:      20,
	SyncEditRejected:      15,
	SyncDeletionRequested: 15,
	SyncDeletionApproved:  25,
	SyncDeletionRejected:  15,
}

// SyncPriority returns the queue priority for an event type.
// Deletions outrank approvals outrank routine edits.
func SyncPriority(t SyncEventType) int {
	if p, ok := syncPriorities[t]; ok {
		return p
	}
	return DefaultSyncPriority
}

// SyncEventStatus is the delivery state of a queued event.
type SyncEventStatus string

const (
	SyncStatusPending    SyncEventStatus = "pending"
	SyncStatusProcessing SyncEventStatus = "processing"
	SyncStatusCompleted  SyncEventStatus = "completed"
	SyncStatusFailed     SyncEventStatus = "failed"
)

// Terminal reports whether the status can never change again.
func (s SyncEventStatus) Terminal() bool {
	return s == SyncStatusCompleted || s == SyncStatusFailed
}

// MaxSyncRetries is the failure count at which an event becomes
// terminally failed.
const MaxSyncRetries = 3

// SyncEventModel is a durable, retryable record of a state change.
type SyncEventModel struct {
	Base
	EventType SyncEventType          `json:"event_type" gorm:"type:varchar(32);index;not null"`
	PointID   string                 `json:"point_id"   gorm:"type:char(36);index"`
	Metadata  map[string]interface{} `json:"metadata"   gorm:"type:longtext;serializer:json"`
	Priority  int                    `json:"priority"   gorm:"index;not null;default:10"`

	Status       SyncEventStatus `json:"status" gorm:"type:varchar(16);index;not null;default:pending"`
	RetryCount   int             `json:"retry_count"`
	ErrorMessage string          `json:"error_message,omitempty" gorm:"type:text"`
}

func (SyncEventModel) TableName() string { return "sync_events" }

// ApplyFailure records a delivery failure on the event. Below the retry
// ceiling the event returns to pending for the next poll; at the
// ceiling it becomes terminally failed. Returns false (no state change)
// when the event is already terminal.
func (e *SyncEventModel) ApplyFailure(message string) bool {
	if e.Status.Terminal() {
		return false
	}
	e.RetryCount++
	e.ErrorMessage = message
	if e.RetryCount >= MaxSyncRetries {
		e.Status = SyncStatusFailed
	} else {
		e.Status = SyncStatusPending
	}
	return true
}
