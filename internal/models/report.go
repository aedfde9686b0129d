package models

import "time"

// ReportState is the lifecycle of a complaint row. Distinct from
// ReportStatus, which lives on the point itself.
type ReportState string

const (
	ReportPending  ReportState = "pending"
	ReportResolved ReportState = "resolved"
)

// ReportModel is a complaint filed against a point. A user may file
// several; resolution is bulk per point.
type ReportModel struct {
	Base
	PointID string `json:"point_id" gorm:"type:char(36);index;not null"`
	// UserID is empty for anonymous reports.
	UserID string `json:"user_id,omitempty" gorm:"type:char(36);index"`
	Email  string `json:"email,omitempty"`
	Reason string `json:"reason" gorm:"type:text;not null"`

	Status        ReportState `json:"status" gorm:"type:varchar(16);index;not null;default:pending"`
	AdminDecision string      `json:"admin_decision,omitempty" gorm:"type:text"`
	ResolvedAt    *time.Time  `json:"resolved_at,omitempty"`
}

func (ReportModel) TableName() string { return "point_reports" }
