package models

// ActivityLogModel is an append-only audit trail of moderation actions.
type ActivityLogModel struct {
	Base
	ActorID string                 `json:"actor_id" gorm:"type:char(36);index"`
	Action  string                 `json:"action"   gorm:"type:varchar(64);index;not null"`
	PointID string                 `json:"point_id" gorm:"type:char(36);index"`
	Details map[string]interface{} `json:"details"  gorm:"type:longtext;serializer:json"`
}

func (ActivityLogModel) TableName() string { return "activity_log" }
