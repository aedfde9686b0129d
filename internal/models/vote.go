package models

// VoteType is the direction of a vote.
type VoteType string

const (
	VoteUp   VoteType = "up"
	VoteDown VoteType = "down"
)

func (v VoteType) Valid() bool { return v == VoteUp || v == VoteDown }

// VoteModel stores one vote per (point, user). Toggling the same
// direction removes the row; switching direction replaces it.
type VoteModel struct {
	Base
	PointID string   `json:"point_id" gorm:"type:char(36);not null;uniqueIndex:idx_votes_point_user"`
	UserID  string   `json:"user_id"  gorm:"type:char(36);not null;uniqueIndex:idx_votes_point_user"`
	Vote    VoteType `json:"vote"     gorm:"type:varchar(8);not null"`
}

func (VoteModel) TableName() string { return "point_votes" }

// RelevanceVoteModel records "is this issue still relevant" votes on
// issue-report points. Same toggle semantics as VoteModel.
type RelevanceVoteModel struct {
	Base
	PointID  string `json:"point_id" gorm:"type:char(36);not null;uniqueIndex:idx_relevance_point_user"`
	UserID   string `json:"user_id"  gorm:"type:char(36);not null;uniqueIndex:idx_relevance_point_user"`
	Relevant bool   `json:"relevant"`
}

func (RelevanceVoteModel) TableName() string { return "point_relevance_votes" }

// ResolveVoteToggle computes the stored direction after a vote request
// against the current direction ("" = no vote). Empty result means the
// row should be removed.
func ResolveVoteToggle(current, requested VoteType) VoteType {
	if current == requested {
		return ""
	}
	return requested
}
