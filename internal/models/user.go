package models

import "time"

// UserRole separates moderators from regular accounts.
type UserRole string

const (
	RoleUser  UserRole = "user"
	RoleAdmin UserRole = "admin"
)

// UserModel represents a map account.
type UserModel struct {
	Base
	Username      string     `json:"username" gorm:"uniqueIndex;not null"`
	Name          string     `json:"name"`
	Password      string     `json:"-"        gorm:"not null"`
	Mail          string     `json:"mail"`
	Role          UserRole   `json:"role"     gorm:"type:varchar(16);not null;default:user"`
	LastLoginTime *time.Time `json:"last_login_time"`
	LastLoginIP   string     `json:"-"`

	Banned    bool       `json:"banned"               gorm:"index"`
	BanUntil  *time.Time `json:"ban_until,omitempty"`
	BanReason string     `json:"ban_reason,omitempty" gorm:"type:text"`
}

func (UserModel) TableName() string { return "users" }

// IsAdmin reports whether the user holds moderator privileges.
func (u *UserModel) IsAdmin() bool { return u.Role == RoleAdmin }

// BanActive evaluates the ban state at t. A temporary ban whose expiry
// has passed counts as inactive; callers are expected to lazily clear
// the flags when they observe expiry.
func (u *UserModel) BanActive(t time.Time) bool {
	if !u.Banned {
		return false
	}
	if u.BanUntil == nil {
		return true // permanent
	}
	return u.BanUntil.After(t)
}

// Capability names a user action that can be individually restricted.
type Capability string

const (
	CapVoting      Capability = "voting"
	CapAddPlaces   Capability = "add_places"
	CapAddEvents   Capability = "add_events"
	CapAddTrivia   Capability = "add_trivia"
	CapEditPlaces  Capability = "edit_places"
	CapPhotoUpload Capability = "photo_upload"
)

func (c Capability) Valid() bool {
	switch c {
	case CapVoting, CapAddPlaces, CapAddEvents, CapAddTrivia, CapEditPlaces, CapPhotoUpload:
		return true
	}
	return false
}

// UserRestrictionModel blocks a single capability for a user.
type UserRestrictionModel struct {
	Base
	UserID     string     `json:"user_id"    gorm:"type:char(36);not null;uniqueIndex:idx_restrictions_user_cap"`
	Capability Capability `json:"capability" gorm:"type:varchar(32);not null;uniqueIndex:idx_restrictions_user_cap"`
	CreatedBy  string     `json:"created_by" gorm:"type:char(36)"`
}

func (UserRestrictionModel) TableName() string { return "user_restrictions" }
