// Package domain holds the persisted models and the small value types
// shared by every layer.
package domain

import (
	"regexp"
	"time"
)

// Role is the access level of a user account.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleTeacher Role = "teacher"
	RoleStudent Role = "student"
)

// Roles lists every known role, in display order.
var Roles = []Role{RoleAdmin, RoleTeacher, RoleStudent}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleTeacher, RoleStudent:
		return true
	}
	return false
}

var phonePattern = regexp.MustCompile(`^\+639\d{9}$`)

// ValidPhone reports whether s is a Philippine mobile number (+639XXXXXXXXX).
func ValidPhone(s string) bool {
	return phonePattern.MatchString(s)
}

// DefaultAdminUsername is the seeded account that can never be deleted.
const DefaultAdminUsername = "admin"

// User is an account of the school system.
type User struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	Username       string    `gorm:"type:varchar(191);uniqueIndex:idx_username;not null" json:"username"`
	Email          string    `gorm:"type:varchar(191);uniqueIndex:idx_email;not null" json:"email"`
	Phone          string    `gorm:"type:varchar(20);not null" json:"phone"`
	Password       string    `gorm:"type:text;not null" json:"-"` // bcrypt hash
	Role           Role      `gorm:"type:varchar(16);index;not null;default:student" json:"role"`
	ProfilePicture string    `gorm:"type:varchar(200)" json:"profilePicture,omitempty"`
	OnlineStatus   bool      `gorm:"not null;default:false;index" json:"onlineStatus"`
	LastActive     time.Time `json:"lastActive"`
	Department     string    `gorm:"type:varchar(100)" json:"department,omitempty"`
	Course         string    `gorm:"type:varchar(100)" json:"course,omitempty"`
	YearLevel      int       `json:"yearLevel,omitempty"`
	Bio            string    `gorm:"type:text" json:"bio,omitempty"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

// Participant is the display view of a user embedded in hydrated messages.
type Participant struct {
	ID             uint   `gorm:"primaryKey" json:"id"`
	Username       string `json:"username"`
	Role           Role   `json:"role"`
	ProfilePicture string `json:"profilePicture,omitempty"`
	OnlineStatus   bool   `json:"onlineStatus"`
}

// TableName maps Participant onto the users table.
func (Participant) TableName() string { return "users" }
