package domain

import (
	"strconv"
	"strings"
	"time"
)

// NotificationType classifies an announcement.
type NotificationType string

const (
	NotificationInfo      NotificationType = "info"
	NotificationEvent     NotificationType = "event"
	NotificationEmergency NotificationType = "emergency"
	NotificationSuccess   NotificationType = "success"
	NotificationWarning   NotificationType = "warning"
)

// Valid reports whether t is a known notification type.
func (t NotificationType) Valid() bool {
	switch t {
	case NotificationInfo, NotificationEvent, NotificationEmergency, NotificationSuccess, NotificationWarning:
		return true
	}
	return false
}

// Notification is a school-wide announcement.
type Notification struct {
	ID            uint             `gorm:"primaryKey" json:"id"`
	Title         string           `gorm:"type:varchar(100);uniqueIndex:idx_notification_title;not null" json:"title"`
	Content       string           `gorm:"type:text;not null" json:"content"`
	Type          NotificationType `gorm:"type:varchar(16);not null;default:info" json:"type"`
	ImagePath     string           `gorm:"type:varchar(200)" json:"imagePath,omitempty"`
	ThumbnailPath string           `gorm:"type:varchar(200)" json:"thumbnailPath,omitempty"`
	EventDate     *time.Time       `gorm:"index" json:"eventDate"`
	Timestamp     time.Time        `gorm:"index;not null" json:"timestamp"`
	CreatedAt     time.Time        `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt     time.Time        `gorm:"autoUpdateTime" json:"updatedAt"`
}

// MediaIDs returns the ids of the media rows this notification references.
func (n *Notification) MediaIDs() []uint {
	var ids []uint
	for _, p := range []string{n.ImagePath, n.ThumbnailPath} {
		if id, ok := ParseMediaPath(p); ok {
			ids = append(ids, id)
		}
	}
	return ids
}

// Media is an encoded image stored in the database.
type Media struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Data      string    `gorm:"type:text;not null" json:"-"` // base64
	MimeType  string    `gorm:"type:varchar(50);not null" json:"mimeType"`
	Filename  string    `gorm:"type:varchar(255);not null" json:"filename"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

const mediaPathPrefix = "media/"

// MediaPath is the reference stored on users and notifications.
func MediaPath(id uint) string {
	return mediaPathPrefix + strconv.FormatUint(uint64(id), 10)
}

// ParseMediaPath extracts the media id from a "media/{id}" reference.
func ParseMediaPath(path string) (uint, bool) {
	if !strings.HasPrefix(path, mediaPathPrefix) {
		return 0, false
	}
	id, err := strconv.ParseUint(strings.TrimPrefix(path, mediaPathPrefix), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}
