package domain

import "time"

// Message is a chat message, either a broadcast or a direct message.
type Message struct {
	ID          uint         `gorm:"primaryKey" json:"id"`
	Content     string       `gorm:"type:text;not null" json:"content"`
	SenderID    uint         `gorm:"index;not null" json:"senderId"`
	RecipientID *uint        `gorm:"index" json:"recipientId"`
	IsBroadcast bool         `gorm:"not null;default:false;index" json:"isBroadcast"`
	IsRead      bool         `gorm:"not null;default:false" json:"isRead"`
	DeletedFor  []uint       `gorm:"type:text;serializer:json" json:"deletedFor"`
	Timestamp   time.Time    `gorm:"index;not null" json:"timestamp"`
	Sender      *Participant `gorm:"foreignKey:SenderID;constraint:OnDelete:CASCADE" json:"sender,omitempty"`
	Recipient   *Participant `gorm:"foreignKey:RecipientID;constraint:OnDelete:CASCADE" json:"recipient,omitempty"`
	CreatedAt   time.Time    `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt   time.Time    `gorm:"autoUpdateTime" json:"updatedAt"`
}

// DeletedForUser reports whether userID removed the message from their view.
func (m *Message) DeletedForUser(userID uint) bool {
	for _, id := range m.DeletedFor {
		if id == userID {
			return true
		}
	}
	return false
}

// Involves reports whether userID sent or received the message.
func (m *Message) Involves(userID uint) bool {
	if m.SenderID == userID {
		return true
	}
	return m.RecipientID != nil && *m.RecipientID == userID
}

// Conversation summarises the direct-message thread with one peer.
type Conversation struct {
	Peer        Participant `json:"user"`
	LastMessage Message     `json:"lastMessage"`
	UnreadCount int64       `json:"unreadCount"`
}
