package repository

import (
	"context"

	"snsu-notification/internal/domain"
)

// MessageRepository persists chat messages.
type MessageRepository interface {
	// Create inserts the message and fills its id and timestamps.
	Create(ctx context.Context, msg *domain.Message) error
	// FindByIDWithParticipants re-reads a message joined with the sender and
	// recipient display views.
	FindByIDWithParticipants(ctx context.Context, id uint) (*domain.Message, error)
	// ListVisibleTo returns broadcasts plus direct messages sent or received
	// by userID, oldest first, excluding messages the user soft-deleted.
	ListVisibleTo(ctx context.Context, userID uint) ([]domain.Message, error)
	// ListBetween returns the direct messages exchanged by two users, oldest first.
	ListBetween(ctx context.Context, userID, peerID uint) ([]domain.Message, error)
	// ListDirectFor returns every direct message involving userID, newest first.
	ListDirectFor(ctx context.Context, userID uint) ([]domain.Message, error)
	// MarkRead sets the read flag.
	MarkRead(ctx context.Context, id uint) error
	// UpdateDeletedFor stores the soft-delete set.
	UpdateDeletedFor(ctx context.Context, id uint, deletedFor []uint) error
	// Delete hard-deletes a single message.
	Delete(ctx context.Context, id uint) error
	// DeleteByUser hard-deletes every message sent or received by userID.
	DeleteByUser(ctx context.Context, userID uint) (int64, error)
}
