package repository

import (
	"context"
	"time"

	"snsu-notification/internal/domain"
)

// NotificationRepository persists announcements.
type NotificationRepository interface {
	FindByID(ctx context.Context, id uint) (*domain.Notification, error)
	// ExistsByTitle reports whether a notification other than excludeID uses the title.
	ExistsByTitle(ctx context.Context, title string, excludeID uint) (bool, error)
	// List returns every notification, newest first.
	List(ctx context.Context) ([]domain.Notification, error)
	// ListWithEventBetween returns notifications whose event date lies in [from, to).
	ListWithEventBetween(ctx context.Context, from, to time.Time) ([]domain.Notification, error)
	Save(ctx context.Context, n *domain.Notification) error
	Delete(ctx context.Context, id uint) error
}

// MediaRepository stores encoded images.
type MediaRepository interface {
	Create(ctx context.Context, m *domain.Media) error
	FindByID(ctx context.Context, id uint) (*domain.Media, error)
	// DeleteByIDs removes the given rows; missing ids are not an error.
	DeleteByIDs(ctx context.Context, ids []uint) error
}
