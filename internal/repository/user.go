package repository

import (
	"context"
	"time"

	"snsu-notification/internal/domain"
)

// UserRepository stores and retrieves user accounts.
type UserRepository interface {
	// FindByID returns ErrUserNotFound when no user has this id.
	FindByID(ctx context.Context, id uint) (*domain.User, error)
	// FindByUsername returns ErrUserNotFound when the username is unknown.
	FindByUsername(ctx context.Context, username string) (*domain.User, error)
	// ExistsByUsernameOrEmail reports whether any account other than
	// excludeID already uses the username or email. Empty values are ignored.
	ExistsByUsernameOrEmail(ctx context.Context, username, email string, excludeID uint) (bool, error)
	// List returns every user ordered by username.
	List(ctx context.Context) ([]domain.User, error)
	// ListOnline returns users whose persisted presence flag is set.
	ListOnline(ctx context.Context) ([]domain.User, error)
	// Save inserts or updates the user. Unique violations map to ErrDuplicateEntry.
	Save(ctx context.Context, user *domain.User) error
	// Delete removes the user row.
	Delete(ctx context.Context, id uint) error
	// SetPresence writes the online flag and last-active timestamp.
	SetPresence(ctx context.Context, id uint, online bool, at time.Time) error
	// TouchLastActive refreshes only the last-active timestamp.
	TouchLastActive(ctx context.Context, id uint, at time.Time) error
}
