package repository

import "errors"

// Common repository errors. Implementations map driver errors onto these.
var (
	// ErrNotFound means the requested record does not exist.
	ErrNotFound = errors.New("repository: record not found")
	// ErrDuplicateEntry means a unique constraint was violated.
	ErrDuplicateEntry = errors.New("repository: duplicate entry")
)

// Resource aliases, kept separate so call sites read naturally.
var (
	ErrUserNotFound         = ErrNotFound
	ErrMessageNotFound      = ErrNotFound
	ErrNotificationNotFound = ErrNotFound
	ErrMediaNotFound        = ErrNotFound
)
