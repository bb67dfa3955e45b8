package repository

import (
	"context"
	"time"
)

// PresenceRepository keeps live connection counts per user, shared by
// every process that owns sockets.
type PresenceRepository interface {
	// IncrementConnections adds one live connection and returns the new count.
	IncrementConnections(ctx context.Context, userID uint) (int64, error)
	// DecrementConnections removes one live connection and returns the new
	// count. The count never goes below zero.
	DecrementConnections(ctx context.Context, userID uint) (int64, error)
	// ConnectionCount returns the current count, zero when unknown.
	ConnectionCount(ctx context.Context, userID uint) (int64, error)
	// ResetConnections drops every counter and returns how many were
	// removed. Called at startup, before any socket is accepted.
	ResetConnections(ctx context.Context) (int, error)
}

// RateLimiter is a fixed-window request counter.
type RateLimiter interface {
	// CheckRateLimit increments the counter for key and reports whether the
	// limit for the current window is exceeded.
	CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}
