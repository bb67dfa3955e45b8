package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"snsu-notification/internal/repository"
)

// PresenceService keeps the persisted online flag in step with live
// connections. Each user has a connection counter; the flag only flips
// when the counter moves between zero and one.
type PresenceService struct {
	users    repository.UserRepository
	counters repository.PresenceRepository
	now      func() time.Time
}

func NewPresenceService(users repository.UserRepository, counters repository.PresenceRepository) *PresenceService {
	if users == nil || counters == nil {
		panic("PresenceService dependencies cannot be nil")
	}
	return &PresenceService{users: users, counters: counters, now: time.Now}
}

// Connected records a new connection. It reports true when this was the
// user's first live connection, i.e. an online status change must be
// announced. The persisted write completes before it returns.
func (s *PresenceService) Connected(ctx context.Context, userID uint) (bool, error) {
	logCtx := logrus.WithField("user_id", userID)
	now := s.now()

	count, err := s.counters.IncrementConnections(ctx, userID)
	if err != nil {
		// Without a counter every connect is treated as a transition.
		logCtx.WithError(err).Warn("Connection counter unavailable, falling back to per-connection presence")
		count = 1
	}
	if count != 1 {
		if err := s.users.TouchLastActive(ctx, userID, now); err != nil {
			logCtx.WithError(err).Warn("Failed to refresh last active on connect")
		}
		return false, nil
	}
	if err := s.users.SetPresence(ctx, userID, true, now); err != nil {
		logCtx.WithError(err).Error("Failed to persist online status")
		return false, err
	}
	return true, nil
}

// Disconnected records a closed connection and reports true when it was the
// user's last one.
func (s *PresenceService) Disconnected(ctx context.Context, userID uint) (bool, error) {
	logCtx := logrus.WithField("user_id", userID)
	now := s.now()

	count, err := s.counters.DecrementConnections(ctx, userID)
	if err != nil {
		logCtx.WithError(err).Warn("Connection counter unavailable, falling back to per-connection presence")
		count = 0
	}
	if count > 0 {
		if err := s.users.TouchLastActive(ctx, userID, now); err != nil {
			logCtx.WithError(err).Warn("Failed to refresh last active on disconnect")
		}
		return false, nil
	}
	if err := s.users.SetPresence(ctx, userID, false, now); err != nil {
		logCtx.WithError(err).Error("Failed to persist offline status")
		return false, err
	}
	return true, nil
}

// Reconcile marks offline every user flagged online without a live
// connection and returns their ids.
func (s *PresenceService) Reconcile(ctx context.Context) ([]uint, error) {
	online, err := s.users.ListOnline(ctx)
	if err != nil {
		return nil, err
	}
	var offlined []uint
	now := s.now()
	for _, u := range online {
		count, err := s.counters.ConnectionCount(ctx, u.ID)
		if err != nil {
			logrus.WithField("user_id", u.ID).WithError(err).Warn("Skipping reconcile, counter unavailable")
			continue
		}
		if count > 0 {
			continue
		}
		if err := s.users.SetPresence(ctx, u.ID, false, now); err != nil {
			logrus.WithField("user_id", u.ID).WithError(err).Error("Failed to mark stale user offline")
			continue
		}
		offlined = append(offlined, u.ID)
	}
	if len(offlined) > 0 {
		logrus.WithField("count", len(offlined)).Info("Presence reconciled")
	}
	return offlined, nil
}

// Restore clears connection counters left by a previous process and then
// marks offline every user still flagged online. It must run before the
// hub accepts connections.
func (s *PresenceService) Restore(ctx context.Context) ([]uint, error) {
	removed, err := s.counters.ResetConnections(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to reset connection counters: %w", err)
	}
	if removed > 0 {
		logrus.WithField("count", removed).Warn("Dropped stale connection counters from a previous run")
	}
	return s.Reconcile(ctx)
}

// LoggedOut marks the user offline unless a live socket still holds
// presence, in which case the socket lifecycle decides. It reports true when
// an offline status change must be announced.
func (s *PresenceService) LoggedOut(ctx context.Context, userID uint) (bool, error) {
	logCtx := logrus.WithField("user_id", userID)
	count, err := s.counters.ConnectionCount(ctx, userID)
	if err != nil {
		logCtx.WithError(err).Warn("Connection counter unavailable, marking offline on logout")
		count = 0
	}
	if count > 0 {
		logCtx.WithField("connections", count).Debug("Logout with live sockets, presence left to the connections")
		return false, nil
	}
	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return false, ErrUserNotFound
		}
		logCtx.WithError(err).Error("Failed to load user during logout")
		return false, ErrInternalServer
	}
	if err := s.users.SetPresence(ctx, userID, false, s.now()); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return false, ErrUserNotFound
		}
		logCtx.WithError(err).Error("Failed to mark user offline during logout")
		return false, ErrInternalServer
	}
	logCtx.Info("User logged out")
	return u.OnlineStatus, nil
}
