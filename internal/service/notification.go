package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"snsu-notification/internal/domain"
	"snsu-notification/internal/repository"
)

// NotificationInput describes a new announcement.
type NotificationInput struct {
	Title     string
	Content   string
	Type      domain.NotificationType
	EventDate *time.Time
}

// NotificationUpdate holds optional changes. SetEventDate distinguishes
// "clear the event date" (true with a nil EventDate) from "leave it".
type NotificationUpdate struct {
	Title        *string
	Content      *string
	Type         *domain.NotificationType
	SetEventDate bool
	EventDate    *time.Time
}

// NotificationService manages announcements and their images.
type NotificationService struct {
	repo   repository.NotificationRepository
	media  *MediaService
	purger MediaPurger
	now    func() time.Time
}

func NewNotificationService(repo repository.NotificationRepository, media *MediaService, purger MediaPurger) *NotificationService {
	if repo == nil || media == nil || purger == nil {
		panic("NotificationService dependencies cannot be nil")
	}
	return &NotificationService{repo: repo, media: media, purger: purger, now: time.Now}
}

func (s *NotificationService) List(ctx context.Context) ([]domain.Notification, error) {
	list, err := s.repo.List(ctx)
	if err != nil {
		logrus.WithError(err).Error("Failed to list notifications")
		return nil, ErrInternalServer
	}
	return list, nil
}

func (s *NotificationService) Get(ctx context.Context, id uint) (*domain.Notification, error) {
	n, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapNotificationError(err, id)
	}
	return n, nil
}

// Create stores the announcement; image may be nil.
func (s *NotificationService) Create(ctx context.Context, in NotificationInput, image *Upload) (*domain.Notification, error) {
	in.Title = strings.TrimSpace(in.Title)
	logCtx := logrus.WithField("title", in.Title)
	if in.Title == "" || strings.TrimSpace(in.Content) == "" || in.Type == "" {
		return nil, ErrInvalidNotification
	}
	if err := validateNotification(in.Title, in.Type); err != nil {
		return nil, err
	}
	if err := s.ensureUniqueTitle(ctx, in.Title, 0); err != nil {
		return nil, err
	}

	n := &domain.Notification{
		Title:     in.Title,
		Content:   in.Content,
		Type:      in.Type,
		EventDate: in.EventDate,
		Timestamp: s.now(),
	}
	if image != nil {
		imagePath, thumbPath, err := s.media.StoreNotificationImage(ctx, image)
		if err != nil {
			return nil, err
		}
		n.ImagePath, n.ThumbnailPath = imagePath, thumbPath
	}

	if err := s.save(ctx, n); err != nil {
		s.purge(ctx, n.MediaIDs())
		return nil, err
	}
	logCtx.WithField("notification_id", n.ID).Info("Notification created")
	return n, nil
}

// Update edits the announcement. A new image replaces the old one and its
// thumbnail.
func (s *NotificationService) Update(ctx context.Context, id uint, upd NotificationUpdate, image *Upload) (*domain.Notification, error) {
	n, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapNotificationError(err, id)
	}
	if upd.Title != nil {
		if t := strings.TrimSpace(*upd.Title); t != "" && t != n.Title {
			if err := validateNotification(t, n.Type); err != nil {
				return nil, err
			}
			if err := s.ensureUniqueTitle(ctx, t, n.ID); err != nil {
				return nil, err
			}
			n.Title = t
		}
	}
	if upd.Content != nil && strings.TrimSpace(*upd.Content) != "" {
		n.Content = *upd.Content
	}
	if upd.Type != nil && *upd.Type != "" {
		if !upd.Type.Valid() {
			return nil, invalidf("invalid notification type %q", *upd.Type)
		}
		n.Type = *upd.Type
	}
	if upd.SetEventDate {
		n.EventDate = upd.EventDate
	}

	var stale []uint
	if image != nil {
		imagePath, thumbPath, err := s.media.StoreNotificationImage(ctx, image)
		if err != nil {
			return nil, err
		}
		stale = n.MediaIDs()
		n.ImagePath, n.ThumbnailPath = imagePath, thumbPath
	}

	if err := s.save(ctx, n); err != nil {
		return nil, err
	}
	s.purge(ctx, stale)
	logrus.WithField("notification_id", n.ID).Info("Notification updated")
	return n, nil
}

// Delete removes the announcement and schedules its media for purging.
func (s *NotificationService) Delete(ctx context.Context, id uint) error {
	n, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return mapNotificationError(err, id)
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return mapNotificationError(err, id)
	}
	s.purge(ctx, n.MediaIDs())
	logrus.WithField("notification_id", id).Info("Notification deleted")
	return nil
}

func (s *NotificationService) ensureUniqueTitle(ctx context.Context, title string, excludeID uint) error {
	exists, err := s.repo.ExistsByTitle(ctx, title, excludeID)
	if err != nil {
		logrus.WithField("title", title).WithError(err).Error("Failed to check notification title")
		return ErrInternalServer
	}
	if exists {
		return ErrDuplicateTitle
	}
	return nil
}

func (s *NotificationService) save(ctx context.Context, n *domain.Notification) error {
	if err := s.repo.Save(ctx, n); err != nil {
		if errors.Is(err, repository.ErrDuplicateEntry) {
			return ErrDuplicateTitle
		}
		logrus.WithField("title", n.Title).WithError(err).Error("Failed to save notification")
		return ErrInternalServer
	}
	return nil
}

func (s *NotificationService) purge(ctx context.Context, ids []uint) {
	if len(ids) == 0 {
		return
	}
	if err := s.purger.PurgeMedia(ctx, ids); err != nil {
		logrus.WithField("media_ids", ids).WithError(err).Warn("Failed to schedule media purge")
	}
}

func validateNotification(title string, t domain.NotificationType) error {
	if len(title) > 100 {
		return invalid("title must be at most 100 characters")
	}
	if !t.Valid() {
		return invalidf("invalid notification type %q", t)
	}
	return nil
}

func mapNotificationError(err error, id uint) error {
	if errors.Is(err, repository.ErrNotificationNotFound) {
		return ErrNotificationNotFound
	}
	logrus.WithField("notification_id", id).WithError(err).Error("Notification repository error")
	return ErrInternalServer
}
