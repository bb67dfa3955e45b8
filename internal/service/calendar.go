package service

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"snsu-notification/internal/domain"
	"snsu-notification/internal/repository"
)

// CalendarService projects notification event dates onto a month view.
type CalendarService struct {
	repo repository.NotificationRepository
	loc  *time.Location
	now  func() time.Time
}

// NewCalendarService groups days in loc; nil means UTC.
func NewCalendarService(repo repository.NotificationRepository, loc *time.Location) *CalendarService {
	if repo == nil {
		panic("NotificationRepository cannot be nil for CalendarService")
	}
	if loc == nil {
		loc = time.UTC
	}
	return &CalendarService{repo: repo, loc: loc, now: time.Now}
}

// Month returns the events of month ("YYYY-MM", empty for the current
// month) keyed by "YYYY-MM-DD".
func (s *CalendarService) Month(ctx context.Context, month string) (map[string][]domain.Notification, error) {
	var start time.Time
	if month == "" {
		now := s.now().In(s.loc)
		start = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, s.loc)
	} else {
		t, err := time.ParseInLocation("2006-01", month, s.loc)
		if err != nil {
			return nil, ErrInvalidMonth
		}
		start = t
	}

	list, err := s.repo.ListWithEventBetween(ctx, start, start.AddDate(0, 1, 0))
	if err != nil {
		logrus.WithField("month", start.Format("2006-01")).WithError(err).Error("Failed to list calendar events")
		return nil, ErrInternalServer
	}
	days := make(map[string][]domain.Notification)
	for _, n := range list {
		if n.EventDate == nil {
			continue
		}
		key := n.EventDate.In(s.loc).Format("2006-01-02")
		days[key] = append(days[key], n)
	}
	return days, nil
}
