package gormpersistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"snsu-notification/internal/domain"
	"snsu-notification/internal/repository"
)

// GormNotificationRepository implements repository.NotificationRepository.
type GormNotificationRepository struct {
	db *gorm.DB
}

func NewGormNotificationRepository(db *gorm.DB) *GormNotificationRepository {
	if db == nil {
		panic("database connection cannot be nil for GormNotificationRepository")
	}
	return &GormNotificationRepository{db: db}
}

func (r *GormNotificationRepository) FindByID(ctx context.Context, id uint) (*domain.Notification, error) {
	var n domain.Notification
	if err := r.db.WithContext(ctx).First(&n, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrNotificationNotFound
		}
		return nil, fmt.Errorf("gorm: find notification %d: %w", id, err)
	}
	return &n, nil
}

func (r *GormNotificationRepository) ExistsByTitle(ctx context.Context, title string, excludeID uint) (bool, error) {
	q := r.db.WithContext(ctx).Model(&domain.Notification{}).Where("title = ?", title)
	if excludeID != 0 {
		q = q.Where("id <> ?", excludeID)
	}
	var count int64
	if err := q.Count(&count).Error; err != nil {
		return false, fmt.Errorf("gorm: count notifications by title '%s': %w", title, err)
	}
	return count > 0, nil
}

func (r *GormNotificationRepository) List(ctx context.Context) ([]domain.Notification, error) {
	var list []domain.Notification
	if err := r.db.WithContext(ctx).Order("timestamp DESC").Order("id DESC").Find(&list).Error; err != nil {
		return nil, fmt.Errorf("gorm: list notifications: %w", err)
	}
	return list, nil
}

func (r *GormNotificationRepository) ListWithEventBetween(ctx context.Context, from, to time.Time) ([]domain.Notification, error) {
	var list []domain.Notification
	err := r.db.WithContext(ctx).
		Where("event_date IS NOT NULL AND event_date >= ? AND event_date < ?", from, to).
		Order("event_date ASC").
		Find(&list).Error
	if err != nil {
		return nil, fmt.Errorf("gorm: list notifications with event between %s and %s: %w",
			from.Format(time.RFC3339), to.Format(time.RFC3339), err)
	}
	return list, nil
}

func (r *GormNotificationRepository) Save(ctx context.Context, n *domain.Notification) error {
	if err := r.db.WithContext(ctx).Save(n).Error; err != nil {
		if isDuplicateEntryError(err) {
			return repository.ErrDuplicateEntry
		}
		return fmt.Errorf("gorm: save notification (id: %d, title: %s): %w", n.ID, n.Title, err)
	}
	return nil
}

func (r *GormNotificationRepository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&domain.Notification{}, id)
	if result.Error != nil {
		return fmt.Errorf("gorm: delete notification %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return repository.ErrNotificationNotFound
	}
	return nil
}
