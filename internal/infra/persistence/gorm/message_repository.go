package gormpersistence

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"snsu-notification/internal/domain"
	"snsu-notification/internal/repository"
)

// GormMessageRepository implements repository.MessageRepository.
type GormMessageRepository struct {
	db *gorm.DB
}

func NewGormMessageRepository(db *gorm.DB) *GormMessageRepository {
	if db == nil {
		panic("database connection cannot be nil for GormMessageRepository")
	}
	return &GormMessageRepository{db: db}
}

func (r *GormMessageRepository) withParticipants(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Preload("Sender").Preload("Recipient")
}

func (r *GormMessageRepository) Create(ctx context.Context, msg *domain.Message) error {
	// Omit associations so a preset Sender is never upserted into users.
	if err := r.db.WithContext(ctx).Omit("Sender", "Recipient").Create(msg).Error; err != nil {
		return fmt.Errorf("gorm: create message from user %d: %w", msg.SenderID, err)
	}
	return nil
}

func (r *GormMessageRepository) FindByIDWithParticipants(ctx context.Context, id uint) (*domain.Message, error) {
	var msg domain.Message
	err := r.withParticipants(ctx).First(&msg, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrMessageNotFound
		}
		return nil, fmt.Errorf("gorm: find message %d: %w", id, err)
	}
	return &msg, nil
}

// ListVisibleTo filters the soft-delete set in memory; the column is a JSON
// array whose query syntax differs per driver.
func (r *GormMessageRepository) ListVisibleTo(ctx context.Context, userID uint) ([]domain.Message, error) {
	var msgs []domain.Message
	err := r.withParticipants(ctx).
		Where("is_broadcast = ? OR sender_id = ? OR recipient_id = ?", true, userID, userID).
		Order("timestamp ASC").Order("id ASC").
		Find(&msgs).Error
	if err != nil {
		return nil, fmt.Errorf("gorm: list messages visible to user %d: %w", userID, err)
	}
	visible := msgs[:0]
	for _, m := range msgs {
		if !m.DeletedForUser(userID) {
			visible = append(visible, m)
		}
	}
	return visible, nil
}

func (r *GormMessageRepository) ListBetween(ctx context.Context, userID, peerID uint) ([]domain.Message, error) {
	var msgs []domain.Message
	err := r.withParticipants(ctx).
		Where("is_broadcast = ?", false).
		Where("(sender_id = ? AND recipient_id = ?) OR (sender_id = ? AND recipient_id = ?)", userID, peerID, peerID, userID).
		Order("timestamp ASC").Order("id ASC").
		Find(&msgs).Error
	if err != nil {
		return nil, fmt.Errorf("gorm: list messages between %d and %d: %w", userID, peerID, err)
	}
	return msgs, nil
}

func (r *GormMessageRepository) ListDirectFor(ctx context.Context, userID uint) ([]domain.Message, error) {
	var msgs []domain.Message
	err := r.withParticipants(ctx).
		Where("is_broadcast = ?", false).
		Where("sender_id = ? OR recipient_id = ?", userID, userID).
		Order("timestamp DESC").Order("id DESC").
		Find(&msgs).Error
	if err != nil {
		return nil, fmt.Errorf("gorm: list direct messages for user %d: %w", userID, err)
	}
	return msgs, nil
}

func (r *GormMessageRepository) MarkRead(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Model(&domain.Message{}).Where("id = ?", id).Update("is_read", true)
	if result.Error != nil {
		return fmt.Errorf("gorm: mark message %d read: %w", id, result.Error)
	}
	// MySQL reports zero affected rows for an unchanged value, so callers
	// look the message up first instead of relying on RowsAffected.
	return nil
}

func (r *GormMessageRepository) UpdateDeletedFor(ctx context.Context, id uint, deletedFor []uint) error {
	// Select forces the serializer to run for the slice column.
	result := r.db.WithContext(ctx).Model(&domain.Message{ID: id}).Select("DeletedFor").
		Updates(&domain.Message{DeletedFor: deletedFor})
	if result.Error != nil {
		return fmt.Errorf("gorm: update deleted_for of message %d: %w", id, result.Error)
	}
	return nil
}

func (r *GormMessageRepository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&domain.Message{}, id)
	if result.Error != nil {
		return fmt.Errorf("gorm: delete message %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return repository.ErrMessageNotFound
	}
	return nil
}

func (r *GormMessageRepository) DeleteByUser(ctx context.Context, userID uint) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("sender_id = ? OR recipient_id = ?", userID, userID).
		Delete(&domain.Message{})
	if result.Error != nil {
		return 0, fmt.Errorf("gorm: delete messages of user %d: %w", userID, result.Error)
	}
	return result.RowsAffected, nil
}
