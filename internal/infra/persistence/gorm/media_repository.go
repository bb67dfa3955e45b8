package gormpersistence

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"snsu-notification/internal/domain"
	"snsu-notification/internal/repository"
)

// GormMediaRepository implements repository.MediaRepository.
type GormMediaRepository struct {
	db *gorm.DB
}

func NewGormMediaRepository(db *gorm.DB) *GormMediaRepository {
	if db == nil {
		panic("database connection cannot be nil for GormMediaRepository")
	}
	return &GormMediaRepository{db: db}
}

func (r *GormMediaRepository) Create(ctx context.Context, m *domain.Media) error {
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return fmt.Errorf("gorm: create media '%s': %w", m.Filename, err)
	}
	return nil
}

func (r *GormMediaRepository) FindByID(ctx context.Context, id uint) (*domain.Media, error) {
	var m domain.Media
	if err := r.db.WithContext(ctx).First(&m, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrMediaNotFound
		}
		return nil, fmt.Errorf("gorm: find media %d: %w", id, err)
	}
	return &m, nil
}

func (r *GormMediaRepository) DeleteByIDs(ctx context.Context, ids []uint) error {
	if len(ids) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Delete(&domain.Media{}).Error; err != nil {
		return fmt.Errorf("gorm: delete media %v: %w", ids, err)
	}
	return nil
}
