package repositories

import (
	"context"
	"fmt"
	"time"

	"task-weather-api/internal/models"

	"gorm.io/gorm"
)

type APICallRepository interface {
	Create(ctx context.Context, call *models.APICall) error
	Count(ctx context.Context) (int64, error)
}

type GormAPICallRepository struct {
	db  *gorm.DB
	now func() time.Time
}

func NewAPICallRepository(db *gorm.DB, now func() time.Time) *GormAPICallRepository {
	if now == nil {
		now = time.Now
	}
	return &GormAPICallRepository{db: db, now: now}
}

// Create appends an audit row. A zero Timestamp is filled with the current time.
func (r *GormAPICallRepository) Create(ctx context.Context, call *models.APICall) error {
	if call.Timestamp.IsZero() {
		call.Timestamp = r.now().UTC()
	}
	if err := r.db.WithContext(ctx).Create(call).Error; err != nil {
		return fmt.Errorf("create api call: %w", err)
	}
	return nil
}

func (r *GormAPICallRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.APICall{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count api calls: %w", err)
	}
	return count, nil
}
