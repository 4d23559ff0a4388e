package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Leganyst/docwatch/internal/model"
)

// EventRepository appends to the audit journal.
type EventRepository interface {
	Append(ctx context.Context, event *model.Event) error
	ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]model.Event, error)
}

type GormEventRepository struct {
	db *gorm.DB
}

func NewGormEventRepository(db *gorm.DB) *GormEventRepository {
	return &GormEventRepository{db: db}
}

func (r *GormEventRepository) Append(ctx context.Context, event *model.Event) error {
	return r.db.WithContext(ctx).Create(event).Error
}

func (r *GormEventRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]model.Event, error) {
	var events []model.Event
	q := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&events).Error
	return events, err
}
