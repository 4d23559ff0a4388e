package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Leganyst/docwatch/internal/model"
)

type DocumentRepository interface {
	Create(ctx context.Context, doc *model.Document) error
	// A document owned by someone else is gorm.ErrRecordNotFound.
	GetForUser(ctx context.Context, id, userID uuid.UUID) (*model.Document, error)
	Save(ctx context.Context, doc *model.Document) error
	DeleteForUser(ctx context.Context, id, userID uuid.UUID) (int64, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]model.Document, int64, error)

	// Used by the notification scan.
	ListExpired(ctx context.Context, now time.Time) ([]model.Document, error)
	ListExpiringBetween(ctx context.Context, from, to time.Time) ([]model.Document, error)
}

type GormDocumentRepository struct {
	db *gorm.DB
}

func NewGormDocumentRepository(db *gorm.DB) *GormDocumentRepository {
	return &GormDocumentRepository{db: db}
}

func (r *GormDocumentRepository) Create(ctx context.Context, doc *model.Document) error {
	return r.db.WithContext(ctx).Create(doc).Error
}

func (r *GormDocumentRepository) GetForUser(ctx context.Context, id, userID uuid.UUID) (*model.Document, error) {
	var d model.Document
	if err := r.db.WithContext(ctx).First(&d, "id = ? AND user_id = ?", id, userID).Error; err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *GormDocumentRepository) Save(ctx context.Context, doc *model.Document) error {
	return r.db.WithContext(ctx).Save(doc).Error
}

func (r *GormDocumentRepository) DeleteForUser(ctx context.Context, id, userID uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).Delete(&model.Document{})
	return res.RowsAffected, res.Error
}

func (r *GormDocumentRepository) ListByUser(
	ctx context.Context,
	userID uuid.UUID,
	limit, offset int,
) ([]model.Document, int64, error) {
	var (
		docs  []model.Document
		total int64
	)

	q := r.db.WithContext(ctx).
		Model(&model.Document{}).
		Where("user_id = ?", userID)

	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := q.
		Order("expiry_date ASC").
		Limit(limit).
		Offset(offset).
		Find(&docs).Error; err != nil {
		return nil, 0, err
	}

	return docs, total, nil
}

func (r *GormDocumentRepository) ListExpired(ctx context.Context, now time.Time) ([]model.Document, error) {
	var docs []model.Document
	err := r.db.WithContext(ctx).
		Where("expiry_date <= ?", now).
		Order("user_id, expiry_date").
		Find(&docs).Error
	return docs, err
}

func (r *GormDocumentRepository) ListExpiringBetween(ctx context.Context, from, to time.Time) ([]model.Document, error) {
	var docs []model.Document
	err := r.db.WithContext(ctx).
		Where("expiry_date > ? AND expiry_date <= ?", from, to).
		Order("user_id, expiry_date").
		Find(&docs).Error
	return docs, err
}
