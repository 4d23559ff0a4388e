package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Leganyst/docwatch/internal/model"
)

type SubscriptionRepository interface {
	// Inserts the subscription, or refreshes the keys of an existing one and re-enables it.
	Upsert(ctx context.Context, userID uuid.UUID, endpoint string, keys model.PushKeys) (*model.PushSubscription, error)
	// An empty endpoint applies to all of the user's subscriptions.
	SetEnabled(ctx context.Context, userID uuid.UUID, endpoint string, enabled bool) (int64, error)
	Delete(ctx context.Context, userID uuid.UUID, endpoint string) (int64, error)
	ListEnabledByUser(ctx context.Context, userID uuid.UUID) ([]model.PushSubscription, error)
}

type GormSubscriptionRepository struct {
	db *gorm.DB
}

func NewGormSubscriptionRepository(db *gorm.DB) *GormSubscriptionRepository {
	return &GormSubscriptionRepository{db: db}
}

func (r *GormSubscriptionRepository) Upsert(
	ctx context.Context,
	userID uuid.UUID,
	endpoint string,
	keys model.PushKeys,
) (*model.PushSubscription, error) {
	sub := &model.PushSubscription{
		UserID:   userID,
		Endpoint: endpoint,
		Keys:     datatypes.NewJSONType(keys),
		Enabled:  true,
	}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "endpoint"}},
			DoUpdates: clause.AssignmentColumns([]string{"keys", "enabled", "updated_at"}),
		}).
		Create(sub).Error
	if err != nil {
		return nil, err
	}

	var stored model.PushSubscription
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND endpoint = ?", userID, endpoint).
		First(&stored).Error; err != nil {
		return nil, err
	}
	return &stored, nil
}

func (r *GormSubscriptionRepository) SetEnabled(
	ctx context.Context,
	userID uuid.UUID,
	endpoint string,
	enabled bool,
) (int64, error) {
	q := r.db.WithContext(ctx).Model(&model.PushSubscription{}).Where("user_id = ?", userID)
	if endpoint != "" {
		q = q.Where("endpoint = ?", endpoint)
	}
	res := q.Update("enabled", enabled)
	return res.RowsAffected, res.Error
}

func (r *GormSubscriptionRepository) Delete(ctx context.Context, userID uuid.UUID, endpoint string) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("user_id = ? AND endpoint = ?", userID, endpoint).
		Delete(&model.PushSubscription{})
	return res.RowsAffected, res.Error
}

func (r *GormSubscriptionRepository) ListEnabledByUser(ctx context.Context, userID uuid.UUID) ([]model.PushSubscription, error) {
	var subs []model.PushSubscription
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND enabled = ?", userID, true).
		Order("created_at").
		Find(&subs).Error
	return subs, err
}
