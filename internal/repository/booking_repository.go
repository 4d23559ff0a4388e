package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Leganyst/docwatch/internal/model"
)

// ErrSlotTaken means the owner already has an active booking at that date and time.
var ErrSlotTaken = errors.New("booking slot already taken")

type BookingRepository interface {
	// Inserts the booking if the (user, date, start_time) slot is free.
	CreateIfFree(ctx context.Context, booking *model.Booking) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Booking, error)
	// cancelledAt is set when cancelling.
	UpdateStatus(ctx context.Context, id uuid.UUID, status model.BookingStatus, cancelledAt *time.Time) error
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]model.Booking, int64, error)
}

// GormBookingRepository is the GORM implementation.
type GormBookingRepository struct {
	db *gorm.DB
}

func NewGormBookingRepository(db *gorm.DB) *GormBookingRepository {
	return &GormBookingRepository{db: db}
}

// CreateIfFree checks for an active booking at the same slot and inserts in one
// transaction. The partial unique index idx_booking_active_slot closes the
// window between the check and the insert; a violation is reported as ErrSlotTaken.
func (r *GormBookingRepository) CreateIfFree(ctx context.Context, booking *model.Booking) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing int64
		err := tx.Model(&model.Booking{}).
			Where("user_id = ? AND date = ? AND start_time = ? AND status <> ?",
				booking.UserID, booking.Date, booking.StartTime, model.BookingStatusCancelled).
			Count(&existing).Error
		if err != nil {
			return err
		}
		if existing > 0 {
			return ErrSlotTaken
		}
		return tx.Create(booking).Error
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrSlotTaken
	}
	return err
}

func (r *GormBookingRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Booking, error) {
	var b model.Booking
	if err := r.db.WithContext(ctx).First(&b, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *GormBookingRepository) UpdateStatus(
	ctx context.Context,
	id uuid.UUID,
	status model.BookingStatus,
	cancelledAt *time.Time,
) error {
	update := map[string]any{
		"status": status,
	}
	if cancelledAt != nil {
		update["cancelled_at"] = *cancelledAt
	}
	return r.db.WithContext(ctx).
		Model(&model.Booking{}).
		Where("id = ?", id).
		Updates(update).
		Error
}

func (r *GormBookingRepository) ListByUser(
	ctx context.Context,
	userID uuid.UUID,
	limit, offset int,
) ([]model.Booking, int64, error) {
	var (
		bookings []model.Booking
		total    int64
	)

	q := r.db.WithContext(ctx).
		Model(&model.Booking{}).
		Where("user_id = ?", userID)

	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := q.
		Order("date DESC, start_time DESC").
		Limit(limit).
		Offset(offset).
		Find(&bookings).Error; err != nil {
		return nil, 0, err
	}

	return bookings, total, nil
}
