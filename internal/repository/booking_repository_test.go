package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Leganyst/docwatch/internal/model"
	"github.com/Leganyst/docwatch/internal/testutil"
)

func newBooking(u *model.User, date, start string) *model.Booking {
	return &model.Booking{
		UserID:     u.ID,
		Date:       date,
		StartTime:  start,
		LessonType: model.LessonTypePractical,
		Status:     model.BookingStatusPending,
	}
}

func TestGormBookingRepository_CreateIfFree_RejectsSameSlot(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewGormBookingRepository(db)
	ctx := context.Background()
	u := testutil.CreateUser(t, db, "u@example.com")

	require.NoError(t, repo.CreateIfFree(ctx, newBooking(u, "2025-06-01", "10:00")))

	err := repo.CreateIfFree(ctx, newBooking(u, "2025-06-01", "10:00"))
	assert.ErrorIs(t, err, ErrSlotTaken)

	var count int64
	require.NoError(t, db.Model(&model.Booking{}).
		Where("user_id = ? AND date = ? AND start_time = ?", u.ID, "2025-06-01", "10:00").
		Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestGormBookingRepository_CreateIfFree_OtherSlotsAndUsers(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewGormBookingRepository(db)
	ctx := context.Background()
	u1 := testutil.CreateUser(t, db, "a@example.com")
	u2 := testutil.CreateUser(t, db, "b@example.com")

	require.NoError(t, repo.CreateIfFree(ctx, newBooking(u1, "2025-06-01", "10:00")))
	require.NoError(t, repo.CreateIfFree(ctx, newBooking(u1, "2025-06-01", "11:00")))
	require.NoError(t, repo.CreateIfFree(ctx, newBooking(u1, "2025-06-02", "10:00")))
	require.NoError(t, repo.CreateIfFree(ctx, newBooking(u2, "2025-06-01", "10:00")))
}

func TestGormBookingRepository_CancelledSlotIsReusable(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewGormBookingRepository(db)
	ctx := context.Background()
	u := testutil.CreateUser(t, db, "u@example.com")

	first := newBooking(u, "2025-06-01", "10:00")
	require.NoError(t, repo.CreateIfFree(ctx, first))

	now := time.Now().UTC()
	require.NoError(t, repo.UpdateStatus(ctx, first.ID, model.BookingStatusCancelled, &now))

	got, err := repo.GetByID(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BookingStatusCancelled, got.Status)
	require.NotNil(t, got.CancelledAt)

	require.NoError(t, repo.CreateIfFree(ctx, newBooking(u, "2025-06-01", "10:00")))
}

func TestGormBookingRepository_CancelledAtSurvivesListing(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewGormBookingRepository(db)
	ctx := context.Background()
	u := testutil.CreateUser(t, db, "u@example.com")

	b := newBooking(u, "2025-06-01", "10:00")
	require.NoError(t, repo.CreateIfFree(ctx, b))

	at := time.Date(2025, 5, 30, 12, 15, 0, 0, time.UTC)
	require.NoError(t, repo.UpdateStatus(ctx, b.ID, model.BookingStatusCancelled, &at))

	items, total, err := repo.ListByUser(ctx, u.ID, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, items, 1)
	require.NotNil(t, items[0].CancelledAt)
	assert.True(t, at.Equal(*items[0].CancelledAt), "got %v", items[0].CancelledAt)
}

func TestBookingActiveSlotIndex_BlocksDirectDuplicateInsert(t *testing.T) {
	db := testutil.NewDB(t)
	u := testutil.CreateUser(t, db, "u@example.com")

	require.NoError(t, db.Create(newBooking(u, "2025-06-01", "10:00")).Error)
	err := db.Create(newBooking(u, "2025-06-01", "10:00")).Error
	assert.True(t, errors.Is(err, gorm.ErrDuplicatedKey), "got %v", err)

	cancelled := newBooking(u, "2025-06-01", "10:00")
	cancelled.Status = model.BookingStatusCancelled
	assert.NoError(t, db.Create(cancelled).Error)
}

func TestGormBookingRepository_ListByUser(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewGormBookingRepository(db)
	ctx := context.Background()
	u := testutil.CreateUser(t, db, "u@example.com")
	other := testutil.CreateUser(t, db, "o@example.com")

	for _, start := range []string{"08:00", "09:00", "10:00"} {
		require.NoError(t, repo.CreateIfFree(ctx, newBooking(u, "2025-06-01", start)))
	}
	require.NoError(t, repo.CreateIfFree(ctx, newBooking(other, "2025-06-01", "08:00")))

	items, total, err := repo.ListByUser(ctx, u.ID, 2, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, items, 2)
	assert.Equal(t, "10:00", items[0].StartTime)

	items, _, err = repo.ListByUser(ctx, u.ID, 2, 2)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "08:00", items[0].StartTime)
}
