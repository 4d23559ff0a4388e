package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Leganyst/docwatch/internal/clock"
	"github.com/Leganyst/docwatch/internal/events"
	"github.com/Leganyst/docwatch/internal/model"
	"github.com/Leganyst/docwatch/internal/paging"
	"github.com/Leganyst/docwatch/internal/repository"
)

const (
	bookingDateLayout = "2006-01-02"
	bookingTimeLayout = "15:04"
)

type BookingInput struct {
	Date       string
	StartTime  string
	LessonType model.LessonType
	Notes      string
}

type BookingService struct {
	bookings repository.BookingRepository
	clock    clock.Clock
	journal  *events.Journal
}

func NewBookingService(bookings repository.BookingRepository, clk clock.Clock, journal *events.Journal) *BookingService {
	if clk == nil {
		clk = clock.Real{}
	}
	return &BookingService{bookings: bookings, clock: clk, journal: journal}
}

// Create books a lesson slot. Only one non-cancelled booking per owner may
// hold a (date, start time) pair; a second one is ErrConflict.
func (s *BookingService) Create(ctx context.Context, owner uuid.UUID, in BookingInput) (*model.Booking, error) {
	in.Date = strings.TrimSpace(in.Date)
	in.StartTime = strings.TrimSpace(in.StartTime)
	if ok, reason := validateBookingInput(in); !ok {
		return nil, invalid(reason)
	}

	b := &model.Booking{
		UserID:     owner,
		Date:       in.Date,
		StartTime:  in.StartTime,
		LessonType: in.LessonType,
		Status:     model.BookingStatusPending,
		Notes:      strings.TrimSpace(in.Notes),
	}
	err := s.bookings.CreateIfFree(ctx, b)
	if errors.Is(err, repository.ErrSlotTaken) {
		return nil, fmt.Errorf("%w: you already have a booking on %s at %s", ErrConflict, in.Date, in.StartTime)
	}
	if err != nil {
		return nil, fmt.Errorf("create booking: %w", err)
	}

	s.record(ctx, model.EventTypeBookingCreated, b)
	return b, nil
}

// Cancel marks the owner's booking cancelled. A booking owned by someone else
// is ErrUnauthorized and stays untouched. Cancelling twice is a no-op.
func (s *BookingService) Cancel(ctx context.Context, owner, id uuid.UUID) (*model.Booking, error) {
	b, err := s.bookings.GetByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: booking not found", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get booking: %w", err)
	}
	if b.UserID != owner {
		return nil, fmt.Errorf("%w: not allowed to cancel this booking", ErrUnauthorized)
	}
	if b.Status == model.BookingStatusCancelled {
		return b, nil
	}

	now := s.clock.Now()
	if err := s.bookings.UpdateStatus(ctx, b.ID, model.BookingStatusCancelled, &now); err != nil {
		return nil, fmt.Errorf("cancel booking: %w", err)
	}
	b.Status = model.BookingStatusCancelled
	b.CancelledAt = &now

	s.record(ctx, model.EventTypeBookingCancelled, b)
	return b, nil
}

// List returns the owner's bookings, latest slot first.
func (s *BookingService) List(ctx context.Context, owner uuid.UUID, page, limit int) (paging.Page[model.Booking], error) {
	req := paging.Normalize(page, limit)
	items, total, err := s.bookings.ListByUser(ctx, owner, req.Limit, req.Offset())
	if err != nil {
		return paging.Page[model.Booking]{}, fmt.Errorf("list bookings: %w", err)
	}
	return paging.New(items, req, total), nil
}

func (s *BookingService) record(ctx context.Context, typ model.EventType, b *model.Booking) {
	if s.journal == nil {
		return
	}
	s.journal.Record(ctx, typ, b.UserID, b.ID, map[string]any{
		"date":       b.Date,
		"startTime":  b.StartTime,
		"lessonType": b.LessonType,
		"status":     b.Status,
	})
}

// validateBookingInput returns (ok, reason). Date and time are stored as
// strings, so the format is strict: exactly YYYY-MM-DD and HH:MM.
func validateBookingInput(in BookingInput) (bool, string) {
	if in.Date == "" {
		return false, "date is required"
	}
	if d, err := time.Parse(bookingDateLayout, in.Date); err != nil || d.Format(bookingDateLayout) != in.Date {
		return false, "date must be YYYY-MM-DD"
	}
	if in.StartTime == "" {
		return false, "start time is required"
	}
	if t, err := time.Parse(bookingTimeLayout, in.StartTime); err != nil || t.Format(bookingTimeLayout) != in.StartTime {
		return false, "start time must be HH:MM"
	}
	if !in.LessonType.Valid() {
		return false, fmt.Sprintf("unknown lesson type %q", in.LessonType)
	}
	return true, ""
}
