package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusCompleted BookingStatus = "completed"
	BookingStatusCancelled BookingStatus = "cancelled"
)

type LessonType string

const (
	LessonTypeTheory    LessonType = "theory"
	LessonTypePractical LessonType = "practical"
	LessonTypeHighway   LessonType = "highway"
	LessonTypeParking   LessonType = "parking"
	LessonTypeTestPrep  LessonType = "test-prep"
)

var lessonTypes = map[LessonType]struct{}{
	LessonTypeTheory:    {},
	LessonTypePractical: {},
	LessonTypeHighway:   {},
	LessonTypeParking:   {},
	LessonTypeTestPrep:  {},
}

func (t LessonType) Valid() bool {
	_, ok := lessonTypes[t]
	return ok
}

// bookings
//
// idx_booking_active_slot keeps at most one non-cancelled booking per
// (user, date, start time); cancelled rows fall outside the partial index.
type Booking struct {
	ID     uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID uuid.UUID `gorm:"type:uuid;not null;index;uniqueIndex:idx_booking_active_slot,where:status <> 'cancelled'"`

	Date      string `gorm:"type:varchar(10);not null;uniqueIndex:idx_booking_active_slot"` // YYYY-MM-DD
	StartTime string `gorm:"type:varchar(5);not null;uniqueIndex:idx_booking_active_slot"`  // HH:MM

	LessonType LessonType    `gorm:"type:varchar(32);not null"`
	Status     BookingStatus `gorm:"type:varchar(16);not null;index"`
	Notes      string        `gorm:"type:text"`

	CreatedAt   time.Time  `gorm:"not null"`
	UpdatedAt   time.Time  `gorm:"not null"`
	CancelledAt *time.Time

	User *User `gorm:"foreignKey:UserID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

func (b *Booking) BeforeCreate(*gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}
