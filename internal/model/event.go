package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Audit event type. The same value is used as the routing key when events
// are published to the broker.
type EventType string

const (
	EventTypeBookingCreated    EventType = "booking.created"
	EventTypeBookingCancelled  EventType = "booking.cancelled"
	EventTypePaymentRecorded   EventType = "payment.recorded"
	EventTypeDocumentExtended  EventType = "document.extended"
	EventTypeDocumentCreated   EventType = "document.created"
	EventTypeDocumentDeleted   EventType = "document.deleted"
	EventTypeSubscriptionAdded EventType = "subscription.added"
)

// events: audit trail
type Event struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey"`

	EventType EventType `gorm:"type:varchar(64);not null;index"`

	CreatedAt time.Time `gorm:"not null;index"`

	UserID   *uuid.UUID `gorm:"type:uuid;index"`
	EntityID *uuid.UUID `gorm:"type:uuid;index"`

	Details datatypes.JSON
}

func (e *Event) BeforeCreate(*gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}
