package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// PushKeys are the browser-generated Web Push encryption keys.
type PushKeys struct {
	P256dh string `json:"p256dh"`
	Auth   string `json:"auth"`
}

// push_subscriptions: one row per (user, endpoint). Enabled gates delivery
// without removing the subscription.
type PushSubscription struct {
	ID     uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID uuid.UUID `gorm:"type:uuid;not null;index;uniqueIndex:idx_user_endpoint"`

	Endpoint string                       `gorm:"type:varchar(2048);not null;uniqueIndex:idx_user_endpoint"`
	Keys     datatypes.JSONType[PushKeys] `gorm:"not null"`
	Enabled  bool                         `gorm:"not null"`

	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (s *PushSubscription) BeforeCreate(*gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}
