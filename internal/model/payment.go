package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "pending"
	PaymentStatusSuccess PaymentStatus = "success"
	PaymentStatusFailed  PaymentStatus = "failed"
)

// payments
//
// Reference is the gateway's idempotency key; the unique index makes a
// replayed verification fail the insert instead of extending twice.
type Payment struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID     uuid.UUID `gorm:"type:uuid;not null;index"`
	DocumentID uuid.UUID `gorm:"type:uuid;not null;index"`

	Amount   int64  `gorm:"not null"` // minor currency units
	Currency string `gorm:"type:varchar(8);not null"`

	Reference     string        `gorm:"type:varchar(255);not null;uniqueIndex"`
	TransactionID string        `gorm:"type:varchar(255)"`
	Status        PaymentStatus `gorm:"type:varchar(16);not null"`

	PaidAt    time.Time `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null"`

	User     *User     `gorm:"foreignKey:UserID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	Document *Document `gorm:"foreignKey:DocumentID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT"`
}

func (p *Payment) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
