package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type DocumentStatus string

const (
	DocumentStatusValid    DocumentStatus = "valid"
	DocumentStatusExpiring DocumentStatus = "expiring"
	DocumentStatusExpired  DocumentStatus = "expired"
)

// documents
type Document struct {
	ID     uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID uuid.UUID `gorm:"type:uuid;not null;index"`

	Country string `gorm:"type:varchar(64);not null"`
	Type    string `gorm:"type:varchar(64);not null"`
	Number  string `gorm:"type:varchar(128);not null"`

	IssueDate  time.Time `gorm:"not null"`
	ExpiryDate time.Time `gorm:"not null;index"`

	// Derived from ExpiryDate on every write, never taken from a client.
	Status DocumentStatus `gorm:"type:varchar(16);not null;index"`

	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`

	User *User `gorm:"foreignKey:UserID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

func (d *Document) BeforeCreate(*gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}
