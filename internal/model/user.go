package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AuthProvider string

const (
	AuthProviderLocal    AuthProvider = "local"
	AuthProviderGoogle   AuthProvider = "google"
	AuthProviderFacebook AuthProvider = "facebook"
)

// users
type User struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey"`

	FullName string `gorm:"type:varchar(255);not null"`
	Email    string `gorm:"type:varchar(255);not null;uniqueIndex"`
	Phone    string `gorm:"type:varchar(32)"`
	Country  string `gorm:"type:varchar(64)"`

	// Empty for accounts created through an OAuth provider.
	PasswordHash string `gorm:"type:varchar(255)"`

	Provider   AuthProvider `gorm:"type:varchar(16);not null;default:'local'"`
	ProviderID string       `gorm:"type:varchar(255);index"`

	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`

	Subscriptions []PushSubscription `gorm:"foreignKey:UserID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

func (u *User) BeforeCreate(*gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}
