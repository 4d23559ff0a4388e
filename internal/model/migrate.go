package model

import "gorm.io/gorm"

// AutoMigrate migrates every entity of the service.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&User{},
		&PushSubscription{},
		&Document{},
		&Booking{},
		&Payment{},
		&Event{},
	)
}
