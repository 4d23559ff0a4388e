// Package testutil holds fixtures shared by package tests.
package testutil

import (
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/Leganyst/docwatch/internal/db"
	"github.com/Leganyst/docwatch/internal/model"
)

// NewDB opens a migrated in-memory SQLite database that lives for the test.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()

	opts := db.Options()
	opts.Logger = gormlogger.Discard
	gdb, err := gorm.Open(sqlite.Open(":memory:"), opts)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		t.Fatalf("sql DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := model.AutoMigrate(gdb); err != nil {
		t.Fatalf("auto migrate: %v", err)
	}
	return gdb
}

// CreateUser seeds a local user.
func CreateUser(t testing.TB, gdb *gorm.DB, email string) *model.User {
	t.Helper()
	u := &model.User{FullName: "Test " + email, Email: email, Provider: model.AuthProviderLocal}
	if err := gdb.Create(u).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return u
}
