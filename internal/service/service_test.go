package service

import (
	"context"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/Leganyst/docwatch/internal/clock"
	"github.com/Leganyst/docwatch/internal/events"
	"github.com/Leganyst/docwatch/internal/repository"
	"github.com/Leganyst/docwatch/internal/testutil"
)

// today is the fixed "now" of the service tests.
var today = time.Date(2025, 6, 1, 9, 30, 0, 0, time.UTC)

type fixture struct {
	db      *gorm.DB
	clock   *clock.Manual
	journal *events.Journal
	ctx     context.Context
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.NewDB(t)
	clk := clock.NewManual(today)
	return &fixture{
		db:      db,
		clock:   clk,
		journal: events.NewJournal(repository.NewGormEventRepository(db), nil, clk, nil),
		ctx:     context.Background(),
	}
}

func (f *fixture) eventCount(t *testing.T, typ string) int64 {
	t.Helper()
	var n int64
	if err := f.db.Table("events").Where("event_type = ?", typ).Count(&n).Error; err != nil {
		t.Fatalf("count events: %v", err)
	}
	return n
}
