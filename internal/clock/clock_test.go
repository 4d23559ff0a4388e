package clock_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Leganyst/docwatch/internal/clock"
)

func TestRealNowUsesUTC(t *testing.T) {
	t.Parallel()

	now := clock.Real{}.Now()
	assert.Equal(t, time.UTC, now.Location())
	assert.WithinDuration(t, time.Now(), now, time.Second)
}

func TestManualAdvanceFiresDueTimers(t *testing.T) {
	t.Parallel()

	start := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	m := clock.NewManual(start)

	short := m.After(time.Minute)
	long := m.After(time.Hour)
	require.Equal(t, 2, m.Pending())

	now := m.Advance(2 * time.Minute)
	assert.Equal(t, start.Add(2*time.Minute), now)

	select {
	case got := <-short:
		assert.Equal(t, now, got)
	default:
		t.Fatal("short timer did not fire")
	}
	select {
	case <-long:
		t.Fatal("long timer fired early")
	default:
	}
	assert.Equal(t, 1, m.Pending())
}

func TestManualAfterNonPositiveFiresImmediately(t *testing.T) {
	t.Parallel()

	m := clock.NewManual(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	select {
	case <-m.After(0):
	default:
		t.Fatal("expected immediate delivery")
	}
	assert.Zero(t, m.Pending())
}
