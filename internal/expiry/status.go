// Package expiry derives a document's expiry status from its expiry date.
//
// A document is expired once its expiry instant lies strictly before now.
// Otherwise the remaining time is rounded up to whole days on millisecond
// granularity, and the document is expiring while that count is within the
// soon window (inclusive). A document that expires later today therefore
// reports 1 day left and is expiring, never expired, until the instant passes.
package expiry

import (
	"time"

	"github.com/Leganyst/docwatch/internal/model"
)

const (
	DefaultSoonDays = 30

	day      = 24 * time.Hour
	dayMilli = int64(day / time.Millisecond)
)

// Policy holds the configurable soon window.
type Policy struct {
	SoonDays int
}

func NewPolicy(soonDays int) Policy {
	if soonDays < 0 {
		soonDays = DefaultSoonDays
	}
	return Policy{SoonDays: soonDays}
}

// Window is the soon window as a duration.
func (p Policy) Window() time.Duration {
	return time.Duration(p.SoonDays) * day
}

// DaysUntil returns the whole days from now until expiry, using ceiling
// division of the millisecond difference. Past dates give zero or negative values.
func DaysUntil(expiry, now time.Time) int {
	return int(ceilDiv(expiry.Sub(now).Milliseconds(), dayMilli))
}

func ceilDiv(a, b int64) int64 {
	q := a / b
	if a%b != 0 && (a > 0) == (b > 0) {
		q++
	}
	return q
}

// Status is the pure status function used on every document write.
func (p Policy) Status(expiry, now time.Time) model.DocumentStatus {
	if expiry.Before(now) {
		return model.DocumentStatusExpired
	}
	if DaysUntil(expiry, now) <= p.SoonDays {
		return model.DocumentStatusExpiring
	}
	return model.DocumentStatusValid
}

// Apply recomputes doc.Status in place.
func (p Policy) Apply(doc *model.Document, now time.Time) {
	doc.Status = p.Status(doc.ExpiryDate, now)
}

// Extend returns the expiry one year after the current expiry, or one year
// from now when the document has already expired.
func Extend(expiry, now time.Time) time.Time {
	base := expiry
	if expiry.Before(now) {
		base = now
	}
	return base.AddDate(1, 0, 0)
}
