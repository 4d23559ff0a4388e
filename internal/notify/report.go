package notify

import (
	"time"

	"github.com/google/uuid"
)

// DeliveryResult is the outcome of one send attempt. Err is nil on success.
type DeliveryResult struct {
	DocumentID uuid.UUID
	UserID     uuid.UUID
	Endpoint   string
	Kind       Kind
	Err        error
}

func (r DeliveryResult) OK() bool {
	return r.Err == nil
}

// Report collects every attempt of one scan pass.
type Report struct {
	StartedAt  time.Time
	FinishedAt time.Time

	Expired  int
	Expiring int

	// Owners whose subscriptions were loaded (once each per pass).
	Owners int
	// Owners whose subscription lookup failed; their documents were skipped.
	LookupFailures int

	Results []DeliveryResult
}

func (r Report) Attempts() int {
	return len(r.Results)
}

func (r Report) Delivered() int {
	n := 0
	for _, res := range r.Results {
		if res.OK() {
			n++
		}
	}
	return n
}

func (r Report) Failed() int {
	return r.Attempts() - r.Delivered()
}
