// Package notify scans documents for expiry and fans out Web Push reminders.
//
// Delivery is best effort: each send is isolated, failures are recorded in the
// scan Report and never stop the scan. Nothing is retried.
package notify

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"pkt.systems/pslog"

	"github.com/Leganyst/docwatch/internal/clock"
	"github.com/Leganyst/docwatch/internal/expiry"
	"github.com/Leganyst/docwatch/internal/model"
)

var ErrAlreadyRunning = errors.New("scheduler already running")

// DocumentSource is the read side the scan needs.
type DocumentSource interface {
	ListExpired(ctx context.Context, now time.Time) ([]model.Document, error)
	ListExpiringBetween(ctx context.Context, from, to time.Time) ([]model.Document, error)
}

// SubscriptionSource resolves an owner's enabled subscriptions.
type SubscriptionSource interface {
	ListEnabledByUser(ctx context.Context, userID uuid.UUID) ([]model.PushSubscription, error)
}

// Observer is told about every finished scan.
type Observer interface {
	ObserveScan(report Report, err error)
}

type Options struct {
	Interval time.Duration
	Policy   expiry.Policy
	Clock    clock.Clock
	Logger   pslog.Logger
	Observer Observer
}

// Scheduler runs a scan on Start and then once per interval until Stop.
// Scans run on a single goroutine and never overlap; a scan longer than the
// interval pushes the next one back.
type Scheduler struct {
	docs   DocumentSource
	subs   SubscriptionSource
	sender Sender

	interval time.Duration
	policy   expiry.Policy
	clock    clock.Clock
	logger   pslog.Logger
	observer Observer

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewScheduler(docs DocumentSource, subs SubscriptionSource, sender Sender, opts Options) *Scheduler {
	if opts.Clock == nil {
		opts.Clock = clock.Real{}
	}
	if opts.Logger == nil {
		opts.Logger = pslog.NoopLogger()
	}
	if opts.Interval <= 0 {
		opts.Interval = time.Hour
	}
	return &Scheduler{
		docs:     docs,
		subs:     subs,
		sender:   sender,
		interval: opts.Interval,
		policy:   opts.Policy,
		clock:    opts.Clock,
		logger:   opts.Logger,
		observer: opts.Observer,
	}
}

// Start launches the background loop. The first scan happens immediately.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return ErrAlreadyRunning
	}
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	go s.loop(ctx, s.done)
	s.logger.Info("notify.scheduler.started", "interval", s.interval.String(), "soon_days", s.policy.SoonDays)
	return nil
}

// Stop cancels the loop and waits for an in-flight scan to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
	s.logger.Info("notify.scheduler.stopped")
}

func (s *Scheduler) loop(ctx context.Context, done chan struct{}) {
	defer close(done)
	s.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.clock.After(s.interval):
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	report, err := s.RunOnce(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Error("notify.scan.failed", "error", err)
	}
	if s.observer != nil {
		s.observer.ObserveScan(report, err)
	}
}

// RunOnce performs a single scan pass and reports every delivery attempt.
// An error means the document queries failed or ctx was cancelled; individual
// delivery failures are only reflected in the Report.
func (s *Scheduler) RunOnce(ctx context.Context) (report Report, err error) {
	ctx, span := otel.Tracer("docwatch/notify").Start(ctx, "notify.scan")
	defer func() {
		span.SetAttributes(
			attribute.Int("notify.expired", report.Expired),
			attribute.Int("notify.expiring", report.Expiring),
			attribute.Int("notify.attempts", report.Attempts()),
			attribute.Int("notify.failed", report.Failed()),
		)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	now := s.clock.Now()
	report.StartedAt = now

	expired, err := s.docs.ListExpired(ctx, now)
	if err != nil {
		return report, fmt.Errorf("list expired documents: %w", err)
	}
	soon, err := s.docs.ListExpiringBetween(ctx, now, now.Add(s.policy.Window()))
	if err != nil {
		return report, fmt.Errorf("list expiring documents: %w", err)
	}
	report.Expired = len(expired)
	report.Expiring = len(soon)

	cache := make(map[uuid.UUID][]model.PushSubscription)
	failedOwners := make(map[uuid.UUID]struct{})

	pass := func(docs []model.Document, kind Kind) error {
		for _, doc := range docs {
			if err := ctx.Err(); err != nil {
				return err
			}
			subs, ok := s.subscriptionsFor(ctx, doc.UserID, cache, failedOwners, &report)
			if !ok || len(subs) == 0 {
				continue
			}
			report.Results = append(report.Results, s.deliver(ctx, doc, kind, subs)...)
		}
		return nil
	}
	if err := pass(expired, KindExpired); err != nil {
		report.FinishedAt = s.clock.Now()
		return report, err
	}
	if err := pass(soon, KindExpiring); err != nil {
		report.FinishedAt = s.clock.Now()
		return report, err
	}

	report.FinishedAt = s.clock.Now()
	s.logger.Info("notify.scan.complete",
		"expired", report.Expired,
		"expiring", report.Expiring,
		"owners", report.Owners,
		"attempts", report.Attempts(),
		"delivered", report.Delivered(),
		"failed", report.Failed(),
	)
	return report, nil
}

func (s *Scheduler) subscriptionsFor(
	ctx context.Context,
	owner uuid.UUID,
	cache map[uuid.UUID][]model.PushSubscription,
	failed map[uuid.UUID]struct{},
	report *Report,
) ([]model.PushSubscription, bool) {
	if subs, ok := cache[owner]; ok {
		return subs, true
	}
	if _, ok := failed[owner]; ok {
		return nil, false
	}
	subs, err := s.subs.ListEnabledByUser(ctx, owner)
	if err != nil {
		failed[owner] = struct{}{}
		report.LookupFailures++
		s.logger.Warn("notify.subscriptions.lookup_failed", "user_id", owner.String(), "error", err)
		return nil, false
	}
	cache[owner] = subs
	report.Owners++
	return subs, true
}

func (s *Scheduler) deliver(ctx context.Context, doc model.Document, kind Kind, subs []model.PushSubscription) []DeliveryResult {
	results := make([]DeliveryResult, 0, len(subs))
	payload, err := BuildPayload(doc, kind).Encode()
	for _, sub := range subs {
		res := DeliveryResult{
			DocumentID: doc.ID,
			UserID:     doc.UserID,
			Endpoint:   sub.Endpoint,
			Kind:       kind,
			Err:        err,
		}
		if err == nil {
			res.Err = s.send(ctx, sub, payload)
		}
		var status *StatusError
		if errors.As(res.Err, &status) && status.Gone() {
			s.logger.Info("notify.subscription.gone",
				"user_id", doc.UserID.String(),
				"endpoint", sub.Endpoint,
				"status", status.Code,
			)
		} else if res.Err != nil {
			s.logger.Debug("notify.delivery.failed",
				"document_id", doc.ID.String(),
				"endpoint", sub.Endpoint,
				"error", res.Err,
			)
		}
		results = append(results, res)
	}
	return results
}

// send isolates a single delivery, including panics from the sender.
func (s *Scheduler) send(ctx context.Context, sub model.PushSubscription, payload []byte) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("sender panic: %v", r)
		}
	}()
	return s.sender.Send(ctx, sub, payload)
}
