package notify

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"github.com/Leganyst/docwatch/internal/clock"
	"github.com/Leganyst/docwatch/internal/expiry"
	"github.com/Leganyst/docwatch/internal/model"
	"github.com/Leganyst/docwatch/internal/repository"
	"github.com/Leganyst/docwatch/internal/testutil"
)

type fakeDocs struct {
	expired  []model.Document
	expiring []model.Document
	err      error

	mu       sync.Mutex
	lastFrom time.Time
	lastTo   time.Time
	calls    int
}

func (f *fakeDocs) ListExpired(_ context.Context, _ time.Time) ([]model.Document, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	return f.expired, f.err
}

func (f *fakeDocs) ListExpiringBetween(_ context.Context, from, to time.Time) ([]model.Document, error) {
	f.mu.Lock()
	f.lastFrom, f.lastTo = from, to
	f.mu.Unlock()
	return f.expiring, nil
}

func (f *fakeDocs) scans() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeSubs struct {
	byUser map[uuid.UUID][]model.PushSubscription
	fail   map[uuid.UUID]bool
	calls  map[uuid.UUID]int
}

func newFakeSubs() *fakeSubs {
	return &fakeSubs{
		byUser: map[uuid.UUID][]model.PushSubscription{},
		fail:   map[uuid.UUID]bool{},
		calls:  map[uuid.UUID]int{},
	}
}

func (f *fakeSubs) ListEnabledByUser(_ context.Context, userID uuid.UUID) ([]model.PushSubscription, error) {
	f.calls[userID]++
	if f.fail[userID] {
		return nil, errors.New("lookup failed")
	}
	return f.byUser[userID], nil
}

type sent struct {
	endpoint string
	payload  Payload
}

type fakeSender struct {
	mu      sync.Mutex
	sent    []sent
	failFor map[string]error
	panicOn string
}

func (f *fakeSender) Send(_ context.Context, sub model.PushSubscription, payload []byte) error {
	if sub.Endpoint == f.panicOn && f.panicOn != "" {
		panic("boom")
	}
	var p Payload
	if err := json.Unmarshal(payload, &p); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sent{endpoint: sub.Endpoint, payload: p})
	return f.failFor[sub.Endpoint]
}

func sub(userID uuid.UUID, endpoint string) model.PushSubscription {
	return model.PushSubscription{
		UserID:   userID,
		Endpoint: endpoint,
		Keys:     datatypes.NewJSONType(model.PushKeys{P256dh: "p", Auth: "a"}),
		Enabled:  true,
	}
}

func doc(userID uuid.UUID, typ, number string, expiresAt time.Time) model.Document {
	return model.Document{
		ID:         uuid.New(),
		UserID:     userID,
		Type:       typ,
		Number:     number,
		ExpiryDate: expiresAt,
	}
}

var scanStart = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func TestRunOnceDeliversToEverySubscription(t *testing.T) {
	alice, bob := uuid.New(), uuid.New()

	docs := &fakeDocs{
		expired: []model.Document{
			doc(alice, "passport", "P-1", scanStart.Add(-48*time.Hour)),
		},
		expiring: []model.Document{
			doc(alice, "visa", "V-2", time.Date(2025, 6, 11, 0, 0, 0, 0, time.UTC)),
			doc(bob, "license", "L-3", time.Date(2025, 6, 20, 0, 0, 0, 0, time.UTC)),
		},
	}
	subs := newFakeSubs()
	subs.byUser[alice] = []model.PushSubscription{sub(alice, "https://push/a1"), sub(alice, "https://push/a2")}
	subs.byUser[bob] = []model.PushSubscription{sub(bob, "https://push/b1")}
	sender := &fakeSender{}

	s := NewScheduler(docs, subs, sender, Options{
		Policy: expiry.NewPolicy(30),
		Clock:  clock.NewManual(scanStart),
	})

	report, err := s.RunOnce(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, report.Expired)
	assert.Equal(t, 2, report.Expiring)
	assert.Equal(t, 2, report.Owners)
	assert.Equal(t, 5, report.Attempts())
	assert.Equal(t, 5, report.Delivered())
	assert.Equal(t, 0, report.Failed())

	// subscriptions are loaded once per owner per pass
	assert.Equal(t, 1, subs.calls[alice])
	assert.Equal(t, 1, subs.calls[bob])

	assert.Equal(t, scanStart, docs.lastFrom)
	assert.Equal(t, scanStart.Add(30*24*time.Hour), docs.lastTo)

	require.Len(t, sender.sent, 5)
	first := sender.sent[0].payload
	assert.Equal(t, "Document Expired", first.Title)
	assert.Contains(t, first.Body, "passport")
	assert.Contains(t, first.Body, "P-1")
	assert.Equal(t, KindExpired, first.Data.Kind)

	soon := sender.sent[2].payload
	assert.Equal(t, "Document Expiring Soon", soon.Title)
	assert.Contains(t, soon.Body, "V-2")
	assert.Contains(t, soon.Body, "Wed Jun 11 2025")
	assert.Equal(t, KindExpiring, soon.Data.Kind)
}

func TestRunOnceIsolatesFailures(t *testing.T) {
	alice, bob := uuid.New(), uuid.New()

	docs := &fakeDocs{
		expired: []model.Document{
			doc(alice, "passport", "P-1", scanStart.Add(-time.Hour)),
			doc(bob, "visa", "V-1", scanStart.Add(-time.Hour)),
		},
	}
	subs := newFakeSubs()
	subs.byUser[alice] = []model.PushSubscription{
		sub(alice, "https://push/gone"),
		sub(alice, "https://push/panics"),
		sub(alice, "https://push/ok"),
	}
	subs.fail[bob] = true
	sender := &fakeSender{
		failFor: map[string]error{"https://push/gone": &StatusError{Code: 410}},
		panicOn: "https://push/panics",
	}

	s := NewScheduler(docs, subs, sender, Options{
		Policy: expiry.NewPolicy(30),
		Clock:  clock.NewManual(scanStart),
	})

	report, err := s.RunOnce(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, report.Attempts())
	assert.Equal(t, 1, report.Delivered())
	assert.Equal(t, 2, report.Failed())
	assert.Equal(t, 1, report.LookupFailures)

	var gone *StatusError
	require.ErrorAs(t, report.Results[0].Err, &gone)
	assert.True(t, gone.Gone())
	assert.ErrorContains(t, report.Results[1].Err, "panic")
	assert.True(t, report.Results[2].OK())
}

func TestRunOnceSkipsOwnersWithoutSubscriptions(t *testing.T) {
	alice := uuid.New()
	docs := &fakeDocs{
		expired: []model.Document{
			doc(alice, "passport", "P-1", scanStart.Add(-time.Hour)),
			doc(alice, "visa", "V-1", scanStart.Add(-time.Hour)),
		},
	}
	subs := newFakeSubs()
	sender := &fakeSender{}

	s := NewScheduler(docs, subs, sender, Options{Clock: clock.NewManual(scanStart)})
	report, err := s.RunOnce(context.Background())
	require.NoError(t, err)

	assert.Zero(t, report.Attempts())
	assert.Equal(t, 1, subs.calls[alice])
	assert.Empty(t, sender.sent)
}

func TestRunOnceReturnsQueryErrors(t *testing.T) {
	docs := &fakeDocs{err: errors.New("db down")}
	s := NewScheduler(docs, newFakeSubs(), &fakeSender{}, Options{Clock: clock.NewManual(scanStart)})

	_, err := s.RunOnce(context.Background())
	require.Error(t, err)
	assert.ErrorContains(t, err, "db down")
}

func TestRunOnceStopsOnCancelledContext(t *testing.T) {
	alice := uuid.New()
	docs := &fakeDocs{
		expired: []model.Document{doc(alice, "passport", "P-1", scanStart.Add(-time.Hour))},
	}
	subs := newFakeSubs()
	subs.byUser[alice] = []model.PushSubscription{sub(alice, "https://push/a")}
	sender := &fakeSender{}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := NewScheduler(docs, subs, sender, Options{Clock: clock.NewManual(scanStart)})
	_, err := s.RunOnce(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, sender.sent)
}

type recordingObserver struct {
	mu      sync.Mutex
	reports []Report
}

func (o *recordingObserver) ObserveScan(r Report, _ error) {
	o.mu.Lock()
	o.reports = append(o.reports, r)
	o.mu.Unlock()
}

func (o *recordingObserver) count() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.reports)
}

func TestStartScansImmediatelyThenEveryInterval(t *testing.T) {
	clk := clock.NewManual(scanStart)
	docs := &fakeDocs{}
	obs := &recordingObserver{}

	s := NewScheduler(docs, newFakeSubs(), &fakeSender{}, Options{
		Interval: time.Minute,
		Clock:    clk,
		Observer: obs,
	})
	require.NoError(t, s.Start(context.Background()))
	t.Cleanup(s.Stop)

	require.ErrorIs(t, s.Start(context.Background()), ErrAlreadyRunning)

	require.Eventually(t, func() bool { return obs.count() == 1 && clk.Pending() == 1 }, time.Second, time.Millisecond)
	assert.Equal(t, 1, docs.scans())

	clk.Advance(30 * time.Second)
	assert.Equal(t, 1, docs.scans())

	clk.Advance(30 * time.Second)
	require.Eventually(t, func() bool { return obs.count() == 2 && clk.Pending() == 1 }, time.Second, time.Millisecond)

	clk.Advance(time.Minute)
	require.Eventually(t, func() bool { return obs.count() == 3 }, time.Second, time.Millisecond)
	assert.Equal(t, 3, docs.scans())
}

func TestStopIsIdempotentAndAllowsRestart(t *testing.T) {
	clk := clock.NewManual(scanStart)
	obs := &recordingObserver{}
	s := NewScheduler(&fakeDocs{}, newFakeSubs(), &fakeSender{}, Options{
		Interval: time.Minute,
		Clock:    clk,
		Observer: obs,
	})

	s.Stop()
	require.NoError(t, s.Start(context.Background()))
	require.Eventually(t, func() bool { return obs.count() == 1 }, time.Second, time.Millisecond)
	s.Stop()
	s.Stop()

	require.NoError(t, s.Start(context.Background()))
	require.Eventually(t, func() bool { return obs.count() == 2 }, time.Second, time.Millisecond)
	s.Stop()
}

func TestRunOnceAgainstStorage(t *testing.T) {
	gdb := testutil.NewDB(t)
	ctx := context.Background()
	owner := testutil.CreateUser(t, gdb, "scan@example.com")

	docsRepo := repository.NewGormDocumentRepository(gdb)
	subsRepo := repository.NewGormSubscriptionRepository(gdb)

	seed := func(number string, expiresAt time.Time) {
		d := &model.Document{
			UserID:     owner.ID,
			Country:    "TH",
			Type:       "passport",
			Number:     number,
			IssueDate:  expiresAt.AddDate(-5, 0, 0),
			ExpiryDate: expiresAt,
			Status:     model.DocumentStatusValid,
		}
		require.NoError(t, docsRepo.Create(ctx, d))
	}
	seed("OLD", scanStart.AddDate(0, 0, -1))
	seed("SOON", scanStart.AddDate(0, 0, 10))
	seed("FAR", scanStart.AddDate(0, 0, 90))

	_, err := subsRepo.Upsert(ctx, owner.ID, "https://push/on", model.PushKeys{P256dh: "p", Auth: "a"})
	require.NoError(t, err)
	_, err = subsRepo.Upsert(ctx, owner.ID, "https://push/off", model.PushKeys{P256dh: "p", Auth: "a"})
	require.NoError(t, err)
	_, err = subsRepo.SetEnabled(ctx, owner.ID, "https://push/off", false)
	require.NoError(t, err)

	sender := &fakeSender{}
	s := NewScheduler(docsRepo, subsRepo, sender, Options{
		Policy: expiry.NewPolicy(30),
		Clock:  clock.NewManual(scanStart),
	})
	report, err := s.RunOnce(ctx)
	require.NoError(t, err)

	assert.Equal(t, 1, report.Expired)
	assert.Equal(t, 1, report.Expiring)
	require.Len(t, sender.sent, 2)
	for _, m := range sender.sent {
		assert.Equal(t, "https://push/on", m.endpoint)
	}
	assert.Equal(t, KindExpired, sender.sent[0].payload.Data.Kind)
	assert.Equal(t, KindExpiring, sender.sent[1].payload.Data.Kind)
}
