package service

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"

	"github.com/Leganyst/docwatch/internal/events"
	"github.com/Leganyst/docwatch/internal/model"
	"github.com/Leganyst/docwatch/internal/repository"
)

type SubscriptionService struct {
	subs      repository.SubscriptionRepository
	publicKey string
	journal   *events.Journal
}

func NewSubscriptionService(subs repository.SubscriptionRepository, publicKey string, journal *events.Journal) *SubscriptionService {
	return &SubscriptionService{subs: subs, publicKey: publicKey, journal: journal}
}

// Subscribe stores a browser subscription. Subscribing an existing endpoint
// refreshes its keys and re-enables it.
func (s *SubscriptionService) Subscribe(ctx context.Context, owner uuid.UUID, endpoint string, keys model.PushKeys) (*model.PushSubscription, error) {
	endpoint = strings.TrimSpace(endpoint)
	if ok, reason := validateEndpoint(endpoint); !ok {
		return nil, invalid(reason)
	}
	if keys.P256dh == "" || keys.Auth == "" {
		return nil, invalid("keys.p256dh and keys.auth are required")
	}

	sub, err := s.subs.Upsert(ctx, owner, endpoint, keys)
	if err != nil {
		return nil, fmt.Errorf("save subscription: %w", err)
	}
	if s.journal != nil {
		s.journal.Record(ctx, model.EventTypeSubscriptionAdded, owner, sub.ID, map[string]any{"endpoint": endpoint})
	}
	return sub, nil
}

// OptIn enables delivery for endpoint, or for all of the owner's
// subscriptions when endpoint is empty. It returns the number of rows touched.
func (s *SubscriptionService) OptIn(ctx context.Context, owner uuid.UUID, endpoint string) (int64, error) {
	return s.setEnabled(ctx, owner, endpoint, true)
}

// OptOut is the inverse of OptIn. Subscriptions are kept.
func (s *SubscriptionService) OptOut(ctx context.Context, owner uuid.UUID, endpoint string) (int64, error) {
	return s.setEnabled(ctx, owner, endpoint, false)
}

func (s *SubscriptionService) setEnabled(ctx context.Context, owner uuid.UUID, endpoint string, enabled bool) (int64, error) {
	endpoint = strings.TrimSpace(endpoint)
	n, err := s.subs.SetEnabled(ctx, owner, endpoint, enabled)
	if err != nil {
		return 0, fmt.Errorf("update subscriptions: %w", err)
	}
	if endpoint != "" && n == 0 {
		return 0, fmt.Errorf("%w: subscription not found", ErrNotFound)
	}
	return n, nil
}

func (s *SubscriptionService) Unsubscribe(ctx context.Context, owner uuid.UUID, endpoint string) error {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return invalid("endpoint is required")
	}
	n, err := s.subs.Delete(ctx, owner, endpoint)
	if err != nil {
		return fmt.Errorf("delete subscription: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: subscription not found", ErrNotFound)
	}
	return nil
}

// PublicKey returns the VAPID application server key browsers subscribe with.
func (s *SubscriptionService) PublicKey() (string, error) {
	if s.publicKey == "" {
		return "", fmt.Errorf("%w: push notifications are not configured", ErrUpstream)
	}
	return s.publicKey, nil
}

func validateEndpoint(endpoint string) (bool, string) {
	if endpoint == "" {
		return false, "endpoint is required"
	}
	u, err := url.Parse(endpoint)
	if err != nil || u.Host == "" {
		return false, "endpoint must be an absolute URL"
	}
	if u.Scheme != "https" && u.Scheme != "http" {
		return false, "endpoint must be an http(s) URL"
	}
	return true, ""
}
