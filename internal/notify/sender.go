package notify

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	webpush "github.com/SherClockHolmes/webpush-go"

	"github.com/Leganyst/docwatch/internal/model"
)

// Sender delivers one payload to one subscription.
type Sender interface {
	Send(ctx context.Context, sub model.PushSubscription, payload []byte) error
}

// StatusError is returned when the push service answers with a non-2xx code.
// 404 and 410 mean the subscription is gone.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("push service responded %d: %s", e.Code, e.Body)
}

func (e *StatusError) Gone() bool {
	return e.Code == http.StatusNotFound || e.Code == http.StatusGone
}

// WebPushSender sends VAPID-signed Web Push messages.
type WebPushSender struct {
	PublicKey  string
	PrivateKey string
	Subject    string
	TTL        int
	HTTP       *http.Client
}

func NewWebPushSender(publicKey, privateKey, subject string) *WebPushSender {
	return &WebPushSender{
		PublicKey:  publicKey,
		PrivateKey: privateKey,
		Subject:    subject,
		TTL:        24 * 60 * 60,
		HTTP:       &http.Client{Timeout: 15 * time.Second},
	}
}

func (s *WebPushSender) Send(ctx context.Context, sub model.PushSubscription, payload []byte) error {
	keys := sub.Keys.Data()
	resp, err := webpush.SendNotificationWithContext(ctx, payload, &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			Auth:   keys.Auth,
			P256dh: keys.P256dh,
		},
	}, &webpush.Options{
		HTTPClient:      s.HTTP,
		Subscriber:      s.Subject,
		VAPIDPublicKey:  s.PublicKey,
		VAPIDPrivateKey: s.PrivateKey,
		TTL:             s.TTL,
	})
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &StatusError{Code: resp.StatusCode, Body: string(body)}
	}
	return nil
}

// GenerateVAPIDKeys returns a fresh (public, private) key pair.
func GenerateVAPIDKeys() (string, string, error) {
	private, public, err := webpush.GenerateVAPIDKeys()
	if err != nil {
		return "", "", err
	}
	return public, private, nil
}
