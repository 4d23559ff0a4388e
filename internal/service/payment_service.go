package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"gorm.io/gorm"
	"pkt.systems/pslog"

	"github.com/Leganyst/docwatch/internal/clock"
	"github.com/Leganyst/docwatch/internal/events"
	"github.com/Leganyst/docwatch/internal/expiry"
	"github.com/Leganyst/docwatch/internal/model"
	"github.com/Leganyst/docwatch/internal/payment"
	"github.com/Leganyst/docwatch/internal/repository"
)

// Payment verification outcomes, as reported to the PaymentObserver.
const (
	PaymentRecorded = "recorded"
	PaymentReplay   = "replay"
	PaymentRejected = "rejected"
	PaymentError    = "error"
)

type PaymentObserver interface {
	ObservePayment(outcome string)
}

// VerifyResult is the outcome of a verification. Replayed is set when the
// reference had already been recorded and nothing changed.
type VerifyResult struct {
	Payment  *model.Payment
	Document *model.Document
	Replayed bool
}

type PaymentService struct {
	gateway  payment.Gateway
	payments repository.PaymentRepository
	docs     repository.DocumentRepository
	policy   expiry.Policy
	clock    clock.Clock
	journal  *events.Journal
	observer PaymentObserver
	logger   pslog.Logger
}

type PaymentDeps struct {
	Gateway  payment.Gateway
	Payments repository.PaymentRepository
	Docs     repository.DocumentRepository
	Policy   expiry.Policy
	Clock    clock.Clock
	Journal  *events.Journal
	Observer PaymentObserver
	Logger   pslog.Logger
}

func NewPaymentService(d PaymentDeps) *PaymentService {
	if d.Gateway == nil {
		d.Gateway = payment.Unconfigured{}
	}
	if d.Clock == nil {
		d.Clock = clock.Real{}
	}
	if d.Logger == nil {
		d.Logger = pslog.NoopLogger()
	}
	return &PaymentService{
		gateway:  d.Gateway,
		payments: d.Payments,
		docs:     d.Docs,
		policy:   d.Policy,
		clock:    d.Clock,
		journal:  d.Journal,
		observer: d.Observer,
		logger:   d.Logger,
	}
}

// Verify confirms reference with the gateway and, the first time a successful
// reference is seen, records it and extends the document by one year.
// Verifying the same reference again succeeds without another extension.
func (s *PaymentService) Verify(ctx context.Context, owner uuid.UUID, reference string, documentID uuid.UUID) (res *VerifyResult, err error) {
	ctx, span := otel.Tracer("docwatch/payment").Start(ctx, "payment.verify")
	defer func() {
		outcome := PaymentError
		switch {
		case err == nil && res.Replayed:
			outcome = PaymentReplay
		case err == nil:
			outcome = PaymentRecorded
		case errors.Is(err, ErrValidation), errors.Is(err, ErrNotFound):
			outcome = PaymentRejected
		}
		span.SetAttributes(attribute.String("payment.outcome", outcome))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
		if s.observer != nil {
			s.observer.ObservePayment(outcome)
		}
	}()

	reference = strings.TrimSpace(reference)
	if reference == "" {
		return nil, invalid("reference is required")
	}
	if documentID == uuid.Nil {
		return nil, invalid("document id is required")
	}

	doc, err := s.docs.GetForUser(ctx, documentID, owner)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: document not found", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get document: %w", err)
	}

	tx, err := s.gateway.Verify(ctx, reference)
	if err != nil {
		s.logger.Warn("payment.gateway.failed", "reference", reference, "error", err)
		return nil, fmt.Errorf("%w: payment verification failed: %v", ErrUpstream, err)
	}
	if tx.Status != payment.StatusSuccess {
		if tx.FailureReason != "" {
			return nil, fmt.Errorf("%w: %w: %s", ErrValidation, payment.ErrNotSuccessful, tx.FailureReason)
		}
		return nil, fmt.Errorf("%w: %w", ErrValidation, payment.ErrNotSuccessful)
	}

	if _, err := s.payments.FindByReference(ctx, reference); err == nil {
		return s.replay(doc), nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("find payment: %w", err)
	}

	now := s.clock.Now()
	p := &model.Payment{
		UserID:        owner,
		DocumentID:    doc.ID,
		Amount:        tx.Amount,
		Currency:      strings.ToUpper(tx.Currency),
		Reference:     reference,
		TransactionID: tx.TransactionID,
		Status:        model.PaymentStatusSuccess,
		PaidAt:        now,
	}
	previous := doc.ExpiryDate
	extended, err := s.payments.RecordAndExtend(ctx, p, func(d *model.Document) {
		d.ExpiryDate = expiry.Extend(d.ExpiryDate, now)
		// a paid renewal is valid for a year whatever the reminder window
		d.Status = model.DocumentStatusValid
	})
	switch {
	case errors.Is(err, repository.ErrPaymentRecorded):
		if current, gerr := s.docs.GetForUser(ctx, doc.ID, owner); gerr == nil {
			doc = current
		}
		return s.replay(doc), nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, fmt.Errorf("%w: document not found", ErrNotFound)
	case err != nil:
		return nil, fmt.Errorf("record payment: %w", err)
	}

	s.logger.Info("payment.recorded",
		"reference", reference,
		"document_id", extended.ID.String(),
		"expiry_date", extended.ExpiryDate,
	)
	if s.journal != nil {
		s.journal.Record(ctx, model.EventTypePaymentRecorded, owner, p.ID, map[string]any{
			"reference":  reference,
			"documentId": extended.ID,
			"amount":     p.Amount,
			"currency":   p.Currency,
		})
		s.journal.Record(ctx, model.EventTypeDocumentExtended, owner, extended.ID, map[string]any{
			"reference": reference,
			"from":      previous,
			"to":        extended.ExpiryDate,
		})
	}
	return &VerifyResult{Payment: p, Document: extended}, nil
}

func (s *PaymentService) replay(doc *model.Document) *VerifyResult {
	s.policy.Apply(doc, s.clock.Now())
	return &VerifyResult{Document: doc, Replayed: true}
}
