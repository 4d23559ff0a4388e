package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Leganyst/docwatch/internal/clock"
	"github.com/Leganyst/docwatch/internal/events"
	"github.com/Leganyst/docwatch/internal/expiry"
	"github.com/Leganyst/docwatch/internal/model"
	"github.com/Leganyst/docwatch/internal/paging"
	"github.com/Leganyst/docwatch/internal/repository"
)

type DocumentInput struct {
	Country    string
	Type       string
	Number     string
	IssueDate  time.Time
	ExpiryDate time.Time
}

// DocumentPatch carries the fields an update may change. Nil fields are kept.
type DocumentPatch struct {
	Country    *string
	Type       *string
	Number     *string
	IssueDate  *time.Time
	ExpiryDate *time.Time
}

type DocumentService struct {
	docs    repository.DocumentRepository
	policy  expiry.Policy
	clock   clock.Clock
	journal *events.Journal
}

func NewDocumentService(
	docs repository.DocumentRepository,
	policy expiry.Policy,
	clk clock.Clock,
	journal *events.Journal,
) *DocumentService {
	if clk == nil {
		clk = clock.Real{}
	}
	return &DocumentService{docs: docs, policy: policy, clock: clk, journal: journal}
}

// List returns the owner's documents soonest-expiring first. Status is
// re-derived for the response; stored rows are not touched.
func (s *DocumentService) List(ctx context.Context, owner uuid.UUID, page, limit int) (paging.Page[model.Document], error) {
	req := paging.Normalize(page, limit)
	docs, total, err := s.docs.ListByUser(ctx, owner, req.Limit, req.Offset())
	if err != nil {
		return paging.Page[model.Document]{}, fmt.Errorf("list documents: %w", err)
	}
	now := s.clock.Now()
	for i := range docs {
		s.policy.Apply(&docs[i], now)
	}
	return paging.New(docs, req, total), nil
}

func (s *DocumentService) Create(ctx context.Context, owner uuid.UUID, in DocumentInput) (*model.Document, error) {
	doc := &model.Document{
		UserID:     owner,
		Country:    strings.TrimSpace(in.Country),
		Type:       strings.TrimSpace(in.Type),
		Number:     strings.TrimSpace(in.Number),
		IssueDate:  in.IssueDate.UTC(),
		ExpiryDate: in.ExpiryDate.UTC(),
	}
	if ok, reason := validateDocument(doc); !ok {
		return nil, invalid(reason)
	}
	s.policy.Apply(doc, s.clock.Now())

	if err := s.docs.Create(ctx, doc); err != nil {
		return nil, fmt.Errorf("create document: %w", err)
	}
	s.record(ctx, model.EventTypeDocumentCreated, doc)
	return doc, nil
}

func (s *DocumentService) Update(ctx context.Context, owner, id uuid.UUID, patch DocumentPatch) (*model.Document, error) {
	doc, err := s.docs.GetForUser(ctx, id, owner)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: document not found", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get document: %w", err)
	}

	if patch.Country != nil {
		doc.Country = strings.TrimSpace(*patch.Country)
	}
	if patch.Type != nil {
		doc.Type = strings.TrimSpace(*patch.Type)
	}
	if patch.Number != nil {
		doc.Number = strings.TrimSpace(*patch.Number)
	}
	if patch.IssueDate != nil {
		doc.IssueDate = patch.IssueDate.UTC()
	}
	if patch.ExpiryDate != nil {
		doc.ExpiryDate = patch.ExpiryDate.UTC()
	}
	if ok, reason := validateDocument(doc); !ok {
		return nil, invalid(reason)
	}
	s.policy.Apply(doc, s.clock.Now())

	if err := s.docs.Save(ctx, doc); err != nil {
		return nil, fmt.Errorf("save document: %w", err)
	}
	return doc, nil
}

func (s *DocumentService) Delete(ctx context.Context, owner, id uuid.UUID) error {
	n, err := s.docs.DeleteForUser(ctx, id, owner)
	if errors.Is(err, gorm.ErrForeignKeyViolated) {
		return fmt.Errorf("%w: document has recorded payments", ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: document not found", ErrNotFound)
	}
	s.record(ctx, model.EventTypeDocumentDeleted, &model.Document{ID: id, UserID: owner})
	return nil
}

func (s *DocumentService) record(ctx context.Context, typ model.EventType, doc *model.Document) {
	if s.journal == nil {
		return
	}
	details := map[string]any{}
	if doc.Type != "" {
		details["type"] = doc.Type
		details["expiryDate"] = doc.ExpiryDate.Format(time.RFC3339)
		details["status"] = doc.Status
	}
	s.journal.Record(ctx, typ, doc.UserID, doc.ID, details)
}

// validateDocument returns (ok, reason).
func validateDocument(doc *model.Document) (bool, string) {
	switch {
	case doc.Country == "":
		return false, "country is required"
	case doc.Type == "":
		return false, "type is required"
	case doc.Number == "":
		return false, "number is required"
	case doc.IssueDate.IsZero():
		return false, "issue date is required"
	case doc.ExpiryDate.IsZero():
		return false, "expiry date is required"
	case doc.ExpiryDate.Before(doc.IssueDate):
		return false, "expiry date must not be before issue date"
	}
	return true, ""
}
