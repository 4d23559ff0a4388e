package httpapi

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Leganyst/docwatch/internal/model"
)

type userDTO struct {
	ID        uuid.UUID `json:"id"`
	FullName  string    `json:"fullName"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone,omitempty"`
	Country   string    `json:"country,omitempty"`
	Provider  string    `json:"provider"`
	CreatedAt time.Time `json:"createdAt"`
}

func toUserDTO(u *model.User) userDTO {
	return userDTO{
		ID:        u.ID,
		FullName:  u.FullName,
		Email:     u.Email,
		Phone:     u.Phone,
		Country:   u.Country,
		Provider:  string(u.Provider),
		CreatedAt: u.CreatedAt,
	}
}

type documentDTO struct {
	ID         uuid.UUID `json:"id"`
	Country    string    `json:"country"`
	Type       string    `json:"type"`
	Number     string    `json:"number"`
	IssueDate  time.Time `json:"issueDate"`
	ExpiryDate time.Time `json:"expiryDate"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

func toDocumentDTO(d model.Document) documentDTO {
	return documentDTO{
		ID:         d.ID,
		Country:    d.Country,
		Type:       d.Type,
		Number:     d.Number,
		IssueDate:  d.IssueDate,
		ExpiryDate: d.ExpiryDate,
		Status:     string(d.Status),
		CreatedAt:  d.CreatedAt,
		UpdatedAt:  d.UpdatedAt,
	}
}

type bookingDTO struct {
	ID          uuid.UUID  `json:"id"`
	Date        string     `json:"date"`
	StartTime   string     `json:"startTime"`
	LessonType  string     `json:"lessonType"`
	Status      string     `json:"status"`
	Notes       string     `json:"notes,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	CancelledAt *time.Time `json:"cancelledAt,omitempty"`
}

func toBookingDTO(b model.Booking) bookingDTO {
	return bookingDTO{
		ID:          b.ID,
		Date:        b.Date,
		StartTime:   b.StartTime,
		LessonType:  string(b.LessonType),
		Status:      string(b.Status),
		Notes:       b.Notes,
		CreatedAt:   b.CreatedAt,
		CancelledAt: b.CancelledAt,
	}
}

type paymentDTO struct {
	ID            uuid.UUID `json:"id"`
	DocumentID    uuid.UUID `json:"documentId"`
	Amount        int64     `json:"amount"`
	Currency      string    `json:"currency"`
	Reference     string    `json:"reference"`
	TransactionID string    `json:"transactionId,omitempty"`
	Status        string    `json:"status"`
	PaidAt        time.Time `json:"paidAt"`
}

func toPaymentDTO(p *model.Payment) *paymentDTO {
	if p == nil {
		return nil
	}
	return &paymentDTO{
		ID:            p.ID,
		DocumentID:    p.DocumentID,
		Amount:        p.Amount,
		Currency:      p.Currency,
		Reference:     p.Reference,
		TransactionID: p.TransactionID,
		Status:        string(p.Status),
		PaidAt:        p.PaidAt,
	}
}

type subscriptionDTO struct {
	ID        uuid.UUID `json:"id"`
	Endpoint  string    `json:"endpoint"`
	Enabled   bool      `json:"enabled"`
	CreatedAt time.Time `json:"createdAt"`
}

func toSubscriptionDTO(s *model.PushSubscription) subscriptionDTO {
	return subscriptionDTO{ID: s.ID, Endpoint: s.Endpoint, Enabled: s.Enabled, CreatedAt: s.CreatedAt}
}

// dateLayouts are the accepted forms of document dates.
var dateLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"}

// parseDate reads an RFC 3339 timestamp or a plain date (midnight UTC).
func parseDate(field, raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%s must be a date (YYYY-MM-DD) or RFC 3339 timestamp", field)
}
