package notify

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/Leganyst/docwatch/internal/model"
)

type Kind string

const (
	KindExpired  Kind = "expired"
	KindExpiring Kind = "expiring"
)

// expiryLayout renders dates like "Sun Jun 01 2025".
const expiryLayout = "Mon Jan 02 2006"

type Payload struct {
	Title string      `json:"title"`
	Body  string      `json:"body"`
	Data  PayloadData `json:"data"`
}

type PayloadData struct {
	DocumentID uuid.UUID `json:"documentId"`
	Kind       Kind      `json:"kind"`
	ExpiryDate string    `json:"expiryDate"`
}

// BuildPayload renders the notification for doc.
func BuildPayload(doc model.Document, kind Kind) Payload {
	p := Payload{
		Data: PayloadData{
			DocumentID: doc.ID,
			Kind:       kind,
			ExpiryDate: doc.ExpiryDate.UTC().Format("2006-01-02"),
		},
	}
	switch kind {
	case KindExpired:
		p.Title = "Document Expired"
		p.Body = fmt.Sprintf("Your %s (%s) has expired. Renew it to keep it valid.", doc.Type, doc.Number)
	default:
		p.Title = "Document Expiring Soon"
		p.Body = fmt.Sprintf("Your %s (%s) expires on %s.", doc.Type, doc.Number, doc.ExpiryDate.UTC().Format(expiryLayout))
	}
	return p
}

func (p Payload) Encode() ([]byte, error) {
	return json.Marshal(p)
}
