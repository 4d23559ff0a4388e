package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"pkt.systems/pslog"

	"github.com/Leganyst/docwatch/internal/clock"
	"github.com/Leganyst/docwatch/internal/model"
	"github.com/Leganyst/docwatch/internal/repository"
)

// Journal records domain events in the audit table and forwards them to the
// broker. Failures are logged and never fail the operation that emitted them.
type Journal struct {
	repo   repository.EventRepository
	pub    Publisher
	clock  clock.Clock
	logger pslog.Logger
}

func NewJournal(repo repository.EventRepository, pub Publisher, clk clock.Clock, logger pslog.Logger) *Journal {
	if pub == nil {
		pub = Nop{}
	}
	if clk == nil {
		clk = clock.Real{}
	}
	if logger == nil {
		logger = pslog.NoopLogger()
	}
	return &Journal{repo: repo, pub: pub, clock: clk, logger: logger}
}

// Message is the broker payload.
type Message struct {
	ID       uuid.UUID       `json:"id"`
	Type     model.EventType `json:"type"`
	UserID   uuid.UUID       `json:"userId"`
	EntityID uuid.UUID       `json:"entityId"`
	Details  map[string]any  `json:"details,omitempty"`
	At       string          `json:"at"`
}

func (j *Journal) Record(ctx context.Context, typ model.EventType, userID, entityID uuid.UUID, details map[string]any) {
	raw, err := json.Marshal(details)
	if err != nil {
		j.logger.Warn("events.marshal_failed", "type", typ, "error", err)
		raw = []byte("{}")
	}
	ev := &model.Event{
		EventType: typ,
		CreatedAt: j.clock.Now(),
		UserID:    &userID,
		EntityID:  &entityID,
		Details:   datatypes.JSON(raw),
	}
	if err := j.repo.Append(ctx, ev); err != nil {
		j.logger.Warn("events.append_failed", "type", typ, "error", err)
	}

	msg := Message{
		ID:       ev.ID,
		Type:     typ,
		UserID:   userID,
		EntityID: entityID,
		Details:  details,
		At:       ev.CreatedAt.Format(time.RFC3339),
	}
	if err := j.pub.PublishJSON(ctx, string(typ), msg); err != nil {
		j.logger.Warn("events.publish_failed", "type", typ, "error", err)
	}
}
