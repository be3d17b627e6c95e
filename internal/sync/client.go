package sync

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/mnemo-app/mnemo/internal/domain"
	"github.com/mnemo-app/mnemo/internal/outbox"
)

// ChangeRequest is one outbox entry on the wire.
type ChangeRequest struct {
	OutboxID   uuid.UUID        `json:"outboxId"`
	Collection string           `json:"collection"`
	EntityID   string           `json:"entityId"`
	Operation  outbox.Operation `json:"operation"`
	Data       json.RawMessage  `json:"data,omitempty"`
	Timestamp  time.Time        `json:"timestamp"`
}

// PushRequest is the body of POST /sync/push.
type PushRequest struct {
	Changes []ChangeRequest `json:"changes"`
}

// PushResult is the server's verdict on one submitted change. Results are
// matched to entries by OutboxID; the server does not guarantee order.
// The server dedupes by outbox ID, so retransmitting an entry after a
// lost acknowledgment has no duplicate effect.
type PushResult struct {
	OutboxID      uuid.UUID       `json:"outboxId"`
	Success       bool            `json:"success"`
	Conflict      bool            `json:"conflict,omitempty"`
	ServerVersion int64           `json:"serverVersion,omitempty"`
	ServerData    json.RawMessage `json:"serverData,omitempty"`
}

// PushResponse is the body returned by POST /sync/push.
type PushResponse struct {
	Results    []PushResult `json:"results"`
	ServerTime time.Time    `json:"serverTime"`
}

// PullResponse is the body returned by GET /sync/pull. Records carry the
// server's current version and tombstone values.
type PullResponse struct {
	Decks        []*domain.Deck         `json:"decks"`
	Flashcards   []*domain.Flashcard    `json:"flashcards"`
	CardProgress []*domain.CardProgress `json:"cardProgress"`
	ServerTime   time.Time              `json:"serverTime"`
}

// Client is the transport boundary to the sync server. Implementations
// own their timeouts: a hung request must fail rather than stall the
// engine's state machine.
type Client interface {
	// Push submits pending changes in one batch. A returned error means
	// the whole batch may or may not have been received; callers treat it
	// as a transport failure for every entry.
	Push(ctx context.Context, changes []ChangeRequest) (*PushResponse, error)

	// Pull requests all entity changes since the given watermark.
	// A zero since requests the full dataset.
	Pull(ctx context.Context, since time.Time) (*PullResponse, error)

	// Ping probes connectivity without side effects.
	Ping(ctx context.Context) error
}
