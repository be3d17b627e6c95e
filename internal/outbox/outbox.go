// Package outbox implements the append-only journal of pending local
// mutations. Every local write to a syncable entity appends an entry
// here inside the same transaction that writes the entity, so a crash
// can never persist a mutation without its journal record. The sync
// engine replays entries to the server in insertion order and removes
// them only on confirmed success or a confirmed server-side conflict.
package outbox

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/mnemo-app/mnemo/internal/domain"
	"github.com/mnemo-app/mnemo/internal/store"
)

// Operation is the kind of mutation an entry records.
type Operation string

// Possible operations
const (
	OpCreate Operation = "create"
	OpUpdate Operation = "update"
	OpDelete Operation = "delete"
)

// Entry validation errors
var (
	// ErrEntryCollectionEmpty is returned when an entry names no collection.
	ErrEntryCollectionEmpty = errors.New("outbox entry collection cannot be empty")

	// ErrEntryEntityIDEmpty is returned when an entry names no entity.
	ErrEntryEntityIDEmpty = errors.New("outbox entry entity ID cannot be empty")

	// ErrInvalidOperation is returned for an operation outside create/update/delete.
	ErrInvalidOperation = errors.New("outbox entry operation must be create, update, or delete")
)

// Entry is one not-yet-confirmed local mutation. Seq fixes the replay
// order (insertion order); Timestamp is the wall-clock time the mutation
// happened and is what the server sees.
type Entry struct {
	ID         uuid.UUID       `json:"id"`
	Collection string          `json:"collection"`
	EntityID   string          `json:"entityId"`
	Operation  Operation       `json:"operation"`
	Data       json.RawMessage `json:"data,omitempty"`
	Timestamp  time.Time       `json:"timestamp"`
	Seq        int64           `json:"seq"`
	Retries    int             `json:"retries"`
}

// NewEntry records a mutation against an entity. For create and update
// operations payload is the full entity; for deletes it may be nil.
func NewEntry(collection, entityID string, op Operation, payload any) (*Entry, error) {
	entry := &Entry{
		ID:         uuid.New(),
		Collection: collection,
		EntityID:   entityID,
		Operation:  op,
		Timestamp:  domain.NowUTC(),
		Seq:        time.Now().UnixNano(),
	}

	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal outbox payload: %w", err)
		}
		entry.Data = data
	}

	if err := entry.Validate(); err != nil {
		return nil, err
	}

	return entry, nil
}

// Validate checks if the Entry has valid data.
func (e *Entry) Validate() error {
	if e.Collection == "" {
		return ErrEntryCollectionEmpty
	}

	if e.EntityID == "" {
		return ErrEntryEntityIDEmpty
	}

	switch e.Operation {
	case OpCreate, OpUpdate, OpDelete:
	default:
		return ErrInvalidOperation
	}

	return nil
}

// Journal is the durable queue of pending entries, backed by the
// sync_outbox collection.
type Journal struct {
	entries store.Collection[Entry]
	logger  *slog.Logger
}

// NewJournal creates a journal over the given collection.
func NewJournal(entries store.Collection[Entry], logger *slog.Logger) *Journal {
	if logger == nil {
		logger = slog.Default()
	}
	return &Journal{
		entries: entries,
		logger:  logger.With(slog.String("component", "outbox")),
	}
}

// WithTx returns a journal view bound to the given transaction. Use it
// inside store.RunInTransaction so the entity write and the journal
// append commit together.
func (j *Journal) WithTx(tx *sql.Tx) *Journal {
	return &Journal{entries: j.entries.WithTx(tx), logger: j.logger}
}

// Append adds an entry to the journal.
func (j *Journal) Append(ctx context.Context, entry *Entry) error {
	if err := entry.Validate(); err != nil {
		return err
	}
	return j.entries.Put(ctx, entry.ID.String(), entry)
}

// Pending returns all queued entries in replay order.
func (j *Journal) Pending(ctx context.Context) ([]*Entry, error) {
	return j.entries.Scan(ctx, store.Query{
		OrderBy: []string{"seq"},
	})
}

// Len reports the number of queued entries.
func (j *Journal) Len(ctx context.Context) (int, error) {
	return j.entries.Count(ctx)
}

// Remove deletes an entry, either because the server confirmed it or
// because it was abandoned. Removing an already-removed entry is not an
// error; a duplicate server acknowledgment must stay idempotent.
func (j *Journal) Remove(ctx context.Context, id uuid.UUID) error {
	err := j.entries.Delete(ctx, id.String())
	if err != nil && !store.IsNotFound(err) {
		return err
	}
	return nil
}

// Bump increments an entry's retry counter after a transient failure.
func (j *Journal) Bump(ctx context.Context, entry *Entry) error {
	entry.Retries++
	return j.entries.Put(ctx, entry.ID.String(), entry)
}
