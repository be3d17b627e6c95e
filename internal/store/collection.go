package store

import (
	"context"
	"database/sql"
)

// Collection is a typed document collection keyed by an opaque string ID.
// Each named collection is parameterized with its record type at compile
// time, so callers never handle untyped maps.
//
// All methods return ErrStorageUnavailable (possibly wrapped) when the
// underlying medium cannot be reached, and ErrNotFound where documented.
type Collection[T any] interface {
	// Get retrieves the record stored under id.
	// Returns ErrNotFound if no record exists.
	Get(ctx context.Context, id string) (*T, error)

	// Put stores the record under id, replacing any existing record.
	Put(ctx context.Context, id string, record *T) error

	// Delete physically removes the record stored under id.
	// Returns ErrNotFound if no record exists. Syncable entities are
	// normally tombstoned via Put instead; Delete is reserved for
	// tombstone garbage collection and truly local data.
	Delete(ctx context.Context, id string) error

	// Scan returns all records matching the query, in query order.
	Scan(ctx context.Context, q Query) ([]*T, error)

	// Count returns the number of records matching the predicates.
	Count(ctx context.Context, preds ...Predicate) (int, error)

	// WithTx returns a Collection view that runs every operation on the
	// provided transaction. Use with RunInTransaction so that multi-record
	// writes commit or roll back as one unit.
	WithTx(tx *sql.Tx) Collection[T]
}
