package store

import (
	"context"
	"database/sql"
)

// DBTX is an interface that abstracts the database access layer.
// It is implemented by both *sql.DB and *sql.Tx, allowing collection
// implementations to work with either a database connection or a
// transaction.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Names of the collections the data layer persists.
const (
	CollectionDecks         = "decks"
	CollectionFlashcards    = "flashcards"
	CollectionCardProgress  = "card_progress"
	CollectionSyncOutbox    = "sync_outbox"
	CollectionSyncMetadata  = "sync_metadata"
	CollectionUsers         = "users"
	CollectionStudySessions = "study_sessions"
)
