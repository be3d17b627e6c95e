package outbox_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mnemo-app/mnemo/internal/domain"
	"github.com/mnemo-app/mnemo/internal/outbox"
	"github.com/mnemo-app/mnemo/internal/platform/sqlite"
	"github.com/mnemo-app/mnemo/internal/store"
)

func newTestJournal(t *testing.T) *outbox.Journal {
	t.Helper()

	db, err := sqlite.Open(context.Background(), filepath.Join(t.TempDir(), "test.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	entries := sqlite.NewCollection[outbox.Entry](db.SQL(), store.CollectionSyncOutbox, nil)
	return outbox.NewJournal(entries, nil)
}

func TestNewEntry_Validation(t *testing.T) {
	t.Parallel()

	deck, err := domain.NewDeck(uuid.New(), "Geography", "")
	require.NoError(t, err)

	testCases := []struct {
		name        string
		collection  string
		entityID    string
		op          outbox.Operation
		expectedErr error
	}{
		{
			name:       "valid create",
			collection: store.CollectionDecks,
			entityID:   deck.ID.String(),
			op:         outbox.OpCreate,
		},
		{
			name:        "missing collection",
			collection:  "",
			entityID:    deck.ID.String(),
			op:          outbox.OpCreate,
			expectedErr: outbox.ErrEntryCollectionEmpty,
		},
		{
			name:        "missing entity id",
			collection:  store.CollectionDecks,
			entityID:    "",
			op:          outbox.OpUpdate,
			expectedErr: outbox.ErrEntryEntityIDEmpty,
		},
		{
			name:        "unknown operation",
			collection:  store.CollectionDecks,
			entityID:    deck.ID.String(),
			op:          outbox.Operation("upsert"),
			expectedErr: outbox.ErrInvalidOperation,
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			entry, err := outbox.NewEntry(tc.collection, tc.entityID, tc.op, deck)
			if tc.expectedErr != nil {
				assert.ErrorIs(t, err, tc.expectedErr)
				return
			}

			require.NoError(t, err)
			assert.NotEqual(t, uuid.Nil, entry.ID)
			assert.NotZero(t, entry.Seq)
			assert.NotEmpty(t, entry.Data)
			assert.Zero(t, entry.Retries)
		})
	}
}

func TestJournal_PendingPreservesInsertionOrder(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	journal := newTestJournal(t)

	var ids []uuid.UUID
	for i := 0; i < 5; i++ {
		entry, err := outbox.NewEntry(store.CollectionFlashcards, uuid.NewString(), outbox.OpCreate, map[string]string{"n": "x"})
		require.NoError(t, err)
		require.NoError(t, journal.Append(ctx, entry))
		ids = append(ids, entry.ID)
	}

	pending, err := journal.Pending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 5)

	for i, entry := range pending {
		assert.Equal(t, ids[i], entry.ID, "replay order must match insertion order")
	}
}

func TestJournal_RemoveIsIdempotent(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	journal := newTestJournal(t)

	entry, err := outbox.NewEntry(store.CollectionDecks, uuid.NewString(), outbox.OpDelete, nil)
	require.NoError(t, err)
	require.NoError(t, journal.Append(ctx, entry))

	require.NoError(t, journal.Remove(ctx, entry.ID))
	require.NoError(t, journal.Remove(ctx, entry.ID), "duplicate acknowledgment must not error")

	n, err := journal.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestJournal_BumpPersistsRetries(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	journal := newTestJournal(t)

	entry, err := outbox.NewEntry(store.CollectionCardProgress, uuid.NewString(), outbox.OpUpdate, map[string]int{"v": 1})
	require.NoError(t, err)
	require.NoError(t, journal.Append(ctx, entry))

	require.NoError(t, journal.Bump(ctx, entry))
	require.NoError(t, journal.Bump(ctx, entry))

	pending, err := journal.Pending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, 2, pending[0].Retries)
}

func TestJournal_EmptyDrain(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	journal := newTestJournal(t)

	pending, err := journal.Pending(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)

	n, err := journal.Len(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}
