package sqlite_test

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mnemo-app/mnemo/internal/domain"
	"github.com/mnemo-app/mnemo/internal/platform/sqlite"
	"github.com/mnemo-app/mnemo/internal/store"
)

func openTestDB(t *testing.T) *sqlite.DB {
	t.Helper()

	db, err := sqlite.Open(context.Background(), filepath.Join(t.TempDir(), "test.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return db
}

func newTestDeck(t *testing.T, userID uuid.UUID, title string) *domain.Deck {
	t.Helper()

	deck, err := domain.NewDeck(userID, title, "")
	require.NoError(t, err)
	return deck
}

func TestOpen_Concurrent(t *testing.T) {
	t.Parallel()

	// Each open runs migrations; they share goose's package state and
	// must not trip the race detector or corrupt either schema.
	const n = 4
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		dir := t.TempDir()
		go func() {
			db, err := sqlite.Open(context.Background(), filepath.Join(dir, "test.db"), nil)
			if err == nil {
				err = db.Close()
			}
			errs <- err
		}()
	}
	for i := 0; i < n; i++ {
		require.NoError(t, <-errs)
	}
}

func TestCollection_PutGetDelete(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db := openTestDB(t)
	decks := sqlite.NewCollection[domain.Deck](db.SQL(), store.CollectionDecks, nil)

	deck := newTestDeck(t, uuid.New(), "Spanish Vocabulary")

	require.NoError(t, decks.Put(ctx, deck.ID.String(), deck))

	got, err := decks.Get(ctx, deck.ID.String())
	require.NoError(t, err)
	assert.Equal(t, deck.ID, got.ID)
	assert.Equal(t, deck.Title, got.Title)
	assert.True(t, deck.CreatedAt.Equal(got.CreatedAt), "timestamps must survive the roundtrip")

	// Put replaces the stored record.
	deck.Title = "Spanish Vocabulary B1"
	deck.Version = 2
	require.NoError(t, decks.Put(ctx, deck.ID.String(), deck))

	got, err = decks.Get(ctx, deck.ID.String())
	require.NoError(t, err)
	assert.Equal(t, "Spanish Vocabulary B1", got.Title)
	assert.Equal(t, int64(2), got.Version)

	require.NoError(t, decks.Delete(ctx, deck.ID.String()))

	_, err = decks.Get(ctx, deck.ID.String())
	assert.ErrorIs(t, err, store.ErrNotFound)

	err = decks.Delete(ctx, deck.ID.String())
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestCollection_GetMissing(t *testing.T) {
	t.Parallel()

	db := openTestDB(t)
	decks := sqlite.NewCollection[domain.Deck](db.SQL(), store.CollectionDecks, nil)

	_, err := decks.Get(context.Background(), uuid.NewString())
	assert.True(t, store.IsNotFound(err))
}

func TestCollection_ScanPredicates(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db := openTestDB(t)
	decks := sqlite.NewCollection[domain.Deck](db.SQL(), store.CollectionDecks, nil)

	owner := uuid.New()
	other := uuid.New()

	base := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)
	titles := []string{"Anatomy", "Botany", "Chemistry"}
	for i, title := range titles {
		deck := newTestDeck(t, owner, title)
		deck.CreatedAt = base.AddDate(0, 0, i)
		require.NoError(t, decks.Put(ctx, deck.ID.String(), deck))
	}

	stranger := newTestDeck(t, other, "Zoology")
	require.NoError(t, decks.Put(ctx, stranger.ID.String(), stranger))

	deleted := newTestDeck(t, owner, "Deleted")
	deleted.Tombstone = true
	require.NoError(t, decks.Put(ctx, deleted.ID.String(), deleted))

	t.Run("equality on owner", func(t *testing.T) {
		t.Parallel()

		got, err := decks.Scan(ctx, store.Query{
			Where: []store.Predicate{store.Eq("userId", owner)},
		})
		require.NoError(t, err)
		assert.Len(t, got, 4)
	})

	t.Run("boolean tombstone filter", func(t *testing.T) {
		t.Parallel()

		got, err := decks.Scan(ctx, store.Query{
			Where: []store.Predicate{
				store.Eq("userId", owner),
				store.Eq("tombstone", false),
			},
		})
		require.NoError(t, err)
		assert.Len(t, got, 3)
	})

	t.Run("time range", func(t *testing.T) {
		t.Parallel()

		got, err := decks.Scan(ctx, store.Query{
			Where: []store.Predicate{
				store.Eq("userId", owner),
				store.Lte("createdAt", base.AddDate(0, 0, 1)),
				store.Eq("tombstone", false),
			},
		})
		require.NoError(t, err)
		assert.Len(t, got, 2, "only Anatomy and Botany were created by then")
	})

	t.Run("in set", func(t *testing.T) {
		t.Parallel()

		got, err := decks.Scan(ctx, store.Query{
			Where: []store.Predicate{store.In("title", "Anatomy", "Chemistry")},
		})
		require.NoError(t, err)
		assert.Len(t, got, 2)
	})

	t.Run("empty in set matches nothing", func(t *testing.T) {
		t.Parallel()

		got, err := decks.Scan(ctx, store.Query{
			Where: []store.Predicate{store.In("title")},
		})
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("order limit offset", func(t *testing.T) {
		t.Parallel()

		got, err := decks.Scan(ctx, store.Query{
			Where: []store.Predicate{
				store.Eq("userId", owner),
				store.Eq("tombstone", false),
			},
			OrderBy: []string{"title"},
			Desc:    true,
			Limit:   2,
			Offset:  1,
		})
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "Botany", got[0].Title)
		assert.Equal(t, "Anatomy", got[1].Title)
	})

	t.Run("invalid field rejected", func(t *testing.T) {
		t.Parallel()

		_, err := decks.Scan(ctx, store.Query{
			Where: []store.Predicate{store.Eq("title'; DROP TABLE decks;--", "x")},
		})
		assert.ErrorIs(t, err, store.ErrInvalidQuery)
	})
}

func TestCollection_Count(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db := openTestDB(t)
	decks := sqlite.NewCollection[domain.Deck](db.SQL(), store.CollectionDecks, nil)

	owner := uuid.New()
	for _, title := range []string{"One", "Two", "Three"} {
		deck := newTestDeck(t, owner, title)
		require.NoError(t, decks.Put(ctx, deck.ID.String(), deck))
	}

	count, err := decks.Count(ctx, store.Eq("userId", owner))
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	count, err = decks.Count(ctx, store.Eq("userId", uuid.New()))
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestCollection_TransactionAtomicity(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db := openTestDB(t)
	decks := sqlite.NewCollection[domain.Deck](db.SQL(), store.CollectionDecks, nil)

	owner := uuid.New()
	first := newTestDeck(t, owner, "First")
	second := newTestDeck(t, owner, "Second")

	// A failing function rolls back every write inside it.
	sentinel := errors.New("boom")
	err := store.RunInTransaction(ctx, db.SQL(), func(ctx context.Context, tx *sql.Tx) error {
		if err := decks.WithTx(tx).Put(ctx, first.ID.String(), first); err != nil {
			return err
		}
		return sentinel
	})
	assert.ErrorIs(t, err, sentinel)

	count, err := decks.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count, "rolled back write must not be visible")

	// A clean function commits all of them.
	err = store.RunInTransaction(ctx, db.SQL(), func(ctx context.Context, tx *sql.Tx) error {
		view := decks.WithTx(tx)
		if err := view.Put(ctx, first.ID.String(), first); err != nil {
			return err
		}
		return view.Put(ctx, second.ID.String(), second)
	})
	require.NoError(t, err)

	count, err = decks.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestDB_SchemaVersion(t *testing.T) {
	t.Parallel()

	db := openTestDB(t)

	version, err := db.SchemaVersion()
	require.NoError(t, err)
	assert.GreaterOrEqual(t, version, int64(2), "both migrations must have applied")
}
