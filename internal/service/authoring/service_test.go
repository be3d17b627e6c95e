package authoring_test

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mnemo-app/mnemo/internal/domain"
	"github.com/mnemo-app/mnemo/internal/generation"
	"github.com/mnemo-app/mnemo/internal/outbox"
	"github.com/mnemo-app/mnemo/internal/platform/sqlite"
	"github.com/mnemo-app/mnemo/internal/service/authoring"
	"github.com/mnemo-app/mnemo/internal/store"
)

// fakeGenerator scripts generator behavior per test.
type fakeGenerator struct {
	drafts     []generation.CardDraft
	err        error
	lastSource string
	lastCount  int
}

func (g *fakeGenerator) GenerateCards(_ context.Context, sourceText string, count int) ([]generation.CardDraft, error) {
	g.lastSource = sourceText
	g.lastCount = count
	if g.err != nil {
		return nil, g.err
	}
	return g.drafts, nil
}

type fixture struct {
	svc      authoring.Service
	db       *sqlite.DB
	decks    store.Collection[domain.Deck]
	cards    store.Collection[domain.Flashcard]
	journal  *outbox.Journal
	gen      *fakeGenerator
	notified int
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db, err := sqlite.Open(context.Background(), filepath.Join(t.TempDir(), "test.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	f := &fixture{
		db:    db,
		decks: sqlite.NewCollection[domain.Deck](db.SQL(), store.CollectionDecks, nil),
		cards: sqlite.NewCollection[domain.Flashcard](db.SQL(), store.CollectionFlashcards, nil),
		gen:   &fakeGenerator{},
	}
	entries := sqlite.NewCollection[outbox.Entry](db.SQL(), store.CollectionSyncOutbox, nil)
	f.journal = outbox.NewJournal(entries, nil)

	f.svc = authoring.NewService(db.SQL(), f.decks, f.cards, f.journal, f.gen, nil, func() { f.notified++ })
	return f
}

func (f *fixture) createDeck(t *testing.T) *domain.Deck {
	t.Helper()

	deck, err := f.svc.CreateDeck(context.Background(), uuid.New(), "World Capitals", "geography drills")
	require.NoError(t, err)
	return deck
}

func TestCreateDeck(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t)

	deck := f.createDeck(t)
	assert.Equal(t, int64(1), deck.Version)
	assert.False(t, deck.Tombstone)

	stored, err := f.decks.Get(ctx, deck.ID.String())
	require.NoError(t, err)
	assert.Equal(t, deck.Title, stored.Title)

	pending, err := f.journal.Pending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, store.CollectionDecks, pending[0].Collection)
	assert.Equal(t, outbox.OpCreate, pending[0].Operation)
	assert.Equal(t, deck.ID.String(), pending[0].EntityID)
	assert.Equal(t, 1, f.notified)

	// The entry payload is the full entity.
	var payload domain.Deck
	require.NoError(t, json.Unmarshal(pending[0].Data, &payload))
	assert.Equal(t, deck.ID, payload.ID)

	_, err = f.svc.CreateDeck(ctx, uuid.New(), "", "no title")
	assert.Error(t, err)
}

func TestCreateCard(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t)
	deck := f.createDeck(t)

	card, err := f.svc.CreateCard(ctx, deck.ID, authoring.CardInput{
		Front: "capital of Peru?",
		Back:  "Lima",
		Tags:  []string{"geography"},
	}, domain.CardSourceManual)
	require.NoError(t, err)
	assert.Equal(t, domain.CardSourceManual, card.Source)

	// Unknown deck is rejected before anything is written.
	_, err = f.svc.CreateCard(ctx, uuid.New(), authoring.CardInput{Front: "f", Back: "b"}, domain.CardSourceManual)
	assert.ErrorIs(t, err, authoring.ErrDeckNotFound)

	pending, err := f.journal.Pending(ctx)
	require.NoError(t, err)
	assert.Len(t, pending, 2, "one for the deck, one for the card")
}

func TestUpdateCard_BumpsVersion(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t)
	deck := f.createDeck(t)

	card, err := f.svc.CreateCard(ctx, deck.ID, authoring.CardInput{Front: "old front", Back: "old back"}, domain.CardSourceManual)
	require.NoError(t, err)

	updated, err := f.svc.UpdateCard(ctx, card.ID, authoring.CardInput{Front: "new front", Back: "new back"})
	require.NoError(t, err)
	assert.Equal(t, "new front", updated.Front)
	assert.Equal(t, card.Version+1, updated.Version)

	_, err = f.svc.UpdateCard(ctx, uuid.New(), authoring.CardInput{Front: "f", Back: "b"})
	assert.ErrorIs(t, err, authoring.ErrCardNotFound)
}

func TestDeleteCard_Tombstones(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t)
	deck := f.createDeck(t)

	card, err := f.svc.CreateCard(ctx, deck.ID, authoring.CardInput{Front: "f", Back: "b"}, domain.CardSourceManual)
	require.NoError(t, err)

	require.NoError(t, f.svc.DeleteCard(ctx, card.ID))

	// The record stays in the store, marked deleted, so sync can
	// propagate the removal.
	stored, err := f.cards.Get(ctx, card.ID.String())
	require.NoError(t, err)
	assert.True(t, stored.Tombstone)
	assert.Equal(t, card.Version+1, stored.Version)

	// Deleting again is a no-op, not an error.
	countBefore, err := f.journal.Len(ctx)
	require.NoError(t, err)
	require.NoError(t, f.svc.DeleteCard(ctx, card.ID))
	countAfter, err := f.journal.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, countBefore, countAfter)

	// Tombstoned cards cannot be edited.
	_, err = f.svc.UpdateCard(ctx, card.ID, authoring.CardInput{Front: "f2", Back: "b2"})
	assert.ErrorIs(t, err, authoring.ErrCardNotFound)

	err = f.svc.DeleteCard(ctx, uuid.New())
	assert.ErrorIs(t, err, authoring.ErrCardNotFound)
}

func TestImportCards_WholeBatchOrNothing(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t)
	deck := f.createDeck(t)

	cards, err := f.svc.ImportCards(ctx, deck.ID, []authoring.CardInput{
		{Front: "1+1", Back: "2"},
		{Front: "2+2", Back: "4"},
		{Front: "3+3", Back: "6"},
	})
	require.NoError(t, err)
	require.Len(t, cards, 3)
	for _, card := range cards {
		assert.Equal(t, domain.CardSourceImport, card.Source)
	}

	count, err := f.cards.Count(ctx, store.Eq("deckId", deck.ID))
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	// An invalid row poisons the whole batch.
	_, err = f.svc.ImportCards(ctx, deck.ID, []authoring.CardInput{
		{Front: "4+4", Back: "8"},
		{Front: "", Back: "missing front"},
	})
	require.Error(t, err)

	count, err = f.cards.Count(ctx, store.Eq("deckId", deck.ID))
	require.NoError(t, err)
	assert.Equal(t, 3, count, "nothing from the failed batch may persist")

	_, err = f.svc.ImportCards(ctx, deck.ID, nil)
	assert.ErrorIs(t, err, authoring.ErrNothingToImport)
}

func TestGenerateCards(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t)
	deck := f.createDeck(t)
	f.notified = 0

	f.gen.drafts = []generation.CardDraft{
		{Front: "What organelle produces ATP?", Back: "The mitochondria", Tags: []string{"bio"}, Difficulty: domain.DifficultyEasy},
		{Front: "What is the cell membrane made of?", Back: "A phospholipid bilayer"},
	}

	cards, err := f.svc.GenerateCards(ctx, deck.ID, "cell biology notes", 5)
	require.NoError(t, err)
	require.Len(t, cards, 2)
	assert.Equal(t, "cell biology notes", f.gen.lastSource)
	assert.Equal(t, 5, f.gen.lastCount)

	for _, card := range cards {
		assert.Equal(t, domain.CardSourceAI, card.Source)
		stored, err := f.cards.Get(ctx, card.ID.String())
		require.NoError(t, err)
		assert.Equal(t, domain.CardSourceAI, stored.Source)
	}

	// Drafts without a difficulty land as medium.
	assert.Equal(t, domain.DifficultyEasy, cards[0].Difficulty)
	assert.Equal(t, domain.DifficultyMedium, cards[1].Difficulty)

	pending, err := f.journal.Pending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	for _, entry := range pending {
		assert.Equal(t, store.CollectionFlashcards, entry.Collection)
		assert.Equal(t, outbox.OpCreate, entry.Operation)
	}
	assert.Equal(t, 1, f.notified)
}

func TestGenerateCards_GeneratorFailurePersistsNothing(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t)
	deck := f.createDeck(t)

	f.gen.err = generation.ErrTransientFailure
	_, err := f.svc.GenerateCards(ctx, deck.ID, "notes", 3)
	assert.ErrorIs(t, err, generation.ErrTransientFailure)

	count, err := f.cards.Count(ctx, store.Eq("deckId", deck.ID))
	require.NoError(t, err)
	assert.Zero(t, count)

	// Unknown deck is rejected before the generator is called.
	_, err = f.svc.GenerateCards(ctx, uuid.New(), "notes", 3)
	assert.ErrorIs(t, err, authoring.ErrDeckNotFound)
}

func TestGenerateCards_NotConfigured(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t)
	deck := f.createDeck(t)

	svc := authoring.NewService(f.db.SQL(), f.decks, f.cards, f.journal, nil, nil, nil)
	_, err := svc.GenerateCards(ctx, deck.ID, "notes", 3)
	assert.ErrorIs(t, err, authoring.ErrGenerationUnavailable)
}
