package authoring

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/mnemo-app/mnemo/internal/domain"
	"github.com/mnemo-app/mnemo/internal/generation"
	"github.com/mnemo-app/mnemo/internal/outbox"
	"github.com/mnemo-app/mnemo/internal/store"
)

// service is the default Service implementation over the local store.
type service struct {
	db         *sql.DB
	decks      store.Collection[domain.Deck]
	cards      store.Collection[domain.Flashcard]
	journal    *outbox.Journal
	generator  generation.Generator
	logger     *slog.Logger
	onMutation func()
}

// NewService creates the authoring service. generator may be nil when
// card generation is not configured; GenerateCards then reports
// ErrGenerationUnavailable.
func NewService(
	db *sql.DB,
	decks store.Collection[domain.Deck],
	cards store.Collection[domain.Flashcard],
	journal *outbox.Journal,
	generator generation.Generator,
	logger *slog.Logger,
	onMutation func(),
) Service {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &service{
		db:         db,
		decks:      decks,
		cards:      cards,
		journal:    journal,
		generator:  generator,
		logger:     logger.With(slog.String("component", "authoring_service")),
		onMutation: onMutation,
	}
}

// Ensure service implements the Service interface
var _ Service = (*service)(nil)

// CreateDeck implements Service.CreateDeck.
func (s *service) CreateDeck(
	ctx context.Context,
	userID uuid.UUID,
	title, description string,
) (*domain.Deck, error) {
	deck, err := domain.NewDeck(userID, title, description)
	if err != nil {
		return nil, newServiceError("create_deck", "invalid deck", err)
	}

	err = store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		if err := s.decks.WithTx(tx).Put(ctx, deck.ID.String(), deck); err != nil {
			return err
		}
		entry, err := outbox.NewEntry(store.CollectionDecks, deck.ID.String(), outbox.OpCreate, deck)
		if err != nil {
			return err
		}
		return s.journal.WithTx(tx).Append(ctx, entry)
	})
	if err != nil {
		return nil, newServiceError("create_deck", "failed to persist deck", err)
	}

	s.notifyMutation()
	return deck, nil
}

// CreateCard implements Service.CreateCard.
func (s *service) CreateCard(
	ctx context.Context,
	deckID uuid.UUID,
	input CardInput,
	source domain.CardSource,
) (*domain.Flashcard, error) {
	if err := s.requireDeck(ctx, deckID); err != nil {
		return nil, err
	}

	card, err := domain.NewFlashcard(deckID, input.Front, input.Back, input.Tags, input.Difficulty, source)
	if err != nil {
		return nil, newServiceError("create_card", "invalid card", err)
	}

	err = store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		if err := s.cards.WithTx(tx).Put(ctx, card.ID.String(), card); err != nil {
			return err
		}
		entry, err := outbox.NewEntry(store.CollectionFlashcards, card.ID.String(), outbox.OpCreate, card)
		if err != nil {
			return err
		}
		return s.journal.WithTx(tx).Append(ctx, entry)
	})
	if err != nil {
		return nil, newServiceError("create_card", "failed to persist card", err)
	}

	s.notifyMutation()
	return card, nil
}

// UpdateCard implements Service.UpdateCard.
func (s *service) UpdateCard(
	ctx context.Context,
	cardID uuid.UUID,
	input CardInput,
) (*domain.Flashcard, error) {
	current, err := s.cards.Get(ctx, cardID.String())
	if err != nil {
		if store.IsNotFound(err) {
			return nil, fmt.Errorf("%w: %s", ErrCardNotFound, cardID)
		}
		return nil, newServiceError("update_card", "failed to load card", err)
	}
	if current.Tombstone {
		return nil, fmt.Errorf("%w: %s", ErrCardNotFound, cardID)
	}

	updated := *current
	updated.Front = input.Front
	updated.Back = input.Back
	updated.Tags = input.Tags
	if input.Difficulty != "" {
		updated.Difficulty = input.Difficulty
	}
	updated.UpdatedAt = domain.NowUTC()
	updated.Version = current.Version + 1

	if err := updated.Validate(); err != nil {
		return nil, newServiceError("update_card", "invalid card", err)
	}

	err = store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		if err := s.cards.WithTx(tx).Put(ctx, updated.ID.String(), &updated); err != nil {
			return err
		}
		entry, err := outbox.NewEntry(store.CollectionFlashcards, updated.ID.String(), outbox.OpUpdate, &updated)
		if err != nil {
			return err
		}
		return s.journal.WithTx(tx).Append(ctx, entry)
	})
	if err != nil {
		return nil, newServiceError("update_card", "failed to persist card", err)
	}

	s.notifyMutation()
	return &updated, nil
}

// DeleteCard implements Service.DeleteCard.
func (s *service) DeleteCard(ctx context.Context, cardID uuid.UUID) error {
	current, err := s.cards.Get(ctx, cardID.String())
	if err != nil {
		if store.IsNotFound(err) {
			return fmt.Errorf("%w: %s", ErrCardNotFound, cardID)
		}
		return newServiceError("delete_card", "failed to load card", err)
	}
	if current.Tombstone {
		// Already deleted; idempotent.
		return nil
	}

	deleted := *current
	deleted.Tombstone = true
	deleted.UpdatedAt = domain.NowUTC()
	deleted.Version = current.Version + 1

	err = store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		if err := s.cards.WithTx(tx).Put(ctx, deleted.ID.String(), &deleted); err != nil {
			return err
		}
		entry, err := outbox.NewEntry(store.CollectionFlashcards, deleted.ID.String(), outbox.OpDelete, &deleted)
		if err != nil {
			return err
		}
		return s.journal.WithTx(tx).Append(ctx, entry)
	})
	if err != nil {
		return newServiceError("delete_card", "failed to persist tombstone", err)
	}

	s.logger.Debug("card tombstoned", slog.String("card_id", cardID.String()))
	s.notifyMutation()
	return nil
}

// ImportCards implements Service.ImportCards.
func (s *service) ImportCards(
	ctx context.Context,
	deckID uuid.UUID,
	inputs []CardInput,
) ([]*domain.Flashcard, error) {
	if len(inputs) == 0 {
		return nil, newServiceError("import_cards", "empty batch", ErrNothingToImport)
	}

	if err := s.requireDeck(ctx, deckID); err != nil {
		return nil, err
	}

	cards := make([]*domain.Flashcard, 0, len(inputs))
	for _, input := range inputs {
		card, err := domain.NewFlashcard(
			deckID,
			input.Front,
			input.Back,
			input.Tags,
			input.Difficulty,
			domain.CardSourceImport,
		)
		if err != nil {
			return nil, newServiceError("import_cards", "invalid card in batch", err)
		}
		cards = append(cards, card)
	}

	// The whole batch commits or none of it does.
	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		cardsTx := s.cards.WithTx(tx)
		journalTx := s.journal.WithTx(tx)
		for _, card := range cards {
			if err := cardsTx.Put(ctx, card.ID.String(), card); err != nil {
				return err
			}
			entry, err := outbox.NewEntry(store.CollectionFlashcards, card.ID.String(), outbox.OpCreate, card)
			if err != nil {
				return err
			}
			if err := journalTx.Append(ctx, entry); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, newServiceError("import_cards", "failed to persist batch", err)
	}

	s.logger.Info("cards imported",
		slog.String("deck_id", deckID.String()),
		slog.Int("count", len(cards)))

	s.notifyMutation()
	return cards, nil
}

// GenerateCards implements Service.GenerateCards.
func (s *service) GenerateCards(
	ctx context.Context,
	deckID uuid.UUID,
	sourceText string,
	count int,
) ([]*domain.Flashcard, error) {
	if s.generator == nil {
		return nil, newServiceError("generate_cards", "no generator configured", ErrGenerationUnavailable)
	}

	if err := s.requireDeck(ctx, deckID); err != nil {
		return nil, err
	}

	drafts, err := s.generator.GenerateCards(ctx, sourceText, count)
	if err != nil {
		return nil, newServiceError("generate_cards", "generator failed", err)
	}

	cards := make([]*domain.Flashcard, 0, len(drafts))
	for _, draft := range drafts {
		difficulty := draft.Difficulty
		if difficulty == "" {
			difficulty = domain.DifficultyMedium
		}
		card, err := domain.NewFlashcard(
			deckID,
			draft.Front,
			draft.Back,
			draft.Tags,
			difficulty,
			domain.CardSourceAI,
		)
		if err != nil {
			return nil, newServiceError("generate_cards", "invalid generated card", err)
		}
		cards = append(cards, card)
	}

	err = store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		cardsTx := s.cards.WithTx(tx)
		journalTx := s.journal.WithTx(tx)
		for _, card := range cards {
			if err := cardsTx.Put(ctx, card.ID.String(), card); err != nil {
				return err
			}
			entry, err := outbox.NewEntry(store.CollectionFlashcards, card.ID.String(), outbox.OpCreate, card)
			if err != nil {
				return err
			}
			if err := journalTx.Append(ctx, entry); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, newServiceError("generate_cards", "failed to persist batch", err)
	}

	s.logger.Info("cards generated",
		slog.String("deck_id", deckID.String()),
		slog.Int("count", len(cards)))

	s.notifyMutation()
	return cards, nil
}

func (s *service) requireDeck(ctx context.Context, deckID uuid.UUID) error {
	deck, err := s.decks.Get(ctx, deckID.String())
	if err != nil {
		if store.IsNotFound(err) {
			return fmt.Errorf("%w: %s", ErrDeckNotFound, deckID)
		}
		return newServiceError("load_deck", "failed to load deck", err)
	}
	if deck.Tombstone {
		return fmt.Errorf("%w: %s", ErrDeckNotFound, deckID)
	}
	return nil
}

func (s *service) notifyMutation() {
	if s.onMutation != nil {
		s.onMutation()
	}
}
