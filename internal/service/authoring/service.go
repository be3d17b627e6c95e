// Package authoring handles creation, editing, import, and deletion of
// decks and flashcards. Every mutation writes the entity and its outbox
// entry in a single transaction; deletions are tombstones so the removal
// can propagate to other replicas through sync.
package authoring

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/mnemo-app/mnemo/internal/domain"
)

// CardInput is one card to create or import.
type CardInput struct {
	Front      string                `json:"front" validate:"required"`
	Back       string                `json:"back" validate:"required"`
	Tags       []string              `json:"tags,omitempty"`
	Difficulty domain.CardDifficulty `json:"difficulty,omitempty"`
}

// Service provides deck and card authoring.
type Service interface {
	// CreateDeck creates a new deck owned by the given user.
	CreateDeck(ctx context.Context, userID uuid.UUID, title, description string) (*domain.Deck, error)

	// CreateCard adds a card to a deck. Returns ErrDeckNotFound if the
	// deck does not exist or is tombstoned.
	CreateCard(ctx context.Context, deckID uuid.UUID, input CardInput, source domain.CardSource) (*domain.Flashcard, error)

	// UpdateCard edits a card's content, bumping its version.
	// Returns ErrCardNotFound if the card does not exist or is tombstoned.
	UpdateCard(ctx context.Context, cardID uuid.UUID, input CardInput) (*domain.Flashcard, error)

	// DeleteCard tombstones a card. The record stays in the local store
	// until every replica has observed the deletion through sync.
	DeleteCard(ctx context.Context, cardID uuid.UUID) error

	// ImportCards bulk-creates cards in one transaction, recording them
	// with the import source.
	ImportCards(ctx context.Context, deckID uuid.UUID, inputs []CardInput) ([]*domain.Flashcard, error)

	// GenerateCards drafts up to count cards from the source text and
	// persists them in the deck with the ai source, all in one
	// transaction. Returns ErrGenerationUnavailable when no generator is
	// configured.
	GenerateCards(ctx context.Context, deckID uuid.UUID, sourceText string, count int) ([]*domain.Flashcard, error)
}

// Common error types for the authoring service
var (
	// ErrDeckNotFound indicates the referenced deck does not exist.
	ErrDeckNotFound = errors.New("deck not found")

	// ErrCardNotFound indicates the referenced card does not exist.
	ErrCardNotFound = errors.New("card not found")

	// ErrNothingToImport indicates an empty import batch.
	ErrNothingToImport = errors.New("import batch is empty")

	// ErrGenerationUnavailable indicates no card generator is configured.
	ErrGenerationUnavailable = errors.New("card generation is not configured")
)

// ServiceError wraps errors from the authoring service with operation
// context.
type ServiceError struct {
	Operation string
	Message   string
	Err       error
}

// Error implements the error interface for ServiceError.
func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s operation failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("%s operation failed: %s", e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *ServiceError) Unwrap() error {
	return e.Err
}

func newServiceError(operation, message string, err error) *ServiceError {
	return &ServiceError{Operation: operation, Message: message, Err: err}
}
