// Package study orchestrates the scheduler and the local store to produce
// ordered batches of due and new cards, persist submitted reviews, and
// track study sessions.
package study

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/mnemo-app/mnemo/internal/domain"
)

// StudyCard pairs a flashcard with the user's progress record for it.
type StudyCard struct {
	Card     *domain.Flashcard    `json:"card"`
	Progress *domain.CardProgress `json:"progress"`
}

// DeckStats aggregates a user's progress across one deck.
type DeckStats struct {
	New        int `json:"new"`
	Learning   int `json:"learning"`
	Relearning int `json:"relearning"`
	Review     int `json:"review"`
	Mastered   int `json:"mastered"`
	DueToday   int `json:"dueToday"`
	TotalCards int `json:"totalCards"`
}

// Service provides the study queue consumed in-process by the UI layer.
//
// Session composition policy is the caller's concern: fill up to the
// configured cards-per-session from due cards first, then top up from new
// cards when the include-new flag is set.
type Service interface {
	// NextDueCards returns up to limit cards due for review, most overdue
	// first, scoped to one (deck, user) pair. Progress rows whose card
	// has been deleted are silently skipped.
	NextDueCards(ctx context.Context, deckID, userID uuid.UUID, limit int) ([]*StudyCard, error)

	// NextNewCards finds cards in the deck the user has never studied,
	// creates a fresh progress row for up to limit of them, and returns
	// the cards paired with their new progress.
	NextNewCards(ctx context.Context, deckID, userID uuid.UUID, limit int) ([]*StudyCard, error)

	// SubmitReview grades a card, advances its schedule, and persists the
	// updated progress. Returns ErrProgressNotFound if the progress record
	// does not exist.
	SubmitReview(ctx context.Context, progressID uuid.UUID, rating domain.Rating) (*domain.CardProgress, error)

	// DeckStats aggregates per-status counts and the due-today count
	// (bucketed at local midnight) for one (deck, user) pair.
	DeckStats(ctx context.Context, deckID, userID uuid.UUID) (*DeckStats, error)

	// StartSession opens a new study session.
	StartSession(ctx context.Context, userID, deckID uuid.UUID) (*domain.StudySession, error)

	// RecordReview appends a review to an open session, recomputing the
	// session stats. Returns domain.ErrSessionEnded on a closed session.
	RecordReview(ctx context.Context, sessionID uuid.UUID, review domain.Review) (*domain.StudySession, error)

	// EndSession closes a session exactly once.
	EndSession(ctx context.Context, sessionID uuid.UUID) (*domain.StudySession, error)
}

// Common error types for the study service
var (
	// ErrProgressNotFound indicates the referenced progress record does not exist.
	ErrProgressNotFound = errors.New("card progress not found")

	// ErrSessionNotFound indicates the referenced study session does not exist.
	ErrSessionNotFound = errors.New("study session not found")

	// ErrInvalidLimit indicates a non-positive batch limit.
	ErrInvalidLimit = errors.New("limit must be greater than zero")
)

// ServiceError wraps errors from the study service with operation context,
// so consumers can differentiate failures with errors.As instead of
// string matching.
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
