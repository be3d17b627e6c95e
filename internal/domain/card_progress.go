package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// CardStatus is the derived lifecycle stage of a card for one user.
// It is a denormalized view of (repetitions, interval) and is always
// recomputed from those values, never set directly by scheduling math.
type CardStatus string

// Possible card status values
const (
	CardStatusNew        CardStatus = "new"
	CardStatusLearning   CardStatus = "learning"
	CardStatusRelearning CardStatus = "relearning"
	CardStatusReview     CardStatus = "review"
	CardStatusMastered   CardStatus = "mastered"
)

// Default scheduling values for freshly created progress records.
const (
	// DefaultEaseFactor is the starting SM-2 ease factor for a new card.
	DefaultEaseFactor = 2.5

	// MinEaseFactor is the floor below which the ease factor never drops.
	MinEaseFactor = 1.3
)

// CardProgress validation errors
var (
	// ErrProgressIDEmpty is returned when a progress ID is empty or nil.
	ErrProgressIDEmpty = errors.New("card progress ID cannot be empty")

	// ErrProgressUserIDEmpty is returned when a progress user ID is empty or nil.
	ErrProgressUserIDEmpty = errors.New("card progress user ID cannot be empty")

	// ErrProgressCardIDEmpty is returned when a progress card ID is empty or nil.
	ErrProgressCardIDEmpty = errors.New("card progress card ID cannot be empty")

	// ErrInvalidEaseFactor is returned when the ease factor is below the 1.3 floor.
	ErrInvalidEaseFactor = errors.New("ease factor must be at least 1.3")

	// ErrInvalidInterval is returned when the interval is negative.
	ErrInvalidInterval = errors.New("interval must be greater than or equal to 0")

	// ErrInvalidRepetitions is returned when the repetition count is negative.
	ErrInvalidRepetitions = errors.New("repetitions must be greater than or equal to 0")
)

// CardProgress tracks one user's spaced-repetition state for one card.
// There is exactly one record per (user, card) pair, created lazily the
// first time the card is presented for study.
type CardProgress struct {
	ID             uuid.UUID  `json:"id"`
	UserID         uuid.UUID  `json:"userId"`
	CardID         uuid.UUID  `json:"cardId"`
	DeckID         uuid.UUID  `json:"deckId"`
	EaseFactor     float64    `json:"easeFactor"`
	Interval       int        `json:"interval"` // days until the next review
	Repetitions    int        `json:"repetitions"`
	Status         CardStatus `json:"status"`
	DueDate        time.Time  `json:"dueDate"`
	LastReviewedAt time.Time  `json:"lastReviewedAt"` // zero until the first review
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
	Version        int64      `json:"version"`
	Tombstone      bool       `json:"tombstone"`
}

// NewCardProgress creates a fresh progress record for a (user, card) pair.
// The card starts in "new" status and is due immediately.
func NewCardProgress(userID, cardID, deckID uuid.UUID) (*CardProgress, error) {
	now := NowUTC()
	progress := &CardProgress{
		ID:          uuid.New(),
		UserID:      userID,
		CardID:      cardID,
		DeckID:      deckID,
		EaseFactor:  DefaultEaseFactor,
		Interval:    0,
		Repetitions: 0,
		Status:      CardStatusNew,
		DueDate:     now,
		CreatedAt:   now,
		UpdatedAt:   now,
		Version:     1,
	}

	if err := progress.Validate(); err != nil {
		return nil, err
	}

	return progress, nil
}

// Validate checks if the CardProgress has valid data.
func (p *CardProgress) Validate() error {
	if p.ID == uuid.Nil {
		return ErrProgressIDEmpty
	}

	if p.UserID == uuid.Nil {
		return ErrProgressUserIDEmpty
	}

	if p.CardID == uuid.Nil {
		return ErrProgressCardIDEmpty
	}

	if p.EaseFactor < MinEaseFactor {
		return ErrInvalidEaseFactor
	}

	if p.Interval < 0 {
		return ErrInvalidInterval
	}

	if p.Repetitions < 0 {
		return ErrInvalidRepetitions
	}

	return nil
}
