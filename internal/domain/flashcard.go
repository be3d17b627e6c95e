package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// CardSource records how a flashcard came to exist.
type CardSource string

// Possible card source values
const (
	CardSourceManual CardSource = "manual"
	CardSourceAI     CardSource = "ai"
	CardSourceImport CardSource = "import"
)

// CardDifficulty is the author-assigned difficulty of a flashcard.
// It is descriptive metadata and does not feed the scheduler, which
// derives difficulty from review history instead.
type CardDifficulty string

// Possible difficulty values
const (
	DifficultyEasy   CardDifficulty = "easy"
	DifficultyMedium CardDifficulty = "medium"
	DifficultyHard   CardDifficulty = "hard"
)

// Flashcard-specific validation errors
var (
	// ErrCardIDEmpty is returned when a card ID is empty or nil.
	ErrCardIDEmpty = errors.New("card ID cannot be empty")

	// ErrCardDeckIDEmpty is returned when a card's deck ID is empty or nil.
	ErrCardDeckIDEmpty = errors.New("card deck ID cannot be empty")

	// ErrCardFrontEmpty is returned when a card's front side is empty.
	ErrCardFrontEmpty = errors.New("card front cannot be empty")

	// ErrCardBackEmpty is returned when a card's back side is empty.
	ErrCardBackEmpty = errors.New("card back cannot be empty")

	// ErrCardSourceInvalid is returned when a card's source is not a known value.
	ErrCardSourceInvalid = errors.New("card source must be manual, ai, or import")
)

// Flashcard is a single question/answer pair. A flashcard is always owned
// by a deck and is never addressable outside it. Deletion is a soft delete:
// the Tombstone flag is set so the removal can propagate to other replicas
// through sync before the record is physically purged.
type Flashcard struct {
	ID         uuid.UUID      `json:"id"`
	DeckID     uuid.UUID      `json:"deckId"`
	Front      string         `json:"front"`
	Back       string         `json:"back"`
	Tags       []string       `json:"tags,omitempty"`
	Difficulty CardDifficulty `json:"difficulty,omitempty"`
	Source     CardSource     `json:"source"`
	CreatedAt  time.Time      `json:"createdAt"`
	UpdatedAt  time.Time      `json:"updatedAt"`
	Version    int64          `json:"version"`
	Tombstone  bool           `json:"tombstone"`
}

// NewFlashcard creates a new Flashcard in the given deck.
// It generates a new UUID for the card ID and sets the timestamps.
// Returns an error if validation fails.
func NewFlashcard(
	deckID uuid.UUID,
	front, back string,
	tags []string,
	difficulty CardDifficulty,
	source CardSource,
) (*Flashcard, error) {
	now := NowUTC()
	card := &Flashcard{
		ID:         uuid.New(),
		DeckID:     deckID,
		Front:      front,
		Back:       back,
		Tags:       tags,
		Difficulty: difficulty,
		Source:     source,
		CreatedAt:  now,
		UpdatedAt:  now,
		Version:    1,
	}

	if err := card.Validate(); err != nil {
		return nil, err
	}

	return card, nil
}

// Validate checks if the Flashcard has valid data.
func (c *Flashcard) Validate() error {
	if c.ID == uuid.Nil {
		return ErrCardIDEmpty
	}

	if c.DeckID == uuid.Nil {
		return ErrCardDeckIDEmpty
	}

	if c.Front == "" {
		return ErrCardFrontEmpty
	}

	if c.Back == "" {
		return ErrCardBackEmpty
	}

	switch c.Source {
	case CardSourceManual, CardSourceAI, CardSourceImport:
	default:
		return ErrCardSourceInvalid
	}

	return nil
}
