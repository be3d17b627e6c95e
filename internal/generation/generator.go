package generation

import (
	"context"

	"github.com/mnemo-app/mnemo/internal/domain"
)

// CardDraft is one proposed flashcard. Drafts carry no identity; the
// authoring service assigns IDs when the user accepts them into a deck.
type CardDraft struct {
	Front      string                `json:"front"`
	Back       string                `json:"back"`
	Tags       []string              `json:"tags,omitempty"`
	Difficulty domain.CardDifficulty `json:"difficulty,omitempty"`
}

// Generator defines the interface for drafting flashcards from source
// text. It is the boundary between the application core and external
// AI/LLM services.
type Generator interface {
	// GenerateCards drafts up to count flashcards from the provided
	// source text. Returns ErrEmptySourceText for empty input and the
	// error taxonomy in errors.go for service failures.
	GenerateCards(ctx context.Context, sourceText string, count int) ([]CardDraft, error)
}
