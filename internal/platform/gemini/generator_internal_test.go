package gemini

import (
	"context"
	"log/slog"
	"testing"
	"text/template"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mnemo-app/mnemo/internal/domain"
	"github.com/mnemo-app/mnemo/internal/generation"
)

func testGenerator(t *testing.T) *Generator {
	t.Helper()

	tmpl, err := template.New("flashcard").Parse(defaultPromptTemplate)
	require.NoError(t, err)
	return &Generator{
		logger:         slog.Default(),
		promptTemplate: tmpl,
	}
}

func TestCreatePrompt(t *testing.T) {
	t.Parallel()

	g := testGenerator(t)

	prompt, err := g.createPrompt("The mitochondria is the powerhouse of the cell.", 3)
	require.NoError(t, err)
	assert.Contains(t, prompt, "at most 3 flashcards")
	assert.Contains(t, prompt, "mitochondria")
}

func TestParseResponse(t *testing.T) {
	t.Parallel()

	g := testGenerator(t)
	ctx := context.Background()

	response := &ResponseSchema{Cards: []CardSchema{
		{Front: "Q1", Back: "A1", Difficulty: "easy"},
		{Front: "  ", Back: "dropped, empty front"},
		{Front: "Q2", Back: "A2", Difficulty: "HARD", Tags: []string{"bio"}},
		{Front: "Q3", Back: "A3", Difficulty: "somewhere in between"},
	}}

	drafts, err := g.parseResponse(ctx, response, 10)
	require.NoError(t, err)
	require.Len(t, drafts, 3)

	assert.Equal(t, domain.DifficultyEasy, drafts[0].Difficulty)
	assert.Equal(t, domain.DifficultyHard, drafts[1].Difficulty)
	assert.Equal(t, []string{"bio"}, drafts[1].Tags)
	assert.Equal(t, domain.DifficultyMedium, drafts[2].Difficulty, "unknown ratings default to medium")

	// The count caps the drafts.
	capped, err := g.parseResponse(ctx, response, 1)
	require.NoError(t, err)
	assert.Len(t, capped, 1)

	// All-unusable responses are an error, not an empty slice.
	_, err = g.parseResponse(ctx, &ResponseSchema{Cards: []CardSchema{{Front: "", Back: ""}}}, 5)
	assert.ErrorIs(t, err, generation.ErrInvalidResponse)

	_, err = g.parseResponse(ctx, &ResponseSchema{}, 5)
	assert.ErrorIs(t, err, generation.ErrInvalidResponse)
}

func TestStripCodeFence(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "bare json untouched", input: `{"cards":[]}`, expected: `{"cards":[]}`},
		{name: "json fence", input: "```json\n{\"cards\":[]}\n```", expected: `{"cards":[]}`},
		{name: "anonymous fence", input: "```\n{\"cards\":[]}\n```", expected: `{"cards":[]}`},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tc.expected, stripCodeFence(tc.input))
		})
	}
}
