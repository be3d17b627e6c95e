// Package gemini provides implementations for the generation interface using Google's Gemini API.
package gemini

// promptData represents the data passed to the prompt template
type promptData struct {
	SourceText string
	Count      int
}

// ResponseSchema represents the expected structure of the Gemini API response
type ResponseSchema struct {
	// Cards is the array of flashcards drafted from the source text
	Cards []CardSchema `json:"cards"`
}

// CardSchema represents a single flashcard in the API response
type CardSchema struct {
	// Front is the question or prompt side of the flashcard
	Front string `json:"front"`

	// Back is the answer side of the flashcard
	Back string `json:"back"`

	// Tags are optional categories or labels for the flashcard
	Tags []string `json:"tags,omitempty"`

	// Difficulty is the model's estimate of how hard the card is
	Difficulty string `json:"difficulty,omitempty"`
}
