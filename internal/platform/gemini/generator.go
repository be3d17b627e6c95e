package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"strings"
	"text/template"
	"time"

	"google.golang.org/genai"

	"github.com/mnemo-app/mnemo/internal/config"
	"github.com/mnemo-app/mnemo/internal/domain"
	"github.com/mnemo-app/mnemo/internal/generation"
)

// defaultPromptTemplate asks for strict JSON so the response parses
// without scraping. The trailing instruction matters: without it the
// model tends to wrap the JSON in a markdown fence.
const defaultPromptTemplate = `You are a flashcard author. Draft at most {{.Count}} flashcards from the source text below. Each card has a concise question on the front and a short factual answer on the back. Rate each card's difficulty as "easy", "medium", or "hard".

Source text:
{{.SourceText}}

Respond with only a JSON object of the form {"cards":[{"front":"...","back":"...","tags":["..."],"difficulty":"..."}]} and no other text.`

// Generator implements generation.Generator using Google's Gemini API.
type Generator struct {
	logger         *slog.Logger
	config         config.GenerationConfig
	promptTemplate *template.Template
	client         *genai.Client
	model          string
}

// Ensure Generator implements the generation.Generator interface
var _ generation.Generator = (*Generator)(nil)

// NewGenerator creates a Gemini-backed card draft generator.
func NewGenerator(ctx context.Context, logger *slog.Logger, cfg config.GenerationConfig) (*Generator, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("%w: gemini API key cannot be empty", generation.ErrInvalidConfig)
	}
	if cfg.ModelName == "" {
		return nil, fmt.Errorf("%w: model name cannot be empty", generation.ErrInvalidConfig)
	}

	promptTemplate, err := template.New("flashcard").Parse(defaultPromptTemplate)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse prompt template: %v", generation.ErrInvalidConfig, err)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create Gemini client: %v", generation.ErrInvalidConfig, err)
	}

	return &Generator{
		logger:         logger.With(slog.String("component", "gemini_generator")),
		config:         cfg,
		promptTemplate: promptTemplate,
		client:         client,
		model:          cfg.ModelName,
	}, nil
}

// GenerateCards implements generation.Generator.
func (g *Generator) GenerateCards(ctx context.Context, sourceText string, count int) ([]generation.CardDraft, error) {
	if strings.TrimSpace(sourceText) == "" {
		return nil, generation.ErrEmptySourceText
	}
	if count <= 0 {
		count = 10
	}

	prompt, err := g.createPrompt(sourceText, count)
	if err != nil {
		return nil, err
	}

	response, err := g.callWithRetry(ctx, prompt)
	if err != nil {
		return nil, err
	}

	return g.parseResponse(ctx, response, count)
}

// createPrompt renders the prompt template with the source text.
func (g *Generator) createPrompt(sourceText string, count int) (string, error) {
	var buf bytes.Buffer
	if err := g.promptTemplate.Execute(&buf, promptData{SourceText: sourceText, Count: count}); err != nil {
		return "", fmt.Errorf("%w: failed to execute prompt template: %v", generation.ErrGenerationFailed, err)
	}
	return buf.String(), nil
}

// callWithRetry calls the Gemini API with exponential backoff and jitter.
// Transient failures retry up to MaxRetries; malformed or blocked
// responses return immediately.
func (g *Generator) callWithRetry(ctx context.Context, prompt string) (*ResponseSchema, error) {
	maxRetries := g.config.MaxRetries
	if maxRetries < 0 {
		maxRetries = 3
	}
	baseDelaySeconds := g.config.RetryDelaySeconds
	if baseDelaySeconds < 1 {
		baseDelaySeconds = 2
	}
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	for attempt := 0; ; attempt++ {
		g.logger.DebugContext(ctx, "calling Gemini API",
			slog.Int("attempt", attempt+1),
			slog.Int("max_attempts", maxRetries+1))

		response, err := g.callOnce(ctx, prompt)
		if err == nil {
			return response, nil
		}

		g.logger.WarnContext(ctx, "Gemini API call failed",
			slog.Int("attempt", attempt+1),
			slog.String("error", err.Error()))

		if errors.Is(err, generation.ErrContentBlocked) || errors.Is(err, generation.ErrInvalidResponse) {
			return nil, err
		}
		if attempt >= maxRetries {
			return nil, fmt.Errorf("%w: exceeded maximum retry attempts (%d)",
				generation.ErrTransientFailure, maxRetries)
		}

		// delay = baseDelay * 2^attempt * jitter in [0.5, 1.0)
		backoff := float64(baseDelaySeconds) * math.Pow(2, float64(attempt))
		delay := time.Duration(backoff * (0.5 + rng.Float64()*0.5) * float64(time.Second))

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %v", generation.ErrTransientFailure, ctx.Err())
		}
	}
}

func (g *Generator) callOnce(ctx context.Context, prompt string) (*ResponseSchema, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", generation.ErrTransientFailure, err)
	}
	if resp == nil || len(resp.Candidates) == 0 {
		return nil, fmt.Errorf("%w: no content generated", generation.ErrInvalidResponse)
	}
	if resp.Candidates[0].FinishReason == genai.FinishReasonSafety {
		return nil, fmt.Errorf("%w: response blocked", generation.ErrContentBlocked)
	}

	text := strings.TrimSpace(resp.Text())
	text = stripCodeFence(text)
	if text == "" {
		return nil, fmt.Errorf("%w: empty response text", generation.ErrInvalidResponse)
	}

	var parsed ResponseSchema
	if err := json.Unmarshal([]byte(text), &parsed); err != nil {
		return nil, fmt.Errorf("%w: failed to parse JSON response: %v", generation.ErrInvalidResponse, err)
	}
	return &parsed, nil
}

// parseResponse converts the API response into validated drafts, keeping
// at most count of them.
func (g *Generator) parseResponse(ctx context.Context, response *ResponseSchema, count int) ([]generation.CardDraft, error) {
	if len(response.Cards) == 0 {
		return nil, fmt.Errorf("%w: response contained no cards", generation.ErrInvalidResponse)
	}

	drafts := make([]generation.CardDraft, 0, len(response.Cards))
	for _, card := range response.Cards {
		front := strings.TrimSpace(card.Front)
		back := strings.TrimSpace(card.Back)
		if front == "" || back == "" {
			g.logger.DebugContext(ctx, "skipping draft with empty side")
			continue
		}
		drafts = append(drafts, generation.CardDraft{
			Front:      front,
			Back:       back,
			Tags:       card.Tags,
			Difficulty: parseDifficulty(card.Difficulty),
		})
		if len(drafts) == count {
			break
		}
	}

	if len(drafts) == 0 {
		return nil, fmt.Errorf("%w: every card in the response was unusable", generation.ErrInvalidResponse)
	}

	g.logger.InfoContext(ctx, "cards drafted",
		slog.Int("requested", count),
		slog.Int("drafted", len(drafts)))
	return drafts, nil
}

func parseDifficulty(s string) domain.CardDifficulty {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case string(domain.DifficultyEasy):
		return domain.DifficultyEasy
	case string(domain.DifficultyHard):
		return domain.DifficultyHard
	default:
		return domain.DifficultyMedium
	}
}

// stripCodeFence removes a surrounding markdown code fence if the model
// added one despite the instructions.
func stripCodeFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
