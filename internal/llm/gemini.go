package llm

import (
	"context"
	"fmt"

	"mumbai-meal-planner/internal/shared"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// GeminiProvider issues completions against the Google Gemini API. The model
// is chosen per call so the waterfall can walk its candidate list over a
// single underlying client.
type GeminiProvider struct {
	client *genai.Client
}

var _ Closer = (*GeminiProvider)(nil)

// NewGeminiProvider creates a new Gemini API provider.
func NewGeminiProvider(ctx context.Context, apiKey string) (*GeminiProvider, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &GeminiProvider{client: client}, nil
}

// Complete sends the prompt to the named Gemini model and returns the
// generated text.
func (p *GeminiProvider) Complete(ctx context.Context, model, prompt string) (string, shared.TokenUsage, error) {
	m := p.client.GenerativeModel(model)
	resp, err := m.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", shared.TokenUsage{}, fmt.Errorf("failed to generate content: %w", err)
	}

	// A 200 with no candidates is a failure, not an empty success.
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", shared.TokenUsage{}, ErrEmptyCompletion
	}

	text, ok := resp.Candidates[0].Content.Parts[0].(genai.Text)
	if !ok {
		return "", shared.TokenUsage{}, fmt.Errorf("generated content is not text")
	}

	usage := shared.TokenUsage{Model: model}
	if resp.UsageMetadata != nil {
		usage.PromptTokens = int(resp.UsageMetadata.PromptTokenCount)
		usage.CompletionTokens = int(resp.UsageMetadata.CandidatesTokenCount)
		usage.TotalTokens = int(resp.UsageMetadata.TotalTokenCount)
	}

	return string(text), usage, nil
}

// Close closes the underlying Gemini client.
func (p *GeminiProvider) Close() error {
	return p.client.Close()
}
