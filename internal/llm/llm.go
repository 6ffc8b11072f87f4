package llm

import (
	"context"
	"errors"
	"fmt"

	"mumbai-meal-planner/internal/shared"
)

// ErrNoCompletion is returned when every candidate model has been tried and
// none produced a usable completion. It is a sentinel, not a panic: callers
// branch on it with errors.Is and render a fallback message.
var ErrNoCompletion = errors.New("no completion from any candidate model")

// ErrEmptyCompletion marks a response that succeeded at the HTTP level but
// carried no text. The waterfall treats it as a failure, never as success
// with empty content.
var ErrEmptyCompletion = errors.New("provider returned an empty completion")

// ContentResponse contains the generated text and metadata like token usage.
type ContentResponse struct {
	Content  string
	Model    string
	Attempts int
	Usage    shared.TokenUsage
}

// TextGenerator is an interface for generating text from a prompt.
type TextGenerator interface {
	GenerateContent(ctx context.Context, prompt string) (ContentResponse, error)
}

// Provider issues a single completion attempt against one named model.
type Provider interface {
	Complete(ctx context.Context, model, prompt string) (string, shared.TokenUsage, error)
}

// Closer is an interface for closing resources.
type Closer interface {
	Close() error
}

// StatusError reports a non-2xx HTTP status from a provider attempt.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("provider error: status=%d body=%s", e.StatusCode, e.Body)
}
