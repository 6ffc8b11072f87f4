package llm

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"google.golang.org/api/googleapi"
)

const (
	// Backoffs are fixed, not exponential: the candidate list itself
	// provides the diversity of retry targets.
	rateLimitBackoff = 1 * time.Second
	overloadBackoff  = 500 * time.Millisecond

	defaultAttemptTimeout = 45 * time.Second
)

// Waterfall tries an ordered list of candidate models against a single
// provider until one returns a usable completion. The first success wins;
// exhaustion yields ErrNoCompletion.
type Waterfall struct {
	provider Provider
	models   []string
	timeout  time.Duration

	// sleep is swapped out in tests.
	sleep func(time.Duration)
}

// NewWaterfall creates a waterfall client over the given provider and
// candidate models, tried strictly in order. A non-positive timeout falls
// back to the default per-attempt timeout.
func NewWaterfall(provider Provider, models []string, timeout time.Duration) (*Waterfall, error) {
	if provider == nil {
		return nil, fmt.Errorf("waterfall requires a provider")
	}
	if len(models) == 0 {
		return nil, fmt.Errorf("waterfall requires at least one candidate model")
	}
	if timeout <= 0 {
		timeout = defaultAttemptTimeout
	}
	return &Waterfall{
		provider: provider,
		models:   append([]string(nil), models...),
		timeout:  timeout,
		sleep:    time.Sleep,
	}, nil
}

// GenerateContent walks the candidate list and returns the first non-empty
// completion. Rate-limited candidates cost a short fixed backoff before the
// next attempt; overloaded ones half of that; every other failure advances
// immediately.
func (w *Waterfall) GenerateContent(ctx context.Context, prompt string) (ContentResponse, error) {
	if strings.TrimSpace(prompt) == "" {
		return ContentResponse{}, fmt.Errorf("prompt is empty")
	}

	for i, model := range w.models {
		attemptCtx, cancel := context.WithTimeout(ctx, w.timeout)
		text, usage, err := w.provider.Complete(attemptCtx, model, prompt)
		cancel()

		if err == nil && strings.TrimSpace(text) != "" {
			return ContentResponse{
				Content:  text,
				Model:    model,
				Attempts: i + 1,
				Usage:    usage,
			}, nil
		}
		if err == nil {
			err = ErrEmptyCompletion
		}

		log.Printf("Model %s failed (attempt %d/%d): %v", model, i+1, len(w.models), err)

		if i == len(w.models)-1 {
			break
		}
		switch statusOf(err) {
		case http.StatusTooManyRequests:
			w.sleep(rateLimitBackoff)
		case http.StatusServiceUnavailable, statusOverloaded:
			w.sleep(overloadBackoff)
		}
	}

	return ContentResponse{Attempts: len(w.models)}, fmt.Errorf("%d candidate(s) exhausted: %w", len(w.models), ErrNoCompletion)
}

// 529 is used by some providers for transient overload; net/http has no
// constant for it.
const statusOverloaded = 529

func statusOf(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode
	}
	var ge *googleapi.Error
	if errors.As(err, &ge) {
		return ge.Code
	}
	return 0
}
