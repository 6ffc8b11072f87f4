package shared

import (
	"time"
)

// TokenUsage tracks the tokens consumed by a request.
type TokenUsage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
	Model            string
}

// CallMeta holds operational metadata for a single planner operation,
// including which candidate model finally answered and how many were tried.
type CallMeta struct {
	RequestID string
	Operation string
	Model     string
	Attempts  int
	Usage     TokenUsage
	Latency   time.Duration
	OK        bool
}
