package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestOpenAIProviderComplete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("Expected bearer auth header, got '%s'", got)
		}
		var req struct {
			Model string `json:"model"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("Failed to decode request: %v", err)
		}
		if req.Model != "llama-3.3-70b-versatile" {
			t.Errorf("Expected model from the call, got '%s'", req.Model)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[{"message":{"content":"{\"breakfast\":{\"dish\":\"Poha\"}}"}}],"usage":{"prompt_tokens":12,"completion_tokens":8,"total_tokens":20}}`))
	}))
	defer srv.Close()

	p := NewOpenAIProvider(srv.URL, "test-key")
	text, usage, err := p.Complete(context.Background(), "llama-3.3-70b-versatile", "plan my day")
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if text != `{"breakfast":{"dish":"Poha"}}` {
		t.Errorf("Unexpected completion text: %s", text)
	}
	if usage.PromptTokens != 12 || usage.CompletionTokens != 8 {
		t.Errorf("Unexpected usage: %+v", usage)
	}
}

func TestOpenAIProviderStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	p := NewOpenAIProvider(srv.URL, "test-key")
	_, _, err := p.Complete(context.Background(), "m1", "plan my day")

	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("Expected a StatusError, got %v", err)
	}
	if se.StatusCode != http.StatusTooManyRequests {
		t.Errorf("Expected status 429, got %d", se.StatusCode)
	}
}

func TestOpenAIProviderEmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	p := NewOpenAIProvider(srv.URL, "test-key")
	_, _, err := p.Complete(context.Background(), "m1", "plan my day")
	if !errors.Is(err, ErrEmptyCompletion) {
		t.Fatalf("Expected ErrEmptyCompletion for an empty choice list, got %v", err)
	}
}
