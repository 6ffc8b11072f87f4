package metrics

import (
	"path/filepath"
	"testing"
	"time"

	"mumbai-meal-planner/internal/database"
	"mumbai-meal-planner/internal/shared"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := database.NewDB(filepath.Join(t.TempDir(), "planner.db"))
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewStore(db.SQL)
}

func TestRecordAndDailyUsage(t *testing.T) {
	store := newTestStore(t)

	now := time.Now().UTC()
	calls := []CallMetric{
		{RequestID: "r1", Operation: "generate", Model: "gemini-2.5-flash", Attempts: 1, PromptTokens: 100, CompletionTokens: 50, LatencyMS: 900, OK: true, Timestamp: now},
		{RequestID: "r2", Operation: "feedback", Model: "gemini-2.0-flash", Attempts: 2, PromptTokens: 80, CompletionTokens: 40, LatencyMS: 1500, OK: true, Timestamp: now},
		{RequestID: "r3", Operation: "generate", Model: "", Attempts: 3, LatencyMS: 3000, OK: false, Timestamp: now},
	}
	for _, c := range calls {
		if err := store.Record(c); err != nil {
			t.Fatalf("Record failed: %v", err)
		}
	}

	usage, err := store.GetDailyUsage(7)
	if err != nil {
		t.Fatalf("GetDailyUsage failed: %v", err)
	}
	if len(usage) != 1 {
		t.Fatalf("Expected one day of usage, got %d", len(usage))
	}

	day := usage[0]
	if day.Calls != 3 || day.Failures != 1 {
		t.Errorf("Expected 3 calls with 1 failure, got %+v", day)
	}
	if day.TotalPrompt != 180 || day.TotalCompletion != 90 {
		t.Errorf("Unexpected token totals: %+v", day)
	}
}

func TestRecordMeta(t *testing.T) {
	store := newTestStore(t)

	meta := shared.CallMeta{
		RequestID: "req-1",
		Operation: "swap",
		Model:     "gemini-2.5-flash",
		Attempts:  1,
		Usage:     shared.TokenUsage{PromptTokens: 42, CompletionTokens: 7},
		Latency:   1200 * time.Millisecond,
		OK:        true,
	}
	if err := store.RecordMeta(meta); err != nil {
		t.Fatalf("RecordMeta failed: %v", err)
	}

	usage, err := store.GetDailyUsage(1)
	if err != nil {
		t.Fatalf("GetDailyUsage failed: %v", err)
	}
	if len(usage) != 1 || usage[0].TotalPrompt != 42 || usage[0].TotalCompletion != 7 {
		t.Errorf("Unexpected usage after RecordMeta: %+v", usage)
	}
}

func TestCleanup(t *testing.T) {
	store := newTestStore(t)

	old := CallMetric{RequestID: "old", Operation: "generate", Model: "m", OK: true, Timestamp: time.Now().UTC().AddDate(0, 0, -40)}
	recent := CallMetric{RequestID: "new", Operation: "generate", Model: "m", OK: true, Timestamp: time.Now().UTC()}
	for _, c := range []CallMetric{old, recent} {
		if err := store.Record(c); err != nil {
			t.Fatalf("Record failed: %v", err)
		}
	}

	deleted, err := store.Cleanup(30)
	if err != nil {
		t.Fatalf("Cleanup failed: %v", err)
	}
	if deleted != 1 {
		t.Errorf("Expected 1 deleted row, got %d", deleted)
	}

	usage, err := store.GetDailyUsage(60)
	if err != nil {
		t.Fatalf("GetDailyUsage failed: %v", err)
	}
	total := 0
	for _, u := range usage {
		total += u.Calls
	}
	if total != 1 {
		t.Errorf("Expected only the recent metric to survive, got %d", total)
	}
}
