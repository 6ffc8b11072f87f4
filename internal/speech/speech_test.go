package speech

import (
	"context"
	"errors"
	"strings"
	"testing"

	"mumbai-meal-planner/internal/menu"
)

func TestNarration(t *testing.T) {
	dm := menu.DayMenu{
		Breakfast: menu.MealEntry{Dish: "Poha"},
		Lunch:     menu.MealEntry{Dish: "Rajma Chawal"},
		Dinner:    menu.MealEntry{Dish: "Khichdi"},
		Message:   "Soak rajma overnight.",
	}

	got := Narration("2026-08-24", dm)
	for _, want := range []string{"2026-08-24", "For breakfast, Poha.", "For lunch, Rajma Chawal.", "And for dinner, Khichdi.", "Soak rajma overnight."} {
		if !strings.Contains(got, want) {
			t.Errorf("Narration missing %q, got: %s", want, got)
		}
	}

	// Deterministic wording so audio files can be reused.
	if again := Narration("2026-08-24", dm); again != got {
		t.Error("Expected identical narration for identical input")
	}
}

func TestNarrationDefaultsMissingDishes(t *testing.T) {
	got := Narration("2026-08-24", menu.DayMenu{Lunch: menu.MealEntry{Dish: "Dal Rice"}})
	if !strings.Contains(got, "For breakfast, Food.") {
		t.Errorf("Expected the default dish name in narration, got: %s", got)
	}
	if strings.Contains(got, "One more thing") {
		t.Errorf("Expected no trailing note without a message, got: %s", got)
	}
}

type failingSynth struct{}

func (failingSynth) Synthesize(ctx context.Context, text, name string) (string, error) {
	return "", errors.New("tts backend down")
}

type okSynth struct{}

func (okSynth) Synthesize(ctx context.Context, text, name string) (string, error) {
	return "audio/" + name + ".mp3", nil
}

func TestQuietSwallowsFailures(t *testing.T) {
	file, err := Quiet{Next: failingSynth{}}.Synthesize(context.Background(), "hello", "day")
	if err != nil {
		t.Fatalf("Expected failures swallowed, got %v", err)
	}
	if file != "" {
		t.Errorf("Expected no file path on failure, got %s", file)
	}
}

func TestQuietPassesThroughSuccess(t *testing.T) {
	file, err := Quiet{Next: okSynth{}}.Synthesize(context.Background(), "hello", "day")
	if err != nil {
		t.Fatalf("Synthesize failed: %v", err)
	}
	if file != "audio/day.mp3" {
		t.Errorf("Unexpected file path: %s", file)
	}
}

func TestQuietWithNoBackend(t *testing.T) {
	file, err := Quiet{}.Synthesize(context.Background(), "hello", "day")
	if err != nil || file != "" {
		t.Errorf("Expected a no-op without a backend, got (%s, %v)", file, err)
	}
}
