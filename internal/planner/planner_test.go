package planner

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"mumbai-meal-planner/internal/config"
	"mumbai-meal-planner/internal/llm"
	"mumbai-meal-planner/internal/menu"
	"mumbai-meal-planner/internal/prefs"
)

type MockTextGenerator struct {
	Response string
	Err      error
	Prompts  []string
}

func (m *MockTextGenerator) GenerateContent(ctx context.Context, prompt string) (llm.ContentResponse, error) {
	m.Prompts = append(m.Prompts, prompt)
	if m.Err != nil {
		return llm.ContentResponse{Attempts: 1}, m.Err
	}
	return llm.ContentResponse{Content: m.Response, Model: "m1", Attempts: 1}, nil
}

func (m *MockTextGenerator) lastPrompt(t *testing.T) string {
	t.Helper()
	if len(m.Prompts) == 0 {
		t.Fatal("Expected at least one prompt sent to the model")
	}
	return m.Prompts[len(m.Prompts)-1]
}

func newTestPlanner(t *testing.T, gen llm.TextGenerator) (*Planner, *menu.PlanStore, *prefs.Store) {
	t.Helper()
	store, err := prefs.NewStore(filepath.Join(t.TempDir(), "memory.json"))
	if err != nil {
		t.Fatalf("Failed to create preferences store: %v", err)
	}
	plans := menu.NewPlanStore()
	cal := NewCalendar(time.UTC, time.Monday, 5)
	cal.Now = func() time.Time { return time.Date(2026, 8, 24, 9, 0, 0, 0, time.UTC) }
	cfg := &config.Config{
		VarietyWindowDays: 5,
		RichIngredient:    "paneer",
		RichAlternatives:  []string{"soya", "tofu"},
	}
	return NewPlanner(gen, store, plans, cal, cfg), plans, store
}

const menuJSON = `{
  "breakfast": {"dish": "Poha", "desc": "light and lemony", "calories": "350 kcal"},
  "lunch": {"dish": "Rajma Chawal", "desc": "comfort bowl", "calories": "550 kcal"},
  "dinner": {"dish": "Khichdi", "desc": "soothing", "calories": "420 kcal"},
  "message": "Soak rajma overnight."
}`

func TestGenerateDayStoresMenu(t *testing.T) {
	gen := &MockTextGenerator{Response: "Here you go!\n```json\n" + menuJSON + "\n```"}
	p, plans, _ := newTestPlanner(t, gen)

	dm, meta, err := p.GenerateDay(context.Background(), "2026-08-24")
	if err != nil {
		t.Fatalf("GenerateDay failed: %v", err)
	}
	if dm.Breakfast.Dish != "Poha" || dm.Dinner.Dish != "Khichdi" {
		t.Errorf("Unexpected menu: %+v", dm)
	}
	if !meta.OK || meta.Model != "m1" || meta.Attempts != 1 {
		t.Errorf("Unexpected call meta: %+v", meta)
	}

	stored, ok := plans.Get("2026-08-24")
	if !ok || stored.Lunch.Dish != "Rajma Chawal" {
		t.Errorf("Expected the menu stored for the date, got %+v (ok=%v)", stored, ok)
	}

	prompt := gen.lastPrompt(t)
	if !strings.Contains(prompt, "Broccoli") {
		t.Error("Expected default dislikes in the prompt")
	}
	if !strings.Contains(prompt, "Monday") {
		t.Error("Expected the weekday name in the prompt")
	}
	if !strings.Contains(prompt, "Weekend Mode: NO") {
		t.Error("Expected weekend mode off for a Monday")
	}
}

func TestGenerateDayWeekendReminder(t *testing.T) {
	gen := &MockTextGenerator{Response: menuJSON}
	p, _, _ := newTestPlanner(t, gen)

	// 2026-08-29 is a Saturday.
	if _, _, err := p.GenerateDay(context.Background(), "2026-08-29"); err != nil {
		t.Fatalf("GenerateDay failed: %v", err)
	}
	if !strings.Contains(gen.lastPrompt(t), "YES (Remind to check headcount)") {
		t.Error("Expected the headcount reminder on a weekend")
	}
}

func TestGenerateDayVarietyList(t *testing.T) {
	gen := &MockTextGenerator{Response: menuJSON}
	p, plans, _ := newTestPlanner(t, gen)

	plans.Put("2026-08-22", menu.DayMenu{Lunch: menu.MealEntry{Dish: "Chole Bhature"}})
	plans.Put("2026-08-26", menu.DayMenu{Dinner: menu.MealEntry{Dish: "Veg Biryani"}})

	if _, _, err := p.GenerateDay(context.Background(), "2026-08-24"); err != nil {
		t.Fatalf("GenerateDay failed: %v", err)
	}

	prompt := gen.lastPrompt(t)
	if !strings.Contains(prompt, "Chole Bhature") || !strings.Contains(prompt, "Veg Biryani") {
		t.Errorf("Expected planned dishes in the do-not-repeat list, prompt was:\n%s", prompt)
	}
}

func TestGenerateDayRichIngredientRule(t *testing.T) {
	gen := &MockTextGenerator{Response: menuJSON}
	p, plans, _ := newTestPlanner(t, gen)

	plans.Put("2026-08-23", menu.DayMenu{Dinner: menu.MealEntry{Dish: "Palak Paneer"}})

	if _, _, err := p.GenerateDay(context.Background(), "2026-08-24"); err != nil {
		t.Fatalf("GenerateDay failed: %v", err)
	}

	prompt := gen.lastPrompt(t)
	if !strings.Contains(prompt, "two days running") {
		t.Errorf("Expected the rich-ingredient substitution rule, prompt was:\n%s", prompt)
	}
	if !strings.Contains(prompt, "soya, tofu") {
		t.Error("Expected the alternative set in the prompt")
	}
}

func TestGenerateDayFailurePreservesStoredMenu(t *testing.T) {
	gen := &MockTextGenerator{Response: "I cannot help with that."}
	p, plans, _ := newTestPlanner(t, gen)

	prior := menu.DayMenu{Breakfast: menu.MealEntry{Dish: "Upma"}}
	plans.Put("2026-08-24", prior)

	_, meta, err := p.GenerateDay(context.Background(), "2026-08-24")
	if err == nil {
		t.Fatal("Expected an extraction error, got nil")
	}
	if meta.OK {
		t.Error("Expected call meta to record the failure")
	}

	stored, _ := plans.Get("2026-08-24")
	if stored.Breakfast.Dish != "Upma" {
		t.Errorf("Expected the prior menu preserved, got %+v", stored)
	}
}

func TestApplyFeedbackRequiresExistingMenu(t *testing.T) {
	p, _, _ := newTestPlanner(t, &MockTextGenerator{Response: menuJSON})

	_, _, err := p.ApplyFeedback(context.Background(), "2026-08-24", "less oil please")
	if !errors.Is(err, ErrNoMenuForDate) {
		t.Fatalf("Expected ErrNoMenuForDate, got %v", err)
	}
}

func TestApplyFeedbackReplacesMenu(t *testing.T) {
	updated := `{"breakfast":{"dish":"Thepla"},"lunch":{"dish":"Rajma Chawal"},"dinner":{"dish":"Khichdi"}}`
	gen := &MockTextGenerator{Response: updated}
	p, plans, _ := newTestPlanner(t, gen)

	plans.Put("2026-08-24", menu.DayMenu{Breakfast: menu.MealEntry{Dish: "Poha"}})

	dm, _, err := p.ApplyFeedback(context.Background(), "2026-08-24", "no poha, something Gujarati")
	if err != nil {
		t.Fatalf("ApplyFeedback failed: %v", err)
	}
	if dm.Breakfast.Dish != "Thepla" {
		t.Errorf("Expected updated breakfast, got '%s'", dm.Breakfast.Dish)
	}

	prompt := gen.lastPrompt(t)
	if !strings.Contains(prompt, "no poha, something Gujarati") {
		t.Error("Expected the feedback text in the prompt")
	}
	if !strings.Contains(prompt, `"dish":"Poha"`) {
		t.Error("Expected the current menu JSON in the prompt")
	}
}

func TestApplyFeedbackFailureLeavesStoreUntouched(t *testing.T) {
	gen := &MockTextGenerator{Err: llm.ErrNoCompletion}
	p, plans, _ := newTestPlanner(t, gen)

	prior := menu.DayMenu{Breakfast: menu.MealEntry{Dish: "Poha"}}
	plans.Put("2026-08-24", prior)

	if _, _, err := p.ApplyFeedback(context.Background(), "2026-08-24", "change it"); err == nil {
		t.Fatal("Expected an error, got nil")
	}

	stored, _ := plans.Get("2026-08-24")
	if stored.Breakfast.Dish != "Poha" {
		t.Errorf("Expected prior menu preserved, got %+v", stored)
	}
}

func TestSwapMealReplacesOnlyRequestedSlot(t *testing.T) {
	gen := &MockTextGenerator{Response: `{"dish":"Pav Bhaji","desc":"street style","calories":"600 kcal"}`}
	p, plans, _ := newTestPlanner(t, gen)

	plans.Put("2026-08-24", menu.DayMenu{
		Breakfast: menu.MealEntry{Dish: "Poha"},
		Lunch:     menu.MealEntry{Dish: "Rajma Chawal"},
		Dinner:    menu.MealEntry{Dish: "Khichdi"},
		Message:   "note stays",
	})

	dm, _, err := p.SwapMeal(context.Background(), "2026-08-24", menu.Lunch)
	if err != nil {
		t.Fatalf("SwapMeal failed: %v", err)
	}
	if dm.Lunch.Dish != "Pav Bhaji" {
		t.Errorf("Expected swapped lunch, got '%s'", dm.Lunch.Dish)
	}
	if dm.Breakfast.Dish != "Poha" || dm.Dinner.Dish != "Khichdi" || dm.Message != "note stays" {
		t.Errorf("Expected other slots untouched, got %+v", dm)
	}
}

func TestLearnConstraints(t *testing.T) {
	gen := &MockTextGenerator{Response: `{"constraints":["No broccoli"]}`}
	p, _, store := newTestPlanner(t, gen)

	learned, _, err := p.LearnConstraints(context.Background(), "I hate broccoli")
	if err != nil {
		t.Fatalf("LearnConstraints failed: %v", err)
	}
	if len(learned) != 1 || learned[0] != "No broccoli" {
		t.Errorf("Expected ['No broccoli'], got %v", learned)
	}

	found := false
	for _, d := range store.Preferences().Dislikes {
		if d == "No broccoli" {
			found = true
		}
	}
	if !found {
		t.Error("Expected the learned constraint persisted to preferences")
	}

	// Learning the same constraint again is a no-op.
	learned, _, err = p.LearnConstraints(context.Background(), "I hate broccoli")
	if err != nil {
		t.Fatalf("LearnConstraints failed: %v", err)
	}
	if len(learned) != 0 {
		t.Errorf("Expected no new constraints on repeat, got %v", learned)
	}
}

func TestLearnConstraintsNoneFound(t *testing.T) {
	gen := &MockTextGenerator{Response: `{"constraints":[]}`}
	p, _, store := newTestPlanner(t, gen)

	before := len(store.Preferences().Dislikes)
	learned, _, err := p.LearnConstraints(context.Background(), "change dinner")
	if err != nil {
		t.Fatalf("LearnConstraints failed: %v", err)
	}
	if len(learned) != 0 {
		t.Errorf("Expected nothing learned, got %v", learned)
	}
	if len(store.Preferences().Dislikes) != before {
		t.Error("Expected preferences unchanged")
	}
}
