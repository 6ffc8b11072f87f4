package planner

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"text/template"
	"time"

	"mumbai-meal-planner/internal/config"
	"mumbai-meal-planner/internal/extract"
	"mumbai-meal-planner/internal/llm"
	"mumbai-meal-planner/internal/menu"
	"mumbai-meal-planner/internal/prefs"
	"mumbai-meal-planner/internal/shared"

	"github.com/google/uuid"
)

//go:embed menu_prompt.md
var menuPrompt string

//go:embed feedback_prompt.md
var feedbackPrompt string

//go:embed swap_prompt.md
var swapPrompt string

//go:embed constraints_prompt.md
var constraintsPrompt string

// ErrNoMenuForDate is returned when feedback or a swap targets a date that
// has no generated menu yet.
var ErrNoMenuForDate = errors.New("no menu generated for this date yet")

// Planner turns user actions into prompts, runs them through the completion
// client, and stores the extracted menus.
type Planner struct {
	textGen llm.TextGenerator
	prefs   *prefs.Store
	plans   *menu.PlanStore
	cal     Calendar

	varietyWindow    int
	richIngredient   string
	richAlternatives []string
}

// NewPlanner creates a new Planner instance.
func NewPlanner(textGen llm.TextGenerator, prefStore *prefs.Store, plans *menu.PlanStore, cal Calendar, cfg *config.Config) *Planner {
	return &Planner{
		textGen:          textGen,
		prefs:            prefStore,
		plans:            plans,
		cal:              cal,
		varietyWindow:    cfg.VarietyWindowDays,
		richIngredient:   cfg.RichIngredient,
		richAlternatives: cfg.RichAlternatives,
	}
}

// GenerateDay produces a fresh three-meal menu for the date and stores it.
// On any failure the previously stored menu for the date is left untouched.
func (p *Planner) GenerateDay(ctx context.Context, date string) (menu.DayMenu, shared.CallMeta, error) {
	start := time.Now()
	meta := newCallMeta("generate")

	prompt, err := p.buildMenuPrompt(date)
	if err != nil {
		return menu.DayMenu{}, meta, err
	}

	resp, err := p.textGen.GenerateContent(ctx, prompt)
	fillCallMeta(&meta, resp, start)
	if err != nil {
		return menu.DayMenu{}, meta, fmt.Errorf("failed to generate menu: %w", err)
	}

	var dm menu.DayMenu
	if err := extract.Unmarshal(resp.Content, &dm); err != nil {
		return menu.DayMenu{}, meta, fmt.Errorf("menu response had no usable JSON: %w", err)
	}

	p.plans.Put(date, dm)
	meta.OK = true
	return dm, meta, nil
}

// ApplyFeedback re-submits the stored menu together with free-text feedback
// and replaces the stored menu only when a valid update comes back.
func (p *Planner) ApplyFeedback(ctx context.Context, date, feedback string) (menu.DayMenu, shared.CallMeta, error) {
	start := time.Now()
	meta := newCallMeta("feedback")

	current, ok := p.plans.Get(date)
	if !ok {
		return menu.DayMenu{}, meta, ErrNoMenuForDate
	}

	currentJSON, err := json.Marshal(current)
	if err != nil {
		return menu.DayMenu{}, meta, fmt.Errorf("failed to marshal current menu: %w", err)
	}

	prompt, err := render("feedback", feedbackPrompt, map[string]any{
		"CurrentMenu": string(currentJSON),
		"Feedback":    feedback,
		"Dislikes":    strings.Join(p.prefs.Preferences().Dislikes, ", "),
		"Diet":        p.prefs.Preferences().Diet,
	})
	if err != nil {
		return menu.DayMenu{}, meta, err
	}

	resp, err := p.textGen.GenerateContent(ctx, prompt)
	fillCallMeta(&meta, resp, start)
	if err != nil {
		return menu.DayMenu{}, meta, fmt.Errorf("failed to adjust menu: %w", err)
	}

	var updated menu.DayMenu
	if err := extract.Unmarshal(resp.Content, &updated); err != nil {
		return menu.DayMenu{}, meta, fmt.Errorf("adjusted menu had no usable JSON: %w", err)
	}

	p.plans.Put(date, updated)
	meta.OK = true
	return updated, meta, nil
}

// SwapMeal regenerates a single slot of an existing menu, leaving the other
// slots exactly as stored.
func (p *Planner) SwapMeal(ctx context.Context, date string, slot menu.Slot) (menu.DayMenu, shared.CallMeta, error) {
	start := time.Now()
	meta := newCallMeta("swap")

	current, ok := p.plans.Get(date)
	if !ok {
		return menu.DayMenu{}, meta, ErrNoMenuForDate
	}

	currentJSON, err := json.Marshal(current)
	if err != nil {
		return menu.DayMenu{}, meta, fmt.Errorf("failed to marshal current menu: %w", err)
	}

	avoid, err := p.plans.DishesAround(date, p.varietyWindow, p.varietyWindow)
	if err != nil {
		return menu.DayMenu{}, meta, err
	}

	pr := p.prefs.Preferences()
	prompt, err := render("swap", swapPrompt, map[string]any{
		"CurrentMenu": string(currentJSON),
		"Slot":        string(slot),
		"Diet":        pr.Diet,
		"Dislikes":    strings.Join(pr.Dislikes, ", "),
		"DoNotRepeat": strings.Join(avoid, ", "),
	})
	if err != nil {
		return menu.DayMenu{}, meta, err
	}

	resp, err := p.textGen.GenerateContent(ctx, prompt)
	fillCallMeta(&meta, resp, start)
	if err != nil {
		return menu.DayMenu{}, meta, fmt.Errorf("failed to swap %s: %w", slot, err)
	}

	var entry menu.MealEntry
	if err := extract.Unmarshal(resp.Content, &entry); err != nil {
		return menu.DayMenu{}, meta, fmt.Errorf("swap response had no usable JSON: %w", err)
	}

	current.SetEntry(slot, entry)
	p.plans.Put(date, current)
	meta.OK = true
	return current, meta, nil
}

// LearnConstraints asks the model whether the feedback contains a permanent
// dislike worth remembering. It returns the constraints it learned and
// persisted; failures here are never fatal to the caller.
func (p *Planner) LearnConstraints(ctx context.Context, feedback string) ([]string, shared.CallMeta, error) {
	start := time.Now()
	meta := newCallMeta("learn")

	prompt, err := render("constraints", constraintsPrompt, map[string]any{"Feedback": feedback})
	if err != nil {
		return nil, meta, err
	}

	resp, err := p.textGen.GenerateContent(ctx, prompt)
	fillCallMeta(&meta, resp, start)
	if err != nil {
		return nil, meta, fmt.Errorf("failed to extract constraints: %w", err)
	}

	var parsed struct {
		Constraints []string `json:"constraints"`
	}
	if err := extract.Unmarshal(resp.Content, &parsed); err != nil {
		return nil, meta, fmt.Errorf("constraint response had no usable JSON: %w", err)
	}

	var learned []string
	for _, c := range parsed.Constraints {
		added, err := p.prefs.AddDislike(c)
		if err != nil {
			return learned, meta, fmt.Errorf("failed to persist learned constraint: %w", err)
		}
		if added {
			learned = append(learned, c)
		}
	}
	meta.OK = true
	return learned, meta, nil
}

func (p *Planner) buildMenuPrompt(date string) (string, error) {
	weekday, weekend, err := p.cal.DayInfo(date)
	if err != nil {
		return "", err
	}

	avoid, err := p.plans.DishesAround(date, p.varietyWindow, p.varietyWindow)
	if err != nil {
		return "", err
	}

	pr := p.prefs.Preferences()
	return render("menu", menuPrompt, map[string]any{
		"Diet":             pr.Diet,
		"Dislikes":         strings.Join(pr.Dislikes, ", "),
		"Weekday":          weekday,
		"Weekend":          weekend,
		"DoNotRepeat":      strings.Join(avoid, ", "),
		"AvoidRich":        p.richUsedOn(previousDate(date)),
		"RichIngredient":   p.richIngredient,
		"RichAlternatives": strings.Join(p.richAlternatives, ", "),
	})
}

// richUsedOn reports whether the menu stored for the date mentions the rich
// ingredient category in any dish name.
func (p *Planner) richUsedOn(date string) bool {
	if p.richIngredient == "" || date == "" {
		return false
	}
	m, ok := p.plans.Get(date)
	if !ok {
		return false
	}
	for _, dish := range m.Dishes() {
		if strings.Contains(strings.ToLower(dish), strings.ToLower(p.richIngredient)) {
			return true
		}
	}
	return false
}

func previousDate(date string) string {
	t, err := time.Parse(menu.DateLayout, date)
	if err != nil {
		return ""
	}
	return t.AddDate(0, 0, -1).Format(menu.DateLayout)
}

func render(name, tmpl string, data map[string]any) (string, error) {
	t, err := template.New(name).Parse(tmpl)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func newCallMeta(operation string) shared.CallMeta {
	return shared.CallMeta{RequestID: uuid.NewString(), Operation: operation}
}

func fillCallMeta(meta *shared.CallMeta, resp llm.ContentResponse, start time.Time) {
	meta.Model = resp.Model
	meta.Attempts = resp.Attempts
	meta.Usage = resp.Usage
	meta.Latency = time.Since(start)
}
