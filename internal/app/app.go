package app

import (
	"context"
	"fmt"
	"log"

	"mumbai-meal-planner/internal/images"
	"mumbai-meal-planner/internal/menu"
	"mumbai-meal-planner/internal/planner"
	"mumbai-meal-planner/internal/prefs"
	"mumbai-meal-planner/internal/shared"
	"mumbai-meal-planner/internal/speech"
)

// Recorder persists call metadata. Failures to record are logged, never
// surfaced to the user.
type Recorder interface {
	RecordMeta(meta shared.CallMeta) error
}

// App holds the application's dependencies and exposes the user-facing
// operations shared by the web server and the Telegram bot.
type App struct {
	mealPlanner *planner.Planner
	prefStore   *prefs.Store
	plans       *menu.PlanStore
	cal         planner.Calendar
	imageCache  *images.Cache
	synth       speech.Synthesizer
	recorder    Recorder
}

// NewApp creates and initializes a new App instance.
func NewApp(
	mealPlanner *planner.Planner,
	prefStore *prefs.Store,
	plans *menu.PlanStore,
	cal planner.Calendar,
	imageCache *images.Cache,
	synth speech.Synthesizer,
	recorder Recorder,
) *App {
	return &App{
		mealPlanner: mealPlanner,
		prefStore:   prefStore,
		plans:       plans,
		cal:         cal,
		imageCache:  imageCache,
		synth:       synth,
		recorder:    recorder,
	}
}

// GenerateDay produces a fresh menu for the date. Old dish images are
// dropped from the cache so the new menu gets new art.
func (a *App) GenerateDay(ctx context.Context, date string) (menu.DayMenu, error) {
	dm, meta, err := a.mealPlanner.GenerateDay(ctx, date)
	a.record(meta)
	if err != nil {
		return menu.DayMenu{}, err
	}
	a.imageCache.Clear()
	return dm, nil
}

// ApplyFeedback adjusts the stored menu for the date and, as a best-effort
// side step, asks the model whether the feedback hides a permanent dislike
// worth remembering. Returns the updated menu and any newly learned
// constraints.
func (a *App) ApplyFeedback(ctx context.Context, date, feedback string) (menu.DayMenu, []string, error) {
	dm, meta, err := a.mealPlanner.ApplyFeedback(ctx, date, feedback)
	a.record(meta)
	if err != nil {
		return menu.DayMenu{}, nil, err
	}
	a.imageCache.Clear()

	learned, learnMeta, err := a.mealPlanner.LearnConstraints(ctx, feedback)
	a.record(learnMeta)
	if err != nil {
		log.Printf("Constraint learning skipped: %v", err)
		return dm, nil, nil
	}
	return dm, learned, nil
}

// SwapMeal regenerates a single slot of the stored menu for the date.
func (a *App) SwapMeal(ctx context.Context, date string, slot menu.Slot) (menu.DayMenu, error) {
	dm, meta, err := a.mealPlanner.SwapMeal(ctx, date, slot)
	a.record(meta)
	if err != nil {
		return menu.DayMenu{}, err
	}
	return dm, nil
}

// Menu returns the stored menu for the date.
func (a *App) Menu(date string) (menu.DayMenu, bool) {
	return a.plans.Get(date)
}

// Narrate synthesizes the spoken summary for the date's menu and returns
// the audio file path. An empty path means narration is unavailable.
func (a *App) Narrate(ctx context.Context, date string) (string, error) {
	dm, ok := a.plans.Get(date)
	if !ok {
		return "", planner.ErrNoMenuForDate
	}
	text := speech.Narration(date, dm)
	return speech.Quiet{Next: a.synth}.Synthesize(ctx, text, "menu-"+date)
}

// DishImage returns cached or freshly fetched art for a dish.
func (a *App) DishImage(ctx context.Context, dish string) images.Image {
	return a.imageCache.Fetch(ctx, dish)
}

// Preferences returns the current stored preferences.
func (a *App) Preferences() prefs.Preferences {
	return a.prefStore.Preferences()
}

// AddDislike appends an ingredient to the dislikes list.
func (a *App) AddDislike(item string) (bool, error) {
	added, err := a.prefStore.AddDislike(item)
	if err != nil {
		return false, fmt.Errorf("failed to add dislike: %w", err)
	}
	return added, nil
}

// RemoveDislike drops an ingredient from the dislikes list.
func (a *App) RemoveDislike(item string) (bool, error) {
	removed, err := a.prefStore.RemoveDislike(item)
	if err != nil {
		return false, fmt.Errorf("failed to remove dislike: %w", err)
	}
	return removed, nil
}

// Window returns the date strip for the planning window.
func (a *App) Window() []planner.Day {
	return a.cal.Window()
}

// Today returns today's date key in the configured zone.
func (a *App) Today() string {
	return a.cal.Today()
}

func (a *App) record(meta shared.CallMeta) {
	if a.recorder == nil {
		return
	}
	if err := a.recorder.RecordMeta(meta); err != nil {
		log.Printf("Warning: failed to record call metrics: %v", err)
	}
}
