// Package menu holds the Day Menu data model and the in-memory plan store.
package menu

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// Defaults substituted at the rendering boundary for fields the model left
// out. They are applied only when a menu is consumed, never deeper in the
// pipeline.
const (
	DefaultDish     = "Food"
	DefaultCalories = "N/A"
)

// DateLayout is the ISO date key format used throughout.
const DateLayout = "2006-01-02"

// Slot names a meal slot within a day.
type Slot string

const (
	Breakfast Slot = "breakfast"
	Lunch     Slot = "lunch"
	Dinner    Slot = "dinner"
)

// Slots lists the meal slots in serving order.
var Slots = []Slot{Breakfast, Lunch, Dinner}

// ParseSlot validates a user-supplied slot name.
func ParseSlot(s string) (Slot, error) {
	switch Slot(strings.ToLower(strings.TrimSpace(s))) {
	case Breakfast:
		return Breakfast, nil
	case Lunch:
		return Lunch, nil
	case Dinner:
		return Dinner, nil
	}
	return "", fmt.Errorf("unknown meal slot: %q", s)
}

// MealEntry is one generated meal. All fields are free text from the model.
type MealEntry struct {
	Dish     string `json:"dish"`
	Desc     string `json:"desc"`
	Calories string `json:"calories"`
}

// Rendered returns the entry with documented defaults applied for any
// absent field.
func (e MealEntry) Rendered() MealEntry {
	if strings.TrimSpace(e.Dish) == "" {
		e.Dish = DefaultDish
	}
	if strings.TrimSpace(e.Calories) == "" {
		e.Calories = DefaultCalories
	}
	return e
}

// DayMenu is the three-meal plan for one calendar date. The extractor
// tolerates partial objects, so any slot may be empty here.
type DayMenu struct {
	Breakfast   MealEntry `json:"breakfast"`
	Lunch       MealEntry `json:"lunch"`
	Dinner      MealEntry `json:"dinner"`
	Message     string    `json:"message,omitempty"`
	Ingredients []string  `json:"ingredients,omitempty"`
}

// Entry returns the meal in the given slot.
func (m DayMenu) Entry(slot Slot) MealEntry {
	switch slot {
	case Breakfast:
		return m.Breakfast
	case Lunch:
		return m.Lunch
	case Dinner:
		return m.Dinner
	}
	return MealEntry{}
}

// SetEntry replaces the meal in the given slot.
func (m *DayMenu) SetEntry(slot Slot, e MealEntry) {
	switch slot {
	case Breakfast:
		m.Breakfast = e
	case Lunch:
		m.Lunch = e
	case Dinner:
		m.Dinner = e
	}
}

// Dishes returns the non-empty dish names of the day in serving order.
func (m DayMenu) Dishes() []string {
	var out []string
	for _, slot := range Slots {
		if dish := strings.TrimSpace(m.Entry(slot).Dish); dish != "" {
			out = append(out, dish)
		}
	}
	return out
}

// PlanStore maps ISO dates to day menus. It lives in memory only, grows
// monotonically during a session and is lost on restart.
type PlanStore struct {
	mu   sync.RWMutex
	days map[string]DayMenu
}

// NewPlanStore creates an empty plan store.
func NewPlanStore() *PlanStore {
	return &PlanStore{days: make(map[string]DayMenu)}
}

// Get returns the stored menu for a date, if any.
func (s *PlanStore) Get(date string) (DayMenu, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.days[date]
	return m, ok
}

// Put stores the menu for a date, replacing any previous one wholesale.
func (s *PlanStore) Put(date string, m DayMenu) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.days[date] = m
}

// Dates returns all planned dates in ascending order.
func (s *PlanStore) Dates() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.days))
	for d := range s.days {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}

// DishesAround collects the union of dishes planned within lookback days
// before and lookahead days after the given date, inclusive. Order follows
// the calendar; duplicates are dropped. The result feeds the do-not-repeat
// list in the generation prompt.
func (s *PlanStore) DishesAround(date string, lookback, lookahead int) ([]string, error) {
	anchor, err := time.Parse(DateLayout, date)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q: %w", date, err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]struct{})
	var out []string
	for off := -lookback; off <= lookahead; off++ {
		key := anchor.AddDate(0, 0, off).Format(DateLayout)
		m, ok := s.days[key]
		if !ok {
			continue
		}
		for _, dish := range m.Dishes() {
			lower := strings.ToLower(dish)
			if _, dup := seen[lower]; dup {
				continue
			}
			seen[lower] = struct{}{}
			out = append(out, dish)
		}
	}
	return out, nil
}
