package planner

import (
	"fmt"
	"time"

	"mumbai-meal-planner/internal/menu"
)

// Day is one cell of the date strip shown to the user.
type Day struct {
	Date    string `json:"date"`
	Weekday string `json:"weekday"`
	DayNum  int    `json:"day"`
	Weekend bool   `json:"weekend"`
	Today   bool   `json:"today"`
}

// Calendar anchors "today" in a fixed offset zone and knows which days count
// as the weekend under the configured week-start convention.
type Calendar struct {
	Loc       *time.Location
	WeekStart time.Weekday
	Days      int

	// Now is swapped out in tests.
	Now func() time.Time
}

// NewCalendar creates a calendar for the planning window.
func NewCalendar(loc *time.Location, weekStart time.Weekday, days int) Calendar {
	return Calendar{Loc: loc, WeekStart: weekStart, Days: days, Now: time.Now}
}

// Today returns the current date key in the calendar's zone.
func (c Calendar) Today() string {
	return c.Now().In(c.Loc).Format(menu.DateLayout)
}

// Window returns the fixed forward window of days anchored at today.
func (c Calendar) Window() []Day {
	start := c.Now().In(c.Loc)
	out := make([]Day, 0, c.Days)
	for i := 0; i < c.Days; i++ {
		d := start.AddDate(0, 0, i)
		out = append(out, Day{
			Date:    d.Format(menu.DateLayout),
			Weekday: d.Weekday().String(),
			DayNum:  d.Day(),
			Weekend: c.IsWeekend(d),
			Today:   i == 0,
		})
	}
	return out
}

// IsWeekend reports whether t falls on the weekend: the last two days of the
// week under the configured week-start convention.
func (c Calendar) IsWeekend(t time.Time) bool {
	index := (int(t.Weekday()) - int(c.WeekStart) + 7) % 7
	return index >= 5
}

// DayInfo resolves an ISO date key to its weekday name and weekend flag.
func (c Calendar) DayInfo(date string) (weekday string, weekend bool, err error) {
	t, err := time.ParseInLocation(menu.DateLayout, date, c.Loc)
	if err != nil {
		return "", false, fmt.Errorf("invalid date %q: %w", date, err)
	}
	return t.Weekday().String(), c.IsWeekend(t), nil
}
