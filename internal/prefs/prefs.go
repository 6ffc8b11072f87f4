// Package prefs persists the household's food preferences as a single JSON
// file, rewritten wholesale on every mutation.
package prefs

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Preferences is the persisted memory: disliked ingredients/dishes in
// insertion order, plus a fixed diet tag.
type Preferences struct {
	Dislikes []string `json:"dislikes"`
	Diet     string   `json:"diet"`
}

// DefaultPreferences returns the household defaults used when no memory
// file exists yet.
func DefaultPreferences() Preferences {
	return Preferences{
		Dislikes: []string{"Mix Veg", "Broccoli", "Ghiya", "Bottle Gourd", "Idli", "Dosa", "Thalipeeth"},
		Diet:     "Vegetarian",
	}
}

// Store owns the preferences file. Reads happen once at construction; every
// mutation rewrites the whole file (last writer wins, single instance).
type Store struct {
	mu    sync.Mutex
	path  string
	prefs Preferences
}

// NewStore loads preferences from path if the file exists, otherwise starts
// from the defaults without writing.
func NewStore(path string) (*Store, error) {
	s := &Store{path: path, prefs: DefaultPreferences()}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("failed to read preferences file: %w", err)
	}

	var p Preferences
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to unmarshal preferences: %w", err)
	}
	s.prefs = p
	return s, nil
}

// Preferences returns a copy of the current preferences.
func (s *Store) Preferences() Preferences {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Preferences{
		Dislikes: append([]string(nil), s.prefs.Dislikes...),
		Diet:     s.prefs.Diet,
	}
}

// AddDislike appends a dislike and persists immediately. Duplicates (case
// insensitive) and blank items are ignored; the bool reports whether
// anything changed.
func (s *Store) AddDislike(item string) (bool, error) {
	item = strings.TrimSpace(item)
	if item == "" {
		return false, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, d := range s.prefs.Dislikes {
		if strings.EqualFold(d, item) {
			return false, nil
		}
	}

	s.prefs.Dislikes = append(s.prefs.Dislikes, item)
	if err := s.save(); err != nil {
		return false, err
	}
	return true, nil
}

// RemoveDislike deletes a dislike (case insensitive) and persists
// immediately. The bool reports whether the item was present.
func (s *Store) RemoveDislike(item string) (bool, error) {
	item = strings.TrimSpace(item)

	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.prefs.Dislikes[:0]
	removed := false
	for _, d := range s.prefs.Dislikes {
		if strings.EqualFold(d, item) {
			removed = true
			continue
		}
		kept = append(kept, d)
	}
	if !removed {
		return false, nil
	}

	s.prefs.Dislikes = kept
	if err := s.save(); err != nil {
		return false, err
	}
	return true, nil
}

// save rewrites the whole preferences file. Callers hold s.mu.
func (s *Store) save() error {
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create preferences directory: %w", err)
		}
	}

	data, err := json.MarshalIndent(s.prefs, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal preferences: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0644); err != nil {
		return fmt.Errorf("failed to write preferences file: %w", err)
	}
	return nil
}
