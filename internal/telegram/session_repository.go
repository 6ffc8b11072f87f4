package telegram

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Session tracks which date a chat is currently working on, so free-text
// feedback lands on the right menu.
type Session struct {
	ChatID    int64
	State     string
	MenuDate  string
	UpdatedAt time.Time
}

// SessionRepository provides access to session persistence operations
type SessionRepository struct {
	db *sql.DB
}

// NewSessionRepository creates a new SessionRepository instance
func NewSessionRepository(db *sql.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// Upsert stores or replaces the session for a chat.
func (sr *SessionRepository) Upsert(ctx context.Context, chatID int64, state, menuDate string) error {
	_, err := sr.db.ExecContext(ctx,
		`INSERT INTO sessions (chat_id, state, menu_date, updated_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(chat_id) DO UPDATE SET state = excluded.state, menu_date = excluded.menu_date, updated_at = excluded.updated_at`,
		chatID, state, menuDate, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert session: %w", err)
	}
	return nil
}

// Get returns the session for a chat, or nil when none exists.
func (sr *SessionRepository) Get(ctx context.Context, chatID int64) (*Session, error) {
	row := sr.db.QueryRowContext(ctx,
		`SELECT chat_id, state, menu_date, updated_at FROM sessions WHERE chat_id = ?`, chatID)

	var s Session
	if err := row.Scan(&s.ChatID, &s.State, &s.MenuDate, &s.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	return &s, nil
}

// Delete removes the session for a chat.
func (sr *SessionRepository) Delete(ctx context.Context, chatID int64) error {
	if _, err := sr.db.ExecContext(ctx, `DELETE FROM sessions WHERE chat_id = ?`, chatID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}
