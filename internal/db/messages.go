package db

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// StoredMessage is one persisted conversation message.
type StoredMessage struct {
	ID        string
	SessionID string
	Role      string
	Content   string
	CreatedAt time.Time
}

// EnsureSession creates the chat session row if it does not exist and
// refreshes its updated_at timestamp.
func (d *DB) EnsureSession(ctx context.Context, sessionID, userID string) error {
	if userID == "" {
		userID = "anonymous"
	}
	_, err := d.ExecContext(ctx, `
		INSERT INTO chat_sessions (id, user_id) VALUES (?, ?)
		ON CONFLICT(id) DO UPDATE SET updated_at = datetime('now')`,
		sessionID, userID)
	if err != nil {
		return fmt.Errorf("ensuring session: %w", err)
	}
	return nil
}

// AddMessage persists one conversation message.
func (d *DB) AddMessage(ctx context.Context, sessionID, role, content string) error {
	_, err := d.ExecContext(ctx, `
		INSERT INTO chat_messages (id, session_id, role, content) VALUES (?, ?, ?, ?)`,
		uuid.NewString(), sessionID, role, content)
	if err != nil {
		return fmt.Errorf("adding message: %w", err)
	}
	return nil
}

// Messages returns the most recent messages for a session in insertion
// order. Ordering is by the monotonic seq column; created_at has one-second
// resolution and cannot break ties. limit <= 0 returns everything.
func (d *DB) Messages(ctx context.Context, sessionID string, limit int) ([]StoredMessage, error) {
	query := `
		SELECT id, session_id, role, content, created_at FROM chat_messages
		WHERE session_id = ? ORDER BY seq`
	args := []any{sessionID}
	if limit > 0 {
		query = `
			SELECT id, session_id, role, content, created_at FROM (
				SELECT seq, id, session_id, role, content, created_at FROM chat_messages
				WHERE session_id = ? ORDER BY seq DESC LIMIT ?
			) ORDER BY seq`
		args = append(args, limit)
	}

	rows, err := d.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying messages: %w", err)
	}
	defer rows.Close()

	var out []StoredMessage
	for rows.Next() {
		var m StoredMessage
		if err := rows.Scan(&m.ID, &m.SessionID, &m.Role, &m.Content, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning message: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
