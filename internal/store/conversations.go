package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	SenderUser      = "user"
	SenderAssistant = "assistant"
)

// Turn is one logged chat message. Turns are immutable once written and
// ordered by created_at within a session.
type Turn struct {
	ID         uuid.UUID
	SessionKey string
	Sender     string
	Text       string
	CreatedAt  time.Time
}

// AppendTurn writes one turn to the conversation log.
func (s *Store) AppendTurn(ctx context.Context, sessionKey, sender, text string) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO conversation_turns (id, session_key, sender, message_text, created_at)
		VALUES ($1, $2, $3, $4, now())`,
		uuid.New(), sessionKey, sender, text,
	)
	if err != nil {
		return fmt.Errorf("append turn: %w", err)
	}
	return nil
}

// Window returns the most recent n turns of a session in chronological order.
func (s *Store) Window(ctx context.Context, sessionKey string, n int) ([]Turn, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, session_key, sender, message_text, created_at
		FROM conversation_turns
		WHERE session_key = $1
		ORDER BY created_at DESC
		LIMIT $2`,
		sessionKey, n,
	)
	if err != nil {
		return nil, fmt.Errorf("query window: %w", err)
	}
	defer rows.Close()

	var turns []Turn
	for rows.Next() {
		var t Turn
		if err := rows.Scan(&t.ID, &t.SessionKey, &t.Sender, &t.Text, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan turn: %w", err)
		}
		turns = append(turns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate turns: %w", err)
	}

	// Query order is newest-first; callers want oldest-first.
	for i, j := 0, len(turns)-1; i < j; i, j = i+1, j-1 {
		turns[i], turns[j] = turns[j], turns[i]
	}
	return turns, nil
}
