package storage

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// AppendMessage records a chat turn. ID and CreatedAt are filled in when
// empty.
func (s *Store) AppendMessage(m Message) (Message, error) {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC().Truncate(time.Second)
	}
	_, err := s.db.Exec(`INSERT INTO messages (id, user_id, role, content, created_at) VALUES (?, ?, ?, ?, ?)`,
		m.ID, m.UserID, m.Role, m.Content, ts(m.CreatedAt))
	if err != nil {
		return Message{}, fmt.Errorf("inserting message: %w", err)
	}
	return m, nil
}

// RecentMessages returns the last limit messages of userID, oldest first.
func (s *Store) RecentMessages(userID string, limit int) ([]Message, error) {
	rows, err := s.db.Query(`
		SELECT id, user_id, role, content, created_at FROM (
			SELECT rowid, id, user_id, role, content, created_at FROM messages
			WHERE user_id = ? ORDER BY rowid DESC LIMIT ?
		) ORDER BY rowid ASC`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Message
	for rows.Next() {
		var m Message
		var createdAt string
		if err := rows.Scan(&m.ID, &m.UserID, &m.Role, &m.Content, &createdAt); err != nil {
			return nil, err
		}
		if m.CreatedAt, err = parseTS("created_at", createdAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
