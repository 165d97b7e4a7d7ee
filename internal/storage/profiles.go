package storage

import (
	"database/sql"
	"errors"
	"time"
)

// GetProfileData returns the stored profile JSON for userID.
func (s *Store) GetProfileData(userID string) (string, error) {
	var data string
	err := s.db.QueryRow("SELECT data_json FROM profiles WHERE user_id = ?", userID).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	return data, err
}

// SaveProfileData upserts the profile JSON for userID.
func (s *Store) SaveProfileData(userID, data string) error {
	_, err := s.db.Exec(`
		INSERT INTO profiles (user_id, data_json, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET data_json = excluded.data_json, updated_at = excluded.updated_at`,
		userID, data, ts(time.Now()),
	)
	return err
}
