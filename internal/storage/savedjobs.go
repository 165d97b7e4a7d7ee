package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SaveJob bookmarks a listing. Saving a URL the user already saved returns
// the existing record and created == false.
func (s *Store) SaveJob(j SavedJob) (saved SavedJob, created bool, err error) {
	if j.ID == "" {
		j.ID = uuid.New().String()
	}
	if j.Status == "" {
		j.Status = SavedStatusSaved
	}
	if j.Source == "" {
		j.Source = "unknown"
	}
	j.CreatedAt = time.Now().UTC().Truncate(time.Second)

	res, err := s.db.Exec(`
		INSERT INTO saved_jobs (id, user_id, title, company, location, url, remote, description, source, status, notes, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, url) DO NOTHING`,
		j.ID, j.UserID, j.Title, j.Company, j.Location, j.URL, j.Remote, j.Description, j.Source, j.Status, j.Notes, ts(j.CreatedAt),
	)
	if err != nil {
		return SavedJob{}, false, fmt.Errorf("inserting saved job: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 1 {
		return j, true, nil
	}

	existing, err := s.getSavedJob(`user_id = ? AND url = ?`, j.UserID, j.URL)
	if err != nil {
		return SavedJob{}, false, err
	}
	return existing, false, nil
}

func (s *Store) GetSavedJob(userID, id string) (SavedJob, error) {
	return s.getSavedJob(`user_id = ? AND id = ?`, userID, id)
}

// ListSavedJobs returns the user's bookmarks, newest first.
func (s *Store) ListSavedJobs(userID string) ([]SavedJob, error) {
	rows, err := s.db.Query(savedJobColumns+` WHERE user_id = ? ORDER BY created_at DESC, rowid DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SavedJob
	for rows.Next() {
		j, err := scanSavedJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, j)
	}
	return out, rows.Err()
}

// UpdateSavedJob applies the non-nil fields of u. The first transition to
// "applied" stamps applied_at.
func (s *Store) UpdateSavedJob(userID, id string, u SavedJobUpdate) (SavedJob, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return SavedJob{}, fmt.Errorf("beginning update: %w", err)
	}
	defer tx.Rollback()

	if u.Status != nil {
		if _, err := tx.Exec(`UPDATE saved_jobs SET status = ? WHERE user_id = ? AND id = ?`, *u.Status, userID, id); err != nil {
			return SavedJob{}, err
		}
		if *u.Status == SavedStatusApplied {
			if _, err := tx.Exec(`UPDATE saved_jobs SET applied_at = ? WHERE user_id = ? AND id = ? AND applied_at IS NULL`,
				ts(time.Now()), userID, id); err != nil {
				return SavedJob{}, err
			}
		}
	}
	if u.Notes != nil {
		if _, err := tx.Exec(`UPDATE saved_jobs SET notes = ? WHERE user_id = ? AND id = ?`, *u.Notes, userID, id); err != nil {
			return SavedJob{}, err
		}
	}

	j, err := scanSavedJob(tx.QueryRow(savedJobColumns+` WHERE user_id = ? AND id = ?`, userID, id))
	if errors.Is(err, sql.ErrNoRows) {
		return SavedJob{}, ErrNotFound
	}
	if err != nil {
		return SavedJob{}, err
	}
	if err := tx.Commit(); err != nil {
		return SavedJob{}, fmt.Errorf("committing update: %w", err)
	}
	return j, nil
}

func (s *Store) DeleteSavedJob(userID, id string) error {
	return rowsAffected(s.db.Exec(`DELETE FROM saved_jobs WHERE user_id = ? AND id = ?`, userID, id))
}

const savedJobColumns = `SELECT id, user_id, title, company, location, url, remote, description, source, status, notes, applied_at, created_at FROM saved_jobs`

func (s *Store) getSavedJob(where string, args ...any) (SavedJob, error) {
	j, err := scanSavedJob(s.db.QueryRow(savedJobColumns+" WHERE "+where, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return SavedJob{}, ErrNotFound
	}
	return j, err
}

func scanSavedJob(sc scanner) (SavedJob, error) {
	var j SavedJob
	var appliedAt sql.NullString
	var createdAt string
	if err := sc.Scan(&j.ID, &j.UserID, &j.Title, &j.Company, &j.Location, &j.URL, &j.Remote,
		&j.Description, &j.Source, &j.Status, &j.Notes, &appliedAt, &createdAt); err != nil {
		return SavedJob{}, err
	}

	var err error
	if j.CreatedAt, err = parseTS("created_at", createdAt); err != nil {
		return SavedJob{}, err
	}
	if appliedAt.Valid {
		t, err := parseTS("applied_at", appliedAt.String)
		if err != nil {
			return SavedJob{}, err
		}
		j.AppliedAt = &t
	}
	return j, nil
}
