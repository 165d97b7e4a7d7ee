package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

func (s *Store) SaveDocument(d Document) error {
	now := time.Now()
	if d.CreatedAt.IsZero() {
		d.CreatedAt = now
	}
	if d.Status == "" {
		d.Status = DocQueued
	}
	_, err := s.db.Exec(`
		INSERT INTO documents (id, user_id, filename, content_type, text, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.UserID, d.Filename, d.ContentType, d.Text, d.Status, ts(d.CreatedAt), ts(now),
	)
	if err != nil {
		return fmt.Errorf("inserting document: %w", err)
	}
	return nil
}

func (s *Store) GetDocument(id string) (Document, error) {
	row := s.db.QueryRow(`
		SELECT id, user_id, filename, content_type, text, status, error, created_at, updated_at
		FROM documents WHERE id = ?`, id)
	d, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Document{}, ErrNotFound
	}
	return d, err
}

// SetDocumentStatus records the processing outcome of a document.
func (s *Store) SetDocumentStatus(id, status, errMsg string) error {
	return rowsAffected(s.db.Exec(
		`UPDATE documents SET status = ?, error = NULLIF(?, ''), updated_at = ? WHERE id = ?`,
		status, errMsg, ts(time.Now()), id,
	))
}

// ListDocuments returns the newest documents of userID first.
func (s *Store) ListDocuments(userID string, limit int) ([]Document, error) {
	rows, err := s.db.Query(`
		SELECT id, user_id, filename, content_type, text, status, error, created_at, updated_at
		FROM documents WHERE user_id = ? ORDER BY created_at DESC, rowid DESC LIMIT ?`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDocument(sc scanner) (Document, error) {
	var d Document
	var errMsg sql.NullString
	var createdAt, updatedAt string
	if err := sc.Scan(&d.ID, &d.UserID, &d.Filename, &d.ContentType, &d.Text, &d.Status, &errMsg, &createdAt, &updatedAt); err != nil {
		return Document{}, err
	}
	d.Error = errMsg.String

	var err error
	if d.CreatedAt, err = parseTS("created_at", createdAt); err != nil {
		return Document{}, err
	}
	if d.UpdatedAt, err = parseTS("updated_at", updatedAt); err != nil {
		return Document{}, err
	}
	return d, nil
}
