package storage

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// Message is one chat turn.
type Message struct {
	ID        string    `json:"id"`
	UserID    string    `json:"-"`
	Role      string    `json:"role"` // "user" or "assistant"
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// Document statuses.
const (
	DocQueued    = "queued"
	DocProcessed = "processed"
	DocNoData    = "no_data"
	DocFailed    = "failed"
)

// Document is an uploaded resume with its extracted text.
type Document struct {
	ID          string    `json:"id"`
	UserID      string    `json:"-"`
	Filename    string    `json:"filename"`
	ContentType string    `json:"content_type"`
	Text        string    `json:"-"`
	Status      string    `json:"status"`
	Error       string    `json:"error,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Saved job statuses.
const (
	SavedStatusSaved        = "saved"
	SavedStatusApplied      = "applied"
	SavedStatusInterviewing = "interviewing"
	SavedStatusOffer        = "offer"
	SavedStatusRejected     = "rejected"
)

// SavedJob is a job listing bookmarked by a user.
type SavedJob struct {
	ID          string     `json:"id"`
	UserID      string     `json:"-"`
	Title       string     `json:"title"`
	Company     string     `json:"company"`
	Location    string     `json:"location"`
	URL         string     `json:"url"`
	Remote      bool       `json:"remote"`
	Description string     `json:"description"`
	Source      string     `json:"source"`
	Status      string     `json:"status"`
	Notes       string     `json:"notes"`
	AppliedAt   *time.Time `json:"applied_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// SavedJobUpdate carries the optional fields of a saved job edit.
type SavedJobUpdate struct {
	Status *string
	Notes  *string
}

// Job is a background queue entry.
type Job struct {
	ID          string
	Type        string
	PayloadJSON string
	Status      string // "pending", "running", "completed", "failed"
	Attempts    int
	MaxAttempts int
	RunAfter    time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
	LastError   string
}
