// Package ingest runs the background half of document uploads: a queued
// document is sent through structured extraction and the result merged into
// the owner's profile.
package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/kalambet/resumesync/internal/extract"
	"github.com/kalambet/resumesync/internal/profile"
	"github.com/kalambet/resumesync/internal/storage"
)

// JobTypeProfileExtract is the queue type for document extraction jobs.
const JobTypeProfileExtract = "profile_extract"

// JobStore abstracts the job queue and document operations.
type JobStore interface {
	EnqueueJob(job storage.Job) error
	ClaimNextJob(types []string) (*storage.Job, error)
	CompleteJob(id string) error
	FailJob(id string, errMsg string) error
	GetDocument(id string) (storage.Document, error)
	SetDocumentStatus(id, status, errMsg string) error
}

// Extractor turns free text into a profile fragment.
type Extractor interface {
	Extract(ctx context.Context, text string, hint profile.Profile) (*extract.Result, error)
}

// ProfileApplier merges fragments into stored profiles.
type ProfileApplier interface {
	Get(userID string) (profile.Profile, error)
	Apply(userID string, f *profile.Fragment) (profile.Profile, bool, error)
}

// Worker processes profile_extract jobs from the SQLite job queue.
type Worker struct {
	store     JobStore
	extractor Extractor
	profiles  ProfileApplier
	poll      time.Duration
	logger    *slog.Logger
}

// NewWorker creates a Worker. A pollInterval <= 0 defaults to 500ms.
func NewWorker(store JobStore, extractor Extractor, profiles ProfileApplier, pollInterval time.Duration) *Worker {
	if pollInterval <= 0 {
		pollInterval = 500 * time.Millisecond
	}
	return &Worker{
		store:     store,
		extractor: extractor,
		profiles:  profiles,
		poll:      pollInterval,
		logger:    slog.Default(),
	}
}

// Enqueue schedules extraction of a stored document.
func Enqueue(store JobStore, documentID string) (string, error) {
	payload, err := json.Marshal(extractPayload{DocumentID: documentID})
	if err != nil {
		return "", err
	}
	job := storage.Job{
		ID:          uuid.New().String(),
		Type:        JobTypeProfileExtract,
		PayloadJSON: string(payload),
	}
	if err := store.EnqueueJob(job); err != nil {
		return "", fmt.Errorf("enqueueing extraction of %s: %w", documentID, err)
	}
	return job.ID, nil
}

// Run polls for jobs until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}

		done, err := w.RunOnce(ctx)
		if err != nil {
			w.logger.Error("worker iteration failed", "error", err)
		}
		if done {
			continue
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(w.poll):
		}
	}
}

// RunOnce claims and processes a single job. It reports whether a job was
// claimed, regardless of its outcome.
func (w *Worker) RunOnce(ctx context.Context) (bool, error) {
	job, err := w.store.ClaimNextJob([]string{JobTypeProfileExtract})
	if err != nil {
		return false, fmt.Errorf("claiming job: %w", err)
	}
	if job == nil {
		return false, nil
	}

	if err := w.processJob(ctx, job); err != nil {
		w.logger.Warn("job failed", "job_id", job.ID, "error", err)
		if failErr := w.store.FailJob(job.ID, err.Error()); failErr != nil {
			w.logger.Error("failed to mark job as failed", "job_id", job.ID, "error", failErr)
		}
		return true, nil
	}

	if err := w.store.CompleteJob(job.ID); err != nil {
		return true, fmt.Errorf("completing job %s: %w", job.ID, err)
	}
	return true, nil
}

type extractPayload struct {
	DocumentID string `json:"document_id"`
}

func (w *Worker) processJob(ctx context.Context, job *storage.Job) error {
	var payload extractPayload
	if err := json.Unmarshal([]byte(job.PayloadJSON), &payload); err != nil {
		return fmt.Errorf("parsing payload: %w", err)
	}

	doc, err := w.store.GetDocument(payload.DocumentID)
	if err != nil {
		return fmt.Errorf("loading document %s: %w", payload.DocumentID, err)
	}

	hint, err := w.profiles.Get(doc.UserID)
	if err != nil {
		return fmt.Errorf("loading profile: %w", err)
	}

	res, err := w.extractor.Extract(ctx, doc.Text, hint)
	if err != nil {
		if statusErr := w.store.SetDocumentStatus(doc.ID, storage.DocFailed, err.Error()); statusErr != nil {
			w.logger.Error("failed to record document status", "document_id", doc.ID, "error", statusErr)
		}
		return fmt.Errorf("extracting document %s: %w", doc.ID, err)
	}

	// Output the model could not structure is not worth retrying.
	if res.Fragment == nil {
		w.logger.Info("no profile data in document", "document_id", doc.ID)
		return w.store.SetDocumentStatus(doc.ID, storage.DocNoData, "")
	}

	_, changed, err := w.profiles.Apply(doc.UserID, res.Fragment)
	if err != nil {
		return fmt.Errorf("applying fragment: %w", err)
	}
	w.logger.Info("document processed", "document_id", doc.ID, "user_id", doc.UserID, "profile_changed", changed)
	return w.store.SetDocumentStatus(doc.ID, storage.DocProcessed, "")
}
