package api

import (
	"errors"
	"io"
	"net/http"
	"path/filepath"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/kalambet/resumesync/internal/document"
	"github.com/kalambet/resumesync/internal/ingest"
	"github.com/kalambet/resumesync/internal/storage"
)

const maxUploadSize = 10 << 20 // 10MB

type UploadResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// handleUploadDocument accepts a resume as multipart field "file", stores
// its text and queues it for profile extraction.
func handleUploadDocument(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
		defer r.Body.Close()

		file, header, err := r.FormFile("file")
		if err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "multipart field \"file\" is required: %v", err)
			return
		}
		defer file.Close()

		data, err := io.ReadAll(file)
		if err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "failed to read upload: %v", err)
			return
		}

		contentType := document.DetectType(header.Header.Get("Content-Type"), header.Filename, data)
		text, err := document.ExtractText(contentType, data)
		switch {
		case errors.Is(err, document.ErrUnsupportedType):
			httpError(w, http.StatusUnsupportedMediaType, "invalid_request_error", "%v", err)
			return
		case errors.Is(err, document.ErrNoText):
			httpError(w, http.StatusUnprocessableEntity, "invalid_request_error", "%v", err)
			return
		case err != nil:
			httpError(w, http.StatusUnprocessableEntity, "invalid_request_error", "failed to read document: %v", err)
			return
		}

		doc := storage.Document{
			ID:          uuid.New().String(),
			UserID:      UserID(r.Context()),
			Filename:    filepath.Base(header.Filename),
			ContentType: contentType,
			Text:        text,
		}
		if err := deps.Store.SaveDocument(doc); err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to save document: %v", err)
			return
		}
		if _, err := ingest.Enqueue(deps.Store, doc.ID); err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to enqueue extraction: %v", err)
			return
		}

		deps.logger().Info("document queued", "document_id", doc.ID, "content_type", contentType, "chars", len(text))
		writeJSON(w, http.StatusAccepted, UploadResponse{ID: doc.ID, Status: storage.DocQueued})
	}
}

func handleListDocuments(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := parseIntParam(r, "limit", 20, 100)

		docs, err := deps.Store.ListDocuments(UserID(r.Context()), limit)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to list documents: %v", err)
			return
		}
		if docs == nil {
			docs = []storage.Document{}
		}
		writeJSON(w, http.StatusOK, docs)
	}
}

func handleGetDocument(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doc, err := deps.Store.GetDocument(chi.URLParam(r, "id"))
		if errors.Is(err, storage.ErrNotFound) || (err == nil && doc.UserID != UserID(r.Context())) {
			httpError(w, http.StatusNotFound, "not_found", "document not found")
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to get document: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, doc)
	}
}
