package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/kalambet/resumesync/internal/jobs"
	"github.com/kalambet/resumesync/internal/storage"
)

const maxJobsLimit = 50

func handleSearchJobs(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := jobs.Query{
			Text:     strings.TrimSpace(r.URL.Query().Get("q")),
			Location: strings.TrimSpace(r.URL.Query().Get("location")),
			Limit:    parseIntParam(r, "limit", deps.JobsLimit, maxJobsLimit),
		}
		if q.Text == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "q is required")
			return
		}

		listings, err := deps.Jobs.Search(r.Context(), q)
		if err != nil {
			httpError(w, http.StatusBadGateway, "api_error", "job search failed: %v", err)
			return
		}
		if listings == nil {
			listings = []jobs.Listing{}
		}
		writeJSON(w, http.StatusOK, listings)
	}
}

func handleRecommendJobs(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := deps.Profiles.Get(UserID(r.Context()))
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to get profile: %v", err)
			return
		}

		recs, err := jobs.Recommend(r.Context(), deps.Jobs, p)
		if err != nil {
			httpError(w, http.StatusBadGateway, "api_error", "job recommendations failed: %v", err)
			return
		}
		if recs == nil {
			recs = []jobs.Recommendation{}
		}
		writeJSON(w, http.StatusOK, recs)
	}
}

type SaveJobRequest struct {
	Title       string `json:"title" validate:"required,max=300"`
	Company     string `json:"company" validate:"max=300"`
	Location    string `json:"location" validate:"max=300"`
	URL         string `json:"url" validate:"required,url"`
	Remote      bool   `json:"remote"`
	Description string `json:"description"`
	Source      string `json:"source" validate:"max=50"`
	Notes       string `json:"notes"`
}

func handleSaveJob(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SaveJobRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		saved, created, err := deps.Store.SaveJob(storage.SavedJob{
			UserID:      UserID(r.Context()),
			Title:       req.Title,
			Company:     req.Company,
			Location:    req.Location,
			URL:         req.URL,
			Remote:      req.Remote,
			Description: req.Description,
			Source:      req.Source,
			Notes:       req.Notes,
		})
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to save job: %v", err)
			return
		}

		code := http.StatusOK
		if created {
			code = http.StatusCreated
		}
		writeJSON(w, code, saved)
	}
}

func handleListSavedJobs(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		saved, err := deps.Store.ListSavedJobs(UserID(r.Context()))
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to list saved jobs: %v", err)
			return
		}
		if saved == nil {
			saved = []storage.SavedJob{}
		}
		writeJSON(w, http.StatusOK, saved)
	}
}

type UpdateSavedJobRequest struct {
	Status *string `json:"status" validate:"omitnil,oneof=saved applied interviewing offer rejected"`
	Notes  *string `json:"notes"`
}

func handleUpdateSavedJob(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req UpdateSavedJobRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		if req.Status == nil && req.Notes == nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "nothing to update")
			return
		}

		saved, err := deps.Store.UpdateSavedJob(UserID(r.Context()), chi.URLParam(r, "id"),
			storage.SavedJobUpdate{Status: req.Status, Notes: req.Notes})
		if errors.Is(err, storage.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "saved job not found")
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to update saved job: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, saved)
	}
}

func handleDeleteSavedJob(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := deps.Store.DeleteSavedJob(UserID(r.Context()), chi.URLParam(r, "id"))
		if errors.Is(err, storage.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "saved job not found")
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to delete saved job: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
	}
}
