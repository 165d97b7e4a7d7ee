// Package api exposes profile chat, extraction, document upload and job
// search over HTTP and MCP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/kalambet/resumesync/internal/executor"
	"github.com/kalambet/resumesync/internal/extract"
	"github.com/kalambet/resumesync/internal/jobs"
	"github.com/kalambet/resumesync/internal/llm"
	"github.com/kalambet/resumesync/internal/profile"
	"github.com/kalambet/resumesync/internal/storage"
)

const maxRequestBodySize = 1 << 20 // 1MB

// statusClientClosedRequest is nginx's code for a request the client
// abandoned before the response was ready.
const statusClientClosedRequest = 499

// Extractor is the model-backed half of the API.
type Extractor interface {
	Available() bool
	Extract(ctx context.Context, text string, hint profile.Profile) (*extract.Result, error)
	Chat(ctx context.Context, history []llm.Message, message string, hint profile.Profile) (*extract.ChatResult, error)
	Enhance(ctx context.Context, p profile.Profile) (*profile.Enhancement, error)
	CoverLetter(ctx context.Context, req extract.CoverLetterRequest, candidate profile.Profile) (string, error)
	ScoreResume(ctx context.Context, resume string) (*extract.Score, error)
}

type Deps struct {
	Store     *storage.Store
	Profiles  *profile.Manager
	Extractor Extractor
	Jobs      jobs.Searcher
	JobsLimit int // default page size for job search
	Token     string
	Logger    *slog.Logger // optional
}

func (d Deps) logger() *slog.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return slog.Default()
}

// NewHandler returns the HTTP API. /health is public; everything under
// /v1 requires the bearer token.
func NewHandler(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Get("/health", handleHealth(deps))

	r.Route("/v1", func(r chi.Router) {
		r.Use(BearerAuth(deps.Token))
		r.Use(WithUserID)

		r.Post("/chat", handleChat(deps))
		r.Post("/extract", handleExtract(deps))
		r.Get("/messages", handleListMessages(deps))

		r.Get("/profile", handleGetProfile(deps))
		r.Put("/profile", handlePutProfile(deps))
		r.Post("/profile/enhance", handleEnhanceProfile(deps))

		r.Post("/cover-letter", handleCoverLetter(deps))
		r.Post("/resume/score", handleScoreResume(deps))

		r.Post("/documents", handleUploadDocument(deps))
		r.Get("/documents", handleListDocuments(deps))
		r.Get("/documents/{id}", handleGetDocument(deps))

		r.Get("/jobs/search", handleSearchJobs(deps))
		r.Get("/jobs/recommendations", handleRecommendJobs(deps))
		r.Get("/jobs/saved", handleListSavedJobs(deps))
		r.Post("/jobs/saved", handleSaveJob(deps))
		r.Patch("/jobs/saved/{id}", handleUpdateSavedJob(deps))
		r.Delete("/jobs/saved/{id}", handleDeleteSavedJob(deps))
	})

	return r
}

func handleHealth(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"status":       "ok",
			"ai_available": deps.Extractor != nil && deps.Extractor.Available(),
		})
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// decodeJSON reads a size-limited JSON body into dst and validates its
// struct tags. It writes the 400 response itself and reports false on
// failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	defer r.Body.Close()

	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
		return false
	}
	if err := validate.Struct(dst); err != nil {
		var ve validator.ValidationErrors
		if errors.As(err, &ve) {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "%s", formatValidationErrors(ve))
			return false
		}
		httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request: %v", err)
		return false
	}
	return true
}

func formatValidationErrors(errs validator.ValidationErrors) string {
	msgs := make([]string, 0, len(errs))
	for _, e := range errs {
		field := strings.ToLower(e.Field())
		switch e.Tag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("%s is required", field))
		case "max":
			msgs = append(msgs, fmt.Sprintf("%s must be at most %s characters", field, e.Param()))
		case "oneof":
			msgs = append(msgs, fmt.Sprintf("%s must be one of: %s", field, e.Param()))
		case "url", "http_url":
			msgs = append(msgs, fmt.Sprintf("%s must be a valid URL", field))
		default:
			msgs = append(msgs, fmt.Sprintf("%s is invalid (%s)", field, e.Tag()))
		}
	}
	return strings.Join(msgs, "; ")
}

// modelError maps a failed model call to a response. Missing credentials
// is a configuration problem (503); exhausting every credential is an
// upstream outage the client may retry (502). A caller that went away is
// neither.
func modelError(w http.ResponseWriter, deps Deps, err error) {
	switch {
	case errors.Is(err, context.Canceled):
		deps.logger().Debug("model call abandoned by client", "error", err)
		httpError(w, statusClientClosedRequest, "request_cancelled", "request cancelled")
	case errors.Is(err, executor.ErrNoCredentials):
		httpError(w, http.StatusServiceUnavailable, "service_unavailable", "AI service is not configured")
	case errors.Is(err, executor.ErrAllCredentialsExhausted):
		deps.logger().Warn("model call failed on every credential", "error", err)
		httpError(w, http.StatusBadGateway, "api_error", "AI service unavailable, please try again")
	default:
		deps.logger().Error("model call failed", "error", err)
		httpError(w, http.StatusBadGateway, "api_error", "AI service error, please try again")
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	writeJSON(w, code, map[string]any{
		"error": map[string]any{
			"message": fmt.Sprintf(format, args...),
			"type":    errType,
		},
	})
}

func parseIntParam(r *http.Request, key string, defaultVal, maxVal int) int {
	s := r.URL.Query().Get(key)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil || v <= 0 {
		return defaultVal
	}
	if maxVal > 0 && v > maxVal {
		return maxVal
	}
	return v
}
