package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/kalambet/resumesync/internal/extract"
)

type CoverLetterRequest struct {
	JobTitle       string `json:"job_title" validate:"required,max=200"`
	CompanyName    string `json:"company_name" validate:"required,max=200"`
	JobDescription string `json:"job_description" validate:"max=20000"`
	Tone           string `json:"tone" validate:"omitempty,oneof=professional enthusiastic creative"`
}

type CoverLetterResponse struct {
	CoverLetter string `json:"cover_letter"`
}

func handleCoverLetter(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CoverLetterRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		if strings.TrimSpace(req.JobTitle) == "" || strings.TrimSpace(req.CompanyName) == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "job_title and company_name are required")
			return
		}

		candidate, err := deps.Profiles.Get(UserID(r.Context()))
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to load profile: %v", err)
			return
		}

		letter, err := deps.Extractor.CoverLetter(r.Context(), extract.CoverLetterRequest{
			JobTitle:       strings.TrimSpace(req.JobTitle),
			Company:        strings.TrimSpace(req.CompanyName),
			JobDescription: req.JobDescription,
			Tone:           req.Tone,
		}, candidate)
		if err != nil {
			modelError(w, deps, err)
			return
		}
		writeJSON(w, http.StatusOK, CoverLetterResponse{CoverLetter: letter})
	}
}

// ScoreRequest scores ResumeText, or the caller's stored profile when it
// is empty.
type ScoreRequest struct {
	ResumeText string `json:"resume_text" validate:"max=65536"`
}

func handleScoreResume(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ScoreRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		text := strings.TrimSpace(req.ResumeText)
		if text == "" {
			p, err := deps.Profiles.Get(UserID(r.Context()))
			if err != nil {
				httpError(w, http.StatusInternalServerError, "api_error", "failed to load profile: %v", err)
				return
			}
			if p.IsEmpty() {
				httpError(w, http.StatusBadRequest, "invalid_request_error", "resume_text is required while the profile is empty")
				return
			}
			data, err := json.MarshalIndent(p, "", "  ")
			if err != nil {
				httpError(w, http.StatusInternalServerError, "api_error", "failed to render profile: %v", err)
				return
			}
			text = string(data)
		}

		score, err := deps.Extractor.ScoreResume(r.Context(), text)
		if err != nil {
			modelError(w, deps, err)
			return
		}
		writeJSON(w, http.StatusOK, score)
	}
}
