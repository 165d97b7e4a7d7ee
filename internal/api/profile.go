package api

import (
	"net/http"

	"github.com/kalambet/resumesync/internal/profile"
)

func handleGetProfile(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := deps.Profiles.Get(UserID(r.Context()))
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to get profile: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, p)
	}
}

// handlePutProfile stores an explicit user edit as-is; merge rules only
// protect the profile from extraction.
func handlePutProfile(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var p profile.Profile
		if !decodeJSON(w, r, &p) {
			return
		}
		if err := deps.Profiles.Replace(UserID(r.Context()), p); err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to save profile: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, p)
	}
}

type EnhanceResponse struct {
	Enhanced bool            `json:"enhanced"`
	Profile  profile.Profile `json:"profile"`
}

func handleEnhanceProfile(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := UserID(r.Context())

		current, err := deps.Profiles.Get(userID)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to get profile: %v", err)
			return
		}

		enh, err := deps.Extractor.Enhance(r.Context(), current)
		if err != nil {
			modelError(w, deps, err)
			return
		}
		if enh == nil {
			writeJSON(w, http.StatusOK, EnhanceResponse{Profile: current})
			return
		}

		updated, changed, err := deps.Profiles.Update(userID, func(p profile.Profile) profile.Profile {
			return profile.ApplyEnhancement(p, *enh)
		})
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to save profile: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, EnhanceResponse{Enhanced: changed, Profile: updated})
	}
}
