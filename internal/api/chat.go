package api

import (
	"net/http"
	"strings"

	"github.com/kalambet/resumesync/internal/document"
	"github.com/kalambet/resumesync/internal/llm"
	"github.com/kalambet/resumesync/internal/profile"
	"github.com/kalambet/resumesync/internal/storage"
)

// chatHistoryLimit is how many earlier turns are replayed to the model.
const chatHistoryLimit = 20

type ChatRequest struct {
	Message string `json:"message" validate:"required,max=8000"`
}

type ChatResponse struct {
	Reply          string          `json:"reply"`
	ProfileUpdated bool            `json:"profile_updated"`
	Profile        profile.Profile `json:"profile"`
}

func handleChat(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ChatRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		if strings.TrimSpace(req.Message) == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "message is required")
			return
		}
		userID := UserID(r.Context())

		current, err := deps.Profiles.Get(userID)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to load profile: %v", err)
			return
		}
		past, err := deps.Store.RecentMessages(userID, chatHistoryLimit)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to load history: %v", err)
			return
		}
		history := make([]llm.Message, len(past))
		for i, m := range past {
			history[i] = llm.Message{Role: m.Role, Content: m.Content}
		}

		res, err := deps.Extractor.Chat(r.Context(), history, req.Message, current)
		if err != nil {
			modelError(w, deps, err)
			return
		}

		// The reply is already paid for; storage trouble must not lose it.
		for _, m := range []storage.Message{
			{UserID: userID, Role: "user", Content: req.Message},
			{UserID: userID, Role: "assistant", Content: res.Reply},
		} {
			if _, err := deps.Store.AppendMessage(m); err != nil {
				deps.logger().Error("failed to store chat message", "user_id", userID, "error", err)
			}
		}

		resp := ChatResponse{Reply: res.Reply, Profile: current}
		if res.Fragment != nil {
			updated, changed, err := deps.Profiles.Apply(userID, res.Fragment)
			if err != nil {
				deps.logger().Error("failed to apply chat extraction", "user_id", userID, "error", err)
			} else {
				resp.Profile, resp.ProfileUpdated = updated, changed
			}
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

type ExtractRequest struct {
	Text string `json:"text" validate:"required"`
}

type ExtractResponse struct {
	Fragment *profile.Fragment `json:"fragment"`
	Merged   bool              `json:"merged"`
	Profile  profile.Profile   `json:"profile"`
}

func handleExtract(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ExtractRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		if len(req.Text) > document.MaxTextLen {
			httpError(w, http.StatusRequestEntityTooLarge, "invalid_request_error", "text exceeds %d bytes", document.MaxTextLen)
			return
		}
		userID := UserID(r.Context())

		current, err := deps.Profiles.Get(userID)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to load profile: %v", err)
			return
		}

		res, err := deps.Extractor.Extract(r.Context(), req.Text, current)
		if err != nil {
			modelError(w, deps, err)
			return
		}

		resp := ExtractResponse{Fragment: res.Fragment, Profile: current}
		if res.Fragment != nil {
			updated, changed, err := deps.Profiles.Apply(userID, res.Fragment)
			if err != nil {
				httpError(w, http.StatusInternalServerError, "api_error", "failed to update profile: %v", err)
				return
			}
			resp.Profile, resp.Merged = updated, changed
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func handleListMessages(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := parseIntParam(r, "limit", 50, 200)

		msgs, err := deps.Store.RecentMessages(UserID(r.Context()), limit)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to list messages: %v", err)
			return
		}
		if msgs == nil {
			msgs = []storage.Message{}
		}
		writeJSON(w, http.StatusOK, msgs)
	}
}
