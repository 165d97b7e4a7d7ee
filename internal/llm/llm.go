// Package llm issues a single generation call against one provider using
// one credential. It never retries; rotation across credentials is the
// executor's job.
package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/kalambet/resumesync/internal/executor"
)

// Message is one turn of a conversation.
type Message struct {
	Role    string `json:"role"` // "user" or "assistant"
	Content string `json:"content"`
}

// Request is a provider-neutral generation request.
type Request struct {
	System      string
	Messages    []Message
	Schema      *Schema // nil for free-form text
	Temperature float32 // 0 leaves the provider default
}

// Generator turns a request into raw model text using a single credential.
type Generator interface {
	Generate(ctx context.Context, cred string, req Request) (string, error)
}

// Provider names accepted by New.
const (
	ProviderGemini     = "gemini"
	ProviderClaude     = "claude"
	ProviderOpenRouter = "openrouter"
)

var ErrUnknownProvider = errors.New("unknown llm provider")

// ErrEmptyResponse is returned when the provider answered without text.
var ErrEmptyResponse = errors.New("empty model response")

// New builds the generator for provider. baseURL may be empty.
func New(provider, model, baseURL string) (Generator, error) {
	switch provider {
	case ProviderGemini, "":
		return NewGemini(model, baseURL), nil
	case ProviderClaude:
		return NewClaude(model, baseURL), nil
	case ProviderOpenRouter:
		if baseURL != "" {
			return NewOpenRouterWithBaseURL(model, baseURL), nil
		}
		return NewOpenRouter(model), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, provider)
	}
}

// ProviderError is a non-success HTTP answer from a provider.
type ProviderError struct {
	Provider string
	Status   int
	Message  string
}

func (e *ProviderError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: HTTP %d %s", e.Provider, e.Status, http.StatusText(e.Status))
	}
	return fmt.Sprintf("%s: HTTP %d: %s", e.Provider, e.Status, e.Message)
}

func (e *ProviderError) StatusCode() int { return e.Status }

// Terminal reports whether every credential would fail the same way.
// Auth failures are credential-specific and stay eligible for rotation.
func (e *ProviderError) Terminal() bool {
	switch e.Status {
	case http.StatusUnauthorized, http.StatusForbidden, http.StatusRequestTimeout, http.StatusTooManyRequests:
		return false
	}
	return e.Status >= 400 && e.Status < 500
}

func (e *ProviderError) Is(target error) bool {
	return target == executor.ErrTerminal && e.Terminal()
}
