package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kalambet/resumesync/internal/executor"
)

func TestOpenRouter_Generate(t *testing.T) {
	var got chatRequest
	var gotAuth string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %q", r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"gen-1","choices":[{"message":{"role":"assistant","content":"{\"summary\":\"hi\"}"}}]}`)
	}))
	defer srv.Close()

	g := NewOpenRouterWithBaseURL("test/model", srv.URL+"/")
	text, err := g.Generate(context.Background(), "key-1", Request{
		System:   "be terse",
		Messages: []Message{{Role: "user", Content: "hello"}},
		Schema:   Object(map[string]*Schema{"summary": String("")}),
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if text != `{"summary":"hi"}` {
		t.Errorf("text = %q", text)
	}
	if gotAuth != "Bearer key-1" {
		t.Errorf("Authorization = %q, want per-call credential", gotAuth)
	}
	if got.Model != "test/model" {
		t.Errorf("model = %q", got.Model)
	}
	if len(got.Messages) != 2 || got.Messages[0].Role != "system" || got.Messages[1].Content != "hello" {
		t.Errorf("messages = %+v", got.Messages)
	}
	if got.ResponseFormat == nil || got.ResponseFormat.Type != "json_schema" {
		t.Fatalf("response_format = %+v", got.ResponseFormat)
	}
	if got.ResponseFormat.JSONSchema.Schema["type"] != "object" {
		t.Errorf("schema = %v", got.ResponseFormat.JSONSchema.Schema)
	}
}

func TestOpenRouter_NoSchemaNoResponseFormat(t *testing.T) {
	var raw map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&raw)
		fmt.Fprint(w, `{"choices":[{"message":{"content":"plain"}}]}`)
	}))
	defer srv.Close()

	text, err := NewOpenRouterWithBaseURL("m", srv.URL).Generate(context.Background(), "k", Request{
		Messages: []Message{{Role: "user", Content: "hi"}},
	})
	if err != nil || text != "plain" {
		t.Fatalf("text=%q err=%v", text, err)
	}
	if _, ok := raw["response_format"]; ok {
		t.Error("response_format must be omitted without a schema")
	}
	if _, ok := raw["temperature"]; ok {
		t.Error("temperature must be omitted when zero")
	}
}

func TestOpenRouter_StatusErrors(t *testing.T) {
	tests := []struct {
		status   int
		terminal bool
		class    string
	}{
		{http.StatusTooManyRequests, false, executor.ClassRateLimit},
		{http.StatusServiceUnavailable, false, executor.ClassServer},
		{http.StatusUnauthorized, false, executor.ClassAuth},
		{http.StatusBadRequest, true, executor.ClassTerminal},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				fmt.Fprint(w, `{"error":{"message":"nope"}}`)
			}))
			defer srv.Close()

			_, err := NewOpenRouterWithBaseURL("m", srv.URL).Generate(context.Background(), "k", Request{})
			var pe *ProviderError
			if !errors.As(err, &pe) {
				t.Fatalf("expected ProviderError, got %v", err)
			}
			if pe.Status != tt.status {
				t.Errorf("status = %d", pe.Status)
			}
			if got := errors.Is(err, executor.ErrTerminal); got != tt.terminal {
				t.Errorf("Is(ErrTerminal) = %v, want %v", got, tt.terminal)
			}
			if got := executor.Classify(err); got != tt.class {
				t.Errorf("Classify = %q, want %q", got, tt.class)
			}
		})
	}
}

func TestOpenRouter_ErrorInsideOKBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"error":{"message":"upstream overloaded","code":502}}`)
	}))
	defer srv.Close()

	_, err := NewOpenRouterWithBaseURL("m", srv.URL).Generate(context.Background(), "k", Request{})
	var pe *ProviderError
	if !errors.As(err, &pe) || pe.Status != 502 {
		t.Fatalf("expected 502 ProviderError, got %v", err)
	}
}

func TestOpenRouter_EmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"choices":[]}`)
	}))
	defer srv.Close()

	_, err := NewOpenRouterWithBaseURL("m", srv.URL).Generate(context.Background(), "k", Request{})
	if !errors.Is(err, ErrEmptyResponse) {
		t.Fatalf("expected ErrEmptyResponse, got %v", err)
	}
}

func TestOpenRouter_RespectsContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewOpenRouterWithBaseURL("m", srv.URL).Generate(ctx, "k", Request{})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
