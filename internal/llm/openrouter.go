package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	defaultOpenRouterURL   = "https://openrouter.ai/api/v1"
	defaultOpenRouterModel = "google/gemini-2.5-flash"
	openRouterTimeout      = 60 * time.Second
	maxErrorBody           = 4 << 10
)

// OpenRouter generates through an OpenAI-compatible chat completions API.
type OpenRouter struct {
	model      string
	baseURL    string
	httpClient *http.Client
	referer    string
	title      string
}

func NewOpenRouter(model string) *OpenRouter {
	if model == "" {
		model = defaultOpenRouterModel
	}
	return &OpenRouter{
		model:   model,
		baseURL: defaultOpenRouterURL,
		httpClient: &http.Client{
			Timeout: openRouterTimeout,
		},
		referer: "https://github.com/kalambet/resumesync",
		title:   "resumesync",
	}
}

// NewOpenRouterWithBaseURL points the generator at a custom base URL (for testing).
func NewOpenRouterWithBaseURL(model, baseURL string) *OpenRouter {
	c := NewOpenRouter(model)
	c.baseURL = strings.TrimRight(baseURL, "/")
	return c
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	Temperature    *float32        `json:"temperature,omitempty"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type responseFormat struct {
	Type       string         `json:"type"`
	JSONSchema jsonSchemaSpec `json:"json_schema"`
}

type jsonSchemaSpec struct {
	Name   string         `json:"name"`
	Strict bool           `json:"strict"`
	Schema map[string]any `json:"schema"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Code    int    `json:"code"`
	} `json:"error,omitempty"`
}

func (c *OpenRouter) Generate(ctx context.Context, cred string, req Request) (string, error) {
	body, err := json.Marshal(c.buildRequest(req))
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	c.setHeaders(httpReq, cred)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return "", &ProviderError{Provider: "openrouter", Status: resp.StatusCode, Message: strings.TrimSpace(string(respBody))}
	}

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}
	// OpenRouter reports some upstream failures inside a 200 body.
	if out.Error != nil {
		status := out.Error.Code
		if status == 0 {
			status = http.StatusBadGateway
		}
		return "", &ProviderError{Provider: "openrouter", Status: status, Message: out.Error.Message}
	}
	if len(out.Choices) == 0 || out.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("openrouter: %w", ErrEmptyResponse)
	}
	return out.Choices[0].Message.Content, nil
}

func (c *OpenRouter) buildRequest(req Request) chatRequest {
	cr := chatRequest{Model: c.model}
	if req.System != "" {
		cr.Messages = append(cr.Messages, chatMessage{Role: "system", Content: req.System})
	}
	for _, m := range req.Messages {
		cr.Messages = append(cr.Messages, chatMessage{Role: m.Role, Content: m.Content})
	}
	if req.Temperature > 0 {
		t := req.Temperature
		cr.Temperature = &t
	}
	if req.Schema != nil {
		cr.ResponseFormat = &responseFormat{
			Type: "json_schema",
			JSONSchema: jsonSchemaSpec{
				Name:   "response",
				Schema: req.Schema.Map(),
			},
		}
	}
	return cr
}

func (c *OpenRouter) setHeaders(req *http.Request, cred string) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+cred)
	req.Header.Set("HTTP-Referer", c.referer)
	req.Header.Set("X-Title", c.title)
}
