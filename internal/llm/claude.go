package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const (
	defaultClaudeModel     = "claude-sonnet-4-5"
	defaultClaudeMaxTokens = 4096
)

// Claude generates through the Anthropic Messages API. The API has no
// response schema parameter, so the schema is appended to the system prompt
// and the extractor's validation does the enforcing.
type Claude struct {
	model     string
	baseURL   string
	maxTokens int64
}

func NewClaude(model, baseURL string) *Claude {
	if model == "" {
		model = defaultClaudeModel
	}
	return &Claude{model: model, baseURL: baseURL, maxTokens: defaultClaudeMaxTokens}
}

func (c *Claude) Generate(ctx context.Context, cred string, req Request) (string, error) {
	opts := []option.RequestOption{
		option.WithAPIKey(cred),
		option.WithMaxRetries(0),
	}
	if c.baseURL != "" {
		opts = append(opts, option.WithBaseURL(c.baseURL))
	}
	client := anthropic.NewClient(opts...)

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: c.maxTokens,
		Messages:  claudeMessages(req.Messages),
	}
	if req.Temperature > 0 {
		params.Temperature = anthropic.Float(float64(req.Temperature))
	}

	system := req.System
	if req.Schema != nil {
		schemaJSON, err := json.Marshal(req.Schema.Map())
		if err != nil {
			return "", fmt.Errorf("marshalling schema: %w", err)
		}
		system = strings.TrimSpace(system + "\n\nRespond with a single JSON value that validates against this JSON schema, and nothing else:\n" + string(schemaJSON))
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}

	resp, err := client.Messages.New(ctx, params)
	if err != nil {
		var apiErr *anthropic.Error
		if errors.As(err, &apiErr) {
			return "", &ProviderError{Provider: "claude", Status: apiErr.StatusCode, Message: err.Error()}
		}
		return "", fmt.Errorf("claude generate: %w", err)
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return "", fmt.Errorf("claude: %w", ErrEmptyResponse)
	}
	return text.String(), nil
}

func claudeMessages(messages []Message) []anthropic.MessageParam {
	out := make([]anthropic.MessageParam, 0, len(messages))
	for _, m := range messages {
		if m.Role == "assistant" {
			out = append(out, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
			continue
		}
		out = append(out, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
	}
	return out
}
