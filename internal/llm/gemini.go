package llm

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"
)

const defaultGeminiModel = "gemini-2.5-flash"

// Gemini generates through the Google Gemini API. A client is built per
// call because every call may carry a different credential.
type Gemini struct {
	model   string
	baseURL string
}

func NewGemini(model, baseURL string) *Gemini {
	if model == "" {
		model = defaultGeminiModel
	}
	return &Gemini{model: model, baseURL: baseURL}
}

func (g *Gemini) Generate(ctx context.Context, cred string, req Request) (string, error) {
	cc := &genai.ClientConfig{
		APIKey:  cred,
		Backend: genai.BackendGeminiAPI,
	}
	if g.baseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: g.baseURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return "", fmt.Errorf("creating gemini client: %w", err)
	}

	config := &genai.GenerateContentConfig{}
	if req.Temperature > 0 {
		config.Temperature = genai.Ptr(req.Temperature)
	}
	if req.System != "" {
		config.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}
	if req.Schema != nil {
		config.ResponseMIMEType = "application/json"
		config.ResponseSchema = req.Schema.Gemini()
	}

	resp, err := client.Models.GenerateContent(ctx, g.model, geminiContents(req.Messages), config)
	if err != nil {
		return "", geminiError(err)
	}
	if resp == nil || len(resp.Candidates) == 0 {
		return "", fmt.Errorf("gemini: %w", ErrEmptyResponse)
	}

	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("gemini: %w", ErrEmptyResponse)
	}
	return text, nil
}

func geminiContents(messages []Message) []*genai.Content {
	contents := make([]*genai.Content, 0, len(messages))
	for _, m := range messages {
		role := genai.RoleUser
		if m.Role == "assistant" {
			role = genai.RoleModel
		}
		contents = append(contents, &genai.Content{
			Role:  role,
			Parts: []*genai.Part{genai.NewPartFromText(m.Content)},
		})
	}
	return contents
}

// geminiError maps SDK errors onto ProviderError so rotation logs carry the
// status class. The SDK has returned APIError both by value and by pointer.
func geminiError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return &ProviderError{Provider: "gemini", Status: apiErr.Code, Message: apiErr.Message}
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return &ProviderError{Provider: "gemini", Status: apiErrPtr.Code, Message: apiErrPtr.Message}
	}
	return fmt.Errorf("gemini generate: %w", err)
}
