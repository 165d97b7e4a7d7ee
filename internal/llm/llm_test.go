package llm

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

func TestNew(t *testing.T) {
	g, err := New("", "", "")
	require.NoError(t, err)
	assert.IsType(t, &Gemini{}, g)
	assert.Equal(t, defaultGeminiModel, g.(*Gemini).model)

	g, err = New(ProviderClaude, "claude-x", "")
	require.NoError(t, err)
	assert.IsType(t, &Claude{}, g)

	g, err = New(ProviderOpenRouter, "", "http://localhost:9999/")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:9999", g.(*OpenRouter).baseURL)

	_, err = New("bard", "", "")
	assert.ErrorIs(t, err, ErrUnknownProvider)
}

func TestSchema_Map(t *testing.T) {
	s := Object(map[string]*Schema{
		"name": String("full name"),
		"tags": Array(String("")),
	}, "name")

	m := s.Map()
	assert.Equal(t, "object", m["type"])
	assert.Equal(t, []any{"name"}, m["required"])
	props := m["properties"].(map[string]any)
	assert.Equal(t, map[string]any{"type": "string", "description": "full name"}, props["name"])
	assert.Equal(t, map[string]any{"type": "array", "items": map[string]any{"type": "string"}}, props["tags"])

	var nilSchema *Schema
	assert.Nil(t, nilSchema.Map())
}

func TestSchema_Gemini(t *testing.T) {
	s := Object(map[string]*Schema{
		"current": Bool("still there"),
		"items":   Array(Object(map[string]*Schema{"x": String("")})),
	})
	g := s.Gemini()
	assert.Equal(t, genai.TypeObject, g.Type)
	assert.Equal(t, genai.TypeBoolean, g.Properties["current"].Type)
	assert.Equal(t, genai.TypeArray, g.Properties["items"].Type)
	assert.Equal(t, genai.TypeString, g.Properties["items"].Items.Properties["x"].Type)
}

func TestProviderError(t *testing.T) {
	e := &ProviderError{Provider: "gemini", Status: 429}
	assert.Equal(t, "gemini: HTTP 429 Too Many Requests", e.Error())
	assert.False(t, e.Terminal())

	e = &ProviderError{Provider: "claude", Status: 400, Message: "bad schema"}
	assert.Equal(t, "claude: HTTP 400: bad schema", e.Error())
	assert.True(t, e.Terminal())

	wrapped := errors.Join(errors.New("context"), e)
	var pe *ProviderError
	assert.True(t, errors.As(wrapped, &pe))
}

func TestClaudeMessages(t *testing.T) {
	msgs := claudeMessages([]Message{{Role: "user", Content: "a"}, {Role: "assistant", Content: "b"}, {Role: "other", Content: "c"}})
	require.Len(t, msgs, 3)
	assert.Equal(t, "user", string(msgs[0].Role))
	assert.Equal(t, "assistant", string(msgs[1].Role))
	assert.Equal(t, "user", string(msgs[2].Role))
}

func TestGeminiContents(t *testing.T) {
	c := geminiContents([]Message{{Role: "user", Content: "a"}, {Role: "assistant", Content: "b"}})
	require.Len(t, c, 2)
	assert.Equal(t, genai.RoleUser, c[0].Role)
	assert.Equal(t, genai.RoleModel, c[1].Role)
	assert.Equal(t, "b", c[1].Parts[0].Text)
}
