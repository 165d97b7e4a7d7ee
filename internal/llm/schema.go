package llm

import (
	"google.golang.org/genai"
)

// Schema is a minimal JSON schema tree. It marshals to standard JSON
// schema and converts to the Gemini schema type.
type Schema struct {
	Type        string             `json:"type"`
	Description string             `json:"description,omitempty"`
	Properties  map[string]*Schema `json:"properties,omitempty"`
	Items       *Schema            `json:"items,omitempty"`
	Required    []string           `json:"required,omitempty"`
}

// Object, Array, String and Bool are schema shorthands.
func Object(props map[string]*Schema, required ...string) *Schema {
	return &Schema{Type: "object", Properties: props, Required: required}
}

func Array(items *Schema) *Schema { return &Schema{Type: "array", Items: items} }

func String(desc string) *Schema { return &Schema{Type: "string", Description: desc} }

func Bool(desc string) *Schema { return &Schema{Type: "boolean", Description: desc} }

// Map renders the schema as a generic JSON schema document.
func (s *Schema) Map() map[string]any {
	if s == nil {
		return nil
	}
	m := map[string]any{"type": s.Type}
	if s.Description != "" {
		m["description"] = s.Description
	}
	if len(s.Properties) > 0 {
		props := make(map[string]any, len(s.Properties))
		for k, v := range s.Properties {
			props[k] = v.Map()
		}
		m["properties"] = props
	}
	if s.Items != nil {
		m["items"] = s.Items.Map()
	}
	if len(s.Required) > 0 {
		req := make([]any, len(s.Required))
		for i, r := range s.Required {
			req[i] = r
		}
		m["required"] = req
	}
	return m
}

var geminiTypes = map[string]genai.Type{
	"object":  genai.TypeObject,
	"array":   genai.TypeArray,
	"string":  genai.TypeString,
	"boolean": genai.TypeBoolean,
	"number":  genai.TypeNumber,
	"integer": genai.TypeInteger,
}

// Gemini converts the schema for GenerateContentConfig.ResponseSchema.
func (s *Schema) Gemini() *genai.Schema {
	if s == nil {
		return nil
	}
	out := &genai.Schema{
		Type:        geminiTypes[s.Type],
		Description: s.Description,
		Required:    s.Required,
	}
	if len(s.Properties) > 0 {
		out.Properties = make(map[string]*genai.Schema, len(s.Properties))
		for k, v := range s.Properties {
			out.Properties[k] = v.Gemini()
		}
	}
	if s.Items != nil {
		out.Items = s.Items.Gemini()
	}
	return out
}
