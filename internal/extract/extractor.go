// Package extract turns free text into sparse profile fragments using a
// schema-constrained model call routed through the credential executor.
package extract

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/kalambet/resumesync/internal/executor"
	"github.com/kalambet/resumesync/internal/llm"
	"github.com/kalambet/resumesync/internal/profile"
)

const (
	extractTemperature = 0.1
	chatTemperature    = 0.7
	maxLoggedResponse  = 512
)

// ErrMalformedOutput marks model text that is not a usable fragment. It is
// logged and never returned to callers of Extract or Chat.
var ErrMalformedOutput = errors.New("malformed extraction output")

// Result is the outcome of one extraction. Fragment is nil when the model
// found nothing or returned something unusable; both cases are "no data".
type Result struct {
	Raw      string
	Fragment *profile.Fragment
}

// ChatResult carries the verbatim conversational reply and any fragment
// extracted alongside it.
type ChatResult struct {
	Reply    string
	Fragment *profile.Fragment
	Raw      string
}

// Extractor runs extraction calls through a rotating executor.
type Extractor struct {
	gen    llm.Generator
	exec   *executor.Executor
	logger *slog.Logger
}

// Option configures an Extractor.
type Option func(*Extractor)

func WithLogger(l *slog.Logger) Option {
	return func(e *Extractor) { e.logger = l }
}

func New(gen llm.Generator, exec *executor.Executor, opts ...Option) *Extractor {
	e := &Extractor{gen: gen, exec: exec, logger: slog.Default()}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Available reports whether any credential is configured.
func (e *Extractor) Available() bool { return e.exec.Available() }

// Extract asks the model for profile information in text. hint is the
// current profile and only steers the model away from repeating it.
//
// Errors are reserved for call failures (no credentials, every credential
// exhausted, cancellation). Unusable output yields a Result with a nil
// Fragment.
func (e *Extractor) Extract(ctx context.Context, text string, hint profile.Profile) (*Result, error) {
	if strings.TrimSpace(text) == "" {
		return &Result{}, nil
	}

	raw, err := e.call(ctx, buildExtractRequest(text, hint))
	if err != nil {
		return nil, err
	}

	frag, err := ParseFragment(raw)
	if err != nil {
		e.logMalformed("extraction", raw, err)
		return &Result{Raw: raw}, nil
	}
	return &Result{Raw: raw, Fragment: frag}, nil
}

type chatEnvelope struct {
	Message       *string         `json:"message"`
	ExtractedData json.RawMessage `json:"extracted_data"`
}

// Chat produces a conversational reply and extracts profile data from the
// user's latest message in the same call. The reply is returned exactly as
// the model wrote it. If the envelope cannot be parsed the raw text becomes
// the reply.
func (e *Extractor) Chat(ctx context.Context, history []llm.Message, message string, hint profile.Profile) (*ChatResult, error) {
	raw, err := e.call(ctx, buildChatRequest(history, message, hint))
	if err != nil {
		return nil, err
	}

	var env chatEnvelope
	if err := json.Unmarshal([]byte(stripFences(raw)), &env); err != nil || env.Message == nil {
		if err == nil {
			err = errors.New("missing message")
		}
		e.logMalformed("chat envelope", raw, err)
		return &ChatResult{Reply: raw, Raw: raw}, nil
	}

	res := &ChatResult{Reply: *env.Message, Raw: raw}
	if len(env.ExtractedData) == 0 || string(env.ExtractedData) == "null" {
		return res, nil
	}
	frag, err := ParseFragment(string(env.ExtractedData))
	if err != nil {
		e.logMalformed("chat extraction", string(env.ExtractedData), err)
		return res, nil
	}
	res.Fragment = frag
	return res, nil
}

// Generate runs a free-form prompt without a response schema.
func (e *Extractor) Generate(ctx context.Context, prompt string) (string, error) {
	return e.call(ctx, llm.Request{
		Messages:    []llm.Message{{Role: "user", Content: prompt}},
		Temperature: chatTemperature,
	})
}

// Enhance asks the model to rewrite the profile's prose. A nil Enhancement
// with nil error means the output was unusable.
func (e *Extractor) Enhance(ctx context.Context, p profile.Profile) (*profile.Enhancement, error) {
	req, err := buildEnhanceRequest(p)
	if err != nil {
		return nil, err
	}
	raw, err := e.call(ctx, req)
	if err != nil {
		return nil, err
	}

	doc, err := decodeObject(raw)
	if err == nil {
		err = enhancementValidator.validate(doc)
	}
	var out profile.Enhancement
	if err == nil {
		err = remarshal(doc, &out)
	}
	if err != nil {
		e.logMalformed("enhancement", raw, err)
		return nil, nil
	}
	return &out, nil
}

func (e *Extractor) call(ctx context.Context, req llm.Request) (string, error) {
	return executor.Do(ctx, e.exec, func(ctx context.Context, cred string) (string, error) {
		return e.gen.Generate(ctx, cred, req)
	})
}

func (e *Extractor) logMalformed(what, raw string, err error) {
	e.logger.Warn("discarding model output",
		"kind", what,
		"error", fmt.Errorf("%w: %w", ErrMalformedOutput, err),
		"response", truncate(raw, maxLoggedResponse),
	)
}

// ParseFragment decodes model text into a fragment. It returns (nil, nil)
// for an empty object or one whose every field is blank, and an error
// wrapping ErrMalformedOutput for anything that is not a schema-valid
// object. Null members are treated as absent.
func ParseFragment(raw string) (*profile.Fragment, error) {
	doc, err := decodeObject(raw)
	if err != nil {
		return nil, err
	}
	if len(doc) == 0 {
		return nil, nil
	}
	if err := fragmentValidator.validate(doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedOutput, err)
	}

	var f profile.Fragment
	if err := remarshal(doc, &f); err != nil {
		return nil, err
	}
	if f.IsEmpty() {
		return nil, nil
	}
	return &f, nil
}

// decodeObject parses fenced or bare JSON and requires a top-level object.
func decodeObject(raw string) (map[string]any, error) {
	text := stripFences(raw)
	if text == "" {
		return nil, fmt.Errorf("%w: empty response", ErrMalformedOutput)
	}
	var v any
	if err := json.Unmarshal([]byte(text), &v); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedOutput, err)
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: top-level value is %T, not an object", ErrMalformedOutput, v)
	}
	return pruneNulls(obj).(map[string]any), nil
}

// pruneNulls drops null object members and null array elements.
func pruneNulls(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, val := range t {
			if val == nil {
				delete(t, k)
				continue
			}
			t[k] = pruneNulls(val)
		}
		return t
	case []any:
		out := t[:0]
		for _, val := range t {
			if val != nil {
				out = append(out, pruneNulls(val))
			}
		}
		return out
	default:
		return v
	}
}

func remarshal(doc map[string]any, out any) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrMalformedOutput, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: %w", ErrMalformedOutput, err)
	}
	return nil
}

// stripFences removes a surrounding markdown code fence, if any.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```JSON")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
