package extract

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/kalambet/resumesync/internal/credentials"
	"github.com/kalambet/resumesync/internal/executor"
	"github.com/kalambet/resumesync/internal/llm"
	"github.com/kalambet/resumesync/internal/profile"
)

// fakeGenerator returns scripted responses, one per call. Calls beyond the
// script repeat the last entry.
type fakeGenerator struct {
	mu        sync.Mutex
	responses []string
	errs      []error
	creds     []string
	requests  []llm.Request
}

func (f *fakeGenerator) Generate(ctx context.Context, cred string, req llm.Request) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := len(f.requests)
	f.creds = append(f.creds, cred)
	f.requests = append(f.requests, req)

	if i < len(f.errs) && f.errs[i] != nil {
		return "", f.errs[i]
	}
	if len(f.responses) == 0 {
		return "", nil
	}
	if i >= len(f.responses) {
		i = len(f.responses) - 1
	}
	return f.responses[i], nil
}

func newTestExtractor(gen llm.Generator, creds ...string) (*Extractor, *bytes.Buffer) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))
	exec := executor.New(credentials.NewPool(creds), executor.WithLogger(logger))
	return New(gen, exec, WithLogger(logger)), &logs
}

func TestExtract_Name(t *testing.T) {
	gen := &fakeGenerator{responses: []string{`{"personal_info": {"full_name": "John Doe"}}`}}
	e, _ := newTestExtractor(gen, "k1")

	res, err := e.Extract(context.Background(), "My name is John Doe", profile.Profile{})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if res.Fragment == nil || res.Fragment.PersonalInfo == nil || *res.Fragment.PersonalInfo.FullName != "John Doe" {
		t.Fatalf("fragment = %+v", res.Fragment)
	}
	if gen.requests[0].Schema == nil {
		t.Error("extraction call must be schema-constrained")
	}
}

func TestExtract_FencedOutput(t *testing.T) {
	gen := &fakeGenerator{responses: []string{"```json\n{\"skills\": [{\"category\": \"Languages\", \"skills\": [\"Go\"]}]}\n```"}}
	e, _ := newTestExtractor(gen, "k1")

	res, err := e.Extract(context.Background(), "I write Go", profile.Profile{})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if res.Fragment == nil || len(res.Fragment.Skills) != 1 || res.Fragment.Skills[0].Skills[0] != "Go" {
		t.Fatalf("fragment = %+v", res.Fragment)
	}
}

func TestExtract_EmptyObjectIsNoData(t *testing.T) {
	for _, raw := range []string{`{}`, " {} ", "```\n{}\n```", `{"summary": "  "}`, `{"personal_info": {"email": null}}`} {
		gen := &fakeGenerator{responses: []string{raw}}
		e, logs := newTestExtractor(gen, "k1")

		res, err := e.Extract(context.Background(), "hello there", profile.Profile{})
		if err != nil {
			t.Fatalf("%q: unexpected error %v", raw, err)
		}
		if res.Fragment != nil {
			t.Errorf("%q: fragment = %+v, want nil", raw, res.Fragment)
		}
		if logs.Len() != 0 {
			t.Errorf("%q: empty output must not be logged as malformed: %s", raw, logs.String())
		}
	}
}

func TestExtract_MalformedIsLoggedNotRaised(t *testing.T) {
	tests := map[string]string{
		"not json":     `not valid json {{{`,
		"array":        `[{"title": "x"}]`,
		"wrong type":   `{"experience": "Google"}`,
		"bad skill":    `{"skills": ["Go", "Rust"]}`,
		"empty string": ``,
	}
	for name, raw := range tests {
		t.Run(name, func(t *testing.T) {
			gen := &fakeGenerator{responses: []string{raw}}
			e, logs := newTestExtractor(gen, "k1")

			res, err := e.Extract(context.Background(), "some text", profile.Profile{})
			if err != nil {
				t.Fatalf("malformed output must not raise, got %v", err)
			}
			if res.Fragment != nil {
				t.Errorf("fragment = %+v, want nil", res.Fragment)
			}
			if res.Raw != raw {
				t.Errorf("Raw = %q, want %q", res.Raw, raw)
			}
			if !strings.Contains(logs.String(), ErrMalformedOutput.Error()) {
				t.Errorf("expected malformed output to be logged, logs: %s", logs.String())
			}
		})
	}
}

func TestExtract_BlankTextSkipsModel(t *testing.T) {
	gen := &fakeGenerator{responses: []string{`{"summary": "x"}`}}
	e, _ := newTestExtractor(gen, "k1")

	res, err := e.Extract(context.Background(), "   \n", profile.Profile{})
	if err != nil || res.Fragment != nil {
		t.Fatalf("res=%+v err=%v", res, err)
	}
	if len(gen.requests) != 0 {
		t.Errorf("model called %d times for blank text", len(gen.requests))
	}
}

func TestExtract_NoCredentials(t *testing.T) {
	gen := &fakeGenerator{responses: []string{`{}`}}
	e, _ := newTestExtractor(gen)

	_, err := e.Extract(context.Background(), "My name is Ann", profile.Profile{})
	if !errors.Is(err, executor.ErrNoCredentials) {
		t.Fatalf("err = %v, want ErrNoCredentials", err)
	}
	if e.Available() {
		t.Error("Available() = true with an empty pool")
	}
}

func TestExtract_RotatesThenSucceeds(t *testing.T) {
	gen := &fakeGenerator{
		errs:      []error{&llm.ProviderError{Provider: "fake", Status: 429}},
		responses: []string{"", `{"hobbies": ["chess"]}`},
	}
	e, _ := newTestExtractor(gen, "k1", "k2")

	res, err := e.Extract(context.Background(), "I play chess", profile.Profile{})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if res.Fragment == nil || res.Fragment.Hobbies[0] != "chess" {
		t.Fatalf("fragment = %+v", res.Fragment)
	}
	if len(gen.creds) != 2 || gen.creds[0] == gen.creds[1] {
		t.Errorf("creds used = %v, want two distinct", gen.creds)
	}
}

func TestExtract_AllExhausted(t *testing.T) {
	last := errors.New("upstream down")
	gen := &fakeGenerator{errs: []error{errors.New("first"), last}}
	e, _ := newTestExtractor(gen, "k1", "k2")

	_, err := e.Extract(context.Background(), "text", profile.Profile{})
	if !errors.Is(err, executor.ErrAllCredentialsExhausted) || !errors.Is(err, last) {
		t.Fatalf("err = %v, want exhaustion carrying the last error", err)
	}
}

func TestExtract_HintInSystemPrompt(t *testing.T) {
	gen := &fakeGenerator{responses: []string{`{}`}}
	e, _ := newTestExtractor(gen, "k1")

	hint := profile.Profile{PersonalInfo: profile.PersonalInfo{FullName: "Ada Lovelace"}}
	if _, err := e.Extract(context.Background(), "I like maths", hint); err != nil {
		t.Fatal(err)
	}
	sys := gen.requests[0].System
	if !strings.Contains(sys, "Ada Lovelace") {
		t.Errorf("system prompt lacks the profile hint: %s", sys)
	}
	if got := gen.requests[0].Messages; len(got) != 1 || got[0].Content != "I like maths" {
		t.Errorf("messages = %+v", got)
	}
}

func TestChat_ReplyAndFragment(t *testing.T) {
	gen := &fakeGenerator{responses: []string{`{"message": "Nice to meet you, Ann!  ", "extracted_data": {"personal_info": {"full_name": "Ann"}}}`}}
	e, _ := newTestExtractor(gen, "k1")

	history := []llm.Message{{Role: "assistant", Content: "What's your name?"}}
	res, err := e.Chat(context.Background(), history, "I'm Ann", profile.Profile{})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if res.Reply != "Nice to meet you, Ann!  " {
		t.Errorf("Reply = %q, want verbatim", res.Reply)
	}
	if res.Fragment == nil || *res.Fragment.PersonalInfo.FullName != "Ann" {
		t.Errorf("fragment = %+v", res.Fragment)
	}
	msgs := gen.requests[0].Messages
	if len(msgs) != 2 || msgs[1].Content != "I'm Ann" {
		t.Errorf("messages = %+v", msgs)
	}
}

func TestChat_NullAndEmptyData(t *testing.T) {
	for _, raw := range []string{
		`{"message": "Hello!", "extracted_data": null}`,
		`{"message": "Hello!"}`,
		`{"message": "Hello!", "extracted_data": {}}`,
	} {
		gen := &fakeGenerator{responses: []string{raw}}
		e, _ := newTestExtractor(gen, "k1")

		res, err := e.Chat(context.Background(), nil, "Hey", profile.Profile{})
		if err != nil {
			t.Fatalf("%s: %v", raw, err)
		}
		if res.Reply != "Hello!" || res.Fragment != nil {
			t.Errorf("%s: res = %+v", raw, res)
		}
	}
}

func TestChat_UnparseableEnvelopeBecomesReply(t *testing.T) {
	gen := &fakeGenerator{responses: []string{"Sure, tell me about your last job."}}
	e, logs := newTestExtractor(gen, "k1")

	res, err := e.Chat(context.Background(), nil, "help", profile.Profile{})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if res.Reply != "Sure, tell me about your last job." || res.Fragment != nil {
		t.Errorf("res = %+v", res)
	}
	if logs.Len() == 0 {
		t.Error("expected a warning for the unparseable envelope")
	}
}

func TestChat_MalformedFragmentKeepsReply(t *testing.T) {
	gen := &fakeGenerator{responses: []string{`{"message": "Got it", "extracted_data": {"experience": 42}}`}}
	e, _ := newTestExtractor(gen, "k1")

	res, err := e.Chat(context.Background(), nil, "I worked somewhere", profile.Profile{})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if res.Reply != "Got it" || res.Fragment != nil {
		t.Errorf("res = %+v", res)
	}
}

func TestChat_NoCredentials(t *testing.T) {
	e, _ := newTestExtractor(&fakeGenerator{})
	if _, err := e.Chat(context.Background(), nil, "hi", profile.Profile{}); !errors.Is(err, executor.ErrNoCredentials) {
		t.Fatalf("err = %v", err)
	}
}

func TestGenerate_FreeForm(t *testing.T) {
	gen := &fakeGenerator{responses: []string{"Dear hiring manager"}}
	e, _ := newTestExtractor(gen, "k1")

	out, err := e.Generate(context.Background(), "write a cover letter")
	if err != nil || out != "Dear hiring manager" {
		t.Fatalf("out=%q err=%v", out, err)
	}
	if gen.requests[0].Schema != nil {
		t.Error("free-form generation must not send a schema")
	}
}

func TestEnhance(t *testing.T) {
	gen := &fakeGenerator{responses: []string{`{"summary": "Seasoned engineer.", "experience": [{"title": "SWE", "company": "Acme", "description": "Led things"}]}`}}
	e, _ := newTestExtractor(gen, "k1")

	p := profile.Profile{Experience: []profile.Experience{{Title: "SWE", Company: "Acme"}}}
	enh, err := e.Enhance(context.Background(), p)
	if err != nil {
		t.Fatalf("Enhance: %v", err)
	}
	if enh == nil || enh.Summary != "Seasoned engineer." || enh.Experience[0].Description != "Led things" {
		t.Fatalf("enhancement = %+v", enh)
	}
	if !strings.Contains(gen.requests[0].Messages[0].Content, `"Acme"`) {
		t.Error("profile must be sent to the model")
	}
}

func TestEnhance_Malformed(t *testing.T) {
	gen := &fakeGenerator{responses: []string{`{"experience": [{"description": "missing identity"}]}`}}
	e, _ := newTestExtractor(gen, "k1")

	enh, err := e.Enhance(context.Background(), profile.Profile{})
	if err != nil || enh != nil {
		t.Fatalf("enh=%+v err=%v, want nil/nil", enh, err)
	}
}

func TestParseFragment_DropsNulls(t *testing.T) {
	f, err := ParseFragment(`{"experience": [null, {"title": "Dev", "company": "X", "location": null}], "summary": null}`)
	if err != nil {
		t.Fatalf("ParseFragment: %v", err)
	}
	if f == nil || len(f.Experience) != 1 || f.Experience[0].Title != "Dev" || f.Summary != nil {
		t.Fatalf("fragment = %+v", f)
	}
}

func TestStripFences(t *testing.T) {
	tests := []struct{ in, want string }{
		{`{"a":1}`, `{"a":1}`},
		{"```json\n{\"a\":1}\n```", `{"a":1}`},
		{"```\n{\"a\":1}\n```", `{"a":1}`},
		{"  \n```JSON{}```  ", `{}`},
		{"", ""},
	}
	for _, tt := range tests {
		if got := stripFences(tt.in); got != tt.want {
			t.Errorf("stripFences(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestCoverLetter_PromptCarriesJobAndProfile(t *testing.T) {
	gen := &fakeGenerator{responses: []string{"\nDear Hiring Manager,\n\nI build APIs.\n\nSincerely,\n"}}
	e, _ := newTestExtractor(gen, "k1")

	candidate := profile.Profile{PersonalInfo: profile.PersonalInfo{FullName: "Jane Doe"}}
	letter, err := e.CoverLetter(context.Background(), CoverLetterRequest{
		JobTitle:       "Go Engineer",
		Company:        "Acme",
		JobDescription: "Build payment APIs.",
		Tone:           "Enthusiastic",
	}, candidate)
	if err != nil {
		t.Fatalf("CoverLetter: %v", err)
	}
	if !strings.HasPrefix(letter, "Dear Hiring Manager,") || strings.HasSuffix(letter, "\n") {
		t.Errorf("letter not trimmed: %q", letter)
	}

	prompt := gen.requests[0].Messages[0].Content
	for _, want := range []string{"Go Engineer", "Acme", "Build payment APIs.", "Tone: enthusiastic", "passionate", "Jane Doe"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
	if gen.requests[0].Schema != nil {
		t.Error("cover letters are free-form")
	}
}

func TestCoverLetter_UnknownToneIsProfessional(t *testing.T) {
	prompt := buildCoverLetterPrompt(CoverLetterRequest{JobTitle: "SRE", Company: "Beta", Tone: "sarcastic"}, profile.Profile{})
	if !strings.Contains(prompt, "Tone: professional") || !strings.Contains(prompt, "formal, corporate") {
		t.Errorf("prompt = %s", prompt)
	}
	if strings.Contains(prompt, "Candidate:") {
		t.Error("empty profile must not be sent")
	}
}

func TestCoverLetter_NoCredentials(t *testing.T) {
	gen := &fakeGenerator{}
	e, _ := newTestExtractor(gen)
	if _, err := e.CoverLetter(context.Background(), CoverLetterRequest{JobTitle: "x", Company: "y"}, profile.Profile{}); !errors.Is(err, executor.ErrNoCredentials) {
		t.Fatalf("err = %v", err)
	}
}

func TestScoreResume(t *testing.T) {
	gen := &fakeGenerator{responses: []string{"```json\n{\"score\": 82, \"strengths\": [\"clear impact\"], \"weaknesses\": [\"no metrics\"], \"improvements\": [\"quantify results\"]}\n```"}}
	e, _ := newTestExtractor(gen, "k1")

	s, err := e.ScoreResume(context.Background(), "Jane Doe, Go engineer at Acme")
	if err != nil {
		t.Fatalf("ScoreResume: %v", err)
	}
	if s.Score != 82 || s.Strengths[0] != "clear impact" || s.Improvements[0] != "quantify results" || s.Raw != "" {
		t.Fatalf("score = %+v", s)
	}
	if !strings.Contains(gen.requests[0].Messages[0].Content, "Go engineer at Acme") {
		t.Error("resume text must be sent to the model")
	}
}

func TestScoreResume_UnusableOutputKeepsRawAnalysis(t *testing.T) {
	for _, raw := range []string{
		"Solid resume, I'd give it 70.",
		`{"strengths": ["missing score"]}`,
		`{"score": 140}`,
	} {
		gen := &fakeGenerator{responses: []string{raw}}
		e, logs := newTestExtractor(gen, "k1")

		s, err := e.ScoreResume(context.Background(), "resume")
		if err != nil {
			t.Fatalf("%s: err = %v", raw, err)
		}
		if s.Raw != raw || s.Score != 0 {
			t.Errorf("%s: score = %+v", raw, s)
		}
		if !strings.Contains(logs.String(), "resume score") {
			t.Errorf("%s: malformed output not logged", raw)
		}
	}
}

func TestScoreResume_BlankTextSkipsModel(t *testing.T) {
	gen := &fakeGenerator{}
	e, _ := newTestExtractor(gen, "k1")
	if _, err := e.ScoreResume(context.Background(), "  "); err == nil {
		t.Fatal("want an error for blank resume text")
	}
	if len(gen.requests) != 0 {
		t.Error("model called for blank text")
	}
}
