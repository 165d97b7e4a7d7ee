package extract

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kalambet/resumesync/internal/profile"
)

// Tones accepted for cover letters. Unknown tones fall back to professional.
const (
	ToneProfessional = "professional"
	ToneEnthusiastic = "enthusiastic"
	ToneCreative     = "creative"
)

var toneInstructions = map[string]string{
	ToneProfessional: "Use formal, corporate language. Be respectful and professional throughout.",
	ToneEnthusiastic: "Use energetic, passionate language. Show genuine excitement about the opportunity.",
	ToneCreative:     "Use unique, personality-driven language. Be memorable and showcase creativity.",
}

// CoverLetterRequest describes the job a cover letter is written for.
type CoverLetterRequest struct {
	JobTitle       string
	Company        string
	JobDescription string
	Tone           string
}

// CoverLetter drafts a cover letter for the job, drawing on the candidate's
// profile when it has anything in it.
func (e *Extractor) CoverLetter(ctx context.Context, req CoverLetterRequest, candidate profile.Profile) (string, error) {
	text, err := e.Generate(ctx, buildCoverLetterPrompt(req, candidate))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

func buildCoverLetterPrompt(req CoverLetterRequest, candidate profile.Profile) string {
	tone := strings.ToLower(strings.TrimSpace(req.Tone))
	instruction, ok := toneInstructions[tone]
	if !ok {
		tone, instruction = ToneProfessional, toneInstructions[ToneProfessional]
	}

	var sb strings.Builder
	sb.WriteString("Write a cover letter for the following job application.\n\n")
	fmt.Fprintf(&sb, "Job Title: %s\nCompany: %s\nTone: %s\n\n", req.JobTitle, req.Company, tone)
	fmt.Fprintf(&sb, "Job Description:\n%s\n", strings.TrimSpace(req.JobDescription))
	if !candidate.IsEmpty() {
		fmt.Fprintf(&sb, "\nCandidate:\n%s\n", profile.Summarize(candidate))
	}
	sb.WriteString(`
Instructions:
- ` + instruction + `
- Make it specific to the role and highlight the experience and skills that match the description.
- Keep it to 3-4 paragraphs with a strong opening and closing.
- Do not use placeholders such as [Your Name] or [Date].
- Start with "Dear Hiring Manager," and end with "Sincerely,".

Output only the letter text, no commentary.`)
	return sb.String()
}

// Score is a hiring-manager style assessment of a resume. When the model
// output is not usable JSON, only Raw is set.
type Score struct {
	Score        float64  `json:"score"`
	Strengths    []string `json:"strengths,omitempty"`
	Weaknesses   []string `json:"weaknesses,omitempty"`
	Improvements []string `json:"improvements,omitempty"`
	Raw          string   `json:"raw_analysis,omitempty"`
}

// ScoreResume rates resume text from 0 to 100 with strengths, weaknesses
// and actionable improvements.
func (e *Extractor) ScoreResume(ctx context.Context, resume string) (*Score, error) {
	if strings.TrimSpace(resume) == "" {
		return nil, errors.New("resume text is empty")
	}
	raw, err := e.Generate(ctx, buildScorePrompt(resume))
	if err != nil {
		return nil, err
	}

	doc, err := decodeObject(raw)
	if err == nil {
		err = scoreValidator.validate(doc)
	}
	var out Score
	if err == nil {
		err = remarshal(doc, &out)
	}
	if err == nil && (out.Score < 0 || out.Score > 100) {
		err = fmt.Errorf("%w: score %v out of range", ErrMalformedOutput, out.Score)
	}
	if err != nil {
		e.logMalformed("resume score", raw, err)
		return &Score{Raw: strings.TrimSpace(raw)}, nil
	}
	return &out, nil
}

func buildScorePrompt(resume string) string {
	return `Act as a hiring manager. Review the following resume and score it out of 100.

Resume:
` + strings.TrimSpace(resume) + `

Output only valid JSON:
{
  "score": <number from 0 to 100>,
  "strengths": [<strings>],
  "weaknesses": [<strings>],
  "improvements": [<actionable advice>]
}`
}
