package extract

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/kalambet/resumesync/internal/llm"
)

// fragmentSchema describes the sparse profile object a model may return.
// Nothing is required: an absent field means "not mentioned".
func fragmentSchema() *llm.Schema {
	strs := llm.Array(llm.String(""))
	return llm.Object(map[string]*llm.Schema{
		"personal_info": llm.Object(map[string]*llm.Schema{
			"full_name": llm.String(""),
			"email":     llm.String(""),
			"phone":     llm.String(""),
			"location":  llm.String(""),
			"linkedin":  llm.String("LinkedIn profile URL"),
			"github":    llm.String("GitHub profile URL"),
			"portfolio": llm.String("personal site URL"),
		}),
		"summary": llm.String("professional summary, only if the user stated one"),
		"experience": llm.Array(llm.Object(map[string]*llm.Schema{
			"title":        llm.String("job title"),
			"company":      llm.String(""),
			"location":     llm.String(""),
			"start_date":   llm.String("e.g. Jan 2020"),
			"end_date":     llm.String("e.g. Dec 2022 or Present"),
			"is_current":   llm.Bool(""),
			"description":  llm.String(""),
			"achievements": strs,
		})),
		"education": llm.Array(llm.Object(map[string]*llm.Schema{
			"degree":          llm.String(""),
			"institution":     llm.String(""),
			"location":        llm.String(""),
			"graduation_date": llm.String("e.g. 2020 or May 2020"),
			"gpa":             llm.String(""),
		})),
		"skills": llm.Array(llm.Object(map[string]*llm.Schema{
			"category": llm.String("e.g. Programming Languages, Frameworks"),
			"skills":   strs,
		})),
		"projects": llm.Array(llm.Object(map[string]*llm.Schema{
			"name":         llm.String(""),
			"description":  llm.String(""),
			"date":         llm.String(""),
			"url":          llm.String(""),
			"technologies": strs,
		})),
		"languages": strs,
		"hobbies":   strs,
	})
}

func chatSchema() *llm.Schema {
	return llm.Object(map[string]*llm.Schema{
		"message":        llm.String("conversational reply shown to the user"),
		"extracted_data": fragmentSchema(),
	}, "message")
}

func enhancementSchema() *llm.Schema {
	return llm.Object(map[string]*llm.Schema{
		"summary": llm.String("rewritten professional summary, 3-4 lines"),
		"experience": llm.Array(llm.Object(map[string]*llm.Schema{
			"title":        llm.String("unchanged job title"),
			"company":      llm.String("unchanged company"),
			"description":  llm.String("rewritten description"),
			"achievements": llm.Array(llm.String("")),
		}, "title", "company")),
		"projects": llm.Array(llm.Object(map[string]*llm.Schema{
			"name":        llm.String("unchanged project name"),
			"description": llm.String("rewritten description"),
		}, "name")),
	})
}

func scoreSchema() *llm.Schema {
	strs := llm.Array(llm.String(""))
	return llm.Object(map[string]*llm.Schema{
		"score":        {Type: "number", Description: "overall score from 0 to 100"},
		"strengths":    strs,
		"weaknesses":   strs,
		"improvements": strs,
	}, "score")
}

// validator checks decoded model output against a compiled JSON schema.
type validator struct {
	schema *gojsonschema.Schema
}

func newValidator(s *llm.Schema) (*validator, error) {
	compiled, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(s.Map()))
	if err != nil {
		return nil, fmt.Errorf("compiling schema: %w", err)
	}
	return &validator{schema: compiled}, nil
}

func mustValidator(s *llm.Schema) *validator {
	v, err := newValidator(s)
	if err != nil {
		panic(err)
	}
	return v
}

var (
	fragmentValidator    = mustValidator(fragmentSchema())
	enhancementValidator = mustValidator(enhancementSchema())
	scoreValidator       = mustValidator(scoreSchema())
)

// validate reports every schema violation in doc as one error.
func (v *validator) validate(doc any) error {
	res, err := v.schema.Validate(gojsonschema.NewGoLoader(doc))
	if err != nil {
		return fmt.Errorf("validating: %w", err)
	}
	if res.Valid() {
		return nil
	}
	msgs := make([]string, 0, len(res.Errors()))
	for _, e := range res.Errors() {
		msgs = append(msgs, e.String())
	}
	return fmt.Errorf("schema violations: %s", strings.Join(msgs, "; "))
}
