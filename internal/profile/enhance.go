package profile

import "github.com/kalambet/resumesync/internal/rank"

// Enhancement is a model-rewritten version of selected profile prose.
// Entries carry their identity fields so they can be matched back to the
// profile regardless of the order the model returned them in.
type Enhancement struct {
	Summary    string                  `json:"summary,omitempty"`
	Experience []ExperienceEnhancement `json:"experience,omitempty"`
	Projects   []ProjectEnhancement    `json:"projects,omitempty"`
}

type ExperienceEnhancement struct {
	Title        string   `json:"title"`
	Company      string   `json:"company"`
	Description  string   `json:"description,omitempty"`
	Achievements []string `json:"achievements,omitempty"`
}

func (e ExperienceEnhancement) Key() ExperienceKey {
	return Experience{Title: e.Title, Company: e.Company}.Key()
}

type ProjectEnhancement struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

func (p ProjectEnhancement) Key() string { return Project{Name: p.Name}.Key() }

// ApplyEnhancement writes enhanced prose onto the items it identifies.
// Entries that match nothing are dropped; blank values leave the original
// text in place. Unlike Merge this overwrites populated fields, because the
// user asked for the rewrite.
func ApplyEnhancement(current Profile, e Enhancement) Profile {
	out := deepCopyProfile(&current)

	if !isBlank(e.Summary) {
		out.Summary = e.Summary
	}

	exp := make(map[ExperienceKey]ExperienceEnhancement)
	for _, ee := range rank.Dedupe(e.Experience, ExperienceEnhancement.Key) {
		exp[ee.Key()] = ee
	}
	for i, item := range out.Experience {
		ee, ok := exp[item.Key()]
		if !ok {
			continue
		}
		if !isBlank(ee.Description) {
			out.Experience[i].Description = ee.Description
		}
		if len(ee.Achievements) > 0 {
			out.Experience[i].Achievements = copyStrings(ee.Achievements)
		}
	}

	proj := make(map[string]ProjectEnhancement)
	for _, pe := range rank.Dedupe(e.Projects, ProjectEnhancement.Key) {
		proj[pe.Key()] = pe
	}
	for i, item := range out.Projects {
		if pe, ok := proj[item.Key()]; ok && !isBlank(pe.Description) {
			out.Projects[i].Description = pe.Description
		}
	}

	return out
}
