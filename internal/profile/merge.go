package profile

import (
	"github.com/kalambet/resumesync/internal/rank"
)

// Merge folds an extracted fragment into current and returns the result.
// It never mutates current, never fails, and applying the same fragment a
// second time changes nothing.
//
// Populated scalars are never overwritten. List items are identified by
// their Key; the first item with a given key wins, including items already
// in the profile, so the result never holds two items with the same key.
// Skill groups with the same category have their skills unioned.
func Merge(current Profile, f *Fragment) Profile {
	out := deepCopyProfile(&current)
	if f == nil {
		f = &Fragment{}
	}

	if pi := f.PersonalInfo; pi != nil {
		fillEmpty(&out.PersonalInfo.FullName, pi.FullName)
		fillEmpty(&out.PersonalInfo.Email, pi.Email)
		fillEmpty(&out.PersonalInfo.Phone, pi.Phone)
		fillEmpty(&out.PersonalInfo.Location, pi.Location)
		fillEmpty(&out.PersonalInfo.LinkedIn, pi.LinkedIn)
		fillEmpty(&out.PersonalInfo.GitHub, pi.GitHub)
		fillEmpty(&out.PersonalInfo.Portfolio, pi.Portfolio)
	}

	fillEmpty(&out.Summary, f.Summary)

	out.Experience = rank.Dedupe(append(out.Experience, copyExperience(f.Experience)...), Experience.Key)
	out.Education = rank.Dedupe(append(out.Education, f.Education...), Education.Key)
	out.Projects = rank.Dedupe(append(out.Projects, copyProjects(f.Projects)...), Project.Key)
	if len(out.Skills) > 0 || len(f.Skills) > 0 {
		out.Skills = mergeSkills(out.Skills, f.Skills)
	}

	out.Languages = rank.Union(out.Languages, f.Languages)
	out.Hobbies = rank.Union(out.Hobbies, f.Hobbies)

	return out
}

func fillEmpty(dst *string, v *string) {
	if v == nil || isBlank(*v) || !isBlank(*dst) {
		return
	}
	*dst = *v
}

// mergeSkills unions skills per category. Groups are kept in first-seen
// category order.
func mergeSkills(base, add []SkillGroup) []SkillGroup {
	out := make([]SkillGroup, 0, len(base)+len(add))
	index := make(map[string]int, len(base)+len(add))

	fold := func(g SkillGroup) {
		k := g.Key()
		if i, ok := index[k]; ok {
			out[i].Skills = rank.Union(out[i].Skills, g.Skills)
			return
		}
		index[k] = len(out)
		out = append(out, SkillGroup{
			Category: g.Category,
			Skills:   rank.Union(nil, g.Skills),
		})
	}

	for _, g := range base {
		fold(g)
	}
	for _, g := range add {
		fold(g)
	}
	return out
}
