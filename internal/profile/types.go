package profile

import "strings"

// Profile is the long-lived resume aggregate for one user.
type Profile struct {
	PersonalInfo PersonalInfo `json:"personal_info"`
	Summary      string       `json:"summary"`
	Experience   []Experience `json:"experience"`
	Education    []Education  `json:"education"`
	Skills       []SkillGroup `json:"skills"`
	Projects     []Project    `json:"projects"`
	Languages    []string     `json:"languages"`
	Hobbies      []string     `json:"hobbies"`
}

// PersonalInfo holds the scalar contact fields.
type PersonalInfo struct {
	FullName  string `json:"full_name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Location  string `json:"location"`
	LinkedIn  string `json:"linkedin"`
	GitHub    string `json:"github"`
	Portfolio string `json:"portfolio"`
}

type Experience struct {
	Title        string   `json:"title"`
	Company      string   `json:"company"`
	Location     string   `json:"location,omitempty"`
	StartDate    string   `json:"start_date,omitempty"`
	EndDate      string   `json:"end_date,omitempty"`
	IsCurrent    bool     `json:"is_current,omitempty"`
	Description  string   `json:"description,omitempty"`
	Achievements []string `json:"achievements,omitempty"`
}

type Education struct {
	Degree         string `json:"degree"`
	Institution    string `json:"institution"`
	Location       string `json:"location,omitempty"`
	GraduationDate string `json:"graduation_date,omitempty"`
	GPA            string `json:"gpa,omitempty"`
}

// SkillGroup is a category with an unordered set of skills.
type SkillGroup struct {
	Category string   `json:"category"`
	Skills   []string `json:"skills"`
}

type Project struct {
	Name         string   `json:"name"`
	Description  string   `json:"description,omitempty"`
	Date         string   `json:"date,omitempty"`
	URL          string   `json:"url,omitempty"`
	Technologies []string `json:"technologies,omitempty"`
}

// Identity keys. Components are whitespace-trimmed and compared exactly; a
// missing component is the empty string, so items lacking identity collapse
// onto each other instead of piling up.

type ExperienceKey struct{ Title, Company string }

type EducationKey struct{ Degree, Institution string }

func (e Experience) Key() ExperienceKey {
	return ExperienceKey{strings.TrimSpace(e.Title), strings.TrimSpace(e.Company)}
}

func (e Education) Key() EducationKey {
	return EducationKey{strings.TrimSpace(e.Degree), strings.TrimSpace(e.Institution)}
}

func (p Project) Key() string { return strings.TrimSpace(p.Name) }

func (g SkillGroup) Key() string { return strings.TrimSpace(g.Category) }

// Fragment is the sparse output of one extraction. A nil pointer or nil
// slice means the input said nothing about that field.
type Fragment struct {
	PersonalInfo *PersonalInfoFragment `json:"personal_info,omitempty"`
	Summary      *string               `json:"summary,omitempty"`
	Experience   []Experience          `json:"experience,omitempty"`
	Education    []Education           `json:"education,omitempty"`
	Skills       []SkillGroup          `json:"skills,omitempty"`
	Projects     []Project             `json:"projects,omitempty"`
	Languages    []string              `json:"languages,omitempty"`
	Hobbies      []string              `json:"hobbies,omitempty"`
}

type PersonalInfoFragment struct {
	FullName  *string `json:"full_name,omitempty"`
	Email     *string `json:"email,omitempty"`
	Phone     *string `json:"phone,omitempty"`
	Location  *string `json:"location,omitempty"`
	LinkedIn  *string `json:"linkedin,omitempty"`
	GitHub    *string `json:"github,omitempty"`
	Portfolio *string `json:"portfolio,omitempty"`
}

func (p *PersonalInfoFragment) isEmpty() bool {
	if p == nil {
		return true
	}
	for _, v := range []*string{p.FullName, p.Email, p.Phone, p.Location, p.LinkedIn, p.GitHub, p.Portfolio} {
		if !blankPtr(v) {
			return false
		}
	}
	return true
}

// IsEmpty reports whether the fragment carries no usable information.
func (f *Fragment) IsEmpty() bool {
	if f == nil {
		return true
	}
	return f.PersonalInfo.isEmpty() &&
		blankPtr(f.Summary) &&
		len(f.Experience) == 0 &&
		len(f.Education) == 0 &&
		len(f.Skills) == 0 &&
		len(f.Projects) == 0 &&
		len(f.Languages) == 0 &&
		len(f.Hobbies) == 0
}

func blankPtr(s *string) bool { return s == nil || isBlank(*s) }

func isBlank(s string) bool { return strings.TrimSpace(s) == "" }

// IsEmpty reports whether the profile has nothing worth showing.
func (p Profile) IsEmpty() bool {
	return p.PersonalInfo == (PersonalInfo{}) &&
		isBlank(p.Summary) &&
		len(p.Experience) == 0 &&
		len(p.Education) == 0 &&
		len(p.Skills) == 0 &&
		len(p.Projects) == 0 &&
		len(p.Languages) == 0 &&
		len(p.Hobbies) == 0
}
