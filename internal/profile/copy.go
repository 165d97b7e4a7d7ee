package profile

func deepCopyProfile(p *Profile) Profile {
	if p == nil {
		return Profile{}
	}
	cp := *p
	cp.Experience = copyExperience(p.Experience)
	if p.Education != nil {
		cp.Education = make([]Education, len(p.Education))
		copy(cp.Education, p.Education)
	}
	if p.Skills != nil {
		cp.Skills = make([]SkillGroup, len(p.Skills))
		for i, g := range p.Skills {
			cp.Skills[i] = SkillGroup{Category: g.Category, Skills: copyStrings(g.Skills)}
		}
	}
	cp.Projects = copyProjects(p.Projects)
	cp.Languages = copyStrings(p.Languages)
	cp.Hobbies = copyStrings(p.Hobbies)
	return cp
}

func copyExperience(in []Experience) []Experience {
	if in == nil {
		return nil
	}
	out := make([]Experience, len(in))
	for i, e := range in {
		e.Achievements = copyStrings(e.Achievements)
		out[i] = e
	}
	return out
}

func copyProjects(in []Project) []Project {
	if in == nil {
		return nil
	}
	out := make([]Project, len(in))
	for i, p := range in {
		p.Technologies = copyStrings(p.Technologies)
		out[i] = p
	}
	return out
}

func copyStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
