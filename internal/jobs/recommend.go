package jobs

import (
	"context"
	"fmt"
	"strings"

	"github.com/kalambet/resumesync/internal/profile"
	"github.com/kalambet/resumesync/internal/rank"
)

const (
	recommendLimit       = 5
	recommendCategories  = 3
	recommendPerCategory = 2
	recommendLocation    = "Remote"
	reasonDescription    = 150
)

// Recommendation is a listing with the reason it was suggested.
type Recommendation struct {
	Listing
	Reason string `json:"reason"`
}

// Recommend suggests up to five jobs for a profile. It searches the first
// skill of each of the first three skill categories, taking at most two
// listings per category, then tops up from the most recent job title.
// Listings whose title overlaps one already chosen are skipped.
func Recommend(ctx context.Context, s Searcher, p profile.Profile) ([]Recommendation, error) {
	var (
		out  []Recommendation
		seen []string
	)

	// add appends up to limit fresh listings.
	add := func(listings []Listing, limit int, reason string) {
		taken := 0
		for _, l := range listings {
			if len(out) >= recommendLimit || taken >= limit {
				return
			}
			if overlapsAny(l.Title, seen) {
				continue
			}
			l.Description = truncateRunes(l.Description, reasonDescription)
			out = append(out, Recommendation{Listing: l, Reason: reason})
			seen = append(seen, l.Title)
			taken++
		}
	}

	groups := 0
	for _, g := range p.Skills {
		if groups >= recommendCategories || len(out) >= recommendLimit {
			break
		}
		if len(g.Skills) == 0 || strings.TrimSpace(g.Skills[0]) == "" {
			continue
		}
		groups++

		listings, err := s.Search(ctx, Query{Text: g.Skills[0], Location: recommendLocation})
		if err != nil {
			return nil, fmt.Errorf("searching for %q: %w", g.Skills[0], err)
		}
		add(listings, recommendPerCategory, fmt.Sprintf("Matches your %s expertise", g.Category))
	}

	if len(out) < recommendLimit && len(p.Experience) > 0 {
		title := strings.TrimSpace(p.Experience[0].Title)
		if title != "" {
			listings, err := s.Search(ctx, Query{Text: title, Location: recommendLocation})
			if err != nil {
				return nil, fmt.Errorf("searching for %q: %w", title, err)
			}
			add(listings, recommendLimit, "Similar to your role as "+title)
		}
	}

	return rank.Take(out, recommendLimit), nil
}

func overlapsAny(title string, seen []string) bool {
	for _, s := range seen {
		if rank.TitleOverlap(title, s) {
			return true
		}
	}
	return false
}
