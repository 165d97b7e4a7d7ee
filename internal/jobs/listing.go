// Package jobs searches public job boards and turns a profile into job
// recommendations.
package jobs

import (
	"context"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/kalambet/resumesync/internal/rank"
)

// DefaultLimit is the number of listings returned when a query sets none.
const DefaultLimit = 5

// Listing is one job posting normalized across sources.
type Listing struct {
	Title       string   `json:"title"`
	Company     string   `json:"company"`
	Location    string   `json:"location"`
	URL         string   `json:"url"`
	Remote      bool     `json:"remote"`
	Description string   `json:"description"`
	Source      string   `json:"source"`
	Tags        []string `json:"tags,omitempty"`
	Posted      string   `json:"posted,omitempty"`
}

// Key identifies a listing across sources: its URL, or the normalized
// title when the URL is missing or a placeholder.
func (l Listing) Key() string {
	if u := strings.TrimSpace(l.URL); u != "" && u != "#" {
		return canonicalURL(u)
	}
	return rank.NormalizeTitle(l.Title)
}

// canonicalURL lower-cases the scheme and host and drops a trailing slash
// from the path. Path and query keep their case.
func canonicalURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return strings.TrimRight(raw, "/")
	}
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Path = strings.TrimRight(u.Path, "/")
	u.RawPath = strings.TrimRight(u.RawPath, "/")
	return u.String()
}

// Query is a job search request.
type Query struct {
	Text     string
	Location string
	Limit    int
}

func (q Query) limit() int {
	if q.Limit <= 0 {
		return DefaultLimit
	}
	return q.Limit
}

// Source is one job board.
type Source interface {
	Name() string
	Search(ctx context.Context, q Query) ([]Listing, error)
}

// Searcher is anything that answers a job query, typically an Aggregator.
type Searcher interface {
	Search(ctx context.Context, q Query) ([]Listing, error)
}

// matchesText reports whether every word of q appears in the listing's
// title, company, tags or description.
func matchesText(l Listing, q string) bool {
	words := strings.Fields(strings.ToLower(q))
	if len(words) == 0 {
		return true
	}
	hay := strings.ToLower(l.Title + " " + l.Company + " " + strings.Join(l.Tags, " ") + " " + l.Description)
	for _, w := range words {
		if !strings.Contains(hay, w) {
			return false
		}
	}
	return true
}

// matchesLocation accepts remote listings for a "remote" query and
// otherwise does a case-insensitive substring match.
func matchesLocation(l Listing, loc string) bool {
	loc = strings.ToLower(strings.TrimSpace(loc))
	if loc == "" {
		return true
	}
	if loc == "remote" && l.Remote {
		return true
	}
	return strings.Contains(strings.ToLower(l.Location), loc)
}

func filter(listings []Listing, q Query) []Listing {
	out := make([]Listing, 0, len(listings))
	for _, l := range listings {
		if matchesText(l, q.Text) && matchesLocation(l, q.Location) {
			out = append(out, l)
		}
	}
	return out
}

// truncateRunes cuts s to n runes and marks the cut with "...".
func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return strings.TrimSpace(string(r[:n])) + "..."
}
