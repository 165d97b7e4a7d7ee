package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/kalambet/resumesync/internal/document"
)

const descriptionRunes = 200

// finish filters on the full description, then shortens it for display.
func finish(listings []Listing, q Query) []Listing {
	out := filter(listings, q)
	for i := range out {
		out[i].Description = truncateRunes(out[i].Description, descriptionRunes)
	}
	return out
}

// --- Arbeitnow ---

const arbeitnowAPI = "https://www.arbeitnow.com/api/job-board-api"

type arbeitnowResponse struct {
	Data []arbeitnowJob `json:"data"`
}

type arbeitnowJob struct {
	Slug        string   `json:"slug"`
	CompanyName string   `json:"company_name"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Remote      bool     `json:"remote"`
	URL         string   `json:"url"`
	Tags        []string `json:"tags"`
	Location    string   `json:"location"`
	CreatedAt   int64    `json:"created_at"`
}

// Arbeitnow lists the latest postings from arbeitnow.com. The endpoint has
// no search parameter, so matching happens client-side.
type Arbeitnow struct {
	baseURL string
	fetch   fetcher
}

func NewArbeitnow(client *http.Client) *Arbeitnow {
	return &Arbeitnow{baseURL: arbeitnowAPI, fetch: newFetcher(client, 1, 2)}
}

func (a *Arbeitnow) Name() string { return "arbeitnow" }

func (a *Arbeitnow) Search(ctx context.Context, q Query) ([]Listing, error) {
	var resp arbeitnowResponse
	if err := a.fetch.getJSON(ctx, a.baseURL, &resp); err != nil {
		return nil, fmt.Errorf("arbeitnow: %w", err)
	}

	listings := make([]Listing, 0, len(resp.Data))
	for _, j := range resp.Data {
		if j.Title == "" {
			continue
		}
		posted := ""
		if j.CreatedAt > 0 {
			posted = time.Unix(j.CreatedAt, 0).UTC().Format("2006-01-02")
		}
		listings = append(listings, Listing{
			Title:       j.Title,
			Company:     j.CompanyName,
			Location:    j.Location,
			URL:         j.URL,
			Remote:      j.Remote,
			Description: document.StripHTML(j.Description),
			Source:      a.Name(),
			Tags:        j.Tags,
			Posted:      posted,
		})
	}
	return finish(listings, q), nil
}

// --- Remotive ---

const remotiveAPI = "https://remotive.com/api/remote-jobs"

type remotiveResponse struct {
	Jobs []remotiveJob `json:"jobs"`
}

type remotiveJob struct {
	URL                       string   `json:"url"`
	Title                     string   `json:"title"`
	CompanyName               string   `json:"company_name"`
	Tags                      []string `json:"tags"`
	JobType                   string   `json:"job_type"`
	PublicationDate           string   `json:"publication_date"`
	CandidateRequiredLocation string   `json:"candidate_required_location"`
	Description               string   `json:"description"`
}

// Remotive searches remotive.com, which filters server-side.
type Remotive struct {
	baseURL string
	fetch   fetcher
}

func NewRemotive(client *http.Client) *Remotive {
	return &Remotive{baseURL: remotiveAPI, fetch: newFetcher(client, 1, 2)}
}

func (r *Remotive) Name() string { return "remotive" }

func (r *Remotive) Search(ctx context.Context, q Query) ([]Listing, error) {
	u, err := url.Parse(r.baseURL)
	if err != nil {
		return nil, err
	}
	params := u.Query()
	if q.Text != "" {
		params.Set("search", q.Text)
	}
	params.Set("limit", fmt.Sprint(max(q.limit()*4, 20)))
	u.RawQuery = params.Encode()

	var resp remotiveResponse
	if err := r.fetch.getJSON(ctx, u.String(), &resp); err != nil {
		return nil, fmt.Errorf("remotive: %w", err)
	}

	listings := make([]Listing, 0, len(resp.Jobs))
	for _, j := range resp.Jobs {
		if j.Title == "" || j.URL == "" {
			continue
		}
		location := j.CandidateRequiredLocation
		if location == "" {
			location = "Worldwide"
		}
		posted := j.PublicationDate
		if len(posted) >= 10 {
			posted = posted[:10]
		}
		listings = append(listings, Listing{
			Title:       j.Title,
			Company:     j.CompanyName,
			Location:    location,
			URL:         j.URL,
			Remote:      true,
			Description: document.StripHTML(j.Description),
			Source:      r.Name(),
			Tags:        j.Tags,
			Posted:      posted,
		})
	}
	// The search already matched; only the location is left to check.
	return finish(listings, Query{Location: q.Location}), nil
}

// --- RemoteOK ---

const remoteOKAPI = "https://remoteok.com/api"

type remoteOKJob struct {
	Slug        string   `json:"slug"`
	Position    string   `json:"position"`
	Company     string   `json:"company"`
	Tags        []string `json:"tags"`
	Location    string   `json:"location"`
	Date        string   `json:"date"`
	URL         string   `json:"url"`
	Description string   `json:"description"`
}

// RemoteOK queries remoteok.com by tag.
type RemoteOK struct {
	baseURL string
	fetch   fetcher
}

func NewRemoteOK(client *http.Client) *RemoteOK {
	return &RemoteOK{baseURL: remoteOKAPI, fetch: newFetcher(client, 0.5, 1)}
}

func (r *RemoteOK) Name() string { return "remoteok" }

func (r *RemoteOK) Search(ctx context.Context, q Query) ([]Listing, error) {
	u, err := url.Parse(r.baseURL)
	if err != nil {
		return nil, err
	}
	if tag := remoteOKTag(q.Text); tag != "" {
		params := u.Query()
		params.Set("tag", tag)
		u.RawQuery = params.Encode()
	}

	var raw []json.RawMessage
	if err := r.fetch.getJSON(ctx, u.String(), &raw); err != nil {
		return nil, fmt.Errorf("remoteok: %w", err)
	}

	listings := make([]Listing, 0, len(raw))
	for _, item := range raw {
		var j remoteOKJob
		// The first element is a legal notice with no position.
		if err := json.Unmarshal(item, &j); err != nil || j.Position == "" {
			continue
		}
		jobURL := j.URL
		if jobURL == "" && j.Slug != "" {
			jobURL = "https://remoteok.com/remote-jobs/" + j.Slug
		}
		posted := j.Date
		if t, err := time.Parse(time.RFC3339, j.Date); err == nil {
			posted = t.UTC().Format("2006-01-02")
		}
		location := j.Location
		if location == "" {
			location = "Remote"
		}
		listings = append(listings, Listing{
			Title:       j.Position,
			Company:     j.Company,
			Location:    location,
			URL:         jobURL,
			Remote:      true,
			Description: document.StripHTML(j.Description),
			Source:      r.Name(),
			Tags:        j.Tags,
			Posted:      posted,
		})
	}
	return finish(listings, q), nil
}

var remoteOKStopWords = map[string]bool{
	"senior": true, "junior": true, "lead": true, "staff": true, "principal": true,
	"remote": true, "job": true, "jobs": true, "developer": true, "engineer": true,
	"and": true, "or": true, "the": true, "for": true, "with": true,
}

// remoteOKTag picks the most specific word of the query as the API tag.
func remoteOKTag(q string) string {
	fields := strings.Fields(strings.ToLower(q))
	if len(fields) == 0 {
		return ""
	}
	for _, f := range fields {
		if !remoteOKStopWords[f] && len(f) > 2 {
			return f
		}
	}
	return fields[0]
}
