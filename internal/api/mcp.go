package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kalambet/resumesync/internal/executor"
	"github.com/kalambet/resumesync/internal/extract"
	"github.com/kalambet/resumesync/internal/jobs"
	"github.com/kalambet/resumesync/internal/profile"
)

// MCPDeps holds dependencies for the MCP server.
type MCPDeps struct {
	Profiles  *profile.Manager
	Extractor Extractor
	Jobs      jobs.Searcher
	JobsLimit int
}

// NewMCPServer creates an MCP server exposing the model-backed features and
// job search as tools, and the profile as a resource.
func NewMCPServer(deps MCPDeps, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"resumesync",
		version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("resumesync keeps a structured resume profile up to date from free text and finds matching jobs."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("extract_profile",
			mcp.WithDescription("Extract resume information from free text and merge it into the user's profile. Existing values are never overwritten."),
			mcp.WithString("text", mcp.Description("Resume text, bio, or any text describing the user"), mcp.Required()),
			mcp.WithString("user_id", mcp.Description("Profile to update (default \"default\")")),
		),
		mcpExtractProfile(deps),
	)

	s.AddTool(
		mcp.NewTool("search_jobs",
			mcp.WithDescription("Search public job boards. Results are deduplicated across boards."),
			mcp.WithString("query", mcp.Description("Keywords, e.g. \"golang backend\""), mcp.Required()),
			mcp.WithString("location", mcp.Description("Location filter; \"remote\" matches remote jobs")),
			mcp.WithNumber("limit", mcp.Description("Maximum number of results (default 5)")),
		),
		mcpSearchJobs(deps),
	)

	s.AddTool(
		mcp.NewTool("recommend_jobs",
			mcp.WithDescription("Recommend up to five jobs based on the user's skills and most recent role."),
			mcp.WithString("user_id", mcp.Description("Profile to recommend for (default \"default\")")),
		),
		mcpRecommendJobs(deps),
	)

	s.AddTool(
		mcp.NewTool("generate_cover_letter",
			mcp.WithDescription("Draft a cover letter for a job, personalized with the user's profile."),
			mcp.WithString("job_title", mcp.Description("Title of the position"), mcp.Required()),
			mcp.WithString("company_name", mcp.Description("Hiring company"), mcp.Required()),
			mcp.WithString("job_description", mcp.Description("Posting text to tailor the letter to")),
			mcp.WithString("tone", mcp.Description("professional (default), enthusiastic or creative")),
			mcp.WithString("user_id", mcp.Description("Profile to draw on (default \"default\")")),
		),
		mcpCoverLetter(deps),
	)

	s.AddTool(
		mcp.NewTool("score_resume",
			mcp.WithDescription("Score a resume out of 100 with strengths, weaknesses and improvements. Scores the user's profile when no text is given."),
			mcp.WithString("resume_text", mcp.Description("Resume text to score")),
			mcp.WithString("user_id", mcp.Description("Profile to score when resume_text is empty (default \"default\")")),
		),
		mcpScoreResume(deps),
	)

	s.AddResource(
		mcp.NewResource(
			"user://profile",
			"Resume Profile",
			mcp.WithResourceDescription("The default user's resume profile as JSON"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceProfile(deps),
	)

	return s
}

func mcpUserID(req mcp.CallToolRequest) string {
	if id := strings.TrimSpace(req.GetString("user_id", "")); id != "" {
		return id
	}
	return DefaultUserID
}

// mcpModelError renders a failed model call for a tool result.
func mcpModelError(err error) *mcp.CallToolResult {
	switch {
	case errors.Is(err, executor.ErrNoCredentials):
		return mcpError("AI service is not configured: no API keys")
	case errors.Is(err, executor.ErrAllCredentialsExhausted):
		return mcpError("AI service unavailable, please try again")
	default:
		return mcpError(fmt.Sprintf("AI service error: %v", err))
	}
}

func mcpExtractProfile(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		text, err := req.RequireString("text")
		if err != nil || strings.TrimSpace(text) == "" {
			return mcpError("text is required"), nil
		}
		userID := mcpUserID(req)

		current, err := deps.Profiles.Get(userID)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to load profile: %v", err)), nil
		}
		res, err := deps.Extractor.Extract(ctx, text, current)
		if err != nil {
			return mcpModelError(err), nil
		}
		if res.Fragment == nil {
			return mcpText("No profile information found in the text."), nil
		}

		_, changed, err := deps.Profiles.Apply(userID, res.Fragment)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to update profile: %v", err)), nil
		}
		b, err := json.Marshal(map[string]any{"merged": changed, "fragment": res.Fragment})
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal result: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpSearchJobs(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, err := req.RequireString("query")
		if err != nil || strings.TrimSpace(query) == "" {
			return mcpError("query is required"), nil
		}

		limit := req.GetInt("limit", deps.JobsLimit)
		if limit <= 0 {
			limit = jobs.DefaultLimit
		}
		if limit > maxJobsLimit {
			limit = maxJobsLimit
		}

		listings, err := deps.Jobs.Search(ctx, jobs.Query{
			Text:     strings.TrimSpace(query),
			Location: strings.TrimSpace(req.GetString("location", "")),
			Limit:    limit,
		})
		if err != nil {
			return mcpError(fmt.Sprintf("job search failed: %v", err)), nil
		}
		if listings == nil {
			listings = []jobs.Listing{}
		}
		b, err := json.Marshal(listings)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal results: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpRecommendJobs(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		p, err := deps.Profiles.Get(mcpUserID(req))
		if err != nil {
			return mcpError(fmt.Sprintf("failed to load profile: %v", err)), nil
		}

		recs, err := jobs.Recommend(ctx, deps.Jobs, p)
		if err != nil {
			return mcpError(fmt.Sprintf("recommendation failed: %v", err)), nil
		}
		if recs == nil {
			recs = []jobs.Recommendation{}
		}
		b, err := json.Marshal(recs)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal results: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpCoverLetter(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		title := strings.TrimSpace(req.GetString("job_title", ""))
		company := strings.TrimSpace(req.GetString("company_name", ""))
		if title == "" || company == "" {
			return mcpError("job_title and company_name are required"), nil
		}

		candidate, err := deps.Profiles.Get(mcpUserID(req))
		if err != nil {
			return mcpError(fmt.Sprintf("failed to load profile: %v", err)), nil
		}
		letter, err := deps.Extractor.CoverLetter(ctx, extract.CoverLetterRequest{
			JobTitle:       title,
			Company:        company,
			JobDescription: req.GetString("job_description", ""),
			Tone:           req.GetString("tone", ""),
		}, candidate)
		if err != nil {
			return mcpModelError(err), nil
		}
		return mcpText(letter), nil
	}
}

func mcpScoreResume(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		text := strings.TrimSpace(req.GetString("resume_text", ""))
		if text == "" {
			p, err := deps.Profiles.Get(mcpUserID(req))
			if err != nil {
				return mcpError(fmt.Sprintf("failed to load profile: %v", err)), nil
			}
			if p.IsEmpty() {
				return mcpError("resume_text is required while the profile is empty"), nil
			}
			b, err := json.MarshalIndent(p, "", "  ")
			if err != nil {
				return mcpError(fmt.Sprintf("failed to marshal profile: %v", err)), nil
			}
			text = string(b)
		}

		score, err := deps.Extractor.ScoreResume(ctx, text)
		if err != nil {
			return mcpModelError(err), nil
		}
		b, err := json.Marshal(score)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal result: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpResourceProfile(deps MCPDeps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		p, err := deps.Profiles.Get(DefaultUserID)
		if err != nil {
			return nil, fmt.Errorf("failed to get profile: %w", err)
		}

		b, err := json.Marshal(p)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal profile: %w", err)
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(b),
			},
		}, nil
	}
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
