package main

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kalambet/resumesync/internal/api"
	"github.com/kalambet/resumesync/internal/jobs"
	"github.com/kalambet/resumesync/internal/storage"
)

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "Search job boards and track saved jobs",
}

var jobsSearchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search public job boards",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		location, _ := cmd.Flags().GetString("location")
		limit, _ := cmd.Flags().GetInt("limit")
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		return searchJobs(cmd.Context(), client, os.Stdout, strings.Join(args, " "), location, limit)
	},
}

func searchJobs(ctx context.Context, c *apiClient, w io.Writer, query, location string, limit int) error {
	v := url.Values{"q": {query}}
	if location != "" {
		v.Set("location", location)
	}
	if limit > 0 {
		v.Set("limit", strconv.Itoa(limit))
	}
	resp, err := c.get(ctx, "/jobs/search?"+v.Encode())
	if err != nil {
		return err
	}
	var listings []jobs.Listing
	if err := decodeJSON(resp, &listings); err != nil {
		return err
	}
	if len(listings) == 0 {
		fmt.Fprintln(w, "No jobs found.")
		return nil
	}
	for i, l := range listings {
		fmt.Fprintf(w, "%2d. %s\n", i+1, listingLine(l.Title, l.Company, l.Location, l.URL))
	}
	return nil
}

var jobsRecommendCmd = &cobra.Command{
	Use:   "recommend",
	Short: "Recommend jobs based on your profile",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		return recommendJobs(cmd.Context(), client, os.Stdout)
	},
}

func recommendJobs(ctx context.Context, c *apiClient, w io.Writer) error {
	resp, err := c.get(ctx, "/jobs/recommendations")
	if err != nil {
		return err
	}
	var recs []jobs.Recommendation
	if err := decodeJSON(resp, &recs); err != nil {
		return err
	}
	if len(recs) == 0 {
		fmt.Fprintln(w, "No recommendations; add skills or experience to your profile first.")
		return nil
	}
	for i, r := range recs {
		fmt.Fprintf(w, "%2d. %s\n", i+1, listingLine(r.Title, r.Company, r.Location, r.URL))
		if r.Reason != "" {
			fmt.Fprintf(w, "    %s\n", colorize(colorDim, r.Reason))
		}
	}
	return nil
}

// --- saved jobs ---

var jobsSavedCmd = &cobra.Command{
	Use:   "saved",
	Short: "List saved jobs",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		return listSavedJobs(cmd.Context(), client, os.Stdout)
	},
}

func listSavedJobs(ctx context.Context, c *apiClient, w io.Writer) error {
	resp, err := c.get(ctx, "/jobs/saved")
	if err != nil {
		return err
	}
	var saved []storage.SavedJob
	if err := decodeJSON(resp, &saved); err != nil {
		return err
	}
	if len(saved) == 0 {
		fmt.Fprintln(w, "No saved jobs.")
		return nil
	}
	for _, j := range saved {
		fmt.Fprintf(w, "%s  %-12s %s\n", colorize(colorDim, j.ID), j.Status, listingLine(j.Title, j.Company, j.Location, j.URL))
		if j.Notes != "" {
			fmt.Fprintf(w, "    %s\n", j.Notes)
		}
	}
	return nil
}

var jobsSaveCmd = &cobra.Command{
	Use:   "save",
	Short: "Save a job listing",
	Long: `Save a job listing. Saving the same URL twice keeps the first record.

Example:
  resumesync jobs save --title "Go Engineer" --company Acme --url https://acme.dev/jobs/1`,
	RunE: func(cmd *cobra.Command, args []string) error {
		req := api.SaveJobRequest{Source: "cli"}
		req.Title, _ = cmd.Flags().GetString("title")
		req.Company, _ = cmd.Flags().GetString("company")
		req.Location, _ = cmd.Flags().GetString("location")
		req.URL, _ = cmd.Flags().GetString("url")
		req.Remote, _ = cmd.Flags().GetBool("remote")
		req.Notes, _ = cmd.Flags().GetString("notes")

		client, err := newAPIClient()
		if err != nil {
			return err
		}
		return saveJob(cmd.Context(), client, req)
	},
}

func saveJob(ctx context.Context, c *apiClient, req api.SaveJobRequest) error {
	resp, err := c.post(ctx, "/jobs/saved", req)
	if err != nil {
		return err
	}
	var saved storage.SavedJob
	if err := decodeJSON(resp, &saved); err != nil {
		return err
	}
	printSuccess("Saved %s (%s)", saved.Title, saved.ID)
	return nil
}

var jobsUpdateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Update the status or notes of a saved job",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var req api.UpdateSavedJobRequest
		if cmd.Flags().Changed("status") {
			s, _ := cmd.Flags().GetString("status")
			req.Status = &s
		}
		if cmd.Flags().Changed("notes") {
			n, _ := cmd.Flags().GetString("notes")
			req.Notes = &n
		}
		if req.Status == nil && req.Notes == nil {
			return fmt.Errorf("one of --status or --notes is required")
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}
		return updateSavedJob(cmd.Context(), client, args[0], req)
	},
}

func updateSavedJob(ctx context.Context, c *apiClient, id string, req api.UpdateSavedJobRequest) error {
	resp, err := c.patch(ctx, "/jobs/saved/"+url.PathEscape(id), req)
	if err != nil {
		return err
	}
	var saved storage.SavedJob
	if err := decodeJSON(resp, &saved); err != nil {
		return err
	}
	printSuccess("%s is now %s", saved.Title, saved.Status)
	return nil
}

var jobsRemoveCmd = &cobra.Command{
	Use:   "remove <id>",
	Short: "Remove a saved job",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		resp, err := client.delete(cmd.Context(), "/jobs/saved/"+url.PathEscape(args[0]))
		if err != nil {
			return err
		}
		var result map[string]string
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}
		printSuccess("Removed %s", args[0])
		return nil
	},
}

func init() {
	jobsSearchCmd.Flags().String("location", "", "location filter (\"remote\" matches remote jobs)")
	jobsSearchCmd.Flags().Int("limit", 0, "maximum number of results (server default when 0)")

	jobsSaveCmd.Flags().String("title", "", "job title")
	jobsSaveCmd.Flags().String("company", "", "company name")
	jobsSaveCmd.Flags().String("location", "", "job location")
	jobsSaveCmd.Flags().String("url", "", "listing URL")
	jobsSaveCmd.Flags().Bool("remote", false, "the job is remote")
	jobsSaveCmd.Flags().String("notes", "", "free-form notes")
	jobsSaveCmd.MarkFlagRequired("title")
	jobsSaveCmd.MarkFlagRequired("url")

	jobsUpdateCmd.Flags().String("status", "", "one of saved, applied, interviewing, offer, rejected")
	jobsUpdateCmd.Flags().String("notes", "", "replace the notes")

	jobsCmd.AddCommand(jobsSearchCmd, jobsRecommendCmd)
	jobsCmd.AddCommand(jobsSavedCmd, jobsSaveCmd, jobsUpdateCmd, jobsRemoveCmd)
}
