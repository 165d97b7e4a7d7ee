package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kalambet/resumesync/internal/api"
	"github.com/kalambet/resumesync/internal/extract"
)

// --- cover letter ---

var coverLetterCmd = &cobra.Command{
	Use:   "cover-letter",
	Short: "Draft a cover letter for a job using your profile",
	Long: `Draft a cover letter for a job using your profile.

Examples:
  resumesync cover-letter --title "Go Engineer" --company Acme --text "We build payment APIs..."
  resumesync cover-letter --title "SRE" --company Beta --file posting.txt --tone enthusiastic > letter.txt`,
	RunE: func(cmd *cobra.Command, args []string) error {
		description, err := readTextInput(cmd)
		if err != nil {
			return err
		}
		req := api.CoverLetterRequest{JobDescription: description}
		req.JobTitle, _ = cmd.Flags().GetString("title")
		req.CompanyName, _ = cmd.Flags().GetString("company")
		req.Tone, _ = cmd.Flags().GetString("tone")

		client, err := newAPIClient()
		if err != nil {
			return err
		}
		return runCoverLetter(cmd.Context(), client, os.Stdout, req)
	},
}

func runCoverLetter(ctx context.Context, c *apiClient, w io.Writer, req api.CoverLetterRequest) error {
	printStep("Drafting a cover letter for %s at %s", req.JobTitle, req.CompanyName)
	resp, err := c.post(ctx, "/cover-letter", req)
	if err != nil {
		return err
	}
	var result api.CoverLetterResponse
	if err := decodeJSON(resp, &result); err != nil {
		return err
	}
	fmt.Fprintln(w, result.CoverLetter)
	return nil
}

// --- resume score ---

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Score a resume out of 100 (your profile when no text is given)",
	RunE: func(cmd *cobra.Command, args []string) error {
		text, err := readTextInput(cmd)
		if err != nil {
			return err
		}
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		return runScore(cmd.Context(), client, os.Stdout, text)
	},
}

func runScore(ctx context.Context, c *apiClient, w io.Writer, text string) error {
	resp, err := c.post(ctx, "/resume/score", api.ScoreRequest{ResumeText: text})
	if err != nil {
		return err
	}
	var s extract.Score
	if err := decodeJSON(resp, &s); err != nil {
		return err
	}

	if s.Raw != "" {
		printWarning("The model did not return a structured score")
		fmt.Fprintln(w, s.Raw)
		return nil
	}

	color := colorRed
	switch {
	case s.Score >= 80:
		color = colorGreen
	case s.Score >= 60:
		color = colorYellow
	}
	fmt.Fprintf(w, "Score: %s\n", colorize(color, fmt.Sprintf("%.0f/100", s.Score)))
	printList(w, "Strengths", s.Strengths)
	printList(w, "Weaknesses", s.Weaknesses)
	printList(w, "Improvements", s.Improvements)
	return nil
}

func printList(w io.Writer, title string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(w, "\n%s\n", colorize(colorBold, title+":"))
	for _, it := range items {
		fmt.Fprintf(w, "  - %s\n", strings.TrimSpace(it))
	}
}

func init() {
	coverLetterCmd.Flags().String("title", "", "job title")
	coverLetterCmd.Flags().String("company", "", "company name")
	coverLetterCmd.Flags().String("tone", "professional", "professional, enthusiastic or creative")
	coverLetterCmd.Flags().String("text", "", "job description")
	coverLetterCmd.Flags().String("file", "", "file with the job description (\"-\" for stdin)")
	coverLetterCmd.MarkFlagRequired("title")
	coverLetterCmd.MarkFlagRequired("company")

	scoreCmd.Flags().String("text", "", "resume text")
	scoreCmd.Flags().String("file", "", "resume text file (\"-\" for stdin)")
}
