package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kalambet/resumesync/internal/api"
	"github.com/kalambet/resumesync/internal/config"
	"github.com/kalambet/resumesync/internal/credentials"
	"github.com/kalambet/resumesync/internal/profile"
	"github.com/kalambet/resumesync/internal/storage"
)

// --- chat ---

var chatCmd = &cobra.Command{
	Use:   "chat [message]",
	Short: "Chat with the assistant; resume details you mention are saved to your profile",
	Long: `Chat with the assistant. Resume details mentioned in the conversation are
extracted and merged into your profile.

With a message argument a single turn is sent. Without one an interactive
session reads lines from stdin until EOF or "/quit".`,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		if len(args) > 0 {
			return sendChat(ctx, client, os.Stdout, strings.Join(args, " "))
		}
		return chatLoop(ctx, client, os.Stdin, os.Stdout)
	},
}

func sendChat(ctx context.Context, c *apiClient, w io.Writer, message string) error {
	resp, err := c.post(ctx, "/chat", api.ChatRequest{Message: message})
	if err != nil {
		return err
	}
	var result api.ChatResponse
	if err := decodeJSON(resp, &result); err != nil {
		return err
	}
	fmt.Fprintln(w, result.Reply)
	if result.ProfileUpdated {
		printSuccess("Profile updated")
	}
	return nil
}

func chatLoop(ctx context.Context, c *apiClient, in io.Reader, w io.Writer) error {
	sc := bufio.NewScanner(in)
	for {
		fmt.Fprint(w, colorize(colorBold, "> "))
		if !sc.Scan() {
			fmt.Fprintln(w)
			return sc.Err()
		}
		line := strings.TrimSpace(sc.Text())
		switch line {
		case "":
			continue
		case "/quit", "/exit":
			return nil
		}
		// A failed turn is reported and the session continues.
		if err := sendChat(ctx, c, w, line); err != nil {
			printError("%v", err)
		}
	}
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent chat messages",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		return showHistory(cmd.Context(), client, os.Stdout, limit)
	},
}

func showHistory(ctx context.Context, c *apiClient, w io.Writer, limit int) error {
	resp, err := c.get(ctx, fmt.Sprintf("/messages?limit=%d", limit))
	if err != nil {
		return err
	}
	var msgs []storage.Message
	if err := decodeJSON(resp, &msgs); err != nil {
		return err
	}
	if len(msgs) == 0 {
		fmt.Fprintln(w, "No messages yet.")
		return nil
	}
	for _, m := range msgs {
		role := colorize(colorCyan, m.Role)
		if m.Role == "user" {
			role = colorize(colorBold, "you")
		}
		fmt.Fprintf(w, "%s %s: %s\n", colorize(colorDim, m.CreatedAt.Local().Format("2006-01-02 15:04")), role, m.Content)
	}
	return nil
}

func init() {
	historyCmd.Flags().Int("limit", 20, "number of messages to show")
	chatCmd.AddCommand(historyCmd)
}

// --- extract ---

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Extract resume information from text and merge it into your profile",
	Long: `Extract resume information from text and merge it into your profile.
Existing values are never overwritten.

Examples:
  resumesync extract --text "I worked as a Go developer at Acme from 2020 to 2023"
  resumesync extract --file ./bio.txt
  cat bio.txt | resumesync extract --file -`,
	RunE: func(cmd *cobra.Command, args []string) error {
		text, err := readTextInput(cmd)
		if err != nil {
			return err
		}
		if text == "" {
			return fmt.Errorf("one of --text or --file is required")
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}
		return runExtract(cmd.Context(), client, text)
	},
}

// readTextInput returns the --text flag or the contents of --file ("-"
// reads stdin). Neither flag yields an empty string.
func readTextInput(cmd *cobra.Command) (string, error) {
	text, _ := cmd.Flags().GetString("text")
	file, _ := cmd.Flags().GetString("file")

	switch {
	case text != "" && file != "":
		return "", fmt.Errorf("only one of --text or --file may be given")
	case file == "-":
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("reading stdin: %w", err)
		}
		return string(data), nil
	case file != "":
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("reading file: %w", err)
		}
		return string(data), nil
	}
	return text, nil
}

func runExtract(ctx context.Context, c *apiClient, text string) error {
	resp, err := c.post(ctx, "/extract", api.ExtractRequest{Text: text})
	if err != nil {
		return err
	}
	var result api.ExtractResponse
	if err := decodeJSON(resp, &result); err != nil {
		return err
	}
	switch {
	case result.Fragment == nil:
		printWarning("No resume information found")
	case result.Merged:
		printSuccess("Profile updated")
	default:
		printSuccess("Nothing new; profile already contains this information")
	}
	return nil
}

func init() {
	extractCmd.Flags().String("text", "", "text to extract from")
	extractCmd.Flags().String("file", "", "text file to extract from (\"-\" for stdin)")
}

// --- documents ---

var uploadCmd = &cobra.Command{
	Use:   "upload <file>",
	Short: "Upload a resume (PDF, HTML or text) for background extraction",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("reading file: %w", err)
		}
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		return runUpload(cmd.Context(), client, filepath.Base(args[0]), data)
	},
}

func runUpload(ctx context.Context, c *apiClient, filename string, data []byte) error {
	printStep("Uploading %s", filename)
	resp, err := c.upload(ctx, "/documents", filename, data)
	if err != nil {
		return err
	}
	var result api.UploadResponse
	if err := decodeJSON(resp, &result); err != nil {
		return err
	}
	printSuccess("Queued document %s", result.ID)
	return nil
}

var documentsCmd = &cobra.Command{
	Use:   "documents",
	Short: "List uploaded documents and their processing status",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		return listDocuments(cmd.Context(), client, os.Stdout, limit)
	},
}

func listDocuments(ctx context.Context, c *apiClient, w io.Writer, limit int) error {
	resp, err := c.get(ctx, fmt.Sprintf("/documents?limit=%d", limit))
	if err != nil {
		return err
	}
	var docs []storage.Document
	if err := decodeJSON(resp, &docs); err != nil {
		return err
	}
	if len(docs) == 0 {
		fmt.Fprintln(w, "No documents uploaded.")
		return nil
	}
	for _, d := range docs {
		fmt.Fprintf(w, "%s  %-10s %s\n", d.ID, documentStatus(d.Status), d.Filename)
		if d.Error != "" {
			fmt.Fprintf(w, "    %s\n", colorize(colorDim, d.Error))
		}
	}
	return nil
}

func documentStatus(s string) string {
	switch s {
	case storage.DocProcessed:
		return colorize(colorGreen, s)
	case storage.DocFailed:
		return colorize(colorRed, s)
	case storage.DocNoData:
		return colorize(colorYellow, s)
	}
	return s
}

func init() {
	documentsCmd.Flags().Int("limit", 20, "number of documents to show")
}

// --- profile ---

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Manage your resume profile",
}

var profileShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the profile as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		p, err := fetchProfile(cmd.Context(), client)
		if err != nil {
			return err
		}
		return printJSON(os.Stdout, p)
	},
}

func fetchProfile(ctx context.Context, c *apiClient) (profile.Profile, error) {
	resp, err := c.get(ctx, "/profile")
	if err != nil {
		return profile.Profile{}, err
	}
	var p profile.Profile
	if err := decodeJSON(resp, &p); err != nil {
		return profile.Profile{}, err
	}
	return p, nil
}

var profileSummaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Show a plain-text summary of the profile",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		p, err := fetchProfile(cmd.Context(), client)
		if err != nil {
			return err
		}
		s := profile.Summarize(p)
		if s == "" {
			fmt.Println("Profile is empty.")
			return nil
		}
		fmt.Println(s)
		return nil
	},
}

var profileEditCmd = &cobra.Command{
	Use:   "edit",
	Short: "Open the profile JSON in $EDITOR and replace it on save",
	RunE: func(cmd *cobra.Command, args []string) error {
		editor := os.Getenv("EDITOR")
		if editor == "" {
			editor = "vi"
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}
		ctx := cmd.Context()

		p, err := fetchProfile(ctx, client)
		if err != nil {
			return err
		}
		data, err := json.MarshalIndent(p, "", "  ")
		if err != nil {
			return err
		}

		tmpFile, err := os.CreateTemp("", "resumesync-profile-*.json")
		if err != nil {
			return fmt.Errorf("creating temp file: %w", err)
		}
		tmpPath := tmpFile.Name()
		defer os.Remove(tmpPath)

		if _, err := tmpFile.Write(data); err != nil {
			tmpFile.Close()
			return err
		}
		tmpFile.Close()

		editorCmd := exec.Command(editor, tmpPath)
		editorCmd.Stdin = os.Stdin
		editorCmd.Stdout = os.Stdout
		editorCmd.Stderr = os.Stderr
		if err := editorCmd.Run(); err != nil {
			return fmt.Errorf("editor exited with error: %w", err)
		}

		edited, err := os.ReadFile(tmpPath)
		if err != nil {
			return err
		}
		var updated profile.Profile
		if err := json.Unmarshal(edited, &updated); err != nil {
			return fmt.Errorf("invalid JSON: %w", err)
		}

		resp, err := client.put(ctx, "/profile", updated)
		if err != nil {
			return err
		}
		if err := decodeJSON(resp, &updated); err != nil {
			return err
		}
		printSuccess("Profile updated")
		return nil
	},
}

var profileEnhanceCmd = &cobra.Command{
	Use:   "enhance",
	Short: "Rewrite summary, experience and project descriptions for impact",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		return runEnhance(cmd.Context(), client)
	},
}

func runEnhance(ctx context.Context, c *apiClient) error {
	printStep("Asking the model to polish your profile")
	resp, err := c.post(ctx, "/profile/enhance", nil)
	if err != nil {
		return err
	}
	var result api.EnhanceResponse
	if err := decodeJSON(resp, &result); err != nil {
		return err
	}
	if !result.Enhanced {
		printWarning("No changes suggested")
		return nil
	}
	printSuccess("Profile enhanced")
	return nil
}

func init() {
	profileCmd.AddCommand(profileShowCmd)
	profileCmd.AddCommand(profileSummaryCmd)
	profileCmd.AddCommand(profileEditCmd)
	profileCmd.AddCommand(profileEnhanceCmd)
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		for _, k := range config.ShowAll(cfg) {
			fmt.Printf("  %s = %s\n", colorize(colorBold, k.Key), k.Value)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long: "Set a configuration value.\n\nValid keys: " + strings.Join(config.ValidKeys(), ", ") +
		"\n\nAPI keys are not stored in the config file; use \"config set-keys\".",
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]
		if err := config.SetKey(key, value); err != nil {
			return err
		}
		printSuccess("Set %s = %s", key, value)
		return nil
	},
}

var configSetKeysCmd = &cobra.Command{
	Use:   "set-keys <key1,key2,...>",
	Short: "Store the AI provider API keys in the secrets file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.StoreAPIKeys(args[0]); err != nil {
			return err
		}
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		printSuccess("Stored API keys (%d usable)", credentials.NewPool(cfg.LLM.APIKeys).Len())
		if os.Getenv("RESUMESYNC_API_KEYS") != "" || os.Getenv("GEMINI_API_KEY") != "" {
			printWarning("an API key environment variable is set and takes precedence")
		}
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configSetKeysCmd)
}
