package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var version = "dev"

var noColor bool

var rootCmd = &cobra.Command{
	Use:   "resumesync",
	Short: "Keep a structured resume profile in sync with what you tell it",
	Long: `resumesync extracts resume information from chat, free text and uploaded
documents, merges it into a per-user profile, and finds matching jobs.

Run "resumesync serve" to start the local API, then use the other commands
to talk to it.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	Version:       version,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().StringVar(&userID, "user", "", "profile to act on (default \"default\")")

	rootCmd.AddCommand(serveCmd, stopCmd, statusCmd, mcpCmd)
	rootCmd.AddCommand(chatCmd, extractCmd, uploadCmd, documentsCmd)
	rootCmd.AddCommand(profileCmd, jobsCmd, configCmd)
	rootCmd.AddCommand(coverLetterCmd, scoreCmd)
}

func main() {
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		noColor = true
	}
	if err := rootCmd.Execute(); err != nil {
		printError("%v", err)
		os.Exit(1)
	}
}

// setupLogging installs a text slog handler on stderr. Stdout stays free for
// command output and the MCP stdio transport.
func setupLogging(level string) {
	var l slog.Level
	switch strings.ToLower(level) {
	case "debug":
		l = slog.LevelDebug
	case "warn", "warning":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	default:
		l = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: l})))
}

func versionString() string {
	return fmt.Sprintf("resumesync version %s", version)
}
