package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/kalambet/resumesync/internal/api"
	"github.com/kalambet/resumesync/internal/config"
	"github.com/kalambet/resumesync/internal/credentials"
	"github.com/kalambet/resumesync/internal/executor"
	"github.com/kalambet/resumesync/internal/extract"
	"github.com/kalambet/resumesync/internal/ingest"
	"github.com/kalambet/resumesync/internal/jobs"
	"github.com/kalambet/resumesync/internal/llm"
	"github.com/kalambet/resumesync/internal/profile"
	"github.com/kalambet/resumesync/internal/storage"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the resumesync API server (foreground)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer()
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running resumesync server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return stopServer()
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show server and configuration status",
	RunE: func(cmd *cobra.Command, args []string) error {
		return showStatus()
	},
}

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve profile extraction and job search over MCP (stdio)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMCP()
	},
}

// services is the wired application graph shared by serve and mcp.
type services struct {
	store     *storage.Store
	profiles  *profile.Manager
	extractor *extract.Extractor
	jobs      *jobs.Aggregator
}

func buildServices(cfg config.Config) (*services, error) {
	pool := credentials.NewPool(cfg.LLM.APIKeys)
	if pool.Empty() {
		slog.Warn("no AI credentials configured; chat and extraction will report the service as unavailable")
	} else {
		slog.Info("AI credentials loaded", "count", pool.Len(), "provider", cfg.LLM.Provider)
	}

	opts := []executor.Option{
		executor.WithAttemptTimeout(cfg.LLM.Timeout()),
		executor.WithLogger(slog.Default()),
	}
	if cfg.LLM.RateLimit > 0 {
		opts = append(opts, executor.WithRateLimit(rate.Limit(cfg.LLM.RateLimit), 1))
	}
	if cfg.LLM.FastFail {
		opts = append(opts, executor.WithFastFail())
	}
	exec := executor.New(pool, opts...)

	gen, err := llm.New(cfg.LLM.Provider, cfg.LLM.Model, cfg.LLM.BaseURL)
	if err != nil {
		return nil, err
	}

	store, err := storage.Open(cfg.Storage.DataDir)
	if err != nil {
		return nil, fmt.Errorf("opening storage: %w", err)
	}

	return &services{
		store:     store,
		profiles:  profile.NewManager(store),
		extractor: extract.New(gen, exec, extract.WithLogger(slog.Default())),
		jobs: jobs.NewAggregator(
			jobs.DefaultSources(&http.Client{Timeout: 15 * time.Second}),
			jobs.WithAggregatorLogger(slog.Default()),
		),
	}, nil
}

func (s *services) close() {
	if err := s.store.Close(); err != nil {
		printWarning("closing storage: %v", err)
	}
}

func pidFilePath(dataDir string) string {
	return filepath.Join(dataDir, "resumesync.pid")
}

func writePIDFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0o644)
}

func readPIDFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(string(data)))
}

func runServer() error {
	fmt.Fprintln(os.Stderr, versionString())

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	setupLogging(cfg.Log.Level)

	token, err := config.APIToken()
	if err != nil {
		return fmt.Errorf("initializing API token: %w", err)
	}

	healthURL := fmt.Sprintf("http://127.0.0.1:%d/health", cfg.Server.Port)
	if resp, err := (&http.Client{Timeout: 2 * time.Second}).Get(healthURL); err == nil {
		resp.Body.Close()
		return fmt.Errorf("server already running on port %d", cfg.Server.Port)
	}

	pidPath := pidFilePath(cfg.Storage.DataDir)
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("writing PID file: %w", err)
	}
	defer os.Remove(pidPath)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	svc, err := buildServices(cfg)
	if err != nil {
		return err
	}
	defer svc.close()

	worker := ingest.NewWorker(svc.store, svc.extractor, svc.profiles, 500*time.Millisecond)
	go worker.Run(ctx)

	handler := api.NewHandler(api.Deps{
		Store:     svc.store,
		Profiles:  svc.profiles,
		Extractor: svc.extractor,
		Jobs:      svc.jobs,
		JobsLimit: cfg.Jobs.Limit,
		Token:     token,
	})

	addr := fmt.Sprintf("127.0.0.1:%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		fmt.Fprintln(os.Stderr, "shutting down...")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// runMCP serves the MCP tools over stdin/stdout. Queued document jobs are
// processed too, so uploads made through the API are not stranded while
// only the MCP process runs.
func runMCP() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	setupLogging(cfg.Log.Level)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	svc, err := buildServices(cfg)
	if err != nil {
		return err
	}
	defer svc.close()

	mcpSrv := api.NewMCPServer(api.MCPDeps{
		Profiles:  svc.profiles,
		Extractor: svc.extractor,
		Jobs:      svc.jobs,
		JobsLimit: cfg.Jobs.Limit,
	}, version)

	slog.Info("MCP server started (stdio transport)")
	if err := server.NewStdioServer(mcpSrv).Listen(ctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("MCP stdio server: %w", err)
	}
	return nil
}

func stopServer() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	pidPath := pidFilePath(cfg.Storage.DataDir)
	pid, err := readPIDFile(pidPath)
	if err != nil {
		return fmt.Errorf("resumesync is not running (no PID file)")
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("finding process %d: %w", pid, err)
	}
	if err := process.Signal(syscall.SIGTERM); err != nil {
		os.Remove(pidPath)
		return fmt.Errorf("could not stop resumesync (PID %d): %w", pid, err)
	}

	printSuccess("Sent stop signal to resumesync (PID %d)", pid)
	return nil
}

func showStatus() error {
	cfg, err := config.Load()
	if err != nil {
		printError("config error: %v", err)
		return nil
	}

	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get(fmt.Sprintf("http://127.0.0.1:%d/health", cfg.Server.Port))
	switch {
	case err != nil:
		printStatus("Server", "stopped")
	case resp.StatusCode == http.StatusOK:
		resp.Body.Close()
		printStatus("Server", "running on port %d", cfg.Server.Port)
	default:
		resp.Body.Close()
		printStatus("Server", "error (HTTP %d)", resp.StatusCode)
	}

	printStatus("Provider", "%s (%s)", cfg.LLM.Provider, cfg.LLM.Model)
	if n := len(credentials.NewPool(cfg.LLM.APIKeys).All()); n > 0 {
		printStatus("Credentials", "%d configured", n)
	} else {
		printStatus("Credentials", "%s", colorize(colorYellow, "none"))
	}
	printStatus("Attempt timeout", "%s", cfg.LLM.Timeout())
	printStatus("Data dir", "%s", cfg.Storage.DataDir)
	return nil
}
