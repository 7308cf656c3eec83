// Command apex runs the Apex conversational agent.
//
// Usage:
//
//	apex serve [-config path]           start the HTTP API server
//	apex ask [-config path] <message>   resolve one message and print the reply
//	apex version                        print build information
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/apexlabs/apex-agent/internal/agent"
	"github.com/apexlabs/apex-agent/internal/api"
	"github.com/apexlabs/apex-agent/internal/buildinfo"
	"github.com/apexlabs/apex-agent/internal/config"
	"github.com/apexlabs/apex-agent/internal/llm"
	"github.com/apexlabs/apex-agent/internal/memory"
	"github.com/apexlabs/apex-agent/internal/prompts"
	"github.com/apexlabs/apex-agent/internal/search"
	"github.com/apexlabs/apex-agent/internal/tools"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Stdout, os.Stderr, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "usage: apex <command> [options]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "commands:")
	fmt.Fprintln(w, "  serve    start the HTTP API server")
	fmt.Fprintln(w, "  ask      resolve one message and print the reply")
	fmt.Fprintln(w, "  version  print build information")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "options:")
	fmt.Fprintln(w, "  -config path   config file (default: search standard locations)")
	fmt.Fprintln(w, "  -o path        log file (default: stderr)")
}

func run(ctx context.Context, stdout, stderr io.Writer, args []string) error {
	if len(args) == 0 {
		usage(stderr)
		return fmt.Errorf("no command given")
	}

	command := args[0]
	args = args[1:]

	// Credentials may live in a .env file next to the binary; missing
	// is fine.
	_ = godotenv.Load()

	var configPath, logPath string
	var rest []string
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "-config", "--config":
			if i+1 >= len(args) {
				return fmt.Errorf("%s requires a path argument", args[i])
			}
			i++
			configPath = args[i]
		case "-o", "--output":
			if i+1 >= len(args) {
				return fmt.Errorf("%s requires a path argument", args[i])
			}
			i++
			logPath = args[i]
		case "-h", "-help", "--help":
			usage(stdout)
			return nil
		default:
			rest = append(rest, args[i])
		}
	}

	switch command {
	case "version":
		fmt.Fprintln(stdout, buildinfo.String())
		return nil
	case "serve", "ask":
	default:
		usage(stderr)
		return fmt.Errorf("unknown command %q", command)
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	logger, closeLog, err := newLogger(cfg, stderr, logPath)
	if err != nil {
		return err
	}
	defer closeLog()

	client := buildLLM(cfg, logger)
	registry := buildRegistry(cfg, logger)
	orch := agent.New(logger, client, cfg.Models.Default, registry, prompts.System())

	switch command {
	case "ask":
		return runAsk(ctx, stdout, orch, rest)
	default:
		return runServe(ctx, cfg, logger, orch)
	}
}

// loadConfig finds and loads the config file. When no file exists
// anywhere in the search path, built-in defaults are used.
func loadConfig(explicit string) (*config.Config, error) {
	path, err := config.FindConfig(explicit)
	if err != nil {
		if explicit != "" {
			return nil, err
		}
		cfg := config.Default()
		return cfg, cfg.Validate()
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func newLogger(cfg *config.Config, stderr io.Writer, logPath string) (*slog.Logger, func(), error) {
	level, err := config.ParseLogLevel(cfg.LogLevel)
	if err != nil {
		return nil, nil, err
	}

	out := stderr
	closeLog := func() {}
	if logPath != "" {
		f, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		out = f
		closeLog = func() { f.Close() }
	}

	opts := &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: config.ReplaceLogLevelNames,
	}

	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = slog.NewTextHandler(out, opts)
	}

	return slog.New(handler), closeLog, nil
}

// buildLLM assembles the provider router: Ollama as the fallback, plus
// an OpenAI-compatible backend when a key is configured. Models listed
// under models.available are pinned to their provider.
func buildLLM(cfg *config.Config, logger *slog.Logger) llm.Client {
	ollama := llm.NewOllamaClient(cfg.Models.OllamaURL, logger)

	multi := llm.NewMultiClient(ollama)
	multi.AddProvider("ollama", ollama)

	if cfg.Models.OpenAI.Configured() {
		openaiClient := llm.NewOpenAIClient(llm.OpenAIConfig{
			APIKey:  cfg.Models.OpenAI.APIKey,
			BaseURL: cfg.Models.OpenAI.BaseURL,
			Timeout: time.Duration(cfg.Models.OpenAI.TimeoutSec) * time.Second,
		}, logger)
		multi.AddProvider("openai", openaiClient)
	}

	for _, m := range cfg.Models.Available {
		multi.AddModel(m.Name, m.Provider)
	}

	return multi
}

// buildRegistry assembles the tool set. get_time is always available;
// web_search only when a search provider is configured.
func buildRegistry(cfg *config.Config, logger *slog.Logger) *tools.Registry {
	registry := tools.NewRegistry()

	registry.Register(tools.NewTimeTool(tools.TimeConfig{
		UTCOffsetHours: cfg.Clock.UTCOffsetHours,
		Label:          cfg.Clock.Label,
	}))

	mgr := search.NewManager(cfg.Search.Provider)
	if cfg.Search.Brave.Configured() {
		mgr.Register(search.NewBrave(cfg.Search.Brave.APIKey))
	}
	if cfg.Search.SearXNG.Configured() {
		mgr.Register(search.NewSearXNG(cfg.Search.SearXNG.BaseURL))
	}

	if mgr.Configured() {
		registry.Register(&tools.Tool{
			Name:        "web_search",
			Description: "Search the web for current information, facts, news, and data.",
			Parameters:  search.ToolDefinition(),
			Handler:     search.ToolHandler(mgr, cfg.Search.MaxResults, logger),
		})
		logger.Info("search configured", "providers", mgr.Providers(), "primary", cfg.Search.Provider)
	} else {
		logger.Warn("no search provider configured, web_search disabled")
	}

	logger.Info("tools registered", "tools", registry.Names())
	return registry
}

// runAsk resolves a single message and prints the reply to stdout.
// An error-status turn still prints its reply but exits nonzero.
func runAsk(ctx context.Context, stdout io.Writer, orch *agent.Orchestrator, rest []string) error {
	message := strings.Join(rest, " ")

	outcome := orch.Resolve(ctx, message)
	fmt.Fprintln(stdout, outcome.Reply)

	if outcome.Status == agent.StatusError {
		return fmt.Errorf("turn resolved with status %s", outcome.Status)
	}
	return nil
}

func runServe(ctx context.Context, cfg *config.Config, logger *slog.Logger, orch *agent.Orchestrator) error {
	logger.Info("starting", "build", buildinfo.String())

	var store *memory.TurnStore
	if cfg.DataDir != "" {
		if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
			return fmt.Errorf("create data dir: %w", err)
		}
		var err error
		store, err = memory.NewTurnStore(filepath.Join(cfg.DataDir, "turns.db"))
		if err != nil {
			return fmt.Errorf("open turn store: %w", err)
		}
		defer store.Close()
	} else {
		logger.Warn("data_dir not set, turn log disabled")
	}

	server := api.NewServer(cfg.Listen.Address, cfg.Listen.Port, orch, store, prompts.System(), logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start(ctx)
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info("stopped")
	return nil
}
