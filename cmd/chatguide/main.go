// Command chatguide runs a guided conversation in the terminal: it loads a
// guide document, drives the LLM turn loop, and saves the session after
// every turn so it can be resumed later.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"golang.org/x/term"

	"chatguide/pkg/config"
	"chatguide/pkg/guide"
	"chatguide/pkg/llm"
	"chatguide/pkg/logx"
	"chatguide/pkg/metrics"
	"chatguide/pkg/persistence"
	"chatguide/pkg/tools"
)

// Version information - set by goreleaser via ldflags.
var (
	version = "dev"
	commit  = "none"
)

func main() {
	var (
		guidePath   = flag.String("guide", "", "Path to the guide YAML document (required)")
		dbPath      = flag.String("db", "chatguide.db", "Path to the session database")
		sessionID   = flag.String("session", "", "Session id to resume (default: start fresh)")
		provider    = flag.String("provider", "", "Override the guide's LLM provider")
		model       = flag.String("model", "", "Override the guide's LLM model")
		withMetrics = flag.Bool("metrics", false, "Record Prometheus metrics")
		showStats   = flag.Bool("stats", false, "Print engine metrics from a Prometheus server and exit")
		promURL     = flag.String("prom", "http://localhost:9090", "Prometheus server URL for -stats")
		debug       = flag.Bool("debug", false, "Enable debug logging")
		showVersion = flag.Bool("version", false, "Show version information")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("chatguide %s (%s)\n", version, commit)
		os.Exit(0)
	}
	if *showStats {
		os.Exit(runStats(*promURL))
	}
	if *guidePath == "" {
		fmt.Fprintln(os.Stderr, "usage: chatguide -guide <guide.yaml> [-session <id>]")
		os.Exit(2)
	}
	if *debug {
		logx.SetDebug(true)
	}

	os.Exit(run(*guidePath, *dbPath, *sessionID, *provider, *model, *withMetrics))
}

func run(guidePath, dbPath, sessionID, provider, model string, withMetrics bool) int {
	logger := logx.NewLogger("cli")

	cfg, err := config.Load(guidePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load guide: %v\n", err)
		return 1
	}

	client, err := buildClient(cfg, provider, model)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to configure model: %v\n", err)
		return 1
	}

	registry := tools.NewRegistry()
	if err := tools.RegisterBuiltins(registry); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to register tools: %v\n", err)
		return 1
	}

	opts := []guide.Option{guide.WithTools(registry)}
	if withMetrics {
		opts = append(opts, guide.WithMetrics(metrics.NewRecorder()))
	}
	g, err := guide.New(cfg, llm.WithRetry(client, 3, time.Second), opts...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to start conversation: %v\n", err)
		return 1
	}

	store, err := persistence.Open(dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open session store: %v\n", err)
		return 1
	}
	defer func() { _ = store.Close() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if sessionID != "" {
		snap, err := store.Get(ctx, sessionID)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to resume session: %v\n", err)
			return 1
		}
		if err := g.RestoreFromDump(snap); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to restore session: %v\n", err)
			return 1
		}
		fmt.Printf("Resumed session %s (%d turns so far)\n", sessionID, g.Turns())
	} else {
		sessionID = persistence.NewSessionID()
		fmt.Printf("New session %s\n", sessionID)
	}

	return repl(ctx, g, store, sessionID, logger)
}

// runStats queries a Prometheus server for the engine's counters and prints
// an aggregate plus per-task outcome breakdown.
func runStats(promURL string) int {
	svc, err := metrics.NewQueryService(promURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to reach Prometheus: %v\n", err)
		return 1
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	engine, err := svc.GetEngineMetrics(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to query metrics: %v\n", err)
		return 1
	}
	fmt.Printf("turns: %d (%d failed)\n", engine.Turns, engine.FailedTurns)
	fmt.Printf("tasks: %d completed, %d failed\n", engine.CompletedTasks, engine.FailedTasks)
	fmt.Printf("adjustments fired: %d\n", engine.AdjustmentsFired)

	outcomes, err := svc.GetTaskOutcomes(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to query task outcomes: %v\n", err)
		return 1
	}
	for task, byOutcome := range outcomes {
		for outcome, count := range byOutcome {
			fmt.Printf("  %s %s: %d\n", task, outcome, count)
		}
	}
	return 0
}

func repl(ctx context.Context, g *guide.ChatGuide, store *persistence.Store, sessionID string, logger *logx.Logger) int {
	fmt.Println("Type your message, or /progress, /log, /quit.")
	scanner := bufio.NewScanner(os.Stdin)
	sessionStart := time.Now().UTC()

	for {
		if g.IsFinished() {
			fmt.Println("Conversation complete.")
			return 0
		}
		fmt.Print("> ")
		if !scanner.Scan() {
			return 0
		}
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
			continue
		case line == "/quit":
			return 0
		case line == "/progress":
			p := g.Progress()
			fmt.Printf("%d/%d tasks complete (%.0f%%), current: %s\n",
				p.Completed, p.Total, p.Percent, g.CurrentTask())
			continue
		case line == "/log":
			for _, e := range logx.RecentEntries("", sessionStart) {
				fmt.Printf("[%s] [%s] %s: %s\n", e.Timestamp, e.Component, e.Level, e.Message)
			}
			continue
		}

		g.AddUserMessage(line)
		reply, err := g.Chat(ctx)
		if errors.Is(err, guide.ErrConversationComplete) {
			fmt.Println("Conversation complete.")
			return 0
		}
		if err != nil {
			if ctx.Err() != nil {
				fmt.Println("\nInterrupted.")
				return 1
			}
			fmt.Fprintf(os.Stderr, "Turn failed: %v (your message is kept; try again)\n", err)
			continue
		}

		fmt.Println(reply.AssistantReply)

		snap, err := g.Dump()
		if err != nil {
			logger.Warn("failed to snapshot session: %v", err)
			continue
		}
		if err := store.Put(ctx, sessionID, snap); err != nil {
			logger.Warn("failed to save session: %v", err)
		}
	}
}

// buildClient wires the provider named by the guide (or flags), reading the
// API key from the configured environment variable and falling back to a
// hidden terminal prompt.
func buildClient(cfg *config.Guide, providerOverride, modelOverride string) (llm.Client, error) {
	doc := cfg.LLM()
	provider := doc.Provider
	if providerOverride != "" {
		provider = providerOverride
	}
	model := doc.Model
	if modelOverride != "" {
		model = modelOverride
	}
	if provider == "" {
		return nil, fmt.Errorf("guide does not name an llm provider (use -provider)")
	}

	switch provider {
	case "anthropic":
		key, err := apiKey(doc.APIKeyEnv, "ANTHROPIC_API_KEY")
		if err != nil {
			return nil, err
		}
		return llm.NewAnthropicClient(key, model), nil
	case "openai":
		key, err := apiKey(doc.APIKeyEnv, "OPENAI_API_KEY")
		if err != nil {
			return nil, err
		}
		return llm.NewOpenAIClient(key, model), nil
	case "gemini", "google":
		key, err := apiKey(doc.APIKeyEnv, "GEMINI_API_KEY")
		if err != nil {
			return nil, err
		}
		return llm.NewGeminiClient(key, model), nil
	case "ollama":
		host := doc.Host
		if host == "" {
			host = "http://localhost:11434"
		}
		return llm.NewOllamaClient(host, model), nil
	case "mock", "offline":
		return llm.NewOfflineClient(), nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", provider)
	}
}

func apiKey(envName, fallbackEnv string) (string, error) {
	if envName == "" {
		envName = fallbackEnv
	}
	if key := os.Getenv(envName); key != "" {
		return key, nil
	}
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return "", fmt.Errorf("%s is not set", envName)
	}
	fmt.Printf("Enter API key (%s): ", envName)
	key, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("failed to read API key: %w", err)
	}
	if len(key) == 0 {
		return "", fmt.Errorf("%s is not set", envName)
	}
	return string(key), nil
}
