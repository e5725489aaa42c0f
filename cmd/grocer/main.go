package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/dimiro1/banner"
	"github.com/m4xw311/grocer/agent"
	"github.com/m4xw311/grocer/agent/terminal"
	"github.com/m4xw311/grocer/config"
	"github.com/m4xw311/grocer/errors"
	"github.com/m4xw311/grocer/grocery"
	"github.com/m4xw311/grocer/llm"
	"github.com/m4xw311/grocer/logging"
	"github.com/m4xw311/grocer/mcpserver"
	"github.com/m4xw311/grocer/speech"
	"github.com/m4xw311/grocer/telemetry"
	"github.com/m4xw311/grocer/tools"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/subosito/gotenv"
)

const bannerTemplate = "{{ .Title \"grocer\" \"\" 0 }}\nGrocery list assistant. Type 'exit' to quit.\n"

type options struct {
	toolVerbosity string
	noSpeech      bool
	mcp           bool
	logLevel      string
	quiet         bool
	prompt        string
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	fs := flag.NewFlagSet("grocer", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var opts options
	fs.StringVar(&opts.toolVerbosity, "tool-verbosity", "none", "Tool verbosity level: 'none', 'info', or 'all'")
	fs.BoolVar(&opts.noSpeech, "no-speech", false, "Do not read answers aloud")
	fs.BoolVar(&opts.mcp, "mcp", false, "Serve the list tools over MCP on stdio instead of chatting")
	fs.StringVar(&opts.logLevel, "log-level", "", "Log level: debug, info, warn or error (overrides config)")
	fs.BoolVar(&opts.quiet, "quiet", false, "Do not print the startup banner")
	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	// Remaining arguments form an initial prompt.
	opts.prompt = strings.Join(fs.Args(), " ")
	return opts, nil
}

func main() {
	// A .env file is optional; real environment variables win.
	_ = gotenv.Load(".env")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "Error: %+v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		return errors.Wrapf(err, "error loading configuration")
	}
	if opts.logLevel != "" {
		cfg.LogLevel = opts.logLevel
	}
	logger := logging.New(cfg.LogLevel, cfg.LogFormat, stderr)
	slog.SetDefault(logger)

	verbosity, err := agent.ParseToolVerbosity(opts.toolVerbosity)
	if err != nil {
		return err
	}

	store := grocery.NewStore()
	queue := tools.NewWriteQueue(logger)
	// Pending adds are applied before the process exits.
	defer queue.Close()
	registry := tools.NewToolRegistry(store, queue, logger)

	if opts.mcp {
		logger.Info("serving tools over MCP on stdio")
		return mcpserver.Serve(ctx, registry, mcp.NewStdioTransport(), logger)
	}

	client, closeClient, err := newLLMClient(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeClient()

	groceryAgent, err := agent.New(cfg, client, registry, verbosity)
	if err != nil {
		return errors.Wrapf(err, "error initializing agent")
	}
	groceryAgent.Logger = logger
	if cfg.Tracing.Enabled {
		tracer, closeTrace, err := telemetry.Open(cfg.Tracing.Path, cfg.Tracing.Tags, cfg.Tracing.Metadata)
		if err != nil {
			return err
		}
		defer closeTrace()
		groceryAgent.Tracer = tracer
		logger.Info("tracing turns", slog.String("path", cfg.Tracing.Path))
	}

	speaker := newSpeaker(cfg, opts.noSpeech, logger)

	if !opts.quiet {
		banner.Init(stderr, true, true, bytes.NewBufferString(bannerTemplate))
	}

	term := terminal.New(groceryAgent, speaker, stdin, stdout, terminal.Options{
		ExitKeyword:   cfg.ExitKeyword,
		InitialPrompt: opts.prompt,
	})
	if err := term.Run(ctx); err != nil {
		return errors.Wrapf(err, "session stopped")
	}
	return nil
}

// newLLMClient builds the configured provider client wrapped with retries.
// The returned func releases provider resources.
func newLLMClient(ctx context.Context, cfg *config.Config, logger *slog.Logger) (llm.LLMClient, func(), error) {
	var client llm.LLMClient
	closeClient := func() {}

	switch cfg.LLMClient {
	case "gemini":
		c, err := llm.NewGeminiLLMClient(ctx, cfg.Model)
		if err != nil {
			return nil, nil, errors.Wrapf(err, "error initializing Gemini client")
		}
		client = c
		closeClient = func() { _ = c.Close() }
	case "openai":
		c, err := llm.NewOpenAILLMClient(ctx, cfg.Model)
		if err != nil {
			return nil, nil, errors.Wrapf(err, "error initializing OpenAI client")
		}
		client = c
	case "bedrock":
		c, err := llm.NewBedrockLLMClient(ctx, cfg.Model)
		if err != nil {
			return nil, nil, errors.Wrapf(err, "error initializing Bedrock client")
		}
		client = c
	case "anthropic":
		c, err := llm.NewAnthropicLLMClient(ctx, cfg.Model)
		if err != nil {
			return nil, nil, errors.Wrapf(err, "error initializing Anthropic client")
		}
		client = c
	default:
		return &llm.MockLLMClient{}, closeClient, nil
	}

	return llm.WithRetry(client, llm.RetryConfig{
		MaxAttempts: cfg.Retry.MaxAttempts,
		BaseDelay:   cfg.Retry.BaseDelay(),
		MaxDelay:    cfg.Retry.MaxDelay(),
		Jitter:      0.2,
	}, logger), closeClient, nil
}

// newSpeaker falls back to silence when speech cannot be set up; the
// conversation works without it.
func newSpeaker(cfg *config.Config, disabled bool, logger *slog.Logger) speech.Speaker {
	if disabled {
		return speech.Nop{}
	}
	s, err := speech.FromConfig(cfg, logger)
	if err != nil {
		logger.Warn("speech output disabled", slog.Any("error", err))
		return speech.Nop{}
	}
	return s
}
