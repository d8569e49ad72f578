package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/spektr-org/cogniview/config"
	"github.com/spektr-org/cogniview/engine"
	"github.com/spektr-org/cogniview/helpers"
	"github.com/spektr-org/cogniview/session"
	"github.com/spektr-org/cogniview/translator"
)

// ============================================================================
// COGNIVIEW CLI — Ask questions of a CSV file
// ============================================================================

const version = "0.3.0"

var (
	// Global flags
	configPath string
	verbose    bool
	dataPath   string
	format     string
	outPath    string

	cfg    *config.Config
	logger *zap.Logger
)

// errAttemptFailed marks a question that produced no result. The attempt
// itself has already been rendered, so main only sets the exit code.
var errAttemptFailed = errors.New("attempt failed")

var rootCmd = &cobra.Command{
	Use:     "cogniview",
	Short:   "Ask natural-language questions of a CSV file",
	Version: version,
	Long: `cogniview turns a question into one line of dataframe code with a
language model, repairs and validates that line against the file's columns,
and evaluates it in a restricted interpreter. The model only ever sees column
names, types and a few sample values.

Environment:
  GEMINI_API_KEY       required by ask and batch
  COGNIVIEW_MODEL      model override
  COGNIVIEW_TIMEOUT    per-call completion timeout, e.g. 30s
  COGNIVIEW_FALLBACK   substitute | reject

Formats:
  json      Full JSON output (default)
  pretty    Pretty-printed JSON
  text      Human-readable tables and answers
  csv       Table data as CSV (ready for Sheets/Excel)`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}
		switch format {
		case "json", "pretty", "text", "csv":
		default:
			return fmt.Errorf("unknown format %q (valid: json, pretty, text, csv)", format)
		}

		logger, err = buildLogger(cfg.Logging, verbose)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func buildLogger(lc config.LoggingConfig, verbose bool) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	level, err := zapcore.ParseLevel(lc.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}
	if verbose {
		level = zapcore.DebugLevel
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	if lc.Format == "console" {
		zc.Encoding = "console"
		zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}
	return zc.Build()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "cogniview.yaml", "Path to config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&dataPath, "file", "f", "", "Path to CSV data file")
	rootCmd.PersistentFlags().StringVar(&format, "format", "json", "Output format: json, pretty, text, csv")
	rootCmd.PersistentFlags().StringVarP(&outPath, "out", "o", "", "Write output to file instead of stdout")

	rootCmd.AddCommand(discoverCmd, previewCmd, suggestCmd, askCmd, batchCmd, schemaCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()

	if err != nil {
		if !errors.Is(err, errAttemptFailed) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

// ============================================================================
// SHARED SETUP
// ============================================================================

// loadFrame reads and parses the --file CSV.
func loadFrame() (*engine.Frame, error) {
	if dataPath == "" {
		return nil, errors.New("--file is required")
	}
	data, err := os.ReadFile(dataPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	frame, err := helpers.ParseCSV(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", dataPath, err)
	}
	logger.Info("dataset parsed",
		zap.String("file", dataPath),
		zap.Int("rows", frame.Len()),
		zap.Int("cols", frame.Width()))
	return frame, nil
}

// newCompleter builds the Gemini client wrapped with timeout and retry.
func newCompleter(ctx context.Context) (translator.Completer, error) {
	if err := cfg.RequireAPIKey(); err != nil {
		return nil, err
	}
	tc := cfg.TranslatorConfig()
	g, err := translator.NewGemini(ctx, tc, logger)
	if err != nil {
		return nil, err
	}
	return translator.NewReliable(g,
		translator.WithTimeout(tc.Timeout),
		translator.WithRetries(tc.Retries),
		translator.WithCompletionLogger(logger),
	), nil
}

// newSession creates a session over frame using the loaded config.
func newSession(c translator.Completer, frame *engine.Frame) (*session.Session, error) {
	s := session.New(c,
		session.WithLogger(logger),
		session.WithPolicy(cfg.GetFallbackPolicy()),
		session.WithSampleRows(cfg.Schema.SampleRows),
		session.WithRender(cfg.Render.MaxRows, cfg.Render.Precision),
	)
	if err := s.Load(frame); err != nil {
		return nil, err
	}
	return s, nil
}

// output opens the --out file or returns stdout.
func output() (io.Writer, func() error, error) {
	if outPath == "" {
		return os.Stdout, func() error { return nil }, nil
	}
	f, err := os.Create(outPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return f, f.Close, nil
}

// withOutput runs render against the output writer and closes it.
func withOutput(render func(w io.Writer) error) error {
	w, closeOut, err := output()
	if err != nil {
		return err
	}
	renderErr := render(w)
	if err := closeOut(); err != nil && renderErr == nil {
		renderErr = err
	}
	if renderErr == nil && outPath != "" {
		logger.Info("output written", zap.String("path", outPath), zap.String("format", format))
	}
	return renderErr
}

func joinArgs(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}
