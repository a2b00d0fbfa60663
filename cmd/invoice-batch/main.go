package main

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"
	"github.com/zombor/invoice-batch/internal/invoice"
	"github.com/zombor/invoice-batch/internal/scanning"
)

//go:embed VERSION.txt
var versionFile string

var version = strings.TrimSpace(versionFile)

func main() {
	// Check for version flag before parsing other flags
	for _, arg := range os.Args[1:] {
		if arg == "--version" || arg == "-version" || arg == "-v" {
			fmt.Println(version)
			os.Exit(0)
		}
	}

	fs := ff.NewFlagSet("invoice-batch")
	var (
		inputDir    = fs.StringLong("input", "invoices", "Folder containing invoice images")
		outputDir   = fs.StringLong("output", "output", "Folder for the CSV table and progress checkpoint")
		scannerType = fs.StringLong("scanner", "gemini", "Scanner type: 'gemini' or 'ollama'")
		geminiKey   = fs.StringLong("gemini-key", "", "Google Gemini API key (or set GEMINI_API_KEY env var)")
		geminiModel = fs.StringLong("gemini-model", "gemini-2.5-flash", "Google Gemini model name")
		ollamaURL   = fs.StringLong("ollama-url", "http://localhost:11434", "Ollama API base URL")
		ollamaModel = fs.StringLong("ollama-model", "llava", "Ollama model name (e.g., llava, qwen2-vl, bakllava)")
		pacing      = fs.DurationLong("pacing", 4*time.Second, "Minimum delay between service calls")
		maxRetries  = fs.IntLong("max-retries", 3, "Attempts per invoice when rate limited")
		backoff     = fs.DurationLong("backoff", time.Minute, "Wait between rate-limited attempts")
		maxFiles    = fs.IntLong("max-files", 0, "Process at most this many files (0 for all)")
		retryFailed = fs.BoolLong("retry-failed", "Retry invoices that failed in a previous run")
		showVersion = fs.BoolLong("version", "Show version information")
	)

	if err := ff.Parse(fs, os.Args[1:],
		ff.WithEnvVarPrefix("INVOICE_BATCH"),
	); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	// Check version flag after parsing
	if *showVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	if err := os.MkdirAll(*outputDir, 0755); err != nil {
		slog.Error("Failed to create output folder", "dir", *outputDir, "error", err)
		os.Exit(1)
	}

	// Initialize scanner based on type
	var scanner scanning.Scanner
	var err error
	switch *scannerType {
	case "gemini":
		// Get Gemini API key from flag or environment
		apiKey := *geminiKey
		if apiKey == "" {
			apiKey = os.Getenv("GEMINI_API_KEY")
		}
		if apiKey == "" {
			slog.Error("Gemini API key is required. Set --gemini-key flag or GEMINI_API_KEY environment variable")
			os.Exit(1)
		}
		slog.Info("Initializing Gemini scanner...", "model", *geminiModel)
		scanner, err = scanning.NewGemini(apiKey, *geminiModel, *maxRetries, *backoff)
		if err != nil {
			slog.Error("Failed to initialize Gemini", "error", err)
			os.Exit(1)
		}
	case "ollama":
		slog.Info("Initializing Ollama scanner...", "url", *ollamaURL, "model", *ollamaModel)
		scanner, err = scanning.NewOllama(*ollamaURL, *ollamaModel, *maxRetries, *backoff)
		if err != nil {
			slog.Error("Failed to initialize Ollama", "error", err)
			os.Exit(1)
		}
	default:
		slog.Error("Invalid scanner type", "type", *scannerType, "valid", "gemini or ollama")
		os.Exit(1)
	}
	defer scanner.Close()

	// Initialize progress checkpoint
	progressPath := filepath.Join(*outputDir, "progress.db")
	slog.Info("Opening progress checkpoint...", "path", progressPath)
	progress, err := invoice.NewBoltProgress(progressPath)
	if err != nil {
		slog.Error("Failed to open progress checkpoint", "error", err)
		os.Exit(1)
	}
	defer progress.Close()

	// Initialize output table
	csvPath := filepath.Join(*outputDir, "invoice_data.csv")
	output, err := invoice.NewCSVWriter(csvPath)
	if err != nil {
		slog.Error("Failed to open output table", "error", err)
		os.Exit(1)
	}
	defer output.Close()

	runner := invoice.NewRunner(scanner, progress, output, invoice.RunConfig{
		InputDir:    *inputDir,
		Pacing:      *pacing,
		MaxFiles:    *maxFiles,
		RetryFailed: *retryFailed,
	})

	// Interrupts cancel between items; everything recorded so far survives
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	slog.Info("Invoice processor initialized", "input", *inputDir, "output", csvPath)

	summary, err := runner.Run(ctx)
	if err != nil {
		if ctx.Err() != nil {
			slog.Warn("Interrupted; rerun to resume", "done", summary.Done, "failed", summary.Failed)
			os.Exit(1)
		}
		slog.Error("Batch aborted", "error", err)
		os.Exit(1)
	}

	if summary.Failed > 0 {
		slog.Warn("Some invoices failed; rerun with --retry-failed to try them again", "failed", summary.Failed)
	}
	slog.Info("Results saved", "csv", csvPath, "done", summary.Done, "failed", summary.Failed, "skipped", summary.Skipped)
}
