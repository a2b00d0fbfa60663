package invoice

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/zombor/invoice-batch/internal/scanning"
)

// Sleeper pauses between external service calls
type Sleeper interface {
	Sleep(d time.Duration)
}

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

type defaultSleeper struct{}

func (defaultSleeper) Sleep(d time.Duration) {
	time.Sleep(d)
}

type defaultTimeSource struct{}

func (defaultTimeSource) Now() time.Time {
	return time.Now()
}

// RunConfig holds the batch settings, constructed once at startup
type RunConfig struct {
	// InputDir is the folder of invoice images to process
	InputDir string
	// Pacing is the minimum delay between consecutive service calls
	Pacing time.Duration
	// MaxFiles caps the number of items processed this run; 0 means all
	MaxFiles int
	// RetryFailed clears failed checkpoint entries before computing the
	// work set, so previously failed invoices are attempted again
	RetryFailed bool
}

// Summary reports the outcome of one batch run
type Summary struct {
	Done    int
	Failed  int
	Skipped int
}

// Runner drives the batch: for each unprocessed invoice it calls the
// scanner, appends the result to the output table, and checkpoints the
// outcome before moving on. Strictly sequential; a single item's failure
// never aborts the batch.
type Runner struct {
	scanner    scanning.Scanner
	progress   Progress
	output     *CSVWriter
	sleeper    Sleeper
	timeSource TimeSource
	cfg        RunConfig
}

// NewRunner creates a Runner with the default sleeper and clock
func NewRunner(scanner scanning.Scanner, progress Progress, output *CSVWriter, cfg RunConfig) *Runner {
	return &Runner{
		scanner:    scanner,
		progress:   progress,
		output:     output,
		sleeper:    defaultSleeper{},
		timeSource: defaultTimeSource{},
		cfg:        cfg,
	}
}

// NewRunnerWithDeps creates a Runner with custom dependencies for testing
func NewRunnerWithDeps(scanner scanning.Scanner, progress Progress, output *CSVWriter, sleeper Sleeper, timeSource TimeSource, cfg RunConfig) *Runner {
	return &Runner{
		scanner:    scanner,
		progress:   progress,
		output:     output,
		sleeper:    sleeper,
		timeSource: timeSource,
		cfg:        cfg,
	}
}

// Run processes every pending invoice in the input directory and returns
// the run summary. Cancelling ctx stops the batch between items; the
// checkpoint keeps everything already recorded.
func (r *Runner) Run(ctx context.Context) (Summary, error) {
	var summary Summary

	if err := ctx.Err(); err != nil {
		return summary, err
	}

	files, err := ListInvoiceFiles(r.cfg.InputDir)
	if err != nil {
		return summary, err
	}
	if len(files) == 0 {
		slog.Warn("No invoice images found", "dir", r.cfg.InputDir)
		return summary, nil
	}

	if r.cfg.RetryFailed {
		if err := r.progress.ClearFailed(); err != nil {
			return summary, err
		}
	}

	state, err := r.progress.Load()
	if err != nil {
		return summary, err
	}

	work := make([]string, 0, len(files))
	for _, path := range files {
		if entry, ok := state[filepath.Base(path)]; ok && entry.Status.Terminal() {
			summary.Skipped++
			continue
		}
		work = append(work, path)
	}
	if r.cfg.MaxFiles > 0 && len(work) > r.cfg.MaxFiles {
		work = work[:r.cfg.MaxFiles]
	}

	if summary.Skipped > 0 {
		slog.Info("Resuming batch", "already_processed", summary.Skipped)
	}
	slog.Info("Starting invoice processing",
		"total", len(work),
		"estimated", (time.Duration(len(work)) * r.cfg.Pacing).Round(time.Second),
	)

	for i, path := range work {
		if err := ctx.Err(); err != nil {
			slog.Warn("Batch interrupted, progress saved", "remaining", len(work)-i)
			return summary, err
		}

		name := filepath.Base(path)
		slog.Info("Processing invoice", "file", name, "index", i+1, "total", len(work))

		record, err := r.processOne(ctx, path)
		if err != nil {
			summary.Failed++
			slog.Error("Failed to process invoice", "file", name, "reason", failureReason(err), "error", err)
			if recErr := r.progress.Record(name, Entry{Status: StatusFailed, Reason: err.Error(), UpdatedAt: r.timeSource.Now()}); recErr != nil {
				return summary, recErr
			}
		} else {
			if err := r.output.Append(record); err != nil {
				return summary, err
			}
			if err := r.progress.Record(name, Entry{Status: StatusDone, UpdatedAt: r.timeSource.Now()}); err != nil {
				return summary, err
			}
			summary.Done++
			slog.Info("Processed invoice",
				"file", name,
				"category", record.Category,
				"total_amount", record.TotalAmount,
			)
		}

		// Pace the external service, but not after the last item
		if i < len(work)-1 {
			r.sleeper.Sleep(r.cfg.Pacing)
		}
	}

	slog.Info("Processing complete",
		"done", summary.Done,
		"failed", summary.Failed,
		"skipped", summary.Skipped,
	)
	return summary, nil
}

// processOne reads one invoice file and runs it through the scanner
func (r *Runner) processOne(ctx context.Context, path string) (Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Record{}, err
	}

	invoiceData, err := r.scanner.ScanInvoice(ctx, data, ContentTypeForFile(path), Categories())
	if err != nil {
		return Record{}, err
	}

	return NewRecord(filepath.Base(path), invoiceData), nil
}

// failureReason classifies a per-item error for the log stream
func failureReason(err error) string {
	switch {
	case errors.Is(err, scanning.ErrRateLimited):
		return "rate limit exceeded"
	case errors.Is(err, scanning.ErrParse):
		return "unparseable response"
	case errors.Is(err, scanning.ErrTransport):
		return "transport error"
	default:
		return "error"
	}
}
