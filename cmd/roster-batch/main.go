package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/joseph-ayodele/roster-scan/constants"
	"github.com/joseph-ayodele/roster-scan/internal/async"
	"github.com/joseph-ayodele/roster-scan/internal/common"
	"github.com/joseph-ayodele/roster-scan/internal/export"
	"github.com/joseph-ayodele/roster-scan/internal/ingest"
	"github.com/joseph-ayodele/roster-scan/internal/jobs"
	"github.com/joseph-ayodele/roster-scan/internal/pipeline"
)

// printError prints an error message to stderr, falling back to stdout if stderr fails
func printError(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

type options struct {
	dir        string
	out        string
	identifier string
	jobsFile   string
	exts       string
	workers    int
	timeout    time.Duration
}

func main() {
	var o options
	flag.StringVar(&o.dir, "dir", "", "directory of roster images (required)")
	flag.StringVar(&o.out, "out", "", "output XLSX path (defaults to <dir>/../shifts.xlsx)")
	flag.StringVar(&o.identifier, "identifier", "", "whose shifts to extract from every image")
	flag.StringVar(&o.jobsFile, "jobs", "", "YAML job catalog used to map labels onto job ids")
	flag.StringVar(&o.exts, "ext", "", "comma-separated extensions to include (default: all image types)")
	flag.IntVar(&o.workers, "workers", 2, "concurrent scans")
	flag.DurationVar(&o.timeout, "timeout", 2*time.Minute, "per-image processing budget")
	flag.Parse()

	if o.dir == "" {
		printError("Error: --dir is required\n")
		os.Exit(1)
	}
	if o.out == "" {
		o.out = filepath.Join(filepath.Dir(filepath.Clean(o.dir)), "shifts.xlsx")
	}

	cfg, err := common.LoadConfig()
	if err != nil {
		printError("Error: %v\n", err)
		os.Exit(2)
	}
	logger := common.NewLogger(cfg.Log, os.Stdout)
	if err := cfg.ValidateLLM(); err != nil {
		logger.Error("invalid config", "error", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, cfg, logger, o); err != nil {
		logger.Error("batch failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *common.Config, logger *slog.Logger, o options) error {
	catalog, err := jobs.LoadCatalog(o.jobsFile)
	if err != nil {
		return err
	}
	var exts []string
	if o.exts != "" {
		exts = strings.Split(o.exts, ",")
	}
	paths, walkErrs, stats, err := ingest.FindImages(o.dir, exts, true)
	if err != nil {
		return err
	}
	logger.Info("discovered images",
		"dir", o.dir,
		"scanned", stats.Scanned,
		"matched", stats.Matched,
		"skipped", stats.Skipped,
		"failed", stats.Failed)

	processor, err := pipeline.Build(ctx, cfg.LLM, logger)
	if err != nil {
		return err
	}

	var (
		mu       sync.Mutex
		rows     []export.Row
		failures []export.Failure
	)
	for _, w := range walkErrs {
		failures = append(failures, export.Failure{Source: w.Path, ErrorType: string(constants.ErrInvalidInput), Message: w.Err})
	}
	collect := func(r async.Result) {
		mu.Lock()
		defer mu.Unlock()
		switch {
		case r.Err != nil:
			failures = append(failures, export.Failure{Source: r.Job.Source, ErrorType: string(common.ErrorTypeOf(r.Err)), Message: r.Err.Error()})
		case !r.Output.Success:
			failures = append(failures, export.Failure{Source: r.Job.Source, ErrorType: r.Output.ErrorType, Message: r.Output.Error})
		default:
			for _, s := range r.Output.Shifts {
				rows = append(rows, export.Row{Source: r.Job.Source, Shift: s})
			}
		}
	}

	queue := async.NewScanQueue(processor, logger,
		async.WithWorkers(o.workers),
		async.WithProcessTimeout(o.timeout),
		async.WithResultHandler(collect),
	)

	for _, p := range paths {
		rel, _ := filepath.Rel(o.dir, p)
		data, mimeType, err := ingest.LoadImage(p, int64(cfg.Server.MaxImageBytes))
		if err != nil {
			collect(async.Result{Job: async.Job{Source: rel}, Err: err})
			continue
		}
		if err := queue.Enqueue(ctx, async.Job{
			Source:     rel,
			Image:      data,
			MIMEType:   mimeType,
			Identifier: o.identifier,
			JobConfigs: catalog.Jobs,
			JobAliases: catalog.Aliases,
		}); err != nil {
			logger.Warn("stopped enqueueing", "error", err)
			break
		}
	}
	queue.Shutdown(ctx)

	mu.Lock()
	defer mu.Unlock()
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Shift.Date != rows[j].Shift.Date {
			return rows[i].Shift.Date < rows[j].Shift.Date
		}
		return rows[i].Source < rows[j].Source
	})

	xlsx, err := export.NewService(logger).Workbook(rows, failures)
	if err != nil {
		return err
	}
	if err := os.WriteFile(o.out, xlsx, 0o644); err != nil {
		return err
	}
	logger.Info("batch processing complete",
		"images", len(paths),
		"shifts", len(rows),
		"failures", len(failures),
		"output", o.out)
	return nil
}
