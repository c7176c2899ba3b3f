package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

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

func main() {
	var (
		image      = flag.String("image", "", "roster image to scan (required)")
		identifier = flag.String("identifier", "", "whose shifts to extract (name, initials or employee id)")
		jobsFile   = flag.String("jobs", "", "YAML job catalog used to map labels onto job ids")
		out        = flag.String("out", "", "write shifts to this .xlsx file instead of printing JSON")
	)
	flag.Parse()

	if *image == "" {
		printError("Error: --image is required\n")
		os.Exit(1)
	}

	cfg, err := common.LoadConfig()
	if err != nil {
		printError("Error: %v\n", err)
		os.Exit(2)
	}
	logger := common.NewLogger(cfg.Log, os.Stderr)
	if err := cfg.ValidateLLM(); err != nil {
		logger.Error("invalid config", "error", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, cfg, logger, *image, *identifier, *jobsFile, *out); err != nil {
		logger.Error("scan failed", "image", *image, "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *common.Config, logger *slog.Logger, image, identifier, jobsFile, out string) error {
	catalog, err := jobs.LoadCatalog(jobsFile)
	if err != nil {
		return err
	}
	data, mimeType, err := ingest.LoadImage(image, int64(cfg.Server.MaxImageBytes))
	if err != nil {
		return err
	}
	processor, err := pipeline.Build(ctx, cfg.LLM, logger)
	if err != nil {
		return err
	}

	ctx = common.WithRequestID(ctx, "cli-"+filepath.Base(image))
	res, err := processor.Process(ctx, pipeline.LegacyInput{
		Image:      data,
		MIMEType:   mimeType,
		JobConfigs: catalog.Jobs,
		JobAliases: catalog.Aliases,
		Identifier: identifier,
	})
	if err != nil {
		return err
	}
	if !res.Success {
		return fmt.Errorf("%s: %s", res.ErrorType, res.Error)
	}

	if out == "" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}
	if !strings.EqualFold(filepath.Ext(out), ".xlsx") {
		return fmt.Errorf("--out must end in .xlsx: %s", out)
	}
	xlsx, err := export.ShiftsXLSX(res.Shifts)
	if err != nil {
		return err
	}
	if err := os.WriteFile(out, xlsx, 0o644); err != nil {
		return err
	}
	logger.Info("shifts written", "output", out, "shifts", len(res.Shifts))
	return nil
}
