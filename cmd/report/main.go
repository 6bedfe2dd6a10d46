// Command report writes DATA_OVERVIEW.md and taxi_statistics.csv for the
// clean trip dataset.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"

	"nyc-taxi-lab/internal/config"
	"nyc-taxi-lab/internal/logging"
	"nyc-taxi-lab/internal/orchestrator"
	"nyc-taxi-lab/internal/reporting"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML config (defaults apply when empty)")
	outputDir := flag.String("output-dir", "", "Output directory for generated files (overrides config)")
	buildMissing := flag.Bool("build-missing", true, "Build the clean dataset when it is missing")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if *outputDir != "" {
		cfg.Report.OutputDir = *outputDir
	}

	logger, err := logging.Init(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error configuring logging: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, *buildMissing, logger); err != nil {
		logger.WithError(err).Error("report failed")
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.AppConfig, buildMissing bool, logger log.FieldLogger) error {
	o, err := orchestrator.FromConfig(cfg, !buildMissing, logger, nil)
	if err != nil {
		return err
	}

	res, lookup, err := o.Prepare(ctx)
	if err != nil {
		return err
	}
	df, err := o.Handle().Get(ctx)
	if err != nil {
		return err
	}

	rep, err := reporting.NewGenerator(lookup, cfg.Report.StatsColumns).Generate(df, cfg.Data.Month, res.Report)
	if err != nil {
		return fmt.Errorf("generate report: %w", err)
	}
	mdPath, csvPath, err := reporting.Write(cfg.Report.OutputDir, rep)
	if err != nil {
		return fmt.Errorf("write report: %w", err)
	}

	fmt.Println("Report generated successfully:")
	fmt.Printf("  - %s\n", mdPath)
	fmt.Printf("  - %s\n", csvPath)
	return nil
}
