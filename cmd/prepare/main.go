// Command prepare builds the clean trip artifact when it is missing and
// prints a short summary of it.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"

	"nyc-taxi-lab/internal/config"
	"nyc-taxi-lab/internal/logging"
	"nyc-taxi-lab/internal/orchestrator"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML config (defaults apply when empty)")
	month := flag.String("month", "", "Target month YYYY-MM (overrides config)")
	logLevel := flag.String("log-level", "", "Log level (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if *month != "" {
		cfg.Data.Month = *month
	}
	if *logLevel != "" {
		cfg.Log.Level = *logLevel
	}
	if err := config.Validate(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.Init(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error configuring logging: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.WithError(err).Error("prepare failed")
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.AppConfig, logger log.FieldLogger) error {
	o, err := orchestrator.FromConfig(cfg, false, logger, nil)
	if err != nil {
		return err
	}

	res, _, err := o.Prepare(ctx)
	if err != nil {
		return err
	}

	source := "built"
	if res.FromCache {
		source = "loaded from cache"
	}
	fmt.Printf("Clean dataset %s: %s\n", source, cfg.Data.CleanPath())
	fmt.Printf("  rows:     %d\n", res.Rows)
	fmt.Printf("  columns:  %d\n", res.Columns)
	fmt.Printf("  zones:    %d\n", res.Zones)
	fmt.Printf("  duration: %s\n", res.Duration.Round(time.Millisecond))
	if res.Report != nil {
		fmt.Println()
		fmt.Print(res.Report.String())
	}
	return nil
}
