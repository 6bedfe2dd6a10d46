// Command server runs the dashboard API over the clean trip dataset.
//
// With --build-missing the server builds the artifact on first use;
// otherwise it only reads an existing one and answers 503 until it
// exists.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"

	"nyc-taxi-lab/internal/config"
	"nyc-taxi-lab/internal/logging"
	"nyc-taxi-lab/internal/orchestrator"
	"nyc-taxi-lab/internal/server"
)

const shutdownTimeout = 10 * time.Second

func main() {
	configPath := flag.String("config", "", "Path to YAML config (defaults apply when empty)")
	port := flag.Int("port", 0, "HTTP port (overrides config)")
	buildMissing := flag.Bool("build-missing", false, "Build the clean dataset when it is missing")
	warm := flag.Bool("warm", false, "Load the dataset before accepting requests")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}
	if *buildMissing {
		cfg.Server.BuildMissing = true
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

	if err := run(ctx, cfg, *warm, logger); err != nil {
		logger.WithError(err).Error("server failed")
		os.Exit(1)
	}
	logger.Info("shutdown complete")
}

func run(ctx context.Context, cfg config.AppConfig, warm bool, logger *log.Logger) error {
	o, err := orchestrator.FromConfig(cfg, !cfg.Server.BuildMissing, logger, nil)
	if err != nil {
		return err
	}

	if warm {
		if _, _, err := o.Prepare(ctx); err != nil {
			// A read-only server still starts and reports 503 until the
			// artifact exists.
			logger.WithError(err).Warn("warm-up failed")
		}
	}

	srv := server.New(server.Options{
		Dataset:        o.Handle(),
		Zones:          o,
		MaxUploadBytes: cfg.Server.MaxUploadBytes,
		StatsColumns:   cfg.Report.StatsColumns,
		Logger:         logger,
	})
	httpSrv := srv.NewHTTPServer(fmt.Sprintf(":%d", cfg.Server.Port))

	errCh := make(chan error, 1)
	go func() {
		logger.WithFields(log.Fields{
			"addr":          httpSrv.Addr,
			"build_missing": cfg.Server.BuildMissing,
		}).Info("listening")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("signal received, shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
