// Command export copies the clean trip dataset to ClickHouse and the zone
// lookup to PostgreSQL. Either sink is skipped when its DSN is empty.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"

	"nyc-taxi-lab/internal/config"
	"nyc-taxi-lab/internal/export"
	"nyc-taxi-lab/internal/logging"
	"nyc-taxi-lab/internal/orchestrator"
	chstore "nyc-taxi-lab/internal/storage/clickhouse"
	"nyc-taxi-lab/internal/storage/migrations"
	pgstore "nyc-taxi-lab/internal/storage/postgres"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML config (defaults apply when empty)")
	postgresDSN := flag.String("postgres-dsn", "", "PostgreSQL connection string (overrides config and POSTGRES_DSN)")
	clickhouseDSN := flag.String("clickhouse-dsn", "", "ClickHouse connection string (overrides config and CLICKHOUSE_DSN)")
	batchSize := flag.Int("batch-size", 0, "Trips per insert batch (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if *postgresDSN != "" {
		cfg.Storage.PostgresDSN = *postgresDSN
	}
	if *clickhouseDSN != "" {
		cfg.Storage.ClickHouseDSN = *clickhouseDSN
	}
	if *batchSize > 0 {
		cfg.Storage.BatchSize = *batchSize
	}
	if cfg.Storage.PostgresDSN == "" && cfg.Storage.ClickHouseDSN == "" {
		fmt.Fprintln(os.Stderr, "Error: --postgres-dsn or --clickhouse-dsn is required")
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
		logger.WithError(err).Error("export failed")
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.AppConfig, logger log.FieldLogger) (err error) {
	o, err := orchestrator.FromConfig(cfg, true, logger, nil)
	if err != nil {
		return err
	}
	df, err := o.Handle().Get(ctx)
	if err != nil {
		return err
	}
	lookup, err := o.LoadZones(ctx)
	if err != nil {
		return err
	}

	opts := export.Options{
		BatchSize: cfg.Storage.BatchSize,
		ZonesDB:   "postgres",
		TripsDB:   "clickhouse",
		Logger:    logger,
	}

	if dsn := cfg.Storage.PostgresDSN; dsn != "" {
		pool, err := pgstore.NewPool(ctx, dsn)
		if err != nil {
			return err
		}
		defer pool.Close()
		if err := migrations.RunPostgresMigrations(ctx, pool, logger); err != nil {
			return err
		}
		opts.Zones = pgstore.NewZoneStore(pool)
	}

	if dsn := cfg.Storage.ClickHouseDSN; dsn != "" {
		conn, err := migrations.RunClickhouseMigrations(ctx, dsn, logger)
		if err != nil {
			return err
		}
		defer func() {
			err = errors.Join(err, conn.Close())
		}()
		opts.Trips = chstore.NewTripStore(conn)
	}

	res, err := export.New(opts).Run(ctx, df, lookup)
	if err != nil {
		return err
	}

	fmt.Println("Export finished:")
	fmt.Printf("  zones inserted: %d (already present: %d)\n", res.ZonesInserted, res.ZonesSkipped)
	if res.TripsSkipped {
		fmt.Println("  trips: already exported for this month, skipped")
	} else {
		fmt.Printf("  trips inserted: %d in %d batches\n", res.TripsInserted, res.Batches)
	}
	return nil
}
