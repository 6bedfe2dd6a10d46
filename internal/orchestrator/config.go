package orchestrator

import (
	log "github.com/sirupsen/logrus"

	"nyc-taxi-lab/internal/cache"
	"nyc-taxi-lab/internal/config"
	"nyc-taxi-lab/internal/fetch"
	"nyc-taxi-lab/internal/observability"
)

// FromConfig wires the fetcher, artifact store and orchestrator the
// commands share.
func FromConfig(cfg config.AppConfig, readOnly bool, logger log.FieldLogger, metrics *observability.Metrics) (*Orchestrator, error) {
	month, err := cfg.Data.TargetMonth()
	if err != nil {
		return nil, err
	}

	fetcher := fetch.New(fetch.Options{
		ChunkSize: cfg.Fetch.ChunkSize,
		Timeout:   cfg.Fetch.Timeout(),
		Logger:    logger,
		Metrics:   metrics,
	})
	store := cache.NewStore(cache.Options{
		Path:    cfg.Data.CleanPath(),
		Logger:  logger,
		Metrics: metrics,
	})

	return New(Options{
		Fetcher:  fetcher,
		Trips:    Source{URL: cfg.Data.TripsURL, Path: cfg.Data.TripsPath()},
		Zones:    Source{URL: cfg.Data.ZonesURL, Path: cfg.Data.ZonesPath()},
		Month:    month,
		Store:    store,
		ReadOnly: readOnly,
		Logger:   logger,
		Metrics:  metrics,
	}), nil
}
