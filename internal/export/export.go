// Package export copies the clean dataset and zone lookup into the
// storage sinks.
package export

import (
	"context"
	"fmt"
	"time"

	"github.com/go-gota/gota/dataframe"
	log "github.com/sirupsen/logrus"

	"nyc-taxi-lab/internal/domain"
	"nyc-taxi-lab/internal/observability"
	"nyc-taxi-lab/internal/storage"
	"nyc-taxi-lab/internal/zones"
)

// DefaultBatchSize is used when Options.BatchSize is not positive.
const DefaultBatchSize = 10000

// Options for creating Exporter. Either store may be nil to skip it.
type Options struct {
	Zones     storage.ZoneStore
	Trips     storage.TripStore
	BatchSize int

	// Labels for metrics.
	ZonesDB string
	TripsDB string

	Logger  log.FieldLogger
	Metrics *observability.Metrics
}

// Exporter writes zones and trips to their stores.
type Exporter struct {
	zones     storage.ZoneStore
	trips     storage.TripStore
	batchSize int
	zonesDB   string
	tripsDB   string
	logger    log.FieldLogger
	metrics   *observability.Metrics
}

// New creates an Exporter.
func New(opts Options) *Exporter {
	e := &Exporter{
		zones:     opts.Zones,
		trips:     opts.Trips,
		batchSize: opts.BatchSize,
		zonesDB:   opts.ZonesDB,
		tripsDB:   opts.TripsDB,
		logger:    opts.Logger,
		metrics:   opts.Metrics,
	}
	if e.batchSize <= 0 {
		e.batchSize = DefaultBatchSize
	}
	if e.zonesDB == "" {
		e.zonesDB = "zones"
	}
	if e.tripsDB == "" {
		e.tripsDB = "trips"
	}
	if e.logger == nil {
		e.logger = log.StandardLogger()
	}
	if e.metrics == nil {
		e.metrics = observability.DefaultMetrics
	}
	return e
}

// Result counts what one run wrote.
type Result struct {
	ZonesInserted int
	ZonesSkipped  int
	TripsInserted int
	TripsSkipped  bool // trips for the range were already present
	Batches       int
}

// Run exports the zones missing from the zone store, then the trips of df
// unless the trip store already holds trips in df's pickup range.
// Reruns are therefore no-ops.
func (e *Exporter) Run(ctx context.Context, df dataframe.DataFrame, lookup *zones.Lookup) (Result, error) {
	var res Result

	if e.zones != nil && lookup != nil {
		inserted, skipped, err := e.exportZones(ctx, lookup)
		if err != nil {
			return res, err
		}
		res.ZonesInserted, res.ZonesSkipped = inserted, skipped
	}

	if e.trips != nil {
		trips, err := storage.TripsFromFrame(df)
		if err != nil {
			return res, fmt.Errorf("convert trips: %w", err)
		}
		inserted, batches, skipped, err := e.exportTrips(ctx, trips)
		if err != nil {
			return res, err
		}
		res.TripsInserted, res.Batches, res.TripsSkipped = inserted, batches, skipped
	}

	e.logger.WithFields(log.Fields{
		"zones_inserted": res.ZonesInserted,
		"zones_skipped":  res.ZonesSkipped,
		"trips_inserted": res.TripsInserted,
		"trips_skipped":  res.TripsSkipped,
	}).Info("export complete")
	return res, nil
}

func (e *Exporter) exportZones(ctx context.Context, lookup *zones.Lookup) (int, int, error) {
	start := time.Now()
	existing, err := e.zones.GetAll(ctx)
	e.metrics.RecordDBQuery(e.zonesDB, "get_all", time.Since(start), err)
	if err != nil {
		return 0, 0, fmt.Errorf("list zones: %w", err)
	}

	have := make(map[int]struct{}, len(existing))
	for _, z := range existing {
		have[z.LocationID] = struct{}{}
	}
	var missing []domain.Zone
	for _, z := range lookup.All() {
		if _, ok := have[z.LocationID]; !ok {
			missing = append(missing, z)
		}
	}
	skipped := lookup.Len() - len(missing)
	if len(missing) == 0 {
		return 0, skipped, nil
	}

	start = time.Now()
	err = e.zones.InsertBulk(ctx, missing)
	e.metrics.RecordDBQuery(e.zonesDB, "insert_bulk", time.Since(start), err)
	if err != nil {
		return 0, skipped, fmt.Errorf("insert zones: %w", err)
	}
	e.metrics.RecordExport(e.zonesDB, "taxi_zones", len(missing))
	return len(missing), skipped, nil
}

func (e *Exporter) exportTrips(ctx context.Context, trips []*domain.CleanTrip) (inserted, batches int, skipped bool, err error) {
	if len(trips) == 0 {
		return 0, 0, false, nil
	}

	first, last := pickupRange(trips)
	start := time.Now()
	n, err := e.trips.CountByTimeRange(ctx, first, last)
	e.metrics.RecordDBQuery(e.tripsDB, "count_by_time_range", time.Since(start), err)
	if err != nil {
		return 0, 0, false, fmt.Errorf("count existing trips: %w", err)
	}
	if n > 0 {
		e.logger.WithField("existing", n).Warn("trips already exported for this range, skipping")
		return 0, 0, true, nil
	}

	for i, batch := range storage.Batches(trips, e.batchSize) {
		if err := ctx.Err(); err != nil {
			return inserted, batches, false, err
		}
		start := time.Now()
		err := e.trips.InsertBulk(ctx, batch)
		e.metrics.RecordDBQuery(e.tripsDB, "insert_bulk", time.Since(start), err)
		if err != nil {
			return inserted, batches, false, fmt.Errorf("insert trip batch %d: %w", i, err)
		}
		e.metrics.RecordExport(e.tripsDB, "clean_trips", len(batch))
		inserted += len(batch)
		batches++
		e.logger.WithFields(log.Fields{
			"batch": i,
			"rows":  len(batch),
			"total": inserted,
		}).Debug("trip batch exported")
	}
	return inserted, batches, false, nil
}

func pickupRange(trips []*domain.CleanTrip) (first, last int64) {
	first, last = trips[0].PickupMicros, trips[0].PickupMicros
	for _, t := range trips[1:] {
		if t.PickupMicros < first {
			first = t.PickupMicros
		}
		if t.PickupMicros > last {
			last = t.PickupMicros
		}
	}
	return first, last
}
