// Package orchestrator wires the build of the clean dataset.
// It coordinates: fetch → validate → read projection → clean → cache
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-gota/gota/dataframe"
	log "github.com/sirupsen/logrus"

	"nyc-taxi-lab/internal/cache"
	"nyc-taxi-lab/internal/cleaning"
	"nyc-taxi-lab/internal/domain"
	"nyc-taxi-lab/internal/observability"
	"nyc-taxi-lab/internal/parquetio"
	"nyc-taxi-lab/internal/schema"
	"nyc-taxi-lab/internal/zones"
)

// Fetcher ensures a remote source exists at a local path.
type Fetcher interface {
	EnsureLocal(ctx context.Context, url, dest string) error
}

// Source is one raw input: where it lives remotely and locally.
type Source struct {
	URL  string
	Path string
}

// Orchestrator builds and loads the clean dataset.
type Orchestrator struct {
	fetcher Fetcher
	trips   Source
	zones   Source
	month   domain.Month
	store   *cache.Store
	logger  log.FieldLogger
	metrics *observability.Metrics

	handle     *cache.Handle
	lastReport *cleaning.Report
}

// Options for creating Orchestrator.
type Options struct {
	Fetcher Fetcher
	Trips   Source
	Zones   Source
	Month   domain.Month
	Store   *cache.Store

	// ReadOnly creates a handle that never builds; a missing artifact
	// surfaces as cache.ErrNotInitialized.
	ReadOnly bool

	Logger  log.FieldLogger
	Metrics *observability.Metrics
}

// New creates a new Orchestrator.
func New(opts Options) *Orchestrator {
	o := &Orchestrator{
		fetcher: opts.Fetcher,
		trips:   opts.Trips,
		zones:   opts.Zones,
		month:   opts.Month,
		store:   opts.Store,
		logger:  opts.Logger,
		metrics: opts.Metrics,
	}
	if o.logger == nil {
		o.logger = log.StandardLogger()
	}
	if o.metrics == nil {
		o.metrics = observability.DefaultMetrics
	}

	var build cache.Builder
	if !opts.ReadOnly {
		build = o.Build
	}
	o.handle = cache.NewHandle(o.store, build)
	return o
}

// Handle returns the session handle shared by consumers.
func (o *Orchestrator) Handle() *cache.Handle {
	return o.handle
}

// Result describes a Prepare call.
type Result struct {
	Rows      int
	Columns   int
	Zones     int
	FromCache bool
	Duration  time.Duration
	Report    *cleaning.Report // nil when served from cache
}

// Build runs the full pipeline and returns the clean frame without
// persisting it. The context is checked between phases only.
// Phases:
//  1. Ensure trip and zone sources are local
//  2. Validate the trip schema and resolve the projection
//  3. Read the projected columns
//  4. Clean
func (o *Orchestrator) Build(ctx context.Context) (dataframe.DataFrame, error) {
	start := time.Now()
	df, rep, err := o.build(ctx)
	if err != nil {
		o.metrics.RecordBuild("error", time.Since(start), 0, 0, nil)
		return dataframe.DataFrame{}, err
	}

	dropped := make(map[string]int, len(rep.Steps))
	for _, s := range rep.Steps {
		dropped[s.Step] = s.Dropped
	}
	o.metrics.RecordBuild("ok", time.Since(start), rep.InputRows, rep.OutputRows, dropped)
	o.lastReport = &rep
	return df, nil
}

func (o *Orchestrator) build(ctx context.Context) (dataframe.DataFrame, cleaning.Report, error) {
	o.logger.Info("phase 1: ensuring sources")
	for _, src := range []Source{o.trips, o.zones} {
		if err := o.fetcher.EnsureLocal(ctx, src.URL, src.Path); err != nil {
			return dataframe.DataFrame{}, cleaning.Report{}, fmt.Errorf("phase 1 (fetch sources) failed: %w", err)
		}
	}
	if err := ctx.Err(); err != nil {
		return dataframe.DataFrame{}, cleaning.Report{}, err
	}

	o.logger.Info("phase 2: validating schema")
	cols, err := parquetio.Columns(o.trips.Path)
	if err != nil {
		return dataframe.DataFrame{}, cleaning.Report{}, fmt.Errorf("phase 2 (validate schema) failed: %w", err)
	}
	proj, err := schema.Resolve(cols)
	if err != nil {
		return dataframe.DataFrame{}, cleaning.Report{}, fmt.Errorf("phase 2 (validate schema) failed: %w", err)
	}
	o.logger.WithField("columns", len(proj)).Debug("projection resolved")

	o.logger.Info("phase 3: reading trips")
	raw, err := parquetio.ReadFrame(o.trips.Path, proj.Names())
	if err != nil {
		return dataframe.DataFrame{}, cleaning.Report{}, fmt.Errorf("phase 3 (read trips) failed: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return dataframe.DataFrame{}, cleaning.Report{}, err
	}

	o.logger.WithField("rows", raw.Nrow()).Info("phase 4: cleaning")
	df, rep, err := cleaning.Clean(raw, o.month)
	if err != nil {
		return dataframe.DataFrame{}, cleaning.Report{}, fmt.Errorf("phase 4 (clean) failed: %w", err)
	}
	for _, s := range rep.Steps {
		o.logger.WithFields(log.Fields{
			"step":    s.Step,
			"kept":    s.Kept,
			"dropped": s.Dropped,
		}).Debug("filter step")
	}
	o.logger.WithFields(log.Fields{
		"rows_in":  rep.InputRows,
		"rows_out": rep.OutputRows,
		"dropped":  rep.Dropped(),
	}).Info("cleaning complete")

	return df, rep, nil
}

// Prepare loads the clean dataset through the session handle, building it
// when absent, and loads the zone lookup.
func (o *Orchestrator) Prepare(ctx context.Context) (*Result, *zones.Lookup, error) {
	start := time.Now()
	o.lastReport = nil

	df, err := o.handle.Get(ctx)
	if err != nil {
		return nil, nil, err
	}
	_, fromDisk := o.handle.Loaded()

	lookup, err := o.LoadZones(ctx)
	if err != nil {
		return nil, nil, err
	}

	res := &Result{
		Rows:      df.Nrow(),
		Columns:   df.Ncol(),
		Zones:     lookup.Len(),
		FromCache: fromDisk,
		Duration:  time.Since(start),
		Report:    o.lastReport,
	}
	o.logger.WithFields(log.Fields{
		"rows":       res.Rows,
		"from_cache": res.FromCache,
		"duration":   res.Duration.Round(time.Millisecond),
	}).Info("dataset ready")
	return res, lookup, nil
}

// LoadZones loads the zone lookup, fetching it first unless the
// orchestrator is read-only.
func (o *Orchestrator) LoadZones(ctx context.Context) (*zones.Lookup, error) {
	if o.handle.ReadOnly() {
		if _, err := os.Stat(o.zones.Path); errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("zone lookup %s: %w", o.zones.Path, cache.ErrNotInitialized)
		}
	} else if err := o.fetcher.EnsureLocal(ctx, o.zones.URL, o.zones.Path); err != nil {
		return nil, fmt.Errorf("fetch zones: %w", err)
	}
	lookup, err := zones.Load(o.zones.Path)
	if err != nil {
		return nil, fmt.Errorf("load zones: %w", err)
	}
	return lookup, nil
}
