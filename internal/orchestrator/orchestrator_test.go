package orchestrator

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/prometheus/client_golang/prometheus"

	"nyc-taxi-lab/internal/cache"
	"nyc-taxi-lab/internal/config"
	"nyc-taxi-lab/internal/domain"
	"nyc-taxi-lab/internal/logging"
	"nyc-taxi-lab/internal/observability"
	"nyc-taxi-lab/internal/parquetio"
	"nyc-taxi-lab/internal/schema"
)

const zonesCSV = "LocationID,Borough,Zone,service_zone\n161,Manhattan,Midtown Center,Yellow Zone\n236,Manhattan,Upper East Side North,Yellow Zone\n"

// fakeFetcher serves in-memory bodies and counts downloads.
type fakeFetcher struct {
	bodies map[string][]byte
	calls  int
}

func (f *fakeFetcher) EnsureLocal(ctx context.Context, url, dest string) error {
	if _, err := os.Stat(dest); err == nil {
		return nil
	}
	body, ok := f.bodies[url]
	if !ok {
		return errors.New("404 " + url)
	}
	f.calls++
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}
	return os.WriteFile(dest, body, 0o644)
}

func rawTripsParquet(t *testing.T, drop string) []byte {
	t.Helper()
	pu := time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC)
	at := func(d time.Duration) float64 { return domain.TimeToMicros(pu.Add(d)) }

	cols := map[string][]float64{
		domain.ColPickupDatetime:  {at(0), at(time.Hour), at(2 * time.Hour), at(-30 * 24 * time.Hour)},
		domain.ColDropoffDatetime: {at(20 * time.Minute), at(time.Hour + 10*time.Minute), at(2*time.Hour + 5*time.Minute), at(-30*24*time.Hour + 10*time.Minute)},
		domain.ColPULocationID:    {161, 236, 161, 161},
		domain.ColDOLocationID:    {236, 161, 236, 236},
		domain.ColPassengerCount:  {1, 2, 1, 1},
		domain.ColTripDistance:    {3.2, 1.1, 0, 2},
		domain.ColFareAmount:      {18, 9, 6, 10},
		domain.ColTipAmount:       {4, 0, 0, 1},
		domain.ColTotalAmount:     {25, 12, 8, 13},
		domain.ColPaymentType:     {1, 2, 1, 1},
		"Airport_fee":             {0, 1.75, 0, 0},
	}

	var ss []series.Series
	for _, name := range append(append([]string{}, domain.RequiredColumns...), "Airport_fee") {
		if name == drop {
			continue
		}
		ss = append(ss, series.New(cols[name], series.Float, name))
	}

	var buf bytes.Buffer
	if err := parquetio.WriteFrame(&buf, dataframe.New(ss...)); err != nil {
		t.Fatalf("write raw parquet: %v", err)
	}
	return buf.Bytes()
}

func newTestOrchestrator(t *testing.T, fetcher Fetcher, readOnly bool) (*Orchestrator, string) {
	t.Helper()
	dir := t.TempDir()
	logger := logging.Discard()
	metrics := observability.NewMetrics("test", prometheus.NewRegistry())

	store := cache.NewStore(cache.Options{
		Path:    filepath.Join(dir, "processed", "clean.parquet"),
		Logger:  logger,
		Metrics: metrics,
	})
	o := New(Options{
		Fetcher:  fetcher,
		Trips:    Source{URL: "http://example/trips.parquet", Path: filepath.Join(dir, "raw", "trips.parquet")},
		Zones:    Source{URL: "http://example/zones.csv", Path: filepath.Join(dir, "raw", "zones.csv")},
		Month:    domain.Month{Year: 2024, Month: time.January},
		Store:    store,
		ReadOnly: readOnly,
		Logger:   logger,
		Metrics:  metrics,
	})
	return o, dir
}

func TestPrepare_BuildsThenServesFromCache(t *testing.T) {
	ctx := context.Background()
	fetcher := &fakeFetcher{bodies: map[string][]byte{
		"http://example/trips.parquet": rawTripsParquet(t, ""),
		"http://example/zones.csv":     []byte(zonesCSV),
	}}
	o, dir := newTestOrchestrator(t, fetcher, false)

	res, lookup, err := o.Prepare(ctx)
	if err != nil {
		t.Fatalf("Prepare failed: %v", err)
	}
	if res.FromCache {
		t.Error("first Prepare must build")
	}
	if res.Rows != 2 {
		t.Errorf("expected 2 clean rows, got %d", res.Rows)
	}
	if res.Columns != len(domain.RequiredColumns)+1+len(domain.DerivedColumns) {
		t.Errorf("unexpected column count %d", res.Columns)
	}
	if res.Report == nil || res.Report.InputRows != 4 {
		t.Errorf("report: %+v", res.Report)
	}
	if lookup.Len() != 2 {
		t.Errorf("zones: %d", lookup.Len())
	}
	if fetcher.calls != 2 {
		t.Errorf("expected 2 downloads, got %d", fetcher.calls)
	}

	// a new session over the same directory
	fetcher.bodies["http://example/trips.parquet"] = rawTripsParquet(t, "")
	o2 := New(Options{
		Fetcher: fetcher,
		Trips:   o.trips,
		Zones:   o.zones,
		Month:   o.month,
		Store: cache.NewStore(cache.Options{
			Path:    filepath.Join(dir, "processed", "clean.parquet"),
			Logger:  logging.Discard(),
			Metrics: observability.NewMetrics("test", prometheus.NewRegistry()),
		}),
		Logger:  logging.Discard(),
		Metrics: observability.NewMetrics("test", prometheus.NewRegistry()),
	})
	res, _, err = o2.Prepare(ctx)
	if err != nil {
		t.Fatalf("second Prepare failed: %v", err)
	}
	if !res.FromCache || res.Report != nil {
		t.Errorf("expected cache hit, got %+v", res)
	}
	if fetcher.calls != 2 {
		t.Errorf("cache hit must not download, calls=%d", fetcher.calls)
	}
}

func TestBuild_MissingRequiredColumn(t *testing.T) {
	fetcher := &fakeFetcher{bodies: map[string][]byte{
		"http://example/trips.parquet": rawTripsParquet(t, domain.ColTipAmount),
		"http://example/zones.csv":     []byte(zonesCSV),
	}}
	o, _ := newTestOrchestrator(t, fetcher, false)

	_, err := o.Build(context.Background())
	if !errors.Is(err, schema.ErrMissingColumns) {
		t.Fatalf("expected ErrMissingColumns, got %v", err)
	}
	var mce *schema.MissingColumnsError
	if !errors.As(err, &mce) || len(mce.Columns) != 1 || mce.Columns[0] != domain.ColTipAmount {
		t.Errorf("missing columns: %v", err)
	}
}

func TestPrepare_FetchFailurePersistsNothing(t *testing.T) {
	fetcher := &fakeFetcher{bodies: map[string][]byte{
		"http://example/zones.csv": []byte(zonesCSV),
	}}
	o, dir := newTestOrchestrator(t, fetcher, false)

	if _, _, err := o.Prepare(context.Background()); err == nil {
		t.Fatal("expected fetch error")
	}
	if _, err := os.Stat(filepath.Join(dir, "processed", "clean.parquet")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("no artifact may be written after a failed build: %v", err)
	}
}

func TestPrepare_ReadOnlyNotInitialized(t *testing.T) {
	o, _ := newTestOrchestrator(t, &fakeFetcher{}, true)

	_, _, err := o.Prepare(context.Background())
	if !errors.Is(err, cache.ErrNotInitialized) {
		t.Fatalf("expected ErrNotInitialized, got %v", err)
	}
}

func TestBuild_CanceledContext(t *testing.T) {
	fetcher := &fakeFetcher{bodies: map[string][]byte{
		"http://example/trips.parquet": rawTripsParquet(t, ""),
		"http://example/zones.csv":     []byte(zonesCSV),
	}}
	o, _ := newTestOrchestrator(t, fetcher, false)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := o.Build(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestFromConfig_ReadOnlyUsesConfiguredPaths(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Data.RawDir = filepath.Join(dir, "raw")
	cfg.Data.ProcessDir = filepath.Join(dir, "processed")

	o, err := FromConfig(cfg, true, logging.Discard(), observability.NewMetrics("test", prometheus.NewRegistry()))
	if err != nil {
		t.Fatalf("FromConfig failed: %v", err)
	}
	if !o.Handle().ReadOnly() {
		t.Error("handle must be read-only")
	}
	if _, err := o.LoadZones(context.Background()); !errors.Is(err, cache.ErrNotInitialized) {
		t.Errorf("expected ErrNotInitialized for missing zones, got %v", err)
	}
	if _, err := o.Handle().Get(context.Background()); !errors.Is(err, cache.ErrNotInitialized) {
		t.Errorf("expected ErrNotInitialized for missing artifact, got %v", err)
	}
}

func TestFromConfig_BadMonth(t *testing.T) {
	cfg := config.Default()
	cfg.Data.Month = "2024-13"
	if _, err := FromConfig(cfg, false, logging.Discard(), nil); err == nil {
		t.Error("expected error for invalid month")
	}
}
