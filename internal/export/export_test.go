package export

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nyc-taxi-lab/internal/domain"
	"nyc-taxi-lab/internal/logging"
	"nyc-taxi-lab/internal/observability"
	"nyc-taxi-lab/internal/storage"
	"nyc-taxi-lab/internal/storage/memory"
	"nyc-taxi-lab/internal/zones"
)

// 2024-01-01T08:00:00Z
const base = 1704096000000000.0

const minute = 60 * 1e6

func cleanFrame(n int) dataframe.DataFrame {
	col := func(f func(i int) float64) []float64 {
		out := make([]float64, n)
		for i := range out {
			out[i] = f(i)
		}
		return out
	}
	text := func(v string) []string {
		out := make([]string, n)
		for i := range out {
			out[i] = v
		}
		return out
	}
	return dataframe.New(
		series.New(col(func(i int) float64 { return base + float64(i)*minute }), series.Float, domain.ColPickupDatetime),
		series.New(col(func(i int) float64 { return base + float64(i+10)*minute }), series.Float, domain.ColDropoffDatetime),
		series.New(col(func(int) float64 { return 161 }), series.Float, domain.ColPULocationID),
		series.New(col(func(int) float64 { return 236 }), series.Float, domain.ColDOLocationID),
		series.New(col(func(int) float64 { return 1 }), series.Float, domain.ColPassengerCount),
		series.New(col(func(int) float64 { return 2 }), series.Float, domain.ColTripDistance),
		series.New(col(func(int) float64 { return 12 }), series.Float, domain.ColFareAmount),
		series.New(col(func(int) float64 { return math.NaN() }), series.Float, domain.ColTipAmount),
		series.New(col(func(int) float64 { return 16 }), series.Float, domain.ColTotalAmount),
		series.New(col(func(int) float64 { return 10 }), series.Float, domain.ColTripDurationMinutes),
		series.New(col(func(int) float64 { return 8 }), series.Float, domain.ColPickupHour),
		series.New(text("Monday"), series.String, domain.ColPickupDayOfWeek),
		series.New(text("2024-01-01"), series.String, domain.ColPickupDate),
	)
}

func testLookup(t *testing.T) *zones.Lookup {
	t.Helper()
	l, err := zones.FromZones([]domain.Zone{
		{LocationID: 161, Borough: "Manhattan", Zone: "Midtown Center"},
		{LocationID: 236, Borough: "Manhattan", Zone: "Upper East Side North"},
		{LocationID: 132, Borough: "Queens", Zone: "JFK Airport"},
	})
	require.NoError(t, err)
	return l
}

func newExporter(zs storage.ZoneStore, ts storage.TripStore, batch int) (*Exporter, *observability.Metrics) {
	m := observability.NewMetrics("test", prometheus.NewRegistry())
	return New(Options{
		Zones:     zs,
		Trips:     ts,
		BatchSize: batch,
		ZonesDB:   "postgres",
		TripsDB:   "clickhouse",
		Logger:    logging.Discard(),
		Metrics:   m,
	}), m
}

func TestRun_ExportsZonesAndTripsInBatches(t *testing.T) {
	zs, ts := memory.NewZoneStore(), memory.NewTripStore()
	e, m := newExporter(zs, ts, 2)
	ctx := context.Background()

	res, err := e.Run(ctx, cleanFrame(5), testLookup(t))
	require.NoError(t, err)
	assert.Equal(t, 3, res.ZonesInserted)
	assert.Equal(t, 5, res.TripsInserted)
	assert.Equal(t, 3, res.Batches)
	assert.False(t, res.TripsSkipped)

	n, err := ts.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	stored, err := ts.GetByTimeRange(ctx, int64(base), int64(base+4*minute))
	require.NoError(t, err)
	require.Len(t, stored, 5)
	assert.Nil(t, stored[0].TipAmount, "null tip must stay null")

	all, err := zs.GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	assert.Equal(t, 5.0, testutil.ToFloat64(m.RowsExported.WithLabelValues("clickhouse", "clean_trips")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.RowsExported.WithLabelValues("postgres", "taxi_zones")))
}

func TestRun_RerunIsNoop(t *testing.T) {
	zs, ts := memory.NewZoneStore(), memory.NewTripStore()
	e, _ := newExporter(zs, ts, 0)
	ctx := context.Background()
	df, lookup := cleanFrame(3), testLookup(t)

	_, err := e.Run(ctx, df, lookup)
	require.NoError(t, err)

	res, err := e.Run(ctx, df, lookup)
	require.NoError(t, err)
	assert.Zero(t, res.ZonesInserted)
	assert.Equal(t, 3, res.ZonesSkipped)
	assert.True(t, res.TripsSkipped)

	n, err := ts.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestRun_OnlyMissingZonesInserted(t *testing.T) {
	zs := memory.NewZoneStore()
	ctx := context.Background()
	require.NoError(t, zs.InsertBulk(ctx, []domain.Zone{{LocationID: 161, Zone: "Midtown Center"}}))

	e, _ := newExporter(zs, nil, 0)
	res, err := e.Run(ctx, dataframe.DataFrame{}, testLookup(t))
	require.NoError(t, err)
	assert.Equal(t, 2, res.ZonesInserted)
	assert.Equal(t, 1, res.ZonesSkipped)
}

func TestRun_BadFrame(t *testing.T) {
	e, _ := newExporter(nil, memory.NewTripStore(), 0)
	df := cleanFrame(2).Drop(domain.ColPickupDate)

	_, err := e.Run(context.Background(), df, nil)
	assert.ErrorIs(t, err, storage.ErrInvalidInput)
}

type failingTrips struct {
	storage.TripStore
}

func (failingTrips) CountByTimeRange(context.Context, int64, int64) (int, error) {
	return 0, nil
}

func (failingTrips) InsertBulk(context.Context, []*domain.CleanTrip) error {
	return errors.New("connection reset")
}

func TestRun_InsertErrorCounted(t *testing.T) {
	e, m := newExporter(nil, failingTrips{}, 0)

	_, err := e.Run(context.Background(), cleanFrame(2), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insert trip batch 0")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DBQueryErrors.WithLabelValues("clickhouse", "insert_bulk")))
}
