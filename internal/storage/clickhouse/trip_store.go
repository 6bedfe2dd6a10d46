package clickhouse

import (
	"context"
	"fmt"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"nyc-taxi-lab/internal/domain"
	"nyc-taxi-lab/internal/storage"
)

// TripStore implements storage.TripStore using ClickHouse.
type TripStore struct {
	conn *Conn
}

// NewTripStore creates a new TripStore.
func NewTripStore(conn *Conn) *TripStore {
	return &TripStore{conn: conn}
}

// Compile-time interface check.
var _ storage.TripStore = (*TripStore)(nil)

const tripColumns = `
	tpep_pickup, tpep_dropoff,
	pu_location_id, do_location_id,
	passenger_count, trip_distance,
	fare_amount, tip_amount, total_amount,
	payment_type, vendor_id, ratecode_id, store_and_fwd_flag,
	extra, mta_tax, tolls_amount, improvement_surcharge,
	congestion_surcharge, airport_fee,
	trip_duration_minutes, pickup_hour, pickup_day_of_week, pickup_date,
	trip_speed_mph, tip_pct
`

// InsertBulk appends trips in one batch. The batch is rejected as a whole
// when any trip is invalid.
func (s *TripStore) InsertBulk(ctx context.Context, trips []*domain.CleanTrip) error {
	if len(trips) == 0 {
		return nil
	}
	for _, t := range trips {
		if err := storage.ValidateTrip(t); err != nil {
			return err
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, "INSERT INTO clean_trips ("+tripColumns+")")
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, t := range trips {
		// Nullable columns take the pointers as is.
		err = batch.Append(
			t.PickupMicros, t.DropoffMicros,
			int32(t.PULocationID), int32(t.DOLocationID),
			t.PassengerCount, t.TripDistance,
			t.FareAmount, t.TipAmount, t.TotalAmount,
			t.PaymentType, t.VendorID, t.RatecodeID, t.StoreAndFwdFlag,
			t.Extra, t.MTATax, t.TollsAmount, t.ImprovementSurch,
			t.CongestionSurch, t.AirportFee,
			t.TripDurationMinutes, uint8(t.PickupHour), t.PickupDayOfWeek, t.PickupDate,
			t.TripSpeedMph, t.TipPct,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// Count returns the number of stored trips.
func (s *TripStore) Count(ctx context.Context) (int, error) {
	var n uint64
	if err := s.conn.QueryRow(ctx, "SELECT count() FROM clean_trips").Scan(&n); err != nil {
		return 0, fmt.Errorf("count trips: %w", err)
	}
	return int(n), nil
}

// CountByTimeRange counts trips with pickup within [start, end].
func (s *TripStore) CountByTimeRange(ctx context.Context, start, end int64) (int, error) {
	query := `
		SELECT count() FROM clean_trips
		WHERE tpep_pickup >= ? AND tpep_pickup <= ?
	`

	var n uint64
	if err := s.conn.QueryRow(ctx, query, start, end).Scan(&n); err != nil {
		return 0, fmt.Errorf("count trips by time range: %w", err)
	}
	return int(n), nil
}

// GetByTimeRange retrieves trips with pickup within [start, end], ordered by pickup ASC.
func (s *TripStore) GetByTimeRange(ctx context.Context, start, end int64) ([]*domain.CleanTrip, error) {
	query := "SELECT " + tripColumns + `
		FROM clean_trips
		WHERE tpep_pickup >= ? AND tpep_pickup <= ?
		ORDER BY tpep_pickup ASC, tpep_dropoff ASC
	`

	rows, err := s.conn.Query(ctx, query, start, end)
	if err != nil {
		return nil, fmt.Errorf("query by time range: %w", err)
	}
	defer rows.Close()

	return scanTrips(rows)
}

func scanTrips(rows driver.Rows) ([]*domain.CleanTrip, error) {
	var out []*domain.CleanTrip
	for rows.Next() {
		var (
			t      domain.CleanTrip
			pu, do int32
			hour   uint8
		)
		err := rows.Scan(
			&t.PickupMicros, &t.DropoffMicros,
			&pu, &do,
			&t.PassengerCount, &t.TripDistance,
			&t.FareAmount, &t.TipAmount, &t.TotalAmount,
			&t.PaymentType, &t.VendorID, &t.RatecodeID, &t.StoreAndFwdFlag,
			&t.Extra, &t.MTATax, &t.TollsAmount, &t.ImprovementSurch,
			&t.CongestionSurch, &t.AirportFee,
			&t.TripDurationMinutes, &hour, &t.PickupDayOfWeek, &t.PickupDate,
			&t.TripSpeedMph, &t.TipPct,
		)
		if err != nil {
			return nil, fmt.Errorf("scan trip: %w", err)
		}
		t.PULocationID = int64(pu)
		t.DOLocationID = int64(do)
		t.PickupHour = int64(hour)
		out = append(out, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trips: %w", err)
	}
	return out, nil
}
