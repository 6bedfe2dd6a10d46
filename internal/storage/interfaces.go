package storage

import (
	"context"

	"nyc-taxi-lab/internal/domain"
)

// ZoneStore provides access to taxi_zones storage.
type ZoneStore interface {
	// InsertBulk adds multiple zones atomically. Fails entire batch on any duplicate location_id.
	InsertBulk(ctx context.Context, zones []domain.Zone) error

	// GetByID retrieves a zone by location ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, locationID int) (*domain.Zone, error)

	// GetAll retrieves every zone, ordered by location_id ASC.
	GetAll(ctx context.Context) ([]domain.Zone, error)
}

// TripStore provides access to clean_trips storage.
type TripStore interface {
	// InsertBulk appends trips. Trips have no natural key, so no
	// duplicate detection is done.
	InsertBulk(ctx context.Context, trips []*domain.CleanTrip) error

	// Count returns the number of stored trips.
	Count(ctx context.Context) (int, error)

	// CountByTimeRange counts trips with pickup within [start, end] (inclusive, Unix micros).
	CountByTimeRange(ctx context.Context, start, end int64) (int, error)

	// GetByTimeRange retrieves trips with pickup within [start, end] (inclusive, Unix micros),
	// ordered by pickup ASC.
	GetByTimeRange(ctx context.Context, start, end int64) ([]*domain.CleanTrip, error)
}
