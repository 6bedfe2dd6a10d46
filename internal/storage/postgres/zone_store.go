package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"nyc-taxi-lab/internal/domain"
	"nyc-taxi-lab/internal/storage"
)

// ZoneStore implements storage.ZoneStore using PostgreSQL.
type ZoneStore struct {
	pool *Pool
}

// NewZoneStore creates a new ZoneStore.
func NewZoneStore(pool *Pool) *ZoneStore {
	return &ZoneStore{pool: pool}
}

// Compile-time interface check.
var _ storage.ZoneStore = (*ZoneStore)(nil)

// InsertBulk adds multiple zones atomically. Fails entire batch on any duplicate.
func (s *ZoneStore) InsertBulk(ctx context.Context, zones []domain.Zone) error {
	if len(zones) == 0 {
		return nil
	}
	for _, z := range zones {
		if z.LocationID <= 0 {
			return storage.ErrInvalidInput
		}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO taxi_zones (
			location_id, borough, zone, service_zone
		) VALUES ($1, $2, $3, $4)
	`

	for _, z := range zones {
		_, err := tx.Exec(ctx, query,
			z.LocationID,
			z.Borough,
			z.Zone,
			z.ServiceZone,
		)
		if err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert zone in bulk: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

// GetByID retrieves a zone by location ID. Returns ErrNotFound if not exists.
func (s *ZoneStore) GetByID(ctx context.Context, locationID int) (*domain.Zone, error) {
	query := `
		SELECT location_id, borough, zone, service_zone
		FROM taxi_zones
		WHERE location_id = $1
	`

	z, err := scanZone(s.pool.QueryRow(ctx, query, locationID))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get zone by id: %w", err)
	}
	return z, nil
}

// GetAll retrieves every zone, ordered by location_id ASC.
func (s *ZoneStore) GetAll(ctx context.Context) ([]domain.Zone, error) {
	query := `
		SELECT location_id, borough, zone, service_zone
		FROM taxi_zones
		ORDER BY location_id ASC
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query zones: %w", err)
	}
	defer rows.Close()

	var out []domain.Zone
	for rows.Next() {
		z, err := scanZone(rows)
		if err != nil {
			return nil, fmt.Errorf("scan zone: %w", err)
		}
		out = append(out, *z)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate zones: %w", err)
	}
	return out, nil
}

// scanZone scans a single row into Zone.
func scanZone(row pgx.Row) (*domain.Zone, error) {
	var z domain.Zone
	if err := row.Scan(&z.LocationID, &z.Borough, &z.Zone, &z.ServiceZone); err != nil {
		return nil, err
	}
	return &z, nil
}
