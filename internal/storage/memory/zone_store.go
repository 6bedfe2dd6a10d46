package memory

import (
	"context"
	"sort"
	"sync"

	"nyc-taxi-lab/internal/domain"
	"nyc-taxi-lab/internal/storage"
)

// ZoneStore is an in-memory implementation of storage.ZoneStore.
type ZoneStore struct {
	mu   sync.RWMutex
	data map[int]domain.Zone // keyed by location_id
}

// NewZoneStore creates a new in-memory zone store.
func NewZoneStore() *ZoneStore {
	return &ZoneStore{
		data: make(map[int]domain.Zone),
	}
}

// Compile-time interface check.
var _ storage.ZoneStore = (*ZoneStore)(nil)

// InsertBulk adds multiple zones atomically. Fails entire batch on any duplicate.
func (s *ZoneStore) InsertBulk(_ context.Context, zones []domain.Zone) error {
	if len(zones) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// First pass: check for duplicates (existing + intra-batch)
	batch := make(map[int]struct{}, len(zones))
	for _, z := range zones {
		if z.LocationID <= 0 {
			return storage.ErrInvalidInput
		}
		if _, exists := s.data[z.LocationID]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batch[z.LocationID]; exists {
			return storage.ErrDuplicateKey
		}
		batch[z.LocationID] = struct{}{}
	}

	// Second pass: insert all
	for _, z := range zones {
		s.data[z.LocationID] = z
	}
	return nil
}

// GetByID retrieves a zone by location ID. Returns ErrNotFound if not exists.
func (s *ZoneStore) GetByID(_ context.Context, locationID int) (*domain.Zone, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	z, exists := s.data[locationID]
	if !exists {
		return nil, storage.ErrNotFound
	}
	return &z, nil
}

// GetAll retrieves every zone, ordered by location_id ASC.
func (s *ZoneStore) GetAll(_ context.Context) ([]domain.Zone, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Zone, 0, len(s.data))
	for _, z := range s.data {
		out = append(out, z)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].LocationID < out[j].LocationID
	})
	return out, nil
}
