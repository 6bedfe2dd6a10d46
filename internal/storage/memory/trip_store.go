package memory

import (
	"context"
	"sort"
	"sync"

	"nyc-taxi-lab/internal/domain"
	"nyc-taxi-lab/internal/storage"
)

// TripStore is an in-memory implementation of storage.TripStore.
type TripStore struct {
	mu   sync.RWMutex
	data []domain.CleanTrip // append order
}

// NewTripStore creates a new in-memory trip store.
func NewTripStore() *TripStore {
	return &TripStore{}
}

// Compile-time interface check.
var _ storage.TripStore = (*TripStore)(nil)

// InsertBulk appends trips. The batch is rejected as a whole when any trip
// is invalid.
func (s *TripStore) InsertBulk(_ context.Context, trips []*domain.CleanTrip) error {
	if len(trips) == 0 {
		return nil
	}
	for _, t := range trips {
		if err := storage.ValidateTrip(t); err != nil {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range trips {
		s.data = append(s.data, *t)
	}
	return nil
}

// Count returns the number of stored trips.
func (s *TripStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data), nil
}

// CountByTimeRange counts trips with pickup within [start, end].
func (s *TripStore) CountByTimeRange(_ context.Context, start, end int64) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for i := range s.data {
		if p := s.data[i].PickupMicros; p >= start && p <= end {
			n++
		}
	}
	return n, nil
}

// GetByTimeRange retrieves trips with pickup within [start, end], ordered by pickup ASC.
func (s *TripStore) GetByTimeRange(_ context.Context, start, end int64) ([]*domain.CleanTrip, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.CleanTrip
	for i := range s.data {
		if p := s.data[i].PickupMicros; p >= start && p <= end {
			t := s.data[i]
			out = append(out, &t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].PickupMicros < out[j].PickupMicros
	})
	return out, nil
}
