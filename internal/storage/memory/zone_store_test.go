package memory

import (
	"context"
	"errors"
	"testing"

	"nyc-taxi-lab/internal/domain"
	"nyc-taxi-lab/internal/storage"
)

func testZones() []domain.Zone {
	return []domain.Zone{
		{LocationID: 236, Borough: "Manhattan", Zone: "Upper East Side North", ServiceZone: "Yellow Zone"},
		{LocationID: 132, Borough: "Queens", Zone: "JFK Airport", ServiceZone: "Airports"},
		{LocationID: 161, Borough: "Manhattan", Zone: "Midtown Center", ServiceZone: "Yellow Zone"},
	}
}

func TestZoneStore_InsertAndGetByID(t *testing.T) {
	store := NewZoneStore()
	ctx := context.Background()

	if err := store.InsertBulk(ctx, testZones()); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	z, err := store.GetByID(ctx, 132)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if z.Zone != "JFK Airport" || z.ServiceZone != "Airports" {
		t.Errorf("zone mismatch: %+v", z)
	}

	if _, err := store.GetByID(ctx, 999); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestZoneStore_GetAllOrdered(t *testing.T) {
	store := NewZoneStore()
	ctx := context.Background()

	if err := store.InsertBulk(ctx, testZones()); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	all, err := store.GetAll(ctx)
	if err != nil {
		t.Fatalf("GetAll failed: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 zones, got %d", len(all))
	}
	for i, want := range []int{132, 161, 236} {
		if all[i].LocationID != want {
			t.Errorf("position %d: got %d, want %d", i, all[i].LocationID, want)
		}
	}
}

func TestZoneStore_DuplicateRejectsWholeBatch(t *testing.T) {
	store := NewZoneStore()
	ctx := context.Background()

	if err := store.InsertBulk(ctx, testZones()[:1]); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	batch := []domain.Zone{{LocationID: 1, Zone: "Newark Airport"}, testZones()[0]}
	if err := store.InsertBulk(ctx, batch); !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("expected ErrDuplicateKey, got %v", err)
	}
	if _, err := store.GetByID(ctx, 1); !errors.Is(err, storage.ErrNotFound) {
		t.Error("failed batch must not insert anything")
	}

	intra := []domain.Zone{{LocationID: 2}, {LocationID: 2}}
	if err := store.InsertBulk(ctx, intra); !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("expected ErrDuplicateKey for intra-batch duplicate, got %v", err)
	}
}

func TestZoneStore_InvalidID(t *testing.T) {
	store := NewZoneStore()
	if err := store.InsertBulk(context.Background(), []domain.Zone{{LocationID: 0}}); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}
