package catalog

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/atlastravel/pricingservice/internal/domain"
)

func testPackage(id uuid.UUID, version int) domain.Package {
	return domain.Package{
		ID:       id,
		Version:  version,
		Name:     "Summer Coast",
		Currency: "EUR",
		Tiers: []domain.GroupSizeTier{
			{Label: "2-4", MinPeople: 2, MaxPeople: 4},
		},
		Durations: []int{3},
		Periods: []domain.PeriodEntry{
			{
				Label: "June",
				Type:  domain.PeriodCalendarMonth,
				PricePoints: []domain.PricePoint{
					{TierIndex: 0, Nights: 3, Price: domain.NewPrice(15000)},
				},
			},
		},
		Active: true,
	}
}

func TestMemoryStore_GetByVersion(t *testing.T) {
	store := NewMemoryStore()
	id := uuid.New()
	store.Put(testPackage(id, 1))
	store.Put(testPackage(id, 2))

	pkg, err := store.Get(context.Background(), id, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pkg.Version != 1 {
		t.Fatalf("expected version 1, got %d", pkg.Version)
	}
}

func TestMemoryStore_LatestVersion(t *testing.T) {
	store := NewMemoryStore()
	id := uuid.New()
	store.Put(testPackage(id, 2))
	store.Put(testPackage(id, 1))

	pkg, err := store.Get(context.Background(), id, LatestVersion)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pkg.Version != 2 {
		t.Fatalf("expected latest version 2, got %d", pkg.Version)
	}
}

func TestMemoryStore_NotFound(t *testing.T) {
	store := NewMemoryStore()
	id := uuid.New()
	store.Put(testPackage(id, 1))

	cases := []struct {
		name    string
		id      uuid.UUID
		version int
	}{
		{"unknown id", uuid.New(), LatestVersion},
		{"unknown version", id, 7},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := store.Get(context.Background(), c.id, c.version)
			if err == nil {
				t.Fatal("expected not found")
			}
			if !IsNotFound(err) {
				t.Fatalf("expected a not-found error, got %v", err)
			}
		})
	}
}
