package pricing

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/atlastravel/pricingservice/internal/catalog"
	"github.com/atlastravel/pricingservice/internal/domain"
)

// summerPackage is a small but complete pricing matrix: two tiers, two
// durations, a June month and a midsummer special overlapping it.
func summerPackage(id uuid.UUID) domain.Package {
	start := time.Date(2025, time.June, 20, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, time.June, 25, 0, 0, 0, 0, time.UTC)
	return domain.Package{
		ID:       id,
		Version:  1,
		Name:     "Summer Coast",
		Currency: "EUR",
		Tiers: []domain.GroupSizeTier{
			{Label: "2-4", MinPeople: 2, MaxPeople: 4},
			{Label: "5-8", MinPeople: 5, MaxPeople: 8},
		},
		Durations: []int{3, 5},
		Periods: []domain.PeriodEntry{
			{
				Label: "June",
				Type:  domain.PeriodCalendarMonth,
				PricePoints: []domain.PricePoint{
					{TierIndex: 0, Nights: 3, Price: domain.NewPrice(15000)},
					{TierIndex: 0, Nights: 5, Price: domain.NewPrice(22000)},
					{TierIndex: 1, Nights: 3, Price: domain.NewPrice(12000)},
					{TierIndex: 1, Nights: 5, Price: domain.OnRequestPrice()},
				},
			},
			{
				Label:     "Midsummer",
				Type:      domain.PeriodSpecialRange,
				StartDate: &start,
				EndDate:   &end,
				PricePoints: []domain.PricePoint{
					{TierIndex: 0, Nights: 3, Price: domain.NewPrice(18000)},
				},
			},
		},
		Active: true,
	}
}

func params(people, nights int, arrival time.Time) domain.QuoteParams {
	return domain.QuoteParams{People: people, Nights: nights, ArrivalDate: arrival}
}

func TestCalculateFromPackage_HappyPath(t *testing.T) {
	pkg := summerPackage(uuid.New())
	arrival := time.Date(2025, time.June, 10, 0, 0, 0, 0, time.UTC)

	breakdown, err := CalculateFromPackage(pkg, params(3, 3, arrival))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if per, _ := breakdown.PricePerPerson.Cents(); per != 15000 {
		t.Fatalf("expected per-person 15000, got %d", per)
	}
	if total, _ := breakdown.TotalPrice.Cents(); total != 45000 {
		t.Fatalf("expected total 45000, got %d", total)
	}
	if breakdown.NumberOfPeople != 3 {
		t.Fatalf("expected 3 people, got %d", breakdown.NumberOfPeople)
	}
	if breakdown.TierUsed != "2-4" || breakdown.PeriodUsed != "June" {
		t.Fatalf("expected tier '2-4' period 'June', got %q %q", breakdown.TierUsed, breakdown.PeriodUsed)
	}
	if breakdown.Currency != "EUR" {
		t.Fatalf("expected currency EUR, got %q", breakdown.Currency)
	}
}

func TestCalculateFromPackage_SpecialRangeOverridesMonth(t *testing.T) {
	pkg := summerPackage(uuid.New())
	arrival := time.Date(2025, time.June, 22, 0, 0, 0, 0, time.UTC)

	breakdown, err := CalculateFromPackage(pkg, params(2, 3, arrival))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if breakdown.PeriodUsed != "Midsummer" {
		t.Fatalf("expected Midsummer, got %q", breakdown.PeriodUsed)
	}
	if per, _ := breakdown.PricePerPerson.Cents(); per != 18000 {
		t.Fatalf("expected per-person 18000, got %d", per)
	}
}

func TestCalculateFromPackage_Idempotent(t *testing.T) {
	pkg := summerPackage(uuid.New())
	arrival := time.Date(2025, time.June, 10, 0, 0, 0, 0, time.UTC)
	p := params(6, 3, arrival)

	first, err := CalculateFromPackage(pkg, p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := CalculateFromPackage(pkg, p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first != second {
		t.Fatalf("identical inputs must produce identical breakdowns: %+v vs %+v", first, second)
	}
}

func TestCalculateFromPackage_OnRequest(t *testing.T) {
	pkg := summerPackage(uuid.New())
	arrival := time.Date(2025, time.June, 10, 0, 0, 0, 0, time.UTC)

	breakdown, err := CalculateFromPackage(pkg, params(6, 5, arrival))
	if err != nil {
		t.Fatalf("on-request is a valid outcome, not an error: %v", err)
	}
	if !breakdown.IsOnRequest() {
		t.Fatal("expected on-request breakdown")
	}
	if !breakdown.TotalPrice.IsOnRequest() {
		t.Fatal("total derived from on-request must stay on-request")
	}
}

func TestCalculateFromPackage_Failures(t *testing.T) {
	pkg := summerPackage(uuid.New())
	june := time.Date(2025, time.June, 10, 0, 0, 0, 0, time.UTC)
	march := time.Date(2025, time.March, 10, 0, 0, 0, 0, time.UTC)
	midsummer := time.Date(2025, time.June, 22, 0, 0, 0, 0, time.UTC)

	cases := []struct {
		name     string
		params   domain.QuoteParams
		wantCode string
	}{
		{"party too large", params(9, 3, june), domain.ErrCodeNoMatchingTier},
		{"party too small", params(1, 3, june), domain.ErrCodeNoMatchingTier},
		{"undeclared duration", params(3, 4, june), domain.ErrCodeNoMatchingDuration},
		{"uncovered arrival", params(3, 3, march), domain.ErrCodeNoMatchingPeriod},
		// The midsummer special only prices tier 0 at 3 nights.
		{"matrix hole", params(3, 5, midsummer), domain.ErrCodeNoMatchingPricePoint},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := CalculateFromPackage(pkg, c.params)
			if err == nil {
				t.Fatal("expected error")
			}
			if domain.CodeOf(err) != c.wantCode {
				t.Fatalf("expected %s, got %s", c.wantCode, domain.CodeOf(err))
			}
		})
	}
}

func TestQuote_ResolvesLatestVersion(t *testing.T) {
	store := catalog.NewMemoryStore()
	id := uuid.New()

	v1 := summerPackage(id)
	store.Put(v1)
	v2 := summerPackage(id)
	v2.Version = 2
	v2.Periods[0].PricePoints[0].Price = domain.NewPrice(16000)
	store.Put(v2)

	calc := NewCalculator(store)
	arrival := time.Date(2025, time.June, 10, 0, 0, 0, 0, time.UTC)

	res, err := calc.Quote(context.Background(), id, catalog.LatestVersion, params(3, 3, arrival))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Package.Version != 2 {
		t.Fatalf("expected resolved version 2, got %d", res.Package.Version)
	}
	if per, _ := res.Breakdown.PricePerPerson.Cents(); per != 16000 {
		t.Fatalf("expected v2 price 16000, got %d", per)
	}

	// Pinning version 1 still returns the older revision.
	res, err = calc.Quote(context.Background(), id, 1, params(3, 3, arrival))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Package.Version != 1 {
		t.Fatalf("expected pinned version 1, got %d", res.Package.Version)
	}
}

func TestQuote_PackageNotFound(t *testing.T) {
	calc := NewCalculator(catalog.NewMemoryStore())
	arrival := time.Date(2025, time.June, 10, 0, 0, 0, 0, time.UTC)

	_, err := calc.Quote(context.Background(), uuid.New(), catalog.LatestVersion, params(3, 3, arrival))
	if err == nil {
		t.Fatal("expected package not found")
	}
	if domain.CodeOf(err) != domain.ErrCodePackageNotFound {
		t.Fatalf("expected PACKAGE_NOT_FOUND, got %s", domain.CodeOf(err))
	}
	if !domain.IsRetryable(err) {
		t.Fatal("not-found lookups should be retryable")
	}
}

func TestQuote_WarningsAccompanyFailure(t *testing.T) {
	store := catalog.NewMemoryStore()
	id := uuid.New()
	store.Put(summerPackage(id))

	calc := NewCalculator(store)
	arrival := time.Date(2025, time.June, 10, 0, 0, 0, 0, time.UTC)

	res, err := calc.Quote(context.Background(), id, 1, params(9, 4, arrival))
	if err == nil {
		t.Fatal("expected calculation failure")
	}
	// Lookup succeeded, so warnings and package metadata still come back.
	if len(res.Warnings) != 2 {
		t.Fatalf("expected warnings for people and nights, got %d: %+v", len(res.Warnings), res.Warnings)
	}
	if res.Package.Name != "Summer Coast" {
		t.Fatalf("expected package metadata on failed calculation, got %+v", res.Package)
	}
}
