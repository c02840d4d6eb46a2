package pricing

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/atlastravel/pricingservice/internal/catalog"
	"github.com/atlastravel/pricingservice/internal/domain"
	"github.com/atlastravel/pricingservice/internal/metrics"
	"github.com/atlastravel/pricingservice/internal/tracing"
)

// Calculator resolves booking parameters against a package's pricing
// matrix. Apart from the single catalog lookup it is pure: identical
// inputs against an unchanged package yield identical output, and calls
// are safe to run concurrently.
type Calculator struct {
	catalog catalog.Catalog
}

func NewCalculator(c catalog.Catalog) *Calculator {
	return &Calculator{catalog: c}
}

// PackageMeta identifies the package revision a quote was resolved against.
type PackageMeta struct {
	ID       uuid.UUID
	Version  int
	Name     string
	Currency string
}

// QuoteResult bundles one calculation with its advisory warnings and the
// resolved package revision. On a calculation failure Warnings and Package
// are still populated when the lookup itself succeeded.
type QuoteResult struct {
	Breakdown domain.PriceBreakdown
	Warnings  []domain.ValidationWarning
	Package   PackageMeta
}

// Calculate loads the package and resolves a price. Deactivated packages
// still price normally: an existing quote retains its link regardless of
// the package's authoring status.
func (c *Calculator) Calculate(ctx context.Context, packageID uuid.UUID, version int, params domain.QuoteParams) (domain.PriceBreakdown, error) {
	res, err := c.Quote(ctx, packageID, version, params)
	return res.Breakdown, err
}

// Quote is Calculate plus the validation warnings computed from the same
// package record. Warnings never block the calculation; the calculation
// error is the authoritative outcome.
func (c *Calculator) Quote(ctx context.Context, packageID uuid.UUID, version int, params domain.QuoteParams) (QuoteResult, error) {
	ctx, span := tracing.StartSpan(ctx, "pricing.Quote")
	defer span.End()
	start := time.Now()

	pkg, err := c.catalog.Get(ctx, packageID, version)
	if err != nil {
		if !catalog.IsNotFound(err) {
			if _, ok := domain.AsError(err); !ok {
				err = domain.NewLookupFailureError(err)
			}
		}
		metrics.RecordCalculation(domain.CodeOf(err), time.Since(start))
		return QuoteResult{}, err
	}

	res := QuoteResult{
		Warnings: Validate(pkg, params),
		Package: PackageMeta{
			ID:       pkg.ID,
			Version:  pkg.Version,
			Name:     pkg.Name,
			Currency: pkg.Currency,
		},
	}

	breakdown, err := CalculateFromPackage(pkg, params)
	if err != nil {
		metrics.RecordCalculation(domain.CodeOf(err), time.Since(start))
		return res, err
	}
	res.Breakdown = breakdown

	outcome := "priced"
	if breakdown.IsOnRequest() {
		outcome = "on_request"
	}
	metrics.RecordCalculation(outcome, time.Since(start))
	return res, nil
}

// CalculateFromPackage is the pure resolution core: tier containment,
// exact duration match, period precedence, then the (tier, nights) price
// point. An ON_REQUEST price point is a valid terminal outcome and comes
// back as a breakdown whose prices carry the sentinel.
func CalculateFromPackage(pkg domain.Package, params domain.QuoteParams) (domain.PriceBreakdown, error) {
	match, err := DetermineTier(params.People, pkg.Tiers)
	if err != nil {
		return domain.PriceBreakdown{}, err
	}

	if !pkg.HasDuration(params.Nights) {
		return domain.PriceBreakdown{}, domain.NewNoMatchingDurationError(params.Nights, pkg.Durations)
	}

	period, err := DeterminePeriod(params.ArrivalDate, pkg.Periods)
	if err != nil {
		return domain.PriceBreakdown{}, err
	}

	price, ok := period.PricePoint(match.Index, params.Nights)
	if !ok {
		return domain.PriceBreakdown{}, domain.NewNoMatchingPricePointError(period.Label, match.Index, params.Nights)
	}

	return domain.PriceBreakdown{
		PricePerPerson: price,
		NumberOfPeople: params.People,
		TotalPrice:     price.Mul(params.People),
		TierIndex:      match.Index,
		TierUsed:       match.Tier.Label,
		PeriodUsed:     period.Label,
		Currency:       pkg.Currency,
	}, nil
}
