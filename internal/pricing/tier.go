package pricing

import (
	"github.com/atlastravel/pricingservice/internal/domain"
)

// TierMatch is the resolved group-size tier with its position in the
// package's tier list, which keys the pricing matrix.
type TierMatch struct {
	Index int
	Tier  domain.GroupSizeTier
}

// DetermineTier resolves a party size to the unique tier containing it.
// Tiers are required to be sorted and pairwise non-overlapping, so at most
// one can match. A party size below the lowest minimum, above the highest
// maximum, or inside an undeclared gap fails with NO_MATCHING_TIER.
// There is no rounding and no nearest-tier fallback.
func DetermineTier(people int, tiers []domain.GroupSizeTier) (TierMatch, error) {
	for i, tier := range tiers {
		if tier.Contains(people) {
			return TierMatch{Index: i, Tier: tier}, nil
		}
	}
	return TierMatch{}, domain.NewNoMatchingTierError(people)
}
