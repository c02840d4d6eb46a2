package pricing

import (
	"testing"

	"github.com/atlastravel/pricingservice/internal/domain"
)

func testTiers() []domain.GroupSizeTier {
	return []domain.GroupSizeTier{
		{Label: "2-4", MinPeople: 2, MaxPeople: 4},
		{Label: "5-8", MinPeople: 5, MaxPeople: 8},
	}
}

func TestDetermineTier_ExactContainment(t *testing.T) {
	tiers := testTiers()

	match, err := DetermineTier(3, tiers)
	if err != nil {
		t.Fatalf("expected match for 3 people, got error: %v", err)
	}
	if match.Index != 0 || match.Tier.Label != "2-4" {
		t.Fatalf("expected tier 0 '2-4', got %d %q", match.Index, match.Tier.Label)
	}

	match, err = DetermineTier(8, tiers)
	if err != nil {
		t.Fatalf("expected match for 8 people, got error: %v", err)
	}
	if match.Index != 1 || match.Tier.Label != "5-8" {
		t.Fatalf("expected tier 1 '5-8', got %d %q", match.Index, match.Tier.Label)
	}
}

func TestDetermineTier_Boundaries(t *testing.T) {
	tiers := testTiers()

	for _, people := range []int{2, 4, 5, 8} {
		if _, err := DetermineTier(people, tiers); err != nil {
			t.Fatalf("boundary value %d should match, got error: %v", people, err)
		}
	}
}

func TestDetermineTier_NoMatch(t *testing.T) {
	tiers := testTiers()

	for _, people := range []int{1, 9} {
		_, err := DetermineTier(people, tiers)
		if err == nil {
			t.Fatalf("expected no match for %d people", people)
		}
		if domain.CodeOf(err) != domain.ErrCodeNoMatchingTier {
			t.Fatalf("expected NO_MATCHING_TIER, got %s", domain.CodeOf(err))
		}
	}
}

func TestDetermineTier_GapBetweenTiers(t *testing.T) {
	tiers := []domain.GroupSizeTier{
		{Label: "2-4", MinPeople: 2, MaxPeople: 4},
		{Label: "6-8", MinPeople: 6, MaxPeople: 8},
	}

	// 5 falls into an undeclared gap; there is no nearest-tier fallback.
	_, err := DetermineTier(5, tiers)
	if err == nil {
		t.Fatal("expected no match for a party size inside a tier gap")
	}
	if domain.CodeOf(err) != domain.ErrCodeNoMatchingTier {
		t.Fatalf("expected NO_MATCHING_TIER, got %s", domain.CodeOf(err))
	}
}

func TestDetermineTier_EmptyTiers(t *testing.T) {
	_, err := DetermineTier(2, nil)
	if err == nil {
		t.Fatal("expected error with no declared tiers")
	}
}
