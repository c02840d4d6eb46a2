package pricing

import (
	"testing"
	"time"

	"github.com/atlastravel/pricingservice/internal/domain"
)

func datePtr(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func TestDeterminePeriod_CalendarMonth(t *testing.T) {
	periods := []domain.PeriodEntry{
		{Label: "June", Type: domain.PeriodCalendarMonth},
		{Label: "July", Type: domain.PeriodCalendarMonth},
	}

	arrival := time.Date(2025, time.July, 15, 0, 0, 0, 0, time.UTC)
	period, err := DeterminePeriod(arrival, periods)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if period.Label != "July" {
		t.Fatalf("expected July, got %q", period.Label)
	}
}

func TestDeterminePeriod_CalendarMonthYearIndependent(t *testing.T) {
	periods := []domain.PeriodEntry{
		{Label: "June", Type: domain.PeriodCalendarMonth},
	}

	for _, year := range []int{2024, 2025, 2030} {
		arrival := time.Date(year, time.June, 1, 0, 0, 0, 0, time.UTC)
		period, err := DeterminePeriod(arrival, periods)
		if err != nil {
			t.Fatalf("year %d: unexpected error: %v", year, err)
		}
		if period.Label != "June" {
			t.Fatalf("year %d: expected June, got %q", year, period.Label)
		}
	}
}

func TestDeterminePeriod_SpecialBeatsCalendarMonth(t *testing.T) {
	periods := []domain.PeriodEntry{
		{Label: "December", Type: domain.PeriodCalendarMonth},
		{
			Label:     "Christmas Special",
			Type:      domain.PeriodSpecialRange,
			StartDate: datePtr(2025, time.December, 20),
			EndDate:   datePtr(2026, time.January, 5),
		},
	}

	arrival := time.Date(2025, time.December, 24, 0, 0, 0, 0, time.UTC)
	period, err := DeterminePeriod(arrival, periods)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if period.Label != "Christmas Special" {
		t.Fatalf("expected special range to win over calendar month, got %q", period.Label)
	}

	// Outside the special the month entry takes over again.
	arrival = time.Date(2025, time.December, 10, 0, 0, 0, 0, time.UTC)
	period, err = DeterminePeriod(arrival, periods)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if period.Label != "December" {
		t.Fatalf("expected December, got %q", period.Label)
	}
}

func TestDeterminePeriod_SpecialRangeInclusiveBounds(t *testing.T) {
	periods := []domain.PeriodEntry{
		{
			Label:     "Easter",
			Type:      domain.PeriodSpecialRange,
			StartDate: datePtr(2025, time.April, 18),
			EndDate:   datePtr(2025, time.April, 21),
		},
	}

	for _, day := range []int{18, 21} {
		arrival := time.Date(2025, time.April, day, 23, 59, 0, 0, time.UTC)
		period, err := DeterminePeriod(arrival, periods)
		if err != nil {
			t.Fatalf("day %d should be inside the range: %v", day, err)
		}
		if period.Label != "Easter" {
			t.Fatalf("day %d: expected Easter, got %q", day, period.Label)
		}
	}

	arrival := time.Date(2025, time.April, 22, 0, 0, 0, 0, time.UTC)
	if _, err := DeterminePeriod(arrival, periods); err == nil {
		t.Fatal("day after the range end should not match")
	}
}

func TestDeterminePeriod_OverlappingSpecialsEarliestStartWins(t *testing.T) {
	periods := []domain.PeriodEntry{
		{
			Label:     "Late Special",
			Type:      domain.PeriodSpecialRange,
			StartDate: datePtr(2025, time.August, 10),
			EndDate:   datePtr(2025, time.August, 31),
		},
		{
			Label:     "Early Special",
			Type:      domain.PeriodSpecialRange,
			StartDate: datePtr(2025, time.August, 1),
			EndDate:   datePtr(2025, time.August, 20),
		},
	}

	arrival := time.Date(2025, time.August, 15, 0, 0, 0, 0, time.UTC)
	period, err := DeterminePeriod(arrival, periods)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if period.Label != "Early Special" {
		t.Fatalf("expected earliest start date to win, got %q", period.Label)
	}
}

func TestDeterminePeriod_NoMatch(t *testing.T) {
	periods := []domain.PeriodEntry{
		{Label: "June", Type: domain.PeriodCalendarMonth},
	}

	arrival := time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC)
	_, err := DeterminePeriod(arrival, periods)
	if err == nil {
		t.Fatal("expected no matching period")
	}
	if domain.CodeOf(err) != domain.ErrCodeNoMatchingPeriod {
		t.Fatalf("expected NO_MATCHING_PERIOD, got %s", domain.CodeOf(err))
	}
}

func TestLabelMatchesMonth(t *testing.T) {
	cases := []struct {
		label string
		month time.Month
		want  bool
	}{
		{"June", time.June, true},
		{"june", time.June, true},
		{"JUN", time.June, true},
		{"Jun", time.June, true},
		{"June", time.July, false},
		{"Christmas Special", time.December, false},
	}
	for _, c := range cases {
		if got := labelMatchesMonth(c.label, c.month); got != c.want {
			t.Fatalf("labelMatchesMonth(%q, %s) = %v, want %v", c.label, c.month, got, c.want)
		}
	}
}
