package pricing

import (
	"fmt"
	"strconv"
	"time"

	"github.com/atlastravel/pricingservice/internal/domain"
)

// Validate checks the requested parameters against the package's declared
// ranges and returns advisory warnings. Warnings never block a calculation
// attempt; calculator failures are the authoritative outcome.
func Validate(pkg domain.Package, params domain.QuoteParams) []domain.ValidationWarning {
	var warnings []domain.ValidationWarning

	if _, err := DetermineTier(params.People, pkg.Tiers); err != nil {
		w := domain.ValidationWarning{
			Field:   "people",
			Message: fmt.Sprintf("party size %d is outside every declared group-size tier", params.People),
		}
		for _, tier := range pkg.Tiers {
			w.SuggestedValues = append(w.SuggestedValues, tier.Label)
		}
		warnings = append(warnings, w)
	}

	if !pkg.HasDuration(params.Nights) {
		w := domain.ValidationWarning{
			Field:   "nights",
			Message: fmt.Sprintf("the package does not offer a %d-night stay", params.Nights),
		}
		if nearest, ok := nearestDuration(params.Nights, pkg.Durations); ok {
			w.SuggestedValues = []string{strconv.Itoa(nearest)}
		}
		warnings = append(warnings, w)
	}

	if _, err := DeterminePeriod(params.ArrivalDate, pkg.Periods); err != nil {
		w := domain.ValidationWarning{
			Field:   "arrival_date",
			Message: fmt.Sprintf("no pricing period covers arrival on %s", params.ArrivalDate.Format("2006-01-02")),
		}
		if label, ok := nearestPeriodLabel(params.ArrivalDate, pkg.Periods); ok {
			w.SuggestedValues = []string{label}
		}
		warnings = append(warnings, w)
	}

	return warnings
}

// nearestDuration picks the declared duration with the smallest distance
// to the requested one; ties go to the shorter stay.
func nearestDuration(nights int, declared []int) (int, bool) {
	if len(declared) == 0 {
		return 0, false
	}
	best := declared[0]
	for _, d := range declared[1:] {
		if abs(d-nights) < abs(best-nights) || (abs(d-nights) == abs(best-nights) && d < best) {
			best = d
		}
	}
	return best, true
}

// nearestPeriodLabel picks the period closest to the arrival date: for a
// special range the day distance to the range, for a calendar month the
// day distance to that month in the arrival year.
func nearestPeriodLabel(arrival time.Time, periods []domain.PeriodEntry) (string, bool) {
	bestDays := -1
	bestLabel := ""
	for _, entry := range periods {
		days, ok := daysTo(arrival, entry)
		if !ok {
			continue
		}
		if bestDays < 0 || days < bestDays {
			bestDays = days
			bestLabel = entry.Label
		}
	}
	return bestLabel, bestDays >= 0
}

func daysTo(arrival time.Time, entry domain.PeriodEntry) (int, bool) {
	var start, end time.Time
	switch entry.Type {
	case domain.PeriodSpecialRange:
		if entry.StartDate == nil || entry.EndDate == nil {
			return 0, false
		}
		start, end = *entry.StartDate, *entry.EndDate
	case domain.PeriodCalendarMonth:
		month, ok := monthOfLabel(entry.Label)
		if !ok {
			return 0, false
		}
		start = time.Date(arrival.Year(), month, 1, 0, 0, 0, 0, time.UTC)
		end = start.AddDate(0, 1, -1)
	default:
		return 0, false
	}

	if !arrival.Before(start) && !arrival.After(end) {
		return 0, true
	}
	if arrival.Before(start) {
		return int(start.Sub(arrival).Hours() / 24), true
	}
	return int(arrival.Sub(end).Hours() / 24), true
}

func monthOfLabel(label string) (time.Month, bool) {
	for m := time.January; m <= time.December; m++ {
		if labelMatchesMonth(label, m) {
			return m, true
		}
	}
	return 0, false
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
