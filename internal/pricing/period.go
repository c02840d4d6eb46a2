package pricing

import (
	"strings"
	"time"

	"github.com/atlastravel/pricingservice/internal/domain"
)

// DeterminePeriod resolves an arrival date to a pricing period.
//
// Special-range periods take precedence over calendar months: of all
// special ranges containing the arrival date, the one with the earliest
// start date wins. Overlapping specials are an authoring anomaly; the
// earliest-start tie-break is a documented policy, not an invariant of
// the data model. With no special match the calendar-month entry whose
// label names the arrival month is used, year-independently.
func DeterminePeriod(arrival time.Time, periods []domain.PeriodEntry) (domain.PeriodEntry, error) {
	var (
		best  domain.PeriodEntry
		found bool
	)
	for _, entry := range periods {
		if !entry.ContainsDate(arrival) {
			continue
		}
		if !found || entry.StartDate.Before(*best.StartDate) {
			best = entry
			found = true
		}
	}
	if found {
		return best, nil
	}

	month := arrival.Month()
	for _, entry := range periods {
		if entry.Type == domain.PeriodCalendarMonth && labelMatchesMonth(entry.Label, month) {
			return entry, nil
		}
	}

	return domain.PeriodEntry{}, domain.NewNoMatchingPeriodError(arrival)
}

// labelMatchesMonth accepts the English month name ("June") or its
// three-letter form ("Jun"), case-insensitively.
func labelMatchesMonth(label string, month time.Month) bool {
	name := month.String()
	return strings.EqualFold(label, name) || strings.EqualFold(label, name[:3])
}
