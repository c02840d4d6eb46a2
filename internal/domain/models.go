package domain

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// onRequestSentinel is the wire representation of a price that has no fixed
// value and must be quoted manually.
const onRequestSentinel = "ON_REQUEST"

// Price is either a fixed amount in cents or the on-request sentinel.
// Consumers must branch on IsOnRequest before doing arithmetic.
type Price struct {
	cents     int64
	onRequest bool
}

// NewPrice returns a fixed price in cents.
func NewPrice(cents int64) Price {
	return Price{cents: cents}
}

// OnRequestPrice returns the on-request sentinel price.
func OnRequestPrice() Price {
	return Price{onRequest: true}
}

// IsOnRequest reports whether the price carries no fixed amount.
func (p Price) IsOnRequest() bool {
	return p.onRequest
}

// Cents returns the fixed amount. It is only meaningful when IsOnRequest
// is false; the second return mirrors that.
func (p Price) Cents() (int64, bool) {
	if p.onRequest {
		return 0, false
	}
	return p.cents, true
}

// Mul multiplies a fixed price by a count. The on-request sentinel is
// preserved so a total derived from an on-request unit price stays on-request.
func (p Price) Mul(n int) Price {
	if p.onRequest {
		return p
	}
	return Price{cents: p.cents * int64(n)}
}

func (p Price) String() string {
	if p.onRequest {
		return onRequestSentinel
	}
	return fmt.Sprintf("%d", p.cents)
}

// MarshalJSON encodes a fixed price as a number and an on-request price as
// the string sentinel "ON_REQUEST".
func (p Price) MarshalJSON() ([]byte, error) {
	if p.onRequest {
		return json.Marshal(onRequestSentinel)
	}
	return json.Marshal(p.cents)
}

// UnmarshalJSON accepts either a non-negative number of cents or the
// string sentinel "ON_REQUEST".
func (p *Price) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if s != onRequestSentinel {
			return fmt.Errorf("invalid price sentinel %q", s)
		}
		*p = OnRequestPrice()
		return nil
	}
	var cents int64
	if err := json.Unmarshal(data, &cents); err != nil {
		return fmt.Errorf("invalid price: %w", err)
	}
	if cents < 0 {
		return fmt.Errorf("price must be non-negative, got %d", cents)
	}
	*p = NewPrice(cents)
	return nil
}

// GroupSizeTier is one party-size bracket of the pricing matrix.
type GroupSizeTier struct {
	Label     string `json:"label"`
	MinPeople int    `json:"min_people"`
	MaxPeople int    `json:"max_people"`
}

// Contains reports whether the party size falls inside the bracket.
func (t GroupSizeTier) Contains(people int) bool {
	return people >= t.MinPeople && people <= t.MaxPeople
}

// PeriodType discriminates the two kinds of pricing periods.
type PeriodType string

const (
	// PeriodCalendarMonth recurs every year; the entry label names the month.
	PeriodCalendarMonth PeriodType = "calendar_month"
	// PeriodSpecialRange is an explicit date range, e.g. a holiday special.
	PeriodSpecialRange PeriodType = "special_range"
)

// PricePoint is the price recorded for one (tier, duration) pair within
// a period. (TierIndex, Nights) keys are unique within a period.
type PricePoint struct {
	TierIndex int   `json:"tier_index"`
	Nights    int   `json:"nights"`
	Price     Price `json:"price"`
}

// PeriodEntry is one labeled pricing window of a package's matrix.
type PeriodEntry struct {
	Label       string       `json:"label"`
	Type        PeriodType   `json:"type"`
	StartDate   *time.Time   `json:"start_date,omitempty"`
	EndDate     *time.Time   `json:"end_date,omitempty"`
	PricePoints []PricePoint `json:"price_points"`
}

// ContainsDate reports whether a special-range period covers the given
// arrival date. The range is inclusive on both ends and compares by
// calendar day. Calendar-month entries never match by date range.
func (e PeriodEntry) ContainsDate(arrival time.Time) bool {
	if e.Type != PeriodSpecialRange || e.StartDate == nil || e.EndDate == nil {
		return false
	}
	day := truncateToDay(arrival)
	return !day.Before(truncateToDay(*e.StartDate)) && !day.After(truncateToDay(*e.EndDate))
}

// PricePoint returns the price recorded for (tierIndex, nights), if any.
func (e PeriodEntry) PricePoint(tierIndex, nights int) (Price, bool) {
	for _, pp := range e.PricePoints {
		if pp.TierIndex == tierIndex && pp.Nights == nights {
			return pp.Price, true
		}
	}
	return Price{}, false
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Package is a Super Offer Package record. It is authored elsewhere and
// consumed read-only here; (ID, Version) identifies one immutable revision.
type Package struct {
	ID        uuid.UUID       `json:"id"`
	Version   int             `json:"version"`
	Name      string          `json:"name"`
	Currency  string          `json:"currency"`
	Tiers     []GroupSizeTier `json:"tiers"`
	Durations []int           `json:"durations"`
	Periods   []PeriodEntry   `json:"periods"`
	Active    bool            `json:"active"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// HasDuration reports whether nights exactly equals one of the declared
// durations. There is no interpolation between durations.
func (p Package) HasDuration(nights int) bool {
	for _, d := range p.Durations {
		if d == nights {
			return true
		}
	}
	return false
}

// QuoteParams are the three booking parameters a price is resolved from.
type QuoteParams struct {
	People      int       `json:"people"`
	Nights      int       `json:"nights"`
	ArrivalDate time.Time `json:"arrival_date"`
}

// PriceBreakdown is the ephemeral result of one calculation. It is never
// persisted; callers recompute it on demand.
type PriceBreakdown struct {
	PricePerPerson Price  `json:"price_per_person"`
	NumberOfPeople int    `json:"number_of_people"`
	TotalPrice     Price  `json:"total_price"`
	TierIndex      int    `json:"tier_index"`
	TierUsed       string `json:"tier_used"`
	PeriodUsed     string `json:"period_used"`
	Currency       string `json:"currency"`
}

// IsOnRequest reports whether the resolved price point was the on-request
// sentinel. This is a valid terminal outcome, not an error.
func (b PriceBreakdown) IsOnRequest() bool {
	return b.PricePerPerson.IsOnRequest()
}

// LinkedPackageInfo is the snapshot a quote keeps of its selected package.
// Later package edits do not change it except through explicit recalculation.
type LinkedPackageInfo struct {
	PackageID      uuid.UUID `json:"package_id"`
	PackageVersion int       `json:"package_version"`
	PackageName    string    `json:"package_name,omitempty"`
	TierIndex      int       `json:"tier_index"`
	TierLabel      string    `json:"tier_label"`
	PeriodUsed     string    `json:"period_used"`
	PricePerPerson Price     `json:"price_per_person"`
	TotalPrice     Price     `json:"total_price"`
}

// ValidationWarning flags a requested parameter outside the package's
// declared ranges. Warnings are advisory and never block a calculation.
type ValidationWarning struct {
	Field           string   `json:"field"`
	Message         string   `json:"message"`
	SuggestedValues []string `json:"suggested_values,omitempty"`
}
