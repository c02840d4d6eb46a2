package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Error is a calculation or lookup failure with a stable reason code.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Reason codes for calculation and lookup failures
const (
	ErrCodeNoMatchingTier       = "NO_MATCHING_TIER"
	ErrCodeNoMatchingDuration   = "NO_MATCHING_DURATION"
	ErrCodeNoMatchingPeriod     = "NO_MATCHING_PERIOD"
	ErrCodeNoMatchingPricePoint = "NO_MATCHING_PRICE_POINT"
	ErrCodePackageNotFound      = "PACKAGE_NOT_FOUND"
	ErrCodeLookupFailure        = "LOOKUP_FAILURE"
)

// NewNoMatchingTierError signals a party size below, above, or in a gap
// between the declared tiers.
func NewNoMatchingTierError(people int) *Error {
	return &Error{
		Code:    ErrCodeNoMatchingTier,
		Message: "no group-size tier covers the party size",
		Details: fmt.Sprintf("people: %d", people),
	}
}

// NewNoMatchingDurationError signals a stay length the package does not
// declare. Durations match exactly; there is no interpolation.
func NewNoMatchingDurationError(nights int, declared []int) *Error {
	return &Error{
		Code:    ErrCodeNoMatchingDuration,
		Message: "requested duration is not offered by the package",
		Details: fmt.Sprintf("nights: %d, declared: %v", nights, declared),
	}
}

// NewNoMatchingPeriodError signals an arrival date no special range or
// calendar month covers.
func NewNoMatchingPeriodError(arrival time.Time) *Error {
	return &Error{
		Code:    ErrCodeNoMatchingPeriod,
		Message: "no pricing period covers the arrival date",
		Details: fmt.Sprintf("arrival: %s", arrival.Format("2006-01-02")),
	}
}

// NewNoMatchingPricePointError signals a hole in the pricing matrix, a
// data-quality problem owned by authoring rather than a calculation bug.
func NewNoMatchingPricePointError(period string, tierIndex, nights int) *Error {
	return &Error{
		Code:    ErrCodeNoMatchingPricePoint,
		Message: "pricing matrix has no entry for the resolved tier and duration",
		Details: fmt.Sprintf("period: %s, tier_index: %d, nights: %d", period, tierIndex, nights),
	}
}

// NewPackageNotFoundError signals a package id or version unknown to the catalog.
func NewPackageNotFoundError(id uuid.UUID, version int) *Error {
	return &Error{
		Code:    ErrCodePackageNotFound,
		Message: "package not found",
		Details: fmt.Sprintf("id: %s, version: %d", id, version),
	}
}

// NewLookupFailureError wraps a catalog error (store unreachable, timeout).
func NewLookupFailureError(err error) *Error {
	return &Error{
		Code:    ErrCodeLookupFailure,
		Message: "package lookup failed",
		Details: err.Error(),
	}
}

// AsError extracts a domain Error from an error chain.
func AsError(err error) (*Error, bool) {
	var de *Error
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}

// CodeOf returns the reason code of err, or LOOKUP_FAILURE for errors
// that did not originate in this package.
func CodeOf(err error) string {
	if de, ok := AsError(err); ok {
		return de.Code
	}
	return ErrCodeLookupFailure
}

// IsRetryable reports whether the failure may clear on its own. Matrix
// and range mismatches only clear when parameters or package data change.
func IsRetryable(err error) bool {
	switch CodeOf(err) {
	case ErrCodeLookupFailure, ErrCodePackageNotFound:
		return true
	default:
		return false
	}
}
