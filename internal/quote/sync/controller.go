// Package sync keeps a quote's displayed price consistent with the price
// freshly computed from its linked package as booking parameters change.
package sync

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/atlastravel/pricingservice/internal/domain"
	"github.com/atlastravel/pricingservice/internal/events"
	"github.com/atlastravel/pricingservice/internal/log"
	"github.com/atlastravel/pricingservice/internal/metrics"
	"github.com/atlastravel/pricingservice/internal/pricing"
)

// Status is the reconciliation state between the quote's displayed price
// and the package's computed price. It is a closed set; illegal
// combinations of loading/custom/error flags are unrepresentable.
type Status string

const (
	// StatusUnlinked means no package is selected; the sync machine is idle.
	StatusUnlinked Status = "unlinked"
	// StatusSynced means the displayed price equals the computed price.
	StatusSynced Status = "synced"
	// StatusOutOfSync means parameters changed and a recalculation is
	// debouncing; the displayed price is visibly stale.
	StatusOutOfSync Status = "out_of_sync"
	// StatusCalculating means a recalculation is in flight.
	StatusCalculating Status = "calculating"
	// StatusCustom means the price is manually set, either by the user or
	// because the package quoted ON_REQUEST; it is not auto-updated.
	StatusCustom Status = "custom"
	// StatusError means the last calculation failed; the previous good
	// breakdown is retained for display.
	StatusError Status = "error"
)

// ErrNoLinkedPackage is returned by commands that need a selected package.
var ErrNoLinkedPackage = errors.New("sync: no package linked")

// DefaultDebounce coalesces rapid successive parameter edits into one
// recalculation.
const DefaultDebounce = 300 * time.Millisecond

// Pricer produces a quote for a package revision. *pricing.Calculator
// implements it.
type Pricer interface {
	Quote(ctx context.Context, packageID uuid.UUID, version int, params domain.QuoteParams) (pricing.QuoteResult, error)
}

// Snapshot is the controller state exposed to subscribers. Breakdown is
// the last known-good calculation and survives an error transition, so
// the UI never shows a blank price without explanation.
type Snapshot struct {
	Status         Status                     `json:"status"`
	Breakdown      *domain.PriceBreakdown     `json:"breakdown,omitempty"`
	LastError      *domain.Error              `json:"last_error,omitempty"`
	Warnings       []domain.ValidationWarning `json:"warnings,omitempty"`
	Linked         *domain.LinkedPackageInfo  `json:"linked_package,omitempty"`
	ManualPrice    *domain.Price              `json:"manual_price,omitempty"`
	PriceOnRequest bool                       `json:"price_on_request"`
	Sequence       uint64                     `json:"sequence"`
}

// Observer receives a snapshot after every observable transition.
type Observer func(Snapshot)

// Controller owns the synchronization state machine for one quote-to-
// package linkage. One instance exists per quote-editing session; there
// is no shared mutable state between sessions.
//
// Overlapping recalculations are ordered purely by sequence number: a
// result is applied only if its sequence still equals the controller's
// current one, so an older, slower response can never overwrite state set
// by a newer edit. In-flight work is never aborted, just discarded.
type Controller struct {
	mu        sync.Mutex
	id        uuid.UUID
	pricer    Pricer
	publisher events.Publisher
	debounce  time.Duration
	baseCtx   context.Context

	params         domain.QuoteParams
	status         Status
	linked         *domain.LinkedPackageInfo
	breakdown      *domain.PriceBreakdown
	lastErr        *domain.Error
	warnings       []domain.ValidationWarning
	manualPrice    *domain.Price
	priceOnRequest bool

	seq   uint64
	timer *time.Timer

	observers    []Observer
	lastActivity time.Time
}

// Option configures a Controller.
type Option func(*Controller)

// WithDebounce overrides the recalculation debounce window.
func WithDebounce(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.debounce = d
		}
	}
}

// NewController creates the controller for one editing session.
func NewController(id uuid.UUID, pricer Pricer, publisher events.Publisher, params domain.QuoteParams, opts ...Option) *Controller {
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	c := &Controller{
		id:           id,
		pricer:       pricer,
		publisher:    publisher,
		debounce:     DefaultDebounce,
		baseCtx:      log.WithSessionID(context.Background(), id.String()),
		params:       params,
		status:       StatusUnlinked,
		lastActivity: time.Now(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ID returns the session id.
func (c *Controller) ID() uuid.UUID {
	return c.id
}

// Subscribe registers an observer for state transitions.
func (c *Controller) Subscribe(obs Observer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.observers = append(c.observers, obs)
}

// Snapshot returns the current state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Params returns the current booking parameters.
func (c *Controller) Params() domain.QuoteParams {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.params
}

// LastActivity reports when the session last received a command, for the
// idle sweep.
func (c *Controller) LastActivity() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastActivity
}

// SelectPackage links a package to the quote and runs the initial
// calculation. Success lands in synced, an on-request price point in
// custom with the on-request flag set, and a failure in error.
func (c *Controller) SelectPackage(ctx context.Context, packageID uuid.UUID, version int) Snapshot {
	c.mu.Lock()
	c.touchLocked()
	c.stopTimerLocked()
	seq := c.nextSeqLocked()
	c.linked = &domain.LinkedPackageInfo{PackageID: packageID, PackageVersion: version}
	c.manualPrice = nil
	c.priceOnRequest = false
	c.setStatusLocked(StatusCalculating)
	params := c.params
	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.notify(snap)

	res, err := c.pricer.Quote(ctx, packageID, version, params)
	c.apply(seq, res, err)
	return c.Snapshot()
}

// ParametersChanged records new booking parameters. While the quote is
// following the package price this immediately flags the displayed price
// as stale and schedules a debounced recalculation; a manual override
// (custom) keeps its price until the user resets to calculated.
func (c *Controller) ParametersChanged(params domain.QuoteParams) Snapshot {
	c.mu.Lock()
	c.touchLocked()
	c.params = params

	if c.linked == nil {
		snap := c.snapshotLocked()
		c.mu.Unlock()
		return snap
	}

	// Every parameter change advances the sequence, which also voids any
	// in-flight calculation started for the previous parameters.
	seq := c.nextSeqLocked()
	c.stopTimerLocked()

	if c.status == StatusCustom {
		snap := c.snapshotLocked()
		c.mu.Unlock()
		return snap
	}

	if c.status == StatusSynced {
		c.setStatusLocked(StatusOutOfSync)
	}
	c.timer = time.AfterFunc(c.debounce, func() {
		c.runScheduled(seq)
	})
	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.notify(snap)
	return snap
}

// SetManualPrice overrides the price by hand. The linkage metadata is
// retained for traceability, but parameter changes no longer auto-update
// the price until ResetToCalculated.
func (c *Controller) SetManualPrice(cents int64) Snapshot {
	c.mu.Lock()
	c.touchLocked()
	c.stopTimerLocked()
	c.nextSeqLocked()
	price := domain.NewPrice(cents)
	c.manualPrice = &price
	c.priceOnRequest = false
	c.lastErr = nil
	c.setStatusLocked(StatusCustom)
	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.notify(snap)
	c.publish(snap)
	return snap
}

// ResetToCalculated clears a manual override and re-runs the calculation
// with the current parameters.
func (c *Controller) ResetToCalculated(ctx context.Context) (Snapshot, error) {
	return c.recalculate(ctx, true)
}

// Retry re-runs the calculation after an error with the same transition
// rules as the initial link.
func (c *Controller) Retry(ctx context.Context) (Snapshot, error) {
	return c.recalculate(ctx, false)
}

func (c *Controller) recalculate(ctx context.Context, clearManual bool) (Snapshot, error) {
	c.mu.Lock()
	c.touchLocked()
	if c.linked == nil {
		c.mu.Unlock()
		return Snapshot{}, ErrNoLinkedPackage
	}
	c.stopTimerLocked()
	seq := c.nextSeqLocked()
	if clearManual {
		c.manualPrice = nil
	}
	c.setStatusLocked(StatusCalculating)
	packageID := c.linked.PackageID
	version := c.linked.PackageVersion
	params := c.params
	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.notify(snap)

	res, err := c.pricer.Quote(ctx, packageID, version, params)
	c.apply(seq, res, err)
	return c.Snapshot(), nil
}

// Unlink clears the linkage and resets the machine. The last price value
// stays on the quote as an ordinary manual price, outside this
// controller's concern.
func (c *Controller) Unlink() Snapshot {
	c.mu.Lock()
	c.touchLocked()
	c.stopTimerLocked()
	c.nextSeqLocked()
	c.linked = nil
	c.breakdown = nil
	c.lastErr = nil
	c.warnings = nil
	c.manualPrice = nil
	c.priceOnRequest = false
	c.setStatusLocked(StatusUnlinked)
	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.notify(snap)
	c.publish(snap)
	return snap
}

// runScheduled fires after the debounce window. The captured sequence is
// checked twice: before starting, in case a newer edit superseded the
// timer, and again at apply time.
func (c *Controller) runScheduled(seq uint64) {
	c.mu.Lock()
	if seq != c.seq || c.linked == nil {
		c.mu.Unlock()
		return
	}
	c.setStatusLocked(StatusCalculating)
	packageID := c.linked.PackageID
	version := c.linked.PackageVersion
	params := c.params
	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.notify(snap)

	res, err := c.pricer.Quote(c.baseCtx, packageID, version, params)
	c.apply(seq, res, err)
}

// apply folds one calculation result into the state machine. Results
// whose sequence no longer matches are discarded silently; their work is
// simply wasted, never wrong.
func (c *Controller) apply(seq uint64, res pricing.QuoteResult, err error) {
	c.mu.Lock()
	if seq != c.seq {
		c.mu.Unlock()
		metrics.StaleResultsDiscarded.Inc()
		log.Debug(c.baseCtx, "discarded stale calculation result",
			zap.Uint64("result_sequence", seq))
		return
	}

	c.warnings = res.Warnings
	if c.linked != nil && res.Package.Version > 0 {
		// Pin the revision actually priced so later package edits do not
		// retroactively change the quote.
		c.linked.PackageVersion = res.Package.Version
		c.linked.PackageName = res.Package.Name
	}

	switch {
	case err != nil:
		de, ok := domain.AsError(err)
		if !ok {
			de = domain.NewLookupFailureError(err)
		}
		c.lastErr = de
		// The prior good breakdown is retained for display.
		c.setStatusLocked(StatusError)

	case res.Breakdown.IsOnRequest():
		bd := res.Breakdown
		c.breakdown = &bd
		c.lastErr = nil
		c.manualPrice = nil
		c.priceOnRequest = true
		c.updateLinkedLocked(bd)
		c.setStatusLocked(StatusCustom)

	default:
		bd := res.Breakdown
		c.breakdown = &bd
		c.lastErr = nil
		c.priceOnRequest = false
		c.updateLinkedLocked(bd)
		c.setStatusLocked(StatusSynced)
	}

	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.notify(snap)
	c.publish(snap)
}

func (c *Controller) updateLinkedLocked(bd domain.PriceBreakdown) {
	if c.linked == nil {
		return
	}
	c.linked.TierIndex = bd.TierIndex
	c.linked.TierLabel = bd.TierUsed
	c.linked.PeriodUsed = bd.PeriodUsed
	c.linked.PricePerPerson = bd.PricePerPerson
	c.linked.TotalPrice = bd.TotalPrice
}

func (c *Controller) setStatusLocked(status Status) {
	if c.status == status {
		return
	}
	c.status = status
	metrics.RecordTransition(string(status))
}

func (c *Controller) snapshotLocked() Snapshot {
	snap := Snapshot{
		Status:         c.status,
		LastError:      c.lastErr,
		PriceOnRequest: c.priceOnRequest,
		Sequence:       c.seq,
	}
	if c.breakdown != nil {
		bd := *c.breakdown
		snap.Breakdown = &bd
	}
	if c.linked != nil {
		linked := *c.linked
		snap.Linked = &linked
	}
	if c.manualPrice != nil {
		price := *c.manualPrice
		snap.ManualPrice = &price
	}
	if len(c.warnings) > 0 {
		snap.Warnings = append([]domain.ValidationWarning(nil), c.warnings...)
	}
	return snap
}

func (c *Controller) nextSeqLocked() uint64 {
	c.seq++
	return c.seq
}

func (c *Controller) stopTimerLocked() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

func (c *Controller) touchLocked() {
	c.lastActivity = time.Now()
}

// close stops pending work when the session ends.
func (c *Controller) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopTimerLocked()
	c.nextSeqLocked()
}

func (c *Controller) notify(snap Snapshot) {
	c.mu.Lock()
	observers := append([]Observer(nil), c.observers...)
	c.mu.Unlock()
	for _, obs := range observers {
		obs(snap)
	}
}

func (c *Controller) publish(snap Snapshot) {
	event := events.SyncEvent{
		SessionID:  c.id.String(),
		Status:     string(snap.Status),
		Sequence:   snap.Sequence,
		OccurredAt: time.Now().UTC(),
	}
	if snap.Linked != nil {
		event.PackageID = snap.Linked.PackageID.String()
	}
	if snap.LastError != nil {
		event.ReasonCode = snap.LastError.Code
	}
	switch {
	case snap.ManualPrice != nil:
		event.TotalPrice = snap.ManualPrice.String()
	case snap.Breakdown != nil:
		event.TotalPrice = snap.Breakdown.TotalPrice.String()
	}

	// Publishing is observability, not part of the transition; it must not
	// hold up the editing session.
	go func() {
		if err := c.publisher.PublishSyncEvent(c.baseCtx, event); err != nil {
			log.Warn(c.baseCtx, "failed to publish sync event",
				zap.Error(err),
				zap.String("status", event.Status))
		}
	}()
}
