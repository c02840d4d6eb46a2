package sync

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/atlastravel/pricingservice/internal/domain"
	"github.com/atlastravel/pricingservice/internal/events"
	"github.com/atlastravel/pricingservice/internal/log"
	"github.com/atlastravel/pricingservice/internal/metrics"
)

// Manager owns the live quote-editing sessions, one controller each.
type Manager struct {
	mu        sync.Mutex
	sessions  map[uuid.UUID]*Controller
	pricer    Pricer
	publisher events.Publisher
	debounce  time.Duration
	idleTTL   time.Duration
}

// NewManager creates a session registry. Sessions untouched for idleTTL
// are discarded by Sweep.
func NewManager(pricer Pricer, publisher events.Publisher, debounce, idleTTL time.Duration) *Manager {
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if idleTTL <= 0 {
		idleTTL = 30 * time.Minute
	}
	return &Manager{
		sessions:  make(map[uuid.UUID]*Controller),
		pricer:    pricer,
		publisher: publisher,
		debounce:  debounce,
		idleTTL:   idleTTL,
	}
}

// Create starts a new editing session with the quote's current parameters.
func (m *Manager) Create(params domain.QuoteParams) *Controller {
	id := uuid.New()
	ctrl := NewController(id, m.pricer, m.publisher, params, WithDebounce(m.debounce))

	m.mu.Lock()
	m.sessions[id] = ctrl
	m.mu.Unlock()

	metrics.ActiveSessions.Inc()
	return ctrl
}

// Get returns the controller for a session id.
func (m *Manager) Get(id uuid.UUID) (*Controller, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ctrl, ok := m.sessions[id]
	return ctrl, ok
}

// End discards a session and its sync state.
func (m *Manager) End(id uuid.UUID) bool {
	m.mu.Lock()
	ctrl, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
	}
	m.mu.Unlock()

	if ok {
		ctrl.close()
		metrics.ActiveSessions.Dec()
	}
	return ok
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Sweep periodically discards idle sessions until ctx is cancelled.
func (m *Manager) Sweep(ctx context.Context) {
	interval := m.idleTTL / 2
	if interval < time.Minute {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.sweepOnce(ctx)
		}
	}
}

func (m *Manager) sweepOnce(ctx context.Context) {
	cutoff := time.Now().Add(-m.idleTTL)

	m.mu.Lock()
	var expired []*Controller
	for id, ctrl := range m.sessions {
		if ctrl.LastActivity().Before(cutoff) {
			delete(m.sessions, id)
			expired = append(expired, ctrl)
		}
	}
	m.mu.Unlock()

	for _, ctrl := range expired {
		ctrl.close()
		metrics.ActiveSessions.Dec()
		log.Info(ctx, "discarded idle quote session",
			zap.String("session_id", ctrl.ID().String()))
	}
}
