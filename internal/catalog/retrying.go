package catalog

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/atlastravel/pricingservice/internal/domain"
	"github.com/atlastravel/pricingservice/internal/retry"
)

// Retrying wraps a Catalog with bounded retries on transient store errors.
// Not-found results and calculation-domain errors go through untouched;
// only connection-level trouble is worth a second attempt.
type Retrying struct {
	inner  Catalog
	cfg    retry.Config
	logger *zap.Logger
}

// NewRetrying wraps inner with the given retry policy.
func NewRetrying(inner Catalog, cfg retry.Config, logger *zap.Logger) *Retrying {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Retrying{inner: inner, cfg: cfg, logger: logger}
}

// Get implements Catalog.
func (r *Retrying) Get(ctx context.Context, id uuid.UUID, version int) (domain.Package, error) {
	var (
		pkg       domain.Package
		permanent error
	)
	err := retry.Do(ctx, r.cfg, r.logger, func() error {
		p, err := r.inner.Get(ctx, id, version)
		if err == nil {
			pkg = p
			return nil
		}
		if IsNotFound(err) || !retry.IsRetryableError(err) {
			permanent = err
			return nil
		}
		return err
	})
	if permanent != nil {
		return domain.Package{}, permanent
	}
	if err != nil {
		return domain.Package{}, err
	}
	return pkg, nil
}
