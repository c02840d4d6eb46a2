package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/atlastravel/pricingservice/internal/cache"
	"github.com/atlastravel/pricingservice/internal/domain"
	"github.com/atlastravel/pricingservice/internal/log"
	"github.com/atlastravel/pricingservice/internal/metrics"
)

// Cached is a read-through cache in front of another Catalog. Hits are
// served from Redis under "pkg:{id}:{version}"; not-found results are
// remembered briefly so a mistyped id does not hammer the store.
type Cached struct {
	inner       Catalog
	cache       *cache.Cache // nil disables caching entirely
	ttl         time.Duration
	negativeTTL time.Duration
}

// cachedPackage is the cache payload. NotFound marks a negative entry.
type cachedPackage struct {
	Package  *domain.Package `json:"package,omitempty"`
	NotFound bool            `json:"not_found,omitempty"`
}

// NewCached wraps inner with a Redis read-through cache. A nil cache
// yields a pass-through catalog, keeping the service usable when Redis
// is down.
func NewCached(inner Catalog, c *cache.Cache, ttl, negativeTTL time.Duration) *Cached {
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	if negativeTTL <= 0 {
		negativeTTL = 10 * time.Second
	}
	return &Cached{inner: inner, cache: c, ttl: ttl, negativeTTL: negativeTTL}
}

// Get implements Catalog.
func (c *Cached) Get(ctx context.Context, id uuid.UUID, version int) (domain.Package, error) {
	if c.cache == nil {
		return c.inner.Get(ctx, id, version)
	}

	key := packageKey(id, version)
	start := time.Now()

	var entry cachedPackage
	err := c.cache.Get(ctx, key, &entry)
	switch {
	case err == nil:
		metrics.CatalogCacheHits.WithLabelValues("hit").Inc()
		metrics.RecordCatalogLookup("cache", time.Since(start))
		if entry.NotFound || entry.Package == nil {
			return domain.Package{}, domain.NewPackageNotFoundError(id, version)
		}
		return *entry.Package, nil
	case errors.Is(err, cache.ErrMiss):
		metrics.CatalogCacheHits.WithLabelValues("miss").Inc()
	default:
		// Redis trouble is not a lookup failure; fall through to the store.
		metrics.CatalogCacheHits.WithLabelValues("error").Inc()
		log.Warn(ctx, "catalog cache read failed, falling back to store")
	}

	pkg, err := c.inner.Get(ctx, id, version)
	if err != nil {
		if IsNotFound(err) {
			c.store(ctx, key, cachedPackage{NotFound: true}, c.negativeTTL)
		}
		return domain.Package{}, err
	}

	c.store(ctx, key, cachedPackage{Package: &pkg}, c.ttl)
	// A latest-version lookup is also a hit for the resolved version.
	if version == LatestVersion && pkg.Version != LatestVersion {
		c.store(ctx, packageKey(id, pkg.Version), cachedPackage{Package: &pkg}, c.ttl)
	}
	return pkg, nil
}

func (c *Cached) store(ctx context.Context, key string, entry cachedPackage, ttl time.Duration) {
	if err := c.cache.Set(ctx, key, entry, ttl); err != nil {
		log.Warn(ctx, "catalog cache write failed")
	}
}

func packageKey(id uuid.UUID, version int) string {
	return fmt.Sprintf("pkg:%s:%d", id, version)
}
