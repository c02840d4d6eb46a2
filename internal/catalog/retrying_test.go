package catalog

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/atlastravel/pricingservice/internal/domain"
	"github.com/atlastravel/pricingservice/internal/retry"
)

// flakyCatalog fails a fixed number of times before delegating.
type flakyCatalog struct {
	inner    Catalog
	failures int
	err      error
	calls    int
}

func (f *flakyCatalog) Get(ctx context.Context, id uuid.UUID, version int) (domain.Package, error) {
	f.calls++
	if f.calls <= f.failures {
		return domain.Package{}, f.err
	}
	return f.inner.Get(ctx, id, version)
}

func fastRetryConfig() retry.Config {
	return retry.Config{
		MaxAttempts:   3,
		InitialDelay:  time.Millisecond,
		MaxDelay:      5 * time.Millisecond,
		BackoffFactor: 2.0,
	}
}

func TestRetrying_RecoversFromTransientFailure(t *testing.T) {
	store := NewMemoryStore()
	id := uuid.New()
	store.Put(testPackage(id, 1))

	flaky := &flakyCatalog{inner: store, failures: 2, err: errors.New("dial tcp: connection refused")}
	retrying := NewRetrying(flaky, fastRetryConfig(), nil)

	pkg, err := retrying.Get(context.Background(), id, 1)
	if err != nil {
		t.Fatalf("expected recovery after retries, got %v", err)
	}
	if pkg.Version != 1 {
		t.Fatalf("expected version 1, got %d", pkg.Version)
	}
	if flaky.calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", flaky.calls)
	}
}

func TestRetrying_GivesUpAfterMaxAttempts(t *testing.T) {
	flaky := &flakyCatalog{inner: NewMemoryStore(), failures: 10, err: errors.New("i/o timeout")}
	retrying := NewRetrying(flaky, fastRetryConfig(), nil)

	_, err := retrying.Get(context.Background(), uuid.New(), 1)
	if err == nil {
		t.Fatal("expected failure after exhausting attempts")
	}
	if flaky.calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", flaky.calls)
	}
}

func TestRetrying_NotFoundIsNotRetried(t *testing.T) {
	counting := &countingCatalog{inner: NewMemoryStore()}
	retrying := NewRetrying(counting, fastRetryConfig(), nil)

	_, err := retrying.Get(context.Background(), uuid.New(), 1)
	if !IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
	if counting.calls != 1 {
		t.Fatalf("not-found must not be retried, got %d attempts", counting.calls)
	}
}

func TestRetrying_PermanentErrorIsNotRetried(t *testing.T) {
	flaky := &flakyCatalog{inner: NewMemoryStore(), failures: 10, err: errors.New("invalid tiers payload")}
	retrying := NewRetrying(flaky, fastRetryConfig(), nil)

	_, err := retrying.Get(context.Background(), uuid.New(), 1)
	if err == nil {
		t.Fatal("expected the permanent error to surface")
	}
	if flaky.calls != 1 {
		t.Fatalf("permanent errors must not be retried, got %d attempts", flaky.calls)
	}
}
