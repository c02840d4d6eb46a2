// Package catalog provides read access to Super Offer Package records.
// The pricing core never mutates packages; authoring happens elsewhere.
package catalog

import (
	"context"

	"github.com/google/uuid"

	"github.com/atlastravel/pricingservice/internal/domain"
)

// LatestVersion requests the highest published version of a package.
const LatestVersion = 0

// Catalog is the read-only lookup interface the pricing core depends on.
// Passing LatestVersion selects the most recent version. A missing package
// yields a domain Error with code PACKAGE_NOT_FOUND; any other failure is
// an infrastructure error the caller should treat as retryable.
type Catalog interface {
	Get(ctx context.Context, id uuid.UUID, version int) (domain.Package, error)
}

// IsNotFound reports whether err means the package does not exist, as
// opposed to the catalog being unreachable.
func IsNotFound(err error) bool {
	return domain.CodeOf(err) == domain.ErrCodePackageNotFound
}
