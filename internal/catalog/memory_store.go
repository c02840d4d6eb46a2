package catalog

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/atlastravel/pricingservice/internal/domain"
)

// MemoryStore is an in-memory Catalog used by tests and local development.
type MemoryStore struct {
	mu       sync.RWMutex
	packages map[uuid.UUID]map[int]domain.Package
	latest   map[uuid.UUID]int
}

// NewMemoryStore creates an empty in-memory catalog.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		packages: make(map[uuid.UUID]map[int]domain.Package),
		latest:   make(map[uuid.UUID]int),
	}
}

// Put stores a package revision, replacing any existing one with the same
// (id, version).
func (s *MemoryStore) Put(pkg domain.Package) {
	s.mu.Lock()
	defer s.mu.Unlock()
	versions, ok := s.packages[pkg.ID]
	if !ok {
		versions = make(map[int]domain.Package)
		s.packages[pkg.ID] = versions
	}
	versions[pkg.Version] = pkg
	if pkg.Version > s.latest[pkg.ID] {
		s.latest[pkg.ID] = pkg.Version
	}
}

// Get implements Catalog.
func (s *MemoryStore) Get(ctx context.Context, id uuid.UUID, version int) (domain.Package, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	versions, ok := s.packages[id]
	if !ok {
		return domain.Package{}, domain.NewPackageNotFoundError(id, version)
	}
	if version == LatestVersion {
		version = s.latest[id]
	}
	pkg, ok := versions[version]
	if !ok {
		return domain.Package{}, domain.NewPackageNotFoundError(id, version)
	}
	return pkg, nil
}
