package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/atlastravel/pricingservice/internal/catalog"
	"github.com/atlastravel/pricingservice/internal/domain"
)

// Store is the PostgreSQL-backed package catalog. Tiers, durations and the
// pricing matrix are stored as JSONB; a package revision is one row keyed
// by (id, version).
type Store struct {
	db *pgxpool.Pool
}

// NewStore creates a catalog store over an existing pool.
func NewStore(pool *pgxpool.Pool) (*Store, error) {
	if pool == nil {
		return nil, fmt.Errorf("database pool cannot be nil")
	}
	return &Store{db: pool}, nil
}

const getByVersionQuery = `
	SELECT id, version, name, currency, tiers, durations, periods, active, created_at, updated_at
	FROM packages
	WHERE id = $1 AND version = $2`

const getLatestQuery = `
	SELECT id, version, name, currency, tiers, durations, periods, active, created_at, updated_at
	FROM packages
	WHERE id = $1
	ORDER BY version DESC
	LIMIT 1`

// Get implements catalog.Catalog.
func (s *Store) Get(ctx context.Context, id uuid.UUID, version int) (domain.Package, error) {
	var row pgx.Row
	if version == catalog.LatestVersion {
		row = s.db.QueryRow(ctx, getLatestQuery, id)
	} else {
		row = s.db.QueryRow(ctx, getByVersionQuery, id, version)
	}

	pkg, err := scanPackage(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Package{}, domain.NewPackageNotFoundError(id, version)
		}
		return domain.Package{}, fmt.Errorf("failed to get package: %w", err)
	}
	return pkg, nil
}

const upsertQuery = `
	INSERT INTO packages (id, version, name, currency, tiers, durations, periods, active, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now(), now())
	ON CONFLICT (id, version) DO UPDATE SET
		name = EXCLUDED.name,
		currency = EXCLUDED.currency,
		tiers = EXCLUDED.tiers,
		durations = EXCLUDED.durations,
		periods = EXCLUDED.periods,
		active = EXCLUDED.active,
		updated_at = now()`

// Upsert creates or replaces one package revision. It exists for the
// authoring-side import command; the pricing core only reads.
func (s *Store) Upsert(ctx context.Context, pkg domain.Package) error {
	tiers, err := json.Marshal(pkg.Tiers)
	if err != nil {
		return fmt.Errorf("failed to marshal tiers: %w", err)
	}
	durations, err := json.Marshal(pkg.Durations)
	if err != nil {
		return fmt.Errorf("failed to marshal durations: %w", err)
	}
	periods, err := json.Marshal(pkg.Periods)
	if err != nil {
		return fmt.Errorf("failed to marshal periods: %w", err)
	}

	_, err = s.db.Exec(ctx, upsertQuery,
		pkg.ID, pkg.Version, pkg.Name, pkg.Currency, tiers, durations, periods, pkg.Active)
	if err != nil {
		return fmt.Errorf("failed to upsert package: %w", err)
	}
	return nil
}

const listQuery = `
	SELECT DISTINCT ON (id) id, version, name, currency, tiers, durations, periods, active, created_at, updated_at
	FROM packages
	ORDER BY id, version DESC`

// List returns the latest revision of every package.
func (s *Store) List(ctx context.Context) ([]domain.Package, error) {
	rows, err := s.db.Query(ctx, listQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to list packages: %w", err)
	}
	defer rows.Close()

	var packages []domain.Package
	for rows.Next() {
		pkg, err := scanPackage(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan package: %w", err)
		}
		packages = append(packages, pkg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate packages: %w", err)
	}
	return packages, nil
}

func scanPackage(row pgx.Row) (domain.Package, error) {
	var (
		pkg           domain.Package
		tiersJSON     []byte
		durationsJSON []byte
		periodsJSON   []byte
	)
	err := row.Scan(&pkg.ID, &pkg.Version, &pkg.Name, &pkg.Currency,
		&tiersJSON, &durationsJSON, &periodsJSON, &pkg.Active, &pkg.CreatedAt, &pkg.UpdatedAt)
	if err != nil {
		return domain.Package{}, err
	}

	if err := json.Unmarshal(tiersJSON, &pkg.Tiers); err != nil {
		return domain.Package{}, fmt.Errorf("invalid tiers payload: %w", err)
	}
	if err := json.Unmarshal(durationsJSON, &pkg.Durations); err != nil {
		return domain.Package{}, fmt.Errorf("invalid durations payload: %w", err)
	}
	if err := json.Unmarshal(periodsJSON, &pkg.Periods); err != nil {
		return domain.Package{}, fmt.Errorf("invalid periods payload: %w", err)
	}
	return pkg, nil
}
