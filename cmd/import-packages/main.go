// Command import-packages loads Super Offer Package records from a CSV
// export of the authoring system into the catalog database. One CSV row is
// one price point; rows sharing a package id are folded into one record.
//
// Columns: package_id, package_version, package_name, currency, tier_label,
// min_people, max_people, nights, period_label, period_type, start_date,
// end_date, price. Dates are YYYY-MM-DD; price is cents or ON_REQUEST.
package main

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	stdlog "log"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	catalogpg "github.com/atlastravel/pricingservice/internal/catalog/postgres"
	"github.com/atlastravel/pricingservice/internal/config"
	"github.com/atlastravel/pricingservice/internal/db"
	"github.com/atlastravel/pricingservice/internal/domain"
	"github.com/atlastravel/pricingservice/internal/log"
)

func main() {
	if len(os.Args) < 2 {
		stdlog.Fatal("usage: import-packages <csv-file-path>")
	}
	csvPath := os.Args[1]

	cfg, err := config.Load("config.yaml")
	if err != nil {
		stdlog.Fatalf("failed to load configuration: %v", err)
	}
	if err := log.Init(cfg.Log.Level); err != nil {
		stdlog.Fatalf("failed to initialize logger: %v", err)
	}

	ctx := context.Background()

	pool, err := db.NewPool(ctx, &db.Config{
		DSN:      cfg.Database.GetDSN(),
		MaxConns: cfg.Database.MaxConns,
	})
	if err != nil {
		stdlog.Fatalf("failed to create database pool: %v", err)
	}
	defer pool.Close()

	store, err := catalogpg.NewStore(pool.Pool)
	if err != nil {
		stdlog.Fatalf("failed to create catalog store: %v", err)
	}

	packages, err := readPackagesFromCSV(csvPath)
	if err != nil {
		stdlog.Fatalf("failed to read packages from CSV: %v", err)
	}
	fmt.Printf("Loaded %d packages from CSV\n", len(packages))

	for _, pkg := range packages {
		if err := store.Upsert(ctx, pkg); err != nil {
			stdlog.Fatalf("failed to import package %s: %v", pkg.Name, err)
		}
	}
	fmt.Println("Successfully imported packages to database")
}

// pointRow is one parsed CSV row.
type pointRow struct {
	packageID uuid.UUID
	version   int
	name      string
	currency  string
	tier      domain.GroupSizeTier
	nights    int
	period    domain.PeriodEntry
	price     domain.Price
}

func readPackagesFromCSV(path string) ([]domain.Package, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)

	// Skip header row
	if _, err := reader.Read(); err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	var rows []pointRow
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV record: %w", err)
		}
		line++

		row, err := parseRow(record)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		rows = append(rows, row)
	}

	return buildPackages(rows)
}

func parseRow(record []string) (pointRow, error) {
	if len(record) < 13 {
		return pointRow{}, fmt.Errorf("expected 13 columns, got %d", len(record))
	}

	packageID, err := uuid.Parse(strings.TrimSpace(record[0]))
	if err != nil {
		return pointRow{}, fmt.Errorf("invalid package_id: %w", err)
	}
	version, err := strconv.Atoi(strings.TrimSpace(record[1]))
	if err != nil || version < 1 {
		return pointRow{}, fmt.Errorf("invalid package_version %q", record[1])
	}
	minPeople, err := strconv.Atoi(strings.TrimSpace(record[5]))
	if err != nil {
		return pointRow{}, fmt.Errorf("invalid min_people %q", record[5])
	}
	maxPeople, err := strconv.Atoi(strings.TrimSpace(record[6]))
	if err != nil {
		return pointRow{}, fmt.Errorf("invalid max_people %q", record[6])
	}
	nights, err := strconv.Atoi(strings.TrimSpace(record[7]))
	if err != nil || nights < 1 {
		return pointRow{}, fmt.Errorf("invalid nights %q", record[7])
	}

	period := domain.PeriodEntry{
		Label: strings.TrimSpace(record[8]),
		Type:  domain.PeriodType(strings.TrimSpace(record[9])),
	}
	switch period.Type {
	case domain.PeriodCalendarMonth:
	case domain.PeriodSpecialRange:
		start, err := time.Parse("2006-01-02", strings.TrimSpace(record[10]))
		if err != nil {
			return pointRow{}, fmt.Errorf("invalid start_date %q", record[10])
		}
		end, err := time.Parse("2006-01-02", strings.TrimSpace(record[11]))
		if err != nil {
			return pointRow{}, fmt.Errorf("invalid end_date %q", record[11])
		}
		period.StartDate = &start
		period.EndDate = &end
	default:
		return pointRow{}, fmt.Errorf("invalid period_type %q", record[9])
	}

	price, err := parsePrice(strings.TrimSpace(record[12]))
	if err != nil {
		return pointRow{}, err
	}

	return pointRow{
		packageID: packageID,
		version:   version,
		name:      strings.TrimSpace(record[2]),
		currency:  strings.TrimSpace(record[3]),
		tier: domain.GroupSizeTier{
			Label:     strings.TrimSpace(record[4]),
			MinPeople: minPeople,
			MaxPeople: maxPeople,
		},
		nights: nights,
		period: period,
		price:  price,
	}, nil
}

func parsePrice(s string) (domain.Price, error) {
	if strings.EqualFold(s, "ON_REQUEST") {
		return domain.OnRequestPrice(), nil
	}
	cents, err := strconv.ParseInt(s, 10, 64)
	if err != nil || cents < 0 {
		return domain.Price{}, fmt.Errorf("invalid price %q", s)
	}
	return domain.NewPrice(cents), nil
}

// buildPackages folds rows into package records: tiers sorted ascending,
// durations deduplicated, periods in first-seen order with their price
// points keyed by the sorted tier index.
func buildPackages(rows []pointRow) ([]domain.Package, error) {
	type key struct {
		id      uuid.UUID
		version int
	}
	grouped := make(map[key][]pointRow)
	var order []key
	for _, row := range rows {
		k := key{row.packageID, row.version}
		if _, ok := grouped[k]; !ok {
			order = append(order, k)
		}
		grouped[k] = append(grouped[k], row)
	}

	var packages []domain.Package
	for _, k := range order {
		group := grouped[k]

		tiers := collectTiers(group)
		tierIndex := make(map[string]int, len(tiers))
		for i, t := range tiers {
			tierIndex[t.Label] = i
		}

		durationSet := make(map[int]bool)
		periodIndex := make(map[string]int)
		var periods []domain.PeriodEntry

		for _, row := range group {
			durationSet[row.nights] = true

			pi, ok := periodIndex[row.period.Label]
			if !ok {
				pi = len(periods)
				periodIndex[row.period.Label] = pi
				periods = append(periods, row.period)
			}

			ti, ok := tierIndex[row.tier.Label]
			if !ok {
				return nil, fmt.Errorf("package %s: unknown tier %q", k.id, row.tier.Label)
			}
			if _, exists := periods[pi].PricePoint(ti, row.nights); exists {
				return nil, fmt.Errorf("package %s: duplicate price point (%s, %d nights) in %q",
					k.id, row.tier.Label, row.nights, row.period.Label)
			}
			periods[pi].PricePoints = append(periods[pi].PricePoints, domain.PricePoint{
				TierIndex: ti,
				Nights:    row.nights,
				Price:     row.price,
			})
		}

		durations := make([]int, 0, len(durationSet))
		for d := range durationSet {
			durations = append(durations, d)
		}
		sort.Ints(durations)

		if err := checkTierOverlap(tiers); err != nil {
			return nil, fmt.Errorf("package %s: %w", k.id, err)
		}

		packages = append(packages, domain.Package{
			ID:        k.id,
			Version:   k.version,
			Name:      group[0].name,
			Currency:  group[0].currency,
			Tiers:     tiers,
			Durations: durations,
			Periods:   periods,
			Active:    true,
		})
	}
	return packages, nil
}

func collectTiers(rows []pointRow) []domain.GroupSizeTier {
	seen := make(map[string]bool)
	var tiers []domain.GroupSizeTier
	for _, row := range rows {
		if !seen[row.tier.Label] {
			seen[row.tier.Label] = true
			tiers = append(tiers, row.tier)
		}
	}
	sort.Slice(tiers, func(i, j int) bool {
		return tiers[i].MinPeople < tiers[j].MinPeople
	})
	return tiers
}

func checkTierOverlap(tiers []domain.GroupSizeTier) error {
	for i := 1; i < len(tiers); i++ {
		if tiers[i].MinPeople <= tiers[i-1].MaxPeople {
			return fmt.Errorf("tiers %q and %q overlap", tiers[i-1].Label, tiers[i].Label)
		}
	}
	return nil
}
