package main

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/andresuchdata/backroom/internal/cache"
	"github.com/andresuchdata/backroom/internal/config"
	"github.com/andresuchdata/backroom/internal/domain"
	"github.com/andresuchdata/backroom/internal/repository"
	"github.com/andresuchdata/backroom/pkg/logger"
)

const (
	itemsFile = "item_dim.csv"
	stockFile = "inv.csv"
	salesFile = "sales.csv"
)

func runSeed(c *cli.Context) error {
	db, err := dbFrom(c)
	if err != nil {
		return err
	}
	if err := db.Migrate(c.Context); err != nil {
		return err
	}

	data, err := readCatalog(c.String("data-dir"))
	if err != nil {
		return err
	}
	if err := repository.NewIngestRepository(db).Load(c.Context, data); err != nil {
		return fmt.Errorf("failed to load catalog: %w", err)
	}

	logger.Log.Info().
		Int("items", len(data.Items)).
		Int("stock", len(data.Stock)).
		Int("sales", len(data.Sales)).
		Msg("catalog seeded")

	forecasts, err := cache.NewForecastCache(config.Load().Cache)
	if err != nil {
		logger.Log.Warn().Err(err).Msg("forecast cache unavailable, cached forecasts were not invalidated")
		return nil
	}
	return invalidateForecasts(c.Context, forecasts, data)
}

// invalidateForecasts drops cached forecasts of every item whose sales history was replaced.
func invalidateForecasts(ctx context.Context, forecasts cache.ForecastCache, data repository.CatalogData) error {
	seen := make(map[string]bool)
	removed := 0
	for _, sale := range data.Sales {
		if seen[sale.ItemID] {
			continue
		}
		seen[sale.ItemID] = true

		n, err := forecasts.InvalidateItem(ctx, sale.ItemID)
		if err != nil {
			return fmt.Errorf("invalidate forecasts of %s: %w", sale.ItemID, err)
		}
		removed += n
	}
	logger.Log.Info().Int("items", len(seen)).Int("forecasts", removed).Msg("cached forecasts invalidated")
	return nil
}

// readCatalog parses the three catalog CSV files in dir. Columns are matched by header name.
func readCatalog(dir string) (repository.CatalogData, error) {
	var data repository.CatalogData

	err := readCSV(filepath.Join(dir, itemsFile), []string{"item_id", "description", "price", "lead_time", "holding_cost"},
		func(row csvRow) error {
			price, err := row.number("price")
			if err != nil {
				return err
			}
			lead, err := row.whole("lead_time")
			if err != nil {
				return err
			}
			holding, err := row.number("holding_cost")
			if err != nil {
				return err
			}
			data.Items = append(data.Items, domain.ItemProfile{
				ItemID:          row.str("item_id"),
				Description:     row.str("description"),
				UnitPrice:       price,
				LeadTimeDays:    lead,
				HoldingCostRate: holding,
			})
			return nil
		})
	if err != nil {
		return data, err
	}

	err = readCSV(filepath.Join(dir, stockFile), []string{"item_id", "unit"}, func(row csvRow) error {
		units, err := row.whole("unit")
		if err != nil {
			return err
		}
		data.Stock = append(data.Stock, domain.InventorySnapshot{ItemID: row.str("item_id"), OnHandUnits: units})
		return nil
	})
	if err != nil {
		return data, err
	}

	err = readCSV(filepath.Join(dir, salesFile), []string{"item_id", "date", "sale"}, func(row csvRow) error {
		date, err := domain.ParseDate(row.str("date"))
		if err != nil {
			return fmt.Errorf("column date: %w", err)
		}
		qty, err := row.number("sale")
		if err != nil {
			return err
		}
		data.Sales = append(data.Sales, repository.SalesRecord{ItemID: row.str("item_id"), Date: date, Quantity: qty})
		return nil
	})
	return data, err
}

type csvRow struct {
	index  map[string]int
	record []string
}

func (r csvRow) str(col string) string {
	return strings.TrimSpace(r.record[r.index[col]])
}

func (r csvRow) number(col string) (float64, error) {
	v, err := strconv.ParseFloat(r.str(col), 64)
	if err != nil {
		return 0, fmt.Errorf("column %s: %w", col, err)
	}
	return v, nil
}

// whole accepts whole-number floats such as "12.0".
func (r csvRow) whole(col string) (int, error) {
	v, err := r.number(col)
	if err != nil {
		return 0, err
	}
	if v != float64(int(v)) {
		return 0, fmt.Errorf("column %s: %q is not a whole number", col, r.str(col))
	}
	return int(v), nil
}

func readCSV(path string, required []string, fn func(csvRow) error) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open file %s: %w", path, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	header, err := reader.Read()
	if err != nil {
		return fmt.Errorf("failed to read CSV header of %s: %w", path, err)
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, col := range required {
		if _, ok := index[col]; !ok {
			return fmt.Errorf("%s: missing column %q", path, col)
		}
	}

	line := 1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return fmt.Errorf("failed to read CSV record in %s: %w", path, err)
		}
		if err := fn(csvRow{index: index, record: record}); err != nil {
			return fmt.Errorf("%s line %d: %w", path, line, err)
		}
	}
	return nil
}
