package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/andresuchdata/backroom/internal/config"
	"github.com/andresuchdata/backroom/internal/repository"
	"github.com/andresuchdata/backroom/internal/repository/database"
	"github.com/andresuchdata/backroom/internal/service"
	"github.com/andresuchdata/backroom/pkg/logger"
)

type ctxKey string

const dbKey ctxKey = "db"

func newItemFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:     "item",
		Aliases:  []string{"i"},
		Usage:    "Item id to analyze",
		Required: true,
	}
}

func newHorizonFlag() *cli.IntFlag {
	return &cli.IntFlag{
		Name:  "horizon",
		Usage: "Forecast horizon in days (0 uses ENGINE_HORIZON_DAYS)",
	}
}

func initDB(c *cli.Context) error {
	cfg := config.Load()
	logger.Configure(cfg.LogFormat, cfg.LogLevel)

	db, err := database.NewDB(&cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.PingContext(c.Context); err != nil {
		db.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	c.Context = context.WithValue(c.Context, dbKey, db)
	return nil
}

func closeDB(c *cli.Context) error {
	if db, ok := c.Context.Value(dbKey).(*database.DB); ok && db != nil {
		return db.Close()
	}
	return nil
}

func dbFrom(c *cli.Context) (*database.DB, error) {
	db, ok := c.Context.Value(dbKey).(*database.DB)
	if !ok || db == nil {
		return nil, fmt.Errorf("database is not initialized")
	}
	return db, nil
}

func inventoryService(c *cli.Context) (*service.InventoryService, error) {
	db, err := dbFrom(c)
	if err != nil {
		return nil, err
	}
	return service.Build(config.Load(), repository.NewCatalogRepository(db.DB), nil)
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "reorder",
		Usage: "Forecast demand and rank items by reorder urgency",
		Commands: []*cli.Command{
			{
				Name:   "migrate",
				Usage:  "Create the item_dim, inv and sales tables",
				Before: initDB,
				After:  closeDB,
				Action: runMigrate,
			},
			{
				Name:  "seed",
				Usage: "Load item_dim.csv, inv.csv and sales.csv in one transaction",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "data-dir",
						Usage:   "Directory containing the catalog CSV files",
						Value:   "./data/seeds",
						EnvVars: []string{"SEED_DATA_DIR"},
					},
				},
				Before: initDB,
				After:  closeDB,
				Action: runSeed,
			},
			{
				Name:   "forecast",
				Usage:  "Print the demand forecast of one item",
				Flags:  []cli.Flag{newItemFlag(), newHorizonFlag(), &cli.StringFlag{Name: "format", Value: "json", Usage: "json or csv"}},
				Before: initDB,
				After:  closeDB,
				Action: runForecast,
			},
			{
				Name:   "insight",
				Usage:  "Print the inventory insight of one item",
				Flags:  []cli.Flag{newItemFlag(), newHorizonFlag(), &cli.StringFlag{Name: "format", Value: "json", Usage: "json or text"}},
				Before: initDB,
				After:  closeDB,
				Action: runInsight,
			},
			{
				Name:  "rank",
				Usage: "Rank items by reorder urgency",
				Flags: []cli.Flag{
					&cli.StringSliceFlag{
						Name:  "items",
						Usage: "Only rank these item ids (default: every item with stock)",
					},
					&cli.StringFlag{
						Name:  "format",
						Value: "text",
						Usage: "text, csv or json",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Write the report to this file instead of stdout",
					},
					&cli.BoolFlag{
						Name:  "publish",
						Usage: "Upload CSV and JSON reports to the configured object storage",
					},
				},
				Before: initDB,
				After:  closeDB,
				Action: runRank,
			},
		},
	}
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		logger.Log.Fatal().Err(err).Msg("reorder failed")
	}
}
