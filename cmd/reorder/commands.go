package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/urfave/cli/v2"

	"github.com/andresuchdata/backroom/internal/config"
	"github.com/andresuchdata/backroom/internal/domain"
	"github.com/andresuchdata/backroom/internal/report"
	"github.com/andresuchdata/backroom/internal/storage"
	"github.com/andresuchdata/backroom/pkg/logger"
)

func runMigrate(c *cli.Context) error {
	db, err := dbFrom(c)
	if err != nil {
		return err
	}
	if err := db.Migrate(c.Context); err != nil {
		return err
	}
	logger.Log.Info().Msg("schema is up to date")
	return nil
}

func runForecast(c *cli.Context) error {
	svc, err := inventoryService(c)
	if err != nil {
		return err
	}
	result, err := svc.Forecast(c.Context, c.String("item"), c.Int("horizon"))
	if err != nil {
		return err
	}

	switch strings.ToLower(c.String("format")) {
	case "csv":
		return report.WriteForecastCSV(c.App.Writer, result.ItemID, result.Forecast)
	case "json":
		return writeJSON(c.App.Writer, result)
	default:
		return fmt.Errorf("unsupported format %q, expected json or csv", c.String("format"))
	}
}

func runInsight(c *cli.Context) error {
	svc, err := inventoryService(c)
	if err != nil {
		return err
	}
	insight, err := svc.Analyze(c.Context, c.String("item"), c.Int("horizon"))
	if err != nil {
		return err
	}

	switch strings.ToLower(c.String("format")) {
	case "text":
		return report.WriteInsight(c.App.Writer, insight)
	case "json":
		return writeJSON(c.App.Writer, insight)
	default:
		return fmt.Errorf("unsupported format %q, expected json or text", c.String("format"))
	}
}

func runRank(c *cli.Context) error {
	format := strings.ToLower(c.String("format"))
	if format != "text" && format != "csv" && format != "json" {
		return fmt.Errorf("unsupported format %q, expected text, csv or json", format)
	}

	svc, err := inventoryService(c)
	if err != nil {
		return err
	}

	started := time.Now()
	var rep *domain.RankingReport
	if ids := c.StringSlice("items"); len(ids) > 0 {
		rep, err = svc.RankItems(c.Context, ids)
	} else {
		rep, err = svc.RankAll(c.Context)
	}
	if err != nil && rep == nil {
		return err
	}
	if err != nil {
		// cancelled mid-run: still emit what was analyzed
		logger.Log.Warn().Err(err).Msg("ranking interrupted, writing partial report")
	}
	runID := uuid.NewString()

	out := c.App.Writer
	if path := c.String("output"); path != "" {
		f, ferr := os.Create(path)
		if ferr != nil {
			return fmt.Errorf("create %s: %w", path, ferr)
		}
		defer f.Close()
		out = f
	}
	if werr := writeRanking(out, format, runID, rep); werr != nil {
		return werr
	}

	summary := rep.Summary()
	logger.Log.Info().
		Str("run_id", runID).
		Int("high", summary.High).
		Int("medium", summary.Medium).
		Int("low", summary.Low).
		Int("skipped", summary.Skipped).
		Dur("elapsed", time.Since(started)).
		Msg("ranking complete")

	if c.Bool("publish") {
		cfg := config.Load()
		store, serr := storage.New(c.Context, cfg.Storage)
		if serr != nil {
			return fmt.Errorf("report storage: %w", serr)
		}
		published, perr := report.NewPublisher(store, cfg.Storage.ReportPrefix).Publish(c.Context, runID, rep)
		if perr != nil {
			return perr
		}
		logger.Log.Info().Str("csv", published.CSVKey).Str("skipped", published.SkippedKey).Str("json", published.JSONKey).Msg("report published")
	}
	return err
}

func writeRanking(w io.Writer, format, runID string, rep *domain.RankingReport) error {
	switch format {
	case "csv":
		return report.WriteRankingCSV(w, rep)
	case "json":
		return report.WriteJSON(w, report.NewDocument(runID, time.Now(), rep))
	case "text":
		return report.WriteSummary(w, rep)
	default:
		return errors.New("unsupported format " + format)
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
