package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/andresuchdata/backroom/internal/domain"
	"github.com/andresuchdata/backroom/internal/report"
	"github.com/andresuchdata/backroom/internal/scheduler"
	"github.com/andresuchdata/backroom/internal/service"
)

// InventoryService is the analysis surface the handler serves.
type InventoryService interface {
	Analyze(ctx context.Context, itemID string, horizon int) (*domain.InventoryInsight, error)
	Forecast(ctx context.Context, itemID string, horizon int) (*service.ForecastResult, error)
	RankAll(ctx context.Context) (*domain.RankingReport, error)
	RankItems(ctx context.Context, itemIDs []string) (*domain.RankingReport, error)
}

// LastRunProvider exposes the most recent scheduled ranking.
type LastRunProvider interface {
	LastRun() (scheduler.RunResult, bool)
}

type InventoryHandler struct {
	service InventoryService
	lastRun LastRunProvider
}

// NewInventoryHandler creates the handler. lastRun may be nil when no ranking is scheduled.
func NewInventoryHandler(svc InventoryService, lastRun LastRunProvider) *InventoryHandler {
	return &InventoryHandler{service: svc, lastRun: lastRun}
}

func (h *InventoryHandler) GetInsight(c *gin.Context) {
	format := strings.ToLower(c.DefaultQuery("format", "json"))
	if format != "json" && format != "text" {
		badFormat(c, "json or text")
		return
	}
	horizon, ok := parseHorizon(c)
	if !ok {
		return
	}

	insight, err := h.service.Analyze(c.Request.Context(), c.Param("item_id"), horizon)
	if err != nil {
		writeError(c, "failed to analyze item", err)
		return
	}

	if format == "text" {
		c.Header("Content-Type", "text/plain; charset=utf-8")
		c.Status(http.StatusOK)
		if err := report.WriteInsight(c.Writer, insight); err != nil {
			log.Error().Err(err).Str("item_id", insight.Profile.ItemID).Msg("handlers: write insight text")
		}
		return
	}
	c.JSON(http.StatusOK, insight)
}

func (h *InventoryHandler) GetForecast(c *gin.Context) {
	horizon, ok := parseHorizon(c)
	if !ok {
		return
	}

	result, err := h.service.Forecast(c.Request.Context(), c.Param("item_id"), horizon)
	if err != nil {
		writeError(c, "failed to forecast item", err)
		return
	}

	switch strings.ToLower(c.DefaultQuery("format", "json")) {
	case "json":
		c.JSON(http.StatusOK, result)
	case "csv":
		c.Header("Content-Type", "text/csv; charset=utf-8")
		c.Header("Content-Disposition", `attachment; filename="forecast_`+result.ItemID+`.csv"`)
		c.Status(http.StatusOK)
		if err := report.WriteForecastCSV(c.Writer, result.ItemID, result.Forecast); err != nil {
			log.Error().Err(err).Str("item_id", result.ItemID).Msg("handlers: write forecast csv")
		}
	default:
		badFormat(c, "json or csv")
	}
}

// GetReorderPriorities ranks the catalog, or the comma-separated ?items= subset.
func (h *InventoryHandler) GetReorderPriorities(c *gin.Context) {
	format := strings.ToLower(c.DefaultQuery("format", "json"))
	if format != "json" && format != "csv" && format != "text" {
		badFormat(c, "json, csv or text")
		return
	}

	var (
		rep *domain.RankingReport
		err error
	)
	if ids := splitList(c.Query("items")); len(ids) > 0 {
		rep, err = h.service.RankItems(c.Request.Context(), ids)
	} else {
		rep, err = h.service.RankAll(c.Request.Context())
	}
	if err != nil {
		writeError(c, "failed to rank items", err)
		return
	}

	switch format {
	case "csv":
		c.Header("Content-Type", "text/csv; charset=utf-8")
		c.Header("Content-Disposition", `attachment; filename="reorder_analysis_`+time.Now().UTC().Format("20060102_150405")+`.csv"`)
		c.Status(http.StatusOK)
		if err := report.WriteRankingCSV(c.Writer, rep); err != nil {
			log.Error().Err(err).Msg("handlers: write ranking csv")
		}
	case "text":
		c.Header("Content-Type", "text/plain; charset=utf-8")
		c.Status(http.StatusOK)
		if err := report.WriteSummary(c.Writer, rep); err != nil {
			log.Error().Err(err).Msg("handlers: write ranking summary")
		}
	default:
		c.JSON(http.StatusOK, gin.H{
			"summary": rep.Summary(),
			"entries": rep.Entries,
			"skipped": rep.Skipped,
		})
	}
}

// GetLatestRun returns the result of the last scheduled ranking.
func (h *InventoryHandler) GetLatestRun(c *gin.Context) {
	if h.lastRun == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "scheduled ranking is disabled", "kind": domain.KindNotFound})
		return
	}
	run, ok := h.lastRun.LastRun()
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no ranking has run yet", "kind": domain.KindNotFound})
		return
	}
	c.JSON(http.StatusOK, run)
}

// StatusFor maps an error kind to its HTTP status.
func StatusFor(kind domain.ErrorKind) int {
	switch kind {
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindInvalidInput:
		return http.StatusBadRequest
	case domain.KindMalformedForecast:
		return http.StatusUnprocessableEntity
	case domain.KindUpstreamForecast:
		return http.StatusBadGateway
	case domain.KindTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func writeError(c *gin.Context, message string, err error) {
	kind := domain.KindOf(err)
	status := StatusFor(kind)

	event := log.Warn()
	if status >= http.StatusInternalServerError && !errors.Is(err, context.Canceled) {
		event = log.Error()
	}
	event.Err(err).
		Str("path", c.Request.URL.Path).
		Str("kind", string(kind)).
		Msg("handlers: " + message)

	c.JSON(status, gin.H{"error": message, "kind": kind, "details": err.Error()})
}

func badFormat(c *gin.Context, expected string) {
	c.JSON(http.StatusBadRequest, gin.H{
		"error": "unsupported format, expected " + expected,
		"kind":  domain.KindInvalidInput,
	})
}

// parseHorizon reads ?horizon=; absent means the service default.
func parseHorizon(c *gin.Context) (int, bool) {
	raw := strings.TrimSpace(c.Query("horizon"))
	if raw == "" {
		return 0, true
	}
	horizon, err := strconv.Atoi(raw)
	if err != nil || horizon <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "horizon must be a positive integer",
			"kind":  domain.KindInvalidInput,
		})
		return 0, false
	}
	return horizon, true
}

func splitList(value string) []string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
