package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/andresuchdata/backroom/internal/api/handlers"
	"github.com/andresuchdata/backroom/internal/api/middleware"
)

type Services struct {
	Inventory handlers.InventoryService
	// LastRun is the scheduled ranking job, if one is configured.
	LastRun handlers.LastRunProvider
	// Metrics serves /metrics when set.
	Metrics http.Handler
}

func NewRouter(services *Services, allowedOrigins []string) *gin.Engine {
	router := gin.New()

	router.Use(middleware.RequestID())
	router.Use(middleware.Logger())
	router.Use(middleware.Recovery())
	defaultOrigins := []string{"http://localhost:3000", "http://127.0.0.1:3000"}
	corsConfig := cors.Config{
		AllowOrigins:     defaultOrigins,
		AllowMethods:     []string{"GET", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition", middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(allowedOrigins) > 0 {
		normalizedOrigins, allowAll := normalizeAllowedOrigins(allowedOrigins)
		if allowAll {
			corsConfig.AllowOrigins = nil
			corsConfig.AllowOriginFunc = func(origin string) bool { return true }
		} else if len(normalizedOrigins) > 0 {
			corsConfig.AllowOrigins = normalizedOrigins
		}
	}
	router.Use(cors.New(corsConfig))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	if services == nil {
		return router
	}

	if services.Metrics != nil {
		router.GET("/metrics", gin.WrapH(services.Metrics))
	}

	apiGroup := router.Group("/api/v1")

	if services.Inventory != nil {
		inventoryHandler := handlers.NewInventoryHandler(services.Inventory, services.LastRun)
		inventoryGroup := apiGroup.Group("/inventory")
		{
			inventoryGroup.GET("/items/:item_id/insight", inventoryHandler.GetInsight)
			inventoryGroup.GET("/items/:item_id/forecast", inventoryHandler.GetForecast)
			inventoryGroup.GET("/reorder_priorities", inventoryHandler.GetReorderPriorities)
			inventoryGroup.GET("/reorder_priorities/latest", inventoryHandler.GetLatestRun)
		}
	}

	return router
}

func normalizeAllowedOrigins(origins []string) ([]string, bool) {
	var (
		parsed   []string
		allowAll bool
	)
	for _, origin := range origins {
		parts := strings.Split(origin, ",")
		for _, part := range parts {
			trimmed := strings.TrimSpace(part)
			if trimmed == "" {
				continue
			}
			if trimmed == "*" {
				allowAll = true
				continue
			}
			parsed = append(parsed, trimmed)
		}
	}
	return parsed, allowAll
}
