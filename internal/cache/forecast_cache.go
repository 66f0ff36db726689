package cache

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/andresuchdata/backroom/internal/config"
	"github.com/andresuchdata/backroom/internal/domain"
)

const (
	forecastKeyPrefix     = "forecast"
	forecastScanBatchSize = 100
)

// ForecastKey identifies a forecast by item, horizon and the exact history it was fitted on.
type ForecastKey struct {
	ItemID      string
	HorizonDays int
	History     []domain.SalesObservation
}

// String renders the redis key. The history is reduced to a sha1 digest.
func (k ForecastKey) String() string {
	return fmt.Sprintf("%s:%s:%d:%s", forecastKeyPrefix, k.ItemID, k.HorizonDays, historyHash(k.History))
}

type ForecastCache interface {
	GetForecast(ctx context.Context, key ForecastKey) (domain.Forecast, bool, error)
	SetForecast(ctx context.Context, key ForecastKey, f domain.Forecast) error
	// InvalidateItem drops every cached forecast of itemID and returns how many were removed.
	InvalidateItem(ctx context.Context, itemID string) (int, error)
}

type redisForecastCache struct {
	client *redis.Client
	ttl    time.Duration
}

type noopForecastCache struct{}

// NewForecastCache connects to redis when caching is enabled and falls back to a noop cache otherwise.
func NewForecastCache(cfg config.CacheConfig) (ForecastCache, error) {
	if !cfg.Enabled {
		return &noopForecastCache{}, nil
	}

	client, err := newRedisClient(cfg)
	if err != nil {
		return nil, err
	}

	return NewRedisForecastCache(client, forecastTTL(cfg)), nil
}

// NewRedisForecastCache wraps an existing client.
func NewRedisForecastCache(client *redis.Client, ttl time.Duration) ForecastCache {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &redisForecastCache{client: client, ttl: ttl}
}

func NewNoopForecastCache() ForecastCache {
	return &noopForecastCache{}
}

func (c *redisForecastCache) GetForecast(ctx context.Context, key ForecastKey) (domain.Forecast, bool, error) {
	payload, err := c.client.Get(ctx, key.String()).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.Forecast{}, false, nil
	}
	if err != nil {
		return domain.Forecast{}, false, fmt.Errorf("redis get failed: %w", err)
	}

	var f domain.Forecast
	if err := json.Unmarshal(payload, &f); err != nil {
		return domain.Forecast{}, false, fmt.Errorf("decode forecast cache: %w", err)
	}
	if f.IsEmpty() {
		return domain.Forecast{}, false, nil
	}

	return f, true, nil
}

func (c *redisForecastCache) SetForecast(ctx context.Context, key ForecastKey, f domain.Forecast) error {
	payload, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("encode forecast cache: %w", err)
	}

	if err := c.client.Set(ctx, key.String(), payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (c *redisForecastCache) InvalidateItem(ctx context.Context, itemID string) (int, error) {
	return deleteMatching(ctx, c.client, escapeGlob(itemKeyPrefix(itemID))+"*")
}

func (n *noopForecastCache) GetForecast(ctx context.Context, key ForecastKey) (domain.Forecast, bool, error) {
	return domain.Forecast{}, false, nil
}

func (n *noopForecastCache) SetForecast(ctx context.Context, key ForecastKey, f domain.Forecast) error {
	return nil
}

func (n *noopForecastCache) InvalidateItem(ctx context.Context, itemID string) (int, error) {
	return 0, nil
}

func itemKeyPrefix(itemID string) string {
	return fmt.Sprintf("%s:%s:", forecastKeyPrefix, itemID)
}

// escapeGlob quotes redis MATCH metacharacters so item ids are matched literally.
func escapeGlob(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

func historyHash(history []domain.SalesObservation) string {
	if len(history) == 0 {
		return "empty"
	}

	var b strings.Builder
	for _, obs := range history {
		b.WriteString(obs.Date.String())
		b.WriteByte('=')
		b.WriteString(strconv.FormatFloat(obs.Quantity, 'g', -1, 64))
		b.WriteByte('|')
	}
	sum := sha1.Sum([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}
