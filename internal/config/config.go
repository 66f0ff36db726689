package config

import (
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/andresuchdata/backroom/internal/engine"
	"github.com/andresuchdata/backroom/internal/ranker"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Cache     CacheConfig
	Engine    EngineConfig
	Ranker    RankerConfig
	Predictor PredictorConfig
	Storage   StorageConfig
	Schedule  ScheduleConfig
	LogLevel  string
	// LogFormat is console or json.
	LogFormat string
}

type ServerConfig struct {
	Port           string
	Mode           string
	ReadTimeout    int
	WriteTimeout   int
	AllowedOrigins []string
}

type DatabaseConfig struct {
	// Driver is one of postgres, pgx or sqlite.
	Driver   string
	DSN      string
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
	// MaxConcurrentTx caps transactions running through WithTx.
	MaxConcurrentTx int64
}

// DataSourceName returns DSN when set, otherwise builds a postgres connection string.
// For sqlite the database name is used as the file path.
func (c DatabaseConfig) DataSourceName() string {
	if c.DSN != "" {
		return c.DSN
	}
	if c.Driver == "sqlite" {
		return c.DBName
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

type CacheConfig struct {
	Enabled            bool
	RedisURL           string
	RedisHost          string
	RedisPort          string
	RedisPassword      string
	RedisDB            int
	ForecastTTLSeconds int
}

type EngineConfig struct {
	HorizonDays          int
	SafetyFactor         float64
	CriticalCoverageDays int
	LowCoverageDays      int
	LowMarginPct         float64
}

// Policy converts the engine section into an analysis policy.
// LowMarginPct is passed as set, so ENGINE_LOW_MARGIN_PCT=0 is honored.
func (c EngineConfig) Policy() (engine.Policy, error) {
	return engine.NewPolicy(engine.Policy{
		SafetyFactor:         c.SafetyFactor,
		CriticalCoverageDays: c.CriticalCoverageDays,
		LowCoverageDays:      c.LowCoverageDays,
		LowMarginPct:         &c.LowMarginPct,
	})
}

type RankerConfig struct {
	Workers            int
	ItemTimeoutSeconds int
	CriticalWeight     int
	LowWeight          int
	BelowROPWeight     int
	LowMarginPenalty   int
	HighThreshold      int
	MediumThreshold    int
}

// Ranker converts the ranker section into a ranker configuration.
// MediumThreshold is passed as set, so RANKER_MEDIUM_THRESHOLD=0 is honored.
func (c RankerConfig) Ranker() (ranker.Config, error) {
	return ranker.NewConfig(ranker.Config{
		Workers:     c.Workers,
		ItemTimeout: time.Duration(c.ItemTimeoutSeconds) * time.Second,
		Weights: ranker.Weights{
			Critical:          c.CriticalWeight,
			Low:               c.LowWeight,
			BelowReorderPoint: c.BelowROPWeight,
			LowMarginPenalty:  c.LowMarginPenalty,
			HighThreshold:     c.HighThreshold,
			MediumThreshold:   &c.MediumThreshold,
		},
	})
}

type PredictorConfig struct {
	LookbackDays int
	IntervalZ    float64
	TrendDamping float64
}

type StorageConfig struct {
	// Backend is minio or local.
	Backend      string
	Endpoint     string
	AccessKey    string
	SecretKey    string
	Bucket       string
	UseSSL       bool
	LocalDir     string
	ReportPrefix string
}

type ScheduleConfig struct {
	// ReorderCron uses the six-field cron format with seconds; empty disables the job.
	ReorderCron string
	// RunTimeoutSeconds bounds a scheduled ranking run; 0 disables the deadline.
	RunTimeoutSeconds int
	// RunOnStartup triggers one ranking as soon as the server is up.
	RunOnStartup bool
}

var (
	once     sync.Once
	instance *Config
)

func Load() *Config {
	once.Do(func() {
		// Load .env file if it exists
		_ = godotenv.Load()

		viper.SetDefault("LOG_LEVEL", "info")
		viper.SetDefault("LOG_FORMAT", "console")

		viper.SetDefault("SERVER_PORT", "8080")
		viper.SetDefault("SERVER_MODE", "debug")
		viper.SetDefault("SERVER_READ_TIMEOUT", 30)
		viper.SetDefault("SERVER_WRITE_TIMEOUT", 60)
		viper.SetDefault("SERVER_ALLOWED_ORIGINS", []string{"*"})

		viper.SetDefault("DB_DRIVER", "postgres")
		viper.SetDefault("DB_DSN", "")
		viper.SetDefault("DB_HOST", "localhost")
		viper.SetDefault("DB_PORT", "5432")
		viper.SetDefault("DB_USER", "postgres")
		viper.SetDefault("DB_PASSWORD", "postgres")
		viper.SetDefault("DB_NAME", "backroom")
		viper.SetDefault("DB_SSLMODE", "disable")
		viper.SetDefault("DB_MAX_CONCURRENT_TX", 10)

		viper.SetDefault("CACHE_ENABLED", false)
		viper.SetDefault("REDIS_URL", "")
		viper.SetDefault("REDIS_HOST", "127.0.0.1")
		viper.SetDefault("REDIS_PORT", "6379")
		viper.SetDefault("REDIS_PASSWORD", "")
		viper.SetDefault("REDIS_DB", 0)
		viper.SetDefault("CACHE_FORECAST_TTL_SECONDS", 3600)

		viper.SetDefault("ENGINE_HORIZON_DAYS", 30)
		viper.SetDefault("ENGINE_SAFETY_FACTOR", 1.25)
		viper.SetDefault("ENGINE_CRITICAL_COVERAGE_DAYS", 7)
		viper.SetDefault("ENGINE_LOW_COVERAGE_DAYS", 14)
		viper.SetDefault("ENGINE_LOW_MARGIN_PCT", 10)

		viper.SetDefault("RANKER_WORKERS", 4)
		viper.SetDefault("RANKER_ITEM_TIMEOUT_SECONDS", 30)
		viper.SetDefault("RANKER_CRITICAL_WEIGHT", 100)
		viper.SetDefault("RANKER_LOW_WEIGHT", 50)
		viper.SetDefault("RANKER_BELOW_ROP_WEIGHT", 75)
		viper.SetDefault("RANKER_LOW_MARGIN_PENALTY", 20)
		viper.SetDefault("RANKER_HIGH_THRESHOLD", 75)
		viper.SetDefault("RANKER_MEDIUM_THRESHOLD", 25)

		viper.SetDefault("PREDICTOR_LOOKBACK_DAYS", 56)
		viper.SetDefault("PREDICTOR_INTERVAL_Z", 1.2816)
		viper.SetDefault("PREDICTOR_TREND_DAMPING", 0.9)

		viper.SetDefault("STORAGE_BACKEND", "local")
		viper.SetDefault("STORAGE_ENDPOINT", "")
		viper.SetDefault("STORAGE_ACCESS_KEY", "")
		viper.SetDefault("STORAGE_SECRET_KEY", "")
		viper.SetDefault("STORAGE_BUCKET", "backroom-reports")
		viper.SetDefault("STORAGE_USE_SSL", true)
		viper.SetDefault("STORAGE_LOCAL_DIR", "./data/reports")
		viper.SetDefault("STORAGE_REPORT_PREFIX", "reorder")

		viper.SetDefault("SCHEDULE_REORDER_CRON", "")
		viper.SetDefault("SCHEDULE_RUN_TIMEOUT_SECONDS", 600)
		viper.SetDefault("SCHEDULE_RUN_ON_STARTUP", false)

		// Read from environment variables
		viper.AutomaticEnv()

		storage := StorageConfig{
			Backend:      viper.GetString("STORAGE_BACKEND"),
			Endpoint:     viper.GetString("STORAGE_ENDPOINT"),
			AccessKey:    viper.GetString("STORAGE_ACCESS_KEY"),
			SecretKey:    viper.GetString("STORAGE_SECRET_KEY"),
			Bucket:       viper.GetString("STORAGE_BUCKET"),
			UseSSL:       viper.GetBool("STORAGE_USE_SSL"),
			LocalDir:     viper.GetString("STORAGE_LOCAL_DIR"),
			ReportPrefix: viper.GetString("STORAGE_REPORT_PREFIX"),
		}
		if storage.Backend == "local" {
			ensureDir(storage.LocalDir)
		}

		instance = &Config{
			LogLevel:  viper.GetString("LOG_LEVEL"),
			LogFormat: viper.GetString("LOG_FORMAT"),
			Server: ServerConfig{
				Port:           viper.GetString("SERVER_PORT"),
				Mode:           viper.GetString("SERVER_MODE"),
				ReadTimeout:    viper.GetInt("SERVER_READ_TIMEOUT"),
				WriteTimeout:   viper.GetInt("SERVER_WRITE_TIMEOUT"),
				AllowedOrigins: viper.GetStringSlice("SERVER_ALLOWED_ORIGINS"),
			},
			Database: DatabaseConfig{
				Driver:          viper.GetString("DB_DRIVER"),
				DSN:             viper.GetString("DB_DSN"),
				Host:            viper.GetString("DB_HOST"),
				Port:            viper.GetString("DB_PORT"),
				User:            viper.GetString("DB_USER"),
				Password:        viper.GetString("DB_PASSWORD"),
				DBName:          viper.GetString("DB_NAME"),
				SSLMode:         viper.GetString("DB_SSLMODE"),
				MaxConcurrentTx: viper.GetInt64("DB_MAX_CONCURRENT_TX"),
			},
			Cache: CacheConfig{
				Enabled:            viper.GetBool("CACHE_ENABLED"),
				RedisURL:           viper.GetString("REDIS_URL"),
				RedisHost:          viper.GetString("REDIS_HOST"),
				RedisPort:          viper.GetString("REDIS_PORT"),
				RedisPassword:      viper.GetString("REDIS_PASSWORD"),
				RedisDB:            viper.GetInt("REDIS_DB"),
				ForecastTTLSeconds: viper.GetInt("CACHE_FORECAST_TTL_SECONDS"),
			},
			Engine: EngineConfig{
				HorizonDays:          viper.GetInt("ENGINE_HORIZON_DAYS"),
				SafetyFactor:         viper.GetFloat64("ENGINE_SAFETY_FACTOR"),
				CriticalCoverageDays: viper.GetInt("ENGINE_CRITICAL_COVERAGE_DAYS"),
				LowCoverageDays:      viper.GetInt("ENGINE_LOW_COVERAGE_DAYS"),
				LowMarginPct:         viper.GetFloat64("ENGINE_LOW_MARGIN_PCT"),
			},
			Ranker: RankerConfig{
				Workers:            viper.GetInt("RANKER_WORKERS"),
				ItemTimeoutSeconds: viper.GetInt("RANKER_ITEM_TIMEOUT_SECONDS"),
				CriticalWeight:     viper.GetInt("RANKER_CRITICAL_WEIGHT"),
				LowWeight:          viper.GetInt("RANKER_LOW_WEIGHT"),
				BelowROPWeight:     viper.GetInt("RANKER_BELOW_ROP_WEIGHT"),
				LowMarginPenalty:   viper.GetInt("RANKER_LOW_MARGIN_PENALTY"),
				HighThreshold:      viper.GetInt("RANKER_HIGH_THRESHOLD"),
				MediumThreshold:    viper.GetInt("RANKER_MEDIUM_THRESHOLD"),
			},
			Predictor: PredictorConfig{
				LookbackDays: viper.GetInt("PREDICTOR_LOOKBACK_DAYS"),
				IntervalZ:    viper.GetFloat64("PREDICTOR_INTERVAL_Z"),
				TrendDamping: viper.GetFloat64("PREDICTOR_TREND_DAMPING"),
			},
			Storage: storage,
			Schedule: ScheduleConfig{
				ReorderCron:       viper.GetString("SCHEDULE_REORDER_CRON"),
				RunTimeoutSeconds: viper.GetInt("SCHEDULE_RUN_TIMEOUT_SECONDS"),
				RunOnStartup:      viper.GetBool("SCHEDULE_RUN_ON_STARTUP"),
			},
		}
	})

	return instance
}

func ensureDir(dir string) {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.MkdirAll(dir, 0755); err != nil {
			log.Fatalf("Failed to create directory %s: %v", dir, err)
		}
	}
}
