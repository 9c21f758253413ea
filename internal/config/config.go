package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

var validate = validator.New()

type AppConfig struct {
	// BMONBaseURL is the readings API prefix; the sensor id and a
	// trailing slash are appended per request.
	BMONBaseURL string `validate:"required,url"`

	// MinCoverage is the fraction of a month's hours that must have data
	// before the month is included (strict greater-than).
	MinCoverage float64 `validate:"gte=0,lte=1"`

	// DataDir holds the parquet dataset and its CSV mirror.
	DataDir string `validate:"required"`

	// HTTPTimeout bounds outbound BMON requests. Zero means no timeout;
	// the updater runs unattended and a stalled run is preferable to a
	// prematurely abandoned one.
	HTTPTimeout time.Duration

	// UpdateDay is the day of the month the daemon runs the update.
	// Kept early in the month so the prior month is complete.
	UpdateDay int `validate:"gte=1,lte=28"`

	Port     string
	LogLevel string
}

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}

	cfg := &AppConfig{}

	cfg.BMONBaseURL = getenvDefault("BMON_URL", "https://bms.ahfc.us/api/v1/readings/")

	minCov, err := getenvFloat("MIN_COVERAGE", 0.7)
	if err != nil {
		return nil, fmt.Errorf("invalid MIN_COVERAGE: %w", err)
	}
	cfg.MinCoverage = minCov

	cfg.DataDir = getenvDefault("DATA_DIR", "data")

	timeoutStr := getenvDefault("HTTP_TIMEOUT", "0")
	timeout, err := time.ParseDuration(timeoutStr)
	if err != nil {
		return nil, fmt.Errorf("invalid HTTP_TIMEOUT: %w", err)
	}
	cfg.HTTPTimeout = timeout

	cfg.UpdateDay = getenvInt("UPDATE_DAY", 1)
	cfg.Port = getenvDefault("PORT", "8080")
	cfg.LogLevel = getenvDefault("LOG_LEVEL", "info")

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// DatasetPath is the compressed parquet table.
func (c *AppConfig) DatasetPath() string {
	return filepath.Join(c.DataDir, "degree_days.parquet")
}

// MirrorPath is the plain-text CSV mirror of the same table.
func (c *AppConfig) MirrorPath() string {
	return filepath.Join(c.DataDir, "degree_days.csv")
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}

func getenvFloat(key string, def float64) (float64, error) {
	if v := os.Getenv(key); v != "" {
		return strconv.ParseFloat(v, 64)
	}
	return def, nil
}
