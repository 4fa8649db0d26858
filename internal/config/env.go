package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

// ApplyEnvOverrides applies environment variable overrides to the configuration.
// Pattern: REQSIFT_[SECTION]_[KEY] (e.g., REQSIFT_PYPI_TIMEOUT).
func ApplyEnvOverrides(cfg *Config, logger *log.Logger) {
	// Scan
	setEnvBool(logger, &cfg.Scan.IgnoreParseErrors, "REQSIFT_SCAN_IGNORE_PARSE_ERRORS")

	// Resolve
	setEnvFloat64(logger, &cfg.Resolve.DistanceThreshold, "REQSIFT_RESOLVE_DISTANCE_THRESHOLD")
	setEnvInt(logger, &cfg.Resolve.MaxPasses, "REQSIFT_RESOLVE_MAX_PASSES")

	// PyPI
	setEnvString(logger, &cfg.PyPI.BaseURL, "REQSIFT_PYPI_BASE_URL")
	setEnvString(logger, &cfg.PyPI.SimpleURL, "REQSIFT_PYPI_SIMPLE_URL")
	setEnvDuration(logger, &cfg.PyPI.Timeout, "REQSIFT_PYPI_TIMEOUT")
	setEnvFloat64(logger, &cfg.PyPI.RatePerSec, "REQSIFT_PYPI_RATE_PER_SEC")
	setEnvInt(logger, &cfg.PyPI.Burst, "REQSIFT_PYPI_BURST")
	setEnvInt(logger, &cfg.PyPI.CacheSize, "REQSIFT_PYPI_CACHE_SIZE")

	// Recorder
	setEnvString(logger, &cfg.Recorder.JournalPath, "REQSIFT_RECORDER_JOURNAL_PATH")

	// Watch
	setEnvDuration(logger, &cfg.Watch.Debounce, "REQSIFT_WATCH_DEBOUNCE")

	// Observability
	setEnvBool(logger, &cfg.Observability.Enabled, "REQSIFT_OBSERVABILITY_ENABLED")
	setEnvInt(logger, &cfg.Observability.Port, "REQSIFT_OBSERVABILITY_PORT")
	setEnvString(logger, &cfg.Observability.OTLPEndpoint, "REQSIFT_OBSERVABILITY_OTLP_ENDPOINT")
}

func setEnvString(logger *log.Logger, target *string, key string) {
	if val, ok := os.LookupEnv(key); ok {
		logger.Debug("applying env override", "key", key, "value", val)
		*target = val
	}
}

func setEnvInt(logger *log.Logger, target *int, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(val); err == nil {
			logger.Debug("applying env override", "key", key, "value", val)
			*target = i
		}
	}
}

func setEnvBool(logger *log.Logger, target *bool, key string) {
	if val, ok := os.LookupEnv(key); ok {
		b, err := strconv.ParseBool(strings.ToLower(val))
		if err == nil {
			logger.Debug("applying env override", "key", key, "value", val)
			*target = b
		}
	}
}

func setEnvFloat64(logger *log.Logger, target *float64, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			logger.Debug("applying env override", "key", key, "value", val)
			*target = f
		}
	}
}

func setEnvDuration(logger *log.Logger, target *time.Duration, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(val); err == nil {
			logger.Debug("applying env override", "key", key, "value", val)
			*target = d
		}
	}
}
