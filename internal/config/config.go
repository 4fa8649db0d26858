package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// DefaultPath is where Load looks when the caller does not name a file.
const DefaultPath = "reqsift.toml"

type Config struct {
	Scan          Scan          `toml:"scan"`
	Resolve       Resolve       `toml:"resolve"`
	PyPI          PyPI          `toml:"pypi"`
	Recorder      Recorder      `toml:"recorder"`
	Watch         Watch         `toml:"watch"`
	Observability Observability `toml:"observability"`
}

type Scan struct {
	Extensions        []string `toml:"extensions"`
	RespectGitignore  *bool    `toml:"respect_gitignore"`
	IgnoreParseErrors bool     `toml:"ignore_parse_errors"`
	Exclude           Exclude  `toml:"exclude"`
}

type Exclude struct {
	Dirs  []string `toml:"dirs"`
	Files []string `toml:"files"`
}

type Resolve struct {
	DistanceThreshold float64 `toml:"distance_threshold"`
	MaxPasses         int     `toml:"max_passes"`
}

type PyPI struct {
	BaseURL    string        `toml:"base_url"`
	SimpleURL  string        `toml:"simple_url"`
	Timeout    time.Duration `toml:"timeout"`
	RatePerSec float64       `toml:"rate_per_sec"`
	Burst      int           `toml:"burst"`
	CacheSize  int           `toml:"cache_size"`
}

type Recorder struct {
	JournalPath string `toml:"journal_path"`
}

type Watch struct {
	Debounce time.Duration `toml:"debounce"`
}

type Observability struct {
	Enabled      bool   `toml:"enabled"`
	Port         int    `toml:"port"`
	OTLPEndpoint string `toml:"otlp_endpoint"`
}

// GitignoreEnabled defaults to true when the key is absent from the file.
func (s Scan) GitignoreEnabled() bool {
	if s.RespectGitignore == nil {
		return true
	}
	return *s.RespectGitignore
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// Load reads and validates a TOML config file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if _, err := toml.Decode(string(data), &cfg); err != nil {
		return nil, err
	}

	applyDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if len(cfg.Scan.Extensions) == 0 {
		cfg.Scan.Extensions = []string{".py"}
	}
	if len(cfg.Scan.Exclude.Dirs) == 0 {
		cfg.Scan.Exclude.Dirs = []string{
			".hg", ".svn", ".git", ".mypy_cache", ".tox", "__pycache__",
			"env", "venv", ".venv", "node_modules", ".pytest_cache", ".ruff_cache",
		}
	}

	if cfg.Resolve.DistanceThreshold <= 0 {
		cfg.Resolve.DistanceThreshold = 20
	}
	if cfg.Resolve.MaxPasses <= 0 {
		cfg.Resolve.MaxPasses = 3
	}

	if strings.TrimSpace(cfg.PyPI.BaseURL) == "" {
		cfg.PyPI.BaseURL = "https://pypi.org"
	}
	if strings.TrimSpace(cfg.PyPI.SimpleURL) == "" {
		cfg.PyPI.SimpleURL = "https://pypi.org/simple/"
	}
	if cfg.PyPI.Timeout <= 0 {
		cfg.PyPI.Timeout = 10 * time.Second
	}
	if cfg.PyPI.RatePerSec <= 0 {
		cfg.PyPI.RatePerSec = 10
	}
	if cfg.PyPI.Burst <= 0 {
		cfg.PyPI.Burst = 5
	}
	if cfg.PyPI.CacheSize <= 0 {
		cfg.PyPI.CacheSize = 512
	}

	if strings.TrimSpace(cfg.Recorder.JournalPath) == "" {
		cfg.Recorder.JournalPath = ".mappings.db"
	}

	// Default debounce if not set.
	if cfg.Watch.Debounce == 0 {
		cfg.Watch.Debounce = 500 * time.Millisecond
	}

	if cfg.Observability.Port == 0 {
		cfg.Observability.Port = 9177
	}
}

func validate(cfg *Config) error {
	for _, ext := range cfg.Scan.Extensions {
		if !strings.HasPrefix(ext, ".") {
			return fmt.Errorf("scan.extensions entries must start with a dot, got %q", ext)
		}
	}
	if cfg.Resolve.DistanceThreshold <= 0 {
		return fmt.Errorf("resolve.distance_threshold must be > 0, got %v", cfg.Resolve.DistanceThreshold)
	}
	if cfg.Resolve.MaxPasses < 1 {
		return fmt.Errorf("resolve.max_passes must be >= 1, got %d", cfg.Resolve.MaxPasses)
	}
	if !strings.HasPrefix(cfg.PyPI.BaseURL, "http://") && !strings.HasPrefix(cfg.PyPI.BaseURL, "https://") {
		return fmt.Errorf("pypi.base_url must be an http(s) URL, got %q", cfg.PyPI.BaseURL)
	}
	if !strings.HasPrefix(cfg.PyPI.SimpleURL, "http://") && !strings.HasPrefix(cfg.PyPI.SimpleURL, "https://") {
		return fmt.Errorf("pypi.simple_url must be an http(s) URL, got %q", cfg.PyPI.SimpleURL)
	}
	if cfg.Observability.Port < 1 || cfg.Observability.Port > 65535 {
		return fmt.Errorf("observability.port must be a valid TCP port, got %d", cfg.Observability.Port)
	}
	return nil
}
