package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds service configuration loaded from YAML and env.
// Env vars win over the file so container deployments need no file at all.
type Config struct {
	ServerPort string

	GeocodeURL            string
	GeocodeTimeout        time.Duration
	ArchiveURL            string
	ArchiveTimeout        time.Duration
	ArchiveConnectTimeout time.Duration

	RequestTimeout time.Duration
	CityMaxLength  int
	MaxDays        int // 0 = uncapped

	// CacheURL selects the shared cache backend by scheme (redis:// or
	// memcached://). Empty means the in-process cache.
	CacheURL string
	CacheTTL time.Duration

	MemcachedTimeout      time.Duration
	MemcachedMaxIdleConns int

	CoalesceEnabled bool
	CoalesceTimeout time.Duration

	WarmCities   []string
	WarmDays     int
	WarmInterval time.Duration

	TrackedCities []string

	ShutdownTimeout               time.Duration
	ShutdownInFlightTimeout       time.Duration
	ShutdownInFlightCheckInterval time.Duration
}

type fileConfig struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`

	Upstream struct {
		GeocodeURL            string `yaml:"geocode_url"`
		GeocodeTimeout        string `yaml:"geocode_timeout"`
		ArchiveURL            string `yaml:"archive_url"`
		ArchiveTimeout        string `yaml:"archive_timeout"`
		ArchiveConnectTimeout string `yaml:"archive_connect_timeout"`
	} `yaml:"upstream"`

	Request struct {
		Timeout       string `yaml:"timeout"`
		CityMaxLength int    `yaml:"city_max_length"`
		MaxDays       int    `yaml:"max_days"`
	} `yaml:"request"`

	Cache struct {
		URL       string `yaml:"url"`
		TTL       string `yaml:"ttl"`
		Memcached struct {
			Timeout      string `yaml:"timeout"`
			MaxIdleConns int    `yaml:"max_idle_conns"`
		} `yaml:"memcached"`
		Coalesce struct {
			Enabled bool   `yaml:"enabled"`
			Timeout string `yaml:"timeout"`
		} `yaml:"coalesce"`
		Warm struct {
			Cities   []string `yaml:"cities"`
			Days     int      `yaml:"days"`
			Interval string   `yaml:"interval"`
		} `yaml:"warm"`
	} `yaml:"cache"`

	Metrics struct {
		TrackedCities []string `yaml:"tracked_cities"`
	} `yaml:"metrics"`

	Shutdown struct {
		Timeout               string `yaml:"timeout"`
		InFlightTimeout       string `yaml:"in_flight_timeout"`
		InFlightCheckInterval string `yaml:"in_flight_check_interval"`
	} `yaml:"shutdown"`
}

// Load reads configuration from config/{ENV_NAME}.yaml (default dev) when the
// file exists, then applies env overrides (PORT, GEOCODE_API_URL,
// ARCHIVE_API_URL, CACHE_URL, CACHE_TTL, MAX_DAYS). A missing file is not an
// error; defaults cover every field.
func Load() (*Config, error) {
	env := os.Getenv("ENV_NAME")
	if env == "" {
		env = "dev"
	}

	var fc fileConfig
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("config: get working directory: %w", err)
	}
	configPath := filepath.Join(cwd, "config", env+".yaml")
	data, err := os.ReadFile(configPath)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	} else if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	cfg := &Config{}

	cfg.ServerPort = firstNonEmpty(os.Getenv("PORT"), fc.Server.Port, "8080")

	cfg.GeocodeURL = firstNonEmpty(os.Getenv("GEOCODE_API_URL"), fc.Upstream.GeocodeURL)
	cfg.GeocodeTimeout = parseDuration(fc.Upstream.GeocodeTimeout, 20*time.Second)
	cfg.ArchiveURL = firstNonEmpty(os.Getenv("ARCHIVE_API_URL"), fc.Upstream.ArchiveURL)
	cfg.ArchiveTimeout = parseDuration(fc.Upstream.ArchiveTimeout, 30*time.Second)
	cfg.ArchiveConnectTimeout = parseDuration(fc.Upstream.ArchiveConnectTimeout, 10*time.Second)

	cfg.RequestTimeout = parseDuration(fc.Request.Timeout, 60*time.Second)
	cfg.CityMaxLength = fc.Request.CityMaxLength
	if cfg.CityMaxLength <= 0 {
		cfg.CityMaxLength = 100
	}
	cfg.MaxDays = fc.Request.MaxDays
	if raw := strings.TrimSpace(os.Getenv("MAX_DAYS")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("MAX_DAYS must be a non-negative integer, got %q", raw)
		}
		cfg.MaxDays = n
	}

	cfg.CacheURL = firstNonEmpty(os.Getenv("CACHE_URL"), fc.Cache.URL)
	cfg.CacheTTL = parseDuration(firstNonEmpty(os.Getenv("CACHE_TTL"), fc.Cache.TTL), 30*time.Minute)

	cfg.MemcachedTimeout = parseDuration(fc.Cache.Memcached.Timeout, 500*time.Millisecond)
	cfg.MemcachedMaxIdleConns = fc.Cache.Memcached.MaxIdleConns
	if cfg.MemcachedMaxIdleConns <= 0 {
		cfg.MemcachedMaxIdleConns = 2
	}

	cfg.CoalesceEnabled = fc.Cache.Coalesce.Enabled
	cfg.CoalesceTimeout = parseDuration(fc.Cache.Coalesce.Timeout, 35*time.Second)

	cfg.WarmCities = fc.Cache.Warm.Cities
	cfg.WarmDays = fc.Cache.Warm.Days
	if cfg.WarmDays <= 0 {
		cfg.WarmDays = 7
	}
	cfg.WarmInterval = parseDurationOrZero(fc.Cache.Warm.Interval, 0)

	cfg.TrackedCities = fc.Metrics.TrackedCities

	cfg.ShutdownTimeout = parseDuration(fc.Shutdown.Timeout, 30*time.Second)
	cfg.ShutdownInFlightTimeout = parseDuration(fc.Shutdown.InFlightTimeout, 10*time.Second)
	cfg.ShutdownInFlightCheckInterval = parseDuration(fc.Shutdown.InFlightCheckInterval, 100*time.Millisecond)

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}

// parseDuration parses a duration string and returns defaultVal if parsing
// fails or the result is <= 0.
func parseDuration(s string, defaultVal time.Duration) time.Duration {
	d := parseDurationOrZero(s, defaultVal)
	if d <= 0 {
		return defaultVal
	}
	return d
}

// parseDurationOrZero parses a duration string, returning defaultVal on
// empty string or parse error. Zero or negative values pass through.
func parseDurationOrZero(s string, defaultVal time.Duration) time.Duration {
	s = strings.TrimSpace(s)
	if s == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return defaultVal
	}
	return d
}

// validate performs post-load validation. The request timeout must cover the
// sequential geocode + archive budget; it is raised when it does not.
func validate(cfg *Config) error {
	if budget := cfg.GeocodeTimeout + cfg.ArchiveTimeout; cfg.RequestTimeout <= budget {
		cfg.RequestTimeout = budget + 5*time.Second
	}
	if cfg.CacheURL != "" &&
		!strings.HasPrefix(cfg.CacheURL, "redis://") &&
		!strings.HasPrefix(cfg.CacheURL, "rediss://") &&
		!strings.HasPrefix(cfg.CacheURL, "memcached://") {
		return fmt.Errorf("cache.url must start with redis://, rediss:// or memcached://, got %q", cfg.CacheURL)
	}
	return nil
}
