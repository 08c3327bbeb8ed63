package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// clearEnv blanks the env overrides Load honors so earlier shell state
// cannot leak into a test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"ENV_NAME", "PORT", "GEOCODE_API_URL", "ARCHIVE_API_URL", "CACHE_URL", "CACHE_TTL", "MAX_DAYS"} {
		t.Setenv(k, "")
	}
}

// chdir changes the working directory for the test and restores it on
// cleanup; it mirrors testing.T.Chdir, which needs Go 1.24+.
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(old); err != nil {
			t.Fatal(err)
		}
	})
}

func writeConfigFile(t *testing.T, dir, env, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Join(dir, "config"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "config", env+".yaml"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	clearEnv(t)
	chdir(t, t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.ServerPort != "8080" {
		t.Errorf("ServerPort = %q, want 8080", cfg.ServerPort)
	}
	if cfg.CacheTTL != 30*time.Minute {
		t.Errorf("CacheTTL = %v, want 30m", cfg.CacheTTL)
	}
	if cfg.MaxDays != 0 {
		t.Errorf("MaxDays = %d, want 0 (uncapped)", cfg.MaxDays)
	}
	if cfg.CityMaxLength != 100 {
		t.Errorf("CityMaxLength = %d, want 100", cfg.CityMaxLength)
	}
	if cfg.CacheURL != "" {
		t.Errorf("CacheURL = %q, want empty (in-memory)", cfg.CacheURL)
	}
	if cfg.GeocodeTimeout != 20*time.Second || cfg.ArchiveTimeout != 30*time.Second {
		t.Errorf("upstream timeouts = %v/%v", cfg.GeocodeTimeout, cfg.ArchiveTimeout)
	}
}

func TestLoad_FileValues(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	writeConfigFile(t, dir, "dev", `
server:
  port: "9090"
request:
  max_days: 30
cache:
  url: redis://localhost:6379/0
  ttl: 10m
  coalesce:
    enabled: true
    timeout: 40s
  warm:
    cities: [Tokyo, London]
    days: 5
    interval: 1h
metrics:
  tracked_cities: [Tokyo]
`)
	chdir(t, dir)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.ServerPort != "9090" {
		t.Errorf("ServerPort = %q, want 9090", cfg.ServerPort)
	}
	if cfg.MaxDays != 30 {
		t.Errorf("MaxDays = %d, want 30", cfg.MaxDays)
	}
	if cfg.CacheURL != "redis://localhost:6379/0" {
		t.Errorf("CacheURL = %q", cfg.CacheURL)
	}
	if cfg.CacheTTL != 10*time.Minute {
		t.Errorf("CacheTTL = %v, want 10m", cfg.CacheTTL)
	}
	if !cfg.CoalesceEnabled || cfg.CoalesceTimeout != 40*time.Second {
		t.Errorf("coalesce = %v/%v", cfg.CoalesceEnabled, cfg.CoalesceTimeout)
	}
	if len(cfg.WarmCities) != 2 || cfg.WarmDays != 5 || cfg.WarmInterval != time.Hour {
		t.Errorf("warm = %v/%d/%v", cfg.WarmCities, cfg.WarmDays, cfg.WarmInterval)
	}
	if len(cfg.TrackedCities) != 1 || cfg.TrackedCities[0] != "Tokyo" {
		t.Errorf("TrackedCities = %v", cfg.TrackedCities)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	writeConfigFile(t, dir, "dev", `
server:
  port: "9090"
cache:
  url: memcached://localhost:11211
  ttl: 10m
`)
	chdir(t, dir)

	t.Setenv("PORT", "7070")
	t.Setenv("CACHE_URL", "redis://cache.internal:6379")
	t.Setenv("CACHE_TTL", "5m")
	t.Setenv("MAX_DAYS", "14")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.ServerPort != "7070" {
		t.Errorf("ServerPort = %q, want env value 7070", cfg.ServerPort)
	}
	if cfg.CacheURL != "redis://cache.internal:6379" {
		t.Errorf("CacheURL = %q, want env value", cfg.CacheURL)
	}
	if cfg.CacheTTL != 5*time.Minute {
		t.Errorf("CacheTTL = %v, want 5m", cfg.CacheTTL)
	}
	if cfg.MaxDays != 14 {
		t.Errorf("MaxDays = %d, want 14", cfg.MaxDays)
	}
}

func TestLoad_EnvName(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	writeConfigFile(t, dir, "prod", `
server:
  port: "8443"
`)
	chdir(t, dir)
	t.Setenv("ENV_NAME", "prod")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.ServerPort != "8443" {
		t.Errorf("ServerPort = %q, want 8443 from prod config", cfg.ServerPort)
	}
}

func TestLoad_InvalidMaxDays(t *testing.T) {
	tests := []string{"abc", "-1", "1.5"}
	for _, raw := range tests {
		t.Run(raw, func(t *testing.T) {
			clearEnv(t)
			chdir(t, t.TempDir())
			t.Setenv("MAX_DAYS", raw)

			if _, err := Load(); err == nil {
				t.Fatalf("Load() with MAX_DAYS=%q should fail", raw)
			}
		})
	}
}

func TestLoad_RejectsUnknownCacheScheme(t *testing.T) {
	clearEnv(t)
	chdir(t, t.TempDir())
	t.Setenv("CACHE_URL", "postgres://localhost/weather")

	_, err := Load()
	if err == nil {
		t.Fatal("Load() should reject an unsupported cache scheme")
	}
	if !strings.Contains(err.Error(), "cache.url") {
		t.Errorf("error = %v, want mention of cache.url", err)
	}
}

func TestLoad_MalformedYAML(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	writeConfigFile(t, dir, "dev", "server: [not a mapping")
	chdir(t, dir)

	if _, err := Load(); err == nil {
		t.Fatal("Load() should fail on malformed YAML")
	}
}

func TestLoad_RequestTimeoutCoversUpstreamBudget(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	writeConfigFile(t, dir, "dev", `
upstream:
  geocode_timeout: 20s
  archive_timeout: 30s
request:
  timeout: 10s
`)
	chdir(t, dir)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got, want := cfg.RequestTimeout, 55*time.Second; got != want {
		t.Errorf("RequestTimeout = %v, want raised to %v", got, want)
	}
}
