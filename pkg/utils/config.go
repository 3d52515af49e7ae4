package utils

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Config is the environment-level configuration for the catalog core and
// the HTTP layer around it. Every field has a dev default so the server
// starts with no environment at all.
type Config struct {
	Addr string

	// CatalogRoot holds comics.json, chapters.json and one asset
	// directory per comic id.
	CatalogRoot string

	// BaseURL + StaticPath are used only to materialize relative asset
	// paths into externally dereferenceable URLs.
	BaseURL    string
	StaticPath string

	// FetchDir is the working directory where the external fetcher drops
	// its output directories.
	FetchDir     string
	FetchCommand string
	FetchArgs    []string
	FetchTimeout time.Duration

	// StoreBackend selects the catalog store implementation: "json"
	// (default) or "sqlite". DBPath is the database file used by the
	// sqlite backend.
	StoreBackend string
	DBPath       string

	RateLimitEnabled   bool
	RateLimitPerMinute int

	CacheEnabled bool
	CacheTTL     time.Duration

	SecurityEnabled bool
	MaxRequestSize  int64
}

func LoadConfig() Config {
	cfg := Config{
		Addr:               envOr("COMICHUB_ADDR", ":8080"),
		BaseURL:            strings.TrimRight(envOr("COMICHUB_BASE_URL", "http://localhost:8080"), "/"),
		StaticPath:         envOr("COMICHUB_STATIC_PATH", "/static"),
		FetchCommand:       envOr("COMICHUB_FETCH_CMD", "comic-fetch"),
		FetchTimeout:       envDuration("COMICHUB_FETCH_TIMEOUT", 10*time.Minute),
		StoreBackend:       envOr("COMICHUB_STORE_BACKEND", "json"),
		RateLimitEnabled:   envBool("COMICHUB_RATE_LIMIT_ENABLED", true),
		RateLimitPerMinute: envInt("COMICHUB_RATE_LIMIT_PER_MINUTE", 100),
		CacheEnabled:       envBool("COMICHUB_CACHE_ENABLED", true),
		CacheTTL:           envDuration("COMICHUB_CACHE_TTL", time.Hour),
		SecurityEnabled:    envBool("COMICHUB_SECURITY_ENABLED", true),
		MaxRequestSize:     int64(envInt("COMICHUB_MAX_REQUEST_SIZE", 10<<20)),
	}

	if root := os.Getenv("COMICHUB_CATALOG_ROOT"); root != "" {
		cfg.CatalogRoot = root
	} else {
		home, err := os.UserHomeDir()
		if err != nil || home == "" {
			home = "."
		}
		cfg.CatalogRoot = filepath.Join(home, ".comichub", "catalog")
	}

	if p := os.Getenv("COMICHUB_DB_PATH"); p != "" {
		cfg.DBPath = p
	} else {
		cfg.DBPath = filepath.Join(filepath.Dir(cfg.CatalogRoot), "catalog.db")
	}

	if dir := os.Getenv("COMICHUB_FETCH_DIR"); dir != "" {
		cfg.FetchDir = dir
	} else {
		cfg.FetchDir = filepath.Join(filepath.Dir(cfg.CatalogRoot), "fetch")
	}

	if args := os.Getenv("COMICHUB_FETCH_ARGS"); args != "" {
		cfg.FetchArgs = strings.Fields(args)
	}

	return cfg
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func envBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func envDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
