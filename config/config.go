package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/adrg/xdg"

	"github.com/use-agent/langtable/cleaner"
	"github.com/use-agent/langtable/models"
)

// AppName is used for XDG data paths and the env var prefix.
const AppName = "langtable"

// Defaults for the crawl itself.
const (
	DefaultIndexURL           = "https://genshin-impact.fandom.com/wiki/Local_Specialty"
	DefaultHrefPrefix         = "/wiki/"
	DefaultScopeSelector      = ".mw-parser-output"
	DefaultContentWaitTimeout = 30 * time.Second
	DefaultTableWaitTimeout   = 30 * time.Second
	DefaultItemDelay          = 2 * time.Second
	DefaultJSONPath           = "scraped_items.json"
	DefaultUserAgent          = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/119.0.0.0 Safari/537.36"
)

// Config holds all application configuration.
type Config struct {
	Browser   BrowserConfig      `yaml:"browser"`
	Retry     models.RetryPolicy `yaml:"retry"`
	Crawl     CrawlConfig        `yaml:"crawl"`
	Output    OutputConfig       `yaml:"output"`
	Server    ServerConfig       `yaml:"server"`
	Auth      AuthConfig         `yaml:"auth"`
	RateLimit RateLimitConfig    `yaml:"rate_limit"`
	Cache     CacheConfig        `yaml:"cache"`
	Log       LogConfig          `yaml:"log"`
}

// BrowserConfig controls the Rod browser instance.
type BrowserConfig struct {
	// Headless controls whether the browser runs headless.
	Headless bool `yaml:"headless"` // default: true

	// NoSandbox disables Chrome's sandbox (needed in Docker).
	NoSandbox bool `yaml:"no_sandbox"` // default: false

	// BrowserBin overrides the Chromium binary path.
	BrowserBin string `yaml:"browser_bin"`

	// Proxy is the proxy URL for all browser traffic.
	Proxy string `yaml:"proxy"`

	UserAgent      string `yaml:"user_agent"`
	AcceptLanguage string `yaml:"accept_language"` // default: "en-US,en;q=0.9"

	ViewportWidth  int `yaml:"viewport_width"`  // default: 1280
	ViewportHeight int `yaml:"viewport_height"` // default: 720

	// Stealth injects go-rod/stealth before every document.
	Stealth bool `yaml:"stealth"` // default: true

	// BlockedResourceTypes lists resource types to block ("Image",
	// "Stylesheet", "Font", "Media", "Script"). Blocking switches the
	// network-idle wait to a DOM-stability wait.
	BlockedResourceTypes []string `yaml:"blocked_resource_types"`

	// BlockAds drops requests to well-known ad and tracking domains.
	BlockAds bool `yaml:"block_ads"`

	// ExtraHeaders are sent with every request.
	ExtraHeaders map[string]string `yaml:"extra_headers"`
}

// CrawlConfig controls the index → detail crawl.
type CrawlConfig struct {
	IndexURL   string `yaml:"index_url"`
	HrefPrefix string `yaml:"href_prefix"`

	// ScopeSelector restricts link collection to part of the index page.
	ScopeSelector string `yaml:"scope_selector"`
	TitleSelector string `yaml:"title_selector"`
	RowSelector   string `yaml:"row_selector"`

	// ContentWaitTimeout bounds the wait for ScopeSelector on the index page.
	ContentWaitTimeout time.Duration `yaml:"content_wait_timeout"`

	// TableWaitTimeout bounds the wait for translation rows on a detail page.
	TableWaitTimeout time.Duration `yaml:"table_wait_timeout"`

	// ItemDelay is the fixed pause after every detail page.
	ItemDelay time.Duration `yaml:"item_delay"`

	// MaxItems caps the number of detail pages visited (0 = all).
	MaxItems int `yaml:"max_items"`

	// RequestsPerSecond caps navigation attempts across the run (0 = off).
	RequestsPerSecond float64 `yaml:"requests_per_second"`
}

// OutputConfig selects where run results go.
type OutputConfig struct {
	// JSONPath is the JSON array file; empty disables it.
	JSONPath string `yaml:"json_path"`

	SQLiteEnabled bool   `yaml:"sqlite_enabled"`
	SQLitePath    string `yaml:"sqlite_path"`

	// Stdout also prints the JSON array to standard output.
	Stdout bool `yaml:"stdout"`
}

// ServerConfig controls the HTTP server.
type ServerConfig struct {
	Host string `yaml:"host"` // default: "0.0.0.0"
	Port int    `yaml:"port"` // default: 8080
	Mode string `yaml:"mode"` // "debug", "release", "test"; default: "release"
}

// AuthConfig controls API key authentication.
type AuthConfig struct {
	Enabled bool     `yaml:"enabled"` // default: true
	APIKeys []string `yaml:"api_keys"`
}

// RateLimitConfig controls per-key rate limiting of the API.
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second"` // default: 1
	Burst             int     `yaml:"burst"`               // default: 5
}

// CacheConfig controls the run report cache.
type CacheConfig struct {
	MaxEntries int           `yaml:"max_entries"` // default: 32
	TTL        time.Duration `yaml:"ttl"`         // default: 6h
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string `yaml:"level"`  // default: "info"
	Format string `yaml:"format"` // "json" or "text"; default: "text"
}

// Defaults returns the configuration used when nothing else is set.
func Defaults() *Config {
	return &Config{
		Browser: BrowserConfig{
			Headless:       true,
			UserAgent:      DefaultUserAgent,
			AcceptLanguage: "en-US,en;q=0.9",
			ViewportWidth:  1280,
			ViewportHeight: 720,
			Stealth:        true,
		},
		Retry: models.DefaultRetryPolicy(),
		Crawl: CrawlConfig{
			IndexURL:           DefaultIndexURL,
			HrefPrefix:         DefaultHrefPrefix,
			ScopeSelector:      DefaultScopeSelector,
			TitleSelector:      cleaner.DefaultTitleSelector,
			RowSelector:        cleaner.DefaultRowSelector,
			ContentWaitTimeout: DefaultContentWaitTimeout,
			TableWaitTimeout:   DefaultTableWaitTimeout,
			ItemDelay:          DefaultItemDelay,
		},
		Output: OutputConfig{
			JSONPath:   DefaultJSONPath,
			SQLitePath: DefaultSQLitePath(),
		},
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
			Mode: "release",
		},
		Auth: AuthConfig{
			Enabled: true,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 1,
			Burst:             5,
		},
		Cache: CacheConfig{
			MaxEntries: 32,
			TTL:        6 * time.Hour,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// DefaultSQLitePath places the database under the user's XDG data home.
func DefaultSQLitePath() string {
	return filepath.Join(xdg.DataHome, AppName, AppName+".db")
}

// Load builds the configuration from defaults, the YAML file named by
// LANGTABLE_CONFIG (if any) and then environment variables.
func Load() (*Config, error) {
	return LoadFile(os.Getenv("LANGTABLE_CONFIG"))
}

// LoadFile is Load with an explicit config file path. Precedence, lowest
// first: defaults, file, environment.
func LoadFile(path string) (*Config, error) {
	cfg := Defaults()
	if path != "" {
		if err := overlayFile(cfg, path); err != nil {
			return nil, err
		}
	}
	applyEnv(cfg)
	return cfg, nil
}

// applyEnv overrides cfg with any LANGTABLE_* variables that are set.
func applyEnv(cfg *Config) {
	b := &cfg.Browser
	b.Headless = envBoolOr("LANGTABLE_HEADLESS", b.Headless)
	b.NoSandbox = envBoolOr("LANGTABLE_NO_SANDBOX", b.NoSandbox)
	b.BrowserBin = envOr("LANGTABLE_BROWSER_BIN", b.BrowserBin)
	b.Proxy = envOr("LANGTABLE_PROXY", b.Proxy)
	b.UserAgent = envOr("LANGTABLE_USER_AGENT", b.UserAgent)
	b.AcceptLanguage = envOr("LANGTABLE_ACCEPT_LANGUAGE", b.AcceptLanguage)
	b.Stealth = envBoolOr("LANGTABLE_STEALTH", b.Stealth)
	b.BlockedResourceTypes = envSliceOr("LANGTABLE_BLOCKED_RESOURCES", b.BlockedResourceTypes)
	b.BlockAds = envBoolOr("LANGTABLE_BLOCK_ADS", b.BlockAds)

	r := &cfg.Retry
	r.MaxAttempts = envIntOr("LANGTABLE_MAX_ATTEMPTS", r.MaxAttempts)
	r.InterAttemptDelay = envDurationOr("LANGTABLE_RETRY_DELAY", r.InterAttemptDelay)
	r.PrimaryTimeout = envDurationOr("LANGTABLE_NAV_TIMEOUT", r.PrimaryTimeout)
	r.IdleTimeout = envDurationOr("LANGTABLE_IDLE_TIMEOUT", r.IdleTimeout)

	c := &cfg.Crawl
	c.IndexURL = envOr("LANGTABLE_INDEX_URL", c.IndexURL)
	c.HrefPrefix = envOr("LANGTABLE_HREF_PREFIX", c.HrefPrefix)
	c.ScopeSelector = envOr("LANGTABLE_SCOPE_SELECTOR", c.ScopeSelector)
	c.TitleSelector = envOr("LANGTABLE_TITLE_SELECTOR", c.TitleSelector)
	c.RowSelector = envOr("LANGTABLE_ROW_SELECTOR", c.RowSelector)
	c.ContentWaitTimeout = envDurationOr("LANGTABLE_CONTENT_WAIT", c.ContentWaitTimeout)
	c.TableWaitTimeout = envDurationOr("LANGTABLE_TABLE_WAIT", c.TableWaitTimeout)
	c.ItemDelay = envDurationOr("LANGTABLE_ITEM_DELAY", c.ItemDelay)
	c.MaxItems = envIntOr("LANGTABLE_MAX_ITEMS", c.MaxItems)
	c.RequestsPerSecond = envFloatOr("LANGTABLE_NAV_RPS", c.RequestsPerSecond)

	o := &cfg.Output
	o.JSONPath = envOr("LANGTABLE_OUTPUT", o.JSONPath)
	o.SQLiteEnabled = envBoolOr("LANGTABLE_SQLITE", o.SQLiteEnabled)
	o.SQLitePath = envOr("LANGTABLE_SQLITE_PATH", o.SQLitePath)
	o.Stdout = envBoolOr("LANGTABLE_STDOUT", o.Stdout)

	cfg.Server.Host = envOr("LANGTABLE_HOST", cfg.Server.Host)
	cfg.Server.Port = envIntOr("LANGTABLE_PORT", cfg.Server.Port)
	cfg.Server.Mode = envOr("LANGTABLE_MODE", cfg.Server.Mode)

	cfg.Auth.Enabled = envBoolOr("LANGTABLE_AUTH_ENABLED", cfg.Auth.Enabled)
	cfg.Auth.APIKeys = envSliceOr("LANGTABLE_API_KEYS", cfg.Auth.APIKeys)

	cfg.RateLimit.RequestsPerSecond = envFloatOr("LANGTABLE_RATE_RPS", cfg.RateLimit.RequestsPerSecond)
	cfg.RateLimit.Burst = envIntOr("LANGTABLE_RATE_BURST", cfg.RateLimit.Burst)

	cfg.Cache.MaxEntries = envIntOr("LANGTABLE_CACHE_MAX_ENTRIES", cfg.Cache.MaxEntries)
	cfg.Cache.TTL = envDurationOr("LANGTABLE_CACHE_TTL", cfg.Cache.TTL)

	cfg.Log.Level = envOr("LANGTABLE_LOG_LEVEL", cfg.Log.Level)
	cfg.Log.Format = envOr("LANGTABLE_LOG_FORMAT", cfg.Log.Format)
}

// --- helper functions ---

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBoolOr(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envFloatOr(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envSliceOr(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		return result
	}
	return fallback
}
