package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/use-agent/langtable/models"
)

func TestDefaultsValidate(t *testing.T) {
	cfg := Defaults()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, models.DefaultRetryPolicy(), cfg.Retry)
	assert.Equal(t, DefaultJSONPath, cfg.Output.JSONPath)
	assert.Equal(t, AppName+".db", filepath.Base(cfg.Output.SQLitePath))
}

func TestLoadFile_Precedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "langtable.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
retry:
  max_attempts: 5
  inter_attempt_delay: 250ms
crawl:
  href_prefix: /items/
  item_delay: 1s
log:
  format: json
`), 0o644))

	t.Setenv("LANGTABLE_MAX_ATTEMPTS", "7")
	t.Setenv("LANGTABLE_SQLITE", "true")

	cfg, err := LoadFile(path)
	require.NoError(t, err)

	// env beats file
	assert.Equal(t, 7, cfg.Retry.MaxAttempts)
	// file beats defaults
	assert.Equal(t, 250*time.Millisecond, cfg.Retry.InterAttemptDelay)
	assert.Equal(t, "/items/", cfg.Crawl.HrefPrefix)
	assert.Equal(t, time.Second, cfg.Crawl.ItemDelay)
	assert.Equal(t, "json", cfg.Log.Format)
	// untouched keys keep defaults
	assert.Equal(t, models.DefaultPrimaryTimeout, cfg.Retry.PrimaryTimeout)
	assert.Equal(t, DefaultIndexURL, cfg.Crawl.IndexURL)
	assert.True(t, cfg.Output.SQLiteEnabled)
}

func TestLoadFile_Errors(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("retry: [not, a, map"), 0o644))
	_, err = LoadFile(bad)
	require.Error(t, err)
}

func TestEnvHelpers_IgnoreGarbage(t *testing.T) {
	t.Setenv("LANGTABLE_MAX_ATTEMPTS", "many")
	t.Setenv("LANGTABLE_RETRY_DELAY", "soon")
	t.Setenv("LANGTABLE_API_KEYS", " a , ,b ")

	cfg, err := LoadFile("")
	require.NoError(t, err)
	assert.Equal(t, models.DefaultMaxAttempts, cfg.Retry.MaxAttempts)
	assert.Equal(t, models.DefaultInterAttemptDelay, cfg.Retry.InterAttemptDelay)
	assert.Equal(t, []string{"a", "b"}, cfg.Auth.APIKeys)
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("LANGTABLE_TEST_DOTENV=from-file\n"), 0o644))

	t.Setenv("LANGTABLE_TEST_DOTENV", "")
	require.NoError(t, os.Unsetenv("LANGTABLE_TEST_DOTENV"))

	require.NoError(t, LoadDotEnv(path, filepath.Join(dir, "absent.env")))
	assert.Equal(t, "from-file", os.Getenv("LANGTABLE_TEST_DOTENV"))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"relative index url", func(c *Config) { c.Crawl.IndexURL = "/wiki/Local_Specialty" }},
		{"ftp index url", func(c *Config) { c.Crawl.IndexURL = "ftp://example.com/x" }},
		{"zero attempts", func(c *Config) { c.Retry.MaxAttempts = 0 }},
		{"bad row selector", func(c *Config) { c.Crawl.RowSelector = "tr[" }},
		{"empty title selector", func(c *Config) { c.Crawl.TitleSelector = "" }},
		{"negative item delay", func(c *Config) { c.Crawl.ItemDelay = -time.Second }},
		{"negative max items", func(c *Config) { c.Crawl.MaxItems = -1 }},
		{"no outputs", func(c *Config) { c.Output.JSONPath = "" }},
		{"unknown log format", func(c *Config) { c.Log.Format = "xml" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)

			var se *models.ScrapeError
			require.ErrorAs(t, err, &se)
			assert.Equal(t, models.ErrCodeInvalidInput, se.Code)
		})
	}
}

func TestValidateServer(t *testing.T) {
	cfg := Defaults()
	require.Error(t, cfg.ValidateServer(), "auth enabled without keys")

	cfg.Auth.APIKeys = []string{"k"}
	require.NoError(t, cfg.ValidateServer())

	cfg.Server.Port = 70000
	require.Error(t, cfg.ValidateServer())

	cfg.Server.Port = 8080
	cfg.Output.Stdout = true
	err := cfg.ValidateServer()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "stdout")
}
