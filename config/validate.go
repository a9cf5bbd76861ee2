package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/use-agent/langtable/cleaner"
	"github.com/use-agent/langtable/models"
)

// Validate checks the configuration a crawl depends on. Server, auth and
// cache settings are checked only by the serve command.
func (c *Config) Validate() error {
	if err := ValidateIndexURL(c.Crawl.IndexURL); err != nil {
		return err
	}
	if err := c.Retry.Validate(); err != nil {
		return err
	}
	if err := cleaner.ValidateSelectors(c.Crawl.ScopeSelector, c.Crawl.TitleSelector, c.Crawl.RowSelector); err != nil {
		return models.NewScrapeError(models.ErrCodeInvalidInput, err.Error(), err)
	}
	if c.Crawl.TitleSelector == "" || c.Crawl.RowSelector == "" {
		return invalid("title and row selectors are required")
	}
	if c.Crawl.TableWaitTimeout <= 0 || c.Crawl.ContentWaitTimeout <= 0 {
		return invalid("content and table wait timeouts must be positive")
	}
	if c.Crawl.ItemDelay < 0 {
		return invalid("item delay must not be negative")
	}
	if c.Crawl.MaxItems < 0 {
		return invalid("max items must not be negative")
	}
	if c.Crawl.RequestsPerSecond < 0 {
		return invalid("navigation rate must not be negative")
	}
	if c.Output.JSONPath == "" && !c.Output.SQLiteEnabled && !c.Output.Stdout {
		return invalid("no output configured: set a JSON path, enable sqlite or stdout")
	}
	if c.Output.SQLiteEnabled && c.Output.SQLitePath == "" {
		return invalid("sqlite output enabled without a path")
	}
	switch strings.ToLower(c.Log.Format) {
	case "json", "text":
	default:
		return invalid(fmt.Sprintf("unknown log format %q", c.Log.Format))
	}
	return nil
}

// ValidateServer checks the settings only the HTTP server uses.
func (c *Config) ValidateServer() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return invalid(fmt.Sprintf("invalid port %d", c.Server.Port))
	}
	if c.Auth.Enabled && len(c.Auth.APIKeys) == 0 {
		return invalid("auth is enabled but no API keys are configured")
	}
	if c.RateLimit.RequestsPerSecond <= 0 || c.RateLimit.Burst <= 0 {
		return invalid("rate limit must be positive")
	}
	if c.Output.Stdout {
		return invalid("stdout output cannot be used with serve: stdout carries the server log")
	}
	return nil
}

// ValidateIndexURL accepts absolute http(s) URLs only.
func ValidateIndexURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return models.NewScrapeError(models.ErrCodeInvalidInput, "invalid index URL: "+err.Error(), err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return invalid("index URL must use http or https")
	}
	if u.Host == "" {
		return invalid("index URL has no host")
	}
	return nil
}

func invalid(msg string) error {
	return models.NewScrapeError(models.ErrCodeInvalidInput, msg, nil)
}
