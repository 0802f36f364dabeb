package config

import (
	"fmt"
	"net/url"

	"github.com/robfig/cron/v3"

	"github.com/IshaanNene/HelmetPulse/internal/catalog"
)

// Validate checks the configuration for invalid values.
func Validate(cfg *Config) error {
	if cfg.Database.Driver != "postgres" && cfg.Database.Driver != "sqlite" {
		return fmt.Errorf("database.driver must be 'postgres' or 'sqlite', got %q", cfg.Database.Driver)
	}
	if cfg.Database.URL == "" {
		return fmt.Errorf("database.url is required (set DATABASE_URL)")
	}
	if cfg.Database.PageSize < 1 {
		return fmt.Errorf("database.page_size must be >= 1, got %d", cfg.Database.PageSize)
	}

	if cfg.Fetcher.RequestTimeout <= 0 {
		return fmt.Errorf("fetcher.request_timeout must be > 0")
	}
	if cfg.Fetcher.MaxBodySize <= 0 {
		return fmt.Errorf("fetcher.max_body_size must be > 0")
	}
	if cfg.Fetcher.MaxRedirects < 0 {
		return fmt.Errorf("fetcher.max_redirects must be >= 0")
	}

	for _, name := range []string{"rsa", "radtke", "fanatics", "ebay"} {
		sc, _ := cfg.Collectors.Source(name)
		if err := ValidateURL(sc.BaseURL); err != nil {
			return fmt.Errorf("collectors.%s.base_url: %w", name, err)
		}
		if sc.Delay < 0 {
			return fmt.Errorf("collectors.%s.delay must be >= 0", name)
		}
		if sc.MaxPages < 1 {
			return fmt.Errorf("collectors.%s.max_pages must be >= 1, got %d", name, sc.MaxPages)
		}
		if !catalog.HelmetType(sc.DefaultHelmetType).Valid() {
			return fmt.Errorf("collectors.%s.default_helmet_type %q is not a helmet type", name, sc.DefaultHelmetType)
		}
	}

	if cfg.ScrapingService.APIKey != "" {
		if err := ValidateURL(cfg.ScrapingService.Endpoint); err != nil {
			return fmt.Errorf("scraping_service.endpoint: %w", err)
		}
	}

	switch cfg.Cache.Type {
	case "file":
		if cfg.Cache.Path == "" {
			return fmt.Errorf("cache.path is required for the file cache")
		}
	case "mongo":
		if cfg.Cache.MongoURI == "" {
			return fmt.Errorf("cache.mongo_uri is required for the mongo cache (set MONGO_URI)")
		}
	default:
		return fmt.Errorf("cache.type %q is not supported (valid: file, mongo)", cfg.Cache.Type)
	}

	if cfg.Importer.SettleTime < 0 {
		return fmt.Errorf("importer.settle_time must be >= 0")
	}

	if cfg.Notifier.Delay < 0 {
		return fmt.Errorf("notifier.delay must be >= 0")
	}
	if cfg.Notifier.Schedule != "" {
		if _, err := cron.ParseStandard(cfg.Notifier.Schedule); err != nil {
			return fmt.Errorf("notifier.schedule: %w", err)
		}
	}
	if cfg.Notifier.SMTP.Port < 0 || cfg.Notifier.SMTP.Port > 65535 {
		return fmt.Errorf("notifier.smtp.port must be 0-65535, got %d", cfg.Notifier.SMTP.Port)
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[cfg.Logging.Level] {
		return fmt.Errorf("logging.level must be debug/info/warn/error, got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" && cfg.Logging.Format != "json" {
		return fmt.Errorf("logging.format must be 'text' or 'json', got %q", cfg.Logging.Format)
	}

	if cfg.Metrics.Enabled {
		if cfg.Metrics.Port < 1 || cfg.Metrics.Port > 65535 {
			return fmt.Errorf("metrics.port must be 1-65535, got %d", cfg.Metrics.Port)
		}
	}

	return nil
}

// ValidateURL checks if a URL string is an absolute http(s) URL.
func ValidateURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("URL scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("URL must have a host")
	}
	return nil
}
