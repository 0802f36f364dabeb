package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// envBindings maps config keys to the plain environment variables the
// deployment already exports (no HELMETPULSE_ prefix).
var envBindings = map[string]string{
	"database.url":             "DATABASE_URL",
	"notifier.smtp.host":       "SMTP_HOST",
	"notifier.smtp.port":       "SMTP_PORT",
	"notifier.smtp.user":       "SMTP_USER",
	"notifier.smtp.pass":       "SMTP_PASS",
	"notifier.api_base_url":    "API_BASE_URL",
	"scraping_service.api_key": "SCRAPER_API_KEY",
	"cache.mongo_uri":          "MONGO_URI",
}

// Load reads configuration from .env, file, and environment.
// Priority (highest to lowest): env vars > config file > defaults.
func Load(configPath string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env: %w", err)
	}

	cfg := DefaultConfig()

	v := viper.New()
	v.SetConfigType("yaml")

	setDefaults(v, cfg)

	v.SetEnvPrefix("HELMETPULSE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range envBindings {
		if err := v.BindEnv(key, "HELMETPULSE_"+strings.ToUpper(strings.ReplaceAll(key, ".", "_")), env); err != nil {
			return nil, fmt.Errorf("bind %s: %w", env, err)
		}
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("helmetpulse")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(filepath.Join(home, ".helmetpulse"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) || configPath != "" {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.Database.Driver == "sqlite" && isPostgresURL(cfg.Database.URL) {
		cfg.Database.Driver = "postgres"
	}

	return cfg, nil
}

func isPostgresURL(u string) bool {
	return strings.HasPrefix(u, "postgres://") || strings.HasPrefix(u, "postgresql://")
}

// setDefaults registers default values in viper so env-only overrides are seen by Unmarshal.
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("database.driver", cfg.Database.Driver)
	v.SetDefault("database.url", cfg.Database.URL)
	v.SetDefault("database.max_open_conns", cfg.Database.MaxOpenConns)
	v.SetDefault("database.page_size", cfg.Database.PageSize)

	v.SetDefault("fetcher.user_agent", cfg.Fetcher.UserAgent)
	v.SetDefault("fetcher.request_timeout", cfg.Fetcher.RequestTimeout)
	v.SetDefault("fetcher.follow_redirects", cfg.Fetcher.FollowRedirects)
	v.SetDefault("fetcher.max_redirects", cfg.Fetcher.MaxRedirects)
	v.SetDefault("fetcher.max_body_size", cfg.Fetcher.MaxBodySize)
	v.SetDefault("fetcher.idle_conn_timeout", cfg.Fetcher.IdleConnTimeout)
	v.SetDefault("fetcher.max_idle_conns", cfg.Fetcher.MaxIdleConns)
	v.SetDefault("fetcher.headless", cfg.Fetcher.Headless)
	v.SetDefault("fetcher.browser_bin", cfg.Fetcher.BrowserBin)

	for name, sc := range map[string]SourceConfig{
		"rsa":      cfg.Collectors.RSA,
		"radtke":   cfg.Collectors.Radtke,
		"fanatics": cfg.Collectors.Fanatics,
		"ebay":     cfg.Collectors.Ebay,
	} {
		prefix := "collectors." + name + "."
		v.SetDefault(prefix+"base_url", sc.BaseURL)
		v.SetDefault(prefix+"paths", sc.Paths)
		v.SetDefault(prefix+"max_pages", sc.MaxPages)
		v.SetDefault(prefix+"delay", sc.Delay)
		v.SetDefault(prefix+"default_helmet_type", sc.DefaultHelmetType)
	}

	v.SetDefault("scraping_service.api_key", cfg.ScrapingService.APIKey)
	v.SetDefault("scraping_service.endpoint", cfg.ScrapingService.Endpoint)
	v.SetDefault("scraping_service.render", cfg.ScrapingService.Render)

	v.SetDefault("cache.type", cfg.Cache.Type)
	v.SetDefault("cache.path", cfg.Cache.Path)
	v.SetDefault("cache.max_age", cfg.Cache.MaxAge)
	v.SetDefault("cache.mongo_uri", cfg.Cache.MongoURI)
	v.SetDefault("cache.mongo_database", cfg.Cache.MongoDatabase)
	v.SetDefault("cache.mongo_collection", cfg.Cache.MongoCollection)

	v.SetDefault("importer.dir", cfg.Importer.Dir)
	v.SetDefault("importer.processed_dir", cfg.Importer.ProcessedDir)
	v.SetDefault("importer.settle_time", cfg.Importer.SettleTime)

	v.SetDefault("notifier.subscribers_file", cfg.Notifier.SubscribersFile)
	v.SetDefault("notifier.api_base_url", cfg.Notifier.APIBaseURL)
	v.SetDefault("notifier.delay", cfg.Notifier.Delay)
	v.SetDefault("notifier.schedule", cfg.Notifier.Schedule)
	v.SetDefault("notifier.from", cfg.Notifier.From)
	v.SetDefault("notifier.subject", cfg.Notifier.Subject)
	v.SetDefault("notifier.smtp.host", cfg.Notifier.SMTP.Host)
	v.SetDefault("notifier.smtp.port", cfg.Notifier.SMTP.Port)
	v.SetDefault("notifier.smtp.user", cfg.Notifier.SMTP.User)
	v.SetDefault("notifier.smtp.pass", cfg.Notifier.SMTP.Pass)

	v.SetDefault("reconcile.strict", cfg.Reconcile.Strict)
	v.SetDefault("parser.rules_file", cfg.Parser.RulesFile)

	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.format", cfg.Logging.Format)
	v.SetDefault("logging.output", cfg.Logging.Output)

	v.SetDefault("metrics.enabled", cfg.Metrics.Enabled)
	v.SetDefault("metrics.port", cfg.Metrics.Port)
	v.SetDefault("metrics.path", cfg.Metrics.Path)
}
