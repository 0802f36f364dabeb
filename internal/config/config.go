package config

import (
	"time"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Config is the root configuration for HelmetPulse.
type Config struct {
	Database        DatabaseConfig        `mapstructure:"database"         yaml:"database"`
	Fetcher         FetcherConfig         `mapstructure:"fetcher"          yaml:"fetcher"`
	Collectors      CollectorsConfig      `mapstructure:"collectors"       yaml:"collectors"`
	ScrapingService ScrapingServiceConfig `mapstructure:"scraping_service" yaml:"scraping_service"`
	Cache           CacheConfig           `mapstructure:"cache"            yaml:"cache"`
	Importer        ImporterConfig        `mapstructure:"importer"         yaml:"importer"`
	Notifier        NotifierConfig        `mapstructure:"notifier"         yaml:"notifier"`
	Reconcile       ReconcileConfig       `mapstructure:"reconcile"        yaml:"reconcile"`
	Parser          ParserConfig          `mapstructure:"parser"           yaml:"parser"`
	Logging         LoggingConfig         `mapstructure:"logging"          yaml:"logging"`
	Metrics         MetricsConfig         `mapstructure:"metrics"          yaml:"metrics"`
}

// DatabaseConfig selects the relational store.
type DatabaseConfig struct {
	Driver       string `mapstructure:"driver"         yaml:"driver"` // postgres, sqlite
	URL          string `mapstructure:"url"            yaml:"url"`
	MaxOpenConns int    `mapstructure:"max_open_conns" yaml:"max_open_conns"`
	PageSize     int    `mapstructure:"page_size"      yaml:"page_size"`
}

// FetcherConfig controls the shared HTTP and browser fetchers.
type FetcherConfig struct {
	UserAgent       string        `mapstructure:"user_agent"        yaml:"user_agent"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"   yaml:"request_timeout"`
	FollowRedirects bool          `mapstructure:"follow_redirects"  yaml:"follow_redirects"`
	MaxRedirects    int           `mapstructure:"max_redirects"     yaml:"max_redirects"`
	MaxBodySize     int64         `mapstructure:"max_body_size"     yaml:"max_body_size"`
	IdleConnTimeout time.Duration `mapstructure:"idle_conn_timeout" yaml:"idle_conn_timeout"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"    yaml:"max_idle_conns"`
	Headless        bool          `mapstructure:"headless"          yaml:"headless"`
	BrowserBin      string        `mapstructure:"browser_bin"       yaml:"browser_bin"`
}

// CollectorsConfig holds per-marketplace settings.
type CollectorsConfig struct {
	RSA      SourceConfig `mapstructure:"rsa"      yaml:"rsa"`
	Radtke   SourceConfig `mapstructure:"radtke"   yaml:"radtke"`
	Fanatics SourceConfig `mapstructure:"fanatics" yaml:"fanatics"`
	Ebay     SourceConfig `mapstructure:"ebay"     yaml:"ebay"`
}

// SourceConfig configures one collector.
type SourceConfig struct {
	BaseURL           string        `mapstructure:"base_url"            yaml:"base_url"`
	Paths             []string      `mapstructure:"paths"               yaml:"paths"`
	MaxPages          int           `mapstructure:"max_pages"           yaml:"max_pages"`
	Delay             time.Duration `mapstructure:"delay"               yaml:"delay"`
	DefaultHelmetType string        `mapstructure:"default_helmet_type" yaml:"default_helmet_type"`
}

// ScrapingServiceConfig configures the hosted crawling/rendering API.
type ScrapingServiceConfig struct {
	APIKey   string `mapstructure:"api_key"  yaml:"api_key"`
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint"`
	Render   bool   `mapstructure:"render"   yaml:"render"`
}

// CacheConfig controls the raw listing cache used by --use-cache.
type CacheConfig struct {
	Type            string        `mapstructure:"type"             yaml:"type"` // file, mongo
	Path            string        `mapstructure:"path"             yaml:"path"`
	MaxAge          time.Duration `mapstructure:"max_age"          yaml:"max_age"`
	MongoURI        string        `mapstructure:"mongo_uri"        yaml:"mongo_uri"`
	MongoDatabase   string        `mapstructure:"mongo_database"   yaml:"mongo_database"`
	MongoCollection string        `mapstructure:"mongo_collection" yaml:"mongo_collection"`
}

// ImporterConfig controls spreadsheet imports and the directory watcher.
type ImporterConfig struct {
	Dir          string        `mapstructure:"dir"           yaml:"dir"`
	ProcessedDir string        `mapstructure:"processed_dir" yaml:"processed_dir"`
	SettleTime   time.Duration `mapstructure:"settle_time"   yaml:"settle_time"`
}

// NotifierConfig controls the price alert mailer.
type NotifierConfig struct {
	SubscribersFile string        `mapstructure:"subscribers_file" yaml:"subscribers_file"`
	APIBaseURL      string        `mapstructure:"api_base_url"     yaml:"api_base_url"`
	Delay           time.Duration `mapstructure:"delay"            yaml:"delay"`
	Schedule        string        `mapstructure:"schedule"         yaml:"schedule"`
	From            string        `mapstructure:"from"             yaml:"from"`
	Subject         string        `mapstructure:"subject"          yaml:"subject"`
	SMTP            SMTPConfig    `mapstructure:"smtp"             yaml:"smtp"`
}

// SMTPConfig holds mail server credentials.
type SMTPConfig struct {
	Host string `mapstructure:"host" yaml:"host"`
	Port int    `mapstructure:"port" yaml:"port"`
	User string `mapstructure:"user" yaml:"user"`
	Pass string `mapstructure:"pass" yaml:"pass"`
}

// ReconcileConfig controls catalog matching.
type ReconcileConfig struct {
	// Strict disables the relaxed (player, team, type) and (player, team) lookups.
	Strict bool `mapstructure:"strict" yaml:"strict"`
}

// ParserConfig controls the title parser.
type ParserConfig struct {
	// RulesFile overrides the embedded rule tables.
	RulesFile string `mapstructure:"rules_file" yaml:"rules_file"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
	Output string `mapstructure:"output" yaml:"output"`
}

// MetricsConfig controls the counters endpoint for long-running commands.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Port    int    `mapstructure:"port"    yaml:"port"`
	Path    string `mapstructure:"path"    yaml:"path"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Driver:       "sqlite",
			URL:          "file:helmetpulse.db?_pragma=foreign_keys(1)",
			MaxOpenConns: 4,
			PageSize:     1000,
		},
		Fetcher: FetcherConfig{
			UserAgent:       "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			RequestTimeout:  30 * time.Second,
			FollowRedirects: true,
			MaxRedirects:    10,
			MaxBodySize:     10 * 1024 * 1024, // 10MB
			IdleConnTimeout: 90 * time.Second,
			MaxIdleConns:    20,
			Headless:        true,
		},
		Collectors: CollectorsConfig{
			RSA: SourceConfig{
				BaseURL:           "https://www.shoprsa.com",
				Paths:             []string{"/collections/autographed-helmets"},
				MaxPages:          40,
				Delay:             1 * time.Second,
				DefaultHelmetType: "fullsize-replica",
			},
			Radtke: SourceConfig{
				BaseURL:           "https://www.radtkesports.com",
				Paths:             []string{"/collections/autographed-mini-helmets", "/collections/autographed-full-size-helmets"},
				MaxPages:          30,
				Delay:             2 * time.Second,
				DefaultHelmetType: "mini",
			},
			Fanatics: SourceConfig{
				BaseURL:           "https://www.fanatics.com",
				Paths:             []string{"/nfl/autographed-helmets/o-1373+d-30113955+z-9-1372779539"},
				MaxPages:          20,
				Delay:             3 * time.Second,
				DefaultHelmetType: "fullsize-replica",
			},
			Ebay: SourceConfig{
				BaseURL:           "https://www.ebay.com",
				MaxPages:          1,
				Delay:             2 * time.Second,
				DefaultHelmetType: "fullsize-replica",
			},
		},
		ScrapingService: ScrapingServiceConfig{
			Endpoint: "https://api.scraperapi.com",
		},
		Cache: CacheConfig{
			Type:            "file",
			Path:            "./cache",
			MaxAge:          24 * time.Hour,
			MongoDatabase:   "helmetpulse",
			MongoCollection: "listings",
		},
		Importer: ImporterConfig{
			Dir:          "./imports",
			ProcessedDir: "./imports/processed",
			SettleTime:   2 * time.Second,
		},
		Notifier: NotifierConfig{
			SubscribersFile: "./subscribers.ndjson",
			APIBaseURL:      "http://localhost:3000",
			Delay:           500 * time.Millisecond,
			From:            "alerts@helmetpulse.com",
			Subject:         "Your weekly HelmetPulse price report",
			SMTP: SMTPConfig{
				Port: 587,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Port:    9090,
			Path:    "/metrics",
		},
	}
}

// Source returns the collector config for a source name.
func (c *CollectorsConfig) Source(name string) (SourceConfig, bool) {
	switch name {
	case "rsa":
		return c.RSA, true
	case "radtke":
		return c.Radtke, true
	case "fanatics":
		return c.Fanatics, true
	case "ebay":
		return c.Ebay, true
	}
	return SourceConfig{}, false
}
