// Package config loads and validates sourcing service configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Fetch    FetchConfig    `mapstructure:"fetch"`
	Headless HeadlessConfig `mapstructure:"headless"`
	Extract  ExtractConfig  `mapstructure:"extract"`
	Taxonomy TaxonomyConfig `mapstructure:"taxonomy"`
	Pricing  PricingConfig  `mapstructure:"pricing"`
	Listing  ListingConfig  `mapstructure:"listing"`
	Scoring  ScoringConfig  `mapstructure:"scoring"`
	Export   ExportConfig   `mapstructure:"export"`
	Batch    BatchConfig    `mapstructure:"batch"`
	Storage  StorageConfig  `mapstructure:"storage"`
	DB       DBConfig       `mapstructure:"db"`
	PubSub   PubSubConfig   `mapstructure:"pubsub"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port               int `mapstructure:"port"`
	RequestTimeoutSecs int `mapstructure:"request_timeout_seconds"`
}

// AuthConfig defines API authentication toggles.
type AuthConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	APIKey  string `mapstructure:"api_key"`
}

// FetchConfig governs the page fetcher and per-host politeness.
type FetchConfig struct {
	TimeoutSeconds  int     `mapstructure:"timeout_seconds"`
	UserAgent       string  `mapstructure:"user_agent"`
	RespectRobots   bool    `mapstructure:"respect_robots"`
	PerHostRPS      float64 `mapstructure:"per_host_rps"`
	PerHostBurst    int     `mapstructure:"per_host_burst"`
	MaxBodyBytes    int     `mapstructure:"max_body_bytes"`
	AcceptLanguage  string  `mapstructure:"accept_language"`
	HeadlessPromote bool    `mapstructure:"headless_promote"`
}

// HeadlessConfig configures the headless rendering subsystem.
type HeadlessConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	MaxParallel   int  `mapstructure:"max_parallel"`
	NavTimeoutSec int  `mapstructure:"nav_timeout_seconds"`
	MinBodyBytes  int  `mapstructure:"min_body_bytes"`
}

// ExtractConfig bounds extracted text and imagery.
type ExtractConfig struct {
	DescriptionMaxRunes int `mapstructure:"description_max_runes"`
	MaxImages           int `mapstructure:"max_images"`
}

// TaxonomyConfig controls snapshot refresh and origin fallback.
type TaxonomyConfig struct {
	RefreshIntervalSeconds int    `mapstructure:"refresh_interval_seconds"`
	SeedPath               string `mapstructure:"seed_path"`
	DefaultOriginCode      string `mapstructure:"default_origin_code"`
	DefaultOriginRegion    string `mapstructure:"default_origin_region"`
}

// PricingConfig controls sale price derivation.
type PricingConfig struct {
	DefaultMarginPercent float64 `mapstructure:"default_margin_percent"`
	RoundTo              int64   `mapstructure:"round_to"`
}

// ListingConfig holds seller-side defaults applied to every new record.
type ListingConfig struct {
	Stock          int    `mapstructure:"stock"`
	TaxType        string `mapstructure:"tax_type"`
	ShippingMethod string `mapstructure:"shipping_method"`
	Carrier        string `mapstructure:"carrier"`
	FeeType        string `mapstructure:"fee_type"`
	BaseFee        int64  `mapstructure:"base_fee"`
	ReturnFee      int64  `mapstructure:"return_fee"`
	ExchangeFee    int64  `mapstructure:"exchange_fee"`
	ASPhone        string `mapstructure:"as_phone"`
	ASGuide        string `mapstructure:"as_guide"`
}

// ScoringConfig controls readiness gating.
type ScoringConfig struct {
	ExportReadyThreshold int `mapstructure:"export_ready_threshold"`
}

// ExportConfig controls export artifacts.
type ExportConfig struct {
	Archive bool   `mapstructure:"archive"`
	Prefix  string `mapstructure:"prefix"`
}

// BatchConfig bounds batch fan-out.
type BatchConfig struct {
	Concurrency int `mapstructure:"concurrency"`
	MaxItems    int `mapstructure:"max_items"`
}

// StorageConfig selects the record and blob backends.
type StorageConfig struct {
	Backend     string `mapstructure:"backend"`
	Blob        string `mapstructure:"blob"`
	LocalDir    string `mapstructure:"local_dir"`
	GCSBucket   string `mapstructure:"gcs_bucket"`
	Prefix      string `mapstructure:"prefix"`
	ContentType string `mapstructure:"content_type"`
	ArchiveRaw  bool   `mapstructure:"archive_raw"`
}

// DBConfig controls access to the relational database.
type DBConfig struct {
	DSN           string `mapstructure:"dsn"`
	ProductsTable string `mapstructure:"products_table"`
	MaxConns      int    `mapstructure:"max_conns"`
	Migrate       bool   `mapstructure:"migrate"`
}

// PubSubConfig holds metadata for publish-subscribe notifications.
type PubSubConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	ProjectID string `mapstructure:"project_id"`
	TopicName string `mapstructure:"topic_name"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("SOURCER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.request_timeout_seconds", 120)
	v.SetDefault("fetch.timeout_seconds", 15)
	v.SetDefault("fetch.user_agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36")
	v.SetDefault("fetch.respect_robots", false)
	v.SetDefault("fetch.per_host_rps", 1.0)
	v.SetDefault("fetch.per_host_burst", 2)
	v.SetDefault("fetch.max_body_bytes", 10<<20)
	v.SetDefault("fetch.accept_language", "ko-KR,ko;q=0.9,en-US;q=0.8")
	v.SetDefault("fetch.headless_promote", false)
	v.SetDefault("headless.enabled", false)
	v.SetDefault("headless.max_parallel", 1)
	v.SetDefault("headless.nav_timeout_seconds", 25)
	v.SetDefault("headless.min_body_bytes", 2048)
	v.SetDefault("extract.description_max_runes", 2000)
	v.SetDefault("extract.max_images", 20)
	v.SetDefault("taxonomy.refresh_interval_seconds", 600)
	v.SetDefault("taxonomy.default_origin_code", "00")
	v.SetDefault("taxonomy.default_origin_region", "국산")
	v.SetDefault("pricing.default_margin_percent", 30.0)
	v.SetDefault("pricing.round_to", 100)
	v.SetDefault("listing.stock", 999)
	v.SetDefault("listing.tax_type", "과세상품")
	v.SetDefault("listing.shipping_method", "택배, 소포, 등기")
	v.SetDefault("listing.carrier", "CJ대한통운")
	v.SetDefault("listing.fee_type", "유료")
	v.SetDefault("listing.base_fee", 3000)
	v.SetDefault("listing.return_fee", 3000)
	v.SetDefault("listing.exchange_fee", 6000)
	v.SetDefault("scoring.export_ready_threshold", 60)
	v.SetDefault("export.archive", false)
	v.SetDefault("export.prefix", "exports")
	v.SetDefault("batch.concurrency", 4)
	v.SetDefault("batch.max_items", 100)
	v.SetDefault("storage.backend", "memory")
	v.SetDefault("storage.blob", "none")
	v.SetDefault("storage.local_dir", "data")
	v.SetDefault("storage.prefix", "pages")
	v.SetDefault("storage.content_type", "text/html; charset=utf-8")
	v.SetDefault("storage.archive_raw", false)
	v.SetDefault("db.products_table", "products")
	v.SetDefault("db.max_conns", 4)
	v.SetDefault("db.migrate", true)
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Fetch.TimeoutSeconds <= 0 {
		return fmt.Errorf("fetch.timeout_seconds must be > 0")
	}
	if c.Fetch.PerHostRPS < 0 {
		return fmt.Errorf("fetch.per_host_rps must be >= 0")
	}
	if c.Headless.Enabled && c.Headless.MaxParallel <= 0 {
		return fmt.Errorf("headless.max_parallel must be > 0 when headless is enabled")
	}
	if c.Auth.Enabled && c.Auth.APIKey == "" {
		return fmt.Errorf("auth.api_key must be set when auth is enabled")
	}
	if c.Extract.DescriptionMaxRunes <= 0 {
		return fmt.Errorf("extract.description_max_runes must be > 0")
	}
	if c.Extract.MaxImages <= 0 {
		return fmt.Errorf("extract.max_images must be > 0")
	}
	if c.Pricing.DefaultMarginPercent < 0 || c.Pricing.DefaultMarginPercent >= 100 {
		return fmt.Errorf("pricing.default_margin_percent must be in [0, 100)")
	}
	if c.Scoring.ExportReadyThreshold < 0 || c.Scoring.ExportReadyThreshold > 100 {
		return fmt.Errorf("scoring.export_ready_threshold must be in [0, 100]")
	}
	if c.Batch.Concurrency <= 0 {
		return fmt.Errorf("batch.concurrency must be > 0")
	}
	if c.Taxonomy.DefaultOriginCode == "" {
		return fmt.Errorf("taxonomy.default_origin_code must be set")
	}
	switch c.Storage.Backend {
	case "memory":
	case "postgres":
		if c.DB.DSN == "" {
			return fmt.Errorf("db.dsn must be set when storage.backend is postgres")
		}
	default:
		return fmt.Errorf("storage.backend must be memory or postgres, got %q", c.Storage.Backend)
	}
	switch c.Storage.Blob {
	case "none", "":
	case "local":
		if c.Storage.LocalDir == "" {
			return fmt.Errorf("storage.local_dir must be set when storage.blob is local")
		}
	case "gcs":
		if c.Storage.GCSBucket == "" {
			return fmt.Errorf("storage.gcs_bucket must be set when storage.blob is gcs")
		}
	default:
		return fmt.Errorf("storage.blob must be none, local, or gcs, got %q", c.Storage.Blob)
	}
	if c.PubSub.Enabled && (c.PubSub.ProjectID == "" || c.PubSub.TopicName == "") {
		return fmt.Errorf("pubsub.project_id and pubsub.topic_name must be set when pubsub is enabled")
	}
	return nil
}

// FetchTimeout converts the fetch timeout into a duration.
func (c Config) FetchTimeout() time.Duration {
	return time.Duration(c.Fetch.TimeoutSeconds) * time.Second
}

// RefreshInterval converts the taxonomy refresh interval into a duration.
func (c Config) RefreshInterval() time.Duration {
	return time.Duration(c.Taxonomy.RefreshIntervalSeconds) * time.Second
}
