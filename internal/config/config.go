package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store   StoreConfig   `yaml:"store" mapstructure:"store"`
	Cache   CacheConfig   `yaml:"cache" mapstructure:"cache"`
	Scraper ScraperConfig `yaml:"scraper" mapstructure:"scraper"`
	LLM     LLMConfig     `yaml:"llm" mapstructure:"llm"`
	Kaggle  KaggleConfig  `yaml:"kaggle" mapstructure:"kaggle"`
	Server  ServerConfig  `yaml:"server" mapstructure:"server"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
	Debug   bool          `yaml:"debug" mapstructure:"debug"`
}

// StoreConfig configures the catalog database.
type StoreConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// CacheConfig configures the scrape cache tiers.
type CacheConfig struct {
	Path           string `yaml:"path" mapstructure:"path"`
	TTLDays        int    `yaml:"ttl_days" mapstructure:"ttl_days"`
	ContentTTLDays int    `yaml:"content_ttl_days" mapstructure:"content_ttl_days"`
}

// PageTTL is the lifetime of a scraped-page envelope.
func (c CacheConfig) PageTTL() time.Duration {
	days := c.TTLDays
	if days <= 0 {
		days = 1
	}
	return time.Duration(days) * 24 * time.Hour
}

// ContentTTL is the lifetime of a rendered article body.
func (c CacheConfig) ContentTTL() time.Duration {
	days := c.ContentTTLDays
	if days <= 0 {
		days = 3
	}
	return time.Duration(days) * 24 * time.Hour
}

// ScraperConfig configures the headless browser fetcher.
type ScraperConfig struct {
	Headless       bool   `yaml:"headless" mapstructure:"headless"`
	DelaySeconds   int    `yaml:"delay_seconds" mapstructure:"delay_seconds"`
	TimeoutSecs    int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	BaseURL        string `yaml:"base_url" mapstructure:"base_url"`
	MaxConcurrency int    `yaml:"max_concurrency" mapstructure:"max_concurrency"`
}

// Delay is the polite-scrape floor between successive page fetches.
func (c ScraperConfig) Delay() time.Duration {
	secs := c.DelaySeconds
	if secs <= 0 {
		secs = 2
	}
	return time.Duration(secs) * time.Second
}

// Timeout is the hard navigation timeout per page.
func (c ScraperConfig) Timeout() time.Duration {
	secs := c.TimeoutSecs
	if secs <= 0 {
		secs = 30
	}
	return time.Duration(secs) * time.Second
}

// LLMConfig configures the enrichment gateway.
type LLMConfig struct {
	Key           string `yaml:"key" mapstructure:"key"`
	Model         string `yaml:"model" mapstructure:"model"`
	MaxRetries    int    `yaml:"max_retries" mapstructure:"max_retries"`
	RetryDelaySec int    `yaml:"retry_delay_secs" mapstructure:"retry_delay_secs"`
	PromptsPath   string `yaml:"prompts_path" mapstructure:"prompts_path"`
}

// RetryDelay is the fixed wait between LLM retry attempts.
func (c LLMConfig) RetryDelay() time.Duration {
	secs := c.RetryDelaySec
	if secs <= 0 {
		secs = 2
	}
	return time.Duration(secs) * time.Second
}

// KaggleConfig holds platform API credentials.
type KaggleConfig struct {
	Username string `yaml:"username" mapstructure:"username"`
	Key      string `yaml:"key" mapstructure:"key"`
}

// ServerConfig configures the read API server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("COMPKB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.path", "compkb.db")
	v.SetDefault("cache.path", "compkb-cache.db")
	v.SetDefault("cache.ttl_days", 1)
	v.SetDefault("cache.content_ttl_days", 3)
	v.SetDefault("scraper.headless", true)
	v.SetDefault("scraper.delay_seconds", 2)
	v.SetDefault("scraper.timeout_secs", 30)
	v.SetDefault("scraper.base_url", "https://www.kaggle.com")
	v.SetDefault("scraper.max_concurrency", 1)
	v.SetDefault("llm.model", "claude-sonnet-4-5-20250929")
	v.SetDefault("llm.max_retries", 3)
	v.SetDefault("llm.retry_delay_secs", 2)
	v.SetDefault("server.port", 8000)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
