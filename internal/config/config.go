package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Cache     CacheConfig     `yaml:"cache" mapstructure:"cache"`
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	Fetch     FetchConfig     `yaml:"fetch" mapstructure:"fetch"`
	Extract   ExtractConfig   `yaml:"extract" mapstructure:"extract"`
	Classify  ClassifyConfig  `yaml:"classify" mapstructure:"classify"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// CacheConfig configures the date-scoped menu cache.
type CacheConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key   string `yaml:"key" mapstructure:"key"`
	Model string `yaml:"model" mapstructure:"model"`
}

// FetchConfig configures the page fetcher.
type FetchConfig struct {
	UserAgent    string  `yaml:"user_agent" mapstructure:"user_agent"`
	TimeoutSecs  int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxBodyBytes int64   `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
	RatePerSec   float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
}

// ExtractConfig configures the extraction pipeline.
type ExtractConfig struct {
	MaxTokens    int64 `yaml:"max_tokens" mapstructure:"max_tokens"`
	MaxToolTurns int   `yaml:"max_tool_turns" mapstructure:"max_tool_turns"`
	MaxTextChars int   `yaml:"max_text_chars" mapstructure:"max_text_chars"`
	MaxHTMLChars int   `yaml:"max_html_chars" mapstructure:"max_html_chars"`
}

// ClassifyConfig holds the daily-menu classifier thresholds. These are
// empirical constants tuned to Czech lunch-menu conventions; other locales
// should override them here rather than in code.
type ClassifyConfig struct {
	WindowRadius  int `yaml:"window_radius" mapstructure:"window_radius"`
	NavTermCutoff int `yaml:"nav_term_cutoff" mapstructure:"nav_term_cutoff"`
	PriceMin      int `yaml:"price_min" mapstructure:"price_min"`
	PriceMax      int `yaml:"price_max" mapstructure:"price_max"`
}

// ServerConfig configures the HTTP API server.
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
	v.SetEnvPrefix("MENUSCAN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("cache.path", "menuscan.db")
	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("fetch.timeout_secs", 15)
	v.SetDefault("fetch.max_body_bytes", 512*1024)
	v.SetDefault("fetch.rate_per_sec", 2.0)
	v.SetDefault("extract.max_tokens", 4096)
	v.SetDefault("extract.max_tool_turns", 5)
	v.SetDefault("extract.max_text_chars", 15000)
	v.SetDefault("extract.max_html_chars", 8000)
	v.SetDefault("classify.window_radius", 400)
	v.SetDefault("classify.nav_term_cutoff", 3)
	v.SetDefault("classify.price_min", 60)
	v.SetDefault("classify.price_max", 200)
	v.SetDefault("server.port", 8080)
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
