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
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	Scoring   ScoringConfig   `yaml:"scoring" mapstructure:"scoring"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the balance/submission store backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// AnthropicConfig holds Anthropic API settings for the analysis client.
type AnthropicConfig struct {
	Key          string  `yaml:"key" mapstructure:"key"`
	Model        string  `yaml:"model" mapstructure:"model"`
	MaxTokens    int64   `yaml:"max_tokens" mapstructure:"max_tokens"`
	RequestsPerS float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	TimeoutSecs  int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// ScoringConfig configures the footprint scoring pipeline.
type ScoringConfig struct {
	// CalibrationEnabled controls whether AI kilogram hints are blended into
	// the deterministic estimate at all.
	CalibrationEnabled bool `yaml:"calibration_enabled" mapstructure:"calibration_enabled"`

	// BlendWeight is the weight given to the clamped AI estimate, in [0,1].
	BlendWeight float64 `yaml:"blend_weight" mapstructure:"blend_weight"`

	// RegionsFile optionally points at a YAML file of region profile
	// overrides merged over the built-in table at startup.
	RegionsFile string `yaml:"regions_file" mapstructure:"regions_file"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
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
	v.SetEnvPrefix("CARBON")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "carbon.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("anthropic.max_tokens", 1024)
	v.SetDefault("anthropic.requests_per_second", 2.0)
	v.SetDefault("anthropic.timeout_secs", 30)
	v.SetDefault("scoring.calibration_enabled", true)
	v.SetDefault("scoring.blend_weight", 0.35)

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

	if cfg.Scoring.BlendWeight < 0 || cfg.Scoring.BlendWeight > 1 {
		return nil, eris.Errorf("config: scoring.blend_weight must be in [0,1], got %v", cfg.Scoring.BlendWeight)
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
