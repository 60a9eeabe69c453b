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
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	PostgREST  PostgRESTConfig  `yaml:"postgrest" mapstructure:"postgrest"`
	Reference  ReferenceConfig  `yaml:"reference" mapstructure:"reference"`
	Reconcile  ReconcileConfig  `yaml:"reconcile" mapstructure:"reconcile"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Monitoring MonitoringConfig `yaml:"monitoring" mapstructure:"monitoring"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the record store backend.
type StoreConfig struct {
	// Driver is one of "sqlite", "postgres" or "postgrest".
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	Table       string `yaml:"table" mapstructure:"table"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// PostgRESTConfig holds the hosted REST endpoint settings.
type PostgRESTConfig struct {
	BaseURL    string  `yaml:"base_url" mapstructure:"base_url"`
	APIKey     string  `yaml:"api_key" mapstructure:"api_key"`
	RatePerSec float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
	PageSize   int     `yaml:"page_size" mapstructure:"page_size"`

	MaxAttempts      int           `yaml:"max_attempts" mapstructure:"max_attempts"`
	InitialBackoff   time.Duration `yaml:"initial_backoff" mapstructure:"initial_backoff"`
	FailureThreshold int           `yaml:"failure_threshold" mapstructure:"failure_threshold"`
	ResetTimeout     time.Duration `yaml:"reset_timeout" mapstructure:"reset_timeout"`
}

// ReferenceConfig points at the reference tables. An empty path uses the
// tables compiled into the binary.
type ReferenceConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// ReconcileConfig configures reconcile runs.
type ReconcileConfig struct {
	Concurrency int  `yaml:"concurrency" mapstructure:"concurrency"`
	DryRun      bool `yaml:"dry_run" mapstructure:"dry_run"`
	OnlyUnzoned bool `yaml:"only_unzoned" mapstructure:"only_unzoned"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// MonitoringConfig configures run health alerts. A zero threshold disables
// that check; an empty webhook URL disables delivery.
type MonitoringConfig struct {
	WebhookURL            string  `yaml:"webhook_url" mapstructure:"webhook_url"`
	FailureRateThreshold  float64 `yaml:"failure_rate_threshold" mapstructure:"failure_rate_threshold"`
	UnzonedThreshold      int     `yaml:"unzoned_threshold" mapstructure:"unzoned_threshold"`
	StoreFailureThreshold int     `yaml:"store_failure_threshold" mapstructure:"store_failure_threshold"`
	CheckIntervalSecs     int     `yaml:"check_interval_secs" mapstructure:"check_interval_secs"`
	LookbackRuns          int     `yaml:"lookback_runs" mapstructure:"lookback_runs"`
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
	v.SetEnvPrefix("PARTNER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "partners.db")
	v.SetDefault("store.table", "marketing_partners")
	v.SetDefault("postgrest.rate_per_sec", 10)
	v.SetDefault("postgrest.page_size", 1000)
	v.SetDefault("postgrest.max_attempts", 3)
	v.SetDefault("postgrest.initial_backoff", 250*time.Millisecond)
	v.SetDefault("postgrest.failure_threshold", 5)
	v.SetDefault("postgrest.reset_timeout", 30*time.Second)
	v.SetDefault("reference.path", "")
	v.SetDefault("reconcile.concurrency", 1)
	v.SetDefault("reconcile.dry_run", false)
	v.SetDefault("reconcile.only_unzoned", false)
	v.SetDefault("server.port", 8080)
	v.SetDefault("monitoring.webhook_url", "")
	v.SetDefault("monitoring.failure_rate_threshold", 0.2)
	v.SetDefault("monitoring.unzoned_threshold", 25)
	v.SetDefault("monitoring.store_failure_threshold", 1)
	v.SetDefault("monitoring.check_interval_secs", 300)
	v.SetDefault("monitoring.lookback_runs", 20)
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

// Validate checks the settings a command mode depends on. Modes are
// "reconcile", "import", "serve" and "tables"; all problems are reported
// together.
func (c *Config) Validate(mode string) error {
	var errs []string

	switch mode {
	case "reconcile", "import":
		errs = append(errs, c.validateStore()...)
	case "serve":
		errs = append(errs, c.validateStore()...)
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, "server.port must be > 0 and <= 65535")
		}
	case "tables":
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if c.Reconcile.Concurrency < 1 || c.Reconcile.Concurrency > 64 {
		errs = append(errs, "reconcile.concurrency must be between 1 and 64")
	}

	if c.Monitoring.FailureRateThreshold < 0 || c.Monitoring.FailureRateThreshold > 1 {
		errs = append(errs, "monitoring.failure_rate_threshold must be between 0 and 1")
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

func (c *Config) validateStore() []string {
	var errs []string
	switch c.Store.Driver {
	case "sqlite", "postgres":
		if c.Store.DatabaseURL == "" {
			errs = append(errs, "store.database_url is required")
		}
	case "postgrest":
		if c.PostgREST.BaseURL == "" {
			errs = append(errs, "postgrest.base_url is required")
		}
		if c.PostgREST.APIKey == "" {
			errs = append(errs, "postgrest.api_key is required")
		}
	default:
		errs = append(errs, "store.driver must be one of sqlite, postgres, postgrest")
	}
	if c.Store.MinConns > 0 && c.Store.MaxConns > 0 && c.Store.MinConns > c.Store.MaxConns {
		errs = append(errs, "store.min_conns must be <= store.max_conns")
	}
	return errs
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
