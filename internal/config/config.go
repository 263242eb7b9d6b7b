package config

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
	Source    SourceConfig    `yaml:"source" mapstructure:"source"`
	Cache     CacheConfig     `yaml:"cache" mapstructure:"cache"`
	Dashboard DashboardConfig `yaml:"dashboard" mapstructure:"dashboard"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port        int      `yaml:"port" mapstructure:"port"`
	CORSOrigins []string `yaml:"cors_origins" mapstructure:"cors_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// SourceConfig configures where boundaries and metrics are loaded from.
// Empty locations fall back to the built-in catalog and synthetic metrics.
type SourceConfig struct {
	BoundaryURL      string  `yaml:"boundary_url" mapstructure:"boundary_url"`
	BoundaryKeyField string  `yaml:"boundary_key_field" mapstructure:"boundary_key_field"`
	ShapefilePath    string  `yaml:"shapefile_path" mapstructure:"shapefile_path"`
	MetricsPath      string  `yaml:"metrics_path" mapstructure:"metrics_path"`
	MetricsURL       string  `yaml:"metrics_url" mapstructure:"metrics_url"`
	MetricsKeyColumn string  `yaml:"metrics_key_column" mapstructure:"metrics_key_column"`
	CKANBaseURL      string  `yaml:"ckan_base_url" mapstructure:"ckan_base_url"`
	CKANDataset      string  `yaml:"ckan_dataset" mapstructure:"ckan_dataset"`
	RateLimit        float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
	TimeoutSecs      int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	TempDir          string  `yaml:"temp_dir" mapstructure:"temp_dir"`
	// SimplifyTolerance is the boundary simplification tolerance in degrees;
	// 0 keeps full resolution.
	SimplifyTolerance float64 `yaml:"simplify_tolerance" mapstructure:"simplify_tolerance"`
}

// Timeout returns the per-request timeout.
func (s SourceConfig) Timeout() time.Duration {
	return time.Duration(s.TimeoutSecs) * time.Second
}

// DefaultCacheFile is the sqlite cache file created under source.temp_dir
// when cache.dsn is not set.
const DefaultCacheFile = "boundary_cache.db"

// CacheConfig configures the boundary cache.
type CacheConfig struct {
	Driver     string `yaml:"driver" mapstructure:"driver"`
	DSN        string `yaml:"dsn" mapstructure:"dsn"`
	TTLHours   int    `yaml:"ttl_hours" mapstructure:"ttl_hours"`
	MaxEntries int    `yaml:"max_entries" mapstructure:"max_entries"`
	Key        string `yaml:"key" mapstructure:"key"`
}

// TTL returns the entry lifetime. Zero means entries never expire.
func (c CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLHours) * time.Hour
}

// DashboardConfig configures the initial selection and table.
type DashboardConfig struct {
	DefaultMetric string `yaml:"default_metric" mapstructure:"default_metric"`
	TableLimit    int    `yaml:"table_limit" mapstructure:"table_limit"`
	DefaultYear   int    `yaml:"default_year" mapstructure:"default_year"`
	YearMin       int    `yaml:"year_min" mapstructure:"year_min"`
	YearMax       int    `yaml:"year_max" mapstructure:"year_max"`
	MetricsFile   string `yaml:"metrics_file" mapstructure:"metrics_file"`
	Seed          uint64 `yaml:"seed" mapstructure:"seed"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("REGIONMAP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("source.boundary_key_field", "name")
	v.SetDefault("source.metrics_key_column", "key")
	v.SetDefault("source.ckan_base_url", "https://data.nsw.gov.au/data")
	v.SetDefault("source.rate_limit", 2.0)
	v.SetDefault("source.timeout_secs", 30)
	v.SetDefault("source.temp_dir", "/tmp/regionmap")
	v.SetDefault("source.simplify_tolerance", 0.001)
	v.SetDefault("cache.driver", "sqlite")
	v.SetDefault("cache.ttl_hours", 24)
	v.SetDefault("cache.max_entries", 16)
	v.SetDefault("dashboard.default_metric", "population")
	v.SetDefault("dashboard.table_limit", 20)
	v.SetDefault("dashboard.default_year", 2023)
	v.SetDefault("dashboard.year_min", 2015)
	v.SetDefault("dashboard.year_max", 2023)
	v.SetDefault("dashboard.seed", 42)

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

	// The sqlite cache lives next to downloaded boundaries unless a DSN is given.
	if cfg.Cache.Driver == "sqlite" && cfg.Cache.DSN == "" && cfg.Source.TempDir != "" {
		cfg.Cache.DSN = filepath.Join(cfg.Source.TempDir, DefaultCacheFile)
	}

	return &cfg, nil
}

// Validate checks the settings a command depends on. mode is the command
// name ("serve", "show", "export", "cache").
func (c *Config) Validate(mode string) error {
	var problems []string

	switch c.Cache.Driver {
	case "memory", "sqlite", "postgres", "redis", "none", "":
	default:
		problems = append(problems, "cache.driver must be one of memory, sqlite, postgres, redis, none")
	}
	if (c.Cache.Driver == "sqlite" || c.Cache.Driver == "postgres" || c.Cache.Driver == "redis") && c.Cache.DSN == "" {
		problems = append(problems, "cache.dsn is required for driver "+c.Cache.Driver)
	}
	if c.Dashboard.TableLimit < 0 {
		problems = append(problems, "dashboard.table_limit must not be negative")
	}
	if c.Dashboard.YearMin > c.Dashboard.YearMax {
		problems = append(problems, "dashboard.year_min must not exceed dashboard.year_max")
	}
	if c.Source.SimplifyTolerance < 0 {
		problems = append(problems, "source.simplify_tolerance must not be negative")
	}
	if c.Source.RateLimit < 0 {
		problems = append(problems, "source.rate_limit must not be negative")
	}

	switch mode {
	case "serve":
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			problems = append(problems, "server.port must be between 1 and 65535")
		}
	case "show", "export", "cache":
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(problems) > 0 {
		return eris.Errorf("config: %s", strings.Join(problems, "; "))
	}
	return nil
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
