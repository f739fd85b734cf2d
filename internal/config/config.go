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
	Catalog   CatalogConfig   `yaml:"catalog" mapstructure:"catalog"`
	Registry  RegistryConfig  `yaml:"registry" mapstructure:"registry"`
	Resolver  ResolverConfig  `yaml:"resolver" mapstructure:"resolver"`
	RateLimit RateLimitConfig `yaml:"rate_limit" mapstructure:"rate_limit"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// CatalogConfig configures the territory catalog artifact.
type CatalogConfig struct {
	// Driver selects the catalog store backend: "sqlite" or "postgres".
	Driver string `yaml:"driver" mapstructure:"driver"`
	// Path is the SQLite catalog file (versioned, regenerable).
	Path string `yaml:"path" mapstructure:"path"`
	// DatabaseURL is the Postgres DSN when driver is "postgres".
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	// TerritoriesFile is the YAML territory definition input for the builder.
	TerritoriesFile string `yaml:"territories_file" mapstructure:"territories_file"`
	// CitiesFile is the city roster input (CSV or XLSX) for the builder.
	CitiesFile string `yaml:"cities_file" mapstructure:"cities_file"`
	// TempDir holds downloaded source archives during catalog builds.
	TempDir string `yaml:"temp_dir" mapstructure:"temp_dir"`
}

// RegistryConfig configures the external ESIID service-point registry client.
type RegistryConfig struct {
	BaseURL        string        `yaml:"base_url" mapstructure:"base_url"`
	APIKey         string        `yaml:"api_key" mapstructure:"api_key"`
	Timeout        time.Duration `yaml:"timeout" mapstructure:"timeout"`
	RequestsPerSec float64       `yaml:"requests_per_sec" mapstructure:"requests_per_sec"`
	// MaxAttempts bounds internal retries on transient registry failures.
	MaxAttempts int `yaml:"max_attempts" mapstructure:"max_attempts"`
}

// ResolverConfig configures caching and validation behavior.
type ResolverConfig struct {
	DirectTTL       time.Duration `yaml:"direct_ttl" mapstructure:"direct_ttl"`
	AddressTTL      time.Duration `yaml:"address_ttl" mapstructure:"address_ttl"`
	IntermediateTTL time.Duration `yaml:"intermediate_ttl" mapstructure:"intermediate_ttl"`
	CacheMaxEntries int           `yaml:"cache_max_entries" mapstructure:"cache_max_entries"`
	MinAddressLen   int           `yaml:"min_address_len" mapstructure:"min_address_len"`
}

// RateLimitConfig holds per-identity request ceilings. The address path is
// stricter because each cache miss triggers an external registry call.
type RateLimitConfig struct {
	ZipPerMinute     int  `yaml:"zip_per_minute" mapstructure:"zip_per_minute"`
	ZipBurst         int  `yaml:"zip_burst" mapstructure:"zip_burst"`
	AddressPerMinute int  `yaml:"address_per_minute" mapstructure:"address_per_minute"`
	AddressBurst     int  `yaml:"address_burst" mapstructure:"address_burst"`
	Disabled         bool `yaml:"disabled" mapstructure:"disabled"`
}

// ServerConfig configures the HTTP API server.
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
	v.SetEnvPrefix("TDSP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("catalog.driver", "sqlite")
	v.SetDefault("catalog.path", "catalog.db")
	v.SetDefault("catalog.temp_dir", "/tmp/tdsp-catalog")
	v.SetDefault("registry.base_url", "https://esiid.ercot-gateway.com/v1")
	v.SetDefault("registry.timeout", 5*time.Second)
	v.SetDefault("registry.requests_per_sec", 10.0)
	v.SetDefault("registry.max_attempts", 2)
	v.SetDefault("resolver.direct_ttl", 30*time.Minute)
	v.SetDefault("resolver.address_ttl", 30*time.Minute)
	v.SetDefault("resolver.intermediate_ttl", 5*time.Minute)
	v.SetDefault("resolver.cache_max_entries", 10000)
	v.SetDefault("resolver.min_address_len", 5)
	v.SetDefault("rate_limit.zip_per_minute", 120)
	v.SetDefault("rate_limit.zip_burst", 20)
	v.SetDefault("rate_limit.address_per_minute", 20)
	v.SetDefault("rate_limit.address_burst", 5)
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
