package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server        ServerConfig              `mapstructure:"server"`
	Store         StoreConfig               `mapstructure:"store"`
	Database      DatabaseConfig            `mapstructure:"database"`
	Redis         RedisConfig               `mapstructure:"redis"`
	Gateway       GatewayConfig             `mapstructure:"gateway"`
	Auth          AuthConfig                `mapstructure:"auth"`
	Sync          SyncConfig                `mapstructure:"sync"`
	Platforms     map[string]PlatformConfig `mapstructure:"platforms"`
	Observability ObservabilityConfig       `mapstructure:"observability"`
	InstanceID    string                    `mapstructure:"instance_id"`
}

type ServerConfig struct {
	Port              int           `mapstructure:"port"`
	ReadTimeout       time.Duration `mapstructure:"read_timeout"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout"`
	RequestsPerMinute int           `mapstructure:"requests_per_minute"`
	CORS              CORSConfig    `mapstructure:"cors"`
}

type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
}

// StoreConfig selects the object store backend.
type StoreConfig struct {
	Driver     string `mapstructure:"driver"` // memory, postgres, redis or sqlite
	SQLitePath string `mapstructure:"sqlite_path"`
}

type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Database        string        `mapstructure:"database"`
	MaxConnections  int           `mapstructure:"max_connections"`
	MinConnections  int           `mapstructure:"min_connections"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	SSLMode         string        `mapstructure:"ssl_mode"`
}

type RedisConfig struct {
	Host              string        `mapstructure:"host"`
	Port              int           `mapstructure:"port"`
	DB                int           `mapstructure:"db"`
	Password          string        `mapstructure:"password"`
	KeyPrefix         string        `mapstructure:"key_prefix"`
	ConnectRetries    int           `mapstructure:"connect_retries"`
	ConnectRetryDelay time.Duration `mapstructure:"connect_retry_delay"`
}

// GatewayConfig tunes outbound marketplace requests.
type GatewayConfig struct {
	RequestTimeout          time.Duration `mapstructure:"request_timeout"`
	RequestsPerSecond       float64       `mapstructure:"requests_per_second"`
	Burst                   int           `mapstructure:"burst"`
	CircuitBreakerThreshold int           `mapstructure:"circuit_breaker_threshold"`
	CircuitBreakerTimeout   time.Duration `mapstructure:"circuit_breaker_timeout"`
}

type AuthConfig struct {
	TokenValidity  time.Duration `mapstructure:"token_validity"`
	RefreshLockTTL time.Duration `mapstructure:"refresh_lock_ttl"`
	ExchangeRetry  uint          `mapstructure:"exchange_retry"`
	JWTSecret      string        `mapstructure:"jwt_secret"`
}

type SyncConfig struct {
	Enabled           bool          `mapstructure:"enabled"`
	Interval          time.Duration `mapstructure:"interval"`
	MaxPublishRetries int           `mapstructure:"max_publish_retries"`
	ListingTTL        time.Duration `mapstructure:"listing_ttl"`
}

// PlatformConfig holds one marketplace's endpoints and OAuth client.
type PlatformConfig struct {
	BaseURL      string `mapstructure:"base_url"`
	TokenURL     string `mapstructure:"token_url"`
	ListingURL   string `mapstructure:"listing_url"`
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
	RedirectURL  string `mapstructure:"redirect_url"`
}

type ObservabilityConfig struct {
	LogLevel       string `mapstructure:"log_level"`
	JaegerEndpoint string `mapstructure:"jaeger_endpoint"`
	EnableMetrics  bool   `mapstructure:"enable_metrics"`
	EnableTracing  bool   `mapstructure:"enable_tracing"`
}

func Load() (*Config, error) {
	// .env is optional and never overrides the real environment.
	_ = godotenv.Load()

	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix("MARKETSYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/marketsync")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port))
	}
	if c.Server.ReadTimeout <= 0 {
		errs = append(errs, fmt.Errorf("server.read_timeout must be positive"))
	}
	if c.Server.WriteTimeout <= 0 {
		errs = append(errs, fmt.Errorf("server.write_timeout must be positive"))
	}

	switch c.Store.Driver {
	case "memory":
	case "postgres":
		if c.Database.Host == "" {
			errs = append(errs, fmt.Errorf("database.host is required for the postgres store"))
		}
		if c.Database.Port <= 0 {
			errs = append(errs, fmt.Errorf("database.port must be positive"))
		}
	case "redis":
		if c.Redis.Port <= 0 {
			errs = append(errs, fmt.Errorf("redis.port must be positive"))
		}
	case "sqlite":
		if c.Store.SQLitePath == "" {
			errs = append(errs, fmt.Errorf("store.sqlite_path is required for the sqlite store"))
		}
	default:
		errs = append(errs, fmt.Errorf("store.driver must be one of memory, postgres, redis, sqlite, got %q", c.Store.Driver))
	}

	if c.Gateway.RequestTimeout <= 0 {
		errs = append(errs, fmt.Errorf("gateway.request_timeout must be positive"))
	}
	if c.Gateway.RequestsPerSecond < 0 {
		errs = append(errs, fmt.Errorf("gateway.requests_per_second cannot be negative"))
	}
	if c.Auth.TokenValidity <= 0 {
		errs = append(errs, fmt.Errorf("auth.token_validity must be positive"))
	}
	if c.Sync.Interval <= 0 {
		errs = append(errs, fmt.Errorf("sync.interval must be positive"))
	}
	if c.Sync.MaxPublishRetries < 0 {
		errs = append(errs, fmt.Errorf("sync.max_publish_retries cannot be negative"))
	}

	for name, p := range c.Platforms {
		if p.BaseURL == "" {
			errs = append(errs, fmt.Errorf("platforms.%s.base_url is required", name))
		}
	}

	env := os.Getenv("ENV")
	if env == "production" || env == "prod" {
		if c.Store.Driver == "memory" {
			errs = append(errs, fmt.Errorf("store.driver memory is not allowed in production"))
		}
		if c.Auth.JWTSecret == "" {
			errs = append(errs, fmt.Errorf("auth.jwt_secret required in production"))
		}
	}

	if c.Auth.JWTSecret != "" && len(c.Auth.JWTSecret) < 32 {
		errs = append(errs, fmt.Errorf("auth.jwt_secret must be at least 32 characters"))
	}

	return errors.Join(errs...)
}

func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "60s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.shutdown_timeout", "30s")
	v.SetDefault("server.requests_per_minute", 300)
	v.SetDefault("server.cors.allowed_origins", []string{"*"})
	v.SetDefault("server.cors.allow_credentials", false)

	// Store defaults
	v.SetDefault("store.driver", "memory")
	v.SetDefault("store.sqlite_path", "marketsync.db")

	// Database defaults
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "marketsync")
	v.SetDefault("database.database", "marketsync")
	v.SetDefault("database.max_connections", 10)
	v.SetDefault("database.min_connections", 2)
	v.SetDefault("database.conn_max_lifetime", "1h")
	v.SetDefault("database.ssl_mode", "disable")

	// Redis defaults
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.key_prefix", "marketsync")
	v.SetDefault("redis.connect_retries", 5)
	v.SetDefault("redis.connect_retry_delay", "1s")

	// Gateway defaults
	v.SetDefault("gateway.request_timeout", "30s")
	v.SetDefault("gateway.requests_per_second", 5)
	v.SetDefault("gateway.burst", 5)
	v.SetDefault("gateway.circuit_breaker_threshold", 5)
	v.SetDefault("gateway.circuit_breaker_timeout", "30s")

	// Auth defaults
	v.SetDefault("auth.token_validity", "1h")
	v.SetDefault("auth.refresh_lock_ttl", "15s")
	v.SetDefault("auth.exchange_retry", 3)

	// Sync defaults
	v.SetDefault("sync.enabled", true)
	v.SetDefault("sync.interval", "5m")
	v.SetDefault("sync.max_publish_retries", 3)
	v.SetDefault("sync.listing_ttl", "720h")

	// Platform defaults
	v.SetDefault("platforms.ebay.base_url", "https://api.ebay.com")
	v.SetDefault("platforms.ebay.token_url", "https://api.ebay.com/identity/v1/oauth2/token")
	v.SetDefault("platforms.ebay.listing_url", "https://www.ebay.com/itm/")
	v.SetDefault("platforms.facebook.base_url", "https://graph.facebook.com")
	v.SetDefault("platforms.facebook.token_url", "https://graph.facebook.com/oauth/access_token")
	v.SetDefault("platforms.facebook.listing_url", "https://www.facebook.com/marketplace/item/")
	v.SetDefault("platforms.mercari.base_url", "https://api.mercari.com")
	v.SetDefault("platforms.mercari.token_url", "https://api.mercari.com/oauth/token")
	v.SetDefault("platforms.mercari.listing_url", "https://www.mercari.com/us/item/")

	// Observability defaults
	v.SetDefault("observability.log_level", "info")
	v.SetDefault("observability.jaeger_endpoint", "http://localhost:14268/api/traces")
	v.SetDefault("observability.enable_metrics", true)
	v.SetDefault("observability.enable_tracing", false)

	v.SetDefault("instance_id", "marketsync-1")
}

func (c *DatabaseConfig) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

func (c *DatabaseConfig) DatabaseURL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Database, c.SSLMode,
	)
}

func (c *RedisConfig) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
