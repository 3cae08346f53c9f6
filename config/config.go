package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/viper"
)

type DatabaseConfig struct {
	Host     string `yaml:"host" mapstructure:"host" envconfig:"DB_HOST"`
	Port     int    `yaml:"port" mapstructure:"port" envconfig:"DB_PORT"`
	User     string `yaml:"user" mapstructure:"user" envconfig:"DB_USER"`
	Password string `yaml:"password" mapstructure:"password" envconfig:"DB_PASSWORD"`
	Name     string `yaml:"name" mapstructure:"name" envconfig:"DB_NAME"`
	SSLMode  string `yaml:"sslmode" mapstructure:"sslmode" envconfig:"DB_SSLMODE"`
}

// ServerConfig deliberately has no write timeout: the visit stream endpoint
// holds its response open for the life of the subscription.
type ServerConfig struct {
	Port        int           `yaml:"port" mapstructure:"port" envconfig:"SERVER_PORT"`
	ReadTimeout time.Duration `yaml:"read_timeout" mapstructure:"read_timeout" envconfig:"SERVER_READ_TIMEOUT"`
}

type RedisConfig struct {
	URL string `yaml:"url" mapstructure:"url" envconfig:"REDIS_URL"`
}

type JWTConfig struct {
	Secret      string `yaml:"secret" mapstructure:"secret" envconfig:"JWT_SECRET"`
	ExpiryHours int    `yaml:"expiry_hours" mapstructure:"expiry_hours" envconfig:"JWT_EXPIRY_HOURS"`
}

type AllocatorConfig struct {
	MaxAttempts    int           `yaml:"max_attempts" mapstructure:"max_attempts" envconfig:"ALLOCATOR_MAX_ATTEMPTS"`
	InitialBackoff time.Duration `yaml:"initial_backoff" mapstructure:"initial_backoff" envconfig:"ALLOCATOR_INITIAL_BACKOFF"`
	MaxBackoff     time.Duration `yaml:"max_backoff" mapstructure:"max_backoff" envconfig:"ALLOCATOR_MAX_BACKOFF"`
}

type FeedConfig struct {
	BufferSize int `yaml:"buffer_size" mapstructure:"buffer_size" envconfig:"FEED_BUFFER_SIZE"`
}

type AuditConfig struct {
	RetentionDays   int           `yaml:"retention_days" mapstructure:"retention_days" envconfig:"AUDIT_RETENTION_DAYS"`
	CleanupInterval time.Duration `yaml:"cleanup_interval" mapstructure:"cleanup_interval" envconfig:"AUDIT_CLEANUP_INTERVAL"`
}

type RateLimitConfig struct {
	Enabled           bool    `yaml:"enabled" mapstructure:"enabled" envconfig:"RATE_LIMIT_ENABLED"`
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second" envconfig:"RATE_LIMIT_RPS"`
	Burst             int     `yaml:"burst" mapstructure:"burst" envconfig:"RATE_LIMIT_BURST"`
}

type Config struct {
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Database  DatabaseConfig  `yaml:"database" mapstructure:"database"`
	Redis     RedisConfig     `yaml:"redis" mapstructure:"redis"`
	JWT       JWTConfig       `yaml:"jwt" mapstructure:"jwt"`
	Allocator AllocatorConfig `yaml:"allocator" mapstructure:"allocator"`
	Feed      FeedConfig      `yaml:"feed" mapstructure:"feed"`
	Audit     AuditConfig     `yaml:"audit" mapstructure:"audit"`
	RateLimit RateLimitConfig `yaml:"rate_limit" mapstructure:"rate_limit"`
}

// LoadConfig reads config.yml and then applies environment overrides, so a
// container can run with the checked-in file plus a handful of env vars.
func LoadConfig() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/app")
	viper.AddConfigPath("/app/config")

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := envconfig.Process("", &config); err != nil {
		return nil, fmt.Errorf("failed to apply env overrides: %w", err)
	}

	if config.JWT.Secret == "" {
		return nil, fmt.Errorf("jwt secret is required")
	}

	return &config, nil
}
