package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/viper"

	"github.com/anestconsulta/booking-api/pkg/messaging/redis"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	SMTP      SMTPConfig      `mapstructure:"smtp"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Clinic    ClinicConfig    `mapstructure:"clinic"`
	Worker    WorkerConfig    `mapstructure:"worker"`
	LogLevel  string          `mapstructure:"log_level" envconfig:"LOG_LEVEL"`
	Timezone  string          `mapstructure:"timezone" envconfig:"TIMEZONE"`
}

type ServerConfig struct {
	Port           int           `mapstructure:"port" envconfig:"SERVER_PORT"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	TimeoutSeconds int           `mapstructure:"timeout_seconds"`
}

type DatabaseConfig struct {
	Host         string `mapstructure:"host" envconfig:"DB_HOST"`
	Port         int    `mapstructure:"port" envconfig:"DB_PORT"`
	User         string `mapstructure:"user" envconfig:"DB_USER"`
	Password     string `mapstructure:"password" envconfig:"DB_PASSWORD"`
	Name         string `mapstructure:"name" envconfig:"DB_NAME"`
	SSLMode      string `mapstructure:"sslmode" envconfig:"DB_SSLMODE"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
}

type RedisConfig struct {
	URL          string        `mapstructure:"url" envconfig:"REDIS_URL"`
	MaxRetries   int           `mapstructure:"max_retries"`
	RetryBackoff time.Duration `mapstructure:"retry_backoff"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
}

type SMTPConfig struct {
	Host        string        `mapstructure:"host" envconfig:"SMTP_HOST"`
	Port        int           `mapstructure:"port" envconfig:"SMTP_PORT"`
	User        string        `mapstructure:"user" envconfig:"SMTP_USER"`
	Password    string        `mapstructure:"password" envconfig:"SMTP_PASSWORD"`
	From        string        `mapstructure:"from" envconfig:"SMTP_FROM"`
	FromName    string        `mapstructure:"from_name"`
	DoctorEmail string        `mapstructure:"doctor_email" envconfig:"SMTP_DOCTOR_EMAIL"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

type JWTConfig struct {
	Secret      string `mapstructure:"secret" envconfig:"JWT_SECRET"`
	ExpiryHours int    `mapstructure:"expiry_hours"`
}

type RateLimitConfig struct {
	WindowMinutes int `mapstructure:"window_minutes"`
	MaxAttempts   int `mapstructure:"max_attempts"`
	// Router-level throttle, independent of the per-endpoint window above.
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

type ClinicConfig struct {
	// BaseURL is used to build verification and password reset links.
	BaseURL        string        `mapstructure:"base_url" envconfig:"CLINIC_BASE_URL"`
	Name           string        `mapstructure:"name"`
	Address        string        `mapstructure:"address"`
	Phone          string        `mapstructure:"phone"`
	DoctorCacheTTL time.Duration `mapstructure:"doctor_cache_ttl"`
}

type WorkerConfig struct {
	RetryInterval    time.Duration `mapstructure:"retry_interval"`
	MaxEmailAttempts int           `mapstructure:"max_email_attempts"`
	BatchSize        int           `mapstructure:"batch_size"`
}

func LoadConfig() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Environment variables take precedence over the file.
	if err := envconfig.Process("", &config); err != nil {
		return nil, fmt.Errorf("failed to process environment overrides: %w", err)
	}

	config.applyDefaults()

	return &config, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 10 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 30 * time.Second
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = "disable"
	}
	if c.Database.MaxOpenConns == 0 {
		c.Database.MaxOpenConns = 25
	}
	if c.Database.MaxIdleConns == 0 {
		c.Database.MaxIdleConns = 5
	}
	if c.SMTP.Timeout == 0 {
		c.SMTP.Timeout = 15 * time.Second
	}
	if c.JWT.ExpiryHours == 0 {
		c.JWT.ExpiryHours = 8
	}
	if c.RateLimit.WindowMinutes == 0 {
		c.RateLimit.WindowMinutes = 10
	}
	if c.RateLimit.MaxAttempts == 0 {
		c.RateLimit.MaxAttempts = 5
	}
	if c.RateLimit.RequestsPerSecond == 0 {
		c.RateLimit.RequestsPerSecond = 20
	}
	if c.RateLimit.Burst == 0 {
		c.RateLimit.Burst = 40
	}
	if c.Clinic.DoctorCacheTTL == 0 {
		c.Clinic.DoctorCacheTTL = 5 * time.Minute
	}
	if c.Worker.RetryInterval == 0 {
		c.Worker.RetryInterval = 5 * time.Minute
	}
	if c.Worker.MaxEmailAttempts == 0 {
		c.Worker.MaxEmailAttempts = 3
	}
	if c.Worker.BatchSize == 0 {
		c.Worker.BatchSize = 20
	}
	if c.Timezone == "" {
		c.Timezone = "America/Sao_Paulo"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

func (c *RedisConfig) ToBrokerConfig() redis.Config {
	return redis.Config{
		URL:          c.URL,
		MaxRetries:   c.MaxRetries,
		RetryBackoff: c.RetryBackoff,
		PoolSize:     c.PoolSize,
		MinIdleConns: c.MinIdleConns,
	}
}
