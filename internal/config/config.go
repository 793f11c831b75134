package config

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"github.com/ankunda/credit-engine/pkg/utils"
)

// Scoring strategy names, see internal/scoring.
const (
	ScoringStrategyPointSum = "point_sum"
	ScoringStrategyWeighted = "weighted"
)

// Config holds all configuration for our application
type Config struct {
	Server    ServerConfig    `mapstructure:",squash"`
	Database  DatabaseConfig  `mapstructure:",squash"`
	Redis     RedisConfig     `mapstructure:",squash"`
	Scheduler SchedulerConfig `mapstructure:",squash"`
	Business  BusinessConfig  `mapstructure:",squash"`
}

type ServerConfig struct {
	Port         string        `mapstructure:"SERVER_PORT"`
	Host         string        `mapstructure:"SERVER_HOST"`
	Env          string        `mapstructure:"ENV"`
	ReadTimeout  time.Duration `mapstructure:"SERVER_READ_TIMEOUT"`
	WriteTimeout time.Duration `mapstructure:"SERVER_WRITE_TIMEOUT"`
}

type DatabaseConfig struct {
	URL             string        `mapstructure:"DATABASE_URL"`
	MaxOpenConns    int           `mapstructure:"DATABASE_MAX_OPEN_CONNS"`
	MaxIdleConns    int           `mapstructure:"DATABASE_MAX_IDLE_CONNS"`
	ConnMaxLifetime time.Duration `mapstructure:"DATABASE_CONN_MAX_LIFETIME"`
}

type RedisConfig struct {
	Host     string `mapstructure:"REDIS_HOST"`
	Port     string `mapstructure:"REDIS_PORT"`
	Password string `mapstructure:"REDIS_PASSWORD"`
	DB       int    `mapstructure:"REDIS_DB"`
}

type SchedulerConfig struct {
	Timezone string `mapstructure:"SCHEDULER_TIMEZONE"`
}

type BusinessConfig struct {
	DefaultUnitRate     string        `mapstructure:"DEFAULT_UNIT_RATE"`
	DefaultTariffCode   string        `mapstructure:"DEFAULT_TARIFF_CODE"`
	ScoringStrategy     string        `mapstructure:"SCORING_STRATEGY"`
	LatePenaltyRate     string        `mapstructure:"LATE_PENALTY_RATE"`
	DefaultTenureMonths int           `mapstructure:"DEFAULT_TENURE_MONTHS"`
	DefaultGraceDays    int           `mapstructure:"DEFAULT_GRACE_DAYS"`
	TokenExpiryDays     int           `mapstructure:"TOKEN_EXPIRY_DAYS"`
	SandboxPaymentDelay time.Duration `mapstructure:"SANDBOX_PAYMENT_DELAY"`
}

// Load reads configuration from environment variables and files
func Load() (*Config, error) {
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("SERVER_HOST", "0.0.0.0")
	viper.SetDefault("ENV", "development")
	viper.SetDefault("SERVER_READ_TIMEOUT", "15s")
	viper.SetDefault("SERVER_WRITE_TIMEOUT", "15s")
	viper.SetDefault("DATABASE_MAX_OPEN_CONNS", 25)
	viper.SetDefault("DATABASE_MAX_IDLE_CONNS", 5)
	viper.SetDefault("DATABASE_CONN_MAX_LIFETIME", "5m")
	viper.SetDefault("REDIS_HOST", "localhost")
	viper.SetDefault("REDIS_PORT", "6379")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("SCHEDULER_TIMEZONE", "Africa/Kampala")
	viper.SetDefault("DEFAULT_UNIT_RATE", "500")
	viper.SetDefault("DEFAULT_TARIFF_CODE", "CODE10.1")
	viper.SetDefault("SCORING_STRATEGY", ScoringStrategyPointSum)
	viper.SetDefault("LATE_PENALTY_RATE", "0.001")
	viper.SetDefault("DEFAULT_TENURE_MONTHS", 6)
	viper.SetDefault("DEFAULT_GRACE_DAYS", 90)
	viper.SetDefault("TOKEN_EXPIRY_DAYS", 30)
	viper.SetDefault("SANDBOX_PAYMENT_DELAY", "10s")

	viper.AutomaticEnv()

	// Try to read from .env file (optional)
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./deployments")
	_ = viper.ReadInConfig()

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("SERVER_PORT is required")
	}

	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	switch c.Business.ScoringStrategy {
	case ScoringStrategyPointSum, ScoringStrategyWeighted:
	default:
		return fmt.Errorf("SCORING_STRATEGY must be %q or %q", ScoringStrategyPointSum, ScoringStrategyWeighted)
	}

	rate, err := utils.DecimalFromString(c.Business.DefaultUnitRate)
	if err != nil || !rate.IsPositive() {
		return fmt.Errorf("DEFAULT_UNIT_RATE must be a positive decimal")
	}

	penalty, err := utils.DecimalFromString(c.Business.LatePenaltyRate)
	if err != nil || penalty.IsNegative() {
		return fmt.Errorf("LATE_PENALTY_RATE must be a non-negative decimal")
	}

	if c.Business.DefaultTenureMonths <= 0 {
		return fmt.Errorf("DEFAULT_TENURE_MONTHS must be greater than 0")
	}

	if c.Business.TokenExpiryDays <= 0 {
		return fmt.Errorf("TOKEN_EXPIRY_DAYS must be greater than 0")
	}

	if c.Business.DefaultGraceDays < 0 {
		return fmt.Errorf("DEFAULT_GRACE_DAYS must not be negative")
	}

	return nil
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.Server.Env == "development" || c.Server.Env == "dev"
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.Server.Env == "production" || c.Server.Env == "prod"
}

// GetDefaultUnitRate returns the flat fallback rate as decimal
func (c *Config) GetDefaultUnitRate() decimal.Decimal {
	rate, _ := utils.DecimalFromString(c.Business.DefaultUnitRate)
	return rate
}

// GetLatePenaltyRate returns the daily late-penalty rate as decimal
func (c *Config) GetLatePenaltyRate() decimal.Decimal {
	rate, _ := utils.DecimalFromString(c.Business.LatePenaltyRate)
	return rate
}
