package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	Logger   Logger   `mapstructure:"logger"`
	Server   Server   `mapstructure:"server"`
	Database Database `mapstructure:"database"`
	Journal  Journal  `mapstructure:"journal"`
	Mentor   Mentor   `mapstructure:"mentor"`
	Session  Session  `mapstructure:"session"`
}

// Logger holds the configuration for the logger.
type Logger struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Server holds the configuration for the web server.
type Server struct {
	Port int `mapstructure:"port"`
}

// Database holds the configuration for the database.
type Database struct {
	DSN string `mapstructure:"dsn"`
}

// Journal holds the bookkeeping defaults.
type Journal struct {
	CommissionPerLot float64 `mapstructure:"commission_per_lot"`
	FallbackBalance  float64 `mapstructure:"fallback_balance"`
	BaseAccountSize  float64 `mapstructure:"base_account_size"` // ROI what-if override, 0 disables
	DefaultOwner     string  `mapstructure:"default_owner"`
}

// Mentor holds the configuration for the trade review provider.
type Mentor struct {
	Provider       string        `mapstructure:"provider"` // "gemini" or "chat"
	ApiKey         string        `mapstructure:"apiKey"`
	Model          string        `mapstructure:"model"`
	BaseURL        string        `mapstructure:"base_url"`
	RateLimit      float64       `mapstructure:"rate_limit"`
	RateLimitBurst int           `mapstructure:"rate_limit_burst"`
	MaxTrades      int           `mapstructure:"max_trades"`
	Timeout        time.Duration `mapstructure:"timeout"`
}

// Session holds the lifetime of per-owner journal sessions in the API server.
type Session struct {
	TTL     time.Duration `mapstructure:"ttl"`
	Cleanup time.Duration `mapstructure:"cleanup"`
}

// LoadConfig reads configuration from file or environment variables. A .env
// file in the working directory is loaded first when present.
func LoadConfig(path string) (config Config, err error) {
	_ = godotenv.Load()

	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yml")

	// Allow environment variables to override config file
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err = v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return
		}
		err = nil
	}

	err = v.Unmarshal(&config)
	return
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("server.port", 8080)
	v.SetDefault("database.dsn", "journal.db")

	v.SetDefault("journal.commission_per_lot", 7)
	v.SetDefault("journal.fallback_balance", 10000)
	v.SetDefault("journal.base_account_size", 0)
	v.SetDefault("journal.default_owner", "local")

	v.SetDefault("mentor.provider", "gemini")
	v.SetDefault("mentor.apiKey", "")
	v.SetDefault("mentor.model", "gemini-2.5-flash")
	v.SetDefault("mentor.base_url", "") // provider default when empty
	v.SetDefault("mentor.rate_limit", 0.2) // requests per second
	v.SetDefault("mentor.rate_limit_burst", 1)
	v.SetDefault("mentor.max_trades", 20)
	v.SetDefault("mentor.timeout", 60*time.Second)

	v.SetDefault("session.ttl", 30*time.Minute)
	v.SetDefault("session.cleanup", 10*time.Minute)
}
