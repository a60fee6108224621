package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

/* Config é um pacote auxiliar. Poderia ser uma lib externa*/

type Config struct {
	Port        string `mapstructure:"PORT"`
	MetricsPort string `mapstructure:"METRICS_PORT"`

	// StoreBackend selects the event store: "postgres" or "redis"
	StoreBackend string `mapstructure:"STORE_BACKEND"`
	DatabaseURL  string `mapstructure:"DATABASE_URL"`

	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int    `mapstructure:"REDIS_DB"`

	VendorsFile string `mapstructure:"VENDORS_FILE"`

	// Dispatcher tuning
	PollInterval   time.Duration `mapstructure:"POLL_INTERVAL"`
	BatchSize      int           `mapstructure:"BATCH_SIZE"`
	WorkerCount    int           `mapstructure:"WORKER_COUNT"`
	RequestTimeout time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	// StaleAfter is how long an in_flight event may sit unreported before
	// it is returned to pending. Zero means twice the request timeout.
	StaleAfter time.Duration `mapstructure:"STALE_AFTER"`

	// Retry backoff shape
	RetryBase time.Duration `mapstructure:"RETRY_BASE"`
	RetryCap  time.Duration `mapstructure:"RETRY_CAP"`
}

func GetConfig() (*Config, error) {
	viper.SetConfigName(".env")
	viper.SetConfigType("toml")
	viper.AddConfigPath(".")
	viper.AutomaticEnv()

	/* Every key needs a default, even a zero one: AutomaticEnv only
	 * surfaces keys viper already knows about when Unmarshal runs, so a
	 * key without a default would be invisible in env-only deployments.
	 */
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("METRICS_PORT", "9090")
	viper.SetDefault("STORE_BACKEND", "postgres")
	viper.SetDefault("DATABASE_URL", "")
	viper.SetDefault("REDIS_ADDR", "localhost:6379")
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("VENDORS_FILE", "vendors.yaml")
	viper.SetDefault("POLL_INTERVAL", "5s")
	viper.SetDefault("BATCH_SIZE", 10)
	viper.SetDefault("WORKER_COUNT", 5)
	viper.SetDefault("REQUEST_TIMEOUT", "10s")
	viper.SetDefault("STALE_AFTER", "0s")
	viper.SetDefault("RETRY_BASE", "30s")
	viper.SetDefault("RETRY_CAP", "1h")

	err := viper.ReadInConfig()
	if err != nil {
		// A missing .env is fine, the environment alone can configure us
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var config Config
	err = viper.Unmarshal(&config)
	if err != nil {
		return nil, fmt.Errorf("parsing config data: %w", err)
	}

	if config.StaleAfter <= 0 {
		config.StaleAfter = 2 * config.RequestTimeout
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// Validate checks cross-field constraints that defaults cannot enforce
func (c *Config) Validate() error {
	switch c.StoreBackend {
	case "postgres":
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required with the postgres backend")
		}
	case "redis":
		if c.RedisAddr == "" {
			return fmt.Errorf("REDIS_ADDR is required with the redis backend")
		}
	default:
		return fmt.Errorf("unknown STORE_BACKEND: %s", c.StoreBackend)
	}
	if c.StaleAfter <= c.RequestTimeout {
		return fmt.Errorf("STALE_AFTER must exceed REQUEST_TIMEOUT")
	}
	return nil
}
