package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App struct {
		Name string `envconfig:"APP_NAME" default:"suresync"`
		Port int    `envconfig:"PORT" default:"8080"`
	}

	DB struct {
		Host     string `envconfig:"DB_HOST" default:"localhost"`
		Port     int    `envconfig:"DB_PORT" default:"5432"`
		User     string `envconfig:"DB_USER" default:"postgres"`
		Password string `envconfig:"DB_PASSWORD" default:""`
		Name     string `envconfig:"DB_NAME" default:"suresync"`
	}

	Server struct {
		Timeout time.Duration `envconfig:"SERVER_TIMEOUT" default:"30s"`
	}

	Sync struct {
		// MaxConcurrentAccounts bounds the per-run account task pool.
		MaxConcurrentAccounts int `envconfig:"SYNC_MAX_CONCURRENT_ACCOUNTS" default:"4"`
		// FetchTimeout bounds each provider fetch call.
		FetchTimeout time.Duration `envconfig:"SYNC_FETCH_TIMEOUT" default:"30s"`
		// LookbackMonths is the default backfill depth for a new connection.
		LookbackMonths int `envconfig:"SYNC_LOOKBACK_MONTHS" default:"24"`
		// MaxLookbackMonths is the absolute cap no backfill may exceed.
		MaxLookbackMonths int `envconfig:"SYNC_MAX_LOOKBACK_MONTHS" default:"60"`
		// MaxWindowDays is the provider's per-request window limit.
		MaxWindowDays int `envconfig:"SYNC_MAX_WINDOW_DAYS" default:"60"`
	}

	SimpleFin struct {
		// AccessURL is the claimed SimpleFIN access URL, credentials included.
		AccessURL string `envconfig:"SIMPLEFIN_ACCESS_URL"`
	}

	Kafka struct {
		Enabled bool     `envconfig:"KAFKA_ENABLED" default:"false"`
		Brokers []string `envconfig:"KAFKA_BROKERS" default:"localhost:9092"`
		Topic   string   `envconfig:"KAFKA_TOPIC" default:"sync.completed"`
	}
}

func (c *Config) ConnectionString() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.DB.User, c.DB.Password, c.DB.Host, c.DB.Port, c.DB.Name)
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	return &cfg, nil
}
