package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds all runtime settings. Values come from the environment,
// optionally seeded from a local .env file.
type Config struct {
	Environment string `env:"APP_ENV" envDefault:"development"`
	ServiceName string `env:"SERVICE_NAME" envDefault:"customer-projects"`
	Version     string `env:"SERVICE_VERSION" envDefault:"dev"`
	HTTPAddr    string `env:"HTTP_ADDR" envDefault:":8080"`

	Database DatabaseConfig `envPrefix:"DB_"`
	Tracing  TracingConfig  `envPrefix:"TRACING_"`
	Google   GoogleConfig   `envPrefix:"GOOGLE_"`

	// APIKeys maps an inbound API key to the tenant it belongs to,
	// e.g. API_KEYS="key1:kleineprints,key2:pokal-total".
	APIKeys map[string]string `env:"API_KEYS"`

	// AvailabilityWindow is how far available_until is pushed out on
	// every create or version append.
	AvailabilityWindow time.Duration `env:"PROJECT_AVAILABILITY_WINDOW" envDefault:"720h"`

	// PlaceRefreshAfter is the age at which a cached place is re-fetched
	// from the Places API on read.
	PlaceRefreshAfter time.Duration `env:"PLACE_REFRESH_AFTER" envDefault:"720h"`

	RateLimitPerMinute int `env:"RATE_LIMIT_PER_MINUTE" envDefault:"120"`
}

type DatabaseConfig struct {
	// Driver selects the gorm driver: "postgres" or "sqlite".
	Driver       string        `env:"DRIVER" envDefault:"postgres"`
	DSN          string        `env:"DSN"`
	MaxOpenConns int           `env:"MAX_OPEN_CONNS" envDefault:"10"`
	MaxIdleConns int           `env:"MAX_IDLE_CONNS" envDefault:"5"`
	ConnMaxLife  time.Duration `env:"CONN_MAX_LIFETIME" envDefault:"30m"`
}

type TracingConfig struct {
	Enabled          bool    `env:"ENABLED" envDefault:"false"`
	ExporterEndpoint string  `env:"OTLP_ENDPOINT"`
	ExporterProtocol string  `env:"OTLP_PROTOCOL" envDefault:"grpc"`
	SamplingRatio    float64 `env:"SAMPLING_RATIO" envDefault:"0.1"`
}

type GoogleConfig struct {
	APIKey string `env:"API_KEY"`
	// PlacesBaseURL is overridable for tests.
	PlacesBaseURL string `env:"PLACES_BASE_URL" envDefault:"https://places.googleapis.com/v1"`
}

// Load reads configuration from the environment.
func Load() (Config, error) {
	// .env is a local-dev convenience only; missing files are fine.
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	if c.Database.Driver == "postgres" && c.Database.DSN == "" {
		return fmt.Errorf("DB_DSN is required for the postgres driver")
	}
	return nil
}

// IsProduction reports whether the service runs with production settings.
func (c Config) IsProduction() bool { return c.Environment == "production" }
