package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"dealroom.app/broker/core/db"
)

type Config struct {
	OTel     OTelConfig
	Pipeline PipelineConfig
	Auth     AuthConfig
	Engine   EngineConfig
	Env      string `env:"BROKER_ENV" envDefault:"development"`
	Port     string `env:"PORT" envDefault:"8080"`
	NodeID   int64  `env:"SNOWFLAKE_NODE_ID" envDefault:"1"`
	DB       db.Config
}

type OTelConfig struct {
	Endpoint       string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	Headers        string  `env:"OTEL_EXPORTER_OTLP_HEADERS"`
	ServiceName    string  `env:"OTEL_SERVICE_NAME" envDefault:"broker"`
	ServiceVersion string  `env:"OTEL_SERVICE_VERSION" envDefault:"dev"`
	SampleRatio    float64 `env:"OTEL_TRACES_SAMPLE_RATIO" envDefault:"1"`
}

type PipelineConfig struct {
	RedisURL        string        `env:"REDIS_URL" envDefault:"redis://localhost:6379/0"`
	RedisStream     string        `env:"REDIS_STREAM" envDefault:"lifecycle_events"`
	RedisGroup      string        `env:"REDIS_CONSUMER_GROUP" envDefault:"notifier_group"`
	RedisDLQStream  string        `env:"REDIS_DLQ_STREAM" envDefault:"lifecycle_events_dlq"`
	RedisConsumer   string        `env:"REDIS_CONSUMER_NAME" envDefault:"worker-1"`
	MaxAttempts     int           `env:"WORKER_MAX_ATTEMPTS" envDefault:"5"`
	RequeueDelay    time.Duration `env:"WORKER_REQUEUE_DELAY" envDefault:"2s"`
	ReclaimMinIdle  time.Duration `env:"WORKER_RECLAIM_MIN_IDLE" envDefault:"1m"`
	ReclaimInterval time.Duration `env:"WORKER_RECLAIM_INTERVAL" envDefault:"30s"`
	TraceHeaderName string        `env:"TRACE_HEADER_NAME" envDefault:"X-Trace-Id"`
}

// AuthConfig signs and verifies HS256 bearer tokens. The token subject is the
// acting party id.
type AuthConfig struct {
	JWTSecret string        `env:"JWT_SECRET"`
	Issuer    string        `env:"JWT_ISSUER" envDefault:"broker"`
	Audience  string        `env:"JWT_AUDIENCE" envDefault:"broker-api"`
	TokenTTL  time.Duration `env:"JWT_TTL" envDefault:"24h"`
}

type EngineConfig struct {
	DefaultCurrency   string `env:"ENGINE_DEFAULT_CURRENCY" envDefault:"USD"`
	NotificationLimit int32  `env:"NOTIFICATION_PAGE_SIZE" envDefault:"50"`
}

type ServiceType string

const (
	ServiceTypeServer ServiceType = "server"
	ServiceTypeWorker ServiceType = "worker"
)

// Load loads configuration from environment variables.
// In development, it loads from service-specific .env files:
//   - .env.server for the API server
//   - .env.worker for the background worker
//
// Falls back to .env if service-specific file doesn't exist.
func Load(serviceType ServiceType) (Config, error) {
	if os.Getenv("BROKER_ENV") == "" || os.Getenv("BROKER_ENV") == "development" {
		// Try service-specific env file first, fall back to .env
		envFile := fmt.Sprintf(".env.%s", serviceType)
		if err := godotenv.Load(envFile); err != nil {
			_ = godotenv.Load(".env")
		}
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parsing environment: %w", err)
	}

	if serviceType == ServiceTypeServer && cfg.Auth.JWTSecret == "" {
		return Config{}, fmt.Errorf("JWT_SECRET is required")
	}

	return cfg, nil
}

func (c Config) IsProduction() bool {
	return c.Env == "production"
}

func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}

func (c OTelConfig) Enabled() bool {
	return c.Endpoint != ""
}
