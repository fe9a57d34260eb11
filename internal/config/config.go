package config

import (
	"fmt"

	"github.com/Netflix/go-env"
)

type Config struct {
	DatabaseDSN string `env:"DATABASE_DSN,required=true"`
	RabbitMQURL string `env:"RABBITMQ_URL,required=true"`
	RedisURL    string `env:"REDIS_URL,required=true"`

	EmailGatewayURL string `env:"EMAIL_GATEWAY_URL,required=true"`
	SMSGatewayURL   string `env:"SMS_GATEWAY_URL,required=true"`
	PushGatewayURL  string `env:"PUSH_GATEWAY_URL,required=true"`

	RateLimitMaxRequests int `env:"RATE_LIMIT_MAX_REQUESTS,default=10"`
	RateLimitWindowSec   int `env:"RATE_LIMIT_WINDOW_SEC,default=60"`

	WorkerConcurrency    int `env:"WORKER_CONCURRENCY,default=8"`
	WorkerPrefetch       int `env:"WORKER_PREFETCH,default=16"`
	DefaultMaxAttempts   int `env:"DEFAULT_MAX_ATTEMPTS,default=5"`
	RetryScanIntervalSec int `env:"RETRY_SCAN_INTERVAL_SEC,default=30"`

	APIPort  int    `env:"API_PORT,default=8080"`
	LogLevel string `env:"LOG_LEVEL,default=info"`
}

func Load() (*Config, error) {
	var cfg Config
	_, err := env.UnmarshalFromEnviron(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.RateLimitMaxRequests <= 0 {
		return fmt.Errorf("RATE_LIMIT_MAX_REQUESTS must be positive, got %d", c.RateLimitMaxRequests)
	}
	if c.RateLimitWindowSec <= 0 {
		return fmt.Errorf("RATE_LIMIT_WINDOW_SEC must be positive, got %d", c.RateLimitWindowSec)
	}
	if c.WorkerConcurrency <= 0 {
		return fmt.Errorf("WORKER_CONCURRENCY must be positive, got %d", c.WorkerConcurrency)
	}
	if c.WorkerPrefetch <= 0 {
		return fmt.Errorf("WORKER_PREFETCH must be positive, got %d", c.WorkerPrefetch)
	}
	if c.DefaultMaxAttempts <= 0 {
		return fmt.Errorf("DEFAULT_MAX_ATTEMPTS must be positive, got %d", c.DefaultMaxAttempts)
	}
	if c.RetryScanIntervalSec <= 0 {
		return fmt.Errorf("RETRY_SCAN_INTERVAL_SEC must be positive, got %d", c.RetryScanIntervalSec)
	}
	return nil
}
