package config

import (
	"fmt"

	"github.com/Netflix/go-env"
)

type Config struct {
	DatabaseDSN          string `env:"DATABASE_DSN,required=true"`
	RabbitMQURL          string `env:"RABBITMQ_URL,required=true"`
	RedisURL             string `env:"REDIS_URL,required=true"`
	CredentialMatcherURL string `env:"CREDENTIAL_MATCHER_URL,required=true"`
	SweepIntervalMinutes int    `env:"SWEEP_INTERVAL_MINUTES,default=0"`
	SweepGateTTLSeconds  int    `env:"SWEEP_GATE_TTL_SECONDS,default=60"`
	APIPort              int    `env:"API_PORT,default=8080"`
	LogLevel             string `env:"LOG_LEVEL,default=info"`
}

func Load() (*Config, error) {
	var cfg Config
	_, err := env.UnmarshalFromEnviron(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}
