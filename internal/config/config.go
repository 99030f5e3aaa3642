package config

import (
	"fmt"
	"strings"

	"github.com/Netflix/go-env"
)

// Provider names accepted by the PROVIDER variable.
const (
	ProviderTwilio      = "twilio"
	ProviderMessageBird = "messagebird"
	ProviderSimulated   = "simulated"
)

type Config struct {
	Provider       string `env:"PROVIDER,default=simulated"`
	SimulationMode bool   `env:"SIMULATION_MODE,default=true"`

	AccountID string `env:"SMS_ACCOUNT_ID"`
	AuthToken string `env:"SMS_AUTH_TOKEN"`
	SenderID  string `env:"SMS_SENDER_ID"`

	RedisURL        string `env:"REDIS_URL"`
	RateLimitPerSec int    `env:"RATE_LIMIT_PER_SEC,default=10"`
	BulkConcurrency int    `env:"BULK_CONCURRENCY,default=1"`

	PollMinDelayMillis int `env:"POLL_MIN_DELAY_MS,default=2000"`
	PollMaxDelayMillis int `env:"POLL_MAX_DELAY_MS,default=5000"`

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
	c.Provider = strings.ToLower(strings.TrimSpace(c.Provider))
	switch c.Provider {
	case ProviderTwilio, ProviderMessageBird, ProviderSimulated:
	default:
		return fmt.Errorf("unknown provider %q", c.Provider)
	}

	if c.PollMinDelayMillis < 0 || c.PollMaxDelayMillis < c.PollMinDelayMillis {
		return fmt.Errorf("invalid poll delay window [%d, %d]", c.PollMinDelayMillis, c.PollMaxDelayMillis)
	}

	return nil
}
