package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is read once from the environment at startup.
type Config struct {
	APIBaseURL    string        `env:"WB_API_BASE_URL" envDefault:"http://localhost:8080"`
	ControlAddr   string        `env:"WB_CONTROL_ADDR" envDefault:"127.0.0.1:7070"`
	StoreBackend  string        `env:"WB_STORE_BACKEND" envDefault:"file"`
	CartFile      string        `env:"WB_CART_FILE" envDefault:"cart.json"`
	RedisAddr     string        `env:"WB_REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string        `env:"WB_REDIS_PASSWORD"`
	PushTimeout   time.Duration `env:"WB_PUSH_TIMEOUT" envDefault:"5s"`
	HTTPTimeout   time.Duration `env:"WB_HTTP_TIMEOUT" envDefault:"10s"`
	LogLevel      string        `env:"WB_LOG_LEVEL" envDefault:"info"`
}

func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	return cfg, nil
}
