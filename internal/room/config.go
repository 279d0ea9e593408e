package room

import (
	"fmt"
	"log/slog"

	"github.com/caarlos0/env/v11"
)

// Config is the room service configuration, read from the environment.
type Config struct {
	HTTPAddr string     `env:"HTTP_ADDR" envDefault:":8990"`
	DBPath   string     `env:"DB_PATH" envDefault:"data/room.db"`
	LogLevel slog.Level `env:"LOG_LEVEL" envDefault:"INFO"`
	Seed     bool       `env:"SEED_DEMO_DATA" envDefault:"false"`
}

// LoadConfig parses configuration from environment variables.
func LoadConfig() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}
	return &cfg, nil
}
