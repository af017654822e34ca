package kafka

import (
	"fmt"

	"github.com/caarlos0/env/v10"
)

// LoadEnv заполняет cfg из переменных окружения (caarlos0/env/v10).
// Если KAFKA_BROKERS не задан, остаются брокеры по умолчанию для окружения.
func LoadEnv(cfg *Config, dockerEnv bool) error {
	defaults := cfg.Brokers
	if err := env.Parse(cfg); err != nil {
		return fmt.Errorf("parse kafka env: %w", err)
	}
	if len(cfg.Brokers) == 0 {
		cfg.Brokers = defaults
	}
	if len(cfg.Brokers) == 0 {
		if dockerEnv {
			cfg.Brokers = []string{"kafka:9092"}
		} else {
			cfg.Brokers = []string{"localhost:19092"}
		}
	}
	return nil
}
