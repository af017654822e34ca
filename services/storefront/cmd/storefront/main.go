package main

import (
	"log"

	"github.com/joho/godotenv"

	"github.com/byteracerx/upkar-pharma-orders-sub001/services/storefront/internal/app"
	"github.com/byteracerx/upkar-pharma-orders-sub001/services/storefront/internal/config"
)

func main() {
	_ = godotenv.Load() // .env необязателен

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	cfg.Log()

	application, err := app.Build(cfg)
	if err != nil {
		log.Fatalf("Failed to build app: %v", err)
	}

	if err := application.Run(); err != nil {
		log.Fatalf("Service error: %v", err)
	}
}
