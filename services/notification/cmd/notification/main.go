package main

import (
	"log"

	"github.com/joho/godotenv"

	"github.com/byteracerx/upkar-pharma-orders-sub001/services/notification/internal/app"
	"github.com/byteracerx/upkar-pharma-orders-sub001/services/notification/internal/config"
)

func main() {
	_ = godotenv.Load()

	// Загружаем конфигурацию
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Выводим конфигурацию в лог
	cfg.Log()

	application, err := app.Build(cfg)
	if err != nil {
		log.Fatalf("Failed to build app: %v", err)
	}

	if err := application.Run(); err != nil {
		log.Fatalf("Service error: %v", err)
	}
}
