package main

import (
	"log"
	"route-optimizer-service/internal/adapters/repositories"
	"route-optimizer-service/internal/config"
	"route-optimizer-service/internal/platform/db"
	"route-optimizer-service/internal/platform/logger"

	"go.uber.org/zap"
)

// dbtool initializes the Postgres schema for routes and the ORS caches.
func main() {
	cfg, err := config.Load(".")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := logger.Init(cfg.Environment, cfg.LogLevel); err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer logger.Sync()
	l := logger.Get()

	conn, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		l.Fatal("open database", zap.Error(err))
	}
	defer conn.Close()

	l.Info("Initializing database schema...")
	if err := repositories.InitSchema(conn); err != nil {
		l.Fatal("schema initialization failed", zap.Error(err))
	}
	l.Info("Schema ready.")
}
