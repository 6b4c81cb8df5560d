package main

import (
	"context"
	"flag"
	"log"
	"os"

	"go-pos-store/internal/client"
	"go-pos-store/internal/config"
	"go-pos-store/internal/service"
	"go-pos-store/pkg/jwt"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", os.Getenv("POS_CONFIG"), "path to a YAML config file")
	email := flag.String("email", "admin@example.com", "account to reset")
	password := flag.String("password", "admin123", "new password")
	flag.Parse()

	// 1. Load Env
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, relying on system env")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logger, err := config.NewLogger(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	// 2. Setup Database
	ctx := context.Background()
	db := client.New(cfg.Database, logger)
	if err := db.Connect(ctx); err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Disconnect(ctx)

	// 3. Reset
	auth := service.NewAuthService(db, jwt.NewManager(cfg.JWT.Secret, cfg.JWT.TTL))
	if err := auth.ResetPassword(ctx, *email, *password); err != nil {
		logger.Fatal("Failed to reset password", zap.String("email", *email), zap.Error(err))
	}

	logger.Info("Password reset", zap.String("email", *email))
}
