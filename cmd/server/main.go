// cmd/server/main.go
package main

import (
	"context"
	"fmt"
	"os"

	"beef-back/internal/auth"
	"beef-back/internal/config"
	"beef-back/internal/database"
	"beef-back/internal/logging"
	"beef-back/internal/repository"
	"beef-back/internal/server"
	"beef-back/internal/services"
	"beef-back/internal/storage"
	"beef-back/pkg/imaging"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Failed to load config:", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.Env)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Failed to build logger:", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if cfg.Env != "local" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Initialize database
	db, err := database.InitDB(cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", logging.Error(err))
	}

	// Auto-migrate models
	if err := database.MigrateDB(db); err != nil {
		logger.Fatal("Failed to migrate database", logging.Error(err))
	}

	key, err := cfg.Auth.SigningKey()
	if err != nil {
		logger.Fatal("Invalid signing key", logging.Error(err))
	}
	codec, err := auth.NewTokenCodec(key, cfg.Auth.TokenTTL())
	if err != nil {
		logger.Fatal("Failed to build token codec", logging.Error(err))
	}

	members := services.NewMemberService(
		repository.NewMemberRepository(db, cfg.Database.Timeout),
		auth.NewPasswordHasher(cfg.Auth.BcryptCost),
		codec,
		logger,
	)

	var archive services.ImageArchive
	if cfg.Storage.Enabled() {
		minioArchive, err := storage.NewMinIOArchive(context.Background(), cfg.Storage)
		if err != nil {
			logger.Fatal("Failed to initialize MinIO client", logging.Error(err))
		}
		archive = minioArchive
		logger.Info("Image archive enabled", zap.String("bucket", cfg.Storage.Bucket))
	}

	analysis := services.NewAnalysisService(
		imaging.NewClient(cfg.AI.BaseURL, cfg.AI.Timeout),
		repository.NewCutRepository(db, cfg.Database.Timeout),
		archive,
		logger,
	)

	r := server.NewRouter(server.Deps{
		DB:             db,
		Members:        members,
		Analysis:       analysis,
		Verifier:       codec,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		MaxUploadBytes: cfg.AI.MaxUploadBytes,
		Logger:         logger,
	})

	logger.Info("Server starting",
		zap.String("port", cfg.Port),
		zap.String("env", cfg.Env),
		zap.String("ai_server", cfg.AI.BaseURL))
	if err := r.Run(":" + cfg.Port); err != nil {
		logger.Fatal("Failed to start server", logging.Error(err))
	}
}
