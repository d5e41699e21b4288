package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"finance-tracker-backend/internal/config"
	"finance-tracker-backend/internal/logger"
	"finance-tracker-backend/internal/middleware"
	"finance-tracker-backend/internal/repository"
	"finance-tracker-backend/internal/routes"
)

func main() {
	log := logger.New()

	cfg, envLoaded, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}
	if !envLoaded {
		log.Info().Msg("No .env file found, relying on system env")
	}
	log = logger.WithLevel(log, cfg.LogLevel)

	db, err := config.InitDB(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	if err := config.Migrate(db); err != nil {
		log.Fatal().Err(err).Msg("Failed to migrate database")
	}
	if err := bootstrapAPIKey(db, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("Failed to seed API key")
	}

	gin.SetMode(cfg.GinMode)
	r := gin.New()
	r.Use(middleware.RequestID(log), middleware.Logger(log), gin.Recovery())
	// CORS config
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Request-ID", "X-Import-Source"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	routes.RegisterRoutes(r, db, log, routes.Options{
		FuzzyThreshold:   cfg.FuzzyThreshold,
		SimilarityScorer: cfg.SimilarityScorer,
		MaxBatchSize:     cfg.MaxBatchSize,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Graceful shutdown failed")
	}
	log.Info().Msg("Server stopped")
}

// bootstrapAPIKey registers BOOTSTRAP_API_TOKEN for BOOTSTRAP_USER_ID so a fresh install has a working key.
func bootstrapAPIKey(db *gorm.DB, cfg *config.Config, log zerolog.Logger) error {
	if cfg.BootstrapAPIToken == "" {
		return nil
	}
	userID, err := uuid.Parse(cfg.BootstrapUserID)
	if err != nil {
		return errors.New("BOOTSTRAP_USER_ID must be a uuid when BOOTSTRAP_API_TOKEN is set")
	}
	if err := repository.NewAPIKeyRepository(db).Ensure(context.Background(), userID, "bootstrap", cfg.BootstrapAPIToken); err != nil {
		return err
	}
	log.Info().Str("user_id", userID.String()).Msg("Bootstrap API key ready")
	return nil
}
