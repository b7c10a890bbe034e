package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/isdelr/accountd/internal/api"
	"github.com/isdelr/accountd/internal/auth"
	"github.com/isdelr/accountd/internal/config"
	"github.com/isdelr/accountd/internal/database"
	"github.com/isdelr/accountd/internal/logger"
	"github.com/isdelr/accountd/internal/services"
	"github.com/isdelr/accountd/internal/store"
	"github.com/rs/zerolog/log"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logger.Init(cfg.LogLevel)

	// Set up the user store
	userStore, closeStore, err := openStore(cfg)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.DatabaseDriver).Msg("Failed to initialize user store")
	}
	defer closeStore()

	if cfg.HashSecret == "" {
		log.Warn().Msg("HASH_SECRET not set, using the built-in legacy secret")
	}

	// Set up services
	userService := services.NewUserService(userStore, auth.NewHasher(cfg.HashSecret))

	// Set up router
	router := api.NewRouter(userService, api.RouterOptions{
		AllowedOrigins: cfg.CORSAllowedOrigins,
		Cookie: auth.CookieOptions{
			Domain: cfg.CookieDomain,
			Secure: cfg.IsProduction(),
		},
	})

	// Set up server
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.ServerPort),
		Handler: router,
	}

	// Graceful shutdown
	go func() {
		log.Info().Int("port", cfg.ServerPort).Msg("Server starting")
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("ListenAndServe failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exiting")
}

// openStore connects the configured backend and returns a close func for it.
func openStore(cfg *config.Config) (store.UserStore, func(), error) {
	switch cfg.DatabaseDriver {
	case config.DriverMongo:
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		client, err := database.NewMongo(ctx, cfg.MongoURI)
		if err != nil {
			return nil, nil, err
		}
		closeFn := func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := client.Disconnect(ctx); err != nil {
				log.Error().Err(err).Msg("Failed to disconnect from MongoDB")
			}
		}

		s, err := store.NewMongoStore(ctx, client.Database(cfg.MongoDatabase))
		if err != nil {
			closeFn()
			return nil, nil, err
		}
		return s, closeFn, nil

	default:
		db, err := database.New(cfg.DatabasePath)
		if err != nil {
			return nil, nil, err
		}
		if err := database.Migrate(db); err != nil {
			db.Close()
			return nil, nil, err
		}
		return store.NewSQLiteStore(db), func() { db.Close() }, nil
	}
}
