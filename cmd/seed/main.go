// Command seed creates the bootstrap superuser named by FIRST_USERNAME and
// FIRST_PASSWORD. It is safe to run on every deploy.
package main

import (
	"context"
	"time"

	"github.com/99minutos/auth-api/internal/app"
	"github.com/99minutos/auth-api/internal/pkg/config"
	"github.com/99minutos/auth-api/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log := logger.Init(logger.Options{})
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.IsDevelopment(),
		Service: "auth-seed",
		Version: cfg.Version,
	})

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	created, err := app.SeedInitialUser(ctx, cfg, log)
	cancel()
	if err != nil {
		log.Fatal().Err(err).Msg("seed initial user")
	}
	log.Info().Bool("created", created).Str("username", cfg.FirstUsername).Msg("seed finished")
}
