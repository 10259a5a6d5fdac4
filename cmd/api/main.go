// Command api serves the token authentication HTTP API.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/99minutos/auth-api/docs"
	"github.com/99minutos/auth-api/internal/api"
	"github.com/99minutos/auth-api/internal/api/handler"
	"github.com/99minutos/auth-api/internal/app"
	"github.com/99minutos/auth-api/internal/core/ports"
	"github.com/99minutos/auth-api/internal/core/service"
	redisdb "github.com/99minutos/auth-api/internal/infrastructure/db/redis"
	infrahttp "github.com/99minutos/auth-api/internal/infrastructure/http"
	"github.com/99minutos/auth-api/internal/infrastructure/queue"
	"github.com/99minutos/auth-api/internal/infrastructure/revocation"
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
		Service: "auth-api",
		Version: cfg.Version,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("auth api stopped")
	}
	log.Info().Msg("auth api stopped")
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	storage, err := app.OpenStorage(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := storage.Close(closeCtx); err != nil {
			log.Warn().Err(err).Msg("closing storage")
		}
	}()

	var (
		revocations ports.RevocationStore
		rdb         *goredis.Client
	)
	switch cfg.Revocation.Backend {
	case config.BackendRedis:
		rdb, err = redisdb.Connect(ctx, redisdb.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return err
		}
		defer rdb.Close()
		revocations = redisdb.NewRevocationStore(rdb)
	default:
		mem := revocation.NewMemoryStore()
		go mem.Run(ctx, revocation.DefaultSweepInterval)
		revocations = mem
	}
	log.Info().Str("backend", cfg.Revocation.Backend).Msg("revocation store ready")

	// Workers outlive ctx so Close can drain events from in-flight requests.
	dispatcher := queue.NewDispatcher(cfg.AuditWorkers, service.NewAuditService(storage.Audit, log), log)
	dispatcher.Start(context.Background())
	defer dispatcher.Close()

	authService, err := app.NewAuthService(cfg, storage.Users, revocations, dispatcher, log)
	if err != nil {
		return err
	}

	trustedProxies, err := cfg.TrustedProxyRanges()
	if err != nil {
		return err
	}

	docs.SwaggerInfo.Title = cfg.ProjectName
	docs.SwaggerInfo.Version = cfg.Version
	docs.SwaggerInfo.BasePath = cfg.APIPrefix

	router := api.NewRouter(api.RouterConfig{
		APIPrefix:          cfg.APIPrefix,
		AllowedOrigins:     cfg.AllowedOrigins(),
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		TrustedProxies:     trustedProxies,
	}, authService, handler.NewHealthHandler(storage.Users, rdb), log)

	return infrahttp.NewServer(cfg.Port, router, log).Run(ctx)
}
