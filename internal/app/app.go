// Package app assembles the storage and service graph shared by the
// executables under cmd/.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/99minutos/auth-api/internal/core/ports"
	"github.com/99minutos/auth-api/internal/core/service"
	"github.com/99minutos/auth-api/internal/infrastructure/db/gormdb"
	mongodb "github.com/99minutos/auth-api/internal/infrastructure/db/mongo"
	"github.com/99minutos/auth-api/internal/infrastructure/revocation"
	"github.com/99minutos/auth-api/internal/pkg/config"
)

// Storage is the opened persistence backend selected by DB_DRIVER.
type Storage struct {
	Users ports.UserRepository
	Audit ports.AuditRepository
	close func(context.Context) error
}

// Close releases the backend connections.
func (s *Storage) Close(ctx context.Context) error {
	if s.close == nil {
		return nil
	}
	return s.close(ctx)
}

// OpenStorage connects to the configured database and prepares its schema
// (gorm migrations or mongo indexes).
func OpenStorage(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*Storage, error) {
	switch cfg.Database.Driver {
	case config.DriverMongo:
		client, db, err := mongodb.Connect(ctx, mongodb.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
		if err != nil {
			return nil, err
		}
		users := mongodb.NewUserRepository(db)
		if err := users.EnsureIndexes(ctx); err != nil {
			_ = client.Disconnect(ctx)
			return nil, fmt.Errorf("mongo indexes: %w", err)
		}
		log.Info().Str("driver", cfg.Database.Driver).Str("database", cfg.Mongo.Database).Msg("storage ready")
		return &Storage{
			Users: users,
			Audit: mongodb.NewAuditRepository(db),
			close: client.Disconnect,
		}, nil

	default:
		db, err := gormdb.Connect(ctx, gormdb.Config{
			Driver: cfg.Database.Driver,
			DSN:    cfg.Database.DSN(),
			Debug:  cfg.Database.Debug,
		})
		if err != nil {
			return nil, err
		}
		log.Info().Str("driver", cfg.Database.Driver).Msg("storage ready")
		return &Storage{
			Users: gormdb.NewUserRepository(db),
			Audit: gormdb.NewAuditRepository(db),
			close: func(context.Context) error { return gormdb.Close(db) },
		}, nil
	}
}

// NewAuthService builds the token service, password hasher and auth
// orchestrator from cfg. audit may be nil.
func NewAuthService(
	cfg *config.Config,
	users ports.UserRepository,
	revocations ports.RevocationStore,
	audit ports.AuditPublisher,
	log zerolog.Logger,
) (*service.AuthService, error) {
	tokens, err := service.NewTokenService(service.TokenConfig{
		Secret:     []byte(cfg.Auth.SecretKey),
		Algorithm:  cfg.Auth.Algorithm,
		AccessTTL:  cfg.Auth.AccessTTL(),
		RefreshTTL: cfg.Auth.RefreshTTL(),
	}, revocations, log)
	if err != nil {
		return nil, err
	}

	hasher, err := service.NewPasswordHasher(cfg.Auth.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("password hasher: %w", err)
	}

	return service.NewAuthService(users, tokens, hasher, audit, log), nil
}

// SeedInitialUser opens storage, creates the FIRST_USERNAME superuser if it
// does not exist yet, and closes storage again on every path.
func SeedInitialUser(ctx context.Context, cfg *config.Config, log zerolog.Logger) (created bool, err error) {
	if cfg.FirstUsername == "" || cfg.FirstPassword == "" {
		return false, errors.New("FIRST_USERNAME and FIRST_PASSWORD must be set")
	}

	storage, err := OpenStorage(ctx, cfg, log)
	if err != nil {
		return false, err
	}
	defer func() {
		if cerr := storage.Close(ctx); cerr != nil && err == nil {
			err = fmt.Errorf("close storage: %w", cerr)
		}
	}()

	authService, err := NewAuthService(cfg, storage.Users, revocation.NewMemoryStore(), nil, log)
	if err != nil {
		return false, err
	}
	return authService.SeedInitialUser(ctx, cfg.FirstUsername, cfg.FirstPassword)
}
