package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/99minutos/auth-api/internal/core/domain"
	"github.com/99minutos/auth-api/internal/core/ports"
	"github.com/99minutos/auth-api/internal/pkg/metrics"
)

// AuthService implements registration, the password and refresh grants,
// logout and current-user resolution. It keeps no state of its own.
type AuthService struct {
	users  ports.UserRepository
	tokens ports.TokenService
	hasher *PasswordHasher
	audit  ports.AuditPublisher
	log    zerolog.Logger
}

// NewAuthService wires the orchestrator. audit may be nil.
func NewAuthService(
	users ports.UserRepository,
	tokens ports.TokenService,
	hasher *PasswordHasher,
	audit ports.AuditPublisher,
	log zerolog.Logger,
) *AuthService {
	if audit == nil {
		audit = discardAudit{}
	}
	return &AuthService{
		users:  users,
		tokens: tokens,
		hasher: hasher,
		audit:  audit,
		log:    log.With().Str("component", "auth_service").Logger(),
	}
}

// Register creates an active, non-superuser account.
func (s *AuthService) Register(ctx context.Context, in ports.RegisterInput) (*domain.User, error) {
	user, err := s.createUser(ctx, in, false)
	if err != nil {
		s.record(ctx, domain.EventRegister, in.Username, failureReason(err))
		return nil, err
	}
	s.record(ctx, domain.EventRegister, user.Username, "")
	return user, nil
}

func (s *AuthService) createUser(ctx context.Context, in ports.RegisterInput, superuser bool) (*domain.User, error) {
	taken, err := s.users.ExistsByUsername(ctx, in.Username)
	if err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}
	if taken {
		return nil, domain.ErrDuplicateUsername
	}

	taken, err = s.users.ExistsByEmail(ctx, in.Email)
	if err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}
	if taken {
		return nil, domain.ErrDuplicateEmail
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("register: hash password: %w", err)
	}

	now := time.Now().UTC()
	created, err := s.users.Create(ctx, &domain.User{
		Username:     in.Username,
		Email:        in.Email,
		FullName:     in.FullName,
		PasswordHash: hash,
		IsSuperuser:  superuser,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		if errors.Is(err, domain.ErrDuplicateUsername) || errors.Is(err, domain.ErrDuplicateEmail) {
			return nil, err
		}
		return nil, fmt.Errorf("register: %w", err)
	}
	return created, nil
}

// Login runs the password grant. Unknown user, wrong password and disabled
// account all yield domain.ErrInvalidGrant.
func (s *AuthService) Login(ctx context.Context, username, password string) (*domain.TokenPair, error) {
	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		if !errors.Is(err, domain.ErrUserNotFound) {
			return nil, fmt.Errorf("login: %w", err)
		}
		s.hasher.burn(password)
		s.record(ctx, domain.EventLogin, username, "unknown_user")
		return nil, domain.ErrInvalidGrant
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		s.record(ctx, domain.EventLogin, username, "bad_password")
		return nil, domain.ErrInvalidGrant
	}
	if user.Disabled {
		s.record(ctx, domain.EventLogin, username, "disabled")
		return nil, domain.ErrInvalidGrant
	}

	access, _, err := s.tokens.IssueAccess(user)
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	refresh, _, err := s.tokens.IssueRefresh(user)
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}

	s.record(ctx, domain.EventLogin, username, "")
	return &domain.TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    domain.TokenTypeBearer,
		ExpiresIn:    s.expiresIn(),
	}, nil
}

// Refresh exchanges a refresh token for a new access token. The refresh token
// itself stays valid and earlier access tokens are untouched.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*domain.AccessGrant, error) {
	claims, err := s.tokens.Decode(ctx, refreshToken, domain.TokenRefresh)
	if err != nil {
		s.record(ctx, domain.EventRefresh, "", "invalid_token")
		return nil, domain.ErrInvalidGrant
	}

	user, err := s.users.FindByUsername(ctx, claims.Subject)
	if err != nil {
		if !errors.Is(err, domain.ErrUserNotFound) {
			return nil, fmt.Errorf("refresh: %w", err)
		}
		s.record(ctx, domain.EventRefresh, claims.Subject, "unknown_user")
		return nil, domain.ErrInvalidGrant
	}
	if user.Disabled {
		s.record(ctx, domain.EventRefresh, claims.Subject, "disabled")
		return nil, domain.ErrInvalidGrant
	}

	access, _, err := s.tokens.IssueAccess(user)
	if err != nil {
		return nil, fmt.Errorf("refresh: %w", err)
	}

	s.record(ctx, domain.EventRefresh, user.Username, "")
	return &domain.AccessGrant{
		AccessToken: access,
		TokenType:   domain.TokenTypeBearer,
		ExpiresIn:   s.expiresIn(),
	}, nil
}

// Logout revokes the jti of accessToken. A token that does not decode is
// already unusable, so that case is a successful no-op.
func (s *AuthService) Logout(ctx context.Context, accessToken string) error {
	claims, err := s.tokens.Decode(ctx, accessToken, domain.TokenAccess)
	if err != nil {
		return nil
	}
	if err := s.tokens.Revoke(ctx, claims); err != nil {
		s.record(ctx, domain.EventLogout, claims.Subject, "revoke_failed")
		return fmt.Errorf("logout: %w", err)
	}
	s.record(ctx, domain.EventLogout, claims.Subject, "")
	return nil
}

// CurrentUser resolves the account behind a valid access token.
func (s *AuthService) CurrentUser(ctx context.Context, accessToken string) (*domain.User, error) {
	claims, err := s.tokens.Decode(ctx, accessToken, domain.TokenAccess)
	if err != nil {
		return nil, domain.ErrUnauthenticated
	}

	user, err := s.users.FindByUsername(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrUnauthenticated
		}
		return nil, fmt.Errorf("current user: %w", err)
	}
	if user.Disabled {
		return nil, domain.ErrAccountDisabled
	}
	return user, nil
}

// ListUsers returns a page of accounts matching filter.
func (s *AuthService) ListUsers(ctx context.Context, filter domain.UserFilter) ([]*domain.User, error) {
	users, err := s.users.List(ctx, filter.Normalize())
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// SeedInitialUser creates the bootstrap superuser unless the username is
// already taken. It reports whether an account was created.
func (s *AuthService) SeedInitialUser(ctx context.Context, username, password string) (bool, error) {
	exists, err := s.users.ExistsByUsername(ctx, username)
	if err != nil {
		return false, fmt.Errorf("seed: %w", err)
	}
	if exists {
		s.log.Info().Str("username", username).Msg("initial user already exists, skipping creation")
		return false, nil
	}

	if _, err := s.createUser(ctx, ports.RegisterInput{
		Username: username,
		Email:    username + "@example.com",
		FullName: "Initial User",
		Password: password,
	}, true); err != nil {
		return false, err
	}
	s.log.Info().Str("username", username).Msg("initial user created")
	return true, nil
}

func (s *AuthService) expiresIn() int64 {
	return int64(s.tokens.AccessTTL() / time.Second)
}

// record publishes an audit event; an empty reason means success.
func (s *AuthService) record(ctx context.Context, typ domain.AuthEventType, username, reason string) {
	result := "success"
	if reason != "" {
		result = "failure"
	}
	metrics.AuthFlowsTotal.WithLabelValues(string(typ), result).Inc()

	meta := domain.RequestMetaFrom(ctx)
	s.audit.Publish(domain.AuthEvent{
		Type:       typ,
		Username:   username,
		Success:    reason == "",
		Reason:     reason,
		RemoteIP:   meta.RemoteIP,
		RequestID:  meta.RequestID,
		OccurredAt: time.Now().UTC(),
	})
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrDuplicateUsername):
		return "duplicate_username"
	case errors.Is(err, domain.ErrDuplicateEmail):
		return "duplicate_email"
	default:
		return "internal_error"
	}
}

type discardAudit struct{}

func (discardAudit) Publish(domain.AuthEvent) {}
