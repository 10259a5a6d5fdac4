package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"github.com/99minutos/auth-api/internal/core/domain"
	"github.com/99minutos/auth-api/internal/core/ports"
	"github.com/99minutos/auth-api/internal/pkg/metrics"
)

const (
	defaultAccessTTL  = 30 * time.Minute
	defaultRefreshTTL = 7 * 24 * time.Hour

	// Refresh tokens live for days, so they get a wider jti.
	accessJTIBytes  = 8
	refreshJTIBytes = 16
)

// TokenConfig holds the signing material and lifetimes for TokenService.
type TokenConfig struct {
	Secret     []byte
	Algorithm  string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// TokenService signs and validates access and refresh tokens. Both kinds share
// one key and algorithm and are told apart by the "type" claim.
type TokenService struct {
	secret      []byte
	method      jwt.SigningMethod
	accessTTL   time.Duration
	refreshTTL  time.Duration
	revocations ports.RevocationStore
	parser      *jwt.Parser
	log         zerolog.Logger
	now         func() time.Time
}

// NewTokenService validates cfg and returns a TokenService backed by store.
// Only HMAC algorithms are accepted; HS256 is used when none is configured.
func NewTokenService(cfg TokenConfig, store ports.RevocationStore, log zerolog.Logger) (*TokenService, error) {
	if len(cfg.Secret) == 0 {
		return nil, errors.New("token service: empty signing secret")
	}
	if store == nil {
		return nil, errors.New("token service: nil revocation store")
	}

	alg := cfg.Algorithm
	if alg == "" {
		alg = jwt.SigningMethodHS256.Alg()
	}
	method, ok := jwt.GetSigningMethod(alg).(*jwt.SigningMethodHMAC)
	if !ok {
		return nil, fmt.Errorf("token service: unsupported algorithm %q", alg)
	}

	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = defaultAccessTTL
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = defaultRefreshTTL
	}

	s := &TokenService{
		secret:      cfg.Secret,
		method:      method,
		accessTTL:   cfg.AccessTTL,
		refreshTTL:  cfg.RefreshTTL,
		revocations: store,
		log:         log.With().Str("component", "token_service").Logger(),
		now:         time.Now,
	}
	s.parser = jwt.NewParser(
		jwt.WithValidMethods([]string{method.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return s.now() }),
	)
	return s, nil
}

// AccessTTL reports the lifetime of access tokens.
func (s *TokenService) AccessTTL() time.Duration { return s.accessTTL }

// IssueAccess signs an access token for user with the configured lifetime.
func (s *TokenService) IssueAccess(user *domain.User) (string, *domain.TokenClaims, error) {
	return s.Issue(user, domain.TokenAccess, s.accessTTL)
}

// IssueRefresh signs a refresh token for user with the configured lifetime.
func (s *TokenService) IssueRefresh(user *domain.User) (string, *domain.TokenClaims, error) {
	return s.Issue(user, domain.TokenRefresh, s.refreshTTL)
}

// Issue signs a token of the given kind for user, valid for ttl from now.
func (s *TokenService) Issue(user *domain.User, kind domain.TokenKind, ttl time.Duration) (string, *domain.TokenClaims, error) {
	if user == nil || user.Username == "" {
		return "", nil, errors.New("issue token: missing subject")
	}

	size := accessJTIBytes
	if kind == domain.TokenRefresh {
		size = refreshJTIBytes
	}
	jti, err := newJTI(size)
	if err != nil {
		return "", nil, fmt.Errorf("issue token: %w", err)
	}

	now := s.now()
	claims := &domain.TokenClaims{
		Kind: kind,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.Username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        jti,
		},
	}

	signed, err := jwt.NewWithClaims(s.method, claims).SignedString(s.secret)
	if err != nil {
		return "", nil, fmt.Errorf("issue token: sign: %w", err)
	}

	metrics.TokensIssuedTotal.WithLabelValues(string(kind)).Inc()
	return signed, claims, nil
}

// Decode verifies raw and returns its claims when it is a valid, unexpired,
// unrevoked token of the expected kind. Any other outcome is
// domain.ErrInvalidToken.
func (s *TokenService) Decode(ctx context.Context, raw string, kind domain.TokenKind) (*domain.TokenClaims, error) {
	claims := &domain.TokenClaims{}
	if _, err := s.parser.ParseWithClaims(raw, claims, s.keyFunc); err != nil {
		return nil, s.reject(kind, parseFailureReason(err))
	}

	if claims.Kind != kind {
		return nil, s.reject(kind, "kind")
	}
	if claims.Subject == "" {
		return nil, s.reject(kind, "subject")
	}

	if claims.ID != "" {
		revoked, err := s.revocations.IsRevoked(ctx, claims.ID)
		if err != nil {
			s.log.Warn().Err(err).Msg("revocation lookup failed, rejecting token")
			return nil, s.reject(kind, "store")
		}
		if revoked {
			return nil, s.reject(kind, "revoked")
		}
	}

	return claims, nil
}

// Revoke marks the token described by claims as revoked until it expires.
// Claims without a jti cannot be revoked and are ignored.
func (s *TokenService) Revoke(ctx context.Context, claims *domain.TokenClaims) error {
	if claims == nil || claims.ID == "" {
		return nil
	}
	if err := s.revocations.Revoke(ctx, claims.ID, claims.ExpiresAtTime()); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	metrics.TokensRevokedTotal.Inc()
	return nil
}

func (s *TokenService) keyFunc(*jwt.Token) (any, error) {
	return s.secret, nil
}

func (s *TokenService) reject(kind domain.TokenKind, reason string) error {
	metrics.TokenRejectionsTotal.WithLabelValues(string(kind), reason).Inc()
	s.log.Debug().Str("expected_kind", string(kind)).Str("reason", reason).Msg("token rejected")
	return domain.ErrInvalidToken
}

func parseFailureReason(err error) string {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return "expired"
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return "signature"
	default:
		return "malformed"
	}
}

// newJTI returns n random bytes encoded as unpadded base64url.
func newJTI(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
