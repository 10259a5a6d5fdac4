package ports

import (
	"context"
	"time"

	"github.com/99minutos/auth-api/internal/core/domain"
)

// TokenService issues, decodes and revokes signed tokens.
//
// Decode never reports why a token was rejected: every failure is
// domain.ErrInvalidToken.
type TokenService interface {
	Issue(user *domain.User, kind domain.TokenKind, ttl time.Duration) (string, *domain.TokenClaims, error)
	IssueAccess(user *domain.User) (string, *domain.TokenClaims, error)
	IssueRefresh(user *domain.User) (string, *domain.TokenClaims, error)
	Decode(ctx context.Context, token string, kind domain.TokenKind) (*domain.TokenClaims, error)
	Revoke(ctx context.Context, claims *domain.TokenClaims) error
	AccessTTL() time.Duration
}
