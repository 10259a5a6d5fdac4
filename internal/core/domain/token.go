package domain

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenKind discriminates access tokens from refresh tokens.
type TokenKind string

const (
	TokenAccess  TokenKind = "access"
	TokenRefresh TokenKind = "refresh"
)

// TokenTypeBearer is the OAuth2 token_type reported to clients.
const TokenTypeBearer = "bearer"

// TokenClaims is the signed payload of every token the service issues.
// Subject carries the username and ID carries the jti.
type TokenClaims struct {
	Kind TokenKind `json:"type"`
	jwt.RegisteredClaims
}

// ExpiresAtTime returns the exp claim, or the zero time when absent.
func (c *TokenClaims) ExpiresAtTime() time.Time {
	if c.ExpiresAt == nil {
		return time.Time{}
	}
	return c.ExpiresAt.Time
}

// TokenPair is the result of a successful password grant.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
}

// AccessGrant is the result of a successful refresh grant.
type AccessGrant struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}
