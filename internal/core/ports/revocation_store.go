package ports

import (
	"context"
	"time"
)

// RevocationStore tracks revoked token identifiers (jti).
//
// Revoke is idempotent. expiresAt is the expiry of the token being revoked;
// a store may forget the jti once that instant has passed because the token
// is rejected by its exp claim from then on.
type RevocationStore interface {
	Revoke(ctx context.Context, jti string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}
