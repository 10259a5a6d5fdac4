package ports

import (
	"context"

	"github.com/99minutos/auth-api/internal/core/domain"
)

// RegisterInput is the DTO passed from the transport layer to Register.
type RegisterInput struct {
	Username string
	Email    string
	FullName string
	Password string
}

// AuthService orchestrates the account and token flows.
type AuthService interface {
	Register(ctx context.Context, in RegisterInput) (*domain.User, error)
	Login(ctx context.Context, username, password string) (*domain.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (*domain.AccessGrant, error)
	Logout(ctx context.Context, accessToken string) error
	CurrentUser(ctx context.Context, accessToken string) (*domain.User, error)
	ListUsers(ctx context.Context, filter domain.UserFilter) ([]*domain.User, error)
}
