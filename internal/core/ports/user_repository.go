package ports

import (
	"context"

	"github.com/99minutos/auth-api/internal/core/domain"
)

// UserRepository defines the persistence operations the auth flows need.
// Implementations return domain.ErrUserNotFound for missing rows and map
// unique-index violations to domain.ErrDuplicateUsername / ErrDuplicateEmail.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	FindByUsername(ctx context.Context, username string) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	Update(ctx context.Context, user *domain.User) error
	Delete(ctx context.Context, id uint) (bool, error)
	List(ctx context.Context, filter domain.UserFilter) ([]*domain.User, error)
	Ping(ctx context.Context) error
}
