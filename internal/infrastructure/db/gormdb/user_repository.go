package gormdb

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/99minutos/auth-api/internal/core/domain"
)

// UserRepository persists users in the "users" table.
type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts user. A unique-index violation is reported as
// domain.ErrDuplicateUsername or domain.ErrDuplicateEmail.
func (r *UserRepository) Create(ctx context.Context, user *domain.User) (*domain.User, error) {
	m := newUserModel(user)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, r.duplicateCause(ctx, user.Username)
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return m.toDomain(), nil
}

func (r *UserRepository) duplicateCause(ctx context.Context, username string) error {
	if taken, err := r.ExistsByUsername(ctx, username); err == nil && taken {
		return domain.ErrDuplicateUsername
	}
	return domain.ErrDuplicateEmail
}

// FindByUsername looks a user up by exact, case-sensitive username.
func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.findOne(ctx, "username = ?", username)
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.findOne(ctx, "email = ?", email)
}

func (r *UserRepository) findOne(ctx context.Context, query string, arg any) (*domain.User, error) {
	var m userModel
	if err := r.db.WithContext(ctx).Where(query, arg).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return m.toDomain(), nil
}

func (r *UserRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	return r.exists(ctx, "username = ?", username)
}

func (r *UserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return r.exists(ctx, "email = ?", email)
}

func (r *UserRepository) exists(ctx context.Context, query string, arg any) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&userModel{}).Where(query, arg).Count(&count).Error; err != nil {
		return false, fmt.Errorf("count users: %w", err)
	}
	return count > 0, nil
}

// Update writes every mutable column of user, including false booleans.
func (r *UserRepository) Update(ctx context.Context, user *domain.User) error {
	res := r.db.WithContext(ctx).Model(&userModel{}).Where("id = ?", user.ID).Updates(map[string]any{
		"email":           user.Email,
		"full_name":       user.FullName,
		"hashed_password": user.PasswordHash,
		"is_active":       !user.Disabled,
		"is_superuser":    user.IsSuperuser,
	})
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
			return domain.ErrDuplicateEmail
		}
		return fmt.Errorf("update user: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

// Delete removes the user with id and reports whether a row was deleted.
func (r *UserRepository) Delete(ctx context.Context, id uint) (bool, error) {
	res := r.db.WithContext(ctx).Delete(&userModel{}, id)
	if res.Error != nil {
		return false, fmt.Errorf("delete user: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

// List returns users ordered by id, filtered and paged by f.
func (r *UserRepository) List(ctx context.Context, f domain.UserFilter) ([]*domain.User, error) {
	q := r.db.WithContext(ctx).Model(&userModel{})
	if f.IsActive != nil {
		q = q.Where("is_active = ?", *f.IsActive)
	}
	if f.IsSuperuser != nil {
		q = q.Where("is_superuser = ?", *f.IsSuperuser)
	}

	var rows []userModel
	if err := q.Order("id").Offset(f.Skip).Limit(f.Limit).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	users := make([]*domain.User, 0, len(rows))
	for i := range rows {
		users = append(users, rows[i].toDomain())
	}
	return users, nil
}

// Ping checks database connectivity.
func (r *UserRepository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
