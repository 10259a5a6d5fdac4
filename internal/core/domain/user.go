package domain

import "time"

// User models an account that can authenticate against the API.
type User struct {
	ID           uint      `json:"-"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	FullName     string    `json:"full_name"`
	PasswordHash string    `json:"-"`
	Disabled     bool      `json:"disabled"`
	IsSuperuser  bool      `json:"-"`
	CreatedAt    time.Time `json:"-"`
	UpdatedAt    time.Time `json:"-"`
}

// PublicUser is the projection returned to API clients.
type PublicUser struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	Disabled bool   `json:"disabled"`
}

// Public strips everything a client must never see.
func (u *User) Public() PublicUser {
	return PublicUser{
		Username: u.Username,
		Email:    u.Email,
		FullName: u.FullName,
		Disabled: u.Disabled,
	}
}

// UserFilter narrows a user listing. Nil pointers mean "any".
type UserFilter struct {
	Skip        int
	Limit       int
	IsActive    *bool
	IsSuperuser *bool
}

const (
	DefaultUserListLimit = 100
	MaxUserListLimit     = 100
)

// Normalize clamps paging values into their allowed range.
func (f UserFilter) Normalize() UserFilter {
	if f.Skip < 0 {
		f.Skip = 0
	}
	if f.Limit <= 0 {
		f.Limit = DefaultUserListLimit
	}
	if f.Limit > MaxUserListLimit {
		f.Limit = MaxUserListLimit
	}
	return f
}
