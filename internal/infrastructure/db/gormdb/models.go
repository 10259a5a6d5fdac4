package gormdb

import (
	"time"

	"github.com/99minutos/auth-api/internal/core/domain"
)

type userModel struct {
	ID             uint   `gorm:"primaryKey;autoIncrement"`
	Username       string `gorm:"size:50;uniqueIndex;not null"`
	Email          string `gorm:"size:255;uniqueIndex;not null"`
	FullName       string `gorm:"size:100"`
	HashedPassword string `gorm:"not null"`
	IsActive       bool   `gorm:"not null"`
	IsSuperuser    bool   `gorm:"not null"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (userModel) TableName() string { return "users" }

func newUserModel(u *domain.User) *userModel {
	return &userModel{
		ID:             u.ID,
		Username:       u.Username,
		Email:          u.Email,
		FullName:       u.FullName,
		HashedPassword: u.PasswordHash,
		IsActive:       !u.Disabled,
		IsSuperuser:    u.IsSuperuser,
		CreatedAt:      u.CreatedAt,
		UpdatedAt:      u.UpdatedAt,
	}
}

func (m *userModel) toDomain() *domain.User {
	return &domain.User{
		ID:           m.ID,
		Username:     m.Username,
		Email:        m.Email,
		FullName:     m.FullName,
		PasswordHash: m.HashedPassword,
		Disabled:     !m.IsActive,
		IsSuperuser:  m.IsSuperuser,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

type authEventModel struct {
	ID         uint      `gorm:"primaryKey;autoIncrement"`
	Type       string    `gorm:"size:16;index;not null"`
	Username   string    `gorm:"size:50;index"`
	Success    bool      `gorm:"not null"`
	Reason     string    `gorm:"size:64"`
	RemoteIP   string    `gorm:"size:64"`
	RequestID  string    `gorm:"size:64"`
	OccurredAt time.Time `gorm:"index;not null"`
}

func (authEventModel) TableName() string { return "auth_events" }
