package gormdb

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/99minutos/auth-api/internal/core/domain"
)

// AuditRepository appends auth events to the "auth_events" table.
type AuditRepository struct {
	db *gorm.DB
}

func NewAuditRepository(db *gorm.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

func (r *AuditRepository) InsertAuthEvent(ctx context.Context, e *domain.AuthEvent) error {
	m := &authEventModel{
		Type:       string(e.Type),
		Username:   e.Username,
		Success:    e.Success,
		Reason:     e.Reason,
		RemoteIP:   e.RemoteIP,
		RequestID:  e.RequestID,
		OccurredAt: e.OccurredAt,
	}
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return fmt.Errorf("insert auth event: %w", err)
	}
	return nil
}

// CountAuthEvents returns how many events of typ were stored for username.
func (r *AuditRepository) CountAuthEvents(ctx context.Context, typ domain.AuthEventType, username string) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&authEventModel{}).
		Where("type = ? AND username = ?", string(typ), username).
		Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("count auth events: %w", err)
	}
	return n, nil
}
