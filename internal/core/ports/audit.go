package ports

import (
	"context"

	"github.com/99minutos/auth-api/internal/core/domain"
)

// AuditPublisher accepts auth events without blocking the request path.
type AuditPublisher interface {
	Publish(event domain.AuthEvent)
}

// AuditRepository persists auth events.
type AuditRepository interface {
	InsertAuthEvent(ctx context.Context, event *domain.AuthEvent) error
}
