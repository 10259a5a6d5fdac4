package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/99minutos/auth-api/internal/core/domain"
	"github.com/99minutos/auth-api/internal/core/ports"
)

// AuditService persists auth events handed over by the dispatcher workers.
type AuditService struct {
	repo ports.AuditRepository
	log  zerolog.Logger
}

// NewAuditService returns an AuditService. A nil repo only logs.
func NewAuditService(repo ports.AuditRepository, log zerolog.Logger) *AuditService {
	return &AuditService{repo: repo, log: log.With().Str("component", "audit").Logger()}
}

// Handle logs event and, when a repository is configured, stores it.
func (s *AuditService) Handle(ctx context.Context, event domain.AuthEvent) error {
	entry := s.log.Info()
	if !event.Success {
		entry = s.log.Warn().Str("reason", event.Reason)
	}
	entry.
		Str("event", string(event.Type)).
		Str("username", event.Username).
		Str("remote_ip", event.RemoteIP).
		Str("request_id", event.RequestID).
		Bool("success", event.Success).
		Msg("auth event")

	if s.repo == nil {
		return nil
	}
	if err := s.repo.InsertAuthEvent(ctx, &event); err != nil {
		return fmt.Errorf("audit: %w", err)
	}
	return nil
}
