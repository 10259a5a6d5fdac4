package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/99minutos/auth-api/internal/core/domain"
)

const collectionAuthEvents = "auth_events"

// AuditRepository implements ports.AuditRepository using MongoDB.
type AuditRepository struct {
	col *mongo.Collection
}

func NewAuditRepository(db *mongo.Database) *AuditRepository {
	return &AuditRepository{col: db.Collection(collectionAuthEvents)}
}

// InsertAuthEvent persists an auth event to the audit collection.
func (r *AuditRepository) InsertAuthEvent(ctx context.Context, e *domain.AuthEvent) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := bson.M{
		"type":         string(e.Type),
		"username":     e.Username,
		"success":      e.Success,
		"occurred_at":  e.OccurredAt.UTC(),
		"processed_at": time.Now().UTC(),
	}
	if e.Reason != "" {
		doc["reason"] = e.Reason
	}
	if e.RemoteIP != "" {
		doc["remote_ip"] = e.RemoteIP
	}
	if e.RequestID != "" {
		doc["request_id"] = e.RequestID
	}

	_, err := r.col.InsertOne(ctx, doc)
	return err
}
