package services

import (
	"context"
	"time"

	"github.com/harentsoaR/healthcare-api/internal/models"
	"github.com/harentsoaR/healthcare-api/internal/store"
	"github.com/rs/zerolog"
)

// AuditLogger appends audit entries after the primary write. A failed
// entry is logged and never fails the request.
type AuditLogger struct {
	store store.Store
	log   zerolog.Logger
	now   func() time.Time
}

func NewAuditLogger(st store.Store, log zerolog.Logger) *AuditLogger {
	return &AuditLogger{
		store: st,
		log:   log.With().Str("component", "audit").Logger(),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

func (a *AuditLogger) Record(ctx context.Context, actorUID, action, resource, resourceID string) {
	now := a.now()
	entry := models.AuditLog{
		ID:         store.NewID(),
		ActorUID:   actorUID,
		Action:     action,
		Resource:   resource,
		ResourceID: resourceID,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := a.store.Collection(models.CollectionAuditLogs).Add(ctx, entry); err != nil {
		a.log.Error().Err(err).
			Str("action", action).
			Str("resource", resource).
			Str("resource_id", resourceID).
			Msg("failed to write audit entry")
	}
}
