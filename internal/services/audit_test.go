package services

import (
	"context"
	"testing"

	"github.com/harentsoaR/healthcare-api/internal/models"
	"github.com/harentsoaR/healthcare-api/internal/store"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuditLogger_Record(t *testing.T) {
	st := store.NewMemoryStore()
	audit := NewAuditLogger(st, zerolog.Nop())

	audit.Record(context.Background(), "admin-1", "delete", models.CollectionDoctors, "doc-9")

	var entries []models.AuditLog
	total, err := st.Collection(models.CollectionAuditLogs).Query(context.Background(), store.Query{}, &entries)
	require.NoError(t, err)
	require.EqualValues(t, 1, total)
	assert.Equal(t, "admin-1", entries[0].ActorUID)
	assert.Equal(t, "delete", entries[0].Action)
	assert.Equal(t, "doc-9", entries[0].ResourceID)
	assert.False(t, entries[0].CreatedAt.IsZero())
}
