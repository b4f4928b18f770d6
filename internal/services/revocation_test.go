package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryRevocationStore(t *testing.T) {
	s := NewMemoryRevocationStore()
	defer s.Close()
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, s.Revoke(ctx, "live", now.Add(time.Hour)))
	require.NoError(t, s.Revoke(ctx, "stale", now.Add(-time.Minute)))

	revoked, err := s.IsRevoked(ctx, "live")
	require.NoError(t, err)
	assert.True(t, revoked)

	revoked, err = s.IsRevoked(ctx, "unknown")
	require.NoError(t, err)
	assert.False(t, revoked)

	s.cleanup()
	assert.Equal(t, 1, s.Len())
	revoked, _ = s.IsRevoked(ctx, "stale")
	assert.False(t, revoked)

	s.Close()
	s.Close()
}
