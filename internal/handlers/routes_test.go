package handlers

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/harentsoaR/healthcare-api/internal/models"
	"github.com/harentsoaR/healthcare-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type downStore struct {
	*store.MemoryStore
}

func (downStore) Ping(context.Context) error { return errors.New("connection refused") }

func TestHealth(t *testing.T) {
	env := newTestEnv(t)

	w, res := env.do(http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, res.Success)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	env.h.Store = downStore{env.store}
	w, res = env.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "STORE_UNAVAILABLE", res.Error.Code)
}

func TestNoRoute(t *testing.T) {
	env := newTestEnv(t)

	w, res := env.do(http.MethodGet, "/api/v1/nowhere", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.False(t, res.Success)
	assert.Equal(t, "ROUTE_NOT_FOUND", res.Error.Code)
}

func TestMalformedJSON(t *testing.T) {
	env := newTestEnv(t)

	w, res := env.do(http.MethodPost, "/api/v1/auth/login", "", `{"email":`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.False(t, res.Success)
	assert.NotEmpty(t, res.Error.Code)
}

func TestPurgeDocument(t *testing.T) {
	c := newClinic(t)

	w, res := c.env.do(http.MethodDelete, "/api/v1/admin/patients/p1", c.doctor, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "FORBIDDEN", res.Error.Code)

	w, res = c.env.do(http.MethodDelete, "/api/v1/admin/audit_logs/x", c.admin, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_COLLECTION", res.Error.Code)

	w, _ = c.env.do(http.MethodDelete, "/api/v1/admin/patients/p1", c.admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 0, c.env.count(models.CollectionPatients))

	w, res = c.env.do(http.MethodDelete, "/api/v1/admin/patients/p1", c.admin, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "DOCUMENT_NOT_FOUND", res.Error.Code)

	assert.EqualValues(t, 1, c.env.count(models.CollectionAuditLogs, store.Where("action", store.Eq, "purge")))
}
