package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/harentsoaR/healthcare-api/internal/models"
	"github.com/harentsoaR/healthcare-api/internal/response"
	"github.com/harentsoaR/healthcare-api/internal/services"
	"github.com/harentsoaR/healthcare-api/internal/store"
	"github.com/harentsoaR/healthcare-api/internal/utils"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	t      *testing.T
	store  *store.MemoryStore
	h      *Handler
	router *gin.Engine
}

type envelope struct {
	Success bool               `json:"success"`
	Data    json.RawMessage    `json:"data"`
	Meta    *response.Meta     `json:"meta"`
	Error   response.ErrorBody `json:"error"`
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	utils.BcryptCost = 4

	st := store.NewMemoryStore()
	revocations := services.NewMemoryRevocationStore()
	t.Cleanup(revocations.Close)

	log := zerolog.Nop()
	notifier := services.NewNotificationService(st, services.NoopMailer{Log: log}, log)
	t.Cleanup(notifier.Wait)

	h := NewHandler(
		st,
		services.NewTokenService("test-secret", "healthcare-api-test", time.Hour, revocations),
		notifier,
		services.NewMemoryLocker(),
		services.NewAuditLogger(st, log),
		services.NewSymptomAnalyzer(),
		log,
	)
	return &testEnv{t: t, store: st, h: h, router: NewRouter(h, RouterConfig{})}
}

// user inserts an active user and returns a bearer token for it.
func (e *testEnv) user(id, role string) string {
	e.t.Helper()
	now := time.Now().UTC()
	u := models.User{
		ID:        id,
		FullName:  "User " + id,
		Email:     id + "@example.com",
		Role:      role,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(e.t, e.store.Collection(models.CollectionUsers).Add(context.Background(), u))
	token, _, err := e.h.Tokens.Issue(&u)
	require.NoError(e.t, err)
	return token
}

func (e *testEnv) doctor(id, uid string, specialties ...string) models.Doctor {
	e.t.Helper()
	now := time.Now().UTC()
	d := models.Doctor{
		ID:            id,
		UID:           uid,
		Name:          "Dr " + id,
		Specialties:   specialties,
		LicenseNumber: "LIC-" + id,
		IsActive:      true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	require.NoError(e.t, e.store.Collection(models.CollectionDoctors).Add(context.Background(), d))
	return d
}

func (e *testEnv) patient(id, uid string) models.Patient {
	e.t.Helper()
	now := time.Now().UTC()
	p := models.Patient{
		ID:        id,
		UID:       uid,
		Name:      "Patient " + id,
		Email:     uid + "@example.com",
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(e.t, e.store.Collection(models.CollectionPatients).Add(context.Background(), p))
	return p
}

func (e *testEnv) do(method, path, token string, body any) (*httptest.ResponseRecorder, envelope) {
	e.t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(e.t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 {
		require.NoError(e.t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	}
	return w, env
}

func (e *testEnv) count(collection string, filters ...store.Filter) int64 {
	e.t.Helper()
	var docs []map[string]any
	n, err := e.store.Collection(collection).Query(context.Background(), store.Query{Filters: filters}, &docs)
	require.NoError(e.t, err)
	return n
}

func decodeData(t *testing.T, env envelope, out any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(env.Data, out))
}
