package handlers

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/harentsoaR/healthcare-api/internal/models"
	"github.com/harentsoaR/healthcare-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterLoginLogout(t *testing.T) {
	env := newTestEnv(t)

	w, res := env.do(http.MethodPost, "/api/v1/auth/register", "", gin.H{
		"fullName": "Amina Rakoto",
		"email":    "Amina@Example.com",
		"password": "correct-horse",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var user models.User
	decodeData(t, res, &user)
	assert.Equal(t, "amina@example.com", user.Email)
	assert.Equal(t, models.RolePatient, user.Role)
	assert.NotContains(t, w.Body.String(), "correct-horse")
	assert.NotContains(t, w.Body.String(), "password")

	w, res = env.do(http.MethodPost, "/api/v1/auth/register", "", gin.H{
		"fullName": "Someone Else",
		"email":    "amina@example.com",
		"password": "another-pass",
	})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "USER_EXISTS", res.Error.Code)

	w, res = env.do(http.MethodPost, "/api/v1/auth/login", "", gin.H{"email": "amina@example.com", "password": "wrong-pass"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "INVALID_CREDENTIALS", res.Error.Code)

	w, res = env.do(http.MethodPost, "/api/v1/auth/login", "", gin.H{"email": "AMINA@example.com", "password": "correct-horse"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var login LoginResponse
	decodeData(t, res, &login)
	require.NotEmpty(t, login.Token)
	assert.Equal(t, user.ID, login.User.ID)

	w, res = env.do(http.MethodGet, "/api/v1/users/me", login.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var me models.User
	decodeData(t, res, &me)
	assert.Equal(t, "Amina Rakoto", me.FullName)

	w, _ = env.do(http.MethodPost, "/api/v1/auth/logout", login.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w, res = env.do(http.MethodGet, "/api/v1/users/me", login.Token, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "TOKEN_REVOKED", res.Error.Code)

	assert.EqualValues(t, 1, env.count(models.CollectionAuditLogs))
}

func TestRegister_ValidationDetails(t *testing.T) {
	env := newTestEnv(t)

	w, res := env.do(http.MethodPost, "/api/v1/auth/register", "", gin.H{
		"fullName": "A",
		"email":    "not-an-email",
		"password": "short",
		"role":     "admin",
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.False(t, res.Success)
	assert.Equal(t, "VALIDATION_ERROR", res.Error.Code)

	raw, ok := res.Error.Details.([]any)
	require.True(t, ok, "details should be a list")
	fields := map[string]bool{}
	for _, d := range raw {
		fields[d.(map[string]any)["field"].(string)] = true
	}
	for _, f := range []string{"fullName", "email", "password", "role"} {
		assert.True(t, fields[f], "missing detail for %s", f)
	}
	assert.EqualValues(t, 0, env.count(models.CollectionUsers))
}

func TestLogin_DisabledAccount(t *testing.T) {
	env := newTestEnv(t)

	_, _ = env.do(http.MethodPost, "/api/v1/auth/register", "", gin.H{
		"fullName": "Dormant User",
		"email":    "dormant@example.com",
		"password": "sleeping-beauty",
	})
	var users []models.User
	_, err := env.store.Collection(models.CollectionUsers).Query(context.Background(), store.Query{}, &users)
	require.NoError(t, err)
	require.Len(t, users, 1)
	require.NoError(t, env.store.Collection(models.CollectionUsers).Update(context.Background(), users[0].ID, map[string]any{"isActive": false}))

	w, res := env.do(http.MethodPost, "/api/v1/auth/login", "", gin.H{"email": "dormant@example.com", "password": "sleeping-beauty"})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "ACCOUNT_DISABLED", res.Error.Code)
}

func TestUpdateCurrentUser(t *testing.T) {
	env := newTestEnv(t)
	token := env.user("u1", models.RolePatient)

	w, res := env.do(http.MethodPut, "/api/v1/users/me", token, gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "NO_UPDATE_FIELDS", res.Error.Code)

	w, res = env.do(http.MethodPut, "/api/v1/users/me", token, gin.H{"fullName": "Renamed User"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var u models.User
	decodeData(t, res, &u)
	assert.Equal(t, "Renamed User", u.FullName)
}

func TestListUsers_AdminOnly(t *testing.T) {
	env := newTestEnv(t)
	patient := env.user("p1", models.RolePatient)
	admin := env.user("a1", models.RoleAdmin)
	env.user("d1", models.RoleDoctor)

	w, res := env.do(http.MethodGet, "/api/v1/users", patient, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "FORBIDDEN", res.Error.Code)

	w, res = env.do(http.MethodGet, "/api/v1/users?role=doctor", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var users []models.User
	decodeData(t, res, &users)
	require.Len(t, users, 1)
	assert.Equal(t, "d1", users[0].ID)
	assert.EqualValues(t, 1, res.Meta.Total)
}

func TestProtectedRoutes_RequireToken(t *testing.T) {
	env := newTestEnv(t)

	w, res := env.do(http.MethodPost, "/api/v1/appointments", "", gin.H{"doctorId": "d1"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "MISSING_TOKEN", res.Error.Code)

	w, res = env.do(http.MethodPost, "/api/v1/appointments", "not-a-jwt", gin.H{"doctorId": "d1"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "INVALID_TOKEN", res.Error.Code)

	assert.EqualValues(t, 0, env.count(models.CollectionAppointments))
}
