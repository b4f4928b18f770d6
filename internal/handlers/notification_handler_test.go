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

func TestNotifications_ReadFlow(t *testing.T) {
	env := newTestEnv(t)
	token := env.user("u1", models.RolePatient)
	other := env.user("u2", models.RolePatient)

	ctx := context.Background()
	for _, title := range []string{"one", "two", "three"} {
		require.NoError(t, env.h.Notifier.Notify(ctx, "u1", models.NotificationSystem, title, "body", nil))
	}
	require.NoError(t, env.h.Notifier.Notify(ctx, "u2", models.NotificationSystem, "theirs", "body", nil))

	w, res := env.do(http.MethodGet, "/api/v1/notifications", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list []models.Notification
	decodeData(t, res, &list)
	require.Len(t, list, 3)

	w, res = env.do(http.MethodPatch, "/api/v1/notifications/"+list[0].ID+"/read", other, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "FORBIDDEN", res.Error.Code)

	w, _ = env.do(http.MethodPatch, "/api/v1/notifications/"+list[0].ID+"/read", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w, res = env.do(http.MethodGet, "/api/v1/notifications?unreadOnly=true", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 2, res.Meta.Total)

	w, res = env.do(http.MethodPatch, "/api/v1/notifications/read-all", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var updated struct {
		Updated int64 `json:"updated"`
	}
	decodeData(t, res, &updated)
	assert.EqualValues(t, 2, updated.Updated)

	assert.EqualValues(t, 1, env.count(models.CollectionNotifications, store.Where("read", store.Eq, false)),
		"other users' notifications are untouched")
}

func TestBroadcastNotification(t *testing.T) {
	env := newTestEnv(t)
	admin := env.user("admin", models.RoleAdmin)
	doctor := env.user("d1", models.RoleDoctor)
	env.user("d2", models.RoleDoctor)
	env.user("p1", models.RolePatient)

	w, res := env.do(http.MethodPost, "/api/v1/notifications/broadcast", doctor, gin.H{
		"role": "doctor", "type": "system", "title": "Hi", "body": "All",
	})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, res = env.do(http.MethodPost, "/api/v1/notifications/broadcast", admin, gin.H{
		"type": "system", "title": "Hi", "body": "Nobody",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", res.Error.Code)

	w, res = env.do(http.MethodPost, "/api/v1/notifications/broadcast", admin, gin.H{
		"role": "doctor", "type": "system", "title": "Maintenance", "body": "Tonight at 22:00",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var out struct {
		Count int `json:"count"`
	}
	decodeData(t, res, &out)
	assert.Equal(t, 2, out.Count)

	w, res = env.do(http.MethodPost, "/api/v1/notifications/broadcast", admin, gin.H{
		"userIds": []string{"p1", "p1", "d1"}, "type": "reminder", "title": "Check-up", "body": "Book your yearly check-up",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	decodeData(t, res, &out)
	assert.Equal(t, 2, out.Count)

	assert.EqualValues(t, 4, env.count(models.CollectionNotifications))
}
