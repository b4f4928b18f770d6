package handlers

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/harentsoaR/healthcare-api/internal/models"
	"github.com/harentsoaR/healthcare-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessages_Conversation(t *testing.T) {
	env := newTestEnv(t)
	alice := env.user("alice", models.RolePatient)
	bob := env.user("bob", models.RoleDoctor)
	carol := env.user("carol", models.RolePatient)

	w, res := env.do(http.MethodPost, "/api/v1/messages", alice, gin.H{"recipientId": "bob", "content": "Hello doctor"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var first models.Message
	decodeData(t, res, &first)
	assert.Equal(t, models.ConversationID("alice", "bob"), first.ConversationID)

	w, _ = env.do(http.MethodPost, "/api/v1/messages", bob, gin.H{"recipientId": "alice", "content": "Hi, how can I help?"})
	require.Equal(t, http.StatusCreated, w.Code)

	w, res = env.do(http.MethodGet, "/api/v1/messages?with=alice", bob, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var thread []models.Message
	decodeData(t, res, &thread)
	require.Len(t, thread, 2)
	assert.EqualValues(t, 2, res.Meta.Total)

	w, res = env.do(http.MethodGet, "/api/v1/messages?with=alice", carol, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 0, res.Meta.Total)

	w, res = env.do(http.MethodPatch, "/api/v1/messages/"+first.ID+"/read", alice, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "FORBIDDEN", res.Error.Code)

	for i := 0; i < 2; i++ {
		w, res = env.do(http.MethodPatch, "/api/v1/messages/"+first.ID+"/read", bob, nil)
		require.Equal(t, http.StatusOK, w.Code)
		var read models.Message
		decodeData(t, res, &read)
		assert.True(t, read.Read)
	}

	assert.EqualValues(t, 1, env.count(models.CollectionNotifications,
		store.Where("userId", store.Eq, "bob"), store.Where("type", store.Eq, models.NotificationMessage)))
}

func TestMessages_Rejections(t *testing.T) {
	env := newTestEnv(t)
	alice := env.user("alice", models.RolePatient)

	w, res := env.do(http.MethodPost, "/api/v1/messages", alice, gin.H{"recipientId": "alice", "content": "note to self"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_RECIPIENT", res.Error.Code)

	w, res = env.do(http.MethodPost, "/api/v1/messages", alice, gin.H{"recipientId": "ghost", "content": "anyone?"})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "USER_NOT_FOUND", res.Error.Code)

	w, res = env.do(http.MethodPost, "/api/v1/messages", alice, gin.H{"recipientId": "ghost", "content": ""})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", res.Error.Code)

	w, res = env.do(http.MethodGet, "/api/v1/messages", alice, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", res.Error.Code)

	w, res = env.do(http.MethodPatch, "/api/v1/messages/missing/read", alice, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "MESSAGE_NOT_FOUND", res.Error.Code)

	assert.EqualValues(t, 0, env.count(models.CollectionMessages))
}
