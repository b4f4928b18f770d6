package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/harentsoaR/healthcare-api/internal/apperr"
	"github.com/harentsoaR/healthcare-api/internal/models"
	"github.com/harentsoaR/healthcare-api/internal/response"
	"github.com/harentsoaR/healthcare-api/internal/store"
	"github.com/harentsoaR/healthcare-api/internal/validation"
)

func (h *Handler) ListNotifications(c *gin.Context) {
	page, limit := validation.Pagination(c, 20)

	filters := []store.Filter{store.Where("userId", store.Eq, caller(c).UID)}
	if validation.BoolQuery(c, "unreadOnly") {
		filters = append(filters, store.Where("read", store.Eq, false))
	}

	notifications := []models.Notification{}
	total, err := h.coll(models.CollectionNotifications).Query(c.Request.Context(), store.Query{
		Filters: filters,
		OrderBy: "createdAt",
		Desc:    true,
		Offset:  response.Offset(page, limit),
		Limit:   limit,
	}, &notifications)
	if err != nil {
		response.Fail(c, failed("fetch notifications", err))
		return
	}
	response.Paged(c, notifications, response.NewMeta(page, limit, total))
}

func (h *Handler) MarkNotificationRead(c *gin.Context) {
	ctx := c.Request.Context()

	var n models.Notification
	if err := h.load(ctx, models.CollectionNotifications, c.Param("id"), "notification", &n); err != nil {
		response.Fail(c, err)
		return
	}
	if n.UserID != caller(c).UID {
		response.Fail(c, apperr.Forbidden("You can only update your own notifications"))
		return
	}
	if n.Read {
		response.OK(c, n)
		return
	}

	now := h.now()
	if err := h.coll(models.CollectionNotifications).Update(ctx, n.ID, map[string]any{"read": true, "readAt": now}); err != nil {
		response.Fail(c, failed("update notification", err))
		return
	}
	n.Read = true
	n.ReadAt = &now
	n.UpdatedAt = now
	response.OK(c, n)
}

// MarkAllNotificationsRead flags every unread notification of the caller
// in one batched write.
func (h *Handler) MarkAllNotificationsRead(c *gin.Context) {
	updated, err := h.coll(models.CollectionNotifications).UpdateMany(c.Request.Context(), []store.Filter{
		store.Where("userId", store.Eq, caller(c).UID),
		store.Where("read", store.Eq, false),
	}, map[string]any{"read": true, "readAt": h.now()})
	if err != nil {
		response.Fail(c, failed("update notifications", err))
		return
	}
	response.OK(c, gin.H{"updated": updated})
}

type BroadcastRequest struct {
	UserIDs []string `json:"userIds" binding:"omitempty,max=1000,dive,required,max=64"`
	Role    string   `json:"role" binding:"omitempty,oneof=patient doctor recruiter admin"`
	Type    string   `json:"type" binding:"required,oneof=appointment prescription message reminder system"`
	Title   string   `json:"title" binding:"required,max=200"`
	Body    string   `json:"body" binding:"required,max=2000"`
}

// BroadcastNotification sends one notification to an explicit list of
// users or to every active user with a role.
func (h *Handler) BroadcastNotification(c *gin.Context) {
	var req BroadcastRequest
	if err := validation.BindJSON(c, &req); err != nil {
		response.Fail(c, err)
		return
	}
	if len(req.UserIDs) == 0 && req.Role == "" {
		response.Fail(c, apperr.Validation([]validation.FieldError{{Field: "userIds", Message: "either userIds or role is required"}}))
		return
	}
	ctx := c.Request.Context()

	recipients := req.UserIDs
	if len(recipients) == 0 {
		var users []models.User
		if _, err := h.coll(models.CollectionUsers).Query(ctx, store.Query{
			Filters: []store.Filter{
				store.Where("role", store.Eq, req.Role),
				store.Where("isActive", store.Eq, true),
			},
		}, &users); err != nil {
			response.Fail(c, failed("broadcast notification", err))
			return
		}
		for _, u := range users {
			recipients = append(recipients, u.ID)
		}
	}

	count, err := h.Notifier.Broadcast(ctx, recipients, req.Type, req.Title, req.Body)
	if err != nil {
		response.Fail(c, failed("broadcast notification", err))
		return
	}
	response.Created(c, gin.H{"count": count})
}
