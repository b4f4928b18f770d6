package handlers

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/harentsoaR/healthcare-api/internal/apperr"
	"github.com/harentsoaR/healthcare-api/internal/models"
	"github.com/harentsoaR/healthcare-api/internal/response"
	"github.com/harentsoaR/healthcare-api/internal/store"
	"github.com/harentsoaR/healthcare-api/internal/validation"
)

type SendMessageRequest struct {
	RecipientID string `json:"recipientId" binding:"required,max=64"`
	Content     string `json:"content" binding:"required,min=1,max=2000"`
}

func (h *Handler) SendMessage(c *gin.Context) {
	var req SendMessageRequest
	if err := validation.BindJSON(c, &req); err != nil {
		response.Fail(c, err)
		return
	}
	ctx := c.Request.Context()
	who := caller(c)

	content := strings.TrimSpace(req.Content)
	if content == "" {
		response.Fail(c, apperr.Validation([]validation.FieldError{{Field: "content", Message: "content is required"}}))
		return
	}
	if req.RecipientID == who.UID {
		response.Fail(c, apperr.BadRequest("INVALID_RECIPIENT", "You cannot send a message to yourself"))
		return
	}

	var recipient models.User
	if err := h.load(ctx, models.CollectionUsers, req.RecipientID, "user", &recipient); err != nil {
		response.Fail(c, err)
		return
	}

	now := h.now()
	msg := models.Message{
		ID:             store.NewID(),
		ConversationID: models.ConversationID(who.UID, recipient.ID),
		SenderID:       who.UID,
		RecipientID:    recipient.ID,
		Content:        content,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := h.coll(models.CollectionMessages).Add(ctx, msg); err != nil {
		response.Fail(c, failed("send message", err))
		return
	}

	preview := content
	if short := truncate(content, 80); short != content {
		preview = short + "..."
	}
	h.notify(ctx, recipient.ID, models.NotificationMessage, "New message", preview,
		map[string]string{"messageId": msg.ID, "senderId": who.UID})

	response.Created(c, msg)
}

type ListMessagesQuery struct {
	With string `form:"with" binding:"required,max=64"`
}

// ListMessages returns the conversation between the caller and another
// user, newest first.
func (h *Handler) ListMessages(c *gin.Context) {
	var q ListMessagesQuery
	if err := validation.BindQuery(c, &q); err != nil {
		response.Fail(c, err)
		return
	}
	page, limit := validation.Pagination(c, 20)

	messages := []models.Message{}
	total, err := h.coll(models.CollectionMessages).Query(c.Request.Context(), store.Query{
		Filters: []store.Filter{store.Where("conversationId", store.Eq, models.ConversationID(caller(c).UID, q.With))},
		OrderBy: "createdAt",
		Desc:    true,
		Offset:  response.Offset(page, limit),
		Limit:   limit,
	}, &messages)
	if err != nil {
		response.Fail(c, failed("fetch messages", err))
		return
	}
	response.Paged(c, messages, response.NewMeta(page, limit, total))
}

func (h *Handler) MarkMessageRead(c *gin.Context) {
	ctx := c.Request.Context()

	var msg models.Message
	if err := h.load(ctx, models.CollectionMessages, c.Param("id"), "message", &msg); err != nil {
		response.Fail(c, err)
		return
	}
	if msg.RecipientID != caller(c).UID {
		response.Fail(c, apperr.Forbidden("Only the recipient can mark a message as read"))
		return
	}
	if msg.Read {
		response.OK(c, msg)
		return
	}

	now := h.now()
	if err := h.coll(models.CollectionMessages).Update(ctx, msg.ID, map[string]any{"read": true, "readAt": now}); err != nil {
		response.Fail(c, failed("update message", err))
		return
	}
	msg.Read = true
	msg.ReadAt = &now
	msg.UpdatedAt = now
	response.OK(c, msg)
}
