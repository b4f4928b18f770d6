package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/harentsoaR/healthcare-api/internal/apperr"
	"github.com/harentsoaR/healthcare-api/internal/models"
	"github.com/harentsoaR/healthcare-api/internal/response"
	"github.com/harentsoaR/healthcare-api/internal/store"
	"github.com/harentsoaR/healthcare-api/internal/utils"
	"github.com/harentsoaR/healthcare-api/internal/validation"
)

type RegisterUserRequest struct {
	FullName string `json:"fullName" binding:"required,min=2,max=100"`
	Email    string `json:"email" binding:"required,email,max=254"`
	Password string `json:"password" binding:"required,min=8,max=72"`
	Role     string `json:"role" binding:"omitempty,oneof=patient doctor recruiter"`
	Phone    string `json:"phone" binding:"omitempty,max=30"`
}

func (h *Handler) RegisterUser(c *gin.Context) {
	var req RegisterUserRequest
	if err := validation.BindJSON(c, &req); err != nil {
		response.Fail(c, err)
		return
	}
	ctx := c.Request.Context()
	email := strings.ToLower(strings.TrimSpace(req.Email))

	var existing []models.User
	found, err := h.findOne(ctx, models.CollectionUsers, &existing, store.Where("email", store.Eq, email))
	if err != nil {
		response.Fail(c, failed("create user", err))
		return
	}
	if found {
		response.Fail(c, apperr.Conflict("USER_EXISTS", "An account with this email already exists"))
		return
	}

	hashedPassword, err := utils.HashPassword(req.Password)
	if err != nil {
		response.Fail(c, failed("create user", err))
		return
	}

	role := req.Role
	if role == "" {
		role = models.RolePatient
	}

	now := h.now()
	user := models.User{
		ID:        store.NewID(),
		FullName:  strings.TrimSpace(req.FullName),
		Email:     email,
		Password:  hashedPassword,
		Role:      role,
		Phone:     req.Phone,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := h.coll(models.CollectionUsers).Add(ctx, user); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			response.Fail(c, apperr.Conflict("USER_EXISTS", "An account with this email already exists"))
			return
		}
		response.Fail(c, failed("create user", err))
		return
	}
	h.recordAs(ctx, user.ID, "create", models.CollectionUsers, user.ID)

	response.Created(c, user)
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type LoginResponse struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expiresAt"`
	User      models.User `json:"user"`
}

func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := validation.BindJSON(c, &req); err != nil {
		response.Fail(c, err)
		return
	}
	ctx := c.Request.Context()

	var users []models.User
	found, err := h.findOne(ctx, models.CollectionUsers, &users,
		store.Where("email", store.Eq, strings.ToLower(strings.TrimSpace(req.Email))))
	if err != nil {
		response.Fail(c, failed("login", err))
		return
	}
	if !found || !utils.CheckPasswordHash(req.Password, users[0].Password) {
		response.Fail(c, apperr.Unauthorized("INVALID_CREDENTIALS", "Invalid email or password"))
		return
	}
	user := users[0]
	if !user.IsActive {
		response.Fail(c, apperr.New(http.StatusForbidden, "ACCOUNT_DISABLED", "This account has been disabled"))
		return
	}

	token, expiresAt, err := h.Tokens.Issue(&user)
	if err != nil {
		response.Fail(c, failed("login", err))
		return
	}
	response.OK(c, LoginResponse{Token: token, ExpiresAt: expiresAt, User: user})
}

func (h *Handler) Logout(c *gin.Context) {
	if err := h.Tokens.Revoke(c.Request.Context(), caller(c)); err != nil {
		response.Fail(c, failed("logout", err))
		return
	}
	response.OK(c, gin.H{"message": "Logged out"})
}

func (h *Handler) GetCurrentUser(c *gin.Context) {
	var user models.User
	if err := h.load(c.Request.Context(), models.CollectionUsers, caller(c).UID, "user", &user); err != nil {
		response.Fail(c, err)
		return
	}
	response.OK(c, user)
}

type UpdateUserRequest struct {
	FullName *string `json:"fullName" binding:"omitempty,min=2,max=100"`
	Phone    *string `json:"phone" binding:"omitempty,max=30"`
}

// UpdateCurrentUser lets users change their own name and phone. Email and
// role are not editable here.
func (h *Handler) UpdateCurrentUser(c *gin.Context) {
	var req UpdateUserRequest
	if err := validation.BindJSON(c, &req); err != nil {
		response.Fail(c, err)
		return
	}

	update := map[string]any{}
	if req.FullName != nil {
		update["fullName"] = strings.TrimSpace(*req.FullName)
	}
	if req.Phone != nil {
		update["phone"] = *req.Phone
	}
	if len(update) == 0 {
		response.Fail(c, noFields())
		return
	}

	ctx := c.Request.Context()
	uid := caller(c).UID
	if err := h.coll(models.CollectionUsers).Update(ctx, uid, update); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			response.Fail(c, apperr.NotFound("user"))
			return
		}
		response.Fail(c, failed("update user", err))
		return
	}

	var user models.User
	if err := h.load(ctx, models.CollectionUsers, uid, "user", &user); err != nil {
		response.Fail(c, err)
		return
	}
	response.OK(c, user)
}

type ListUsersQuery struct {
	Role string `form:"role" binding:"omitempty,oneof=patient doctor recruiter admin"`
}

func (h *Handler) ListUsers(c *gin.Context) {
	var q ListUsersQuery
	if err := validation.BindQuery(c, &q); err != nil {
		response.Fail(c, err)
		return
	}
	page, limit := validation.Pagination(c, response.DefaultLimit)

	var filters []store.Filter
	if q.Role != "" {
		filters = append(filters, store.Where("role", store.Eq, q.Role))
	}

	users := []models.User{}
	total, err := h.coll(models.CollectionUsers).Query(c.Request.Context(), store.Query{
		Filters: filters,
		OrderBy: "email",
		Offset:  response.Offset(page, limit),
		Limit:   limit,
	}, &users)
	if err != nil {
		response.Fail(c, failed("fetch users", err))
		return
	}
	response.Paged(c, users, response.NewMeta(page, limit, total))
}
