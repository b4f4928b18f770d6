package response

import (
	"math"
	"net/http"

	"github.com/gin-gonic/gin"
)

const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100
)

type Meta struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int64 `json:"totalPages"`
}

type SuccessEnvelope struct {
	Success bool  `json:"success"`
	Data    any   `json:"data"`
	Meta    *Meta `json:"meta,omitempty"`
}

type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type ErrorEnvelope struct {
	Success bool      `json:"success"`
	Error   ErrorBody `json:"error"`
}

func BuildSuccess(data any, meta *Meta) SuccessEnvelope {
	return SuccessEnvelope{Success: true, Data: data, Meta: meta}
}

func BuildError(code, message string, details any) ErrorEnvelope {
	return ErrorEnvelope{Error: ErrorBody{Code: code, Message: message, Details: details}}
}

// ValidatePagination clamps page to >= 1 and limit to [1, MaxLimit].
func ValidatePagination(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 1
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	return page, limit
}

// Offset of the first item on page.
func Offset(page, limit int) int {
	return (page - 1) * limit
}

func NewMeta(page, limit int, total int64) *Meta {
	page, limit = ValidatePagination(page, limit)
	return &Meta{
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: int64(math.Ceil(float64(total) / float64(limit))),
	}
}

func OK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, BuildSuccess(data, nil))
}

func Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, BuildSuccess(data, nil))
}

func Paged(c *gin.Context, data any, meta *Meta) {
	c.JSON(http.StatusOK, BuildSuccess(data, meta))
}

// Fail hands err to the error middleware and stops the handler chain.
func Fail(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}
