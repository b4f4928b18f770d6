package validation

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/harentsoaR/healthcare-api/internal/apperr"
	"github.com/harentsoaR/healthcare-api/internal/response"
)

// FieldError is one entry of a VALIDATION_ERROR details list.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

var once sync.Once

// Setup makes validator report fields by their json/form names. It is safe
// to call more than once.
func Setup() {
	once.Do(func() {
		if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
			v.RegisterTagNameFunc(fieldName)
		}
	})
}

func fieldName(fld reflect.StructField) string {
	for _, tag := range []string{"json", "form"} {
		name := strings.SplitN(fld.Tag.Get(tag), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name != "" {
			return name
		}
	}
	return fld.Name
}

// BindJSON decodes and validates the request body into req.
func BindJSON(c *gin.Context, req any) error {
	Setup()
	if err := c.ShouldBindJSON(req); err != nil {
		return apperr.Validation(Details(err))
	}
	return nil
}

// BindQuery decodes and validates the query string into req.
func BindQuery(c *gin.Context, req any) error {
	Setup()
	if err := c.ShouldBindQuery(req); err != nil {
		return apperr.Validation(Details(err))
	}
	return nil
}

// Details flattens a binding error into a field/message list.
func Details(err error) []FieldError {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		out := make([]FieldError, 0, len(verrs))
		for _, fe := range verrs {
			out = append(out, FieldError{Field: namespace(fe), Message: message(fe)})
		}
		return out
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		field := typeErr.Field
		if field == "" {
			field = "body"
		}
		return []FieldError{{Field: field, Message: "must be of type " + typeErr.Type.String()}}
	}

	var timeErr *time.ParseError
	if errors.As(err, &timeErr) {
		return []FieldError{{Field: "body", Message: "dates must use RFC3339, e.g. 2026-01-02T15:04:05Z"}}
	}

	var numErr *strconv.NumError
	if errors.As(err, &numErr) {
		return []FieldError{{Field: "query", Message: fmt.Sprintf("%q is not a valid number", numErr.Num)}}
	}

	if errors.Is(err, io.EOF) {
		return []FieldError{{Field: "body", Message: "request body is required"}}
	}

	return []FieldError{{Field: "body", Message: "request body could not be parsed"}}
}

func namespace(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func message(fe validator.FieldError) string {
	param := fe.Param()
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "url":
		return "must be a valid URL"
	case "oneof":
		return "must be one of: " + strings.Join(strings.Fields(param), ", ")
	case "min", "max":
		bound := "at least"
		if fe.Tag() == "max" {
			bound = "at most"
		}
		switch fe.Kind() {
		case reflect.String:
			return fmt.Sprintf("must be %s %s characters long", bound, param)
		case reflect.Slice, reflect.Array, reflect.Map:
			return fmt.Sprintf("must contain %s %s items", bound, param)
		}
		return fmt.Sprintf("must be %s %s", bound, param)
	case "gt":
		return "must be greater than " + param
	case "gte":
		return "must be greater than or equal to " + param
	case "lt":
		return "must be less than " + param
	case "lte":
		return "must be less than or equal to " + param
	case "gtefield":
		return "must be greater than or equal to " + lowerFirst(param)
	case "gtfield":
		return "must be later than " + lowerFirst(param)
	case "datetime":
		return "must be a date in the format " + param
	case "e164":
		return "must be a phone number in E.164 format"
	}
	return "is invalid"
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}

// IntQuery parses a numeric query parameter, returning fallback when the
// parameter is absent or not an integer.
func IntQuery(c *gin.Context, key string, fallback int) int {
	raw, ok := c.GetQuery(key)
	if !ok || raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}

// BoolQuery is true only for the literal string "true".
func BoolQuery(c *gin.Context, key string) bool {
	return c.Query(key) == "true"
}

// Pagination reads page and limit and clamps them.
func Pagination(c *gin.Context, defaultLimit int) (page, limit int) {
	return response.ValidatePagination(
		IntQuery(c, "page", response.DefaultPage),
		IntQuery(c, "limit", defaultLimit),
	)
}

// ParseDate accepts either a calendar date (2006-01-02) or RFC3339.
func ParseDate(s string) (time.Time, bool) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), true
	}
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t.UTC(), true
	}
	return time.Time{}, false
}
