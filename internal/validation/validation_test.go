package validation

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harentsoaR/healthcare-api/internal/apperr"
)

type contact struct {
	Phone string `json:"phone" binding:"required"`
}

type sampleRequest struct {
	Email    string   `json:"email" binding:"required,email"`
	Status   string   `json:"status" binding:"omitempty,oneof=open closed"`
	Tags     []string `json:"tags" binding:"omitempty,min=1,max=2"`
	Nickname *string  `json:"nickname" binding:"omitempty,min=2"`
	Contact  *contact `json:"contact"`
}

type sampleQuery struct {
	Status string `form:"status" binding:"omitempty,oneof=active expired"`
	From   string `form:"from" binding:"omitempty,datetime=2006-01-02"`
}

func jsonContext(body string) *gin.Context {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")
	return c
}

func queryContext(query string) *gin.Context {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/?"+query, nil)
	return c
}

func detailsOf(t *testing.T, err error) []FieldError {
	t.Helper()
	appErr := apperr.From(err)
	require.Equal(t, "VALIDATION_ERROR", appErr.Code)
	details, ok := appErr.Details.([]FieldError)
	require.True(t, ok)
	return details
}

func TestBindJSON_ReportsEveryField(t *testing.T) {
	var req sampleRequest
	err := BindJSON(jsonContext(`{"email":"nope","status":"archived","tags":["a","b","c"],"contact":{}}`), &req)
	require.Error(t, err)

	details := detailsOf(t, err)
	got := map[string]string{}
	for _, d := range details {
		got[d.Field] = d.Message
	}
	assert.Equal(t, "must be a valid email address", got["email"])
	assert.Equal(t, "must be one of: open, closed", got["status"])
	assert.Equal(t, "must contain at most 2 items", got["tags"])
	assert.Equal(t, "is required", got["contact.phone"])
}

func TestBindJSON_OptionalFieldsMayBeAbsent(t *testing.T) {
	var req sampleRequest
	err := BindJSON(jsonContext(`{"email":"ana@example.com"}`), &req)
	assert.NoError(t, err)
	assert.Nil(t, req.Nickname)
}

func TestBindJSON_MalformedBody(t *testing.T) {
	var req sampleRequest
	details := detailsOf(t, BindJSON(jsonContext(`{"email":`), &req))
	assert.Equal(t, "body", details[0].Field)
}

func TestBindJSON_EmptyBody(t *testing.T) {
	var req sampleRequest
	details := detailsOf(t, BindJSON(jsonContext(``), &req))
	assert.Equal(t, "request body is required", details[0].Message)
}

func TestBindJSON_TypeMismatch(t *testing.T) {
	var req sampleRequest
	details := detailsOf(t, BindJSON(jsonContext(`{"email":42}`), &req))
	assert.Equal(t, "email", details[0].Field)
}

func TestBindQuery_Enum(t *testing.T) {
	var ok sampleQuery
	assert.NoError(t, BindQuery(queryContext("status=active&from=2026-01-31"), &ok))

	cases := []struct {
		query string
		field string
	}{
		{"status=paused", "status"},
		{"from=31/01/2026", "from"},
	}
	for _, tc := range cases {
		t.Run(tc.query, func(t *testing.T) {
			var q sampleQuery
			details := detailsOf(t, BindQuery(queryContext(tc.query), &q))
			require.Len(t, details, 1)
			assert.Equal(t, tc.field, details[0].Field)
		})
	}
}

func TestIntQuery_Fallback(t *testing.T) {
	c := queryContext("page=3&limit=abc&empty=")
	assert.Equal(t, 3, IntQuery(c, "page", 1))
	assert.Equal(t, 10, IntQuery(c, "limit", 10))
	assert.Equal(t, 7, IntQuery(c, "empty", 7))
	assert.Equal(t, 5, IntQuery(c, "absent", 5))
}

func TestBoolQuery_OnlyLiteralTrue(t *testing.T) {
	c := queryContext("a=true&b=TRUE&c=1&d=yes")
	assert.True(t, BoolQuery(c, "a"))
	assert.False(t, BoolQuery(c, "b"))
	assert.False(t, BoolQuery(c, "c"))
	assert.False(t, BoolQuery(c, "d"))
	assert.False(t, BoolQuery(c, "missing"))
}

func TestPagination_ClampsAndDefaults(t *testing.T) {
	page, limit := Pagination(queryContext(""), 10)
	assert.Equal(t, 1, page)
	assert.Equal(t, 10, limit)

	page, limit = Pagination(queryContext("page=-2&limit=1000"), 10)
	assert.Equal(t, 1, page)
	assert.Equal(t, 100, limit)
}

func TestParseDate(t *testing.T) {
	d, ok := ParseDate("2026-02-03")
	require.True(t, ok)
	assert.Equal(t, 3, d.Day())

	_, ok = ParseDate("2026-02-03T10:00:00Z")
	assert.True(t, ok)

	_, ok = ParseDate("03/02/2026")
	assert.False(t, ok)
}
