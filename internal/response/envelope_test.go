package response

import (
	"encoding/json"
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidatePagination_Clamps(t *testing.T) {
	cases := []struct {
		page, limit         int
		wantPage, wantLimit int
	}{
		{1, 10, 1, 10},
		{0, 0, 1, 1},
		{-5, -1, 1, 1},
		{3, 100, 3, 100},
		{2, 101, 2, 100},
		{7, 5000, 7, 100},
	}
	for _, tc := range cases {
		page, limit := ValidatePagination(tc.page, tc.limit)
		assert.Equal(t, tc.wantPage, page, "page for %d/%d", tc.page, tc.limit)
		assert.Equal(t, tc.wantLimit, limit, "limit for %d/%d", tc.page, tc.limit)
	}
}

func TestValidatePagination_PropertyBounds(t *testing.T) {
	for page := -3; page <= 3; page++ {
		for limit := -3; limit <= 205; limit += 13 {
			p, l := ValidatePagination(page, limit)
			assert.GreaterOrEqual(t, p, 1)
			assert.GreaterOrEqual(t, l, 1)
			assert.LessOrEqual(t, l, MaxLimit)
		}
	}
}

func TestNewMeta_TotalPages(t *testing.T) {
	assert.EqualValues(t, 0, NewMeta(1, 10, 0).TotalPages)
	assert.EqualValues(t, 1, NewMeta(1, 10, 10).TotalPages)
	assert.EqualValues(t, 3, NewMeta(2, 5, 11).TotalPages)
	assert.EqualValues(t, 1, NewMeta(1, 500, 42).TotalPages)
}

func TestBuildEnvelopes_JSONShape(t *testing.T) {
	ok, err := json.Marshal(BuildSuccess([]string{}, nil))
	require.NoError(t, err)
	assert.JSONEq(t, `{"success":true,"data":[]}`, string(ok))

	paged, err := json.Marshal(BuildSuccess([]int{1}, NewMeta(2, 5, 6)))
	require.NoError(t, err)
	assert.JSONEq(t, `{"success":true,"data":[1],"meta":{"page":2,"limit":5,"total":6,"totalPages":2}}`, string(paged))

	bad, err := json.Marshal(BuildError("FORBIDDEN", "nope", nil))
	require.NoError(t, err)
	assert.JSONEq(t, `{"success":false,"error":{"code":"FORBIDDEN","message":"nope"}}`, string(bad))
}

func TestFail_RecordsErrorAndAborts(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())

	Fail(c, errors.New("boom"))

	assert.True(t, c.IsAborted())
	require.Len(t, c.Errors, 1)
	assert.EqualError(t, c.Errors.Last().Err, "boom")
}
