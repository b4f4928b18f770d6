package handlers

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/harentsoaR/healthcare-api/internal/models"
	"github.com/harentsoaR/healthcare-api/internal/response"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListDoctors_FilterAndPaginate(t *testing.T) {
	env := newTestEnv(t)
	for i := 0; i < 7; i++ {
		env.doctor(fmt.Sprintf("card-%d", i), fmt.Sprintf("uc%d", i), "cardiology")
	}
	env.doctor("derm-0", "ud0", "dermatology")

	w, res := env.do(http.MethodGet, "/api/v1/doctors?specialty=Cardiology&page=2&limit=5", "", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var doctors []models.Doctor
	decodeData(t, res, &doctors)
	assert.Len(t, doctors, 2)
	assert.Equal(t, &response.Meta{Page: 2, Limit: 5, Total: 7, TotalPages: 2}, res.Meta)
	for _, d := range doctors {
		assert.Contains(t, d.Specialties, "cardiology")
	}
}

func TestListDoctors_ClampsLimit(t *testing.T) {
	env := newTestEnv(t)
	env.doctor("d1", "u1", "neurology")

	w, res := env.do(http.MethodGet, "/api/v1/doctors?limit=1000&page=0", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, res.Meta.Page)
	assert.Equal(t, response.MaxLimit, res.Meta.Limit)
}

func TestCreateDoctor(t *testing.T) {
	env := newTestEnv(t)
	admin := env.user("admin", models.RoleAdmin)
	env.user("doc-user", models.RoleDoctor)
	env.user("pat-user", models.RolePatient)

	body := gin.H{"uid": "doc-user", "specialties": []string{" Cardiology ", "cardiology"}, "licenseNumber": "MG-1234"}
	w, res := env.do(http.MethodPost, "/api/v1/doctors", admin, body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created models.Doctor
	decodeData(t, res, &created)
	assert.Equal(t, []string{"cardiology"}, created.Specialties)
	assert.Equal(t, "User doc-user", created.Name)
	assert.True(t, created.IsActive)

	w, res = env.do(http.MethodGet, "/api/v1/doctors/"+created.ID, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var fetched models.Doctor
	decodeData(t, res, &fetched)
	assert.Equal(t, created.ID, fetched.ID)
	assert.Equal(t, "MG-1234", fetched.LicenseNumber)

	w, res = env.do(http.MethodPost, "/api/v1/doctors", admin, body)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "DOCTOR_EXISTS", res.Error.Code)

	body["uid"] = "pat-user"
	w, res = env.do(http.MethodPost, "/api/v1/doctors", admin, body)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_ROLE", res.Error.Code)

	body["uid"] = "ghost"
	w, res = env.do(http.MethodPost, "/api/v1/doctors", admin, body)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "USER_NOT_FOUND", res.Error.Code)

	assert.EqualValues(t, 1, env.count(models.CollectionDoctors))
}

func TestCreateDoctor_OnlyOwnProfile(t *testing.T) {
	env := newTestEnv(t)
	doc := env.user("doc-a", models.RoleDoctor)
	env.user("doc-b", models.RoleDoctor)

	w, res := env.do(http.MethodPost, "/api/v1/doctors", doc, gin.H{
		"uid": "doc-b", "specialties": []string{"oncology"}, "licenseNumber": "X",
	})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "FORBIDDEN", res.Error.Code)
}

func TestDeleteDoctor_SoftAndIdempotent(t *testing.T) {
	env := newTestEnv(t)
	token := env.user("doc-user", models.RoleDoctor)
	admin := env.user("admin", models.RoleAdmin)
	env.doctor("d1", "doc-user", "pediatrics")

	for i := 0; i < 2; i++ {
		w, res := env.do(http.MethodDelete, "/api/v1/doctors/d1", token, nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var d models.Doctor
		decodeData(t, res, &d)
		assert.False(t, d.IsActive)
		assert.NotNil(t, d.DeletedAt)
	}

	w, res := env.do(http.MethodGet, "/api/v1/doctors/d1", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "DOCTOR_NOT_FOUND", res.Error.Code)

	w, _ = env.do(http.MethodGet, "/api/v1/doctors/d1", admin, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	assert.EqualValues(t, 1, env.count(models.CollectionDoctors), "soft delete keeps the document")
	assert.EqualValues(t, 1, env.count(models.CollectionAuditLogs))
}

func TestUpdateDoctor_OwnershipAndFields(t *testing.T) {
	env := newTestEnv(t)
	owner := env.user("doc-a", models.RoleDoctor)
	other := env.user("doc-b", models.RoleDoctor)
	env.doctor("d1", "doc-a", "cardiology")

	w, res := env.do(http.MethodPut, "/api/v1/doctors/d1", other, gin.H{"bio": "hijack"})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "FORBIDDEN", res.Error.Code)

	w, res = env.do(http.MethodPut, "/api/v1/doctors/d1", owner, gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "NO_UPDATE_FIELDS", res.Error.Code)

	w, res = env.do(http.MethodPut, "/api/v1/doctors/d1", owner, gin.H{"bio": "Heart specialist", "consultationFee": 45.5})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var d models.Doctor
	decodeData(t, res, &d)
	assert.Equal(t, "Heart specialist", d.Bio)
	assert.InDelta(t, 45.5, d.ConsultationFee, 0.001)
}

func TestReviews_RatingAggregate(t *testing.T) {
	env := newTestEnv(t)
	env.doctor("d1", "doc-user", "cardiology")
	p1 := env.user("pu1", models.RolePatient)
	p2 := env.user("pu2", models.RolePatient)
	env.patient("p1", "pu1")
	env.patient("p2", "pu2")

	w, _ := env.do(http.MethodPost, "/api/v1/doctors/d1/reviews", p1, gin.H{"rating": 5})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	w, _ = env.do(http.MethodPost, "/api/v1/doctors/d1/reviews", p2, gin.H{"rating": 4, "comment": "Kind"})
	require.Equal(t, http.StatusCreated, w.Code)

	w, res := env.do(http.MethodPost, "/api/v1/doctors/d1/reviews", p1, gin.H{"rating": 1})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "REVIEW_EXISTS", res.Error.Code)

	w, res = env.do(http.MethodGet, "/api/v1/doctors/d1", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var d models.Doctor
	decodeData(t, res, &d)
	assert.InDelta(t, 4.5, d.Rating, 0.001)
	assert.Equal(t, 2, d.ReviewCount)

	w, res = env.do(http.MethodGet, "/api/v1/doctors/d1/reviews", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 2, res.Meta.Total)
}
