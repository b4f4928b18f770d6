package handlers

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/harentsoaR/healthcare-api/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompanies_UniqueNameAndPublicRead(t *testing.T) {
	env := newTestEnv(t)
	recruiter := env.user("r1", models.RoleRecruiter)
	patient := env.user("pu1", models.RolePatient)

	w, res := env.do(http.MethodPost, "/api/v1/companies", recruiter, gin.H{"name": "Clinique Ankadifotsy", "website": "https://ankadifotsy.mg"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var company models.Company
	decodeData(t, res, &company)
	assert.Equal(t, "r1", company.OwnerUID)

	w, res = env.do(http.MethodPost, "/api/v1/companies", recruiter, gin.H{"name": "clinique ANKADIFOTSY"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "COMPANY_EXISTS", res.Error.Code)

	w, res = env.do(http.MethodPost, "/api/v1/companies", patient, gin.H{"name": "Patient Corp"})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "FORBIDDEN", res.Error.Code)

	w, res = env.do(http.MethodGet, "/api/v1/companies?search=ankadi", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 1, res.Meta.Total)

	w, _ = env.do(http.MethodGet, "/api/v1/companies/"+company.ID, "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestJobs_PostListClose(t *testing.T) {
	env := newTestEnv(t)
	recruiter := env.user("r1", models.RoleRecruiter)
	rival := env.user("r2", models.RoleRecruiter)

	w, res := env.do(http.MethodPost, "/api/v1/companies", recruiter, gin.H{"name": "HealthHire"})
	require.Equal(t, http.StatusCreated, w.Code)
	var company models.Company
	decodeData(t, res, &company)

	job := gin.H{
		"companyId":      company.ID,
		"title":          "Pediatric nurse",
		"description":    "Night shifts",
		"employmentType": "full-time",
		"specialty":      "Pediatrics",
		"salaryMin":      900,
		"salaryMax":      1200,
	}
	w, res = env.do(http.MethodPost, "/api/v1/jobs", rival, job)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "FORBIDDEN", res.Error.Code)

	job["salaryMax"] = 100
	w, res = env.do(http.MethodPost, "/api/v1/jobs", recruiter, job)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", res.Error.Code)

	job["salaryMax"] = 1200
	w, res = env.do(http.MethodPost, "/api/v1/jobs", recruiter, job)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var posted models.Job
	decodeData(t, res, &posted)
	assert.Equal(t, "HealthHire", posted.CompanyName)
	assert.Equal(t, models.JobOpen, posted.Status)

	w, res = env.do(http.MethodGet, "/api/v1/jobs?specialty=pediatrics", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 1, res.Meta.Total)

	for i := 0; i < 2; i++ {
		w, res = env.do(http.MethodDelete, "/api/v1/jobs/"+posted.ID, recruiter, nil)
		require.Equal(t, http.StatusOK, w.Code)
		var closed models.Job
		decodeData(t, res, &closed)
		assert.Equal(t, models.JobClosed, closed.Status)
		assert.NotNil(t, closed.ClosedAt)
	}

	w, res = env.do(http.MethodGet, "/api/v1/jobs", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 0, res.Meta.Total)

	w, res = env.do(http.MethodGet, "/api/v1/jobs?status=closed", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 1, res.Meta.Total)
}
