package handlers

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/harentsoaR/healthcare-api/internal/models"
	"github.com/harentsoaR/healthcare-api/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalyzeSymptoms_Anonymous(t *testing.T) {
	env := newTestEnv(t)

	w, res := env.do(http.MethodPost, "/api/v1/ai/symptom-analysis", "", gin.H{
		"symptoms": []string{"fever", "cough", "body aches"},
		"age":      30,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var out SymptomAnalysisResponse
	decodeData(t, res, &out)
	require.NotEmpty(t, out.Conditions)
	assert.Equal(t, services.SymptomDisclaimer, out.Disclaimer)
	assert.Empty(t, out.CheckID)
	assert.EqualValues(t, 0, env.count(models.CollectionSymptomChecks))
}

func TestAnalyzeSymptoms_SavesHistory(t *testing.T) {
	env := newTestEnv(t)
	token := env.user("u1", models.RolePatient)

	w, res := env.do(http.MethodPost, "/api/v1/ai/symptom-analysis", token, gin.H{
		"symptoms": []string{"chest pain", "shortness of breath"},
		"age":      58,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var out SymptomAnalysisResponse
	decodeData(t, res, &out)
	assert.Equal(t, models.UrgencyEmergency, out.Urgency)
	assert.NotEmpty(t, out.CheckID)

	w, res = env.do(http.MethodGet, "/api/v1/ai/symptom-analysis/history", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var history []models.SymptomCheck
	decodeData(t, res, &history)
	require.Len(t, history, 1)
	assert.Equal(t, out.CheckID, history[0].ID)
}

func TestAnalyzeSymptoms_Validation(t *testing.T) {
	env := newTestEnv(t)

	w, res := env.do(http.MethodPost, "/api/v1/ai/symptom-analysis", "", gin.H{"symptoms": []string{}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", res.Error.Code)

	w, res = env.do(http.MethodPost, "/api/v1/ai/symptom-analysis", "", gin.H{"symptoms": []string{"fever"}, "age": 200})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", res.Error.Code)

	w, res = env.do(http.MethodGet, "/api/v1/ai/symptom-analysis/history", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "MISSING_TOKEN", res.Error.Code)
}

func TestOptionalAuthRoutes_StaleTokenIsAnonymous(t *testing.T) {
	env := newTestEnv(t)
	env.doctor("d1", "du1", "cardiology")

	w, res := env.do(http.MethodPost, "/api/v1/ai/symptom-analysis", "garbage.token.value", gin.H{"symptoms": []string{"fever", "cough"}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var out SymptomAnalysisResponse
	decodeData(t, res, &out)
	assert.Empty(t, out.CheckID)
	assert.EqualValues(t, 0, env.count(models.CollectionSymptomChecks))

	w, _ = env.do(http.MethodGet, "/api/v1/doctors", "garbage.token.value", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w, _ = env.do(http.MethodGet, "/api/v1/doctors/d1", "garbage.token.value", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}
