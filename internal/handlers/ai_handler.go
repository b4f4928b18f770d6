package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/harentsoaR/healthcare-api/internal/models"
	"github.com/harentsoaR/healthcare-api/internal/response"
	"github.com/harentsoaR/healthcare-api/internal/store"
	"github.com/harentsoaR/healthcare-api/internal/validation"
)

type SymptomAnalysisRequest struct {
	Symptoms     []string `json:"symptoms" binding:"required,min=1,max=20,dive,required,max=100"`
	Age          int      `json:"age" binding:"gte=0,lte=130"`
	DurationDays int      `json:"durationDays" binding:"gte=0,lte=3650"`
}

type SymptomAnalysisResponse struct {
	models.SymptomAnalysis
	CheckID string `json:"checkId,omitempty"`
}

// AnalyzeSymptoms scores the reported symptoms. Signed-in callers get the
// result saved to their history.
func (h *Handler) AnalyzeSymptoms(c *gin.Context) {
	var req SymptomAnalysisRequest
	if err := validation.BindJSON(c, &req); err != nil {
		response.Fail(c, err)
		return
	}

	result := SymptomAnalysisResponse{SymptomAnalysis: h.Symptoms.Analyze(req.Symptoms, req.Age)}

	if uid := caller(c).UID; uid != "" {
		now := h.now()
		check := models.SymptomCheck{
			ID:        store.NewID(),
			UserID:    uid,
			Symptoms:  req.Symptoms,
			Age:       req.Age,
			Result:    result.SymptomAnalysis,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := h.coll(models.CollectionSymptomChecks).Add(c.Request.Context(), check); err != nil {
			h.Log.Error().Err(err).Str("user_id", uid).Msg("failed to save symptom check")
		} else {
			result.CheckID = check.ID
		}
	}

	response.OK(c, result)
}

func (h *Handler) SymptomHistory(c *gin.Context) {
	page, limit := validation.Pagination(c, response.DefaultLimit)

	checks := []models.SymptomCheck{}
	total, err := h.coll(models.CollectionSymptomChecks).Query(c.Request.Context(), store.Query{
		Filters: []store.Filter{store.Where("userId", store.Eq, caller(c).UID)},
		OrderBy: "createdAt",
		Desc:    true,
		Offset:  response.Offset(page, limit),
		Limit:   limit,
	}, &checks)
	if err != nil {
		response.Fail(c, failed("fetch symptom history", err))
		return
	}
	response.Paged(c, checks, response.NewMeta(page, limit, total))
}
