package handlers

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/harentsoaR/healthcare-api/internal/apperr"
	"github.com/harentsoaR/healthcare-api/internal/models"
	"github.com/harentsoaR/healthcare-api/internal/response"
	"github.com/harentsoaR/healthcare-api/internal/services"
	"github.com/harentsoaR/healthcare-api/internal/store"
	"github.com/harentsoaR/healthcare-api/internal/validation"
)

type ListJobsQuery struct {
	CompanyID      string `form:"companyId"`
	EmploymentType string `form:"employmentType" binding:"omitempty,oneof=full-time part-time contract internship"`
	Specialty      string `form:"specialty" binding:"omitempty,max=50"`
	Status         string `form:"status" binding:"omitempty,oneof=open closed"`
	Search         string `form:"search" binding:"omitempty,max=100"`
}

func (h *Handler) ListJobs(c *gin.Context) {
	var q ListJobsQuery
	if err := validation.BindQuery(c, &q); err != nil {
		response.Fail(c, err)
		return
	}
	page, limit := validation.Pagination(c, response.DefaultLimit)

	status := q.Status
	if status == "" {
		status = models.JobOpen
	}
	filters := []store.Filter{store.Where("status", store.Eq, status)}
	if q.CompanyID != "" {
		filters = append(filters, store.Where("companyId", store.Eq, q.CompanyID))
	}
	if q.EmploymentType != "" {
		filters = append(filters, store.Where("employmentType", store.Eq, q.EmploymentType))
	}
	if q.Specialty != "" {
		filters = append(filters, store.Where("specialty", store.Eq, strings.ToLower(strings.TrimSpace(q.Specialty))))
	}
	if q.Search != "" {
		filters = append(filters, store.Where("title", store.Contains, strings.TrimSpace(q.Search)))
	}

	jobs := []models.Job{}
	total, err := h.coll(models.CollectionJobs).Query(c.Request.Context(), store.Query{
		Filters: filters,
		OrderBy: "createdAt",
		Desc:    true,
		Offset:  response.Offset(page, limit),
		Limit:   limit,
	}, &jobs)
	if err != nil {
		response.Fail(c, failed("fetch jobs", err))
		return
	}
	response.Paged(c, jobs, response.NewMeta(page, limit, total))
}

func (h *Handler) GetJob(c *gin.Context) {
	var job models.Job
	if err := h.load(c.Request.Context(), models.CollectionJobs, c.Param("id"), "job", &job); err != nil {
		response.Fail(c, err)
		return
	}
	response.OK(c, job)
}

type CreateJobRequest struct {
	CompanyID      string  `json:"companyId" binding:"required,max=64"`
	Title          string  `json:"title" binding:"required,max=200"`
	Description    string  `json:"description" binding:"required,max=10000"`
	Location       string  `json:"location" binding:"omitempty,max=200"`
	EmploymentType string  `json:"employmentType" binding:"required,oneof=full-time part-time contract internship"`
	Specialty      string  `json:"specialty" binding:"omitempty,max=50"`
	SalaryMin      float64 `json:"salaryMin" binding:"gte=0"`
	SalaryMax      float64 `json:"salaryMax" binding:"omitempty,gtefield=SalaryMin"`
}

func (h *Handler) CreateJob(c *gin.Context) {
	var req CreateJobRequest
	if err := validation.BindJSON(c, &req); err != nil {
		response.Fail(c, err)
		return
	}
	ctx := c.Request.Context()
	who := caller(c)

	var company models.Company
	if err := h.load(ctx, models.CollectionCompanies, req.CompanyID, "company", &company); err != nil {
		response.Fail(c, err)
		return
	}
	if !company.IsActive {
		response.Fail(c, apperr.NotFound("company"))
		return
	}
	if company.OwnerUID != who.UID && !who.HasRole(models.RoleAdmin) {
		response.Fail(c, apperr.Forbidden("You can only post jobs for your own companies"))
		return
	}

	now := h.now()
	job := models.Job{
		ID:             store.NewID(),
		CompanyID:      company.ID,
		CompanyName:    company.Name,
		Title:          strings.TrimSpace(req.Title),
		Description:    req.Description,
		Location:       req.Location,
		EmploymentType: req.EmploymentType,
		Specialty:      strings.ToLower(strings.TrimSpace(req.Specialty)),
		SalaryMin:      req.SalaryMin,
		SalaryMax:      req.SalaryMax,
		Status:         models.JobOpen,
		PostedBy:       who.UID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := h.coll(models.CollectionJobs).Add(ctx, job); err != nil {
		response.Fail(c, failed("create job", err))
		return
	}
	h.record(ctx, c, "create", models.CollectionJobs, job.ID)

	response.Created(c, job)
}

type UpdateJobRequest struct {
	Title          *string  `json:"title" binding:"omitempty,min=1,max=200"`
	Description    *string  `json:"description" binding:"omitempty,min=1,max=10000"`
	Location       *string  `json:"location" binding:"omitempty,max=200"`
	EmploymentType *string  `json:"employmentType" binding:"omitempty,oneof=full-time part-time contract internship"`
	Specialty      *string  `json:"specialty" binding:"omitempty,max=50"`
	SalaryMin      *float64 `json:"salaryMin" binding:"omitempty,gte=0"`
	SalaryMax      *float64 `json:"salaryMax" binding:"omitempty,gte=0"`
	Status         *string  `json:"status" binding:"omitempty,oneof=open closed"`
}

func (h *Handler) UpdateJob(c *gin.Context) {
	var req UpdateJobRequest
	if err := validation.BindJSON(c, &req); err != nil {
		response.Fail(c, err)
		return
	}
	ctx := c.Request.Context()

	job, err := h.postedJob(ctx, c.Param("id"), caller(c))
	if err != nil {
		response.Fail(c, err)
		return
	}

	update := map[string]any{}
	if req.Title != nil {
		update["title"] = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		update["description"] = *req.Description
	}
	if req.Location != nil {
		update["location"] = *req.Location
	}
	if req.EmploymentType != nil {
		update["employmentType"] = *req.EmploymentType
	}
	if req.Specialty != nil {
		update["specialty"] = strings.ToLower(strings.TrimSpace(*req.Specialty))
	}
	salaryMin, salaryMax := job.SalaryMin, job.SalaryMax
	if req.SalaryMin != nil {
		salaryMin = *req.SalaryMin
		update["salaryMin"] = salaryMin
	}
	if req.SalaryMax != nil {
		salaryMax = *req.SalaryMax
		update["salaryMax"] = salaryMax
	}
	if salaryMax != 0 && salaryMax < salaryMin {
		response.Fail(c, apperr.Validation([]validation.FieldError{{
			Field:   "salaryMax",
			Message: "salaryMax must be greater than or equal to salaryMin",
		}}))
		return
	}
	if req.Status != nil && *req.Status != job.Status {
		update["status"] = *req.Status
		if *req.Status == models.JobClosed {
			update["closedAt"] = h.now()
		} else {
			update["closedAt"] = nil
		}
	}
	if len(update) == 0 {
		response.Fail(c, noFields())
		return
	}

	if err := h.coll(models.CollectionJobs).Update(ctx, job.ID, update); err != nil {
		response.Fail(c, failed("update job", err))
		return
	}
	if err := h.load(ctx, models.CollectionJobs, job.ID, "job", job); err != nil {
		response.Fail(c, err)
		return
	}
	response.OK(c, job)
}

// CloseJob is the soft delete for job listings.
func (h *Handler) CloseJob(c *gin.Context) {
	ctx := c.Request.Context()
	job, err := h.postedJob(ctx, c.Param("id"), caller(c))
	if err != nil {
		response.Fail(c, err)
		return
	}
	if job.Status == models.JobClosed {
		response.OK(c, job)
		return
	}

	now := h.now()
	if err := h.coll(models.CollectionJobs).Update(ctx, job.ID, map[string]any{
		"status":   models.JobClosed,
		"closedAt": now,
	}); err != nil {
		response.Fail(c, failed("close job", err))
		return
	}
	h.record(ctx, c, "delete", models.CollectionJobs, job.ID)

	job.Status = models.JobClosed
	job.ClosedAt = &now
	job.UpdatedAt = now
	response.OK(c, job)
}

func (h *Handler) postedJob(ctx context.Context, id string, who *services.Identity) (*models.Job, error) {
	var job models.Job
	if err := h.load(ctx, models.CollectionJobs, id, "job", &job); err != nil {
		return nil, err
	}
	if job.PostedBy != who.UID && !who.HasRole(models.RoleAdmin) {
		return nil, apperr.Forbidden("You can only manage jobs you posted")
	}
	return &job, nil
}
