package handlers

import (
	"context"
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/harentsoaR/healthcare-api/internal/apperr"
	"github.com/harentsoaR/healthcare-api/internal/models"
	"github.com/harentsoaR/healthcare-api/internal/response"
	"github.com/harentsoaR/healthcare-api/internal/services"
	"github.com/harentsoaR/healthcare-api/internal/store"
	"github.com/harentsoaR/healthcare-api/internal/validation"
)

type ListCompaniesQuery struct {
	Search string `form:"search" binding:"omitempty,max=100"`
}

func (h *Handler) ListCompanies(c *gin.Context) {
	var q ListCompaniesQuery
	if err := validation.BindQuery(c, &q); err != nil {
		response.Fail(c, err)
		return
	}
	page, limit := validation.Pagination(c, response.DefaultLimit)

	filters := []store.Filter{store.Where("isActive", store.Eq, true)}
	if q.Search != "" {
		filters = append(filters, store.Where("name", store.Contains, strings.TrimSpace(q.Search)))
	}

	companies := []models.Company{}
	total, err := h.coll(models.CollectionCompanies).Query(c.Request.Context(), store.Query{
		Filters: filters,
		OrderBy: "nameLower",
		Offset:  response.Offset(page, limit),
		Limit:   limit,
	}, &companies)
	if err != nil {
		response.Fail(c, failed("fetch companies", err))
		return
	}
	response.Paged(c, companies, response.NewMeta(page, limit, total))
}

func (h *Handler) GetCompany(c *gin.Context) {
	var company models.Company
	if err := h.load(c.Request.Context(), models.CollectionCompanies, c.Param("id"), "company", &company); err != nil {
		response.Fail(c, err)
		return
	}
	if !company.IsActive {
		response.Fail(c, apperr.NotFound("company"))
		return
	}
	response.OK(c, company)
}

type CreateCompanyRequest struct {
	Name        string `json:"name" binding:"required,min=2,max=200"`
	Description string `json:"description" binding:"omitempty,max=5000"`
	Industry    string `json:"industry" binding:"omitempty,max=100"`
	Website     string `json:"website" binding:"omitempty,url"`
	Location    string `json:"location" binding:"omitempty,max=200"`
}

func (h *Handler) CreateCompany(c *gin.Context) {
	var req CreateCompanyRequest
	if err := validation.BindJSON(c, &req); err != nil {
		response.Fail(c, err)
		return
	}
	ctx := c.Request.Context()

	name := strings.TrimSpace(req.Name)
	if err := h.checkCompanyName(ctx, name, ""); err != nil {
		response.Fail(c, err)
		return
	}

	now := h.now()
	company := models.Company{
		ID:          store.NewID(),
		Name:        name,
		NameLower:   strings.ToLower(name),
		Description: req.Description,
		Industry:    req.Industry,
		Website:     req.Website,
		Location:    req.Location,
		OwnerUID:    caller(c).UID,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := h.coll(models.CollectionCompanies).Add(ctx, company); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			response.Fail(c, companyExists())
			return
		}
		response.Fail(c, failed("create company", err))
		return
	}
	h.record(ctx, c, "create", models.CollectionCompanies, company.ID)

	response.Created(c, company)
}

// checkCompanyName enforces case-insensitive uniqueness of company names,
// including deactivated companies.
func (h *Handler) checkCompanyName(ctx context.Context, name, excludeID string) error {
	var existing []models.Company
	if _, err := h.coll(models.CollectionCompanies).Query(ctx, store.Query{
		Filters: []store.Filter{store.Where("nameLower", store.Eq, strings.ToLower(name))},
		Limit:   2,
	}, &existing); err != nil {
		return failed("check company name", err)
	}
	for _, e := range existing {
		if e.ID != excludeID {
			return companyExists()
		}
	}
	return nil
}

func companyExists() *apperr.Error {
	return apperr.Conflict("COMPANY_EXISTS", "A company with this name already exists")
}

type UpdateCompanyRequest struct {
	Name        *string `json:"name" binding:"omitempty,min=2,max=200"`
	Description *string `json:"description" binding:"omitempty,max=5000"`
	Industry    *string `json:"industry" binding:"omitempty,max=100"`
	Website     *string `json:"website" binding:"omitempty,url"`
	Location    *string `json:"location" binding:"omitempty,max=200"`
}

func (h *Handler) UpdateCompany(c *gin.Context) {
	var req UpdateCompanyRequest
	if err := validation.BindJSON(c, &req); err != nil {
		response.Fail(c, err)
		return
	}
	ctx := c.Request.Context()

	company, err := h.ownedCompany(ctx, c.Param("id"), caller(c))
	if err != nil {
		response.Fail(c, err)
		return
	}

	update := map[string]any{}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if err := h.checkCompanyName(ctx, name, company.ID); err != nil {
			response.Fail(c, err)
			return
		}
		update["name"] = name
		update["nameLower"] = strings.ToLower(name)
	}
	if req.Description != nil {
		update["description"] = *req.Description
	}
	if req.Industry != nil {
		update["industry"] = *req.Industry
	}
	if req.Website != nil {
		update["website"] = *req.Website
	}
	if req.Location != nil {
		update["location"] = *req.Location
	}
	if len(update) == 0 {
		response.Fail(c, noFields())
		return
	}

	if err := h.coll(models.CollectionCompanies).Update(ctx, company.ID, update); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			response.Fail(c, companyExists())
			return
		}
		response.Fail(c, failed("update company", err))
		return
	}
	if err := h.load(ctx, models.CollectionCompanies, company.ID, "company", company); err != nil {
		response.Fail(c, err)
		return
	}
	response.OK(c, company)
}

func (h *Handler) DeleteCompany(c *gin.Context) {
	ctx := c.Request.Context()
	company, err := h.ownedCompany(ctx, c.Param("id"), caller(c))
	if err != nil {
		response.Fail(c, err)
		return
	}
	if !company.IsActive {
		response.OK(c, company)
		return
	}

	now := h.now()
	if err := h.coll(models.CollectionCompanies).Update(ctx, company.ID, map[string]any{
		"isActive":  false,
		"deletedAt": now,
	}); err != nil {
		response.Fail(c, failed("delete company", err))
		return
	}
	h.record(ctx, c, "delete", models.CollectionCompanies, company.ID)

	company.IsActive = false
	company.DeletedAt = &now
	company.UpdatedAt = now
	response.OK(c, company)
}

func (h *Handler) ownedCompany(ctx context.Context, id string, who *services.Identity) (*models.Company, error) {
	var company models.Company
	if err := h.load(ctx, models.CollectionCompanies, id, "company", &company); err != nil {
		return nil, err
	}
	if company.OwnerUID != who.UID && !who.HasRole(models.RoleAdmin) {
		return nil, apperr.Forbidden("You can only manage your own companies")
	}
	return &company, nil
}
