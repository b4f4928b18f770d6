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

type ListPatientsQuery struct {
	Search string `form:"search" binding:"omitempty,max=100"`
}

func (h *Handler) ListPatients(c *gin.Context) {
	var q ListPatientsQuery
	if err := validation.BindQuery(c, &q); err != nil {
		response.Fail(c, err)
		return
	}
	page, limit := validation.Pagination(c, response.DefaultLimit)

	filters := []store.Filter{store.Where("isActive", store.Eq, true)}
	if q.Search != "" {
		filters = append(filters, store.Where("name", store.Contains, strings.TrimSpace(q.Search)))
	}

	patients := []models.Patient{}
	total, err := h.coll(models.CollectionPatients).Query(c.Request.Context(), store.Query{
		Filters: filters,
		OrderBy: "name",
		Offset:  response.Offset(page, limit),
		Limit:   limit,
	}, &patients)
	if err != nil {
		response.Fail(c, failed("fetch patients", err))
		return
	}
	response.Paged(c, patients, response.NewMeta(page, limit, total))
}

func (h *Handler) GetPatient(c *gin.Context) {
	ctx := c.Request.Context()
	who := caller(c)

	var patient models.Patient
	if err := h.load(ctx, models.CollectionPatients, c.Param("id"), "patient", &patient); err != nil {
		response.Fail(c, err)
		return
	}
	if patient.UID != who.UID && !who.HasRole(models.RoleDoctor, models.RoleAdmin) {
		response.Fail(c, apperr.Forbidden("You can only view your own patient profile"))
		return
	}
	if !patient.IsActive && !who.HasRole(models.RoleAdmin) {
		response.Fail(c, apperr.NotFound("patient"))
		return
	}
	response.OK(c, patient)
}

type CreatePatientRequest struct {
	UID              string                   `json:"uid" binding:"required,max=64"`
	Name             string                   `json:"name" binding:"omitempty,min=2,max=100"`
	DateOfBirth      string                   `json:"dateOfBirth" binding:"omitempty,datetime=2006-01-02"`
	Gender           string                   `json:"gender" binding:"omitempty,oneof=male female other"`
	Phone            string                   `json:"phone" binding:"omitempty,max=30"`
	Address          string                   `json:"address" binding:"omitempty,max=300"`
	BloodType        string                   `json:"bloodType" binding:"omitempty,oneof=A+ A- B+ B- AB+ AB- O+ O-"`
	Allergies        []string                 `json:"allergies" binding:"omitempty,max=50,dive,required,max=100"`
	EmergencyContact *models.EmergencyContact `json:"emergencyContact"`
}

func (h *Handler) CreatePatient(c *gin.Context) {
	var req CreatePatientRequest
	if err := validation.BindJSON(c, &req); err != nil {
		response.Fail(c, err)
		return
	}
	ctx := c.Request.Context()
	who := caller(c)

	if who.Role == models.RolePatient && req.UID != who.UID {
		response.Fail(c, apperr.Forbidden("Patients can only create their own profile"))
		return
	}

	var user models.User
	if err := h.load(ctx, models.CollectionUsers, req.UID, "user", &user); err != nil {
		response.Fail(c, err)
		return
	}
	if user.Role != models.RolePatient {
		response.Fail(c, apperr.BadRequest("INVALID_ROLE", "User must have the patient role"))
		return
	}

	existing, err := h.patientForUser(ctx, req.UID)
	if err != nil {
		response.Fail(c, err)
		return
	}
	if existing != nil {
		response.Fail(c, apperr.Conflict("PATIENT_EXISTS", "A patient profile already exists for this user"))
		return
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = user.FullName
	}
	allergies := req.Allergies
	if allergies == nil {
		allergies = []string{}
	}
	phone := req.Phone
	if phone == "" {
		phone = user.Phone
	}

	now := h.now()
	patient := models.Patient{
		ID:               store.NewID(),
		UID:              req.UID,
		Name:             name,
		Email:            user.Email,
		DateOfBirth:      req.DateOfBirth,
		Gender:           req.Gender,
		Phone:            phone,
		Address:          req.Address,
		BloodType:        req.BloodType,
		Allergies:        allergies,
		EmergencyContact: req.EmergencyContact,
		IsActive:         true,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := h.coll(models.CollectionPatients).Add(ctx, patient); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			response.Fail(c, apperr.Conflict("PATIENT_EXISTS", "A patient profile already exists for this user"))
			return
		}
		response.Fail(c, failed("create patient", err))
		return
	}
	h.record(ctx, c, "create", models.CollectionPatients, patient.ID)

	response.Created(c, patient)
}

type UpdatePatientRequest struct {
	Name             *string                  `json:"name" binding:"omitempty,min=2,max=100"`
	DateOfBirth      *string                  `json:"dateOfBirth" binding:"omitempty,datetime=2006-01-02"`
	Gender           *string                  `json:"gender" binding:"omitempty,oneof=male female other"`
	Phone            *string                  `json:"phone" binding:"omitempty,max=30"`
	Address          *string                  `json:"address" binding:"omitempty,max=300"`
	BloodType        *string                  `json:"bloodType" binding:"omitempty,oneof=A+ A- B+ B- AB+ AB- O+ O-"`
	Allergies        []string                 `json:"allergies" binding:"omitempty,max=50,dive,required,max=100"`
	EmergencyContact *models.EmergencyContact `json:"emergencyContact"`
}

func (h *Handler) UpdatePatient(c *gin.Context) {
	var req UpdatePatientRequest
	if err := validation.BindJSON(c, &req); err != nil {
		response.Fail(c, err)
		return
	}
	ctx := c.Request.Context()

	patient, err := h.ownedPatient(ctx, c.Param("id"), caller(c))
	if err != nil {
		response.Fail(c, err)
		return
	}

	update := map[string]any{}
	if req.Name != nil {
		update["name"] = strings.TrimSpace(*req.Name)
	}
	if req.DateOfBirth != nil {
		update["dateOfBirth"] = *req.DateOfBirth
	}
	if req.Gender != nil {
		update["gender"] = *req.Gender
	}
	if req.Phone != nil {
		update["phone"] = *req.Phone
	}
	if req.Address != nil {
		update["address"] = *req.Address
	}
	if req.BloodType != nil {
		update["bloodType"] = *req.BloodType
	}
	if req.Allergies != nil {
		update["allergies"] = req.Allergies
	}
	if req.EmergencyContact != nil {
		update["emergencyContact"] = req.EmergencyContact
	}
	if len(update) == 0 {
		response.Fail(c, noFields())
		return
	}

	if err := h.coll(models.CollectionPatients).Update(ctx, patient.ID, update); err != nil {
		response.Fail(c, failed("update patient", err))
		return
	}
	if err := h.load(ctx, models.CollectionPatients, patient.ID, "patient", patient); err != nil {
		response.Fail(c, err)
		return
	}
	response.OK(c, patient)
}

func (h *Handler) DeletePatient(c *gin.Context) {
	ctx := c.Request.Context()
	patient, err := h.ownedPatient(ctx, c.Param("id"), caller(c))
	if err != nil {
		response.Fail(c, err)
		return
	}
	if !patient.IsActive {
		response.OK(c, patient)
		return
	}

	now := h.now()
	if err := h.coll(models.CollectionPatients).Update(ctx, patient.ID, map[string]any{
		"isActive":  false,
		"deletedAt": now,
	}); err != nil {
		response.Fail(c, failed("delete patient", err))
		return
	}
	h.record(ctx, c, "delete", models.CollectionPatients, patient.ID)

	patient.IsActive = false
	patient.DeletedAt = &now
	patient.UpdatedAt = now
	response.OK(c, patient)
}

func (h *Handler) ownedPatient(ctx context.Context, id string, who *services.Identity) (*models.Patient, error) {
	var patient models.Patient
	if err := h.load(ctx, models.CollectionPatients, id, "patient", &patient); err != nil {
		return nil, err
	}
	if patient.UID != who.UID && !who.HasRole(models.RoleAdmin) {
		return nil, apperr.Forbidden("You can only modify your own patient profile")
	}
	return &patient, nil
}
