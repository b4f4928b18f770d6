package handlers

import (
	"context"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/harentsoaR/healthcare-api/internal/apperr"
	"github.com/harentsoaR/healthcare-api/internal/models"
	"github.com/harentsoaR/healthcare-api/internal/response"
	"github.com/harentsoaR/healthcare-api/internal/services"
	"github.com/harentsoaR/healthcare-api/internal/store"
	"github.com/harentsoaR/healthcare-api/internal/validation"
)

type ListMedicalRecordsQuery struct {
	PatientID string `form:"patientId"`
	Type      string `form:"type" binding:"omitempty,oneof=consultation lab-result imaging vaccination surgery other"`
}

func (h *Handler) ListMedicalRecords(c *gin.Context) {
	var q ListMedicalRecordsQuery
	if err := validation.BindQuery(c, &q); err != nil {
		response.Fail(c, err)
		return
	}
	ctx := c.Request.Context()
	who := caller(c)
	page, limit := validation.Pagination(c, response.DefaultLimit)

	if who.Role == models.RolePatient {
		p, err := h.patientForUser(ctx, who.UID)
		if err != nil {
			response.Fail(c, err)
			return
		}
		if p == nil {
			response.Paged(c, []models.MedicalRecord{}, response.NewMeta(page, limit, 0))
			return
		}
		q.PatientID = p.ID
	}

	filters := []store.Filter{store.Where("isActive", store.Eq, true)}
	if q.PatientID != "" {
		filters = append(filters, store.Where("patientId", store.Eq, q.PatientID))
	}
	if q.Type != "" {
		filters = append(filters, store.Where("type", store.Eq, q.Type))
	}

	records := []models.MedicalRecord{}
	total, err := h.coll(models.CollectionMedicalRecords).Query(ctx, store.Query{
		Filters: filters,
		OrderBy: "recordDate",
		Desc:    true,
		Offset:  response.Offset(page, limit),
		Limit:   limit,
	}, &records)
	if err != nil {
		response.Fail(c, failed("fetch medical records", err))
		return
	}
	response.Paged(c, records, response.NewMeta(page, limit, total))
}

func (h *Handler) GetMedicalRecord(c *gin.Context) {
	ctx := c.Request.Context()
	who := caller(c)

	var record models.MedicalRecord
	if err := h.load(ctx, models.CollectionMedicalRecords, c.Param("id"), "medical record", &record); err != nil {
		response.Fail(c, err)
		return
	}
	if !record.IsActive && !who.HasRole(models.RoleAdmin) {
		response.Fail(c, apperr.NotFound("medical record"))
		return
	}
	if who.Role == models.RolePatient {
		own, err := h.patientForUser(ctx, who.UID)
		if err != nil {
			response.Fail(c, err)
			return
		}
		if own == nil || own.ID != record.PatientID {
			response.Fail(c, apperr.Forbidden("You can only view your own medical records"))
			return
		}
	}
	response.OK(c, record)
}

type CreateMedicalRecordRequest struct {
	PatientID   string     `json:"patientId" binding:"required,max=64"`
	DoctorID    string     `json:"doctorId" binding:"omitempty,max=64"`
	Type        string     `json:"type" binding:"required,oneof=consultation lab-result imaging vaccination surgery other"`
	Title       string     `json:"title" binding:"required,max=200"`
	Description string     `json:"description" binding:"omitempty,max=5000"`
	Diagnosis   string     `json:"diagnosis" binding:"omitempty,max=1000"`
	Attachments []string   `json:"attachments" binding:"omitempty,max=20,dive,url"`
	RecordDate  *time.Time `json:"recordDate"`
}

func (h *Handler) CreateMedicalRecord(c *gin.Context) {
	var req CreateMedicalRecordRequest
	if err := validation.BindJSON(c, &req); err != nil {
		response.Fail(c, err)
		return
	}
	ctx := c.Request.Context()
	who := caller(c)

	if who.Role == models.RoleDoctor {
		d, err := h.requireDoctor(ctx, who.UID)
		if err != nil {
			response.Fail(c, err)
			return
		}
		req.DoctorID = d.ID
	}
	if req.DoctorID == "" {
		response.Fail(c, apperr.Validation([]validation.FieldError{{Field: "doctorId", Message: "doctorId is required"}}))
		return
	}

	var doctor models.Doctor
	if err := h.load(ctx, models.CollectionDoctors, req.DoctorID, "doctor", &doctor); err != nil {
		response.Fail(c, err)
		return
	}
	var patient models.Patient
	if err := h.load(ctx, models.CollectionPatients, req.PatientID, "patient", &patient); err != nil {
		response.Fail(c, err)
		return
	}

	now := h.now()
	recordDate := now
	if req.RecordDate != nil {
		recordDate = req.RecordDate.UTC()
	}
	attachments := req.Attachments
	if attachments == nil {
		attachments = []string{}
	}

	record := models.MedicalRecord{
		ID:          store.NewID(),
		PatientID:   patient.ID,
		DoctorID:    doctor.ID,
		Type:        req.Type,
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		Diagnosis:   req.Diagnosis,
		Attachments: attachments,
		RecordDate:  recordDate,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := h.coll(models.CollectionMedicalRecords).Add(ctx, record); err != nil {
		response.Fail(c, failed("create medical record", err))
		return
	}
	h.record(ctx, c, "create", models.CollectionMedicalRecords, record.ID)

	response.Created(c, record)
}

type UpdateMedicalRecordRequest struct {
	Type        *string    `json:"type" binding:"omitempty,oneof=consultation lab-result imaging vaccination surgery other"`
	Title       *string    `json:"title" binding:"omitempty,min=1,max=200"`
	Description *string    `json:"description" binding:"omitempty,max=5000"`
	Diagnosis   *string    `json:"diagnosis" binding:"omitempty,max=1000"`
	Attachments []string   `json:"attachments" binding:"omitempty,max=20,dive,url"`
	RecordDate  *time.Time `json:"recordDate"`
}

func (h *Handler) UpdateMedicalRecord(c *gin.Context) {
	var req UpdateMedicalRecordRequest
	if err := validation.BindJSON(c, &req); err != nil {
		response.Fail(c, err)
		return
	}
	ctx := c.Request.Context()

	record, err := h.authoredRecord(ctx, c.Param("id"), caller(c))
	if err != nil {
		response.Fail(c, err)
		return
	}

	update := map[string]any{}
	if req.Type != nil {
		update["type"] = *req.Type
	}
	if req.Title != nil {
		update["title"] = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		update["description"] = *req.Description
	}
	if req.Diagnosis != nil {
		update["diagnosis"] = *req.Diagnosis
	}
	if req.Attachments != nil {
		update["attachments"] = req.Attachments
	}
	if req.RecordDate != nil {
		update["recordDate"] = req.RecordDate.UTC()
	}
	if len(update) == 0 {
		response.Fail(c, noFields())
		return
	}

	if err := h.coll(models.CollectionMedicalRecords).Update(ctx, record.ID, update); err != nil {
		response.Fail(c, failed("update medical record", err))
		return
	}
	if err := h.load(ctx, models.CollectionMedicalRecords, record.ID, "medical record", record); err != nil {
		response.Fail(c, err)
		return
	}
	response.OK(c, record)
}

func (h *Handler) DeleteMedicalRecord(c *gin.Context) {
	ctx := c.Request.Context()
	record, err := h.authoredRecord(ctx, c.Param("id"), caller(c))
	if err != nil {
		response.Fail(c, err)
		return
	}
	if !record.IsActive {
		response.OK(c, record)
		return
	}

	now := h.now()
	if err := h.coll(models.CollectionMedicalRecords).Update(ctx, record.ID, map[string]any{
		"isActive":  false,
		"deletedAt": now,
	}); err != nil {
		response.Fail(c, failed("delete medical record", err))
		return
	}
	h.record(ctx, c, "delete", models.CollectionMedicalRecords, record.ID)

	record.IsActive = false
	record.DeletedAt = &now
	record.UpdatedAt = now
	response.OK(c, record)
}

// authoredRecord loads a record the caller wrote. Admins may change any.
func (h *Handler) authoredRecord(ctx context.Context, id string, who *services.Identity) (*models.MedicalRecord, error) {
	var record models.MedicalRecord
	if err := h.load(ctx, models.CollectionMedicalRecords, id, "medical record", &record); err != nil {
		return nil, err
	}
	if who.HasRole(models.RoleAdmin) {
		return &record, nil
	}
	d, err := h.doctorForUser(ctx, who.UID)
	if err != nil {
		return nil, err
	}
	if d == nil || d.ID != record.DoctorID {
		return nil, apperr.Forbidden("Only the authoring doctor can change this record")
	}
	return &record, nil
}
