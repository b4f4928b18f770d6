package handlers

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/harentsoaR/healthcare-api/internal/apperr"
	"github.com/harentsoaR/healthcare-api/internal/models"
	"github.com/harentsoaR/healthcare-api/internal/response"
	"github.com/harentsoaR/healthcare-api/internal/services"
	"github.com/harentsoaR/healthcare-api/internal/store"
	"github.com/harentsoaR/healthcare-api/internal/validation"
)

const defaultPrescriptionDays = 30

type ListPrescriptionsQuery struct {
	PatientID string `form:"patientId"`
	DoctorID  string `form:"doctorId"`
	Status    string `form:"status" binding:"omitempty,oneof=active expired cancelled"`
}

func (h *Handler) ListPrescriptions(c *gin.Context) {
	var q ListPrescriptionsQuery
	if err := validation.BindQuery(c, &q); err != nil {
		response.Fail(c, err)
		return
	}
	ctx := c.Request.Context()
	who := caller(c)
	page, limit := validation.Pagination(c, response.DefaultLimit)

	var filters []store.Filter
	if who.Role == models.RolePatient {
		p, err := h.patientForUser(ctx, who.UID)
		if err != nil {
			response.Fail(c, err)
			return
		}
		if p == nil {
			response.Paged(c, []models.PrescriptionView{}, response.NewMeta(page, limit, 0))
			return
		}
		q.PatientID = p.ID
	}
	if q.PatientID != "" {
		filters = append(filters, store.Where("patientId", store.Eq, q.PatientID))
	}
	if q.DoctorID != "" {
		filters = append(filters, store.Where("doctorId", store.Eq, q.DoctorID))
	}
	filters = append(filters, statusFilters(q.Status, h.now())...)

	var prescriptions []models.Prescription
	total, err := h.coll(models.CollectionPrescriptions).Query(ctx, store.Query{
		Filters: filters,
		OrderBy: "issuedAt",
		Desc:    true,
		Offset:  response.Offset(page, limit),
		Limit:   limit,
	}, &prescriptions)
	if err != nil {
		response.Fail(c, failed("fetch prescriptions", err))
		return
	}

	views, err := h.enrichPrescriptions(ctx, prescriptions)
	if err != nil {
		response.Fail(c, failed("fetch prescriptions", err))
		return
	}
	response.Paged(c, views, response.NewMeta(page, limit, total))
}

// statusFilters turns a derived status into store predicates so that
// filtering is right even before the expiry sweep has run.
func statusFilters(status string, now time.Time) []store.Filter {
	switch status {
	case models.PrescriptionActive:
		return []store.Filter{store.Where("cancelled", store.Eq, false), store.Where("validUntil", store.Gt, now)}
	case models.PrescriptionExpired:
		return []store.Filter{store.Where("cancelled", store.Eq, false), store.Where("validUntil", store.Lte, now)}
	case models.PrescriptionCancelled:
		return []store.Filter{store.Where("cancelled", store.Eq, true)}
	}
	return nil
}

func (h *Handler) enrichPrescriptions(ctx context.Context, prescriptions []models.Prescription) ([]models.PrescriptionView, error) {
	views := make([]models.PrescriptionView, 0, len(prescriptions))
	if len(prescriptions) == 0 {
		return views, nil
	}

	doctorIDs := make([]string, 0, len(prescriptions))
	patientIDs := make([]string, 0, len(prescriptions))
	for _, p := range prescriptions {
		doctorIDs = append(doctorIDs, p.DoctorID)
		patientIDs = append(patientIDs, p.PatientID)
	}
	var doctors []models.Doctor
	if err := h.coll(models.CollectionDoctors).GetMany(ctx, doctorIDs, &doctors); err != nil {
		return nil, err
	}
	var patients []models.Patient
	if err := h.coll(models.CollectionPatients).GetMany(ctx, patientIDs, &patients); err != nil {
		return nil, err
	}
	doctorNames := make(map[string]string, len(doctors))
	for _, d := range doctors {
		doctorNames[d.ID] = d.Name
	}
	patientNames := make(map[string]string, len(patients))
	for _, p := range patients {
		patientNames[p.ID] = p.Name
	}

	now := h.now()
	for _, p := range prescriptions {
		views = append(views, models.PrescriptionView{
			Prescription:  p,
			CurrentStatus: p.CurrentStatus(now),
			DoctorName:    doctorNames[p.DoctorID],
			PatientName:   patientNames[p.PatientID],
		})
	}
	return views, nil
}

func (h *Handler) GetPrescription(c *gin.Context) {
	ctx := c.Request.Context()
	p, err := h.readablePrescription(ctx, c.Param("id"), caller(c))
	if err != nil {
		response.Fail(c, err)
		return
	}
	views, err := h.enrichPrescriptions(ctx, []models.Prescription{*p})
	if err != nil {
		response.Fail(c, failed("fetch prescription", err))
		return
	}
	response.OK(c, views[0])
}

func (h *Handler) readablePrescription(ctx context.Context, id string, who *services.Identity) (*models.Prescription, error) {
	var p models.Prescription
	if err := h.load(ctx, models.CollectionPrescriptions, id, "prescription", &p); err != nil {
		return nil, err
	}
	if who.Role == models.RolePatient {
		own, err := h.patientForUser(ctx, who.UID)
		if err != nil {
			return nil, err
		}
		if own == nil || own.ID != p.PatientID {
			return nil, apperr.Forbidden("You can only view your own prescriptions")
		}
	}
	return &p, nil
}

// prescriberPrescription loads a prescription the caller may change: one
// they issued, or any for admins.
func (h *Handler) prescriberPrescription(ctx context.Context, id string, who *services.Identity) (*models.Prescription, error) {
	var p models.Prescription
	if err := h.load(ctx, models.CollectionPrescriptions, id, "prescription", &p); err != nil {
		return nil, err
	}
	if who.HasRole(models.RoleAdmin) {
		return &p, nil
	}
	d, err := h.doctorForUser(ctx, who.UID)
	if err != nil {
		return nil, err
	}
	if d == nil || d.ID != p.DoctorID {
		return nil, apperr.Forbidden("Only the prescribing doctor can change this prescription")
	}
	return &p, nil
}

type CreatePrescriptionRequest struct {
	PatientID     string              `json:"patientId" binding:"required,max=64"`
	DoctorID      string              `json:"doctorId" binding:"omitempty,max=64"`
	AppointmentID string              `json:"appointmentId" binding:"omitempty,max=64"`
	Medications   []models.Medication `json:"medications" binding:"required,min=1,max=20,dive"`
	Diagnosis     string              `json:"diagnosis" binding:"omitempty,max=1000"`
	Notes         string              `json:"notes" binding:"omitempty,max=2000"`
	ValidUntil    *time.Time          `json:"validUntil"`
}

func (h *Handler) CreatePrescription(c *gin.Context) {
	var req CreatePrescriptionRequest
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
		if req.DoctorID != "" && req.DoctorID != d.ID {
			response.Fail(c, apperr.Forbidden("Doctors can only issue prescriptions under their own profile"))
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
	if req.AppointmentID != "" {
		var apt models.Appointment
		if err := h.load(ctx, models.CollectionAppointments, req.AppointmentID, "appointment", &apt); err != nil {
			response.Fail(c, err)
			return
		}
		if apt.PatientID != patient.ID || apt.DoctorID != doctor.ID {
			response.Fail(c, apperr.BadRequest("APPOINTMENT_MISMATCH", "Appointment does not belong to this doctor and patient"))
			return
		}
	}

	now := h.now()
	validUntil := now.AddDate(0, 0, defaultPrescriptionDays)
	if req.ValidUntil != nil {
		validUntil = req.ValidUntil.UTC()
	}
	if !validUntil.After(now) {
		response.Fail(c, apperr.Validation([]validation.FieldError{{Field: "validUntil", Message: "validUntil must be in the future"}}))
		return
	}

	p := models.Prescription{
		ID:            store.NewID(),
		PatientID:     patient.ID,
		DoctorID:      doctor.ID,
		AppointmentID: req.AppointmentID,
		Medications:   req.Medications,
		Diagnosis:     req.Diagnosis,
		Notes:         req.Notes,
		IssuedAt:      now,
		ValidUntil:    validUntil,
		Status:        models.PrescriptionActive,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := h.coll(models.CollectionPrescriptions).Add(ctx, p); err != nil {
		response.Fail(c, failed("create prescription", err))
		return
	}
	h.record(ctx, c, "create", models.CollectionPrescriptions, p.ID)
	h.notify(ctx, patient.UID, models.NotificationPrescription, "New prescription",
		fmt.Sprintf("%s issued you a prescription with %d medication(s).", doctor.Name, len(p.Medications)),
		map[string]string{"prescriptionId": p.ID})

	response.Created(c, models.PrescriptionView{
		Prescription:  p,
		CurrentStatus: p.CurrentStatus(now),
		DoctorName:    doctor.Name,
		PatientName:   patient.Name,
	})
}

type UpdatePrescriptionRequest struct {
	Medications []models.Medication `json:"medications" binding:"omitempty,min=1,max=20,dive"`
	Diagnosis   *string             `json:"diagnosis" binding:"omitempty,max=1000"`
	Notes       *string             `json:"notes" binding:"omitempty,max=2000"`
	ValidUntil  *time.Time          `json:"validUntil"`
}

func (h *Handler) UpdatePrescription(c *gin.Context) {
	var req UpdatePrescriptionRequest
	if err := validation.BindJSON(c, &req); err != nil {
		response.Fail(c, err)
		return
	}
	ctx := c.Request.Context()

	p, err := h.prescriberPrescription(ctx, c.Param("id"), caller(c))
	if err != nil {
		response.Fail(c, err)
		return
	}
	if p.Cancelled {
		response.Fail(c, apperr.BadRequest("PRESCRIPTION_CANCELLED", "A cancelled prescription cannot be changed"))
		return
	}

	now := h.now()
	update := map[string]any{}
	if req.Medications != nil {
		update["medications"] = req.Medications
	}
	if req.Diagnosis != nil {
		update["diagnosis"] = *req.Diagnosis
	}
	if req.Notes != nil {
		update["notes"] = *req.Notes
	}
	if req.ValidUntil != nil {
		p.ValidUntil = req.ValidUntil.UTC()
		update["validUntil"] = p.ValidUntil
		update["status"] = p.CurrentStatus(now)
	}
	if len(update) == 0 {
		response.Fail(c, noFields())
		return
	}

	if err := h.coll(models.CollectionPrescriptions).Update(ctx, p.ID, update); err != nil {
		response.Fail(c, failed("update prescription", err))
		return
	}
	if err := h.load(ctx, models.CollectionPrescriptions, p.ID, "prescription", p); err != nil {
		response.Fail(c, err)
		return
	}
	views, err := h.enrichPrescriptions(ctx, []models.Prescription{*p})
	if err != nil {
		response.Fail(c, failed("fetch prescription", err))
		return
	}
	response.OK(c, views[0])
}

// CancelPrescription is the soft delete for prescriptions.
func (h *Handler) CancelPrescription(c *gin.Context) {
	ctx := c.Request.Context()
	p, err := h.prescriberPrescription(ctx, c.Param("id"), caller(c))
	if err != nil {
		response.Fail(c, err)
		return
	}
	now := h.now()
	if p.Cancelled {
		response.OK(c, models.PrescriptionView{Prescription: *p, CurrentStatus: p.CurrentStatus(now)})
		return
	}

	if err := h.coll(models.CollectionPrescriptions).Update(ctx, p.ID, map[string]any{
		"cancelled":   true,
		"cancelledAt": now,
		"status":      models.PrescriptionCancelled,
	}); err != nil {
		response.Fail(c, failed("cancel prescription", err))
		return
	}
	h.record(ctx, c, "cancel", models.CollectionPrescriptions, p.ID)

	p.Cancelled = true
	p.CancelledAt = &now
	p.Status = models.PrescriptionCancelled
	p.UpdatedAt = now
	response.OK(c, models.PrescriptionView{Prescription: *p, CurrentStatus: p.CurrentStatus(now)})
}
