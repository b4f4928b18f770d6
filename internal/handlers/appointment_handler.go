package handlers

import (
	"context"
	"errors"
	"fmt"
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

const slotLockTTL = 10 * time.Second

type ListAppointmentsQuery struct {
	Status    string `form:"status" binding:"omitempty,oneof=scheduled confirmed in-progress completed cancelled no-show"`
	DoctorID  string `form:"doctorId"`
	PatientID string `form:"patientId"`
	From      string `form:"from"`
	To        string `form:"to"`
}

// ListAppointments scopes patients and doctors to their own appointments;
// admins may filter freely.
func (h *Handler) ListAppointments(c *gin.Context) {
	var q ListAppointmentsQuery
	if err := validation.BindQuery(c, &q); err != nil {
		response.Fail(c, err)
		return
	}
	ctx := c.Request.Context()
	page, limit := validation.Pagination(c, response.DefaultLimit)

	filters, ok, err := h.appointmentScope(ctx, caller(c), q.DoctorID, q.PatientID)
	if err != nil {
		response.Fail(c, err)
		return
	}
	if !ok {
		response.Paged(c, []models.AppointmentView{}, response.NewMeta(page, limit, 0))
		return
	}

	if q.Status != "" {
		filters = append(filters, store.Where("status", store.Eq, q.Status))
	}
	var details []validation.FieldError
	if q.From != "" {
		if from, ok := validation.ParseDate(q.From); ok {
			filters = append(filters, store.Where("scheduledAt", store.Gte, from))
		} else {
			details = append(details, validation.FieldError{Field: "from", Message: "from must be a date (YYYY-MM-DD) or RFC3339 timestamp"})
		}
	}
	if q.To != "" {
		if to, ok := validation.ParseDate(q.To); ok {
			if len(q.To) == len(time.DateOnly) {
				to = to.Add(24 * time.Hour)
				filters = append(filters, store.Where("scheduledAt", store.Lt, to))
			} else {
				filters = append(filters, store.Where("scheduledAt", store.Lte, to))
			}
		} else {
			details = append(details, validation.FieldError{Field: "to", Message: "to must be a date (YYYY-MM-DD) or RFC3339 timestamp"})
		}
	}
	if len(details) > 0 {
		response.Fail(c, apperr.Validation(details))
		return
	}

	var appointments []models.Appointment
	total, err := h.coll(models.CollectionAppointments).Query(ctx, store.Query{
		Filters: filters,
		OrderBy: "scheduledAt",
		Offset:  response.Offset(page, limit),
		Limit:   limit,
	}, &appointments)
	if err != nil {
		response.Fail(c, failed("fetch appointments", err))
		return
	}

	views, err := h.enrichAppointments(ctx, appointments)
	if err != nil {
		response.Fail(c, failed("fetch appointments", err))
		return
	}
	response.Paged(c, views, response.NewMeta(page, limit, total))
}

// appointmentScope returns the filters that restrict a caller to the
// appointments they may see. ok is false when the caller has no profile and
// therefore no appointments.
func (h *Handler) appointmentScope(ctx context.Context, who *services.Identity, doctorID, patientID string) ([]store.Filter, bool, error) {
	var filters []store.Filter
	switch who.Role {
	case models.RolePatient:
		p, err := h.patientForUser(ctx, who.UID)
		if err != nil || p == nil {
			return nil, false, err
		}
		filters = append(filters, store.Where("patientId", store.Eq, p.ID))
		if doctorID != "" {
			filters = append(filters, store.Where("doctorId", store.Eq, doctorID))
		}
	case models.RoleDoctor:
		d, err := h.doctorForUser(ctx, who.UID)
		if err != nil || d == nil {
			return nil, false, err
		}
		filters = append(filters, store.Where("doctorId", store.Eq, d.ID))
		if patientID != "" {
			filters = append(filters, store.Where("patientId", store.Eq, patientID))
		}
	default:
		if doctorID != "" {
			filters = append(filters, store.Where("doctorId", store.Eq, doctorID))
		}
		if patientID != "" {
			filters = append(filters, store.Where("patientId", store.Eq, patientID))
		}
	}
	return filters, true, nil
}

// enrichAppointments joins doctor and patient names with one multi-get per
// collection.
func (h *Handler) enrichAppointments(ctx context.Context, appointments []models.Appointment) ([]models.AppointmentView, error) {
	views := make([]models.AppointmentView, 0, len(appointments))
	if len(appointments) == 0 {
		return views, nil
	}

	doctorIDs := make([]string, 0, len(appointments))
	patientIDs := make([]string, 0, len(appointments))
	for _, a := range appointments {
		doctorIDs = append(doctorIDs, a.DoctorID)
		patientIDs = append(patientIDs, a.PatientID)
	}

	var doctors []models.Doctor
	if err := h.coll(models.CollectionDoctors).GetMany(ctx, doctorIDs, &doctors); err != nil {
		return nil, err
	}
	var patients []models.Patient
	if err := h.coll(models.CollectionPatients).GetMany(ctx, patientIDs, &patients); err != nil {
		return nil, err
	}
	doctorByID := make(map[string]models.Doctor, len(doctors))
	for _, d := range doctors {
		doctorByID[d.ID] = d
	}
	patientByID := make(map[string]models.Patient, len(patients))
	for _, p := range patients {
		patientByID[p.ID] = p
	}

	for _, a := range appointments {
		v := models.AppointmentView{Appointment: a, DoctorSpecialties: []string{}}
		if d, ok := doctorByID[a.DoctorID]; ok {
			v.DoctorName = d.Name
			if d.Specialties != nil {
				v.DoctorSpecialties = d.Specialties
			}
		}
		if p, ok := patientByID[a.PatientID]; ok {
			v.PatientName = p.Name
		}
		views = append(views, v)
	}
	return views, nil
}

func (h *Handler) GetAppointment(c *gin.Context) {
	ctx := c.Request.Context()
	apt, err := h.participantAppointment(ctx, c.Param("id"), caller(c))
	if err != nil {
		response.Fail(c, err)
		return
	}
	views, err := h.enrichAppointments(ctx, []models.Appointment{*apt})
	if err != nil {
		response.Fail(c, failed("fetch appointment", err))
		return
	}
	response.OK(c, views[0])
}

// participantAppointment loads an appointment the caller takes part in.
// Admins may load any appointment.
func (h *Handler) participantAppointment(ctx context.Context, id string, who *services.Identity) (*models.Appointment, error) {
	var apt models.Appointment
	if err := h.load(ctx, models.CollectionAppointments, id, "appointment", &apt); err != nil {
		return nil, err
	}

	switch who.Role {
	case models.RoleAdmin:
		return &apt, nil
	case models.RolePatient:
		p, err := h.patientForUser(ctx, who.UID)
		if err != nil {
			return nil, err
		}
		if p != nil && p.ID == apt.PatientID {
			return &apt, nil
		}
	case models.RoleDoctor:
		d, err := h.doctorForUser(ctx, who.UID)
		if err != nil {
			return nil, err
		}
		if d != nil && d.ID == apt.DoctorID {
			return &apt, nil
		}
	}
	return nil, apperr.Forbidden("You do not have access to this appointment")
}

type CreateAppointmentRequest struct {
	DoctorID    string    `json:"doctorId" binding:"required,max=64"`
	PatientID   string    `json:"patientId" binding:"omitempty,max=64"`
	ScheduledAt time.Time `json:"scheduledAt" binding:"required"`
	Duration    int       `json:"duration" binding:"omitempty,min=5,max=480"`
	Type        string    `json:"type" binding:"omitempty,oneof=in-person video phone"`
	Reason      string    `json:"reason" binding:"omitempty,max=500"`
	Notes       string    `json:"notes" binding:"omitempty,max=2000"`
}

func (h *Handler) CreateAppointment(c *gin.Context) {
	var req CreateAppointmentRequest
	if err := validation.BindJSON(c, &req); err != nil {
		response.Fail(c, err)
		return
	}
	ctx := c.Request.Context()
	who := caller(c)

	switch who.Role {
	case models.RolePatient:
		p, err := h.requirePatient(ctx, who.UID)
		if err != nil {
			response.Fail(c, err)
			return
		}
		if req.PatientID != "" && req.PatientID != p.ID {
			response.Fail(c, apperr.Forbidden("Patients can only book appointments for themselves"))
			return
		}
		req.PatientID = p.ID
	case models.RoleDoctor:
		d, err := h.requireDoctor(ctx, who.UID)
		if err != nil {
			response.Fail(c, err)
			return
		}
		if req.DoctorID != d.ID {
			response.Fail(c, apperr.Forbidden("Doctors can only book appointments in their own schedule"))
			return
		}
	}
	if req.PatientID == "" {
		response.Fail(c, apperr.Validation([]validation.FieldError{{Field: "patientId", Message: "patientId is required"}}))
		return
	}

	var doctor models.Doctor
	if err := h.load(ctx, models.CollectionDoctors, req.DoctorID, "doctor", &doctor); err != nil {
		response.Fail(c, err)
		return
	}
	if !doctor.IsActive {
		response.Fail(c, apperr.BadRequest("DOCTOR_INACTIVE", "Doctor is not accepting appointments"))
		return
	}
	var patient models.Patient
	if err := h.load(ctx, models.CollectionPatients, req.PatientID, "patient", &patient); err != nil {
		response.Fail(c, err)
		return
	}

	now := h.now()
	start := req.ScheduledAt.UTC()
	if !start.After(now) {
		response.Fail(c, apperr.BadRequest("INVALID_TIME", "Appointment must be scheduled in the future"))
		return
	}
	duration := req.Duration
	if duration == 0 {
		duration = models.DefaultAppointmentMinutes
	}
	aptType := req.Type
	if aptType == "" {
		aptType = "in-person"
	}

	apt := models.Appointment{
		ID:          store.NewID(),
		DoctorID:    doctor.ID,
		PatientID:   patient.ID,
		ScheduledAt: start,
		Duration:    duration,
		EndsAt:      start.Add(time.Duration(duration) * time.Minute),
		Type:        aptType,
		Status:      models.AppointmentScheduled,
		Reason:      req.Reason,
		Notes:       req.Notes,
		CreatedBy:   who.UID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err := h.withSlotLock(ctx, doctor.ID, func() error {
		if err := h.checkConflict(ctx, doctor.ID, apt.ScheduledAt, apt.EndsAt, ""); err != nil {
			return err
		}
		if err := h.coll(models.CollectionAppointments).Add(ctx, apt); err != nil {
			return failed("create appointment", err)
		}
		return nil
	})
	if err != nil {
		response.Fail(c, err)
		return
	}
	h.record(ctx, c, "create", models.CollectionAppointments, apt.ID)

	when := apt.ScheduledAt.Format("Jan 2, 2006 at 15:04 MST")
	data := map[string]string{"appointmentId": apt.ID}
	h.notify(ctx, doctor.UID, models.NotificationAppointment, "New appointment",
		fmt.Sprintf("%s booked an appointment on %s.", patient.Name, when), data)
	h.notify(ctx, patient.UID, models.NotificationAppointment, "Appointment booked",
		fmt.Sprintf("Your appointment with %s is booked for %s.", doctor.Name, when), data)
	h.Notifier.SendAppointmentConfirmation(&patient, &apt, doctor.Name)

	response.Created(c, models.AppointmentView{
		Appointment:       apt,
		DoctorName:        doctor.Name,
		DoctorSpecialties: doctor.Specialties,
		PatientName:       patient.Name,
	})
}

// withSlotLock runs fn while holding the doctor's booking lock so that the
// conflict check and the write cannot interleave with another booking.
func (h *Handler) withSlotLock(ctx context.Context, doctorID string, fn func() error) error {
	unlock, err := h.Locker.Lock(ctx, doctorID, slotLockTTL)
	if err != nil {
		if errors.Is(err, services.ErrLockBusy) {
			return apperr.Conflict("SLOT_BUSY", "Another booking for this doctor is in progress, please retry")
		}
		return failed("lock schedule", err)
	}
	defer func() {
		if err := unlock(); err != nil {
			h.Log.Warn().Err(err).Str("doctorId", doctorID).Msg("release booking lock")
		}
	}()
	return fn()
}

// checkConflict fails with TIME_CONFLICT when a non-cancelled appointment
// of the doctor overlaps [start, end). excludeID skips the appointment
// being rescheduled.
func (h *Handler) checkConflict(ctx context.Context, doctorID string, start, end time.Time, excludeID string) error {
	var overlapping []models.Appointment
	_, err := h.coll(models.CollectionAppointments).Query(ctx, store.Query{
		Filters: []store.Filter{
			store.Where("doctorId", store.Eq, doctorID),
			store.Where("status", store.Ne, models.AppointmentCancelled),
			store.Where("scheduledAt", store.Lt, end),
			store.Where("endsAt", store.Gt, start),
		},
		OrderBy: "scheduledAt",
		Limit:   2,
	}, &overlapping)
	if err != nil {
		return failed("check availability", err)
	}
	for _, a := range overlapping {
		if a.ID == excludeID || !a.Overlaps(start, end) {
			continue
		}
		return apperr.Conflict("TIME_CONFLICT", "The doctor already has an appointment at this time").
			WithDetails(gin.H{"conflictingAppointmentId": a.ID, "scheduledAt": a.ScheduledAt, "endsAt": a.EndsAt})
	}
	return nil
}

type UpdateAppointmentRequest struct {
	ScheduledAt *time.Time `json:"scheduledAt"`
	Duration    *int       `json:"duration" binding:"omitempty,min=5,max=480"`
	Type        *string    `json:"type" binding:"omitempty,oneof=in-person video phone"`
	Status      *string    `json:"status" binding:"omitempty,oneof=scheduled confirmed in-progress completed cancelled no-show"`
	Reason      *string    `json:"reason" binding:"omitempty,max=500"`
	Notes       *string    `json:"notes" binding:"omitempty,max=2000"`
}

func (h *Handler) UpdateAppointment(c *gin.Context) {
	var req UpdateAppointmentRequest
	if err := validation.BindJSON(c, &req); err != nil {
		response.Fail(c, err)
		return
	}
	ctx := c.Request.Context()
	who := caller(c)

	apt, err := h.participantAppointment(ctx, c.Param("id"), who)
	if err != nil {
		response.Fail(c, err)
		return
	}
	if who.Role == models.RolePatient && req.Status != nil && *req.Status != models.AppointmentCancelled {
		response.Fail(c, apperr.Forbidden("Patients can only cancel appointments"))
		return
	}

	now := h.now()
	update := map[string]any{}
	if req.Type != nil {
		update["type"] = *req.Type
	}
	if req.Reason != nil {
		update["reason"] = *req.Reason
	}
	if req.Notes != nil {
		update["notes"] = *req.Notes
	}
	if req.Status != nil && *req.Status != apt.Status {
		update["status"] = *req.Status
		if *req.Status == models.AppointmentCancelled {
			update["cancelledAt"] = now
		}
	}

	retimed := req.ScheduledAt != nil || req.Duration != nil
	if len(update) == 0 && !retimed {
		response.Fail(c, noFields())
		return
	}

	write := func() error {
		if err := h.coll(models.CollectionAppointments).Update(ctx, apt.ID, update); err != nil {
			return failed("update appointment", err)
		}
		return nil
	}

	if retimed {
		start, duration := apt.ScheduledAt, apt.Duration
		if req.ScheduledAt != nil {
			start = req.ScheduledAt.UTC()
			if !start.After(now) {
				response.Fail(c, apperr.BadRequest("INVALID_TIME", "Appointment must be scheduled in the future"))
				return
			}
		}
		if req.Duration != nil {
			duration = *req.Duration
		}
		end := start.Add(time.Duration(duration) * time.Minute)
		update["scheduledAt"] = start
		update["duration"] = duration
		update["endsAt"] = end
		update["reminderSentAt"] = nil

		err = h.withSlotLock(ctx, apt.DoctorID, func() error {
			if err := h.checkConflict(ctx, apt.DoctorID, start, end, apt.ID); err != nil {
				return err
			}
			return write()
		})
	} else {
		err = write()
	}
	if err != nil {
		response.Fail(c, err)
		return
	}
	if update["status"] == models.AppointmentCancelled {
		h.record(ctx, c, "cancel", models.CollectionAppointments, apt.ID)
	}

	if err := h.load(ctx, models.CollectionAppointments, apt.ID, "appointment", apt); err != nil {
		response.Fail(c, err)
		return
	}
	views, err := h.enrichAppointments(ctx, []models.Appointment{*apt})
	if err != nil {
		response.Fail(c, failed("fetch appointment", err))
		return
	}
	response.OK(c, views[0])
}

// CancelAppointment is the soft delete for appointments. Cancelling twice
// returns the already cancelled appointment.
func (h *Handler) CancelAppointment(c *gin.Context) {
	ctx := c.Request.Context()
	apt, err := h.participantAppointment(ctx, c.Param("id"), caller(c))
	if err != nil {
		response.Fail(c, err)
		return
	}
	if apt.Status == models.AppointmentCancelled {
		response.OK(c, apt)
		return
	}

	now := h.now()
	reason := truncate(strings.TrimSpace(c.Query("reason")), 500)
	update := map[string]any{
		"status":      models.AppointmentCancelled,
		"cancelledAt": now,
	}
	if reason != "" {
		update["cancellationReason"] = reason
	}
	if err := h.coll(models.CollectionAppointments).Update(ctx, apt.ID, update); err != nil {
		response.Fail(c, failed("cancel appointment", err))
		return
	}
	h.record(ctx, c, "cancel", models.CollectionAppointments, apt.ID)

	apt.Status = models.AppointmentCancelled
	apt.CancelledAt = &now
	apt.CancellationReason = reason
	apt.UpdatedAt = now
	h.notifyParticipants(ctx, apt, "Appointment cancelled",
		fmt.Sprintf("The appointment on %s was cancelled.", apt.ScheduledAt.Format("Jan 2, 2006 at 15:04 MST")))

	response.OK(c, apt)
}

// notifyParticipants fans one notification out to the doctor and patient
// users in a single batched write.
func (h *Handler) notifyParticipants(ctx context.Context, apt *models.Appointment, title, body string) {
	var uids []string
	var doctor models.Doctor
	if err := h.coll(models.CollectionDoctors).Get(ctx, apt.DoctorID, &doctor); err == nil {
		uids = append(uids, doctor.UID)
	}
	var patient models.Patient
	if err := h.coll(models.CollectionPatients).Get(ctx, apt.PatientID, &patient); err == nil {
		uids = append(uids, patient.UID)
	}
	if _, err := h.Notifier.Broadcast(ctx, uids, models.NotificationAppointment, title, body); err != nil {
		h.Log.Error().Err(err).Str("appointment_id", apt.ID).Msg("failed to notify participants")
	}
}
