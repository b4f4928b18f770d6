package handlers

import (
	"context"
	"errors"
	"math"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/harentsoaR/healthcare-api/internal/apperr"
	"github.com/harentsoaR/healthcare-api/internal/models"
	"github.com/harentsoaR/healthcare-api/internal/response"
	"github.com/harentsoaR/healthcare-api/internal/services"
	"github.com/harentsoaR/healthcare-api/internal/store"
	"github.com/harentsoaR/healthcare-api/internal/validation"
)

type ListDoctorsQuery struct {
	Specialty string `form:"specialty" binding:"omitempty,max=50"`
	Search    string `form:"search" binding:"omitempty,max=100"`
}

// ListDoctors is public. Inactive profiles are only listed for admins that
// ask for them with includeInactive=true.
func (h *Handler) ListDoctors(c *gin.Context) {
	var q ListDoctorsQuery
	if err := validation.BindQuery(c, &q); err != nil {
		response.Fail(c, err)
		return
	}
	page, limit := validation.Pagination(c, response.DefaultLimit)

	var filters []store.Filter
	if q.Specialty != "" {
		filters = append(filters, store.Where("specialties", store.ArrayContains, strings.ToLower(strings.TrimSpace(q.Specialty))))
	}
	if q.Search != "" {
		filters = append(filters, store.Where("name", store.Contains, strings.TrimSpace(q.Search)))
	}
	if !(validation.BoolQuery(c, "includeInactive") && caller(c).HasRole(models.RoleAdmin)) {
		filters = append(filters, store.Where("isActive", store.Eq, true))
	}

	doctors := []models.Doctor{}
	total, err := h.coll(models.CollectionDoctors).Query(c.Request.Context(), store.Query{
		Filters: filters,
		OrderBy: "name",
		Offset:  response.Offset(page, limit),
		Limit:   limit,
	}, &doctors)
	if err != nil {
		response.Fail(c, failed("fetch doctors", err))
		return
	}
	response.Paged(c, doctors, response.NewMeta(page, limit, total))
}

func (h *Handler) GetDoctor(c *gin.Context) {
	doctor, err := h.visibleDoctor(c.Request.Context(), c.Param("id"), caller(c))
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.OK(c, doctor)
}

// visibleDoctor hides soft-deleted profiles from everyone but admins.
func (h *Handler) visibleDoctor(ctx context.Context, id string, who *services.Identity) (*models.Doctor, error) {
	var doctor models.Doctor
	if err := h.load(ctx, models.CollectionDoctors, id, "doctor", &doctor); err != nil {
		return nil, err
	}
	if !doctor.IsActive && !who.HasRole(models.RoleAdmin) {
		return nil, apperr.NotFound("doctor")
	}
	return &doctor, nil
}

type CreateDoctorRequest struct {
	UID               string   `json:"uid" binding:"required,max=64"`
	Name              string   `json:"name" binding:"omitempty,min=2,max=100"`
	Specialties       []string `json:"specialties" binding:"required,min=1,max=10,dive,required,max=50"`
	LicenseNumber     string   `json:"licenseNumber" binding:"required,max=50"`
	Bio               string   `json:"bio" binding:"omitempty,max=2000"`
	YearsOfExperience int      `json:"yearsOfExperience" binding:"gte=0,lte=70"`
	ConsultationFee   float64  `json:"consultationFee" binding:"gte=0"`
	Languages         []string `json:"languages" binding:"omitempty,max=10,dive,required,max=30"`
}

func (h *Handler) CreateDoctor(c *gin.Context) {
	var req CreateDoctorRequest
	if err := validation.BindJSON(c, &req); err != nil {
		response.Fail(c, err)
		return
	}
	ctx := c.Request.Context()
	who := caller(c)

	if who.Role == models.RoleDoctor && req.UID != who.UID {
		response.Fail(c, apperr.Forbidden("Doctors can only create their own profile"))
		return
	}

	var user models.User
	if err := h.load(ctx, models.CollectionUsers, req.UID, "user", &user); err != nil {
		response.Fail(c, err)
		return
	}
	if user.Role != models.RoleDoctor {
		response.Fail(c, apperr.BadRequest("INVALID_ROLE", "User must have the doctor role"))
		return
	}

	existing, err := h.doctorForUser(ctx, req.UID)
	if err != nil {
		response.Fail(c, err)
		return
	}
	if existing != nil {
		response.Fail(c, apperr.Conflict("DOCTOR_EXISTS", "A doctor profile already exists for this user"))
		return
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = user.FullName
	}
	languages := normalizeList(req.Languages)

	now := h.now()
	doctor := models.Doctor{
		ID:                store.NewID(),
		UID:               req.UID,
		Name:              name,
		Email:             user.Email,
		Specialties:       normalizeList(req.Specialties),
		LicenseNumber:     strings.TrimSpace(req.LicenseNumber),
		Bio:               req.Bio,
		YearsOfExperience: req.YearsOfExperience,
		ConsultationFee:   req.ConsultationFee,
		Languages:         languages,
		IsActive:          true,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := h.coll(models.CollectionDoctors).Add(ctx, doctor); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			response.Fail(c, apperr.Conflict("DOCTOR_EXISTS", "A doctor profile already exists for this user"))
			return
		}
		response.Fail(c, failed("create doctor", err))
		return
	}
	h.record(ctx, c, "create", models.CollectionDoctors, doctor.ID)

	response.Created(c, doctor)
}

type UpdateDoctorRequest struct {
	Name              *string  `json:"name" binding:"omitempty,min=2,max=100"`
	Specialties       []string `json:"specialties" binding:"omitempty,min=1,max=10,dive,required,max=50"`
	LicenseNumber     *string  `json:"licenseNumber" binding:"omitempty,min=1,max=50"`
	Bio               *string  `json:"bio" binding:"omitempty,max=2000"`
	YearsOfExperience *int     `json:"yearsOfExperience" binding:"omitempty,gte=0,lte=70"`
	ConsultationFee   *float64 `json:"consultationFee" binding:"omitempty,gte=0"`
	Languages         []string `json:"languages" binding:"omitempty,max=10,dive,required,max=30"`
}

func (h *Handler) UpdateDoctor(c *gin.Context) {
	var req UpdateDoctorRequest
	if err := validation.BindJSON(c, &req); err != nil {
		response.Fail(c, err)
		return
	}
	ctx := c.Request.Context()

	doctor, err := h.ownedDoctor(ctx, c.Param("id"), caller(c))
	if err != nil {
		response.Fail(c, err)
		return
	}

	update := map[string]any{}
	if req.Name != nil {
		update["name"] = strings.TrimSpace(*req.Name)
	}
	if req.Specialties != nil {
		update["specialties"] = normalizeList(req.Specialties)
	}
	if req.LicenseNumber != nil {
		update["licenseNumber"] = strings.TrimSpace(*req.LicenseNumber)
	}
	if req.Bio != nil {
		update["bio"] = *req.Bio
	}
	if req.YearsOfExperience != nil {
		update["yearsOfExperience"] = *req.YearsOfExperience
	}
	if req.ConsultationFee != nil {
		update["consultationFee"] = *req.ConsultationFee
	}
	if req.Languages != nil {
		update["languages"] = normalizeList(req.Languages)
	}
	if len(update) == 0 {
		response.Fail(c, noFields())
		return
	}

	if err := h.coll(models.CollectionDoctors).Update(ctx, doctor.ID, update); err != nil {
		response.Fail(c, failed("update doctor", err))
		return
	}
	if err := h.load(ctx, models.CollectionDoctors, doctor.ID, "doctor", doctor); err != nil {
		response.Fail(c, err)
		return
	}
	response.OK(c, doctor)
}

// DeleteDoctor deactivates the profile. Repeating it is a no-op.
func (h *Handler) DeleteDoctor(c *gin.Context) {
	ctx := c.Request.Context()
	doctor, err := h.ownedDoctor(ctx, c.Param("id"), caller(c))
	if err != nil {
		response.Fail(c, err)
		return
	}
	if !doctor.IsActive {
		response.OK(c, doctor)
		return
	}

	now := h.now()
	if err := h.coll(models.CollectionDoctors).Update(ctx, doctor.ID, map[string]any{
		"isActive":  false,
		"deletedAt": now,
	}); err != nil {
		response.Fail(c, failed("delete doctor", err))
		return
	}
	h.record(ctx, c, "delete", models.CollectionDoctors, doctor.ID)

	doctor.IsActive = false
	doctor.DeletedAt = &now
	doctor.UpdatedAt = now
	response.OK(c, doctor)
}

// ownedDoctor loads a doctor the caller may modify: their own profile, or
// any profile for admins.
func (h *Handler) ownedDoctor(ctx context.Context, id string, who *services.Identity) (*models.Doctor, error) {
	var doctor models.Doctor
	if err := h.load(ctx, models.CollectionDoctors, id, "doctor", &doctor); err != nil {
		return nil, err
	}
	if doctor.UID != who.UID && !who.HasRole(models.RoleAdmin) {
		return nil, apperr.Forbidden("You can only modify your own doctor profile")
	}
	return &doctor, nil
}

func (h *Handler) ListReviews(c *gin.Context) {
	ctx := c.Request.Context()
	doctor, err := h.visibleDoctor(ctx, c.Param("id"), caller(c))
	if err != nil {
		response.Fail(c, err)
		return
	}
	page, limit := validation.Pagination(c, response.DefaultLimit)

	reviews := []models.Review{}
	total, err := h.coll(models.CollectionReviews).Query(ctx, store.Query{
		Filters: []store.Filter{store.Where("doctorId", store.Eq, doctor.ID)},
		OrderBy: "createdAt",
		Desc:    true,
		Offset:  response.Offset(page, limit),
		Limit:   limit,
	}, &reviews)
	if err != nil {
		response.Fail(c, failed("fetch reviews", err))
		return
	}
	response.Paged(c, reviews, response.NewMeta(page, limit, total))
}

type CreateReviewRequest struct {
	Rating  int    `json:"rating" binding:"required,min=1,max=5"`
	Comment string `json:"comment" binding:"omitempty,max=2000"`
}

func (h *Handler) CreateReview(c *gin.Context) {
	var req CreateReviewRequest
	if err := validation.BindJSON(c, &req); err != nil {
		response.Fail(c, err)
		return
	}
	ctx := c.Request.Context()
	who := caller(c)

	doctor, err := h.visibleDoctor(ctx, c.Param("id"), who)
	if err != nil {
		response.Fail(c, err)
		return
	}
	patient, err := h.requirePatient(ctx, who.UID)
	if err != nil {
		response.Fail(c, err)
		return
	}

	var existing []models.Review
	found, err := h.findOne(ctx, models.CollectionReviews, &existing,
		store.Where("doctorId", store.Eq, doctor.ID),
		store.Where("patientId", store.Eq, patient.ID))
	if err != nil {
		response.Fail(c, failed("create review", err))
		return
	}
	if found {
		response.Fail(c, apperr.Conflict("REVIEW_EXISTS", "You have already reviewed this doctor"))
		return
	}

	now := h.now()
	review := models.Review{
		ID:        store.NewID(),
		DoctorID:  doctor.ID,
		PatientID: patient.ID,
		AuthorUID: who.UID,
		Rating:    req.Rating,
		Comment:   strings.TrimSpace(req.Comment),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := h.coll(models.CollectionReviews).Add(ctx, review); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			response.Fail(c, apperr.Conflict("REVIEW_EXISTS", "You have already reviewed this doctor"))
			return
		}
		response.Fail(c, failed("create review", err))
		return
	}

	if err := h.refreshRating(ctx, doctor.ID); err != nil {
		h.Log.Error().Err(err).Str("doctor_id", doctor.ID).Msg("failed to refresh doctor rating")
	}
	response.Created(c, review)
}

// refreshRating recomputes the doctor's aggregate from all reviews.
func (h *Handler) refreshRating(ctx context.Context, doctorID string) error {
	var reviews []models.Review
	if _, err := h.coll(models.CollectionReviews).Query(ctx, store.Query{
		Filters: []store.Filter{store.Where("doctorId", store.Eq, doctorID)},
	}, &reviews); err != nil {
		return err
	}
	var sum int
	for _, r := range reviews {
		sum += r.Rating
	}
	var rating float64
	if len(reviews) > 0 {
		rating = math.Round(float64(sum)/float64(len(reviews))*10) / 10
	}
	return h.coll(models.CollectionDoctors).Update(ctx, doctorID, map[string]any{
		"rating":      rating,
		"reviewCount": len(reviews),
	})
}

func (h *Handler) DoctorStats(c *gin.Context) {
	ctx := c.Request.Context()
	doctor, err := h.ownedDoctor(ctx, c.Param("id"), caller(c))
	if err != nil {
		response.Fail(c, err)
		return
	}

	var appointments []models.Appointment
	if _, err := h.coll(models.CollectionAppointments).Query(ctx, store.Query{
		Filters: []store.Filter{store.Where("doctorId", store.Eq, doctor.ID)},
	}, &appointments); err != nil {
		response.Fail(c, failed("fetch doctor stats", err))
		return
	}

	now := h.now()
	stats := models.DoctorStats{
		DoctorID:          doctor.ID,
		TotalAppointments: len(appointments),
		ByStatus:          make(map[string]int, len(models.AppointmentStatuses)),
		Rating:            doctor.Rating,
		ReviewCount:       doctor.ReviewCount,
	}
	for _, s := range models.AppointmentStatuses {
		stats.ByStatus[s] = 0
	}
	patients := make(map[string]bool)
	for _, a := range appointments {
		stats.ByStatus[a.Status]++
		patients[a.PatientID] = true
		if a.ScheduledAt.After(now) && (a.Status == models.AppointmentScheduled || a.Status == models.AppointmentConfirmed) {
			stats.Upcoming++
		}
	}
	stats.DistinctPatients = len(patients)

	response.OK(c, stats)
}
