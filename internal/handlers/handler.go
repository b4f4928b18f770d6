package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"github.com/harentsoaR/healthcare-api/internal/apperr"
	"github.com/harentsoaR/healthcare-api/internal/middleware"
	"github.com/harentsoaR/healthcare-api/internal/models"
	"github.com/harentsoaR/healthcare-api/internal/services"
	"github.com/harentsoaR/healthcare-api/internal/store"
	"github.com/rs/zerolog"
)

// Handler carries the clients every route needs. Route methods live in the
// per-resource files of this package.
type Handler struct {
	Store    store.Store
	Tokens   *services.TokenService
	Notifier *services.NotificationService
	Locker   services.SlotLocker
	Audit    *services.AuditLogger
	Symptoms *services.SymptomAnalyzer
	Log      zerolog.Logger
	Now      func() time.Time
}

func NewHandler(
	st store.Store,
	tokens *services.TokenService,
	notifier *services.NotificationService,
	locker services.SlotLocker,
	audit *services.AuditLogger,
	symptoms *services.SymptomAnalyzer,
	log zerolog.Logger,
) *Handler {
	return &Handler{
		Store:    st,
		Tokens:   tokens,
		Notifier: notifier,
		Locker:   locker,
		Audit:    audit,
		Symptoms: symptoms,
		Log:      log.With().Str("component", "handlers").Logger(),
		Now:      func() time.Time { return time.Now().UTC() },
	}
}

func (h *Handler) coll(name string) store.Collection {
	return h.Store.Collection(name)
}

func (h *Handler) now() time.Time {
	return h.Now().UTC()
}

// load fetches one document, mapping a missing id to <RESOURCE>_NOT_FOUND.
func (h *Handler) load(ctx context.Context, collection, id, resource string, out any) error {
	err := h.coll(collection).Get(ctx, id, out)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return apperr.NotFound(resource)
	case err != nil:
		return failed("fetch "+resource, err)
	}
	return nil
}

// findOne returns false when no document matches.
func (h *Handler) findOne(ctx context.Context, collection string, out any, filters ...store.Filter) (bool, error) {
	total, err := h.coll(collection).Query(ctx, store.Query{Filters: filters, Limit: 1}, out)
	if err != nil {
		return false, err
	}
	return total > 0, nil
}

func (h *Handler) patientForUser(ctx context.Context, uid string) (*models.Patient, error) {
	var patients []models.Patient
	if _, err := h.findOne(ctx, models.CollectionPatients, &patients, store.Where("uid", store.Eq, uid)); err != nil {
		return nil, failed("fetch patient", err)
	}
	if len(patients) == 0 {
		return nil, nil
	}
	return &patients[0], nil
}

func (h *Handler) doctorForUser(ctx context.Context, uid string) (*models.Doctor, error) {
	var doctors []models.Doctor
	if _, err := h.findOne(ctx, models.CollectionDoctors, &doctors, store.Where("uid", store.Eq, uid)); err != nil {
		return nil, failed("fetch doctor", err)
	}
	if len(doctors) == 0 {
		return nil, nil
	}
	return &doctors[0], nil
}

// requirePatient resolves the caller's own patient profile.
func (h *Handler) requirePatient(ctx context.Context, uid string) (*models.Patient, error) {
	p, err := h.patientForUser(ctx, uid)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, apperr.New(http.StatusNotFound, "PATIENT_NOT_FOUND", "Patient profile not found for the current user")
	}
	return p, nil
}

func (h *Handler) requireDoctor(ctx context.Context, uid string) (*models.Doctor, error) {
	d, err := h.doctorForUser(ctx, uid)
	if err != nil {
		return nil, err
	}
	if d == nil {
		return nil, apperr.New(http.StatusNotFound, "DOCTOR_NOT_FOUND", "Doctor profile not found for the current user")
	}
	return d, nil
}

func (h *Handler) record(ctx context.Context, c *gin.Context, action, resource, id string) {
	h.recordAs(ctx, caller(c).UID, action, resource, id)
}

func (h *Handler) recordAs(ctx context.Context, actor, action, resource, id string) {
	if h.Audit == nil {
		return
	}
	h.Audit.Record(ctx, actor, action, resource, id)
}

func (h *Handler) notify(ctx context.Context, userID, typ, title, body string, data map[string]string) {
	if userID == "" {
		return
	}
	if err := h.Notifier.Notify(ctx, userID, typ, title, body, data); err != nil {
		h.Log.Error().Err(err).Str("user_id", userID).Str("type", typ).Msg("failed to create notification")
	}
}

// caller returns the authenticated identity, or an anonymous one on
// routes without Authenticate.
func caller(c *gin.Context) *services.Identity {
	if id, ok := middleware.IdentityFrom(c); ok {
		return id
	}
	return &services.Identity{}
}

// failed wraps an unexpected error as <ACTION>_FAILED, e.g.
// failed("create appointment") yields CREATE_APPOINTMENT_FAILED.
func failed(action string, err error) *apperr.Error {
	code := strings.ToUpper(strings.ReplaceAll(action, " ", "_")) + "_FAILED"
	return apperr.Internal(code, "Failed to "+action, err)
}

func noFields() *apperr.Error {
	return apperr.BadRequest("NO_UPDATE_FIELDS", "No updatable fields provided")
}

func normalizeList(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]bool, len(in))
	for _, s := range in {
		s = strings.ToLower(strings.TrimSpace(s))
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

// truncate cuts s to at most n runes.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
