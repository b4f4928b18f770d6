package services

import (
	"context"
	"fmt"
	"time"

	"github.com/harentsoaR/healthcare-api/internal/models"
	"github.com/harentsoaR/healthcare-api/internal/store"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Scheduler runs the periodic jobs: appointment reminders and the
// prescription expiry sweep.
type Scheduler struct {
	store    store.Store
	notifier *NotificationService
	log      zerolog.Logger
	now      func() time.Time
	cron     *cron.Cron
}

func NewScheduler(st store.Store, notifier *NotificationService, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		store:    st,
		notifier: notifier,
		log:      log.With().Str("component", "scheduler").Logger(),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *Scheduler) Start(reminderSpec, expirySpec string) error {
	c := cron.New()
	if _, err := c.AddFunc(reminderSpec, func() { s.run("reminders", s.runReminders) }); err != nil {
		return fmt.Errorf("schedule reminders %q: %w", reminderSpec, err)
	}
	if _, err := c.AddFunc(expirySpec, func() { s.run("prescription-expiry", s.runExpiry) }); err != nil {
		return fmt.Errorf("schedule prescription expiry %q: %w", expirySpec, err)
	}
	c.Start()
	s.cron = c
	s.log.Info().Str("reminders", reminderSpec).Str("expiry", expirySpec).Msg("scheduler started")
	return nil
}

// Stop waits for running jobs to finish.
func (s *Scheduler) Stop() {
	if s.cron != nil {
		<-s.cron.Stop().Done()
	}
}

func (s *Scheduler) run(name string, job func(context.Context) (int64, error)) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	n, err := job(ctx)
	if err != nil {
		s.log.Error().Err(err).Str("job", name).Msg("job failed")
		return
	}
	s.log.Info().Str("job", name).Int64("affected", n).Msg("job finished")
}

func (s *Scheduler) runReminders(ctx context.Context) (int64, error) {
	n, err := s.SendReminders(ctx)
	return int64(n), err
}

func (s *Scheduler) runExpiry(ctx context.Context) (int64, error) {
	return s.ExpirePrescriptions(ctx)
}

// SendReminders notifies patients of appointments starting in about an
// hour. Each appointment is reminded once.
func (s *Scheduler) SendReminders(ctx context.Context) (int, error) {
	now := s.now()
	appointments := s.store.Collection(models.CollectionAppointments)

	var due []models.Appointment
	_, err := appointments.Query(ctx, store.Query{
		Filters: []store.Filter{
			store.Where("status", store.In, []string{models.AppointmentScheduled, models.AppointmentConfirmed}),
			store.Where("scheduledAt", store.Gte, now.Add(55*time.Minute)),
			store.Where("scheduledAt", store.Lte, now.Add(65*time.Minute)),
			store.Where("reminderSentAt", store.Eq, nil),
		},
		OrderBy: "scheduledAt",
	}, &due)
	if err != nil {
		return 0, fmt.Errorf("query due appointments: %w", err)
	}
	if len(due) == 0 {
		return 0, nil
	}

	patientIDs := make([]string, 0, len(due))
	doctorIDs := make([]string, 0, len(due))
	for _, a := range due {
		patientIDs = append(patientIDs, a.PatientID)
		doctorIDs = append(doctorIDs, a.DoctorID)
	}
	var patients []models.Patient
	if err := s.store.Collection(models.CollectionPatients).GetMany(ctx, patientIDs, &patients); err != nil {
		return 0, fmt.Errorf("load patients: %w", err)
	}
	var doctors []models.Doctor
	if err := s.store.Collection(models.CollectionDoctors).GetMany(ctx, doctorIDs, &doctors); err != nil {
		return 0, fmt.Errorf("load doctors: %w", err)
	}
	patientByID := make(map[string]*models.Patient, len(patients))
	for i := range patients {
		patientByID[patients[i].ID] = &patients[i]
	}
	doctorByID := make(map[string]*models.Doctor, len(doctors))
	for i := range doctors {
		doctorByID[doctors[i].ID] = &doctors[i]
	}

	sent := 0
	for i := range due {
		apt := &due[i]
		patient, ok := patientByID[apt.PatientID]
		if !ok {
			s.log.Warn().Str("appointment_id", apt.ID).Msg("reminder skipped: patient not found")
			continue
		}
		doctorName := "your doctor"
		if d, ok := doctorByID[apt.DoctorID]; ok {
			doctorName = d.Name
		}

		title := "Upcoming appointment"
		body := fmt.Sprintf("Your appointment with %s starts at %s.", doctorName, apt.ScheduledAt.Format(time.Kitchen))
		if err := s.notifier.Notify(ctx, patient.UID, models.NotificationReminder, title, body,
			map[string]string{"appointmentId": apt.ID}); err != nil {
			s.log.Error().Err(err).Str("appointment_id", apt.ID).Msg("failed to create reminder notification")
			continue
		}
		if err := s.notifier.SendAppointmentReminder(ctx, patient, apt, doctorName); err != nil {
			s.log.Error().Err(err).Str("appointment_id", apt.ID).Msg("failed to send reminder email")
		}
		if err := appointments.Update(ctx, apt.ID, map[string]any{"reminderSentAt": now}); err != nil {
			s.log.Error().Err(err).Str("appointment_id", apt.ID).Msg("failed to mark reminder sent")
			continue
		}
		sent++
	}
	return sent, nil
}

// ExpirePrescriptions persists the expired state for prescriptions past
// validUntil. Reads derive the state anyway, so this only keeps the stored
// field close to the truth.
func (s *Scheduler) ExpirePrescriptions(ctx context.Context) (int64, error) {
	n, err := s.store.Collection(models.CollectionPrescriptions).UpdateMany(ctx, []store.Filter{
		store.Where("status", store.Eq, models.PrescriptionActive),
		store.Where("cancelled", store.Eq, false),
		store.Where("validUntil", store.Lte, s.now()),
	}, map[string]any{"status": models.PrescriptionExpired})
	if err != nil {
		return 0, fmt.Errorf("expire prescriptions: %w", err)
	}
	return n, nil
}
