package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/harentsoaR/healthcare-api/internal/models"
	"github.com/harentsoaR/healthcare-api/internal/store"
	"github.com/harentsoaR/healthcare-api/internal/utils"
	"github.com/rs/zerolog"
	"gopkg.in/gomail.v2"
)

type Mailer interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

type SMTPMailer struct {
	dialer *gomail.Dialer
	from   string
}

func NewSMTPMailer(host string, port int, user, pass, from string) *SMTPMailer {
	if from == "" {
		from = user
	}
	return &SMTPMailer{dialer: gomail.NewDialer(host, port, user, pass), from: from}
}

func (m *SMTPMailer) Send(_ context.Context, to, subject, htmlBody string) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", htmlBody)
	return m.dialer.DialAndSend(msg)
}

// NoopMailer logs instead of sending. Used when SMTP is not configured.
type NoopMailer struct {
	Log zerolog.Logger
}

func (m NoopMailer) Send(_ context.Context, to, subject, _ string) error {
	m.Log.Debug().Str("to", to).Str("subject", subject).Msg("email not sent: smtp disabled")
	return nil
}

// NotificationService writes in-app notifications and sends emails. Emails
// on the request path are sent in the background.
type NotificationService struct {
	store  store.Store
	mailer Mailer
	log    zerolog.Logger
	retry  utils.RetryOptions
	now    func() time.Time
	wg     sync.WaitGroup
}

func NewNotificationService(st store.Store, mailer Mailer, log zerolog.Logger) *NotificationService {
	return &NotificationService{
		store:  st,
		mailer: mailer,
		log:    log.With().Str("component", "notifications").Logger(),
		retry:  utils.DefaultRetry,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (s *NotificationService) build(userID, typ, title, body string, data map[string]string) models.Notification {
	now := s.now()
	return models.Notification{
		ID:        store.NewID(),
		UserID:    userID,
		Type:      typ,
		Title:     title,
		Body:      body,
		Data:      data,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (s *NotificationService) Notify(ctx context.Context, userID, typ, title, body string, data map[string]string) error {
	n := s.build(userID, typ, title, body, data)
	if err := s.store.Collection(models.CollectionNotifications).Add(ctx, n); err != nil {
		return fmt.Errorf("create notification: %w", err)
	}
	return nil
}

// Broadcast creates one notification per user in a single batched write.
func (s *NotificationService) Broadcast(ctx context.Context, userIDs []string, typ, title, body string) (int, error) {
	seen := make(map[string]bool, len(userIDs))
	batch := make([]any, 0, len(userIDs))
	for _, id := range userIDs {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		batch = append(batch, s.build(id, typ, title, body, nil))
	}
	if len(batch) == 0 {
		return 0, nil
	}
	if err := s.store.Collection(models.CollectionNotifications).AddMany(ctx, batch); err != nil {
		return 0, fmt.Errorf("broadcast notifications: %w", err)
	}
	return len(batch), nil
}

// SendAppointmentConfirmation emails the patient without blocking the
// response.
func (s *NotificationService) SendAppointmentConfirmation(patient *models.Patient, apt *models.Appointment, doctorName string) {
	if patient.Email == "" {
		s.log.Info().Str("appointment_id", apt.ID).Msg("confirmation not sent: patient has no email")
		return
	}
	subject := "Appointment confirmed"
	body := fmt.Sprintf(
		"<p>Dear %s,</p><p>Your %s appointment with %s is booked for %s (%d minutes).</p>",
		patient.Name, apt.Type, doctorName, apt.ScheduledAt.Format("Jan 2, 2006 at 3:04 PM MST"), apt.Duration,
	)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := s.email(ctx, patient.Email, subject, body); err != nil {
			s.log.Error().Err(err).Str("appointment_id", apt.ID).Msg("failed to send confirmation email")
		}
	}()
}

func (s *NotificationService) SendAppointmentReminder(ctx context.Context, patient *models.Patient, apt *models.Appointment, doctorName string) error {
	if patient.Email == "" {
		return nil
	}
	subject := "Reminder: upcoming appointment"
	body := fmt.Sprintf(
		"<p>Dear %s,</p><p>This is a reminder of your appointment with %s at %s.</p>"+
			"<p>If you need to reschedule or cancel, please do so as soon as possible.</p>",
		patient.Name, doctorName, apt.ScheduledAt.Format("Jan 2, 2006 at 3:04 PM MST"),
	)
	return s.email(ctx, patient.Email, subject, body)
}

func (s *NotificationService) email(ctx context.Context, to, subject, body string) error {
	return utils.Retry(ctx, s.retry, func() error {
		return s.mailer.Send(ctx, to, subject, body)
	})
}

// Wait blocks until background emails have finished.
func (s *NotificationService) Wait() {
	s.wg.Wait()
}
