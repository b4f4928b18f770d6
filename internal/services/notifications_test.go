package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/harentsoaR/healthcare-api/internal/models"
	"github.com/harentsoaR/healthcare-api/internal/store"
	"github.com/harentsoaR/healthcare-api/internal/utils"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sentMail struct {
	to, subject, body string
}

type fakeMailer struct {
	mu       sync.Mutex
	failures int
	sent     []sentMail
}

func (m *fakeMailer) Send(_ context.Context, to, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failures > 0 {
		m.failures--
		return errors.New("smtp unavailable")
	}
	m.sent = append(m.sent, sentMail{to, subject, body})
	return nil
}

func (m *fakeMailer) Sent() []sentMail {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]sentMail(nil), m.sent...)
}

func newTestNotifier(mailer Mailer) (*NotificationService, *store.MemoryStore) {
	st := store.NewMemoryStore()
	n := NewNotificationService(st, mailer, zerolog.Nop())
	n.retry = utils.RetryOptions{Attempts: 3, BaseDelay: time.Millisecond}
	return n, st
}

func TestNotificationService_NotifyAndBroadcast(t *testing.T) {
	n, st := newTestNotifier(&fakeMailer{})
	ctx := context.Background()

	require.NoError(t, n.Notify(ctx, "u1", models.NotificationMessage, "New message", "hi", map[string]string{"from": "u2"}))

	count, err := n.Broadcast(ctx, []string{"u1", "u2", "u2", "", "u3"}, models.NotificationSystem, "Maintenance", "tonight")
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	var forU1 []models.Notification
	total, err := st.Collection(models.CollectionNotifications).Query(ctx, store.Query{
		Filters: []store.Filter{store.Where("userId", store.Eq, "u1")},
		OrderBy: "type",
	}, &forU1)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Equal(t, "u2", forU1[0].Data["from"])
	assert.False(t, forU1[1].Read)

	count, err = n.Broadcast(ctx, nil, models.NotificationSystem, "x", "y")
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestNotificationService_ConfirmationRetries(t *testing.T) {
	mailer := &fakeMailer{failures: 2}
	n, _ := newTestNotifier(mailer)

	patient := &models.Patient{Name: "Ana", Email: "ana@example.com"}
	apt := &models.Appointment{ID: "a1", Type: "video", Duration: 30, ScheduledAt: time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)}
	n.SendAppointmentConfirmation(patient, apt, "Dr. Diaz")
	n.Wait()

	sent := mailer.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "ana@example.com", sent[0].to)
	assert.Contains(t, sent[0].body, "Dr. Diaz")
}

func TestNotificationService_ConfirmationSkipsMissingEmail(t *testing.T) {
	mailer := &fakeMailer{}
	n, _ := newTestNotifier(mailer)

	n.SendAppointmentConfirmation(&models.Patient{Name: "Ana"}, &models.Appointment{ID: "a1"}, "Dr. Diaz")
	n.Wait()
	assert.Empty(t, mailer.Sent())
}
