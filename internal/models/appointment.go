package models

import "time"

const (
	AppointmentScheduled  = "scheduled"
	AppointmentConfirmed  = "confirmed"
	AppointmentInProgress = "in-progress"
	AppointmentCompleted  = "completed"
	AppointmentCancelled  = "cancelled"
	AppointmentNoShow     = "no-show"
)

var AppointmentStatuses = []string{
	AppointmentScheduled, AppointmentConfirmed, AppointmentInProgress,
	AppointmentCompleted, AppointmentCancelled, AppointmentNoShow,
}

const DefaultAppointmentMinutes = 30

type Appointment struct {
	ID                 string     `bson:"_id" json:"id"`
	DoctorID           string     `bson:"doctorId" json:"doctorId"`
	PatientID          string     `bson:"patientId" json:"patientId"`
	ScheduledAt        time.Time  `bson:"scheduledAt" json:"scheduledAt"`
	Duration           int        `bson:"duration" json:"duration"`
	EndsAt             time.Time  `bson:"endsAt" json:"endsAt"`
	Type               string     `bson:"type" json:"type"`
	Status             string     `bson:"status" json:"status"`
	Reason             string     `bson:"reason,omitempty" json:"reason,omitempty"`
	Notes              string     `bson:"notes,omitempty" json:"notes,omitempty"`
	CancelledAt        *time.Time `bson:"cancelledAt,omitempty" json:"cancelledAt,omitempty"`
	CancellationReason string     `bson:"cancellationReason,omitempty" json:"cancellationReason,omitempty"`
	ReminderSentAt     *time.Time `bson:"reminderSentAt,omitempty" json:"reminderSentAt,omitempty"`
	CreatedBy          string     `bson:"createdBy" json:"createdBy"`
	CreatedAt          time.Time  `bson:"createdAt" json:"createdAt"`
	UpdatedAt          time.Time  `bson:"updatedAt" json:"updatedAt"`
}

// Overlaps reports whether a and the range [start, end) intersect.
func (a *Appointment) Overlaps(start, end time.Time) bool {
	return a.ScheduledAt.Before(end) && a.EndsAt.After(start)
}

// AppointmentView is an appointment joined with its doctor and patient.
type AppointmentView struct {
	Appointment       `bson:",inline"`
	DoctorName        string   `json:"doctorName"`
	DoctorSpecialties []string `json:"doctorSpecialties"`
	PatientName       string   `json:"patientName"`
}
