package models

import "time"

const (
	PrescriptionActive    = "active"
	PrescriptionExpired   = "expired"
	PrescriptionCancelled = "cancelled"
)

type Medication struct {
	Name         string `bson:"name" json:"name" binding:"required,max=200"`
	Dosage       string `bson:"dosage" json:"dosage" binding:"required,max=100"`
	Frequency    string `bson:"frequency" json:"frequency" binding:"required,max=100"`
	DurationDays int    `bson:"durationDays,omitempty" json:"durationDays,omitempty" binding:"omitempty,min=1,max=365"`
	Instructions string `bson:"instructions,omitempty" json:"instructions,omitempty" binding:"omitempty,max=500"`
}

type Prescription struct {
	ID            string       `bson:"_id" json:"id"`
	PatientID     string       `bson:"patientId" json:"patientId"`
	DoctorID      string       `bson:"doctorId" json:"doctorId"`
	AppointmentID string       `bson:"appointmentId,omitempty" json:"appointmentId,omitempty"`
	Medications   []Medication `bson:"medications" json:"medications"`
	Diagnosis     string       `bson:"diagnosis,omitempty" json:"diagnosis,omitempty"`
	Notes         string       `bson:"notes,omitempty" json:"notes,omitempty"`
	IssuedAt      time.Time    `bson:"issuedAt" json:"issuedAt"`
	ValidUntil    time.Time    `bson:"validUntil" json:"validUntil"`
	// Status is what was last persisted; CurrentStatus is authoritative.
	Status      string     `bson:"status" json:"status"`
	Cancelled   bool       `bson:"cancelled" json:"cancelled"`
	CancelledAt *time.Time `bson:"cancelledAt,omitempty" json:"cancelledAt,omitempty"`
	CreatedAt   time.Time  `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time  `bson:"updatedAt" json:"updatedAt"`
}

// CurrentStatus derives the effective state at now.
func (p *Prescription) CurrentStatus(now time.Time) string {
	switch {
	case p.Cancelled:
		return PrescriptionCancelled
	case !p.ValidUntil.After(now):
		return PrescriptionExpired
	default:
		return PrescriptionActive
	}
}

type PrescriptionView struct {
	Prescription  `bson:",inline"`
	CurrentStatus string `json:"currentStatus"`
	DoctorName    string `json:"doctorName"`
	PatientName   string `json:"patientName"`
}
