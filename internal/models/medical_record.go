package models

import "time"

var MedicalRecordTypes = []string{"consultation", "lab-result", "imaging", "vaccination", "surgery", "other"}

type MedicalRecord struct {
	ID          string     `bson:"_id" json:"id"`
	PatientID   string     `bson:"patientId" json:"patientId"`
	DoctorID    string     `bson:"doctorId" json:"doctorId"`
	Type        string     `bson:"type" json:"type"`
	Title       string     `bson:"title" json:"title"`
	Description string     `bson:"description,omitempty" json:"description,omitempty"`
	Diagnosis   string     `bson:"diagnosis,omitempty" json:"diagnosis,omitempty"`
	Attachments []string   `bson:"attachments" json:"attachments"`
	RecordDate  time.Time  `bson:"recordDate" json:"recordDate"`
	IsActive    bool       `bson:"isActive" json:"isActive"`
	DeletedAt   *time.Time `bson:"deletedAt,omitempty" json:"deletedAt,omitempty"`
	CreatedAt   time.Time  `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time  `bson:"updatedAt" json:"updatedAt"`
}
