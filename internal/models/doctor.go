package models

import "time"

type Doctor struct {
	ID                string     `bson:"_id" json:"id"`
	UID               string     `bson:"uid" json:"uid"`
	Name              string     `bson:"name" json:"name"`
	Email             string     `bson:"email" json:"email"`
	Specialties       []string   `bson:"specialties" json:"specialties"`
	LicenseNumber     string     `bson:"licenseNumber" json:"licenseNumber"`
	Bio               string     `bson:"bio,omitempty" json:"bio,omitempty"`
	YearsOfExperience int        `bson:"yearsOfExperience" json:"yearsOfExperience"`
	ConsultationFee   float64    `bson:"consultationFee" json:"consultationFee"`
	Languages         []string   `bson:"languages" json:"languages"`
	Rating            float64    `bson:"rating" json:"rating"`
	ReviewCount       int        `bson:"reviewCount" json:"reviewCount"`
	IsActive          bool       `bson:"isActive" json:"isActive"`
	DeletedAt         *time.Time `bson:"deletedAt,omitempty" json:"deletedAt,omitempty"`
	CreatedAt         time.Time  `bson:"createdAt" json:"createdAt"`
	UpdatedAt         time.Time  `bson:"updatedAt" json:"updatedAt"`
}

type Review struct {
	ID        string    `bson:"_id" json:"id"`
	DoctorID  string    `bson:"doctorId" json:"doctorId"`
	PatientID string    `bson:"patientId" json:"patientId"`
	AuthorUID string    `bson:"authorUid" json:"authorUid"`
	Rating    int       `bson:"rating" json:"rating"`
	Comment   string    `bson:"comment,omitempty" json:"comment,omitempty"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

type DoctorStats struct {
	DoctorID          string         `json:"doctorId"`
	TotalAppointments int            `json:"totalAppointments"`
	ByStatus          map[string]int `json:"byStatus"`
	Upcoming          int            `json:"upcoming"`
	DistinctPatients  int            `json:"distinctPatients"`
	Rating            float64        `json:"rating"`
	ReviewCount       int            `json:"reviewCount"`
}
