package models

import "time"

type EmergencyContact struct {
	Name         string `bson:"name" json:"name" binding:"required"`
	Phone        string `bson:"phone" json:"phone" binding:"required"`
	Relationship string `bson:"relationship,omitempty" json:"relationship,omitempty"`
}

type Patient struct {
	ID               string            `bson:"_id" json:"id"`
	UID              string            `bson:"uid" json:"uid"`
	Name             string            `bson:"name" json:"name"`
	Email            string            `bson:"email" json:"email"`
	DateOfBirth      string            `bson:"dateOfBirth,omitempty" json:"dateOfBirth,omitempty"`
	Gender           string            `bson:"gender,omitempty" json:"gender,omitempty"`
	Phone            string            `bson:"phone,omitempty" json:"phone,omitempty"`
	Address          string            `bson:"address,omitempty" json:"address,omitempty"`
	BloodType        string            `bson:"bloodType,omitempty" json:"bloodType,omitempty"`
	Allergies        []string          `bson:"allergies" json:"allergies"`
	EmergencyContact *EmergencyContact `bson:"emergencyContact,omitempty" json:"emergencyContact,omitempty"`
	IsActive         bool              `bson:"isActive" json:"isActive"`
	DeletedAt        *time.Time        `bson:"deletedAt,omitempty" json:"deletedAt,omitempty"`
	CreatedAt        time.Time         `bson:"createdAt" json:"createdAt"`
	UpdatedAt        time.Time         `bson:"updatedAt" json:"updatedAt"`
}
