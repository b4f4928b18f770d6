package models

import "time"

type Company struct {
	ID          string     `bson:"_id" json:"id"`
	Name        string     `bson:"name" json:"name"`
	NameLower   string     `bson:"nameLower" json:"-"`
	Description string     `bson:"description,omitempty" json:"description,omitempty"`
	Industry    string     `bson:"industry,omitempty" json:"industry,omitempty"`
	Website     string     `bson:"website,omitempty" json:"website,omitempty"`
	Location    string     `bson:"location,omitempty" json:"location,omitempty"`
	OwnerUID    string     `bson:"ownerUid" json:"ownerUid"`
	IsActive    bool       `bson:"isActive" json:"isActive"`
	DeletedAt   *time.Time `bson:"deletedAt,omitempty" json:"deletedAt,omitempty"`
	CreatedAt   time.Time  `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time  `bson:"updatedAt" json:"updatedAt"`
}

const (
	JobOpen   = "open"
	JobClosed = "closed"
)

var EmploymentTypes = []string{"full-time", "part-time", "contract", "internship"}

type Job struct {
	ID             string     `bson:"_id" json:"id"`
	CompanyID      string     `bson:"companyId" json:"companyId"`
	CompanyName    string     `bson:"companyName" json:"companyName"`
	Title          string     `bson:"title" json:"title"`
	Description    string     `bson:"description" json:"description"`
	Location       string     `bson:"location,omitempty" json:"location,omitempty"`
	EmploymentType string     `bson:"employmentType" json:"employmentType"`
	Specialty      string     `bson:"specialty,omitempty" json:"specialty,omitempty"`
	SalaryMin      float64    `bson:"salaryMin,omitempty" json:"salaryMin,omitempty"`
	SalaryMax      float64    `bson:"salaryMax,omitempty" json:"salaryMax,omitempty"`
	Status         string     `bson:"status" json:"status"`
	ClosedAt       *time.Time `bson:"closedAt,omitempty" json:"closedAt,omitempty"`
	PostedBy       string     `bson:"postedBy" json:"postedBy"`
	CreatedAt      time.Time  `bson:"createdAt" json:"createdAt"`
	UpdatedAt      time.Time  `bson:"updatedAt" json:"updatedAt"`
}
