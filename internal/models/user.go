package models

import "time"

type User struct {
	ID              string    `bson:"_id" json:"id"`
	FullName        string    `bson:"fullName" json:"fullName"`
	Email           string    `bson:"email" json:"email"`
	Password        string    `bson:"password" json:"-"`
	Role            string    `bson:"role" json:"role"`
	Phone           string    `bson:"phone,omitempty" json:"phone,omitempty"`
	IsEmailVerified bool      `bson:"isEmailVerified" json:"isEmailVerified"`
	IsActive        bool      `bson:"isActive" json:"isActive"`
	CreatedAt       time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt       time.Time `bson:"updatedAt" json:"updatedAt"`
}
