package models

import "time"

type AuditLog struct {
	ID         string    `bson:"_id" json:"id"`
	ActorUID   string    `bson:"actorUid" json:"actorUid"`
	Action     string    `bson:"action" json:"action"`
	Resource   string    `bson:"resource" json:"resource"`
	ResourceID string    `bson:"resourceId" json:"resourceId"`
	CreatedAt  time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt  time.Time `bson:"updatedAt" json:"updatedAt"`
}
