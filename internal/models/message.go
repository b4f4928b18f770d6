package models

import (
	"sort"
	"strings"
	"time"
)

type Message struct {
	ID             string     `bson:"_id" json:"id"`
	ConversationID string     `bson:"conversationId" json:"conversationId"`
	SenderID       string     `bson:"senderId" json:"senderId"`
	RecipientID    string     `bson:"recipientId" json:"recipientId"`
	Content        string     `bson:"content" json:"content"`
	Read           bool       `bson:"read" json:"read"`
	ReadAt         *time.Time `bson:"readAt,omitempty" json:"readAt,omitempty"`
	CreatedAt      time.Time  `bson:"createdAt" json:"createdAt"`
	UpdatedAt      time.Time  `bson:"updatedAt" json:"updatedAt"`
}

// ConversationID is stable regardless of who sends first.
func ConversationID(a, b string) string {
	pair := []string{a, b}
	sort.Strings(pair)
	return strings.Join(pair, "_")
}

const (
	NotificationAppointment  = "appointment"
	NotificationPrescription = "prescription"
	NotificationMessage      = "message"
	NotificationReminder     = "reminder"
	NotificationSystem       = "system"
)

var NotificationTypes = []string{
	NotificationAppointment, NotificationPrescription, NotificationMessage,
	NotificationReminder, NotificationSystem,
}

type Notification struct {
	ID        string            `bson:"_id" json:"id"`
	UserID    string            `bson:"userId" json:"userId"`
	Type      string            `bson:"type" json:"type"`
	Title     string            `bson:"title" json:"title"`
	Body      string            `bson:"body" json:"body"`
	Data      map[string]string `bson:"data,omitempty" json:"data,omitempty"`
	Read      bool              `bson:"read" json:"read"`
	ReadAt    *time.Time        `bson:"readAt,omitempty" json:"readAt,omitempty"`
	CreatedAt time.Time         `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time         `bson:"updatedAt" json:"updatedAt"`
}
