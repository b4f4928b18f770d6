package models

import "time"

const (
	UrgencyLow       = "low"
	UrgencyModerate  = "moderate"
	UrgencyHigh      = "high"
	UrgencyEmergency = "emergency"
)

type ConditionMatch struct {
	Condition       string   `bson:"condition" json:"condition"`
	Score           float64  `bson:"score" json:"score"`
	MatchedSymptoms []string `bson:"matchedSymptoms" json:"matchedSymptoms"`
	Specialty       string   `bson:"specialty" json:"specialty"`
	Urgency         string   `bson:"urgency" json:"urgency"`
}

type SymptomAnalysis struct {
	Conditions   []ConditionMatch `bson:"conditions" json:"conditions"`
	Urgency      string           `bson:"urgency" json:"urgency"`
	RedFlags     []string         `bson:"redFlags" json:"redFlags"`
	Unrecognized []string         `bson:"unrecognized" json:"unrecognized"`
	Advice       string           `bson:"advice" json:"advice"`
	Disclaimer   string           `bson:"disclaimer" json:"disclaimer"`
}

type SymptomCheck struct {
	ID        string          `bson:"_id" json:"id"`
	UserID    string          `bson:"userId" json:"userId"`
	Symptoms  []string        `bson:"symptoms" json:"symptoms"`
	Age       int             `bson:"age,omitempty" json:"age,omitempty"`
	Result    SymptomAnalysis `bson:"result" json:"result"`
	CreatedAt time.Time       `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time       `bson:"updatedAt" json:"updatedAt"`
}
