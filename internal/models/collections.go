package models

import "github.com/harentsoaR/healthcare-api/internal/store"

const (
	CollectionUsers          = "users"
	CollectionDoctors        = "doctors"
	CollectionPatients       = "patients"
	CollectionAppointments   = "appointments"
	CollectionPrescriptions  = "prescriptions"
	CollectionMedicalRecords = "medical_records"
	CollectionCompanies      = "companies"
	CollectionJobs           = "jobs"
	CollectionMessages       = "messages"
	CollectionNotifications  = "notifications"
	CollectionReviews        = "reviews"
	CollectionAuditLogs      = "audit_logs"
	CollectionSymptomChecks  = "symptom_checks"
)

const (
	RolePatient   = "patient"
	RoleDoctor    = "doctor"
	RoleRecruiter = "recruiter"
	RoleAdmin     = "admin"
)

// Indexes backs the uniqueness rules the handlers also check in code.
var Indexes = []store.IndexSpec{
	{Collection: CollectionUsers, Keys: []string{"email"}, Unique: true},
	{Collection: CollectionDoctors, Keys: []string{"uid"}, Unique: true},
	{Collection: CollectionDoctors, Keys: []string{"specialties"}},
	{Collection: CollectionPatients, Keys: []string{"uid"}, Unique: true},
	{Collection: CollectionCompanies, Keys: []string{"nameLower"}, Unique: true},
	{Collection: CollectionReviews, Keys: []string{"doctorId", "patientId"}, Unique: true},
	{Collection: CollectionAppointments, Keys: []string{"doctorId", "scheduledAt"}},
	{Collection: CollectionAppointments, Keys: []string{"patientId", "scheduledAt"}},
	{Collection: CollectionPrescriptions, Keys: []string{"patientId", "issuedAt"}},
	{Collection: CollectionNotifications, Keys: []string{"userId", "read"}},
	{Collection: CollectionMessages, Keys: []string{"conversationId", "createdAt"}},
}
