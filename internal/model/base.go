package model

import (
	"time"
)

// Base contains common fields for all stored documents
type Base struct {
	ID        string    `json:"_id" bson:"_id"`
	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt" bson:"updatedAt"`
}

func (b *Base) GetID() string { return b.ID }

func (b *Base) SetID(id string) { b.ID = id }

// Touch sets CreatedAt the first time it is called and UpdatedAt every time.
func (b *Base) Touch(now time.Time) {
	now = now.UTC()
	if b.CreatedAt.IsZero() {
		b.CreatedAt = now
	}
	b.UpdatedAt = now
}

// JSONMap represents a free-form JSON object
type JSONMap map[string]interface{}

// Collection names
const (
	CollectionPatients     = "patients"
	CollectionPhlebotomies = "phlebotomies"
	CollectionLabReports   = "labreports"
	CollectionClinicals    = "clinicals"
	CollectionRadiology    = "radiology"
	CollectionPayments     = "payments"
	CollectionExpenses     = "expenses"
	CollectionUsers        = "users"
)

// Collections lists every collection the API stores documents in.
var Collections = []string{
	CollectionPatients,
	CollectionPhlebotomies,
	CollectionLabReports,
	CollectionClinicals,
	CollectionRadiology,
	CollectionPayments,
	CollectionExpenses,
	CollectionUsers,
}

// LabNumbered is implemented by records keyed to a lab number.
type LabNumbered interface {
	GetLabNumber() string
}

// PatientNamed is implemented by records naming a patient.
type PatientNamed interface {
	GetPatientName() string
}

// PatientRef holds the fields every departmental record uses to refer to a
// patient visit.
type PatientRef struct {
	PatientName string `json:"patientName" bson:"patientName" binding:"required"`
	LabNumber   string `json:"labNumber" bson:"labNumber" binding:"required,labnumber"`
}

func (r *PatientRef) GetLabNumber() string   { return r.LabNumber }
func (r *PatientRef) GetPatientName() string { return r.PatientName }

// ResetMeta clears the id and timestamps so the store assigns fresh ones.
func (b *Base) ResetMeta() {
	b.ID = ""
	b.CreatedAt = time.Time{}
	b.UpdatedAt = time.Time{}
}
