package model

import (
	"strings"

	"github.com/RyneJoanams/gulf-main-sub001/pkg/labnumber"
)

type PatientStatus string

const (
	PatientStatusRegistered PatientStatus = "registered"
	PatientStatusInProgress PatientStatus = "in-progress"
	PatientStatusCompleted  PatientStatus = "completed"
)

// Patient is a registered person attending the clinic.
type Patient struct {
	Base           `bson:",inline"`
	PatientName    string        `json:"patientName" bson:"patientName" binding:"required"`
	Gender         string        `json:"gender" bson:"gender" binding:"required"`
	MedicalType    string        `json:"medicalType" bson:"medicalType" binding:"required"`
	PassportNumber string        `json:"passportNumber,omitempty" bson:"passportNumber,omitempty"`
	IDNumber       string        `json:"idNumber,omitempty" bson:"idNumber,omitempty"`
	Age            int           `json:"age,omitempty" bson:"age,omitempty" binding:"gte=0"`
	DateOfBirth    string        `json:"dateOfBirth,omitempty" bson:"dateOfBirth,omitempty"`
	Nationality    string        `json:"nationality,omitempty" bson:"nationality,omitempty"`
	IssuingCountry string        `json:"issuingCountry,omitempty" bson:"issuingCountry,omitempty"`
	Occupation     string        `json:"occupation,omitempty" bson:"occupation,omitempty"`
	Agent          string        `json:"agent,omitempty" bson:"agent,omitempty"`
	Phone          string        `json:"phone,omitempty" bson:"phone,omitempty"`
	Email          string        `json:"email,omitempty" bson:"email,omitempty" binding:"omitempty,email"`
	Height         float64       `json:"height,omitempty" bson:"height,omitempty" binding:"gte=0"`
	Weight         float64       `json:"weight,omitempty" bson:"weight,omitempty" binding:"gte=0"`
	Photo          string        `json:"photo,omitempty" bson:"photo,omitempty"`
	LabNumber      string        `json:"labNumber,omitempty" bson:"labNumber,omitempty" binding:"omitempty,labnumber"`
	Status         PatientStatus `json:"status,omitempty" bson:"status,omitempty"`
}

func (p *Patient) GetLabNumber() string   { return p.LabNumber }
func (p *Patient) GetPatientName() string { return p.PatientName }

// Normalize tidies free-text identifiers and defaults the status.
func (p *Patient) Normalize() {
	p.PatientName = strings.TrimSpace(p.PatientName)
	p.LabNumber = labnumber.Normalize(p.LabNumber)
	p.PassportNumber = strings.ToUpper(strings.TrimSpace(p.PassportNumber))
	if p.Status == "" {
		p.Status = PatientStatusRegistered
	}
}
