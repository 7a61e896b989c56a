package model

type FitnessStatus string

const (
	FitnessFit     FitnessStatus = "FIT"
	FitnessUnfit   FitnessStatus = "UNFIT"
	FitnessPending FitnessStatus = "PENDING"
)

// ClinicalReport is the clinical officer's assessment for a lab number.
// Its existence marks the lab number as processed.
type ClinicalReport struct {
	Base                `bson:",inline"`
	PatientRef          `bson:",inline"`
	SelectedReport      string        `json:"selectedReport,omitempty" bson:"selectedReport,omitempty"`
	ClinicalOfficer     string        `json:"clinicalOfficer,omitempty" bson:"clinicalOfficer,omitempty"`
	History             string        `json:"history,omitempty" bson:"history,omitempty"`
	ClinicalNotes       string        `json:"clinicalNotes,omitempty" bson:"clinicalNotes,omitempty"`
	GeneralExamination  JSONMap       `json:"generalExamination,omitempty" bson:"generalExamination,omitempty"`
	SystemicExamination JSONMap       `json:"systemicExamination,omitempty" bson:"systemicExamination,omitempty"`
	OtherTests          JSONMap       `json:"otherTests,omitempty" bson:"otherTests,omitempty"`
	FitnessStatus       FitnessStatus `json:"fitnessStatus" bson:"fitnessStatus" binding:"omitempty,oneof=FIT UNFIT PENDING"`
	ValidUntil          string        `json:"validUntil,omitempty" bson:"validUntil,omitempty"`
}

// ApplyDefaults sets a pending fitness status when none was given.
func (r *ClinicalReport) ApplyDefaults() {
	if r.FitnessStatus == "" {
		r.FitnessStatus = FitnessPending
	}
}
