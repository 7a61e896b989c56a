package model

import "github.com/RyneJoanams/gulf-main-sub001/pkg/labnumber"

type PaymentStatus string

const (
	PaymentPaid    PaymentStatus = "Paid"
	PaymentPartial PaymentStatus = "Partial"
	PaymentUnpaid  PaymentStatus = "Unpaid"
)

// Payment tracks money owed and received for a patient.
type Payment struct {
	Base          `bson:",inline"`
	PatientName   string        `json:"patientName" bson:"patientName" binding:"required"`
	AmountDue     *float64      `json:"amountDue" bson:"amountDue" binding:"required,gte=0"`
	AmountPaid    float64       `json:"amountPaid" bson:"amountPaid" binding:"gte=0"`
	Commission    float64       `json:"commission" bson:"commission" binding:"gte=0"`
	LabNumber     string        `json:"labNumber,omitempty" bson:"labNumber,omitempty" binding:"omitempty,labnumber"`
	Agent         string        `json:"agent,omitempty" bson:"agent,omitempty"`
	PaymentMethod string        `json:"paymentMethod,omitempty" bson:"paymentMethod,omitempty"`
	PaymentStatus PaymentStatus `json:"paymentStatus" bson:"paymentStatus"`
	Balance       float64       `json:"balance" bson:"balance"`
	Notes         string        `json:"notes,omitempty" bson:"notes,omitempty"`
}

func (p *Payment) GetLabNumber() string   { return p.LabNumber }
func (p *Payment) GetPatientName() string { return p.PatientName }

// Due returns the amount due, treating a missing value as zero.
func (p *Payment) Due() float64 {
	if p.AmountDue == nil {
		return 0
	}
	return *p.AmountDue
}

// Derive recomputes balance and status from the amounts.
func (p *Payment) Derive() {
	p.LabNumber = labnumber.Normalize(p.LabNumber)
	p.Balance = p.Due() - p.AmountPaid
	switch {
	case p.Balance <= 0:
		p.PaymentStatus = PaymentPaid
	case p.AmountPaid > 0:
		p.PaymentStatus = PaymentPartial
	default:
		p.PaymentStatus = PaymentUnpaid
	}
}
