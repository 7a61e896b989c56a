package record

import (
	"context"
	"strings"

	"github.com/RyneJoanams/gulf-main-sub001/internal/model"
	"github.com/RyneJoanams/gulf-main-sub001/pkg/errors"
	"github.com/RyneJoanams/gulf-main-sub001/pkg/labnumber"
	"github.com/RyneJoanams/gulf-main-sub001/pkg/security"
)

// Resource names used in change events.
const (
	ResourcePatient    = "PATIENT"
	ResourcePhlebotomy = "PHLEBOTOMY"
	ResourceLabReport  = "LAB_REPORT"
	ResourceClinical   = "CLINICAL_REPORT"
	ResourceRadiology  = "RADIOLOGY_REPORT"
	ResourcePayment    = "PAYMENT"
	ResourceExpense    = "EXPENSE"
	ResourceUser       = "USER"
)

func normalizeRef(r *model.PatientRef) {
	r.PatientName = strings.TrimSpace(r.PatientName)
	r.LabNumber = labnumber.Normalize(r.LabNumber)
}

func PreparePatient(_ context.Context, p *model.Patient) error {
	p.Normalize()
	return nil
}

func PreparePhlebotomy(_ context.Context, p *model.Phlebotomy) error {
	normalizeRef(&p.PatientRef)
	return nil
}

func PrepareLabReport(_ context.Context, r *model.LabReport) error {
	normalizeRef(&r.PatientRef)
	r.DeriveStatuses()
	return nil
}

func PrepareClinical(_ context.Context, r *model.ClinicalReport) error {
	normalizeRef(&r.PatientRef)
	r.FitnessStatus = model.FitnessStatus(strings.ToUpper(strings.TrimSpace(string(r.FitnessStatus))))
	r.ApplyDefaults()
	return nil
}

func PrepareRadiology(_ context.Context, r *model.RadiologyReport) error {
	normalizeRef(&r.PatientRef)
	return nil
}

func PreparePayment(_ context.Context, p *model.Payment) error {
	p.PatientName = strings.TrimSpace(p.PatientName)
	p.Derive()
	return nil
}

func PrepareExpense(_ context.Context, e *model.Expense) error {
	e.Description = strings.TrimSpace(e.Description)
	e.Category = strings.TrimSpace(e.Category)
	return nil
}

// UserProtected lists user fields a patch cannot set directly.
var UserProtected = []string{"passwordHash", "failedLoginAttempts", "lockedUntil", "lastLoginAt"}

// PrepareUser hashes a submitted password into PasswordHash. A user must end
// up with a password hash.
func PrepareUser(hasher security.PasswordHasher) PrepareFunc[model.User] {
	return func(_ context.Context, u *model.User) error {
		u.Normalize()
		if u.Password != "" {
			hash, err := hasher.Hash(u.Password)
			if err != nil {
				return errors.BadRequest(err.Error(), err)
			}
			u.PasswordHash = hash
			u.Password = ""
		}
		if u.PasswordHash == "" {
			return errors.BadRequest("password is required", nil)
		}
		return nil
	}
}
