package model

import (
	"strings"
	"time"
)

// Departments a user can belong to
const (
	DepartmentAdmin      = "admin"
	DepartmentReception  = "reception"
	DepartmentPhlebotomy = "phlebotomy"
	DepartmentLaboratory = "laboratory"
	DepartmentClinical   = "clinical"
	DepartmentRadiology  = "radiology"
	DepartmentAccounts   = "accounts"
)

// User represents a staff account
type User struct {
	Base                `bson:",inline"`
	Name                string     `json:"name" bson:"name" binding:"required"`
	Email               string     `json:"email" bson:"email" binding:"required,email"`
	Department          string     `json:"department" bson:"department" binding:"required,oneof=admin reception phlebotomy laboratory clinical radiology accounts"`
	Password            string     `json:"password,omitempty" bson:"-"`
	PasswordHash        string     `json:"passwordHash,omitempty" bson:"passwordHash"`
	Active              *bool      `json:"active,omitempty" bson:"active,omitempty"`
	LastLoginAt         *time.Time `json:"lastLoginAt,omitempty" bson:"lastLoginAt,omitempty"`
	FailedLoginAttempts int        `json:"failedLoginAttempts,omitempty" bson:"failedLoginAttempts,omitempty"`
	LockedUntil         *time.Time `json:"lockedUntil,omitempty" bson:"lockedUntil,omitempty"`
}

// Normalize lower-cases the email and defaults the account to active.
func (u *User) Normalize() {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	u.Department = strings.ToLower(strings.TrimSpace(u.Department))
	if u.Active == nil {
		active := true
		u.Active = &active
	}
}

// IsActive reports whether the account may log in.
func (u *User) IsActive() bool {
	return u.Active == nil || *u.Active
}

// IsLocked reports whether the account is locked out at now.
func (u *User) IsLocked(now time.Time) bool {
	return u.LockedUntil != nil && now.Before(*u.LockedUntil)
}

// Public returns a copy without credential fields, safe to serialize.
func (u *User) Public() *User {
	cp := *u
	cp.Password = ""
	cp.PasswordHash = ""
	return &cp
}

// LoginRequest is the body of a login call
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse carries the issued token and the user it belongs to
type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	User      *User     `json:"user"`
}
