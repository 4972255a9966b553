package models

import (
	"time"

	"github.com/google/uuid"
)

// FormStatus is the state of a verification form
type FormStatus string

// Verification form statuses. Draft and Submitted are the unresolved states:
// at most one unresolved form may exist per project.
const (
	FormStatusDraft     FormStatus = "draft"
	FormStatusSubmitted FormStatus = "submitted"
	FormStatusVerified  FormStatus = "verified"
	FormStatusRejected  FormStatus = "rejected"
)

// Verification form steps, in the order the applicant completes them
const (
	FormStepPersonalInfo    = "personalInfo"
	FormStepProjectRegistry = "projectRegistry"
	FormStepProjectContacts = "projectContacts"
	FormStepMilestones      = "milestones"
	FormStepManagingFunds   = "managingFunds"
	FormStepTermsAndConds   = "termsAndConditions"
	FormStepSubmit          = "submit"
)

// VerificationForm is the application a project owner files to earn the
// verified badge. Its status gates the project's verified flag: a Verified
// form implies the project carries the badge, and a badge revocation forces
// the form back to Draft.
type VerificationForm struct {
	Base
	ProjectID       uuid.UUID  `gorm:"type:uuid;index;not null" json:"project_id"`
	Project         Project    `gorm:"foreignKey:ProjectID" json:"-"`
	UserID          uuid.UUID  `gorm:"type:uuid;index;not null" json:"user_id"`
	User            User       `gorm:"foreignKey:UserID" json:"-"`
	Status          FormStatus `gorm:"type:varchar(20);not null;default:draft" json:"status"`
	LastStep        string     `gorm:"type:varchar(50)" json:"last_step"`
	Answers         JSON       `gorm:"type:jsonb" json:"answers"`
	IsTermsAccepted bool       `gorm:"not null;default:false" json:"is_terms_accepted"`
	VerifiedAt      *time.Time `json:"verified_at"`
	ReviewerID      *uuid.UUID `gorm:"type:uuid" json:"reviewer_id"`
}

// IsUnresolved reports whether the form still blocks creation of a new form
// for the same project
func (f *VerificationForm) IsUnresolved() bool {
	return f.Status == FormStatusDraft || f.Status == FormStatusSubmitted
}
