package models

import (
	"github.com/google/uuid"
)

// ReviewStatus is the tri-state listing-visibility classification of a project
type ReviewStatus string

// Review statuses
const (
	ReviewStatusNotReviewed ReviewStatus = "NotReviewed"
	ReviewStatusListed      ReviewStatus = "Listed"
	ReviewStatusNotListed   ReviewStatus = "NotListed"
)

// ListedValue maps a review status to the legacy tri-state listed boolean.
// The pair is redundant and must stay in lockstep: Listed=>true,
// NotListed=>false, NotReviewed=>null.
func (rs ReviewStatus) ListedValue() *bool {
	switch rs {
	case ReviewStatusListed:
		v := true
		return &v
	case ReviewStatusNotListed:
		v := false
		return &v
	default:
		return nil
	}
}

// RevokeStep is a point along the time-driven badge-expiry sequence
type RevokeStep string

// Revoke steps, in the order the revocation sweep walks them. A project's
// verification status only moves forward through this sequence; it is reset
// to null when the badge is freshly (re)verified or the project shows new
// activity.
const (
	RevokeStepReminder      RevokeStep = "reminder"
	RevokeStepWarning       RevokeStep = "warning"
	RevokeStepLastChance    RevokeStep = "lastChance"
	RevokeStepUpForRevoking RevokeStep = "upForRevoking"
	RevokeStepRevoked       RevokeStep = "revoked"
)

// RevokeStepPtr returns a pointer to the given step, for use in model fields
// and update maps
func RevokeStepPtr(s RevokeStep) *RevokeStep {
	return &s
}

// Project represents a fundraising project on the platform.
//
// UpdatedAt doubles as the project's "evidence of life" timestamp: it is
// bumped by edits and new project updates and drives the badge-revocation
// clock. Sweeps that advance the revoke step must not bump it.
type Project struct {
	Base
	Title              string        `gorm:"type:varchar(255);not null" json:"title"`
	Slug               string        `gorm:"type:varchar(255);uniqueIndex" json:"slug"`
	Description        string        `gorm:"type:text" json:"description"`
	WalletAddress      string        `gorm:"type:varchar(42)" json:"wallet_address"`
	AdminUserID        uuid.UUID     `gorm:"type:uuid;index" json:"admin_user_id"`
	AdminUser          User          `gorm:"foreignKey:AdminUserID" json:"-"`
	StatusID           int           `gorm:"index;not null" json:"status_id"`
	Status             ProjectStatus `gorm:"foreignKey:StatusID" json:"status,omitempty"`
	Verified           bool          `gorm:"index;not null;default:false" json:"verified"`
	Listed             *bool         `json:"listed"`
	ReviewStatus       ReviewStatus  `gorm:"type:varchar(20);not null;default:NotReviewed" json:"review_status"`
	VerificationStatus *RevokeStep   `gorm:"type:varchar(20)" json:"verification_status"`
	IsImported         bool          `gorm:"not null;default:false" json:"is_imported"`
	TotalDonations     float64       `gorm:"type:decimal(20,8);default:0" json:"total_donations"`
}

// AtRevokeStep reports whether the project currently sits at the given step.
// A nil step means the revoke clock has not started.
func (p *Project) AtRevokeStep(step *RevokeStep) bool {
	if p.VerificationStatus == nil || step == nil {
		return p.VerificationStatus == nil && step == nil
	}
	return *p.VerificationStatus == *step
}
