package models

import "time"

// Project status IDs. The catalog is static: these rows are seeded by a data
// migration and never mutated at runtime.
const (
	StatusPending       = 1
	StatusClarification = 2
	StatusVerification  = 3
	StatusActive        = 4
	StatusDeactive      = 5
	StatusCancelled     = 6
	StatusDrafted       = 7
	StatusRejected      = 8
)

// Project status symbols
const (
	StatusSymbolPending       = "pending"
	StatusSymbolClarification = "clarification"
	StatusSymbolVerification  = "verification"
	StatusSymbolActive        = "active"
	StatusSymbolDeactive      = "deactive"
	StatusSymbolCancelled     = "cancelled"
	StatusSymbolDrafted       = "drafted"
	StatusSymbolRejected      = "rejected"
)

// ProjectStatus is an entry in the static status catalog
type ProjectStatus struct {
	ID          int                   `gorm:"primaryKey" json:"id"`
	Symbol      string                `gorm:"type:varchar(30);uniqueIndex;not null" json:"symbol"`
	Name        string                `gorm:"type:varchar(100)" json:"name"`
	Description string                `gorm:"type:text" json:"description"`
	Reasons     []ProjectStatusReason `gorm:"foreignKey:StatusID" json:"reasons,omitempty"`
	CreatedAt   time.Time             `json:"created_at"`
	UpdatedAt   time.Time             `json:"updated_at"`
}

// ProjectStatusReason is an optional predefined reason an admin can attach to
// a status change (e.g. why a project was deactivated)
type ProjectStatusReason struct {
	ID          int       `gorm:"primaryKey" json:"id"`
	StatusID    int       `gorm:"index;not null" json:"status_id"`
	Description string    `gorm:"type:text;not null" json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// InactiveStatusIDs are the statuses that force a project off the platform:
// the verified badge is removed and the project is de-listed in the same
// mutation that applies the status.
var InactiveStatusIDs = []int{StatusDeactive, StatusCancelled}

// IsInactiveStatus reports whether the given status forces verified=false and
// review_status=NotListed
func IsInactiveStatus(statusID int) bool {
	for _, id := range InactiveStatusIDs {
		if id == statusID {
			return true
		}
	}
	return false
}
