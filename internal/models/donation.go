package models

import "github.com/google/uuid"

// Donation records an on-chain donation to a project. Donation ingestion is
// handled elsewhere; the lifecycle core only reads donations to compute the
// notification fan-out audience.
type Donation struct {
	Base
	ProjectID uuid.UUID `gorm:"type:uuid;index;not null" json:"project_id"`
	Project   Project   `gorm:"foreignKey:ProjectID" json:"-"`
	UserID    uuid.UUID `gorm:"type:uuid;index;not null" json:"user_id"`
	Amount    float64   `gorm:"type:decimal(20,8);not null" json:"amount"`
	Currency  string    `gorm:"type:varchar(10);not null" json:"currency"`
	TxHash    string    `gorm:"type:varchar(66)" json:"tx_hash"`
}

// Reaction records a user liking a project. Reactors are part of the
// notification fan-out audience for lifecycle events.
type Reaction struct {
	Base
	ProjectID uuid.UUID `gorm:"type:uuid;index;not null" json:"project_id"`
	UserID    uuid.UUID `gorm:"type:uuid;index;not null" json:"user_id"`
}
