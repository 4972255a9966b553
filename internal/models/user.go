package models

// User represents a platform user. Only the fields the lifecycle core needs
// are modeled here; profile and authentication data live with the external
// auth collaborator.
type User struct {
	Base
	Email   string `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	Name    string `gorm:"type:varchar(255)" json:"name"`
	IsAdmin bool   `gorm:"not null;default:false" json:"is_admin"`
}
