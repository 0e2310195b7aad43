package models

import "gorm.io/gorm"

type UserRole string

const (
	RoleAdmin   UserRole = "ADMIN"
	RoleManager UserRole = "MANAGER"
)

// ValidRole reports whether s names one of the two account roles.
func ValidRole(s string) bool {
	return s == string(RoleAdmin) || s == string(RoleManager)
}

type User struct {
	gorm.Model
	Name         string   `gorm:"size:100;not null"`
	Email        string   `gorm:"uniqueIndex;size:255;not null"`
	PasswordHash string   `gorm:"not null"`
	Role         UserRole `gorm:"type:varchar(20);not null"`
}
