package models

import "gorm.io/gorm"

// User is an administrator account allowed to edit the directory.
type User struct {
	gorm.Model
	Email    string `json:"email" gorm:"unique;not null"`
	Password string `json:"-"`
	Role     string `json:"role"` // "admin"
}
