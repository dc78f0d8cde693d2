package models

import (
	"gorm.io/gorm"
)

// Admin is the account that owns a school. The admin's row ID is used as
// the school identifier on every other record.
type Admin struct {
	gorm.Model
	Name           string `json:"name"`
	Email          string `json:"email" gorm:"uniqueIndex"`
	Password       string `json:"-"`
	SchoolName     string `json:"schoolName" gorm:"uniqueIndex"`
	SocialLogin    bool   `json:"socialLogin"`
	SocialProvider string `json:"socialProvider"`
	Role           string `json:"role" gorm:"type:varchar(20);default:admin"`
}
