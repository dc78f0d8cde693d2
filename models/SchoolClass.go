package models

import (
	"gorm.io/gorm"
)

type SchoolClass struct {
	gorm.Model
	Name     string `json:"name" gorm:"not null"`
	SchoolID uint   `json:"schoolID" gorm:"not null;index"`
	School   Admin  `json:"-" gorm:"foreignKey:SchoolID"`

	Subjects []Subject `json:"subjects,omitempty" gorm:"foreignKey:ClassID"`
	Students []Student `json:"students,omitempty" gorm:"foreignKey:ClassID"`
}
