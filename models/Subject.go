package models

import (
	"gorm.io/gorm"
)

type Subject struct {
	gorm.Model
	Name     string `json:"name" gorm:"not null"`
	Code     string `json:"code" gorm:"not null;index"`
	Sessions int    `json:"sessions"`
	ClassID  uint   `json:"classID" gorm:"not null;index"`
	Class    SchoolClass `json:"class,omitempty" gorm:"foreignKey:ClassID"`
	SchoolID uint   `json:"schoolID" gorm:"not null;index"`

	// Nil until a teacher is assigned
	TeacherID *uint    `json:"teacherID" gorm:"index"`
	Teacher   *Teacher `json:"teacher,omitempty" gorm:"foreignKey:TeacherID"`
}
