package models

import (
	"time"

	"gorm.io/gorm"
)

// Notice is an entry on the school-wide notice board.
type Notice struct {
	gorm.Model
	Title    string    `json:"title" gorm:"not null"`
	Details  string    `json:"details" gorm:"type:text"`
	Date     time.Time `json:"date"`
	SchoolID uint      `json:"schoolID" gorm:"not null;index"`
}
