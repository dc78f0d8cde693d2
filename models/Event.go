package models

import (
	"time"

	"gorm.io/gorm"
)

type Event struct {
	gorm.Model
	Title       string    `json:"title" gorm:"not null"`
	Description string    `json:"description" gorm:"type:text"`
	StartTime   time.Time `json:"startTime" gorm:"index"`
	EndTime     time.Time `json:"endTime"`
	Location    string    `json:"location"`
	// Audience limits who sees the event on their calendar
	Audience string `json:"audience" gorm:"type:varchar(20);default:all"` // all | teachers | students | class
	ClassID  *uint  `json:"classID" gorm:"index"`                         // set when Audience == class
	SchoolID uint   `json:"schoolID" gorm:"not null;index"`
	CreatedBy uint  `json:"createdBy"`
}
