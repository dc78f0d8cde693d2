package models

import (
	"gorm.io/gorm"
)

// LearningResource is a file or link shared with a class or the whole school.
type LearningResource struct {
	gorm.Model
	Title       string `json:"title" gorm:"not null"`
	Description string `json:"description" gorm:"type:text"`
	FileURL     string `json:"fileURL" gorm:"size:512"`
	ExternalURL string `json:"externalURL" gorm:"size:512"`
	SubjectID   *uint  `json:"subjectID" gorm:"index"`
	ClassID     *uint  `json:"classID" gorm:"index"`
	SchoolID    uint   `json:"schoolID" gorm:"not null;index"`

	UploaderID    uint   `json:"uploaderID" gorm:"not null"`
	UploaderModel string `json:"uploaderModel" gorm:"type:varchar(20)"` // admin | teacher
	UploaderName  string `json:"uploaderName"`
}
