package models

import (
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Student struct {
	gorm.Model
	Name          string `json:"name"`
	RollNum       int    `json:"rollNum" gorm:"index"`
	Email         string `json:"email" gorm:"index"`
	Password      string `json:"-"`
	Role          string `json:"role" gorm:"type:varchar(20);default:student"`
	SchoolID      uint   `json:"schoolID" gorm:"not null;index"`
	School        Admin  `json:"-" gorm:"foreignKey:SchoolID"`
	ClassID       uint   `json:"classID" gorm:"not null;index"`
	Class         SchoolClass `json:"class,omitempty" gorm:"foreignKey:ClassID"`
	GuardianPhone string `json:"guardianPhone"`

	PushTokens          datatypes.JSON `json:"pushTokens"`
	AllowsNotifications *bool          `json:"allowsNotifications"`

	Attendance  []AttendanceRecord `json:"attendance,omitempty" gorm:"foreignKey:StudentID"`
	ExamResults []ExamResult       `json:"examResults,omitempty" gorm:"foreignKey:StudentID"`
}

// AttendanceRecord is one presence mark per student per subject per day.
type AttendanceRecord struct {
	gorm.Model
	StudentID uint   `json:"studentID" gorm:"not null;index"`
	SubjectID uint   `json:"subjectID" gorm:"not null;index"`
	Date      string `json:"date" gorm:"type:varchar(10);index"` // YYYY-MM-DD
	Status    string `json:"status" gorm:"type:varchar(10)"`     // present | absent
}

type ExamResult struct {
	gorm.Model
	StudentID     uint    `json:"studentID" gorm:"not null;index"`
	SubjectID     uint    `json:"subjectID" gorm:"not null;index"`
	Subject       Subject `json:"subject,omitempty" gorm:"foreignKey:SubjectID"`
	MarksObtained int     `json:"marksObtained"`
}
