package models

import (
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Teacher struct {
	gorm.Model
	Name     string `json:"name"`
	Email    string `json:"email" gorm:"uniqueIndex"`
	Password string `json:"-"`
	Role     string `json:"role" gorm:"type:varchar(20);default:teacher"`
	SchoolID uint   `json:"schoolID" gorm:"not null;index"`
	School   Admin  `json:"-" gorm:"foreignKey:SchoolID"`

	// Current teaching assignment; both optional until the admin assigns them
	ClassID   *uint        `json:"classID" gorm:"index"`
	Class     *SchoolClass `json:"class,omitempty" gorm:"foreignKey:ClassID"`
	SubjectID *uint        `json:"subjectID" gorm:"index"`
	Subject   *Subject     `json:"subject,omitempty" gorm:"foreignKey:SubjectID"`

	PushTokens          datatypes.JSON `json:"pushTokens"`
	AllowsNotifications *bool          `json:"allowsNotifications"`

	Attendance []TeacherAttendance `json:"attendance,omitempty" gorm:"foreignKey:TeacherID"`
}

// TeacherAttendance is one presence mark per teacher per day.
type TeacherAttendance struct {
	gorm.Model
	TeacherID uint   `json:"teacherID" gorm:"not null;index"`
	Date      string `json:"date" gorm:"type:varchar(10);index"` // YYYY-MM-DD
	Status    string `json:"status" gorm:"type:varchar(10)"`     // present | absent
}
