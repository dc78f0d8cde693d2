package models

import (
	"time"

	"gorm.io/gorm"
)

type Assignment struct {
	gorm.Model
	Title       string    `json:"title" gorm:"not null"`
	Description string    `json:"description" gorm:"type:text"`
	SubjectID   uint      `json:"subjectID" gorm:"not null;index"`
	Subject     Subject   `json:"subject,omitempty" gorm:"foreignKey:SubjectID"`
	ClassID     uint      `json:"classID" gorm:"not null;index"`
	TeacherID   uint      `json:"teacherID" gorm:"not null;index"`
	Teacher     Teacher   `json:"teacher,omitempty" gorm:"foreignKey:TeacherID"`
	SchoolID    uint      `json:"schoolID" gorm:"not null;index"`
	DueDate     time.Time `json:"dueDate"`

	Submissions []AssignmentSubmission `json:"submissions,omitempty" gorm:"foreignKey:AssignmentID"`
}

type AssignmentSubmission struct {
	gorm.Model
	AssignmentID  uint    `json:"assignmentID" gorm:"not null;index"`
	StudentID     uint    `json:"studentID" gorm:"not null;index"`
	Student       Student `json:"student,omitempty" gorm:"foreignKey:StudentID"`
	Body          string  `json:"body" gorm:"type:text"`
	AttachmentURL string  `json:"attachmentURL" gorm:"size:512"`
	SubmittedAt   time.Time `json:"submittedAt"`

	// Grading; GraderModel is restricted to admin|teacher
	Grade       *int       `json:"grade"`
	Feedback    string     `json:"feedback" gorm:"type:text"`
	GraderID    *uint      `json:"graderID"`
	GraderModel string     `json:"graderModel" gorm:"type:varchar(20)"`
	GradedAt    *time.Time `json:"gradedAt"`
}
