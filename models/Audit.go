package models

import (
	"time"
)

// AuditLog records admin mutations (role changes, deletions, grade edits).
type AuditLog struct {
	ID           uint      `json:"id" gorm:"primaryKey"`
	AdminID      uint      `json:"adminID" gorm:"index;not null"`
	SchoolID     uint      `json:"schoolID" gorm:"index"`
	Action       string    `json:"action" gorm:"size:64;index"`
	ResourceType string    `json:"resourceType" gorm:"size:64;index"` // student, teacher, message, ...
	ResourceID   string    `json:"resourceID" gorm:"size:64;index"`
	BeforeJSON   string    `json:"beforeJSON" gorm:"type:text"`
	AfterJSON    string    `json:"afterJSON" gorm:"type:text"`
	IPAddress    string    `json:"ipAddress" gorm:"size:64"`
	CreatedAt    time.Time `json:"createdAt"`
}
