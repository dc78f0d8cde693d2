package models

import (
	"time"
)

// Participant model discriminators. Senders are always individual kinds;
// receivers may additionally be one of the broadcast pseudo-values.
const (
	ModelAdmin   = "admin"
	ModelTeacher = "teacher"
	ModelStudent = "student"

	ModelAllTeachers = "all_teachers"
	ModelAllStudents = "all_students"
	ModelAll         = "all"
)

// IndividualModel reports whether model names a single account kind.
func IndividualModel(model string) bool {
	return model == ModelAdmin || model == ModelTeacher || model == ModelStudent
}

// BroadcastModel reports whether model is a broadcast pseudo-receiver.
func BroadcastModel(model string) bool {
	return model == ModelAllTeachers || model == ModelAllStudents || model == ModelAll
}

// Message is a direct or broadcast message between school participants.
// Broadcast sends fan out into one row per resolved recipient, so every
// stored row is addressed to a concrete individual.
type Message struct {
	ID string `json:"id" gorm:"primaryKey;type:varchar(36)"`

	SenderID    uint   `json:"-" gorm:"not null;index"`
	SenderModel string `json:"-" gorm:"type:varchar(20);not null"`
	SenderName  string `json:"-"`

	ReceiverID    uint   `json:"-" gorm:"not null;index"`
	ReceiverModel string `json:"-" gorm:"type:varchar(20);not null"`
	ReceiverName  string `json:"-"`

	Subject string `json:"subject" gorm:"not null"`

	// Content holds plaintext only when encryption failed at create time;
	// otherwise EncryptedContent carries the nonce+ciphertext blob and
	// Content stays empty at rest.
	Content          string `json:"-" gorm:"type:text"`
	EncryptedContent string `json:"-" gorm:"type:text"`
	IsEncrypted      bool   `json:"isEncrypted"`

	IsRead      bool   `json:"isRead" gorm:"default:false;index"`
	IsBroadcast bool   `json:"isBroadcast" gorm:"default:false;index"`
	ChatRoomID  string `json:"chatRoomId" gorm:"type:varchar(80);index"`

	SchoolID  uint      `json:"school" gorm:"not null;index"`
	CreatedAt time.Time `json:"timestamp"`
}
