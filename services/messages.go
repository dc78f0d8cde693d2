package services

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/SharathcAcharya/EduCore-sub001/models"
	"github.com/SharathcAcharya/EduCore-sub001/storage"
)

// DecryptFailedPlaceholder is shown in place of a message body whose
// stored ciphertext no longer authenticates.
const DecryptFailedPlaceholder = "[message could not be decrypted]"

// EventSink is the real-time side channel of the message service. A nil
// sink is valid: delivery is best-effort and clients fall back to polling.
type EventSink interface {
	EmitToRoom(roomID string, event string, payload interface{})
	EmitToRole(schoolID uint, role string, event string, payload interface{})
}

// ValidationError lists the request fields that were missing or malformed.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return "missing or invalid fields: " + strings.Join(e.Fields, ", ")
}

// NotFoundError is a well-formed reference to a message that does not exist.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return "message not found: " + e.ID
}

// PersistenceError wraps a datastore failure.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("message store %s failed: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

type Participant struct {
	ID    uint   `json:"id"`
	Model string `json:"model"`
	Name  string `json:"name"`
}

type CreateMessageInput struct {
	Sender   *Participant `json:"sender"`
	Receiver *Participant `json:"receiver"`
	Subject  string       `json:"subject"`
	Content  string       `json:"content"`
	School   uint         `json:"school"`
}

// MessageView is the wire shape of a message: plaintext content, never
// the stored ciphertext.
type MessageView struct {
	ID          string      `json:"id"`
	Sender      Participant `json:"sender"`
	Receiver    Participant `json:"receiver"`
	Subject     string      `json:"subject"`
	Content     string      `json:"content"`
	IsRead      bool        `json:"isRead"`
	IsBroadcast bool        `json:"isBroadcast"`
	IsEncrypted bool        `json:"isEncrypted"`
	ChatRoomID  string      `json:"chatRoomId,omitempty"`
	School      uint        `json:"school"`
	Timestamp   time.Time   `json:"timestamp"`
}

// CreateResult reports what a create produced. Broadcast sends return a
// recipient count instead of the created rows.
type CreateResult struct {
	Broadcast      bool         `json:"broadcast"`
	RecipientCount int          `json:"recipientCount,omitempty"`
	Message        *MessageView `json:"message,omitempty"`
}

// MessageService is the sole reader and writer of message rows.
type MessageService struct {
	sink EventSink
}

func NewMessageService(sink EventSink) *MessageService {
	return &MessageService{sink: sink}
}

// Create validates, encrypts, persists and mirrors a message. Broadcast
// receivers fan out into one row per resolved recipient; persistence
// always happens before emission, and emission can never fail a create.
func (s *MessageService) Create(input CreateMessageInput) (*CreateResult, error) {
	if err := validateCreate(input); err != nil {
		return nil, err
	}

	content := input.Content
	encrypted, encErr := EncryptMessage(content)
	isEncrypted := encErr == nil
	if encErr != nil {
		log.Println("message encryption failed, storing plaintext:", encErr)
	}

	if models.BroadcastModel(input.Receiver.Model) {
		return s.createBroadcast(input, encrypted, isEncrypted)
	}
	return s.createDirect(input, encrypted, isEncrypted)
}

func validateCreate(input CreateMessageInput) error {
	var missing []string
	switch {
	case input.Sender == nil:
		missing = append(missing, "sender")
	case input.Sender.ID == 0 || !models.IndividualModel(input.Sender.Model):
		missing = append(missing, "sender")
	}
	switch {
	case input.Receiver == nil:
		missing = append(missing, "receiver")
	case models.BroadcastModel(input.Receiver.Model):
		// broadcast pseudo-receivers carry no id
	case !models.IndividualModel(input.Receiver.Model) || input.Receiver.ID == 0:
		missing = append(missing, "receiver")
	}
	if input.Subject == "" {
		missing = append(missing, "subject")
	}
	if input.Content == "" {
		missing = append(missing, "content")
	}
	if input.School == 0 {
		missing = append(missing, "school")
	}
	if len(missing) > 0 {
		return &ValidationError{Fields: missing}
	}
	return nil
}

func (s *MessageService) createDirect(input CreateMessageInput, encrypted string, isEncrypted bool) (*CreateResult, error) {
	roomID := ChatRoomID(
		ParticipantKey(input.Sender.Model, input.Sender.ID),
		ParticipantKey(input.Receiver.Model, input.Receiver.ID),
	)

	row := newMessageRow(input, *input.Receiver, roomID, false, encrypted, isEncrypted)
	if err := storage.DB.Create(&row).Error; err != nil {
		return nil, &PersistenceError{Op: "create", Err: err}
	}

	view := s.view(&row, input.Content)
	if s.sink != nil {
		s.sink.EmitToRoom(roomID, "receive_message", view)
	}
	return &CreateResult{Message: &view}, nil
}

func (s *MessageService) createBroadcast(input CreateMessageInput, encrypted string, isEncrypted bool) (*CreateResult, error) {
	recipients, err := resolveRecipients(input.School, input.Receiver.Model)
	if err != nil {
		return nil, &PersistenceError{Op: "resolve recipients", Err: err}
	}

	// Fan-out is best-effort: a failed row is logged and skipped, the
	// count reflects what was actually written.
	count := 0
	for _, recipient := range recipients {
		roomID := ChatRoomID(
			ParticipantKey(input.Sender.Model, input.Sender.ID),
			ParticipantKey(recipient.Model, recipient.ID),
		)
		row := newMessageRow(input, recipient, roomID, true, encrypted, isEncrypted)
		if err := storage.DB.Create(&row).Error; err != nil {
			log.Printf("broadcast fan-out: failed to persist for %s %d: %v", recipient.Model, recipient.ID, err)
			continue
		}
		count++
		if s.sink != nil {
			s.sink.EmitToRoom(roomID, "receive_message", s.view(&row, input.Content))
		}
	}

	if s.sink != nil {
		payload := broadcastPayload(input)
		for _, role := range broadcastRoles(input.Receiver.Model) {
			s.sink.EmitToRole(input.School, role, "broadcast_message", payload)
		}
	}

	return &CreateResult{Broadcast: true, RecipientCount: count}, nil
}

func newMessageRow(input CreateMessageInput, receiver Participant, roomID string, broadcast bool, encrypted string, isEncrypted bool) models.Message {
	row := models.Message{
		ID:            uuid.NewString(),
		SenderID:      input.Sender.ID,
		SenderModel:   input.Sender.Model,
		SenderName:    input.Sender.Name,
		ReceiverID:    receiver.ID,
		ReceiverModel: receiver.Model,
		ReceiverName:  receiver.Name,
		Subject:       input.Subject,
		IsBroadcast:   broadcast,
		ChatRoomID:    roomID,
		SchoolID:      input.School,
	}
	if isEncrypted {
		row.EncryptedContent = encrypted
		row.IsEncrypted = true
	} else {
		row.Content = input.Content
	}
	return row
}

// resolveRecipients expands a broadcast pseudo-receiver into the concrete
// participants of the school.
func resolveRecipients(schoolID uint, receiverModel string) ([]Participant, error) {
	var out []Participant

	if receiverModel == models.ModelAllTeachers || receiverModel == models.ModelAll {
		var teachers []models.Teacher
		if err := storage.DB.Where("school_id = ?", schoolID).Find(&teachers).Error; err != nil {
			return nil, err
		}
		for _, t := range teachers {
			out = append(out, Participant{ID: t.ID, Model: models.ModelTeacher, Name: t.Name})
		}
	}

	if receiverModel == models.ModelAllStudents || receiverModel == models.ModelAll {
		var students []models.Student
		if err := storage.DB.Where("school_id = ?", schoolID).Find(&students).Error; err != nil {
			return nil, err
		}
		for _, st := range students {
			out = append(out, Participant{ID: st.ID, Model: models.ModelStudent, Name: st.Name})
		}
	}

	return out, nil
}

func broadcastRoles(receiverModel string) []string {
	switch receiverModel {
	case models.ModelAllTeachers:
		return []string{"teachers"}
	case models.ModelAllStudents:
		return []string{"students"}
	case models.ModelAll:
		return []string{"teachers", "students"}
	}
	return nil
}

func broadcastPayload(input CreateMessageInput) MessageView {
	return MessageView{
		Sender:      *input.Sender,
		Receiver:    Participant{Model: input.Receiver.Model},
		Subject:     input.Subject,
		Content:     input.Content,
		IsBroadcast: true,
		School:      input.School,
		Timestamp:   time.Now(),
	}
}

// Inbox returns every message addressed to the participant, newest first.
func (s *MessageService) Inbox(userID uint, userModel string) ([]MessageView, error) {
	var rows []models.Message
	err := storage.DB.
		Where("receiver_id = ? AND receiver_model = ?", userID, userModel).
		Order("created_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, &PersistenceError{Op: "inbox", Err: err}
	}
	return s.views(rows), nil
}

// Sent returns every message the participant sent, newest first.
func (s *MessageService) Sent(userID uint, userModel string) ([]MessageView, error) {
	var rows []models.Message
	err := storage.DB.
		Where("sender_id = ? AND sender_model = ?", userID, userModel).
		Order("created_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, &PersistenceError{Op: "sent", Err: err}
	}
	return s.views(rows), nil
}

// Conversation returns both directions of a two-party exchange, oldest
// first, and marks the caller's unread messages read. The read flip
// requires both id and model to match and is best-effort.
func (s *MessageService) Conversation(userID uint, userModel string, otherID uint) ([]MessageView, error) {
	var rows []models.Message
	err := storage.DB.
		Where("(sender_id = ? AND sender_model = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ? AND receiver_model = ?)",
			userID, userModel, otherID,
			otherID, userID, userModel).
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, &PersistenceError{Op: "conversation", Err: err}
	}

	var unreadIDs []string
	for i := range rows {
		if rows[i].ReceiverID == userID && rows[i].ReceiverModel == userModel && !rows[i].IsRead {
			unreadIDs = append(unreadIDs, rows[i].ID)
			rows[i].IsRead = true
		}
	}
	if len(unreadIDs) > 0 {
		if err := storage.DB.Model(&models.Message{}).
			Where("id IN ?", unreadIDs).
			Update("is_read", true).Error; err != nil {
			log.Println("failed to mark conversation messages read:", err)
		}
	}

	return s.views(rows), nil
}

// Detail fetches one message. A malformed id is a validation error, not
// a missing row. When the receiver fetches their own unread message it
// is flipped to read before returning.
func (s *MessageService) Detail(id string, currentUserID uint, currentUserModel string) (*MessageView, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, &ValidationError{Fields: []string{"id"}}
	}

	var row models.Message
	err := storage.DB.First(&row, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &NotFoundError{ID: id}
	}
	if err != nil {
		return nil, &PersistenceError{Op: "detail", Err: err}
	}

	if currentUserID != 0 &&
		row.ReceiverID == currentUserID && row.ReceiverModel == currentUserModel && !row.IsRead {
		if err := storage.DB.Model(&row).Update("is_read", true).Error; err != nil {
			log.Println("failed to mark message read:", err)
		} else {
			row.IsRead = true
		}
	}

	view := s.decryptView(&row)
	return &view, nil
}

// UnreadCount counts the participant's unread messages.
func (s *MessageService) UnreadCount(userID uint, userModel string) (int64, error) {
	var count int64
	err := storage.DB.Model(&models.Message{}).
		Where("receiver_id = ? AND receiver_model = ? AND is_read = ?", userID, userModel, false).
		Count(&count).Error
	if err != nil {
		return 0, &PersistenceError{Op: "unread count", Err: err}
	}
	return count, nil
}

// BroadcastInbox is the inbox filtered to fanned-out broadcast rows.
func (s *MessageService) BroadcastInbox(userID uint, userModel string) ([]MessageView, error) {
	var rows []models.Message
	err := storage.DB.
		Where("receiver_id = ? AND receiver_model = ? AND is_broadcast = ?", userID, userModel, true).
		Order("created_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, &PersistenceError{Op: "broadcast inbox", Err: err}
	}
	return s.views(rows), nil
}

// Delete hard-deletes by id and reports whether a row actually existed.
func (s *MessageService) Delete(id string) (existed bool, err error) {
	if _, parseErr := uuid.Parse(id); parseErr != nil {
		return false, &ValidationError{Fields: []string{"id"}}
	}
	res := storage.DB.Delete(&models.Message{}, "id = ?", id)
	if res.Error != nil {
		return false, &PersistenceError{Op: "delete", Err: res.Error}
	}
	return res.RowsAffected > 0, nil
}

func (s *MessageService) views(rows []models.Message) []MessageView {
	out := make([]MessageView, 0, len(rows))
	for i := range rows {
		out = append(out, s.decryptView(&rows[i]))
	}
	return out
}

// decryptView builds the wire shape, degrading to a placeholder when the
// stored ciphertext does not authenticate.
func (s *MessageService) decryptView(row *models.Message) MessageView {
	content := row.Content
	if row.IsEncrypted {
		plaintext, err := DecryptMessage(row.EncryptedContent)
		if err != nil {
			log.Println("message decryption failed for", row.ID, ":", err)
			content = DecryptFailedPlaceholder
		} else {
			content = plaintext
		}
	}
	return s.view(row, content)
}

func (s *MessageService) view(row *models.Message, content string) MessageView {
	return MessageView{
		ID:          row.ID,
		Sender:      Participant{ID: row.SenderID, Model: row.SenderModel, Name: row.SenderName},
		Receiver:    Participant{ID: row.ReceiverID, Model: row.ReceiverModel, Name: row.ReceiverName},
		Subject:     row.Subject,
		Content:     content,
		IsRead:      row.IsRead,
		IsBroadcast: row.IsBroadcast,
		IsEncrypted: row.IsEncrypted,
		ChatRoomID:  row.ChatRoomID,
		School:      row.SchoolID,
		Timestamp:   row.CreatedAt,
	}
}
