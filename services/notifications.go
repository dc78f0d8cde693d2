package services

import (
	"encoding/json"
	"fmt"
	"log"

	"github.com/SharathcAcharya/EduCore-sub001/models"
	"github.com/SharathcAcharya/EduCore-sub001/storage"
	"github.com/SharathcAcharya/EduCore-sub001/utils"
)

// NotificationService handles push notification delivery for messages
// and assignment grading. Push is best-effort on top of the gateway:
// offline clients still see everything by polling.
type NotificationService struct{}

func NewNotificationService() *NotificationService {
	return &NotificationService{}
}

// Notifications is the process-wide sender used by the route handlers.
var Notifications = NewNotificationService()

// NotificationData is the payload attached to a push for deep linking.
type NotificationData struct {
	Type      string `json:"type"`
	ID        string `json:"id"`
	SenderID  string `json:"senderId,omitempty"`
	Screen    string `json:"screen"`
	Params    string `json:"params"`
}

// recipientPushTokens loads the push tokens of a teacher or student that
// has notifications enabled.
func (ns *NotificationService) recipientPushTokens(model string, id uint) ([]string, error) {
	var rawTokens []byte
	var allows *bool

	switch model {
	case models.ModelTeacher:
		var t models.Teacher
		if err := storage.DB.First(&t, id).Error; err != nil {
			return nil, fmt.Errorf("teacher not found: %v", err)
		}
		rawTokens, allows = t.PushTokens, t.AllowsNotifications
	case models.ModelStudent:
		var st models.Student
		if err := storage.DB.First(&st, id).Error; err != nil {
			return nil, fmt.Errorf("student not found: %v", err)
		}
		rawTokens, allows = st.PushTokens, st.AllowsNotifications
	default:
		return nil, fmt.Errorf("unsupported recipient model %q", model)
	}

	if allows == nil || !*allows || rawTokens == nil {
		return nil, fmt.Errorf("recipient has notifications disabled or no tokens")
	}

	var tokens []string
	if err := json.Unmarshal(rawTokens, &tokens); err != nil {
		return nil, fmt.Errorf("failed to unmarshal push tokens: %v", err)
	}
	return tokens, nil
}

func (ns *NotificationService) sendToRecipient(model string, id uint, title, body string, data NotificationData) error {
	tokens, err := ns.recipientPushTokens(model, id)
	if err != nil {
		log.Printf("push: no tokens for %s %d: %v", model, id, err)
		return err
	}

	dataMap := map[string]string{
		"type":     data.Type,
		"id":       data.ID,
		"senderId": data.SenderID,
		"screen":   data.Screen,
		"params":   data.Params,
	}

	var lastError error
	for _, token := range tokens {
		if err := utils.SendNotification(token, title, body, dataMap); err != nil {
			log.Printf("push: failed to send to token %s: %v", token, err)
			lastError = err
		}
	}
	return lastError
}

// SendMessageNotification notifies a recipient about a new message.
func (ns *NotificationService) SendMessageNotification(receiverModel string, receiverID uint, messageID, senderName, subject string) error {
	title := fmt.Sprintf("New message from %s", senderName)
	params := fmt.Sprintf(`{"messageId": %q}`, messageID)

	data := NotificationData{
		Type:   "message_received",
		ID:     messageID,
		Screen: "Messages",
		Params: params,
	}
	return ns.sendToRecipient(receiverModel, receiverID, title, subject, data)
}

// SendGradeNotification notifies a student that a submission was graded.
func (ns *NotificationService) SendGradeNotification(studentID uint, assignmentTitle string, grade int) error {
	title := "Assignment graded"
	body := fmt.Sprintf("%s: %d", assignmentTitle, grade)
	params := fmt.Sprintf(`{"assignment": %q}`, assignmentTitle)

	data := NotificationData{
		Type:   "assignment_graded",
		Screen: "Assignments",
		Params: params,
	}
	return ns.sendToRecipient(models.ModelStudent, studentID, title, body, data)
}
