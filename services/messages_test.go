package services

import (
	"errors"
	"fmt"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/SharathcAcharya/EduCore-sub001/models"
	"github.com/SharathcAcharya/EduCore-sub001/storage"
)

// setupTestDB points the global handle at a fresh in-memory database.
func setupTestDB(t *testing.T) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	if err := db.AutoMigrate(
		&models.Admin{}, &models.Teacher{}, &models.Student{},
		&models.SchoolClass{}, &models.Message{},
	); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	storage.DB = db
}

type sinkEvent struct {
	Room    string
	School  uint
	Role    string
	Event   string
	Payload interface{}
}

// recordingSink captures emissions so tests can assert on fan-out.
type recordingSink struct {
	roomEvents []sinkEvent
	roleEvents []sinkEvent
}

func (r *recordingSink) EmitToRoom(roomID, event string, payload interface{}) {
	r.roomEvents = append(r.roomEvents, sinkEvent{Room: roomID, Event: event, Payload: payload})
}

func (r *recordingSink) EmitToRole(schoolID uint, role, event string, payload interface{}) {
	r.roleEvents = append(r.roleEvents, sinkEvent{School: schoolID, Role: role, Event: event, Payload: payload})
}

func seedSchool(t *testing.T, teacherCount, studentCount int) uint {
	t.Helper()

	admin := models.Admin{Name: "Head", Email: fmt.Sprintf("%s@school.test", t.Name()), SchoolName: t.Name()}
	if err := storage.DB.Create(&admin).Error; err != nil {
		t.Fatalf("failed to seed admin: %v", err)
	}
	class := models.SchoolClass{Name: "10A", SchoolID: admin.ID}
	if err := storage.DB.Create(&class).Error; err != nil {
		t.Fatalf("failed to seed class: %v", err)
	}
	for i := 0; i < teacherCount; i++ {
		teacher := models.Teacher{
			Name:     fmt.Sprintf("Teacher %d", i+1),
			Email:    fmt.Sprintf("t%d-%s@school.test", i+1, t.Name()),
			SchoolID: admin.ID,
		}
		if err := storage.DB.Create(&teacher).Error; err != nil {
			t.Fatalf("failed to seed teacher: %v", err)
		}
	}
	for i := 0; i < studentCount; i++ {
		student := models.Student{
			Name:     fmt.Sprintf("Student %d", i+1),
			RollNum:  i + 1,
			SchoolID: admin.ID,
			ClassID:  class.ID,
		}
		if err := storage.DB.Create(&student).Error; err != nil {
			t.Fatalf("failed to seed student: %v", err)
		}
	}
	return admin.ID
}

func directInput(schoolID uint) CreateMessageInput {
	return CreateMessageInput{
		Sender:   &Participant{ID: 1, Model: models.ModelAdmin, Name: "Head"},
		Receiver: &Participant{ID: 1, Model: models.ModelTeacher, Name: "Teacher 1"},
		Subject:  "Staff meeting",
		Content:  "Room 4, after classes.",
		School:   schoolID,
	}
}

func TestCreateCollectsMissingFields(t *testing.T) {
	setupTestDB(t)
	svc := NewMessageService(nil)

	_, err := svc.Create(CreateMessageInput{})
	var validation *ValidationError
	if !errors.As(err, &validation) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	want := map[string]bool{"sender": true, "receiver": true, "subject": true, "content": true, "school": true}
	if len(validation.Fields) != len(want) {
		t.Fatalf("expected %d missing fields, got %v", len(want), validation.Fields)
	}
	for _, field := range validation.Fields {
		if !want[field] {
			t.Fatalf("unexpected missing field %q in %v", field, validation.Fields)
		}
	}
}

func TestCreateRejectsBroadcastSender(t *testing.T) {
	setupTestDB(t)
	svc := NewMessageService(nil)

	input := directInput(1)
	input.Sender.Model = models.ModelAll

	_, err := svc.Create(input)
	var validation *ValidationError
	if !errors.As(err, &validation) {
		t.Fatalf("expected ValidationError for broadcast sender, got %v", err)
	}
}

func TestCreateDirectStoresCiphertextAndEmits(t *testing.T) {
	setupTestDB(t)
	sink := &recordingSink{}
	svc := NewMessageService(sink)

	schoolID := seedSchool(t, 1, 0)
	input := directInput(schoolID)

	result, err := svc.Create(input)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if result.Broadcast {
		t.Fatal("direct send reported as broadcast")
	}
	if result.Message == nil || result.Message.Content != input.Content {
		t.Fatalf("expected plaintext content in the result, got %+v", result.Message)
	}

	var row models.Message
	if err := storage.DB.First(&row, "id = ?", result.Message.ID).Error; err != nil {
		t.Fatalf("persisted row not found: %v", err)
	}
	if !row.IsEncrypted {
		t.Fatal("expected the stored row to be encrypted")
	}
	if row.Content != "" {
		t.Fatal("plaintext leaked into the stored row")
	}
	if row.EncryptedContent == "" || row.EncryptedContent == input.Content {
		t.Fatalf("stored content is not ciphertext: %q", row.EncryptedContent)
	}

	wantRoom := ChatRoomID(
		ParticipantKey(models.ModelAdmin, 1),
		ParticipantKey(models.ModelTeacher, 1),
	)
	if len(sink.roomEvents) != 1 {
		t.Fatalf("expected 1 room emission, got %d", len(sink.roomEvents))
	}
	if sink.roomEvents[0].Room != wantRoom || sink.roomEvents[0].Event != "receive_message" {
		t.Fatalf("unexpected emission %+v", sink.roomEvents[0])
	}
}

func TestCreateWithNilSink(t *testing.T) {
	setupTestDB(t)
	svc := NewMessageService(nil)
	schoolID := seedSchool(t, 1, 1)

	if _, err := svc.Create(directInput(schoolID)); err != nil {
		t.Fatalf("create with nil sink failed: %v", err)
	}

	input := directInput(schoolID)
	input.Receiver = &Participant{Model: models.ModelAll}
	if _, err := svc.Create(input); err != nil {
		t.Fatalf("broadcast with nil sink failed: %v", err)
	}
}

func TestBroadcastFanOut(t *testing.T) {
	setupTestDB(t)
	sink := &recordingSink{}
	svc := NewMessageService(sink)

	schoolID := seedSchool(t, 2, 3)

	cases := []struct {
		receiverModel string
		wantCount     int
		wantRoles     []string
	}{
		{models.ModelAllTeachers, 2, []string{"teachers"}},
		{models.ModelAllStudents, 3, []string{"students"}},
		{models.ModelAll, 5, []string{"teachers", "students"}},
	}

	for _, tc := range cases {
		sink.roomEvents = nil
		sink.roleEvents = nil

		input := directInput(schoolID)
		input.Receiver = &Participant{Model: tc.receiverModel}
		input.Subject = "Announcement to " + tc.receiverModel

		result, err := svc.Create(input)
		if err != nil {
			t.Fatalf("%s: create failed: %v", tc.receiverModel, err)
		}
		if !result.Broadcast {
			t.Fatalf("%s: expected a broadcast result", tc.receiverModel)
		}
		if result.RecipientCount != tc.wantCount {
			t.Fatalf("%s: expected %d recipients, got %d", tc.receiverModel, tc.wantCount, result.RecipientCount)
		}

		var rows []models.Message
		storage.DB.Where("subject = ?", input.Subject).Find(&rows)
		if len(rows) != tc.wantCount {
			t.Fatalf("%s: expected %d rows, got %d", tc.receiverModel, tc.wantCount, len(rows))
		}
		for _, row := range rows {
			if !row.IsBroadcast {
				t.Fatalf("%s: fan-out row %s not flagged as broadcast", tc.receiverModel, row.ID)
			}
			if !models.IndividualModel(row.ReceiverModel) {
				t.Fatalf("%s: fan-out row addressed to pseudo-receiver %q", tc.receiverModel, row.ReceiverModel)
			}
		}

		if len(sink.roomEvents) != tc.wantCount {
			t.Fatalf("%s: expected %d room emissions, got %d", tc.receiverModel, tc.wantCount, len(sink.roomEvents))
		}
		if len(sink.roleEvents) != len(tc.wantRoles) {
			t.Fatalf("%s: expected %d role emissions, got %d", tc.receiverModel, len(tc.wantRoles), len(sink.roleEvents))
		}
		for i, role := range tc.wantRoles {
			got := sink.roleEvents[i]
			if got.Role != role || got.School != schoolID || got.Event != "broadcast_message" {
				t.Fatalf("%s: unexpected role emission %+v", tc.receiverModel, got)
			}
		}
	}
}

func TestBroadcastScopedToSchool(t *testing.T) {
	setupTestDB(t)
	svc := NewMessageService(nil)

	schoolA := seedSchool(t, 2, 0)

	// Second school with its own teacher; must not receive school A's send.
	otherAdmin := models.Admin{Name: "Other", Email: "other@school.test", SchoolName: "Other School"}
	if err := storage.DB.Create(&otherAdmin).Error; err != nil {
		t.Fatal(err)
	}
	otherTeacher := models.Teacher{Name: "Outsider", Email: "outsider@school.test", SchoolID: otherAdmin.ID}
	if err := storage.DB.Create(&otherTeacher).Error; err != nil {
		t.Fatal(err)
	}

	input := directInput(schoolA)
	input.Receiver = &Participant{Model: models.ModelAllTeachers}
	result, err := svc.Create(input)
	if err != nil {
		t.Fatal(err)
	}
	if result.RecipientCount != 2 {
		t.Fatalf("expected 2 recipients in school A, got %d", result.RecipientCount)
	}

	var count int64
	storage.DB.Model(&models.Message{}).Where("receiver_id = ? AND receiver_model = ?", otherTeacher.ID, models.ModelTeacher).Count(&count)
	if count != 0 {
		t.Fatal("broadcast leaked into another school")
	}
}

func TestInboxAndSent(t *testing.T) {
	setupTestDB(t)
	svc := NewMessageService(nil)
	schoolID := seedSchool(t, 1, 0)

	if _, err := svc.Create(directInput(schoolID)); err != nil {
		t.Fatal(err)
	}

	inbox, err := svc.Inbox(1, models.ModelTeacher)
	if err != nil {
		t.Fatal(err)
	}
	if len(inbox) != 1 {
		t.Fatalf("expected 1 inbox message, got %d", len(inbox))
	}
	if inbox[0].Content != "Room 4, after classes." {
		t.Fatalf("inbox content not decrypted: %q", inbox[0].Content)
	}

	// Same id, different model: nothing addressed to the student.
	otherInbox, err := svc.Inbox(1, models.ModelStudent)
	if err != nil {
		t.Fatal(err)
	}
	if len(otherInbox) != 0 {
		t.Fatalf("inbox crossed participant models: %d messages", len(otherInbox))
	}

	sent, err := svc.Sent(1, models.ModelAdmin)
	if err != nil {
		t.Fatal(err)
	}
	if len(sent) != 1 {
		t.Fatalf("expected 1 sent message, got %d", len(sent))
	}
}

func TestConversationOrdersAndMarksRead(t *testing.T) {
	setupTestDB(t)
	svc := NewMessageService(nil)
	schoolID := seedSchool(t, 1, 0)

	first := directInput(schoolID)
	first.Content = "first"
	if _, err := svc.Create(first); err != nil {
		t.Fatal(err)
	}

	reply := CreateMessageInput{
		Sender:   &Participant{ID: 1, Model: models.ModelTeacher, Name: "Teacher 1"},
		Receiver: &Participant{ID: 1, Model: models.ModelAdmin, Name: "Head"},
		Subject:  "Re: Staff meeting",
		Content:  "second",
		School:   schoolID,
	}
	if _, err := svc.Create(reply); err != nil {
		t.Fatal(err)
	}

	// Teacher opens the conversation with the admin.
	messages, err := svc.Conversation(1, models.ModelTeacher, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(messages))
	}
	if messages[0].Content != "first" || messages[1].Content != "second" {
		t.Fatalf("conversation out of order: %q then %q", messages[0].Content, messages[1].Content)
	}
	if !messages[0].IsRead {
		t.Fatal("message addressed to the caller not marked read")
	}
	if messages[1].IsRead {
		t.Fatal("caller's own outgoing message marked read")
	}

	// The flip is persisted, and stays set on a second fetch.
	again, err := svc.Conversation(1, models.ModelTeacher, 1)
	if err != nil {
		t.Fatal(err)
	}
	if !again[0].IsRead {
		t.Fatal("read flag did not persist")
	}
}

func TestDetailErrors(t *testing.T) {
	setupTestDB(t)
	svc := NewMessageService(nil)

	_, err := svc.Detail("not-a-uuid", 0, "")
	var validation *ValidationError
	if !errors.As(err, &validation) {
		t.Fatalf("expected ValidationError for malformed id, got %v", err)
	}

	_, err = svc.Detail("d8f7b2a0-0000-4000-8000-000000000000", 0, "")
	var notFound *NotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected NotFoundError for missing id, got %v", err)
	}
}

func TestDetailMarksReadForReceiverOnly(t *testing.T) {
	setupTestDB(t)
	svc := NewMessageService(nil)
	schoolID := seedSchool(t, 1, 0)

	result, err := svc.Create(directInput(schoolID))
	if err != nil {
		t.Fatal(err)
	}
	id := result.Message.ID

	// Sender fetch leaves the message unread.
	view, err := svc.Detail(id, 1, models.ModelAdmin)
	if err != nil {
		t.Fatal(err)
	}
	if view.IsRead {
		t.Fatal("sender fetch marked the message read")
	}

	// Matching id but wrong model leaves it unread too.
	view, err = svc.Detail(id, 1, models.ModelStudent)
	if err != nil {
		t.Fatal(err)
	}
	if view.IsRead {
		t.Fatal("fetch with the wrong model marked the message read")
	}

	// The actual receiver flips it.
	view, err = svc.Detail(id, 1, models.ModelTeacher)
	if err != nil {
		t.Fatal(err)
	}
	if !view.IsRead {
		t.Fatal("receiver fetch did not mark the message read")
	}

	// Read is monotone: a later sender fetch still sees it read.
	view, err = svc.Detail(id, 1, models.ModelAdmin)
	if err != nil {
		t.Fatal(err)
	}
	if !view.IsRead {
		t.Fatal("read flag regressed")
	}
}

func TestUnreadCount(t *testing.T) {
	setupTestDB(t)
	svc := NewMessageService(nil)
	schoolID := seedSchool(t, 1, 0)

	for i := 0; i < 3; i++ {
		input := directInput(schoolID)
		input.Content = fmt.Sprintf("message %d", i)
		if _, err := svc.Create(input); err != nil {
			t.Fatal(err)
		}
	}

	count, err := svc.UnreadCount(1, models.ModelTeacher)
	if err != nil {
		t.Fatal(err)
	}
	if count != 3 {
		t.Fatalf("expected 3 unread, got %d", count)
	}

	if _, err := svc.Conversation(1, models.ModelTeacher, 1); err != nil {
		t.Fatal(err)
	}

	count, err = svc.UnreadCount(1, models.ModelTeacher)
	if err != nil {
		t.Fatal(err)
	}
	if count != 0 {
		t.Fatalf("expected 0 unread after reading, got %d", count)
	}
}

func TestBroadcastInboxFiltersDirectMessages(t *testing.T) {
	setupTestDB(t)
	svc := NewMessageService(nil)
	schoolID := seedSchool(t, 1, 0)

	if _, err := svc.Create(directInput(schoolID)); err != nil {
		t.Fatal(err)
	}
	broadcast := directInput(schoolID)
	broadcast.Receiver = &Participant{Model: models.ModelAllTeachers}
	if _, err := svc.Create(broadcast); err != nil {
		t.Fatal(err)
	}

	inbox, err := svc.Inbox(1, models.ModelTeacher)
	if err != nil {
		t.Fatal(err)
	}
	if len(inbox) != 2 {
		t.Fatalf("expected 2 inbox messages, got %d", len(inbox))
	}

	broadcasts, err := svc.BroadcastInbox(1, models.ModelTeacher)
	if err != nil {
		t.Fatal(err)
	}
	if len(broadcasts) != 1 {
		t.Fatalf("expected 1 broadcast message, got %d", len(broadcasts))
	}
	if !broadcasts[0].IsBroadcast {
		t.Fatal("broadcast inbox returned a direct message")
	}
}

func TestDeleteReportsExistence(t *testing.T) {
	setupTestDB(t)
	svc := NewMessageService(nil)
	schoolID := seedSchool(t, 1, 0)

	result, err := svc.Create(directInput(schoolID))
	if err != nil {
		t.Fatal(err)
	}
	id := result.Message.ID

	existed, err := svc.Delete(id)
	if err != nil {
		t.Fatal(err)
	}
	if !existed {
		t.Fatal("delete of an existing message reported nothing deleted")
	}

	existed, err = svc.Delete(id)
	if err != nil {
		t.Fatal(err)
	}
	if existed {
		t.Fatal("second delete reported a row deleted")
	}

	_, err = svc.Delete("????")
	var validation *ValidationError
	if !errors.As(err, &validation) {
		t.Fatalf("expected ValidationError for malformed id, got %v", err)
	}
}

func TestCorruptCiphertextDegradesToPlaceholder(t *testing.T) {
	setupTestDB(t)
	svc := NewMessageService(nil)

	row := models.Message{
		ID:               "d8f7b2a0-1111-4000-8000-000000000001",
		SenderID:         1,
		SenderModel:      models.ModelAdmin,
		ReceiverID:       2,
		ReceiverModel:    models.ModelTeacher,
		Subject:          "Garbled",
		EncryptedContent: "bm90IHJlYWwgY2lwaGVydGV4dA==",
		IsEncrypted:      true,
		SchoolID:         1,
	}
	if err := storage.DB.Create(&row).Error; err != nil {
		t.Fatal(err)
	}

	inbox, err := svc.Inbox(2, models.ModelTeacher)
	if err != nil {
		t.Fatal(err)
	}
	if len(inbox) != 1 {
		t.Fatalf("expected 1 message, got %d", len(inbox))
	}
	if inbox[0].Content != DecryptFailedPlaceholder {
		t.Fatalf("expected placeholder content, got %q", inbox[0].Content)
	}
}
