package services

import (
	"encoding/json"
	"testing"
	"time"
)

func newTestClient(userID uint, role string, schoolID uint) *WSClient {
	return &WSClient{
		Send:     make(chan []byte, 8),
		UserID:   userID,
		Role:     role,
		SchoolID: schoolID,
	}
}

func receiveEnvelope(t *testing.T, client *WSClient) Envelope {
	t.Helper()
	select {
	case frame := <-client.Send:
		var env Envelope
		if err := json.Unmarshal(frame, &env); err != nil {
			t.Fatalf("failed to decode frame: %v", err)
		}
		return env
	default:
		t.Fatal("expected a frame, channel empty")
	}
	return Envelope{}
}

func TestHubEmitToRoom(t *testing.T) {
	hub := NewWSHub()
	member := newTestClient(1, "teacher", 1)
	outsider := newTestClient(2, "teacher", 1)
	hub.Register(member)
	hub.Register(outsider)

	hub.JoinRoom(member, "admin-1_teacher-1")
	if hub.RoomSize("admin-1_teacher-1") != 1 {
		t.Fatalf("expected room size 1, got %d", hub.RoomSize("admin-1_teacher-1"))
	}

	hub.EmitToRoom("admin-1_teacher-1", "receive_message", map[string]string{"subject": "hi"})

	env := receiveEnvelope(t, member)
	if env.Type != "receive_message" {
		t.Fatalf("expected receive_message, got %q", env.Type)
	}
	var data map[string]string
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatal(err)
	}
	if data["subject"] != "hi" {
		t.Fatalf("unexpected payload %v", data)
	}

	select {
	case frame := <-outsider.Send:
		t.Fatalf("outsider received frame %s", frame)
	default:
	}
}

func TestHubEmitToRoleIsSchoolScoped(t *testing.T) {
	hub := NewWSHub()
	schoolOne := newTestClient(1, "teacher", 1)
	schoolTwo := newTestClient(2, "teacher", 2)
	hub.Register(schoolOne)
	hub.Register(schoolTwo)

	hub.JoinRoom(schoolOne, RoleRoomKey(1, "teachers"))
	hub.JoinRoom(schoolTwo, RoleRoomKey(2, "teachers"))

	hub.EmitToRole(1, "teachers", "broadcast_message", map[string]string{"subject": "staff"})

	env := receiveEnvelope(t, schoolOne)
	if env.Type != "broadcast_message" {
		t.Fatalf("expected broadcast_message, got %q", env.Type)
	}

	select {
	case <-schoolTwo.Send:
		t.Fatal("broadcast crossed schools")
	default:
	}
}

func TestHubSkipsSlowClients(t *testing.T) {
	hub := NewWSHub()
	slow := &WSClient{Send: make(chan []byte), UserID: 9, Role: "student"}
	hub.Register(slow)
	hub.JoinRoom(slow, "room")

	// Unbuffered channel with no reader: the emit must not block.
	done := make(chan struct{})
	go func() {
		hub.EmitToRoom("room", "receive_message", "payload")
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("emit blocked on a slow client")
	}
}

func TestHubUnregisterCleansRooms(t *testing.T) {
	hub := NewWSHub()
	client := newTestClient(1, "student", 1)
	hub.Register(client)
	hub.JoinRoom(client, "a")
	hub.JoinRoom(client, "b")

	hub.Unregister(client)

	if hub.RoomSize("a") != 0 || hub.RoomSize("b") != 0 {
		t.Fatal("rooms still hold the unregistered client")
	}

	// Send channel is closed exactly once; a second unregister is a no-op.
	hub.Unregister(client)
	if _, open := <-client.Send; open {
		t.Fatal("send channel still open after unregister")
	}
}

func TestHubLeaveRoom(t *testing.T) {
	hub := NewWSHub()
	client := newTestClient(3, "teacher", 1)
	hub.Register(client)
	hub.JoinRoom(client, "room")
	hub.LeaveRoom(client, "room")

	hub.EmitToRoom("room", "receive_message", "payload")
	select {
	case <-client.Send:
		t.Fatal("client received a frame after leaving the room")
	default:
	}
}
