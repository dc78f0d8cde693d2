package services

import (
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/kataras/iris/v12"
)

func startGatewayServer(t *testing.T) *httptest.Server {
	t.Helper()
	app := iris.New()
	app.Get("/ws", HandleWebSocket)
	if err := app.Build(); err != nil {
		t.Fatalf("failed to build app: %v", err)
	}
	srv := httptest.NewServer(app)
	t.Cleanup(srv.Close)
	return srv
}

func dialGateway(t *testing.T, srv *httptest.Server, userID uint, role string, schoolID uint) *websocket.Conn {
	t.Helper()
	url := fmt.Sprintf("%s/ws?user_id=%d&role=%s&school=%d",
		strings.Replace(srv.URL, "http", "ws", 1), userID, role, schoolID)
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func sendEvent(t *testing.T, conn *websocket.Conn, event string, data interface{}) {
	t.Helper()
	raw, err := json.Marshal(data)
	if err != nil {
		t.Fatal(err)
	}
	frame, err := json.Marshal(Envelope{Type: event, Data: raw})
	if err != nil {
		t.Fatal(err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		t.Fatalf("write failed: %v", err)
	}
}

func readEvent(t *testing.T, conn *websocket.Conn) Envelope {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, raw, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		t.Fatalf("invalid frame %s: %v", raw, err)
	}
	return env
}

func TestGatewayRejectsUnidentifiedClient(t *testing.T) {
	srv := startGatewayServer(t)

	url := strings.Replace(srv.URL, "http", "ws", 1) + "/ws?role=all&user_id=0"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Fatal("expected the server to close the connection")
	}
}

func TestGatewayJoinChatAndRelay(t *testing.T) {
	srv := startGatewayServer(t)

	teacher := dialGateway(t, srv, 1, "teacher", 1)
	student := dialGateway(t, srv, 2, "student", 1)

	roomID := ChatRoomID(ParticipantKey("teacher", 1), ParticipantKey("student", 2))

	sendEvent(t, teacher, "join_chat", joinChatData{RoomID: roomID})
	if env := readEvent(t, teacher); env.Type != "room_joined" {
		t.Fatalf("expected room_joined ack, got %q", env.Type)
	}
	sendEvent(t, student, "join_chat", joinChatData{RoomID: roomID})
	if env := readEvent(t, student); env.Type != "room_joined" {
		t.Fatalf("expected room_joined ack, got %q", env.Type)
	}

	sendEvent(t, teacher, "send_message", clientMessageData{RoomID: roomID, Content: "are you there?"})

	env := readEvent(t, student)
	if env.Type != "receive_message" {
		t.Fatalf("expected receive_message, got %q", env.Type)
	}
	var data clientMessageData
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatal(err)
	}
	if data.Content != "are you there?" {
		t.Fatalf("unexpected relay payload %+v", data)
	}
}

func TestGatewayRoleRoomAllowList(t *testing.T) {
	srv := startGatewayServer(t)

	teacher := dialGateway(t, srv, 1, "teacher", 1)

	sendEvent(t, teacher, "join_role_room", joinRoleRoomData{Role: "everyone"})
	env := readEvent(t, teacher)
	if env.Type != "role_room_joined" {
		t.Fatalf("expected role_room_joined, got %q", env.Type)
	}
	var ack map[string]string
	if err := json.Unmarshal(env.Data, &ack); err != nil {
		t.Fatal(err)
	}
	if ack["status"] != "rejected" {
		t.Fatalf("expected rejection for unknown role room, got %v", ack)
	}

	sendEvent(t, teacher, "join_role_room", joinRoleRoomData{Role: "teachers"})
	env = readEvent(t, teacher)
	if err := json.Unmarshal(env.Data, &ack); err != nil {
		t.Fatal(err)
	}
	if env.Type != "role_room_joined" || ack["status"] != "joined" {
		t.Fatalf("expected to join the teachers room, got %q %v", env.Type, ack)
	}

	// A broadcast through the hub reaches the subscribed socket.
	Hub.EmitToRole(1, "teachers", "broadcast_message", map[string]string{"subject": "staff"})
	env = readEvent(t, teacher)
	if env.Type != "broadcast_message" {
		t.Fatalf("expected broadcast_message, got %q", env.Type)
	}
}
