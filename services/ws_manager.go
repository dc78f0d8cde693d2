package services

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 45 * time.Second
)

// Envelope is the wire frame for every gateway event, both directions.
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// WSClient is one connected socket. Identity comes from the handshake
// query parameters; room membership lives only for the connection's
// lifetime, so clients re-join after reconnecting.
type WSClient struct {
	Conn     *websocket.Conn
	Send     chan []byte
	UserID   uint
	Role     string
	SchoolID uint

	hub       *WSHub
	closeOnce sync.Once
}

// WSHub tracks connections and their room memberships. It is the
// EventSink of the message service: delivery is best-effort, a slow or
// gone client is skipped, and nothing here can fail a create.
type WSHub struct {
	mu      sync.RWMutex
	clients map[*WSClient]bool
	rooms   map[string]map[*WSClient]bool
}

// Hub is the process-wide gateway instance.
var Hub = NewWSHub()

func NewWSHub() *WSHub {
	return &WSHub{
		clients: make(map[*WSClient]bool),
		rooms:   make(map[string]map[*WSClient]bool),
	}
}

func (h *WSHub) Register(client *WSClient) {
	h.mu.Lock()
	h.clients[client] = true
	h.mu.Unlock()
	log.Printf("ws: client connected (user %d, role %s)", client.UserID, client.Role)
}

func (h *WSHub) Unregister(client *WSClient) {
	h.mu.Lock()
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		for room, members := range h.rooms {
			if members[client] {
				delete(members, client)
				if len(members) == 0 {
					delete(h.rooms, room)
				}
			}
		}
		client.closeSend()
	}
	h.mu.Unlock()
	log.Printf("ws: client disconnected (user %d)", client.UserID)
}

func (h *WSHub) JoinRoom(client *WSClient, roomID string) {
	h.mu.Lock()
	if h.rooms[roomID] == nil {
		h.rooms[roomID] = make(map[*WSClient]bool)
	}
	h.rooms[roomID][client] = true
	h.mu.Unlock()
}

func (h *WSHub) LeaveRoom(client *WSClient, roomID string) {
	h.mu.Lock()
	if members := h.rooms[roomID]; members != nil {
		delete(members, client)
		if len(members) == 0 {
			delete(h.rooms, roomID)
		}
	}
	h.mu.Unlock()
}

// RoomSize is used by tests and the typing endpoints.
func (h *WSHub) RoomSize(roomID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[roomID])
}

// EmitToRoom sends one event to every socket joined to the room.
func (h *WSHub) EmitToRoom(roomID string, event string, payload interface{}) {
	frame, err := marshalEnvelope(event, payload)
	if err != nil {
		log.Println("ws: failed to marshal", event, "payload:", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.rooms[roomID] {
		select {
		case client.Send <- frame:
		default:
			log.Printf("ws: dropping %s for slow client (user %d)", event, client.UserID)
		}
	}
}

// EmitToRole sends one event to a school's role room.
func (h *WSHub) EmitToRole(schoolID uint, role string, event string, payload interface{}) {
	h.EmitToRoom(RoleRoomKey(schoolID, role), event, payload)
}

func marshalEnvelope(event string, payload interface{}) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Type: event, Data: data})
}

func (c *WSClient) closeSend() {
	c.closeOnce.Do(func() {
		close(c.Send)
	})
}
