package services

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
	"github.com/kataras/iris/v12"

	"github.com/SharathcAcharya/EduCore-sub001/models"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

type joinChatData struct {
	RoomID string `json:"roomId"`
}

type joinRoleRoomData struct {
	Role string `json:"role"`
}

type clientMessageData struct {
	RoomID  string       `json:"roomId"`
	Role    string       `json:"role,omitempty"`
	Sender  *Participant `json:"sender,omitempty"`
	Subject string       `json:"subject,omitempty"`
	Content string       `json:"content"`
}

// HandleWebSocket upgrades the connection and identifies the client from
// the handshake query (user_id, role, school). Messages sent over this
// channel are fire-and-forget; durable messages go through the REST API.
func HandleWebSocket(ctx iris.Context) {
	conn, err := upgrader.Upgrade(ctx.ResponseWriter(), ctx.Request(), nil)
	if err != nil {
		log.Println("ws: upgrade failed:", err)
		return
	}

	userID, _ := strconv.ParseUint(ctx.URLParam("user_id"), 10, 32)
	schoolID, _ := strconv.ParseUint(ctx.URLParam("school"), 10, 32)
	role := ctx.URLParam("role")
	if userID == 0 || !models.IndividualModel(role) {
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "identify with user_id, role and school"))
		conn.Close()
		return
	}

	client := &WSClient{
		Conn:     conn,
		Send:     make(chan []byte, 64),
		UserID:   uint(userID),
		Role:     role,
		SchoolID: uint(schoolID),
		hub:      Hub,
	}

	Hub.Register(client)

	go client.writePump()
	go client.readPump()
}

func (c *WSClient) readPump() {
	defer func() {
		c.hub.Unregister(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.Conn.ReadMessage()
		if err != nil {
			break
		}

		var env Envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			log.Println("ws: invalid frame:", err)
			continue
		}
		c.handleEvent(env)
	}
}

func (c *WSClient) handleEvent(env Envelope) {
	switch env.Type {
	case "join_chat":
		var data joinChatData
		if err := json.Unmarshal(env.Data, &data); err != nil || data.RoomID == "" {
			return
		}
		c.hub.JoinRoom(c, data.RoomID)
		c.ack("room_joined", iris.Map{"roomId": data.RoomID, "status": "joined"})

	case "join_role_room":
		var data joinRoleRoomData
		if err := json.Unmarshal(env.Data, &data); err != nil {
			return
		}
		if !ValidRoleRoom(data.Role) {
			c.ack("role_room_joined", iris.Map{"role": data.Role, "status": "rejected"})
			return
		}
		c.hub.JoinRoom(c, RoleRoomKey(c.SchoolID, data.Role))
		c.ack("role_room_joined", iris.Map{"role": data.Role, "status": "joined"})

	case "send_message":
		// Forwarded verbatim to the room; nothing is persisted here.
		var data clientMessageData
		if err := json.Unmarshal(env.Data, &data); err != nil || data.RoomID == "" {
			return
		}
		c.hub.EmitToRoom(data.RoomID, "receive_message", data)

	case "send_broadcast":
		var data clientMessageData
		if err := json.Unmarshal(env.Data, &data); err != nil || !ValidRoleRoom(data.Role) {
			return
		}
		c.hub.EmitToRole(c.SchoolID, data.Role, "broadcast_message", data)

	default:
		log.Println("ws: unknown event type:", env.Type)
	}
}

func (c *WSClient) ack(event string, payload interface{}) {
	frame, err := marshalEnvelope(event, payload)
	if err != nil {
		return
	}
	select {
	case c.Send <- frame:
	default:
	}
}

func (c *WSClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case frame, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
