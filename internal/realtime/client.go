package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/queueline/queueline-backend/internal/audit"
	"github.com/queueline/queueline-backend/internal/service"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 20 * time.Second
	sendBufferSize = 32
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type incomingEvent struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Client is one websocket connection. It starts connected but roomless;
// a joinRoom event binds it to a user room until disconnect.
type Client struct {
	id   string
	uid  string
	conn *websocket.Conn
	send chan []byte

	hub      *Hub
	gateway  *Gateway
	recorder *audit.Recorder
}

func ServeWS(hub *Hub, gateway *Gateway, recorder *audit.Recorder, w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		hub.log.Warn("websocket upgrade failed", "error", err)
		return
	}
	c := &Client{
		id:       uuid.NewString(),
		conn:     conn,
		send:     make(chan []byte, sendBufferSize),
		hub:      hub,
		gateway:  gateway,
		recorder: recorder,
	}
	go c.writePump()
	c.readPump()
}

func (c *Client) readPump() {
	defer func() {
		if c.uid != "" {
			c.hub.unregister <- c
		}
		c.conn.Close()
	}()

	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.log.Warn("websocket closed unexpectedly", "client_id", c.id, "error", err)
			}
			return
		}
		var ev incomingEvent
		if err := json.Unmarshal(raw, &ev); err != nil {
			c.hub.log.Warn("bad socket payload", "client_id", c.id, "error", err)
			continue
		}
		c.handleEvent(ev)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) handleEvent(ev incomingEvent) {
	ctx := context.Background()

	if ev.Event == "joinRoom" {
		var payload struct {
			UserID string `json:"user_id"`
		}
		if err := json.Unmarshal(ev.Data, &payload); err != nil || payload.UserID == "" {
			return
		}
		if c.uid != "" {
			// Connected -> Joined happens once per connection.
			c.hub.log.Warn("duplicate joinRoom ignored", "client_id", c.id, "uid", c.uid)
			return
		}
		c.uid = payload.UserID
		c.hub.register <- c
		return
	}

	// Everything below needs a joined identity.
	if c.uid == "" {
		c.hub.log.Warn("event before joinRoom ignored", "client_id", c.id, "event", ev.Event)
		return
	}

	switch ev.Event {
	case "sendMessage":
		var payload struct {
			SenderID      string  `json:"senderId"`
			ReceiverID    string  `json:"receiverId"`
			Content       string  `json:"content"`
			AttachmentURL *string `json:"attachmentUrl"`
		}
		if err := json.Unmarshal(ev.Data, &payload); err != nil {
			return
		}
		_, err := c.gateway.SendMessage(ctx, payload.SenderID, payload.ReceiverID, payload.Content, payload.AttachmentURL)
		c.record(ctx, "ws.sendMessage", payload, err)

	case "markMessageAsRead":
		var payload struct {
			MessageID   uint64 `json:"message_id"`
			UserID      string `json:"user_id"`
			OtherUserID string `json:"other_user_id"`
		}
		if err := json.Unmarshal(ev.Data, &payload); err != nil {
			return
		}
		_, err := c.gateway.MarkMessageRead(ctx, payload.MessageID, payload.UserID)
		c.record(ctx, "ws.markMessageAsRead", payload, err)

	case "hideChat":
		var payload struct {
			UserID      string `json:"user_id"`
			OtherUserID string `json:"other_user_id"`
		}
		if err := json.Unmarshal(ev.Data, &payload); err != nil {
			return
		}
		err := c.gateway.HideChat(ctx, payload.UserID, payload.OtherUserID)
		c.record(ctx, "ws.hideChat", payload, err)

	case "openOrCloseQueue":
		var payload struct {
			QueueID uint64 `json:"queueId"`
			Status  string `json:"status"`
		}
		if err := json.Unmarshal(ev.Data, &payload); err != nil {
			return
		}
		_, err := c.gateway.SetQueueStatus(ctx, payload.QueueID, payload.Status)
		c.record(ctx, "ws.openOrCloseQueue", payload, err)

	default:
		c.hub.log.Warn("unhandled socket event", "client_id", c.id, "event", ev.Event)
	}
}

func (c *Client) record(ctx context.Context, action string, payload any, err error) {
	if err != nil {
		c.hub.log.Warn("socket event failed", "client_id", c.id, "action", action, "error", err)
	}
	c.recorder.Record(ctx, action, c.uid, payload, statusOf(err), err)
}

func statusOf(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, service.ErrBadInput):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
