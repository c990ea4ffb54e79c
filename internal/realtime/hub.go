// Package realtime maintains the live-connection registry and fans out
// post-state snapshots to user rooms. The registry is derived and
// disposable: it is rebuilt from connects and is never authoritative for
// anything except who to notify right now.
package realtime

import (
	"encoding/json"
	"log/slog"
	"sync"
)

// Envelope is one broadcast: an event name, the target rooms (nil means
// every connected client), and the marshaled payload.
type Envelope struct {
	Event string          `json:"event"`
	Rooms []string        `json:"rooms,omitempty"`
	Data  json.RawMessage `json:"data"`
}

// frame is what actually goes down a websocket.
type frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type Hub struct {
	mu    sync.RWMutex
	rooms map[string]map[*Client]struct{}

	register   chan *Client
	unregister chan *Client

	bridge *Bridge
	log    *slog.Logger
}

func NewHub(log *slog.Logger) *Hub {
	return &Hub{
		rooms:      make(map[string]map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		log:        log,
	}
}

// SetBridge attaches a cross-process fan-out bridge. Must be called before
// Run.
func (h *Hub) SetBridge(b *Bridge) {
	h.bridge = b
}

func (h *Hub) Run() {
	for {
		select {
		case c := <-h.register:
			h.mu.Lock()
			room, ok := h.rooms[c.uid]
			if !ok {
				room = make(map[*Client]struct{})
				h.rooms[c.uid] = room
			}
			room[c] = struct{}{}
			total := len(room)
			h.mu.Unlock()
			h.log.Info("client joined room", "uid", c.uid, "client_id", c.id, "room_size", total)

		case c := <-h.unregister:
			h.mu.Lock()
			if room, ok := h.rooms[c.uid]; ok {
				if _, ok := room[c]; ok {
					delete(room, c)
					close(c.send)
					if len(room) == 0 {
						delete(h.rooms, c.uid)
					}
				}
			}
			h.mu.Unlock()
			h.log.Info("client left room", "uid", c.uid, "client_id", c.id)
		}
	}
}

// Emit marshals data once and fans it out. With a bridge attached the
// envelope goes through pub/sub so sibling processes deliver to their local
// rooms too; without one it is delivered locally. Either way the send is
// at-most-once: no acknowledgment, no redelivery.
func (h *Hub) Emit(event string, data any, rooms ...string) {
	raw, err := json.Marshal(data)
	if err != nil {
		h.log.Error("broadcast payload marshal failed", "event", event, "error", err)
		return
	}
	env := Envelope{Event: event, Rooms: rooms, Data: raw}
	if h.bridge != nil {
		if err := h.bridge.Publish(env); err == nil {
			return
		}
		h.log.Warn("bridge publish failed, delivering locally", "event", event)
	}
	h.deliver(env)
}

func (h *Hub) deliver(env Envelope) {
	msg, err := json.Marshal(frame{Event: env.Event, Data: env.Data})
	if err != nil {
		return
	}

	h.mu.RLock()
	var targets []*Client
	if len(env.Rooms) == 0 {
		for _, room := range h.rooms {
			for c := range room {
				targets = append(targets, c)
			}
		}
	} else {
		for _, uid := range env.Rooms {
			for c := range h.rooms[uid] {
				targets = append(targets, c)
			}
		}
	}
	h.mu.RUnlock()

	for _, c := range targets {
		select {
		case c.send <- msg:
		default:
			// Slow consumer; drop the connection rather than queue.
			h.log.Warn("send buffer full, dropping client", "uid", c.uid, "client_id", c.id)
			go func(c *Client) { h.unregister <- c }(c)
		}
	}
}
