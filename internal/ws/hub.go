package ws

import (
	"encoding/json"
	"errors"
	"log"
	"sync"

	"github.com/gorilla/websocket"
)

// ErrTooManyConnections is returned by AddClient when the configured
// connection limit is reached.
var ErrTooManyConnections = errors.New("ws: too many connections")

type client struct {
	hub    *Hub
	conn   *websocket.Conn
	userID int64
	send   chan []byte
}

func (c *client) writePump() {
	defer c.conn.Close()
	for msg := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			c.hub.RemoveClient(c)
			return
		}
	}
}

func (c *client) close() {
	close(c.send)
}

// Hub tracks connected clients keyed by user and delivers the
// controller's announcements to them. A user may hold several
// connections (multiple tabs); every one of them gets every message.
// Hub implements session.PresentationSink.
type Hub struct {
	mu       sync.RWMutex
	clients  map[int64]map[*client]bool
	total    int
	maxConns int
}

// NewHub creates a hub. maxConns limits simultaneous connections across
// all users; 0 means unlimited.
func NewHub(maxConns int) *Hub {
	return &Hub{
		clients:  make(map[int64]map[*client]bool),
		maxConns: maxConns,
	}
}

// AddClient registers a connection for a user and starts its write pump.
func (h *Hub) AddClient(userID int64, conn *websocket.Conn) (*client, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.maxConns > 0 && h.total >= h.maxConns {
		return nil, ErrTooManyConnections
	}

	c := &client{
		hub:    h,
		conn:   conn,
		userID: userID,
		send:   make(chan []byte, 64),
	}
	if h.clients[userID] == nil {
		h.clients[userID] = make(map[*client]bool)
	}
	h.clients[userID][c] = true
	h.total++

	go c.writePump()
	return c, nil
}

func (h *Hub) RemoveClient(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.clients[c.userID]
	if !ok || !set[c] {
		return
	}
	delete(set, c)
	if len(set) == 0 {
		delete(h.clients, c.userID)
	}
	h.total--
	c.close()
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.total
}

// sendTo delivers msg to every connection the user has. A client whose
// send buffer is full can't keep up and is disconnected rather than
// allowed to stall the session engine.
func (h *Hub) sendTo(userID int64, msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("ws: marshal %s message: %v", msg.Type, err)
		return
	}

	// The non-blocking send happens under the read lock: RemoveClient
	// closes the send channel under the write lock, so a client still in
	// the map here cannot have a closed channel.
	h.mu.RLock()
	var slow []*client
	for c := range h.clients[userID] {
		select {
		case c.send <- data:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		log.Printf("ws: user %d client too slow, disconnecting", userID)
		h.RemoveClient(c)
	}
}

// sendToClient delivers msg to one connection only (used for per-command
// error replies).
func (h *Hub) sendToClient(c *client, msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("ws: marshal %s message: %v", msg.Type, err)
		return
	}
	h.mu.RLock()
	registered := h.clients[c.userID][c]
	slow := false
	if registered {
		select {
		case c.send <- data:
		default:
			slow = true
		}
	}
	h.mu.RUnlock()

	if slow {
		log.Printf("ws: user %d client too slow, disconnecting", c.userID)
		h.RemoveClient(c)
	}
}

// AskQuestion implements session.PresentationSink.
func (h *Hub) AskQuestion(userID int64, frameURL string, frame int) {
	h.sendTo(userID, Message{
		Type: MsgQuestion,
		Payload: QuestionPayload{
			Frame:    frame,
			FrameURL: frameURL,
			YesToken: EncodeAnswerToken(frame, true),
			NoToken:  EncodeAnswerToken(frame, false),
		},
	})
}

// AnnounceResult implements session.PresentationSink.
func (h *Hub) AnnounceResult(userID int64, frameURL string, frame int) {
	h.sendTo(userID, Message{
		Type: MsgResult,
		Payload: ResultPayload{
			Frame:    frame,
			FrameURL: frameURL,
		},
	})
}

// AnnounceNoActiveSearch implements session.PresentationSink.
func (h *Hub) AnnounceNoActiveSearch(userID int64) {
	h.sendTo(userID, Message{Type: MsgNoActiveSearch})
}

// AnnounceCancelled implements session.PresentationSink.
func (h *Hub) AnnounceCancelled(userID int64) {
	h.sendTo(userID, Message{Type: MsgCancelled})
}

// AnnounceProviderError implements session.PresentationSink.
func (h *Hub) AnnounceProviderError(userID int64) {
	h.sendTo(userID, Message{Type: MsgProviderError})
}
