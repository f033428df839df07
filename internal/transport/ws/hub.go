package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"wellmind/internal/logging"
	"wellmind/internal/model"
)

// MessageType defines the type of WebSocket message
type MessageType string

// Professional stream message types
const (
	MsgCrisisAlert       MessageType = "crisis_alert"
	MsgAlertAcknowledged MessageType = "alert_acknowledged"
)

// Message is the WebSocket envelope format
type Message struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Hub fans crisis alerts out to every connected professional
type Hub struct {
	conns map[*Connection]bool
	mu    sync.RWMutex

	register   chan *Connection
	unregister chan *Connection
	broadcast  chan []byte
	done       chan struct{}
	closeOnce  sync.Once

	log *slog.Logger
}

// Connection represents one professional's WebSocket connection
type Connection struct {
	ProfessionalID string
	Send           chan []byte
}

// NewHub creates a new WebSocket hub
func NewHub() *Hub {
	h := &Hub{
		conns:      make(map[*Connection]bool),
		register:   make(chan *Connection),
		unregister: make(chan *Connection),
		broadcast:  make(chan []byte, 256),
		done:       make(chan struct{}),
		log:        logging.New("ws"),
	}
	go h.run()
	return h
}

func (h *Hub) run() {
	for {
		select {
		case <-h.done:
			h.mu.Lock()
			for conn := range h.conns {
				delete(h.conns, conn)
				close(conn.Send)
			}
			h.mu.Unlock()
			return

		case conn := <-h.register:
			h.mu.Lock()
			h.conns[conn] = true
			h.mu.Unlock()
			h.log.Info("professional connected", "professional_id", conn.ProfessionalID)

		case conn := <-h.unregister:
			h.mu.Lock()
			if h.conns[conn] {
				delete(h.conns, conn)
				close(conn.Send)
				h.log.Info("professional disconnected", "professional_id", conn.ProfessionalID)
			}
			h.mu.Unlock()

		case data := <-h.broadcast:
			h.mu.RLock()
			for conn := range h.conns {
				select {
				case conn.Send <- data:
				default:
					h.log.Warn("dropping message for slow client", "professional_id", conn.ProfessionalID)
				}
			}
			h.mu.RUnlock()
		}
	}
}

// Register adds a connection
func (h *Hub) Register(conn *Connection) {
	select {
	case h.register <- conn:
	case <-h.done:
		close(conn.Send)
	}
}

// Unregister removes a connection
func (h *Hub) Unregister(conn *Connection) {
	select {
	case h.unregister <- conn:
	case <-h.done:
	}
}

// Connected returns the number of open professional connections
func (h *Hub) Connected() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// Close disconnects every client and stops the hub
func (h *Hub) Close() {
	h.closeOnce.Do(func() { close(h.done) })
}

// NotifyAlert pushes a new crisis alert to professionals (implements service.AlertNotifier)
func (h *Hub) NotifyAlert(ctx context.Context, alert *model.Alert) error {
	return h.publish(ctx, MsgCrisisAlert, alert)
}

// NotifyAcknowledged tells professionals an alert has been handled (implements service.AlertNotifier)
func (h *Hub) NotifyAcknowledged(ctx context.Context, alert *model.Alert) error {
	return h.publish(ctx, MsgAlertAcknowledged, alert)
}

func (h *Hub) publish(ctx context.Context, msgType MessageType, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	data, err := json.Marshal(&Message{Type: msgType, Payload: body})
	if err != nil {
		return err
	}

	select {
	case h.broadcast <- data:
		return nil
	case <-h.done:
		return context.Canceled
	case <-ctx.Done():
		return ctx.Err()
	}
}
