package ws

import (
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"wellmind/internal/logging"
	"wellmind/internal/service"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for dev
	},
}

// Handler handles WebSocket connections
type Handler struct {
	hub     *Hub
	authSvc *service.AuthService
	log     *slog.Logger
}

// NewHandler creates a new WebSocket handler
func NewHandler(hub *Hub, authSvc *service.AuthService) *Handler {
	return &Handler{
		hub:     hub,
		authSvc: authSvc,
		log:     logging.New("ws"),
	}
}

// AlertsWS handles GET /v1/ws/alerts
func (h *Handler) AlertsWS(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		http.Error(w, "missing token", http.StatusUnauthorized)
		return
	}

	claims, err := h.authSvc.ValidateProfessionalToken(token)
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	wsConn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", "error", err)
		return
	}

	conn := &Connection{
		ProfessionalID: claims.ProfessionalID,
		Send:           make(chan []byte, 256),
	}

	h.hub.Register(conn)

	go h.streamAlerts(wsConn, conn)
	go h.discardIncoming(wsConn, conn)
}

// discardIncoming keeps the read side alive for pongs and close frames. The alert
// stream is push-only, so client data frames are dropped unread.
func (h *Handler) discardIncoming(wsConn *websocket.Conn, conn *Connection) {
	defer func() {
		h.hub.Unregister(conn)
		wsConn.Close()
	}()

	wsConn.SetReadLimit(maxMessageSize)
	wsConn.SetReadDeadline(time.Now().Add(pongWait))
	wsConn.SetPongHandler(func(string) error {
		return wsConn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, r, err := wsConn.NextReader()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Warn("alert stream read error", "professional_id", conn.ProfessionalID, "error", err)
			}
			return
		}
		if _, err := io.Copy(io.Discard, r); err != nil {
			return
		}
	}
}

// streamAlerts writes each queued alert as its own text frame. When the hub shuts the
// connection down the client gets a going-away close frame.
func (h *Handler) streamAlerts(wsConn *websocket.Conn, conn *Connection) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		wsConn.Close()
	}()

	write := func(message []byte) bool {
		wsConn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := wsConn.WriteMessage(websocket.TextMessage, message); err != nil {
			h.log.Warn("alert delivery failed", "professional_id", conn.ProfessionalID, "error", err)
			return false
		}
		return true
	}
	goingAway := func() {
		wsConn.SetWriteDeadline(time.Now().Add(writeWait))
		wsConn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "alert stream closed"))
	}

	for {
		select {
		case message, ok := <-conn.Send:
			if !ok {
				goingAway()
				return
			}
			if !write(message) {
				return
			}
			// Catch a lagging client up before the next ping
			for n := len(conn.Send); n > 0; n-- {
				message, ok = <-conn.Send
				if !ok {
					goingAway()
					return
				}
				if !write(message) {
					return
				}
			}

		case <-ticker.C:
			wsConn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := wsConn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
