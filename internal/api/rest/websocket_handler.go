package rest

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"log/slog"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/invoicekit/invoice-studio/internal/service/invoicing"
	"github.com/invoicekit/invoice-studio/internal/service/rendering"
)

// PreviewHub pushes invoice snapshots to live-preview clients. Each
// websocket client watches a single invoice session; every mutation on
// that session fans out the fresh snapshot to its watchers.
type PreviewHub struct {
	sessions *invoicing.Service
	clients  map[uuid.UUID]map[*previewClient]bool // session ID -> watchers
	mu       sync.RWMutex
	logger   *slog.Logger
	config   PreviewConfig
	closed   chan struct{}
	once     sync.Once
}

// PreviewConfig holds websocket tuning knobs.
type PreviewConfig struct {
	WriteTimeout    time.Duration
	PongTimeout     time.Duration
	PingPeriod      time.Duration
	MaxMessageSize  int64
	ReadBufferSize  int
	WriteBufferSize int
	CheckOrigin     func(r *http.Request) bool
}

// DefaultPreviewConfig returns default configuration
func DefaultPreviewConfig() PreviewConfig {
	return PreviewConfig{
		WriteTimeout:    10 * time.Second,
		PongTimeout:     60 * time.Second,
		PingPeriod:      54 * time.Second, // Must be less than PongTimeout
		MaxMessageSize:  4 * 1024,
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			// Origin policy is enforced by corsMiddleware for the REST
			// surface; the preview socket accepts any origin.
			return true
		},
	}
}

type previewClient struct {
	sessionID uuid.UUID
	conn      *websocket.Conn
	send      chan []byte
	hub       *PreviewHub
}

// previewMessage is the envelope written to preview clients.
type previewMessage struct {
	Type      string              `json:"type"`
	SessionID uuid.UUID           `json:"sessionId"`
	Snapshot  *rendering.Snapshot `json:"snapshot,omitempty"`
	Timestamp time.Time           `json:"timestamp"`
}

// NewPreviewHub creates a hub bound to the session service.
func NewPreviewHub(sessions *invoicing.Service, logger *slog.Logger) *PreviewHub {
	return &PreviewHub{
		sessions: sessions,
		clients:  make(map[uuid.UUID]map[*previewClient]bool),
		logger:   logger,
		config:   DefaultPreviewConfig(),
		closed:   make(chan struct{}),
	}
}

// InvoiceChanged implements invoicing.Notifier. It is called after every
// committed mutation with the snapshot built under the session lock.
func (h *PreviewHub) InvoiceChanged(sessionID uuid.UUID, snap *rendering.Snapshot) {
	payload, err := json.Marshal(previewMessage{
		Type:      "snapshot",
		SessionID: sessionID,
		Snapshot:  snap,
		Timestamp: time.Now().UTC(),
	})
	if err != nil {
		h.logger.Error("marshal preview snapshot", "error", err, "session_id", sessionID)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients[sessionID] {
		select {
		case client.send <- payload:
		default:
			// Slow consumer; drop this update rather than block the
			// mutation path. The next change resyncs it.
			h.logger.Warn("preview client lagging, dropping update", "session_id", sessionID)
		}
	}
}

// ServeHTTP upgrades GET /ws?session={id} connections.
func (h *PreviewHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	select {
	case <-h.closed:
		http.Error(w, "Server shutting down", http.StatusServiceUnavailable)
		return
	default:
	}

	sessionID, err := uuid.Parse(r.URL.Query().Get("session"))
	if err != nil {
		http.Error(w, "Invalid or missing session parameter", http.StatusBadRequest)
		return
	}

	// Build the initial snapshot before upgrading so a bad session id
	// still gets a proper HTTP status.
	snap, err := h.sessions.Snapshot(r.Context(), sessionID)
	if err != nil {
		http.Error(w, "Session not found", http.StatusNotFound)
		return
	}

	upgrader := websocket.Upgrader{
		ReadBufferSize:  h.config.ReadBufferSize,
		WriteBufferSize: h.config.WriteBufferSize,
		CheckOrigin:     h.config.CheckOrigin,
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	client := &previewClient{
		sessionID: sessionID,
		conn:      conn,
		send:      make(chan []byte, 16),
		hub:       h,
	}

	conn.SetReadLimit(h.config.MaxMessageSize)
	conn.SetReadDeadline(time.Now().Add(h.config.PongTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(h.config.PongTimeout))
	})

	h.register(client)
	go client.writePump()
	go client.readPump()

	// Seed the preview so the client renders without waiting for a change.
	h.InvoiceChanged(sessionID, snap)

	h.logger.Info("preview client connected", "session_id", sessionID)
}

// Close disconnects all clients and rejects further upgrades.
func (h *PreviewHub) Close() {
	h.once.Do(func() {
		close(h.closed)

		h.mu.Lock()
		defer h.mu.Unlock()
		for _, watchers := range h.clients {
			for client := range watchers {
				close(client.send)
			}
		}
		h.clients = make(map[uuid.UUID]map[*previewClient]bool)
	})
}

func (h *PreviewHub) register(c *previewClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[c.sessionID] == nil {
		h.clients[c.sessionID] = make(map[*previewClient]bool)
	}
	h.clients[c.sessionID][c] = true
	previewClientsConnected.Inc()
}

func (h *PreviewHub) unregister(c *previewClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	watchers := h.clients[c.sessionID]
	if watchers == nil || !watchers[c] {
		return
	}
	delete(watchers, c)
	if len(watchers) == 0 {
		delete(h.clients, c.sessionID)
	}
	close(c.send)
	previewClientsConnected.Dec()
}

// readPump drains client frames. The preview socket is push-only, so
// anything but control frames is discarded; reading is still required to
// process pongs and detect closure.
func (c *previewClient) readPump() {
	defer func() {
		c.hub.unregister(c)
		c.conn.Close()
	}()

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				c.hub.logger.Error("websocket read error", "error", err, "session_id", c.sessionID)
			}
			return
		}
	}
}

// writePump serializes all writes to the connection.
func (c *previewClient) writePump() {
	ticker := time.NewTicker(c.hub.config.PingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(c.hub.config.WriteTimeout))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(c.hub.config.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
