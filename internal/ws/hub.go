package ws

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"chat-sync-service/internal/models"
	"chat-sync-service/internal/observability"
)

// Hub maintains one private push channel per username. Multi-device fanout is
// out of scope: a newer connection for the same user replaces the older one.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*client
	logger  *zap.Logger
}

type client struct {
	conn *websocket.Conn
	info ConnInfo

	// Serializes writes; pushes may come from concurrent operations.
	writeMu sync.Mutex
}

// NewHub creates an empty hub.
func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{clients: make(map[string]*client), logger: logger}
}

// Register binds a connection to a username, closing any previous one.
func (h *Hub) Register(username string, conn *websocket.Conn, info ConnInfo) {
	h.mu.Lock()
	previous := h.clients[username]
	h.clients[username] = &client{conn: conn, info: info}
	h.mu.Unlock()

	if previous != nil {
		_ = previous.conn.Close()
	}
}

// Unregister removes the binding, but only if it still points at conn. A
// replacement connection must not be torn down by the old one's cleanup.
func (h *Hub) Unregister(username string, conn *websocket.Conn) {
	h.mu.Lock()
	if current, ok := h.clients[username]; ok && current.conn == conn {
		delete(h.clients, username)
	}
	h.mu.Unlock()
}

// Push delivers fanout payloads to the user's channel. Users without a live
// channel miss the push; the next full fetch is the recovery path.
func (h *Hub) Push(username string, payloads []models.StatusResponse) {
	h.mu.RLock()
	cl := h.clients[username]
	h.mu.RUnlock()
	if cl == nil {
		return
	}

	body, err := json.Marshal(payloads)
	if err != nil {
		h.logger.Error("marshal fanout payload", zap.Error(err))
		return
	}

	cl.writeMu.Lock()
	err = cl.conn.WriteMessage(websocket.TextMessage, body)
	cl.writeMu.Unlock()
	if err != nil {
		h.logger.Warn("websocket write failed",
			zap.String("username", username),
			zap.Error(err))
		_ = cl.conn.Close()
		h.Unregister(username, cl.conn)
		h.publishWSError(cl.info, err)
	}
}

func (h *Hub) publishWSError(info ConnInfo, cause error) {
	observability.IncWSEvent("ws_error")
	_ = observability.PublishEvent(context.Background(), "ws_events.presence", observability.EventEnvelope{
		EventType: "ws_events",
		EventName: "ws_error",
		Payload:   wsEventPayload("ws_error", info, time.Since(info.ConnectedAt).Milliseconds(), cause.Error()),
	}, observability.BuildHeaders(info.RequestID, info.TraceID))
}
