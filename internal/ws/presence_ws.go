package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"chat-sync-service/internal/middleware"
	"chat-sync-service/internal/models"
	"chat-sync-service/internal/observability"
)

// ChatService is the slice of the engine the websocket transport drives.
type ChatService interface {
	OnPresenceChanged(ctx context.Context, username string, online bool) error
	SendMessages(ctx context.Context, batch []models.Conversation) ([]models.SendResult, error)
}

// PresenceWebSocketHandler owns the per-user channel lifecycle: connecting
// marks the user online, disconnecting marks them offline, and inbound frames
// carry message batches into the send pipeline.
type PresenceWebSocketHandler struct {
	hub       *Hub
	service   ChatService
	jwtSecret string
	logger    *zap.Logger
}

// NewPresenceWebSocketHandler constructs a PresenceWebSocketHandler.
func NewPresenceWebSocketHandler(hub *Hub, service ChatService, jwtSecret string, logger *zap.Logger) *PresenceWebSocketHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PresenceWebSocketHandler{hub: hub, service: service, jwtSecret: jwtSecret, logger: logger}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

type inboundFrame struct {
	Type     string                `json:"type"`
	Messages []models.Conversation `json:"messages"`
}

// Handle upgrades the connection, registers the user's channel and runs the
// read loop until the peer goes away.
func (h *PresenceWebSocketHandler) Handle(c *gin.Context) {
	ctx, span := otel.Tracer("chat-sync-service/ws").Start(c.Request.Context(), "ws.handshake")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	token := c.Query("token")
	if token == "" {
		token = bearerToken(c.GetHeader("Authorization"))
	}
	username, err := middleware.ParseToken(h.jwtSecret, token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	traceID := span.SpanContext().TraceID().String()
	requestID := observability.RequestIDFromRequest(c.Request)
	info := ConnInfo{
		ConnID:      newConnID(),
		Username:    username,
		DeviceID:    observability.DeviceIDFromRequest(c.Request),
		IP:          observability.IPFromRequest(c.Request),
		RequestID:   requestID,
		TraceID:     traceID,
		ConnectedAt: time.Now(),
	}
	h.hub.Register(username, conn, info)

	observability.IncWSActive()
	observability.IncWSEvent("ws_connect")
	_ = observability.PublishEvent(ctx, "ws_events.presence", observability.EventEnvelope{
		EventType: "ws_events",
		EventName: "ws_connect",
		Payload:   wsEventPayload("ws_connect", info, 0, ""),
	}, observability.BuildHeaders(requestID, traceID))

	if err := h.service.OnPresenceChanged(ctx, username, true); err != nil {
		h.logger.Error("presence connect failed", zap.String("username", username), zap.Error(err))
	}

	go h.readLoop(ctx, conn, info)
}

func (h *PresenceWebSocketHandler) readLoop(ctx context.Context, conn *websocket.Conn, info ConnInfo) {
	var closeReason string
	defer func() {
		h.hub.Unregister(info.Username, conn)
		conn.Close()
		observability.DecWSActive()
		observability.IncWSEvent("ws_disconnect")
		_ = observability.PublishEvent(context.Background(), "ws_events.presence", observability.EventEnvelope{
			EventType: "ws_events",
			EventName: "ws_disconnect",
			Payload:   wsEventPayload("ws_disconnect", info, time.Since(info.ConnectedAt).Milliseconds(), closeReason),
		}, observability.BuildHeaders(info.RequestID, info.TraceID))

		// The request context died with the socket.
		if err := h.service.OnPresenceChanged(context.Background(), info.Username, false); err != nil {
			h.logger.Error("presence disconnect failed", zap.String("username", info.Username), zap.Error(err))
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			closeReason = err.Error()
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				observability.IncWSEvent("ws_error")
				_ = observability.PublishEvent(ctx, "ws_events.presence", observability.EventEnvelope{
					EventType: "ws_events",
					EventName: "ws_error",
					Payload:   wsEventPayload("ws_error", info, time.Since(info.ConnectedAt).Milliseconds(), closeReason),
				}, observability.BuildHeaders(info.RequestID, info.TraceID))
			}
			return
		}
		h.handleFrame(ctx, info, data)
	}
}

func (h *PresenceWebSocketHandler) handleFrame(ctx context.Context, info ConnInfo, data []byte) {
	var frame inboundFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		h.logger.Warn("malformed websocket frame", zap.String("username", info.Username), zap.Error(err))
		return
	}

	switch frame.Type {
	case "send":
		for i := range frame.Messages {
			frame.Messages[i].Sender = info.Username
		}
		if _, err := h.service.SendMessages(ctx, frame.Messages); err != nil {
			h.logger.Warn("websocket send rejected", zap.String("username", info.Username), zap.Error(err))
		}
	default:
		h.logger.Debug("unknown websocket frame type",
			zap.String("username", info.Username),
			zap.String("type", frame.Type))
	}
}

func wsEventPayload(event string, info ConnInfo, durationMS int64, reason string) map[string]interface{} {
	return map[string]interface{}{
		"ws": map[string]interface{}{
			"event":       event,
			"conn_id":     info.ConnID,
			"duration_ms": durationMS,
			"reason":      reason,
		},
		"identity": map[string]interface{}{
			"username":  info.Username,
			"device_id": info.DeviceID,
			"ip":        info.IP,
		},
	}
}

func bearerToken(header string) string {
	const prefix = "Bearer "
	if len(header) > len(prefix) && header[:len(prefix)] == prefix {
		return header[len(prefix):]
	}
	return ""
}
