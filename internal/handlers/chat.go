package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"chat-sync-service/internal/apperrors"
	"chat-sync-service/internal/middleware"
	"chat-sync-service/internal/models"
)

// ChatService is the engine surface the HTTP layer exposes.
type ChatService interface {
	ListConnections(ctx context.Context, viewer string) ([]models.ConnectionView, error)
	ListMessages(ctx context.Context, viewer, counterpart string) ([]models.Conversation, error)
	SendMessages(ctx context.Context, batch []models.Conversation) ([]models.SendResult, error)
	DeleteMessages(ctx context.Context, viewer, counterpart string, ids []string, everyone bool) error
	SetChatOpen(ctx context.Context, viewer, counterpart, previous string) error
	CloseChat(ctx context.Context, viewer, counterpart string) error
	SetBlocked(ctx context.Context, viewer, counterpart string, blocked bool) error
	ClearChat(ctx context.Context, viewer, counterpart string) error
	DeleteConnection(ctx context.Context, viewer, counterpart string, block bool) error
	SearchUsers(ctx context.Context, query, viewer string) ([]models.UserSummary, error)
}

// ChatHandler serves the connection and conversation endpoints.
type ChatHandler struct {
	service ChatService
}

// NewChatHandler builds a ChatHandler.
func NewChatHandler(service ChatService) *ChatHandler {
	return &ChatHandler{service: service}
}

// RegisterRoutes wires the authenticated API surface.
func (h *ChatHandler) RegisterRoutes(r gin.IRoutes) {
	r.GET("/connections", h.ListConnections)
	r.GET("/connections/:username/messages", h.ListMessages)
	r.POST("/connections/:username/messages", h.PostMessages)
	r.DELETE("/connections/:username/messages", h.DeleteMessages)
	r.POST("/connections/:username/open", h.OpenChat)
	r.POST("/connections/:username/close", h.CloseChat)
	r.POST("/connections/:username/block", h.SetBlocked)
	r.POST("/connections/:username/clear", h.ClearChat)
	r.DELETE("/connections/:username", h.DeleteConnection)
	r.GET("/users/search/:query", h.SearchUsers)
}

// ListConnections returns the caller's connection list, newest activity first.
func (h *ChatHandler) ListConnections(c *gin.Context) {
	viewer := middleware.Username(c)

	views, err := h.service.ListConnections(c.Request.Context(), viewer)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"connections": views})
}

// ListMessages returns the caller's visible thread with the counterpart.
func (h *ChatHandler) ListMessages(c *gin.Context) {
	viewer := middleware.Username(c)
	counterpart := c.Param("username")

	msgs, err := h.service.ListMessages(c.Request.Context(), viewer, counterpart)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

// PostMessages runs the send pipeline for a batch addressed to the counterpart.
func (h *ChatHandler) PostMessages(c *gin.Context) {
	viewer := middleware.Username(c)
	counterpart := c.Param("username")

	var req struct {
		Messages []models.Conversation `json:"messages" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	for i := range req.Messages {
		req.Messages[i].Sender = viewer
		req.Messages[i].Receiver = counterpart
	}

	results, err := h.service.SendMessages(c.Request.Context(), req.Messages)
	if err != nil {
		abortWithError(c, err)
		return
	}

	status := http.StatusOK
	for _, res := range results {
		if res.StatusCode == http.StatusCreated {
			status = http.StatusCreated
			break
		}
	}
	c.JSON(status, gin.H{"results": results})
}

// DeleteMessages soft- or hard-deletes a batch of messages in the thread.
func (h *ChatHandler) DeleteMessages(c *gin.Context) {
	viewer := middleware.Username(c)
	counterpart := c.Param("username")

	var req struct {
		MessageIDs  []string `json:"message_ids" binding:"required"`
		ForEveryone bool     `json:"for_everyone"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.service.DeleteMessages(c.Request.Context(), viewer, counterpart, req.MessageIDs, req.ForEveryone); err != nil {
		abortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// OpenChat focuses the counterpart's thread and marks inbound messages read.
func (h *ChatHandler) OpenChat(c *gin.Context) {
	viewer := middleware.Username(c)
	counterpart := c.Param("username")

	var req struct {
		Previous string `json:"previous"`
	}
	// Body is optional; an empty body means no previously focused thread.
	_ = c.ShouldBindJSON(&req)

	if err := h.service.SetChatOpen(c.Request.Context(), viewer, counterpart, req.Previous); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "opened"})
}

// CloseChat drops the focus flag for the counterpart's thread.
func (h *ChatHandler) CloseChat(c *gin.Context) {
	viewer := middleware.Username(c)
	counterpart := c.Param("username")

	if err := h.service.CloseChat(c.Request.Context(), viewer, counterpart); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "closed"})
}

// SetBlocked toggles the caller's block on the counterpart.
func (h *ChatHandler) SetBlocked(c *gin.Context) {
	viewer := middleware.Username(c)
	counterpart := c.Param("username")

	var req struct {
		Blocked *bool `json:"blocked" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.service.SetBlocked(c.Request.Context(), viewer, counterpart, *req.Blocked); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "updated"})
}

// ClearChat hides all current messages from the caller's side of the thread.
func (h *ChatHandler) ClearChat(c *gin.Context) {
	viewer := middleware.Username(c)
	counterpart := c.Param("username")

	if err := h.service.ClearChat(c.Request.Context(), viewer, counterpart); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "cleared"})
}

// DeleteConnection hides the connection from the caller's side, optionally
// blocking the counterpart at the same time.
func (h *ChatHandler) DeleteConnection(c *gin.Context) {
	viewer := middleware.Username(c)
	counterpart := c.Param("username")
	block := c.Query("block") == "true"

	if err := h.service.DeleteConnection(c.Request.Context(), viewer, counterpart, block); err != nil {
		abortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// SearchUsers finds users by username or email substring.
func (h *ChatHandler) SearchUsers(c *gin.Context) {
	viewer := middleware.Username(c)
	query := c.Param("query")

	users, err := h.service.SearchUsers(c.Request.Context(), query, viewer)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

func abortWithError(c *gin.Context, err error) {
	c.JSON(apperrors.HTTPStatus(err), gin.H{"error": err.Error()})
}
