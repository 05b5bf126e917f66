package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"messaging-service/internal/directory"
	"messaging-service/internal/observability"
	"messaging-service/internal/repositories"
	"messaging-service/internal/telemetry"
)

// MessageHandler manages direct message endpoints.
type MessageHandler struct {
	messages repositories.DirectMessageRepository
	dir      directory.Directory
	events   *telemetry.EventEmitter
	audit    *telemetry.AuditEmitter
}

// NewMessageHandler builds a MessageHandler.
func NewMessageHandler(messages repositories.DirectMessageRepository, dir directory.Directory, events *telemetry.EventEmitter, audit *telemetry.AuditEmitter) *MessageHandler {
	return &MessageHandler{
		messages: messages,
		dir:      dir,
		events:   events,
		audit:    audit,
	}
}

type messageResponse struct {
	ID             int       `json:"id"`
	Content        string    `json:"content"`
	SenderID       int       `json:"sender_id"`
	SenderUsername string    `json:"sender_username,omitempty"`
	SenderAvatar   string    `json:"sender_avatar,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	IsMine         bool      `json:"is_mine"`
}

// GetConversation returns the caller's conversation with a peer, honoring the
// after cursor, and marks the peer's messages read as a side effect. Fails
// Forbidden when no follow edge exists between the two users.
func (h *MessageHandler) GetConversation(c *gin.Context) {
	peerID, err := strconv.Atoi(c.Param("peer_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid peer id"})
		return
	}
	afterID, ok := afterIDParam(c)
	if !ok {
		return
	}

	userID := c.GetInt("userID")
	connected, err := h.dir.HasConnection(c.Request.Context(), userID, peerID)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to verify connection"})
		return
	}
	if !connected {
		c.JSON(http.StatusForbidden, gin.H{"error": "users are not connected"})
		return
	}

	msgs, err := h.messages.ListConversation(c.Request.Context(), userID, peerID, afterID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load messages"})
		return
	}

	// Opening a conversation clears its unread state; no separate
	// acknowledgement round trip exists in the client contract.
	if err := h.messages.MarkConversationRead(c.Request.Context(), userID, peerID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update read state"})
		return
	}
	observability.IncReadMark("dm")

	users, err := h.dir.BulkUsers(c.Request.Context(), []int{userID, peerID})
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to load senders"})
		return
	}
	userByID := map[int]directory.User{}
	for _, u := range users {
		userByID[u.ID] = u
	}

	resp := make([]messageResponse, 0, len(msgs))
	for _, m := range msgs {
		sender := userByID[m.SenderID]
		resp = append(resp, messageResponse{
			ID:             m.ID,
			Content:        m.Content,
			SenderID:       m.SenderID,
			SenderUsername: sender.Username,
			SenderAvatar:   sender.AvatarURL,
			CreatedAt:      m.CreatedAt,
			IsMine:         m.SenderID == userID,
		})
	}

	c.JSON(http.StatusOK, gin.H{"messages": resp})
}

// SendMessage stores a direct message to the peer.
func (h *MessageHandler) SendMessage(c *gin.Context) {
	peerID, err := strconv.Atoi(c.Param("peer_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid peer id"})
		return
	}

	var req struct {
		Content string `json:"content" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID := c.GetInt("userID")
	if _, err := h.dir.GetUser(c.Request.Context(), peerID); err != nil {
		if errors.Is(err, directory.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to load user"})
		return
	}

	msg, err := h.messages.Create(c.Request.Context(), userID, peerID, req.Content)
	if err != nil {
		if errors.Is(err, repositories.ErrEmptyContent) || errors.Is(err, repositories.ErrContentTooLong) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		emitAudit(c, h.audit, "ERROR", "internal error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store message"})
		return
	}

	observability.IncMessageSent("dm")
	h.events.EmitMessageSent(c.Request.Context(), "dm", peerID, msg.ID, userID, requestIDFromContext(c))
	emitAudit(c, h.audit, "INFO", "Direct message sent")
	c.JSON(http.StatusCreated, msg)
}

// afterIDParam parses the optional incremental sync cursor. Zero means "from
// the start".
func afterIDParam(c *gin.Context) (int, bool) {
	raw := c.DefaultQuery("after", "0")
	afterID, err := strconv.Atoi(raw)
	if err != nil || afterID < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid after cursor"})
		return 0, false
	}
	return afterID, true
}
