package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"messaging-service/internal/models"
)

// InboxBuilder is the aggregator contract the inbox endpoints depend on.
type InboxBuilder interface {
	BuildInbox(ctx context.Context, userID int) ([]models.ConversationSummary, error)
	TotalUnread(ctx context.Context, userID int) (int, error)
}

// InboxHandler serves the merged inbox view and the unread badge.
type InboxHandler struct {
	aggregator InboxBuilder
}

// NewInboxHandler builds an InboxHandler.
func NewInboxHandler(aggregator InboxBuilder) *InboxHandler {
	return &InboxHandler{aggregator: aggregator}
}

// GetInbox returns the caller's conversations, most recent activity first.
func (h *InboxHandler) GetInbox(c *gin.Context) {
	userID := c.GetInt("userID")
	summaries, err := h.aggregator.BuildInbox(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to build inbox"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"conversations": summaries})
}

// GetUnreadBadge returns the total unread count shown outside the messaging
// views.
func (h *InboxHandler) GetUnreadBadge(c *gin.Context) {
	userID := c.GetInt("userID")
	count, err := h.aggregator.TotalUnread(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load unread count"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": count})
}
