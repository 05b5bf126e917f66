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

// GroupHandler manages group roster and group message endpoints.
type GroupHandler struct {
	groups   repositories.GroupRepository
	messages repositories.GroupMessageRepository
	dir      directory.Directory
	events   *telemetry.EventEmitter
	audit    *telemetry.AuditEmitter
}

// NewGroupHandler constructs a GroupHandler.
func NewGroupHandler(groups repositories.GroupRepository, messages repositories.GroupMessageRepository, dir directory.Directory, events *telemetry.EventEmitter, audit *telemetry.AuditEmitter) *GroupHandler {
	return &GroupHandler{
		groups:   groups,
		messages: messages,
		dir:      dir,
		events:   events,
		audit:    audit,
	}
}

// CreateGroup handles POST /groups. The creator becomes the group's admin;
// any listed members join with the member role.
func (h *GroupHandler) CreateGroup(c *gin.Context) {
	userID := c.GetInt("userID")

	var req struct {
		Name        string `json:"name" binding:"required"`
		Description string `json:"description"`
		MemberIDs   []int  `json:"member_ids"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		emitAudit(c, h.audit, "ERROR", "invalid request payload")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// Only ids the user directory knows become members; unknown ids are
	// skipped, not rejected.
	memberIDs := req.MemberIDs
	if len(req.MemberIDs) > 0 {
		users, err := h.dir.BulkUsers(c.Request.Context(), req.MemberIDs)
		if err != nil {
			c.JSON(http.StatusBadGateway, gin.H{"error": "failed to validate members"})
			return
		}
		known := make(map[int]struct{}, len(users))
		for _, u := range users {
			known[u.ID] = struct{}{}
		}
		memberIDs = make([]int, 0, len(req.MemberIDs))
		for _, id := range req.MemberIDs {
			if _, ok := known[id]; ok {
				memberIDs = append(memberIDs, id)
			}
		}
	}

	group, err := h.groups.CreateGroup(c.Request.Context(), userID, req.Name, req.Description, memberIDs)
	if err != nil {
		if errors.Is(err, repositories.ErrEmptyGroupName) || errors.Is(err, repositories.ErrGroupNameTooLong) || errors.Is(err, repositories.ErrDescriptionTooLong) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		emitAudit(c, h.audit, "ERROR", "internal error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create group"})
		return
	}

	emitAudit(c, h.audit, "INFO", "Group created")
	c.JSON(http.StatusCreated, gin.H{"group_id": group.ID})
}

// ListGroups returns groups the caller belongs to.
func (h *GroupHandler) ListGroups(c *gin.Context) {
	userID := c.GetInt("userID")
	groups, err := h.groups.ListGroupsForUser(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load groups"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"groups": groups})
}

// GetMembers returns the group roster with roles, visible to members only.
func (h *GroupHandler) GetMembers(c *gin.Context) {
	groupID, userID, ok := h.requireGroup(c)
	if !ok {
		return
	}

	member, err := h.groups.IsMember(c.Request.Context(), groupID, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "membership check failed"})
		return
	}
	if !member {
		c.JSON(http.StatusForbidden, gin.H{"error": "not a member"})
		return
	}

	members, err := h.groups.ListMembers(c.Request.Context(), groupID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load members"})
		return
	}

	userIDs := make([]int, 0, len(members))
	for _, m := range members {
		userIDs = append(userIDs, m.UserID)
	}
	users, err := h.dir.BulkUsers(c.Request.Context(), userIDs)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to load member info"})
		return
	}
	userByID := map[int]directory.User{}
	for _, u := range users {
		userByID[u.ID] = u
	}

	type memberResponse struct {
		UserID    int       `json:"user_id"`
		Username  string    `json:"username,omitempty"`
		AvatarURL string    `json:"avatar_url,omitempty"`
		Role      string    `json:"role"`
		JoinedAt  time.Time `json:"joined_at"`
	}

	resp := make([]memberResponse, 0, len(members))
	for _, m := range members {
		u := userByID[m.UserID]
		resp = append(resp, memberResponse{
			UserID:    m.UserID,
			Username:  u.Username,
			AvatarURL: u.AvatarURL,
			Role:      m.Role,
			JoinedAt:  m.JoinedAt,
		})
	}

	c.JSON(http.StatusOK, gin.H{"members": resp})
}

// GetGroupMessages returns group messages after the cursor and records the
// caller's read receipts for exactly the returned slice.
func (h *GroupHandler) GetGroupMessages(c *gin.Context) {
	groupID, userID, ok := h.requireGroup(c)
	if !ok {
		return
	}
	afterID, ok := afterIDParam(c)
	if !ok {
		return
	}

	member, err := h.groups.IsMember(c.Request.Context(), groupID, userID)
	if err != nil {
		emitAudit(c, h.audit, "ERROR", "internal error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "membership check failed"})
		return
	}
	if !member {
		emitAudit(c, h.audit, "ERROR", "not allowed")
		c.JSON(http.StatusForbidden, gin.H{"error": "not a member"})
		return
	}

	msgs, err := h.messages.ListConversation(c.Request.Context(), groupID, afterID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load messages"})
		return
	}

	messageIDs := make([]int, 0, len(msgs))
	for _, m := range msgs {
		messageIDs = append(messageIDs, m.ID)
	}
	if err := h.messages.MarkRead(c.Request.Context(), userID, messageIDs); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update read state"})
		return
	}
	if len(messageIDs) > 0 {
		observability.IncReadMark("group")
	}

	senderIDs := make([]int, 0, len(msgs))
	seen := map[int]struct{}{}
	for _, m := range msgs {
		if _, ok := seen[m.SenderID]; !ok {
			seen[m.SenderID] = struct{}{}
			senderIDs = append(senderIDs, m.SenderID)
		}
	}

	userByID := map[int]directory.User{}
	if len(senderIDs) > 0 {
		users, err := h.dir.BulkUsers(c.Request.Context(), senderIDs)
		if err != nil {
			c.JSON(http.StatusBadGateway, gin.H{"error": "failed to load senders"})
			return
		}
		for _, u := range users {
			userByID[u.ID] = u
		}
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

// GetGroupUnreadCount returns the caller's unread count for one group, the
// per-conversation badge shown on a group row.
func (h *GroupHandler) GetGroupUnreadCount(c *gin.Context) {
	groupID, userID, ok := h.requireGroup(c)
	if !ok {
		return
	}

	member, err := h.groups.IsMember(c.Request.Context(), groupID, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "membership check failed"})
		return
	}
	if !member {
		c.JSON(http.StatusForbidden, gin.H{"error": "not a member"})
		return
	}

	count, err := h.messages.UnreadCountForGroup(c.Request.Context(), groupID, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load unread count"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": count})
}

// PostGroupMessage stores a group message. The sender's own read receipt is
// written with the message.
func (h *GroupHandler) PostGroupMessage(c *gin.Context) {
	groupID, userID, ok := h.requireGroup(c)
	if !ok {
		return
	}

	var req struct {
		Content string `json:"content" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		emitAudit(c, h.audit, "ERROR", "invalid request payload")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	msg, err := h.messages.Create(c.Request.Context(), groupID, userID, req.Content)
	if err != nil {
		switch {
		case errors.Is(err, repositories.ErrNotAMember):
			emitAudit(c, h.audit, "ERROR", "not allowed")
			c.JSON(http.StatusForbidden, gin.H{"error": "not a member"})
		case errors.Is(err, repositories.ErrEmptyContent), errors.Is(err, repositories.ErrContentTooLong):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			emitAudit(c, h.audit, "ERROR", "internal error")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store message"})
		}
		return
	}

	observability.IncMessageSent("group")
	h.events.EmitMessageSent(c.Request.Context(), "group", groupID, msg.ID, userID, requestIDFromContext(c))
	emitAudit(c, h.audit, "INFO", "Group message sent")
	c.JSON(http.StatusCreated, msg)
}

// AddMember adds a user to the group. Admin only; adding an existing member
// succeeds without effect.
func (h *GroupHandler) AddMember(c *gin.Context) {
	groupID, userID, ok := h.requireGroup(c)
	if !ok {
		return
	}

	var req struct {
		UserID int `json:"user_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	target, err := h.dir.GetUser(c.Request.Context(), req.UserID)
	if err != nil {
		if errors.Is(err, directory.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to load user"})
		return
	}

	if err := h.groups.AddMember(c.Request.Context(), groupID, userID, req.UserID); err != nil {
		if errors.Is(err, repositories.ErrNotAdmin) {
			emitAudit(c, h.audit, "ERROR", "not allowed")
			c.JSON(http.StatusForbidden, gin.H{"error": "only admins can add members"})
			return
		}
		emitAudit(c, h.audit, "ERROR", "internal error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not add member"})
		return
	}

	emitAudit(c, h.audit, "INFO", "Group member added")
	c.JSON(http.StatusOK, gin.H{"status": "ok", "username": target.Username})
}

// RemoveMember removes a user from the group. Admin only; removing an absent
// member succeeds without effect.
func (h *GroupHandler) RemoveMember(c *gin.Context) {
	groupID, userID, ok := h.requireGroup(c)
	if !ok {
		return
	}
	targetID, err := strconv.Atoi(c.Param("user_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}

	if err := h.groups.RemoveMember(c.Request.Context(), groupID, userID, targetID); err != nil {
		if errors.Is(err, repositories.ErrNotAdmin) {
			emitAudit(c, h.audit, "ERROR", "not allowed")
			c.JSON(http.StatusForbidden, gin.H{"error": "only admins can remove members"})
			return
		}
		emitAudit(c, h.audit, "ERROR", "internal error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not remove member"})
		return
	}

	emitAudit(c, h.audit, "INFO", "Group member removed")
	c.Status(http.StatusNoContent)
}

// LeaveGroup removes the caller's own membership. Always succeeds, even for
// the last admin; the group is left as-is with no promotion or disbanding.
func (h *GroupHandler) LeaveGroup(c *gin.Context) {
	groupID, userID, ok := h.requireGroup(c)
	if !ok {
		return
	}

	if err := h.groups.Leave(c.Request.Context(), groupID, userID); err != nil {
		emitAudit(c, h.audit, "ERROR", "internal error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not leave group"})
		return
	}

	emitAudit(c, h.audit, "INFO", "Left group")
	c.Status(http.StatusNoContent)
}

// requireGroup parses the group id, verifies the group exists, and returns the
// caller's user id.
func (h *GroupHandler) requireGroup(c *gin.Context) (int, int, bool) {
	groupID, err := strconv.Atoi(c.Param("group_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid group id"})
		return 0, 0, false
	}

	if _, err := h.groups.GetGroup(c.Request.Context(), groupID); err != nil {
		if errors.Is(err, repositories.ErrGroupNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "group not found"})
			return 0, 0, false
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load group"})
		return 0, 0, false
	}

	return groupID, c.GetInt("userID"), true
}
