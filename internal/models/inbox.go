package models

import "time"

// ConversationKind tags the two conversation variants merged into one inbox.
type ConversationKind string

const (
	ConversationDM    ConversationKind = "dm"
	ConversationGroup ConversationKind = "group"
)

// MessagePreview is the last-message projection shown on an inbox row.
type MessagePreview struct {
	ID        int       `json:"id"`
	SenderID  int       `json:"sender_id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// ConversationSummary is a derived inbox row, recomputed per request. For
// dm-kind rows the Peer fields are set; for group-kind rows the Group fields.
// SortKey is the last message's timestamp, or the zero time for conversations
// with no messages yet so they sort after every real conversation.
type ConversationSummary struct {
	Kind          ConversationKind `json:"kind"`
	PeerID        int              `json:"peer_id,omitempty"`
	PeerUsername  string           `json:"peer_username,omitempty"`
	PeerAvatarURL string           `json:"peer_avatar_url,omitempty"`
	GroupID       int              `json:"group_id,omitempty"`
	GroupName     string           `json:"group_name,omitempty"`
	LastMessage   *MessagePreview  `json:"last_message,omitempty"`
	UnreadCount   int              `json:"unread_count"`
	SortKey       time.Time        `json:"last_activity_at"`
}
