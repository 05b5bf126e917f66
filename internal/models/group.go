package models

import "time"

// Membership roles.
const (
	RoleAdmin  = "admin"
	RoleMember = "member"
)

// Group is a named chat group. CreatorID is nullable so groups survive the
// deletion of their creator's account.
type Group struct {
	ID          int       `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Description string    `db:"description" json:"description"`
	CreatorID   *int      `db:"creator_id" json:"creator_id,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// GroupMember ties a user to a group with a role. A user belongs to a group at
// most once, enforced by the (group_id, user_id) primary key.
type GroupMember struct {
	GroupID  int       `db:"group_id" json:"group_id"`
	UserID   int       `db:"user_id" json:"user_id"`
	Role     string    `db:"role" json:"role"`
	JoinedAt time.Time `db:"joined_at" json:"joined_at"`
}

// GroupMessage is a message sent in a group. Read receipts live in a separate
// set-valued table, one row per (message, reader).
type GroupMessage struct {
	ID        int       `db:"id" json:"id"`
	GroupID   int       `db:"group_id" json:"group_id"`
	SenderID  int       `db:"sender_id" json:"sender_id"`
	Content   string    `db:"content" json:"content"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
