package models

import "time"

// DirectMessage is a 1:1 message between two users. IsRead is meaningful only
// from the receiver's perspective; the sender implicitly counts as having read
// their own messages.
type DirectMessage struct {
	ID         int       `db:"id" json:"id"`
	SenderID   int       `db:"sender_id" json:"sender_id"`
	ReceiverID int       `db:"receiver_id" json:"receiver_id"`
	Content    string    `db:"content" json:"content"`
	IsRead     bool      `db:"is_read" json:"is_read"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// MaxContentLength bounds message bodies, direct and group alike.
const MaxContentLength = 1000
