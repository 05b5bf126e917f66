package repositories

import (
	"context"
	"errors"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"messaging-service/internal/models"
)

var (
	ErrEmptyContent   = errors.New("message content is empty")
	ErrContentTooLong = errors.New("message content exceeds maximum length")
)

// DirectMessageRepository abstracts 1:1 message persistence and read state.
type DirectMessageRepository interface {
	Create(ctx context.Context, senderID int, receiverID int, content string) (models.DirectMessage, error)
	ListConversation(ctx context.Context, userID int, peerID int, afterID int) ([]models.DirectMessage, error)
	MarkConversationRead(ctx context.Context, receiverID int, senderID int) error
	UnreadCount(ctx context.Context, ownerID int) (int, error)
	UnreadCountsBySender(ctx context.Context, ownerID int) (map[int]int, error)
	LastMessagesByPeer(ctx context.Context, ownerID int, peerIDs []int) (map[int]models.DirectMessage, error)
}

// DirectMessageRepo is a sqlx implementation of DirectMessageRepository.
type DirectMessageRepo struct {
	db *sqlx.DB
}

// NewDirectMessageRepo constructs a DirectMessageRepo.
func NewDirectMessageRepo(db *sqlx.DB) *DirectMessageRepo {
	return &DirectMessageRepo{db: db}
}

// validateContent trims and bounds a message body. Shared by direct and group
// message creation.
func validateContent(content string) (string, error) {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return "", ErrEmptyContent
	}
	if len([]rune(trimmed)) > models.MaxContentLength {
		return "", ErrContentTooLong
	}
	return trimmed, nil
}

// Create stores a direct message with is_read=false. Eligibility is the
// caller's concern; no connection check happens here.
func (r *DirectMessageRepo) Create(ctx context.Context, senderID int, receiverID int, content string) (models.DirectMessage, error) {
	trimmed, err := validateContent(content)
	if err != nil {
		return models.DirectMessage{}, err
	}

	var msg models.DirectMessage
	err = r.db.QueryRowxContext(ctx, `INSERT INTO direct_messages (sender_id, receiver_id, content) VALUES ($1, $2, $3)
        RETURNING id, sender_id, receiver_id, content, is_read, created_at`, senderID, receiverID, trimmed).
		Scan(&msg.ID, &msg.SenderID, &msg.ReceiverID, &msg.Content, &msg.IsRead, &msg.CreatedAt)
	return msg, err
}

// ListConversation returns messages between two users with id > afterID,
// ascending by created_at with ties broken by id. Safe to call repeatedly with
// an advancing afterID as a delivery cursor.
func (r *DirectMessageRepo) ListConversation(ctx context.Context, userID int, peerID int, afterID int) ([]models.DirectMessage, error) {
	var msgs []models.DirectMessage
	err := r.db.SelectContext(ctx, &msgs, `SELECT id, sender_id, receiver_id, content, is_read, created_at
        FROM direct_messages
        WHERE ((sender_id=$1 AND receiver_id=$2) OR (sender_id=$2 AND receiver_id=$1)) AND id > $3
        ORDER BY created_at ASC, id ASC`, userID, peerID, afterID)
	return msgs, err
}

// MarkConversationRead flips every unread message from sender to receiver to
// read. Idempotent; the false→true transition is never reversed.
func (r *DirectMessageRepo) MarkConversationRead(ctx context.Context, receiverID int, senderID int) error {
	_, err := r.db.ExecContext(ctx, `UPDATE direct_messages SET is_read = TRUE
        WHERE receiver_id=$1 AND sender_id=$2 AND is_read = FALSE`, receiverID, senderID)
	return err
}

// UnreadCount counts unread messages addressed to the owner across all senders.
// Messages the owner sent are never counted.
func (r *DirectMessageRepo) UnreadCount(ctx context.Context, ownerID int) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM direct_messages WHERE receiver_id=$1 AND is_read = FALSE`, ownerID)
	return count, err
}

// UnreadCountsBySender returns the owner's unread counts keyed by sender,
// used for per-conversation inbox badges.
func (r *DirectMessageRepo) UnreadCountsBySender(ctx context.Context, ownerID int) (map[int]int, error) {
	rows, err := r.db.QueryxContext(ctx, `SELECT sender_id, COUNT(*) AS unread FROM direct_messages
        WHERE receiver_id=$1 AND is_read = FALSE GROUP BY sender_id`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := map[int]int{}
	for rows.Next() {
		var senderID, unread int
		if err := rows.Scan(&senderID, &unread); err != nil {
			return nil, err
		}
		counts[senderID] = unread
	}
	return counts, rows.Err()
}

type directMessageWithPeer struct {
	models.DirectMessage
	PeerID int `db:"peer_id"`
}

// LastMessagesByPeer returns the most recent message the owner exchanged with
// each of the given peers, keyed by peer id. Peers with no history are absent
// from the result.
func (r *DirectMessageRepo) LastMessagesByPeer(ctx context.Context, ownerID int, peerIDs []int) (map[int]models.DirectMessage, error) {
	if len(peerIDs) == 0 {
		return map[int]models.DirectMessage{}, nil
	}

	query := `SELECT DISTINCT ON (peer_id) id, sender_id, receiver_id, content, is_read, created_at, peer_id FROM (
            SELECT m.*, CASE WHEN m.sender_id=$1 THEN m.receiver_id ELSE m.sender_id END AS peer_id
            FROM direct_messages m
            WHERE m.sender_id=$1 OR m.receiver_id=$1
        ) conv
        WHERE peer_id = ANY($2)
        ORDER BY peer_id, created_at DESC, id DESC`
	rows, err := r.db.QueryxContext(ctx, query, ownerID, pq.Array(peerIDs))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := map[int]models.DirectMessage{}
	for rows.Next() {
		var row directMessageWithPeer
		if err := rows.StructScan(&row); err != nil {
			return nil, err
		}
		result[row.PeerID] = row.DirectMessage
	}
	return result, rows.Err()
}
