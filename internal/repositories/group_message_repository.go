package repositories

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"messaging-service/internal/models"
)

// GroupMessageRepository abstracts group message persistence and the
// set-valued read receipts attached to each message.
type GroupMessageRepository interface {
	Create(ctx context.Context, groupID int, senderID int, content string) (models.GroupMessage, error)
	ListConversation(ctx context.Context, groupID int, afterID int) ([]models.GroupMessage, error)
	MarkRead(ctx context.Context, userID int, messageIDs []int) error
	UnreadCount(ctx context.Context, ownerID int) (int, error)
	UnreadCountForGroup(ctx context.Context, groupID int, ownerID int) (int, error)
	UnreadCountsByGroup(ctx context.Context, ownerID int) (map[int]int, error)
	LastMessagesByGroup(ctx context.Context, groupIDs []int) (map[int]models.GroupMessage, error)
}

// GroupMessageRepo is a sqlx implementation of GroupMessageRepository.
type GroupMessageRepo struct {
	db *sqlx.DB
}

// NewGroupMessageRepo constructs a GroupMessageRepo.
func NewGroupMessageRepo(db *sqlx.DB) *GroupMessageRepo {
	return &GroupMessageRepo{db: db}
}

// Create persists a group message and the sender's own read receipt in one
// transaction. Fails with ErrNotAMember when the sender has no membership.
func (r *GroupMessageRepo) Create(ctx context.Context, groupID int, senderID int, content string) (models.GroupMessage, error) {
	trimmed, err := validateContent(content)
	if err != nil {
		return models.GroupMessage{}, err
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.GroupMessage{}, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	var member bool
	if err = tx.GetContext(ctx, &member, `SELECT EXISTS(SELECT 1 FROM group_members WHERE group_id=$1 AND user_id=$2)`,
		groupID, senderID); err != nil {
		return models.GroupMessage{}, err
	}
	if !member {
		err = ErrNotAMember
		return models.GroupMessage{}, err
	}

	var msg models.GroupMessage
	if err = tx.QueryRowxContext(ctx, `INSERT INTO group_messages (group_id, sender_id, content) VALUES ($1, $2, $3)
        RETURNING id, group_id, sender_id, content, created_at`, groupID, senderID, trimmed).
		Scan(&msg.ID, &msg.GroupID, &msg.SenderID, &msg.Content, &msg.CreatedAt); err != nil {
		return models.GroupMessage{}, err
	}

	// The sender has read their own message, mirroring DM semantics.
	if _, err = tx.ExecContext(ctx, `INSERT INTO group_message_reads (message_id, user_id) VALUES ($1, $2)`,
		msg.ID, senderID); err != nil {
		return models.GroupMessage{}, err
	}

	if err = tx.Commit(); err != nil {
		return models.GroupMessage{}, err
	}
	return msg, nil
}

// ListConversation returns group messages with id > afterID, ascending by
// created_at with ties broken by id.
func (r *GroupMessageRepo) ListConversation(ctx context.Context, groupID int, afterID int) ([]models.GroupMessage, error) {
	var msgs []models.GroupMessage
	err := r.db.SelectContext(ctx, &msgs, `SELECT id, group_id, sender_id, content, created_at
        FROM group_messages WHERE group_id=$1 AND id > $2
        ORDER BY created_at ASC, id ASC`, groupID, afterID)
	return msgs, err
}

// MarkRead records the user's receipt for each of the given messages. Existing
// receipts are left alone; a receipt is never removed once written.
func (r *GroupMessageRepo) MarkRead(ctx context.Context, userID int, messageIDs []int) error {
	if len(messageIDs) == 0 {
		return nil
	}
	_, err := r.db.ExecContext(ctx, `INSERT INTO group_message_reads (message_id, user_id)
        SELECT unnest($1::int[]), $2
        ON CONFLICT (message_id, user_id) DO NOTHING`, pq.Array(messageIDs), userID)
	return err
}

// UnreadCount counts messages in the owner's groups that the owner neither
// sent nor has a receipt for.
func (r *GroupMessageRepo) UnreadCount(ctx context.Context, ownerID int) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM group_messages gm
        INNER JOIN group_members m ON m.group_id = gm.group_id AND m.user_id=$1
        WHERE gm.sender_id <> $1
        AND NOT EXISTS (SELECT 1 FROM group_message_reads r WHERE r.message_id = gm.id AND r.user_id=$1)`, ownerID)
	return count, err
}

// UnreadCountForGroup is UnreadCount scoped to one group.
func (r *GroupMessageRepo) UnreadCountForGroup(ctx context.Context, groupID int, ownerID int) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM group_messages gm
        WHERE gm.group_id=$1 AND gm.sender_id <> $2
        AND NOT EXISTS (SELECT 1 FROM group_message_reads r WHERE r.message_id = gm.id AND r.user_id=$2)`, groupID, ownerID)
	return count, err
}

// UnreadCountsByGroup returns the owner's unread counts keyed by group id,
// covering every group the owner belongs to. Groups with nothing unread are
// absent from the result.
func (r *GroupMessageRepo) UnreadCountsByGroup(ctx context.Context, ownerID int) (map[int]int, error) {
	rows, err := r.db.QueryxContext(ctx, `SELECT gm.group_id, COUNT(*) AS unread FROM group_messages gm
        INNER JOIN group_members m ON m.group_id = gm.group_id AND m.user_id=$1
        WHERE gm.sender_id <> $1
        AND NOT EXISTS (SELECT 1 FROM group_message_reads r WHERE r.message_id = gm.id AND r.user_id=$1)
        GROUP BY gm.group_id`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := map[int]int{}
	for rows.Next() {
		var groupID, unread int
		if err := rows.Scan(&groupID, &unread); err != nil {
			return nil, err
		}
		counts[groupID] = unread
	}
	return counts, rows.Err()
}

// LastMessagesByGroup returns the most recent message per group, keyed by
// group id. Groups with no messages are absent from the result.
func (r *GroupMessageRepo) LastMessagesByGroup(ctx context.Context, groupIDs []int) (map[int]models.GroupMessage, error) {
	if len(groupIDs) == 0 {
		return map[int]models.GroupMessage{}, nil
	}

	rows, err := r.db.QueryxContext(ctx, `SELECT DISTINCT ON (group_id) id, group_id, sender_id, content, created_at
        FROM group_messages WHERE group_id = ANY($1)
        ORDER BY group_id, created_at DESC, id DESC`, pq.Array(groupIDs))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := map[int]models.GroupMessage{}
	for rows.Next() {
		var msg models.GroupMessage
		if err := rows.StructScan(&msg); err != nil {
			return nil, err
		}
		result[msg.GroupID] = msg
	}
	return result, rows.Err()
}
