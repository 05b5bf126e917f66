package repositories

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/jmoiron/sqlx"

	"messaging-service/internal/models"
)

var (
	ErrGroupNotFound      = errors.New("group not found")
	ErrNotAMember         = errors.New("user is not a group member")
	ErrNotAdmin           = errors.New("user is not a group admin")
	ErrEmptyGroupName     = errors.New("group name is empty")
	ErrGroupNameTooLong   = errors.New("group name exceeds maximum length")
	ErrDescriptionTooLong = errors.New("group description exceeds maximum length")
)

const (
	maxGroupNameLength   = 100
	maxDescriptionLength = 200
)

// GroupRepository abstracts group identity and roster persistence.
type GroupRepository interface {
	CreateGroup(ctx context.Context, creatorID int, name string, description string, memberIDs []int) (models.Group, error)
	GetGroup(ctx context.Context, groupID int) (models.Group, error)
	ListGroupsForUser(ctx context.Context, userID int) ([]models.Group, error)
	ListMembers(ctx context.Context, groupID int) ([]models.GroupMember, error)
	AddMember(ctx context.Context, groupID int, actorID int, targetID int) error
	RemoveMember(ctx context.Context, groupID int, actorID int, targetID int) error
	Leave(ctx context.Context, groupID int, userID int) error
	IsMember(ctx context.Context, groupID int, userID int) (bool, error)
	RoleOf(ctx context.Context, groupID int, userID int) (string, error)
}

// GroupRepo is a sqlx implementation of GroupRepository.
type GroupRepo struct {
	db *sqlx.DB
}

// NewGroupRepo constructs a GroupRepo.
func NewGroupRepo(db *sqlx.DB) *GroupRepo {
	return &GroupRepo{db: db}
}

// CreateGroup creates a group, its creator's admin membership, and any initial
// member rows atomically. A group is never left without its creator's
// membership at creation time.
func (r *GroupRepo) CreateGroup(ctx context.Context, creatorID int, name string, description string, memberIDs []int) (models.Group, error) {
	name = strings.TrimSpace(name)
	description = strings.TrimSpace(description)
	if name == "" {
		return models.Group{}, ErrEmptyGroupName
	}
	if len([]rune(name)) > maxGroupNameLength {
		return models.Group{}, ErrGroupNameTooLong
	}
	if len([]rune(description)) > maxDescriptionLength {
		return models.Group{}, ErrDescriptionTooLong
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.Group{}, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	var group models.Group
	if err = tx.QueryRowxContext(ctx, `INSERT INTO groups (name, description, creator_id) VALUES ($1, $2, $3)
        RETURNING id, name, description, creator_id, created_at`, name, description, creatorID).
		Scan(&group.ID, &group.Name, &group.Description, &group.CreatorID, &group.CreatedAt); err != nil {
		return models.Group{}, err
	}

	if _, err = tx.ExecContext(ctx, `INSERT INTO group_members (group_id, user_id, role) VALUES ($1, $2, $3)`,
		group.ID, creatorID, models.RoleAdmin); err != nil {
		return models.Group{}, err
	}

	for _, id := range memberIDs {
		if id == creatorID {
			continue
		}
		if _, err = tx.ExecContext(ctx, `INSERT INTO group_members (group_id, user_id, role) VALUES ($1, $2, $3)
            ON CONFLICT (group_id, user_id) DO NOTHING`, group.ID, id, models.RoleMember); err != nil {
			return models.Group{}, err
		}
	}

	if err = tx.Commit(); err != nil {
		return models.Group{}, err
	}
	return group, nil
}

// GetGroup fetches a single group.
func (r *GroupRepo) GetGroup(ctx context.Context, groupID int) (models.Group, error) {
	var group models.Group
	err := r.db.GetContext(ctx, &group, `SELECT id, name, description, creator_id, created_at FROM groups WHERE id=$1`, groupID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Group{}, ErrGroupNotFound
	}
	return group, err
}

// ListGroupsForUser returns groups that include the user.
func (r *GroupRepo) ListGroupsForUser(ctx context.Context, userID int) ([]models.Group, error) {
	var groups []models.Group
	err := r.db.SelectContext(ctx, &groups, `SELECT g.id, g.name, g.description, g.creator_id, g.created_at
        FROM groups g INNER JOIN group_members gm ON gm.group_id = g.id
        WHERE gm.user_id=$1 ORDER BY g.created_at DESC`, userID)
	return groups, err
}

// ListMembers returns the group's roster with roles.
func (r *GroupRepo) ListMembers(ctx context.Context, groupID int) ([]models.GroupMember, error) {
	var members []models.GroupMember
	err := r.db.SelectContext(ctx, &members, `SELECT group_id, user_id, role, joined_at
        FROM group_members WHERE group_id=$1 ORDER BY joined_at ASC, user_id ASC`, groupID)
	return members, err
}

// AddMember inserts a member-role membership for the target. The acting user
// must be an admin. Adding an existing member is a no-op.
func (r *GroupRepo) AddMember(ctx context.Context, groupID int, actorID int, targetID int) error {
	if err := r.requireAdmin(ctx, groupID, actorID); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx, `INSERT INTO group_members (group_id, user_id, role) VALUES ($1, $2, $3)
        ON CONFLICT (group_id, user_id) DO NOTHING`, groupID, targetID, models.RoleMember)
	return err
}

// RemoveMember deletes the target's membership. The acting user must be an
// admin. Removing an absent member is a no-op.
func (r *GroupRepo) RemoveMember(ctx context.Context, groupID int, actorID int, targetID int) error {
	if err := r.requireAdmin(ctx, groupID, actorID); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx, `DELETE FROM group_members WHERE group_id=$1 AND user_id=$2`, groupID, targetID)
	return err
}

// Leave deletes the caller's own membership unconditionally. The last admin
// may leave; the group is neither disbanded nor is anyone promoted.
func (r *GroupRepo) Leave(ctx context.Context, groupID int, userID int) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM group_members WHERE group_id=$1 AND user_id=$2`, groupID, userID)
	return err
}

// IsMember checks membership.
func (r *GroupRepo) IsMember(ctx context.Context, groupID int, userID int) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM group_members WHERE group_id=$1 AND user_id=$2)`, groupID, userID)
	return exists, err
}

// RoleOf returns the user's role in the group, or ErrNotAMember.
func (r *GroupRepo) RoleOf(ctx context.Context, groupID int, userID int) (string, error) {
	var role string
	err := r.db.GetContext(ctx, &role, `SELECT role FROM group_members WHERE group_id=$1 AND user_id=$2`, groupID, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotAMember
	}
	return role, err
}

func (r *GroupRepo) requireAdmin(ctx context.Context, groupID int, userID int) error {
	return adminGate(r.RoleOf(ctx, groupID, userID))
}

// adminGate maps a role lookup to the admin requirement. A non-member counts
// as a non-admin, so once the last admin leaves a group nobody can change its
// roster anymore.
func adminGate(role string, err error) error {
	if errors.Is(err, ErrNotAMember) {
		return ErrNotAdmin
	}
	if err != nil {
		return err
	}
	if role != models.RoleAdmin {
		return ErrNotAdmin
	}
	return nil
}
