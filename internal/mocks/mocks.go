package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"messaging-service/internal/directory"
	"messaging-service/internal/models"
)

type DirectMessageRepositoryMock struct {
	mock.Mock
}

func (m *DirectMessageRepositoryMock) Create(ctx context.Context, senderID int, receiverID int, content string) (models.DirectMessage, error) {
	args := m.Called(ctx, senderID, receiverID, content)
	var msg models.DirectMessage
	if val := args.Get(0); val != nil {
		msg = val.(models.DirectMessage)
	}
	return msg, args.Error(1)
}

func (m *DirectMessageRepositoryMock) ListConversation(ctx context.Context, userID int, peerID int, afterID int) ([]models.DirectMessage, error) {
	args := m.Called(ctx, userID, peerID, afterID)
	var msgs []models.DirectMessage
	if val := args.Get(0); val != nil {
		msgs = val.([]models.DirectMessage)
	}
	return msgs, args.Error(1)
}

func (m *DirectMessageRepositoryMock) MarkConversationRead(ctx context.Context, receiverID int, senderID int) error {
	args := m.Called(ctx, receiverID, senderID)
	return args.Error(0)
}

func (m *DirectMessageRepositoryMock) UnreadCount(ctx context.Context, ownerID int) (int, error) {
	args := m.Called(ctx, ownerID)
	return args.Int(0), args.Error(1)
}

func (m *DirectMessageRepositoryMock) UnreadCountsBySender(ctx context.Context, ownerID int) (map[int]int, error) {
	args := m.Called(ctx, ownerID)
	var counts map[int]int
	if val := args.Get(0); val != nil {
		counts = val.(map[int]int)
	}
	return counts, args.Error(1)
}

func (m *DirectMessageRepositoryMock) LastMessagesByPeer(ctx context.Context, ownerID int, peerIDs []int) (map[int]models.DirectMessage, error) {
	args := m.Called(ctx, ownerID, peerIDs)
	var last map[int]models.DirectMessage
	if val := args.Get(0); val != nil {
		last = val.(map[int]models.DirectMessage)
	}
	return last, args.Error(1)
}

type GroupRepositoryMock struct {
	mock.Mock
}

func (m *GroupRepositoryMock) CreateGroup(ctx context.Context, creatorID int, name string, description string, memberIDs []int) (models.Group, error) {
	args := m.Called(ctx, creatorID, name, description, memberIDs)
	var group models.Group
	if val := args.Get(0); val != nil {
		group = val.(models.Group)
	}
	return group, args.Error(1)
}

func (m *GroupRepositoryMock) GetGroup(ctx context.Context, groupID int) (models.Group, error) {
	args := m.Called(ctx, groupID)
	var group models.Group
	if val := args.Get(0); val != nil {
		group = val.(models.Group)
	}
	return group, args.Error(1)
}

func (m *GroupRepositoryMock) ListGroupsForUser(ctx context.Context, userID int) ([]models.Group, error) {
	args := m.Called(ctx, userID)
	var groups []models.Group
	if val := args.Get(0); val != nil {
		groups = val.([]models.Group)
	}
	return groups, args.Error(1)
}

func (m *GroupRepositoryMock) ListMembers(ctx context.Context, groupID int) ([]models.GroupMember, error) {
	args := m.Called(ctx, groupID)
	var members []models.GroupMember
	if val := args.Get(0); val != nil {
		members = val.([]models.GroupMember)
	}
	return members, args.Error(1)
}

func (m *GroupRepositoryMock) AddMember(ctx context.Context, groupID int, actorID int, targetID int) error {
	args := m.Called(ctx, groupID, actorID, targetID)
	return args.Error(0)
}

func (m *GroupRepositoryMock) RemoveMember(ctx context.Context, groupID int, actorID int, targetID int) error {
	args := m.Called(ctx, groupID, actorID, targetID)
	return args.Error(0)
}

func (m *GroupRepositoryMock) Leave(ctx context.Context, groupID int, userID int) error {
	args := m.Called(ctx, groupID, userID)
	return args.Error(0)
}

func (m *GroupRepositoryMock) IsMember(ctx context.Context, groupID int, userID int) (bool, error) {
	args := m.Called(ctx, groupID, userID)
	return args.Bool(0), args.Error(1)
}

func (m *GroupRepositoryMock) RoleOf(ctx context.Context, groupID int, userID int) (string, error) {
	args := m.Called(ctx, groupID, userID)
	return args.String(0), args.Error(1)
}

type GroupMessageRepositoryMock struct {
	mock.Mock
}

func (m *GroupMessageRepositoryMock) Create(ctx context.Context, groupID int, senderID int, content string) (models.GroupMessage, error) {
	args := m.Called(ctx, groupID, senderID, content)
	var msg models.GroupMessage
	if val := args.Get(0); val != nil {
		msg = val.(models.GroupMessage)
	}
	return msg, args.Error(1)
}

func (m *GroupMessageRepositoryMock) ListConversation(ctx context.Context, groupID int, afterID int) ([]models.GroupMessage, error) {
	args := m.Called(ctx, groupID, afterID)
	var msgs []models.GroupMessage
	if val := args.Get(0); val != nil {
		msgs = val.([]models.GroupMessage)
	}
	return msgs, args.Error(1)
}

func (m *GroupMessageRepositoryMock) MarkRead(ctx context.Context, userID int, messageIDs []int) error {
	args := m.Called(ctx, userID, messageIDs)
	return args.Error(0)
}

func (m *GroupMessageRepositoryMock) UnreadCount(ctx context.Context, ownerID int) (int, error) {
	args := m.Called(ctx, ownerID)
	return args.Int(0), args.Error(1)
}

func (m *GroupMessageRepositoryMock) UnreadCountForGroup(ctx context.Context, groupID int, ownerID int) (int, error) {
	args := m.Called(ctx, groupID, ownerID)
	return args.Int(0), args.Error(1)
}

func (m *GroupMessageRepositoryMock) UnreadCountsByGroup(ctx context.Context, ownerID int) (map[int]int, error) {
	args := m.Called(ctx, ownerID)
	var counts map[int]int
	if val := args.Get(0); val != nil {
		counts = val.(map[int]int)
	}
	return counts, args.Error(1)
}

func (m *GroupMessageRepositoryMock) LastMessagesByGroup(ctx context.Context, groupIDs []int) (map[int]models.GroupMessage, error) {
	args := m.Called(ctx, groupIDs)
	var last map[int]models.GroupMessage
	if val := args.Get(0); val != nil {
		last = val.(map[int]models.GroupMessage)
	}
	return last, args.Error(1)
}

type DirectoryMock struct {
	mock.Mock
}

func (m *DirectoryMock) ValidateToken(ctx context.Context, token string) (int, error) {
	args := m.Called(ctx, token)
	return args.Int(0), args.Error(1)
}

func (m *DirectoryMock) GetUser(ctx context.Context, userID int) (directory.User, error) {
	args := m.Called(ctx, userID)
	var user directory.User
	if val := args.Get(0); val != nil {
		user = val.(directory.User)
	}
	return user, args.Error(1)
}

func (m *DirectoryMock) BulkUsers(ctx context.Context, ids []int) ([]directory.User, error) {
	args := m.Called(ctx, ids)
	var users []directory.User
	if val := args.Get(0); val != nil {
		users = val.([]directory.User)
	}
	return users, args.Error(1)
}

func (m *DirectoryMock) ConnectionsOf(ctx context.Context, userID int) ([]directory.User, error) {
	args := m.Called(ctx, userID)
	var users []directory.User
	if val := args.Get(0); val != nil {
		users = val.([]directory.User)
	}
	return users, args.Error(1)
}

func (m *DirectoryMock) HasConnection(ctx context.Context, userID int, peerID int) (bool, error) {
	args := m.Called(ctx, userID, peerID)
	return args.Bool(0), args.Error(1)
}
