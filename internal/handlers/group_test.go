package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"messaging-service/internal/directory"
	"messaging-service/internal/mocks"
	"messaging-service/internal/models"
	"messaging-service/internal/repositories"
	"messaging-service/internal/telemetry"
)

func setupGroupRouter(handler *GroupHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("userID", 1)
		c.Next()
	})
	r.POST("/groups", handler.CreateGroup)
	r.GET("/groups", handler.ListGroups)
	r.GET("/groups/:group_id/members", handler.GetMembers)
	r.POST("/groups/:group_id/members", handler.AddMember)
	r.DELETE("/groups/:group_id/members/:user_id", handler.RemoveMember)
	r.POST("/groups/:group_id/leave", handler.LeaveGroup)
	r.GET("/groups/:group_id/messages", handler.GetGroupMessages)
	r.GET("/groups/:group_id/unread-count", handler.GetGroupUnreadCount)
	r.POST("/groups/:group_id/messages", handler.PostGroupMessage)
	return r
}

func TestCreateGroupSuccess(t *testing.T) {
	groupRepo := new(mocks.GroupRepositoryMock)
	dir := new(mocks.DirectoryMock)
	handler := NewGroupHandler(groupRepo, nil, dir, nil, nil)
	router := setupGroupRouter(handler)

	dir.On("BulkUsers", mock.Anything, []int{2, 3}).Return([]directory.User{{ID: 2}, {ID: 3}}, nil).Once()
	groupRepo.On("CreateGroup", mock.Anything, 1, "team", "weekend plans", []int{2, 3}).Return(models.Group{ID: 9, Name: "team"}, nil).Once()

	body := bytes.NewBufferString(`{"name":"team","description":"weekend plans","member_ids":[2,3]}`)
	req := httptest.NewRequest(http.MethodPost, "/groups", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	groupRepo.AssertExpectations(t)
	dir.AssertExpectations(t)
}

func TestCreateGroupSkipsUnknownMembers(t *testing.T) {
	groupRepo := new(mocks.GroupRepositoryMock)
	dir := new(mocks.DirectoryMock)
	handler := NewGroupHandler(groupRepo, nil, dir, nil, nil)
	router := setupGroupRouter(handler)

	dir.On("BulkUsers", mock.Anything, []int{2, 999}).Return([]directory.User{{ID: 2}}, nil).Once()
	groupRepo.On("CreateGroup", mock.Anything, 1, "team", "", []int{2}).Return(models.Group{ID: 9, Name: "team"}, nil).Once()

	body := bytes.NewBufferString(`{"name":"team","member_ids":[2,999]}`)
	req := httptest.NewRequest(http.MethodPost, "/groups", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	groupRepo.AssertExpectations(t)
	dir.AssertExpectations(t)
}

func TestCreateGroupEmptyName(t *testing.T) {
	groupRepo := new(mocks.GroupRepositoryMock)
	handler := NewGroupHandler(groupRepo, nil, new(mocks.DirectoryMock), nil, nil)
	router := setupGroupRouter(handler)

	groupRepo.On("CreateGroup", mock.Anything, 1, "   ", "", ([]int)(nil)).Return(models.Group{}, repositories.ErrEmptyGroupName).Once()

	req := httptest.NewRequest(http.MethodPost, "/groups", bytes.NewBufferString(`{"name":"   "}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	groupRepo.AssertExpectations(t)
}

func TestGetGroupMessagesMarksFetchedRead(t *testing.T) {
	groupRepo := new(mocks.GroupRepositoryMock)
	messageRepo := new(mocks.GroupMessageRepositoryMock)
	dir := new(mocks.DirectoryMock)
	handler := NewGroupHandler(groupRepo, messageRepo, dir, nil, nil)
	router := setupGroupRouter(handler)

	groupRepo.On("GetGroup", mock.Anything, 5).Return(models.Group{ID: 5, Name: "g"}, nil).Once()
	groupRepo.On("IsMember", mock.Anything, 5, 1).Return(true, nil).Once()
	messageRepo.On("ListConversation", mock.Anything, 5, 3).Return([]models.GroupMessage{
		{ID: 4, GroupID: 5, SenderID: 2, Content: "yo"},
		{ID: 6, GroupID: 5, SenderID: 1, Content: "hey"},
	}, nil).Once()
	messageRepo.On("MarkRead", mock.Anything, 1, []int{4, 6}).Return(nil).Once()
	dir.On("BulkUsers", mock.Anything, []int{2, 1}).Return([]directory.User{{ID: 1, Username: "me"}, {ID: 2, Username: "bob"}}, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/groups/5/messages?after=3", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Messages []struct {
			ID     int  `json:"id"`
			IsMine bool `json:"is_mine"`
		} `json:"messages"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp.Messages, 2)
	assert.False(t, resp.Messages[0].IsMine)
	assert.True(t, resp.Messages[1].IsMine)

	groupRepo.AssertExpectations(t)
	messageRepo.AssertExpectations(t)
	dir.AssertExpectations(t)
}

func TestGetGroupMessagesNotMember(t *testing.T) {
	groupRepo := new(mocks.GroupRepositoryMock)
	messageRepo := new(mocks.GroupMessageRepositoryMock)
	handler := NewGroupHandler(groupRepo, messageRepo, new(mocks.DirectoryMock), nil, nil)
	router := setupGroupRouter(handler)

	groupRepo.On("GetGroup", mock.Anything, 5).Return(models.Group{ID: 5}, nil).Once()
	groupRepo.On("IsMember", mock.Anything, 5, 1).Return(false, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/groups/5/messages", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)
	groupRepo.AssertExpectations(t)
	messageRepo.AssertExpectations(t)
}

func TestGetGroupMessagesGroupNotFound(t *testing.T) {
	groupRepo := new(mocks.GroupRepositoryMock)
	handler := NewGroupHandler(groupRepo, new(mocks.GroupMessageRepositoryMock), new(mocks.DirectoryMock), nil, nil)
	router := setupGroupRouter(handler)

	groupRepo.On("GetGroup", mock.Anything, 404).Return(models.Group{}, repositories.ErrGroupNotFound).Once()

	req := httptest.NewRequest(http.MethodGet, "/groups/404/messages", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
	groupRepo.AssertExpectations(t)
}

func TestGetGroupUnreadCount(t *testing.T) {
	groupRepo := new(mocks.GroupRepositoryMock)
	messageRepo := new(mocks.GroupMessageRepositoryMock)
	handler := NewGroupHandler(groupRepo, messageRepo, new(mocks.DirectoryMock), nil, nil)
	router := setupGroupRouter(handler)

	groupRepo.On("GetGroup", mock.Anything, 5).Return(models.Group{ID: 5}, nil).Once()
	groupRepo.On("IsMember", mock.Anything, 5, 1).Return(true, nil).Once()
	messageRepo.On("UnreadCountForGroup", mock.Anything, 5, 1).Return(3, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/groups/5/unread-count", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Count int `json:"count"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, 3, resp.Count)

	groupRepo.AssertExpectations(t)
	messageRepo.AssertExpectations(t)
}

func TestGetGroupUnreadCountNotMember(t *testing.T) {
	groupRepo := new(mocks.GroupRepositoryMock)
	messageRepo := new(mocks.GroupMessageRepositoryMock)
	handler := NewGroupHandler(groupRepo, messageRepo, new(mocks.DirectoryMock), nil, nil)
	router := setupGroupRouter(handler)

	groupRepo.On("GetGroup", mock.Anything, 5).Return(models.Group{ID: 5}, nil).Once()
	groupRepo.On("IsMember", mock.Anything, 5, 1).Return(false, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/groups/5/unread-count", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)
	groupRepo.AssertExpectations(t)
	messageRepo.AssertExpectations(t)
}

func TestPostGroupMessageSuccessPublishesEvent(t *testing.T) {
	groupRepo := new(mocks.GroupRepositoryMock)
	messageRepo := new(mocks.GroupMessageRepositoryMock)
	publisher := new(mocks.PublisherMock)
	events := telemetry.NewEventEmitter(publisher, "messaging-service")
	handler := NewGroupHandler(groupRepo, messageRepo, new(mocks.DirectoryMock), events, nil)
	router := setupGroupRouter(handler)

	groupRepo.On("GetGroup", mock.Anything, 5).Return(models.Group{ID: 5}, nil).Once()
	messageRepo.On("Create", mock.Anything, 5, 1, "hi all").Return(models.GroupMessage{ID: 11, GroupID: 5, SenderID: 1, Content: "hi all"}, nil).Once()
	publisher.On("Publish", mock.Anything, "messaging.group.sent", mock.Anything).Return(nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/groups/5/messages", bytes.NewBufferString(`{"content":"hi all"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	groupRepo.AssertExpectations(t)
	messageRepo.AssertExpectations(t)
	publisher.AssertExpectations(t)
}

func TestPostGroupMessageNotAMember(t *testing.T) {
	groupRepo := new(mocks.GroupRepositoryMock)
	messageRepo := new(mocks.GroupMessageRepositoryMock)
	handler := NewGroupHandler(groupRepo, messageRepo, new(mocks.DirectoryMock), nil, nil)
	router := setupGroupRouter(handler)

	groupRepo.On("GetGroup", mock.Anything, 5).Return(models.Group{ID: 5}, nil).Once()
	messageRepo.On("Create", mock.Anything, 5, 1, "hi").Return(models.GroupMessage{}, repositories.ErrNotAMember).Once()

	req := httptest.NewRequest(http.MethodPost, "/groups/5/messages", bytes.NewBufferString(`{"content":"hi"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)
	messageRepo.AssertExpectations(t)
}

func TestAddMemberForbiddenForNonAdmin(t *testing.T) {
	groupRepo := new(mocks.GroupRepositoryMock)
	dir := new(mocks.DirectoryMock)
	handler := NewGroupHandler(groupRepo, nil, dir, nil, nil)
	router := setupGroupRouter(handler)

	groupRepo.On("GetGroup", mock.Anything, 5).Return(models.Group{ID: 5}, nil).Once()
	dir.On("GetUser", mock.Anything, 3).Return(directory.User{ID: 3, Username: "carol"}, nil).Once()
	groupRepo.On("AddMember", mock.Anything, 5, 1, 3).Return(repositories.ErrNotAdmin).Once()

	req := httptest.NewRequest(http.MethodPost, "/groups/5/members", bytes.NewBufferString(`{"user_id":3}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)
	groupRepo.AssertExpectations(t)
	dir.AssertExpectations(t)
}

func TestAddMemberUnknownUser(t *testing.T) {
	groupRepo := new(mocks.GroupRepositoryMock)
	dir := new(mocks.DirectoryMock)
	handler := NewGroupHandler(groupRepo, nil, dir, nil, nil)
	router := setupGroupRouter(handler)

	groupRepo.On("GetGroup", mock.Anything, 5).Return(models.Group{ID: 5}, nil).Once()
	dir.On("GetUser", mock.Anything, 42).Return(directory.User{}, directory.ErrUserNotFound).Once()

	req := httptest.NewRequest(http.MethodPost, "/groups/5/members", bytes.NewBufferString(`{"user_id":42}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
	dir.AssertExpectations(t)
}

func TestRemoveMemberSuccess(t *testing.T) {
	groupRepo := new(mocks.GroupRepositoryMock)
	handler := NewGroupHandler(groupRepo, nil, new(mocks.DirectoryMock), nil, nil)
	router := setupGroupRouter(handler)

	groupRepo.On("GetGroup", mock.Anything, 5).Return(models.Group{ID: 5}, nil).Once()
	groupRepo.On("RemoveMember", mock.Anything, 5, 1, 2).Return(nil).Once()

	req := httptest.NewRequest(http.MethodDelete, "/groups/5/members/2", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	groupRepo.AssertExpectations(t)
}

func TestLeaveGroupAlwaysSucceedsForCaller(t *testing.T) {
	groupRepo := new(mocks.GroupRepositoryMock)
	handler := NewGroupHandler(groupRepo, nil, new(mocks.DirectoryMock), nil, nil)
	router := setupGroupRouter(handler)

	groupRepo.On("GetGroup", mock.Anything, 5).Return(models.Group{ID: 5}, nil).Once()
	groupRepo.On("Leave", mock.Anything, 5, 1).Return(nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/groups/5/leave", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	groupRepo.AssertExpectations(t)
}

func TestGetMembersRoster(t *testing.T) {
	groupRepo := new(mocks.GroupRepositoryMock)
	dir := new(mocks.DirectoryMock)
	handler := NewGroupHandler(groupRepo, nil, dir, nil, nil)
	router := setupGroupRouter(handler)

	groupRepo.On("GetGroup", mock.Anything, 5).Return(models.Group{ID: 5}, nil).Once()
	groupRepo.On("IsMember", mock.Anything, 5, 1).Return(true, nil).Once()
	groupRepo.On("ListMembers", mock.Anything, 5).Return([]models.GroupMember{
		{GroupID: 5, UserID: 1, Role: models.RoleAdmin},
		{GroupID: 5, UserID: 2, Role: models.RoleMember},
	}, nil).Once()
	dir.On("BulkUsers", mock.Anything, []int{1, 2}).Return([]directory.User{{ID: 1, Username: "me"}, {ID: 2, Username: "bob"}}, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/groups/5/members", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Members []struct {
			UserID int    `json:"user_id"`
			Role   string `json:"role"`
		} `json:"members"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp.Members, 2)
	assert.Equal(t, models.RoleAdmin, resp.Members[0].Role)

	groupRepo.AssertExpectations(t)
	dir.AssertExpectations(t)
}
