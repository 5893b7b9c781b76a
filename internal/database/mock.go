package database

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/sportbuddy/chat-server/internal/types"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockRepository) CreateAccount(ctx context.Context, params CreateAccountParams) (types.User, error) {
	args := m.Called(ctx, params)
	return args.Get(0).(types.User), args.Error(1)
}

func (m *MockRepository) GetAccountById(ctx context.Context, userId string) (types.User, error) {
	args := m.Called(ctx, userId)
	return args.Get(0).(types.User), args.Error(1)
}

func (m *MockRepository) GetAccountByEmail(ctx context.Context, email string) (types.User, error) {
	args := m.Called(ctx, email)
	return args.Get(0).(types.User), args.Error(1)
}

func (m *MockRepository) GetPushToken(ctx context.Context, userId string) (string, error) {
	args := m.Called(ctx, userId)
	return args.String(0), args.Error(1)
}

func (m *MockRepository) SetPushToken(ctx context.Context, userId, token string) error {
	args := m.Called(ctx, userId, token)
	return args.Error(0)
}

func (m *MockRepository) ClearPushToken(ctx context.Context, userId string) error {
	args := m.Called(ctx, userId)
	return args.Error(0)
}

func (m *MockRepository) GetThread(ctx context.Context, threadId string) (types.Thread, error) {
	args := m.Called(ctx, threadId)
	return args.Get(0).(types.Thread), args.Error(1)
}

func (m *MockRepository) CreateThread(ctx context.Context, userA, userB string) (types.Thread, error) {
	args := m.Called(ctx, userA, userB)
	return args.Get(0).(types.Thread), args.Error(1)
}

func (m *MockRepository) DeleteThreadWithMessages(ctx context.Context, threadId string) error {
	args := m.Called(ctx, threadId)
	return args.Error(0)
}

func (m *MockRepository) CreateDirectMessage(ctx context.Context, msg types.DirectMessage) (types.DirectMessage, error) {
	args := m.Called(ctx, msg)
	return args.Get(0).(types.DirectMessage), args.Error(1)
}

func (m *MockRepository) GetDirectMessages(ctx context.Context, threadId string, limit int64) ([]types.DirectMessage, error) {
	args := m.Called(ctx, threadId, limit)
	return args.Get(0).([]types.DirectMessage), args.Error(1)
}

func (m *MockRepository) MarkDirectMessagesRead(ctx context.Context, threadId string, messageIds []string) ([]string, error) {
	args := m.Called(ctx, threadId, messageIds)
	if ids, ok := args.Get(0).([]string); ok {
		return ids, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockRepository) UpdateThreadLastMessage(ctx context.Context, threadId, messageId string) error {
	args := m.Called(ctx, threadId, messageId)
	return args.Error(0)
}

func (m *MockRepository) GetGroup(ctx context.Context, groupId string) (types.Group, error) {
	args := m.Called(ctx, groupId)
	return args.Get(0).(types.Group), args.Error(1)
}

func (m *MockRepository) CreateGroup(ctx context.Context, group types.Group) (types.Group, error) {
	args := m.Called(ctx, group)
	return args.Get(0).(types.Group), args.Error(1)
}

func (m *MockRepository) UpdateGroupMembership(ctx context.Context, group types.Group) error {
	args := m.Called(ctx, group)
	return args.Error(0)
}

func (m *MockRepository) DeleteGroup(ctx context.Context, groupId string) error {
	args := m.Called(ctx, groupId)
	return args.Error(0)
}

func (m *MockRepository) UpdateGroupLastMessage(ctx context.Context, groupId, messageId string) error {
	args := m.Called(ctx, groupId, messageId)
	return args.Error(0)
}

func (m *MockRepository) CreateGroupMessage(ctx context.Context, msg types.GroupMessage) (types.GroupMessage, error) {
	args := m.Called(ctx, msg)
	return args.Get(0).(types.GroupMessage), args.Error(1)
}

func (m *MockRepository) GetGroupMessage(ctx context.Context, messageId string) (types.GroupMessage, error) {
	args := m.Called(ctx, messageId)
	return args.Get(0).(types.GroupMessage), args.Error(1)
}

func (m *MockRepository) GetGroupMessages(ctx context.Context, groupId string, limit int64) ([]types.GroupMessage, error) {
	args := m.Called(ctx, groupId, limit)
	return args.Get(0).([]types.GroupMessage), args.Error(1)
}

func (m *MockRepository) AddGroupMessageReader(ctx context.Context, groupId, readerId string, messageIds []string) ([]string, error) {
	args := m.Called(ctx, groupId, readerId, messageIds)
	if ids, ok := args.Get(0).([]string); ok {
		return ids, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockRepository) DeleteGroupMessages(ctx context.Context, groupId string) error {
	args := m.Called(ctx, groupId)
	return args.Error(0)
}

func (m *MockRepository) CreateInvitation(ctx context.Context, groupId, senderId, receiverId string) (types.Invitation, error) {
	args := m.Called(ctx, groupId, senderId, receiverId)
	return args.Get(0).(types.Invitation), args.Error(1)
}

func (m *MockRepository) GetInvitation(ctx context.Context, invitationId string) (types.Invitation, error) {
	args := m.Called(ctx, invitationId)
	return args.Get(0).(types.Invitation), args.Error(1)
}

func (m *MockRepository) UpdateInvitationStatus(ctx context.Context, invitationId, status string) error {
	args := m.Called(ctx, invitationId, status)
	return args.Error(0)
}

func (m *MockRepository) ExpirePendingInvitations(ctx context.Context, groupId, receiverId, exceptInvitationId string) error {
	args := m.Called(ctx, groupId, receiverId, exceptInvitationId)
	return args.Error(0)
}

func (m *MockRepository) CreateNotification(ctx context.Context, params CreateNotificationParams) error {
	args := m.Called(ctx, params)
	return args.Error(0)
}
