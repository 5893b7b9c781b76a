package database

import (
	"context"
	"errors"

	"github.com/sportbuddy/chat-server/internal/types"
)

// ErrNotFound is returned when a requested document does not exist.
var ErrNotFound = errors.New("not found")

// Invitation lifecycle states. A pending invitation becomes accepted when
// the receiver joins through it; any other pending invitations for the same
// group and receiver become old.
const (
	InvitationPending  = "pending"
	InvitationAccepted = "accepted"
	InvitationRejected = "rejected"
	InvitationOld      = "old"
)

// Notification record types, stored for the receiver's notification feed.
const (
	NotificationDirectMessage      = "DirectMessage"
	NotificationGroupMessage       = "GroupMessage"
	NotificationGroupInvitation    = "GroupInvitation"
	NotificationInvitationAccepted = "GroupInvitationAccepted"
	NotificationKickedFromGroup    = "KickedFromGroup"
	NotificationGroupDeleted       = "GroupDeleted"
)

type CreateAccountParams struct {
	Name         string
	Email        string
	PasswordHash string
	Image        string
}

type CreateNotificationParams struct {
	Type       string
	SenderId   string
	ReceiverId string
	RelatedId  string
}

type Repository interface {
	Ping(ctx context.Context) error

	CreateAccount(ctx context.Context, params CreateAccountParams) (types.User, error)
	GetAccountById(ctx context.Context, userId string) (types.User, error)
	GetAccountByEmail(ctx context.Context, email string) (types.User, error)
	GetPushToken(ctx context.Context, userId string) (string, error)
	SetPushToken(ctx context.Context, userId, token string) error
	ClearPushToken(ctx context.Context, userId string) error

	GetThread(ctx context.Context, threadId string) (types.Thread, error)
	CreateThread(ctx context.Context, userA, userB string) (types.Thread, error)
	DeleteThreadWithMessages(ctx context.Context, threadId string) error
	CreateDirectMessage(ctx context.Context, msg types.DirectMessage) (types.DirectMessage, error)
	GetDirectMessages(ctx context.Context, threadId string, limit int64) ([]types.DirectMessage, error)
	MarkDirectMessagesRead(ctx context.Context, threadId string, messageIds []string) ([]string, error)
	UpdateThreadLastMessage(ctx context.Context, threadId, messageId string) error

	GetGroup(ctx context.Context, groupId string) (types.Group, error)
	CreateGroup(ctx context.Context, group types.Group) (types.Group, error)
	UpdateGroupMembership(ctx context.Context, group types.Group) error
	DeleteGroup(ctx context.Context, groupId string) error
	UpdateGroupLastMessage(ctx context.Context, groupId, messageId string) error
	CreateGroupMessage(ctx context.Context, msg types.GroupMessage) (types.GroupMessage, error)
	GetGroupMessage(ctx context.Context, messageId string) (types.GroupMessage, error)
	GetGroupMessages(ctx context.Context, groupId string, limit int64) ([]types.GroupMessage, error)
	AddGroupMessageReader(ctx context.Context, groupId, readerId string, messageIds []string) ([]string, error)
	DeleteGroupMessages(ctx context.Context, groupId string) error

	CreateInvitation(ctx context.Context, groupId, senderId, receiverId string) (types.Invitation, error)
	GetInvitation(ctx context.Context, invitationId string) (types.Invitation, error)
	UpdateInvitationStatus(ctx context.Context, invitationId, status string) error
	ExpirePendingInvitations(ctx context.Context, groupId, receiverId, exceptInvitationId string) error

	CreateNotification(ctx context.Context, params CreateNotificationParams) error
}
