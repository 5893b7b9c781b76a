package group

import (
	"context"
	"fmt"
	"log"
	"slices"
	"sort"
	"time"

	"github.com/sportbuddy/chat-server/internal/database"
	"github.com/sportbuddy/chat-server/internal/push"
	"github.com/sportbuddy/chat-server/internal/types"
)

const (
	MinMembers = 2
	MaxMembers = 30
)

// Pusher delivers out-of-band notifications to a single recipient.
type Pusher interface {
	Notify(ctx context.Context, recipientId string, n push.Notification) (push.Result, error)
}

// Purger removes a group's uploaded media when the group is dissolved.
type Purger interface {
	PurgeGroup(ctx context.Context, groupId string) error
}

// RoomCloser tears down a group's live room and tells its members.
type RoomCloser interface {
	CloseRoom(groupId string, memberIds []string)
}

// Service owns the group membership state machine: create, invite, join,
// leave, kick, admin succession and dissolution. All membership writes go
// through a full read-modify-write of the group document.
type Service struct {
	log    *log.Logger
	db     database.Repository
	pusher Pusher
	purger Purger
	rooms  RoomCloser
}

func NewService(logger *log.Logger, db database.Repository, pusher Pusher, purger Purger, rooms RoomCloser) *Service {
	return &Service{
		log:    logger,
		db:     db,
		pusher: pusher,
		purger: purger,
		rooms:  rooms,
	}
}

func (s *Service) Create(ctx context.Context, name, adminId string, maxMembers int) (types.Group, error) {
	if maxMembers == 0 {
		maxMembers = MaxMembers
	}
	if maxMembers < MinMembers || maxMembers > MaxMembers {
		return types.Group{}, ErrInvalidMemberCap
	}

	group, err := s.db.CreateGroup(ctx, types.Group{
		Name:       name,
		AdminId:    adminId,
		Members:    []string{adminId},
		JoinedAt:   map[string]time.Time{adminId: time.Now().UTC()},
		MaxMembers: maxMembers,
	})
	if err != nil {
		return types.Group{}, fmt.Errorf("create group: %w", err)
	}

	return group, nil
}

// Invite creates a pending invitation and notifies the receiver.
func (s *Service) Invite(ctx context.Context, groupId, senderId, receiverId string) (types.Invitation, error) {
	group, err := s.db.GetGroup(ctx, groupId)
	if err != nil {
		return types.Invitation{}, fmt.Errorf("get group: %w", err)
	}
	if !slices.Contains(group.Members, senderId) {
		return types.Invitation{}, ErrNotMember
	}
	if slices.Contains(group.Members, receiverId) {
		return types.Invitation{}, ErrAlreadyMember
	}
	if len(group.Members) >= group.MaxMembers {
		return types.Invitation{}, ErrGroupFull
	}

	inv, err := s.db.CreateInvitation(ctx, groupId, senderId, receiverId)
	if err != nil {
		return types.Invitation{}, fmt.Errorf("create invitation: %w", err)
	}

	s.notify(ctx, database.NotificationGroupInvitation, senderId, receiverId, groupId, push.Notification{
		Type:  database.NotificationGroupInvitation,
		Title: group.Name,
		Body:  "You have been invited to join",
		Data:  map[string]string{"group_id": groupId, "invitation_id": inv.Id},
	})

	return inv, nil
}

// Join adds userId to the group. When invitationId is set, that invitation
// is marked accepted, its pending siblings for the same user and group are
// marked old, and the inviter is told. The capacity check runs before the
// membership check so a member re-joining a full group still sees it full.
func (s *Service) Join(ctx context.Context, groupId, userId, invitationId string) (types.Group, error) {
	group, err := s.db.GetGroup(ctx, groupId)
	if err != nil {
		return types.Group{}, fmt.Errorf("get group: %w", err)
	}
	if len(group.Members) >= group.MaxMembers {
		return types.Group{}, ErrGroupFull
	}
	if slices.Contains(group.Members, userId) {
		return types.Group{}, ErrAlreadyMember
	}

	var inv types.Invitation
	if invitationId != "" {
		inv, err = s.db.GetInvitation(ctx, invitationId)
		if err != nil {
			return types.Group{}, fmt.Errorf("get invitation: %w", err)
		}
		if inv.GroupId != groupId || inv.ReceiverId != userId {
			return types.Group{}, database.ErrNotFound
		}
		if inv.Status != database.InvitationPending {
			return types.Group{}, ErrInvitationClosed
		}
	}

	group.Members = append(group.Members, userId)
	if group.JoinedAt == nil {
		group.JoinedAt = make(map[string]time.Time)
	}
	group.JoinedAt[userId] = time.Now().UTC()

	if err := s.db.UpdateGroupMembership(ctx, group); err != nil {
		return types.Group{}, fmt.Errorf("update membership: %w", err)
	}

	// A new member's remaining pending invitations to this group are moot
	// either way, whether they joined through one of them or directly.
	if err := s.db.ExpirePendingInvitations(ctx, groupId, userId, invitationId); err != nil {
		s.log.Printf("expire pending invitations for %q: %v", userId, err)
	}

	if invitationId != "" {
		if err := s.db.UpdateInvitationStatus(ctx, invitationId, database.InvitationAccepted); err != nil {
			s.log.Printf("accept invitation %q: %v", invitationId, err)
		}

		s.notify(ctx, database.NotificationInvitationAccepted, userId, inv.SenderId, groupId, push.Notification{
			Type:  database.NotificationInvitationAccepted,
			Title: group.Name,
			Body:  "Your invitation was accepted",
			Data:  map[string]string{"group_id": groupId},
		})
	}

	return group, nil
}

// Reject marks a pending invitation rejected. Membership is untouched.
func (s *Service) Reject(ctx context.Context, invitationId, userId string) error {
	inv, err := s.db.GetInvitation(ctx, invitationId)
	if err != nil {
		return fmt.Errorf("get invitation: %w", err)
	}
	if inv.ReceiverId != userId {
		return database.ErrNotFound
	}
	if inv.Status != database.InvitationPending {
		return ErrInvitationClosed
	}

	if err := s.db.UpdateInvitationStatus(ctx, invitationId, database.InvitationRejected); err != nil {
		return fmt.Errorf("reject invitation: %w", err)
	}

	return nil
}

// Leave removes userId from the group. If the admin leaves, the member who
// joined earliest becomes admin, ties broken by smaller user id. The last
// member leaving dissolves the group.
func (s *Service) Leave(ctx context.Context, groupId, userId string) (types.Group, error) {
	group, err := s.db.GetGroup(ctx, groupId)
	if err != nil {
		return types.Group{}, fmt.Errorf("get group: %w", err)
	}
	if !slices.Contains(group.Members, userId) {
		return types.Group{}, ErrNotMember
	}

	group = removeMember(group, userId)

	if len(group.Members) == 0 {
		if err := s.dissolve(ctx, group); err != nil {
			return types.Group{}, err
		}
		return types.Group{}, nil
	}

	if group.AdminId == userId {
		group.AdminId = successor(group)
	}

	if err := s.db.UpdateGroupMembership(ctx, group); err != nil {
		return types.Group{}, fmt.Errorf("update membership: %w", err)
	}

	return group, nil
}

// Kick removes targetId from the group. Only the admin can kick, and not
// themselves; they leave or delete instead.
func (s *Service) Kick(ctx context.Context, groupId, adminId, targetId string) (types.Group, error) {
	group, err := s.db.GetGroup(ctx, groupId)
	if err != nil {
		return types.Group{}, fmt.Errorf("get group: %w", err)
	}
	if group.AdminId != adminId {
		return types.Group{}, ErrNotAdmin
	}
	if targetId == adminId {
		return types.Group{}, ErrCannotKickSelf
	}
	if !slices.Contains(group.Members, targetId) {
		return types.Group{}, ErrNotMember
	}

	group = removeMember(group, targetId)

	if err := s.db.UpdateGroupMembership(ctx, group); err != nil {
		return types.Group{}, fmt.Errorf("update membership: %w", err)
	}

	s.notify(ctx, database.NotificationKickedFromGroup, adminId, targetId, groupId, push.Notification{
		Type:  database.NotificationKickedFromGroup,
		Title: group.Name,
		Body:  "You were removed from the group",
		Data:  map[string]string{"group_id": groupId},
	})

	return group, nil
}

// SetAdmin hands the admin role to targetId.
func (s *Service) SetAdmin(ctx context.Context, groupId, adminId, targetId string) (types.Group, error) {
	group, err := s.db.GetGroup(ctx, groupId)
	if err != nil {
		return types.Group{}, fmt.Errorf("get group: %w", err)
	}
	if group.AdminId != adminId {
		return types.Group{}, ErrNotAdmin
	}
	if targetId == group.AdminId {
		return types.Group{}, ErrAlreadyAdmin
	}
	if !slices.Contains(group.Members, targetId) {
		return types.Group{}, ErrNotMember
	}

	group.AdminId = targetId

	if err := s.db.UpdateGroupMembership(ctx, group); err != nil {
		return types.Group{}, fmt.Errorf("update membership: %w", err)
	}

	return group, nil
}

// Delete dissolves the group outright. Admin only. Remaining members are
// notified before the group disappears.
func (s *Service) Delete(ctx context.Context, groupId, adminId string) error {
	group, err := s.db.GetGroup(ctx, groupId)
	if err != nil {
		return fmt.Errorf("get group: %w", err)
	}
	if group.AdminId != adminId {
		return ErrNotAdmin
	}

	for _, memberId := range group.Members {
		if memberId == adminId {
			continue
		}
		s.notify(ctx, database.NotificationGroupDeleted, adminId, memberId, groupId, push.Notification{
			Type:  database.NotificationGroupDeleted,
			Title: group.Name,
			Body:  "The group was deleted",
			Data:  map[string]string{"group_id": groupId},
		})
	}

	return s.dissolve(ctx, group)
}

// dissolve deletes the group's messages, media and document, then closes
// the live room. Media purge failures are logged, never fatal: the group
// must not survive because an image delete timed out.
func (s *Service) dissolve(ctx context.Context, group types.Group) error {
	if err := s.db.DeleteGroupMessages(ctx, group.Id); err != nil {
		return fmt.Errorf("delete group messages: %w", err)
	}

	if s.purger != nil {
		if err := s.purger.PurgeGroup(ctx, group.Id); err != nil {
			s.log.Printf("purge media for group %q: %v", group.Id, err)
		}
	}

	if err := s.db.DeleteGroup(ctx, group.Id); err != nil {
		return fmt.Errorf("delete group: %w", err)
	}

	s.rooms.CloseRoom(group.Id, group.Members)
	s.log.Printf("group %q dissolved", group.Id)

	return nil
}

// notify sends a push and writes a feed record, both best effort.
func (s *Service) notify(ctx context.Context, notifType, senderId, receiverId, relatedId string, n push.Notification) {
	if _, err := s.pusher.Notify(ctx, receiverId, n); err != nil {
		s.log.Printf("push %s to %q: %v", notifType, receiverId, err)
	}

	err := s.db.CreateNotification(ctx, database.CreateNotificationParams{
		Type:       notifType,
		SenderId:   senderId,
		ReceiverId: receiverId,
		RelatedId:  relatedId,
	})
	if err != nil {
		s.log.Printf("create %s notification for %q: %v", notifType, receiverId, err)
	}
}

func removeMember(group types.Group, userId string) types.Group {
	members := make([]string, 0, len(group.Members))
	for _, m := range group.Members {
		if m != userId {
			members = append(members, m)
		}
	}
	group.Members = members
	delete(group.JoinedAt, userId)

	return group
}

// successor picks the next admin: the member who joined earliest, ties
// broken by smaller user id so the choice is deterministic.
func successor(group types.Group) string {
	members := slices.Clone(group.Members)
	sort.Slice(members, func(i, j int) bool {
		ti, tj := group.JoinedAt[members[i]], group.JoinedAt[members[j]]
		if ti.Equal(tj) {
			return members[i] < members[j]
		}
		return ti.Before(tj)
	})

	return members[0]
}
