package server

import (
	"context"
	"fmt"
	"slices"

	"github.com/sportbuddy/chat-server/internal/database"
	"github.com/sportbuddy/chat-server/internal/push"
	"github.com/sportbuddy/chat-server/internal/types"
)

// SendGroup persists a group message and fans it out: the full message to
// room subscribers, a last-message update to online members outside the
// room, and a push to every other member. Persist happens first.
func (cs *ChatServer) SendGroup(ctx context.Context, groupId, senderId, text, image string) (types.GroupMessage, error) {
	if text == "" && image == "" {
		return types.GroupMessage{}, ErrEmptyMessage
	}

	group, err := cs.db.GetGroup(ctx, groupId)
	if err != nil {
		return types.GroupMessage{}, fmt.Errorf("get group: %w", err)
	}
	if !slices.Contains(group.Members, senderId) {
		return types.GroupMessage{}, ErrNotMember
	}

	msg, err := cs.db.CreateGroupMessage(ctx, types.GroupMessage{
		GroupId:  groupId,
		SenderId: senderId,
		Text:     text,
		Image:    image,
	})
	if err != nil {
		return types.GroupMessage{}, fmt.Errorf("create group message: %w", err)
	}

	if err := cs.db.UpdateGroupLastMessage(ctx, groupId, msg.Id); err != nil {
		cs.log.Printf("update group %q last message: %v", groupId, err)
	}

	cs.deliverGroup(group, msg)
	cs.pushGroup(group, msg)

	return msg, nil
}

// deliverGroup sends the message to room subscribers and a last-message
// update to every online member, so list views reorder whether or not the
// member is watching the conversation. The sender is skipped on both paths.
func (cs *ChatServer) deliverGroup(group types.Group, msg types.GroupMessage) {
	note := notification(&Notification{GroupMessage: &msg})
	for c := range cs.roomClients(group.Id) {
		if c.user.Id == msg.SenderId {
			continue
		}
		if c.queueMessage(note) {
			cs.stats.Incr(StatGroupMessagesDelivered)
		}
	}

	lastNote := notification(&Notification{
		GroupLastMessage: &GroupLastMessage{GroupId: group.Id, Message: msg},
	})
	for _, userId := range group.Members {
		if userId == msg.SenderId {
			continue
		}
		if c := cs.presence.ClientFor(userId); c != nil {
			c.queueMessage(lastNote)
		}
	}
}

// pushGroup dispatches a push and a notification record to every member
// except the sender, each on its own goroutine so one slow provider call
// does not hold up the rest.
func (cs *ChatServer) pushGroup(group types.Group, msg types.GroupMessage) {
	n := push.Notification{
		Type:  database.NotificationGroupMessage,
		Title: group.Name,
		Body:  msg.Text,
		Image: msg.Image,
		Data: map[string]string{
			"group_id":   group.Id,
			"message_id": msg.Id,
			"sender_id":  msg.SenderId,
		},
	}
	if msg.Text == "" {
		n.Body = "Sent an image"
	}

	for _, userId := range group.Members {
		if userId == msg.SenderId {
			continue
		}

		go func(recipientId string) {
			ctx, cancel := context.WithTimeout(context.Background(), dbTimeout)
			defer cancel()

			if _, err := cs.pusher.Notify(ctx, recipientId, n); err != nil {
				cs.log.Printf("push group message %q to %q: %v", msg.Id, recipientId, err)
			}

			err := cs.db.CreateNotification(ctx, database.CreateNotificationParams{
				Type:       database.NotificationGroupMessage,
				SenderId:   msg.SenderId,
				ReceiverId: recipientId,
				RelatedId:  group.Id,
			})
			if err != nil {
				cs.log.Printf("create notification for group message %q: %v", msg.Id, err)
			}
		}(userId)
	}
}

// MarkGroupRead records readerId against the given messages and announces
// which ids flipped: the room gets the full detail, every online member
// gets a bare status nudge. A reader is only added once per message, so
// repeated marks are no-ops and the announced set is exactly what changed.
func (cs *ChatServer) MarkGroupRead(ctx context.Context, groupId, readerId string, messageIds []string) ([]string, error) {
	group, err := cs.db.GetGroup(ctx, groupId)
	if err != nil {
		return nil, fmt.Errorf("get group: %w", err)
	}

	affected, err := cs.db.AddGroupMessageReader(ctx, groupId, readerId, messageIds)
	if err != nil {
		return nil, fmt.Errorf("add message reader: %w", err)
	}
	if len(affected) == 0 {
		return nil, nil
	}

	note := notification(&Notification{
		GroupRead: &GroupRead{
			GroupId:    groupId,
			ReaderId:   readerId,
			MessageIds: affected,
		},
	})

	for c := range cs.roomClients(groupId) {
		c.queueMessage(note)
	}

	status := notification(&Notification{
		GroupReadStatus: &GroupReadStatus{GroupId: groupId},
	})
	for _, userId := range group.Members {
		if c := cs.presence.ClientFor(userId); c != nil {
			c.queueMessage(status)
		}
	}

	return affected, nil
}

// handleGroupSend relays an already persisted group message to live
// subscribers. The persist and push happened over HTTP; this only covers
// the realtime leg.
func (cs *ChatServer) handleGroupSend(msg *ClientMessage) {
	ctx, cancel := context.WithTimeout(context.Background(), dbTimeout)
	defer cancel()

	send := msg.SendGroup
	group, err := cs.db.GetGroup(ctx, send.GroupId)
	if err != nil {
		msg.client.queueMessage(errResponse(msg.Id, err))
		return
	}
	if !slices.Contains(group.Members, msg.UserId) {
		msg.client.queueMessage(errResponse(msg.Id, ErrNotMember))
		return
	}

	stored, err := cs.db.GetGroupMessage(ctx, send.MessageId)
	if err != nil || stored.GroupId != send.GroupId || stored.SenderId != msg.UserId {
		msg.client.queueMessage(errResponse(msg.Id, database.ErrNotFound))
		return
	}

	cs.deliverGroup(group, stored)
	msg.client.queueMessage(NoErrAccepted(msg.Id))
}

func (cs *ChatServer) handleGroupRead(msg *ClientMessage) {
	ctx, cancel := context.WithTimeout(context.Background(), dbTimeout)
	defer cancel()

	if _, err := cs.MarkGroupRead(ctx, msg.ReadGroup.GroupId, msg.UserId, msg.ReadGroup.MessageIds); err != nil {
		cs.log.Printf("mark group %q read: %v", msg.ReadGroup.GroupId, err)
		msg.client.queueMessage(errResponse(msg.Id, err))
		return
	}

	msg.client.queueMessage(NoErrAccepted(msg.Id))
}
