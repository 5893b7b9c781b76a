package server

import (
	"context"
	"fmt"

	"github.com/sportbuddy/chat-server/internal/database"
	"github.com/sportbuddy/chat-server/internal/push"
	"github.com/sportbuddy/chat-server/internal/types"
)

// SendDirect persists a direct message and delivers it: to the receiver's
// live connection when online, and through the push dispatcher either way.
// The message is stored before any delivery is attempted, so a crash can
// lose a notification but never an acknowledged message.
func (cs *ChatServer) SendDirect(ctx context.Context, threadId, senderId, receiverId, text, image string) (types.DirectMessage, error) {
	if senderId == receiverId {
		return types.DirectMessage{}, ErrSelfMessage
	}
	if text == "" && image == "" {
		return types.DirectMessage{}, ErrEmptyMessage
	}

	thread, err := cs.db.GetThread(ctx, threadId)
	if err != nil {
		return types.DirectMessage{}, fmt.Errorf("get thread: %w", err)
	}
	if !isParticipant(thread, senderId) || !isParticipant(thread, receiverId) {
		return types.DirectMessage{}, ErrNotParticipant
	}

	msg, err := cs.db.CreateDirectMessage(ctx, types.DirectMessage{
		ThreadId:   threadId,
		SenderId:   senderId,
		ReceiverId: receiverId,
		Text:       text,
		Image:      image,
	})
	if err != nil {
		return types.DirectMessage{}, fmt.Errorf("create direct message: %w", err)
	}

	if err := cs.db.UpdateThreadLastMessage(ctx, threadId, msg.Id); err != nil {
		cs.log.Printf("update thread %q last message: %v", threadId, err)
	}

	cs.deliverDirect(receiverId, msg)
	cs.notifyDirect(ctx, msg)

	return msg, nil
}

// deliverDirect queues the message on the receiver's live connection, if
// any. Reports whether the receiver was reached.
func (cs *ChatServer) deliverDirect(receiverId string, msg types.DirectMessage) bool {
	c := cs.presence.ClientFor(receiverId)
	if c == nil {
		return false
	}

	if !c.queueMessage(notification(&Notification{DirectMessage: &msg})) {
		return false
	}

	cs.stats.Incr(StatDirectMessagesDelivered)
	return true
}

// notifyDirect sends the push and writes the notification feed record.
// Both are best effort: the message is already persisted.
func (cs *ChatServer) notifyDirect(ctx context.Context, msg types.DirectMessage) {
	n := push.Notification{
		Type:  database.NotificationDirectMessage,
		Body:  msg.Text,
		Image: msg.Image,
		Data: map[string]string{
			"thread_id":  msg.ThreadId,
			"message_id": msg.Id,
			"sender_id":  msg.SenderId,
		},
	}
	if msg.Text == "" {
		n.Body = "Sent an image"
	}

	if sender, err := cs.db.GetAccountById(ctx, msg.SenderId); err != nil {
		cs.log.Printf("get sender %q for push: %v", msg.SenderId, err)
	} else {
		n.Title = sender.Name
	}

	if _, err := cs.pusher.Notify(ctx, msg.ReceiverId, n); err != nil {
		cs.log.Printf("push direct message %q: %v", msg.Id, err)
	}

	err := cs.db.CreateNotification(ctx, database.CreateNotificationParams{
		Type:       database.NotificationDirectMessage,
		SenderId:   msg.SenderId,
		ReceiverId: msg.ReceiverId,
		RelatedId:  msg.ThreadId,
	})
	if err != nil {
		cs.log.Printf("create notification for message %q: %v", msg.Id, err)
	}
}

// MarkDirectRead marks messages in the thread as read by readerId and sends
// both online participants the same event listing exactly the ids that
// flipped, so each side's cache converges. Messages already read are left
// alone; when nothing flips no event is sent. Empty messageIds is a no-op.
func (cs *ChatServer) MarkDirectRead(ctx context.Context, threadId, readerId string, messageIds []string) ([]string, error) {
	if len(messageIds) == 0 {
		return nil, nil
	}

	thread, err := cs.db.GetThread(ctx, threadId)
	if err != nil {
		return nil, fmt.Errorf("get thread: %w", err)
	}
	if !isParticipant(thread, readerId) {
		return nil, ErrNotParticipant
	}

	affected, err := cs.db.MarkDirectMessagesRead(ctx, threadId, messageIds)
	if err != nil {
		return nil, fmt.Errorf("mark messages read: %w", err)
	}
	if len(affected) == 0 {
		return nil, nil
	}

	note := notification(&Notification{
		DirectRead: &DirectRead{
			ThreadId:   threadId,
			ReaderId:   readerId,
			MessageIds: affected,
		},
	})
	for _, userId := range []string{thread.UserA, thread.UserB} {
		if c := cs.presence.ClientFor(userId); c != nil {
			c.queueMessage(note)
		}
	}

	return affected, nil
}

// NotifyUnfriend tells the other participant their thread is gone. The
// deletion itself happens in the HTTP layer before this is called.
func (cs *ChatServer) NotifyUnfriend(threadId, userId, otherUserId string) {
	if c := cs.presence.ClientFor(otherUserId); c != nil {
		c.queueMessage(notification(&Notification{
			Unfriend: &UnfriendNotice{ThreadId: threadId, UserId: userId},
		}))
	}
}

func (cs *ChatServer) handleDirectSend(msg *ClientMessage) {
	ctx, cancel := context.WithTimeout(context.Background(), dbTimeout)
	defer cancel()

	send := msg.SendDirect
	thread, err := cs.db.GetThread(ctx, send.ThreadId)
	if err != nil {
		msg.client.queueMessage(errResponse(msg.Id, err))
		return
	}
	if !isParticipant(thread, msg.UserId) || !isParticipant(thread, send.ReceiverId) {
		msg.client.queueMessage(errResponse(msg.Id, ErrNotParticipant))
		return
	}

	cs.deliverDirect(send.ReceiverId, types.DirectMessage{
		Id:         send.MessageId,
		ThreadId:   send.ThreadId,
		SenderId:   msg.UserId,
		ReceiverId: send.ReceiverId,
		Text:       send.Text,
		Image:      send.Image,
		CreatedAt:  msg.Timestamp,
	})
	msg.client.queueMessage(NoErrAccepted(msg.Id))
}

func (cs *ChatServer) handleDirectRead(msg *ClientMessage) {
	ctx, cancel := context.WithTimeout(context.Background(), dbTimeout)
	defer cancel()

	if _, err := cs.MarkDirectRead(ctx, msg.ReadDirect.ThreadId, msg.UserId, msg.ReadDirect.MessageIds); err != nil {
		cs.log.Printf("mark thread %q read: %v", msg.ReadDirect.ThreadId, err)
		msg.client.queueMessage(errResponse(msg.Id, err))
		return
	}

	msg.client.queueMessage(NoErrAccepted(msg.Id))
}

func (cs *ChatServer) handleUnfriend(msg *ClientMessage) {
	cs.NotifyUnfriend(msg.Unfriend.ThreadId, msg.UserId, msg.Unfriend.OtherUserId)
	msg.client.queueMessage(NoErrAccepted(msg.Id))
}

func isParticipant(thread types.Thread, userId string) bool {
	return thread.UserA == userId || thread.UserB == userId
}
