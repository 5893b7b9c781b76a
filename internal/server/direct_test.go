package server

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/sportbuddy/chat-server/internal/database"
	"github.com/sportbuddy/chat-server/internal/push"
	"github.com/sportbuddy/chat-server/internal/stats"
	"github.com/sportbuddy/chat-server/internal/types"
)

func TestSendDirect(t *testing.T) {
	thread := types.Thread{Id: "thread-1", UserA: "user-1", UserB: "user-2"}

	t.Run("rejects message to self", func(t *testing.T) {
		cs := newTestChatServer(t, &database.MockRepository{}, &stats.MockStatsUpdater{}, &mockPusher{})

		_, err := cs.SendDirect(context.Background(), "thread-1", "user-1", "user-1", "hi", "")
		assert.ErrorIs(t, err, ErrSelfMessage)
	})

	t.Run("rejects empty message", func(t *testing.T) {
		cs := newTestChatServer(t, &database.MockRepository{}, &stats.MockStatsUpdater{}, &mockPusher{})

		_, err := cs.SendDirect(context.Background(), "thread-1", "user-1", "user-2", "", "")
		assert.ErrorIs(t, err, ErrEmptyMessage)
	})

	t.Run("rejects sender outside the thread", func(t *testing.T) {
		db := &database.MockRepository{}
		defer db.AssertExpectations(t)
		db.On("GetThread", mock.Anything, "thread-1").Return(thread, nil).Once()

		cs := newTestChatServer(t, db, &stats.MockStatsUpdater{}, &mockPusher{})

		_, err := cs.SendDirect(context.Background(), "thread-1", "user-3", "user-2", "hi", "")
		assert.ErrorIs(t, err, ErrNotParticipant)
	})

	t.Run("persists then delivers to online receiver and pushes", func(t *testing.T) {
		stored := types.DirectMessage{
			Id:         "msg-1",
			ThreadId:   "thread-1",
			SenderId:   "user-1",
			ReceiverId: "user-2",
			Text:       "hi",
		}

		db := &database.MockRepository{}
		defer db.AssertExpectations(t)
		db.On("GetThread", mock.Anything, "thread-1").Return(thread, nil).Once()
		db.On("CreateDirectMessage", mock.Anything, mock.Anything).Return(stored, nil).Once()
		db.On("UpdateThreadLastMessage", mock.Anything, "thread-1", "msg-1").Return(nil).Once()
		db.On("GetAccountById", mock.Anything, "user-1").Return(types.User{Id: "user-1", Name: "Alice"}, nil).Once()
		db.On("CreateNotification", mock.Anything, mock.Anything).Return(nil).Once()

		pusher := &mockPusher{}
		defer pusher.AssertExpectations(t)
		pusher.On("Notify", mock.Anything, "user-2", mock.Anything).Return(push.ResultDelivered, nil).Once()

		su := &stats.MockStatsUpdater{}
		defer su.AssertExpectations(t)
		su.On("Incr", StatDirectMessagesDelivered).Once()

		cs := newTestChatServer(t, db, su, pusher)
		receiver := newTestClient(cs, "user-2", "conn-2")

		msg, err := cs.SendDirect(context.Background(), "thread-1", "user-1", "user-2", "hi", "")
		assert.NoError(t, err)
		assert.Equal(t, "msg-1", msg.Id)

		note := <-receiver.send
		assert.NotNil(t, note.Notification.DirectMessage, "expected live delivery")
		assert.Equal(t, "msg-1", note.Notification.DirectMessage.Id)
	})

	t.Run("offline receiver still gets the push", func(t *testing.T) {
		stored := types.DirectMessage{
			Id:         "msg-1",
			ThreadId:   "thread-1",
			SenderId:   "user-1",
			ReceiverId: "user-2",
			Text:       "hi",
		}

		db := &database.MockRepository{}
		defer db.AssertExpectations(t)
		db.On("GetThread", mock.Anything, "thread-1").Return(thread, nil).Once()
		db.On("CreateDirectMessage", mock.Anything, mock.Anything).Return(stored, nil).Once()
		db.On("UpdateThreadLastMessage", mock.Anything, "thread-1", "msg-1").Return(nil).Once()
		db.On("GetAccountById", mock.Anything, "user-1").Return(types.User{Id: "user-1", Name: "Alice"}, nil).Once()
		db.On("CreateNotification", mock.Anything, mock.Anything).Return(nil).Once()

		pusher := &mockPusher{}
		defer pusher.AssertExpectations(t)
		pusher.On("Notify", mock.Anything, "user-2", mock.Anything).Return(push.ResultDelivered, nil).Once()

		cs := newTestChatServer(t, db, &stats.MockStatsUpdater{}, pusher)

		_, err := cs.SendDirect(context.Background(), "thread-1", "user-1", "user-2", "hi", "")
		assert.NoError(t, err)
	})
}

func TestMarkDirectRead(t *testing.T) {
	thread := types.Thread{Id: "thread-1", UserA: "user-1", UserB: "user-2"}

	t.Run("notifies both online participants with affected ids only", func(t *testing.T) {
		db := &database.MockRepository{}
		defer db.AssertExpectations(t)
		db.On("GetThread", mock.Anything, "thread-1").Return(thread, nil).Once()
		db.On("MarkDirectMessagesRead", mock.Anything, "thread-1", []string{"msg-1", "msg-2", "msg-3"}).Return([]string{"msg-1", "msg-2"}, nil).Once()

		cs := newTestChatServer(t, db, &stats.MockStatsUpdater{}, &mockPusher{})
		sender := newTestClient(cs, "user-1", "conn-1")
		reader := newTestClient(cs, "user-2", "conn-2")

		affected, err := cs.MarkDirectRead(context.Background(), "thread-1", "user-2", []string{"msg-1", "msg-2", "msg-3"})
		assert.NoError(t, err)
		assert.Equal(t, []string{"msg-1", "msg-2"}, affected)

		note := <-sender.send
		assert.NotNil(t, note.Notification.DirectRead, "expected read notification")
		assert.Equal(t, "user-2", note.Notification.DirectRead.ReaderId)
		assert.Equal(t, []string{"msg-1", "msg-2"}, note.Notification.DirectRead.MessageIds)

		readerNote := <-reader.send
		assert.NotNil(t, readerNote.Notification.DirectRead, "reader's other devices converge too")
	})

	t.Run("no event when nothing was unread", func(t *testing.T) {
		db := &database.MockRepository{}
		defer db.AssertExpectations(t)
		db.On("GetThread", mock.Anything, "thread-1").Return(thread, nil).Once()
		db.On("MarkDirectMessagesRead", mock.Anything, "thread-1", []string{"msg-1"}).Return(nil, nil).Once()

		cs := newTestChatServer(t, db, &stats.MockStatsUpdater{}, &mockPusher{})
		sender := newTestClient(cs, "user-1", "conn-1")

		affected, err := cs.MarkDirectRead(context.Background(), "thread-1", "user-2", []string{"msg-1"})
		assert.NoError(t, err)
		assert.Empty(t, affected)
		assert.Empty(t, sender.send, "expected no read notification")
	})

	t.Run("empty id list does not touch the store", func(t *testing.T) {
		db := &database.MockRepository{}
		cs := newTestChatServer(t, db, &stats.MockStatsUpdater{}, &mockPusher{})

		affected, err := cs.MarkDirectRead(context.Background(), "thread-1", "user-2", nil)
		assert.NoError(t, err)
		assert.Empty(t, affected)
		db.AssertNotCalled(t, "MarkDirectMessagesRead", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("rejects reader outside the thread", func(t *testing.T) {
		db := &database.MockRepository{}
		defer db.AssertExpectations(t)
		db.On("GetThread", mock.Anything, "thread-1").Return(thread, nil).Once()

		cs := newTestChatServer(t, db, &stats.MockStatsUpdater{}, &mockPusher{})

		_, err := cs.MarkDirectRead(context.Background(), "thread-1", "user-3", []string{"msg-1"})
		assert.ErrorIs(t, err, ErrNotParticipant)
	})
}

func TestNotifyUnfriend(t *testing.T) {
	cs := newTestChatServer(t, &database.MockRepository{}, &stats.MockStatsUpdater{}, &mockPusher{})
	other := newTestClient(cs, "user-2", "conn-2")

	cs.NotifyUnfriend("thread-1", "user-1", "user-2")

	note := <-other.send
	assert.NotNil(t, note.Notification.Unfriend, "expected unfriend notification")
	assert.Equal(t, "thread-1", note.Notification.Unfriend.ThreadId)
	assert.Equal(t, "user-1", note.Notification.Unfriend.UserId)
}
