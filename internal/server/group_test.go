package server

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/sportbuddy/chat-server/internal/database"
	"github.com/sportbuddy/chat-server/internal/push"
	"github.com/sportbuddy/chat-server/internal/stats"
	"github.com/sportbuddy/chat-server/internal/types"
)

func TestSendGroup(t *testing.T) {
	grp := types.Group{
		Id:      "group-1",
		Name:    "Sunday Football",
		AdminId: "user-1",
		Members: []string{"user-1", "user-2", "user-3"},
	}

	t.Run("rejects empty message", func(t *testing.T) {
		cs := newTestChatServer(t, &database.MockRepository{}, &stats.MockStatsUpdater{}, &mockPusher{})

		_, err := cs.SendGroup(context.Background(), "group-1", "user-1", "", "")
		assert.ErrorIs(t, err, ErrEmptyMessage)
	})

	t.Run("rejects non-member sender", func(t *testing.T) {
		db := &database.MockRepository{}
		defer db.AssertExpectations(t)
		db.On("GetGroup", mock.Anything, "group-1").Return(grp, nil).Once()

		cs := newTestChatServer(t, db, &stats.MockStatsUpdater{}, &mockPusher{})

		_, err := cs.SendGroup(context.Background(), "group-1", "user-9", "hi", "")
		assert.ErrorIs(t, err, ErrNotMember)
	})

	t.Run("fans out to room and online members", func(t *testing.T) {
		stored := types.GroupMessage{
			Id:       "msg-1",
			GroupId:  "group-1",
			SenderId: "user-1",
			Text:     "kickoff at 5",
			ReadBy:   []string{},
		}

		db := &database.MockRepository{}
		db.On("GetGroup", mock.Anything, "group-1").Return(grp, nil).Once()
		db.On("CreateGroupMessage", mock.Anything, mock.Anything).Return(stored, nil).Once()
		db.On("UpdateGroupLastMessage", mock.Anything, "group-1", "msg-1").Return(nil).Once()
		db.On("CreateNotification", mock.Anything, mock.Anything).Return(nil)

		pusher := &mockPusher{}
		pusher.On("Notify", mock.Anything, mock.Anything, mock.Anything).Return(push.ResultDelivered, nil)

		su := &stats.MockStatsUpdater{}
		su.On("Incr", StatGroupMessagesDelivered).Once()

		cs := newTestChatServer(t, db, su, pusher)

		sender := newTestClient(cs, "user-1", "conn-1")
		inRoom := newTestClient(cs, "user-2", "conn-2")
		cs.rooms["group-1"] = map[*Client]struct{}{sender: {}, inRoom: {}}
		outOfRoom := newTestClient(cs, "user-3", "conn-3")

		msg, err := cs.SendGroup(context.Background(), "group-1", "user-1", "kickoff at 5", "")
		assert.NoError(t, err)
		assert.Equal(t, "msg-1", msg.Id)

		note := <-inRoom.send
		assert.NotNil(t, note.Notification.GroupMessage, "expected full message in room")
		assert.Equal(t, "msg-1", note.Notification.GroupMessage.Id)

		inRoomLast := <-inRoom.send
		assert.NotNil(t, inRoomLast.Notification.GroupLastMessage, "room members keep their list views current too")
		assert.Equal(t, "group-1", inRoomLast.Notification.GroupLastMessage.GroupId)

		lastNote := <-outOfRoom.send
		assert.NotNil(t, lastNote.Notification.GroupLastMessage, "expected last-message update outside room")
		assert.Equal(t, "group-1", lastNote.Notification.GroupLastMessage.GroupId)

		assert.Empty(t, sender.send, "sender should not receive their own message")

		// pushes run on their own goroutines
		assert.Eventually(t, func() bool {
			return len(pusher.Calls) == 2
		}, time.Second, 10*time.Millisecond, "expected a push per member except the sender")
	})
}

func TestMarkGroupRead(t *testing.T) {
	grp := types.Group{
		Id:      "group-1",
		Members: []string{"user-1", "user-2", "user-3"},
	}

	t.Run("details go to the room, a nudge to every online member", func(t *testing.T) {
		db := &database.MockRepository{}
		defer db.AssertExpectations(t)
		db.On("GetGroup", mock.Anything, "group-1").Return(grp, nil).Once()
		db.On("AddGroupMessageReader", mock.Anything, "group-1", "user-2", []string{"msg-1"}).Return([]string{"msg-1"}, nil).Once()

		cs := newTestChatServer(t, db, &stats.MockStatsUpdater{}, &mockPusher{})

		reader := newTestClient(cs, "user-2", "conn-2")
		inRoom := newTestClient(cs, "user-1", "conn-1")
		cs.rooms["group-1"] = map[*Client]struct{}{reader: {}, inRoom: {}}
		outOfRoom := newTestClient(cs, "user-3", "conn-3")

		affected, err := cs.MarkGroupRead(context.Background(), "group-1", "user-2", []string{"msg-1"})
		assert.NoError(t, err)
		assert.Equal(t, []string{"msg-1"}, affected)

		note := <-inRoom.send
		assert.NotNil(t, note.Notification.GroupRead)
		assert.Equal(t, "user-2", note.Notification.GroupRead.ReaderId)
		assert.Equal(t, []string{"msg-1"}, note.Notification.GroupRead.MessageIds)

		status := <-inRoom.send
		assert.NotNil(t, status.Notification.GroupReadStatus, "room members also get the status nudge")

		outNote := <-outOfRoom.send
		assert.Nil(t, outNote.Notification.GroupRead, "detail stays in the room")
		assert.NotNil(t, outNote.Notification.GroupReadStatus)
		assert.Equal(t, "group-1", outNote.Notification.GroupReadStatus.GroupId)

		readerNote := <-reader.send
		assert.NotNil(t, readerNote.Notification.GroupRead, "read event reaches the whole room, reader included")
		readerStatus := <-reader.send
		assert.NotNil(t, readerStatus.Notification.GroupReadStatus)
	})

	t.Run("repeated mark is a silent no-op", func(t *testing.T) {
		db := &database.MockRepository{}
		defer db.AssertExpectations(t)
		db.On("GetGroup", mock.Anything, "group-1").Return(grp, nil).Once()
		db.On("AddGroupMessageReader", mock.Anything, "group-1", "user-2", []string(nil)).Return(nil, nil).Once()

		cs := newTestChatServer(t, db, &stats.MockStatsUpdater{}, &mockPusher{})
		inRoom := newTestClient(cs, "user-1", "conn-1")
		cs.rooms["group-1"] = map[*Client]struct{}{inRoom: {}}

		affected, err := cs.MarkGroupRead(context.Background(), "group-1", "user-2", nil)
		assert.NoError(t, err)
		assert.Empty(t, affected)
		assert.Empty(t, inRoom.send, "expected no notification")
	})
}

func TestHandleGroupSend(t *testing.T) {
	grp := types.Group{
		Id:      "group-1",
		Members: []string{"user-1", "user-2"},
	}
	stored := types.GroupMessage{
		Id:       "msg-1",
		GroupId:  "group-1",
		SenderId: "user-1",
		Text:     "hello",
	}

	t.Run("relays a persisted message to the room", func(t *testing.T) {
		db := &database.MockRepository{}
		defer db.AssertExpectations(t)
		db.On("GetGroup", mock.Anything, "group-1").Return(grp, nil).Once()
		db.On("GetGroupMessage", mock.Anything, "msg-1").Return(stored, nil).Once()

		su := &stats.MockStatsUpdater{}
		su.On("Incr", StatGroupMessagesDelivered).Once()
		cs := newTestChatServer(t, db, su, &mockPusher{})

		sender := newTestClient(cs, "user-1", "conn-1")
		inRoom := newTestClient(cs, "user-2", "conn-2")
		cs.rooms["group-1"] = map[*Client]struct{}{sender: {}, inRoom: {}}

		cs.handleGroupSend(&ClientMessage{
			BaseMessage: BaseMessage{Id: 3},
			SendGroup:   &SendGroup{GroupId: "group-1", MessageId: "msg-1"},
			UserId:      "user-1",
			client:      sender,
		})

		note := <-inRoom.send
		assert.NotNil(t, note.Notification.GroupMessage)

		reply := <-sender.send
		assert.Equal(t, 202, reply.Response.ResponseCode)
	})

	t.Run("rejects a message belonging to someone else", func(t *testing.T) {
		db := &database.MockRepository{}
		defer db.AssertExpectations(t)
		db.On("GetGroup", mock.Anything, "group-1").Return(grp, nil).Once()
		db.On("GetGroupMessage", mock.Anything, "msg-1").Return(stored, nil).Once()

		cs := newTestChatServer(t, db, &stats.MockStatsUpdater{}, &mockPusher{})
		c := newTestClient(cs, "user-2", "conn-2")

		cs.handleGroupSend(&ClientMessage{
			BaseMessage: BaseMessage{Id: 4},
			SendGroup:   &SendGroup{GroupId: "group-1", MessageId: "msg-1"},
			UserId:      "user-2",
			client:      c,
		})

		reply := <-c.send
		assert.Equal(t, 404, reply.Response.ResponseCode)
	})
}
