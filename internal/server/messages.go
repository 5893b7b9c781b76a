package server

import (
	"net/http"
	"time"

	"github.com/sportbuddy/chat-server/internal/types"
)

type BaseMessage struct {
	Id        int       `json:"id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// ClientMessage is the wire envelope for everything a connected client can
// send. Exactly one of the pointer fields is set.
type ClientMessage struct {
	BaseMessage
	Announce   *Announce   `json:"announce,omitempty"`
	SendDirect *SendDirect `json:"send_direct,omitempty"`
	ReadDirect *ReadDirect `json:"read_direct,omitempty"`
	JoinRoom   *JoinRoom   `json:"join_room,omitempty"`
	LeaveRoom  *LeaveRoom  `json:"leave_room,omitempty"`
	SendGroup  *SendGroup  `json:"send_group,omitempty"`
	ReadGroup  *ReadGroup  `json:"read_group,omitempty"`
	Unfriend   *Unfriend   `json:"unfriend,omitempty"`
	UserId     string      `json:"-"`
	client     *Client     `json:"-"`
}

// Announce marks the authenticated user as online. It carries no payload;
// identity comes from the session.
type Announce struct{}

// SendDirect relays an already persisted direct message to the receiver's
// live connection.
type SendDirect struct {
	MessageId  string `json:"message_id"`
	ThreadId   string `json:"thread_id"`
	ReceiverId string `json:"receiver_id"`
	Text       string `json:"text,omitempty"`
	Image      string `json:"image,omitempty"`
}

// ReadDirect marks messages in a thread as read by the sender of this event.
// An empty MessageIds is a no-op.
type ReadDirect struct {
	ThreadId   string   `json:"thread_id"`
	MessageIds []string `json:"message_ids,omitempty"`
}

type JoinRoom struct {
	GroupId string `json:"group_id"`
}

type LeaveRoom struct {
	GroupId string `json:"group_id"`
}

// SendGroup relays an already persisted group message to the group's live
// subscribers.
type SendGroup struct {
	GroupId   string `json:"group_id"`
	MessageId string `json:"message_id"`
}

type ReadGroup struct {
	GroupId    string   `json:"group_id"`
	MessageIds []string `json:"message_ids,omitempty"`
}

// Unfriend tells the other thread participant the friendship ended. The
// HTTP API performs the actual deletion.
type Unfriend struct {
	ThreadId    string `json:"thread_id"`
	OtherUserId string `json:"other_user_id"`
}

type ServerMessage struct {
	BaseMessage
	Response     *Response     `json:"response,omitempty"`
	Notification *Notification `json:"notification,omitempty"`
	SkipClient   *Client       `json:"-"`
}

type Response struct {
	ResponseCode int            `json:"response_code"`
	Error        string         `json:"error,omitempty"`
	ErrorCode    string         `json:"error_code,omitempty"`
	Data         map[string]any `json:"data,omitempty"`
}

type Notification struct {
	OnlineUsers      *OnlineUsers         `json:"online_users,omitempty"`
	DirectMessage    *types.DirectMessage `json:"direct_message,omitempty"`
	DirectRead       *DirectRead          `json:"direct_read,omitempty"`
	GroupMessage     *types.GroupMessage  `json:"group_message,omitempty"`
	GroupLastMessage *GroupLastMessage    `json:"group_last_message,omitempty"`
	GroupRead        *GroupRead           `json:"group_read,omitempty"`
	GroupReadStatus  *GroupReadStatus     `json:"group_read_status,omitempty"`
	Unfriend         *UnfriendNotice      `json:"unfriend,omitempty"`
	GroupDeleted     *GroupDeleted        `json:"group_deleted,omitempty"`
}

// OnlineUsers is the full set of currently online user ids, sorted.
type OnlineUsers struct {
	UserIds []string `json:"user_ids"`
}

type DirectRead struct {
	ThreadId   string   `json:"thread_id"`
	ReaderId   string   `json:"reader_id"`
	MessageIds []string `json:"message_ids"`
}

// GroupLastMessage tells online members outside the room that the group's
// conversation moved, so group lists can reorder without a full reload.
type GroupLastMessage struct {
	GroupId string             `json:"group_id"`
	Message types.GroupMessage `json:"message"`
}

type GroupRead struct {
	GroupId    string   `json:"group_id"`
	ReaderId   string   `json:"reader_id"`
	MessageIds []string `json:"message_ids"`
}

// GroupReadStatus nudges members who are not watching the conversation that
// read state moved, so badge counts can be refetched lazily.
type GroupReadStatus struct {
	GroupId string `json:"group_id"`
}

type UnfriendNotice struct {
	ThreadId string `json:"thread_id"`
	UserId   string `json:"user_id"`
}

type GroupDeleted struct {
	GroupId string `json:"group_id"`
}

func NoErrOK(id int, data map[string]any) *ServerMessage {
	return &ServerMessage{
		BaseMessage: BaseMessage{
			Id:        id,
			Timestamp: Now(),
		},
		Response: &Response{
			ResponseCode: http.StatusOK,
			Data:         data,
		},
	}
}

func NoErrAccepted(id int) *ServerMessage {
	return &ServerMessage{
		BaseMessage: BaseMessage{
			Id:        id,
			Timestamp: Now(),
		},
		Response: &Response{
			ResponseCode: http.StatusAccepted,
		},
	}
}

func ErrInternalError(id int) *ServerMessage {
	return &ServerMessage{
		BaseMessage: BaseMessage{
			Id:        id,
			Timestamp: Now(),
		},
		Response: &Response{
			ResponseCode: http.StatusInternalServerError,
			Error:        "internal server error",
		},
	}
}

func ErrServiceUnavailable(id int) *ServerMessage {
	return &ServerMessage{
		BaseMessage: BaseMessage{
			Id:        id,
			Timestamp: Now(),
		},
		Response: &Response{
			ResponseCode: http.StatusServiceUnavailable,
			Error:        "service unavailable",
		},
	}
}

func ErrInvalidMessage(id int) *ServerMessage {
	msg := &ServerMessage{
		BaseMessage: BaseMessage{
			Timestamp: Now(),
		},
		Response: &Response{
			ResponseCode: http.StatusBadRequest,
			Error:        "invalid message format",
		},
	}

	if id > 0 {
		msg.Id = id
	}
	return msg
}

func notification(n *Notification) *ServerMessage {
	return &ServerMessage{
		BaseMessage:  BaseMessage{Timestamp: Now()},
		Notification: n,
	}
}

func Now() time.Time {
	return time.Now().UTC().Round(time.Millisecond)
}
