package server

import (
	"errors"
	"net/http"

	"github.com/sportbuddy/chat-server/internal/database"
)

var (
	ErrSelfMessage    = errors.New("cannot message yourself")
	ErrEmptyMessage   = errors.New("message has no content")
	ErrNotParticipant = errors.New("not a participant of this thread")
	ErrNotMember      = errors.New("not a member of this group")
)

// errResponse maps a domain error to a wire response with a stable error
// code clients can switch on.
func errResponse(id int, err error) *ServerMessage {
	msg := &ServerMessage{
		BaseMessage: BaseMessage{
			Id:        id,
			Timestamp: Now(),
		},
	}

	switch {
	case errors.Is(err, ErrSelfMessage):
		msg.Response = &Response{ResponseCode: http.StatusBadRequest, Error: err.Error(), ErrorCode: "self_message"}
	case errors.Is(err, ErrEmptyMessage):
		msg.Response = &Response{ResponseCode: http.StatusBadRequest, Error: err.Error(), ErrorCode: "empty_message"}
	case errors.Is(err, ErrNotParticipant):
		msg.Response = &Response{ResponseCode: http.StatusForbidden, Error: err.Error(), ErrorCode: "not_participant"}
	case errors.Is(err, ErrNotMember):
		msg.Response = &Response{ResponseCode: http.StatusForbidden, Error: err.Error(), ErrorCode: "not_member"}
	case errors.Is(err, database.ErrNotFound):
		msg.Response = &Response{ResponseCode: http.StatusNotFound, Error: "not found", ErrorCode: "not_found"}
	default:
		msg.Response = &Response{ResponseCode: http.StatusInternalServerError, Error: "internal server error"}
	}

	return msg
}
