package server

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClientMessageDecoding(t *testing.T) {
	t.Run("decodes a send_direct envelope", func(t *testing.T) {
		raw := `{"id":7,"send_direct":{"message_id":"msg-1","thread_id":"thread-1","receiver_id":"user-2","text":"hi"}}`

		var msg ClientMessage
		err := json.Unmarshal([]byte(raw), &msg)
		assert.NoError(t, err)
		assert.Equal(t, 7, msg.Id)
		assert.NotNil(t, msg.SendDirect)
		assert.Nil(t, msg.Announce)
		assert.Equal(t, "thread-1", msg.SendDirect.ThreadId)
	})

	t.Run("decodes an announce envelope", func(t *testing.T) {
		raw := `{"id":1,"announce":{}}`

		var msg ClientMessage
		err := json.Unmarshal([]byte(raw), &msg)
		assert.NoError(t, err)
		assert.NotNil(t, msg.Announce)
		assert.Nil(t, msg.SendDirect)
	})
}

func TestResponseConstructors(t *testing.T) {
	t.Run("NoErrOK", func(t *testing.T) {
		msg := NoErrOK(3, map[string]any{"group_id": "group-1"})
		assert.Equal(t, 3, msg.Id)
		assert.Equal(t, 200, msg.Response.ResponseCode)
		assert.Equal(t, "group-1", msg.Response.Data["group_id"])
		assert.False(t, msg.Timestamp.IsZero())
	})

	t.Run("ErrInvalidMessage drops negative ids", func(t *testing.T) {
		msg := ErrInvalidMessage(-1)
		assert.Zero(t, msg.Id)
		assert.Equal(t, 400, msg.Response.ResponseCode)
	})
}

func TestErrResponse(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		code      int
		errorCode string
	}{
		{"self message", ErrSelfMessage, 400, "self_message"},
		{"empty message", ErrEmptyMessage, 400, "empty_message"},
		{"not participant", ErrNotParticipant, 403, "not_participant"},
		{"not member", ErrNotMember, 403, "not_member"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			msg := errResponse(1, tc.err)
			assert.Equal(t, tc.code, msg.Response.ResponseCode)
			assert.Equal(t, tc.errorCode, msg.Response.ErrorCode)
		})
	}
}
