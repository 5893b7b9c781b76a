package api

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/sportbuddy/chat-server/internal/config"
	"github.com/sportbuddy/chat-server/internal/database"
	"github.com/sportbuddy/chat-server/internal/group"
	"github.com/sportbuddy/chat-server/internal/push"
	"github.com/sportbuddy/chat-server/internal/server"
	"github.com/sportbuddy/chat-server/internal/stats"
	"github.com/sportbuddy/chat-server/internal/testutil"
	"github.com/sportbuddy/chat-server/internal/types"
	"golang.org/x/crypto/bcrypt"
)

type noopPusher struct{}

func (noopPusher) Notify(ctx context.Context, recipientId string, n push.Notification) (push.Result, error) {
	return push.ResultSkipped, nil
}

type mockThreadPurger struct {
	mock.Mock
}

func (m *mockThreadPurger) PurgeThread(ctx context.Context, threadId string) error {
	args := m.Called(ctx, threadId)
	return args.Error(0)
}

func newTestApp(t *testing.T, db database.Repository, purger ThreadPurger) *ChatApp {
	logger := testutil.TestLogger(t)

	su := &stats.MockStatsUpdater{}
	su.On("RegisterMetric", mock.Anything)
	su.On("Incr", mock.Anything).Maybe()
	su.On("Decr", mock.Anything).Maybe()

	presence := server.NewPresenceRegistry()
	cs := server.NewChatServer(logger, db, presence, noopPusher{}, su)
	groups := group.NewService(logger, db, noopPusher{}, nil, cs)

	cfg, err := config.NewConfig(
		"localhost:8000",
		"mongodb://localhost:27017",
		"test",
		base64.StdEncoding.EncodeToString([]byte("test-signing-key")),
		nil,
	)
	if err != nil {
		t.Fatalf("failed to create test config: %v", err)
	}

	return NewChatApp(logger, cs, groups, db, purger, cfg, nil)
}

func authedRequest(t *testing.T, s *ChatApp, method, target, body, userId string) *http.Request {
	var r *http.Request
	if body != "" {
		r = httptest.NewRequest(method, target, strings.NewReader(body))
	} else {
		r = httptest.NewRequest(method, target, nil)
	}

	token, err := s.createJwtForSession(userId, time.Hour)
	if err != nil {
		t.Fatalf("failed to create session token: %v", err)
	}
	r.AddCookie(createJwtCookie(token, time.Hour))

	return r
}

func TestLogin(t *testing.T) {
	hash, _ := bcrypt.GenerateFromPassword([]byte("hunter2"), bcrypt.DefaultCost)
	user := types.User{Id: "user-1", Name: "Alice", Email: "alice@example.com", Password: string(hash)}

	t.Run("valid credentials set a session cookie", func(t *testing.T) {
		db := &database.MockRepository{}
		defer db.AssertExpectations(t)
		db.On("GetAccountByEmail", mock.Anything, "alice@example.com").Return(user, nil).Once()

		s := newTestApp(t, db, nil)

		r := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(`{"email":"alice@example.com","password":"hunter2"}`))
		w := httptest.NewRecorder()
		s.mux.Handler.ServeHTTP(w, r)

		assert.Equal(t, http.StatusOK, w.Code)
		cookies := w.Result().Cookies()
		assert.NotEmpty(t, cookies, "expected a session cookie")
		assert.Equal(t, tokenCookieKey, cookies[0].Name)
	})

	t.Run("wrong password is unauthorized", func(t *testing.T) {
		db := &database.MockRepository{}
		defer db.AssertExpectations(t)
		db.On("GetAccountByEmail", mock.Anything, "alice@example.com").Return(user, nil).Once()

		s := newTestApp(t, db, nil)

		r := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(`{"email":"alice@example.com","password":"wrong"}`))
		w := httptest.NewRecorder()
		s.mux.Handler.ServeHTTP(w, r)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestAuthRequired(t *testing.T) {
	s := newTestApp(t, &database.MockRepository{}, nil)

	r := httptest.NewRequest(http.MethodPost, "/api/direct/messages", strings.NewReader(`{}`))
	w := httptest.NewRecorder()
	s.mux.Handler.ServeHTTP(w, r)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestSendDirectMessageHandler(t *testing.T) {
	thread := types.Thread{Id: "thread-1", UserA: "user-1", UserB: "user-2"}

	t.Run("persists and returns the message", func(t *testing.T) {
		stored := types.DirectMessage{Id: "msg-1", ThreadId: "thread-1", SenderId: "user-1", ReceiverId: "user-2", Text: "hi"}

		db := &database.MockRepository{}
		defer db.AssertExpectations(t)
		db.On("GetThread", mock.Anything, "thread-1").Return(thread, nil).Once()
		db.On("CreateDirectMessage", mock.Anything, mock.Anything).Return(stored, nil).Once()
		db.On("UpdateThreadLastMessage", mock.Anything, "thread-1", "msg-1").Return(nil).Once()
		db.On("GetAccountById", mock.Anything, "user-1").Return(types.User{Id: "user-1", Name: "Alice"}, nil).Once()
		db.On("CreateNotification", mock.Anything, mock.Anything).Return(nil).Once()

		s := newTestApp(t, db, nil)

		r := authedRequest(t, s, http.MethodPost, "/api/direct/messages",
			`{"thread_id":"thread-1","receiver_id":"user-2","text":"hi"}`, "user-1")
		w := httptest.NewRecorder()
		s.mux.Handler.ServeHTTP(w, r)

		assert.Equal(t, http.StatusCreated, w.Code)

		var msg types.DirectMessage
		assert.NoError(t, json.NewDecoder(w.Body).Decode(&msg))
		assert.Equal(t, "msg-1", msg.Id)
	})

	t.Run("messaging yourself returns a stable error code", func(t *testing.T) {
		db := &database.MockRepository{}
		s := newTestApp(t, db, nil)

		r := authedRequest(t, s, http.MethodPost, "/api/direct/messages",
			`{"thread_id":"thread-1","receiver_id":"user-1","text":"hi"}`, "user-1")
		w := httptest.NewRecorder()
		s.mux.Handler.ServeHTTP(w, r)

		assert.Equal(t, http.StatusBadRequest, w.Code)

		var apiErr ApiError
		assert.NoError(t, json.NewDecoder(w.Body).Decode(&apiErr))
		assert.Equal(t, "self_message", apiErr.ErrorCode)
	})
}

func TestDeleteThreadHandler(t *testing.T) {
	thread := types.Thread{Id: "thread-1", UserA: "user-1", UserB: "user-2"}

	t.Run("participant deletes thread, messages and media", func(t *testing.T) {
		db := &database.MockRepository{}
		defer db.AssertExpectations(t)
		db.On("GetThread", mock.Anything, "thread-1").Return(thread, nil).Once()
		db.On("DeleteThreadWithMessages", mock.Anything, "thread-1").Return(nil).Once()

		purger := &mockThreadPurger{}
		defer purger.AssertExpectations(t)
		purger.On("PurgeThread", mock.Anything, "thread-1").Return(nil).Once()

		s := newTestApp(t, db, purger)

		r := authedRequest(t, s, http.MethodDelete, "/api/threads?id=thread-1", "", "user-1")
		w := httptest.NewRecorder()
		s.mux.Handler.ServeHTTP(w, r)

		assert.Equal(t, http.StatusNoContent, w.Code)
	})

	t.Run("outsider cannot delete the thread", func(t *testing.T) {
		db := &database.MockRepository{}
		defer db.AssertExpectations(t)
		db.On("GetThread", mock.Anything, "thread-1").Return(thread, nil).Once()

		s := newTestApp(t, db, nil)

		r := authedRequest(t, s, http.MethodDelete, "/api/threads?id=thread-1", "", "user-3")
		w := httptest.NewRecorder()
		s.mux.Handler.ServeHTTP(w, r)

		assert.Equal(t, http.StatusForbidden, w.Code)
		db.AssertNotCalled(t, "DeleteThreadWithMessages", mock.Anything, mock.Anything)
	})
}

func TestPushTokenHandlers(t *testing.T) {
	t.Run("stores the token", func(t *testing.T) {
		db := &database.MockRepository{}
		defer db.AssertExpectations(t)
		db.On("SetPushToken", mock.Anything, "user-1", "token-1").Return(nil).Once()

		s := newTestApp(t, db, nil)

		r := authedRequest(t, s, http.MethodPut, "/api/push-token", `{"token":"token-1"}`, "user-1")
		w := httptest.NewRecorder()
		s.mux.Handler.ServeHTTP(w, r)

		assert.Equal(t, http.StatusNoContent, w.Code)
	})

	t.Run("clears the token", func(t *testing.T) {
		db := &database.MockRepository{}
		defer db.AssertExpectations(t)
		db.On("ClearPushToken", mock.Anything, "user-1").Return(nil).Once()

		s := newTestApp(t, db, nil)

		r := authedRequest(t, s, http.MethodDelete, "/api/push-token", "", "user-1")
		w := httptest.NewRecorder()
		s.mux.Handler.ServeHTTP(w, r)

		assert.Equal(t, http.StatusNoContent, w.Code)
	})
}

func TestJoinGroupHandler(t *testing.T) {
	t.Run("full group returns group_full", func(t *testing.T) {
		grp := types.Group{
			Id:         "group-1",
			Members:    []string{"user-1", "user-2"},
			MaxMembers: 2,
		}

		db := &database.MockRepository{}
		defer db.AssertExpectations(t)
		db.On("GetGroup", mock.Anything, "group-1").Return(grp, nil).Once()

		s := newTestApp(t, db, nil)

		r := authedRequest(t, s, http.MethodPost, "/api/groups/join", `{"group_id":"group-1"}`, "user-3")
		w := httptest.NewRecorder()
		s.mux.Handler.ServeHTTP(w, r)

		assert.Equal(t, http.StatusConflict, w.Code)

		var apiErr ApiError
		assert.NoError(t, json.NewDecoder(w.Body).Decode(&apiErr))
		assert.Equal(t, "group_full", apiErr.ErrorCode)
	})
}
