package push

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/sportbuddy/chat-server/internal/database"
	"github.com/sportbuddy/chat-server/internal/stats"
	"github.com/sportbuddy/chat-server/internal/testutil"
)

type mockProvider struct {
	mock.Mock
}

func (m *mockProvider) SendData(ctx context.Context, token string, data map[string]string) error {
	args := m.Called(ctx, token, data)
	return args.Error(0)
}

func (m *mockProvider) SendDisplay(ctx context.Context, token string, n Notification) error {
	args := m.Called(ctx, token, n)
	return args.Error(0)
}

func (m *mockProvider) IsTokenNotRegistered(err error) bool {
	args := m.Called(err)
	return args.Bool(0)
}

type fakePresence struct {
	online map[string]bool
}

func (f fakePresence) IsOnline(userId string) bool {
	return f.online[userId]
}

func newTestDispatcher(t *testing.T, tokens TokenStore, presence Presence, provider Provider, su *stats.MockStatsUpdater) *Dispatcher {
	su.On("RegisterMetric", mock.Anything).Times(3)

	return NewDispatcher(testutil.TestLogger(t), tokens, presence, provider, su)
}

func TestNotify(t *testing.T) {
	note := Notification{
		Type:  database.NotificationDirectMessage,
		Title: "Alice",
		Body:  "hi",
		Data:  map[string]string{"thread_id": "thread-1"},
	}

	t.Run("recipient without token is silently skipped", func(t *testing.T) {
		db := &database.MockRepository{}
		defer db.AssertExpectations(t)
		db.On("GetPushToken", mock.Anything, "user-1").Return("", nil).Once()

		su := &stats.MockStatsUpdater{}
		defer su.AssertExpectations(t)
		su.On("Incr", StatPushesSkipped).Once()

		d := newTestDispatcher(t, db, fakePresence{}, &mockProvider{}, su)

		result, err := d.Notify(context.Background(), "user-1", note)
		assert.NoError(t, err)
		assert.Equal(t, ResultSkipped, result)
	})

	t.Run("online recipient gets a data-only message", func(t *testing.T) {
		db := &database.MockRepository{}
		defer db.AssertExpectations(t)
		db.On("GetPushToken", mock.Anything, "user-1").Return("token-1", nil).Once()

		provider := &mockProvider{}
		defer provider.AssertExpectations(t)
		provider.On("SendData", mock.Anything, "token-1", mock.MatchedBy(func(data map[string]string) bool {
			return data["type"] == database.NotificationDirectMessage && data["thread_id"] == "thread-1"
		})).Return(nil).Once()

		su := &stats.MockStatsUpdater{}
		defer su.AssertExpectations(t)
		su.On("Incr", StatPushesSent).Once()

		d := newTestDispatcher(t, db, fakePresence{online: map[string]bool{"user-1": true}}, provider, su)

		result, err := d.Notify(context.Background(), "user-1", note)
		assert.NoError(t, err)
		assert.Equal(t, ResultDelivered, result)
	})

	t.Run("offline recipient gets a display notification", func(t *testing.T) {
		db := &database.MockRepository{}
		defer db.AssertExpectations(t)
		db.On("GetPushToken", mock.Anything, "user-1").Return("token-1", nil).Once()

		provider := &mockProvider{}
		defer provider.AssertExpectations(t)
		provider.On("SendDisplay", mock.Anything, "token-1", note).Return(nil).Once()

		su := &stats.MockStatsUpdater{}
		defer su.AssertExpectations(t)
		su.On("Incr", StatPushesSent).Once()

		d := newTestDispatcher(t, db, fakePresence{}, provider, su)

		result, err := d.Notify(context.Background(), "user-1", note)
		assert.NoError(t, err)
		assert.Equal(t, ResultDelivered, result)
	})

	t.Run("dead token is deleted and call still succeeds", func(t *testing.T) {
		sendErr := errors.New("registration-token-not-registered")

		db := &database.MockRepository{}
		defer db.AssertExpectations(t)
		db.On("GetPushToken", mock.Anything, "user-1").Return("token-1", nil).Once()
		db.On("ClearPushToken", mock.Anything, "user-1").Return(nil).Once()

		provider := &mockProvider{}
		defer provider.AssertExpectations(t)
		provider.On("SendDisplay", mock.Anything, "token-1", note).Return(sendErr).Once()
		provider.On("IsTokenNotRegistered", sendErr).Return(true).Once()

		su := &stats.MockStatsUpdater{}
		defer su.AssertExpectations(t)
		su.On("Incr", StatPushTokensInvalidated).Once()

		d := newTestDispatcher(t, db, fakePresence{}, provider, su)

		result, err := d.Notify(context.Background(), "user-1", note)
		assert.NoError(t, err, "a dead token is not a delivery failure")
		assert.Equal(t, ResultInvalidated, result)
	})

	t.Run("transient provider error is surfaced", func(t *testing.T) {
		sendErr := errors.New("unavailable")

		db := &database.MockRepository{}
		defer db.AssertExpectations(t)
		db.On("GetPushToken", mock.Anything, "user-1").Return("token-1", nil).Once()

		provider := &mockProvider{}
		defer provider.AssertExpectations(t)
		provider.On("SendDisplay", mock.Anything, "token-1", note).Return(sendErr).Once()
		provider.On("IsTokenNotRegistered", sendErr).Return(false).Once()

		su := &stats.MockStatsUpdater{}
		d := newTestDispatcher(t, db, fakePresence{}, provider, su)

		result, err := d.Notify(context.Background(), "user-1", note)
		assert.Error(t, err)
		assert.Equal(t, ResultFailed, result)
	})

	t.Run("push disabled when no provider configured", func(t *testing.T) {
		db := &database.MockRepository{}
		su := &stats.MockStatsUpdater{}
		d := newTestDispatcher(t, db, fakePresence{}, nil, su)

		result, err := d.Notify(context.Background(), "user-1", note)
		assert.NoError(t, err)
		assert.Equal(t, ResultSkipped, result)
		db.AssertNotCalled(t, "GetPushToken", mock.Anything, mock.Anything)
	})
}
