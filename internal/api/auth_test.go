package api

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sportbuddy/chat-server/internal/testutil"
)

func TestJwtRoundTrip(t *testing.T) {
	s := &ChatApp{log: testutil.TestLogger(t), signingKey: []byte("test-signing-key")}

	t.Run("valid token round trips", func(t *testing.T) {
		token, err := s.createJwtForSession("user-1", time.Hour)
		assert.NoError(t, err)

		userId, err := s.extractUserIdFromToken(token)
		assert.NoError(t, err)
		assert.Equal(t, "user-1", userId)
	})

	t.Run("expired token is rejected", func(t *testing.T) {
		token, err := s.createJwtForSession("user-1", -time.Hour)
		assert.NoError(t, err)

		_, err = s.extractUserIdFromToken(token)
		assert.Error(t, err)
	})

	t.Run("token signed with another key is rejected", func(t *testing.T) {
		other := &ChatApp{log: testutil.TestLogger(t), signingKey: []byte("other-key")}
		token, err := other.createJwtForSession("user-1", time.Hour)
		assert.NoError(t, err)

		_, err = s.extractUserIdFromToken(token)
		assert.Error(t, err)
	})

	t.Run("garbage token is rejected", func(t *testing.T) {
		_, err := s.extractUserIdFromToken("not-a-token")
		assert.Error(t, err)
	})
}

func TestPasswordHashing(t *testing.T) {
	hash, err := hashPassword("hunter2")
	assert.NoError(t, err)
	assert.NotEqual(t, "hunter2", hash)

	assert.True(t, verifyPassword(hash, "hunter2"))
	assert.False(t, verifyPassword(hash, "wrong"))
}

func TestUserIdContext(t *testing.T) {
	ctx := WithUserId(context.Background(), "user-1")

	userId, ok := UserId(ctx)
	assert.True(t, ok)
	assert.Equal(t, "user-1", userId)

	_, ok = UserId(context.Background())
	assert.False(t, ok)
}
