package redis

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testClient connects to REDIS_ADDR, skipping when it is unset.
func testClient(t *testing.T) *goredis.Client {
	t.Helper()
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	client := goredis.NewClient(&goredis.Options{Addr: addr})
	require.NoError(t, Ping(context.Background(), client))
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestRateLimiter_FixedWindow(t *testing.T) {
	client := testClient(t)
	ctx := context.Background()
	limiter := NewRateLimiter(client, RateLimitConfig{DraftLimit: 2, DraftWindow: time.Minute})
	userID := uuid.NewString()
	t.Cleanup(func() { _ = limiter.ResetUser(ctx, userID) })

	first, err := limiter.AllowDraft(ctx, userID)
	require.NoError(t, err)
	assert.True(t, first.Allowed)
	assert.Equal(t, 1, first.Remaining)

	second, err := limiter.AllowDraft(ctx, userID)
	require.NoError(t, err)
	assert.True(t, second.Allowed)
	assert.Equal(t, 0, second.Remaining)

	third, err := limiter.AllowDraft(ctx, userID)
	require.NoError(t, err)
	assert.False(t, third.Allowed)
	assert.LessOrEqual(t, third.ResetIn, time.Minute)

	status, err := limiter.GetDraftStatus(ctx, userID)
	require.NoError(t, err)
	assert.False(t, status.Allowed)

	require.NoError(t, limiter.ResetUser(ctx, userID))
	status, err = limiter.GetDraftStatus(ctx, userID)
	require.NoError(t, err)
	assert.True(t, status.Allowed)
	assert.Equal(t, 2, status.Remaining)
}

func TestEventDeduper(t *testing.T) {
	client := testClient(t)
	ctx := context.Background()
	d := NewEventDeduper(client, time.Minute)
	id := uuid.NewString()
	t.Cleanup(func() { _ = d.Forget(ctx, id) })

	seen, err := d.MarkSeen(ctx, id)
	require.NoError(t, err)
	assert.False(t, seen)

	seen, err = d.MarkSeen(ctx, id)
	require.NoError(t, err)
	assert.True(t, seen)

	require.NoError(t, d.Forget(ctx, id))
	seen, err = d.MarkSeen(ctx, id)
	require.NoError(t, err)
	assert.False(t, seen)
}
