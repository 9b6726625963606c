package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRedisClient(t *testing.T) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   15, // 테스트용 DB
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skip("Redis not available:", err)
	}

	// 테스트 전 DB 초기화
	client.FlushDB(ctx)

	return client
}

func TestRedisStore_AppendAndHistory(t *testing.T) {
	client := setupRedisClient(t)
	defer client.Close()

	store := NewRedisStore(client, "test:")
	ctx := context.Background()

	now := time.Now()
	require.NoError(t, store.Append(ctx, Attempt{UserID: "u1", MatchID: "m1", Timestamp: now.Add(-time.Hour)}))
	require.NoError(t, store.Append(ctx, Attempt{UserID: "u1", MatchID: "m2", Timestamp: now}))

	history, err := store.History(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, history, 2)

	// 오래된 순으로 반환
	assert.Equal(t, "m1", history[0].MatchID)
	assert.Equal(t, "m2", history[1].MatchID)
	assert.WithinDuration(t, now, history[1].Timestamp, time.Second)
}

func TestRedisStore_PrunesAgedEntries(t *testing.T) {
	client := setupRedisClient(t)
	defer client.Close()

	store := NewRedisStore(client, "test:")
	ctx := context.Background()

	// 보존 기간을 벗어난 엔트리는 읽기 시 제거됨
	require.NoError(t, store.Append(ctx, Attempt{UserID: "u1", MatchID: "stale", Timestamp: time.Now().Add(-25 * time.Hour)}))
	require.NoError(t, store.Append(ctx, Attempt{UserID: "u1", MatchID: "fresh", Timestamp: time.Now()}))

	history, err := store.History(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "fresh", history[0].MatchID)
}

func TestRedisStore_ResetAndUsers(t *testing.T) {
	client := setupRedisClient(t)
	defer client.Close()

	store := NewRedisStore(client, "test:")
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, Attempt{UserID: "u1", MatchID: "m1", Timestamp: time.Now()}))
	require.NoError(t, store.Append(ctx, Attempt{UserID: "u2", MatchID: "m2", Timestamp: time.Now()}))

	userIDs, err := store.Users(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"u1", "u2"}, userIDs)

	require.NoError(t, store.Reset(ctx, "u1"))

	history, err := store.History(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, history)

	userIDs, err = store.Users(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"u2"}, userIDs)
}

func TestRedisStore_LimiterIntegration(t *testing.T) {
	client := setupRedisClient(t)
	defer client.Close()

	store := NewRedisStore(client, "test:")
	limiter := NewVerificationLimiter(DefaultPolicy(), store)
	ctx := context.Background()

	decision, err := limiter.CheckAndRecord(ctx, "u1", "m1")
	require.NoError(t, err)
	assert.True(t, decision.Allowed)

	// 쿨다운에 걸림
	decision, err = limiter.Check(ctx, "u1", "m2")
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.Equal(t, 5, decision.RetryAfterMinutes)
}
