package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore 다중 인스턴스 배포용 공유 attempt 저장소.
// Sorted set 하나가 사용자 한 명의 히스토리 (member=matchId, score=unix ms).
type RedisStore struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisStore Redis 기반 Store 생성 (client는 외부에서 주입)
func NewRedisStore(client *redis.Client, keyPrefix string) *RedisStore {
	if keyPrefix == "" {
		keyPrefix = "verify:"
	}
	return &RedisStore{
		client:    client,
		keyPrefix: keyPrefix,
	}
}

// appendScript 기록 + 만료 엔트리 정리 + 사용자 인덱스 갱신을 원자적으로 수행
var appendScript = redis.NewScript(`
	redis.call('ZADD', KEYS[1], ARGV[1], ARGV[2])
	redis.call('ZREMRANGEBYSCORE', KEYS[1], '-inf', ARGV[3])
	redis.call('EXPIRE', KEYS[1], ARGV[4])
	redis.call('SADD', KEYS[2], ARGV[5])
	return redis.call('ZCARD', KEYS[1])
`)

// History 보존 기간 내 attempt 목록 조회 (오래된 순). 읽을 때마다 정리.
func (s *RedisStore) History(ctx context.Context, userID string) ([]Attempt, error) {
	key := s.historyKey(userID)
	cutoff := time.Now().Add(-RetentionWindow).UnixMilli()

	// 만료된 엔트리 먼저 제거
	if err := s.client.ZRemRangeByScore(ctx, key, "-inf", strconv.FormatInt(cutoff, 10)).Err(); err != nil {
		return nil, fmt.Errorf("failed to prune history: %w", err)
	}

	members, err := s.client.ZRangeByScoreWithScores(ctx, key, &redis.ZRangeBy{
		Min: strconv.FormatInt(cutoff, 10),
		Max: "+inf",
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read history: %w", err)
	}

	attempts := make([]Attempt, 0, len(members))
	for _, m := range members {
		attempts = append(attempts, Attempt{
			UserID:    userID,
			MatchID:   m.Member,
			Timestamp: time.UnixMilli(int64(m.Score)),
		})
	}
	return attempts, nil
}

// Append attempt 기록 (Lua 스크립트로 기록/정리/인덱스 갱신을 원자적으로)
func (s *RedisStore) Append(ctx context.Context, attempt Attempt) error {
	key := s.historyKey(attempt.UserID)
	score := attempt.Timestamp.UnixMilli()
	cutoff := attempt.Timestamp.Add(-RetentionWindow).UnixMilli()
	ttl := int((2 * RetentionWindow).Seconds())

	err := appendScript.Run(ctx, s.client,
		[]string{key, s.usersKey()},
		score, attempt.MatchID, cutoff, ttl, attempt.UserID,
	).Err()
	if err != nil {
		return fmt.Errorf("failed to append attempt: %w", err)
	}
	return nil
}

// Reset 사용자 히스토리 삭제 (관리자용)
func (s *RedisStore) Reset(ctx context.Context, userID string) error {
	pipe := s.client.Pipeline()
	pipe.Del(ctx, s.historyKey(userID))
	pipe.SRem(ctx, s.usersKey(), userID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to reset user: %w", err)
	}
	return nil
}

// Users attempt가 기록된 사용자 목록
func (s *RedisStore) Users(ctx context.Context) ([]string, error) {
	userIDs, err := s.client.SMembers(ctx, s.usersKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return userIDs, nil
}

// Ping Redis 연결 확인
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) historyKey(userID string) string {
	return s.keyPrefix + "attempts:" + userID
}

func (s *RedisStore) usersKey() string {
	return s.keyPrefix + "users"
}
