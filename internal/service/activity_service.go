package service

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/gg-loop/verification-backend/internal/activity"
	"github.com/gg-loop/verification-backend/internal/models"
)

// DefaultActivityTTL 에이전트 보고가 없으면 이 시간 후 상태를 잊는다.
// 보고가 끊긴 사용자는 배율 1.0으로 처리 (fail-open).
const DefaultActivityTTL = 2 * time.Minute

// ActivityService 에이전트가 보고한 최신 활동 상태를 사용자별로 보관.
// Redis가 있으면 인스턴스 간 공유, 없으면 프로세스 로컬 맵 사용.
type ActivityService struct {
	rdb    *redis.Client
	ttl    time.Duration
	logger *zap.Logger

	mu    sync.RWMutex
	local map[string]models.ActivityReport
}

func NewActivityService(rdb *redis.Client, logger *zap.Logger) *ActivityService {
	return &ActivityService{
		rdb:    rdb,
		ttl:    DefaultActivityTTL,
		logger: logger,
		local:  make(map[string]models.ActivityReport),
	}
}

// Report 틱 보고 저장
func (s *ActivityService) Report(ctx context.Context, userID string, report models.ActivityReport) error {
	report.ReportedAt = time.Now()

	if s.rdb == nil {
		s.mu.Lock()
		s.local[userID] = report
		s.mu.Unlock()
		return nil
	}

	data, err := json.Marshal(report)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, s.key(userID), data, s.ttl).Err()
}

// Latest 최신 보고 조회. 보고가 없거나 만료되면 (nil, nil).
func (s *ActivityService) Latest(ctx context.Context, userID string) (*models.ActivityReport, error) {
	if s.rdb == nil {
		s.mu.RLock()
		report, ok := s.local[userID]
		s.mu.RUnlock()
		if !ok || time.Since(report.ReportedAt) > s.ttl {
			return nil, nil
		}
		return &report, nil
	}

	data, err := s.rdb.Get(ctx, s.key(userID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var report models.ActivityReport
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, err
	}
	return &report, nil
}

// Multiplier 사용자의 현재 포인트 적립 배율.
// 보고가 없거나 조회에 실패하면 1.0 (fail-open).
func (s *ActivityService) Multiplier(ctx context.Context, userID string) float64 {
	report, err := s.Latest(ctx, userID)
	if err != nil {
		s.logger.Warn("Failed to load activity status, assuming active",
			zap.String("userId", userID),
			zap.Error(err))
		return 1.0
	}
	if report == nil {
		return 1.0
	}

	return activity.Multiplier(activity.Status(report.Status))
}

func (s *ActivityService) key(userID string) string {
	return "activity:status:" + userID
}
