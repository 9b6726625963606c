package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/gg-loop/verification-backend/internal/models"
	"github.com/gg-loop/verification-backend/internal/repository"
	"github.com/gg-loop/verification-backend/internal/websocket"
	"github.com/gg-loop/verification-backend/pkg/distributed"
	"github.com/gg-loop/verification-backend/pkg/ratelimit"
)

const (
	verifyLockTTL      = 10 * time.Second
	verifyLockRetries  = 3
	verifyLockInterval = 100 * time.Millisecond
)

// VerificationResult 검증 요청의 최종 결과
type VerificationResult struct {
	Allowed           bool    `json:"allowed"`
	Reason            string  `json:"reason,omitempty"`
	RetryAfterMinutes int     `json:"retryAfterMinutes,omitempty"`
	Points            int     `json:"points,omitempty"`
	Multiplier        float64 `json:"multiplier,omitempty"`
}

// VerificationService 매치 검증 플로우 전체를 담당:
// rate limit 체크 → 활동 배율 조회 → 포인트 적립 → 감사 기록 → 알림.
type VerificationService struct {
	limiter          *ratelimit.VerificationLimiter
	verificationRepo *repository.VerificationRepository
	rewardService    *RewardService
	activityService  *ActivityService
	hub              *websocket.Hub
	locks            *distributed.RedisLockManager // nil이면 프로세스 내 락만 사용
	logger           *zap.Logger
	basePoints       int
}

func NewVerificationService(
	limiter *ratelimit.VerificationLimiter,
	verificationRepo *repository.VerificationRepository,
	rewardService *RewardService,
	activityService *ActivityService,
	hub *websocket.Hub,
	locks *distributed.RedisLockManager,
	logger *zap.Logger,
	basePoints int,
) *VerificationService {
	return &VerificationService{
		limiter:          limiter,
		verificationRepo: verificationRepo,
		rewardService:    rewardService,
		activityService:  activityService,
		hub:              hub,
		locks:            locks,
		logger:           logger,
		basePoints:       basePoints,
	}
}

// VerifyMatch 매치 검증 요청 처리.
// 다중 인스턴스 배포에서는 사용자 단위 분산 락으로 check+record 구간을
// 직렬화한다 (단일 인스턴스에서는 limiter의 사용자별 뮤텍스로 충분).
func (s *VerificationService) VerifyMatch(ctx context.Context, userID, matchID, game string) (*VerificationResult, error) {
	if s.locks != nil {
		lock, err := s.locks.TryLockWithRetry(ctx, "verify:lock:"+userID,
			verifyLockTTL, verifyLockRetries, verifyLockInterval)
		if errors.Is(err, distributed.ErrLockNotAcquired) {
			return &VerificationResult{
				Allowed: false,
				Reason:  "another verification is already in progress",
			}, nil
		}
		if err != nil {
			// Redis 오류 시 프로세스 내 락만으로 진행 (fail-open)
			s.logger.Warn("Distributed lock unavailable, proceeding without it",
				zap.String("userId", userID),
				zap.Error(err))
		} else {
			defer lock.Release(ctx)
		}
	}

	decision, err := s.limiter.CheckAndRecord(ctx, userID, matchID)
	if err != nil {
		// 공유 저장소 오류: 차단보다 가용성을 택한다 (fail-open, 문서화된 트레이드오프)
		s.logger.Error("Rate limit store unavailable, allowing verification",
			zap.String("userId", userID),
			zap.String("matchId", matchID),
			zap.Error(err))
		decision = ratelimit.Decision{Allowed: true}
	}

	if !decision.Allowed {
		s.audit(userID, matchID, game, models.VerificationStatusRejected, decision.Reason, 0, 0)
		s.hub.SendVerificationResult(userID, matchID, false, decision.Reason, 0, 0)

		s.logger.Info("Verification rejected",
			zap.String("userId", userID),
			zap.String("matchId", matchID),
			zap.String("reason", decision.Reason))

		return &VerificationResult{
			Allowed:           false,
			Reason:            decision.Reason,
			RetryAfterMinutes: decision.RetryAfterMinutes,
		}, nil
	}

	// 활동 배율 적용 후 포인트 적립
	multiplier := s.activityService.Multiplier(ctx, userID)
	entry, err := s.rewardService.Award(userID, matchID, s.basePoints, multiplier)
	if err != nil {
		return nil, err
	}

	s.audit(userID, matchID, game, models.VerificationStatusAccepted, "", multiplier, entry.Points)
	s.hub.SendVerificationResult(userID, matchID, true, "", entry.Points, multiplier)
	s.flagIfCrossed(ctx, userID)

	return &VerificationResult{
		Allowed:    true,
		Points:     entry.Points,
		Multiplier: multiplier,
	}, nil
}

// Stats 사용자 검증 통계
func (s *VerificationService) Stats(ctx context.Context, userID string) (ratelimit.Stats, error) {
	return s.limiter.Stats(ctx, userID)
}

// SuspiciousUsers 의심 사용자 목록 (관리자용)
func (s *VerificationService) SuspiciousUsers(ctx context.Context) ([]ratelimit.SuspiciousUser, error) {
	return s.limiter.SuspiciousUsers(ctx)
}

// RecentRejections 최근 24시간 동안 거부된 시도 횟수 (관리자 triage용)
func (s *VerificationService) RecentRejections(userID string) (int, error) {
	return s.verificationRepo.CountRejectedSince(userID, time.Now().Add(-24*time.Hour))
}

// ResetUserRateLimit 사용자 rate limit 초기화 (관리자용)
func (s *VerificationService) ResetUserRateLimit(ctx context.Context, userID string) error {
	if err := s.limiter.ResetUser(ctx, userID); err != nil {
		return err
	}

	s.logger.Info("Rate limit reset by admin", zap.String("userId", userID))
	return nil
}

// History 사용자의 최근 검증 감사 기록
func (s *VerificationService) History(userID string, limit int) ([]*models.VerificationRecord, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return s.verificationRepo.FindByUserSince(userID, time.Now().Add(-7*24*time.Hour), limit)
}

// flagIfCrossed 이번 기록으로 한도 80% 임계값에 도달한 경우에만 대시보드에
// 플래그를 푸시한다 (도달 시점에 한 번, 조회 때마다 반복 전송하지 않음).
func (s *VerificationService) flagIfCrossed(ctx context.Context, userID string) {
	stats, err := s.limiter.Stats(ctx, userID)
	if err != nil {
		s.logger.Warn("Failed to load stats for flag check",
			zap.String("userId", userID),
			zap.Error(err))
		return
	}

	if reason, crossed := s.limiter.CrossedFlagThreshold(stats); crossed {
		s.hub.BroadcastSuspiciousUser(userID, stats.MatchesToday, reason)
		s.logger.Info("User flagged for review",
			zap.String("userId", userID),
			zap.String("reason", reason))
	}
}

// audit 감사 기록 저장. 실패해도 검증 플로우를 막지 않는다.
func (s *VerificationService) audit(userID, matchID, game string, status models.VerificationStatus, reason string, multiplier float64, points int) {
	record := &models.VerificationRecord{
		ID:         uuid.NewString(),
		UserID:     userID,
		MatchID:    matchID,
		Game:       game,
		Status:     status,
		Multiplier: multiplier,
		Points:     points,
	}
	if reason != "" {
		record.Reason = &reason
	}

	if err := s.verificationRepo.Create(record); err != nil {
		s.logger.Error("Failed to write verification audit record",
			zap.String("userId", userID),
			zap.String("matchId", matchID),
			zap.Error(err))
	}
}
