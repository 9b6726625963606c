package service

import (
	"fmt"
	"math"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/gg-loop/verification-backend/internal/models"
	"github.com/gg-loop/verification-backend/internal/repository"
)

type RewardService struct {
	rewardRepo *repository.RewardRepository
	logger     *zap.Logger
}

func NewRewardService(rewardRepo *repository.RewardRepository, logger *zap.Logger) *RewardService {
	return &RewardService{
		rewardRepo: rewardRepo,
		logger:     logger,
	}
}

// Award 검증된 매치에 대한 포인트 적립. 적립 포인트 = 기본 포인트 × 활동 배율.
func (s *RewardService) Award(userID, matchID string, basePoints int, multiplier float64) (*models.RewardEntry, error) {
	entry := &models.RewardEntry{
		ID:         uuid.NewString(),
		UserID:     userID,
		MatchID:    matchID,
		BasePoints: basePoints,
		Multiplier: multiplier,
		Points:     int(math.Round(float64(basePoints) * multiplier)),
	}

	if err := s.rewardRepo.Create(entry); err != nil {
		return nil, fmt.Errorf("failed to record reward: %w", err)
	}

	s.logger.Info("Points awarded",
		zap.String("userId", userID),
		zap.String("matchId", matchID),
		zap.Int("points", entry.Points),
		zap.Float64("multiplier", multiplier))

	return entry, nil
}

// Balance 사용자 포인트 잔액
func (s *RewardService) Balance(userID string) (int, error) {
	total, err := s.rewardRepo.TotalPoints(userID)
	if err != nil {
		return 0, fmt.Errorf("failed to get balance: %w", err)
	}
	return total, nil
}

// Leaderboard 누적 포인트 상위 사용자
func (s *RewardService) Leaderboard(limit int) ([]*models.LeaderboardEntry, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	entries, err := s.rewardRepo.Leaderboard(limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get leaderboard: %w", err)
	}
	return entries, nil
}
