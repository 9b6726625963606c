package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/gg-loop/verification-backend/internal/service"
	"github.com/gg-loop/verification-backend/pkg/logger"
)

// LeaderboardHandler 포인트 리더보드 API
type LeaderboardHandler struct {
	rewardService *service.RewardService
}

func NewLeaderboardHandler(rewardService *service.RewardService) *LeaderboardHandler {
	return &LeaderboardHandler{
		rewardService: rewardService,
	}
}

// Leaderboard 누적 포인트 상위 사용자 조회
func (h *LeaderboardHandler) Leaderboard(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	entries, err := h.rewardService.Leaderboard(limit)
	if err != nil {
		logger.Error("Failed to get leaderboard", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to get leaderboard",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"entries": entries,
		"count":   len(entries),
	})
}

// Balance 내 포인트 잔액 조회
func (h *LeaderboardHandler) Balance(c *gin.Context) {
	userID := c.GetString("userId")

	total, err := h.rewardService.Balance(userID)
	if err != nil {
		logger.Error("Failed to get balance", "userId", userID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to get balance",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"userId": userID,
		"points": total,
	})
}
