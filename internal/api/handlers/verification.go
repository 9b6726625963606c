package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/gg-loop/verification-backend/internal/models"
	"github.com/gg-loop/verification-backend/internal/service"
	"github.com/gg-loop/verification-backend/pkg/logger"
)

// VerificationHandler 매치 검증 API
type VerificationHandler struct {
	verificationService *service.VerificationService
}

func NewVerificationHandler(verificationService *service.VerificationService) *VerificationHandler {
	return &VerificationHandler{
		verificationService: verificationService,
	}
}

// VerifyMatch godoc
// @Summary Submit a match for verification
// @Description Verify a completed match and award points if the rate limit allows it
// @Tags verification
// @Accept json
// @Produce json
// @Success 200 {object} service.VerificationResult "Match verified"
// @Failure 429 {object} service.VerificationResult "Rate limit exceeded"
// @Router /api/v1/verifications [post]
func (h *VerificationHandler) VerifyMatch(c *gin.Context) {
	userID := c.GetString("userId")

	var req models.VerifyMatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": err.Error(),
		})
		return
	}

	result, err := h.verificationService.VerifyMatch(c.Request.Context(), userID, req.MatchID, req.Game)
	if err != nil {
		logger.Error("Failed to verify match", "userId", userID, "matchId", req.MatchID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to verify match",
		})
		return
	}

	if !result.Allowed {
		if result.RetryAfterMinutes > 0 {
			c.Header("Retry-After", strconv.Itoa(result.RetryAfterMinutes*60))
		}
		c.JSON(http.StatusTooManyRequests, result)
		return
	}

	c.JSON(http.StatusOK, result)
}

// Stats 사용자 검증 통계
func (h *VerificationHandler) Stats(c *gin.Context) {
	userID := c.GetString("userId")

	stats, err := h.verificationService.Stats(c.Request.Context(), userID)
	if err != nil {
		logger.Error("Failed to get verification stats", "userId", userID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to get stats",
		})
		return
	}

	c.JSON(http.StatusOK, stats)
}

// History 최근 검증 기록
func (h *VerificationHandler) History(c *gin.Context) {
	userID := c.GetString("userId")

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	records, err := h.verificationService.History(userID, limit)
	if err != nil {
		logger.Error("Failed to get verification history", "userId", userID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to get history",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"records": records,
		"count":   len(records),
	})
}
