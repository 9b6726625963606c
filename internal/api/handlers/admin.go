package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gg-loop/verification-backend/internal/service"
	"github.com/gg-loop/verification-backend/pkg/logger"
)

// AdminHandler 관리자 전용 운영 API
type AdminHandler struct {
	verificationService *service.VerificationService
}

func NewAdminHandler(verificationService *service.VerificationService) *AdminHandler {
	return &AdminHandler{
		verificationService: verificationService,
	}
}

// SuspiciousUsers 한도에 근접한 사용자 목록 조회.
// 읽기 전용 - 대시보드 websocket 알림은 검증 플로우에서 임계값 도달 시 푸시된다.
func (h *AdminHandler) SuspiciousUsers(c *gin.Context) {
	users, err := h.verificationService.SuspiciousUsers(c.Request.Context())
	if err != nil {
		logger.Error("Failed to list suspicious users", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to list suspicious users",
		})
		return
	}

	// 거부 이력을 덧붙여 응답
	enriched := make([]gin.H, 0, len(users))
	for _, u := range users {
		rejected, err := h.verificationService.RecentRejections(u.UserID)
		if err != nil {
			logger.Warn("Failed to count rejections", "userId", u.UserID, "error", err)
		}

		enriched = append(enriched, gin.H{
			"userId":          u.UserID,
			"matchCount":      u.MatchCount,
			"velocity":        u.Velocity,
			"flagReason":      u.FlagReason,
			"rejectedLast24h": rejected,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"users": enriched,
		"count": len(enriched),
	})
}

// ResetRateLimit 사용자 rate limit 초기화 (고객 지원용)
func (h *AdminHandler) ResetRateLimit(c *gin.Context) {
	userID := c.Param("userId")
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "User ID required",
		})
		return
	}

	if err := h.verificationService.ResetUserRateLimit(c.Request.Context(), userID); err != nil {
		logger.Error("Failed to reset rate limit", "userId", userID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to reset rate limit",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"userId": userID,
		"reset":  true,
	})
}
