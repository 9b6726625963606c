package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/gg-loop/verification-backend/internal/models"
	"github.com/gg-loop/verification-backend/internal/service"
	"github.com/gg-loop/verification-backend/pkg/logger"
)

// WebhookHandler 게임 플랫폼이 매치 종료 시 호출하는 webhook.
// 서명 검증은 미들웨어에서 끝난 상태로 들어온다.
type WebhookHandler struct {
	verificationService *service.VerificationService
}

func NewWebhookHandler(verificationService *service.VerificationService) *WebhookHandler {
	return &WebhookHandler{
		verificationService: verificationService,
	}
}

// MatchResult 매치 결과 webhook 수신 → 검증 플로우로 전달
func (h *WebhookHandler) MatchResult(c *gin.Context) {
	var payload models.MatchResultWebhook
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": err.Error(),
		})
		return
	}

	result, err := h.verificationService.VerifyMatch(c.Request.Context(), payload.UserID, payload.MatchID, payload.Game)
	if err != nil {
		logger.Error("Failed to process match result webhook",
			"userId", payload.UserID, "matchId", payload.MatchID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to process match result",
		})
		return
	}

	// webhook 발신측은 재시도 큐를 갖고 있으므로 거부도 200으로 응답하고
	// 본문으로 결과를 전달한다 (429를 주면 불필요한 재전송이 온다)
	if !result.Allowed && result.RetryAfterMinutes > 0 {
		c.Header("Retry-After", strconv.Itoa(result.RetryAfterMinutes*60))
	}

	c.JSON(http.StatusOK, result)
}
