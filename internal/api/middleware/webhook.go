package middleware

import (
	"bytes"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/gg-loop/verification-backend/pkg/logger"
	"github.com/gg-loop/verification-backend/pkg/signature"
)

const (
	headerWebhookTimestamp = "X-Webhook-Timestamp"
	headerWebhookSignature = "X-Webhook-Signature"
)

// WebhookSignature 게임 플랫폼 웹훅의 HMAC 서명 검증 미들웨어.
// 본문 전체를 읽어 검증한 뒤 핸들러가 다시 바인딩할 수 있도록 복원한다.
func WebhookSignature(secret string) gin.HandlerFunc {
	key := []byte(secret)

	return func(c *gin.Context) {
		if secret == "" {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"error": "Webhook verification is not configured",
			})
			c.Abort()
			return
		}

		ts, err := strconv.ParseInt(c.GetHeader(headerWebhookTimestamp), 10, 64)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Missing or invalid webhook timestamp",
			})
			c.Abort()
			return
		}

		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Failed to read request body",
			})
			c.Abort()
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))

		if err := signature.Verify(key, ts, body, c.GetHeader(headerWebhookSignature)); err != nil {
			logger.Desugar().Warn("Webhook signature rejected",
				zap.String("ip", c.ClientIP()),
				zap.Error(err))

			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Invalid webhook signature",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
