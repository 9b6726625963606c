package middleware

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/gg-loop/verification-backend/pkg/ratelimit"
)

// RateLimitConfig HTTP 레벨 Rate Limit 설정
type RateLimitConfig struct {
	Capacity   float64                   // 버킷 최대 토큰 수
	RefillRate float64                   // 초당 보충 토큰 수
	KeyFunc    func(*gin.Context) string // 키 추출 함수
}

// DefaultKeyFunc uses user ID if authenticated, otherwise IP address
func DefaultKeyFunc(c *gin.Context) string {
	if userID, exists := c.Get("userId"); exists {
		return fmt.Sprintf("user:%v", userID)
	}
	return fmt.Sprintf("ip:%s", c.ClientIP())
}

// IPKeyFunc uses only IP address (for public endpoints)
func IPKeyFunc(c *gin.Context) string {
	return fmt.Sprintf("ip:%s", c.ClientIP())
}

// UserKeyFunc uses only user ID (requires authentication)
func UserKeyFunc(c *gin.Context) string {
	if userID, exists := c.Get("userId"); exists {
		return fmt.Sprintf("user:%v", userID)
	}
	return ""
}

// RateLimitMiddleware creates a token-bucket rate limiting middleware.
// This guards request volume only; the match verification policy
// (daily cap, cooldown, velocity) is enforced in the service layer.
func RateLimitMiddleware(config RateLimitConfig) gin.HandlerFunc {
	limiter := ratelimit.NewPerKeyLimiter(config.Capacity, config.RefillRate)

	if config.KeyFunc == nil {
		config.KeyFunc = DefaultKeyFunc
	}

	return func(c *gin.Context) {
		key := config.KeyFunc(c)

		if key == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Authentication required for rate limiting",
			})
			c.Abort()
			return
		}

		if !limiter.Allow(key) {
			c.Header("X-RateLimit-Limit", strconv.FormatFloat(config.Capacity, 'f', 0, 64))
			c.Header("X-RateLimit-Remaining", "0")
			c.Header("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(time.Second).Unix(), 10))
			c.Header("Retry-After", "1")

			c.JSON(http.StatusTooManyRequests, gin.H{
				"error": "Rate limit exceeded",
			})
			c.Abort()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.FormatFloat(config.Capacity, 'f', 0, 64))

		c.Next()
	}
}

// Common rate limit configurations

// VerificationRateLimit - 10 verification submits per minute per user.
// 정책 엔진이 세부 제한을 처리하므로 여기서는 폭주만 막는다.
func VerificationRateLimit() gin.HandlerFunc {
	return RateLimitMiddleware(RateLimitConfig{
		Capacity:   10,
		RefillRate: 10.0 / 60.0,
		KeyFunc:    UserKeyFunc,
	})
}

// AuthRateLimit - 5 login/register attempts per minute per IP
func AuthRateLimit() gin.HandlerFunc {
	return RateLimitMiddleware(RateLimitConfig{
		Capacity:   5,
		RefillRate: 5.0 / 60.0,
		KeyFunc:    IPKeyFunc, // IP 기반 (인증 전이므로)
	})
}

// GeneralAPIRateLimit - 100 requests per minute per IP/user
func GeneralAPIRateLimit() gin.HandlerFunc {
	return RateLimitMiddleware(RateLimitConfig{
		Capacity:   100,
		RefillRate: 100.0 / 60.0,
		KeyFunc:    DefaultKeyFunc,
	})
}
