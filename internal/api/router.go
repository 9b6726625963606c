package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/gg-loop/verification-backend/internal/api/handlers"
	"github.com/gg-loop/verification-backend/internal/api/middleware"
	"github.com/gg-loop/verification-backend/internal/config"
	"github.com/gg-loop/verification-backend/internal/repository"
	"github.com/gg-loop/verification-backend/internal/service"
	"github.com/gg-loop/verification-backend/internal/websocket"
	"github.com/gg-loop/verification-backend/pkg/database"
	"github.com/gg-loop/verification-backend/pkg/distributed"
	"github.com/gg-loop/verification-backend/pkg/logger"
	"github.com/gg-loop/verification-backend/pkg/ratelimit"
)

// SetupRouter API 라우터 설정.
// rdb가 nil이면 단일 프로세스 모드 (인메모리 rate limit 저장소, 분산 락 없음).
func SetupRouter(cfg *config.Config, db *database.DB, rdb *redis.Client) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// 전역 미들웨어
	router.Use(gin.Recovery())
	router.Use(middleware.Logger())
	router.Use(middleware.CORS(cfg.CORSAllowedOrigins))

	// Verification rate limiter 초기화
	policy := ratelimit.Policy{
		MaxMatchesPerDay: cfg.MaxMatchesPerDay,
		Cooldown:         time.Duration(cfg.CooldownMinutes) * time.Minute,
		VelocityWindow:   time.Duration(cfg.VelocityWindowMinutes) * time.Minute,
		MaxVelocity:      cfg.MaxVelocity,
	}

	var store ratelimit.Store
	var locks *distributed.RedisLockManager
	if rdb != nil {
		store = ratelimit.NewRedisStore(rdb, "verify")
		locks = distributed.NewRedisLockManager(rdb)
		logger.Info("Rate limit store: redis")
	} else {
		store = ratelimit.NewMemoryStore()
		logger.Info("Rate limit store: in-memory (single instance mode)")
	}
	limiter := ratelimit.NewVerificationLimiter(policy, store)

	// Repository 초기화
	userRepo := repository.NewUserRepository(db)
	verificationRepo := repository.NewVerificationRepository(db)
	rewardRepo := repository.NewRewardRepository(db)

	// WebSocket Hub 초기화 및 시작
	wsHub := websocket.NewHub(logger.Desugar())
	go wsHub.Run()

	// Service 초기화
	userService := service.NewUserService(userRepo)
	rewardService := service.NewRewardService(rewardRepo, logger.Desugar())
	activityService := service.NewActivityService(rdb, logger.Desugar())
	verificationService := service.NewVerificationService(
		limiter,
		verificationRepo,
		rewardService,
		activityService,
		wsHub,
		locks,
		logger.Desugar(),
		cfg.BasePointsPerMatch,
	)

	// Handler 초기화
	authHandler := handlers.NewAuthHandler(userService, cfg)
	verificationHandler := handlers.NewVerificationHandler(verificationService)
	activityHandler := handlers.NewActivityHandler(activityService)
	adminHandler := handlers.NewAdminHandler(verificationService)
	leaderboardHandler := handlers.NewLeaderboardHandler(rewardService)
	webhookHandler := handlers.NewWebhookHandler(verificationService)
	wsHandler := handlers.NewWebSocketHandler(wsHub)

	// Health check
	router.GET("/health", handlers.HealthCheck)

	// API v1
	v1 := router.Group("/api/v1")
	{
		// WebSocket endpoint
		v1.GET("/ws", middleware.Auth(cfg), wsHandler.HandleWebSocket)

		// Auth routes
		auth := v1.Group("/auth")
		auth.Use(middleware.AuthRateLimit())
		{
			auth.POST("/login", authHandler.Login)
			auth.POST("/register", authHandler.Register)
		}

		// Verification routes
		verifications := v1.Group("/verifications")
		verifications.Use(middleware.Auth(cfg))
		{
			verifications.POST("", middleware.VerificationRateLimit(), verificationHandler.VerifyMatch)
			verifications.GET("/stats", verificationHandler.Stats)
			verifications.GET("/history", verificationHandler.History)
		}

		// Activity routes (데스크톱 에이전트)
		activityGroup := v1.Group("/activity")
		activityGroup.Use(middleware.Auth(cfg))
		{
			activityGroup.POST("", activityHandler.Report)
			activityGroup.GET("", activityHandler.Latest)
		}

		// Leaderboard routes
		leaderboard := v1.Group("/leaderboard")
		leaderboard.Use(middleware.GeneralAPIRateLimit())
		{
			leaderboard.GET("", leaderboardHandler.Leaderboard)
		}

		// Rewards
		rewards := v1.Group("/rewards")
		rewards.Use(middleware.Auth(cfg))
		{
			rewards.GET("/balance", leaderboardHandler.Balance)
		}

		// User routes
		users := v1.Group("/users")
		users.Use(middleware.Auth(cfg))
		{
			users.GET("/me", authHandler.Me)
			users.PUT("/me/game-handle", authHandler.LinkGameHandle)
		}

		// Webhook (게임 플랫폼 → 서버, HMAC 서명 검증)
		webhooks := v1.Group("/webhooks")
		webhooks.Use(middleware.WebhookSignature(cfg.WebhookSecret))
		{
			webhooks.POST("/match-result", webhookHandler.MatchResult)
		}

		// Admin routes
		admin := v1.Group("/admin")
		admin.Use(middleware.AdminKey(cfg))
		{
			admin.GET("/suspicious-users", adminHandler.SuspiciousUsers)
			admin.POST("/users/:userId/reset-rate-limit", adminHandler.ResetRateLimit)
		}
	}

	return router
}
