package main

import (
	"bytes"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gg-loop/verification-backend/internal/activity"
	"github.com/gg-loop/verification-backend/internal/config"
	"github.com/gg-loop/verification-backend/internal/models"
	"github.com/gg-loop/verification-backend/pkg/logger"
)

// 데스크톱 에이전트: 커서 샘플링으로 유휴 상태를 감지하고
// 틱마다 서버에 활동 상태를 보고한다.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger.Init(cfg.Env, cfg.LogLevel)
	defer logger.Sync()

	if cfg.AgentToken == "" {
		logger.Fatal("AGENT_TOKEN is required")
	}

	detectorCfg := activity.Config{
		CheckInterval:   time.Duration(cfg.ActivityCheckIntervalMs) * time.Millisecond,
		IdleThreshold:   time.Duration(cfg.IdleThresholdMs) * time.Millisecond,
		MaxIdleWarnings: cfg.MaxIdleWarnings,
	}

	reporter := newReporter(cfg.ServerURL, cfg.AgentToken)

	detector := activity.NewDetector(detectorCfg, activity.DefaultSampler(), logger.Desugar())
	detector.Start(func(update activity.Update) {
		reporter.report(update)
	})

	logger.Info("Agent started",
		"server", cfg.ServerURL,
		"interval", detectorCfg.CheckInterval,
		"idleThreshold", detectorCfg.IdleThreshold,
	)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	detector.Stop()
	logger.Info("Agent exited")
}

// reporter 서버로 활동 상태를 전송. 전송 실패는 로그만 남긴다
// (서버는 보고가 끊기면 fail-open으로 배율 1.0을 적용).
type reporter struct {
	client    *http.Client
	endpoint  string
	authToken string
}

func newReporter(serverURL, token string) *reporter {
	return &reporter{
		client:    &http.Client{Timeout: 5 * time.Second},
		endpoint:  serverURL + "/api/v1/activity",
		authToken: token,
	}
}

func (r *reporter) report(update activity.Update) {
	payload := models.ActivityReport{
		Status:       string(update.Status),
		IsActive:     update.IsActive,
		IdleTimeMs:   update.IdleTimeMs,
		IdleWarnings: update.IdleWarnings,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		logger.Error("Failed to encode activity report", "error", err)
		return
	}

	req, err := http.NewRequest(http.MethodPost, r.endpoint, bytes.NewReader(body))
	if err != nil {
		logger.Error("Failed to build activity report request", "error", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+r.authToken)

	resp, err := r.client.Do(req)
	if err != nil {
		logger.Warn("Failed to send activity report", "error", err)
		return
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 300 {
		logger.Warn("Activity report rejected", "status", resp.StatusCode)
		return
	}

	logger.Debug("Activity reported",
		"status", payload.Status,
		"idleTimeMs", payload.IdleTimeMs,
	)
}
