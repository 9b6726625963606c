package service

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/gg-loop/verification-backend/internal/models"
)

func TestActivityService_MultiplierFromReports(t *testing.T) {
	// Redis 없이 프로세스 로컬 모드로 동작
	svc := NewActivityService(nil, zap.NewNop())
	ctx := context.Background()

	tests := []struct {
		status string
		want   float64
	}{
		{"active", 1.0},
		{"warning", 0.5},
		{"paused", 0.0},
		{"unknown", 1.0},
	}

	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			err := svc.Report(ctx, "u1", models.ActivityReport{Status: tt.status})
			if err != nil {
				t.Fatalf("Report failed: %v", err)
			}
			if got := svc.Multiplier(ctx, "u1"); got != tt.want {
				t.Errorf("Multiplier = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestActivityService_NoReportFailsOpen(t *testing.T) {
	svc := NewActivityService(nil, zap.NewNop())
	ctx := context.Background()

	// 보고가 전혀 없는 사용자는 배율 1.0
	if got := svc.Multiplier(ctx, "stranger"); got != 1.0 {
		t.Errorf("Multiplier without reports = %v, want 1.0", got)
	}
}

func TestActivityService_StaleReportExpires(t *testing.T) {
	svc := NewActivityService(nil, zap.NewNop())
	svc.ttl = 50 * time.Millisecond
	ctx := context.Background()

	if err := svc.Report(ctx, "u1", models.ActivityReport{Status: "paused"}); err != nil {
		t.Fatalf("Report failed: %v", err)
	}
	if got := svc.Multiplier(ctx, "u1"); got != 0.0 {
		t.Fatalf("fresh paused report should give 0.0, got %v", got)
	}

	time.Sleep(80 * time.Millisecond)

	// 만료된 보고는 무시되고 fail-open
	report, err := svc.Latest(ctx, "u1")
	if err != nil {
		t.Fatalf("Latest failed: %v", err)
	}
	if report != nil {
		t.Error("stale report should have expired")
	}
	if got := svc.Multiplier(ctx, "u1"); got != 1.0 {
		t.Errorf("Multiplier after expiry = %v, want 1.0", got)
	}
}
