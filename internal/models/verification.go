package models

import "time"

type VerificationStatus string

const (
	VerificationStatusAccepted VerificationStatus = "accepted"
	VerificationStatusRejected VerificationStatus = "rejected"
)

// VerificationRecord 영속화되는 검증 감사 기록 (rate limiter 히스토리와 별개)
type VerificationRecord struct {
	ID         string             `json:"id" db:"id"`
	UserID     string             `json:"userId" db:"user_id"`
	MatchID    string             `json:"matchId" db:"match_id"`
	Game       string             `json:"game" db:"game"`
	Status     VerificationStatus `json:"status" db:"status"`
	Reason     *string            `json:"reason,omitempty" db:"reason"`
	Multiplier float64            `json:"multiplier" db:"multiplier"`
	Points     int                `json:"points" db:"points"`
	CreatedAt  time.Time          `json:"createdAt" db:"created_at"`
}

type VerifyMatchRequest struct {
	MatchID string `json:"matchId" binding:"required"`
	Game    string `json:"game" binding:"required"`
}

// MatchResultWebhook 게임 제공자 webhook의 서명 검증 후 페이로드
type MatchResultWebhook struct {
	UserID  string `json:"userId" binding:"required"`
	MatchID string `json:"matchId" binding:"required"`
	Game    string `json:"game" binding:"required"`
	Result  string `json:"result"`
}
