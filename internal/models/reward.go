package models

import "time"

// RewardEntry 포인트 원장 항목. 적립 포인트 = 기본 포인트 × 활동 배율.
type RewardEntry struct {
	ID         string    `json:"id" db:"id"`
	UserID     string    `json:"userId" db:"user_id"`
	MatchID    string    `json:"matchId" db:"match_id"`
	BasePoints int       `json:"basePoints" db:"base_points"`
	Multiplier float64   `json:"multiplier" db:"multiplier"`
	Points     int       `json:"points" db:"points"`
	CreatedAt  time.Time `json:"createdAt" db:"created_at"`
}

type LeaderboardEntry struct {
	Rank        int    `json:"rank"`
	UserID      string `json:"userId" db:"user_id"`
	Username    string `json:"username" db:"username"`
	TotalPoints int    `json:"totalPoints" db:"total_points"`
	Matches     int    `json:"matches" db:"matches"`
}
