package models

import "time"

// ActivityReport 데스크톱 에이전트가 틱마다 보고하는 활동 상태
type ActivityReport struct {
	Status       string    `json:"status" binding:"required"`
	IsActive     bool      `json:"isActive"`
	IdleTimeMs   int64     `json:"idleTimeMs"`
	IdleWarnings int       `json:"idleWarnings,omitempty"`
	ReportedAt   time.Time `json:"reportedAt"`
}
