package repository

import (
	"fmt"

	"github.com/gg-loop/verification-backend/internal/models"
	"github.com/gg-loop/verification-backend/pkg/database"
)

type RewardRepository struct {
	db *database.DB
}

func NewRewardRepository(db *database.DB) *RewardRepository {
	return &RewardRepository{db: db}
}

// Create 원장 항목 생성
func (r *RewardRepository) Create(entry *models.RewardEntry) error {
	query := `
		INSERT INTO reward_entries (id, user_id, match_id, base_points, multiplier, points)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`

	err := r.db.QueryRow(query,
		entry.ID,
		entry.UserID,
		entry.MatchID,
		entry.BasePoints,
		entry.Multiplier,
		entry.Points,
	).Scan(&entry.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to create reward entry: %w", err)
	}

	return nil
}

// TotalPoints 사용자 포인트 잔액
func (r *RewardRepository) TotalPoints(userID string) (int, error) {
	query := `
		SELECT COALESCE(SUM(points), 0)
		FROM reward_entries
		WHERE user_id = $1
	`

	var total int
	if err := r.db.QueryRow(query, userID).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to sum points: %w", err)
	}

	return total, nil
}

// Leaderboard 누적 포인트 상위 사용자
func (r *RewardRepository) Leaderboard(limit int) ([]*models.LeaderboardEntry, error) {
	query := `
		SELECT u.id, u.username, COALESCE(SUM(e.points), 0) AS total_points, COUNT(e.id) AS matches
		FROM users u
		JOIN reward_entries e ON e.user_id = u.id
		GROUP BY u.id, u.username
		ORDER BY total_points DESC
		LIMIT $1
	`

	rows, err := r.db.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query leaderboard: %w", err)
	}
	defer rows.Close()

	var entries []*models.LeaderboardEntry
	rank := 1
	for rows.Next() {
		entry := &models.LeaderboardEntry{}
		err := rows.Scan(
			&entry.UserID,
			&entry.Username,
			&entry.TotalPoints,
			&entry.Matches,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan leaderboard entry: %w", err)
		}
		entry.Rank = rank
		rank++
		entries = append(entries, entry)
	}

	return entries, nil
}
