package repository

import (
	"fmt"
	"time"

	"github.com/gg-loop/verification-backend/internal/models"
	"github.com/gg-loop/verification-backend/pkg/database"
)

// VerificationRepository 검증 시도 감사 기록 저장소.
// rate limiter의 히스토리와 달리 수락/거부 모두 영구 보관한다.
type VerificationRepository struct {
	db *database.DB
}

func NewVerificationRepository(db *database.DB) *VerificationRepository {
	return &VerificationRepository{db: db}
}

// Create 감사 기록 생성
func (r *VerificationRepository) Create(record *models.VerificationRecord) error {
	query := `
		INSERT INTO verification_records (id, user_id, match_id, game, status, reason, multiplier, points)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at
	`

	err := r.db.QueryRow(query,
		record.ID,
		record.UserID,
		record.MatchID,
		record.Game,
		record.Status,
		record.Reason,
		record.Multiplier,
		record.Points,
	).Scan(&record.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to create verification record: %w", err)
	}

	return nil
}

// FindByUserSince 기준 시각 이후의 사용자 기록 조회 (최신순)
func (r *VerificationRepository) FindByUserSince(userID string, since time.Time, limit int) ([]*models.VerificationRecord, error) {
	query := `
		SELECT id, user_id, match_id, game, status, reason, multiplier, points, created_at
		FROM verification_records
		WHERE user_id = $1 AND created_at >= $2
		ORDER BY created_at DESC
		LIMIT $3
	`

	rows, err := r.db.Query(query, userID, since, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query verification records: %w", err)
	}
	defer rows.Close()

	var records []*models.VerificationRecord
	for rows.Next() {
		record := &models.VerificationRecord{}
		err := rows.Scan(
			&record.ID,
			&record.UserID,
			&record.MatchID,
			&record.Game,
			&record.Status,
			&record.Reason,
			&record.Multiplier,
			&record.Points,
			&record.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan verification record: %w", err)
		}
		records = append(records, record)
	}

	return records, nil
}

// CountRejectedSince 기준 시각 이후 거부된 시도 횟수 (부정행위 감사용)
func (r *VerificationRepository) CountRejectedSince(userID string, since time.Time) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM verification_records
		WHERE user_id = $1 AND status = 'rejected' AND created_at >= $2
	`

	var count int
	if err := r.db.QueryRow(query, userID, since).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count rejected records: %w", err)
	}

	return count, nil
}
