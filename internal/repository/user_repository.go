package repository

import (
	"database/sql"
	"fmt"

	"github.com/gg-loop/verification-backend/internal/models"
	"github.com/gg-loop/verification-backend/pkg/database"
)

type UserRepository struct {
	db *database.DB
}

func NewUserRepository(db *database.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create 새 사용자 생성
func (r *UserRepository) Create(username, email, passwordHash string) (*models.User, error) {
	query := `
		INSERT INTO users (username, email, password_hash)
		VALUES ($1, $2, $3)
		RETURNING id, username, email, password_hash, game_handle, created_at, updated_at
	`

	user := &models.User{}
	err := r.db.QueryRow(query, username, email, passwordHash).Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&user.GameHandle,
		&user.CreatedAt,
		&user.UpdatedAt,
	)

	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return user, nil
}

// FindByID ID로 사용자 찾기
func (r *UserRepository) FindByID(id string) (*models.User, error) {
	return r.findOne("id", id)
}

// FindByEmail 이메일로 사용자 찾기
func (r *UserRepository) FindByEmail(email string) (*models.User, error) {
	return r.findOne("email", email)
}

// FindByUsername 사용자명으로 사용자 찾기
func (r *UserRepository) FindByUsername(username string) (*models.User, error) {
	return r.findOne("username", username)
}

func (r *UserRepository) findOne(column, value string) (*models.User, error) {
	query := fmt.Sprintf(`
		SELECT id, username, email, password_hash, game_handle, created_at, updated_at
		FROM users
		WHERE %s = $1
	`, column)

	user := &models.User{}
	err := r.db.QueryRow(query, value).Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&user.GameHandle,
		&user.CreatedAt,
		&user.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	return user, nil
}

// UpdateGameHandle 연결된 게임 계정 핸들 업데이트
func (r *UserRepository) UpdateGameHandle(id string, gameHandle *string) error {
	query := `
		UPDATE users
		SET game_handle = $1, updated_at = NOW()
		WHERE id = $2
	`

	_, err := r.db.Exec(query, gameHandle, id)
	if err != nil {
		return fmt.Errorf("failed to update game handle: %w", err)
	}

	return nil
}
