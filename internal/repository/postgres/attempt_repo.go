package postgres

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"

	"github.com/yourusername/testhub-api/internal/domain/entity"
	apperrors "github.com/yourusername/testhub-api/internal/pkg/errors"
)

// AttemptRepo реализует repository.AttemptRepository
type AttemptRepo struct {
	db *gorm.DB
}

// NewAttemptRepo создает новый репозиторий попыток
func NewAttemptRepo(db *gorm.DB) *AttemptRepo {
	return &AttemptRepo{db: db}
}

// Create сохраняет новую попытку.
// Partial unique index idx_attempt_single_active гарантирует максимум одну
// активную попытку на пользователя и тест:
// - 23505 (unique violation) → "попытка уже идет"
// - Другая DB ошибка → возвращается как есть
func (r *AttemptRepo) Create(attempt *entity.Attempt) error {
	if err := r.db.Create(attempt).Error; err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: user %d already has an active attempt for quiz %d",
				apperrors.ErrConflict, attempt.UserID, attempt.QuizID)
		}
		return err
	}
	return nil
}

// isUniqueViolation проверяет Postgres unique violation (23505) для pgconn и lib/pq драйверов
func isUniqueViolation(err error) bool {
	// pgx/v5 driver (pgconn.PgError)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return true
	}
	// lib/pq driver
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return true
	}
	return false
}

// GetByID возвращает попытку по ID
func (r *AttemptRepo) GetByID(id uuid.UUID) (*entity.Attempt, error) {
	var attempt entity.Attempt
	err := r.db.First(&attempt, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &attempt, nil
}

// MarkCompleted точечно переводит попытку в completed без полного Save
func (r *AttemptRepo) MarkCompleted(id uuid.UUID, timeSpentMinutes int) error {
	return r.db.Model(&entity.Attempt{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":             entity.AttemptStatusCompleted,
			"finished_at":        time.Now(),
			"time_spent_minutes": timeSpentMinutes,
		}).Error
}

// MarkAbandoned точечно переводит попытку в abandoned
func (r *AttemptRepo) MarkAbandoned(id uuid.UUID) error {
	return r.db.Model(&entity.Attempt{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":      entity.AttemptStatusAbandoned,
			"finished_at": time.Now(),
		}).Error
}

// ListByUser возвращает попытки пользователя, новые первыми
func (r *AttemptRepo) ListByUser(userID uint, limit, offset int) ([]entity.Attempt, error) {
	var attempts []entity.Attempt
	err := r.db.Where("user_id = ?", userID).
		Order("started_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&attempts).Error
	return attempts, err
}
