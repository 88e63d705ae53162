package repository

import (
	"github.com/google/uuid"

	"github.com/yourusername/testhub-api/internal/domain/entity"
)

// AttemptRepository определяет методы для учета попыток прохождения
type AttemptRepository interface {
	// Create сохраняет новую попытку. Возвращает errors.ErrConflict,
	// если у пользователя уже есть активная попытка по этому тесту.
	Create(attempt *entity.Attempt) error

	// GetByID возвращает попытку по ID
	GetByID(id uuid.UUID) (*entity.Attempt, error)

	// MarkCompleted переводит попытку в статус completed
	// с фиксацией времени завершения и затраченных минут
	MarkCompleted(id uuid.UUID, timeSpentMinutes int) error

	// MarkAbandoned переводит попытку в статус abandoned
	MarkAbandoned(id uuid.UUID) error

	// ListByUser возвращает попытки пользователя, новые первыми
	ListByUser(userID uint, limit, offset int) ([]entity.Attempt, error)
}
