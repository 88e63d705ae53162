package repository

import (
	"github.com/yourusername/testhub-api/internal/domain/entity"
)

// QuizFilter описывает параметры выборки списка тестов
type QuizFilter struct {
	Category string
	Subject  string
	Status   string
	Page     int
	PageSize int
}

// QuizRepository определяет методы для работы с тестами
type QuizRepository interface {
	// Create сохраняет новый тест вместе с вопросами
	Create(quiz *entity.Quiz) error

	// GetByID возвращает тест по ID без вопросов
	GetByID(id uint) (*entity.Quiz, error)

	// GetWithQuestions возвращает тест вместе с вопросами
	// в каноническом порядке
	GetWithQuestions(id uint) (*entity.Quiz, error)

	// List возвращает страницу тестов по фильтру и общее количество
	List(filter QuizFilter) ([]entity.Quiz, int64, error)

	// Update обновляет тест
	Update(quiz *entity.Quiz) error

	// Delete удаляет тест
	Delete(id uint) error
}
