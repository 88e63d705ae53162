package entity

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Статусы попытки прохождения
const (
	AttemptStatusInProgress = "in_progress"
	AttemptStatusSubmitting = "submitting"
	AttemptStatusCompleted  = "completed"
	AttemptStatusAbandoned  = "abandoned"
)

// allowedTransitions описывает допустимые переходы статусов попытки.
// Переход submitting -> in_progress разрешен для повторной отправки
// после сбоя сервиса проверки.
var allowedTransitions = map[string][]string{
	AttemptStatusInProgress: {AttemptStatusSubmitting, AttemptStatusAbandoned},
	AttemptStatusSubmitting: {AttemptStatusCompleted, AttemptStatusInProgress},
	AttemptStatusCompleted:  {},
	AttemptStatusAbandoned:  {},
}

// CanTransition проверяет, допустим ли переход попытки из статуса from в статус to
func CanTransition(from, to string) bool {
	for _, allowed := range allowedTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// Attempt представляет попытку прохождения теста.
// Строка в БД - это учетная запись сессии: она обеспечивает уникальность
// активной попытки на пользователя и тест. Оцененная запись с баллами
// принадлежит сервису проверки, а не этому сервису.
type Attempt struct {
	ID               uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	QuizID           uint       `gorm:"not null;index" json:"quiz_id"`
	UserID           uint       `gorm:"not null;index" json:"user_id"`
	Status           string     `gorm:"size:20;not null;default:'in_progress'" json:"status"`
	StartedAt        time.Time  `gorm:"not null" json:"started_at"`
	FinishedAt       *time.Time `gorm:"default:null" json:"finished_at,omitempty"`
	TimeSpentMinutes int        `gorm:"not null;default:0" json:"time_spent_minutes"`

	// Сессионные поля, не сохраняемые в БД: живут только в памяти сессии
	Answers         map[uint]AnswerValue `gorm:"-" json:"-"`
	CurrentQuestion int                  `gorm:"-" json:"-"`
	UserEmail       string               `gorm:"-" json:"-"` // из claims токена, для письма с результатом
}

// TableName определяет имя таблицы для GORM
func (Attempt) TableName() string {
	return "attempts"
}

// NewAttempt создает новую попытку в статусе in_progress
func NewAttempt(quizID, userID uint) *Attempt {
	return &Attempt{
		ID:        uuid.New(),
		QuizID:    quizID,
		UserID:    userID,
		Status:    AttemptStatusInProgress,
		StartedAt: time.Now(),
		Answers:   make(map[uint]AnswerValue),
	}
}

// IsActive проверяет, находится ли попытка в активном состоянии
// (еще не завершена и не брошена)
func (a *Attempt) IsActive() bool {
	return a.Status == AttemptStatusInProgress || a.Status == AttemptStatusSubmitting
}

// Elapsed возвращает время, прошедшее с начала попытки
func (a *Attempt) Elapsed(now time.Time) time.Duration {
	return now.Sub(a.StartedAt)
}

// Transition переводит попытку в новый статус с проверкой допустимости перехода
func (a *Attempt) Transition(to string) error {
	if !CanTransition(a.Status, to) {
		return fmt.Errorf("invalid attempt transition from %q to %q", a.Status, to)
	}
	a.Status = to
	return nil
}
