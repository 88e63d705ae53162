package entity

import (
	"time"

	"github.com/google/uuid"
)

// Result представляет итог попытки прохождения теста.
// Модель только для отображения: подсчет баллов выполняет внешний
// сервис проверки, этот сервис результат не вычисляет и не хранит в БД
// (только кэширует для страницы результатов).
type Result struct {
	AttemptID       uuid.UUID        `json:"attempt_id"`
	QuizID          uint             `json:"quiz_id"`
	UserID          uint             `json:"user_id"`
	Score           float64          `json:"score"`
	MaxScore        float64          `json:"max_score"`
	Percentage      float64          `json:"percentage"`
	Passed          bool             `json:"passed"`
	CorrectAnswers  int              `json:"correct_answers"`
	TotalQuestions  int              `json:"total_questions"`
	TimeExpired     bool             `json:"time_expired"`
	Questions       []QuestionResult `json:"questions"`
	CompletedAt     time.Time        `json:"completed_at"`
}

// QuestionResult представляет разбор одного вопроса в результате
type QuestionResult struct {
	QuestionID      uint    `json:"question_id"`
	Correct         bool    `json:"correct"`
	PointsAwarded   float64 `json:"points_awarded"`
	ChosenOptionID  *uint   `json:"chosen_option_id,omitempty"`
	CorrectOptionID *uint   `json:"correct_option_id,omitempty"`
	TextAnswer      *string `json:"text_answer,omitempty"`
	Unanswered      bool    `json:"unanswered"`
}
