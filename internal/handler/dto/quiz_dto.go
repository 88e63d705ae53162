package dto

import (
	"time"

	"github.com/yourusername/testhub-api/internal/domain/entity"
)

// OptionRequest представляет вариант ответа при создании вопроса
type OptionRequest struct {
	Text     string `json:"text" binding:"required"`
	ImageURL string `json:"image_url"`
}

// QuestionRequest представляет вопрос при создании теста
type QuestionRequest struct {
	Text        string          `json:"text" binding:"required"`
	Type        string          `json:"type"`
	Options     []OptionRequest `json:"options"`
	Points      int             `json:"points"`
	ImageURL    string          `json:"image_url"`
	MathFormula string          `json:"math_formula"`
	Explanation string          `json:"explanation"`
}

// CreateQuizRequest представляет запрос на создание теста
type CreateQuizRequest struct {
	Title             string            `json:"title" binding:"required"`
	Description       string            `json:"description"`
	Category          string            `json:"category"`
	Subject           string            `json:"subject"`
	TimeLimitMinutes  *int              `json:"time_limit_minutes"`
	MinPassPercentage float64           `json:"min_pass_percentage"`
	ShuffleQuestions  bool              `json:"shuffle_questions"`
	ShuffleOptions    bool              `json:"shuffle_options"`
	Questions         []QuestionRequest `json:"questions"`
}

// ToEntity преобразует запрос в доменную сущность.
// ID вариантов назначаются последовательно внутри вопроса.
func (r *CreateQuizRequest) ToEntity() *entity.Quiz {
	quiz := &entity.Quiz{
		Title:             r.Title,
		Description:       r.Description,
		Category:          r.Category,
		Subject:           r.Subject,
		TimeLimitMinutes:  r.TimeLimitMinutes,
		MinPassPercentage: r.MinPassPercentage,
		ShuffleQuestions:  r.ShuffleQuestions,
		ShuffleOptions:    r.ShuffleOptions,
	}

	for _, q := range r.Questions {
		options := make(entity.OptionList, 0, len(q.Options))
		for i, opt := range q.Options {
			options = append(options, entity.Option{
				ID:       uint(i + 1),
				Text:     opt.Text,
				ImageURL: opt.ImageURL,
			})
		}
		quiz.Questions = append(quiz.Questions, entity.Question{
			Text:        q.Text,
			Type:        q.Type,
			Options:     options,
			Points:      q.Points,
			ImageURL:    q.ImageURL,
			MathFormula: q.MathFormula,
			Explanation: q.Explanation,
		})
	}

	return quiz
}

// QuestionResponse представляет вопрос в формате для ответа клиенту
type QuestionResponse struct {
	ID          uint              `json:"id"`
	QuizID      uint              `json:"quiz_id"`
	Text        string            `json:"text"`
	Type        string            `json:"type"`
	Options     entity.OptionList `json:"options"`
	Points      int               `json:"points"`
	ImageURL    string            `json:"image_url,omitempty"`
	MathFormula string            `json:"math_formula,omitempty"`
	Explanation string            `json:"explanation,omitempty"`
}

// QuizResponse представляет тест в формате для ответа клиенту
type QuizResponse struct {
	ID                uint               `json:"id"`
	Title             string             `json:"title"`
	Description       string             `json:"description,omitempty"`
	Category          string             `json:"category,omitempty"`
	Subject           string             `json:"subject,omitempty"`
	TimeLimitMinutes  *int               `json:"time_limit_minutes,omitempty"`
	MinPassPercentage float64            `json:"min_pass_percentage"`
	ShuffleQuestions  bool               `json:"shuffle_questions"`
	ShuffleOptions    bool               `json:"shuffle_options"`
	Status            string             `json:"status"`
	QuestionCount     int                `json:"question_count"`
	Questions         []QuestionResponse `json:"questions,omitempty"`
	CreatedAt         time.Time          `json:"created_at"`
	UpdatedAt         time.Time          `json:"updated_at"`
}

// PaginatedQuizResponse представляет пагинированный список тестов
type PaginatedQuizResponse struct {
	Quizzes []*QuizResponse `json:"quizzes"`
	Total   int64           `json:"total"`
	Page    int             `json:"page"`
	PerPage int             `json:"per_page"`
}

// NewQuestionResponse создает DTO для вопроса
func NewQuestionResponse(q *entity.Question) QuestionResponse {
	return QuestionResponse{
		ID:          q.ID,
		QuizID:      q.QuizID,
		Text:        q.Text,
		Type:        q.Type,
		Options:     q.Options,
		Points:      q.Points,
		ImageURL:    q.ImageURL,
		MathFormula: q.MathFormula,
		Explanation: q.Explanation,
	}
}

// NewQuizResponse создает DTO для теста
func NewQuizResponse(quiz *entity.Quiz, includeQuestions bool) *QuizResponse {
	resp := &QuizResponse{
		ID:                quiz.ID,
		Title:             quiz.Title,
		Description:       quiz.Description,
		Category:          quiz.Category,
		Subject:           quiz.Subject,
		TimeLimitMinutes:  quiz.TimeLimitMinutes,
		MinPassPercentage: quiz.MinPassPercentage,
		ShuffleQuestions:  quiz.ShuffleQuestions,
		ShuffleOptions:    quiz.ShuffleOptions,
		Status:            quiz.Status,
		QuestionCount:     len(quiz.Questions),
		CreatedAt:         quiz.CreatedAt,
		UpdatedAt:         quiz.UpdatedAt,
	}

	if includeQuestions {
		resp.Questions = make([]QuestionResponse, 0, len(quiz.Questions))
		for i := range quiz.Questions {
			resp.Questions = append(resp.Questions, NewQuestionResponse(&quiz.Questions[i]))
		}
	}

	return resp
}
