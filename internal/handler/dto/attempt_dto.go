package dto

import (
	"time"

	"github.com/google/uuid"

	"github.com/yourusername/testhub-api/internal/domain/entity"
	"github.com/yourusername/testhub-api/internal/service/attemptsession"
)

// StartAttemptRequest представляет запрос на начало попытки
type StartAttemptRequest struct {
	QuizID uint `json:"quiz_id" binding:"required"`
}

// AnswerRequest представляет запрос на запись ответа.
// Форма Answer проверяется сессией по типу вопроса.
type AnswerRequest struct {
	QuestionID uint               `json:"question_id" binding:"required"`
	Answer     entity.AnswerValue `json:"answer"`
}

// NavigateRequest представляет запрос на переход к вопросу
type NavigateRequest struct {
	Index *int `json:"index" binding:"required"`
}

// NavigateResponse возвращает итоговый индекс после перехода
type NavigateResponse struct {
	CurrentQuestion int `json:"current_question"`
}

// AttemptStateResponse представляет состояние попытки для клиента
type AttemptStateResponse struct {
	AttemptID        uuid.UUID                   `json:"attempt_id"`
	QuizID           uint                        `json:"quiz_id"`
	Status           string                      `json:"status"`
	Questions        []QuestionResponse          `json:"questions"`
	Answers          map[uint]entity.AnswerValue `json:"answers"`
	CurrentQuestion  int                         `json:"current_question"`
	AnsweredCount    int                         `json:"answered_count"`
	TotalQuestions   int                         `json:"total_questions"`
	StartedAt        time.Time                   `json:"started_at"`
	RemainingSeconds *int                        `json:"remaining_seconds,omitempty"`
	TimeExpired      bool                        `json:"time_expired"`
}

// NewAttemptStateResponse создает DTO состояния попытки.
// Вопросы отдаются в порядке сессии (после перемешивания).
func NewAttemptStateResponse(state *attemptsession.StateSnapshot) *AttemptStateResponse {
	questions := make([]QuestionResponse, 0, len(state.Questions))
	for i := range state.Questions {
		questions = append(questions, NewQuestionResponse(&state.Questions[i]))
	}

	return &AttemptStateResponse{
		AttemptID:        state.AttemptID,
		QuizID:           state.QuizID,
		Status:           state.Status,
		Questions:        questions,
		Answers:          state.Answers,
		CurrentQuestion:  state.CurrentQuestion,
		AnsweredCount:    state.AnsweredCount,
		TotalQuestions:   state.TotalQuestions,
		StartedAt:        state.StartedAt,
		RemainingSeconds: state.RemainingSeconds,
		TimeExpired:      state.TimeExpired,
	}
}

// AttemptSummaryResponse представляет попытку в истории пользователя
type AttemptSummaryResponse struct {
	ID               uuid.UUID  `json:"id"`
	QuizID           uint       `json:"quiz_id"`
	Status           string     `json:"status"`
	StartedAt        time.Time  `json:"started_at"`
	FinishedAt       *time.Time `json:"finished_at,omitempty"`
	TimeSpentMinutes int        `json:"time_spent_minutes"`
}

// AttemptListResponse представляет историю попыток
type AttemptListResponse struct {
	Attempts []AttemptSummaryResponse `json:"attempts"`
}

// NewAttemptListResponse создает DTO истории попыток
func NewAttemptListResponse(attempts []entity.Attempt) AttemptListResponse {
	items := make([]AttemptSummaryResponse, 0, len(attempts))
	for i := range attempts {
		a := &attempts[i]
		items = append(items, AttemptSummaryResponse{
			ID:               a.ID,
			QuizID:           a.QuizID,
			Status:           a.Status,
			StartedAt:        a.StartedAt,
			FinishedAt:       a.FinishedAt,
			TimeSpentMinutes: a.TimeSpentMinutes,
		})
	}
	return AttemptListResponse{Attempts: items}
}

// QuestionResultResponse представляет разбор вопроса в результате
type QuestionResultResponse struct {
	QuestionID      uint    `json:"question_id"`
	Correct         bool    `json:"correct"`
	PointsAwarded   float64 `json:"points_awarded"`
	ChosenOptionID  *uint   `json:"chosen_option_id,omitempty"`
	CorrectOptionID *uint   `json:"correct_option_id,omitempty"`
	TextAnswer      *string `json:"text_answer,omitempty"`
	Unanswered      bool    `json:"unanswered"`
}

// ResultResponse представляет результат попытки для клиента
type ResultResponse struct {
	AttemptID      uuid.UUID                `json:"attempt_id"`
	QuizID         uint                     `json:"quiz_id"`
	Score          float64                  `json:"score"`
	MaxScore       float64                  `json:"max_score"`
	Percentage     float64                  `json:"percentage"`
	Passed         bool                     `json:"passed"`
	CorrectAnswers int                      `json:"correct_answers"`
	TotalQuestions int                      `json:"total_questions"`
	TimeExpired    bool                     `json:"time_expired"`
	Questions      []QuestionResultResponse `json:"questions"`
	CompletedAt    time.Time                `json:"completed_at"`
}

// NewResultResponse создает DTO результата
func NewResultResponse(result *entity.Result) *ResultResponse {
	questions := make([]QuestionResultResponse, 0, len(result.Questions))
	for _, q := range result.Questions {
		questions = append(questions, QuestionResultResponse{
			QuestionID:      q.QuestionID,
			Correct:         q.Correct,
			PointsAwarded:   q.PointsAwarded,
			ChosenOptionID:  q.ChosenOptionID,
			CorrectOptionID: q.CorrectOptionID,
			TextAnswer:      q.TextAnswer,
			Unanswered:      q.Unanswered,
		})
	}

	return &ResultResponse{
		AttemptID:      result.AttemptID,
		QuizID:         result.QuizID,
		Score:          result.Score,
		MaxScore:       result.MaxScore,
		Percentage:     result.Percentage,
		Passed:         result.Passed,
		CorrectAnswers: result.CorrectAnswers,
		TotalQuestions: result.TotalQuestions,
		TimeExpired:    result.TimeExpired,
		Questions:      questions,
		CompletedAt:    result.CompletedAt,
	}
}
