package entity

import (
	"time"
)

// Константы статусов теста
const (
	QuizStatusDraft     = "draft"
	QuizStatusPublished = "published"
	QuizStatusArchived  = "archived"
)

// Quiz представляет определение теста: неизменяемый снимок,
// загружаемый один раз на сессию прохождения
type Quiz struct {
	ID                uint       `gorm:"primaryKey" json:"id"`
	Title             string     `gorm:"size:100;not null" json:"title"`
	Description       string     `gorm:"size:500;not null;default:''" json:"description"`
	Category          string     `gorm:"size:50;not null;default:''" json:"category"`
	Subject           string     `gorm:"size:50;not null;default:''" json:"subject"`
	TimeLimitMinutes  *int       `gorm:"default:null" json:"time_limit_minutes,omitempty"`
	MinPassPercentage float64    `gorm:"not null;default:50" json:"min_pass_percentage"`
	ShuffleQuestions  bool       `gorm:"not null;default:false" json:"shuffle_questions"`
	ShuffleOptions    bool       `gorm:"not null;default:false" json:"shuffle_options"`
	Status            string     `gorm:"size:20;not null;default:'published';index" json:"status"`
	Questions         []Question `gorm:"foreignKey:QuizID" json:"questions,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// TableName определяет имя таблицы для GORM
func (Quiz) TableName() string {
	return "quizzes"
}

// IsTimed проверяет, ограничено ли прохождение теста по времени
func (q *Quiz) IsTimed() bool {
	return q.TimeLimitMinutes != nil && *q.TimeLimitMinutes > 0
}

// IsPublished проверяет, доступен ли тест для прохождения
func (q *Quiz) IsPublished() bool {
	return q.Status == QuizStatusPublished
}

// TimeLimit возвращает лимит времени как Duration (0 для теста без лимита)
func (q *Quiz) TimeLimit() time.Duration {
	if !q.IsTimed() {
		return 0
	}
	return time.Duration(*q.TimeLimitMinutes) * time.Minute
}

// QuestionCount возвращает количество вопросов в тесте
func (q *Quiz) QuestionCount() int {
	return len(q.Questions)
}

// FindQuestion возвращает вопрос по ID или nil, если такого вопроса в тесте нет
func (q *Quiz) FindQuestion(questionID uint) *Question {
	for i := range q.Questions {
		if q.Questions[i].ID == questionID {
			return &q.Questions[i]
		}
	}
	return nil
}

// CloneForSession создает копию теста, которой сессия владеет единолично.
// Рандомизатор переставляет вопросы и варианты именно в копии,
// канонический порядок из БД остается нетронутым.
func (q *Quiz) CloneForSession() *Quiz {
	clone := *q
	clone.Questions = make([]Question, len(q.Questions))
	for i, question := range q.Questions {
		questionCopy := question
		questionCopy.Options = make(OptionList, len(question.Options))
		copy(questionCopy.Options, question.Options)
		clone.Questions[i] = questionCopy
	}
	return &clone
}
