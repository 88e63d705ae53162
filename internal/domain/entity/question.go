package entity

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// Типы вопросов
const (
	QuestionTypeMultipleChoice = "multiple_choice"
	QuestionTypeOpenEnded      = "open_ended"
)

// Option представляет один вариант ответа на вопрос.
// Признак правильности здесь отсутствует намеренно: правильные ответы
// хранятся на стороне сервиса проверки и не попадают к клиенту до submit.
type Option struct {
	ID       uint   `json:"id"`
	Text     string `json:"text"`
	ImageURL string `json:"image_url,omitempty"`
}

// OptionList - пользовательский тип для работы с JSONB
type OptionList []Option

// Scan реализует интерфейс sql.Scanner для OptionList
// Используется GORM для чтения JSONB данных из базы
func (o *OptionList) Scan(value interface{}) error {
	// Обработка NULL значений из базы данных
	if value == nil {
		*o = OptionList{}
		return nil
	}

	bytes, ok := value.([]byte)
	if !ok {
		return errors.New("failed to unmarshal JSONB value: expected []byte")
	}

	// Обработка пустого массива байтов
	if len(bytes) == 0 {
		*o = OptionList{}
		return nil
	}

	return json.Unmarshal(bytes, o)
}

// Value реализует интерфейс driver.Valuer для OptionList
// Используется GORM для записи OptionList в JSONB в базе
func (o OptionList) Value() (driver.Value, error) {
	if o == nil || len(o) == 0 {
		return []byte("[]"), nil // Возвращаем пустой JSON массив вместо null
	}
	return json.Marshal(o)
}

// Question представляет вопрос в тесте
type Question struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	QuizID      uint       `gorm:"not null;index" json:"quiz_id"`
	Text        string     `gorm:"size:500;not null" json:"text"`
	Type        string     `gorm:"size:20;not null;default:'multiple_choice'" json:"type"`
	Options     OptionList `gorm:"type:jsonb;not null" json:"options"`
	Points      int        `gorm:"not null;default:1" json:"points"`
	ImageURL    string     `gorm:"size:255;not null;default:''" json:"image_url,omitempty"`
	MathFormula string     `gorm:"size:500;not null;default:''" json:"math_formula,omitempty"`
	Explanation string     `gorm:"size:1000;not null;default:''" json:"explanation,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// TableName определяет имя таблицы для GORM
func (Question) TableName() string {
	return "questions"
}

// IsMultipleChoice проверяет, является ли вопрос вопросом с вариантами ответа
func (q *Question) IsMultipleChoice() bool {
	return q.Type == QuestionTypeMultipleChoice
}

// OptionsCount возвращает количество вариантов ответа
func (q *Question) OptionsCount() int {
	return len(q.Options)
}

// HasOption проверяет, есть ли у вопроса вариант с указанным ID
func (q *Question) HasOption(optionID uint) bool {
	for _, opt := range q.Options {
		if opt.ID == optionID {
			return true
		}
	}
	return false
}

// IsPlayable проверяет, корректно ли сконфигурирован вопрос для прохождения:
// вопрос с вариантами обязан иметь минимум два варианта
func (q *Question) IsPlayable() bool {
	if q.IsMultipleChoice() {
		return len(q.Options) >= 2
	}
	return q.Type == QuestionTypeOpenEnded
}
