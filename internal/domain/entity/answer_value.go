package entity

import (
	"encoding/json"
	"fmt"
	"strings"
)

// AnswerValue представляет ответ пользователя на один вопрос.
// Ровно одно из полей заполнено: выбранный вариант для вопроса
// с вариантами ответа, либо свободный текст для открытого вопроса.
type AnswerValue struct {
	OptionID *uint   `json:"option_id,omitempty"`
	Text     *string `json:"text,omitempty"`
}

// rawAnswerValue используется для обнаружения массива там,
// где ожидается одиночный ID варианта
type rawAnswerValue struct {
	OptionID json.RawMessage `json:"option_id,omitempty"`
	Text     *string         `json:"text,omitempty"`
}

// UnmarshalJSON отклоняет массив в поле option_id: для вопроса
// с вариантами допустим только одиночный ID
func (v *AnswerValue) UnmarshalJSON(data []byte) error {
	var raw rawAnswerValue
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if len(raw.OptionID) > 0 {
		trimmed := strings.TrimSpace(string(raw.OptionID))
		if strings.HasPrefix(trimmed, "[") {
			return fmt.Errorf("option_id must be a single option id, got an array")
		}
		var id uint
		if err := json.Unmarshal(raw.OptionID, &id); err != nil {
			return fmt.Errorf("option_id must be a single option id: %w", err)
		}
		v.OptionID = &id
	} else {
		v.OptionID = nil
	}
	v.Text = raw.Text
	return nil
}

// NewOptionAnswer создает ответ с выбранным вариантом
func NewOptionAnswer(optionID uint) AnswerValue {
	return AnswerValue{OptionID: &optionID}
}

// NewTextAnswer создает ответ со свободным текстом
func NewTextAnswer(text string) AnswerValue {
	return AnswerValue{Text: &text}
}

// IsEmpty проверяет, пустой ли ответ
func (v AnswerValue) IsEmpty() bool {
	if v.OptionID != nil {
		return false
	}
	return v.Text == nil || strings.TrimSpace(*v.Text) == ""
}

// ValidateForQuestion проверяет соответствие формы ответа типу вопроса.
// Вопрос с вариантами требует ровно один ID существующего варианта,
// открытый вопрос - непустой текст.
func (v AnswerValue) ValidateForQuestion(q *Question) error {
	switch q.Type {
	case QuestionTypeMultipleChoice:
		if v.Text != nil {
			return fmt.Errorf("question %d expects an option id, got free text", q.ID)
		}
		if v.OptionID == nil {
			return fmt.Errorf("question %d expects an option id", q.ID)
		}
		if !q.HasOption(*v.OptionID) {
			return fmt.Errorf("question %d has no option %d", q.ID, *v.OptionID)
		}
		return nil
	case QuestionTypeOpenEnded:
		if v.OptionID != nil {
			return fmt.Errorf("question %d expects free text, got an option id", q.ID)
		}
		if v.Text == nil || strings.TrimSpace(*v.Text) == "" {
			return fmt.Errorf("question %d expects non-empty text", q.ID)
		}
		return nil
	default:
		return fmt.Errorf("unknown question type %q", q.Type)
	}
}
