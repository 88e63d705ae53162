package service

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/yourusername/testhub-api/internal/domain/entity"
	"github.com/yourusername/testhub-api/internal/domain/repository"
	apperrors "github.com/yourusername/testhub-api/internal/pkg/errors"
)

// QuizService предоставляет методы для работы с тестами
type QuizService struct {
	quizRepo repository.QuizRepository
}

// NewQuizService создает новый сервис тестов
func NewQuizService(quizRepo repository.QuizRepository) *QuizService {
	return &QuizService{quizRepo: quizRepo}
}

// CreateQuiz создает новый тест с вопросами
func (s *QuizService) CreateQuiz(quiz *entity.Quiz) error {
	if strings.TrimSpace(quiz.Title) == "" {
		return fmt.Errorf("%w: quiz title is required", apperrors.ErrValidation)
	}
	if quiz.TimeLimitMinutes != nil && *quiz.TimeLimitMinutes <= 0 {
		return fmt.Errorf("%w: time limit must be positive", apperrors.ErrValidation)
	}
	if quiz.MinPassPercentage < 0 || quiz.MinPassPercentage > 100 {
		return fmt.Errorf("%w: min pass percentage must be between 0 and 100", apperrors.ErrValidation)
	}

	for i := range quiz.Questions {
		q := &quiz.Questions[i]
		if strings.TrimSpace(q.Text) == "" {
			return fmt.Errorf("%w: question text is required", apperrors.ErrValidation)
		}
		switch q.Type {
		case "":
			q.Type = entity.QuestionTypeMultipleChoice
		case entity.QuestionTypeMultipleChoice, entity.QuestionTypeOpenEnded:
		default:
			return fmt.Errorf("%w: unknown question type %q", apperrors.ErrValidation, q.Type)
		}
		if q.Type == entity.QuestionTypeMultipleChoice && len(q.Options) < 2 {
			return fmt.Errorf("%w: multiple choice question needs at least 2 options", apperrors.ErrValidation)
		}
		if q.Points <= 0 {
			q.Points = 1
		}
	}

	if quiz.Status == "" {
		quiz.Status = entity.QuizStatusDraft
	}

	return s.quizRepo.Create(quiz)
}

// GetQuiz возвращает тест без вопросов
func (s *QuizService) GetQuiz(id uint) (*entity.Quiz, error) {
	return s.quizRepo.GetByID(id)
}

// GetQuizWithQuestions возвращает тест вместе с вопросами.
// Отдавать вопросы клиенту безопасно: признак правильности в вариантах
// не хранится.
func (s *QuizService) GetQuizWithQuestions(id uint) (*entity.Quiz, error) {
	return s.quizRepo.GetWithQuestions(id)
}

// ListQuizzes возвращает страницу тестов по фильтру
func (s *QuizService) ListQuizzes(filter repository.QuizFilter) ([]entity.Quiz, int64, error) {
	return s.quizRepo.List(filter)
}

// PublishQuiz переводит тест в статус published
func (s *QuizService) PublishQuiz(id uint) error {
	quiz, err := s.quizRepo.GetWithQuestions(id)
	if err != nil {
		return err
	}
	if len(quiz.Questions) == 0 {
		return fmt.Errorf("%w: quiz %d has no questions and cannot be published", apperrors.ErrValidation, id)
	}
	quiz.Status = entity.QuizStatusPublished
	return s.quizRepo.Update(quiz)
}

// DeleteQuiz удаляет тест вместе с вопросами (ON DELETE CASCADE)
func (s *QuizService) DeleteQuiz(id uint) error {
	if _, err := s.quizRepo.GetByID(id); err != nil {
		return err
	}
	return s.quizRepo.Delete(id)
}

// ExportQuestionsXLSX выгружает вопросы теста в xlsx для авторов
func (s *QuizService) ExportQuestionsXLSX(id uint) (*bytes.Buffer, string, error) {
	quiz, err := s.quizRepo.GetWithQuestions(id)
	if err != nil {
		return nil, "", err
	}

	f := excelize.NewFile()
	defer f.Close()

	sheet := "Questions"
	f.SetSheetName("Sheet1", sheet)

	headers := []string{"#", "Текст вопроса", "Тип", "Баллы", "Варианты"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, h)
	}

	for row, question := range quiz.Questions {
		options := make([]string, 0, len(question.Options))
		for _, opt := range question.Options {
			options = append(options, opt.Text)
		}

		values := []interface{}{
			row + 1,
			question.Text,
			question.Type,
			question.Points,
			strings.Join(options, "; "),
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			f.SetCellValue(sheet, cell, v)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, "", fmt.Errorf("failed to write xlsx: %w", err)
	}

	filename := fmt.Sprintf("quiz_%d_questions.xlsx", quiz.ID)
	return buf, filename, nil
}
