package attemptsession

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/yourusername/testhub-api/internal/domain/entity"
	apperrors "github.com/yourusername/testhub-api/internal/pkg/errors"
)

// Submitter выполняет отправку попытки на проверку. Повторная отправка
// идемпотентна: конечный автомат статусов отсекает дубли внутри процесса,
// Redis SetNX - между экземплярами сервиса. При сбое сервиса проверки
// попытка возвращается в in_progress, ответы не теряются.
type Submitter struct {
	// Настройки
	config *Config

	// Зависимости
	deps *Dependencies
}

// NewSubmitter создает новый компонент отправки
func NewSubmitter(config *Config, deps *Dependencies) *Submitter {
	return &Submitter{
		config: config,
		deps:   deps,
	}
}

// Submit отправляет попытку на проверку и возвращает результат.
// Для уже завершенной попытки возвращает кешированный результат -
// повторный submit не создает второй записи и не дергает сервис проверки.
func (sub *Submitter) Submit(ctx context.Context, session *Session, trigger string) (*entity.Result, error) {
	attempt := session.attempt

	// Переход in_progress -> submitting атомарно под мьютексом сессии
	session.mu.Lock()
	switch attempt.Status {
	case entity.AttemptStatusSubmitting:
		session.mu.Unlock()
		return nil, fmt.Errorf("%w: attempt %s is already being submitted", apperrors.ErrConflict, attempt.ID)
	case entity.AttemptStatusCompleted:
		session.mu.Unlock()
		return sub.cachedResult(attempt)
	case entity.AttemptStatusAbandoned:
		session.mu.Unlock()
		return nil, fmt.Errorf("%w: attempt %s was abandoned", apperrors.ErrConflict, attempt.ID)
	}
	if err := attempt.Transition(entity.AttemptStatusSubmitting); err != nil {
		session.mu.Unlock()
		return nil, fmt.Errorf("%w: %v", apperrors.ErrConflict, err)
	}
	req := sub.buildRequest(session)
	session.mu.Unlock()

	// Межэкземплярная блокировка: второй экземпляр с той же попыткой
	// не должен отправить ее параллельно
	lockKey := fmt.Sprintf("attempt:submit:%s", attempt.ID)
	locked, err := sub.deps.CacheRepo.SetNX(lockKey, trigger, sub.config.SubmitLockTTL)
	if err != nil {
		log.Printf("[Submitter] Попытка %s: ошибка блокировки отправки, продолжаю без нее: %v", attempt.ID, err)
	} else if !locked {
		sub.revert(session)
		return nil, fmt.Errorf("%w: attempt %s submission is locked by another instance", apperrors.ErrConflict, attempt.ID)
	}
	defer func() {
		if err := sub.deps.CacheRepo.Delete(lockKey); err != nil {
			log.Printf("[Submitter] Попытка %s: не удалось снять блокировку отправки: %v", attempt.ID, err)
		}
	}()

	log.Printf("[Submitter] Попытка %s: отправка на проверку (триггер: %s, ответов: %d)",
		attempt.ID, trigger, len(req.Answers))

	result, err := sub.deps.Grader.Grade(ctx, req)
	if err != nil {
		// Откат в in_progress: ответы сохранены, клиент может повторить
		sub.revert(session)
		log.Printf("[Submitter] Попытка %s: сервис проверки недоступен: %v", attempt.ID, err)
		return nil, fmt.Errorf("grading submission failed: %w", err)
	}

	return sub.complete(session, req, result, trigger)
}

// buildRequest собирает полезную нагрузку проверки.
// Вызывается под мьютексом сессии. Ответы идут в порядке вопросов
// сессии; вопросы без ответа в нагрузку не попадают.
func (sub *Submitter) buildRequest(session *Session) *GradingRequest {
	attempt := session.attempt

	answers := make([]GradingAnswer, 0, len(attempt.Answers))
	for _, question := range session.quiz.Questions {
		value, ok := attempt.Answers[question.ID]
		if !ok {
			continue
		}
		answers = append(answers, GradingAnswer{
			QuestionID: question.ID,
			OptionID:   value.OptionID,
			Text:       value.Text,
		})
	}

	return &GradingRequest{
		QuizID:           session.quiz.ID,
		AttemptID:        attempt.ID,
		UserID:           attempt.UserID,
		Answers:          answers,
		TimeSpentMinutes: int(attempt.Elapsed(time.Now()).Minutes()),
		TimeExpired:      session.timeExpired,
	}
}

// complete фиксирует успешную проверку: переводит попытку в completed,
// обновляет БД, кеширует результат и рассылает уведомления
func (sub *Submitter) complete(session *Session, req *GradingRequest, result *entity.Result, trigger string) (*entity.Result, error) {
	attempt := session.attempt

	session.mu.Lock()
	if err := attempt.Transition(entity.AttemptStatusCompleted); err != nil {
		session.mu.Unlock()
		return nil, fmt.Errorf("%w: %v", apperrors.ErrConflict, err)
	}
	session.completedTrigger = trigger
	now := time.Now()
	attempt.FinishedAt = &now
	attempt.TimeSpentMinutes = req.TimeSpentMinutes
	result.AttemptID = attempt.ID
	result.QuizID = session.quiz.ID
	result.UserID = attempt.UserID
	result.TimeExpired = req.TimeExpired
	result.CompletedAt = now
	session.mu.Unlock()

	if err := sub.deps.AttemptRepo.MarkCompleted(attempt.ID, req.TimeSpentMinutes); err != nil {
		// Попытка уже оценена, откатывать нельзя - логируем и продолжаем
		log.Printf("[Submitter] Попытка %s: не удалось отметить завершение в БД: %v", attempt.ID, err)
	}

	resultKey := fmt.Sprintf("attempt:result:%s", attempt.ID)
	if err := sub.deps.CacheRepo.SetJSON(resultKey, result, sub.config.ResultTTL); err != nil {
		log.Printf("[Submitter] Попытка %s: не удалось кешировать результат: %v", attempt.ID, err)
	}

	// Снимок состояния завершенной сессии больше не нужен
	stateKey := fmt.Sprintf("attempt:state:%s", attempt.ID)
	if err := sub.deps.CacheRepo.Delete(stateKey); err != nil {
		log.Printf("[Submitter] Попытка %s: не удалось удалить снимок состояния: %v", attempt.ID, err)
	}

	completedData := map[string]interface{}{
		"attempt_id":      attempt.ID,
		"score":           result.Score,
		"max_score":       result.MaxScore,
		"percentage":      result.Percentage,
		"passed":          result.Passed,
		"correct_answers": result.CorrectAnswers,
		"time_expired":    result.TimeExpired,
	}
	if err := sub.deps.Events.SendEventToUser(attempt.UserID, EventCompleted, completedData); err != nil {
		log.Printf("[Submitter] Попытка %s: не удалось отправить событие завершения: %v", attempt.ID, err)
	}

	if sub.deps.Notifier != nil && attempt.UserEmail != "" {
		// Письмо с результатом не должно задерживать ответ клиенту
		go func() {
			emailCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			if err := sub.deps.Notifier.SendResultEmail(emailCtx, attempt.UserEmail, result); err != nil {
				log.Printf("[Submitter] Попытка %s: не удалось отправить письмо с результатом: %v", attempt.ID, err)
			}
		}()
	}

	log.Printf("[Submitter] Попытка %s: завершена, %.1f%% (порог %.1f%%), passed=%v",
		attempt.ID, result.Percentage, session.quiz.MinPassPercentage, result.Passed)

	return result, nil
}

// revert возвращает попытку из submitting в in_progress после сбоя
func (sub *Submitter) revert(session *Session) {
	session.mu.Lock()
	defer session.mu.Unlock()
	if session.attempt.Status != entity.AttemptStatusSubmitting {
		return
	}
	if err := session.attempt.Transition(entity.AttemptStatusInProgress); err != nil {
		log.Printf("[Submitter] Попытка %s: откат статуса не удался: %v", session.attempt.ID, err)
	}
}

// cachedResult возвращает ранее вычисленный результат завершенной попытки
func (sub *Submitter) cachedResult(attempt *entity.Attempt) (*entity.Result, error) {
	var result entity.Result
	resultKey := fmt.Sprintf("attempt:result:%s", attempt.ID)
	if err := sub.deps.CacheRepo.GetJSON(resultKey, &result); err != nil {
		return nil, fmt.Errorf("%w: attempt %s is already completed", apperrors.ErrConflict, attempt.ID)
	}
	return &result, nil
}
