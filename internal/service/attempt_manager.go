package service

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/yourusername/testhub-api/internal/domain/entity"
	"github.com/yourusername/testhub-api/internal/domain/repository"
	apperrors "github.com/yourusername/testhub-api/internal/pkg/errors"
	"github.com/yourusername/testhub-api/internal/service/attemptsession"
)

// AttemptManager управляет жизненным циклом активных сессий прохождения.
// Держит реестр живых сессий по ID попытки, проверяет владельца
// и делегирует операции компонентам сессии.
type AttemptManager struct {
	// Зависимости
	quizRepo    repository.QuizRepository
	attemptRepo repository.AttemptRepository
	cacheRepo   repository.CacheRepository

	config *attemptsession.Config
	deps   *attemptsession.Dependencies

	// Реестр активных сессий
	mu       sync.RWMutex
	sessions map[uuid.UUID]*attemptsession.Session

	// Контекст жизни менеджера: отмена гасит таймеры всех сессий
	ctx    context.Context
	cancel context.CancelFunc
}

// NewAttemptManager создает новый менеджер попыток
func NewAttemptManager(
	quizRepo repository.QuizRepository,
	attemptRepo repository.AttemptRepository,
	cacheRepo repository.CacheRepository,
	grader attemptsession.GradingService,
	events attemptsession.EventSender,
	notifier attemptsession.ResultNotifier,
	config *attemptsession.Config,
) *AttemptManager {
	if config == nil {
		config = attemptsession.DefaultConfig()
	}

	ctx, cancel := context.WithCancel(context.Background())

	m := &AttemptManager{
		quizRepo:    quizRepo,
		attemptRepo: attemptRepo,
		cacheRepo:   cacheRepo,
		config:      config,
		deps: &attemptsession.Dependencies{
			AttemptRepo: attemptRepo,
			CacheRepo:   cacheRepo,
			Grader:      grader,
			Events:      events,
			Notifier:    notifier,
			Config:      config,
		},
		sessions: make(map[uuid.UUID]*attemptsession.Session),
		ctx:      ctx,
		cancel:   cancel,
	}

	// Фоновая уборка: сессии, завершенные авто-отправкой таймера,
	// убираются из реестра без участия клиента
	go m.sweepLoop()

	return m
}

// sweepLoop периодически убирает из реестра неактивные сессии
func (m *AttemptManager) sweepLoop() {
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.mu.Lock()
			for id, session := range m.sessions {
				status := session.Status()
				if status == entity.AttemptStatusCompleted || status == entity.AttemptStatusAbandoned {
					session.Close()
					delete(m.sessions, id)
					log.Printf("[AttemptManager] Попытка %s убрана из реестра (статус %s)", id, status)
				}
			}
			m.mu.Unlock()
		case <-m.ctx.Done():
			return
		}
	}
}

// StartAttempt начинает новую попытку прохождения теста.
// Непроходимый тест (без вопросов или с вопросом с менее чем двумя
// вариантами) отклоняется до создания попытки - ошибка конфигурации
// никогда не превращается в сломанную сессию.
func (m *AttemptManager) StartAttempt(ctx context.Context, quizID, userID uint, userEmail string) (*attemptsession.StateSnapshot, error) {
	quiz, err := m.quizRepo.GetWithQuestions(quizID)
	if err != nil {
		return nil, err
	}

	if !quiz.IsPublished() {
		return nil, fmt.Errorf("%w: quiz %d is not published", apperrors.ErrValidation, quizID)
	}

	if err := validatePlayable(quiz); err != nil {
		return nil, err
	}

	attempt := entity.NewAttempt(quizID, userID)
	attempt.UserEmail = userEmail
	if err := m.attemptRepo.Create(attempt); err != nil {
		return nil, err
	}

	session := attemptsession.NewSession(m.ctx, quiz, attempt, m.config, m.deps)

	m.mu.Lock()
	m.sessions[attempt.ID] = session
	m.mu.Unlock()

	log.Printf("[AttemptManager] Попытка %s: тест #%d, пользователь %d", attempt.ID, quizID, userID)
	return session.State(), nil
}

// validatePlayable проверяет, что тест корректно сконфигурирован
// для прохождения
func validatePlayable(quiz *entity.Quiz) error {
	if len(quiz.Questions) == 0 {
		return fmt.Errorf("%w: quiz %d has no questions", apperrors.ErrValidation, quiz.ID)
	}
	for i := range quiz.Questions {
		if !quiz.Questions[i].IsPlayable() {
			return fmt.Errorf("%w: question %d of quiz %d is misconfigured (multiple choice needs at least 2 options)",
				apperrors.ErrValidation, quiz.Questions[i].ID, quiz.ID)
		}
	}
	return nil
}

// getOwnedSession возвращает живую сессию попытки с проверкой владельца
func (m *AttemptManager) getOwnedSession(attemptID uuid.UUID, userID uint) (*attemptsession.Session, error) {
	m.mu.RLock()
	session, ok := m.sessions[attemptID]
	m.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: no active session for attempt %s", apperrors.ErrNotFound, attemptID)
	}
	if session.Attempt().UserID != userID {
		return nil, fmt.Errorf("%w: attempt %s belongs to another user", apperrors.ErrForbidden, attemptID)
	}
	return session, nil
}

// SetAnswer записывает ответ на вопрос активной попытки
func (m *AttemptManager) SetAnswer(attemptID uuid.UUID, userID uint, questionID uint, value entity.AnswerValue) error {
	session, err := m.getOwnedSession(attemptID, userID)
	if err != nil {
		return err
	}
	return session.SetAnswer(questionID, value)
}

// ClearAnswer удаляет ответ на вопрос активной попытки
func (m *AttemptManager) ClearAnswer(attemptID uuid.UUID, userID uint, questionID uint) error {
	session, err := m.getOwnedSession(attemptID, userID)
	if err != nil {
		return err
	}
	return session.ClearAnswer(questionID)
}

// Navigate переводит указатель текущего вопроса и возвращает итоговый индекс
func (m *AttemptManager) Navigate(attemptID uuid.UUID, userID uint, index int) (int, error) {
	session, err := m.getOwnedSession(attemptID, userID)
	if err != nil {
		return 0, err
	}
	return session.GoToQuestion(index), nil
}

// Advance переводит указатель на следующий вопрос. Advance на последнем
// вопросе завершает попытку: возвращается результат проверки, сессия
// закрывается.
func (m *AttemptManager) Advance(ctx context.Context, attemptID uuid.UUID, userID uint) (int, *entity.Result, error) {
	session, err := m.getOwnedSession(attemptID, userID)
	if err != nil {
		return 0, nil, err
	}

	index, result, err := session.Advance(ctx)
	if err != nil {
		return 0, nil, err
	}
	if result != nil {
		m.retire(attemptID, session)
	}
	return index, result, nil
}

// GetState возвращает снимок состояния сессии для ресинхронизации клиента
func (m *AttemptManager) GetState(attemptID uuid.UUID, userID uint) (*attemptsession.StateSnapshot, error) {
	session, err := m.getOwnedSession(attemptID, userID)
	if err != nil {
		return nil, err
	}
	return session.State(), nil
}

// Submit отправляет попытку на проверку. После успешной проверки сессия
// закрывается, результат остается в кеше.
func (m *AttemptManager) Submit(ctx context.Context, attemptID uuid.UUID, userID uint) (*entity.Result, error) {
	session, err := m.getOwnedSession(attemptID, userID)
	if err != nil {
		return nil, err
	}

	result, err := session.Submit(ctx, attemptsession.SubmitTriggerManual)
	if err != nil {
		return nil, err
	}

	m.retire(attemptID, session)
	return result, nil
}

// Abandon прекращает попытку без отправки на проверку
func (m *AttemptManager) Abandon(attemptID uuid.UUID, userID uint) error {
	session, err := m.getOwnedSession(attemptID, userID)
	if err != nil {
		return err
	}

	if session.Status() != entity.AttemptStatusInProgress {
		return fmt.Errorf("%w: attempt %s is %s and cannot be abandoned",
			apperrors.ErrConflict, attemptID, session.Status())
	}

	if err := m.attemptRepo.MarkAbandoned(attemptID); err != nil {
		return err
	}

	m.retire(attemptID, session)
	log.Printf("[AttemptManager] Попытка %s брошена пользователем %d", attemptID, userID)
	return nil
}

// GetResult возвращает результат попытки: из кеша (живая сессия уже
// закрыта, результат переживает ее в Redis)
func (m *AttemptManager) GetResult(attemptID uuid.UUID, userID uint) (*entity.Result, error) {
	attempt, err := m.attemptRepo.GetByID(attemptID)
	if err != nil {
		return nil, err
	}
	if attempt.UserID != userID {
		return nil, fmt.Errorf("%w: attempt %s belongs to another user", apperrors.ErrForbidden, attemptID)
	}
	if attempt.Status != entity.AttemptStatusCompleted {
		return nil, fmt.Errorf("%w: attempt %s is not completed", apperrors.ErrNotFound, attemptID)
	}

	var result entity.Result
	resultKey := fmt.Sprintf("attempt:result:%s", attemptID)
	if err := m.cacheRepo.GetJSON(resultKey, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ListAttempts возвращает историю попыток пользователя, новые первыми
func (m *AttemptManager) ListAttempts(userID uint, limit, offset int) ([]entity.Attempt, error) {
	if limit < 1 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return m.attemptRepo.ListByUser(userID, limit, offset)
}

// ActiveSessionCount возвращает количество живых сессий
func (m *AttemptManager) ActiveSessionCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// retire закрывает сессию и убирает ее из реестра
func (m *AttemptManager) retire(attemptID uuid.UUID, session *attemptsession.Session) {
	session.Close()
	m.mu.Lock()
	delete(m.sessions, attemptID)
	m.mu.Unlock()
}

// Shutdown закрывает все живые сессии при остановке сервиса
func (m *AttemptManager) Shutdown() {
	m.cancel()

	m.mu.Lock()
	defer m.mu.Unlock()
	for id, session := range m.sessions {
		session.Close()
		delete(m.sessions, id)
	}
	log.Printf("[AttemptManager] Все сессии закрыты")
}
