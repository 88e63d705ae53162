package attemptsession

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/yourusername/testhub-api/internal/domain/entity"
	apperrors "github.com/yourusername/testhub-api/internal/pkg/errors"
)

// Session хранит состояние одной активной попытки прохождения теста.
// Все мутации выполняются атомарно под мьютексом: конкурентные запросы
// клиента и тик таймера никогда не видят частично примененное изменение.
type Session struct {
	// Настройки
	config *Config

	// Зависимости
	deps *Dependencies

	// Снимок теста, которым сессия владеет единолично.
	// Перемешан рандомизатором ровно один раз при создании.
	quiz *entity.Quiz

	attempt *entity.Attempt

	// Флаг истечения времени: выставляется таймером перед авто-отправкой
	timeExpired bool

	// Триггер, завершивший попытку (manual/timer); нужен таймеру,
	// чтобы не слать событие авто-отправки за чужое завершение
	completedTrigger string

	mu sync.RWMutex

	// Контекст жизни сессии: отмена гасит таймер
	ctx    context.Context
	cancel context.CancelFunc

	timer     *Timer
	submitter *Submitter
}

// StateSnapshot - снимок состояния сессии для ресинхронизации клиента
type StateSnapshot struct {
	AttemptID        uuid.UUID                   `json:"attempt_id"`
	QuizID           uint                        `json:"quiz_id"`
	Status           string                      `json:"status"`
	Questions        []entity.Question           `json:"questions"`
	Answers          map[uint]entity.AnswerValue `json:"answers"`
	CurrentQuestion  int                         `json:"current_question"`
	AnsweredCount    int                         `json:"answered_count"`
	TotalQuestions   int                         `json:"total_questions"`
	StartedAt        time.Time                   `json:"started_at"`
	RemainingSeconds *int                        `json:"remaining_seconds,omitempty"`
	TimeExpired      bool                        `json:"time_expired"`
}

// NewSession создает сессию прохождения: клонирует тест, один раз
// перемешивает вопросы и варианты (если включено) и запускает таймер
// для теста с лимитом времени.
func NewSession(ctx context.Context, quiz *entity.Quiz, attempt *entity.Attempt, config *Config, deps *Dependencies) *Session {
	if config == nil {
		config = DefaultConfig()
	}

	snapshot := quiz.CloneForSession()
	NewRandomizer(time.Now().UnixNano()).Shuffle(snapshot)

	sessionCtx, sessionCancel := context.WithCancel(ctx)

	s := &Session{
		config:  config,
		deps:    deps,
		quiz:    snapshot,
		attempt: attempt,
		ctx:     sessionCtx,
		cancel:  sessionCancel,
	}
	s.submitter = NewSubmitter(config, deps)

	if quiz.IsTimed() {
		s.timer = NewTimer(config, deps, s)
		s.timer.Start(sessionCtx)
	}

	s.saveSnapshot()

	log.Printf("[Session] Попытка %s начата: тест #%d, пользователь %d, вопросов %d",
		attempt.ID, quiz.ID, attempt.UserID, len(snapshot.Questions))

	return s
}

// Attempt возвращает попытку сессии (для проверки владельца)
func (s *Session) Attempt() *entity.Attempt {
	return s.attempt
}

// Quiz возвращает снимок теста сессии
func (s *Session) Quiz() *entity.Quiz {
	return s.quiz
}

// SetAnswer записывает или заменяет ответ на вопрос.
// Форма ответа проверяется локально по типу вопроса, без обращения
// к сервису проверки.
func (s *Session) SetAnswer(questionID uint, value entity.AnswerValue) error {
	if err := s.setAnswerLocked(questionID, value); err != nil {
		return err
	}
	s.saveSnapshot()
	return nil
}

func (s *Session) setAnswerLocked(questionID uint, value entity.AnswerValue) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.attempt.Status != entity.AttemptStatusInProgress {
		return fmt.Errorf("%w: attempt is %s, answers are frozen", apperrors.ErrConflict, s.attempt.Status)
	}

	question := s.quiz.FindQuestion(questionID)
	if question == nil {
		return fmt.Errorf("%w: question %d is not part of quiz %d", apperrors.ErrValidation, questionID, s.quiz.ID)
	}

	if err := value.ValidateForQuestion(question); err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrValidation, err)
	}

	s.attempt.Answers[questionID] = value
	return nil
}

// ClearAnswer удаляет ранее записанный ответ на вопрос
func (s *Session) ClearAnswer(questionID uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.attempt.Status != entity.AttemptStatusInProgress {
		return fmt.Errorf("%w: attempt is %s, answers are frozen", apperrors.ErrConflict, s.attempt.Status)
	}

	delete(s.attempt.Answers, questionID)
	return nil
}

// GoToQuestion переводит указатель текущего вопроса на заданный индекс.
// Выход за границы прижимается к ближайшей границе, навигация свободная:
// можно пропускать вопросы и возвращаться к ним.
func (s *Session) GoToQuestion(index int) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if index < 0 {
		index = 0
	}
	if max := len(s.quiz.Questions) - 1; index > max {
		index = max
	}
	s.attempt.CurrentQuestion = index
	return index
}

// Advance переводит указатель на следующий вопрос. Вызов на последнем
// вопросе означает "дальше некуда": попытка отправляется на проверку
// через общий путь submit, возвращается результат.
func (s *Session) Advance(ctx context.Context) (int, *entity.Result, error) {
	s.mu.Lock()
	current := s.attempt.CurrentQuestion
	last := len(s.quiz.Questions) - 1
	s.mu.Unlock()

	if current >= last {
		result, err := s.Submit(ctx, SubmitTriggerManual)
		if err != nil {
			return current, nil, err
		}
		return current, result, nil
	}
	return s.GoToQuestion(current + 1), nil, nil
}

// AnsweredCount возвращает количество отвеченных вопросов
func (s *Session) AnsweredCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.attempt.Answers)
}

// RemainingSeconds возвращает оставшееся время в секундах.
// Время всегда выводится из startTime и лимита, а не накапливается тиками,
// поэтому пропущенный или запоздавший тик не искажает отсчет.
// Для теста без лимита возвращает nil.
func (s *Session) RemainingSeconds(now time.Time) *int {
	if !s.quiz.IsTimed() {
		return nil
	}
	remaining := int(s.quiz.TimeLimit().Seconds()) - int(s.attempt.Elapsed(now).Seconds())
	if remaining < 0 {
		remaining = 0
	}
	return &remaining
}

// State возвращает снимок состояния сессии для ресинхронизации клиента
// после перезагрузки страницы
func (s *Session) State() *StateSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	answers := make(map[uint]entity.AnswerValue, len(s.attempt.Answers))
	for id, v := range s.attempt.Answers {
		answers[id] = v
	}

	return &StateSnapshot{
		AttemptID:        s.attempt.ID,
		QuizID:           s.quiz.ID,
		Status:           s.attempt.Status,
		Questions:        s.quiz.Questions,
		Answers:          answers,
		CurrentQuestion:  s.attempt.CurrentQuestion,
		AnsweredCount:    len(s.attempt.Answers),
		TotalQuestions:   len(s.quiz.Questions),
		StartedAt:        s.attempt.StartedAt,
		RemainingSeconds: s.RemainingSeconds(time.Now()),
		TimeExpired:      s.timeExpired,
	}
}

// Submit отправляет попытку на проверку. Ручной submit и авто-отправка
// таймера проходят через этот единственный путь.
func (s *Session) Submit(ctx context.Context, trigger string) (*entity.Result, error) {
	return s.submitter.Submit(ctx, s, trigger)
}

// markTimeExpired выставляет флаг истечения времени под мьютексом
func (s *Session) markTimeExpired() {
	s.mu.Lock()
	s.timeExpired = true
	s.mu.Unlock()
}

// TimeExpired сообщает, истек ли лимит времени попытки
func (s *Session) TimeExpired() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.timeExpired
}

// CompletedTrigger возвращает триггер, завершивший попытку
// (пустая строка, пока попытка не завершена)
func (s *Session) CompletedTrigger() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.completedTrigger
}

// Status возвращает текущий статус попытки под мьютексом
func (s *Session) Status() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.attempt.Status
}

// Close освобождает ресурсы сессии: отменяет контекст и гарантированно
// останавливает таймер, чтобы ни один тик не сработал по уже
// уничтоженной сессии.
func (s *Session) Close() {
	s.cancel()
	if s.timer != nil {
		s.timer.Stop()
	}
	log.Printf("[Session] Попытка %s: сессия закрыта", s.attempt.ID)
}

// saveSnapshot кеширует снимок состояния в Redis для отображения
// (снимок не используется для восстановления сессии после рестарта)
func (s *Session) saveSnapshot() {
	key := fmt.Sprintf("attempt:state:%s", s.attempt.ID)
	if err := s.deps.CacheRepo.SetJSON(key, s.State(), s.config.SnapshotTTL); err != nil {
		log.Printf("[Session] Попытка %s: не удалось сохранить снимок состояния: %v", s.attempt.ID, err)
	}
}
