package attemptsession

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/yourusername/testhub-api/internal/domain/entity"
	"github.com/yourusername/testhub-api/internal/domain/repository"
)

// Constants for default values
const (
	DefaultSubmitMaxRetries = 3
	DefaultSubmitLockTTLSec = 30
)

// Config содержит настройки для всех компонентов сессии прохождения
type Config struct {
	// Таймауты и интервалы
	TickInterval          time.Duration // Интервал тика таймера (1 секунда в продакшене)
	SubmitRetryInterval   time.Duration // Интервал между повторными попытками отправки
	SubmitMaxRetries      int           // Максимальное количество попыток отправки на проверку
	TimeWarningThresholds []int         // Пороги предупреждений об оставшемся времени в секундах

	// Время жизни кешей
	SnapshotTTL   time.Duration // TTL снимка состояния сессии в Redis
	ResultTTL     time.Duration // TTL кешированного результата
	SubmitLockTTL time.Duration // TTL межэкземплярной блокировки отправки
}

// DefaultConfig возвращает конфигурацию по умолчанию
func DefaultConfig() *Config {
	return &Config{
		TickInterval:          1 * time.Second,
		SubmitRetryInterval:   500 * time.Millisecond,
		SubmitMaxRetries:      DefaultSubmitMaxRetries,
		TimeWarningThresholds: []int{300, 60, 10}, // 5 минут, 1 минута, 10 секунд
		SnapshotTTL:           4 * time.Hour,
		ResultTTL:             24 * time.Hour,
		SubmitLockTTL:         DefaultSubmitLockTTLSec * time.Second,
	}
}

// GradingRequest - полезная нагрузка, отправляемая сервису проверки.
// Вопросы без ответа в answers отсутствуют: как их оценивать, решает
// сервис проверки.
type GradingRequest struct {
	QuizID           uint                `json:"quiz_id"`
	AttemptID        uuid.UUID           `json:"attempt_id"`
	UserID           uint                `json:"user_id"`
	Answers          []GradingAnswer     `json:"answers"`
	TimeSpentMinutes int                 `json:"time_spent_minutes"`
	TimeExpired      bool                `json:"time_expired"`
}

// GradingAnswer - один ответ в полезной нагрузке проверки
type GradingAnswer struct {
	QuestionID uint    `json:"question_id"`
	OptionID   *uint   `json:"option_id,omitempty"`
	Text       *string `json:"text,omitempty"`
}

// GradingService определяет интерфейс внешнего сервиса проверки ответов.
// Подсчет баллов и правильность ответов полностью на его стороне.
type GradingService interface {
	Grade(ctx context.Context, req *GradingRequest) (*entity.Result, error)
}

// EventSender определяет интерфейс для отправки событий пользователю
// (реализуется websocket.Manager)
type EventSender interface {
	SendEventToUser(userID uint, eventType string, data interface{}) error
}

// ResultNotifier определяет интерфейс для уведомления о результате
// (реализуется email-сервисом)
type ResultNotifier interface {
	SendResultEmail(ctx context.Context, toEmail string, result *entity.Result) error
}

// Dependencies содержит зависимости компонентов сессии
type Dependencies struct {
	AttemptRepo repository.AttemptRepository
	CacheRepo   repository.CacheRepository
	Grader      GradingService
	Events      EventSender
	Notifier    ResultNotifier
	Config      *Config
}

// Триггеры отправки: кто инициировал submit
const (
	SubmitTriggerManual = "manual"
	SubmitTriggerTimer  = "timer"
)

// Типы WebSocket событий сессии
const (
	EventTimeWarning      = "attempt:time_warning"
	EventAutoSubmitted    = "attempt:auto_submitted"
	EventCompleted        = "attempt:completed"
	EventSubmissionFailed = "attempt:submission_failed"
)
