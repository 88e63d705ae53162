package attemptsession

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/yourusername/testhub-api/internal/domain/entity"
)

// Timer отсчитывает лимит времени попытки. Тик раз в секунду, но
// оставшееся время каждый раз выводится из времени старта и лимита,
// а не накапливается, поэтому дрейф тиков не влияет на момент
// авто-отправки. Остановка гарантирована: таймер гаснет по отмене
// контекста сессии и сам выходит, как только попытка покидает
// in_progress.
type Timer struct {
	// Настройки
	config *Config

	// Зависимости
	deps *Dependencies

	session *Session

	cancel   context.CancelFunc
	stopOnce sync.Once

	// Отправленные предупреждения, чтобы каждый порог сработал один раз
	sentWarnings map[int]bool
}

// NewTimer создает таймер для сессии
func NewTimer(config *Config, deps *Dependencies, session *Session) *Timer {
	return &Timer{
		config:       config,
		deps:         deps,
		session:      session,
		sentWarnings: make(map[int]bool),
	}
}

// Start запускает цикл тиков в фоновой горутине
func (t *Timer) Start(ctx context.Context) {
	timerCtx, timerCancel := context.WithCancel(ctx)
	t.cancel = timerCancel

	go t.run(timerCtx)

	log.Printf("[Timer] Попытка %s: таймер запущен, лимит %v",
		t.session.attempt.ID, t.session.quiz.TimeLimit())
}

// Stop останавливает таймер. Повторные вызовы безопасны.
func (t *Timer) Stop() {
	t.stopOnce.Do(func() {
		if t.cancel != nil {
			t.cancel()
		}
	})
}

// run - основной цикл таймера
func (t *Timer) run(ctx context.Context) {
	ticker := time.NewTicker(t.config.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			// Попытка уже отправляется или завершена - таймеру здесь делать нечего
			if status := t.session.Status(); status != entity.AttemptStatusInProgress {
				log.Printf("[Timer] Попытка %s: статус %s, таймер выходит", t.session.attempt.ID, status)
				return
			}

			remaining := t.session.RemainingSeconds(time.Now())
			if remaining == nil {
				return
			}

			if *remaining <= 0 {
				t.fireAutoSubmit(ctx)
				return
			}

			t.sendWarnings(*remaining)

		case <-ctx.Done():
			log.Printf("[Timer] Попытка %s: таймер остановлен", t.session.attempt.ID)
			return
		}
	}
}

// sendWarnings отправляет предупреждение, если оставшееся время пересекло
// один из настроенных порогов
func (t *Timer) sendWarnings(remainingSeconds int) {
	for _, threshold := range t.config.TimeWarningThresholds {
		if remainingSeconds <= threshold && !t.sentWarnings[threshold] {
			t.sentWarnings[threshold] = true

			warningData := map[string]interface{}{
				"attempt_id":        t.session.attempt.ID,
				"remaining_seconds": remainingSeconds,
				"threshold_seconds": threshold,
			}
			if err := t.deps.Events.SendEventToUser(t.session.attempt.UserID, EventTimeWarning, warningData); err != nil {
				log.Printf("[Timer] Попытка %s: не удалось отправить предупреждение о времени: %v",
					t.session.attempt.ID, err)
			}
		}
	}
}

// fireAutoSubmit выполняет авто-отправку по истечении времени через тот же
// путь, что и ручное завершение. При сбое сервиса проверки делает
// ограниченное число повторов; после исчерпания повторов попытка остается
// в in_progress с флагом истекшего времени - клиент может повторить
// отправку вручную без потери ответов.
func (t *Timer) fireAutoSubmit(ctx context.Context) {
	log.Printf("[Timer] Попытка %s: время истекло, авто-отправка", t.session.attempt.ID)
	t.session.markTimeExpired()

	for attempt := 1; attempt <= t.config.SubmitMaxRetries; attempt++ {
		result, err := t.session.Submit(ctx, SubmitTriggerTimer)
		if err == nil {
			// Попытку могла уже завершить ручная отправка - тогда submit
			// вернул кешированный результат и событие авто-отправки не нужно
			if t.session.CompletedTrigger() != SubmitTriggerTimer {
				return
			}
			autoData := map[string]interface{}{
				"attempt_id": t.session.attempt.ID,
				"percentage": result.Percentage,
				"passed":     result.Passed,
			}
			if sendErr := t.deps.Events.SendEventToUser(t.session.attempt.UserID, EventAutoSubmitted, autoData); sendErr != nil {
				log.Printf("[Timer] Попытка %s: не удалось отправить событие авто-отправки: %v",
					t.session.attempt.ID, sendErr)
			}
			return
		}

		log.Printf("[Timer] Попытка %s: авто-отправка не удалась (попытка %d/%d): %v",
			t.session.attempt.ID, attempt, t.config.SubmitMaxRetries, err)

		if attempt < t.config.SubmitMaxRetries {
			select {
			case <-time.After(t.config.SubmitRetryInterval):
			case <-ctx.Done():
				return
			}
		}
	}

	// Повторы исчерпаны: ответы не потеряны, клиенту явно сообщаем,
	// что время вышло и требуется ручная повторная отправка
	failData := map[string]interface{}{
		"attempt_id":   t.session.attempt.ID,
		"time_expired": true,
		"retryable":    true,
	}
	if err := t.deps.Events.SendEventToUser(t.session.attempt.UserID, EventSubmissionFailed, failData); err != nil {
		log.Printf("[Timer] Попытка %s: не удалось отправить событие сбоя отправки: %v",
			t.session.attempt.ID, err)
	}
}
