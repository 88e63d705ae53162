package attemptsession

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/testhub-api/internal/domain/entity"
)

// ============================================================================
// Тесты таймера
// ============================================================================

// waitFor опрашивает условие до таймаута
func waitFor(t *testing.T, timeout time.Duration, cond func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}

// newExpiredSession создает сессию, лимит которой уже истек
func newExpiredSession(t *testing.T, grader *fakeGrader, events *fakeEvents) (*Session, *MockAttemptRepository) {
	t.Helper()
	quiz := buildTestQuiz(3)
	quiz.TimeLimitMinutes = intPtr(1)

	deps, attemptRepo, _ := newTestDeps(grader, events)
	attemptRepo.On("MarkCompleted", mock.Anything, mock.Anything).Return(nil).Maybe()

	attempt := entity.NewAttempt(quiz.ID, 42)
	attempt.StartedAt = time.Now().Add(-2 * time.Minute)

	session := NewSession(context.Background(), quiz, attempt, newTestConfig(), deps)
	t.Cleanup(session.Close)
	return session, attemptRepo
}

func TestTimer_AutoSubmitOnExpiry(t *testing.T) {
	// Arrange
	grader := &fakeGrader{result: &entity.Result{Percentage: 33.3, Passed: false}}
	events := &fakeEvents{}

	// Act: время уже истекло, первый тик запускает авто-отправку
	session, _ := newExpiredSession(t, grader, events)

	// Assert
	require.True(t, waitFor(t, 2*time.Second, func() bool {
		return session.Status() == entity.AttemptStatusCompleted
	}), "Попытка должна завершиться авто-отправкой")

	req := grader.lastRequest()
	require.NotNil(t, req)
	assert.True(t, req.TimeExpired, "Нагрузка авто-отправки помечена флагом истекшего времени")
	assert.True(t, events.has(EventAutoSubmitted))
}

func TestTimer_AutoSubmitRetriesThenSignalsFailure(t *testing.T) {
	// Arrange: сервис проверки падает на всех повторах таймера
	grader := &fakeGrader{failures: 10}
	events := &fakeEvents{}

	// Act
	session, _ := newExpiredSession(t, grader, events)

	// Assert: повторы исчерпаны, попытка осталась в in_progress
	// с флагом истекшего времени - ручной submit все еще возможен
	require.True(t, waitFor(t, 2*time.Second, func() bool {
		return events.has(EventSubmissionFailed)
	}), "После исчерпания повторов клиент получает событие сбоя")

	assert.Equal(t, 3, grader.callCount(), "Ровно SubmitMaxRetries обращений")
	assert.Equal(t, entity.AttemptStatusInProgress, session.Status())
	assert.True(t, session.TimeExpired())
	assert.Equal(t, 0, session.AnsweredCount(), "Ответы попытки не тронуты")
}

func TestTimer_ManualRetryAfterAutoSubmitFailure(t *testing.T) {
	// Arrange: авто-отправка исчерпала повторы, затем сервис ожил
	grader := &fakeGrader{failures: 3, result: &entity.Result{Percentage: 0, Passed: false}}
	events := &fakeEvents{}
	session, _ := newExpiredSession(t, grader, events)

	require.True(t, waitFor(t, 2*time.Second, func() bool {
		return events.has(EventSubmissionFailed)
	}))

	// Act: ручная повторная отправка
	result, err := session.Submit(context.Background(), SubmitTriggerManual)

	// Assert: нагрузка сохраняет флаг истекшего времени
	require.NoError(t, err)
	assert.True(t, result.TimeExpired)
	assert.Equal(t, entity.AttemptStatusCompleted, session.Status())
}

func TestTimer_StoppedTimerDoesNotFire(t *testing.T) {
	// Arrange: лимит истек, но сессию закрывают до первого тика
	grader := &fakeGrader{}
	events := &fakeEvents{}
	quiz := buildTestQuiz(2)
	quiz.TimeLimitMinutes = intPtr(1)

	deps, _, _ := newTestDeps(grader, events)
	attempt := entity.NewAttempt(quiz.ID, 42)
	attempt.StartedAt = time.Now().Add(-2 * time.Minute)

	config := newTestConfig()
	config.TickInterval = 50 * time.Millisecond

	session := NewSession(context.Background(), quiz, attempt, config, deps)

	// Act: немедленное закрытие
	session.Close()
	time.Sleep(200 * time.Millisecond)

	// Assert: ни одного обращения к сервису проверки после остановки
	assert.Equal(t, 0, grader.callCount(), "Остановленный таймер не должен срабатывать")
	assert.Equal(t, entity.AttemptStatusInProgress, session.Status())
}

func TestTimer_ExitsAfterManualSubmit(t *testing.T) {
	// Arrange: попытка завершается вручную до истечения времени
	quiz := buildTestQuiz(2)
	quiz.TimeLimitMinutes = intPtr(60)
	grader := &fakeGrader{result: &entity.Result{Percentage: 100, Passed: true}}
	events := &fakeEvents{}
	deps, attemptRepo, _ := newTestDeps(grader, events)
	attemptRepo.On("MarkCompleted", mock.Anything, mock.Anything).Return(nil)

	attempt := entity.NewAttempt(quiz.ID, 42)
	session := NewSession(context.Background(), quiz, attempt, newTestConfig(), deps)
	defer session.Close()

	// Act
	_, err := session.Submit(context.Background(), SubmitTriggerManual)
	require.NoError(t, err)

	time.Sleep(100 * time.Millisecond)

	// Assert: таймер не инициировал вторую отправку
	assert.Equal(t, 1, grader.callCount())
	assert.False(t, events.has(EventAutoSubmitted))
}

func TestTimer_NoAutoEventWhenManualSubmitAlreadyCompleted(t *testing.T) {
	// Arrange: ручная отправка завершает попытку до срабатывания таймера
	quiz := buildTestQuiz(2)
	quiz.TimeLimitMinutes = intPtr(60)
	grader := &fakeGrader{result: &entity.Result{Percentage: 100, Passed: true}}
	events := &fakeEvents{}
	deps, attemptRepo, _ := newTestDeps(grader, events)
	attemptRepo.On("MarkCompleted", mock.Anything, mock.Anything).Return(nil)

	attempt := entity.NewAttempt(quiz.ID, 42)
	session := NewSession(context.Background(), quiz, attempt, newTestConfig(), deps)
	defer session.Close()

	_, err := session.Submit(context.Background(), SubmitTriggerManual)
	require.NoError(t, err)

	// Act: запоздавшая авто-отправка попадает на уже завершенную попытку
	// и получает кешированный результат
	session.timer.fireAutoSubmit(context.Background())

	// Assert: чужое завершение не порождает событие авто-отправки,
	// сервис проверки повторно не вызывается
	assert.False(t, events.has(EventAutoSubmitted))
	assert.Equal(t, 1, grader.callCount())
}

func TestTimer_SendsTimeWarnings(t *testing.T) {
	// Arrange: осталось ~30 секунд при пороге 60
	quiz := buildTestQuiz(1)
	quiz.TimeLimitMinutes = intPtr(1)
	grader := &fakeGrader{}
	events := &fakeEvents{}
	deps, _, _ := newTestDeps(grader, events)

	attempt := entity.NewAttempt(quiz.ID, 42)
	attempt.StartedAt = time.Now().Add(-30 * time.Second)

	session := NewSession(context.Background(), quiz, attempt, newTestConfig(), deps)
	defer session.Close()

	// Act / Assert
	require.True(t, waitFor(t, 2*time.Second, func() bool {
		return events.has(EventTimeWarning)
	}), "Предупреждение о времени должно быть отправлено")
}
