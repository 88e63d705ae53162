package attemptsession

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/testhub-api/internal/domain/entity"
	apperrors "github.com/yourusername/testhub-api/internal/pkg/errors"
)

// ============================================================================
// Тесты отправки на проверку
// ============================================================================

func TestSubmitter_Payload_OmitsUnansweredAndFloorsMinutes(t *testing.T) {
	// Arrange: 5 вопросов, 3 ответа, прошло 61 секунда
	quiz := buildTestQuiz(5)
	grader := &fakeGrader{result: &entity.Result{Percentage: 66.7, Passed: true}}
	events := &fakeEvents{}
	deps, attemptRepo, _ := newTestDeps(grader, events)
	attemptRepo.On("MarkCompleted", mock.Anything, 1).Return(nil)

	attempt := entity.NewAttempt(quiz.ID, 42)
	session := NewSession(context.Background(), quiz, attempt, newTestConfig(), deps)
	defer session.Close()

	require.NoError(t, session.SetAnswer(1, entity.NewOptionAnswer(1)))
	require.NoError(t, session.SetAnswer(2, entity.NewOptionAnswer(2)))
	require.NoError(t, session.SetAnswer(4, entity.NewOptionAnswer(3)))

	attempt.StartedAt = time.Now().Add(-61 * time.Second)

	// Act
	result, err := session.Submit(context.Background(), SubmitTriggerManual)

	// Assert
	require.NoError(t, err)
	require.NotNil(t, result)

	req := grader.lastRequest()
	require.NotNil(t, req)
	assert.Len(t, req.Answers, 3, "Вопросы без ответа в нагрузку не попадают")
	assert.Equal(t, 1, req.TimeSpentMinutes, "61 секунда округляется вниз до 1 минуты")
	assert.False(t, req.TimeExpired)
	assert.Equal(t, quiz.ID, req.QuizID)
	assert.Equal(t, attempt.ID, req.AttemptID)
	attemptRepo.AssertExpectations(t)
}

func TestSubmitter_Payload_KeepsSessionQuestionOrder(t *testing.T) {
	// Arrange
	quiz := buildTestQuiz(4)
	grader := &fakeGrader{}
	events := &fakeEvents{}
	deps, attemptRepo, _ := newTestDeps(grader, events)
	attemptRepo.On("MarkCompleted", mock.Anything, mock.Anything).Return(nil)

	attempt := entity.NewAttempt(quiz.ID, 42)
	session := NewSession(context.Background(), quiz, attempt, newTestConfig(), deps)
	defer session.Close()

	// Отвечаем в обратном порядке
	require.NoError(t, session.SetAnswer(4, entity.NewOptionAnswer(1)))
	require.NoError(t, session.SetAnswer(2, entity.NewOptionAnswer(1)))
	require.NoError(t, session.SetAnswer(1, entity.NewOptionAnswer(1)))

	// Act
	_, err := session.Submit(context.Background(), SubmitTriggerManual)

	// Assert: ответы идут в порядке вопросов сессии
	require.NoError(t, err)
	req := grader.lastRequest()
	ids := make([]uint, 0, len(req.Answers))
	for _, a := range req.Answers {
		ids = append(ids, a.QuestionID)
	}
	assert.Equal(t, []uint{1, 2, 4}, ids)
}

func TestSubmitter_GradingFailure_RevertsWithoutDataLoss(t *testing.T) {
	// Arrange: первый вызов проверки падает
	quiz := buildTestQuiz(3)
	grader := &fakeGrader{failures: 1, result: &entity.Result{Percentage: 100, Passed: true}}
	events := &fakeEvents{}
	deps, attemptRepo, _ := newTestDeps(grader, events)
	attemptRepo.On("MarkCompleted", mock.Anything, mock.Anything).Return(nil)

	attempt := entity.NewAttempt(quiz.ID, 42)
	session := NewSession(context.Background(), quiz, attempt, newTestConfig(), deps)
	defer session.Close()

	require.NoError(t, session.SetAnswer(1, entity.NewOptionAnswer(1)))
	require.NoError(t, session.SetAnswer(2, entity.NewOptionAnswer(2)))

	// Act: первый submit падает, попытка возвращается в in_progress
	_, err := session.Submit(context.Background(), SubmitTriggerManual)

	// Assert
	require.Error(t, err)
	assert.Equal(t, entity.AttemptStatusInProgress, session.Status())
	assert.Equal(t, 2, session.AnsweredCount(), "Ответы не потеряны после сбоя")

	// Act: повторный submit проходит
	result, err := session.Submit(context.Background(), SubmitTriggerManual)

	// Assert: ровно два обращения к сервису проверки, попытка завершена
	require.NoError(t, err)
	assert.True(t, result.Passed)
	assert.Equal(t, 2, grader.callCount())
	assert.Equal(t, entity.AttemptStatusCompleted, session.Status())
}

func TestSubmitter_RepeatedSubmit_Idempotent(t *testing.T) {
	// Arrange
	quiz := buildTestQuiz(2)
	grader := &fakeGrader{result: &entity.Result{Percentage: 50, Passed: false}}
	events := &fakeEvents{}
	deps, attemptRepo, _ := newTestDeps(grader, events)
	attemptRepo.On("MarkCompleted", mock.Anything, mock.Anything).Return(nil)

	attempt := entity.NewAttempt(quiz.ID, 42)
	session := NewSession(context.Background(), quiz, attempt, newTestConfig(), deps)
	defer session.Close()

	// Act: двойной submit
	first, err := session.Submit(context.Background(), SubmitTriggerManual)
	require.NoError(t, err)

	second, err := session.Submit(context.Background(), SubmitTriggerManual)

	// Assert: второй submit возвращает кешированный результат,
	// сервис проверки вызван ровно один раз
	require.NoError(t, err)
	assert.Equal(t, first.Percentage, second.Percentage)
	assert.Equal(t, 1, grader.callCount())
}

func TestSubmitter_AbandonedAttempt_Rejected(t *testing.T) {
	// Arrange
	quiz := buildTestQuiz(2)
	grader := &fakeGrader{}
	events := &fakeEvents{}
	deps, _, _ := newTestDeps(grader, events)

	attempt := entity.NewAttempt(quiz.ID, 42)
	session := NewSession(context.Background(), quiz, attempt, newTestConfig(), deps)
	defer session.Close()

	require.NoError(t, attempt.Transition(entity.AttemptStatusAbandoned))

	// Act
	_, err := session.Submit(context.Background(), SubmitTriggerManual)

	// Assert
	assert.ErrorIs(t, err, apperrors.ErrConflict)
	assert.Equal(t, 0, grader.callCount())
}

func TestSubmitter_CompletedEventSent(t *testing.T) {
	// Arrange
	quiz := buildTestQuiz(1)
	grader := &fakeGrader{result: &entity.Result{Percentage: 100, Passed: true}}
	events := &fakeEvents{}
	deps, attemptRepo, cache := newTestDeps(grader, events)
	attemptRepo.On("MarkCompleted", mock.Anything, mock.Anything).Return(nil)

	attempt := entity.NewAttempt(quiz.ID, 42)
	session := NewSession(context.Background(), quiz, attempt, newTestConfig(), deps)
	defer session.Close()

	// Act
	_, err := session.Submit(context.Background(), SubmitTriggerManual)

	// Assert: событие завершения отправлено, результат в кеше
	require.NoError(t, err)
	assert.True(t, events.has(EventCompleted))

	var cached entity.Result
	require.NoError(t, cache.GetJSON("attempt:result:"+attempt.ID.String(), &cached))
	assert.Equal(t, float64(100), cached.Percentage)
}
