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
// Тесты состояния сессии
// ============================================================================

func newTestSession(t *testing.T, quiz *entity.Quiz) (*Session, *fakeGrader, *fakeEvents) {
	t.Helper()
	grader := &fakeGrader{}
	events := &fakeEvents{}
	deps, _, _ := newTestDeps(grader, events)

	attempt := entity.NewAttempt(quiz.ID, 42)
	session := NewSession(context.Background(), quiz, attempt, newTestConfig(), deps)
	t.Cleanup(session.Close)
	return session, grader, events
}

func TestSession_Initialize_EmptyState(t *testing.T) {
	// Arrange
	quiz := buildTestQuiz(5)

	// Act
	session, _, _ := newTestSession(t, quiz)
	state := session.State()

	// Assert
	assert.Equal(t, entity.AttemptStatusInProgress, state.Status)
	assert.Equal(t, 0, state.AnsweredCount, "Новая попытка не имеет ответов")
	assert.Equal(t, 0, state.CurrentQuestion)
	assert.Equal(t, 5, state.TotalQuestions)
	assert.False(t, state.TimeExpired)
	assert.Nil(t, state.RemainingSeconds, "Тест без лимита не имеет отсчета")
}

func TestSession_SetAnswer_And_Replace(t *testing.T) {
	// Arrange
	quiz := buildTestQuiz(3)
	session, _, _ := newTestSession(t, quiz)

	// Act: отвечаем, затем меняем ответ на тот же вопрос
	require.NoError(t, session.SetAnswer(1, entity.NewOptionAnswer(2)))
	require.NoError(t, session.SetAnswer(1, entity.NewOptionAnswer(3)))

	// Assert: хранится только последний ответ
	assert.Equal(t, 1, session.AnsweredCount())
	state := session.State()
	require.Contains(t, state.Answers, uint(1))
	assert.Equal(t, uint(3), *state.Answers[1].OptionID)
}

func TestSession_SetAnswer_UnknownQuestion(t *testing.T) {
	// Arrange
	quiz := buildTestQuiz(3)
	session, _, _ := newTestSession(t, quiz)

	// Act
	err := session.SetAnswer(99, entity.NewOptionAnswer(1))

	// Assert
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestSession_SetAnswer_WrongShape(t *testing.T) {
	// Arrange
	quiz := buildTestQuiz(2)
	quiz.Questions[1].Type = entity.QuestionTypeOpenEnded
	quiz.Questions[1].Options = nil
	session, _, _ := newTestSession(t, quiz)

	// Act: текст на вопрос с вариантами и вариант на открытый вопрос
	errText := session.SetAnswer(1, entity.NewTextAnswer("42"))
	errOption := session.SetAnswer(2, entity.NewOptionAnswer(1))

	// Assert: локальная валидация отклоняет обе формы
	assert.ErrorIs(t, errText, apperrors.ErrValidation)
	assert.ErrorIs(t, errOption, apperrors.ErrValidation)
	assert.Equal(t, 0, session.AnsweredCount(), "Невалидные ответы не сохраняются")
}

func TestSession_SetAnswer_NonexistentOption(t *testing.T) {
	// Arrange
	quiz := buildTestQuiz(1)
	session, _, _ := newTestSession(t, quiz)

	// Act
	err := session.SetAnswer(1, entity.NewOptionAnswer(77))

	// Assert
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestSession_GoToQuestion_ClampsOutOfRange(t *testing.T) {
	// Arrange
	quiz := buildTestQuiz(5)
	session, _, _ := newTestSession(t, quiz)

	// Act / Assert: выход за границы прижимается
	assert.Equal(t, 4, session.GoToQuestion(100))
	assert.Equal(t, 0, session.GoToQuestion(-3))
	assert.Equal(t, 2, session.GoToQuestion(2))
}

func TestSession_Advance_MovesToNextQuestion(t *testing.T) {
	// Arrange
	quiz := buildTestQuiz(3)
	session, grader, _ := newTestSession(t, quiz)

	// Act
	index, result, err := session.Advance(context.Background())

	// Assert: обычный переход, без отправки на проверку
	require.NoError(t, err)
	assert.Nil(t, result)
	assert.Equal(t, 1, index)
	assert.Equal(t, 0, grader.callCount())
}

func TestSession_Advance_AtLastQuestionSubmits(t *testing.T) {
	// Arrange
	quiz := buildTestQuiz(2)
	grader := &fakeGrader{result: &entity.Result{Percentage: 100, Passed: true}}
	events := &fakeEvents{}
	deps, attemptRepo, _ := newTestDeps(grader, events)
	attemptRepo.On("MarkCompleted", mock.Anything, mock.Anything).Return(nil)

	attempt := entity.NewAttempt(quiz.ID, 42)
	session := NewSession(context.Background(), quiz, attempt, newTestConfig(), deps)
	defer session.Close()

	require.NoError(t, session.SetAnswer(1, entity.NewOptionAnswer(1)))
	session.GoToQuestion(1)

	// Act: advance на последнем вопросе означает "дальше некуда" -
	// попытка уходит на проверку
	_, result, err := session.Advance(context.Background())

	// Assert
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.True(t, result.Passed)
	assert.Equal(t, 1, grader.callCount())
	assert.Equal(t, entity.AttemptStatusCompleted, session.Status())
}

func TestSession_FreeNavigation_SkipAndReturn(t *testing.T) {
	// Arrange
	quiz := buildTestQuiz(4)
	session, _, _ := newTestSession(t, quiz)

	// Act: пропускаем вопрос, отвечаем дальше, возвращаемся
	session.GoToQuestion(2)
	require.NoError(t, session.SetAnswer(3, entity.NewOptionAnswer(1)))
	session.GoToQuestion(0)
	require.NoError(t, session.SetAnswer(1, entity.NewOptionAnswer(2)))

	// Assert
	assert.Equal(t, 2, session.AnsweredCount())
	assert.Equal(t, 0, session.State().CurrentQuestion)
}

func TestSession_RemainingSeconds_DerivedFromStartTime(t *testing.T) {
	// Arrange: лимит 30 минут, прошло 10 минут
	quiz := buildTestQuiz(1)
	quiz.TimeLimitMinutes = intPtr(30)
	session, _, _ := newTestSession(t, quiz)

	now := session.Attempt().StartedAt.Add(10 * time.Minute)

	// Act
	remaining := session.RemainingSeconds(now)

	// Assert: оставшееся время выводится из startTime, а не из тиков
	require.NotNil(t, remaining)
	assert.Equal(t, 20*60, *remaining)
}

func TestSession_RemainingSeconds_NeverNegative(t *testing.T) {
	// Arrange
	quiz := buildTestQuiz(1)
	quiz.TimeLimitMinutes = intPtr(1)
	session, _, _ := newTestSession(t, quiz)

	now := session.Attempt().StartedAt.Add(5 * time.Minute)

	// Act
	remaining := session.RemainingSeconds(now)

	// Assert
	require.NotNil(t, remaining)
	assert.Equal(t, 0, *remaining)
}

func TestSession_AnswersFrozenAfterCompletion(t *testing.T) {
	// Arrange: завершаем попытку, затем пробуем ответить
	quiz := buildTestQuiz(2)
	grader := &fakeGrader{result: &entity.Result{Percentage: 100, Passed: true}}
	events := &fakeEvents{}
	deps, attemptRepo, _ := newTestDeps(grader, events)
	attemptRepo.On("MarkCompleted", mock.Anything, mock.Anything).Return(nil)

	attempt := entity.NewAttempt(quiz.ID, 42)
	session := NewSession(context.Background(), quiz, attempt, newTestConfig(), deps)
	defer session.Close()

	_, err := session.Submit(context.Background(), SubmitTriggerManual)
	require.NoError(t, err)

	// Act
	err = session.SetAnswer(1, entity.NewOptionAnswer(1))

	// Assert
	assert.ErrorIs(t, err, apperrors.ErrConflict)
}
