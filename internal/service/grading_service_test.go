package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/testhub-api/internal/domain/entity"
	"github.com/yourusername/testhub-api/internal/service/attemptsession"
)

// ============================================================================
// Тесты клиента сервиса проверки
// ============================================================================

func uintPtr(v uint) *uint { return &v }

func buildGradingRequest() *attemptsession.GradingRequest {
	return &attemptsession.GradingRequest{
		QuizID:    1,
		AttemptID: uuid.New(),
		UserID:    42,
		Answers: []attemptsession.GradingAnswer{
			{QuestionID: 1, OptionID: uintPtr(3)},
			{QuestionID: 2, Text: strPtr("ответ")},
		},
		TimeSpentMinutes: 7,
		TimeExpired:      false,
	}
}

func strPtr(s string) *string { return &s }

func TestHTTPGradingService_Grade_Success(t *testing.T) {
	// Arrange: сервер проверяет форму запроса и возвращает результат
	var gotPath, gotAuth, gotContentType string
	var gotBody attemptsession.GradingRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotContentType = r.Header.Get("Content-Type")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(entity.Result{
			Score:          5,
			MaxScore:       10,
			Percentage:     50,
			Passed:         false,
			CorrectAnswers: 1,
			TotalQuestions: 2,
		})
	}))
	defer server.Close()

	grader, err := NewHTTPGradingService(server.URL, "secret-key", 5*time.Second)
	require.NoError(t, err)

	req := buildGradingRequest()

	// Act
	result, err := grader.Grade(context.Background(), req)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "/grade", gotPath)
	assert.Equal(t, "Bearer secret-key", gotAuth)
	assert.Equal(t, "application/json", gotContentType)
	assert.Equal(t, req.QuizID, gotBody.QuizID)
	assert.Len(t, gotBody.Answers, 2)
	assert.Equal(t, 7, gotBody.TimeSpentMinutes)

	assert.Equal(t, float64(50), result.Percentage)
	assert.Equal(t, 2, result.TotalQuestions)
	assert.False(t, result.Passed)
}

func TestHTTPGradingService_Grade_ServerError(t *testing.T) {
	// Arrange
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "internal grading failure", http.StatusInternalServerError)
	}))
	defer server.Close()

	grader, err := NewHTTPGradingService(server.URL, "", time.Second)
	require.NoError(t, err)

	// Act
	result, err := grader.Grade(context.Background(), buildGradingRequest())

	// Assert: тело ошибки попадает в сообщение
	require.Error(t, err)
	assert.Nil(t, result)
	assert.Contains(t, err.Error(), "500")
	assert.Contains(t, err.Error(), "internal grading failure")
}

func TestHTTPGradingService_Grade_ContextCancelled(t *testing.T) {
	// Arrange: сервер отвечает дольше, чем живет контекст
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	grader, err := NewHTTPGradingService(server.URL, "", 5*time.Second)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	// Act
	_, err = grader.Grade(ctx, buildGradingRequest())

	// Assert
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestHTTPGradingService_RequiresBaseURL(t *testing.T) {
	// Act
	_, err := NewHTTPGradingService("", "key", time.Second)

	// Assert
	assert.Error(t, err)
}

func TestHTTPGradingService_NoAuthHeaderWithoutKey(t *testing.T) {
	// Arrange
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		json.NewEncoder(w).Encode(entity.Result{})
	}))
	defer server.Close()

	grader, err := NewHTTPGradingService(server.URL, "", time.Second)
	require.NoError(t, err)

	// Act
	_, err = grader.Grade(context.Background(), buildGradingRequest())

	// Assert
	require.NoError(t, err)
	assert.Empty(t, gotAuth)
}
