package attemptsession

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/yourusername/testhub-api/internal/domain/entity"
	apperrors "github.com/yourusername/testhub-api/internal/pkg/errors"
)

// ============================================================================
// Моки и фейки для тестов компонентов сессии
// ============================================================================

// MockAttemptRepository реализует repository.AttemptRepository
type MockAttemptRepository struct {
	mock.Mock
}

func (m *MockAttemptRepository) Create(attempt *entity.Attempt) error {
	args := m.Called(attempt)
	return args.Error(0)
}

func (m *MockAttemptRepository) GetByID(id uuid.UUID) (*entity.Attempt, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Attempt), args.Error(1)
}

func (m *MockAttemptRepository) MarkCompleted(id uuid.UUID, timeSpentMinutes int) error {
	args := m.Called(id, timeSpentMinutes)
	return args.Error(0)
}

func (m *MockAttemptRepository) MarkAbandoned(id uuid.UUID) error {
	args := m.Called(id)
	return args.Error(0)
}

func (m *MockAttemptRepository) ListByUser(userID uint, limit, offset int) ([]entity.Attempt, error) {
	args := m.Called(userID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Attempt), args.Error(1)
}

// fakeCache - потокобезопасный in-memory кеш для тестов
type fakeCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newFakeCache() *fakeCache {
	return &fakeCache{data: make(map[string][]byte)}
}

func (c *fakeCache) Set(key string, value interface{}, expiration time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = []byte(fmt.Sprintf("%v", value))
	return nil
}

func (c *fakeCache) Get(key string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	val, ok := c.data[key]
	if !ok {
		return "", apperrors.ErrNotFound
	}
	return string(val), nil
}

func (c *fakeCache) Delete(key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	return nil
}

func (c *fakeCache) SetJSON(key string, value interface{}, expiration time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = data
	return nil
}

func (c *fakeCache) GetJSON(key string, dest interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	data, ok := c.data[key]
	if !ok {
		return apperrors.ErrNotFound
	}
	return json.Unmarshal(data, dest)
}

func (c *fakeCache) Exists(key string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.data[key]
	return ok, nil
}

func (c *fakeCache) SetNX(key string, value interface{}, expiration time.Duration) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.data[key]; ok {
		return false, nil
	}
	c.data[key] = []byte(fmt.Sprintf("%v", value))
	return true, nil
}

// fakeEvents записывает отправленные события
type fakeEvents struct {
	mu     sync.Mutex
	events []sentEvent
}

type sentEvent struct {
	userID    uint
	eventType string
}

func (e *fakeEvents) SendEventToUser(userID uint, eventType string, data interface{}) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, sentEvent{userID: userID, eventType: eventType})
	return nil
}

func (e *fakeEvents) eventTypes() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	types := make([]string, 0, len(e.events))
	for _, ev := range e.events {
		types = append(types, ev.eventType)
	}
	return types
}

func (e *fakeEvents) has(eventType string) bool {
	for _, t := range e.eventTypes() {
		if t == eventType {
			return true
		}
	}
	return false
}

// fakeGrader - настраиваемый сервис проверки: первые failures вызовов
// возвращают ошибку, затем отдается result
type fakeGrader struct {
	mu       sync.Mutex
	failures int
	result   *entity.Result
	requests []*GradingRequest
}

func (g *fakeGrader) Grade(ctx context.Context, req *GradingRequest) (*entity.Result, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.requests = append(g.requests, req)
	if g.failures > 0 {
		g.failures--
		return nil, fmt.Errorf("grading backend unavailable")
	}
	if g.result == nil {
		return &entity.Result{}, nil
	}
	resultCopy := *g.result
	return &resultCopy, nil
}

func (g *fakeGrader) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.requests)
}

func (g *fakeGrader) lastRequest() *GradingRequest {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.requests) == 0 {
		return nil
	}
	return g.requests[len(g.requests)-1]
}

// ============================================================================
// Хелперы построения тестовых данных
// ============================================================================

func intPtr(v int) *int { return &v }

// buildTestQuiz создает тест с questionCount вопросами по 4 варианта
func buildTestQuiz(questionCount int) *entity.Quiz {
	quiz := &entity.Quiz{
		ID:                1,
		Title:             "Основы Go",
		MinPassPercentage: 60,
		Status:            entity.QuizStatusPublished,
	}
	for i := 1; i <= questionCount; i++ {
		quiz.Questions = append(quiz.Questions, entity.Question{
			ID:     uint(i),
			QuizID: 1,
			Text:   fmt.Sprintf("Вопрос %d", i),
			Type:   entity.QuestionTypeMultipleChoice,
			Points: 1,
			Options: entity.OptionList{
				{ID: 1, Text: "A"},
				{ID: 2, Text: "B"},
				{ID: 3, Text: "C"},
				{ID: 4, Text: "D"},
			},
		})
	}
	return quiz
}

// newTestDeps собирает зависимости сессии с фейками
func newTestDeps(grader *fakeGrader, events *fakeEvents) (*Dependencies, *MockAttemptRepository, *fakeCache) {
	attemptRepo := new(MockAttemptRepository)
	cache := newFakeCache()
	deps := &Dependencies{
		AttemptRepo: attemptRepo,
		CacheRepo:   cache,
		Grader:      grader,
		Events:      events,
	}
	return deps, attemptRepo, cache
}

// newTestConfig возвращает конфигурацию с миллисекундными интервалами
func newTestConfig() *Config {
	return &Config{
		TickInterval:          10 * time.Millisecond,
		SubmitRetryInterval:   10 * time.Millisecond,
		SubmitMaxRetries:      3,
		TimeWarningThresholds: []int{60, 10},
		SnapshotTTL:           time.Minute,
		ResultTTL:             time.Minute,
		SubmitLockTTL:         time.Minute,
	}
}
