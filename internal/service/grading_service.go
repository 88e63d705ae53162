package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/yourusername/testhub-api/internal/domain/entity"
	"github.com/yourusername/testhub-api/internal/service/attemptsession"
)

// HTTPGradingService реализует attemptsession.GradingService поверх
// REST API внешнего сервиса проверки. Правильные ответы и подсчет баллов
// полностью на его стороне, этот сервис только передает ответы
// и принимает готовый результат.
type HTTPGradingService struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewHTTPGradingService создает клиент сервиса проверки
func NewHTTPGradingService(baseURL, apiKey string, timeout time.Duration) (*HTTPGradingService, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("grading service base URL is required")
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPGradingService{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

// Grade отправляет ответы попытки на проверку и декодирует результат.
// Любая сетевая или серверная ошибка возвращается как есть - вызывающая
// сторона решает, повторять ли отправку.
func (s *HTTPGradingService) Grade(ctx context.Context, req *attemptsession.GradingRequest) (*entity.Result, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal grading request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/grade", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build grading request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	resp, err := s.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("grading service request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("grading service returned %d: %s", resp.StatusCode, string(payload))
	}

	var result entity.Result
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode grading response: %w", err)
	}

	return &result, nil
}
