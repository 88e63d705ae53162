package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yourusername/testhub-api/internal/handler/dto"
	"github.com/yourusername/testhub-api/internal/service"
)

// AttemptHandler обрабатывает запросы активных попыток прохождения
type AttemptHandler struct {
	attemptManager *service.AttemptManager
}

// NewAttemptHandler создает новый обработчик попыток
func NewAttemptHandler(attemptManager *service.AttemptManager) *AttemptHandler {
	return &AttemptHandler{attemptManager: attemptManager}
}

// StartAttempt начинает новую попытку прохождения теста
// POST /api/attempts
func (h *AttemptHandler) StartAttempt(c *gin.Context) {
	var req dto.StartAttemptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	state, err := h.attemptManager.StartAttempt(c.Request.Context(), req.QuizID, getUserID(c), getUserEmail(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.NewAttemptStateResponse(state))
}

// GetState возвращает состояние попытки для ресинхронизации клиента
// GET /api/attempts/:attempt_id
func (h *AttemptHandler) GetState(c *gin.Context) {
	attemptID := c.MustGet("attemptID").(uuid.UUID)

	state, err := h.attemptManager.GetState(attemptID, getUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewAttemptStateResponse(state))
}

// SetAnswer записывает или заменяет ответ на вопрос
// PUT /api/attempts/:attempt_id/answers
func (h *AttemptHandler) SetAnswer(c *gin.Context) {
	attemptID := c.MustGet("attemptID").(uuid.UUID)

	var req dto.AnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.attemptManager.SetAnswer(attemptID, getUserID(c), req.QuestionID, req.Answer); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Answer saved"})
}

// Navigate переводит указатель текущего вопроса
// POST /api/attempts/:attempt_id/navigate
func (h *AttemptHandler) Navigate(c *gin.Context) {
	attemptID := c.MustGet("attemptID").(uuid.UUID)

	var req dto.NavigateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	index, err := h.attemptManager.Navigate(attemptID, getUserID(c), *req.Index)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NavigateResponse{CurrentQuestion: index})
}

// Advance переводит указатель на следующий вопрос. Advance на последнем
// вопросе завершает попытку - в ответе результат проверки.
// POST /api/attempts/:attempt_id/advance
func (h *AttemptHandler) Advance(c *gin.Context) {
	attemptID := c.MustGet("attemptID").(uuid.UUID)

	index, result, err := h.attemptManager.Advance(c.Request.Context(), attemptID, getUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	if result != nil {
		c.JSON(http.StatusOK, dto.NewResultResponse(result))
		return
	}
	c.JSON(http.StatusOK, dto.NavigateResponse{CurrentQuestion: index})
}

// ListAttempts возвращает историю попыток текущего пользователя
// GET /api/attempts?limit=20&offset=0
func (h *AttemptHandler) ListAttempts(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	attempts, err := h.attemptManager.ListAttempts(getUserID(c), limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewAttemptListResponse(attempts))
}

// Submit отправляет попытку на проверку
// POST /api/attempts/:attempt_id/submit
func (h *AttemptHandler) Submit(c *gin.Context) {
	attemptID := c.MustGet("attemptID").(uuid.UUID)

	result, err := h.attemptManager.Submit(c.Request.Context(), attemptID, getUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewResultResponse(result))
}

// Abandon прекращает попытку без отправки на проверку
// POST /api/attempts/:attempt_id/abandon
func (h *AttemptHandler) Abandon(c *gin.Context) {
	attemptID := c.MustGet("attemptID").(uuid.UUID)

	if err := h.attemptManager.Abandon(attemptID, getUserID(c)); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Attempt abandoned"})
}

// GetResult возвращает результат завершенной попытки
// GET /api/attempts/:attempt_id/result
func (h *AttemptHandler) GetResult(c *gin.Context) {
	attemptID := c.MustGet("attemptID").(uuid.UUID)

	result, err := h.attemptManager.GetResult(attemptID, getUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewResultResponse(result))
}
