package handler

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/testhub-api/internal/domain/repository"
	"github.com/yourusername/testhub-api/internal/handler/dto"
	"github.com/yourusername/testhub-api/internal/service"
)

// QuizHandler обрабатывает запросы, связанные с тестами
type QuizHandler struct {
	quizService *service.QuizService
}

// NewQuizHandler создает новый обработчик тестов
func NewQuizHandler(quizService *service.QuizService) *QuizHandler {
	return &QuizHandler{quizService: quizService}
}

// ListQuizzes возвращает страницу тестов
// GET /api/quizzes?category=...&subject=...&page=1&per_page=20
func (h *QuizHandler) ListQuizzes(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "20"))

	filter := repository.QuizFilter{
		Category: c.Query("category"),
		Subject:  c.Query("subject"),
		Status:   c.Query("status"),
		Page:     page,
		PageSize: perPage,
	}

	quizzes, total, err := h.quizService.ListQuizzes(filter)
	if err != nil {
		respondError(c, err)
		return
	}

	responses := make([]*dto.QuizResponse, 0, len(quizzes))
	for i := range quizzes {
		responses = append(responses, dto.NewQuizResponse(&quizzes[i], false))
	}

	c.JSON(http.StatusOK, dto.PaginatedQuizResponse{
		Quizzes: responses,
		Total:   total,
		Page:    page,
		PerPage: perPage,
	})
}

// GetQuiz возвращает тест без вопросов
// GET /api/quizzes/:id
func (h *QuizHandler) GetQuiz(c *gin.Context) {
	quizID := c.MustGet("quizID").(uint)

	quiz, err := h.quizService.GetQuiz(quizID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewQuizResponse(quiz, false))
}

// GetQuizWithQuestions возвращает тест вместе с вопросами
// GET /api/quizzes/:id/questions
func (h *QuizHandler) GetQuizWithQuestions(c *gin.Context) {
	quizID := c.MustGet("quizID").(uint)

	quiz, err := h.quizService.GetQuizWithQuestions(quizID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewQuizResponse(quiz, true))
}

// CreateQuiz создает новый тест
// POST /api/quizzes
func (h *QuizHandler) CreateQuiz(c *gin.Context) {
	var req dto.CreateQuizRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	quiz := req.ToEntity()
	if err := h.quizService.CreateQuiz(quiz); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.NewQuizResponse(quiz, true))
}

// PublishQuiz публикует тест
// POST /api/quizzes/:id/publish
func (h *QuizHandler) PublishQuiz(c *gin.Context) {
	quizID := c.MustGet("quizID").(uint)

	if err := h.quizService.PublishQuiz(quizID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Quiz published"})
}

// DeleteQuiz удаляет тест
// DELETE /api/quizzes/:id
func (h *QuizHandler) DeleteQuiz(c *gin.Context) {
	quizID := c.MustGet("quizID").(uint)

	if err := h.quizService.DeleteQuiz(quizID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Quiz deleted"})
}

// ExportQuestions выгружает вопросы теста в xlsx
// GET /api/quizzes/:id/questions/export
func (h *QuizHandler) ExportQuestions(c *gin.Context) {
	quizID := c.MustGet("quizID").(uint)

	buf, filename, err := h.quizService.ExportQuestionsXLSX(quizID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK,
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		buf.Bytes())
}
