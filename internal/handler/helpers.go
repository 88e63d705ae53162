package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/yourusername/testhub-api/internal/pkg/errors"
)

// respondError преобразует ошибку сервиса в HTTP-ответ
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error(), "error_type": "not_found"})
	case errors.Is(err, apperrors.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "error_type": "validation"})
	case errors.Is(err, apperrors.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error(), "error_type": "forbidden"})
	case errors.Is(err, apperrors.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error(), "error_type": "unauthorized"})
	case errors.Is(err, apperrors.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "error_type": "conflict"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error(), "error_type": "internal"})
	}
}

// getUserID извлекает ID пользователя, установленный auth middleware
func getUserID(c *gin.Context) uint {
	return c.MustGet("user_id").(uint)
}

// getUserEmail извлекает email пользователя из контекста (может быть пустым)
func getUserEmail(c *gin.Context) string {
	if email, ok := c.Get("email"); ok {
		return email.(string)
	}
	return ""
}
