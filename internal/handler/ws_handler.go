package handler

import (
	"log"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/testhub-api/internal/websocket"
)

// WSHandler обрабатывает WebSocket-подключения
type WSHandler struct {
	wsManager *websocket.Manager
}

// NewWSHandler создает новый обработчик WebSocket
func NewWSHandler(wsManager *websocket.Manager) *WSHandler {
	return &WSHandler{wsManager: wsManager}
}

// HandleConnection апгрейдит соединение для получения событий сессии
// GET /ws
func (h *WSHandler) HandleConnection(c *gin.Context) {
	userID := getUserID(c)

	if err := h.wsManager.HandleConnection(c.Writer, c.Request, userID); err != nil {
		// Ответ уже отправлен апгрейдером
		log.Printf("[WSHandler] Пользователь %d: ошибка подключения: %v", userID, err)
	}
}
