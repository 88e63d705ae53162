package websocket

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"github.com/gorilla/websocket"
)

// Event - конверт WebSocket-события
type Event struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// Manager предоставляет сервисам интерфейс отправки событий
// поверх хаба и апгрейдит HTTP-соединения до WebSocket
type Manager struct {
	hub      *Hub
	upgrader websocket.Upgrader
}

// NewManager создает менеджер с запущенным хабом
func NewManager(checkOrigin func(r *http.Request) bool) *Manager {
	hub := NewHub()
	go hub.Run()

	if checkOrigin == nil {
		checkOrigin = func(r *http.Request) bool { return true }
	}

	return &Manager{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin,
		},
	}
}

// HandleConnection апгрейдит HTTP-запрос до WebSocket и запускает клиента.
// Пользователь уже аутентифицирован middleware до вызова.
func (m *Manager) HandleConnection(w http.ResponseWriter, r *http.Request, userID uint) error {
	conn, err := m.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return fmt.Errorf("websocket upgrade failed: %w", err)
	}

	NewClient(m.hub, conn, userID).Start()
	return nil
}

// SendEventToUser отправляет событие конкретному пользователю.
// Отсутствие подключения не ошибка: события сессии дублируются
// REST-ответами, WebSocket лишь ускоряет доставку.
func (m *Manager) SendEventToUser(userID uint, eventType string, data interface{}) error {
	payload, err := json.Marshal(Event{Type: eventType, Data: data})
	if err != nil {
		return fmt.Errorf("marshal event %s: %w", eventType, err)
	}

	select {
	case m.hub.direct <- &directMessage{userID: userID, payload: payload}:
		return nil
	default:
		log.Printf("[WebSocketManager] Канал событий переполнен, событие %s для пользователя %d отброшено", eventType, userID)
		return fmt.Errorf("event channel is full")
	}
}

// BroadcastEvent отправляет событие всем подключенным пользователям
func (m *Manager) BroadcastEvent(eventType string, data interface{}) error {
	payload, err := json.Marshal(Event{Type: eventType, Data: data})
	if err != nil {
		return fmt.Errorf("marshal event %s: %w", eventType, err)
	}

	select {
	case m.hub.broadcast <- payload:
		return nil
	default:
		return fmt.Errorf("broadcast channel is full")
	}
}

// UserConnected проверяет наличие активного подключения пользователя
func (m *Manager) UserConnected(userID uint) bool {
	return m.hub.UserConnected(userID)
}

// Shutdown останавливает хаб
func (m *Manager) Shutdown() {
	m.hub.Stop()
}
