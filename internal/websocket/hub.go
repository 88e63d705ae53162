package websocket

import (
	"log"
	"sync"
)

// Hub управляет активными WebSocket-клиентами и маршрутизирует события.
// Один экземпляр на процесс; клиенты группируются по ID пользователя,
// у пользователя может быть несколько подключений (несколько вкладок).
type Hub struct {
	// Зарегистрированные клиенты по ID пользователя
	clients map[uint]map[*Client]bool

	// Канал регистрации клиентов
	register chan *Client

	// Канал отмены регистрации
	unregister chan *Client

	// Канал исходящих сообщений конкретному пользователю
	direct chan *directMessage

	// Канал широковещательных сообщений
	broadcast chan []byte

	mu sync.RWMutex

	done chan struct{}
}

type directMessage struct {
	userID  uint
	payload []byte
}

// NewHub создает новый хаб
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[uint]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		direct:     make(chan *directMessage, 256),
		broadcast:  make(chan []byte, 64),
		done:       make(chan struct{}),
	}
}

// Run - основной цикл хаба. Запускается в отдельной горутине.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.addClient(client)

		case client := <-h.unregister:
			h.removeClient(client)

		case msg := <-h.direct:
			h.sendToUser(msg.userID, msg.payload)

		case payload := <-h.broadcast:
			h.sendToAll(payload)

		case <-h.done:
			h.closeAll()
			return
		}
	}
}

// Stop останавливает цикл хаба и закрывает всех клиентов
func (h *Hub) Stop() {
	close(h.done)
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.clients[client.userID] == nil {
		h.clients[client.userID] = make(map[*Client]bool)
	}
	h.clients[client.userID][client] = true
	log.Printf("[WebSocketHub] Пользователь %d подключен (всего подключений: %d)",
		client.userID, len(h.clients[client.userID]))
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if conns, ok := h.clients[client.userID]; ok {
		if _, ok := conns[client]; ok {
			delete(conns, client)
			close(client.send)
			if len(conns) == 0 {
				delete(h.clients, client.userID)
			}
			log.Printf("[WebSocketHub] Пользователь %d отключен", client.userID)
		}
	}
}

// sendToUser доставляет сообщение во все подключения пользователя.
// Клиент с переполненным буфером отключается, чтобы не блокировать хаб.
func (h *Hub) sendToUser(userID uint, payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients[userID] {
		select {
		case client.send <- payload:
		default:
			log.Printf("[WebSocketHub] Буфер пользователя %d переполнен, отключаю клиента", userID)
			go func(c *Client) { h.unregister <- c }(client)
		}
	}
}

func (h *Hub) sendToAll(payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, conns := range h.clients {
		for client := range conns {
			select {
			case client.send <- payload:
			default:
			}
		}
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for userID, conns := range h.clients {
		for client := range conns {
			close(client.send)
		}
		delete(h.clients, userID)
	}
	log.Printf("[WebSocketHub] Все клиенты отключены")
}

// UserConnected проверяет, есть ли у пользователя активное подключение
func (h *Hub) UserConnected(userID uint) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID]) > 0
}
