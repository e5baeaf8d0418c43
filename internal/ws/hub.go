// Package ws реализует WebSocket-хаб уведомлений календаря.
//
// Каждое соединение принадлежит аутентифицированному пользователю. Хаб рассылает
// сообщения только тем соединениям, чьих пользователей пропускает фильтр
// отправителя. Пропущенные за время отключения сообщения не повторяются.
package ws

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/magabrotheeeer/lab-notebook/internal/lib/sl"
	"github.com/magabrotheeeer/lab-notebook/internal/models"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	sendBuffer     = 16
)

type client struct {
	actor models.Actor
	conn  *websocket.Conn
	send  chan []byte
}

// Hub хранит активные соединения.
type Hub struct {
	mu       sync.RWMutex
	clients  map[*client]struct{}
	upgrader websocket.Upgrader
	log      *slog.Logger
}

// NewHub создаёт хаб. Пустой allowedOrigins разрешает любой Origin:
// соединение всё равно требует токен.
func NewHub(log *slog.Logger, allowedOrigins []string) *Hub {
	h := &Hub{
		clients: make(map[*client]struct{}),
		log:     log,
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if len(allowedOrigins) == 0 || origin == "" {
				return true
			}
			for _, allowed := range allowedOrigins {
				if origin == allowed {
					return true
				}
			}
			return false
		},
	}
	return h
}

// Serve переводит запрос в WebSocket и обслуживает соединение до его закрытия.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, actor models.Actor) error {
	const op = "ws.Serve"

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	c := &client{actor: actor, conn: conn, send: make(chan []byte, sendBuffer)}
	h.register(c)

	go h.writePump(c)
	h.readPump(c)
	return nil
}

// Publish рассылает msg в JSON всем соединениям, чьих пользователей пропускает allow.
// Медленный клиент с переполненным буфером отключается. Возвращает число получателей.
func (h *Hub) Publish(msg any, allow func(actor models.Actor) bool) int {
	const op = "ws.Publish"

	payload, err := json.Marshal(msg)
	if err != nil {
		h.log.Error("failed to marshal message", sl.Op(op), sl.Err(err))
		return 0
	}

	var slow []*client
	delivered := 0
	h.mu.RLock()
	for c := range h.clients {
		if !allow(c.actor) {
			continue
		}
		select {
		case c.send <- payload:
			delivered++
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		h.log.Warn("dropping slow websocket client", sl.Op(op), slog.Int64("user_id", c.actor.UserID))
		h.unregister(c)
	}
	return delivered
}

// Connected возвращает число активных соединений.
func (h *Hub) Connected() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close закрывает все соединения.
func (h *Hub) Close() {
	h.mu.Lock()
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		h.unregister(c)
	}
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	h.log.Debug("websocket connected", slog.Int64("user_id", c.actor.UserID))
}

// unregister закрывает канал отправки ровно один раз; writePump после этого закрывает соединение.
func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	if ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
	if ok {
		h.log.Debug("websocket disconnected", slog.Int64("user_id", c.actor.UserID))
	}
}

func (h *Hub) readPump(c *client) {
	defer func() {
		h.unregister(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		return
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.log.Warn("websocket read failed", slog.Int64("user_id", c.actor.UserID), sl.Err(err))
			}
			return
		}
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
