// internal/api/websocket.go
package api

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/Corphon/InfraAdvisor/internal/services"
	"github.com/Corphon/InfraAdvisor/internal/utils"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = 54 * time.Second
	wsSendBuffer = 64
)

// WebSocket 升级器配置
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// draftClient 一个控制台的事件连接
type draftClient struct {
	conn        *websocket.Conn
	userID      string
	send        chan []byte
	connectedAt time.Time
}

type userMessage struct {
	userID  string
	payload []byte
}

// DraftEventHub 按用户分组的 WebSocket 连接，推送草稿事件
type DraftEventHub struct {
	connections map[string]map[*draftClient]struct{} // userID -> clients
	register    chan *draftClient
	unregister  chan *draftClient
	broadcast   chan userMessage
	done        chan struct{}
	stopOnce    sync.Once
	wg          sync.WaitGroup
	mutex       sync.RWMutex
	logger      *utils.Logger
}

// NewDraftEventHub 创建并启动事件中心
func NewDraftEventHub() *DraftEventHub {
	hub := &DraftEventHub{
		connections: make(map[string]map[*draftClient]struct{}),
		register:    make(chan *draftClient, 16),
		unregister:  make(chan *draftClient, 16),
		broadcast:   make(chan userMessage, 256),
		done:        make(chan struct{}),
		logger:      utils.GetLogger(),
	}
	hub.wg.Add(1)
	go hub.run()
	return hub
}

var _ services.EventPublisher = (*DraftEventHub)(nil)

// run 管理器主循环；send 通道只在这里关闭
func (hub *DraftEventHub) run() {
	defer hub.wg.Done()

	for {
		select {
		case client := <-hub.register:
			hub.mutex.Lock()
			if hub.connections[client.userID] == nil {
				hub.connections[client.userID] = make(map[*draftClient]struct{})
			}
			hub.connections[client.userID][client] = struct{}{}
			hub.mutex.Unlock()
			hub.logger.Debug("draft events client connected", map[string]interface{}{"user_id": client.userID})

		case client := <-hub.unregister:
			hub.remove(client)

		case msg := <-hub.broadcast:
			hub.deliver(msg)

		case <-hub.done:
			hub.shutdown()
			return
		}
	}
}

func (hub *DraftEventHub) remove(client *draftClient) {
	hub.mutex.Lock()
	defer hub.mutex.Unlock()

	clients, exists := hub.connections[client.userID]
	if !exists {
		return
	}
	if _, ok := clients[client]; !ok {
		return
	}
	delete(clients, client)
	close(client.send)
	if len(clients) == 0 {
		delete(hub.connections, client.userID)
	}
}

func (hub *DraftEventHub) deliver(msg userMessage) {
	hub.mutex.RLock()
	var slow []*draftClient
	for client := range hub.connections[msg.userID] {
		select {
		case client.send <- msg.payload:
		default:
			slow = append(slow, client)
		}
	}
	hub.mutex.RUnlock()

	// 队列已满的连接直接断开
	for _, client := range slow {
		hub.logger.Warn("draft events queue full, dropping client", map[string]interface{}{"user_id": client.userID})
		hub.remove(client)
	}
}

func (hub *DraftEventHub) shutdown() {
	hub.mutex.Lock()
	defer hub.mutex.Unlock()

	for _, clients := range hub.connections {
		for client := range clients {
			close(client.send)
		}
	}
	hub.connections = make(map[string]map[*draftClient]struct{})
}

// Stop 关闭所有连接并等待主循环退出
func (hub *DraftEventHub) Stop() {
	hub.stopOnce.Do(func() { close(hub.done) })
	hub.wg.Wait()
}

// PublishToUser 把事件推送给该用户的全部连接
func (hub *DraftEventHub) PublishToUser(userID string, event services.DraftEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		hub.logger.Error("marshal draft event failed", map[string]interface{}{"error": err})
		return
	}

	select {
	case hub.broadcast <- userMessage{userID: userID, payload: payload}:
	case <-hub.done:
	default:
		hub.logger.Warn("draft events broadcast queue full", map[string]interface{}{
			"user_id": userID,
			"type":    event.Type,
		})
	}
}

// ConnectionCount 当前活跃连接数
func (hub *DraftEventHub) ConnectionCount() int {
	hub.mutex.RLock()
	defer hub.mutex.RUnlock()

	total := 0
	for _, clients := range hub.connections {
		total += len(clients)
	}
	return total
}

// GetStatus 获取管理器状态
func (hub *DraftEventHub) GetStatus() map[string]interface{} {
	hub.mutex.RLock()
	defer hub.mutex.RUnlock()

	users := make(map[string]int, len(hub.connections))
	total := 0
	for userID, clients := range hub.connections {
		users[userID] = len(clients)
		total += len(clients)
	}
	return map[string]interface{}{
		"total_users":       len(hub.connections),
		"total_connections": total,
		"users":             users,
	}
}

// ServeDrafts 升级为 WebSocket 并订阅当前用户的草稿事件
func (hub *DraftEventHub) ServeDrafts(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		hub.logger.Warn("websocket upgrade failed", map[string]interface{}{"error": err})
		return
	}

	client := &draftClient{
		conn:        conn,
		userID:      currentUser(c),
		send:        make(chan []byte, wsSendBuffer),
		connectedAt: time.Now(),
	}

	welcome, _ := json.Marshal(map[string]interface{}{
		"type":      "connected",
		"user_id":   client.userID,
		"timestamp": client.connectedAt.UTC(),
	})
	client.send <- welcome

	select {
	case hub.register <- client:
	case <-hub.done:
		conn.Close()
		return
	}

	go client.writePump()
	client.readPump(hub)
}

// readPump 只处理控制帧；连接断开时注销
func (client *draftClient) readPump(hub *DraftEventHub) {
	defer func() {
		select {
		case hub.unregister <- client:
		case <-hub.done:
		}
		client.conn.Close()
	}()

	client.conn.SetReadLimit(4096)
	client.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	client.conn.SetPongHandler(func(string) error {
		return client.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	for {
		if _, _, err := client.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				hub.logger.Debug("draft events read error", map[string]interface{}{"error": err})
			}
			return
		}
	}
}

// writePump 发送事件和心跳，send 关闭后退出
func (client *draftClient) writePump() {
	ticker := time.NewTicker(wsPingPeriod)
	defer func() {
		ticker.Stop()
		client.conn.Close()
	}()

	for {
		select {
		case message, ok := <-client.send:
			client.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if !ok {
				client.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := client.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			client.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := client.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
