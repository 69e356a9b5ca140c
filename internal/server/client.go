package server

import (
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/palemoky/dice-quest/internal/logger"
	"github.com/palemoky/dice-quest/internal/protocol"
	"github.com/palemoky/dice-quest/internal/protocol/codec"
)

const (
	// 写入超时
	writeWait = 10 * time.Second

	// 读取超时（pong 等待时间）
	pongWait = 60 * time.Second

	// ping 发送间隔（必须小于 pongWait）
	pingPeriod = (pongWait * 9) / 10

	// 消息最大大小
	maxMessageSize = 4096

	sendBufferSize = 256
)

// frame 待写出的一帧
type frame struct {
	data   []byte
	binary bool
}

// Client 一个 WebSocket 连接。会话与玩家在 createGame/joinGame 时绑定。
type Client struct {
	ID string
	IP string

	name        string
	sessionCode string
	playerID    string
	// 回复使用客户端最近一帧的编码格式
	format codec.Format

	server *Server
	conn   *websocket.Conn
	send   chan frame

	mu     sync.RWMutex
	closed bool
}

// NewClient 创建新客户端
func NewClient(s *Server, conn *websocket.Conn, ip string) *Client {
	return &Client{
		ID:     uuid.New().String(),
		IP:     ip,
		server: s,
		conn:   conn,
		send:   make(chan frame, sendBufferSize),
	}
}

// ReadPump 从 WebSocket 读取消息
func (c *Client) ReadPump() {
	defer func() {
		c.handleDisconnect()
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		messageType, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("读取错误: %v", err)
			}
			return
		}

		format := codec.FormatJSON
		if messageType == websocket.BinaryMessage {
			format = codec.FormatProto
		}
		c.setFormat(format)

		allowed, warning := c.server.messageLimiter.AllowMessage(c.ID)
		if !allowed {
			log.Printf("⚠️ 连接 %s (IP: %s) 消息过于频繁", c.ID, c.IP)
			c.SendMessage(codec.NewErrorMessage(protocol.ErrCodeRateLimit))
			if c.server.messageLimiter.ShouldDisconnect(c.ID) {
				log.Printf("🚫 连接 %s 因多次超速被断开", c.ID)
				return
			}
			continue
		}
		if warning {
			c.SendMessage(codec.NewErrorMessageWithText(protocol.ErrCodeRateLimit, "Slow down"))
		}

		msg, err := codec.Decode(data, format)
		if err != nil {
			log.Printf("消息解析错误: %v", err)
			c.SendMessage(codec.NewErrorMessage(protocol.ErrCodeInvalidMsg))
			continue
		}

		c.dispatch(msg)
	}
}

// dispatch 交给处理器处理，单条消息的 panic 不影响连接
func (c *Client) dispatch(msg *protocol.Message) {
	defer codec.PutMessage(msg)
	defer func() {
		if r := recover(); r != nil {
			logger.LogPanic(r)
			c.SendMessage(codec.NewErrorMessage(protocol.ErrCodeUnknown))
		}
	}()
	c.server.handler.Handle(c, msg)
}

// WritePump 向 WebSocket 写入消息
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case f, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			messageType := websocket.TextMessage
			if f.binary {
				messageType = websocket.BinaryMessage
			}
			if err := c.conn.WriteMessage(messageType, f.data); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// SendMessage 编码并放入发送队列，不阻塞；队列满时关闭连接
func (c *Client) SendMessage(msg *protocol.Message) {
	if msg == nil {
		return
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return
	}

	data, err := codec.Encode(msg, c.format)
	if err != nil {
		log.Printf("消息编码错误: %v", err)
		return
	}

	select {
	case c.send <- frame{data: data, binary: c.format == codec.FormatProto}:
	default:
		log.Printf("连接 %s 发送缓冲区已满", c.ID)
		go c.Close()
	}
}

// handleDisconnect 连接断开：通知会话、清理限流记录、注销连接
func (c *Client) handleDisconnect() {
	c.server.sessionManager.PlayerDisconnected(c)
	c.server.messageLimiter.RemoveClient(c.ID)
	c.server.unregisterClient(c)
	c.Close()
}

// Close 关闭发送队列，WritePump 随后发送关闭帧
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

func (c *Client) setFormat(f codec.Format) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.format = f
}

// GetID 连接 ID
func (c *Client) GetID() string { return c.ID }

// GetName 最近一次使用的显示名
func (c *Client) GetName() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.name
}

// SetName 设置显示名
func (c *Client) SetName(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.name = name
}

// GetSession 返回绑定的会话码
func (c *Client) GetSession() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sessionCode
}

// SetSession 绑定会话
func (c *Client) SetSession(code string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sessionCode = code
}

// GetPlayerID 返回绑定的玩家 ID
func (c *Client) GetPlayerID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.playerID
}

// SetPlayerID 绑定玩家
func (c *Client) SetPlayerID(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.playerID = id
}
