//go:build !production

package testutil

import (
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/palemoky/dice-quest/internal/protocol"
)

// MockClient 实现 types.ClientInterface 的 mock
type MockClient struct {
	mock.Mock
}

func (m *MockClient) GetID() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockClient) GetName() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockClient) SetName(name string) {
	m.Called(name)
}

func (m *MockClient) GetSession() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockClient) SetSession(code string) {
	m.Called(code)
}

func (m *MockClient) GetPlayerID() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockClient) SetPlayerID(id string) {
	m.Called(id)
}

func (m *MockClient) SendMessage(msg *protocol.Message) {
	m.Called(msg)
}

func (m *MockClient) Close() {
	m.Called()
}

// SimpleClient 简单的并发安全客户端，记录收到的消息（用于不需要 mock 断言的测试）
type SimpleClient struct {
	id       string
	name     string
	session  string
	playerID string
	messages []*protocol.Message
	closed   bool
	mu       sync.Mutex
}

// NewSimpleClient 创建 SimpleClient
func NewSimpleClient(id, name string) *SimpleClient {
	return &SimpleClient{id: id, name: name}
}

func (c *SimpleClient) GetID() string { return c.id }

func (c *SimpleClient) GetName() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.name
}

func (c *SimpleClient) SetName(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.name = name
}

func (c *SimpleClient) GetSession() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

func (c *SimpleClient) SetSession(code string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.session = code
}

func (c *SimpleClient) GetPlayerID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.playerID
}

func (c *SimpleClient) SetPlayerID(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.playerID = id
}

func (c *SimpleClient) SendMessage(msg *protocol.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = append(c.messages, msg)
}

func (c *SimpleClient) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

// IsClosed 是否调用过 Close
func (c *SimpleClient) IsClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// SentMessages 返回收到的消息副本
func (c *SimpleClient) SentMessages() []*protocol.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*protocol.Message(nil), c.messages...)
}

// MessagesOfType 返回指定类型的消息
func (c *SimpleClient) MessagesOfType(t protocol.MessageType) []*protocol.Message {
	c.mu.Lock()
	defer c.mu.Unlock()

	var out []*protocol.Message
	for _, m := range c.messages {
		if m.Type == t {
			out = append(out, m)
		}
	}
	return out
}

// LastMessage 返回最后一条消息，没有时为 nil
func (c *SimpleClient) LastMessage() *protocol.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.messages) == 0 {
		return nil
	}
	return c.messages[len(c.messages)-1]
}

// Reset 清空已记录的消息
func (c *SimpleClient) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = nil
}
