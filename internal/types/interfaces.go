package types

import (
	"github.com/palemoky/dice-quest/internal/protocol"
)

// ServerInterface 定义服务器接口（用于打破循环依赖）
type ServerInterface interface {
	IsMaintenanceMode() bool
}

// ClientInterface 定义客户端接口
type ClientInterface interface {
	GetID() string
	GetName() string
	SetName(name string)
	// GetSession 返回连接最近绑定的会话码，未绑定时为空
	GetSession() string
	SetSession(code string)
	GetPlayerID() string
	SetPlayerID(id string)
	// SendMessage 不能阻塞，会话锁内会调用
	SendMessage(msg *protocol.Message)
	Close()
}
