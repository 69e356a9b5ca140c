package protocol

import "encoding/json"

// Message 基础消息结构
type Message struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// MessageType 消息类型（与前端事件名保持一致）
type MessageType string

// 客户端 → 服务端 消息类型
const (
	// 连接操作
	MsgPing MessageType = "ping" // 心跳 ping

	// 会话操作
	MsgCreateGame  MessageType = "createGame"  // 创建游戏
	MsgJoinGame    MessageType = "joinGame"    // 加入游戏
	MsgToggleReady MessageType = "toggleReady" // 切换准备状态
	MsgStartGame   MessageType = "startGame"   // 开始游戏

	// 游戏操作
	MsgRollDice MessageType = "rollDice" // 掷骰子

	// 查询
	MsgGetLeaderboard       MessageType = "getLeaderboard"       // 获取排行榜
	MsgGetMaintenanceStatus MessageType = "getMaintenanceStatus" // 获取维护状态
)

// 服务端 → 客户端 消息类型
const (
	MsgConnected MessageType = "connected" // 连接成功
	MsgPong      MessageType = "pong"      // 心跳 pong

	MsgPlayerID    MessageType = "playerId"    // 分配的玩家 ID（仅发给请求者）
	MsgGameState   MessageType = "gameState"   // 完整会话快照
	MsgGameStarted MessageType = "gameStarted" // 游戏开始信号
	MsgGameWon     MessageType = "gameWon"     // 获胜信号（携带获胜者 ID）

	MsgLeaderboardResult MessageType = "leaderboardResult" // 排行榜结果
	MsgMaintenancePull   MessageType = "maintenancePull"   // 维护状态

	// 错误
	MsgError MessageType = "error"
)
