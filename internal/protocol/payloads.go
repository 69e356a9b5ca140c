package protocol

// --- 客户端请求 Payloads ---
// createGame 的 payload 是裸字符串（displayName），startGame 的 payload 是裸字符串（sessionCode）

// PingPayload 心跳请求
type PingPayload struct {
	Timestamp int64 `json:"timestamp"` // 客户端时间戳（毫秒）
}

// JoinGamePayload 加入游戏请求
type JoinGamePayload struct {
	SessionCode string `json:"sessionCode"`
	DisplayName string `json:"displayName"`
}

// PlayerActionPayload 带玩家身份的会话操作（toggleReady / rollDice）
type PlayerActionPayload struct {
	SessionCode string `json:"sessionCode"`
	PlayerID    string `json:"playerId"`
}

// GetLeaderboardPayload 获取排行榜请求
type GetLeaderboardPayload struct {
	Limit int `json:"limit"`
}

// --- 服务端响应 Payloads ---

// ConnectedPayload 连接成功响应
type ConnectedPayload struct {
	ConnectionID string `json:"connectionId"`
}

// PongPayload 心跳响应
type PongPayload struct {
	ClientTimestamp int64 `json:"clientTimestamp"` // 客户端发送的时间戳
	ServerTimestamp int64 `json:"serverTimestamp"` // 服务器时间戳（毫秒）
}

// GameStatePayload 完整会话快照，每次状态变更都整体广播
type GameStatePayload struct {
	SessionCode string       `json:"sessionCode"`
	Phase       string       `json:"phase"` // lobby/active/finished
	Players     []PlayerInfo `json:"players"`
	IsStarted   bool         `json:"isStarted"`
	MaxPlayers  int          `json:"maxPlayers"`
	CurrentTurn string       `json:"currentTurn"`
	Board       []SpaceInfo  `json:"board"`
	PendingRoll *int         `json:"pendingRoll"` // null 表示没有待结算的骰子
}

// GameWonPayload 获胜通知
type GameWonPayload struct {
	WinnerID string `json:"winnerId"`
}

// LeaderboardResultPayload 排行榜结果
type LeaderboardResultPayload struct {
	Entries []LeaderboardEntry `json:"entries"`
}

// LeaderboardEntry 排行榜条目
type LeaderboardEntry struct {
	Rank        int    `json:"rank"`
	DisplayName string `json:"displayName"`
	Wins        int    `json:"wins"`
}

// MaintenanceStatusPayload 维护状态响应
type MaintenanceStatusPayload struct {
	Maintenance bool `json:"maintenance"`
}

// ErrorPayload 错误响应
type ErrorPayload struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// --- 通用数据结构 ---

// PlayerInfo 玩家信息
type PlayerInfo struct {
	ID            string `json:"id"`
	DisplayName   string `json:"displayName"`
	IsHost        bool   `json:"isHost"`
	IsReady       bool   `json:"isReady"`
	Position      int    `json:"position"`
	Score         int    `json:"score"`
	HasTrapShield bool   `json:"hasTrapShield"`
	Active        bool   `json:"active"` // false 表示已断线，轮到时被跳过
}

// SpaceInfo 棋盘格子信息
type SpaceInfo struct {
	Index  int    `json:"index"`
	Kind   string `json:"kind"`             // normal/treasure/trap/powerup/challenge
	Points *int   `json:"points,omitempty"` // 宝藏为正，陷阱为负
	Effect string `json:"effect,omitempty"` // extraTurn/knockbackNext/trapShield
}
