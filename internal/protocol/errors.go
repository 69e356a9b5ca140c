package protocol

// 错误码
const (
	ErrCodeUnknown           = 1000
	ErrCodeInvalidMsg        = 1001
	ErrCodeRateLimit         = 1002 // 速率限制
	ErrCodeSessionNotFound   = 2001
	ErrCodeSessionFull       = 2002
	ErrCodePlayerNotFound    = 2003
	ErrCodeGameNotStarted    = 3001
	ErrCodeNotYourTurn       = 3002
	ErrCodeRollPending       = 3003
	ErrCodeStaleRoll         = 3004
	ErrCodeNotAllReady       = 3005
	ErrCodeAlreadyStarted    = 3006
	ErrCodeServerMaintenance = 5003 // 服务器维护中
)

// ErrorMessages 错误码对应的消息（展示给前端）
var ErrorMessages = map[int]string{
	ErrCodeUnknown:           "Unknown error",
	ErrCodeInvalidMsg:        "Invalid message",
	ErrCodeRateLimit:         "Too many requests",
	ErrCodeSessionNotFound:   "Game not found",
	ErrCodeSessionFull:       "Game is full",
	ErrCodePlayerNotFound:    "Player not found",
	ErrCodeGameNotStarted:    "Game has not started",
	ErrCodeNotYourTurn:       "Not your turn",
	ErrCodeRollPending:       "Roll already pending",
	ErrCodeStaleRoll:         "Stale pending roll",
	ErrCodeNotAllReady:       "Not all players are ready",
	ErrCodeAlreadyStarted:    "Game already started",
	ErrCodeServerMaintenance: "Server under maintenance",
}
