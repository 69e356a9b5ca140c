package apperrors

import (
	"errors"

	"github.com/palemoky/dice-quest/internal/protocol"
)

// GameError 游戏错误（会话管理与回合引擎共享）
type GameError struct {
	Code    int
	Message string
	// Silent 为 true 的错误只在服务端可见，客户端收不到任何回应
	Silent bool
}

func (e *GameError) Error() string {
	return e.Message
}

// 预定义错误
var (
	ErrSessionNotFound = &GameError{Code: protocol.ErrCodeSessionNotFound, Message: "Game not found"}
	ErrSessionFull     = &GameError{Code: protocol.ErrCodeSessionFull, Message: "Game is full"}

	// ErrSessionUnknown 与 ErrSessionNotFound 同码，用于 toggleReady/startGame/rollDice 的静默丢弃
	ErrSessionUnknown = &GameError{Code: protocol.ErrCodeSessionNotFound, Message: "Game not found", Silent: true}
	ErrPlayerNotFound = &GameError{Code: protocol.ErrCodePlayerNotFound, Message: "player not found", Silent: true}
	ErrNotAllReady    = &GameError{Code: protocol.ErrCodeNotAllReady, Message: "not all players are ready", Silent: true}
	ErrAlreadyStarted = &GameError{Code: protocol.ErrCodeAlreadyStarted, Message: "game already started", Silent: true}
	ErrGameNotStarted = &GameError{Code: protocol.ErrCodeGameNotStarted, Message: "game has not started", Silent: true}
	ErrNotYourTurn    = &GameError{Code: protocol.ErrCodeNotYourTurn, Message: "not your turn", Silent: true}
	ErrRollPending    = &GameError{Code: protocol.ErrCodeRollPending, Message: "roll already pending", Silent: true}
	ErrStaleRoll      = &GameError{Code: protocol.ErrCodeStaleRoll, Message: "stale pending roll", Silent: true}
)

// IsSilent 判断错误是否应对客户端静默
func IsSilent(err error) bool {
	var gameErr *GameError
	return errors.As(err, &gameErr) && gameErr.Silent
}
