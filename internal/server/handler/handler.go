package handler

import (
	"errors"
	"log"

	"github.com/palemoky/dice-quest/internal/apperrors"
	"github.com/palemoky/dice-quest/internal/game/session"
	"github.com/palemoky/dice-quest/internal/protocol"
	"github.com/palemoky/dice-quest/internal/protocol/codec"
	"github.com/palemoky/dice-quest/internal/server/storage"
	"github.com/palemoky/dice-quest/internal/types"
)

// HandlerDeps 处理器依赖
type HandlerDeps struct {
	Server         types.ServerInterface
	SessionManager *session.SessionManager
	Leaderboard    *storage.LeaderboardManager
}

// Handler 消息处理器
type Handler struct {
	server         types.ServerInterface
	sessionManager *session.SessionManager
	leaderboard    *storage.LeaderboardManager
	handlers       map[protocol.MessageType]handlerFunc
}

// handlerFunc 统一的处理器函数签名
type handlerFunc func(client types.ClientInterface, msg *protocol.Message)

// NewHandler 创建处理器
func NewHandler(deps HandlerDeps) *Handler {
	h := &Handler{
		server:         deps.Server,
		sessionManager: deps.SessionManager,
		leaderboard:    deps.Leaderboard,
	}
	h.initHandlers()
	return h
}

// initHandlers 初始化消息处理器映射
func (h *Handler) initHandlers() {
	h.handlers = map[protocol.MessageType]handlerFunc{
		// 连接操作
		protocol.MsgPing: h.handlePing,

		// 会话操作
		protocol.MsgCreateGame:  h.handleCreateGame,
		protocol.MsgJoinGame:    h.handleJoinGame,
		protocol.MsgToggleReady: h.handleToggleReady,
		protocol.MsgStartGame:   h.handleStartGame,

		// 游戏操作
		protocol.MsgRollDice: h.handleRollDice,

		// 信息查询
		protocol.MsgGetLeaderboard:       h.handleGetLeaderboard,
		protocol.MsgGetMaintenanceStatus: func(c types.ClientInterface, _ *protocol.Message) { h.handleGetMaintenanceStatus(c) },
	}
}

// Handle 处理消息
func (h *Handler) Handle(client types.ClientInterface, msg *protocol.Message) {
	if handler, ok := h.handlers[msg.Type]; ok {
		handler(client, msg)
		return
	}

	log.Printf("⚠️  未知消息类型: '%s' (连接: %s)", msg.Type, client.GetID())
	client.SendMessage(codec.NewErrorMessage(protocol.ErrCodeInvalidMsg))
}

// sendError 把会话层错误告知客户端，静默错误不回应
func sendError(client types.ClientInterface, err error) {
	if err == nil || apperrors.IsSilent(err) {
		return
	}

	var gameErr *apperrors.GameError
	if errors.As(err, &gameErr) {
		client.SendMessage(codec.NewErrorMessage(gameErr.Code))
		return
	}
	log.Printf("处理请求失败: %v", err)
	client.SendMessage(codec.NewErrorMessage(protocol.ErrCodeUnknown))
}
