package handler

import (
	"context"
	"strings"

	"github.com/palemoky/dice-quest/internal/game/player"
	"github.com/palemoky/dice-quest/internal/protocol"
	"github.com/palemoky/dice-quest/internal/protocol/codec"
	"github.com/palemoky/dice-quest/internal/types"
)

// handleCreateGame payload 为裸字符串 displayName
func (h *Handler) handleCreateGame(client types.ClientInterface, msg *protocol.Message) {
	if h.server.IsMaintenanceMode() {
		client.SendMessage(codec.NewErrorMessage(protocol.ErrCodeServerMaintenance))
		return
	}

	name, err := codec.ParsePayload[string](msg)
	if err != nil {
		client.SendMessage(codec.NewErrorMessage(protocol.ErrCodeInvalidMsg))
		return
	}

	_, _, err = h.sessionManager.CreateGame(context.Background(), client, displayName(*name))
	sendError(client, err)
}

// handleJoinGame 加入已有会话
func (h *Handler) handleJoinGame(client types.ClientInterface, msg *protocol.Message) {
	if h.server.IsMaintenanceMode() {
		client.SendMessage(codec.NewErrorMessage(protocol.ErrCodeServerMaintenance))
		return
	}

	payload, err := codec.ParsePayload[protocol.JoinGamePayload](msg)
	if err != nil {
		client.SendMessage(codec.NewErrorMessage(protocol.ErrCodeInvalidMsg))
		return
	}

	_, err = h.sessionManager.JoinGame(context.Background(), client, payload.SessionCode, displayName(payload.DisplayName))
	sendError(client, err)
}

// handleToggleReady 失败一律静默
func (h *Handler) handleToggleReady(client types.ClientInterface, msg *protocol.Message) {
	payload, err := codec.ParsePayload[protocol.PlayerActionPayload](msg)
	if err != nil {
		return
	}

	err = h.sessionManager.ToggleReady(context.Background(), payload.SessionCode, payload.PlayerID)
	sendError(client, err)
}

// handleStartGame payload 为裸字符串 sessionCode
func (h *Handler) handleStartGame(client types.ClientInterface, msg *protocol.Message) {
	code, err := codec.ParsePayload[string](msg)
	if err != nil {
		return
	}

	err = h.sessionManager.StartGame(context.Background(), *code)
	sendError(client, err)
}

// handleRollDice 掷骰，结算由会话管理器延迟执行
func (h *Handler) handleRollDice(client types.ClientInterface, msg *protocol.Message) {
	payload, err := codec.ParsePayload[protocol.PlayerActionPayload](msg)
	if err != nil {
		return
	}

	err = h.sessionManager.RollDice(context.Background(), payload.SessionCode, payload.PlayerID)
	sendError(client, err)
}

// displayName 空白名字替换为随机昵称
func displayName(name string) string {
	if name = strings.TrimSpace(name); name == "" {
		return player.GenerateNickname()
	}
	return name
}
