package handler

import (
	"time"

	"github.com/palemoky/dice-quest/internal/protocol"
	"github.com/palemoky/dice-quest/internal/protocol/codec"
	"github.com/palemoky/dice-quest/internal/types"
)

// handlePing 处理心跳消息，payload 缺失时 clientTimestamp 为 0
func (h *Handler) handlePing(client types.ClientInterface, msg *protocol.Message) {
	var clientTS int64
	if payload, err := codec.ParsePayload[protocol.PingPayload](msg); err == nil {
		clientTS = payload.Timestamp
	}

	client.SendMessage(codec.MustNewMessage(protocol.MsgPong, protocol.PongPayload{
		ClientTimestamp: clientTS,
		ServerTimestamp: time.Now().UnixMilli(),
	}))
}

// handleGetMaintenanceStatus 获取维护状态
func (h *Handler) handleGetMaintenanceStatus(client types.ClientInterface) {
	client.SendMessage(codec.MustNewMessage(protocol.MsgMaintenancePull, protocol.MaintenanceStatusPayload{
		Maintenance: h.server.IsMaintenanceMode(),
	}))
}
