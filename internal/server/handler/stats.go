package handler

import (
	"context"

	"github.com/palemoky/dice-quest/internal/protocol"
	"github.com/palemoky/dice-quest/internal/protocol/codec"
	"github.com/palemoky/dice-quest/internal/types"
)

const (
	defaultLeaderboardLimit = 10
	maxLeaderboardLimit     = 50
)

// --- 排行榜处理 ---

// handleGetLeaderboard 获取胜场排行榜，未配置 Redis 时返回空列表
func (h *Handler) handleGetLeaderboard(client types.ClientInterface, msg *protocol.Message) {
	limit := defaultLeaderboardLimit
	if payload, err := codec.ParsePayload[protocol.GetLeaderboardPayload](msg); err == nil &&
		payload.Limit > 0 && payload.Limit <= maxLeaderboardLimit {
		limit = payload.Limit
	}

	entries, err := h.leaderboard.GetLeaderboard(context.Background(), limit)
	if err != nil {
		client.SendMessage(codec.NewErrorMessage(protocol.ErrCodeUnknown))
		return
	}

	result := make([]protocol.LeaderboardEntry, 0, len(entries))
	for _, entry := range entries {
		result = append(result, protocol.LeaderboardEntry{
			Rank:        entry.Rank,
			DisplayName: entry.DisplayName,
			Wins:        entry.Wins,
		})
	}

	client.SendMessage(codec.MustNewMessage(protocol.MsgLeaderboardResult, protocol.LeaderboardResultPayload{
		Entries: result,
	}))
}
