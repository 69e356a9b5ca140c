package convert

import (
	"github.com/palemoky/dice-quest/internal/game/board"
	"github.com/palemoky/dice-quest/internal/game/engine"
	"github.com/palemoky/dice-quest/internal/game/player"
	"github.com/palemoky/dice-quest/internal/protocol"
)

// PlayerToInfo 将 player.Player 转换为 protocol.PlayerInfo
func PlayerToInfo(p player.Player) protocol.PlayerInfo {
	return protocol.PlayerInfo{
		ID:            p.ID,
		DisplayName:   p.DisplayName,
		IsHost:        p.IsHost,
		IsReady:       p.IsReady,
		Position:      p.Position,
		Score:         p.Score,
		HasTrapShield: p.HasTrapShield,
		Active:        p.Active,
	}
}

// PlayersToInfos 将 []player.Player 转换为 []protocol.PlayerInfo
func PlayersToInfos(players []player.Player) []protocol.PlayerInfo {
	infos := make([]protocol.PlayerInfo, len(players))
	for i, p := range players {
		infos[i] = PlayerToInfo(p)
	}
	return infos
}

// SpaceToInfo 将 board.Space 转换为 protocol.SpaceInfo
func SpaceToInfo(s board.Space) protocol.SpaceInfo {
	info := protocol.SpaceInfo{
		Index:  s.Index,
		Kind:   s.Kind.String(),
		Effect: s.Effect.String(),
	}
	if s.Points != nil {
		pts := *s.Points
		info.Points = &pts
	}
	return info
}

// SpacesToInfos 将 []board.Space 转换为 []protocol.SpaceInfo
func SpacesToInfos(spaces []board.Space) []protocol.SpaceInfo {
	infos := make([]protocol.SpaceInfo, len(spaces))
	for i, s := range spaces {
		infos[i] = SpaceToInfo(s)
	}
	return infos
}

// StateToPayload 将会话快照转换为 gameState 消息体
func StateToPayload(s engine.State) protocol.GameStatePayload {
	return protocol.GameStatePayload{
		SessionCode: s.Code,
		Phase:       s.Phase.String(),
		Players:     PlayersToInfos(s.Players),
		IsStarted:   s.IsStarted,
		MaxPlayers:  s.MaxPlayers,
		CurrentTurn: s.CurrentTurn,
		Board:       SpacesToInfos(s.Board),
		PendingRoll: s.PendingRoll,
	}
}
