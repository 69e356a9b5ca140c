// Package player 定义会话内的玩家棋子状态。
package player

import "github.com/google/uuid"

// Player 会话中的玩家
type Player struct {
	ID            string
	DisplayName   string
	IsHost        bool
	IsReady       bool
	Position      int
	Score         int
	HasTrapShield bool
	Active        bool // 连接是否仍在线
}

// New 创建玩家，ID 在会话内唯一
func New(displayName string, isHost bool) *Player {
	return &Player{
		ID:          uuid.New().String(),
		DisplayName: displayName,
		IsHost:      isHost,
		IsReady:     isHost, // 房主自动准备
		Active:      true,
	}
}

// IndexOf 按 ID 查找玩家在名单中的下标，找不到返回 -1
func IndexOf(players []*Player, id string) int {
	for i, p := range players {
		if p.ID == id {
			return i
		}
	}
	return -1
}
