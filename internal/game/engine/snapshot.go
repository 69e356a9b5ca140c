package engine

import (
	"github.com/palemoky/dice-quest/internal/game/board"
	"github.com/palemoky/dice-quest/internal/game/player"
)

// State 会话快照，值拷贝，可以在锁外读取
type State struct {
	Code        string
	Phase       Phase
	Players     []player.Player
	IsStarted   bool
	MaxPlayers  int
	CurrentTurn string
	Board       []board.Space
	PendingRoll *int
	WinnerID    string
}

// Snapshot 复制当前完整状态
func (g *Game) Snapshot() State {
	s := State{
		Code:        g.Code,
		Phase:       g.phase,
		Players:     make([]player.Player, len(g.Players)),
		IsStarted:   g.started,
		MaxPlayers:  g.MaxPlayers,
		CurrentTurn: g.CurrentTurn,
		Board:       make([]board.Space, len(g.Board)),
		WinnerID:    g.winnerID,
	}
	for i, p := range g.Players {
		s.Players[i] = *p
	}
	copy(s.Board, g.Board)
	if g.PendingRoll != nil {
		roll := *g.PendingRoll
		s.PendingRoll = &roll
	}
	return s
}
