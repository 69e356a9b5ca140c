// Package engine 实现单个会话的回合状态机。
//
// Game 不是并发安全的，调用方需要持有会话锁。
package engine

import (
	"github.com/palemoky/dice-quest/internal/apperrors"
	"github.com/palemoky/dice-quest/internal/game/board"
	"github.com/palemoky/dice-quest/internal/game/effect"
	"github.com/palemoky/dice-quest/internal/game/player"
)

const (
	DefaultMaxPlayers = 6
	WinScore          = 100
	diceFaces         = 6
)

// Options 创建会话的参数
type Options struct {
	MaxPlayers int
	RNG        board.RNG // 棋盘与骰子共用
}

// Game 会话状态
type Game struct {
	Code        string
	Players     []*player.Player // 加入顺序即回合顺序
	MaxPlayers  int
	Board       []board.Space // 开始前为空
	CurrentTurn string
	PendingRoll *int

	phase    Phase
	started  bool
	winnerID string
	rng      board.RNG
}

// MoveResult 一次移动结算的结果
type MoveResult struct {
	PlayerID string
	Roll     int
	From     int
	To       int
	Moved    bool
	Space    board.Space
	Outcome  effect.Outcome
	WinnerID string
	FirstWin bool // 本次结算首次产生胜者
}

// New 创建会话，房主自动准备
func New(code, hostName string, opts Options) (*Game, *player.Player) {
	if opts.MaxPlayers <= 0 {
		opts.MaxPlayers = DefaultMaxPlayers
	}
	host := player.New(hostName, true)
	g := &Game{
		Code:       code,
		Players:    []*player.Player{host},
		MaxPlayers: opts.MaxPlayers,
		Board:      []board.Space{},
		phase:      PhaseLobby,
		rng:        opts.RNG,
	}
	return g, host
}

// Phase 当前阶段
func (g *Game) Phase() Phase {
	return g.phase
}

// IsStarted 是否已开始
func (g *Game) IsStarted() bool {
	return g.started
}

// WinnerID 首位胜者，未产生时为空
func (g *Game) WinnerID() string {
	return g.winnerID
}

// Join 加入会话。开始后仍允许加入，新玩家从起点出发。
func (g *Game) Join(name string) (*player.Player, error) {
	if len(g.Players) >= g.MaxPlayers {
		return nil, apperrors.ErrSessionFull
	}
	p := player.New(name, false)
	g.Players = append(g.Players, p)
	return p, nil
}

// ToggleReady 切换准备状态
func (g *Game) ToggleReady(playerID string) error {
	idx := player.IndexOf(g.Players, playerID)
	if idx < 0 {
		return apperrors.ErrPlayerNotFound
	}
	g.Players[idx].IsReady = !g.Players[idx].IsReady
	return nil
}

// AllReady 所有玩家都已准备
func (g *Game) AllReady() bool {
	for _, p := range g.Players {
		if !p.IsReady {
			return false
		}
	}
	return true
}

// Start 开始游戏：生成棋盘，第一个加入的玩家先手
func (g *Game) Start() error {
	if g.started {
		return apperrors.ErrAlreadyStarted
	}
	if !g.AllReady() {
		return apperrors.ErrNotAllReady
	}

	g.Board = board.Generate(g.rng)
	g.CurrentTurn = g.Players[0].ID
	g.started = true
	g.phase = PhaseActive
	return nil
}

// RequestRoll 掷骰，结果暂存为待结算点数
func (g *Game) RequestRoll(playerID string) (int, error) {
	if !g.started {
		return 0, apperrors.ErrGameNotStarted
	}
	if g.CurrentTurn != playerID {
		return 0, apperrors.ErrNotYourTurn
	}
	if g.PendingRoll != nil {
		return 0, apperrors.ErrRollPending
	}

	roll := g.rng.IntN(diceFaces) + 1
	g.PendingRoll = &roll
	return roll, nil
}

// ResolveMove 结算延迟的移动。回合或点数与调度时不一致则不做任何修改。
func (g *Game) ResolveMove(playerID string, roll int) (MoveResult, error) {
	if g.CurrentTurn != playerID || g.PendingRoll == nil || *g.PendingRoll != roll {
		return MoveResult{}, apperrors.ErrStaleRoll
	}
	idx := player.IndexOf(g.Players, playerID)
	if idx < 0 {
		return MoveResult{}, apperrors.ErrStaleRoll
	}

	actor := g.Players[idx]
	res := MoveResult{
		PlayerID: playerID,
		Roll:     roll,
		From:     actor.Position,
		To:       board.Clamp(actor.Position + roll),
	}
	g.PendingRoll = nil

	if res.To == res.From {
		g.advance(idx)
	} else {
		actor.Position = res.To
		res.Moved = true
		res.Space = g.Board[res.To]
		res.Outcome = effect.Resolve(g.Players, idx, res.Space)
		effect.Apply(g.Players, idx, res.Outcome)
		// 掉线玩家不保留额外回合
		if !res.Outcome.GrantsExtraTurn || !actor.Active {
			g.advance(idx)
		}
	}

	if winner, ok := g.CheckWinner(); ok {
		res.WinnerID = winner
		if g.winnerID == "" {
			g.winnerID = winner
			g.phase = PhaseFinished
			res.FirstWin = true
		}
	}
	return res, nil
}

// CheckWinner 按名单顺序返回第一个到达终点或分数达标的玩家
func (g *Game) CheckWinner() (string, bool) {
	for _, p := range g.Players {
		if p.Position == board.BoardSize-1 || p.Score >= WinScore {
			return p.ID, true
		}
	}
	return "", false
}

// MarkInactive 标记玩家断线。轮到该玩家且没有待结算骰子时直接跳过。
// 返回是否所有玩家都已断线。
func (g *Game) MarkInactive(playerID string) (allInactive bool, err error) {
	idx := player.IndexOf(g.Players, playerID)
	if idx < 0 {
		return false, apperrors.ErrPlayerNotFound
	}
	g.Players[idx].Active = false

	if g.started && g.CurrentTurn == playerID && g.PendingRoll == nil {
		g.advance(idx)
	}

	for _, p := range g.Players {
		if p.Active {
			return false, nil
		}
	}
	return true, nil
}

// advance 轮到下一个在线玩家，全部断线时退化为简单的下一位
func (g *Game) advance(from int) {
	n := len(g.Players)
	for step := 1; step <= n; step++ {
		next := g.Players[(from+step)%n]
		if next.Active {
			g.CurrentTurn = next.ID
			return
		}
	}
	g.CurrentTurn = g.Players[(from+1)%n].ID
}
