// Package effect 结算玩家落到某个格子时产生的效果。
//
// Resolve 只计算结果不修改状态，Apply 再把结果写回名单，方便单独测试两步。
package effect

import (
	"github.com/palemoky/dice-quest/internal/game/board"
	"github.com/palemoky/dice-quest/internal/game/player"
)

// KnockbackDistance 击退格数
const KnockbackDistance = 2

// Outcome 一次落地的结算结果
type Outcome struct {
	ScoreDelta        int
	ShieldConsumed    bool
	ShieldGranted     bool
	DisplacedPlayerID string // 为空表示没有人被击退
	DisplacementDelta int
	GrantsExtraTurn   bool
}

// Resolve 计算 actorIdx 号玩家落到 space 上的结果
func Resolve(players []*player.Player, actorIdx int, space board.Space) Outcome {
	var out Outcome
	actor := players[actorIdx]

	switch {
	case space.Kind == board.KindTrap && actor.HasTrapShield:
		// 护盾整体抵消陷阱
		out.ShieldConsumed = true
	case space.HasPoints():
		out.ScoreDelta = *space.Points
	}

	switch space.Effect {
	case board.EffectExtraTurn:
		out.GrantsExtraTurn = true
	case board.EffectKnockbackNext:
		next := players[(actorIdx+1)%len(players)]
		out.DisplacedPlayerID = next.ID
		out.DisplacementDelta = -KnockbackDistance
	case board.EffectTrapShield:
		out.ShieldGranted = true
	}

	return out
}

// Apply 将结果写回名单。被击退的玩家不会触发落地结算。
func Apply(players []*player.Player, actorIdx int, out Outcome) {
	actor := players[actorIdx]
	actor.Score += out.ScoreDelta

	if out.ShieldConsumed {
		actor.HasTrapShield = false
	}
	if out.ShieldGranted {
		actor.HasTrapShield = true
	}

	if out.DisplacedPlayerID == "" {
		return
	}
	if idx := player.IndexOf(players, out.DisplacedPlayerID); idx >= 0 {
		p := players[idx]
		p.Position = board.Clamp(p.Position + out.DisplacementDelta)
	}
}
