package effect

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/palemoky/dice-quest/internal/game/board"
	"github.com/palemoky/dice-quest/internal/game/player"
)

func points(n int) *int { return &n }

func roster(n int) []*player.Player {
	ps := make([]*player.Player, n)
	for i := range ps {
		ps[i] = player.New("p", i == 0)
	}
	return ps
}

func TestResolve(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		shield bool
		space  board.Space
		want   func(ps []*player.Player) Outcome
	}{
		{
			name:  "treasure adds points",
			space: board.Space{Kind: board.KindTreasure, Points: points(20)},
			want:  func([]*player.Player) Outcome { return Outcome{ScoreDelta: 20} },
		},
		{
			name:  "trap without shield",
			space: board.Space{Kind: board.KindTrap, Points: points(-10)},
			want:  func([]*player.Player) Outcome { return Outcome{ScoreDelta: -10} },
		},
		{
			name:   "trap with shield",
			shield: true,
			space:  board.Space{Kind: board.KindTrap, Points: points(-20)},
			want:   func([]*player.Player) Outcome { return Outcome{ShieldConsumed: true} },
		},
		{
			name:   "shield ignored on treasure",
			shield: true,
			space:  board.Space{Kind: board.KindTreasure, Points: points(10)},
			want:   func([]*player.Player) Outcome { return Outcome{ScoreDelta: 10} },
		},
		{
			name:  "extra turn",
			space: board.Space{Kind: board.KindPowerUp, Effect: board.EffectExtraTurn},
			want:  func([]*player.Player) Outcome { return Outcome{GrantsExtraTurn: true} },
		},
		{
			name:  "trap shield granted",
			space: board.Space{Kind: board.KindPowerUp, Effect: board.EffectTrapShield},
			want:  func([]*player.Player) Outcome { return Outcome{ShieldGranted: true} },
		},
		{
			name:  "knockback targets next player",
			space: board.Space{Kind: board.KindPowerUp, Effect: board.EffectKnockbackNext},
			want: func(ps []*player.Player) Outcome {
				return Outcome{DisplacedPlayerID: ps[1].ID, DisplacementDelta: -2}
			},
		},
		{
			name:  "challenge does nothing",
			space: board.Space{Kind: board.KindChallenge},
			want:  func([]*player.Player) Outcome { return Outcome{} },
		},
		{
			name:  "normal does nothing",
			space: board.Space{Kind: board.KindNormal},
			want:  func([]*player.Player) Outcome { return Outcome{} },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ps := roster(3)
			ps[0].HasTrapShield = tt.shield
			assert.Equal(t, tt.want(ps), Resolve(ps, 0, tt.space))
		})
	}
}

func TestResolve_KnockbackWraps(t *testing.T) {
	t.Parallel()

	ps := roster(3)
	out := Resolve(ps, 2, board.Space{Kind: board.KindPowerUp, Effect: board.EffectKnockbackNext})
	assert.Equal(t, ps[0].ID, out.DisplacedPlayerID)
}

func TestApply_ShieldAbsorbsTrap(t *testing.T) {
	t.Parallel()

	ps := roster(2)
	ps[0].Score = 50
	ps[0].HasTrapShield = true

	trap := board.Space{Kind: board.KindTrap, Points: points(-10)}
	Apply(ps, 0, Resolve(ps, 0, trap))

	assert.Equal(t, 50, ps[0].Score)
	assert.False(t, ps[0].HasTrapShield)
}

func TestApply_Knockback(t *testing.T) {
	t.Parallel()

	knock := board.Space{Kind: board.KindPowerUp, Effect: board.EffectKnockbackNext}

	ps := roster(2)
	ps[0].Position = 2
	ps[1].Position = 5
	Apply(ps, 0, Resolve(ps, 0, knock))
	assert.Equal(t, 3, ps[1].Position)
	assert.Equal(t, 2, ps[0].Position)

	ps[1].Position = 1
	Apply(ps, 0, Resolve(ps, 0, knock))
	assert.Equal(t, 0, ps[1].Position)
}

func TestApply_SoloKnockbackHitsSelf(t *testing.T) {
	t.Parallel()

	ps := roster(1)
	ps[0].Position = 10
	Apply(ps, 0, Resolve(ps, 0, board.Space{Kind: board.KindPowerUp, Effect: board.EffectKnockbackNext}))
	assert.Equal(t, 8, ps[0].Position)
}

func TestApply_NegativeScoreUnbounded(t *testing.T) {
	t.Parallel()

	ps := roster(1)
	Apply(ps, 0, Resolve(ps, 0, board.Space{Kind: board.KindTrap, Points: points(-20)}))
	Apply(ps, 0, Resolve(ps, 0, board.Space{Kind: board.KindTrap, Points: points(-20)}))
	assert.Equal(t, -40, ps[0].Score)
}
