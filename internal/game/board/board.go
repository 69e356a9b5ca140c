// Package board 生成赛道棋盘：长度固定的线性格子序列，每格带类型与属性。
package board

import "math/rand/v2"

// BoardSize 棋盘格子数（逻辑上是 6×6，与前端布局无关）
const BoardSize = 36

// 格子类型累计权重
const (
	weightNormal   = 0.40
	weightTreasure = 0.60
	weightTrap     = 0.75
	weightPowerUp  = 0.90
)

// Kind 格子类型
type Kind int

const (
	KindNormal Kind = iota
	KindTreasure
	KindTrap
	KindPowerUp
	KindChallenge // 占位类型，没有结算逻辑
)

func (k Kind) String() string {
	switch k {
	case KindNormal:
		return "normal"
	case KindTreasure:
		return "treasure"
	case KindTrap:
		return "trap"
	case KindPowerUp:
		return "powerup"
	case KindChallenge:
		return "challenge"
	default:
		return "unknown"
	}
}

// Effect 道具格效果
type Effect int

const (
	EffectNone Effect = iota
	EffectExtraTurn
	EffectKnockbackNext
	EffectTrapShield
)

func (e Effect) String() string {
	switch e {
	case EffectExtraTurn:
		return "extraTurn"
	case EffectKnockbackNext:
		return "knockbackNext"
	case EffectTrapShield:
		return "trapShield"
	default:
		return ""
	}
}

var (
	treasurePoints = []int{10, 20, 30}
	trapPoints     = []int{-10, -20}
	powerUpEffects = []Effect{EffectExtraTurn, EffectKnockbackNext, EffectTrapShield}
)

// Space 棋盘格子
type Space struct {
	Index  int
	Kind   Kind
	Points *int   // 仅宝藏与陷阱有分值
	Effect Effect // 仅道具格有效果
}

// HasPoints 是否带分值
func (s Space) HasPoints() bool {
	return s.Points != nil
}

// RNG 棋盘与骰子使用的随机源，*rand.Rand 即满足
type RNG interface {
	Float64() float64
	IntN(n int) int
}

// Generate 生成一张新棋盘。首尾格固定为普通格。
func Generate(rng RNG) []Space {
	spaces := make([]Space, BoardSize)
	for i := range spaces {
		if i == 0 || i == BoardSize-1 {
			spaces[i] = Space{Index: i, Kind: KindNormal}
			continue
		}
		spaces[i] = randomSpace(rng, i)
	}
	return spaces
}

func randomSpace(rng RNG, index int) Space {
	s := Space{Index: index, Kind: classify(rng.Float64())}

	switch s.Kind {
	case KindTreasure:
		p := treasurePoints[rng.IntN(len(treasurePoints))]
		s.Points = &p
	case KindTrap:
		p := trapPoints[rng.IntN(len(trapPoints))]
		s.Points = &p
	case KindPowerUp:
		s.Effect = powerUpEffects[rng.IntN(len(powerUpEffects))]
	}
	return s
}

func classify(r float64) Kind {
	switch {
	case r < weightNormal:
		return KindNormal
	case r < weightTreasure:
		return KindTreasure
	case r < weightTrap:
		return KindTrap
	case r < weightPowerUp:
		return KindPowerUp
	default:
		return KindChallenge
	}
}

// Clamp 将位置限制在棋盘范围内
func Clamp(pos int) int {
	return min(max(pos, 0), BoardSize-1)
}

// NewRand 以两个种子创建 PCG 随机源
func NewRand(seed1, seed2 uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed1, seed2))
}
