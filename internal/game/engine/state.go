package engine

// Phase 会话阶段
type Phase int

const (
	PhaseLobby Phase = iota
	PhaseActive
	PhaseFinished // 已有人获胜，仍可继续掷骰
)

func (p Phase) String() string {
	switch p {
	case PhaseLobby:
		return "lobby"
	case PhaseActive:
		return "active"
	case PhaseFinished:
		return "finished"
	default:
		return "unknown"
	}
}
