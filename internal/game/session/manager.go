package session

import (
	"context"
	"log"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/palemoky/dice-quest/internal/apperrors"
	"github.com/palemoky/dice-quest/internal/game/engine"
	"github.com/palemoky/dice-quest/internal/protocol"
	"github.com/palemoky/dice-quest/internal/protocol/codec"
	"github.com/palemoky/dice-quest/internal/telemetry"
	"github.com/palemoky/dice-quest/internal/types"
)

func startSpan(ctx context.Context, name, code string) (context.Context, trace.Span) {
	ctx, span := telemetry.Tracer().Start(ctx, name)
	if code != "" {
		span.SetAttributes(attribute.String("session.code", code))
	}
	return ctx, span
}

func endSpan(span trace.Span, err error) {
	if err != nil && !apperrors.IsSilent(err) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// bindLocked 把连接绑定到会话中的玩家。连接原先所在的会话由调用方在解锁后通过 leave 解绑。
func (s *Session) bindLocked(client types.ClientInterface, playerID, displayName string) {
	s.clients[playerID] = client
	client.SetSession(s.Code)
	client.SetPlayerID(playerID)
	client.SetName(displayName)
	client.SendMessage(codec.MustNewMessage(protocol.MsgPlayerID, playerID))
}

// CreateGame 创建会话，创建者成为房主
func (sm *SessionManager) CreateGame(ctx context.Context, client types.ClientInterface, displayName string) (code, playerID string, err error) {
	_, span := startSpan(ctx, "session.CreateGame", "")
	defer func() { endSpan(span, err) }()

	prevCode, prevPlayerID := client.GetSession(), client.GetPlayerID()

	sm.mu.Lock()
	code = sm.generateSessionCode()
	game, host := engine.New(code, displayName, engine.Options{
		MaxPlayers: sm.opts.MaxPlayers,
		RNG:        sm.opts.NewRNG(),
	})
	now := time.Now()
	s := &Session{
		Code:       code,
		game:       game,
		clients:    make(map[string]types.ClientInterface),
		createdAt:  now,
		lastActive: now,
	}
	sm.sessions[code] = s
	s.mu.Lock()
	sm.mu.Unlock()

	s.bindLocked(client, host.ID, displayName)
	s.broadcastStateLocked()
	sm.persistLocked(s)
	s.mu.Unlock()

	sm.leave(client, prevCode, prevPlayerID)

	span.SetAttributes(attribute.String("session.code", code))
	log.Printf("🎲 会话 %s 已创建，房主 %s", code, displayName)

	return code, host.ID, nil
}

// JoinGame 加入会话
func (sm *SessionManager) JoinGame(ctx context.Context, client types.ClientInterface, code, displayName string) (playerID string, err error) {
	_, span := startSpan(ctx, "session.JoinGame", code)
	defer func() { endSpan(span, err) }()

	s, ok := sm.lockSession(code)
	if !ok {
		return "", apperrors.ErrSessionNotFound
	}

	p, err := s.game.Join(displayName)
	if err != nil {
		s.mu.Unlock()
		return "", err
	}

	prevCode, prevPlayerID := client.GetSession(), client.GetPlayerID()
	s.touchLocked()
	s.bindLocked(client, p.ID, displayName)
	s.broadcastStateLocked()
	sm.persistLocked(s)
	s.mu.Unlock()

	sm.leave(client, prevCode, prevPlayerID)

	log.Printf("👤 玩家 %s 加入会话 %s", displayName, code)

	return p.ID, nil
}

// ToggleReady 切换准备状态
func (sm *SessionManager) ToggleReady(ctx context.Context, code, playerID string) (err error) {
	_, span := startSpan(ctx, "session.ToggleReady", code)
	defer func() { endSpan(span, err) }()

	s, ok := sm.lockSession(code)
	if !ok {
		return apperrors.ErrSessionUnknown
	}
	defer s.mu.Unlock()

	if err := s.game.ToggleReady(playerID); err != nil {
		return err
	}

	s.touchLocked()
	s.broadcastStateLocked()
	sm.persistLocked(s)
	return nil
}

// StartGame 所有人准备后开始游戏
func (sm *SessionManager) StartGame(ctx context.Context, code string) (err error) {
	_, span := startSpan(ctx, "session.StartGame", code)
	defer func() { endSpan(span, err) }()

	s, ok := sm.lockSession(code)
	if !ok {
		return apperrors.ErrSessionUnknown
	}
	defer s.mu.Unlock()

	if err := s.game.Start(); err != nil {
		return err
	}

	s.touchLocked()
	s.broadcastStateLocked()
	s.broadcastLocked(codec.MustNewMessage(protocol.MsgGameStarted, nil))
	sm.persistLocked(s)

	log.Printf("🚀 会话 %s 开始游戏，%d 名玩家", code, len(s.game.Players))
	return nil
}

// RollDice 掷骰，广播带点数的中间状态，延迟后结算移动
func (sm *SessionManager) RollDice(ctx context.Context, code, playerID string) (err error) {
	_, span := startSpan(ctx, "session.RollDice", code)
	defer func() { endSpan(span, err) }()

	s, ok := sm.lockSession(code)
	if !ok {
		return apperrors.ErrSessionUnknown
	}
	defer s.mu.Unlock()

	roll, err := s.game.RequestRoll(playerID)
	if err != nil {
		return err
	}
	span.SetAttributes(attribute.Int("dice.roll", roll))

	s.touchLocked()
	s.broadcastStateLocked()
	sm.persistLocked(s)
	sm.scheduler.schedule(moveTask{code: code, playerID: playerID, roll: roll})
	return nil
}

// resolveMove 定时任务回调。会话已不存在或状态已变化时什么都不做。
func (sm *SessionManager) resolveMove(task moveTask) {
	_, span := startSpan(context.Background(), "session.ResolveMove", task.code)
	defer span.End()

	s, ok := sm.lockSession(task.code)
	if !ok {
		span.SetAttributes(attribute.Bool("move.dropped", true))
		return
	}
	defer s.mu.Unlock()

	res, err := s.game.ResolveMove(task.playerID, task.roll)
	if err != nil {
		span.SetAttributes(attribute.Bool("move.dropped", true))
		log.Printf("⏭️ 会话 %s 丢弃过期的移动 (玩家 %s, 点数 %d)", task.code, task.playerID, task.roll)
		return
	}
	span.SetAttributes(
		attribute.Int("move.from", res.From),
		attribute.Int("move.to", res.To),
		attribute.Int("move.score_delta", res.Outcome.ScoreDelta),
	)

	s.touchLocked()
	s.broadcastStateLocked()
	if res.WinnerID != "" {
		s.broadcastLocked(codec.MustNewMessage(protocol.MsgGameWon, protocol.GameWonPayload{WinnerID: res.WinnerID}))
	}
	sm.persistLocked(s)

	if res.FirstWin {
		sm.recordResultLocked(s, res.WinnerID)
		log.Printf("🏆 会话 %s 产生胜者 %s", task.code, res.WinnerID)
	}
}
