// Package session 管理所有进行中的会话。
//
// 每个 Session 有自己的互斥锁，所有变更和随后的快照广播都在锁内完成，
// 因此同一会话的广播顺序与变更顺序一致。不同会话之间互不加锁。
package session

import (
	cryptorand "crypto/rand"
	"encoding/binary"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/palemoky/dice-quest/internal/game/board"
	"github.com/palemoky/dice-quest/internal/game/engine"
	"github.com/palemoky/dice-quest/internal/protocol"
	"github.com/palemoky/dice-quest/internal/protocol/codec"
	"github.com/palemoky/dice-quest/internal/protocol/convert"
	"github.com/palemoky/dice-quest/internal/server/storage"
	"github.com/palemoky/dice-quest/internal/types"
)

const (
	sessionCodeLength = 6                                      // 会话码长度
	sessionCodeChars  = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789" // 会话码字符集
)

// Options 会话管理器参数
type Options struct {
	MaxPlayers      int
	RollDelay       time.Duration // 掷骰到结算的延迟
	IdleTimeout     time.Duration // 空闲回收时间，0 表示不回收
	CleanupInterval time.Duration
	// NewRNG 为每个会话创建随机源，为空时使用加密种子的 PCG
	NewRNG func() board.RNG
}

// Session 一个游戏会话
type Session struct {
	Code       string
	game       *engine.Game
	clients    map[string]types.ClientInterface // playerID -> 连接
	createdAt  time.Time
	lastActive time.Time
	closed     bool // 已被回收，持有旧指针的调用方据此放弃

	mu sync.Mutex
}

// Snapshot 加锁读取完整快照
func (s *Session) Snapshot() engine.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.game.Snapshot()
}

// broadcastLocked 向会话内所有连接发送消息，调用方需持有锁
func (s *Session) broadcastLocked(msg *protocol.Message) {
	for _, c := range s.clients {
		c.SendMessage(msg)
	}
}

// broadcastStateLocked 广播完整快照
func (s *Session) broadcastStateLocked() {
	s.broadcastLocked(codec.MustNewMessage(protocol.MsgGameState, convert.StateToPayload(s.game.Snapshot())))
}

// touchLocked 刷新活跃时间
func (s *Session) touchLocked() {
	s.lastActive = time.Now()
}

// SessionManager 会话管理器
type SessionManager struct {
	redisStore  *storage.RedisStore
	leaderboard *storage.LeaderboardManager
	opts        Options
	sessions    map[string]*Session
	scheduler   *moveScheduler
	persister   *persister

	stopCh   chan struct{}
	stopOnce sync.Once
	mu       sync.RWMutex
}

// NewSessionManager 创建会话管理器并启动清理协程
func NewSessionManager(rs *storage.RedisStore, lb *storage.LeaderboardManager, opts Options) *SessionManager {
	if opts.MaxPlayers <= 0 {
		opts.MaxPlayers = engine.DefaultMaxPlayers
	}
	if opts.RollDelay <= 0 {
		opts.RollDelay = time.Second
	}
	if opts.CleanupInterval <= 0 {
		opts.CleanupInterval = time.Minute
	}
	if opts.NewRNG == nil {
		opts.NewRNG = newSessionRand
	}

	sm := &SessionManager{
		redisStore:  rs,
		leaderboard: lb,
		opts:        opts,
		sessions:    make(map[string]*Session),
		persister:   newPersister(),
		stopCh:      make(chan struct{}),
	}
	sm.scheduler = newMoveScheduler(opts.RollDelay, sm.resolveMove)

	go sm.cleanupLoop()

	return sm
}

// GetSession 获取会话
func (sm *SessionManager) GetSession(code string) *Session {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.sessions[code]
}

// lockSession 取出会话并加锁，会话不存在或已回收时返回 false
func (sm *SessionManager) lockSession(code string) (*Session, bool) {
	s := sm.GetSession(code)
	if s == nil {
		return nil, false
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, false
	}
	return s, true
}

// generateSessionCode 生成会话码，调用方需持有 sm.mu
func (sm *SessionManager) generateSessionCode() string {
	for {
		code := make([]byte, sessionCodeLength)
		for i := range code {
			code[i] = sessionCodeChars[rand.IntN(len(sessionCodeChars))]
		}
		codeStr := string(code)
		if _, exists := sm.sessions[codeStr]; !exists {
			return codeStr
		}
	}
}

// newSessionRand 以加密随机种子创建 PCG
func newSessionRand() board.RNG {
	var seed [16]byte
	_, _ = cryptorand.Read(seed[:])
	return rand.New(rand.NewPCG(
		binary.LittleEndian.Uint64(seed[:8]),
		binary.LittleEndian.Uint64(seed[8:]),
	))
}
