package session

import (
	"log"
	"time"

	"github.com/palemoky/dice-quest/internal/game/engine"
	"github.com/palemoky/dice-quest/internal/protocol"
	"github.com/palemoky/dice-quest/internal/protocol/codec"
	"github.com/palemoky/dice-quest/internal/types"
)

// PlayerDisconnected 连接断开：标记玩家离线，全部离线时回收会话。房主不转移。
func (sm *SessionManager) PlayerDisconnected(client types.ClientInterface) {
	sm.leave(client, client.GetSession(), client.GetPlayerID())
}

// leave 解除连接与会话中玩家的绑定并标记该玩家离线，调用方不能持有任何会话锁
func (sm *SessionManager) leave(client types.ClientInterface, code, playerID string) {
	if code == "" || playerID == "" {
		return
	}

	s, ok := sm.lockSession(code)
	if !ok {
		return
	}
	if s.clients[playerID] != client {
		s.mu.Unlock()
		return
	}
	delete(s.clients, playerID)

	allInactive, err := s.game.MarkInactive(playerID)
	if err != nil {
		s.mu.Unlock()
		return
	}

	if allInactive {
		s.closed = true
		s.mu.Unlock()
		sm.removeSession(code, s)
		log.Printf("🧹 会话 %s 所有玩家已离开，清理会话", code)
		return
	}

	s.touchLocked()
	s.broadcastStateLocked()
	sm.persistLocked(s)
	s.mu.Unlock()

	log.Printf("📴 玩家 %s 离开会话 %s", client.GetName(), code)
}

// removeSession 从注册表删除会话并取消其待执行任务
func (sm *SessionManager) removeSession(code string, s *Session) {
	sm.mu.Lock()
	if sm.sessions[code] == s {
		delete(sm.sessions, code)
	}
	sm.mu.Unlock()

	sm.scheduler.cancel(code)
	sm.forget(code)
}

// cleanupLoop 定期回收空闲会话
func (sm *SessionManager) cleanupLoop() {
	ticker := time.NewTicker(sm.opts.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			sm.cleanup()
		case <-sm.stopCh:
			return
		}
	}
}

// cleanup 回收超过空闲时间的会话
func (sm *SessionManager) cleanup() {
	if sm.opts.IdleTimeout <= 0 {
		return
	}

	sm.mu.Lock()
	defer sm.mu.Unlock()

	now := time.Now()
	for code, s := range sm.sessions {
		s.mu.Lock()
		if now.Sub(s.lastActive) <= sm.opts.IdleTimeout {
			s.mu.Unlock()
			continue
		}

		s.closed = true
		s.broadcastLocked(codec.NewErrorMessageWithText(protocol.ErrCodeSessionNotFound, "Game expired"))
		for _, c := range s.clients {
			if c.GetSession() == code {
				c.SetSession("")
				c.SetPlayerID("")
			}
		}
		s.mu.Unlock()

		delete(sm.sessions, code)
		sm.scheduler.cancel(code)
		sm.forget(code)
		log.Printf("🕰️ 会话 %s 空闲超时已回收", code)
	}
}

// GetSessionCount 会话总数
func (sm *SessionManager) GetSessionCount() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.sessions)
}

// GetActiveGamesCount 获取进行中（已开始且未分胜负）的会话数量
func (sm *SessionManager) GetActiveGamesCount() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	count := 0
	for _, s := range sm.sessions {
		s.mu.Lock()
		if s.game.Phase() == engine.PhaseActive {
			count++
		}
		s.mu.Unlock()
	}
	return count
}

// PendingMoves 待结算的移动数量
func (sm *SessionManager) PendingMoves() int {
	return sm.scheduler.pending()
}

// Shutdown 停止清理协程、取消所有待结算移动并等待持久化队列清空
func (sm *SessionManager) Shutdown() {
	sm.stopOnce.Do(func() {
		close(sm.stopCh)
		sm.scheduler.stop()
		sm.persister.close()
		log.Println("🛑 会话管理器已停止")
	})
}
