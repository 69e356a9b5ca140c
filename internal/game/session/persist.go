package session

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/palemoky/dice-quest/internal/logger"
	"github.com/palemoky/dice-quest/internal/protocol/convert"
	"github.com/palemoky/dice-quest/internal/server/storage"
)

const (
	persistQueueSize = 1024
	persistTimeout   = 2 * time.Second
)

// persister 单协程顺序执行 Redis 写入，保证同一会话的快照按变更顺序落盘
type persister struct {
	jobs   chan func(context.Context)
	done   chan struct{}
	closed bool
	mu     sync.Mutex
}

func newPersister() *persister {
	p := &persister{
		jobs: make(chan func(context.Context), persistQueueSize),
		done: make(chan struct{}),
	}
	go p.loop()
	return p
}

func (p *persister) loop() {
	defer close(p.done)
	for job := range p.jobs {
		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		job(ctx)
		cancel()
	}
}

// submit 提交任务，队列满或已关闭时丢弃
func (p *persister) submit(job func(context.Context)) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return false
	}
	select {
	case p.jobs <- job:
		return true
	default:
		log.Printf("⚠️ 持久化队列已满，丢弃任务")
		return false
	}
}

// close 等待已提交的任务执行完毕
func (p *persister) close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.jobs)
	p.mu.Unlock()

	<-p.done
}

// persistLocked 把当前快照写入 Redis，调用方需持有会话锁
func (sm *SessionManager) persistLocked(s *Session) {
	if !sm.redisStore.Enabled() {
		return
	}

	code := s.Code
	data := &storage.SessionData{
		State:     convert.StateToPayload(s.game.Snapshot()),
		WinnerID:  s.game.WinnerID(),
		UpdatedAt: time.Now().Unix(),
	}
	sm.persister.submit(func(ctx context.Context) {
		if err := sm.redisStore.SaveSession(ctx, code, data); err != nil {
			logger.LogError("保存会话 %s 快照失败: %v", code, err)
		}
	})
}

// forget 删除会话快照
func (sm *SessionManager) forget(code string) {
	if !sm.redisStore.Enabled() {
		return
	}
	sm.persister.submit(func(ctx context.Context) {
		if err := sm.redisStore.DeleteSession(ctx, code); err != nil {
			logger.LogError("删除会话 %s 快照失败: %v", code, err)
		}
	})
}

// recordResultLocked 首次产生胜者时为所有玩家记一局，胜者加一胜
func (sm *SessionManager) recordResultLocked(s *Session, winnerID string) {
	if sm.leaderboard == nil {
		return
	}

	type result struct {
		name   string
		winner bool
		score  int
	}
	results := make([]result, 0, len(s.game.Players))
	for _, p := range s.game.Players {
		results = append(results, result{name: p.DisplayName, winner: p.ID == winnerID, score: p.Score})
	}

	sm.persister.submit(func(ctx context.Context) {
		for _, r := range results {
			if err := sm.leaderboard.RecordGameResult(ctx, r.name, r.winner, r.score); err != nil {
				logger.LogError("记录 %s 的战绩失败: %v", r.name, err)
			}
		}
	})
}
