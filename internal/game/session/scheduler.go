package session

import (
	"sync"
	"time"
)

// moveTask 延迟结算任务，按值捕获调度时的会话、玩家与点数
type moveTask struct {
	code     string
	playerID string
	roll     int
}

// moveScheduler 按会话码管理延迟结算定时器，每个会话最多一个
type moveScheduler struct {
	delay   time.Duration
	run     func(moveTask)
	timers  map[string]*time.Timer
	stopped bool
	mu      sync.Mutex
}

func newMoveScheduler(delay time.Duration, run func(moveTask)) *moveScheduler {
	return &moveScheduler{
		delay:  delay,
		run:    run,
		timers: make(map[string]*time.Timer),
	}
}

// schedule 在 delay 后执行任务，同一会话的旧任务被替换
func (ms *moveScheduler) schedule(task moveTask) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	if ms.stopped {
		return
	}
	if old, ok := ms.timers[task.code]; ok {
		old.Stop()
	}

	var t *time.Timer
	t = time.AfterFunc(ms.delay, func() {
		ms.mu.Lock()
		if ms.timers[task.code] != t {
			ms.mu.Unlock()
			return
		}
		delete(ms.timers, task.code)
		ms.mu.Unlock()

		ms.run(task)
	})
	ms.timers[task.code] = t
}

// cancel 取消会话的待执行任务
func (ms *moveScheduler) cancel(code string) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	if t, ok := ms.timers[code]; ok {
		t.Stop()
		delete(ms.timers, code)
	}
}

// stop 取消所有任务，之后的 schedule 调用被忽略
func (ms *moveScheduler) stop() {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	ms.stopped = true
	for code, t := range ms.timers {
		t.Stop()
		delete(ms.timers, code)
	}
}

// pending 待执行任务数
func (ms *moveScheduler) pending() int {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	return len(ms.timers)
}
