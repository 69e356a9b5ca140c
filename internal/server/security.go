package server

import (
	"log"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"
)

const (
	rateLimitCleanupInterval = 5 * time.Minute
	rateLimitIdleExpiry      = 10 * time.Minute

	// 超速警告达到该次数后断开连接
	maxMessageWarnings = 5
)

// RateLimiter 按 IP 限制建连速率，超限后封禁一段时间
type RateLimiter struct {
	requests map[string]*clientRate
	mu       sync.Mutex

	maxPerSecond int
	maxPerMinute int
	banDuration  time.Duration

	now      func() time.Time
	stopCh   chan struct{}
	stopOnce sync.Once
}

type clientRate struct {
	secondCount int
	minuteCount int
	lastSecond  time.Time
	lastMinute  time.Time
	bannedUntil time.Time
}

// NewRateLimiter 创建速率限制器并启动后台清理
func NewRateLimiter(maxPerSecond, maxPerMinute int, banDuration time.Duration) *RateLimiter {
	rl := newRateLimiter(maxPerSecond, maxPerMinute, banDuration, time.Now)
	go rl.cleanupLoop(rateLimitCleanupInterval)
	return rl
}

func newRateLimiter(maxPerSecond, maxPerMinute int, banDuration time.Duration, now func() time.Time) *RateLimiter {
	return &RateLimiter{
		requests:     make(map[string]*clientRate),
		maxPerSecond: maxPerSecond,
		maxPerMinute: maxPerMinute,
		banDuration:  banDuration,
		now:          now,
		stopCh:       make(chan struct{}),
	}
}

// Allow 记录一次请求并返回是否放行
func (rl *RateLimiter) Allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	rate, ok := rl.requests[ip]
	if !ok {
		rl.requests[ip] = &clientRate{secondCount: 1, minuteCount: 1, lastSecond: now, lastMinute: now}
		return true
	}

	if now.Before(rate.bannedUntil) {
		return false
	}

	if now.Sub(rate.lastSecond) >= time.Second {
		rate.secondCount = 0
		rate.lastSecond = now
	}
	if now.Sub(rate.lastMinute) >= time.Minute {
		rate.minuteCount = 0
		rate.lastMinute = now
	}

	rate.secondCount++
	rate.minuteCount++

	if rate.secondCount > rl.maxPerSecond || rate.minuteCount > rl.maxPerMinute {
		rate.bannedUntil = now.Add(rl.banDuration)
		log.Printf("⚠️ IP %s 建连过于频繁，封禁 %v", ip, rl.banDuration)
		return false
	}
	return true
}

// IsBanned 检查 IP 是否处于封禁期
func (rl *RateLimiter) IsBanned(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rate, ok := rl.requests[ip]
	return ok && rl.now().Before(rate.bannedUntil)
}

// Len 当前跟踪的 IP 数量
func (rl *RateLimiter) Len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.requests)
}

// Stop 停止后台清理
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stopCh) })
}

func (rl *RateLimiter) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stopCh:
			return
		case <-ticker.C:
			rl.prune()
		}
	}
}

// prune 删除长时间没有请求且未被封禁的记录
func (rl *RateLimiter) prune() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	for ip, rate := range rl.requests {
		if now.Sub(rate.lastMinute) > rateLimitIdleExpiry && now.After(rate.bannedUntil) {
			delete(rl.requests, ip)
		}
	}
}

// --- 来源验证 ---

// OriginChecker 校验 WebSocket 握手的 Origin
type OriginChecker struct {
	allowed  map[string]bool
	allowAll bool
}

// NewOriginChecker 创建来源验证器，列表为空或含 "*" 时放行所有来源
func NewOriginChecker(origins []string) *OriginChecker {
	oc := &OriginChecker{allowed: make(map[string]bool)}
	if len(origins) == 0 {
		oc.allowAll = true
		return oc
	}
	for _, origin := range origins {
		origin = strings.TrimSpace(origin)
		if origin == "*" {
			oc.allowAll = true
			return oc
		}
		if origin != "" {
			oc.allowed[strings.ToLower(origin)] = true
		}
	}
	return oc
}

// Check 可直接作为 websocket.Upgrader.CheckOrigin 使用
func (oc *OriginChecker) Check(r *http.Request) bool {
	if oc.allowAll {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" {
		// 非浏览器客户端
		return true
	}
	return oc.allowed[strings.ToLower(origin)]
}

// --- IP 白名单/黑名单 ---

// IPFilter IP 过滤器，黑名单优先于白名单。创建后只读。
type IPFilter struct {
	whitelist map[string]bool
	blacklist map[string]bool
}

// NewIPFilter 从配置的名单创建 IP 过滤器，空白项被忽略
func NewIPFilter(whitelist, blacklist []string) *IPFilter {
	return &IPFilter{
		whitelist: ipSet(whitelist),
		blacklist: ipSet(blacklist),
	}
}

func ipSet(ips []string) map[string]bool {
	set := make(map[string]bool, len(ips))
	for _, ip := range ips {
		if ip = strings.TrimSpace(ip); ip != "" {
			set[ip] = true
		}
	}
	return set
}

// IsAllowed 检查 IP 是否允许连接
func (f *IPFilter) IsAllowed(ip string) bool {
	if f.blacklist[ip] {
		return false
	}
	if len(f.whitelist) > 0 && !f.whitelist[ip] {
		return false
	}
	return true
}

// GetClientIP 获取客户端真实 IP，优先读取代理头
func GetClientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		return strings.TrimSpace(first)
	}
	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return realIP
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// --- 消息速率限制 ---

// MessageRateLimiter 单连接消息速率限制
type MessageRateLimiter struct {
	limits map[string]*messageRate
	mu     sync.Mutex

	maxPerSecond     int
	warningThreshold int
	now              func() time.Time
}

type messageRate struct {
	count     int
	lastReset time.Time
	warnings  int
}

// NewMessageRateLimiter 创建消息速率限制器
func NewMessageRateLimiter(maxPerSecond int) *MessageRateLimiter {
	return &MessageRateLimiter{
		limits:           make(map[string]*messageRate),
		maxPerSecond:     maxPerSecond,
		warningThreshold: maxPerSecond / 2,
		now:              time.Now,
	}
}

// AllowMessage 记录一条消息，返回是否放行以及是否接近上限
func (ml *MessageRateLimiter) AllowMessage(clientID string) (allowed, warning bool) {
	ml.mu.Lock()
	defer ml.mu.Unlock()

	now := ml.now()
	rate, ok := ml.limits[clientID]
	if !ok {
		ml.limits[clientID] = &messageRate{count: 1, lastReset: now}
		return true, false
	}

	if now.Sub(rate.lastReset) >= time.Second {
		rate.count = 1
		rate.lastReset = now
		return true, false
	}

	rate.count++
	if rate.count > ml.maxPerSecond {
		rate.warnings++
		return false, true
	}
	return true, rate.count > ml.warningThreshold
}

// ShouldDisconnect 超速次数过多
func (ml *MessageRateLimiter) ShouldDisconnect(clientID string) bool {
	return ml.GetWarningCount(clientID) > maxMessageWarnings
}

// GetWarningCount 获取超速次数
func (ml *MessageRateLimiter) GetWarningCount(clientID string) int {
	ml.mu.Lock()
	defer ml.mu.Unlock()

	if rate, ok := ml.limits[clientID]; ok {
		return rate.warnings
	}
	return 0
}

// RemoveClient 连接断开时移除记录
func (ml *MessageRateLimiter) RemoveClient(clientID string) {
	ml.mu.Lock()
	defer ml.mu.Unlock()
	delete(ml.limits, clientID)
}
