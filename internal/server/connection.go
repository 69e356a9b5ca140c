package server

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/palemoky/dice-quest/internal/protocol"
	"github.com/palemoky/dice-quest/internal/protocol/codec"
)

// HealthStatus /health 响应
type HealthStatus struct {
	Status      string `json:"status"`
	Online      int    `json:"online"`
	Sessions    int    `json:"sessions"`
	ActiveGames int    `json:"activeGames"`
	Maintenance bool   `json:"maintenance"`
	Redis       string `json:"redis"` // ok / disabled / 错误信息
}

// handleWebSocket 处理 WebSocket 连接
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	clientIP := GetClientIP(r)

	// 维护模式检查（最优先）
	if s.IsMaintenanceMode() {
		log.Printf("🔧 维护模式，拒绝新连接: %s", clientIP)
		http.Error(w, "Server is under maintenance, please try again later", http.StatusServiceUnavailable)
		return
	}

	if !s.ipFilter.IsAllowed(clientIP) {
		log.Printf("🚫 IP %s 被过滤器拒绝", clientIP)
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	if !s.originChecker.Check(r) {
		log.Printf("🚫 来源验证失败: %s (IP: %s)", r.Header.Get("Origin"), clientIP)
		http.Error(w, "Origin not allowed", http.StatusForbidden)
		return
	}

	if !s.rateLimiter.Allow(clientIP) {
		log.Printf("🚫 IP %s 请求过于频繁", clientIP)
		http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
		return
	}

	// 连接数限制，信号量在连接断开时释放
	select {
	case s.semaphore <- struct{}{}:
	default:
		log.Printf("🚫 达到最大连接数限制 (%d), IP: %s", s.maxConnections, clientIP)
		http.Error(w, "Server Full", http.StatusServiceUnavailable)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		<-s.semaphore
		log.Printf("WebSocket 升级失败: %v", err)
		return
	}

	client := NewClient(s, conn, clientIP)
	s.registerClient(client)

	client.SendMessage(codec.MustNewMessage(protocol.MsgConnected, protocol.ConnectedPayload{
		ConnectionID: client.ID,
	}))

	log.Printf("✅ 连接 %s 已建立 (IP: %s)", client.ID, clientIP)

	go client.ReadPump()
	go client.WritePump()
}

// handleHealth 健康检查接口
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := HealthStatus{
		Status:      "ok",
		Online:      s.GetOnlineCount(),
		Sessions:    s.sessionManager.GetSessionCount(),
		ActiveGames: s.sessionManager.GetActiveGamesCount(),
		Maintenance: s.IsMaintenanceMode(),
		Redis:       "disabled",
	}

	code := http.StatusOK
	if s.redisStore.Enabled() {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.redisStore.Ping(ctx); err != nil {
			status.Status = "degraded"
			status.Redis = err.Error()
			code = http.StatusServiceUnavailable
		} else {
			status.Redis = "ok"
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(status)
}

// registerClient 注册客户端
func (s *Server) registerClient(client *Client) {
	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()
	s.clients[client.ID] = client
}

// unregisterClient 注销客户端并释放连接名额
func (s *Server) unregisterClient(client *Client) {
	s.clientsMu.Lock()
	_, ok := s.clients[client.ID]
	delete(s.clients, client.ID)
	s.clientsMu.Unlock()

	if ok {
		<-s.semaphore
		log.Printf("❌ 连接 %s 已断开", client.ID)
	}
}
