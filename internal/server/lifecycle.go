package server

import (
	"bytes"
	"context"
	"encoding/json"
	"log"
	"net/http"
	"runtime"
	"time"

	"github.com/palemoky/dice-quest/internal/logger"
	"github.com/palemoky/dice-quest/internal/protocol"
	"github.com/palemoky/dice-quest/internal/protocol/codec"
)

const (
	statsInterval  = 30 * time.Second
	webhookTimeout = 3 * time.Second
)

// monitorStats 定期输出服务器状态
func (s *Server) monitorStats() {
	ticker := time.NewTicker(statsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			var m runtime.MemStats
			runtime.ReadMemStats(&m)

			log.Printf("📊 [监控] 在线: %d | 会话: %d | 进行中: %d | 待结算: %d | Goroutines: %d | 连接: %d/%d | 内存: %.2f MB",
				s.GetOnlineCount(),
				s.sessionManager.GetSessionCount(),
				s.sessionManager.GetActiveGamesCount(),
				s.sessionManager.PendingMoves(),
				runtime.NumGoroutine(),
				len(s.semaphore),
				s.maxConnections,
				float64(m.Alloc)/1024/1024)
		}
	}
}

// EnterMaintenanceMode 进入维护模式：拒绝新连接和新游戏，通知尚未入局的连接
func (s *Server) EnterMaintenanceMode() {
	s.maintenanceMu.Lock()
	s.maintenanceMode = true
	s.maintenanceMu.Unlock()

	s.BroadcastToIdle(codec.MustNewMessage(protocol.MsgMaintenancePull, protocol.MaintenanceStatusPayload{
		Maintenance: true,
	}))

	log.Println("🔧 进入维护模式：停止新连接和游戏创建")
}

// IsMaintenanceMode 检查是否在维护模式
func (s *Server) IsMaintenanceMode() bool {
	s.maintenanceMu.RLock()
	defer s.maintenanceMu.RUnlock()
	return s.maintenanceMode
}

// GracefulShutdown 进入维护模式，等待进行中的游戏结束（最多 timeout），然后关闭
func (s *Server) GracefulShutdown(timeout time.Duration) {
	s.EnterMaintenanceMode()

	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(s.config.Game.ShutdownCheckIntervalDuration())
	defer ticker.Stop()

	for time.Now().Before(deadline) {
		active := s.sessionManager.GetActiveGamesCount()
		if active == 0 {
			log.Println("✅ 所有游戏已结束")
			break
		}
		log.Printf("⏳ 等待 %d 个游戏结束...", active)
		<-ticker.C
	}

	if active := s.sessionManager.GetActiveGamesCount(); active > 0 {
		log.Printf("⚠️ 超时，仍有 %d 个游戏进行中，强制关闭", active)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.Shutdown(ctx)

	s.notifyShutdown(ctx)
}

// notifyShutdown 向配置的 webhook 发送关闭通知
func (s *Server) notifyShutdown(ctx context.Context) {
	url := s.config.Server.ShutdownWebhook
	if url == "" {
		return
	}

	body, _ := json.Marshal(map[string]string{
		"service": s.config.Telemetry.ServiceName,
		"event":   "shutdown",
		"time":    time.Now().UTC().Format(time.RFC3339),
	})

	ctx, cancel := context.WithTimeout(ctx, webhookTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		logger.LogError("创建关闭通知请求失败: %v", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		logger.LogError("发送关闭通知失败: %v", err)
		return
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		log.Println("🔔 已发送关闭通知")
	} else {
		logger.LogError("关闭通知响应异常: %d", resp.StatusCode)
	}
}

// Shutdown 取消待结算移动、关闭所有连接、停止 HTTP 服务与 Redis
func (s *Server) Shutdown(ctx context.Context) {
	s.stopOnce.Do(func() {
		close(s.stopCh)

		s.sessionManager.Shutdown()

		s.clientsMu.RLock()
		for _, client := range s.clients {
			client.Close()
		}
		s.clientsMu.RUnlock()

		if s.httpServer != nil {
			if err := s.httpServer.Shutdown(ctx); err != nil {
				log.Printf("HTTP 服务关闭失败: %v", err)
			}
		}

		s.rateLimiter.Stop()

		if s.redis != nil {
			_ = s.redis.Close()
		}

		log.Println("服务器已关闭")
	})
}
