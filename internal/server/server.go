package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"runtime"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"

	"github.com/palemoky/dice-quest/internal/config"
	"github.com/palemoky/dice-quest/internal/game/session"
	"github.com/palemoky/dice-quest/internal/server/handler"
	"github.com/palemoky/dice-quest/internal/server/storage"
)

// Server WebSocket 服务器
type Server struct {
	config         *config.Config
	redis          *redis.Client // 未配置 Redis 时为 nil
	redisStore     *storage.RedisStore
	leaderboard    *storage.LeaderboardManager
	sessionManager *session.SessionManager
	clients        map[string]*Client
	clientsMu      sync.RWMutex
	handler        *handler.Handler
	upgrader       websocket.Upgrader
	httpServer     *http.Server

	// 安全组件
	rateLimiter    *RateLimiter
	originChecker  *OriginChecker
	messageLimiter *MessageRateLimiter
	ipFilter       *IPFilter

	// 连接控制
	maxConnections int
	semaphore      chan struct{} // 信号量控制并发连接数

	// 维护模式
	maintenanceMode bool
	maintenanceMu   sync.RWMutex

	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewServer 创建服务器实例，配置了 Redis 地址时先检查连接
func NewServer(cfg *config.Config) (*Server, error) {
	var rdb *redis.Client
	if cfg.Redis.Addr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := rdb.Ping(ctx).Err(); err != nil {
			_ = rdb.Close()
			return nil, fmt.Errorf("redis 连接失败: %w", err)
		}
	} else {
		log.Println("ℹ️ 未配置 Redis，快照镜像与排行榜已关闭")
	}

	return NewServerWithRedis(cfg, rdb), nil
}

// NewServerWithRedis 使用已建立的 Redis 客户端创建服务器，rdb 可以为 nil
func NewServerWithRedis(cfg *config.Config, rdb *redis.Client) *Server {
	s := &Server{
		config:      cfg,
		redis:       rdb,
		redisStore:  storage.NewRedisStore(rdb).WithExpiration(cfg.Game.SessionIdleTimeoutDuration()),
		leaderboard: storage.NewLeaderboardManager(rdb),
		clients:     make(map[string]*Client),
		rateLimiter: NewRateLimiter(
			cfg.Security.RateLimit.MaxPerSecond,
			cfg.Security.RateLimit.MaxPerMinute,
			cfg.Security.RateLimit.BanDurationTime(),
		),
		originChecker:  NewOriginChecker(cfg.Security.AllowedOrigins),
		messageLimiter: NewMessageRateLimiter(cfg.Security.MessageLimit.MaxPerSecond),
		ipFilter:       NewIPFilter(cfg.Security.IPWhitelist, cfg.Security.IPBlacklist),
		maxConnections: cfg.Server.MaxConnections,
		semaphore:      make(chan struct{}, cfg.Server.MaxConnections),
		stopCh:         make(chan struct{}),
	}

	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.originChecker.Check,
	}

	s.sessionManager = session.NewSessionManager(s.redisStore, s.leaderboard, session.Options{
		MaxPlayers:      cfg.Game.MaxPlayers,
		RollDelay:       cfg.Game.RollDelayDuration(),
		IdleTimeout:     cfg.Game.SessionIdleTimeoutDuration(),
		CleanupInterval: cfg.Game.CleanupIntervalDuration(),
	})

	s.handler = handler.NewHandler(handler.HandlerDeps{
		Server:         s,
		SessionManager: s.sessionManager,
		Leaderboard:    s.leaderboard,
	})

	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second, // 防止 Slowloris 攻击
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Printf("🔒 安全配置: 连接限制=%d/s, 消息限制=%d/s, 最大连接数=%d",
		cfg.Security.RateLimit.MaxPerSecond, cfg.Security.MessageLimit.MaxPerSecond, cfg.Server.MaxConnections)

	return s
}

// Routes 返回 HTTP 路由
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/health", s.handleHealth)
	return mux
}

// Start 启动服务器，阻塞直到 Shutdown 被调用
func (s *Server) Start() error {
	go s.monitorStats()

	log.Printf("🚀 服务器启动在 ws://%s/ws (CPU核心数: %d)", s.httpServer.Addr, runtime.NumCPU())
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// SessionManager 返回会话管理器
func (s *Server) SessionManager() *session.SessionManager {
	return s.sessionManager
}
