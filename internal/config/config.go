package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// 默认值
const (
	defaultHost                  = "0.0.0.0"
	defaultPort                  = 3001
	defaultMaxConnections        = 10000
	defaultMaxPlayers            = 6
	defaultRollDelayMs           = 1000
	defaultSessionIdleTimeout    = 30 // 分钟
	defaultCleanupInterval       = 60 // 秒
	defaultShutdownTimeout       = 10 // 分钟
	defaultShutdownCheckInterval = 5  // 秒
	defaultRatePerSecond         = 10
	defaultRatePerMinute         = 60
	defaultBanDuration           = 60 // 秒
	defaultMessagePerSecond      = 20
	defaultServiceName           = "dice-quest"
)

// Config 服务端配置
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Redis     RedisConfig     `yaml:"redis"`
	Game      GameConfig      `yaml:"game"`
	Security  SecurityConfig  `yaml:"security"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Log       LogConfig       `yaml:"log"`
}

// ServerConfig WebSocket 服务器配置
type ServerConfig struct {
	Host           string `yaml:"host" env:"DICEQUEST_HOST"`
	Port           int    `yaml:"port" env:"PORT"`
	MaxConnections int    `yaml:"max_connections" env:"DICEQUEST_MAX_CONNECTIONS"`
	// ShutdownWebhook 优雅关闭完成后 POST 通知的地址，为空时不通知
	ShutdownWebhook string `yaml:"shutdown_webhook" env:"DICEQUEST_SHUTDOWN_WEBHOOK"`
}

// RedisConfig Redis 配置，Addr 为空时不连接 Redis
type RedisConfig struct {
	Addr     string `yaml:"addr" env:"DICEQUEST_REDIS_ADDR"`
	Password string `yaml:"password" env:"DICEQUEST_REDIS_PASSWORD"`
	DB       int    `yaml:"db" env:"DICEQUEST_REDIS_DB"`
}

// GameConfig 游戏配置
type GameConfig struct {
	MaxPlayers            int `yaml:"max_players" env:"DICEQUEST_MAX_PLAYERS"`
	RollDelayMs           int `yaml:"roll_delay_ms" env:"DICEQUEST_ROLL_DELAY_MS"`               // 掷骰到结算的延迟（毫秒）
	SessionIdleTimeout    int `yaml:"session_idle_timeout" env:"DICEQUEST_SESSION_IDLE_TIMEOUT"` // 会话空闲回收（分钟）
	CleanupInterval       int `yaml:"cleanup_interval"`                                          // 清理周期（秒）
	ShutdownTimeout       int `yaml:"shutdown_timeout"`                                          // 优雅关闭最长等待（分钟）
	ShutdownCheckInterval int `yaml:"shutdown_check_interval"`                                   // 关闭时检查间隔（秒）
}

// RollDelayDuration 返回掷骰结算延迟
func (c *GameConfig) RollDelayDuration() time.Duration {
	return time.Duration(c.RollDelayMs) * time.Millisecond
}

// SessionIdleTimeoutDuration 返回会话空闲超时
func (c *GameConfig) SessionIdleTimeoutDuration() time.Duration {
	return time.Duration(c.SessionIdleTimeout) * time.Minute
}

// CleanupIntervalDuration 返回清理周期
func (c *GameConfig) CleanupIntervalDuration() time.Duration {
	return time.Duration(c.CleanupInterval) * time.Second
}

// ShutdownTimeoutDuration 返回优雅关闭超时
func (c *GameConfig) ShutdownTimeoutDuration() time.Duration {
	return time.Duration(c.ShutdownTimeout) * time.Minute
}

// ShutdownCheckIntervalDuration 返回关闭检查间隔
func (c *GameConfig) ShutdownCheckIntervalDuration() time.Duration {
	return time.Duration(c.ShutdownCheckInterval) * time.Second
}

// SecurityConfig 安全配置
type SecurityConfig struct {
	AllowedOrigins []string           `yaml:"allowed_origins" env:"DICEQUEST_ALLOWED_ORIGINS" envSeparator:","`
	IPWhitelist    []string           `yaml:"ip_whitelist" env:"DICEQUEST_IP_WHITELIST" envSeparator:","` // 非空时只允许名单内 IP
	IPBlacklist    []string           `yaml:"ip_blacklist" env:"DICEQUEST_IP_BLACKLIST" envSeparator:","`
	RateLimit      RateLimitConfig    `yaml:"rate_limit"`
	MessageLimit   MessageLimitConfig `yaml:"message_limit"`
}

// RateLimitConfig 连接速率限制
type RateLimitConfig struct {
	MaxPerSecond int `yaml:"max_per_second"`
	MaxPerMinute int `yaml:"max_per_minute"`
	BanDuration  int `yaml:"ban_duration"` // 秒
}

// BanDurationTime 返回封禁时长
func (c *RateLimitConfig) BanDurationTime() time.Duration {
	return time.Duration(c.BanDuration) * time.Second
}

// MessageLimitConfig 单连接消息速率限制
type MessageLimitConfig struct {
	MaxPerSecond int `yaml:"max_per_second"`
}

// TelemetryConfig 链路追踪配置，Endpoint 为空时不导出
type TelemetryConfig struct {
	OTLPEndpoint string `yaml:"otlp_endpoint" env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	ServiceName  string `yaml:"service_name" env:"OTEL_SERVICE_NAME"`
}

// LogConfig 日志配置，File 为空时输出到标准错误
type LogConfig struct {
	File string `yaml:"file" env:"DICEQUEST_LOG_FILE"`
}

// Load 加载配置文件，path 为空时只使用默认值与环境变量
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		var fileCfg Config
		if err := yaml.Unmarshal(data, &fileCfg); err != nil {
			return nil, err
		}
		applyDefaults(&fileCfg)
		cfg = &fileCfg
	}

	if err := ApplyEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv 用环境变量覆盖配置，未设置的变量保留原值
func ApplyEnv(cfg *Config) error {
	if err := env.Parse(cfg); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Default 返回默认配置
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = defaultHost
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = defaultPort
	}
	if cfg.Server.MaxConnections == 0 {
		cfg.Server.MaxConnections = defaultMaxConnections
	}

	if cfg.Game.MaxPlayers == 0 {
		cfg.Game.MaxPlayers = defaultMaxPlayers
	}
	if cfg.Game.RollDelayMs == 0 {
		cfg.Game.RollDelayMs = defaultRollDelayMs
	}
	if cfg.Game.SessionIdleTimeout == 0 {
		cfg.Game.SessionIdleTimeout = defaultSessionIdleTimeout
	}
	if cfg.Game.CleanupInterval == 0 {
		cfg.Game.CleanupInterval = defaultCleanupInterval
	}
	if cfg.Game.ShutdownTimeout == 0 {
		cfg.Game.ShutdownTimeout = defaultShutdownTimeout
	}
	if cfg.Game.ShutdownCheckInterval == 0 {
		cfg.Game.ShutdownCheckInterval = defaultShutdownCheckInterval
	}

	if len(cfg.Security.AllowedOrigins) == 0 {
		cfg.Security.AllowedOrigins = []string{"*"}
	}
	if cfg.Security.RateLimit.MaxPerSecond == 0 {
		cfg.Security.RateLimit.MaxPerSecond = defaultRatePerSecond
	}
	if cfg.Security.RateLimit.MaxPerMinute == 0 {
		cfg.Security.RateLimit.MaxPerMinute = defaultRatePerMinute
	}
	if cfg.Security.RateLimit.BanDuration == 0 {
		cfg.Security.RateLimit.BanDuration = defaultBanDuration
	}
	if cfg.Security.MessageLimit.MaxPerSecond == 0 {
		cfg.Security.MessageLimit.MaxPerSecond = defaultMessagePerSecond
	}

	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = defaultServiceName
	}
}
