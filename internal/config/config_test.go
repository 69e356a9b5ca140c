package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_ValidConfig(t *testing.T) {
	content := `
server:
  host: "127.0.0.1"
  port: 8080
  max_connections: 5000

redis:
  addr: "redis:6379"
  password: "secret"
  db: 1

game:
  max_players: 4
  roll_delay_ms: 250
  session_idle_timeout: 15
  cleanup_interval: 30
  shutdown_timeout: 2

security:
  allowed_origins:
    - "http://localhost:3000"
    - "https://example.com"
  ip_blacklist:
    - "203.0.113.7"
  rate_limit:
    max_per_second: 20
    max_per_minute: 120
    ban_duration: 120
  message_limit:
    max_per_second: 50

telemetry:
  otlp_endpoint: "localhost:4318"

log:
  file: "/tmp/dice-quest.log"
`
	cfg, err := Load(writeConfig(t, content))
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 5000, cfg.Server.MaxConnections)
	assert.Equal(t, "redis:6379", cfg.Redis.Addr)
	assert.Equal(t, "secret", cfg.Redis.Password)
	assert.Equal(t, 1, cfg.Redis.DB)
	assert.Equal(t, 4, cfg.Game.MaxPlayers)
	assert.Equal(t, 250*time.Millisecond, cfg.Game.RollDelayDuration())
	assert.Equal(t, 15*time.Minute, cfg.Game.SessionIdleTimeoutDuration())
	assert.Equal(t, 30*time.Second, cfg.Game.CleanupIntervalDuration())
	assert.Len(t, cfg.Security.AllowedOrigins, 2)
	assert.Equal(t, []string{"203.0.113.7"}, cfg.Security.IPBlacklist)
	assert.Empty(t, cfg.Security.IPWhitelist)
	assert.Equal(t, 120*time.Second, cfg.Security.RateLimit.BanDurationTime())
	assert.Equal(t, 50, cfg.Security.MessageLimit.MaxPerSecond)
	assert.Equal(t, "localhost:4318", cfg.Telemetry.OTLPEndpoint)
	assert.Equal(t, defaultServiceName, cfg.Telemetry.ServiceName)
	assert.Equal(t, "/tmp/dice-quest.log", cfg.Log.File)
}

func TestLoad_FileNotFound(t *testing.T) {
	t.Parallel()

	cfg, err := Load("/nonexistent/path/config.yaml")
	assert.Error(t, err)
	assert.Nil(t, cfg)
}

func TestLoad_InvalidYAML(t *testing.T) {
	t.Parallel()

	cfg, err := Load(writeConfig(t, "invalid: yaml: :::"))
	assert.Error(t, err)
	assert.Nil(t, cfg)
}

func TestLoad_AppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, `{}`))
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, defaultHost, cfg.Server.Host)
	assert.Equal(t, defaultPort, cfg.Server.Port)
	assert.Equal(t, defaultMaxConnections, cfg.Server.MaxConnections)
	assert.Empty(t, cfg.Redis.Addr)
	assert.Equal(t, defaultMaxPlayers, cfg.Game.MaxPlayers)
	assert.Equal(t, time.Second, cfg.Game.RollDelayDuration())
	assert.Equal(t, []string{"*"}, cfg.Security.AllowedOrigins)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("DICEQUEST_REDIS_ADDR", "cache:6379")
	t.Setenv("DICEQUEST_ALLOWED_ORIGINS", "https://a.example,https://b.example")
	t.Setenv("DICEQUEST_ROLL_DELAY_MS", "10")
	t.Setenv("DICEQUEST_IP_WHITELIST", "10.0.0.1,10.0.0.2")

	cfg, err := Load(writeConfig(t, "server:\n  port: 8080\n"))
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "cache:6379", cfg.Redis.Addr)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Security.AllowedOrigins)
	assert.Equal(t, 10*time.Millisecond, cfg.Game.RollDelayDuration())
	assert.Equal(t, []string{"10.0.0.1", "10.0.0.2"}, cfg.Security.IPWhitelist)
}

func TestLoad_InvalidEnv(t *testing.T) {
	t.Setenv("PORT", "not-a-number")

	cfg, err := Load("")
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "parse env")
}

func TestDefault(t *testing.T) {
	t.Parallel()

	cfg := Default()
	require.NotNil(t, cfg)

	assert.Equal(t, defaultHost, cfg.Server.Host)
	assert.Equal(t, defaultPort, cfg.Server.Port)
	assert.Equal(t, defaultMaxPlayers, cfg.Game.MaxPlayers)
	assert.Equal(t, defaultRollDelayMs, cfg.Game.RollDelayMs)
}

func TestGameConfig_DurationMethods(t *testing.T) {
	t.Parallel()

	cfg := &GameConfig{
		RollDelayMs:           1000,
		SessionIdleTimeout:    30,
		CleanupInterval:       60,
		ShutdownTimeout:       10,
		ShutdownCheckInterval: 5,
	}

	assert.Equal(t, time.Second, cfg.RollDelayDuration())
	assert.Equal(t, 30*time.Minute, cfg.SessionIdleTimeoutDuration())
	assert.Equal(t, time.Minute, cfg.CleanupIntervalDuration())
	assert.Equal(t, 10*time.Minute, cfg.ShutdownTimeoutDuration())
	assert.Equal(t, 5*time.Second, cfg.ShutdownCheckIntervalDuration())
}
