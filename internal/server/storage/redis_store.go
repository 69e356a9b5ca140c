package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/palemoky/dice-quest/internal/protocol"
)

const (
	// Redis key 前缀
	sessionKeyPrefix = "session:"

	// 默认快照过期时间
	defaultSessionExpiration = 30 * time.Minute
)

// SessionData 会话快照（只用于运维查看，启动时不会读回）
type SessionData struct {
	State     protocol.GameStatePayload `json:"state"`
	WinnerID  string                    `json:"winner_id,omitempty"`
	UpdatedAt int64                     `json:"updated_at"`
}

// RedisStore Redis 存储，client 为 nil 时所有操作都是空操作
type RedisStore struct {
	client     *redis.Client
	expiration time.Duration
}

// NewRedisStore 创建 Redis 存储
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client, expiration: defaultSessionExpiration}
}

// WithExpiration 设置快照过期时间
func (rs *RedisStore) WithExpiration(d time.Duration) *RedisStore {
	if d > 0 {
		rs.expiration = d
	}
	return rs
}

// Enabled 是否连接了 Redis
func (rs *RedisStore) Enabled() bool {
	return rs != nil && rs.client != nil
}

// Ping 检查连接
func (rs *RedisStore) Ping(ctx context.Context) error {
	if !rs.Enabled() {
		return nil
	}
	return rs.client.Ping(ctx).Err()
}

// --- 会话快照 ---

// SaveSession 保存会话快照
func (rs *RedisStore) SaveSession(ctx context.Context, code string, data *SessionData) error {
	if !rs.Enabled() || data == nil {
		return nil
	}

	jsonData, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("序列化会话数据失败: %w", err)
	}

	return rs.client.Set(ctx, sessionKeyPrefix+code, jsonData, rs.expiration).Err()
}

// LoadSession 加载会话快照，不存在时返回 nil
func (rs *RedisStore) LoadSession(ctx context.Context, code string) (*SessionData, error) {
	if !rs.Enabled() {
		return nil, nil
	}

	data, err := rs.client.Get(ctx, sessionKeyPrefix+code).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	var sd SessionData
	if err := json.Unmarshal(data, &sd); err != nil {
		return nil, fmt.Errorf("反序列化会话数据失败: %w", err)
	}
	return &sd, nil
}

// DeleteSession 删除会话快照
func (rs *RedisStore) DeleteSession(ctx context.Context, code string) error {
	if !rs.Enabled() {
		return nil
	}
	return rs.client.Del(ctx, sessionKeyPrefix+code).Err()
}

// GetAllSessionCodes 获取所有快照中的会话码
func (rs *RedisStore) GetAllSessionCodes(ctx context.Context) ([]string, error) {
	if !rs.Enabled() {
		return nil, nil
	}

	var codes []string
	iter := rs.client.Scan(ctx, 0, sessionKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		codes = append(codes, iter.Val()[len(sessionKeyPrefix):])
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return codes, nil
}
