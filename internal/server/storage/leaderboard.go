package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// Redis key
	playerStatsKey   = "player:stats:"
	leaderboardKey   = "leaderboard:wins"
	dailyLeaderboard = "leaderboard:daily:"

	dailyExpiration = 48 * time.Hour
)

// PlayerStats 玩家统计，按显示名聚合（玩家 ID 只在会话内有效）
type PlayerStats struct {
	DisplayName string `json:"display_name"`

	TotalGames int `json:"total_games"`
	Wins       int `json:"wins"`
	BestScore  int `json:"best_score"`

	CurrentStreak int `json:"current_streak"` // 正数为连胜，负数为连败
	MaxWinStreak  int `json:"max_win_streak"`

	LastPlayedAt int64 `json:"last_played_at"`
	CreatedAt    int64 `json:"created_at"`
}

// LeaderboardEntry 排行榜条目
type LeaderboardEntry struct {
	Rank        int     `json:"rank"`
	DisplayName string  `json:"display_name"`
	Wins        int     `json:"wins"`
	TotalGames  int     `json:"total_games"`
	WinRate     float64 `json:"win_rate"`
}

// LeaderboardManager 排行榜管理器，client 为 nil 时不记录
type LeaderboardManager struct {
	redis *redis.Client
	now   func() time.Time
}

// NewLeaderboardManager 创建排行榜管理器
func NewLeaderboardManager(client *redis.Client) *LeaderboardManager {
	return &LeaderboardManager{redis: client, now: time.Now}
}

func (lm *LeaderboardManager) enabled() bool {
	return lm != nil && lm.redis != nil
}

// GetPlayerStats 获取玩家统计，不存在时返回 nil
func (lm *LeaderboardManager) GetPlayerStats(ctx context.Context, name string) (*PlayerStats, error) {
	if !lm.enabled() {
		return nil, nil
	}

	data, err := lm.redis.Get(ctx, playerStatsKey+name).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	var stats PlayerStats
	if err := json.Unmarshal(data, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

func (lm *LeaderboardManager) savePlayerStats(ctx context.Context, stats *PlayerStats) error {
	data, err := json.Marshal(stats)
	if err != nil {
		return err
	}
	return lm.redis.Set(ctx, playerStatsKey+stats.DisplayName, data, 0).Err()
}

// updateStreak 更新连胜/连败
func updateStreak(stats *PlayerStats, isWinner bool) {
	if isWinner {
		stats.Wins++
		stats.CurrentStreak = max(1, stats.CurrentStreak+1)
	} else {
		stats.CurrentStreak = min(-1, stats.CurrentStreak-1)
	}
	stats.MaxWinStreak = max(stats.MaxWinStreak, stats.CurrentStreak)
}

// RecordGameResult 记录一局结果。胜者在总榜和日榜上各加一胜。
func (lm *LeaderboardManager) RecordGameResult(ctx context.Context, name string, isWinner bool, finalScore int) error {
	if !lm.enabled() {
		return nil
	}

	stats, err := lm.GetPlayerStats(ctx, name)
	if err != nil {
		return err
	}
	now := lm.now()
	if stats == nil {
		stats = &PlayerStats{DisplayName: name, BestScore: finalScore, CreatedAt: now.Unix()}
	}

	stats.TotalGames++
	stats.LastPlayedAt = now.Unix()
	stats.BestScore = max(stats.BestScore, finalScore)
	updateStreak(stats, isWinner)

	if err := lm.savePlayerStats(ctx, stats); err != nil {
		return err
	}
	if !isWinner {
		return nil
	}
	return lm.recordWin(ctx, name, now)
}

func (lm *LeaderboardManager) recordWin(ctx context.Context, name string, now time.Time) error {
	dailyKey := dailyLeaderboard + now.Format("2006-01-02")

	pipe := lm.redis.TxPipeline()
	pipe.ZIncrBy(ctx, leaderboardKey, 1, name)
	pipe.ZIncrBy(ctx, dailyKey, 1, name)
	pipe.Expire(ctx, dailyKey, dailyExpiration)
	_, err := pipe.Exec(ctx)
	return err
}

// GetLeaderboard 获取胜场总榜（从高到低）
func (lm *LeaderboardManager) GetLeaderboard(ctx context.Context, limit int) ([]*LeaderboardEntry, error) {
	return lm.topFrom(ctx, leaderboardKey, limit)
}

// GetDailyLeaderboard 获取当日胜场榜
func (lm *LeaderboardManager) GetDailyLeaderboard(ctx context.Context, limit int) ([]*LeaderboardEntry, error) {
	return lm.topFrom(ctx, dailyLeaderboard+lm.now().Format("2006-01-02"), limit)
}

func (lm *LeaderboardManager) topFrom(ctx context.Context, key string, limit int) ([]*LeaderboardEntry, error) {
	if !lm.enabled() || limit <= 0 {
		return []*LeaderboardEntry{}, nil
	}

	results, err := lm.redis.ZRevRangeWithScores(ctx, key, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("读取排行榜失败: %w", err)
	}

	entries := make([]*LeaderboardEntry, 0, len(results))
	for i, result := range results {
		name, ok := result.Member.(string)
		if !ok {
			continue
		}
		entry := &LeaderboardEntry{
			Rank:        i + 1,
			DisplayName: name,
			Wins:        int(result.Score),
		}
		if stats, err := lm.GetPlayerStats(ctx, name); err == nil && stats != nil && stats.TotalGames > 0 {
			entry.TotalGames = stats.TotalGames
			entry.WinRate = float64(stats.Wins) / float64(stats.TotalGames) * 100
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// GetPlayerRank 获取玩家排名，未上榜返回 -1
func (lm *LeaderboardManager) GetPlayerRank(ctx context.Context, name string) (int64, error) {
	if !lm.enabled() {
		return -1, nil
	}

	rank, err := lm.redis.ZRevRank(ctx, leaderboardKey, name).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return -1, nil
		}
		return -1, err
	}
	return rank + 1, nil
}
