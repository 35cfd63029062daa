package redis

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/trivia-wave/internal/config"
)

// Store keeps the ephemeral per-player wave state in Redis
type Store struct {
	client *redis.Client
	logger *slog.Logger
}

// NewStore creates a new Redis store and checks the connection
func NewStore(cfg *config.RedisConfig, logger *slog.Logger) (*Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	// Test connection
	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}

	return NewStoreWithClient(client, logger), nil
}

// NewStoreWithClient wraps an existing client
func NewStoreWithClient(client *redis.Client, logger *slog.Logger) *Store {
	return &Store{
		client: client,
		logger: logger,
	}
}

// Close closes the Redis connection
func (s *Store) Close() error {
	return s.client.Close()
}

// progressKey returns the key of a user's progress list in a lobby
func progressKey(userID, lobbyID string) string {
	return fmt.Sprintf("wave:lobby:%s:user:%s:progress", lobbyID, userID)
}

// partialKey returns the key of a user's partial question state
func partialKey(userID, lobbyID string, questionIndex int) string {
	return fmt.Sprintf("wave:lobby:%s:user:%s:q:%d:partial", lobbyID, userID, questionIndex)
}

// claimKey guards the single boost allowed per question
func claimKey(userID, lobbyID string, questionIndex int) string {
	return fmt.Sprintf("wave:lobby:%s:user:%s:q:%d:boost", lobbyID, userID, questionIndex)
}

// appliedBoostsKey returns the key of the list of boosts a user applied in a lobby
func appliedBoostsKey(userID, lobbyID string) string {
	return fmt.Sprintf("wave:lobby:%s:user:%s:boosts", lobbyID, userID)
}

// leaderboardKey returns the key of a lobby's sorted set
func leaderboardKey(lobbyID string) string {
	return fmt.Sprintf("wave:lobby:%s:leaderboard", lobbyID)
}

// leaderKey returns the key of a channel's last known leader
func leaderKey(channelID string) string {
	return fmt.Sprintf("wave:channel:%s:king", channelID)
}
