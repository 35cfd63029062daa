package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/trivia-wave/internal/domain"
)

// IncrementLobbyScore adds delta stars to a user's lobby score
func (s *Store) IncrementLobbyScore(ctx context.Context, lobbyID, userID string, delta int64, ttl time.Duration) (int64, error) {
	key := leaderboardKey(lobbyID)

	pipe := s.client.TxPipeline()
	incr := pipe.ZIncrBy(ctx, key, float64(delta), userID)
	pipe.Expire(ctx, key, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("incrementing lobby score: %w", err)
	}
	return int64(incr.Val()), nil
}

// GetTopN returns the top N players of a lobby (descending order)
func (s *Store) GetTopN(ctx context.Context, lobbyID string, n int) ([]domain.LeaderboardEntry, error) {
	if n <= 0 {
		return nil, nil
	}
	results, err := s.client.ZRevRangeWithScores(ctx, leaderboardKey(lobbyID), 0, int64(n-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("getting top n: %w", err)
	}

	entries := make([]domain.LeaderboardEntry, len(results))
	for i, result := range results {
		entries[i] = domain.LeaderboardEntry{
			Rank:   int64(i + 1),
			UserID: result.Member.(string),
			Score:  int64(result.Score),
		}
	}
	return entries, nil
}

// ReplaceLobbyScores rewrites a lobby leaderboard from authoritative totals
func (s *Store) ReplaceLobbyScores(ctx context.Context, lobbyID string, scores map[string]int64, ttl time.Duration) error {
	key := leaderboardKey(lobbyID)

	pipe := s.client.TxPipeline()
	pipe.Del(ctx, key)
	if len(scores) > 0 {
		members := make([]redis.Z, 0, len(scores))
		for userID, score := range scores {
			members = append(members, redis.Z{Score: float64(score), Member: userID})
		}
		pipe.ZAdd(ctx, key, members...)
		pipe.Expire(ctx, key, ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("replacing lobby scores: %w", err)
	}
	return nil
}

// DeleteLobbies removes the leaderboards of the given lobbies
func (s *Store) DeleteLobbies(ctx context.Context, lobbyIDs []string) error {
	if len(lobbyIDs) == 0 {
		return nil
	}
	keys := make([]string, len(lobbyIDs))
	for i, id := range lobbyIDs {
		keys[i] = leaderboardKey(id)
	}
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("deleting lobby leaderboards: %w", err)
	}
	return nil
}

// SetChannelLeader caches the last known leader of a channel
func (s *Store) SetChannelLeader(ctx context.Context, channelID string, leader domain.ChannelLeader) error {
	data, err := json.Marshal(leader)
	if err != nil {
		return fmt.Errorf("marshaling channel leader: %w", err)
	}
	if err := s.client.Set(ctx, leaderKey(channelID), data, 0).Err(); err != nil {
		return fmt.Errorf("setting channel leader: %w", err)
	}
	return nil
}

// ChannelLeader returns the cached leader of a channel, nil if unknown
func (s *Store) ChannelLeader(ctx context.Context, channelID string) (*domain.ChannelLeader, error) {
	data, err := s.client.Get(ctx, leaderKey(channelID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("getting channel leader: %w", err)
	}

	var leader domain.ChannelLeader
	if err := json.Unmarshal(data, &leader); err != nil {
		return nil, fmt.Errorf("unmarshaling channel leader: %w", err)
	}
	return &leader, nil
}

// DeleteChannelLeader forgets a channel's leader
func (s *Store) DeleteChannelLeader(ctx context.Context, channelID string) error {
	if err := s.client.Del(ctx, leaderKey(channelID)).Err(); err != nil {
		return fmt.Errorf("deleting channel leader: %w", err)
	}
	return nil
}
