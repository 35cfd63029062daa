package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/trivia-wave/internal/domain"
)

// initProgressScript fills the list only if it does not exist yet.
// KEYS[1] list, ARGV[1] ttl ms, ARGV[2..] items.
var initProgressScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 1 then
	return 0
end
for i = 2, #ARGV do
	redis.call('RPUSH', KEYS[1], ARGV[i])
end
redis.call('PEXPIRE', KEYS[1], ARGV[1])
return 1
`)

// InitProgress creates a user's EMPTY progress list on first join. Returns false if it already existed.
func (s *Store) InitProgress(ctx context.Context, userID, lobbyID string, questionsAmount int, ttl time.Duration) (bool, error) {
	args := make([]interface{}, 0, questionsAmount+1)
	args = append(args, ttl.Milliseconds())
	for _, item := range domain.EmptyProgress(questionsAmount) {
		data, err := json.Marshal(item)
		if err != nil {
			return false, fmt.Errorf("marshaling progress item: %w", err)
		}
		args = append(args, string(data))
	}

	created, err := initProgressScript.Run(ctx, s.client, []string{progressKey(userID, lobbyID)}, args...).Int()
	if err != nil {
		return false, fmt.Errorf("initializing progress: %w", err)
	}
	return created == 1, nil
}

// GetProgress returns the user's progress list, empty if none
func (s *Store) GetProgress(ctx context.Context, userID, lobbyID string) ([]domain.ProgressItem, error) {
	raw, err := s.client.LRange(ctx, progressKey(userID, lobbyID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("getting progress: %w", err)
	}

	items := make([]domain.ProgressItem, len(raw))
	for i, r := range raw {
		if err := json.Unmarshal([]byte(r), &items[i]); err != nil {
			return nil, fmt.Errorf("unmarshaling progress item %d: %w", i, err)
		}
	}
	return items, nil
}

// SetProgressItem overwrites the slot at questionIndex
func (s *Store) SetProgressItem(ctx context.Context, userID, lobbyID string, questionIndex int, item domain.ProgressItem) error {
	data, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("marshaling progress item: %w", err)
	}
	if err := s.client.LSet(ctx, progressKey(userID, lobbyID), int64(questionIndex), data).Err(); err != nil {
		return fmt.Errorf("setting progress item: %w", err)
	}
	return nil
}

// ReplaceProgress rewrites the whole list atomically
func (s *Store) ReplaceProgress(ctx context.Context, userID, lobbyID string, items []domain.ProgressItem, ttl time.Duration) error {
	key := progressKey(userID, lobbyID)
	values := make([]interface{}, len(items))
	for i, item := range items {
		data, err := json.Marshal(item)
		if err != nil {
			return fmt.Errorf("marshaling progress item: %w", err)
		}
		values[i] = string(data)
	}

	pipe := s.client.TxPipeline()
	pipe.Del(ctx, key)
	if len(values) > 0 {
		pipe.RPush(ctx, key, values...)
		pipe.PExpire(ctx, key, ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("replacing progress: %w", err)
	}
	return nil
}
