package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/trivia-wave/internal/domain"
)

// reserveBoostScript appends a boost record while the list is below the limit.
// KEYS[1] list, ARGV[1] record, ARGV[2] limit, ARGV[3] ttl ms.
var reserveBoostScript = redis.NewScript(`
if redis.call('LLEN', KEYS[1]) >= tonumber(ARGV[2]) then
	return 0
end
redis.call('RPUSH', KEYS[1], ARGV[1])
redis.call('PEXPIRE', KEYS[1], ARGV[3])
return 1
`)

// ReserveBoost takes one slot of the quota. Fails with ErrBoostLimitExceeded when the limit is reached.
func (s *Store) ReserveBoost(ctx context.Context, userID, lobbyID string, applied domain.AppliedBoost, limit int, ttl time.Duration) error {
	data, err := json.Marshal(applied)
	if err != nil {
		return fmt.Errorf("marshaling applied boost: %w", err)
	}

	ok, err := reserveBoostScript.Run(ctx, s.client, []string{appliedBoostsKey(userID, lobbyID)},
		string(data), limit, ttl.Milliseconds()).Int()
	if err != nil {
		return fmt.Errorf("reserving boost: %w", err)
	}
	if ok == 0 {
		return domain.ErrBoostLimitExceeded
	}
	return nil
}

// ReleaseBoost gives back the slot taken for applied
func (s *Store) ReleaseBoost(ctx context.Context, userID, lobbyID string, applied domain.AppliedBoost) error {
	data, err := json.Marshal(applied)
	if err != nil {
		return fmt.Errorf("marshaling applied boost: %w", err)
	}
	if err := s.client.LRem(ctx, appliedBoostsKey(userID, lobbyID), -1, string(data)).Err(); err != nil {
		return fmt.Errorf("releasing boost: %w", err)
	}
	return nil
}

// AppliedBoosts lists the boosts a user applied in a lobby
func (s *Store) AppliedBoosts(ctx context.Context, userID, lobbyID string) ([]domain.AppliedBoost, error) {
	raw, err := s.client.LRange(ctx, appliedBoostsKey(userID, lobbyID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("getting applied boosts: %w", err)
	}

	boosts := make([]domain.AppliedBoost, len(raw))
	for i, r := range raw {
		if err := json.Unmarshal([]byte(r), &boosts[i]); err != nil {
			return nil, fmt.Errorf("unmarshaling applied boost: %w", err)
		}
	}
	return boosts, nil
}
