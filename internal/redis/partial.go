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

// GetPartialState returns the override layer of a question, nil if none was written
func (s *Store) GetPartialState(ctx context.Context, userID, lobbyID string, questionIndex int) (*domain.PartialQuestionState, error) {
	data, err := s.client.Get(ctx, partialKey(userID, lobbyID, questionIndex)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("getting partial state: %w", err)
	}

	var state domain.PartialQuestionState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("unmarshaling partial state: %w", err)
	}
	return &state, nil
}

// SetPartialState stores the override layer of a question
func (s *Store) SetPartialState(ctx context.Context, userID, lobbyID string, questionIndex int, state *domain.PartialQuestionState, ttl time.Duration) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshaling partial state: %w", err)
	}
	if err := s.client.Set(ctx, partialKey(userID, lobbyID, questionIndex), data, ttl).Err(); err != nil {
		return fmt.Errorf("setting partial state: %w", err)
	}
	return nil
}

// ClaimQuestionBoost marks the question as boosted. Returns ErrBoostAlreadyApplied if it already was.
func (s *Store) ClaimQuestionBoost(ctx context.Context, userID, lobbyID string, questionIndex int, boostID string, ttl time.Duration) error {
	ok, err := s.client.SetNX(ctx, claimKey(userID, lobbyID, questionIndex), boostID, ttl).Result()
	if err != nil {
		return fmt.Errorf("claiming question boost: %w", err)
	}
	if !ok {
		return domain.ErrBoostAlreadyApplied
	}
	return nil
}

// ReleaseQuestionBoost drops a claim taken by a failed boost application
func (s *Store) ReleaseQuestionBoost(ctx context.Context, userID, lobbyID string, questionIndex int) error {
	if err := s.client.Del(ctx, claimKey(userID, lobbyID, questionIndex)).Err(); err != nil {
		return fmt.Errorf("releasing question boost: %w", err)
	}
	return nil
}
