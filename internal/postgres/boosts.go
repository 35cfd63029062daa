package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/trivia-wave/internal/domain"
)

// UserBoost returns a user's inventory of a boost, zero if never granted
func (r *Repository) UserBoost(ctx context.Context, userID, boostID string) (*domain.UserBoost, error) {
	ub := domain.UserBoost{UserID: userID, BoostID: boostID}
	err := r.pool.QueryRow(ctx, `
		SELECT amount FROM user_boosts WHERE user_id = $1 AND boost_id = $2
	`, userID, boostID).Scan(&ub.Amount)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("getting user boost: %w", err)
	}
	return &ub, nil
}

// ConsumeBoost takes one unit of a boost. Never goes below zero.
func (r *Repository) ConsumeBoost(ctx context.Context, userID, boostID string) (int, error) {
	var left int
	err := r.pool.QueryRow(ctx, `
		UPDATE user_boosts SET amount = amount - 1, updated_at = $3
		WHERE user_id = $1 AND boost_id = $2 AND amount > 0
		RETURNING amount
	`, userID, boostID, time.Now()).Scan(&left)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, domain.ErrInsufficientBoostInventory
		}
		return 0, fmt.Errorf("consuming boost: %w", err)
	}
	return left, nil
}

// GrantBoosts adds boost units to a user's inventory
func (r *Repository) GrantBoosts(ctx context.Context, userID string, amounts map[string]int) error {
	if len(amounts) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	query := `
		INSERT INTO user_boosts (user_id, boost_id, amount, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, boost_id)
		DO UPDATE SET amount = user_boosts.amount + $3, updated_at = $4
	`
	now := time.Now()

	for boostID, amount := range amounts {
		batch.Queue(query, userID, boostID, amount, now)
	}

	br := r.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range amounts {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("granting boosts: %w", err)
		}
	}
	return nil
}
