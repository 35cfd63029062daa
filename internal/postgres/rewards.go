package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/trivia-wave/internal/domain"
)

// TrophyTx returns what a user earned in a lobby, nil if the lobby is not resolved
func (r *Repository) TrophyTx(ctx context.Context, lobbyID, userID string) (*domain.TrophyTx, error) {
	var tx domain.TrophyTx
	err := r.pool.QueryRow(ctx, `
		SELECT id, wave_id, lobby_id, user_id, channel_id, amount, COALESCE(loot_ids, '{}'), created_at
		FROM wave_trophy_txs
		WHERE lobby_id = $1 AND user_id = $2
	`, lobbyID, userID).Scan(&tx.ID, &tx.WaveID, &tx.LobbyID, &tx.UserID, &tx.ChannelID, &tx.Amount, &tx.LootIDs, &tx.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("getting trophy tx: %w", err)
	}
	return &tx, nil
}

// WriteRewards applies one chunk of resolution writes in a single transaction
func (r *Repository) WriteRewards(ctx context.Context, rewards domain.RewardBatch) error {
	if rewards.Empty() {
		return nil
	}

	now := time.Now()
	batch := &pgx.Batch{}
	for _, u := range rewards.Users {
		batch.Queue(`
			INSERT INTO users (id, level, trophies, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $4)
			ON CONFLICT (id) DO UPDATE SET level = $2, trophies = $3, updated_at = $4
		`, u.UserID, u.Level, u.Trophies, now)
	}
	for _, l := range rewards.Loots {
		batch.Queue(`
			INSERT INTO user_loots (user_id, loot_id, amount, updated_at)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (user_id, loot_id) DO UPDATE SET amount = user_loots.amount + $3, updated_at = $4
		`, l.UserID, l.LootID, l.Amount, now)
	}
	for _, t := range rewards.TxList {
		batch.Queue(`
			INSERT INTO wave_trophy_txs (wave_id, lobby_id, user_id, channel_id, amount, loot_ids, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (lobby_id, user_id) DO NOTHING
		`, t.WaveID, t.LobbyID, t.UserID, t.ChannelID, t.Amount, t.LootIDs, now)
	}

	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		br := tx.SendBatch(ctx, batch)
		for i := 0; i < batch.Len(); i++ {
			if _, err := br.Exec(); err != nil {
				br.Close()
				return fmt.Errorf("writing rewards: %w", err)
			}
		}
		return br.Close()
	})
}
