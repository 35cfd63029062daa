package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/trivia-wave/internal/config"
)

// Repository provides PostgreSQL-based data access
type Repository struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewRepository creates a new PostgreSQL repository
func NewRepository(cfg *config.PostgresConfig, logger *slog.Logger) (*Repository, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("parsing connection string: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxConnections)
	poolConfig.MinConns = int32(cfg.MinConnections)
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	// Test connection
	if err := pool.Ping(context.Background()); err != nil {
		pool.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	return &Repository{
		pool:   pool,
		logger: logger,
	}, nil
}

// Close closes the database connection pool
func (r *Repository) Close() {
	r.pool.Close()
}

// RunMigrations executes database migrations
func (r *Repository) RunMigrations(ctx context.Context) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id VARCHAR(64) PRIMARY KEY,
			username VARCHAR(255) NOT NULL DEFAULT '',
			level INT NOT NULL DEFAULT 1 CHECK (level >= 1),
			trophies INT NOT NULL DEFAULT 0 CHECK (trophies >= 0),
			created_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS waves (
			id BIGSERIAL PRIMARY KEY,
			channel_id VARCHAR(64) NOT NULL,
			status VARCHAR(32) NOT NULL,
			reason VARCHAR(64) NOT NULL DEFAULT '',
			questions_amount INT NOT NULL,
			start_at TIMESTAMPTZ NOT NULL,
			resolve_at TIMESTAMPTZ,
			show_resolve_at TIMESTAMPTZ,
			finish_at TIMESTAMPTZ,
			previous_finished_at TIMESTAMPTZ NOT NULL,
			zero_lobby_id VARCHAR(64) NOT NULL,
			created_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS wave_questions (
			id BIGSERIAL PRIMARY KEY,
			wave_id BIGINT NOT NULL REFERENCES waves(id) ON DELETE CASCADE,
			content JSONB NOT NULL,
			question_index INT NOT NULL,
			show_at TIMESTAMPTZ NOT NULL,
			start_at TIMESTAMPTZ NOT NULL,
			finish_at TIMESTAMPTZ NOT NULL,
			min_score INT NOT NULL,
			max_score INT NOT NULL,
			correct_answer_indexes INT[] NOT NULL,
			UNIQUE(wave_id, question_index)
		)`,
		`CREATE TABLE IF NOT EXISTS wave_lobbies (
			id VARCHAR(64) PRIMARY KEY,
			wave_id BIGINT NOT NULL REFERENCES waves(id) ON DELETE CASCADE,
			channel_id VARCHAR(64) NOT NULL,
			zero_lobby BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS wave_participants (
			wave_id BIGINT NOT NULL REFERENCES waves(id) ON DELETE CASCADE,
			lobby_id VARCHAR(64) NOT NULL REFERENCES wave_lobbies(id) ON DELETE CASCADE,
			user_id VARCHAR(64) NOT NULL,
			channel_id VARCHAR(64) NOT NULL,
			joined_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (wave_id, user_id)
		)`,
		`CREATE TABLE IF NOT EXISTS wave_player_actions (
			id BIGSERIAL PRIMARY KEY,
			wave_id BIGINT NOT NULL,
			lobby_id VARCHAR(64) NOT NULL,
			user_id VARCHAR(64) NOT NULL,
			channel_id VARCHAR(64) NOT NULL,
			action_type VARCHAR(16) NOT NULL,
			emitted_at TIMESTAMPTZ NOT NULL,
			data JSONB NOT NULL,
			stars_distributed INT,
			won BOOLEAN,
			wave_question_id BIGINT NOT NULL REFERENCES wave_questions(id) ON DELETE CASCADE
		)`,
		`CREATE TABLE IF NOT EXISTS user_boosts (
			id BIGSERIAL PRIMARY KEY,
			user_id VARCHAR(64) NOT NULL,
			boost_id VARCHAR(64) NOT NULL,
			amount INT NOT NULL DEFAULT 0 CHECK (amount >= 0),
			updated_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP,
			UNIQUE(user_id, boost_id)
		)`,
		`CREATE TABLE IF NOT EXISTS user_loots (
			user_id VARCHAR(64) NOT NULL,
			loot_id VARCHAR(64) NOT NULL,
			amount INT NOT NULL DEFAULT 0 CHECK (amount >= 0),
			updated_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (user_id, loot_id)
		)`,
		`CREATE TABLE IF NOT EXISTS wave_trophy_txs (
			id BIGSERIAL PRIMARY KEY,
			wave_id BIGINT NOT NULL,
			lobby_id VARCHAR(64) NOT NULL,
			user_id VARCHAR(64) NOT NULL,
			channel_id VARCHAR(64) NOT NULL,
			amount INT NOT NULL,
			loot_ids TEXT[],
			created_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP,
			UNIQUE(lobby_id, user_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_waves_channel ON waves(channel_id, created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_waves_status ON waves(status)`,
		`CREATE INDEX IF NOT EXISTS idx_lobbies_wave ON wave_lobbies(wave_id)`,
		`CREATE INDEX IF NOT EXISTS idx_participants_lobby ON wave_participants(lobby_id)`,
		`CREATE INDEX IF NOT EXISTS idx_actions_lobby ON wave_player_actions(lobby_id, action_type)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_actions_one_answer
			ON wave_player_actions(user_id, lobby_id, wave_question_id)
			WHERE action_type = 'answer'`,
	}

	for _, migration := range migrations {
		_, err := r.pool.Exec(ctx, migration)
		if err != nil {
			return fmt.Errorf("executing migration: %w", err)
		}
	}

	r.logger.Info("database migrations completed")
	return nil
}
