package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/trivia-wave/internal/domain"
)

// GetLobby retrieves a lobby by ID
func (r *Repository) GetLobby(ctx context.Context, lobbyID string) (*domain.Lobby, error) {
	var l domain.Lobby
	err := r.pool.QueryRow(ctx, `
		SELECT id, wave_id, channel_id, zero_lobby, created_at
		FROM wave_lobbies
		WHERE id = $1
	`, lobbyID).Scan(&l.ID, &l.WaveID, &l.ChannelID, &l.ZeroLobby, &l.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrLobbyNotFound
		}
		return nil, fmt.Errorf("getting lobby: %w", err)
	}
	return &l, nil
}

// WaveLobbies lists every lobby of a wave, zero lobby included
func (r *Repository) WaveLobbies(ctx context.Context, waveID int64) ([]domain.Lobby, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, wave_id, channel_id, zero_lobby, created_at
		FROM wave_lobbies
		WHERE wave_id = $1
		ORDER BY zero_lobby DESC, created_at, id
	`, waveID)
	if err != nil {
		return nil, fmt.Errorf("listing wave lobbies: %w", err)
	}
	defer rows.Close()

	var lobbies []domain.Lobby
	for rows.Next() {
		var l domain.Lobby
		if err := rows.Scan(&l.ID, &l.WaveID, &l.ChannelID, &l.ZeroLobby, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning lobby: %w", err)
		}
		lobbies = append(lobbies, l)
	}
	return lobbies, rows.Err()
}

// GetParticipation finds the lobby a user plays in for a wave
func (r *Repository) GetParticipation(ctx context.Context, waveID int64, userID string) (*domain.Participation, error) {
	var p domain.Participation
	err := r.pool.QueryRow(ctx, `
		SELECT lobby_id, wave_id, user_id, channel_id, joined_at
		FROM wave_participants
		WHERE wave_id = $1 AND user_id = $2
	`, waveID, userID).Scan(&p.LobbyID, &p.WaveID, &p.UserID, &p.ChannelID, &p.JoinedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrParticipationNotFound
		}
		return nil, fmt.Errorf("getting participation: %w", err)
	}
	return &p, nil
}

// JoinLobby creates a participation. Returns false if the user already plays in the wave.
func (r *Repository) JoinLobby(ctx context.Context, p domain.Participation) (bool, error) {
	result, err := r.pool.Exec(ctx, `
		INSERT INTO wave_participants (wave_id, lobby_id, user_id, channel_id, joined_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (wave_id, user_id) DO NOTHING
	`, p.WaveID, p.LobbyID, p.UserID, p.ChannelID, p.JoinedAt)
	if err != nil {
		return false, fmt.Errorf("joining lobby: %w", err)
	}
	return result.RowsAffected() == 1, nil
}

// CreateLobby inserts a ranked lobby and moves its participants into it.
// Users already seated in another lobby of the wave are reassigned.
func (r *Repository) CreateLobby(ctx context.Context, l *domain.Lobby, participants []domain.Participation) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		result, err := tx.Exec(ctx, `
			INSERT INTO wave_lobbies (id, wave_id, channel_id, zero_lobby, created_at)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (id) DO NOTHING
		`, l.ID, l.WaveID, l.ChannelID, l.ZeroLobby, l.CreatedAt)
		if err != nil {
			return fmt.Errorf("creating lobby: %w", err)
		}
		if result.RowsAffected() == 0 {
			return fmt.Errorf("%w: %s", domain.ErrLobbyExists, l.ID)
		}

		batch := &pgx.Batch{}
		for _, p := range participants {
			batch.Queue(`
				INSERT INTO wave_participants (wave_id, lobby_id, user_id, channel_id, joined_at)
				VALUES ($1, $2, $3, $4, $5)
				ON CONFLICT (wave_id, user_id)
				DO UPDATE SET lobby_id = EXCLUDED.lobby_id, joined_at = EXCLUDED.joined_at
			`, p.WaveID, p.LobbyID, p.UserID, p.ChannelID, p.JoinedAt)
		}

		br := tx.SendBatch(ctx, batch)
		for range participants {
			if _, err := br.Exec(); err != nil {
				br.Close()
				return fmt.Errorf("seating participant: %w", err)
			}
		}
		return br.Close()
	})
}

// Usernames resolves display names of users, skipping unknown ids
func (r *Repository) Usernames(ctx context.Context, userIDs []string) (map[string]string, error) {
	names := make(map[string]string, len(userIDs))
	if len(userIDs) == 0 {
		return names, nil
	}

	rows, err := r.pool.Query(ctx, `SELECT id, username FROM users WHERE id = ANY($1)`, userIDs)
	if err != nil {
		return nil, fmt.Errorf("getting usernames: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id, name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, fmt.Errorf("scanning username: %w", err)
		}
		names[id] = name
	}
	return names, rows.Err()
}
