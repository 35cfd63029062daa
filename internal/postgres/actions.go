package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/trivia-wave/internal/domain"
)

const actionColumns = `id, wave_id, lobby_id, user_id, channel_id, action_type, emitted_at,
	data, stars_distributed, won, wave_question_id`

func scanAction(row pgx.Row) (*domain.PlayerAction, error) {
	var a domain.PlayerAction
	err := row.Scan(
		&a.ID,
		&a.WaveID,
		&a.LobbyID,
		&a.UserID,
		&a.ChannelID,
		&a.ActionType,
		&a.EmittedAt,
		&a.Data,
		&a.StarsDistributed,
		&a.Won,
		&a.WaveQuestionID,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// FindAnswer returns the user's answer to a question, nil if none
func (r *Repository) FindAnswer(ctx context.Context, userID, lobbyID string, waveQuestionID int64) (*domain.PlayerAction, error) {
	a, err := scanAction(r.pool.QueryRow(ctx, `
		SELECT `+actionColumns+`
		FROM wave_player_actions
		WHERE user_id = $1 AND lobby_id = $2 AND wave_question_id = $3 AND action_type = 'answer'
	`, userID, lobbyID, waveQuestionID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("finding answer: %w", err)
	}
	return a, nil
}

// InsertAnswer records an answer. The unique answer index turns a concurrent duplicate into ErrAlreadyAnswered.
func (r *Repository) InsertAnswer(ctx context.Context, a *domain.PlayerAction) error {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO wave_player_actions (wave_id, lobby_id, user_id, channel_id, action_type, emitted_at,
			data, stars_distributed, won, wave_question_id)
		VALUES ($1, $2, $3, $4, 'answer', $5, $6, $7, $8, $9)
		ON CONFLICT (user_id, lobby_id, wave_question_id) WHERE action_type = 'answer' DO NOTHING
		RETURNING id
	`, a.WaveID, a.LobbyID, a.UserID, a.ChannelID, a.EmittedAt, a.Data, a.StarsDistributed, a.Won, a.WaveQuestionID).Scan(&a.ID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrAlreadyAnswered
		}
		return fmt.Errorf("inserting answer: %w", err)
	}
	a.ActionType = domain.ActionAnswer
	return nil
}

// InsertBoostAction records a boost use
func (r *Repository) InsertBoostAction(ctx context.Context, a *domain.PlayerAction) error {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO wave_player_actions (wave_id, lobby_id, user_id, channel_id, action_type, emitted_at,
			data, wave_question_id)
		VALUES ($1, $2, $3, $4, 'boost', $5, $6, $7)
		RETURNING id
	`, a.WaveID, a.LobbyID, a.UserID, a.ChannelID, a.EmittedAt, a.Data, a.WaveQuestionID).Scan(&a.ID)
	if err != nil {
		return fmt.Errorf("inserting boost action: %w", err)
	}
	a.ActionType = domain.ActionBoost
	return nil
}

// UpdateAnswerStars overwrites the stars of an answer
func (r *Repository) UpdateAnswerStars(ctx context.Context, actionID int64, stars int) error {
	result, err := r.pool.Exec(ctx, `
		UPDATE wave_player_actions SET stars_distributed = $2
		WHERE id = $1 AND action_type = 'answer'
	`, actionID, stars)
	if err != nil {
		return fmt.Errorf("updating answer stars: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("updating answer stars: action %d not found", actionID)
	}
	return nil
}

// LobbyAnswers lists every answer given in a lobby, oldest first
func (r *Repository) LobbyAnswers(ctx context.Context, lobbyID string) ([]domain.PlayerAction, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+actionColumns+`
		FROM wave_player_actions
		WHERE lobby_id = $1 AND action_type = 'answer'
		ORDER BY id
	`, lobbyID)
	if err != nil {
		return nil, fmt.Errorf("listing lobby answers: %w", err)
	}
	defer rows.Close()

	var actions []domain.PlayerAction
	for rows.Next() {
		a, err := scanAction(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning answer: %w", err)
		}
		actions = append(actions, *a)
	}
	return actions, rows.Err()
}

// LobbyStandings ranks the participants of a lobby by summed stars.
// Ties go to whoever answered first; participants without answers score zero.
func (r *Repository) LobbyStandings(ctx context.Context, lobbyID string) ([]domain.LobbyStanding, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT p.user_id,
			   COALESCE(SUM(a.stars_distributed), 0) AS score,
			   COALESCE(u.level, 1) AS level,
			   COALESCE(u.trophies, 0) AS trophies
		FROM wave_participants p
		LEFT JOIN wave_player_actions a
			ON a.lobby_id = p.lobby_id AND a.user_id = p.user_id AND a.action_type = 'answer'
		LEFT JOIN users u ON u.id = p.user_id
		WHERE p.lobby_id = $1
		GROUP BY p.user_id, u.level, u.trophies
		ORDER BY score DESC, MIN(a.id) ASC NULLS LAST, p.user_id ASC
	`, lobbyID)
	if err != nil {
		return nil, fmt.Errorf("getting lobby standings: %w", err)
	}
	defer rows.Close()

	var standings []domain.LobbyStanding
	for rows.Next() {
		var s domain.LobbyStanding
		if err := rows.Scan(&s.UserID, &s.Score, &s.Level, &s.Trophies); err != nil {
			return nil, fmt.Errorf("scanning standing: %w", err)
		}
		standings = append(standings, s)
	}
	return standings, rows.Err()
}
