package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/trivia-wave/internal/domain"
)

const waveColumns = `id, channel_id, status, reason, questions_amount, start_at, resolve_at,
	show_resolve_at, finish_at, previous_finished_at, zero_lobby_id, created_at`

func scanWave(row pgx.Row) (*domain.Wave, error) {
	var w domain.Wave
	err := row.Scan(
		&w.ID,
		&w.ChannelID,
		&w.Status,
		&w.Reason,
		&w.QuestionsAmount,
		&w.StartAt,
		&w.ResolveAt,
		&w.ShowResolveAt,
		&w.FinishAt,
		&w.PreviousFinishedAt,
		&w.ZeroLobbyID,
		&w.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &w, nil
}

// CreateWave inserts a wave together with its zero lobby.
// canCreate is called with the channel's latest wave (nil if none) under a per-channel lock.
func (r *Repository) CreateWave(ctx context.Context, w *domain.Wave, canCreate func(latest *domain.Wave) error) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, w.ChannelID); err != nil {
			return fmt.Errorf("locking channel: %w", err)
		}

		latest, err := scanWave(tx.QueryRow(ctx,
			`SELECT `+waveColumns+` FROM waves WHERE channel_id = $1 ORDER BY created_at DESC, id DESC LIMIT 1`,
			w.ChannelID))
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("getting latest wave: %w", err)
		}
		if err := canCreate(latest); err != nil {
			return err
		}

		err = tx.QueryRow(ctx, `
			INSERT INTO waves (channel_id, status, reason, questions_amount, start_at, previous_finished_at, zero_lobby_id, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			RETURNING id
		`, w.ChannelID, w.Status, w.Reason, w.QuestionsAmount, w.StartAt, w.PreviousFinishedAt, w.ZeroLobbyID, w.CreatedAt).Scan(&w.ID)
		if err != nil {
			return fmt.Errorf("creating wave: %w", err)
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO wave_lobbies (id, wave_id, channel_id, zero_lobby, created_at)
			VALUES ($1, $2, $3, TRUE, $4)
		`, w.ZeroLobbyID, w.ID, w.ChannelID, w.CreatedAt)
		if err != nil {
			return fmt.Errorf("creating zero lobby: %w", err)
		}
		return nil
	})
}

// GetWave retrieves a wave with its questions
func (r *Repository) GetWave(ctx context.Context, waveID int64) (*domain.Wave, error) {
	w, err := scanWave(r.pool.QueryRow(ctx, `SELECT `+waveColumns+` FROM waves WHERE id = $1`, waveID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrWaveNotFound
		}
		return nil, fmt.Errorf("getting wave: %w", err)
	}
	if err := r.loadQuestions(ctx, w); err != nil {
		return nil, err
	}
	return w, nil
}

// LatestWave retrieves the most recent wave of a channel with its questions
func (r *Repository) LatestWave(ctx context.Context, channelID string) (*domain.Wave, error) {
	w, err := scanWave(r.pool.QueryRow(ctx,
		`SELECT `+waveColumns+` FROM waves WHERE channel_id = $1 ORDER BY created_at DESC, id DESC LIMIT 1`,
		channelID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrWaveNotFound
		}
		return nil, fmt.Errorf("getting latest wave: %w", err)
	}
	if err := r.loadQuestions(ctx, w); err != nil {
		return nil, err
	}
	return w, nil
}

// WavesInStatus lists waves currently in one of the given statuses
func (r *Repository) WavesInStatus(ctx context.Context, statuses []domain.WaveStatus, limit int) ([]domain.Wave, error) {
	raw := make([]string, len(statuses))
	for i, s := range statuses {
		raw[i] = string(s)
	}

	rows, err := r.pool.Query(ctx,
		`SELECT `+waveColumns+` FROM waves WHERE status = ANY($1) ORDER BY id LIMIT $2`, raw, limit)
	if err != nil {
		return nil, fmt.Errorf("listing waves: %w", err)
	}
	defer rows.Close()

	var waves []domain.Wave
	for rows.Next() {
		w, err := scanWave(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning wave: %w", err)
		}
		waves = append(waves, *w)
	}
	return waves, rows.Err()
}

func (r *Repository) loadQuestions(ctx context.Context, w *domain.Wave) error {
	rows, err := r.pool.Query(ctx, `
		SELECT id, wave_id, content, question_index, show_at, start_at, finish_at,
			   min_score, max_score, correct_answer_indexes
		FROM wave_questions
		WHERE wave_id = $1
		ORDER BY question_index
	`, w.ID)
	if err != nil {
		return fmt.Errorf("getting wave questions: %w", err)
	}
	defer rows.Close()

	w.Questions = w.Questions[:0]
	for rows.Next() {
		var q domain.WaveQuestion
		err := rows.Scan(
			&q.ID,
			&q.WaveID,
			&q.Content,
			&q.QuestionIndex,
			&q.ShowAt,
			&q.StartAt,
			&q.FinishAt,
			&q.MinScore,
			&q.MaxScore,
			&q.CorrectAnswerIndexes,
		)
		if err != nil {
			return fmt.Errorf("scanning wave question: %w", err)
		}
		w.Questions = append(w.Questions, q)
	}
	return rows.Err()
}

// AddQuestion inserts a question into a wave
func (r *Repository) AddQuestion(ctx context.Context, q *domain.WaveQuestion) error {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO wave_questions (wave_id, content, question_index, show_at, start_at, finish_at,
			min_score, max_score, correct_answer_indexes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`, q.WaveID, q.Content, q.QuestionIndex, q.ShowAt, q.StartAt, q.FinishAt,
		q.MinScore, q.MaxScore, q.CorrectAnswerIndexes).Scan(&q.ID)
	if err != nil {
		return fmt.Errorf("adding wave question: %w", err)
	}
	return nil
}

// TransitionWave moves a wave from one status to another if it is still in from
func (r *Repository) TransitionWave(ctx context.Context, waveID int64, from, to domain.WaveStatus) error {
	result, err := r.pool.Exec(ctx, `UPDATE waves SET status = $3 WHERE id = $1 AND status = $2`, waveID, from, to)
	if err != nil {
		return fmt.Errorf("transitioning wave: %w", err)
	}
	if result.RowsAffected() == 0 {
		return r.missingOr(ctx, waveID, fmt.Errorf("%w: wave %d is no longer %s", domain.ErrInvalidTransition, waveID, from))
	}
	return nil
}

// FinishResolution stores the resolution timestamps and moves the wave to wave_results
func (r *Repository) FinishResolution(ctx context.Context, waveID int64, resolveAt, showResolveAt, finishAt time.Time) error {
	result, err := r.pool.Exec(ctx, `
		UPDATE waves
		SET resolve_at = $2, show_resolve_at = $3, finish_at = $4, status = $5
		WHERE id = $1
	`, waveID, resolveAt, showResolveAt, finishAt, domain.StatusWaveResults)
	if err != nil {
		return fmt.Errorf("finishing wave resolution: %w", err)
	}
	if result.RowsAffected() == 0 {
		return domain.ErrWaveNotFound
	}
	return nil
}

func (r *Repository) missingOr(ctx context.Context, waveID int64, err error) error {
	var exists bool
	if qerr := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM waves WHERE id = $1)`, waveID).Scan(&exists); qerr != nil {
		return fmt.Errorf("checking wave existence: %w", qerr)
	}
	if !exists {
		return domain.ErrWaveNotFound
	}
	return err
}

// EmptyChannelHistory deletes every wave of a channel created up to till (all if nil)
// and everything attached to them. Returns the ids of the deleted lobbies.
func (r *Repository) EmptyChannelHistory(ctx context.Context, channelID string, till *time.Time) ([]string, error) {
	var lobbyIDs []string
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, `
			SELECT id FROM waves
			WHERE channel_id = $1 AND ($2::timestamptz IS NULL OR created_at <= $2)
		`, channelID, till)
		if err != nil {
			return fmt.Errorf("listing channel waves: %w", err)
		}
		waveIDs, err := pgx.CollectRows(rows, pgx.RowTo[int64])
		if err != nil {
			return fmt.Errorf("scanning channel waves: %w", err)
		}
		if len(waveIDs) == 0 {
			return nil
		}

		rows, err = tx.Query(ctx, `SELECT id FROM wave_lobbies WHERE wave_id = ANY($1)`, waveIDs)
		if err != nil {
			return fmt.Errorf("listing channel lobbies: %w", err)
		}
		lobbyIDs, err = pgx.CollectRows(rows, pgx.RowTo[string])
		if err != nil {
			return fmt.Errorf("scanning channel lobbies: %w", err)
		}

		statements := []string{
			`DELETE FROM wave_trophy_txs WHERE wave_id = ANY($1)`,
			`DELETE FROM wave_player_actions WHERE wave_id = ANY($1)`,
			`DELETE FROM wave_participants WHERE wave_id = ANY($1)`,
			`DELETE FROM wave_lobbies WHERE wave_id = ANY($1)`,
			`DELETE FROM wave_questions WHERE wave_id = ANY($1)`,
			`DELETE FROM waves WHERE id = ANY($1)`,
		}
		for _, stmt := range statements {
			if _, err := tx.Exec(ctx, stmt, waveIDs); err != nil {
				return fmt.Errorf("emptying channel history: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return lobbyIDs, nil
}
