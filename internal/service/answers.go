package service

import (
	"context"
	"fmt"

	"github.com/trivia-wave/internal/domain"
	"github.com/trivia-wave/internal/timing"
)

// SubmitAnswer validates, scores and records a player's answer to a question
func (s *WaveService) SubmitAnswer(ctx context.Context, req domain.SubmitAnswerRequest) (*domain.PlayerAction, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	now := s.clock()

	w, err := s.repo.LatestWave(ctx, req.ChannelID)
	if err != nil {
		return nil, fmt.Errorf("getting wave: %w", err)
	}
	p, err := s.repo.GetParticipation(ctx, w.ID, req.UserID)
	if err != nil {
		return nil, fmt.Errorf("getting participation: %w", err)
	}
	q, ok := w.Question(req.QuestionIndex)
	if !ok {
		return nil, fmt.Errorf("%w: index %d", domain.ErrQuestionNotFound, req.QuestionIndex)
	}
	for _, idx := range req.SelectedIndexes {
		if idx >= len(q.Content.Options) {
			return nil, fmt.Errorf("%w: option %d", domain.ErrInvalidRequest, idx)
		}
	}

	at, err := s.timing.Clamp(req.SelectedAnswerAt, now)
	if err != nil {
		s.logger.Warn("stale answer", "user_id", req.UserID, "wave_id", w.ID, "selected_at", req.SelectedAnswerAt)
		return nil, err
	}
	if err := timing.InWindow(at, q.StartAt, q.FinishAt); err != nil {
		s.logger.Warn("answer outside window", "user_id", req.UserID, "wave_id", w.ID, "question_index", q.QuestionIndex)
		return nil, err
	}

	existing, err := s.repo.FindAnswer(ctx, req.UserID, p.LobbyID, q.ID)
	if err != nil {
		return nil, fmt.Errorf("finding answer: %w", err)
	}
	if existing != nil {
		return nil, domain.ErrAlreadyAnswered
	}

	partial, err := s.state.GetPartialState(ctx, req.UserID, p.LobbyID, q.QuestionIndex)
	if err != nil {
		return nil, fmt.Errorf("getting partial state: %w", err)
	}
	effective := domain.EffectiveState(q, partial)

	won := effective.Won(req.SelectedIndexes)
	stars := 0
	if won {
		stars = timing.ScoreForElapsed(at, q.StartAt, q.FinishAt, effective.MaxScore, effective.MinScore)
	}
	if partial != nil && partial.AppliedBoost != nil {
		b, err := s.boosts.Get(partial.AppliedBoost.BoostID)
		if err != nil {
			return nil, err
		}
		if b.MutatesScore() {
			stars = b.BoostedScore(stars)
		}
	}

	action := &domain.PlayerAction{
		WaveID:    w.ID,
		LobbyID:   p.LobbyID,
		UserID:    req.UserID,
		ChannelID: req.ChannelID,
		EmittedAt: at,
		Data: domain.ActionData{
			QuestionIndex:   q.QuestionIndex,
			SelectedIndexes: req.SelectedIndexes,
		},
		StarsDistributed: &stars,
		Won:              &won,
		WaveQuestionID:   q.ID,
	}
	if err := s.repo.InsertAnswer(ctx, action); err != nil {
		return nil, fmt.Errorf("recording answer: %w", err)
	}

	// The action row is the source of truth; the reconciler repairs the cache if these fail
	if err := s.state.SetProgressItem(ctx, req.UserID, p.LobbyID, q.QuestionIndex, domain.ResultItem(won, stars)); err != nil {
		s.logger.Error("failed to update progress", "user_id", req.UserID, "lobby_id", p.LobbyID, "error", err)
	}
	if stars > 0 {
		if _, err := s.state.IncrementLobbyScore(ctx, p.LobbyID, req.UserID, int64(stars), s.config.ProgressTTLMax); err != nil {
			s.logger.Error("failed to update lobby leaderboard", "lobby_id", p.LobbyID, "error", err)
		}
	}

	s.logger.Debug("answer recorded",
		"user_id", req.UserID,
		"wave_id", w.ID,
		"question_index", q.QuestionIndex,
		"won", won,
		"stars", stars,
	)
	index := q.QuestionIndex
	s.notify(ctx, domain.Event{
		Type:          domain.EventSelectedAnswer,
		ChannelID:     req.ChannelID,
		WaveID:        w.ID,
		LobbyID:       p.LobbyID,
		UserID:        req.UserID,
		QuestionIndex: &index,
	})
	return action, nil
}
