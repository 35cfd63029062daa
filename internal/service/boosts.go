package service

import (
	"context"
	"fmt"

	"github.com/trivia-wave/internal/boost"
	"github.com/trivia-wave/internal/domain"
	"github.com/trivia-wave/internal/timing"
)

// ApplyBoost uses one unit of a boost on a question of the user's lobby.
// A winning answer is rescored first; the stars, the quota slot and the question claim
// are given back on every failure before the partial state is stored.
func (s *WaveService) ApplyBoost(ctx context.Context, req domain.ApplyBoostRequest) (*domain.UserBoost, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	now := s.clock()

	b, err := s.boosts.Get(req.BoostID)
	if err != nil {
		return nil, err
	}
	info := b.Info()

	appliedAt := req.AppliedAt
	if appliedAt.After(now) {
		appliedAt = now
	}
	applied := domain.AppliedBoost{BoostID: info.ID, QuestionIndex: req.QuestionIndex, AppliedAt: appliedAt}

	if err := s.state.ReserveBoost(ctx, req.UserID, req.LobbyID, applied, s.config.BoostLimit, s.config.ProgressTTLMax); err != nil {
		return nil, err
	}
	claimed := false
	committed := false
	var rescored *domain.PlayerAction
	var oldStars int
	defer func() {
		if committed {
			return
		}
		rollbackCtx := context.WithoutCancel(ctx)
		if rescored != nil {
			if err := s.repo.UpdateAnswerStars(rollbackCtx, rescored.ID, oldStars); err != nil {
				s.logger.Error("failed to restore answer stars", "user_id", req.UserID, "action_id", rescored.ID, "error", err)
			}
		}
		if err := s.state.ReleaseBoost(rollbackCtx, req.UserID, req.LobbyID, applied); err != nil {
			s.logger.Error("failed to release boost quota", "user_id", req.UserID, "lobby_id", req.LobbyID, "error", err)
		}
		if claimed {
			if err := s.state.ReleaseQuestionBoost(rollbackCtx, req.UserID, req.LobbyID, req.QuestionIndex); err != nil {
				s.logger.Error("failed to release question claim", "user_id", req.UserID, "lobby_id", req.LobbyID, "error", err)
			}
		}
	}()

	lobby, err := s.repo.GetLobby(ctx, req.LobbyID)
	if err != nil {
		return nil, fmt.Errorf("getting lobby: %w", err)
	}
	p, err := s.repo.GetParticipation(ctx, lobby.WaveID, req.UserID)
	if err != nil {
		return nil, fmt.Errorf("getting participation: %w", err)
	}
	if p.LobbyID != lobby.ID {
		return nil, domain.ErrParticipationNotFound
	}
	w, err := s.repo.GetWave(ctx, lobby.WaveID)
	if err != nil {
		return nil, fmt.Errorf("getting wave: %w", err)
	}
	q, ok := w.Question(req.QuestionIndex)
	if !ok {
		return nil, fmt.Errorf("%w: index %d", domain.ErrQuestionNotFound, req.QuestionIndex)
	}

	if err := s.state.ClaimQuestionBoost(ctx, req.UserID, req.LobbyID, req.QuestionIndex, info.ID, s.config.ProgressTTLMax); err != nil {
		return nil, err
	}
	claimed = true

	partial, err := s.state.GetPartialState(ctx, req.UserID, req.LobbyID, req.QuestionIndex)
	if err != nil {
		return nil, fmt.Errorf("getting partial state: %w", err)
	}
	if partial != nil && partial.AppliedBoost != nil {
		// Claim expired while the boost record survived
		claimed = false
		return nil, domain.ErrBoostAlreadyApplied
	}

	if _, err := s.timing.Clamp(req.AppliedAt, now); err != nil {
		s.logger.Warn("stale boost", "user_id", req.UserID, "boost_id", info.ID, "applied_at", req.AppliedAt)
		return nil, err
	}
	if err := timing.InWindow(appliedAt, q.StartAt, q.FinishAt); err != nil {
		return nil, err
	}

	inventory, err := s.repo.UserBoost(ctx, req.UserID, info.ID)
	if err != nil {
		return nil, fmt.Errorf("getting user boost: %w", err)
	}
	if inventory.Amount <= 0 {
		return nil, domain.ErrInsufficientBoostInventory
	}

	answer, err := s.repo.FindAnswer(ctx, req.UserID, req.LobbyID, q.ID)
	if err != nil {
		return nil, fmt.Errorf("finding answer: %w", err)
	}
	if answer != nil && !info.AllowedAfterAnswer {
		return nil, domain.ErrAlreadyAnswered
	}
	if answer == nil && !info.AllowedBeforeAnswer {
		return nil, domain.ErrBoostRequiresAnswer
	}

	mutated, err := b.Apply(domain.EffectiveState(q, partial), s.rng)
	if err != nil {
		return nil, err
	}

	boostedStars := 0
	if b.MutatesScore() && answer != nil && answer.HasWon() {
		oldStars = answer.Stars()
		boostedStars = b.BoostedScore(oldStars)
		if err := s.repo.UpdateAnswerStars(ctx, answer.ID, boostedStars); err != nil {
			return nil, fmt.Errorf("rescoring answer: %w", err)
		}
		rescored = answer
	}

	left, err := s.repo.ConsumeBoost(ctx, req.UserID, info.ID)
	if err != nil {
		return nil, fmt.Errorf("consuming boost: %w", err)
	}
	if err := s.state.SetPartialState(ctx, req.UserID, req.LobbyID, req.QuestionIndex, mutated.ToPartial(&applied), s.config.ProgressTTLMax); err != nil {
		if rerr := s.repo.GrantBoosts(context.WithoutCancel(ctx), req.UserID, map[string]int{info.ID: 1}); rerr != nil {
			s.logger.Error("failed to refund boost", "user_id", req.UserID, "boost_id", info.ID, "error", rerr)
		}
		return nil, fmt.Errorf("storing partial state: %w", err)
	}
	committed = true

	action := &domain.PlayerAction{
		WaveID:         w.ID,
		LobbyID:        req.LobbyID,
		UserID:         req.UserID,
		ChannelID:      w.ChannelID,
		EmittedAt:      appliedAt,
		Data:           domain.ActionData{QuestionIndex: req.QuestionIndex, BoostID: info.ID},
		WaveQuestionID: q.ID,
	}
	if err := s.repo.InsertBoostAction(ctx, action); err != nil {
		s.logger.Error("failed to record boost action", "user_id", req.UserID, "boost_id", info.ID, "error", err)
	}

	if rescored != nil {
		s.publishRescore(ctx, rescored, oldStars, boostedStars)
	}

	s.logger.Info("boost applied",
		"user_id", req.UserID,
		"lobby_id", req.LobbyID,
		"boost_id", info.ID,
		"question_index", req.QuestionIndex,
	)
	index := req.QuestionIndex
	s.notify(ctx, domain.Event{
		Type:          domain.EventBoostApplied,
		ChannelID:     w.ChannelID,
		WaveID:        w.ID,
		LobbyID:       req.LobbyID,
		UserID:        req.UserID,
		QuestionIndex: &index,
		BoostID:       info.ID,
	})
	return &domain.UserBoost{UserID: req.UserID, BoostID: info.ID, Amount: left}, nil
}

// publishRescore moves a rescored answer's progress item and leaderboard entry to the boosted stars
func (s *WaveService) publishRescore(ctx context.Context, answer *domain.PlayerAction, old, boosted int) {
	answer.StarsDistributed = &boosted

	item := domain.ProgressItem{State: domain.ProgressPassed, Score: boosted}
	if err := s.state.SetProgressItem(ctx, answer.UserID, answer.LobbyID, answer.Data.QuestionIndex, item); err != nil {
		s.logger.Error("failed to update progress", "user_id", answer.UserID, "lobby_id", answer.LobbyID, "error", err)
	}
	if delta := boosted - old; delta != 0 {
		if _, err := s.state.IncrementLobbyScore(ctx, answer.LobbyID, answer.UserID, int64(delta), s.config.ProgressTTLMax); err != nil {
			s.logger.Error("failed to update lobby leaderboard", "lobby_id", answer.LobbyID, "error", err)
		}
	}
}

// BoostInfo describes a boost kind
func (s *WaveService) BoostInfo(boostID string) (domain.BoostInfo, error) {
	b, err := s.boosts.Get(boostID)
	if err != nil {
		return domain.BoostInfo{}, err
	}
	return b.Info(), nil
}

// BoostCatalogue lists every boost kind
func (s *WaveService) BoostCatalogue() []domain.BoostInfo {
	all := s.boosts.All()
	infos := make([]domain.BoostInfo, len(all))
	for i, b := range all {
		infos[i] = b.Info()
	}
	return infos
}

// UserBoost returns a user's inventory of a boost
func (s *WaveService) UserBoost(ctx context.Context, userID, boostID string) (*domain.UserBoost, error) {
	if _, err := s.boosts.Get(boostID); err != nil {
		return nil, err
	}
	ub, err := s.repo.UserBoost(ctx, userID, boostID)
	if err != nil {
		return nil, fmt.Errorf("getting user boost: %w", err)
	}
	return ub, nil
}

// GrantBoosts adds boost units to a user's inventory
func (s *WaveService) GrantBoosts(ctx context.Context, userID string, amounts map[string]int) error {
	if userID == "" || len(amounts) == 0 {
		return domain.ErrInvalidRequest
	}
	for boostID, amount := range amounts {
		if _, err := s.boosts.Get(boostID); err != nil {
			return err
		}
		if amount <= 0 {
			return fmt.Errorf("%w: amount of %s must be positive", domain.ErrInvalidRequest, boostID)
		}
	}
	if err := s.repo.GrantBoosts(ctx, userID, amounts); err != nil {
		return fmt.Errorf("granting boosts: %w", err)
	}
	return nil
}

// DropRandomBoost grants one boost picked by loot weight and returns its id
func (s *WaveService) DropRandomBoost(ctx context.Context, userID string) (string, error) {
	b, ok := s.boosts.RandomDrop(s.rng)
	if !ok {
		return "", domain.ErrBoostNotFound
	}
	id := boost.ID(b)
	if err := s.GrantBoosts(ctx, userID, map[string]int{id: 1}); err != nil {
		return "", err
	}
	return id, nil
}
