package service

import (
	"context"
	"fmt"

	"github.com/trivia-wave/internal/domain"
)

// ScoringWaves lists waves whose answers may still change lobby leaderboards
func (s *WaveService) ScoringWaves(ctx context.Context, limit int) ([]domain.Wave, error) {
	var statuses []domain.WaveStatus
	for _, status := range domain.AllStatuses {
		if status.Scoring() {
			statuses = append(statuses, status)
		}
	}
	waves, err := s.repo.WavesInStatus(ctx, statuses, limit)
	if err != nil {
		return nil, fmt.Errorf("listing scoring waves: %w", err)
	}
	return waves, nil
}

// ReconcileWave rebuilds progress lists and lobby leaderboards of a wave from recorded answers
func (s *WaveService) ReconcileWave(ctx context.Context, w *domain.Wave) (int, error) {
	lobbies, err := s.repo.WaveLobbies(ctx, w.ID)
	if err != nil {
		return 0, fmt.Errorf("getting wave lobbies: %w", err)
	}

	users := 0
	for _, lobby := range lobbies {
		n, err := s.reconcileLobby(ctx, w, lobby.ID)
		if err != nil {
			return users, err
		}
		users += n
	}
	return users, nil
}

func (s *WaveService) reconcileLobby(ctx context.Context, w *domain.Wave, lobbyID string) (int, error) {
	answers, err := s.repo.LobbyAnswers(ctx, lobbyID)
	if err != nil {
		return 0, fmt.Errorf("getting answers of lobby %s: %w", lobbyID, err)
	}
	if len(answers) == 0 {
		return 0, nil
	}

	progress := make(map[string][]domain.ProgressItem)
	for _, a := range answers {
		items, ok := progress[a.UserID]
		if !ok {
			items = domain.EmptyProgress(w.QuestionsAmount)
		}
		idx := a.Data.QuestionIndex
		if idx < 0 || idx >= len(items) {
			s.logger.Warn("answer outside wave questions", "lobby_id", lobbyID, "action_id", a.ID, "question_index", idx)
			continue
		}
		items[idx] = domain.ResultItem(a.HasWon(), a.Stars())
		progress[a.UserID] = items
	}

	scores := make(map[string]int64, len(progress))
	for userID, items := range progress {
		if err := s.state.ReplaceProgress(ctx, userID, lobbyID, items, s.progressTTL()); err != nil {
			return 0, fmt.Errorf("replacing progress: %w", err)
		}
		scores[userID] = int64(domain.TotalScore(items))
	}
	if err := s.state.ReplaceLobbyScores(ctx, lobbyID, scores, s.config.ProgressTTLMax); err != nil {
		return 0, fmt.Errorf("replacing lobby scores: %w", err)
	}
	return len(progress), nil
}
