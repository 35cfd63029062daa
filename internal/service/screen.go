package service

import (
	"context"
	"fmt"

	"github.com/trivia-wave/internal/domain"
)

// ScreenRequest selects what to render for a player
type ScreenRequest struct {
	ChannelID string
	UserID    string
	// LobbyID is empty for users without a participation
	LobbyID string
	// Wave is nil when the channel has no wave
	Wave *domain.Wave
	// QuestionIndex defaults to the latest question of the wave
	QuestionIndex *int
	// FetchAnswer echoes the user's own answer on the question
	FetchAnswer bool
	// OverrideStatus renders as if the wave was in this status
	OverrideStatus domain.WaveStatus
}

// ScreenForPlayer builds the player-facing screen for the wave's current status
func (s *WaveService) ScreenForPlayer(ctx context.Context, req ScreenRequest) (domain.WaveScreen, error) {
	now := s.clock()

	king, err := s.state.ChannelLeader(ctx, req.ChannelID)
	if err != nil {
		s.logger.Warn("failed to get channel leader", "channel_id", req.ChannelID, "error", err)
		king = nil
	}
	fallback := &domain.BeforeWaveScreen{Type: domain.ScreenBeforeWave, ShowAt: now, CurrentKing: king}

	w := req.Wave
	if w == nil || s.stale(w) {
		return fallback, nil
	}

	status := w.Status
	if req.OverrideStatus != "" {
		status = req.OverrideStatus
	}
	phase, err := status.Phase()
	if err != nil {
		s.logger.Warn("rendering unknown wave status", "wave_id", w.ID, "status", status)
		return fallback, nil
	}

	switch phase {
	case domain.PhaseBeforeWave:
		startAt, waveID := w.StartAt, w.ID
		return &domain.BeforeWaveScreen{
			Type:        domain.ScreenBeforeWave,
			ShowAt:      w.PreviousFinishedAt.Add(s.config.EndScreenDelay),
			WaveStartAt: &startAt,
			CurrentKing: king,
			WaveID:      &waveID,
		}, nil

	case domain.PhaseFinished:
		showAt := now
		if w.FinishAt != nil {
			if at := w.FinishAt.Add(s.config.EndScreenDelay); at.After(now) {
				showAt = at
			}
		}
		return &domain.BeforeWaveScreen{Type: domain.ScreenBeforeWave, ShowAt: showAt, CurrentKing: king}, nil

	case domain.PhaseActiveLobby:
		if req.LobbyID == "" {
			return fallback, nil
		}
		return s.activeLobbyScreen(ctx, req, status, fallback)

	case domain.PhaseResult:
		if req.LobbyID == "" {
			return fallback, nil
		}
		return s.resultScreen(ctx, req)
	}
	return fallback, nil
}

func (s *WaveService) activeLobbyScreen(ctx context.Context, req ScreenRequest, status domain.WaveStatus, fallback domain.WaveScreen) (domain.WaveScreen, error) {
	w := req.Wave

	var q *domain.WaveQuestion
	var ok bool
	if req.QuestionIndex != nil {
		q, ok = w.Question(*req.QuestionIndex)
	} else {
		q, ok = w.LatestQuestion()
	}
	if !ok {
		s.logger.Debug("no question to render", "wave_id", w.ID, "status", status)
		return fallback, nil
	}

	view, progress, err := s.lobbyView(ctx, req)
	if err != nil {
		return nil, err
	}
	view.ShowAt = q.ShowAt

	// The result of the question in flight stays hidden until question_results
	if status == domain.StatusQuestionRevealed && q.QuestionIndex < len(progress) {
		progress[q.QuestionIndex] = domain.ProgressItem{State: domain.ProgressEmpty}
	}
	view.Progress = progressStates(progress)
	view.Score = domain.TotalScore(progress)

	screen := &domain.ActiveLobbyScreen{
		Type:          domain.ScreenActiveLobby,
		LobbyView:     view,
		QuestionIndex: q.QuestionIndex,
		QuestionID:    q.ID,
	}
	if status == domain.StatusQuestionGenerated {
		return screen, nil
	}

	partial, err := s.state.GetPartialState(ctx, req.UserID, req.LobbyID, q.QuestionIndex)
	if err != nil {
		return nil, fmt.Errorf("getting partial state: %w", err)
	}
	effective := domain.EffectiveState(q, partial)

	question := &domain.QuestionView{
		StartAt:      q.StartAt,
		FinishAt:     q.FinishAt,
		Title:        q.Content.Title,
		Options:      q.Content.Options,
		TitleVars:    q.Content.TitleVars,
		OptionsVars:  q.Content.OptionsVars,
		MinScore:     effective.MinScore,
		MaxScore:     effective.MaxScore,
		ButtonMapper: effective.ButtonMapper,
	}
	if req.FetchAnswer {
		answer, err := s.repo.FindAnswer(ctx, req.UserID, req.LobbyID, q.ID)
		if err != nil {
			return nil, fmt.Errorf("getting answer: %w", err)
		}
		if answer != nil {
			selectedAt := answer.EmittedAt
			question.SelectedIndexes = answer.Data.SelectedIndexes
			question.SelectedAt = &selectedAt
		}
	}
	if status == domain.StatusQuestionResults {
		question.CorrectAnswerIndexes = effective.CorrectAnswerIndexes
	}
	screen.Question = question
	return screen, nil
}

func (s *WaveService) resultScreen(ctx context.Context, req ScreenRequest) (domain.WaveScreen, error) {
	view, progress, err := s.lobbyView(ctx, req)
	if err != nil {
		return nil, err
	}
	view.ShowAt = s.clock()
	if req.Wave.ShowResolveAt != nil {
		view.ShowAt = *req.Wave.ShowResolveAt
	}
	view.Progress = progressStates(progress)
	view.Score = domain.TotalScore(progress)

	screen := &domain.ResultScreen{Type: domain.ScreenResult, LobbyView: view}
	tx, err := s.repo.TrophyTx(ctx, req.LobbyID, req.UserID)
	if err != nil {
		return nil, fmt.Errorf("getting trophy tx: %w", err)
	}
	if tx != nil {
		screen.EarnedTrophies = tx.Amount
		screen.EarnedLootsAmount = len(tx.LootIDs)
	}
	return screen, nil
}

// lobbyView loads the parts shared by the active and result screens
func (s *WaveService) lobbyView(ctx context.Context, req ScreenRequest) (domain.LobbyView, []domain.ProgressItem, error) {
	view := domain.LobbyView{
		LobbyID:       req.LobbyID,
		WaveID:        req.Wave.ID,
		AppliedBoosts: map[int]domain.AppliedBoostView{},
		BoostLimit:    s.config.BoostLimit,
	}

	progress, err := s.state.GetProgress(ctx, req.UserID, req.LobbyID)
	if err != nil {
		return view, nil, fmt.Errorf("getting progress: %w", err)
	}

	applied, err := s.state.AppliedBoosts(ctx, req.UserID, req.LobbyID)
	if err != nil {
		return view, nil, fmt.Errorf("getting applied boosts: %w", err)
	}
	// Reservations of boosts still in flight or rolled back have no stored partial state
	for _, b := range applied {
		partial, err := s.state.GetPartialState(ctx, req.UserID, req.LobbyID, b.QuestionIndex)
		if err != nil {
			return view, nil, fmt.Errorf("getting partial state: %w", err)
		}
		if partial == nil || partial.AppliedBoost == nil {
			continue
		}
		view.AppliedBoosts[b.QuestionIndex] = domain.AppliedBoostView{
			BoostID:   partial.AppliedBoost.BoostID,
			AppliedAt: partial.AppliedBoost.AppliedAt,
		}
	}

	lobby, err := s.repo.GetLobby(ctx, req.LobbyID)
	if err != nil {
		return view, nil, fmt.Errorf("getting lobby: %w", err)
	}
	if lobby.Ranked() {
		view.Leaderboard, err = s.leaderboard(ctx, lobby.ID)
		if err != nil {
			return view, nil, err
		}
	}
	return view, progress, nil
}

// leaderboard returns the top of a lobby with usernames
func (s *WaveService) leaderboard(ctx context.Context, lobbyID string) ([]domain.LeaderboardEntry, error) {
	entries, err := s.state.GetTopN(ctx, lobbyID, s.config.LeaderboardSize)
	if err != nil {
		return nil, fmt.Errorf("getting leaderboard: %w", err)
	}
	if len(entries) == 0 {
		return entries, nil
	}

	ids := make([]string, len(entries))
	for i, e := range entries {
		ids[i] = e.UserID
	}
	names, err := s.repo.Usernames(ctx, ids)
	if err != nil {
		s.logger.Warn("failed to get usernames", "lobby_id", lobbyID, "error", err)
		return entries, nil
	}
	for i := range entries {
		entries[i].Username = sanitizeText(names[entries[i].UserID])
	}
	return entries, nil
}

func progressStates(items []domain.ProgressItem) []domain.ProgressState {
	states := make([]domain.ProgressState, len(items))
	for i, item := range items {
		states[i] = item.State
	}
	return states
}
