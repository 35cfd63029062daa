package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/trivia-wave/internal/boost"
	"github.com/trivia-wave/internal/config"
	"github.com/trivia-wave/internal/domain"
	"github.com/trivia-wave/internal/timing"
)

// WaveService runs the wave lifecycle, answers, boosts and resolution
type WaveService struct {
	repo     Repository
	state    StateStore
	notifier Notifier
	boosts   *boost.Registry
	timing   timing.Policy
	config   *config.WaveConfig
	rewards  RewardRules
	clock    func() time.Time
	rng      boost.Rand
	logger   *slog.Logger
}

// Option customizes a WaveService
type Option func(*WaveService)

// WithClock replaces the wall clock
func WithClock(clock func() time.Time) Option {
	return func(s *WaveService) { s.clock = clock }
}

// WithRand replaces the random source used by boosts and TTLs
func WithRand(rng boost.Rand) Option {
	return func(s *WaveService) { s.rng = rng }
}

type globalRand struct{}

func (globalRand) IntN(n int) int { return rand.Intn(n) }

// NewWaveService creates a new wave service
func NewWaveService(
	repo Repository,
	state StateStore,
	notifier Notifier,
	boosts *boost.Registry,
	waveCfg *config.WaveConfig,
	rewardsCfg *config.RewardsConfig,
	logger *slog.Logger,
	opts ...Option,
) *WaveService {
	s := &WaveService{
		repo:     repo,
		state:    state,
		notifier: notifier,
		boosts:   boosts,
		timing:   timing.NewPolicy(waveCfg.MaxAnswerLatency),
		config:   waveCfg,
		rewards:  NewRewardRules(rewardsCfg),
		clock:    time.Now,
		rng:      globalRand{},
		logger:   logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateWave opens a new wave for a channel together with its zero lobby
func (s *WaveService) CreateWave(ctx context.Context, req domain.CreateWaveRequest) (*domain.Wave, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	now := s.clock()
	w := &domain.Wave{
		ChannelID:          req.ChannelID,
		Status:             domain.StatusAwaiting,
		Reason:             req.Reason,
		QuestionsAmount:    req.QuestionsAmount,
		StartAt:            req.StartAt,
		PreviousFinishedAt: req.PreviousFinishedAt,
		ZeroLobbyID:        uuid.NewString(),
		CreatedAt:          now,
	}

	err := s.repo.CreateWave(ctx, w, func(latest *domain.Wave) error {
		if latest != nil && latest.Status != domain.StatusFinished && now.Sub(latest.StartAt) < s.config.WaveDuration {
			return fmt.Errorf("%w: wave %d is %s", domain.ErrWaveInProgress, latest.ID, latest.Status)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("creating wave: %w", err)
	}

	s.logger.Info("wave created", "wave_id", w.ID, "channel_id", w.ChannelID, "start_at", w.StartAt)
	s.notify(ctx, domain.Event{
		Type:      domain.EventWaveStatusChanged,
		ChannelID: w.ChannelID,
		WaveID:    w.ID,
		Status:    w.Status,
	})
	return w, nil
}

// AddWaveQuestion attaches a question to a wave
func (s *WaveService) AddWaveQuestion(ctx context.Context, req domain.AddQuestionRequest) (*domain.WaveQuestion, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	w, err := s.repo.GetWave(ctx, req.WaveID)
	if err != nil {
		return nil, fmt.Errorf("getting wave: %w", err)
	}
	if req.QuestionIndex >= w.QuestionsAmount {
		return nil, fmt.Errorf("%w: question index %d out of %d", domain.ErrInvalidRequest, req.QuestionIndex, w.QuestionsAmount)
	}

	q := &domain.WaveQuestion{
		WaveID:               req.WaveID,
		Content:              sanitizeContent(req.Content),
		QuestionIndex:        req.QuestionIndex,
		ShowAt:               req.ShowAt,
		StartAt:              req.StartAt,
		FinishAt:             req.FinishAt,
		MinScore:             req.MinScore,
		MaxScore:             req.MaxScore,
		CorrectAnswerIndexes: req.CorrectAnswerIndexes,
	}
	if err := s.repo.AddQuestion(ctx, q); err != nil {
		return nil, fmt.Errorf("adding question: %w", err)
	}
	return q, nil
}

// TransitionWave moves a wave to its next lifecycle status
func (s *WaveService) TransitionWave(ctx context.Context, waveID int64, to domain.WaveStatus) (*domain.Wave, error) {
	w, err := s.repo.GetWave(ctx, waveID)
	if err != nil {
		return nil, fmt.Errorf("getting wave: %w", err)
	}
	if err := w.Status.CanTransitionTo(to); err != nil {
		return nil, err
	}
	if err := s.repo.TransitionWave(ctx, waveID, w.Status, to); err != nil {
		return nil, fmt.Errorf("transitioning wave: %w", err)
	}

	s.logger.Info("wave status changed", "wave_id", waveID, "from", w.Status, "to", to)
	w.Status = to
	s.notify(ctx, domain.Event{
		Type:      domain.EventWaveStatusChanged,
		ChannelID: w.ChannelID,
		WaveID:    w.ID,
		Status:    to,
	})
	return w, nil
}

// CurrentWave renders the channel's wave for a user, enrolling late joiners into the zero lobby
func (s *WaveService) CurrentWave(ctx context.Context, channelID, userID string) (domain.WaveScreen, error) {
	if channelID == "" || userID == "" {
		return nil, domain.ErrInvalidRequest
	}

	w, err := s.latestWave(ctx, channelID)
	if err != nil {
		return nil, err
	}
	if w == nil || s.stale(w) {
		return s.ScreenForPlayer(ctx, ScreenRequest{ChannelID: channelID, UserID: userID})
	}

	lobbyID, err := s.ensureParticipation(ctx, w, userID)
	if err != nil {
		return nil, err
	}

	return s.ScreenForPlayer(ctx, ScreenRequest{
		ChannelID:   channelID,
		UserID:      userID,
		LobbyID:     lobbyID,
		Wave:        w,
		FetchAnswer: true,
	})
}

// ScreenForUser renders the channel's wave for a user without enrolling them.
// A nil questionIndex renders the latest question.
func (s *WaveService) ScreenForUser(ctx context.Context, channelID, userID string, override domain.WaveStatus, questionIndex *int) (domain.WaveScreen, error) {
	w, err := s.latestWave(ctx, channelID)
	if err != nil {
		return nil, err
	}

	req := ScreenRequest{
		ChannelID:      channelID,
		UserID:         userID,
		Wave:           w,
		QuestionIndex:  questionIndex,
		FetchAnswer:    true,
		OverrideStatus: override,
	}
	if w != nil {
		p, err := s.repo.GetParticipation(ctx, w.ID, userID)
		switch {
		case err == nil:
			req.LobbyID = p.LobbyID
		case !errors.Is(err, domain.ErrParticipationNotFound):
			return nil, fmt.Errorf("getting participation: %w", err)
		}
	}
	return s.ScreenForPlayer(ctx, req)
}

// EmptyChannelHistory removes the channel's waves created up to till, or all of them
func (s *WaveService) EmptyChannelHistory(ctx context.Context, channelID string, till *time.Time) error {
	if channelID == "" {
		return domain.ErrInvalidRequest
	}

	lobbyIDs, err := s.repo.EmptyChannelHistory(ctx, channelID, till)
	if err != nil {
		return fmt.Errorf("emptying channel history: %w", err)
	}
	if err := s.state.DeleteLobbies(ctx, lobbyIDs); err != nil {
		s.logger.Warn("failed to delete lobby leaderboards", "channel_id", channelID, "error", err)
	}
	if till == nil {
		if err := s.state.DeleteChannelLeader(ctx, channelID); err != nil {
			s.logger.Warn("failed to delete channel leader", "channel_id", channelID, "error", err)
		}
	}

	s.logger.Info("channel history emptied", "channel_id", channelID, "lobbies", len(lobbyIDs))
	return nil
}

// latestWave returns the channel's latest wave or nil if it never had one
func (s *WaveService) latestWave(ctx context.Context, channelID string) (*domain.Wave, error) {
	w, err := s.repo.LatestWave(ctx, channelID)
	if err != nil {
		if errors.Is(err, domain.ErrWaveNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("getting latest wave: %w", err)
	}
	return w, nil
}

func (s *WaveService) stale(w *domain.Wave) bool {
	return s.clock().Sub(w.StartAt) > s.config.StaleAfter
}

// ensureParticipation returns the user's lobby, joining the zero lobby when allowed
func (s *WaveService) ensureParticipation(ctx context.Context, w *domain.Wave, userID string) (string, error) {
	p, err := s.repo.GetParticipation(ctx, w.ID, userID)
	if err == nil {
		return p.LobbyID, nil
	}
	if !errors.Is(err, domain.ErrParticipationNotFound) {
		return "", fmt.Errorf("getting participation: %w", err)
	}
	if !w.Status.AcceptsPlayers() {
		return "", nil
	}

	joined, err := s.repo.JoinLobby(ctx, domain.Participation{
		LobbyID:   w.ZeroLobbyID,
		WaveID:    w.ID,
		UserID:    userID,
		ChannelID: w.ChannelID,
		JoinedAt:  s.clock(),
	})
	if err != nil {
		return "", fmt.Errorf("joining zero lobby: %w", err)
	}
	if !joined {
		// Lost a race against a concurrent join of the same user
		p, err := s.repo.GetParticipation(ctx, w.ID, userID)
		if err != nil {
			return "", fmt.Errorf("getting participation: %w", err)
		}
		return p.LobbyID, nil
	}

	if _, err := s.state.InitProgress(ctx, userID, w.ZeroLobbyID, w.QuestionsAmount, s.progressTTL()); err != nil {
		return "", fmt.Errorf("initializing progress: %w", err)
	}
	s.logger.Debug("user joined zero lobby", "wave_id", w.ID, "user_id", userID)
	return w.ZeroLobbyID, nil
}

// AssignLobby seats users in a new ranked lobby of a wave in matchmaking.
// Users already in the zero lobby are moved; their zero lobby progress is left to expire.
func (s *WaveService) AssignLobby(ctx context.Context, req domain.AssignLobbyRequest) (*domain.Lobby, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	w, err := s.repo.GetWave(ctx, req.WaveID)
	if err != nil {
		return nil, fmt.Errorf("getting wave: %w", err)
	}
	if w.Status != domain.StatusMatchmakingInProgress {
		return nil, fmt.Errorf("%w: wave %d is %s", domain.ErrMatchmakingClosed, w.ID, w.Status)
	}

	now := s.clock()
	lobby := &domain.Lobby{
		ID:        req.LobbyID,
		WaveID:    w.ID,
		ChannelID: w.ChannelID,
		CreatedAt: now,
	}
	if lobby.ID == "" {
		lobby.ID = uuid.NewString()
	}
	if lobby.ID == w.ZeroLobbyID {
		return nil, fmt.Errorf("%w: %s", domain.ErrLobbyExists, lobby.ID)
	}

	seen := make(map[string]bool, len(req.UserIDs))
	participants := make([]domain.Participation, 0, len(req.UserIDs))
	for _, userID := range req.UserIDs {
		if seen[userID] {
			continue
		}
		seen[userID] = true
		participants = append(participants, domain.Participation{
			LobbyID:   lobby.ID,
			WaveID:    w.ID,
			UserID:    userID,
			ChannelID: w.ChannelID,
			JoinedAt:  now,
		})
	}

	if err := s.repo.CreateLobby(ctx, lobby, participants); err != nil {
		return nil, fmt.Errorf("creating lobby: %w", err)
	}

	ttl := s.progressTTL()
	for _, p := range participants {
		if _, err := s.state.InitProgress(ctx, p.UserID, lobby.ID, w.QuestionsAmount, ttl); err != nil {
			return nil, fmt.Errorf("initializing progress: %w", err)
		}
	}

	s.logger.Info("lobby assigned", "wave_id", w.ID, "lobby_id", lobby.ID, "participants", len(participants))
	return lobby, nil
}

// progressTTL picks a random TTL in the configured range to spread expirations
func (s *WaveService) progressTTL() time.Duration {
	span := s.config.ProgressTTLMax - s.config.ProgressTTLMin
	if span <= 0 {
		return s.config.ProgressTTLMin
	}
	return s.config.ProgressTTLMin + time.Duration(s.rng.IntN(int(span/time.Second)+1))*time.Second
}

// notify publishes an event; fan-out is best effort
func (s *WaveService) notify(ctx context.Context, event domain.Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = s.clock()
	}
	if err := s.notifier.Notify(ctx, event); err != nil {
		s.logger.Warn("failed to publish event", "type", event.Type, "error", err)
	}
}
