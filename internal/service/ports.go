package service

import (
	"context"
	"time"

	"github.com/trivia-wave/internal/domain"
)

// WaveRepository persists waves and their questions
type WaveRepository interface {
	CreateWave(ctx context.Context, w *domain.Wave, canCreate func(latest *domain.Wave) error) error
	GetWave(ctx context.Context, waveID int64) (*domain.Wave, error)
	LatestWave(ctx context.Context, channelID string) (*domain.Wave, error)
	WavesInStatus(ctx context.Context, statuses []domain.WaveStatus, limit int) ([]domain.Wave, error)
	AddQuestion(ctx context.Context, q *domain.WaveQuestion) error
	TransitionWave(ctx context.Context, waveID int64, from, to domain.WaveStatus) error
	FinishResolution(ctx context.Context, waveID int64, resolveAt, showResolveAt, finishAt time.Time) error
	EmptyChannelHistory(ctx context.Context, channelID string, till *time.Time) ([]string, error)
}

// LobbyRepository persists lobbies and participations
type LobbyRepository interface {
	GetLobby(ctx context.Context, lobbyID string) (*domain.Lobby, error)
	WaveLobbies(ctx context.Context, waveID int64) ([]domain.Lobby, error)
	GetParticipation(ctx context.Context, waveID int64, userID string) (*domain.Participation, error)
	JoinLobby(ctx context.Context, p domain.Participation) (bool, error)
	CreateLobby(ctx context.Context, l *domain.Lobby, participants []domain.Participation) error
	Usernames(ctx context.Context, userIDs []string) (map[string]string, error)
}

// ActionRepository persists player actions
type ActionRepository interface {
	FindAnswer(ctx context.Context, userID, lobbyID string, waveQuestionID int64) (*domain.PlayerAction, error)
	InsertAnswer(ctx context.Context, a *domain.PlayerAction) error
	InsertBoostAction(ctx context.Context, a *domain.PlayerAction) error
	UpdateAnswerStars(ctx context.Context, actionID int64, stars int) error
	LobbyAnswers(ctx context.Context, lobbyID string) ([]domain.PlayerAction, error)
	LobbyStandings(ctx context.Context, lobbyID string) ([]domain.LobbyStanding, error)
}

// InventoryRepository persists boost inventories
type InventoryRepository interface {
	UserBoost(ctx context.Context, userID, boostID string) (*domain.UserBoost, error)
	ConsumeBoost(ctx context.Context, userID, boostID string) (int, error)
	GrantBoosts(ctx context.Context, userID string, amounts map[string]int) error
}

// RewardRepository persists resolution results
type RewardRepository interface {
	TrophyTx(ctx context.Context, lobbyID, userID string) (*domain.TrophyTx, error)
	WriteRewards(ctx context.Context, rewards domain.RewardBatch) error
}

// Repository is the relational store the wave engine needs
type Repository interface {
	WaveRepository
	LobbyRepository
	ActionRepository
	InventoryRepository
	RewardRepository
}

// StateStore is the ephemeral store for progress, partial state, quotas and leaderboards
type StateStore interface {
	InitProgress(ctx context.Context, userID, lobbyID string, questionsAmount int, ttl time.Duration) (bool, error)
	GetProgress(ctx context.Context, userID, lobbyID string) ([]domain.ProgressItem, error)
	SetProgressItem(ctx context.Context, userID, lobbyID string, questionIndex int, item domain.ProgressItem) error
	ReplaceProgress(ctx context.Context, userID, lobbyID string, items []domain.ProgressItem, ttl time.Duration) error

	GetPartialState(ctx context.Context, userID, lobbyID string, questionIndex int) (*domain.PartialQuestionState, error)
	SetPartialState(ctx context.Context, userID, lobbyID string, questionIndex int, state *domain.PartialQuestionState, ttl time.Duration) error
	ClaimQuestionBoost(ctx context.Context, userID, lobbyID string, questionIndex int, boostID string, ttl time.Duration) error
	ReleaseQuestionBoost(ctx context.Context, userID, lobbyID string, questionIndex int) error

	ReserveBoost(ctx context.Context, userID, lobbyID string, applied domain.AppliedBoost, limit int, ttl time.Duration) error
	ReleaseBoost(ctx context.Context, userID, lobbyID string, applied domain.AppliedBoost) error
	AppliedBoosts(ctx context.Context, userID, lobbyID string) ([]domain.AppliedBoost, error)

	IncrementLobbyScore(ctx context.Context, lobbyID, userID string, delta int64, ttl time.Duration) (int64, error)
	GetTopN(ctx context.Context, lobbyID string, n int) ([]domain.LeaderboardEntry, error)
	ReplaceLobbyScores(ctx context.Context, lobbyID string, scores map[string]int64, ttl time.Duration) error
	DeleteLobbies(ctx context.Context, lobbyIDs []string) error

	SetChannelLeader(ctx context.Context, channelID string, leader domain.ChannelLeader) error
	ChannelLeader(ctx context.Context, channelID string) (*domain.ChannelLeader, error)
	DeleteChannelLeader(ctx context.Context, channelID string) error
}

// Notifier publishes events for cross-process fan-out
type Notifier interface {
	Notify(ctx context.Context, event domain.Event) error
}
