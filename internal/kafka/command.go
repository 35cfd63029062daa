package kafka

import (
	"context"
	"fmt"
	"time"

	"github.com/trivia-wave/internal/domain"
)

// CommandType names a scheduler command
type CommandType string

const (
	CommandCreateWave   CommandType = "create_wave"
	CommandAddQuestion  CommandType = "add_question"
	CommandTransition   CommandType = "transition"
	CommandResolve      CommandType = "resolve"
	CommandEmptyHistory CommandType = "empty_history"
	CommandGrantBoosts  CommandType = "grant_boosts"
	CommandDropBoost    CommandType = "drop_boost"
	CommandAssignLobby  CommandType = "assign_lobby"
)

// Command is the message format of the scheduler topic. Messages are keyed by channel id.
type Command struct {
	Type            CommandType                `json:"type"`
	ChannelID       string                     `json:"channel_id,omitempty"`
	WaveID          int64                      `json:"wave_id,omitempty"`
	Status          domain.WaveStatus          `json:"status,omitempty"`
	ShowResolveInMs int64                      `json:"show_resolve_in_ms,omitempty"`
	Till            *time.Time                 `json:"till,omitempty"`
	UserID          string                     `json:"user_id,omitempty"`
	Boosts          map[string]int             `json:"boosts,omitempty"`
	Wave            *domain.CreateWaveRequest  `json:"wave,omitempty"`
	Question        *domain.AddQuestionRequest `json:"question,omitempty"`
	Lobby           *domain.AssignLobbyRequest `json:"lobby,omitempty"`
}

// CommandHandler executes scheduler commands
type CommandHandler interface {
	CreateWave(ctx context.Context, req domain.CreateWaveRequest) (*domain.Wave, error)
	AddWaveQuestion(ctx context.Context, req domain.AddQuestionRequest) (*domain.WaveQuestion, error)
	TransitionWave(ctx context.Context, waveID int64, to domain.WaveStatus) (*domain.Wave, error)
	ResolveWave(ctx context.Context, waveID int64, showResolveIn time.Duration) (time.Time, error)
	EmptyChannelHistory(ctx context.Context, channelID string, till *time.Time) error
	GrantBoosts(ctx context.Context, userID string, amounts map[string]int) error
	DropRandomBoost(ctx context.Context, userID string) (string, error)
	AssignLobby(ctx context.Context, req domain.AssignLobbyRequest) (*domain.Lobby, error)
}

// Dispatch runs a command against the handler
func Dispatch(ctx context.Context, handler CommandHandler, cmd Command) error {
	switch cmd.Type {
	case CommandCreateWave:
		if cmd.Wave == nil {
			return fmt.Errorf("%w: create_wave without wave", domain.ErrInvalidRequest)
		}
		_, err := handler.CreateWave(ctx, *cmd.Wave)
		return err

	case CommandAddQuestion:
		if cmd.Question == nil {
			return fmt.Errorf("%w: add_question without question", domain.ErrInvalidRequest)
		}
		_, err := handler.AddWaveQuestion(ctx, *cmd.Question)
		return err

	case CommandTransition:
		status, err := domain.ParseWaveStatus(string(cmd.Status))
		if err != nil {
			return err
		}
		_, err = handler.TransitionWave(ctx, cmd.WaveID, status)
		return err

	case CommandResolve:
		_, err := handler.ResolveWave(ctx, cmd.WaveID, time.Duration(cmd.ShowResolveInMs)*time.Millisecond)
		return err

	case CommandEmptyHistory:
		return handler.EmptyChannelHistory(ctx, cmd.ChannelID, cmd.Till)

	case CommandGrantBoosts:
		return handler.GrantBoosts(ctx, cmd.UserID, cmd.Boosts)

	case CommandDropBoost:
		if cmd.UserID == "" {
			return fmt.Errorf("%w: drop_boost without user", domain.ErrInvalidRequest)
		}
		_, err := handler.DropRandomBoost(ctx, cmd.UserID)
		return err

	case CommandAssignLobby:
		if cmd.Lobby == nil {
			return fmt.Errorf("%w: assign_lobby without lobby", domain.ErrInvalidRequest)
		}
		_, err := handler.AssignLobby(ctx, *cmd.Lobby)
		return err

	default:
		return fmt.Errorf("%w: unknown command %q", domain.ErrInvalidRequest, cmd.Type)
	}
}
