package service

import (
	"context"
	"log/slog"

	"github.com/trivia-wave/internal/domain"
)

// Outbound message types pushed to player sockets
const (
	MessageWaveScreen       = "wave_screen"
	MessageUserStateChanged = "user_state_changed"
	MessageLootsUpdated     = "loots_updated"
)

// ScreenPusher delivers payloads to the sockets connected to this process
type ScreenPusher interface {
	SendToUser(userID, msgType string, data any) int
	ChannelUsers(channelID string) []string
}

// FanOut turns published events into per-user pushes on local sockets
type FanOut struct {
	waves  *WaveService
	pusher ScreenPusher
	logger *slog.Logger
}

// NewFanOut creates a new fan-out handler
func NewFanOut(waves *WaveService, pusher ScreenPusher, logger *slog.Logger) *FanOut {
	return &FanOut{
		waves:  waves,
		pusher: pusher,
		logger: logger,
	}
}

// HandleEvent pushes what changed for the users the event concerns
func (f *FanOut) HandleEvent(ctx context.Context, event domain.Event) {
	switch event.Type {
	case domain.EventSelectedAnswer, domain.EventBoostApplied:
		// The acting user sees their selection while the question is still open
		f.pushScreen(ctx, event.ChannelID, event.UserID, domain.StatusQuestionRevealed, event.QuestionIndex)

	case domain.EventWaveStatusChanged:
		for _, userID := range f.pusher.ChannelUsers(event.ChannelID) {
			f.pushScreen(ctx, event.ChannelID, userID, "", nil)
		}

	case domain.EventUsersStateChanged:
		for _, u := range event.Users {
			f.pusher.SendToUser(u.UserID, MessageUserStateChanged, u)
		}

	case domain.EventLootsUpdated:
		byUser := make(map[string][]domain.LootGrant)
		for _, l := range event.Loots {
			byUser[l.UserID] = append(byUser[l.UserID], l)
		}
		for userID, loots := range byUser {
			f.pusher.SendToUser(userID, MessageLootsUpdated, loots)
		}

	default:
		f.logger.Debug("ignoring event", "type", event.Type)
	}
}

func (f *FanOut) pushScreen(ctx context.Context, channelID, userID string, override domain.WaveStatus, questionIndex *int) {
	if channelID == "" || userID == "" {
		return
	}
	screen, err := f.waves.ScreenForUser(ctx, channelID, userID, override, questionIndex)
	if err != nil {
		f.logger.Error("failed to render screen", "channel_id", channelID, "user_id", userID, "error", err)
		return
	}
	f.pusher.SendToUser(userID, MessageWaveScreen, screen)
}
