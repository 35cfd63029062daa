package service

import (
	"context"
	"fmt"
	"time"

	"github.com/trivia-wave/internal/domain"
)

// ResolveWave ranks every lobby of a wave, pays out rewards and moves the wave to wave_results.
// Returns the moment the result screen ends. Must run once per wave.
func (s *WaveService) ResolveWave(ctx context.Context, waveID int64, showResolveIn time.Duration) (time.Time, error) {
	w, err := s.repo.GetWave(ctx, waveID)
	if err != nil {
		return time.Time{}, fmt.Errorf("getting wave: %w", err)
	}
	if showResolveIn <= 0 {
		showResolveIn = s.config.DefaultShowResolveIn
	}

	lobbies, err := s.repo.WaveLobbies(ctx, waveID)
	if err != nil {
		return time.Time{}, fmt.Errorf("getting wave lobbies: %w", err)
	}

	var pending domain.RewardBatch
	var leader *domain.ChannelLeader
	for _, lobby := range lobbies {
		standings, err := s.repo.LobbyStandings(ctx, lobby.ID)
		if err != nil {
			return time.Time{}, fmt.Errorf("getting standings of lobby %s: %w", lobby.ID, err)
		}

		for i, st := range standings {
			if lobby.ZeroLobby {
				s.addZeroLobbyReward(&pending, w, lobby, st)
			} else {
				s.addRankedReward(&pending, w, lobby, st, i+1)
				if i == 0 && st.Score > 0 && (leader == nil || int64(st.Score) > leader.Score) {
					leader = &domain.ChannelLeader{UserID: st.UserID, Score: int64(st.Score), WaveID: w.ID}
				}
			}
		}

		if len(pending.Loots) >= s.config.ResolveBatchSize {
			if err := s.flushRewards(ctx, w, &pending); err != nil {
				return time.Time{}, err
			}
		}
	}
	if err := s.flushRewards(ctx, w, &pending); err != nil {
		return time.Time{}, err
	}

	now := s.clock()
	if leader != nil {
		leader.CrownAt = now
		if names, err := s.repo.Usernames(ctx, []string{leader.UserID}); err == nil {
			leader.Username = sanitizeText(names[leader.UserID])
		}
		if err := s.state.SetChannelLeader(ctx, w.ChannelID, *leader); err != nil {
			s.logger.Warn("failed to store channel leader", "channel_id", w.ChannelID, "error", err)
		}
	}

	resolveAt := now
	showResolveAt := now.Add(showResolveIn)
	finishAt := showResolveAt.Add(s.config.ResultsDelay)
	if err := s.repo.FinishResolution(ctx, waveID, resolveAt, showResolveAt, finishAt); err != nil {
		return time.Time{}, fmt.Errorf("finishing resolution: %w", err)
	}

	s.logger.Info("wave resolved", "wave_id", waveID, "lobbies", len(lobbies), "finish_at", finishAt)
	s.notify(ctx, domain.Event{
		Type:      domain.EventWaveStatusChanged,
		ChannelID: w.ChannelID,
		WaveID:    w.ID,
		Status:    domain.StatusWaveResults,
	})
	return finishAt, nil
}

func (s *WaveService) addZeroLobbyReward(pending *domain.RewardBatch, w *domain.Wave, lobby domain.Lobby, st domain.LobbyStanding) {
	lootID := s.rewards.ZeroLobbyLoot()
	pending.Loots = append(pending.Loots, domain.LootGrant{UserID: st.UserID, LootID: lootID, Amount: 1})
	pending.TxList = append(pending.TxList, domain.TrophyTx{
		WaveID:    w.ID,
		LobbyID:   lobby.ID,
		UserID:    st.UserID,
		ChannelID: w.ChannelID,
		Amount:    0,
		LootIDs:   []string{lootID},
	})
}

func (s *WaveService) addRankedReward(pending *domain.RewardBatch, w *domain.Wave, lobby domain.Lobby, st domain.LobbyStanding, position int) {
	update, earned, lootID := s.rewards.Ranked(st, position)
	pending.Users = append(pending.Users, update)
	pending.Loots = append(pending.Loots, domain.LootGrant{UserID: st.UserID, LootID: lootID, Amount: 1})
	pending.TxList = append(pending.TxList, domain.TrophyTx{
		WaveID:    w.ID,
		LobbyID:   lobby.ID,
		UserID:    st.UserID,
		ChannelID: w.ChannelID,
		Amount:    earned,
		LootIDs:   []string{lootID},
	})
}

// flushRewards writes a chunk and announces the changed users and loots
func (s *WaveService) flushRewards(ctx context.Context, w *domain.Wave, pending *domain.RewardBatch) error {
	if pending.Empty() {
		return nil
	}
	if err := s.repo.WriteRewards(ctx, *pending); err != nil {
		return fmt.Errorf("writing rewards: %w", err)
	}
	s.logger.Debug("rewards written", "wave_id", w.ID, "rows", pending.Size())

	if len(pending.Users) > 0 {
		s.notify(ctx, domain.Event{
			Type:      domain.EventUsersStateChanged,
			ChannelID: w.ChannelID,
			WaveID:    w.ID,
			Users:     pending.Users,
		})
	}
	if len(pending.Loots) > 0 {
		s.notify(ctx, domain.Event{
			Type:      domain.EventLootsUpdated,
			ChannelID: w.ChannelID,
			WaveID:    w.ID,
			Loots:     pending.Loots,
		})
	}
	*pending = domain.RewardBatch{}
	return nil
}
