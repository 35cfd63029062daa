package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trivia-wave/internal/config"
	"github.com/trivia-wave/internal/domain"
)

func TestRewardRules_Ranked(t *testing.T) {
	rules := NewRewardRules(&config.DefaultConfig().Rewards)

	tests := []struct {
		name       string
		level      int
		trophies   int
		position   int
		wantLevel  int
		wantTroph  int
		wantEarned int
		wantLoot   string
	}{
		{"first place", 1, 0, 1, 1, 30, 30, "WaveBigChest"},
		{"level up", 1, 90, 1, 2, 20, 30, "WaveBigChest"},
		{"level one never loses", 1, 5, 8, 1, 5, 0, "WaveSmallBag"},
		{"trophies floor at zero", 2, 10, 10, 2, 0, -25, "WaveSmallBag"},
		{"second place levels up", 3, 290, 2, 4, 10, 20, "WaveMediumChest"},
		{"last configured level", 5, 790, 1, 6, 20, 30, "WaveBigChest"},
		{"past last level uses factor", 6, 100, 1, 6, 130, 30, "WaveBigChest"},
		{"beyond the table", 2, 50, 11, 2, 50, 0, "WaveSmallBag"},
		{"missing level counts as one", 0, 0, 10, 1, 0, 0, "WaveSmallBag"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			update, earned, loot := rules.Ranked(domain.LobbyStanding{
				UserID:   "u1",
				Level:    tt.level,
				Trophies: tt.trophies,
			}, tt.position)

			assert.Equal(t, domain.UserUpdate{UserID: "u1", Level: tt.wantLevel, Trophies: tt.wantTroph}, update)
			assert.Equal(t, tt.wantEarned, earned)
			assert.Equal(t, tt.wantLoot, loot)
		})
	}
}

func TestResolveWave_ZeroLobbyGetsParticipationLoot(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	w := env.runningWave(t, "ch1")
	for _, u := range []string{"alice", "bob", "carol"} {
		env.join(t, "ch1", u)
	}

	_, err := env.svc.ResolveWave(ctx, w.ID, 0)
	require.NoError(t, err)

	require.Len(t, env.repo.loots, 3)
	for _, loot := range env.repo.loots {
		assert.Equal(t, "WaveSmallChest", loot.LootID)
		assert.Equal(t, 1, loot.Amount)
	}
	require.Len(t, env.repo.txs, 3)
	for _, tx := range env.repo.txs {
		assert.Zero(t, tx.Amount)
		assert.Equal(t, []string{"WaveSmallChest"}, tx.LootIDs)
		assert.Equal(t, w.ZeroLobbyID, tx.LobbyID)
	}
	assert.Empty(t, env.notifier.ofType(domain.EventUsersStateChanged))
	assert.Len(t, env.notifier.ofType(domain.EventLootsUpdated), 1)

	leader, err := env.state.ChannelLeader(ctx, "ch1")
	require.NoError(t, err)
	assert.Nil(t, leader)

	screen, err := env.svc.ScreenForUser(ctx, "ch1", "alice", "", nil)
	require.NoError(t, err)
	result, ok := screen.(*domain.ResultScreen)
	require.True(t, ok)
	assert.Zero(t, result.EarnedTrophies)
	assert.Equal(t, 1, result.EarnedLootsAmount)
}

func TestResolveWave_RankedLobby(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	w := env.runningWave(t, "ch1")
	env.repo.addLobby(w, "ranked-1", "alice", "bob", "carol")
	env.repo.users["alice"] = &domain.User{ID: "alice", Username: "Alice", Level: 1, Trophies: 90}
	for _, u := range []string{"alice", "bob", "carol"} {
		_, err := env.state.InitProgress(ctx, u, "ranked-1", w.QuestionsAmount, time.Hour)
		require.NoError(t, err)
	}

	_, err := env.svc.SubmitAnswer(ctx, answerAt("ch1", "alice", env.now, 1))
	require.NoError(t, err)
	env.now = t0.Add(15 * time.Second)
	_, err = env.svc.SubmitAnswer(ctx, answerAt("ch1", "bob", env.now, 1))
	require.NoError(t, err)
	_, err = env.svc.SubmitAnswer(ctx, answerAt("ch1", "carol", env.now, 3))
	require.NoError(t, err)

	env.now = t0.Add(40 * time.Second)
	finishAt, err := env.svc.ResolveWave(ctx, w.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, env.now.Add(5*time.Second+15*time.Second), finishAt)

	resolved := env.reload(t, w.ID)
	assert.Equal(t, domain.StatusWaveResults, resolved.Status)
	require.NotNil(t, resolved.ShowResolveAt)
	assert.Equal(t, env.now.Add(5*time.Second), *resolved.ShowResolveAt)

	assert.Equal(t, 2, env.repo.users["alice"].Level)
	assert.Equal(t, 20, env.repo.users["alice"].Trophies)
	assert.Equal(t, 20, env.repo.users["bob"].Trophies)
	assert.Equal(t, 10, env.repo.users["carol"].Trophies)

	leader, err := env.state.ChannelLeader(ctx, "ch1")
	require.NoError(t, err)
	require.NotNil(t, leader)
	assert.Equal(t, "alice", leader.UserID)
	assert.Equal(t, "Alice", leader.Username)
	assert.Equal(t, int64(350), leader.Score)
	assert.Equal(t, env.now, leader.CrownAt)

	usersEvents := env.notifier.ofType(domain.EventUsersStateChanged)
	require.Len(t, usersEvents, 1)
	assert.Len(t, usersEvents[0].Users, 3)

	statusEvents := env.notifier.ofType(domain.EventWaveStatusChanged)
	require.NotEmpty(t, statusEvents)
	assert.Equal(t, domain.StatusWaveResults, statusEvents[len(statusEvents)-1].Status)

	screen, err := env.svc.ScreenForUser(ctx, "ch1", "alice", "", nil)
	require.NoError(t, err)
	result, ok := screen.(*domain.ResultScreen)
	require.True(t, ok)
	assert.Equal(t, 30, result.EarnedTrophies)
	assert.Equal(t, 1, result.EarnedLootsAmount)
	assert.Equal(t, *resolved.ShowResolveAt, result.ShowAt)
	assert.Equal(t, 350, result.Score)
	require.Len(t, result.Leaderboard, 2)
	assert.Equal(t, "alice", result.Leaderboard[0].UserID)
	assert.Equal(t, "Alice", result.Leaderboard[0].Username)
}

func TestResolveWave_NoPointsNoKing(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	w := env.runningWave(t, "ch1")
	env.repo.addLobby(w, "ranked-1", "alice", "bob")

	_, err := env.svc.ResolveWave(ctx, w.ID, time.Second)
	require.NoError(t, err)

	leader, err := env.state.ChannelLeader(ctx, "ch1")
	require.NoError(t, err)
	assert.Nil(t, leader)
	assert.Len(t, env.repo.txs, 2)
}

func TestResolveWave_WritesInBatches(t *testing.T) {
	env := newTestEnv(t)
	env.cfg.Wave.ResolveBatchSize = 2
	ctx := context.Background()
	w := env.runningWave(t, "ch1")
	env.join(t, "ch1", "alice")
	env.join(t, "ch1", "bob")
	env.repo.addLobby(w, "ranked-1", "carol")

	_, err := env.svc.ResolveWave(ctx, w.ID, 0)
	require.NoError(t, err)

	require.Len(t, env.repo.batches, 2)
	assert.Len(t, env.repo.batches[0].Loots, 2)
	assert.Empty(t, env.repo.batches[0].Users)
	assert.Len(t, env.repo.batches[1].Loots, 1)
	assert.Len(t, env.repo.batches[1].Users, 1)
	assert.Len(t, env.notifier.ofType(domain.EventLootsUpdated), 2)
}

func TestResolveWave_UnknownWave(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.svc.ResolveWave(context.Background(), 42, 0)
	assert.ErrorIs(t, err, domain.ErrWaveNotFound)
}
