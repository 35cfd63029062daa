package service

import (
	"math"

	"github.com/trivia-wave/internal/config"
	"github.com/trivia-wave/internal/domain"
)

// RewardRules turns a lobby position into trophies, levels and loot
type RewardRules struct {
	cfg *config.RewardsConfig
}

// NewRewardRules creates reward rules from config
func NewRewardRules(cfg *config.RewardsConfig) RewardRules {
	return RewardRules{cfg: cfg}
}

// Ranked computes the outcome of a ranked lobby participant at a 1-based position
func (r RewardRules) Ranked(st domain.LobbyStanding, position int) (domain.UserUpdate, int, string) {
	earned := r.cfg.PositionTrophies[position]
	lootID, ok := r.cfg.PositionLoots[position]
	if !ok {
		lootID = r.cfg.DefaultLoot
	}

	level := max(st.Level, 1)
	if level == 1 && earned < 0 {
		earned = 0
	}
	trophies := max(st.Trophies+earned, 0)

	threshold, ok := r.cfg.LevelTrophies[level]
	if !ok || threshold <= 0 {
		// Past the last configured level
		threshold = int(math.Floor(float64(trophies) * r.cfg.MaxLevelThresholdFactor))
	}
	if threshold > 0 && trophies >= threshold {
		trophies -= threshold
		level++
	}

	return domain.UserUpdate{UserID: st.UserID, Level: level, Trophies: trophies}, earned, lootID
}

// ZeroLobbyLoot is the participation reward of unranked players
func (r RewardRules) ZeroLobbyLoot() string {
	return r.cfg.ZeroLobbyLoot
}
