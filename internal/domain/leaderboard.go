package domain

import "time"

// LeaderboardEntry represents a single entry in a lobby leaderboard
type LeaderboardEntry struct {
	Rank     int64  `json:"rank"`
	UserID   string `json:"user_id"`
	Score    int64  `json:"score"`
	Username string `json:"username,omitempty"`
}

// ChannelLeader is the best player of the channel's last resolved wave
type ChannelLeader struct {
	UserID   string    `json:"user_id"`
	Username string    `json:"username,omitempty"`
	Score    int64     `json:"score"`
	WaveID   int64     `json:"wave_id"`
	CrownAt  time.Time `json:"crown_at"`
}

// LobbyStanding is a participant's aggregated result in a lobby, ordered by rank
type LobbyStanding struct {
	UserID   string `json:"user_id"`
	Score    int    `json:"score"`
	Level    int    `json:"level"`
	Trophies int    `json:"trophies"`
}

// TrophyTx summarizes what a user earned in a lobby at wave resolution
type TrophyTx struct {
	ID        int64     `json:"id"`
	WaveID    int64     `json:"wave_id"`
	LobbyID   string    `json:"lobby_id"`
	UserID    string    `json:"user_id"`
	ChannelID string    `json:"channel_id"`
	Amount    int       `json:"amount"`
	LootIDs   []string  `json:"loot_ids"`
	CreatedAt time.Time `json:"created_at"`
}

// LootGrant adds loot items to a user's inventory
type LootGrant struct {
	UserID string `json:"user_id"`
	LootID string `json:"loot_id"`
	Amount int    `json:"amount"`
}

// UserUpdate is the new trophy and level state of a user
type UserUpdate struct {
	UserID   string `json:"user_id"`
	Level    int    `json:"level"`
	Trophies int    `json:"trophies"`
}

// RewardBatch is one chunk of resolution writes
type RewardBatch struct {
	Users  []UserUpdate `json:"users"`
	Loots  []LootGrant  `json:"loots"`
	TxList []TrophyTx   `json:"txs"`
}

// Empty reports whether the batch has nothing to write
func (b *RewardBatch) Empty() bool {
	return len(b.Users) == 0 && len(b.Loots) == 0 && len(b.TxList) == 0
}

// Size is the number of rows the batch writes
func (b *RewardBatch) Size() int {
	return len(b.Users) + len(b.Loots) + len(b.TxList)
}
