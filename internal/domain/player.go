package domain

import "time"

// User is a player's persistent profile as far as waves care
type User struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Level     int       `json:"level"`
	Trophies  int       `json:"trophies"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// UserLoot is a user's inventory of one loot kind
type UserLoot struct {
	UserID string `json:"user_id"`
	LootID string `json:"loot_id"`
	Amount int    `json:"amount"`
}
