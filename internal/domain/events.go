package domain

import "time"

// EventType names a fan-out notification
type EventType string

const (
	EventSelectedAnswer    EventType = "selected_answer"
	EventBoostApplied      EventType = "boost_applied"
	EventUsersStateChanged EventType = "users_state_changed"
	EventLootsUpdated      EventType = "loots_updated"
	EventWaveStatusChanged EventType = "wave_status_changed"
)

// Event is published for cross-process notification fan-out
type Event struct {
	Type          EventType    `json:"type"`
	ChannelID     string       `json:"channel_id,omitempty"`
	WaveID        int64        `json:"wave_id,omitempty"`
	LobbyID       string       `json:"lobby_id,omitempty"`
	UserID        string       `json:"user_id,omitempty"`
	QuestionIndex *int         `json:"question_index,omitempty"`
	BoostID       string       `json:"boost_id,omitempty"`
	Status        WaveStatus   `json:"status,omitempty"`
	Users         []UserUpdate `json:"users,omitempty"`
	Loots         []LootGrant  `json:"loots,omitempty"`
	Timestamp     time.Time    `json:"timestamp"`
}
