package domain

import "time"

// ActionType distinguishes player action records
type ActionType string

const (
	ActionAnswer ActionType = "answer"
	ActionBoost  ActionType = "boost"
)

// ActionData is the type-specific payload of a player action
type ActionData struct {
	QuestionIndex   int    `json:"question_index"`
	SelectedIndexes []int  `json:"selected_indexes,omitempty"`
	BoostID         string `json:"boost_id,omitempty"`
}

// PlayerAction is an immutable record of an answer or a boost use
type PlayerAction struct {
	ID               int64      `json:"id"`
	WaveID           int64      `json:"wave_id"`
	LobbyID          string     `json:"lobby_id"`
	UserID           string     `json:"user_id"`
	ChannelID        string     `json:"channel_id"`
	ActionType       ActionType `json:"action_type"`
	EmittedAt        time.Time  `json:"emitted_at"`
	Data             ActionData `json:"data"`
	StarsDistributed *int       `json:"stars_distributed,omitempty"`
	Won              *bool      `json:"won,omitempty"`
	WaveQuestionID   int64      `json:"wave_question_id"`
}

// Stars returns the distributed stars or zero
func (a *PlayerAction) Stars() int {
	if a.StarsDistributed == nil {
		return 0
	}
	return *a.StarsDistributed
}

// HasWon reports whether the action is a winning answer
func (a *PlayerAction) HasWon() bool {
	return a.Won != nil && *a.Won
}

// SubmitAnswerRequest is a player's answer to the current question
type SubmitAnswerRequest struct {
	RequestID        string    `json:"mes_id,omitempty"`
	ChannelID        string    `json:"channel_id"`
	UserID           string    `json:"-"`
	QuestionIndex    int       `json:"question_index"`
	SelectedIndexes  []int     `json:"selected_indexes"`
	SelectedAnswerAt time.Time `json:"selected_answer_at"`
}

// Validate checks required fields
func (r *SubmitAnswerRequest) Validate() error {
	if r.ChannelID == "" || r.UserID == "" || r.QuestionIndex < 0 || len(r.SelectedIndexes) == 0 || r.SelectedAnswerAt.IsZero() {
		return ErrInvalidRequest
	}
	for _, idx := range r.SelectedIndexes {
		if idx < 0 {
			return ErrInvalidRequest
		}
	}
	return nil
}

// ApplyBoostRequest is a player's boost use on a question
type ApplyBoostRequest struct {
	RequestID     string    `json:"mes_id,omitempty"`
	UserID        string    `json:"-"`
	LobbyID       string    `json:"lobby_id"`
	BoostID       string    `json:"boost_id"`
	QuestionIndex int       `json:"question_index"`
	AppliedAt     time.Time `json:"applied_at"`
}

// Validate checks required fields
func (r *ApplyBoostRequest) Validate() error {
	if r.UserID == "" || r.LobbyID == "" || r.BoostID == "" || r.QuestionIndex < 0 || r.AppliedAt.IsZero() {
		return ErrInvalidRequest
	}
	return nil
}

// UserBoost is a user's inventory of one boost kind
type UserBoost struct {
	UserID  string `json:"user_id"`
	BoostID string `json:"boost_id"`
	Amount  int    `json:"amount"`
}

// BoostInfo describes a boost kind to clients
type BoostInfo struct {
	ID                  string `json:"id"`
	Title               string `json:"title"`
	Description         string `json:"description"`
	Icon                string `json:"icon"`
	AllowedBeforeAnswer bool   `json:"allowed_before_answer"`
	AllowedAfterAnswer  bool   `json:"allowed_after_answer"`
	Rarity              int    `json:"rarity"`
}
