package domain

import "time"

// ScreenType tags the variant of a wave screen
type ScreenType string

const (
	ScreenBeforeWave  ScreenType = "before_wave"
	ScreenActiveLobby ScreenType = "active_lobby"
	ScreenResult      ScreenType = "result"
)

// WaveScreen is the player-facing view of a channel's wave.
// Implemented by BeforeWaveScreen, ActiveLobbyScreen and ResultScreen.
type WaveScreen interface {
	ScreenType() ScreenType
	isWaveScreen()
}

// BeforeWaveScreen is shown between waves
type BeforeWaveScreen struct {
	Type        ScreenType     `json:"type"`
	ShowAt      time.Time      `json:"show_at"`
	WaveStartAt *time.Time     `json:"wave_start_at,omitempty"`
	CurrentKing *ChannelLeader `json:"current_king,omitempty"`
	WaveID      *int64         `json:"wave_id,omitempty"`
}

func (s *BeforeWaveScreen) ScreenType() ScreenType { return ScreenBeforeWave }
func (*BeforeWaveScreen) isWaveScreen()            {}

// AppliedBoostView is an applied boost as rendered on screen
type AppliedBoostView struct {
	BoostID   string    `json:"boost_id"`
	AppliedAt time.Time `json:"applied_at"`
}

// LobbyView is the part shared by active and result screens
type LobbyView struct {
	ShowAt        time.Time                `json:"show_at"`
	LobbyID       string                   `json:"lobby_id"`
	WaveID        int64                    `json:"wave_id"`
	Progress      []ProgressState          `json:"progress"`
	Score         int                      `json:"score"`
	AppliedBoosts map[int]AppliedBoostView `json:"applied_boosts"`
	BoostLimit    int                      `json:"boost_limit"`
	Leaderboard   []LeaderboardEntry       `json:"leaderboard,omitempty"`
}

// QuestionView is the current question as seen by one player
type QuestionView struct {
	StartAt              time.Time           `json:"start_at"`
	FinishAt             time.Time           `json:"finish_at"`
	Title                string              `json:"title"`
	Options              []string            `json:"options"`
	TitleVars            map[string]string   `json:"title_vars,omitempty"`
	OptionsVars          []map[string]string `json:"options_vars,omitempty"`
	MinScore             int                 `json:"min_score"`
	MaxScore             int                 `json:"max_score"`
	ButtonMapper         [][]int             `json:"button_mapper"`
	SelectedIndexes      []int               `json:"selected_indexes,omitempty"`
	SelectedAt           *time.Time          `json:"selected_at,omitempty"`
	CorrectAnswerIndexes []int               `json:"correct_indexes,omitempty"`
}

// ActiveLobbyScreen is shown while questions are played
type ActiveLobbyScreen struct {
	Type ScreenType `json:"type"`
	LobbyView
	QuestionIndex int           `json:"question_index"`
	QuestionID    int64         `json:"question_id"`
	Question      *QuestionView `json:"question_state"`
}

func (s *ActiveLobbyScreen) ScreenType() ScreenType { return ScreenActiveLobby }
func (*ActiveLobbyScreen) isWaveScreen()            {}

// ResultScreen is shown once the wave is resolved
type ResultScreen struct {
	Type ScreenType `json:"type"`
	LobbyView
	EarnedTrophies    int `json:"earned_trophies"`
	EarnedLootsAmount int `json:"earned_loots_amount"`
}

func (s *ResultScreen) ScreenType() ScreenType { return ScreenResult }
func (*ResultScreen) isWaveScreen()            {}
