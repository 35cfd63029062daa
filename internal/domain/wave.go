package domain

import (
	"sort"
	"time"
)

// Wave is one scheduled trivia event of a channel
type Wave struct {
	ID                 int64      `json:"id"`
	ChannelID          string     `json:"channel_id"`
	Status             WaveStatus `json:"status"`
	Reason             string     `json:"reason"`
	QuestionsAmount    int        `json:"questions_amount"`
	StartAt            time.Time  `json:"start_at"`
	ResolveAt          *time.Time `json:"resolve_at,omitempty"`
	ShowResolveAt      *time.Time `json:"show_resolve_at,omitempty"`
	FinishAt           *time.Time `json:"finish_at,omitempty"`
	PreviousFinishedAt time.Time  `json:"previous_finished_at"`
	ZeroLobbyID        string     `json:"zero_lobby_id"`
	CreatedAt          time.Time  `json:"created_at"`

	Questions []WaveQuestion `json:"questions,omitempty"`
}

// Question finds a question of the wave by its index
func (w *Wave) Question(index int) (*WaveQuestion, bool) {
	for i := range w.Questions {
		if w.Questions[i].QuestionIndex == index {
			return &w.Questions[i], true
		}
	}
	return nil, false
}

// LatestQuestion returns the question with the highest index
func (w *Wave) LatestQuestion() (*WaveQuestion, bool) {
	if len(w.Questions) == 0 {
		return nil, false
	}
	latest := &w.Questions[0]
	for i := range w.Questions {
		if w.Questions[i].QuestionIndex > latest.QuestionIndex {
			latest = &w.Questions[i]
		}
	}
	return latest, true
}

// SortQuestions orders questions by index
func (w *Wave) SortQuestions() {
	sort.Slice(w.Questions, func(i, j int) bool {
		return w.Questions[i].QuestionIndex < w.Questions[j].QuestionIndex
	})
}

// QuestionContent is the authored body of a question
type QuestionContent struct {
	Title       string              `json:"title"`
	Options     []string            `json:"options"`
	TitleVars   map[string]string   `json:"title_vars,omitempty"`
	OptionsVars []map[string]string `json:"options_vars,omitempty"`
}

// WaveQuestion is a timed question of a wave. Immutable once created.
type WaveQuestion struct {
	ID                   int64           `json:"id"`
	WaveID               int64           `json:"wave_id"`
	Content              QuestionContent `json:"content"`
	QuestionIndex        int             `json:"question_index"`
	ShowAt               time.Time       `json:"show_at"`
	StartAt              time.Time       `json:"start_at"`
	FinishAt             time.Time       `json:"finish_at"`
	MinScore             int             `json:"min_score"`
	MaxScore             int             `json:"max_score"`
	CorrectAnswerIndexes []int           `json:"correct_answer_indexes"`
}

// DefaultButtonMapper maps every visible button to its own option
func (q *WaveQuestion) DefaultButtonMapper() [][]int {
	mapper := make([][]int, len(q.Content.Options))
	for i := range mapper {
		mapper[i] = []int{i}
	}
	return mapper
}

// Lobby groups participants of a wave
type Lobby struct {
	ID        string    `json:"id"`
	WaveID    int64     `json:"wave_id"`
	ChannelID string    `json:"channel_id"`
	ZeroLobby bool      `json:"zero_lobby"`
	CreatedAt time.Time `json:"created_at"`
}

// Ranked reports whether the lobby takes part in trophy rewards
func (l *Lobby) Ranked() bool {
	return !l.ZeroLobby
}

// Participation links a user to a lobby
type Participation struct {
	LobbyID   string    `json:"lobby_id"`
	WaveID    int64     `json:"wave_id"`
	UserID    string    `json:"user_id"`
	ChannelID string    `json:"channel_id"`
	JoinedAt  time.Time `json:"joined_at"`
}

// CreateWaveRequest is issued by the scheduler to open a new wave
type CreateWaveRequest struct {
	ChannelID          string    `json:"channel_id"`
	Reason             string    `json:"reason"`
	QuestionsAmount    int       `json:"questions_amount"`
	StartAt            time.Time `json:"start_at"`
	PreviousFinishedAt time.Time `json:"previous_finished_at"`
}

// Validate checks required fields
func (r *CreateWaveRequest) Validate() error {
	if r.ChannelID == "" || r.QuestionsAmount <= 0 || r.StartAt.IsZero() {
		return ErrInvalidRequest
	}
	return nil
}

// AddQuestionRequest is issued by the scheduler to attach a question to a wave
type AddQuestionRequest struct {
	WaveID               int64           `json:"wave_id"`
	Content              QuestionContent `json:"content"`
	QuestionIndex        int             `json:"question_index"`
	ShowAt               time.Time       `json:"show_at"`
	StartAt              time.Time       `json:"start_at"`
	FinishAt             time.Time       `json:"finish_at"`
	MinScore             int             `json:"min_score"`
	MaxScore             int             `json:"max_score"`
	CorrectAnswerIndexes []int           `json:"correct_answer_indexes"`
}

// Validate checks the answer window, score bounds and correct indexes
func (r *AddQuestionRequest) Validate() error {
	if r.WaveID <= 0 || r.QuestionIndex < 0 || len(r.Content.Options) == 0 {
		return ErrInvalidRequest
	}
	if !r.FinishAt.After(r.StartAt) || r.MinScore > r.MaxScore || len(r.CorrectAnswerIndexes) == 0 {
		return ErrInvalidRequest
	}
	for _, idx := range r.CorrectAnswerIndexes {
		if idx < 0 || idx >= len(r.Content.Options) {
			return ErrInvalidRequest
		}
	}
	return nil
}

// AssignLobbyRequest is issued by matchmaking to seat users in a ranked lobby
type AssignLobbyRequest struct {
	WaveID  int64    `json:"wave_id"`
	LobbyID string   `json:"lobby_id,omitempty"`
	UserIDs []string `json:"user_ids"`
}

// Validate checks the wave and that every user id is set
func (r *AssignLobbyRequest) Validate() error {
	if r.WaveID <= 0 || len(r.UserIDs) == 0 {
		return ErrInvalidRequest
	}
	for _, id := range r.UserIDs {
		if id == "" {
			return ErrInvalidRequest
		}
	}
	return nil
}
