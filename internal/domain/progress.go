package domain

import "time"

// ProgressState is the outcome of a single question for a user
type ProgressState string

const (
	ProgressEmpty  ProgressState = "EMPTY"
	ProgressPassed ProgressState = "PASSED"
	ProgressFailed ProgressState = "FAILED"
)

// ProgressItem is one slot of a user's per-lobby progress
type ProgressItem struct {
	State ProgressState `json:"ps"`
	Score int           `json:"sa"`
}

// EmptyProgress builds a progress list of n EMPTY slots
func EmptyProgress(n int) []ProgressItem {
	items := make([]ProgressItem, n)
	for i := range items {
		items[i] = ProgressItem{State: ProgressEmpty}
	}
	return items
}

// ResultItem converts an answer outcome to a progress slot
func ResultItem(won bool, stars int) ProgressItem {
	if won {
		return ProgressItem{State: ProgressPassed, Score: stars}
	}
	return ProgressItem{State: ProgressFailed, Score: stars}
}

// TotalScore sums the awarded scores of a progress list
func TotalScore(items []ProgressItem) int {
	total := 0
	for _, item := range items {
		total += item.Score
	}
	return total
}

// AppliedBoost records a boost use on a question
type AppliedBoost struct {
	BoostID       string    `json:"boost_id"`
	QuestionIndex int       `json:"question_index"`
	AppliedAt     time.Time `json:"applied_at"`
}

// PartialQuestionState is the per-user override layer produced by boosts
type PartialQuestionState struct {
	ButtonMapper         [][]int       `json:"button_mapper,omitempty"`
	CorrectAnswerIndexes []int         `json:"correct_answer_indexes,omitempty"`
	MinScore             *int          `json:"min_score,omitempty"`
	MaxScore             *int          `json:"max_score,omitempty"`
	AppliedBoost         *AppliedBoost `json:"applied_boost,omitempty"`
}

// QuestionState is the effective option mapping, correct set and score bounds for a user
type QuestionState struct {
	ButtonMapper         [][]int
	CorrectAnswerIndexes []int
	MinScore             int
	MaxScore             int
}

// EffectiveState merges a partial override over the question defaults. partial may be nil.
func EffectiveState(q *WaveQuestion, partial *PartialQuestionState) QuestionState {
	state := QuestionState{
		ButtonMapper:         q.DefaultButtonMapper(),
		CorrectAnswerIndexes: append([]int(nil), q.CorrectAnswerIndexes...),
		MinScore:             q.MinScore,
		MaxScore:             q.MaxScore,
	}
	if partial == nil {
		return state
	}
	if partial.ButtonMapper != nil {
		state.ButtonMapper = cloneMapper(partial.ButtonMapper)
	}
	if partial.CorrectAnswerIndexes != nil {
		state.CorrectAnswerIndexes = append([]int(nil), partial.CorrectAnswerIndexes...)
	}
	if partial.MinScore != nil {
		state.MinScore = *partial.MinScore
	}
	if partial.MaxScore != nil {
		state.MaxScore = *partial.MaxScore
	}
	return state
}

// Won reports whether any selected index is correct
func (s QuestionState) Won(selected []int) bool {
	for _, sel := range selected {
		for _, correct := range s.CorrectAnswerIndexes {
			if sel == correct {
				return true
			}
		}
	}
	return false
}

// ToPartial captures the state as an override record
func (s QuestionState) ToPartial(applied *AppliedBoost) *PartialQuestionState {
	minScore, maxScore := s.MinScore, s.MaxScore
	return &PartialQuestionState{
		ButtonMapper:         cloneMapper(s.ButtonMapper),
		CorrectAnswerIndexes: append([]int(nil), s.CorrectAnswerIndexes...),
		MinScore:             &minScore,
		MaxScore:             &maxScore,
		AppliedBoost:         applied,
	}
}

func cloneMapper(mapper [][]int) [][]int {
	out := make([][]int, len(mapper))
	for i, group := range mapper {
		out[i] = append([]int(nil), group...)
	}
	return out
}
