package domain

import "fmt"

// WaveStatus is the lifecycle state of a wave
type WaveStatus string

const (
	StatusAwaiting              WaveStatus = "awaiting"
	StatusMatchmakingInProgress WaveStatus = "matchmaking_in_progress"
	StatusQuestionGenerated     WaveStatus = "question_generated"
	StatusQuestionRevealed      WaveStatus = "question_revealed"
	StatusQuestionResults       WaveStatus = "question_results"
	StatusWaveResults           WaveStatus = "wave_results"
	StatusFinished              WaveStatus = "finished"
)

// AllStatuses lists every lifecycle state in order
var AllStatuses = []WaveStatus{
	StatusAwaiting,
	StatusMatchmakingInProgress,
	StatusQuestionGenerated,
	StatusQuestionRevealed,
	StatusQuestionResults,
	StatusWaveResults,
	StatusFinished,
}

// ScreenPhase is the kind of screen rendered for a status
type ScreenPhase int

const (
	PhaseBeforeWave ScreenPhase = iota
	PhaseActiveLobby
	PhaseResult
	PhaseFinished
)

// ParseWaveStatus validates a raw status string
func ParseWaveStatus(raw string) (WaveStatus, error) {
	s := WaveStatus(raw)
	if _, err := s.Phase(); err != nil {
		return "", err
	}
	return s, nil
}

// Phase maps a status to the screen it renders
func (s WaveStatus) Phase() (ScreenPhase, error) {
	switch s {
	case StatusAwaiting, StatusMatchmakingInProgress:
		return PhaseBeforeWave, nil
	case StatusQuestionGenerated, StatusQuestionRevealed, StatusQuestionResults:
		return PhaseActiveLobby, nil
	case StatusWaveResults:
		return PhaseResult, nil
	case StatusFinished:
		return PhaseFinished, nil
	default:
		return PhaseBeforeWave, fmt.Errorf("%w: %q", ErrUnknownStatus, string(s))
	}
}

// Successors returns the statuses reachable from s in one step.
// question_results loops back to question_generated for the next question.
// A finished wave row is terminal; the channel's next wave is a new row in awaiting.
func (s WaveStatus) Successors() ([]WaveStatus, error) {
	switch s {
	case StatusAwaiting:
		return []WaveStatus{StatusMatchmakingInProgress}, nil
	case StatusMatchmakingInProgress:
		return []WaveStatus{StatusQuestionGenerated}, nil
	case StatusQuestionGenerated:
		return []WaveStatus{StatusQuestionRevealed}, nil
	case StatusQuestionRevealed:
		return []WaveStatus{StatusQuestionResults}, nil
	case StatusQuestionResults:
		return []WaveStatus{StatusQuestionGenerated, StatusWaveResults}, nil
	case StatusWaveResults:
		return []WaveStatus{StatusFinished}, nil
	case StatusFinished:
		return nil, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStatus, string(s))
	}
}

// CanTransitionTo checks the transition table
func (s WaveStatus) CanTransitionTo(next WaveStatus) error {
	successors, err := s.Successors()
	if err != nil {
		return err
	}
	for _, candidate := range successors {
		if candidate == next {
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s, next)
}

// AcceptsPlayers reports whether late joiners are enrolled into the zero lobby
func (s WaveStatus) AcceptsPlayers() bool {
	return s != StatusAwaiting && s != StatusFinished
}

// Scoring reports whether answers and boosts may still change the leaderboard
func (s WaveStatus) Scoring() bool {
	switch s {
	case StatusQuestionGenerated, StatusQuestionRevealed, StatusQuestionResults:
		return true
	}
	return false
}
