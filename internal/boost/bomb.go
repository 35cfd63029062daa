package boost

import (
	"slices"

	"github.com/trivia-wave/internal/domain"
)

const BombID = "Bomb"

// Bomb removes one visible option that holds no correct answer
type Bomb struct{}

func (Bomb) Info() domain.BoostInfo {
	return domain.BoostInfo{
		ID:                  BombID,
		Title:               "Bomb",
		Description:         "Removes one wrong answer",
		Icon:                "bomb",
		AllowedBeforeAnswer: true,
		AllowedAfterAnswer:  false,
		Rarity:              0,
	}
}

func (Bomb) LootWeight() int    { return 1 }
func (Bomb) MutatesScore() bool { return false }

func (Bomb) BoostedScore(raw int) int { return raw }

func (Bomb) Apply(state domain.QuestionState, rng Rand) (domain.QuestionState, error) {
	if len(state.ButtonMapper) <= 1 {
		return state, domain.ErrNotEnoughOptions
	}

	var wrong []int
	for i, group := range state.ButtonMapper {
		if !containsAny(group, state.CorrectAnswerIndexes) {
			wrong = append(wrong, i)
		}
	}
	if len(wrong) == 0 {
		return state, domain.ErrNotEnoughOptions
	}

	removed := wrong[rng.IntN(len(wrong))]
	mapper := make([][]int, 0, len(state.ButtonMapper)-1)
	for i, group := range state.ButtonMapper {
		if i != removed {
			mapper = append(mapper, slices.Clone(group))
		}
	}
	state.ButtonMapper = mapper
	return state, nil
}

func containsAny(group, values []int) bool {
	for _, v := range values {
		if slices.Contains(group, v) {
			return true
		}
	}
	return false
}
