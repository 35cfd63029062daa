package boost

import (
	"math"

	"github.com/trivia-wave/internal/domain"
)

const MegaStarID = "MegaStar"

// MegaStar multiplies the stars of a question
type MegaStar struct {
	Multiplier float64
}

func (MegaStar) Info() domain.BoostInfo {
	return domain.BoostInfo{
		ID:                  MegaStarID,
		Title:               "Mega Star",
		Description:         "Doubles the stars earned for the question",
		Icon:                "mega-star",
		AllowedBeforeAnswer: true,
		AllowedAfterAnswer:  true,
		Rarity:              2,
	}
}

func (MegaStar) LootWeight() int    { return 1 }
func (MegaStar) MutatesScore() bool { return true }

// Apply leaves the question untouched; the effect is in BoostedScore
func (MegaStar) Apply(state domain.QuestionState, _ Rand) (domain.QuestionState, error) {
	return state, nil
}

func (m MegaStar) BoostedScore(raw int) int {
	multiplier := m.Multiplier
	if multiplier == 0 {
		multiplier = 2
	}
	return int(math.Ceil(float64(raw) * multiplier))
}
