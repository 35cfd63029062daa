// Package boost holds the closed set of single-use question boosts.
package boost

import (
	"github.com/trivia-wave/internal/domain"
)

// Rand is the randomness a boost may consume
type Rand interface {
	IntN(n int) int
}

// Boost is the capability record of one boost kind
type Boost interface {
	// Info describes the boost, including when it may be used
	Info() domain.BoostInfo
	// LootWeight is the relative chance of the boost in random drops
	LootWeight() int
	// MutatesScore reports whether BoostedScore changes computed stars
	MutatesScore() bool
	// Apply mutates the effective question state of the user
	Apply(state domain.QuestionState, rng Rand) (domain.QuestionState, error)
	// BoostedScore maps a raw computed score
	BoostedScore(raw int) int
}

// ID is a shorthand for b.Info().ID
func ID(b Boost) string {
	return b.Info().ID
}
