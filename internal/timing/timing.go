// Package timing converts client timestamps into validated server-side instants
// and maps answer latency to a score.
package timing

import (
	"fmt"
	"math"
	"time"

	"github.com/trivia-wave/internal/domain"
)

// DefaultMaxLatency is the largest accepted gap between a client timestamp and server time
const DefaultMaxLatency = 3000 * time.Millisecond

// Policy validates client supplied timestamps
type Policy struct {
	MaxLatency time.Duration
}

// NewPolicy creates a policy, falling back to DefaultMaxLatency
func NewPolicy(maxLatency time.Duration) Policy {
	if maxLatency <= 0 {
		maxLatency = DefaultMaxLatency
	}
	return Policy{MaxLatency: maxLatency}
}

// Clamp treats timestamps from the future as now and rejects stale ones
func (p Policy) Clamp(client, now time.Time) (time.Time, error) {
	if client.After(now) {
		return now, nil
	}
	if now.Sub(client) >= p.MaxLatency {
		return time.Time{}, fmt.Errorf("%w: server time %s", domain.ErrStaleOrFutureTimestamp, now.UTC().Format(time.RFC3339Nano))
	}
	return client, nil
}

// InWindow checks that ts lies within [start, finish]
func InWindow(ts, start, finish time.Time) error {
	if ts.Before(start) || ts.After(finish) {
		return fmt.Errorf("%w: %s not in [%s, %s]", domain.ErrAnswerWindowViolation,
			ts.UTC().Format(time.RFC3339Nano), start.UTC().Format(time.RFC3339Nano), finish.UTC().Format(time.RFC3339Nano))
	}
	return nil
}

// ScoreForElapsed interpolates maxScore at start down to minScore at finish
func ScoreForElapsed(ts, start, finish time.Time, maxScore, minScore int) int {
	window := finish.Sub(start)
	if window <= 0 {
		return clamp(maxScore, minScore, maxScore)
	}
	elapsed := ts.Sub(start)
	ratio := float64(elapsed) / float64(window)
	score := float64(maxScore) + ratio*float64(minScore-maxScore)
	return clamp(int(math.Round(score)), minScore, maxScore)
}

func clamp(v, lo, hi int) int {
	if lo > hi {
		lo, hi = hi, lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
