package boost

import (
	"fmt"

	"github.com/trivia-wave/internal/domain"
)

// Registry maps boost ids to their capability records. Read-only after construction.
type Registry struct {
	byID  map[string]Boost
	order []Boost
}

// NewRegistry builds a registry from an explicit list of boosts
func NewRegistry(boosts ...Boost) (*Registry, error) {
	r := &Registry{byID: make(map[string]Boost, len(boosts))}
	for _, b := range boosts {
		id := ID(b)
		if id == "" {
			return nil, fmt.Errorf("boost without id: %T", b)
		}
		if _, ok := r.byID[id]; ok {
			return nil, fmt.Errorf("duplicate boost id %q", id)
		}
		r.byID[id] = b
		r.order = append(r.order, b)
	}
	return r, nil
}

// DefaultRegistry holds every boost the game ships with
func DefaultRegistry() *Registry {
	r, err := NewRegistry(Bomb{}, MegaStar{Multiplier: 2})
	if err != nil {
		panic(err)
	}
	return r
}

// Get looks a boost up by id
func (r *Registry) Get(id string) (Boost, error) {
	b, ok := r.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrBoostNotFound, id)
	}
	return b, nil
}

// All returns the boosts in registration order
func (r *Registry) All() []Boost {
	return append([]Boost(nil), r.order...)
}

// RandomDrop picks a boost with probability proportional to its loot weight
func (r *Registry) RandomDrop(rng Rand) (Boost, bool) {
	total := 0
	for _, b := range r.order {
		total += max(b.LootWeight(), 0)
	}
	if total == 0 {
		return nil, false
	}
	roll := rng.IntN(total)
	for _, b := range r.order {
		w := max(b.LootWeight(), 0)
		if roll < w {
			return b, true
		}
		roll -= w
	}
	return nil, false
}
