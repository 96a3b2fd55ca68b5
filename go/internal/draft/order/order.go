// Package order builds randomized snake draft orders.
package order

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"

	"github.com/google/uuid"
)

// ErrInvalidInput is returned for an empty participant set, duplicate
// participants or a round count below one.
var ErrInvalidInput = errors.New("invalid draft order input")

// ShuffleFunc permutes ids in place.
type ShuffleFunc func(ids []uuid.UUID)

// Generator produces snake orders from a single random permutation.
type Generator struct {
	shuffle ShuffleFunc
}

// NewGenerator returns a Generator backed by the process-wide random source.
func NewGenerator() *Generator {
	return &Generator{shuffle: func(ids []uuid.UUID) {
		rand.Shuffle(len(ids), func(i, j int) { ids[i], ids[j] = ids[j], ids[i] })
	}}
}

// NewSeededGenerator returns a Generator whose permutations are reproducible
// for a given seed.
func NewSeededGenerator(seed uint64) *Generator {
	var mu sync.Mutex
	r := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	return &Generator{shuffle: func(ids []uuid.UUID) {
		mu.Lock()
		defer mu.Unlock()
		r.Shuffle(len(ids), func(i, j int) { ids[i], ids[j] = ids[j], ids[i] })
	}}
}

// NewGeneratorWithShuffle returns a Generator using the given permutation step.
func NewGeneratorWithShuffle(shuffle ShuffleFunc) *Generator {
	return &Generator{shuffle: shuffle}
}

// Generate returns an order of len(participantIDs)*roundCount entries.
// Even rounds (0-indexed) follow the permutation, odd rounds reverse it.
func (g *Generator) Generate(participantIDs []uuid.UUID, roundCount int) ([]uuid.UUID, error) {
	if len(participantIDs) == 0 {
		return nil, fmt.Errorf("%w: no participants", ErrInvalidInput)
	}
	if roundCount < 1 {
		return nil, fmt.Errorf("%w: round count %d must be at least 1", ErrInvalidInput, roundCount)
	}

	seen := make(map[uuid.UUID]struct{}, len(participantIDs))
	for _, id := range participantIDs {
		if _, dup := seen[id]; dup {
			return nil, fmt.Errorf("%w: duplicate participant %s", ErrInvalidInput, id)
		}
		seen[id] = struct{}{}
	}

	permutation := append([]uuid.UUID(nil), participantIDs...)
	g.shuffle(permutation)

	return Snake(permutation, roundCount), nil
}

// Snake expands a base permutation into roundCount rounds, reversing every
// odd round.
func Snake(permutation []uuid.UUID, roundCount int) []uuid.UUID {
	n := len(permutation)
	out := make([]uuid.UUID, 0, n*roundCount)

	for round := 0; round < roundCount; round++ {
		if round%2 == 0 {
			out = append(out, permutation...)
			continue
		}
		for i := n - 1; i >= 0; i-- {
			out = append(out, permutation[i])
		}
	}

	return out
}
