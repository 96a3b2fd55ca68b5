package order

import (
	"slices"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ids(n int) []uuid.UUID {
	out := make([]uuid.UUID, n)
	for i := range out {
		out[i] = uuid.New()
	}
	return out
}

func identity(_ []uuid.UUID) {}

func TestGenerateSnakeWithFixedPermutation(t *testing.T) {
	p := ids(4)
	a, b, c, d := p[0], p[1], p[2], p[3]

	got, err := NewGeneratorWithShuffle(identity).Generate(p, 8)
	require.NoError(t, err)
	require.Len(t, got, 32)

	assert.Equal(t, []uuid.UUID{a, b, c, d}, got[0:4])
	assert.Equal(t, []uuid.UUID{d, c, b, a}, got[4:8])
	assert.Equal(t, []uuid.UUID{a, b, c, d}, got[8:12])
	assert.Equal(t, []uuid.UUID{d, c, b, a}, got[28:32])
}

func TestGenerateShapeForAllSizes(t *testing.T) {
	gen := NewSeededGenerator(42)

	for n := 1; n <= 10; n++ {
		for k := 1; k <= 9; k++ {
			participants := ids(n)

			got, err := gen.Generate(participants, k)
			require.NoError(t, err)
			require.Len(t, got, n*k)

			base := got[:n]
			assert.ElementsMatch(t, participants, base, "first round must be a permutation")

			reversed := slices.Clone(base)
			slices.Reverse(reversed)

			for r := 0; r < k; r++ {
				round := got[r*n : (r+1)*n]
				if r%2 == 0 {
					assert.Equal(t, base, round, "n=%d k=%d round=%d", n, k, r)
				} else {
					assert.Equal(t, reversed, round, "n=%d k=%d round=%d", n, k, r)
				}
			}
		}
	}
}

func TestGenerateDoesNotMutateInput(t *testing.T) {
	participants := ids(6)
	before := slices.Clone(participants)

	_, err := NewSeededGenerator(7).Generate(participants, 2)
	require.NoError(t, err)
	assert.Equal(t, before, participants)
}

func TestSeededGeneratorIsReproducible(t *testing.T) {
	participants := ids(8)

	first, err := NewSeededGenerator(99).Generate(participants, 3)
	require.NoError(t, err)
	second, err := NewSeededGenerator(99).Generate(participants, 3)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestGenerateRejectsInvalidInput(t *testing.T) {
	dup := ids(2)
	dup = append(dup, dup[0])

	tests := []struct {
		name         string
		participants []uuid.UUID
		rounds       int
	}{
		{name: "empty participants", participants: nil, rounds: 8},
		{name: "zero rounds", participants: ids(3), rounds: 0},
		{name: "negative rounds", participants: ids(3), rounds: -1},
		{name: "duplicate participant", participants: dup, rounds: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewGenerator().Generate(tt.participants, tt.rounds)
			require.ErrorIs(t, err, ErrInvalidInput)
			assert.Nil(t, got)
		})
	}
}

func TestSnakeSingleParticipant(t *testing.T) {
	p := ids(1)
	got := Snake(p, 3)
	assert.Equal(t, []uuid.UUID{p[0], p[0], p[0]}, got)
}
