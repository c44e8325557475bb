package repeat_gpt

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mathext/prng"
)

func TestMT19937_Seed42(t *testing.T) {
	rng := prng.NewMT19937()
	rng.Seed(42)
	assert.Equal(t, uint32(1608637542), rng.Uint32())
}

func TestRandomInterval_Bounds(t *testing.T) {
	rng := prng.NewMT19937()
	rng.Seed(DefaultSplitSeed)
	assert.Equal(t, uint64(0), randomInterval(rng, 0))
	for _, max := range []uint64{1, 2, 3, 7, 8, 1000} {
		for i := 0; i < 200; i++ {
			assert.LessOrEqual(t, randomInterval(rng, max), max)
		}
	}
}

func TestPermutation_KnownSequence(t *testing.T) {
	assert.Equal(t, []int{8, 1, 5, 0, 7, 2, 9, 4, 3, 6},
		Permutation(10, 42))
}

func TestPermutation_IsPermutation(t *testing.T) {
	for _, n := range []int{0, 1, 2, 17, 1000} {
		perm := Permutation(n, 7)
		require.Len(t, perm, n)
		sorted := append([]int(nil), perm...)
		sort.Ints(sorted)
		for idx := range sorted {
			assert.Equal(t, idx, sorted[idx])
		}
	}
}

func TestPermutation_Deterministic(t *testing.T) {
	assert.Equal(t, Permutation(500, 42), Permutation(500, 42))
	assert.NotEqual(t, Permutation(500, 42), Permutation(500, 43))
}

func TestTrainTestSplit_KnownSplit(t *testing.T) {
	train, val, err := TrainTestSplit(10, 0.2, 42)
	require.NoError(t, err)
	assert.Equal(t, []int{8, 1}, val)
	assert.Equal(t, []int{5, 0, 7, 2, 9, 4, 3, 6}, train)
}

func TestTrainTestSplit_Sizes(t *testing.T) {
	type sizeTest struct {
		n        int
		fraction float64
		nTrain   int
		nVal     int
	}
	tests := []sizeTest{
		{10, 0.1, 9, 1},
		{11, 0.1, 9, 2},
		{2, 0.1, 1, 1},
		{1000, 0.1, 900, 100},
		{1001, 0.1, 900, 101},
	}
	for _, test := range tests {
		train, val, err := TrainTestSplit(test.n, test.fraction,
			DefaultSplitSeed)
		require.NoError(t, err)
		assert.Len(t, train, test.nTrain, "n=%d", test.n)
		assert.Len(t, val, test.nVal, "n=%d", test.n)

		seen := make(map[int]bool, test.n)
		for _, idx := range append(append([]int{}, train...), val...) {
			assert.False(t, seen[idx], "index %d repeated", idx)
			seen[idx] = true
		}
		assert.Len(t, seen, test.n)
	}
}

func TestTrainTestSplit_Errors(t *testing.T) {
	_, _, err := TrainTestSplit(0, 0.1, DefaultSplitSeed)
	assert.Error(t, err)
	_, _, err = TrainTestSplit(1, 0.1, DefaultSplitSeed)
	assert.Error(t, err)
	_, _, err = TrainTestSplit(10, 0, DefaultSplitSeed)
	assert.Error(t, err)
	_, _, err = TrainTestSplit(10, 1, DefaultSplitSeed)
	assert.Error(t, err)
	_, _, err = TrainTestSplit(10, -0.5, DefaultSplitSeed)
	assert.Error(t, err)
}
