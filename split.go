package repeat_gpt

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mathext/prng"
)

const (
	DefaultValFraction = 0.1
	DefaultSplitSeed   = 42
)

// randomInterval draws uniformly from [0, max] by masking MT19937 output
// to the smallest covering power of two and rejecting values above max.
func randomInterval(rng *prng.MT19937, max uint64) uint64 {
	if max == 0 {
		return 0
	}
	mask := max
	mask |= mask >> 1
	mask |= mask >> 2
	mask |= mask >> 4
	mask |= mask >> 8
	mask |= mask >> 16
	mask |= mask >> 32
	if max <= math.MaxUint32 {
		for {
			if value := uint64(rng.Uint32()) & mask; value <= max {
				return value
			}
		}
	}
	for {
		if value := rng.Uint64() & mask; value <= max {
			return value
		}
	}
}

// Permutation
// Returns a permutation of [0, n) drawn from an MT19937 generator seeded
// with seed. The sequence matches numpy's legacy seeded
// `RandomState(seed).permutation(n)`.
func Permutation(n int, seed uint32) []int {
	rng := prng.NewMT19937()
	rng.Seed(uint64(seed))
	perm := make([]int, n)
	for idx := range perm {
		perm[idx] = idx
	}
	for i := n - 1; i > 0; i-- {
		j := randomInterval(rng, uint64(i))
		perm[i], perm[j] = perm[j], perm[i]
	}
	return perm
}

// TrainTestSplit
// Partitions n items into train and validation index sets. The validation
// set holds ceil(valFraction * n) items. Both sets are in permutation
// order.
func TrainTestSplit(n int, valFraction float64, seed uint32) (train []int,
	val []int, err error) {
	if valFraction <= 0 || valFraction >= 1 {
		return nil, nil, fmt.Errorf("validation fraction must be in "+
			"(0, 1), got %g", valFraction)
	}
	nVal := int(math.Ceil(valFraction * float64(n)))
	nTrain := n - nVal
	if nVal == 0 || nTrain == 0 {
		return nil, nil, fmt.Errorf("with %d units and a validation "+
			"fraction of %g, the train or validation set would be empty",
			n, valFraction)
	}
	perm := Permutation(n, seed)
	return perm[nVal:], perm[:nVal], nil
}
