package export

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"
)

// ErrInvalidRatio is returned for a train ratio outside [0,1].
var ErrInvalidRatio = errors.New("train ratio must be within [0,1]")

// NewRand returns a random source seeded with seed, or with the current time
// when seed is 0.
func NewRand(seed int64) *rand.Rand {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewSource(seed))
}

// TrainCount returns min(total, floor(total*ratio)).
func TrainCount(total int, ratio float64) int {
	n := int(math.Floor(float64(total) * ratio))
	if n > total {
		n = total
	}
	if n < 0 {
		n = 0
	}
	return n
}

// Split shuffles a copy of items and partitions it into train and eval.
// eval is empty when every item lands in train. items is not modified.
func Split[T any](items []T, ratio float64, rng *rand.Rand) (train, eval []T, err error) {
	if math.IsNaN(ratio) || ratio < 0 || ratio > 1 {
		return nil, nil, fmt.Errorf("%w: %g", ErrInvalidRatio, ratio)
	}
	if rng == nil {
		rng = NewRand(0)
	}

	shuffled := make([]T, len(items))
	copy(shuffled, items)
	rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	n := TrainCount(len(shuffled), ratio)
	train = shuffled[:n:n]
	if n < len(shuffled) {
		eval = shuffled[n:]
	}
	return train, eval, nil
}
