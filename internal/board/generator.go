package board

import (
	"fmt"
	"math/rand/v2"

	"github.com/openkcm/memory-match/internal/serviceerr"
)

// Generator builds shuffled card id sequences.
type Generator struct {
	rng *rand.Rand
}

// NewGenerator wires a generator to the given random source. Seeding the
// source makes the produced layouts reproducible.
func NewGenerator(src rand.Source) *Generator {
	return &Generator{rng: rand.New(src)}
}

// Generate returns rows*columns card ids where each pair i carries the id
// i mod symbolCount. When there are more pairs than symbols the ids wrap and
// more than two cards share an id; such cards still match each other.
func (g *Generator) Generate(rows, columns, symbolCount int) ([]int, error) {
	if err := ValidateDimensions(rows, columns); err != nil {
		return nil, err
	}
	if symbolCount <= 0 {
		return nil, fmt.Errorf("%w: symbol count must be positive, got %d", serviceerr.ErrInvalidConfig, symbolCount)
	}

	pairCount := rows * columns / 2
	ids := make([]int, 0, pairCount*2)
	for i := range pairCount {
		id := i % symbolCount
		ids = append(ids, id, id)
	}

	Shuffle(g.rng, ids)

	return ids, nil
}

// Shuffle permutes s in place with the Fisher-Yates algorithm, walking from
// the last index down to 1 and swapping with a uniform index in [0, i].
func Shuffle[T any](rng *rand.Rand, s []T) {
	for i := len(s) - 1; i > 0; i-- {
		j := rng.IntN(i + 1)
		s[i], s[j] = s[j], s[i]
	}
}

// Wraps reports whether a board of the given size repeats symbols.
func Wraps(rows, columns, symbolCount int) bool {
	return rows*columns/2 > symbolCount
}
