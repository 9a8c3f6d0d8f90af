package compartment

import (
	"math"
	"sort"
)

// Population maps species IDs to cell counts.
type Population map[string]int64

// Clone returns a deep copy of the population.
func (p Population) Clone() Population {
	c := make(Population, len(p))
	for k, v := range p {
		c[k] = v
	}

	return c
}

// Total returns the number of cells of all species. The sum saturates at
// math.MaxInt64.
func (p Population) Total() int64 {
	var total int64
	for _, v := range p {
		total = addCells(total, v)
	}

	return total
}

// addCells adds two non-negative cell counts, saturating at math.MaxInt64.
func addCells(a, b int64) int64 {
	if b > 0 && a > math.MaxInt64-b {
		return math.MaxInt64
	}

	return a + b
}

// Keys returns the species IDs in ascending order.
func (p Population) Keys() []string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	return keys
}

// Prune removes the species that have no cells left.
func (p Population) Prune() {
	for k, v := range p {
		if v <= 0 {
			delete(p, k)
		}
	}
}
