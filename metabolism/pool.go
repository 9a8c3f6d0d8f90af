package metabolism

import "sort"

// Pool maps metabolite IDs to amounts, in mmol.
type Pool map[string]float64

// Delta maps metabolite IDs to net amount changes, in mmol.
type Delta map[string]float64

// GrowthRates maps species IDs to specific growth rates, in 1/hour.
type GrowthRates map[string]float64

// Clone returns a deep copy of the pool.
func (p Pool) Clone() Pool {
	c := make(Pool, len(p))
	for k, v := range p {
		c[k] = v
	}

	return c
}

// Keys returns the metabolite IDs in ascending order.
func (p Pool) Keys() []string {
	return sortedKeys(p)
}

// Add sums another delta into this one, key by key.
func (d Delta) Add(other Delta) {
	for _, k := range sortedKeys(other) {
		d[k] += other[k]
	}
}

// Keys returns the metabolite IDs in ascending order.
func (d Delta) Keys() []string {
	return sortedKeys(d)
}

// Total returns the sum of all growth rates.
func (g GrowthRates) Total() float64 {
	total := 0.0
	for _, k := range sortedKeys(g) {
		total += g[k]
	}

	return total
}

// Clone returns a deep copy of the table.
func (g GrowthRates) Clone() GrowthRates {
	c := make(GrowthRates, len(g))
	for k, v := range g {
		c[k] = v
	}

	return c
}

// MergeDelta applies a delta to the pool. An existing entry is left untouched
// if the update would make it exactly zero, and a new entry is only created
// for a non-zero amount.
func MergeDelta(pool Pool, delta Delta) {
	for _, k := range sortedKeys(delta) {
		amount := delta[k]

		current, exists := pool[k]
		switch {
		case exists && current+amount != 0:
			pool[k] = current + amount
		case !exists && amount != 0:
			pool[k] = amount
		}
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	return keys
}
