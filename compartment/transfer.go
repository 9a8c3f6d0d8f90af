package compartment

import (
	"fmt"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/sarchlab/gutsim/hooking"
	"github.com/sarchlab/gutsim/metabolism"
)

// Retention ranges, in cells, of the two kinds of transfer.
var (
	DownstreamRetention = Range{Min: 1e3, Max: 1e8}
	WashoutRetention    = Range{Min: 1e8, Max: 1e10}
)

// Range is an inclusive integer interval.
type Range struct {
	Min, Max int64
}

// TransferReport describes one transfer.
type TransferReport struct {
	From string
	To   string

	// Target is the number of cells that had to leave. It can be negative if
	// the population was smaller than the retained amount.
	Target     int64
	Moved      int64
	Iterations int

	// Tally is the number of cells that left, per species. Species that lost
	// no cells are not listed.
	Tally Population
}

// A Transferrer moves content out of compartments. Species are removed by a
// weighted random draw that favours slow growers, so fast growers tend to
// stay.
type Transferrer struct {
	rng *rand.Rand

	downstream Range
	washout    Range
}

// NewTransferrer creates a Transferrer that draws from the given generator.
func NewTransferrer(rng *rand.Rand) *Transferrer {
	return &Transferrer{
		rng:        rng,
		downstream: DownstreamRetention,
		washout:    WashoutRetention,
	}
}

// WithRetention overrides the retention ranges.
func (t *Transferrer) WithRetention(downstream, washout Range) *Transferrer {
	t.downstream = downstream
	t.washout = washout
	return t
}

// Downstream moves the whole pool and part of the population from src to
// dst. It panics if src is terminal, since nothing lies downstream of it.
func (t *Transferrer) Downstream(
	src, dst *Compartment,
	rates metabolism.GrowthRates,
) TransferReport {
	if src.Terminal() {
		panic(fmt.Sprintf("compartment %s is terminal", src.Name()))
	}

	dst.AddMetabolites(src.Pool())
	src.ClearPool()

	var report TransferReport
	src.updatePopulation(func(p Population) {
		report = t.remove(p, rates, t.downstream)
	})
	report.From = src.Name()
	report.To = dst.Name()

	dst.AddMicrobes(report.Tally)

	src.InvokeHook(hooking.HookCtx{
		Domain: src,
		Pos:    HookPosAfterTransfer,
		Item:   report,
	})

	return report
}

// Washout discards the pool and part of the population of src.
func (t *Transferrer) Washout(
	src *Compartment,
	rates metabolism.GrowthRates,
) TransferReport {
	src.ClearPool()

	var report TransferReport
	src.updatePopulation(func(p Population) {
		report = t.remove(p, rates, t.washout)
	})
	report.From = src.Name()

	src.InvokeHook(hooking.HookCtx{
		Domain: src,
		Pos:    HookPosAfterTransfer,
		Item:   report,
	})

	return report
}

func (t *Transferrer) remove(
	pop Population,
	rates metabolism.GrowthRates,
	retention Range,
) TransferReport {
	report := TransferReport{
		Target: pop.Total() - t.between(retention),
		Tally:  make(Population),
	}

	weights := TransferWeights(rates)
	candidates := t.candidates(pop, weights)

	for report.Moved < report.Target && len(candidates) > 0 {
		dist := t.categorical(candidates, weights)

		for report.Moved < report.Target {
			species := candidates[int(dist.Rand())]
			n := t.rng.Int64N(pop[species] + 1)

			pop[species] -= n
			report.Tally[species] += n
			report.Moved += n
			report.Iterations++

			if pop[species] == 0 {
				break
			}
		}

		candidates = t.candidates(pop, weights)
	}

	report.Tally.Prune()
	pop.Prune()

	return report
}

func (t *Transferrer) between(r Range) int64 {
	if r.Max <= r.Min {
		return r.Min
	}

	return r.Min + t.rng.Int64N(r.Max-r.Min+1)
}

// candidates lists the species that can still lose cells. If there are
// weights, only weighted species are eligible.
func (t *Transferrer) candidates(
	pop Population,
	weights map[string]float64,
) []string {
	var list []string
	for _, s := range pop.Keys() {
		if pop[s] <= 0 {
			continue
		}

		if _, ok := weights[s]; len(weights) > 0 && !ok {
			continue
		}

		list = append(list, s)
	}

	return list
}

func (t *Transferrer) categorical(
	candidates []string,
	weights map[string]float64,
) distuv.Categorical {
	w := make([]float64, len(candidates))
	sum := 0.0
	for i, s := range candidates {
		w[i] = weights[s]
		sum += w[i]
	}

	if len(weights) == 0 || sum <= 0 {
		for i := range w {
			w[i] = 1
		}
	}

	return distuv.NewCategorical(w, t.rng)
}

// TransferWeights returns the chance weight of each species to be picked for
// removal, 1 - g/sum(g). Negative weights are clamped to zero. If the rates
// sum to zero every species gets the same weight.
func TransferWeights(rates metabolism.GrowthRates) map[string]float64 {
	weights := make(map[string]float64, len(rates))

	total := rates.Total()
	for s, g := range rates {
		if total == 0 {
			weights[s] = 1
			continue
		}

		w := 1 - g/total
		if w < 0 {
			w = 0
		}
		weights[s] = w
	}

	return weights
}
