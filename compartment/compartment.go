// Package compartment models a section of the gut that holds a metabolite
// pool and a bacterial population.
package compartment

import (
	"context"
	"fmt"
	"sync"

	"github.com/sarchlab/gutsim/hooking"
	"github.com/sarchlab/gutsim/metabolism"
)

// A list of hook positions of compartments.
var (
	HookPosBeforeMetabolise = &hooking.HookPos{Name: "BeforeMetabolise"}
	HookPosAfterMetabolise  = &hooking.HookPos{Name: "AfterMetabolise"}
	HookPosAfterTransfer    = &hooking.HookPos{Name: "AfterTransfer"}
)

// MergeMode decides how incoming metabolites are combined with the pool.
type MergeMode int

// The available merge modes.
const (
	// MergeReplace discards the pool and keeps only the incoming metabolites.
	MergeReplace MergeMode = iota

	// MergeAdditive adds the incoming amounts to the pool.
	MergeAdditive
)

func (m MergeMode) String() string {
	switch m {
	case MergeReplace:
		return "replace"
	case MergeAdditive:
		return "additive"
	default:
		return fmt.Sprintf("MergeMode(%d)", int(m))
	}
}

// A Compartment owns a metabolite pool and a population. A single goroutine
// drives it. Snapshot may be called from any goroutine.
type Compartment struct {
	hooking.HookableBase

	// lock guards writes to the state below against concurrent Snapshots.
	lock sync.RWMutex

	name         string
	inputPeriod  int
	outputPeriod int
	hostBiomass  float64
	stepHours    float64
	mergeMode    MergeMode
	terminal     bool

	pool        metabolism.Pool
	population  Population
	growthRate  float64
	growthRates metabolism.GrowthRates

	host       metabolism.Model
	aggregator *metabolism.Aggregator
}

// Name returns the name of the compartment.
func (c *Compartment) Name() string {
	return c.name
}

// InputPeriod returns the period, in hours, at which content arrives.
func (c *Compartment) InputPeriod() int {
	return c.inputPeriod
}

// OutputPeriod returns the period, in hours, at which content leaves.
func (c *Compartment) OutputPeriod() int {
	return c.outputPeriod
}

// StepHours returns the length of a metabolism step.
func (c *Compartment) StepHours() float64 {
	return c.stepHours
}

// HostBiomass returns the biomass of the compartment's own model, in gDW.
func (c *Compartment) HostBiomass() float64 {
	return c.hostBiomass
}

// MergeMode returns how incoming metabolites are combined with the pool.
func (c *Compartment) MergeMode() MergeMode {
	return c.mergeMode
}

// Terminal tells whether the content of the compartment leaves the gut.
func (c *Compartment) Terminal() bool {
	return c.terminal
}

// Aggregator returns the aggregator that runs the species tasks.
func (c *Compartment) Aggregator() *metabolism.Aggregator {
	return c.aggregator
}

// Pool returns the metabolite pool. The returned map is owned by the
// compartment and must only be read by the goroutine driving it.
func (c *Compartment) Pool() metabolism.Pool {
	return c.pool
}

// Population returns the population. The returned map is owned by the
// compartment and must only be read by the goroutine driving it.
func (c *Compartment) Population() Population {
	return c.population
}

// GrowthRate returns the community growth rate of the last step.
func (c *Compartment) GrowthRate() float64 {
	return c.growthRate
}

// AddMetabolites combines incoming metabolites with the pool according to
// the merge mode.
func (c *Compartment) AddMetabolites(m metabolism.Pool) {
	c.lock.Lock()
	defer c.lock.Unlock()

	if c.mergeMode == MergeReplace {
		c.pool = m.Clone()
		return
	}

	for _, k := range m.Keys() {
		c.pool[k] += m[k]
	}
}

// AddMicrobes adds cells to the population.
func (c *Compartment) AddMicrobes(p Population) {
	c.lock.Lock()
	defer c.lock.Unlock()

	for _, k := range p.Keys() {
		c.population[k] = addCells(c.population[k], p[k])
	}
	c.population.Prune()
}

// ClearPool empties the metabolite pool.
func (c *Compartment) ClearPool() {
	c.lock.Lock()
	defer c.lock.Unlock()

	c.pool = make(metabolism.Pool)
}

// updatePopulation runs f on the population while holding the write lock.
func (c *Compartment) updatePopulation(f func(p Population)) {
	c.lock.Lock()
	defer c.lock.Unlock()

	f(c.population)
}

// TotalBiomass returns the dry biomass of the whole population, in gDW.
func (c *Compartment) TotalBiomass() float64 {
	total := 0.0
	for _, k := range c.population.Keys() {
		total += metabolism.CellBiomass(c.population[k])
	}

	return total
}

// Metabolise runs one metabolism step. All species are optimised in parallel
// against a copy of the pool, their exchanges are merged into the pool and
// the host model then consumes from the updated pool. The growth rates of the
// species are returned. An error is only returned if the host step fails.
func (c *Compartment) Metabolise(
	ctx context.Context,
) (metabolism.GrowthRates, error) {
	c.InvokeHook(hooking.HookCtx{
		Domain: c,
		Pos:    HookPosBeforeMetabolise,
		Item:   c.Snapshot(),
	})

	out := c.aggregator.Run(ctx, metabolism.Batch{
		Snapshot:     c.pool.Clone(),
		Counts:       c.population.Clone(),
		TotalBiomass: c.TotalBiomass(),
		StepHours:    c.stepHours,
	})

	counts := c.population.Clone()
	for _, s := range Population(out.NewCounts).Keys() {
		counts[s] = out.NewCounts[s]
	}
	counts.Prune()

	pool := c.pool.Clone()
	metabolism.MergeDelta(pool, out.Delta)

	c.lock.Lock()
	c.population = counts
	c.pool = pool
	c.growthRates = out.GrowthRates
	c.lock.Unlock()

	host := metabolism.HostStep{
		Model:     c.host,
		Biomass:   c.hostBiomass,
		StepHours: c.stepHours,
	}
	pool = pool.Clone()
	growth, err := host.Run(ctx, pool)
	if err != nil {
		return out.GrowthRates, fmt.Errorf("%s: %w", c.name, err)
	}

	c.lock.Lock()
	c.pool = pool
	c.growthRate = growth
	c.lock.Unlock()

	c.InvokeHook(hooking.HookCtx{
		Domain: c,
		Pos:    HookPosAfterMetabolise,
		Item:   c.Snapshot(),
		Detail: out,
	})

	return out.GrowthRates, nil
}

// Snapshot is a copy of the state of a compartment.
type Snapshot struct {
	Name        string
	Pool        metabolism.Pool
	Population  Population
	GrowthRate  float64
	GrowthRates metabolism.GrowthRates
}

// Snapshot returns a deep copy of the current state.
func (c *Compartment) Snapshot() Snapshot {
	c.lock.RLock()
	defer c.lock.RUnlock()

	return Snapshot{
		Name:        c.name,
		Pool:        c.pool.Clone(),
		Population:  c.population.Clone(),
		GrowthRate:  c.growthRate,
		GrowthRates: c.growthRates.Clone(),
	}
}
