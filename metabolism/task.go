package metabolism

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"
)

// DefaultLoadTimeout is how long a task waits for its model before giving up.
const DefaultLoadTimeout = 5 * time.Second

// A Task optimises the metabolism of one species for one step.
type Task struct {
	// Snapshot is the pool as it was before the step. It must not be mutated
	// while tasks are running.
	Snapshot Pool

	Species      string
	CellCount    int64
	TotalBiomass float64
	StepHours    float64
}

// Result is what a Task reports back. When OK is false the task contributes
// nothing: growth is zero, the delta is empty and the count is unchanged.
type Result struct {
	Species    string
	OK         bool
	Err        error
	GrowthRate float64
	NewCount   int64
	Delta      Delta
}

func (t Task) failed(err error) Result {
	return Result{
		Species:  t.Species,
		Err:      err,
		NewCount: t.CellCount,
		Delta:    Delta{},
	}
}

// Run loads the species model, sets its exchange bounds from the snapshot,
// optimises it and reports growth and exchange changes. Run never panics and
// never returns an error; failures are carried in the result.
func (t Task) Run(
	ctx context.Context,
	provider ModelProvider,
	loadTimeout time.Duration,
) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			res = t.failed(fmt.Errorf("species %s: panic: %v", t.Species, r))
		}
	}()

	biomass := CellBiomass(t.CellCount)
	if biomass <= 0 || t.TotalBiomass <= 0 {
		return t.failed(fmt.Errorf("%w: %s", ErrNoBiomass, t.Species))
	}

	model, err := loadWithTimeout(ctx, provider, t.Species, loadTimeout)
	if err != nil {
		return t.failed(err)
	}

	err = ApplyBounds(model, t.Snapshot, func(availability float64) float64 {
		return ShareLowerBound(
			availability, biomass, t.TotalBiomass, t.StepHours)
	})
	if err != nil {
		return t.failed(fmt.Errorf("species %s: %w", t.Species, err))
	}

	sol, err := model.Optimize(ctx)
	if err != nil {
		return t.failed(fmt.Errorf("species %s: %w", t.Species, err))
	}

	growth := sol.ObjectiveValue

	return Result{
		Species:    t.Species,
		OK:         true,
		GrowthRate: growth,
		NewCount:   GrownCount(t.CellCount, growth, t.StepHours),
		Delta:      ExchangeDelta(model, sol, biomass, t.StepHours),
	}
}

// GrownCount returns count·e^(growth·hours) rounded half away from zero. The
// result saturates at math.MaxInt64 and never goes below zero.
func GrownCount(count int64, growth, hours float64) int64 {
	grown := math.Round(float64(count) * math.Exp(growth*hours))

	switch {
	case math.IsNaN(grown) || grown <= 0:
		return 0
	case grown >= math.MaxInt64:
		return math.MaxInt64
	default:
		return int64(grown)
	}
}

func loadWithTimeout(
	ctx context.Context,
	provider ModelProvider,
	species string,
	timeout time.Duration,
) (Model, error) {
	if timeout <= 0 {
		timeout = DefaultLoadTimeout
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type loaded struct {
		model Model
		err   error
	}

	done := make(chan loaded, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- loaded{err: fmt.Errorf("panic: %v", r)}
			}
		}()

		m, err := provider.Load(ctx, species)
		done <- loaded{model: m, err: err}
	}()

	select {
	case l := <-done:
		if errors.Is(l.err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %s after %s",
				ErrLoadTimeout, species, timeout)
		}
		if l.err != nil {
			return nil, fmt.Errorf("loading model of %s: %w", species, l.err)
		}
		if l.model == nil {
			return nil, fmt.Errorf("loading model of %s: no model", species)
		}
		return l.model, nil
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %s after %s",
				ErrLoadTimeout, species, timeout)
		}
		return nil, ctx.Err()
	}
}
