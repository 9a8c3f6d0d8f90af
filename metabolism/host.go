package metabolism

import (
	"context"
	"fmt"
)

// HostStep optimises the compartment's own model against the whole pool.
type HostStep struct {
	Model     Model
	Biomass   float64
	StepHours float64
}

// Run sets the host bounds from the pool, optimises the host model and merges
// its exchanges into the pool. It returns the community growth rate. Unlike
// species tasks, a failure here is returned to the caller.
func (h HostStep) Run(ctx context.Context, pool Pool) (float64, error) {
	if h.Model == nil {
		return 0, fmt.Errorf("host step: no model")
	}

	err := ApplyBounds(h.Model, pool, func(availability float64) float64 {
		return HostLowerBound(availability, h.Biomass, h.StepHours)
	})
	if err != nil {
		return 0, fmt.Errorf("host step: %w", err)
	}

	sol, err := h.Model.Optimize(ctx)
	if err != nil {
		return 0, fmt.Errorf("host step: %w", err)
	}

	MergeDelta(pool, ExchangeDelta(h.Model, sol, h.Biomass, h.StepHours))

	return sol.ObjectiveValue, nil
}
