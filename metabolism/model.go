// Package metabolism runs flux-balance optimisation for the species living in
// a compartment and turns the optimal exchange fluxes into changes of the
// shared metabolite pool.
package metabolism

import (
	"context"
	"errors"
)

// ExchangeReaction ties a reaction of a metabolic model to the single
// metabolite it exchanges with the extracellular pool.
type ExchangeReaction struct {
	ID         string
	Metabolite string
}

// Solution is the result of optimising a model.
type Solution struct {
	// ObjectiveValue is the specific growth rate, in 1/hour.
	ObjectiveValue float64

	// Fluxes maps reaction IDs to their optimal flux, in mmol/gDW/hour.
	Fluxes map[string]float64
}

// A Model is a metabolic network whose exchange bounds can be set before it is
// optimised.
type Model interface {
	// Exchanges lists the exchange reactions of the model.
	Exchanges() []ExchangeReaction

	// SetLowerBound sets the lower bound of a reaction.
	SetLowerBound(reactionID string, lb float64) error

	// Optimize maximises the growth objective under the current bounds.
	Optimize(ctx context.Context) (Solution, error)
}

// A ModelProvider returns a private copy of the model of a species. Callers
// may mutate the returned model freely.
type ModelProvider interface {
	Load(ctx context.Context, speciesID string) (Model, error)
}

var (
	// ErrLoadTimeout is reported when a model could not be loaded within the
	// allowed time.
	ErrLoadTimeout = errors.New("model load timed out")

	// ErrNoBiomass is reported for a species whose biomass is not positive.
	ErrNoBiomass = errors.New("species has no biomass")
)
