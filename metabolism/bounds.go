package metabolism

import "math"

const (
	// CellVolume is the volume of one bacterial cell, in cm^3.
	CellVolume = 1e-12

	// DryWeightDensity is the dry weight per unit cell volume, in gDW/cm^3.
	DryWeightDensity = 0.33

	// MinimumUptake is the lower bound given to every exchange reaction, so
	// that each metabolite can always be taken up at a tiny rate.
	MinimumUptake = -1e-6
)

// CellBiomass converts a cell count into dry biomass, in gDW.
func CellBiomass(count int64) float64 {
	return float64(count) * CellVolume * DryWeightDensity
}

// ShareLowerBound returns the lower bound of an exchange reaction for a
// species that gets a biomass-proportional share of the available amount.
func ShareLowerBound(
	availability, speciesBiomass, totalBiomass, stepHours float64,
) float64 {
	share := availability * (speciesBiomass / totalBiomass)
	return capUptake(-share / (speciesBiomass * stepHours))
}

// HostLowerBound returns the lower bound of an exchange reaction of the
// compartment's own model, which sees the whole pool.
func HostLowerBound(availability, hostBiomass, stepHours float64) float64 {
	return capUptake(-availability / (hostBiomass * stepHours))
}

func capUptake(rate float64) float64 {
	return math.Min(MinimumUptake, round3(rate))
}

// round3 rounds half away from zero to three decimals.
func round3(x float64) float64 {
	return math.Round(x*1000) / 1000
}

// BoundFunc computes the lower bound for an exchange of a metabolite that is
// present in the pool with the given amount.
type BoundFunc func(availability float64) float64

// ApplyBounds sets the lower bound of every exchange reaction of the model.
// Exchanges whose metabolite is absent from the pool get MinimumUptake.
func ApplyBounds(m Model, pool Pool, bound BoundFunc) error {
	for _, ex := range m.Exchanges() {
		lb := MinimumUptake
		if availability, ok := pool[ex.Metabolite]; ok {
			lb = bound(availability)
		}

		if err := m.SetLowerBound(ex.ID, lb); err != nil {
			return err
		}
	}

	return nil
}

// ExchangeDelta converts the exchange fluxes of a solution into pool changes
// for a given biomass and step length.
func ExchangeDelta(
	m Model,
	sol Solution,
	biomass, stepHours float64,
) Delta {
	delta := make(Delta)
	for _, ex := range m.Exchanges() {
		delta[ex.Metabolite] += sol.Fluxes[ex.ID] * biomass * stepHours
	}

	return delta
}
