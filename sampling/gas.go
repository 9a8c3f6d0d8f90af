package sampling

import (
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/sarchlab/gutsim/metabolism"
)

// GasVolume is the normal distribution of the volume of a swallowed gas, in
// mL.
type GasVolume struct {
	Metabolite string
	Mean       float64
	StdDev     float64
}

// Gases are the gases swallowed with every meal.
var Gases = []GasVolume{
	{Metabolite: "o2[e]", Mean: 0.58, StdDev: 0.43},
	{Metabolite: "co2[e]", Mean: 9.7, StdDev: 2.4},
	{Metabolite: "n2[e]", Mean: 64, StdDev: 52},
	{Metabolite: "h2[e]", Mean: 14, StdDev: 9.9},
	{Metabolite: "ch4[e]", Mean: 5.6, StdDev: 7.6},
}

// GasConditions are the physical conditions used to convert gas volumes into
// amounts.
type GasConditions struct {
	// Temperature in K.
	Temperature float64

	// GasConstant in L*atm/(mol*K).
	GasConstant float64

	// Pressure in atm.
	Pressure float64
}

// BodyConditions is body temperature at atmospheric pressure.
var BodyConditions = GasConditions{
	Temperature: 310,
	GasConstant: 0.08206,
	Pressure:    1,
}

// SampleGases draws a volume for every gas, clipped at zero, and converts it
// to mmol with the ideal gas law.
func SampleGases(rng *rand.Rand, cond GasConditions) metabolism.Pool {
	volumes := make([]float64, len(Gases))
	total := 0.0

	for i, g := range Gases {
		v := distuv.Normal{Mu: g.Mean, Sigma: g.StdDev, Src: rng}.Rand()
		if v < 0 {
			v = 0
		}

		volumes[i] = v
		total += v
	}

	totalLitres := total / 1000

	pool := make(metabolism.Pool, len(Gases))
	for i, g := range Gases {
		fraction := 0.0
		if total > 0 {
			fraction = volumes[i] / total
		}

		pool[g.Metabolite] = 1000 * fraction * cond.Pressure * totalLitres /
			(cond.GasConstant * cond.Temperature)
	}

	return pool
}
