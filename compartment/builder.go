package compartment

import (
	"time"

	"github.com/sarchlab/gutsim/metabolism"
)

// Builder can build compartments.
type Builder struct {
	inputPeriod  int
	outputPeriod int
	hostBiomass  float64
	stepHours    float64
	mergeMode    MergeMode
	terminal     bool
	host         metabolism.Model
	provider     metabolism.ModelProvider
	workers      int
	loadTimeout  time.Duration
}

// MakeBuilder creates a builder with the parameters of the small intestine.
func MakeBuilder() Builder {
	return Builder{
		inputPeriod:  24,
		outputPeriod: 4,
		hostBiomass:  640,
		stepHours:    4,
		mergeMode:    MergeReplace,
		loadTimeout:  metabolism.DefaultLoadTimeout,
	}
}

// WithInputPeriod sets the period, in hours, at which content arrives.
func (b Builder) WithInputPeriod(hours int) Builder {
	b.inputPeriod = hours
	return b
}

// WithOutputPeriod sets the period, in hours, at which content leaves.
func (b Builder) WithOutputPeriod(hours int) Builder {
	b.outputPeriod = hours
	return b
}

// WithHostBiomass sets the biomass of the compartment's own model.
func (b Builder) WithHostBiomass(gDW float64) Builder {
	b.hostBiomass = gDW
	return b
}

// WithStepHours sets the length of a metabolism step.
func (b Builder) WithStepHours(hours float64) Builder {
	b.stepHours = hours
	return b
}

// WithMergeMode sets how incoming metabolites are combined with the pool.
func (b Builder) WithMergeMode(m MergeMode) Builder {
	b.mergeMode = m
	return b
}

// AsTerminal marks the compartment as the last one of the gut.
func (b Builder) AsTerminal() Builder {
	b.terminal = true
	return b
}

// WithHostModel sets the model of the compartment itself.
func (b Builder) WithHostModel(m metabolism.Model) Builder {
	b.host = m
	return b
}

// WithModelProvider sets where species models come from.
func (b Builder) WithModelProvider(p metabolism.ModelProvider) Builder {
	b.provider = p
	return b
}

// WithWorkers sets the number of species optimised in parallel. Zero uses one
// worker per available processor.
func (b Builder) WithWorkers(n int) Builder {
	b.workers = n
	return b
}

// WithLoadTimeout sets how long a species task waits for its model.
func (b Builder) WithLoadTimeout(d time.Duration) Builder {
	b.loadTimeout = d
	return b
}

func (b Builder) parametersMustBeValid() {
	if b.inputPeriod <= 0 || b.outputPeriod <= 0 {
		panic("compartment periods must be positive")
	}

	if b.stepHours <= 0 {
		panic("compartment step must be positive")
	}

	if b.hostBiomass <= 0 {
		panic("host biomass must be positive")
	}

	if b.host == nil {
		panic("host model is not set")
	}

	if b.provider == nil {
		panic("model provider is not set")
	}
}

// Build creates a compartment.
func (b Builder) Build(name string) *Compartment {
	b.parametersMustBeValid()

	c := &Compartment{
		name:         name,
		inputPeriod:  b.inputPeriod,
		outputPeriod: b.outputPeriod,
		hostBiomass:  b.hostBiomass,
		stepHours:    b.stepHours,
		mergeMode:    b.mergeMode,
		terminal:     b.terminal,
		pool:         make(metabolism.Pool),
		population:   make(Population),
		growthRates:  make(metabolism.GrowthRates),
		host:         b.host,
	}

	c.aggregator = metabolism.NewAggregator(b.provider).
		WithWorkers(b.workers).
		WithLoadTimeout(b.loadTimeout)

	return c
}
