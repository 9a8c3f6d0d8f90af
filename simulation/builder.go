package simulation

import (
	"log"
	"math/rand/v2"
	"time"

	"github.com/rs/xid"

	"github.com/sarchlab/gutsim/compartment"
	"github.com/sarchlab/gutsim/datarecording"
	"github.com/sarchlab/gutsim/hooking"
	"github.com/sarchlab/gutsim/metabolism"
	"github.com/sarchlab/gutsim/monitoring"
	"github.com/sarchlab/gutsim/sampling"
	"github.com/sarchlab/gutsim/timing"
)

// DefaultSeed seeds runs that do not set a seed.
const DefaultSeed = 5240

// Builder can be used to build a simulation.
type Builder struct {
	id   string
	seed uint64

	diet            *sampling.Diet
	dietVariability float64
	gases           sampling.GasConditions
	library         *sampling.Library

	provider    metabolism.ModelProvider
	firstHost   metabolism.Model
	secondHost  metabolism.Model
	workers     int
	loadTimeout time.Duration

	downstream compartment.Range
	washout    compartment.Range

	recorder datarecording.Recorder
	monitor  *monitoring.Monitor
	logger   *log.Logger
	verbose  bool
}

// MakeBuilder creates a new builder.
func MakeBuilder() Builder {
	return Builder{
		seed:            DefaultSeed,
		dietVariability: sampling.DefaultVariability,
		gases:           sampling.BodyConditions,
		loadTimeout:     metabolism.DefaultLoadTimeout,
		downstream:      compartment.DownstreamRetention,
		washout:         compartment.WashoutRetention,
	}
}

// WithID sets the ID of the run. Without it, a unique ID is generated.
func (b Builder) WithID(id string) Builder {
	b.id = id
	return b
}

// WithSeed sets the seed of all random draws.
func (b Builder) WithSeed(seed uint64) Builder {
	b.seed = seed
	return b
}

// WithDiet sets the diet fed to the first compartment.
func (b Builder) WithDiet(d *sampling.Diet) Builder {
	b.diet = d
	return b
}

// WithDietVariability sets the relative variation of meal amounts.
func (b Builder) WithDietVariability(v float64) Builder {
	b.dietVariability = v
	return b
}

// WithGasConditions sets the conditions used to convert gas volumes.
func (b Builder) WithGasConditions(c sampling.GasConditions) Builder {
	b.gases = c
	return b
}

// WithLibrary sets the library that bacteria are sampled from.
func (b Builder) WithLibrary(l *sampling.Library) Builder {
	b.library = l
	return b
}

// WithModelProvider sets where species models come from.
func (b Builder) WithModelProvider(p metabolism.ModelProvider) Builder {
	b.provider = p
	return b
}

// WithHostModels sets the models of the two compartments themselves.
func (b Builder) WithHostModels(first, second metabolism.Model) Builder {
	b.firstHost = first
	b.secondHost = second
	return b
}

// WithWorkers sets the number of species optimised in parallel.
func (b Builder) WithWorkers(n int) Builder {
	b.workers = n
	return b
}

// WithLoadTimeout sets how long a species task waits for its model.
func (b Builder) WithLoadTimeout(d time.Duration) Builder {
	b.loadTimeout = d
	return b
}

// WithRetention overrides how many cells stay behind in transfers.
func (b Builder) WithRetention(downstream, washout compartment.Range) Builder {
	b.downstream = downstream
	b.washout = washout
	return b
}

// WithRecorder sets where snapshots are recorded.
func (b Builder) WithRecorder(r datarecording.Recorder) Builder {
	b.recorder = r
	return b
}

// WithMonitor attaches a monitor. The builder registers the clock and the
// compartments with it but does not start its server.
func (b Builder) WithMonitor(m *monitoring.Monitor) Builder {
	b.monitor = m
	return b
}

// WithLogger logs transitions and failed species. With verbose set, every
// species task is logged.
func (b Builder) WithLogger(l *log.Logger, verbose bool) Builder {
	b.logger = l
	b.verbose = verbose
	return b
}

func (b Builder) parametersMustBeValid() {
	if b.diet == nil {
		panic("diet is not set")
	}

	if b.library == nil {
		panic("microbial library is not set")
	}

	if b.provider == nil {
		panic("model provider is not set")
	}

	if b.firstHost == nil || b.secondHost == nil {
		panic("host models are not set")
	}

	if b.dietVariability < 0 || b.dietVariability >= 1 {
		panic("diet variability must be in [0, 1)")
	}
}

// Build builds the simulation.
func (b Builder) Build() *Simulation {
	b.parametersMustBeValid()

	s := &Simulation{
		id:              b.id,
		clock:           timing.NewClock(),
		rng:             rand.New(rand.NewPCG(b.seed, b.seed)),
		diet:            b.diet,
		dietVariability: b.dietVariability,
		gases:           b.gases,
		library:         b.library,
		recorder:        b.recorder,
		monitor:         b.monitor,
		logger:          b.logger,
	}

	if s.id == "" {
		s.id = xid.New().String()
	}

	s.first = compartment.MakeBuilder().
		WithHostModel(b.firstHost).
		WithModelProvider(b.provider).
		WithWorkers(b.workers).
		WithLoadTimeout(b.loadTimeout).
		Build(FirstName)

	s.second = compartment.MakeBuilder().
		WithInputPeriod(4).
		WithOutputPeriod(24).
		WithHostBiomass(370).
		WithStepHours(20).
		WithMergeMode(compartment.MergeAdditive).
		AsTerminal().
		WithHostModel(b.secondHost).
		WithModelProvider(b.provider).
		WithWorkers(b.workers).
		WithLoadTimeout(b.loadTimeout).
		Build(SecondName)

	s.transferrer = compartment.NewTransferrer(s.rng).
		WithRetention(b.downstream, b.washout)

	s.addTransitions()

	s.tasks = make(map[string]*hooking.TaskCountTracer)
	for _, c := range []*compartment.Compartment{s.first, s.second} {
		t := hooking.NewTaskCountTracer(nil)
		c.Aggregator().AcceptHook(t)
		s.tasks[c.Name()] = t
	}

	if b.logger != nil {
		s.clock.AcceptHook(timing.NewStepLogger(b.logger))

		taskLogger := hooking.NewTaskLogger(b.logger, b.verbose)
		s.first.Aggregator().AcceptHook(taskLogger)
		s.second.Aggregator().AcceptHook(taskLogger)
	}

	if b.monitor != nil {
		s.attachMonitor(b.monitor)
	}

	return s
}

func (s *Simulation) attachMonitor(m *monitoring.Monitor) {
	m.RegisterClock(s.clock)
	m.RegisterCompartment(s.first)
	m.RegisterCompartment(s.second)

	metrics := m.Metrics()
	for _, h := range []hooking.Hookable{
		s.clock,
		s.first, s.first.Aggregator(),
		s.second, s.second.Aggregator(),
	} {
		h.AcceptHook(metrics)
	}

	s.progress = m.CreateProgressBar("simulate "+s.id, 0)
	s.clock.AcceptHook(monitoring.HourProgress{Bar: s.progress})
}
