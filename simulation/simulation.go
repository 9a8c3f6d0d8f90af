// Package simulation wires compartments, samplers, recorders and the clock
// into a running gut simulation.
package simulation

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand/v2"

	"github.com/sarchlab/gutsim/compartment"
	"github.com/sarchlab/gutsim/datarecording"
	"github.com/sarchlab/gutsim/hooking"
	"github.com/sarchlab/gutsim/metabolism"
	"github.com/sarchlab/gutsim/monitoring"
	"github.com/sarchlab/gutsim/sampling"
	"github.com/sarchlab/gutsim/timing"
)

// Names of the compartments.
const (
	FirstName  = "small_intestine"
	SecondName = "large_intestine"
)

// Names of the clock transitions.
const (
	TransitionFeed    = "feed"
	TransitionPass    = "pass"
	TransitionExcrete = "excrete"
)

const (
	firstRatesKey  = "first_growth_rates"
	secondRatesKey = "second_growth_rates"
)

// A Simulation moves food and bacteria through two compartments. The first
// compartment is fed at every input period; its content passes on to the
// second one, which washes out at every output period.
type Simulation struct {
	id string

	first  *compartment.Compartment
	second *compartment.Compartment

	clock       *timing.Clock
	transferrer *compartment.Transferrer
	rng         *rand.Rand

	diet            *sampling.Diet
	dietVariability float64
	gases           sampling.GasConditions
	library         *sampling.Library

	recorder datarecording.Recorder
	monitor  *monitoring.Monitor
	progress *monitoring.ProgressBar
	logger   *log.Logger

	// tasks counts the species tasks of each compartment.
	tasks map[string]*hooking.TaskCountTracer
}

// ID returns the unique ID of the run.
func (s *Simulation) ID() string {
	return s.id
}

// First returns the compartment that receives the food.
func (s *Simulation) First() *compartment.Compartment {
	return s.first
}

// Second returns the terminal compartment.
func (s *Simulation) Second() *compartment.Compartment {
	return s.second
}

// Clock returns the clock that drives the simulation.
func (s *Simulation) Clock() *timing.Clock {
	return s.clock
}

// Tasks returns the species task counts of the named compartment, or nil if
// there is no such compartment.
func (s *Simulation) Tasks(compartmentName string) *hooking.TaskCountTracer {
	return s.tasks[compartmentName]
}

// Monitor returns the monitor, if any.
func (s *Simulation) Monitor() *monitoring.Monitor {
	return s.monitor
}

// Simulate runs the clock until the given hour. On failure, the state of
// both compartments is logged before the error is returned. Recorded data is
// flushed in any case.
func (s *Simulation) Simulate(ctx context.Context, durationHours int) error {
	if s.progress != nil {
		s.progress.Lock()
		s.progress.Total = uint64(max(durationHours, 0))
		s.progress.Unlock()
	}

	err := s.clock.Run(ctx, durationHours)
	if err != nil {
		s.logSnapshots()
		err = fmt.Errorf("simulation %s: %w", s.id, err)
	}

	if s.recorder != nil {
		err = errors.Join(err, s.recorder.Flush())
	}

	return err
}

// Terminate logs the task totals, closes the recorder and stops the monitor.
func (s *Simulation) Terminate() error {
	var errs []error

	s.logTaskTotals()

	if s.recorder != nil {
		errs = append(errs, s.recorder.Close())
	}

	if s.monitor != nil {
		if s.progress != nil {
			s.monitor.CompleteProgressBar(s.progress)
		}
		errs = append(errs, s.monitor.StopServer())
	}

	return errors.Join(errs...)
}

func (s *Simulation) addTransitions() {
	s.clock.AddTransition(timing.Transition{
		Name: TransitionFeed,
		When: func(hour int) bool {
			return hour%s.first.InputPeriod() == 0
		},
		Fire: s.feed,
	})

	s.clock.AddTransition(timing.Transition{
		Name: TransitionPass,
		When: func(hour int) bool {
			return hour%s.first.InputPeriod() == s.first.OutputPeriod()
		},
		Fire: s.pass,
	})

	s.clock.AddTransition(timing.Transition{
		Name: TransitionExcrete,
		When: func(hour int) bool {
			return hour%s.second.OutputPeriod() == 0
		},
		Fire: s.excrete,
	})
}

// feed adds a meal and the bacteria that come with it to the first
// compartment and lets it metabolise.
func (s *Simulation) feed(ctx context.Context, it *timing.Iteration) error {
	meal := s.diet.Sample(s.rng, s.dietVariability)
	gases := sampling.SampleGases(s.rng, s.gases)
	for _, k := range gases.Keys() {
		meal[k] = gases[k]
	}

	s.first.AddMetabolites(meal)
	s.first.AddMicrobes(compartment.Population(s.library.Sample(s.rng)))

	rates, err := s.first.Metabolise(ctx)
	if err != nil {
		return err
	}
	it.Values[firstRatesKey] = rates

	it.Advance(s.first.OutputPeriod())

	return s.record(s.first, it.Now())
}

// pass moves the content of the first compartment into the second one and
// lets the second one metabolise.
func (s *Simulation) pass(ctx context.Context, it *timing.Iteration) error {
	rates, _ := it.Values[firstRatesKey].(metabolism.GrowthRates)
	s.transferrer.Downstream(s.first, s.second, rates)

	rates, err := s.second.Metabolise(ctx)
	if err != nil {
		return err
	}
	it.Values[secondRatesKey] = rates

	it.Advance(s.second.OutputPeriod() - s.second.InputPeriod())

	return s.record(s.second, it.Now())
}

// excrete washes content out of the second compartment.
func (s *Simulation) excrete(_ context.Context, it *timing.Iteration) error {
	rates, _ := it.Values[secondRatesKey].(metabolism.GrowthRates)
	s.transferrer.Washout(s.second, rates)

	return nil
}

func (s *Simulation) record(c *compartment.Compartment, hour int) error {
	if s.recorder == nil {
		return nil
	}

	err := errors.Join(
		s.recorder.RecordPool(c.Name(), hour, c.Pool()),
		s.recorder.RecordPopulation(c.Name(), hour, c.Population()),
		s.recorder.RecordGrowthRate(c.Name(), hour, c.GrowthRate()),
	)
	if err != nil {
		return fmt.Errorf("recording %s: %w", c.Name(), err)
	}

	return nil
}

func (s *Simulation) logSnapshots() {
	if s.logger == nil {
		return
	}

	for _, c := range []*compartment.Compartment{s.first, s.second} {
		snapshot := c.Snapshot()
		s.logger.Printf(
			"last state of %s: %d metabolites, %d species, %d cells, "+
				"growth rate %g",
			snapshot.Name,
			len(snapshot.Pool),
			len(snapshot.Population.Keys()),
			snapshot.Population.Total(),
			snapshot.GrowthRate)

		for _, k := range snapshot.Population.Keys() {
			s.logger.Printf("  %s: %d cells", k, snapshot.Population[k])
		}
	}
}

func (s *Simulation) logTaskTotals() {
	if s.logger == nil {
		return
	}

	for _, c := range []*compartment.Compartment{s.first, s.second} {
		t := s.tasks[c.Name()]
		s.logger.Printf("%s: %d species tasks succeeded, %d failed",
			c.Name(),
			t.Succeeded(metabolism.TaskKind),
			t.Failed(metabolism.TaskKind))
	}
}
