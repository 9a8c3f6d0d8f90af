// Package datarecording stores the time series produced by a simulation.
package datarecording

import (
	"errors"
	"sort"
)

// Quantity names a recorded time series of a compartment.
type Quantity string

// The recorded quantities.
const (
	Metabolome Quantity = "metabolome"
	Microbiome Quantity = "microbiome"
	Growth     Quantity = "growth"
)

// Quantities lists all quantities.
var Quantities = []Quantity{Metabolome, Microbiome, Growth}

// GrowthRow is the row key of the community growth rate.
const GrowthRow = "growth_rate"

// A Recorder persists compartment snapshots. Every call adds the column of an
// hour to the table of a compartment and quantity.
type Recorder interface {
	RecordPool(compartment string, hour int, pool map[string]float64) error
	RecordPopulation(compartment string, hour int, population map[string]int64) error
	RecordGrowthRate(compartment string, hour int, rate float64) error

	// Flush writes buffered data.
	Flush() error

	// Close flushes and releases the recorder.
	Close() error
}

// MaxExactCount is the largest cell count that every recorder stores and
// reads back exactly. Tables hold float64 values, so larger counts are
// rounded to the nearest representable value.
const MaxExactCount = 1 << 53

func populationValues(population map[string]int64) map[string]float64 {
	values := make(map[string]float64, len(population))
	for k, v := range population {
		values[k] = float64(v)
	}

	return values
}

func growthValues(rate float64) map[string]float64 {
	return map[string]float64{GrowthRow: rate}
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	return keys
}

// MultiRecorder sends everything to several recorders.
type MultiRecorder []Recorder

// RecordPool records a metabolite pool in all recorders.
func (m MultiRecorder) RecordPool(
	compartment string,
	hour int,
	pool map[string]float64,
) error {
	var errs []error
	for _, r := range m {
		errs = append(errs, r.RecordPool(compartment, hour, pool))
	}

	return errors.Join(errs...)
}

// RecordPopulation records a population in all recorders.
func (m MultiRecorder) RecordPopulation(
	compartment string,
	hour int,
	population map[string]int64,
) error {
	var errs []error
	for _, r := range m {
		errs = append(errs, r.RecordPopulation(compartment, hour, population))
	}

	return errors.Join(errs...)
}

// RecordGrowthRate records a growth rate in all recorders.
func (m MultiRecorder) RecordGrowthRate(
	compartment string,
	hour int,
	rate float64,
) error {
	var errs []error
	for _, r := range m {
		errs = append(errs, r.RecordGrowthRate(compartment, hour, rate))
	}

	return errors.Join(errs...)
}

// Flush flushes all recorders.
func (m MultiRecorder) Flush() error {
	var errs []error
	for _, r := range m {
		errs = append(errs, r.Flush())
	}

	return errors.Join(errs...)
}

// Close closes all recorders.
func (m MultiRecorder) Close() error {
	var errs []error
	for _, r := range m {
		errs = append(errs, r.Close())
	}

	return errors.Join(errs...)
}
