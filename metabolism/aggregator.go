package metabolism

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/sarchlab/gutsim/hooking"
)

// TaskKind is the kind reported to hooks for species tasks.
const TaskKind = "species"

// A Batch is the input of one metabolism step of a compartment.
type Batch struct {
	Snapshot     Pool
	Counts       map[string]int64
	TotalBiomass float64
	StepHours    float64
}

// Outcome is the merged result of all the species tasks of a batch.
type Outcome struct {
	// GrowthRates has an entry for every species of the batch; failed species
	// have a zero rate.
	GrowthRates GrowthRates

	// Delta is the sum of the deltas of all successful species.
	Delta Delta

	// NewCounts holds the grown cell counts of the successful species.
	NewCounts map[string]int64

	// Failures maps failed species to the reason.
	Failures map[string]error
}

// An Aggregator runs one task per species on a pool of workers and merges the
// results. Each task works on its own model; the only shared input is the
// read-only snapshot.
type Aggregator struct {
	hooking.HookableBase

	provider    ModelProvider
	workers     int
	loadTimeout time.Duration
}

// NewAggregator creates an Aggregator with one worker per available processor.
func NewAggregator(provider ModelProvider) *Aggregator {
	return &Aggregator{
		provider:    provider,
		workers:     runtime.GOMAXPROCS(0),
		loadTimeout: DefaultLoadTimeout,
	}
}

// WithWorkers sets the number of workers. Non-positive values keep one worker
// per available processor.
func (a *Aggregator) WithWorkers(n int) *Aggregator {
	if n > 0 {
		a.workers = n
	}
	return a
}

// WithLoadTimeout sets how long each task waits for its model.
func (a *Aggregator) WithLoadTimeout(d time.Duration) *Aggregator {
	if d > 0 {
		a.loadTimeout = d
	}
	return a
}

// Workers returns the size of the worker pool.
func (a *Aggregator) Workers() int {
	return a.workers
}

// Run executes the batch and blocks until every task has finished.
func (a *Aggregator) Run(ctx context.Context, batch Batch) Outcome {
	species := sortedKeys(batch.Counts)

	for _, s := range species {
		a.InvokeHook(hooking.HookCtx{
			Domain: a,
			Pos:    hooking.HookPosTaskStart,
			Item:   hooking.TaskStart{ID: s, Kind: TaskKind, What: "optimize"},
		})
	}

	results := a.runTasks(ctx, batch, species)

	for _, r := range results {
		a.InvokeHook(hooking.HookCtx{
			Domain: a,
			Pos:    hooking.HookPosTaskEnd,
			Item: hooking.TaskEnd{
				ID:     r.Species,
				Kind:   TaskKind,
				OK:     r.OK,
				Err:    r.Err,
				Detail: fmt.Sprintf("growth=%g", r.GrowthRate),
			},
		})
	}

	return MergeResults(species, results)
}

func (a *Aggregator) runTasks(
	ctx context.Context,
	batch Batch,
	species []string,
) []Result {
	type job struct {
		idx  int
		task Task
	}
	type done struct {
		idx    int
		result Result
	}

	jobs := make(chan job)
	finished := make(chan done, len(species))

	workerCount := a.workers
	if workerCount > len(species) {
		workerCount = len(species)
	}

	var wg sync.WaitGroup
	wg.Add(workerCount)
	for w := 0; w < workerCount; w++ {
		go func() {
			defer wg.Done()
			for j := range jobs {
				finished <- done{
					idx:    j.idx,
					result: j.task.Run(ctx, a.provider, a.loadTimeout),
				}
			}
		}()
	}

	for i, s := range species {
		jobs <- job{idx: i, task: Task{
			Snapshot:     batch.Snapshot,
			Species:      s,
			CellCount:    batch.Counts[s],
			TotalBiomass: batch.TotalBiomass,
			StepHours:    batch.StepHours,
		}}
	}
	close(jobs)

	wg.Wait()
	close(finished)

	results := make([]Result, len(species))
	for d := range finished {
		results[d.idx] = d.result
	}

	return results
}

// MergeResults folds task results into an Outcome. Results are merged in
// species order, so the outcome does not depend on the order in which the
// tasks completed.
func MergeResults(species []string, results []Result) Outcome {
	out := Outcome{
		GrowthRates: make(GrowthRates, len(species)),
		Delta:       make(Delta),
		NewCounts:   make(map[string]int64),
		Failures:    make(map[string]error),
	}

	for _, s := range species {
		out.GrowthRates[s] = 0
	}

	ordered := make([]Result, len(results))
	copy(ordered, results)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Species < ordered[j].Species
	})

	for _, r := range ordered {
		if !r.OK {
			out.Failures[r.Species] = r.Err
			continue
		}

		out.GrowthRates[r.Species] = r.GrowthRate
		out.NewCounts[r.Species] = r.NewCount
		out.Delta.Add(r.Delta)
	}

	return out
}
