// Package timing provides the clock that drives a simulation through its
// transitions.
package timing

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sarchlab/gutsim/hooking"
)

// A list of hook positions of the clock.
var (
	HookPosBeforeTransition = &hooking.HookPos{Name: "BeforeTransition"}
	HookPosAfterTransition  = &hooking.HookPos{Name: "AfterTransition"}
)

// ErrStalled is returned when an iteration does not move the clock forward.
var ErrStalled = errors.New("clock stalled")

// A Transition is an action that the clock fires whenever its condition
// holds for the current hour.
type Transition struct {
	Name string
	When func(hour int) bool
	Fire func(ctx context.Context, it *Iteration) error
}

// TransitionFired is the hook item of a transition.
type TransitionFired struct {
	Name string

	// Hour is the hour at which the transition was triggered.
	Hour int

	// Now is the hour after the transition. It equals Hour in the
	// before-transition hook.
	Now int

	Err error
}

// An Iteration is one pass over the transitions. Values are shared by the
// transitions of the same iteration and dropped afterwards.
type Iteration struct {
	clock  *Clock
	Index  int
	Values map[string]any
}

// Now returns the current hour.
func (it *Iteration) Now() int {
	return it.clock.Now()
}

// Advance moves the clock forward.
func (it *Iteration) Advance(hours int) {
	it.clock.advance(hours)
}

// A Clock counts simulated hours. In every iteration it checks its
// transitions in order; a transition sees the hour as left by the
// transitions before it.
type Clock struct {
	hooking.HookableBase

	timeLock sync.RWMutex
	hour     int

	transitions []Transition
	iterations  int

	isPaused     bool
	isPausedLock sync.Mutex
	pauseLock    sync.Mutex

	singleRunLock sync.Mutex
}

// NewClock creates a clock at hour zero.
func NewClock() *Clock {
	return &Clock{}
}

// AddTransition appends a transition. Transitions are checked in the order
// they were added.
func (c *Clock) AddTransition(t Transition) {
	if t.When == nil || t.Fire == nil {
		panic("transition " + t.Name + " is incomplete")
	}

	c.transitions = append(c.transitions, t)
}

// Transitions returns the names of the transitions.
func (c *Clock) Transitions() []string {
	names := make([]string, len(c.transitions))
	for i, t := range c.transitions {
		names[i] = t.Name
	}

	return names
}

// Now returns the current hour.
func (c *Clock) Now() int {
	c.timeLock.RLock()
	defer c.timeLock.RUnlock()

	return c.hour
}

func (c *Clock) advance(hours int) {
	if hours < 0 {
		panic("cannot move the clock backwards")
	}

	c.timeLock.Lock()
	c.hour += hours
	c.timeLock.Unlock()
}

// Iterations returns the number of completed iterations.
func (c *Clock) Iterations() int {
	c.timeLock.RLock()
	defer c.timeLock.RUnlock()

	return c.iterations
}

// Run iterates until the hour reaches the duration. It stops at the first
// transition error, when the context is cancelled, or with ErrStalled if an
// iteration leaves the hour unchanged.
func (c *Clock) Run(ctx context.Context, duration int) error {
	c.singleRunLock.Lock()
	defer c.singleRunLock.Unlock()

	for c.Now() < duration {
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := c.iterate(ctx); err != nil {
			return err
		}
	}

	return nil
}

func (c *Clock) iterate(ctx context.Context) error {
	c.pauseLock.Lock()
	defer c.pauseLock.Unlock()

	start := c.Now()
	it := &Iteration{
		clock:  c,
		Index:  c.Iterations(),
		Values: make(map[string]any),
	}

	for _, t := range c.transitions {
		if err := ctx.Err(); err != nil {
			return err
		}

		hour := c.Now()
		if !t.When(hour) {
			continue
		}

		item := TransitionFired{Name: t.Name, Hour: hour, Now: hour}
		c.InvokeHook(hooking.HookCtx{
			Domain: c,
			Pos:    HookPosBeforeTransition,
			Item:   item,
		})

		err := t.Fire(ctx, it)

		item.Now = c.Now()
		item.Err = err
		c.InvokeHook(hooking.HookCtx{
			Domain: c,
			Pos:    HookPosAfterTransition,
			Item:   item,
		})

		if err != nil {
			return fmt.Errorf("%s at hour %d: %w", t.Name, hour, err)
		}
	}

	c.timeLock.Lock()
	c.iterations++
	c.timeLock.Unlock()

	if c.Now() == start {
		return fmt.Errorf("%w at hour %d", ErrStalled, start)
	}

	return nil
}

// Pause stops the clock before its next iteration.
func (c *Clock) Pause() {
	c.isPausedLock.Lock()
	defer c.isPausedLock.Unlock()

	if c.isPaused {
		return
	}

	c.pauseLock.Lock()
	c.isPaused = true
}

// Continue lets a paused clock run again.
func (c *Clock) Continue() {
	c.isPausedLock.Lock()
	defer c.isPausedLock.Unlock()

	if !c.isPaused {
		return
	}

	c.pauseLock.Unlock()
	c.isPaused = false
}

// IsPaused tells whether the clock is paused.
func (c *Clock) IsPaused() bool {
	c.isPausedLock.Lock()
	defer c.isPausedLock.Unlock()

	return c.isPaused
}
