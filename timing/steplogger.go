package timing

import (
	"log"

	"github.com/sarchlab/gutsim/hooking"
)

// StepLogger logs every transition of a clock.
type StepLogger struct {
	hooking.LogHookBase
}

// NewStepLogger creates a StepLogger that writes to the logger.
func NewStepLogger(logger *log.Logger) *StepLogger {
	h := new(StepLogger)
	h.Logger = logger
	return h
}

// Func logs finished transitions.
func (h *StepLogger) Func(ctx hooking.HookCtx) {
	if ctx.Pos != HookPosAfterTransition {
		return
	}

	t, ok := ctx.Item.(TransitionFired)
	if !ok {
		return
	}

	if t.Err != nil {
		h.Printf("hour %d: %s failed: %v", t.Hour, t.Name, t.Err)
		return
	}

	h.Printf("hour %d: %s, now at hour %d", t.Hour, t.Name, t.Now)
}
