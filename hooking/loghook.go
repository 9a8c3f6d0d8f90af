package hooking

import (
	"log"
)

// A LogHook is a hook that is resonsible for recording information from the
// simulation
type LogHook interface {
	Hook
}

// LogHookBase proovides the common logic for all LogHooks
type LogHookBase struct {
	*log.Logger
}

// TaskLogger prints one line for every finished task. Successful tasks are
// only printed when Verbose is set.
type TaskLogger struct {
	LogHookBase

	Verbose bool
}

// NewTaskLogger returns a new TaskLogger which will write in to the logger
func NewTaskLogger(logger *log.Logger, verbose bool) *TaskLogger {
	h := new(TaskLogger)
	h.Logger = logger
	h.Verbose = verbose
	return h
}

// Func writes the task outcome into the logger
func (h *TaskLogger) Func(ctx HookCtx) {
	if ctx.Pos != HookPosTaskEnd {
		return
	}

	end, ok := ctx.Item.(TaskEnd)
	if !ok {
		return
	}

	if end.OK {
		if h.Verbose {
			h.Printf("%s %s done %s", end.Kind, end.ID, end.Detail)
		}
		return
	}

	h.Printf("%s %s failed: %v", end.Kind, end.ID, end.Err)
}
