package hooking

import (
	"sort"
	"sync"
)

// TaskCountTracer counts finished tasks per kind, split by outcome.
type TaskCountTracer struct {
	filter TaskFilter
	lock   sync.Mutex

	kinds     map[string]string
	succeeded map[string]uint64
	failed    map[string]uint64
}

// NewTaskCountTracer creates a new TaskCountTracer. A nil filter accepts
// every task.
func NewTaskCountTracer(filter TaskFilter) *TaskCountTracer {
	return &TaskCountTracer{
		filter:    filter,
		kinds:     make(map[string]string),
		succeeded: make(map[string]uint64),
		failed:    make(map[string]uint64),
	}
}

// Func records the start end of a task.
func (t *TaskCountTracer) Func(ctx HookCtx) {
	switch ctx.Pos {
	case HookPosTaskStart:
		t.StartTask(ctx.Item.(TaskStart))
	case HookPosTaskEnd:
		t.EndTask(ctx.Item.(TaskEnd))
	}
}

// StartTask remembers the kind of a task that passes the filter.
func (t *TaskCountTracer) StartTask(task TaskStart) {
	if t.filter != nil && !t.filter(task) {
		return
	}

	t.lock.Lock()
	defer t.lock.Unlock()

	t.kinds[task.ID] = task.Kind
}

// EndTask counts a task that was previously started.
func (t *TaskCountTracer) EndTask(task TaskEnd) {
	t.lock.Lock()
	defer t.lock.Unlock()

	kind, ok := t.kinds[task.ID]
	if !ok {
		return
	}
	delete(t.kinds, task.ID)

	if task.OK {
		t.succeeded[kind]++
		return
	}

	t.failed[kind]++
}

// Succeeded returns the number of successful tasks of a kind.
func (t *TaskCountTracer) Succeeded(kind string) uint64 {
	t.lock.Lock()
	defer t.lock.Unlock()

	return t.succeeded[kind]
}

// Failed returns the number of failed tasks of a kind.
func (t *TaskCountTracer) Failed(kind string) uint64 {
	t.lock.Lock()
	defer t.lock.Unlock()

	return t.failed[kind]
}

// Kinds returns all the kinds that have at least one finished task.
func (t *TaskCountTracer) Kinds() []string {
	t.lock.Lock()
	defer t.lock.Unlock()

	seen := make(map[string]bool)
	for k := range t.succeeded {
		seen[k] = true
	}
	for k := range t.failed {
		seen[k] = true
	}

	kinds := make([]string, 0, len(seen))
	for k := range seen {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)

	return kinds
}
