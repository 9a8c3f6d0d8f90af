// Package hooking lets simulation parts expose what they are doing to
// loggers, tracers and metric collectors without depending on them.
package hooking

// HookPos names a point at which a domain invokes its hooks, for example
// after a compartment has metabolised.
type HookPos struct {
	Name string
}

// HookCtx describes one hook invocation. Item carries the value the position
// is about (a snapshot, a transfer report, a finished task). Detail is
// position specific and often nil.
type HookCtx struct {
	Domain Hookable
	Pos    *HookPos
	Item   any
	Detail any
}

// Hookable is implemented by anything hooks can be attached to.
type Hookable interface {
	AcceptHook(hook Hook)
	NumHooks() int
	Hooks() []Hook
}

// Hook reacts to an invocation. Hooks run on the goroutine of the domain that
// invokes them.
type Hook interface {
	Func(ctx HookCtx)
}

// HookFunc adapts a plain function to the Hook interface.
type HookFunc func(ctx HookCtx)

// Func calls f(ctx).
func (f HookFunc) Func(ctx HookCtx) {
	f(ctx)
}

// HookableBase keeps the registered hooks of a domain. Embed it to implement
// Hookable.
type HookableBase struct {
	hooks []Hook
}

// NumHooks returns how many hooks are attached.
func (b *HookableBase) NumHooks() int {
	return len(b.hooks)
}

// Hooks returns the attached hooks in registration order.
func (b *HookableBase) Hooks() []Hook {
	return b.hooks
}

// AcceptHook attaches a hook. Attaching the same hook value twice panics,
// except for HookFuncs, which cannot be compared.
func (b *HookableBase) AcceptHook(hook Hook) {
	b.mustNotBeAttached(hook)
	b.hooks = append(b.hooks, hook)
}

func (b *HookableBase) mustNotBeAttached(hook Hook) {
	if _, isFunc := hook.(HookFunc); isFunc {
		return
	}

	for _, attached := range b.hooks {
		if attached == hook {
			panic("hook attached twice")
		}
	}
}

// InvokeHook calls every attached hook in registration order.
func (b *HookableBase) InvokeHook(ctx HookCtx) {
	for _, hook := range b.hooks {
		hook.Func(ctx)
	}
}
