package hooking

import (
	"bytes"
	"errors"
	"log"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type recordingHook struct {
	positions []*HookPos
}

func (h *recordingHook) Func(ctx HookCtx) {
	h.positions = append(h.positions, ctx.Pos)
}

var _ = Describe("HookableBase", func() {
	var base *HookableBase

	BeforeEach(func() {
		base = &HookableBase{}
	})

	It("should invoke hooks in registration order", func() {
		var order []string
		base.AcceptHook(HookFunc(func(HookCtx) { order = append(order, "a") }))
		base.AcceptHook(HookFunc(func(HookCtx) { order = append(order, "b") }))

		base.InvokeHook(HookCtx{Pos: HookPosTaskStart})

		Expect(order).To(Equal([]string{"a", "b"}))
		Expect(base.NumHooks()).To(Equal(2))
	})

	It("should reject the same hook twice", func() {
		hook := &recordingHook{}
		base.AcceptHook(hook)

		Expect(func() { base.AcceptHook(hook) }).To(Panic())
	})

	It("should pass the position to the hook", func() {
		hook := &recordingHook{}
		base.AcceptHook(hook)

		base.InvokeHook(HookCtx{Pos: HookPosTaskStart})
		base.InvokeHook(HookCtx{Pos: HookPosTaskEnd})

		Expect(hook.positions).To(Equal([]*HookPos{HookPosTaskStart, HookPosTaskEnd}))
	})
})

var _ = Describe("TaskLogger", func() {
	var (
		buf    *bytes.Buffer
		logger *TaskLogger
	)

	BeforeEach(func() {
		buf = new(bytes.Buffer)
		logger = NewTaskLogger(log.New(buf, "", 0), false)
	})

	It("should log failed tasks", func() {
		logger.Func(HookCtx{
			Pos: HookPosTaskEnd,
			Item: TaskEnd{
				ID:   "Bacteroides",
				Kind: "species",
				Err:  errors.New("load timeout"),
			},
		})

		Expect(buf.String()).To(ContainSubstring("species Bacteroides failed: load timeout"))
	})

	It("should stay quiet on success unless verbose", func() {
		end := HookCtx{Pos: HookPosTaskEnd, Item: TaskEnd{ID: "x", Kind: "species", OK: true}}

		logger.Func(end)
		Expect(buf.Len()).To(BeZero())

		logger.Verbose = true
		logger.Func(end)
		Expect(buf.String()).To(ContainSubstring("species x done"))
	})
})

var _ = Describe("TaskCountTracer", func() {
	It("should count outcomes per kind", func() {
		t := NewTaskCountTracer(nil)

		t.StartTask(TaskStart{ID: "1", Kind: "species"})
		t.StartTask(TaskStart{ID: "2", Kind: "species"})
		t.StartTask(TaskStart{ID: "3", Kind: "host"})
		t.EndTask(TaskEnd{ID: "1", OK: true})
		t.EndTask(TaskEnd{ID: "2", OK: false})
		t.EndTask(TaskEnd{ID: "3", OK: true})

		Expect(t.Succeeded("species")).To(Equal(uint64(1)))
		Expect(t.Failed("species")).To(Equal(uint64(1)))
		Expect(t.Succeeded("host")).To(Equal(uint64(1)))
		Expect(t.Kinds()).To(Equal([]string{"host", "species"}))
	})

	It("should ignore filtered tasks", func() {
		t := NewTaskCountTracer(func(s TaskStart) bool { return s.Kind == "species" })

		t.StartTask(TaskStart{ID: "1", Kind: "host"})
		t.EndTask(TaskEnd{ID: "1", OK: true})

		Expect(t.Kinds()).To(BeEmpty())
	})
})
