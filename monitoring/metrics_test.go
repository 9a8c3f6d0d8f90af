package monitoring

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/sarchlab/gutsim/compartment"
	"github.com/sarchlab/gutsim/hooking"
	"github.com/sarchlab/gutsim/metabolism"
	"github.com/sarchlab/gutsim/timing"
)

var _ = Describe("Metrics", func() {
	var m *Metrics

	BeforeEach(func() {
		m = NewMetrics()
	})

	It("should record compartment state", func() {
		m.Func(hooking.HookCtx{
			Pos: compartment.HookPosAfterMetabolise,
			Item: compartment.Snapshot{
				Name:       "colon",
				Pool:       metabolism.Pool{"glc": 1, "ac": 2, "h2o": 3},
				Population: compartment.Population{"a": 10, "b": 5},
				GrowthRate: 0.25,
			},
		})

		Expect(testutil.ToFloat64(m.growth.WithLabelValues("colon"))).
			To(Equal(0.25))
		Expect(testutil.ToFloat64(m.cells.WithLabelValues("colon"))).
			To(Equal(15.0))
		Expect(testutil.ToFloat64(m.species.WithLabelValues("colon"))).
			To(Equal(2.0))
		Expect(testutil.ToFloat64(m.metabolites.WithLabelValues("colon"))).
			To(Equal(3.0))
	})

	It("should count task outcomes", func() {
		m.Func(hooking.HookCtx{
			Pos:  hooking.HookPosTaskEnd,
			Item: hooking.TaskEnd{ID: "a", OK: true},
		})
		m.Func(hooking.HookCtx{
			Pos:  hooking.HookPosTaskEnd,
			Item: hooking.TaskEnd{ID: "b", Err: errors.New("infeasible")},
		})
		m.Func(hooking.HookCtx{
			Pos:  hooking.HookPosTaskEnd,
			Item: hooking.TaskEnd{ID: "c", OK: true},
		})

		Expect(testutil.ToFloat64(m.tasks.WithLabelValues("ok"))).To(Equal(2.0))
		Expect(testutil.ToFloat64(m.tasks.WithLabelValues("failed"))).
			To(Equal(1.0))
	})

	It("should count transferred cells", func() {
		m.Func(hooking.HookCtx{
			Pos: compartment.HookPosAfterTransfer,
			Item: compartment.TransferReport{
				From: "small_intestine", To: "colon", Moved: 40},
		})
		m.Func(hooking.HookCtx{
			Pos:  compartment.HookPosAfterTransfer,
			Item: compartment.TransferReport{From: "colon", Moved: 7},
		})

		Expect(testutil.ToFloat64(
			m.moved.WithLabelValues("small_intestine", "colon"))).To(Equal(40.0))
		Expect(testutil.ToFloat64(m.moved.WithLabelValues("colon", "out"))).
			To(Equal(7.0))
	})

	It("should follow the clock", func() {
		m.Func(hooking.HookCtx{
			Pos:  timing.HookPosAfterTransition,
			Item: timing.TransitionFired{Name: "feed", Hour: 0, Now: 4},
		})
		m.Func(hooking.HookCtx{
			Pos: timing.HookPosAfterTransition,
			Item: timing.TransitionFired{
				Name: "pass", Hour: 4, Now: 4, Err: errors.New("boom")},
		})

		Expect(testutil.ToFloat64(m.hour)).To(Equal(4.0))
		Expect(testutil.ToFloat64(m.transitions.WithLabelValues("feed"))).
			To(Equal(1.0))
		Expect(testutil.ToFloat64(m.transitions.WithLabelValues("pass"))).
			To(Equal(0.0))
	})

	It("should move a progress bar with the clock", func() {
		bar := &ProgressBar{Total: 48}
		h := HourProgress{Bar: bar}

		h.Func(hooking.HookCtx{
			Pos:  timing.HookPosAfterTransition,
			Item: timing.TransitionFired{Name: "pass", Hour: 4, Now: 24},
		})
		Expect(bar.State().Finished).To(Equal(uint64(24)))

		h.Func(hooking.HookCtx{
			Pos:  timing.HookPosAfterTransition,
			Item: timing.TransitionFired{Name: "pass", Hour: 48, Now: 52},
		})
		Expect(bar.State().Finished).To(Equal(uint64(48)))
	})
})
