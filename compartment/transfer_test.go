package compartment

import (
	"math/rand/v2"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/gutsim/metabolism"
)

var _ = Describe("Transferrer", func() {
	var (
		rng      *rand.Rand
		src, dst *Compartment
	)

	BeforeEach(func() {
		rng = rand.New(rand.NewPCG(1, 2))

		b := MakeBuilder().
			WithHostModel(&stubModel{}).
			WithModelProvider(stubProvider{})
		src = b.WithMergeMode(MergeReplace).Build("small_intestine")
		dst = b.WithMergeMode(MergeAdditive).
			WithInputPeriod(4).
			WithOutputPeriod(24).
			AsTerminal().
			Build("large_intestine")
	})

	It("should compute weights from growth rates", func() {
		w := TransferWeights(metabolism.GrowthRates{"A": 0.1, "B": 0.05})

		Expect(w["A"]).To(BeNumerically("~", 1.0/3, 1e-12))
		Expect(w["B"]).To(BeNumerically("~", 2.0/3, 1e-12))
	})

	It("should use equal weights when nothing grows", func() {
		w := TransferWeights(metabolism.GrowthRates{"A": 0, "B": 0})

		Expect(w).To(Equal(map[string]float64{"A": 1, "B": 1}))
	})

	It("should clamp negative weights", func() {
		w := TransferWeights(metabolism.GrowthRates{"A": 0.3, "B": -0.1})

		Expect(w["A"]).To(Equal(0.0))
		Expect(w["B"]).To(BeNumerically(">", 1))
	})

	It("should move the pool and part of the population", func() {
		src.AddMetabolites(metabolism.Pool{"glc[e]": 10})
		dst.AddMetabolites(metabolism.Pool{"glc[e]": 1})
		src.AddMicrobes(Population{"A": 5e8, "B": 5e8})

		report := NewTransferrer(rng).Downstream(src, dst,
			metabolism.GrowthRates{"A": 0.1, "B": 0.05})

		Expect(src.Pool()).To(BeEmpty())
		Expect(dst.Pool()).To(Equal(metabolism.Pool{"glc[e]": 11}))
		Expect(report.Moved).To(BeNumerically(">=", report.Target))
		Expect(dst.Population().Total()).To(Equal(report.Moved))
		Expect(src.Population().Total() + dst.Population().Total()).
			To(Equal(int64(1e9)))
	})

	It("should never leave negative or zero counts", func() {
		t := NewTransferrer(rng).WithRetention(Range{Min: 10, Max: 100}, WashoutRetention)

		for trial := 0; trial < 200; trial++ {
			before := Population{
				"A": rng.Int64N(1000),
				"B": rng.Int64N(1000),
				"C": rng.Int64N(1000),
			}
			before.Prune()

			src.population = before.Clone()
			dst.population = make(Population)

			report := t.Downstream(src, dst,
				metabolism.GrowthRates{"A": 0.2, "B": 0.1, "C": 0})

			for s, n := range src.Population() {
				Expect(n).To(BeNumerically(">", 0))
				Expect(n).To(BeNumerically("<=", before[s]))
			}

			var moved int64
			for s, n := range report.Tally {
				Expect(n).To(BeNumerically(">", 0))
				Expect(n).To(Equal(before[s] - src.Population()[s]))
				moved += n
			}
			Expect(moved).To(Equal(report.Moved))
		}
	})

	It("should transfer more of the slow grower", func() {
		t := NewTransferrer(rng).
			WithRetention(Range{Min: 1500, Max: 1500}, WashoutRetention)
		rates := metabolism.GrowthRates{"A": 0.1, "B": 0.05}

		var fractionA, fractionB float64
		for trial := 0; trial < 500; trial++ {
			src.population = Population{"A": 1000, "B": 2000}
			dst.population = make(Population)

			report := t.Downstream(src, dst, rates)
			Expect(report.Target).To(Equal(int64(1500)))

			fractionA += float64(report.Tally["A"]) / 1000
			fractionB += float64(report.Tally["B"]) / 2000
		}

		Expect(fractionB).To(BeNumerically(">", fractionA))
	})

	It("should stop when the population is smaller than the retention", func() {
		src.AddMicrobes(Population{"A": 100})

		report := NewTransferrer(rng).Washout(src, metabolism.GrowthRates{"A": 1})

		Expect(report.Target).To(BeNumerically("<", 0))
		Expect(report.Iterations).To(Equal(0))
		Expect(src.Population()).To(Equal(Population{"A": 100}))
	})

	It("should not move content out of the terminal compartment", func() {
		dst.AddMicrobes(Population{"A": 1e9})

		Expect(func() {
			NewTransferrer(rng).Downstream(dst, src, metabolism.GrowthRates{})
		}).To(PanicWith(ContainSubstring("large_intestine")))
		Expect(dst.Population()).To(Equal(Population{"A": 1e9}))
	})

	It("should wash out the terminal compartment", func() {
		dst.AddMetabolites(metabolism.Pool{"glc[e]": 10})
		dst.AddMicrobes(Population{"A": 6e10, "B": 4e10})

		report := NewTransferrer(rng).Washout(dst, metabolism.GrowthRates{})

		Expect(dst.Pool()).To(BeEmpty())
		Expect(report.To).To(BeEmpty())
		Expect(dst.Population().Total()).To(Equal(int64(1e11) - report.Moved))
		Expect(dst.Population().Total()).To(BeNumerically("<=", int64(1e10)))
	})

	It("should be reproducible for a seed", func() {
		run := func() Population {
			r := rand.New(rand.NewPCG(7, 7))
			c := MakeBuilder().
				WithHostModel(&stubModel{}).
				WithModelProvider(stubProvider{}).
				Build("small_intestine")
			c.AddMicrobes(Population{"A": 1e9, "B": 2e9, "C": 3e9})
			NewTransferrer(r).Washout(c,
				metabolism.GrowthRates{"A": 0.3, "B": 0.2, "C": 0.1})
			return c.Population()
		}

		Expect(run()).To(Equal(run()))
	})
})
