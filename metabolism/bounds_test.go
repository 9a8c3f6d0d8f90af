package metabolism

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"
)

var _ = Describe("Bounds", func() {
	It("should give a biomass-proportional share per hour", func() {
		Expect(ShareLowerBound(10, 1, 10, 4)).To(Equal(-0.25))
	})

	It("should never go above the minimum uptake", func() {
		Expect(ShareLowerBound(0, 1, 10, 4)).To(Equal(MinimumUptake))
		Expect(ShareLowerBound(1e-9, 1, 10, 4)).To(Equal(MinimumUptake))
		Expect(HostLowerBound(0, 640, 4)).To(Equal(MinimumUptake))
	})

	It("should round to three decimals", func() {
		Expect(HostLowerBound(1000, 640, 4)).To(Equal(-0.391))
	})

	It("should convert cell counts to biomass", func() {
		Expect(CellBiomass(1e12)).To(BeNumerically("~", 0.33, 1e-12))
		Expect(CellBiomass(0)).To(Equal(0.0))
	})

	Context("when applying bounds to a model", func() {
		var (
			mockCtrl *gomock.Controller
			model    *MockModel
		)

		BeforeEach(func() {
			mockCtrl = gomock.NewController(GinkgoT())
			model = NewMockModel(mockCtrl)
		})

		AfterEach(func() {
			mockCtrl.Finish()
		})

		It("should use the minimum uptake for absent metabolites", func() {
			model.EXPECT().Exchanges().Return([]ExchangeReaction{
				{ID: "EX_x", Metabolite: "x[e]"},
			})
			model.EXPECT().SetLowerBound("EX_x", MinimumUptake).Return(nil)

			err := ApplyBounds(model, Pool{}, func(float64) float64 {
				Fail("bound function should not be called")
				return 0
			})

			Expect(err).NotTo(HaveOccurred())
		})

		It("should use the bound function for present metabolites", func() {
			model.EXPECT().Exchanges().Return([]ExchangeReaction{
				{ID: "EX_glc", Metabolite: "glc[e]"},
			})
			model.EXPECT().SetLowerBound("EX_glc", -0.25).Return(nil)

			err := ApplyBounds(model, Pool{"glc[e]": 10}, func(a float64) float64 {
				return ShareLowerBound(a, 1, 10, 4)
			})

			Expect(err).NotTo(HaveOccurred())
		})
	})
})

var _ = Describe("MergeDelta", func() {
	It("should add to existing entries", func() {
		pool := Pool{"a": 1}
		MergeDelta(pool, Delta{"a": 2})
		Expect(pool).To(Equal(Pool{"a": 3}))
	})

	It("should leave an entry untouched if it would become exactly zero", func() {
		pool := Pool{"a": 2}
		MergeDelta(pool, Delta{"a": -2})
		Expect(pool).To(Equal(Pool{"a": 2}))
	})

	It("should allow entries to become negative", func() {
		pool := Pool{"a": 1}
		MergeDelta(pool, Delta{"a": -3})
		Expect(pool).To(Equal(Pool{"a": -2}))
	})

	It("should only create entries for non-zero amounts", func() {
		pool := Pool{}
		MergeDelta(pool, Delta{"a": 0, "b": 1.5})
		Expect(pool).To(Equal(Pool{"b": 1.5}))
	})
})
