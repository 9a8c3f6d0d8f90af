package monitoring

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/gutsim/compartment"
	"github.com/sarchlab/gutsim/metabolism"
)

type fakeClock struct {
	now    int
	paused bool
}

func (c *fakeClock) Now() int       { return c.now }
func (c *fakeClock) Pause()         { c.paused = true }
func (c *fakeClock) Continue()      { c.paused = false }
func (c *fakeClock) IsPaused() bool { return c.paused }

type fakeCompartment struct {
	snapshot compartment.Snapshot
}

func (c fakeCompartment) Name() string                   { return c.snapshot.Name }
func (c fakeCompartment) Snapshot() compartment.Snapshot { return c.snapshot }

var _ = Describe("Monitor", func() {
	var (
		m       *Monitor
		clock   *fakeClock
		handler http.Handler
	)

	get := func(url string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, url, nil))
		return rec
	}

	BeforeEach(func() {
		m = NewMonitor()
		clock = &fakeClock{now: 28}
		m.RegisterClock(clock)
		m.RegisterCompartment(fakeCompartment{snapshot: compartment.Snapshot{
			Name:       "small_intestine",
			Pool:       metabolism.Pool{"glc": 2.5},
			Population: compartment.Population{"ecoli": 100},
			GrowthRate: 0.3,
		}})
		handler = m.Handler()
	})

	It("should report the simulated hour", func() {
		rec := get("/api/now")

		Expect(rec.Code).To(Equal(http.StatusOK))

		rsp := nowRsp{}
		Expect(json.Unmarshal(rec.Body.Bytes(), &rsp)).To(Succeed())
		Expect(rsp.Now).To(Equal(28))
		Expect(rsp.Paused).To(BeFalse())
	})

	It("should pause and continue the clock", func() {
		Expect(get("/api/pause").Code).To(Equal(http.StatusOK))
		Expect(clock.paused).To(BeTrue())

		Expect(get("/api/continue").Code).To(Equal(http.StatusOK))
		Expect(clock.paused).To(BeFalse())
	})

	It("should answer 503 without a clock", func() {
		m.RegisterClock(nil)

		Expect(get("/api/now").Code).To(Equal(http.StatusServiceUnavailable))
	})

	It("should list compartments", func() {
		rec := get("/api/compartments")

		names := []string{}
		Expect(json.Unmarshal(rec.Body.Bytes(), &names)).To(Succeed())
		Expect(names).To(Equal([]string{"small_intestine"}))
	})

	It("should serialize a compartment", func() {
		rec := get("/api/compartment/small_intestine")

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.Len()).To(BeNumerically(">", 0))
	})

	It("should answer 404 for unknown compartments", func() {
		Expect(get("/api/compartment/colon").Code).
			To(Equal(http.StatusNotFound))
	})

	It("should reject malformed field requests", func() {
		Expect(get("/api/field/notjson").Code).
			To(Equal(http.StatusBadRequest))
	})

	It("should list progress bars", func() {
		bar := m.CreateProgressBar("simulate", 48)
		bar.SetFinished(24)
		other := m.CreateProgressBar("other", 1)
		m.CompleteProgressBar(other)

		rec := get("/api/progress")

		bars := []ProgressBarState{}
		Expect(json.Unmarshal(rec.Body.Bytes(), &bars)).To(Succeed())
		Expect(bars).To(HaveLen(1))
		Expect(bars[0].ID).To(Equal(bar.ID))
		Expect(bars[0].Finished).To(Equal(uint64(24)))
	})

	It("should report resource usage", func() {
		rec := get("/api/resource")

		rsp := resourceRsp{}
		Expect(json.Unmarshal(rec.Body.Bytes(), &rsp)).To(Succeed())
		Expect(rsp.MemorySize).To(BeNumerically(">", 0))
	})

	It("should expose metrics", func() {
		rec := get("/metrics")

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.String()).To(ContainSubstring("gutsim_simulated_hour"))
	})

	It("should serve the page", func() {
		rec := get("/")

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.String()).To(HavePrefix("<!DOCTYPE html>"))
	})

	It("should ignore privileged ports", func() {
		m.WithPortNumber(80)

		Expect(m.portNumber).To(Equal(0))
	})
})
