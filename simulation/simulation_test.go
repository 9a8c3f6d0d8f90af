package simulation

import (
	"bytes"
	"context"
	"errors"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"

	"github.com/sarchlab/gutsim/compartment"
	"github.com/sarchlab/gutsim/config"
	"github.com/sarchlab/gutsim/datarecording"
	"github.com/sarchlab/gutsim/fba"
	"github.com/sarchlab/gutsim/hooking"
	"github.com/sarchlab/gutsim/metabolism"
	"github.com/sarchlab/gutsim/monitoring"
	"github.com/sarchlab/gutsim/sampling"
	"github.com/sarchlab/gutsim/timing"
)

const glucoseEater = `
id: %s
reactions:
  - id: EX_glc
    metabolites: {"glc[e]": -1}
  - id: GLCt
    metabolites: {"glc[e]": -1, "glc[c]": 1}
    reversible: false
  - id: BIOMASS
    metabolites: {"glc[c]": -1000, "ac[e]": 1}
    reversible: false
  - id: EX_ac
    metabolites: {"ac[e]": -1}
objective:
  BIOMASS: 1
`

const testDiet = `Metabolite ID,Amount (mmol)
glc[e],10
ac[e],1
`

const testLibrary = `{
  "Bacillota": {"phylum_size": 120, "representative_strain": "strain_a"},
  "Bacteroidota": {"phylum_size": 60, "representative_strain": "strain_b"}
}`

func modelYAML(id string) string {
	return strings.Replace(glucoseEater, "%s", id, 1)
}

func network(id string) *fba.Network {
	n, err := fba.ReadNetwork(strings.NewReader(modelYAML(id)), fba.FormatYAML)
	Expect(err).ToNot(HaveOccurred())
	return n
}

type yamlLoader struct{}

func (yamlLoader) LoadNetwork(
	_ context.Context,
	speciesID string,
) (*fba.Network, error) {
	return fba.ReadNetwork(strings.NewReader(modelYAML(speciesID)), fba.FormatYAML)
}

type failingModel struct {
	err error
}

func (m failingModel) Exchanges() []metabolism.ExchangeReaction { return nil }
func (m failingModel) SetLowerBound(string, float64) error      { return nil }
func (m failingModel) Optimize(context.Context) (metabolism.Solution, error) {
	return metabolism.Solution{}, m.err
}

func testBuilder() Builder {
	diet, err := sampling.ReadDiet(strings.NewReader(testDiet))
	Expect(err).ToNot(HaveOccurred())
	diet.Name = "test"

	library, err := sampling.ReadLibrary(strings.NewReader(testLibrary))
	Expect(err).ToNot(HaveOccurred())

	return MakeBuilder().
		WithSeed(11).
		WithDiet(diet).
		WithLibrary(library).
		WithModelProvider(fba.NewCache(yamlLoader{})).
		WithHostModels(network("host_small"), network("host_large")).
		WithWorkers(2)
}

var _ = Describe("Simulation", func() {
	var (
		mockCtrl *gomock.Controller
		recorder *MockRecorder
		ctx      context.Context
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		recorder = NewMockRecorder(mockCtrl)
		ctx = context.Background()
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should build the two compartments", func() {
		s := testBuilder().Build()

		Expect(s.ID()).ToNot(BeEmpty())
		Expect(s.First().Name()).To(Equal(FirstName))
		Expect(s.First().InputPeriod()).To(Equal(24))
		Expect(s.First().OutputPeriod()).To(Equal(4))
		Expect(s.First().HostBiomass()).To(Equal(640.0))
		Expect(s.First().MergeMode()).To(Equal(compartment.MergeReplace))

		Expect(s.Second().Name()).To(Equal(SecondName))
		Expect(s.Second().InputPeriod()).To(Equal(4))
		Expect(s.Second().OutputPeriod()).To(Equal(24))
		Expect(s.Second().HostBiomass()).To(Equal(370.0))
		Expect(s.Second().StepHours()).To(Equal(20.0))
		Expect(s.Second().MergeMode()).To(Equal(compartment.MergeAdditive))
		Expect(s.Second().Terminal()).To(BeTrue())

		Expect(s.Clock().Transitions()).To(Equal(
			[]string{TransitionFeed, TransitionPass, TransitionExcrete}))
	})

	It("should panic without a diet", func() {
		b := testBuilder().WithDiet(nil)

		Expect(func() { b.Build() }).To(Panic())
	})

	It("should fire the transitions on the gut schedule", func() {
		s := testBuilder().Build()

		var fired []timing.TransitionFired
		s.Clock().AcceptHook(hooking.HookFunc(func(ctx hooking.HookCtx) {
			if ctx.Pos == timing.HookPosAfterTransition {
				fired = append(fired, ctx.Item.(timing.TransitionFired))
			}
		}))

		Expect(s.Simulate(ctx, 48)).To(Succeed())

		type step struct {
			name      string
			hour, now int
		}
		var steps []step
		for _, f := range fired {
			steps = append(steps, step{f.Name, f.Hour, f.Now})
		}

		Expect(steps).To(Equal([]step{
			{TransitionFeed, 0, 4},
			{TransitionPass, 4, 24},
			{TransitionExcrete, 24, 24},
			{TransitionFeed, 24, 28},
			{TransitionPass, 28, 48},
			{TransitionExcrete, 48, 48},
		}))
		Expect(s.Clock().Now()).To(Equal(48))
	})

	It("should record each compartment after it metabolised", func() {
		for _, c := range []struct {
			name string
			hour int
		}{
			{FirstName, 4},
			{SecondName, 24},
			{FirstName, 28},
			{SecondName, 48},
		} {
			recorder.EXPECT().RecordPool(c.name, c.hour, gomock.Any())
			recorder.EXPECT().RecordPopulation(c.name, c.hour, gomock.Any())
			recorder.EXPECT().RecordGrowthRate(c.name, c.hour, gomock.Any())
		}
		recorder.EXPECT().Flush()
		recorder.EXPECT().Close()

		s := testBuilder().WithRecorder(recorder).Build()

		Expect(s.Simulate(ctx, 48)).To(Succeed())
		Expect(s.Terminate()).To(Succeed())
	})

	It("should count species tasks and log the totals", func() {
		buf := new(bytes.Buffer)
		s := testBuilder().WithLogger(log.New(buf, "", 0), false).Build()

		Expect(s.Simulate(ctx, 48)).To(Succeed())
		Expect(s.Terminate()).To(Succeed())

		first := s.Tasks(FirstName)
		Expect(first.Succeeded(metabolism.TaskKind)).To(BeNumerically(">=", 2))
		Expect(first.Failed(metabolism.TaskKind)).To(BeZero())
		Expect(s.Tasks(SecondName)).NotTo(BeNil())
		Expect(s.Tasks("colon")).To(BeNil())
		Expect(buf.String()).To(ContainSubstring(FirstName + ": "))
		Expect(buf.String()).To(ContainSubstring("species tasks succeeded, 0 failed"))
	})

	It("should keep populations non-negative", func() {
		s := testBuilder().Build()

		Expect(s.Simulate(ctx, 72)).To(Succeed())

		for _, c := range []*compartment.Compartment{s.First(), s.Second()} {
			for _, k := range c.Population().Keys() {
				Expect(c.Population()[k]).To(BeNumerically(">", 0))
			}
		}
		Expect(s.First().Population().Total()).To(BeNumerically(">", 0))
	})

	It("should stop and report the state when a host model fails", func() {
		boom := errors.New("solver crashed")
		buf := new(bytes.Buffer)

		recorder.EXPECT().Flush()

		s := testBuilder().
			WithHostModels(failingModel{err: boom}, network("host_large")).
			WithRecorder(recorder).
			WithLogger(log.New(buf, "", 0), false).
			Build()

		err := s.Simulate(ctx, 48)

		Expect(errors.Is(err, boom)).To(BeTrue())
		Expect(err.Error()).To(ContainSubstring(TransitionFeed))
		Expect(buf.String()).To(ContainSubstring("feed failed"))
		Expect(buf.String()).To(ContainSubstring(
			"last state of " + FirstName))
		Expect(buf.String()).To(ContainSubstring(
			"last state of " + SecondName))
	})

	It("should stop when the context is cancelled", func() {
		s := testBuilder().Build()

		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		err := s.Simulate(cancelled, 48)

		Expect(errors.Is(err, context.Canceled)).To(BeTrue())
		Expect(s.Clock().Now()).To(Equal(0))
	})

	It("should feed the monitor", func() {
		m := monitoring.NewMonitor()
		s := testBuilder().WithMonitor(m).Build()

		Expect(s.Simulate(ctx, 48)).To(Succeed())

		rec := httptest.NewRecorder()
		m.Handler().ServeHTTP(rec,
			httptest.NewRequest(http.MethodGet, "/metrics", nil))
		Expect(rec.Body.String()).To(ContainSubstring("gutsim_simulated_hour 48"))

		rec = httptest.NewRecorder()
		m.Handler().ServeHTTP(rec,
			httptest.NewRequest(http.MethodGet, "/api/compartments", nil))
		Expect(rec.Body.String()).To(Equal(
			`["` + FirstName + `","` + SecondName + `"]`))

		Expect(s.Terminate()).To(Succeed())
	})
})

var _ = Describe("Simulate", func() {
	var dir string

	BeforeEach(func() {
		dir = GinkgoT().TempDir()

		models := filepath.Join(dir, "models")
		Expect(os.MkdirAll(models, 0o755)).To(Succeed())
		for _, id := range []string{"strain_a", "strain_b", "host_si", "host_li"} {
			Expect(os.WriteFile(filepath.Join(models, id+".yaml"),
				[]byte(modelYAML(id)), 0o644)).To(Succeed())
		}

		Expect(os.WriteFile(filepath.Join(dir, "keto_diet.csv"),
			[]byte(testDiet), 0o644)).To(Succeed())
		Expect(os.WriteFile(filepath.Join(dir, "library.json"),
			[]byte(testLibrary), 0o644)).To(Succeed())
	})

	run := func(seed uint64, out string) *Result {
		models := filepath.Join(dir, "models")

		res, err := Simulate(context.Background(), 48,
			filepath.Join(dir, "keto_diet.csv"), seed,
			WithModels(models,
				filepath.Join(models, "host_si.yaml"),
				filepath.Join(models, "host_li.yaml")),
			WithLibraryFile(filepath.Join(dir, "library.json")),
			WithOutput(filepath.Join(dir, out), "run"),
			func(cfg *config.Config) { cfg.Logging.Level = config.LevelQuiet },
		)
		Expect(err).ToNot(HaveOccurred())

		return res
	}

	files := []string{
		"run_small_intestine_metabolome.csv",
		"run_small_intestine_microbiome.csv",
		"run_small_intestine_growth.csv",
		"run_large_intestine_metabolome.csv",
		"run_large_intestine_microbiome.csv",
		"run_large_intestine_growth.csv",
	}

	It("should write one table per compartment and quantity", func() {
		res := run(1, "out")

		Expect(res.OutputDir).To(Equal(filepath.Join(dir, "out", "run")))
		for _, f := range files {
			Expect(filepath.Join(res.OutputDir, f)).To(BeAnExistingFile())
		}

		t, err := datarecording.ReadCSVFile(
			filepath.Join(res.OutputDir, "run_small_intestine_growth.csv"))
		Expect(err).ToNot(HaveOccurred())
		Expect(t.Columns()).To(Equal([]int{4, 28}))
		Expect(t.Rows()).To(Equal([]string{datarecording.GrowthRow}))
	})

	It("should be reproducible", func() {
		a := run(5240, "a")
		b := run(5240, "b")

		for _, f := range files {
			x, err := os.ReadFile(filepath.Join(a.OutputDir, f))
			Expect(err).ToNot(HaveOccurred())
			y, err := os.ReadFile(filepath.Join(b.OutputDir, f))
			Expect(err).ToNot(HaveOccurred())

			Expect(x).To(Equal(y), f)
		}
	})

	It("should depend on the seed", func() {
		a := run(1, "a")
		b := run(2, "b")

		x, err := os.ReadFile(
			filepath.Join(a.OutputDir, "run_small_intestine_microbiome.csv"))
		Expect(err).ToNot(HaveOccurred())
		y, err := os.ReadFile(
			filepath.Join(b.OutputDir, "run_small_intestine_microbiome.csv"))
		Expect(err).ToNot(HaveOccurred())

		Expect(x).ToNot(Equal(y))
	})

	It("should reject invalid settings", func() {
		_, err := Simulate(context.Background(), 0, "keto_diet.csv", 1)

		Expect(err).To(HaveOccurred())
	})
})
