package simulation

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/rs/xid"

	"github.com/sarchlab/gutsim/config"
	"github.com/sarchlab/gutsim/datarecording"
	"github.com/sarchlab/gutsim/fba"
	"github.com/sarchlab/gutsim/monitoring"
	"github.com/sarchlab/gutsim/sampling"
)

// An Option changes the settings of a run started with Simulate.
type Option func(cfg *config.Config)

// WithModels sets the species model directory and the two host model files.
func WithModels(dir, firstHost, secondHost string) Option {
	return func(cfg *config.Config) {
		cfg.Models.Dir = dir
		cfg.Models.FirstHost = firstHost
		cfg.Models.SecondHost = secondHost
	}
}

// WithLibraryFile sets the microbial library.
func WithLibraryFile(path string) Option {
	return func(cfg *config.Config) {
		cfg.LibraryFile = path
	}
}

// WithOutput sets the output directory and the file name prefix.
func WithOutput(dir, prefix string) Option {
	return func(cfg *config.Config) {
		cfg.Output.Dir = dir
		cfg.Output.Prefix = prefix
	}
}

// Simulate runs a simulation for durationHours hours on the diet read from
// dietSource, with every random draw seeded by seed. Options start from the
// default settings.
func Simulate(
	ctx context.Context,
	durationHours int,
	dietSource string,
	seed uint64,
	opts ...Option,
) (*Result, error) {
	cfg := config.Default()
	for _, o := range opts {
		o(cfg)
	}

	cfg.DurationHours = durationHours
	cfg.DietFile = dietSource
	cfg.Seed = seed

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return Run(ctx, cfg)
}

// Result tells where the output of a run went.
type Result struct {
	ID        string
	OutputDir string
	Prefix    string

	// SQLiteFile is empty unless the SQLite recorder was on.
	SQLiteFile string

	// Published lists the object keys uploaded to S3.
	Published []string
}

// Run reads all inputs named by the configuration, runs the simulation and
// writes its output. The output directory is uploaded to S3 afterwards when
// a bucket is configured.
func Run(ctx context.Context, cfg *config.Config) (*Result, error) {
	b, res, err := prepare(ctx, cfg)
	if err != nil {
		return nil, err
	}

	s := b.Build()

	if m := s.Monitor(); m != nil {
		m.StartServer()
	}

	err = s.Simulate(ctx, cfg.DurationHours)
	err = errors.Join(err, s.Terminate())
	if err != nil {
		return res, err
	}

	if cfg.Publish.Bucket != "" {
		res.Published, err = publish(ctx, cfg.Publish, res.OutputDir)
		if err != nil {
			return res, err
		}
	}

	return res, nil
}

func prepare(ctx context.Context, cfg *config.Config) (Builder, *Result, error) {
	diet, err := sampling.ReadDietFile(cfg.DietFile)
	if err != nil {
		return Builder{}, nil, err
	}

	library, err := sampling.ReadLibraryFile(cfg.LibraryFile)
	if err != nil {
		return Builder{}, nil, err
	}

	firstHost, err := fba.ReadNetworkFile(cfg.Models.FirstHost)
	if err != nil {
		return Builder{}, nil, fmt.Errorf("host model: %w", err)
	}

	secondHost, err := fba.ReadNetworkFile(cfg.Models.SecondHost)
	if err != nil {
		return Builder{}, nil, fmt.Errorf("host model: %w", err)
	}

	res := &Result{
		ID:     xid.New().String(),
		Prefix: cfg.Output.Prefix,
	}
	if res.Prefix == "" {
		res.Prefix = time.Now().Format("2006-01-02_15-04-05") + "_" + diet.Name
	}
	res.OutputDir = filepath.Join(cfg.Output.Dir, res.Prefix)

	recorder, err := openRecorders(ctx, cfg, res, diet)
	if err != nil {
		return Builder{}, nil, err
	}

	b := MakeBuilder().
		WithID(res.ID).
		WithSeed(cfg.Seed).
		WithDiet(diet).
		WithDietVariability(cfg.DietVariability).
		WithLibrary(library).
		WithModelProvider(fba.NewCache(&fba.DirProvider{
			Dir:    cfg.Models.Dir,
			Suffix: cfg.Models.Suffix,
		})).
		WithHostModels(firstHost, secondHost).
		WithWorkers(cfg.Models.Workers).
		WithLoadTimeout(cfg.Models.LoadTimeout).
		WithRecorder(recorder)

	if logger := newLogger(cfg.Logging.Level); logger != nil {
		b = b.WithLogger(logger, cfg.Logging.Level == config.LevelDebug)
	}

	if cfg.Monitor.Enabled {
		m := monitoring.NewMonitor().WithPortNumber(cfg.Monitor.Port)
		if cfg.Monitor.OpenBrowser {
			m = m.WithBrowser()
		}
		b = b.WithMonitor(m)
	}

	return b, res, nil
}

func openRecorders(
	ctx context.Context,
	cfg *config.Config,
	res *Result,
	diet *sampling.Diet,
) (datarecording.Recorder, error) {
	csv, err := datarecording.NewCSVRecorder(res.OutputDir, res.Prefix)
	if err != nil {
		return nil, err
	}

	recorders := datarecording.MultiRecorder{csv}

	if cfg.Output.SQLite {
		db, err := datarecording.NewSQLiteRecorder(
			filepath.Join(res.OutputDir, res.Prefix))
		if err != nil {
			return nil, err
		}

		db.SetRunInfo("Run ID", res.ID)
		db.SetRunInfo("Diet", diet.Name)
		db.SetRunInfo("Seed", strconv.FormatUint(cfg.Seed, 10))
		db.SetRunInfo("Duration", strconv.Itoa(cfg.DurationHours))

		res.SQLiteFile = db.Filename()
		recorders = append(recorders, db)
	}

	if ch := cfg.Output.ClickHouse; ch.Addr != "" {
		db, err := datarecording.NewClickHouseRecorder(ctx, res.ID,
			datarecording.ClickHouseOptions{
				Addr:     ch.Addr,
				Database: ch.Database,
				Username: ch.Username,
				Password: ch.Password,
				Table:    ch.Table,
			})
		if err != nil {
			return nil, errors.Join(err, recorders.Close())
		}

		recorders = append(recorders, db)
	}

	return recorders, nil
}

func publish(
	ctx context.Context,
	cfg config.PublishConfig,
	dir string,
) ([]string, error) {
	p, err := datarecording.NewS3Publisher(ctx, datarecording.S3Options{
		Bucket:    cfg.Bucket,
		Prefix:    cfg.Prefix,
		Region:    cfg.Region,
		Endpoint:  cfg.Endpoint,
		PathStyle: cfg.PathStyle,
	})
	if err != nil {
		return nil, err
	}

	return p.PublishDir(ctx, dir)
}

func newLogger(level string) *log.Logger {
	if level == config.LevelQuiet {
		return nil
	}

	return log.New(os.Stderr, "gutsim ", log.LstdFlags)
}
