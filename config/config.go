// Package config loads the settings of a simulation run. Settings come from
// defaults, an optional YAML file, a .env file and GUTSIM_* environment
// variables, in that order.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultEnvFile is the dotenv file read by Load.
const DefaultEnvFile = ".env"

// Config holds all settings of a simulation run.
type Config struct {
	// DurationHours is the simulated time span.
	DurationHours int `yaml:"duration_hours"`

	// Seed seeds every random draw of the run.
	Seed uint64 `yaml:"seed"`

	// DietFile is the diet CSV. The part of its base name before the first
	// underscore names the diet.
	DietFile        string  `yaml:"diet_file"`
	DietVariability float64 `yaml:"diet_variability"`

	// LibraryFile is the JSON file of representative strains per phylum.
	LibraryFile string `yaml:"library_file"`

	Models  ModelsConfig  `yaml:"models"`
	Output  OutputConfig  `yaml:"output"`
	Monitor MonitorConfig `yaml:"monitor"`
	Publish PublishConfig `yaml:"publish"`
	Logging LoggingConfig `yaml:"logging"`
}

// ModelsConfig locates the metabolic models.
type ModelsConfig struct {
	// Dir holds one model file per species, named after the species.
	Dir    string `yaml:"dir"`
	Suffix string `yaml:"suffix"`

	// FirstHost and SecondHost are the host model files of the two
	// compartments.
	FirstHost  string `yaml:"first_host"`
	SecondHost string `yaml:"second_host"`

	LoadTimeout time.Duration `yaml:"load_timeout"`

	// Workers bounds the species optimised at the same time. Zero uses one
	// worker per CPU.
	Workers int `yaml:"workers"`
}

// OutputConfig says where results go.
type OutputConfig struct {
	Dir string `yaml:"dir"`

	// Prefix is prepended to the CSV file names. Empty uses the run start
	// time and the diet name.
	Prefix string `yaml:"prefix"`

	SQLite     bool             `yaml:"sqlite"`
	ClickHouse ClickHouseConfig `yaml:"clickhouse"`
}

// ClickHouseConfig enables the ClickHouse recorder when Addr is set.
type ClickHouseConfig struct {
	Addr     string `yaml:"addr"`
	Database string `yaml:"database"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Table    string `yaml:"table"`
}

// MonitorConfig controls the live monitoring server.
type MonitorConfig struct {
	Enabled     bool `yaml:"enabled"`
	Port        int  `yaml:"port"`
	OpenBrowser bool `yaml:"open_browser"`
}

// PublishConfig uploads the output directory to S3 after the run when Bucket
// is set.
type PublishConfig struct {
	Bucket    string `yaml:"bucket"`
	Prefix    string `yaml:"prefix"`
	Region    string `yaml:"region"`
	Endpoint  string `yaml:"endpoint"`
	PathStyle bool   `yaml:"path_style"`
}

// LoggingConfig sets the verbosity: "quiet", "info" or "debug".
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// The log levels.
const (
	LevelQuiet = "quiet"
	LevelInfo  = "info"
	LevelDebug = "debug"
)

// Default returns the settings of a one-year keto run.
func Default() *Config {
	return &Config{
		DurationHours:   24 * 365,
		Seed:            5240,
		DietFile:        "keto_diet.csv",
		DietVariability: 0.1,
		LibraryFile:     "representative_strains.json",
		Models: ModelsConfig{
			Dir:         "models",
			Suffix:      ".yaml",
			FirstHost:   "models/host_small_intestine.yaml",
			SecondHost:  "models/host_large_intestine.yaml",
			LoadTimeout: 5 * time.Second,
		},
		Output: OutputConfig{
			Dir: "results",
		},
		Logging: LoggingConfig{
			Level: LevelInfo,
		},
	}
}

// Load reads the settings from the YAML file at path, if path is not empty,
// then applies the default .env file and the environment. The result is
// validated.
func Load(path string) (*Config, error) {
	return LoadWithEnvFile(path, DefaultEnvFile)
}

// LoadWithEnvFile is Load with a custom dotenv file. A missing dotenv file is
// not an error.
func LoadWithEnvFile(path, envFile string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.readFile(path); err != nil {
			return nil, err
		}
	}

	if envFile != "" {
		err := godotenv.Load(envFile)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("reading %s: %w", envFile, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) readFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing config file %s: %w", path, err)
	}

	c.Output.ClickHouse.Password = os.ExpandEnv(c.Output.ClickHouse.Password)

	return nil
}

// Validate checks that the settings can run a simulation.
func (c *Config) Validate() error {
	var errs []error

	if c.DurationHours <= 0 {
		errs = append(errs, fmt.Errorf(
			"duration_hours must be positive, got %d", c.DurationHours))
	}

	if c.DietFile == "" {
		errs = append(errs, errors.New("diet_file is required"))
	}

	if c.LibraryFile == "" {
		errs = append(errs, errors.New("library_file is required"))
	}

	if c.DietVariability < 0 || c.DietVariability >= 1 {
		errs = append(errs, fmt.Errorf(
			"diet_variability must be in [0, 1), got %g", c.DietVariability))
	}

	if c.Models.Dir == "" {
		errs = append(errs, errors.New("models.dir is required"))
	}

	if c.Models.FirstHost == "" || c.Models.SecondHost == "" {
		errs = append(errs, errors.New("both host models are required"))
	}

	if c.Models.Workers < 0 {
		errs = append(errs, fmt.Errorf(
			"models.workers must not be negative, got %d", c.Models.Workers))
	}

	if c.Models.LoadTimeout < 0 {
		errs = append(errs, fmt.Errorf(
			"models.load_timeout must not be negative, got %s",
			c.Models.LoadTimeout))
	}

	if c.Output.Dir == "" {
		errs = append(errs, errors.New("output.dir is required"))
	}

	if p := c.Monitor.Port; p != 0 && (p <= 1000 || p > 65535) {
		errs = append(errs, fmt.Errorf(
			"monitor.port must be 0 or in (1000, 65535], got %d", p))
	}

	switch c.Logging.Level {
	case LevelQuiet, LevelInfo, LevelDebug:
	default:
		errs = append(errs, fmt.Errorf(
			"invalid log level %q (valid: quiet, info, debug)", c.Logging.Level))
	}

	return errors.Join(errs...)
}

type envVar struct {
	name  string
	apply func(c *Config, v string) error
}

var envVars = []envVar{
	{"GUTSIM_DURATION", func(c *Config, v string) error {
		return setInt(&c.DurationHours, v)
	}},
	{"GUTSIM_SEED", func(c *Config, v string) (err error) {
		c.Seed, err = strconv.ParseUint(v, 10, 64)
		return err
	}},
	{"GUTSIM_DIET", setString(func(c *Config) *string { return &c.DietFile })},
	{"GUTSIM_DIET_VARIABILITY", func(c *Config, v string) (err error) {
		c.DietVariability, err = strconv.ParseFloat(v, 64)
		return err
	}},
	{"GUTSIM_LIBRARY", setString(func(c *Config) *string { return &c.LibraryFile })},
	{"GUTSIM_MODELS_DIR", setString(func(c *Config) *string { return &c.Models.Dir })},
	{"GUTSIM_MODELS_SUFFIX", setString(func(c *Config) *string { return &c.Models.Suffix })},
	{"GUTSIM_FIRST_HOST", setString(func(c *Config) *string { return &c.Models.FirstHost })},
	{"GUTSIM_SECOND_HOST", setString(func(c *Config) *string { return &c.Models.SecondHost })},
	{"GUTSIM_LOAD_TIMEOUT", func(c *Config, v string) (err error) {
		c.Models.LoadTimeout, err = time.ParseDuration(v)
		return err
	}},
	{"GUTSIM_WORKERS", func(c *Config, v string) error {
		return setInt(&c.Models.Workers, v)
	}},
	{"GUTSIM_OUTPUT_DIR", setString(func(c *Config) *string { return &c.Output.Dir })},
	{"GUTSIM_OUTPUT_PREFIX", setString(func(c *Config) *string { return &c.Output.Prefix })},
	{"GUTSIM_SQLITE", func(c *Config, v string) error {
		return setBool(&c.Output.SQLite, v)
	}},
	{"GUTSIM_CLICKHOUSE_ADDR", setString(func(c *Config) *string { return &c.Output.ClickHouse.Addr })},
	{"GUTSIM_CLICKHOUSE_USER", setString(func(c *Config) *string { return &c.Output.ClickHouse.Username })},
	{"GUTSIM_CLICKHOUSE_PASSWORD", setString(func(c *Config) *string { return &c.Output.ClickHouse.Password })},
	{"GUTSIM_MONITOR", func(c *Config, v string) error {
		return setBool(&c.Monitor.Enabled, v)
	}},
	{"GUTSIM_MONITOR_PORT", func(c *Config, v string) error {
		return setInt(&c.Monitor.Port, v)
	}},
	{"GUTSIM_PUBLISH_BUCKET", setString(func(c *Config) *string { return &c.Publish.Bucket })},
	{"GUTSIM_PUBLISH_PREFIX", setString(func(c *Config) *string { return &c.Publish.Prefix })},
	{"GUTSIM_PUBLISH_ENDPOINT", setString(func(c *Config) *string { return &c.Publish.Endpoint })},
	{"GUTSIM_LOG_LEVEL", setString(func(c *Config) *string { return &c.Logging.Level })},
}

func (c *Config) applyEnv() error {
	for _, e := range envVars {
		v, ok := os.LookupEnv(e.name)
		if !ok || v == "" {
			continue
		}

		if err := e.apply(c, v); err != nil {
			return fmt.Errorf("environment variable %s: %w", e.name, err)
		}
	}

	return nil
}

func setString(field func(c *Config) *string) func(c *Config, v string) error {
	return func(c *Config, v string) error {
		*field(c) = v
		return nil
	}
}

func setInt(dst *int, v string) error {
	n, err := strconv.Atoi(v)
	if err != nil {
		return err
	}

	*dst = n

	return nil
}

func setBool(dst *bool, v string) error {
	b, err := strconv.ParseBool(v)
	if err != nil {
		return err
	}

	*dst = b

	return nil
}
