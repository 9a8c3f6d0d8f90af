package datarecording

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// CSVRecorder keeps one CSV file per compartment and quantity. Each record
// rewrites the file with the new hour joined to what the file held before.
type CSVRecorder struct {
	dir    string
	prefix string

	lock   sync.Mutex
	tables map[string]*Table
}

// NewCSVRecorder creates a recorder that writes into dir. File names start
// with the prefix, if any.
func NewCSVRecorder(dir, prefix string) (*CSVRecorder, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	return &CSVRecorder{
		dir:    dir,
		prefix: prefix,
		tables: make(map[string]*Table),
	}, nil
}

// Dir returns the output directory.
func (r *CSVRecorder) Dir() string {
	return r.dir
}

// Path returns the file of a compartment and quantity.
func (r *CSVRecorder) Path(compartment string, q Quantity) string {
	name := compartment + "_" + string(q) + ".csv"
	if r.prefix != "" {
		name = r.prefix + "_" + name
	}

	return filepath.Join(r.dir, name)
}

// Record sets the column of an hour and rewrites the file.
func (r *CSVRecorder) Record(
	compartment string,
	q Quantity,
	hour int,
	values map[string]float64,
) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	path := r.Path(compartment, q)

	t, err := r.table(path)
	if err != nil {
		return err
	}

	t.SetColumn(hour, values)

	return writeFileAtomic(path, t)
}

// RecordPool records a metabolite pool.
func (r *CSVRecorder) RecordPool(
	compartment string,
	hour int,
	pool map[string]float64,
) error {
	return r.Record(compartment, Metabolome, hour, pool)
}

// RecordPopulation records a population.
func (r *CSVRecorder) RecordPopulation(
	compartment string,
	hour int,
	population map[string]int64,
) error {
	return r.Record(compartment, Microbiome, hour, populationValues(population))
}

// RecordGrowthRate records a community growth rate.
func (r *CSVRecorder) RecordGrowthRate(
	compartment string,
	hour int,
	rate float64,
) error {
	return r.Record(compartment, Growth, hour, growthValues(rate))
}

// Flush does nothing, since every record is written immediately.
func (r *CSVRecorder) Flush() error {
	return nil
}

// Close forgets the cached tables.
func (r *CSVRecorder) Close() error {
	r.lock.Lock()
	defer r.lock.Unlock()

	r.tables = make(map[string]*Table)

	return nil
}

// table returns the cached table of a file, reading the file the first time.
func (r *CSVRecorder) table(path string) (*Table, error) {
	if t, ok := r.tables[path]; ok {
		return t, nil
	}

	t, err := ReadCSVFile(path)
	switch {
	case os.IsNotExist(err):
		t = NewTable()
	case err != nil:
		return nil, err
	}

	r.tables[path] = t

	return t, nil
}

// ReadCSVFile reads a table from a file.
func ReadCSVFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	t, err := ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return t, nil
}

func writeFileAtomic(path string, t *Table) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*")
	if err != nil {
		return err
	}

	if err := t.WriteCSV(tmp); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}

	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}

	return os.Rename(tmp.Name(), path)
}
