package datarecording

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fatih/structs"

	// Need to use SQLite connections.
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/xid"
	"github.com/tebeka/atexit"
)

// Names of the SQLite tables.
const (
	SnapshotTable = "snapshots"
	RunInfoTable  = "run_info"
)

const timeFormat = "2006-01-02 15:04:05.000000000"

type snapshotEntry struct {
	Quantity    string
	Compartment string
	Hour        int
	Key         string
	Value       float64
}

type runInfoEntry struct {
	Property string
	Value    string
}

// SQLiteRecorder stores all snapshots in one long table of a SQLite
// database. Entries are buffered and written in batches.
type SQLiteRecorder struct {
	*sql.DB

	lock      sync.Mutex
	filename  string
	batchSize int
	snapshots []snapshotEntry
	runInfo   []runInfoEntry
	closed    bool
}

// NewSQLiteRecorder creates a new database file. Without a path, a unique
// name is generated. The file must not exist yet.
func NewSQLiteRecorder(path string) (*SQLiteRecorder, error) {
	if path == "" {
		path = "gutsim_" + xid.New().String()
	}

	if !strings.HasSuffix(path, ".sqlite3") {
		path += ".sqlite3"
	}

	if _, err := os.Stat(path); err == nil {
		return nil, fmt.Errorf("file %s already exists", path)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	r := &SQLiteRecorder{
		DB:        db,
		filename:  path,
		batchSize: 100000,
	}

	for name, sample := range map[string]any{
		SnapshotTable: snapshotEntry{},
		RunInfoTable:  runInfoEntry{},
	} {
		if err := r.createTable(name, sample); err != nil {
			db.Close()
			return nil, err
		}
	}

	r.recordStart()

	atexit.Register(func() { _ = r.Flush() })

	return r, nil
}

// Filename returns the database file.
func (r *SQLiteRecorder) Filename() string {
	return r.filename
}

func (r *SQLiteRecorder) createTable(name string, sample any) error {
	columns := structs.Names(sample)
	for i := range columns {
		columns[i] = `"` + columns[i] + `"`
	}

	query := `CREATE TABLE ` + name +
		` (` + "\n\t" + strings.Join(columns, ", \n\t") + "\n" + `);`

	if _, err := r.Exec(query); err != nil {
		return fmt.Errorf("creating table %s: %w", name, err)
	}

	return nil
}

func (r *SQLiteRecorder) recordStart() {
	r.SetRunInfo("Start Time", time.Now().Format(timeFormat))
	r.SetRunInfo("Command", strings.Join(os.Args, " "))

	if ex, err := os.Executable(); err == nil {
		r.SetRunInfo("Working Directory", filepath.Dir(ex))
	}
}

// SetRunInfo records a property of the run, such as the seed or the diet.
func (r *SQLiteRecorder) SetRunInfo(property, value string) {
	r.lock.Lock()
	defer r.lock.Unlock()

	r.runInfo = append(r.runInfo, runInfoEntry{Property: property, Value: value})
}

// Record buffers the column of an hour.
func (r *SQLiteRecorder) Record(
	compartment string,
	q Quantity,
	hour int,
	values map[string]float64,
) error {
	r.lock.Lock()

	if r.closed {
		r.lock.Unlock()
		return errors.New("recorder is closed")
	}

	for _, k := range sortedKeys(values) {
		r.snapshots = append(r.snapshots, snapshotEntry{
			Quantity:    string(q),
			Compartment: compartment,
			Hour:        hour,
			Key:         k,
			Value:       values[k],
		})
	}

	full := len(r.snapshots) >= r.batchSize
	r.lock.Unlock()

	if full {
		return r.Flush()
	}

	return nil
}

// RecordPool records a metabolite pool.
func (r *SQLiteRecorder) RecordPool(
	compartment string,
	hour int,
	pool map[string]float64,
) error {
	return r.Record(compartment, Metabolome, hour, pool)
}

// RecordPopulation records a population.
func (r *SQLiteRecorder) RecordPopulation(
	compartment string,
	hour int,
	population map[string]int64,
) error {
	return r.Record(compartment, Microbiome, hour, populationValues(population))
}

// RecordGrowthRate records a community growth rate.
func (r *SQLiteRecorder) RecordGrowthRate(
	compartment string,
	hour int,
	rate float64,
) error {
	return r.Record(compartment, Growth, hour, growthValues(rate))
}

// Flush writes all buffered entries in one transaction.
func (r *SQLiteRecorder) Flush() error {
	r.lock.Lock()
	defer r.lock.Unlock()

	if r.closed || (len(r.snapshots) == 0 && len(r.runInfo) == 0) {
		return nil
	}

	tx, err := r.Begin()
	if err != nil {
		return err
	}

	if err := r.insertAll(tx); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	r.snapshots = nil
	r.runInfo = nil

	return nil
}

func (r *SQLiteRecorder) insertAll(tx *sql.Tx) error {
	snapshots := make([]any, len(r.snapshots))
	for i, e := range r.snapshots {
		snapshots[i] = e
	}

	if err := insert(tx, SnapshotTable, snapshotEntry{}, snapshots); err != nil {
		return err
	}

	runInfo := make([]any, len(r.runInfo))
	for i, e := range r.runInfo {
		runInfo[i] = e
	}

	return insert(tx, RunInfoTable, runInfoEntry{}, runInfo)
}

func insert(tx *sql.Tx, table string, sample any, entries []any) error {
	if len(entries) == 0 {
		return nil
	}

	placeholders := structs.Names(sample)
	for i := range placeholders {
		placeholders[i] = "?"
	}

	stmt, err := tx.Prepare("INSERT INTO " + table +
		" VALUES (" + strings.Join(placeholders, ", ") + ")")
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, e := range entries {
		if _, err := stmt.Exec(structs.Values(e)...); err != nil {
			return fmt.Errorf("inserting into %s: %w", table, err)
		}
	}

	return nil
}

// Close records the end time, flushes and closes the database.
func (r *SQLiteRecorder) Close() error {
	r.SetRunInfo("End Time", time.Now().Format(timeFormat))

	err := r.Flush()

	r.lock.Lock()
	defer r.lock.Unlock()

	if r.closed {
		return err
	}
	r.closed = true

	return errors.Join(err, r.DB.Close())
}
