package datarecording

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/tebeka/atexit"
)

// ClickHouseOptions configures a ClickHouseRecorder.
type ClickHouseOptions struct {
	Addr      string
	Database  string
	Username  string
	Password  string
	Table     string
	BatchSize int
}

type batch interface {
	Append(v ...any) error
	Send() error
}

// ClickHouseRecorder stores snapshots in a ClickHouse table. Runs are told
// apart by a run ID column.
type ClickHouseRecorder struct {
	exec    func(ctx context.Context, query string) error
	prepare func(ctx context.Context, query string) (batch, error)
	close   func() error

	lock      sync.Mutex
	runID     string
	table     string
	batchSize int
	entries   []snapshotEntry
}

// NewClickHouseRecorder connects to a ClickHouse server and makes sure the
// snapshot table exists.
func NewClickHouseRecorder(
	ctx context.Context,
	runID string,
	opt ClickHouseOptions,
) (*ClickHouseRecorder, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{opt.Addr},
		Auth: clickhouse.Auth{
			Database: opt.Database,
			Username: opt.Username,
			Password: opt.Password,
		},
		Settings: clickhouse.Settings{
			"max_execution_time": 60,
		},
		DialTimeout:      30 * time.Second,
		MaxOpenConns:     5,
		MaxIdleConns:     5,
		ConnMaxLifetime:  time.Hour,
		ConnOpenStrategy: clickhouse.ConnOpenInOrder,
	})
	if err != nil {
		return nil, fmt.Errorf("connecting to ClickHouse: %w", err)
	}

	if err := conn.Ping(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("pinging ClickHouse: %w", err)
	}

	r := newClickHouseRecorder(runID, opt,
		func(ctx context.Context, query string) error {
			return conn.Exec(ctx, query)
		},
		func(ctx context.Context, query string) (batch, error) {
			return conn.PrepareBatch(ctx, query)
		},
		conn.Close,
	)

	if err := r.createTable(ctx); err != nil {
		conn.Close()
		return nil, err
	}

	atexit.Register(func() { _ = r.Flush() })

	return r, nil
}

func newClickHouseRecorder(
	runID string,
	opt ClickHouseOptions,
	exec func(ctx context.Context, query string) error,
	prepare func(ctx context.Context, query string) (batch, error),
	closeFn func() error,
) *ClickHouseRecorder {
	table := opt.Table
	if table == "" {
		table = SnapshotTable
	}

	batchSize := opt.BatchSize
	if batchSize <= 0 {
		batchSize = 100000
	}

	return &ClickHouseRecorder{
		exec:      exec,
		prepare:   prepare,
		close:     closeFn,
		runID:     runID,
		table:     table,
		batchSize: batchSize,
	}
}

func (r *ClickHouseRecorder) createTable(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			RunID String,
			Quantity LowCardinality(String),
			Compartment LowCardinality(String),
			Hour Int64,
			Key String,
			Value Float64
		) ENGINE = MergeTree()
		ORDER BY (RunID, Compartment, Quantity, Hour, Key)
	`, r.table)

	if err := r.exec(ctx, query); err != nil {
		return fmt.Errorf("creating table %s: %w", r.table, err)
	}

	return nil
}

// Record buffers the column of an hour.
func (r *ClickHouseRecorder) Record(
	compartment string,
	q Quantity,
	hour int,
	values map[string]float64,
) error {
	r.lock.Lock()
	for _, k := range sortedKeys(values) {
		r.entries = append(r.entries, snapshotEntry{
			Quantity:    string(q),
			Compartment: compartment,
			Hour:        hour,
			Key:         k,
			Value:       values[k],
		})
	}
	full := len(r.entries) >= r.batchSize
	r.lock.Unlock()

	if full {
		return r.Flush()
	}

	return nil
}

// RecordPool records a metabolite pool.
func (r *ClickHouseRecorder) RecordPool(
	compartment string,
	hour int,
	pool map[string]float64,
) error {
	return r.Record(compartment, Metabolome, hour, pool)
}

// RecordPopulation records a population.
func (r *ClickHouseRecorder) RecordPopulation(
	compartment string,
	hour int,
	population map[string]int64,
) error {
	return r.Record(compartment, Microbiome, hour, populationValues(population))
}

// RecordGrowthRate records a community growth rate.
func (r *ClickHouseRecorder) RecordGrowthRate(
	compartment string,
	hour int,
	rate float64,
) error {
	return r.Record(compartment, Growth, hour, growthValues(rate))
}

// Flush sends the buffered entries as one batch.
func (r *ClickHouseRecorder) Flush() error {
	r.lock.Lock()
	defer r.lock.Unlock()

	if len(r.entries) == 0 {
		return nil
	}

	ctx := context.Background()
	b, err := r.prepare(ctx, "INSERT INTO "+r.table)
	if err != nil {
		return fmt.Errorf("preparing batch for %s: %w", r.table, err)
	}

	for _, e := range r.entries {
		err := b.Append(r.runID, e.Quantity, e.Compartment,
			int64(e.Hour), e.Key, e.Value)
		if err != nil {
			return fmt.Errorf("appending to batch: %w", err)
		}
	}

	if err := b.Send(); err != nil {
		return fmt.Errorf("sending batch: %w", err)
	}

	r.entries = r.entries[:0]

	return nil
}

// Close flushes and closes the connection.
func (r *ClickHouseRecorder) Close() error {
	return errors.Join(r.Flush(), r.close())
}
