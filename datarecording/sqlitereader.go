package datarecording

import (
	"context"
	"database/sql"
	"fmt"
	"os"
)

// SQLiteReader reads back what a SQLiteRecorder wrote.
type SQLiteReader struct {
	*sql.DB
}

// OpenSQLiteReader opens an existing database file.
func OpenSQLiteReader(path string) (*SQLiteReader, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	return &SQLiteReader{DB: db}, nil
}

// Table returns the time series of a compartment and quantity.
func (r *SQLiteReader) Table(
	ctx context.Context,
	compartment string,
	q Quantity,
) (*Table, error) {
	rows, err := r.QueryContext(ctx,
		`SELECT "Hour", "Key", "Value" FROM `+SnapshotTable+
			` WHERE "Compartment" = ? AND "Quantity" = ?`,
		compartment, string(q))
	if err != nil {
		return nil, fmt.Errorf("query %s %s: %w", compartment, q, err)
	}
	defer rows.Close()

	t := NewTable()
	for rows.Next() {
		var (
			hour  int
			key   string
			value float64
		)

		if err := rows.Scan(&hour, &key, &value); err != nil {
			return nil, err
		}

		t.Set(key, hour, value)
	}

	return t, rows.Err()
}

// Compartments lists the compartments that have records.
func (r *SQLiteReader) Compartments(ctx context.Context) ([]string, error) {
	rows, err := r.QueryContext(ctx,
		`SELECT DISTINCT "Compartment" FROM `+SnapshotTable+
			` ORDER BY "Compartment"`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}

		names = append(names, name)
	}

	return names, rows.Err()
}

// RunInfo returns the properties of the run. Later values of a property
// replace earlier ones.
func (r *SQLiteReader) RunInfo(ctx context.Context) (map[string]string, error) {
	rows, err := r.QueryContext(ctx,
		`SELECT "Property", "Value" FROM `+RunInfoTable+` ORDER BY rowid`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	info := make(map[string]string)
	for rows.Next() {
		var property, value string
		if err := rows.Scan(&property, &value); err != nil {
			return nil, err
		}

		info[property] = value
	}

	return info, rows.Err()
}
