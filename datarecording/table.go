package datarecording

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
)

// A Table holds values indexed by a row key and an hour. Not every cell has
// to have a value.
type Table struct {
	cells   map[string]map[int]float64
	columns map[int]bool
}

// NewTable creates an empty table.
func NewTable() *Table {
	return &Table{
		cells:   make(map[string]map[int]float64),
		columns: make(map[int]bool),
	}
}

// Set sets one cell.
func (t *Table) Set(row string, hour int, v float64) {
	r, ok := t.cells[row]
	if !ok {
		r = make(map[int]float64)
		t.cells[row] = r
	}

	r[hour] = v
	t.columns[hour] = true
}

// Get returns one cell.
func (t *Table) Get(row string, hour int) (float64, bool) {
	v, ok := t.cells[row][hour]
	return v, ok
}

// SetColumn replaces the column of an hour.
func (t *Table) SetColumn(hour int, values map[string]float64) {
	for k, r := range t.cells {
		delete(r, hour)
		if len(r) == 0 {
			delete(t.cells, k)
		}
	}

	t.columns[hour] = true
	for k, v := range values {
		t.Set(k, hour, v)
	}
}

// Column returns the values of an hour.
func (t *Table) Column(hour int) map[string]float64 {
	col := make(map[string]float64)
	for k, r := range t.cells {
		if v, ok := r[hour]; ok {
			col[k] = v
		}
	}

	return col
}

// Join adds all the cells of another table. Cells present in both tables take
// the value of the other table.
func (t *Table) Join(other *Table) {
	for hour := range other.columns {
		t.columns[hour] = true
	}

	for k, r := range other.cells {
		for hour, v := range r {
			t.Set(k, hour, v)
		}
	}
}

// Rows returns the row keys in ascending order.
func (t *Table) Rows() []string {
	rows := make([]string, 0, len(t.cells))
	for k := range t.cells {
		rows = append(rows, k)
	}
	sort.Strings(rows)

	return rows
}

// Columns returns the hours in ascending order.
func (t *Table) Columns() []int {
	cols := make([]int, 0, len(t.columns))
	for h := range t.columns {
		cols = append(cols, h)
	}
	sort.Ints(cols)

	return cols
}

// WriteCSV writes the table with one column per hour. Missing cells are left
// empty and values are written with the fewest digits that read back to the
// same number.
func (t *Table) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	cols := t.Columns()

	header := make([]string, 0, len(cols)+1)
	header = append(header, "")
	for _, h := range cols {
		header = append(header, strconv.Itoa(h))
	}

	if err := cw.Write(header); err != nil {
		return err
	}

	for _, k := range t.Rows() {
		record := make([]string, 0, len(cols)+1)
		record = append(record, k)

		for _, h := range cols {
			v, ok := t.cells[k][h]
			if !ok {
				record = append(record, "")
				continue
			}

			record = append(record, strconv.FormatFloat(v, 'g', -1, 64))
		}

		if err := cw.Write(record); err != nil {
			return err
		}
	}

	cw.Flush()

	return cw.Error()
}

// ReadCSV reads a table written by WriteCSV.
func ReadCSV(r io.Reader) (*Table, error) {
	records, err := csv.NewReader(r).ReadAll()
	if err != nil {
		return nil, err
	}

	t := NewTable()
	if len(records) == 0 {
		return t, nil
	}

	header := records[0]
	hours := make([]int, len(header))
	for i := 1; i < len(header); i++ {
		h, err := strconv.Atoi(header[i])
		if err != nil {
			return nil, fmt.Errorf("column %d: bad hour %q", i, header[i])
		}

		hours[i] = h
		t.columns[h] = true
	}

	for line, rec := range records[1:] {
		for i := 1; i < len(rec); i++ {
			if rec[i] == "" {
				continue
			}

			v, err := strconv.ParseFloat(rec[i], 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", line+2, err)
			}

			t.Set(rec[0], hours[i], v)
		}
	}

	return t, nil
}
