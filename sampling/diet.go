// Package sampling draws the external inputs of a simulation: the diet, the
// swallowed gases and the bacteria that arrive with the food.
package sampling

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/sarchlab/gutsim/metabolism"
)

// Column names of a diet file.
const (
	DietIDColumn     = "Metabolite ID"
	DietAmountColumn = "Amount (mmol)"
)

// DefaultVariability is the default relative variation of diet amounts.
const DefaultVariability = 0.1

// ErrBadDiet is returned for diet files that cannot be used.
var ErrBadDiet = errors.New("bad diet")

// DietRow is a nominal amount of one metabolite in a meal.
type DietRow struct {
	Metabolite string
	Amount     float64
}

// A Diet is a list of nominal metabolite amounts.
type Diet struct {
	Name string
	Rows []DietRow
}

// ReadDietFile reads a diet from a CSV file. The diet is named after the part
// of the file name before the first underscore, so "keto_diet.csv" becomes
// "keto".
func ReadDietFile(path string) (*Diet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	d, err := ReadDiet(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	d.Name = dietName(path)

	return d, nil
}

func dietName(path string) string {
	base := path
	if i := strings.LastIndexAny(base, `/\`); i >= 0 {
		base = base[i+1:]
	}

	name, _, _ := strings.Cut(base, "_")
	name = strings.TrimSuffix(name, ".csv")

	return name
}

// ReadDiet reads a diet in CSV form. The header must contain the metabolite
// ID and amount columns; other columns are ignored.
func ReadDiet(r io.Reader) (*Diet, error) {
	records, err := csv.NewReader(r).ReadAll()
	if err != nil {
		return nil, err
	}

	if len(records) == 0 {
		return nil, fmt.Errorf("%w: empty file", ErrBadDiet)
	}

	idCol, amountCol := -1, -1
	for i, h := range records[0] {
		switch strings.TrimSpace(h) {
		case DietIDColumn:
			idCol = i
		case DietAmountColumn:
			amountCol = i
		}
	}

	if idCol < 0 || amountCol < 0 {
		return nil, fmt.Errorf("%w: missing %q or %q column",
			ErrBadDiet, DietIDColumn, DietAmountColumn)
	}

	d := &Diet{}
	for line, rec := range records[1:] {
		amount, err := strconv.ParseFloat(strings.TrimSpace(rec[amountCol]), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrBadDiet, line+2, err)
		}

		d.Rows = append(d.Rows, DietRow{
			Metabolite: strings.TrimSpace(rec[idCol]),
			Amount:     amount,
		})
	}

	return d, nil
}

// Sample perturbs every nominal amount by a factor drawn uniformly from
// [1-variability, 1+variability]. If a metabolite is listed more than once the
// last row wins.
func (d *Diet) Sample(rng *rand.Rand, variability float64) metabolism.Pool {
	factor := distuv.Uniform{
		Min: 1 - variability,
		Max: 1 + variability,
		Src: rng,
	}

	pool := make(metabolism.Pool, len(d.Rows))
	for _, row := range d.Rows {
		pool[row.Metabolite] = row.Amount * factor.Rand()
	}

	return pool
}
