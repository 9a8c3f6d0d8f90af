package fba

import (
	"context"
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"

	"github.com/sarchlab/gutsim/metabolism"
)

const (
	simplexTolerance = 1e-9
	rankTolerance    = 1e-10
)

// Optimize maximises the objective subject to steady state and the reaction
// bounds.
//
// The problem is brought into standard form by shifting every flux by its
// lower bound, v = lb + x with x >= 0, and by turning each upper bound into
// an equality with a slack variable, x + s = ub - lb. Metabolite rows that are
// empty or linearly dependent on earlier rows are dropped, since the simplex
// solver requires a full row rank. Which rows those are only depends on the
// stoichiometry and is worked out once when the network is created.
func (n *Network) Optimize(ctx context.Context) (metabolism.Solution, error) {
	if err := ctx.Err(); err != nil {
		return metabolism.Solution{}, err
	}

	nr := len(n.Reactions)
	if nr == 0 {
		return metabolism.Solution{}, fmt.Errorf("model %s: no reactions", n.ID)
	}

	for _, r := range n.Reactions {
		if math.IsInf(r.LowerBound, 0) || math.IsInf(r.UpperBound, 0) {
			return metabolism.Solution{}, fmt.Errorf(
				"model %s: reaction %s has an infinite bound", n.ID, r.ID)
		}

		if r.LowerBound > r.UpperBound {
			return metabolism.Solution{}, fmt.Errorf("model %s: %w: reaction %s",
				n.ID, ErrInfeasible, r.ID)
		}
	}

	rows, rhs, err := n.steadyStateRows()
	if err != nil {
		return metabolism.Solution{}, err
	}

	numCols := 2 * nr
	numRows := len(rows) + nr
	a := mat.NewDense(numRows, numCols, nil)
	b := make([]float64, numRows)

	for i, row := range rows {
		for j, v := range row {
			a.Set(i, j, v)
		}
		b[i] = rhs[i]
	}

	for j, r := range n.Reactions {
		i := len(rows) + j
		a.Set(i, j, 1)
		a.Set(i, nr+j, 1)
		b[i] = r.UpperBound - r.LowerBound
	}

	for i := range b {
		if b[i] < 0 {
			b[i] = -b[i]
			for j := 0; j < numCols; j++ {
				a.Set(i, j, -a.At(i, j))
			}
		}
	}

	c := make([]float64, numCols)
	for id, coef := range n.Objective {
		c[n.index[id]] = -coef
	}

	_, x, err := lp.Simplex(c, a, b, simplexTolerance, nil)
	switch {
	case errors.Is(err, lp.ErrInfeasible):
		return metabolism.Solution{}, fmt.Errorf("model %s: %w", n.ID, ErrInfeasible)
	case errors.Is(err, lp.ErrUnbounded):
		return metabolism.Solution{}, fmt.Errorf("model %s: %w", n.ID, ErrUnbounded)
	case err != nil:
		return metabolism.Solution{}, fmt.Errorf("model %s: %w", n.ID, err)
	}

	sol := metabolism.Solution{Fluxes: make(map[string]float64, nr)}
	for j, r := range n.Reactions {
		sol.Fluxes[r.ID] = r.LowerBound + x[j]
	}

	for id, coef := range n.Objective {
		sol.ObjectiveValue += coef * sol.Fluxes[id]
	}

	return sol, nil
}

// steadyStateRows builds the rows S x = -S lb of the independent
// metabolites. The right-hand side of a dependent row is the same combination
// of the right-hand sides of the rows it depends on, so dropping it never
// changes the feasible set.
func (n *Network) steadyStateRows() ([][]float64, []float64, error) {
	if len(n.Metabolites) > 0 && n.independent == nil {
		return nil, nil, fmt.Errorf("model %s: not initialised", n.ID)
	}

	rows := make([][]float64, len(n.independent))
	rhs := make([]float64, len(n.independent))
	for k, i := range n.independent {
		rows[k] = n.stoichiometryRow(i)
		for j, v := range rows[k] {
			rhs[k] -= v * n.Reactions[j].LowerBound
		}
	}

	return rows, rhs, nil
}

// stoichiometryRow returns the coefficients of metabolite i in every
// reaction.
func (n *Network) stoichiometryRow(i int) []float64 {
	m := n.Metabolites[i]
	row := make([]float64, len(n.Reactions))
	for j, r := range n.Reactions {
		row[j] = r.Metabolites[m]
	}

	return row
}

// independentRows picks, in metabolite order, the rows of the stoichiometric
// matrix that are linearly independent of the rows picked before them. It
// reduces every row against the picked ones by Gaussian elimination, so the
// whole matrix is factorised once.
func (n *Network) independentRows() []int {
	var (
		basis   []*mat.VecDense
		pivots  []int
		picked  = []int{}
		numCols = len(n.Reactions)
	)

	for i := range n.Metabolites {
		v := mat.NewVecDense(numCols, n.stoichiometryRow(i))
		scale := mat.Norm(v, math.Inf(1))
		if scale == 0 {
			continue
		}

		for k, b := range basis {
			if f := v.AtVec(pivots[k]); f != 0 {
				v.AddScaledVec(v, -f, b)
			}
		}

		pivot, largest := 0, 0.0
		for j := 0; j < numCols; j++ {
			if a := math.Abs(v.AtVec(j)); a > largest {
				pivot, largest = j, a
			}
		}

		if largest <= rankTolerance*scale {
			continue
		}

		v.ScaleVec(1/v.AtVec(pivot), v)
		basis = append(basis, v)
		pivots = append(pivots, pivot)
		picked = append(picked, i)
	}

	return picked
}
