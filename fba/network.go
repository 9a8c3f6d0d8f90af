// Package fba provides flux-balance models that can be optimised with a
// linear program.
package fba

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/sarchlab/gutsim/metabolism"
)

// DefaultBound is the magnitude of the bounds of reactions that do not
// declare their own.
const DefaultBound = 1000.0

var (
	// ErrInfeasible is returned when no flux distribution satisfies the
	// bounds and the steady-state constraints.
	ErrInfeasible = errors.New("model is infeasible")

	// ErrUnbounded is returned when the objective can grow without limit.
	ErrUnbounded = errors.New("model is unbounded")

	// ErrUnknownReaction is returned when a reaction ID is not in the model.
	ErrUnknownReaction = errors.New("unknown reaction")
)

// A Reaction converts metabolites into each other. Negative coefficients are
// consumed, positive ones are produced.
type Reaction struct {
	ID          string
	Metabolites map[string]float64
	LowerBound  float64
	UpperBound  float64

	// Exchange marks a reaction that moves a metabolite across the boundary
	// of the model.
	Exchange bool
}

// IsExchange tells whether the reaction exchanges a single metabolite with
// the environment. Reactions are exchanges if they are flagged or if their ID
// starts with "EX_" and they involve exactly one metabolite.
func (r Reaction) IsExchange() bool {
	if len(r.Metabolites) != 1 {
		return false
	}

	return r.Exchange || strings.HasPrefix(r.ID, "EX_")
}

func (r Reaction) clone() Reaction {
	c := r
	c.Metabolites = make(map[string]float64, len(r.Metabolites))
	for k, v := range r.Metabolites {
		c.Metabolites[k] = v
	}

	return c
}

// A Network is a stoichiometric model that maximises a linear objective over
// its reaction fluxes. Only bounds may change after the network is created.
type Network struct {
	ID          string
	Metabolites []string
	Reactions   []Reaction
	Objective   map[string]float64

	index map[string]int

	// independent lists the metabolites whose steady-state rows are linearly
	// independent. Clones share it.
	independent []int
}

// NewNetwork creates a network from reactions and objective coefficients. The
// metabolite list is collected from the reactions.
func NewNetwork(
	id string,
	reactions []Reaction,
	objective map[string]float64,
) (*Network, error) {
	n := &Network{
		ID:        id,
		Reactions: reactions,
		Objective: objective,
	}

	if err := n.init(); err != nil {
		return nil, err
	}

	return n, nil
}

func (n *Network) init() error {
	n.index = make(map[string]int, len(n.Reactions))
	seen := make(map[string]bool)

	for i, r := range n.Reactions {
		if r.ID == "" {
			return fmt.Errorf("model %s: reaction %d has no ID", n.ID, i)
		}

		if _, dup := n.index[r.ID]; dup {
			return fmt.Errorf("model %s: duplicated reaction %s", n.ID, r.ID)
		}

		if r.LowerBound > r.UpperBound {
			return fmt.Errorf("model %s: reaction %s has lower bound %g above upper bound %g",
				n.ID, r.ID, r.LowerBound, r.UpperBound)
		}

		n.index[r.ID] = i
		for m := range r.Metabolites {
			seen[m] = true
		}
	}

	for _, m := range n.Metabolites {
		seen[m] = true
	}

	n.Metabolites = n.Metabolites[:0]
	for m := range seen {
		n.Metabolites = append(n.Metabolites, m)
	}
	sort.Strings(n.Metabolites)

	for id := range n.Objective {
		if _, ok := n.index[id]; !ok {
			return fmt.Errorf("model %s: objective: %w %s",
				n.ID, ErrUnknownReaction, id)
		}
	}

	if len(n.Objective) == 0 {
		return fmt.Errorf("model %s: no objective", n.ID)
	}

	n.independent = n.independentRows()

	return nil
}

// Exchanges lists the exchange reactions in model order.
func (n *Network) Exchanges() []metabolism.ExchangeReaction {
	var exchanges []metabolism.ExchangeReaction

	for _, r := range n.Reactions {
		if !r.IsExchange() {
			continue
		}

		for m := range r.Metabolites {
			exchanges = append(exchanges, metabolism.ExchangeReaction{
				ID:         r.ID,
				Metabolite: m,
			})
		}
	}

	return exchanges
}

// Reaction returns a copy of the reaction with the given ID.
func (n *Network) Reaction(id string) (Reaction, bool) {
	i, ok := n.index[id]
	if !ok {
		return Reaction{}, false
	}

	return n.Reactions[i].clone(), true
}

// SetLowerBound sets the lower bound of a reaction. If the new lower bound is
// above the upper bound, the upper bound is raised to match.
func (n *Network) SetLowerBound(id string, lb float64) error {
	i, ok := n.index[id]
	if !ok {
		return fmt.Errorf("%w %s", ErrUnknownReaction, id)
	}

	n.Reactions[i].LowerBound = lb
	if n.Reactions[i].UpperBound < lb {
		n.Reactions[i].UpperBound = lb
	}

	return nil
}

// SetUpperBound sets the upper bound of a reaction. If the new upper bound is
// below the lower bound, the lower bound is lowered to match.
func (n *Network) SetUpperBound(id string, ub float64) error {
	i, ok := n.index[id]
	if !ok {
		return fmt.Errorf("%w %s", ErrUnknownReaction, id)
	}

	n.Reactions[i].UpperBound = ub
	if n.Reactions[i].LowerBound > ub {
		n.Reactions[i].LowerBound = ub
	}

	return nil
}

// Clone returns a deep copy that can be modified independently.
func (n *Network) Clone() *Network {
	c := &Network{
		ID:          n.ID,
		Metabolites: append([]string(nil), n.Metabolites...),
		Reactions:   make([]Reaction, len(n.Reactions)),
		Objective:   make(map[string]float64, len(n.Objective)),
		index:       make(map[string]int, len(n.index)),
		independent: n.independent,
	}

	for i, r := range n.Reactions {
		c.Reactions[i] = r.clone()
	}

	for k, v := range n.Objective {
		c.Objective[k] = v
	}

	for k, v := range n.index {
		c.index[k] = v
	}

	return c
}
