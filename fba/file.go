package fba

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

type reactionFile struct {
	ID          string             `yaml:"id" json:"id"`
	Metabolites map[string]float64 `yaml:"metabolites" json:"metabolites"`
	LowerBound  *float64           `yaml:"lower_bound,omitempty" json:"lower_bound,omitempty"`
	UpperBound  *float64           `yaml:"upper_bound,omitempty" json:"upper_bound,omitempty"`
	Exchange    bool               `yaml:"exchange,omitempty" json:"exchange,omitempty"`
	Reversible  *bool              `yaml:"reversible,omitempty" json:"reversible,omitempty"`
}

type modelFile struct {
	ID          string             `yaml:"id" json:"id"`
	Metabolites []string           `yaml:"metabolites,omitempty" json:"metabolites,omitempty"`
	Reactions   []reactionFile     `yaml:"reactions" json:"reactions"`
	Objective   map[string]float64 `yaml:"objective" json:"objective"`
}

// Format is the encoding of a model file.
type Format int

// The supported model file formats.
const (
	FormatYAML Format = iota
	FormatJSON
)

// FormatOf picks the format from the extension of a path. Anything that is
// not ".json" is read as YAML.
func FormatOf(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return FormatJSON
	}

	return FormatYAML
}

// ReadNetworkFile parses a model file.
func ReadNetworkFile(path string) (*Network, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	n, err := ReadNetwork(f, FormatOf(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	if n.ID == "" {
		n.ID = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}

	return n, nil
}

// ReadNetwork parses a model. Reactions without bounds are reversible within
// DefaultBound unless they are declared irreversible, in which case their
// lower bound is zero.
func ReadNetwork(r io.Reader, format Format) (*Network, error) {
	var mf modelFile

	switch format {
	case FormatJSON:
		if err := json.NewDecoder(r).Decode(&mf); err != nil {
			return nil, err
		}
	default:
		if err := yaml.NewDecoder(r).Decode(&mf); err != nil {
			return nil, err
		}
	}

	reactions := make([]Reaction, 0, len(mf.Reactions))
	for _, rf := range mf.Reactions {
		reactions = append(reactions, rf.reaction())
	}

	return NewNetwork(mf.ID, reactions, mf.Objective)
}

func (rf reactionFile) reaction() Reaction {
	r := Reaction{
		ID:          rf.ID,
		Metabolites: rf.Metabolites,
		LowerBound:  -DefaultBound,
		UpperBound:  DefaultBound,
		Exchange:    rf.Exchange,
	}

	if r.Metabolites == nil {
		r.Metabolites = map[string]float64{}
	}

	if rf.Reversible != nil && !*rf.Reversible {
		r.LowerBound = 0
	}

	if rf.LowerBound != nil {
		r.LowerBound = *rf.LowerBound
	}

	if rf.UpperBound != nil {
		r.UpperBound = *rf.UpperBound
	}

	return r
}

// WriteNetwork encodes a network in the given format.
func WriteNetwork(w io.Writer, n *Network, format Format) error {
	mf := modelFile{
		ID:          n.ID,
		Metabolites: n.Metabolites,
		Objective:   n.Objective,
	}

	for _, r := range n.Reactions {
		lb, ub := r.LowerBound, r.UpperBound
		mf.Reactions = append(mf.Reactions, reactionFile{
			ID:          r.ID,
			Metabolites: r.Metabolites,
			LowerBound:  &lb,
			UpperBound:  &ub,
			Exchange:    r.Exchange,
		})
	}

	if format == FormatJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(mf)
	}

	enc := yaml.NewEncoder(w)
	defer enc.Close()

	return enc.Encode(mf)
}
