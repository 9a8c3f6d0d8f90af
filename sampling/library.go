package sampling

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"math/rand/v2"
	"os"
	"sort"

	"gonum.org/v1/gonum/stat/distuv"
)

// Sampling constants of the microbial library.
const (
	// MinPhylumSize is the size a phylum must exceed to be sampled.
	MinPhylumSize = 2

	// LibraryTrials is the number of cells drawn before scaling up.
	LibraryTrials = 1_000_000

	MinLibraryCells = 1e9
	MaxLibraryCells = 1e11
)

// Phylum describes one phylum of the library.
type Phylum struct {
	Size                 int    `json:"phylum_size"`
	RepresentativeStrain string `json:"representative_strain"`
}

// A Library lists the phyla that can colonise the gut, each represented by
// one strain.
type Library struct {
	Phyla map[string]Phylum
}

// ReadLibraryFile reads a library from a JSON file.
func ReadLibraryFile(path string) (*Library, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	l, err := ReadLibrary(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return l, nil
}

// ReadLibrary reads a library in JSON form, keyed by phylum name.
func ReadLibrary(r io.Reader) (*Library, error) {
	l := &Library{}
	if err := json.NewDecoder(r).Decode(&l.Phyla); err != nil {
		return nil, err
	}

	return l, nil
}

// Strains returns the representative strains that can be sampled and their
// phylum sizes, ordered by phylum name.
func (l *Library) Strains() ([]string, []float64) {
	names := make([]string, 0, len(l.Phyla))
	for name := range l.Phyla {
		names = append(names, name)
	}
	sort.Strings(names)

	var (
		strains []string
		sizes   []float64
	)
	for _, name := range names {
		p := l.Phyla[name]
		if p.Size <= MinPhylumSize {
			continue
		}

		strains = append(strains, p.RepresentativeStrain)
		sizes = append(sizes, float64(p.Size))
	}

	return strains, sizes
}

// Sample draws an inoculum. LibraryTrials cells are allocated to the strains
// in proportion to their phylum sizes and the counts are then scaled to a
// total drawn uniformly from [MinLibraryCells, MaxLibraryCells]. Strains that
// get no cells are left out.
func (l *Library) Sample(rng *rand.Rand) map[string]int64 {
	target := float64(MinLibraryCells) +
		float64(rng.Int64N(int64(MaxLibraryCells-MinLibraryCells)+1))

	strains, sizes := l.Strains()
	counts := multinomial(rng, LibraryTrials, sizes)

	inoculum := make(map[string]int64)
	for i, s := range strains {
		n := int64(math.Round(counts[i] / LibraryTrials * target))
		if n > 0 {
			inoculum[s] += n
		}
	}

	return inoculum
}

// multinomial draws the outcome of n trials over categories with the given
// weights, as a chain of binomial draws.
func multinomial(rng *rand.Rand, n float64, weights []float64) []float64 {
	counts := make([]float64, len(weights))

	restWeight := 0.0
	for _, w := range weights {
		restWeight += w
	}

	rest := n
	for i, w := range weights {
		if rest <= 0 || restWeight <= 0 {
			break
		}

		if i == len(weights)-1 {
			counts[i] = rest
			break
		}

		p := math.Min(1, w/restWeight)
		counts[i] = distuv.Binomial{N: rest, P: p, Src: rng}.Rand()

		rest -= counts[i]
		restWeight -= w
	}

	return counts
}
