// Package scenario loads a complete likelihood evaluation from a YAML file:
// dimensions, tip data, an eigen system, edge lengths, the combine operation
// list and the root query. It gives the CLI a full end-to-end path through
// the engine without any client code.
package scenario

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/phylogo/beagle/internal/engine"
	"github.com/phylogo/beagle/pkg/beagle"
)

// Tip is one observed sequence. Exactly one of States (compact encoding,
// stateCount meaning missing) or Partials (full conditional likelihoods)
// must be set.
type Tip struct {
	Buffer   int       `yaml:"buffer"`
	States   []int     `yaml:"states,omitempty"`
	Partials []float64 `yaml:"partials,omitempty"`
}

// Eigen is the spectral factorization of the substitution-rate matrix.
type Eigen struct {
	Vectors        []float64 `yaml:"vectors"`
	InverseVectors []float64 `yaml:"inverse_vectors"`
	Values         []float64 `yaml:"values"`
}

// Edge names a matrix buffer and the branch length to fill it from.
type Edge struct {
	Matrix int     `yaml:"matrix"`
	Length float64 `yaml:"length"`
}

// Root is the final integration query.
type Root struct {
	Buffer       int       `yaml:"buffer"`
	Weights      []float64 `yaml:"weights"`
	Frequencies  []float64 `yaml:"frequencies"`
	ScaleIndices []int     `yaml:"scale_indices,omitempty"`
}

// Scenario is one self-contained evaluation.
type Scenario struct {
	States     int       `yaml:"states"`
	Patterns   int       `yaml:"patterns"`
	Categories int       `yaml:"categories"`
	Rates      []float64 `yaml:"rates,omitempty"`
	Tips       []Tip     `yaml:"tips"`
	Eigen      Eigen     `yaml:"eigen"`
	Edges      []Edge    `yaml:"edges"`
	Operations [][]int   `yaml:"operations"`
	Root       Root      `yaml:"root"`
	Rescale    bool      `yaml:"rescale,omitempty"`
}

// Load reads and validates a scenario file.
func Load(path string) (*Scenario, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}
	var sc Scenario
	if err := yaml.Unmarshal(raw, &sc); err != nil {
		return nil, fmt.Errorf("parse scenario: %w", err)
	}
	if err := sc.check(); err != nil {
		return nil, err
	}
	return &sc, nil
}

func (sc *Scenario) check() error {
	if sc.States <= 0 || sc.Patterns <= 0 {
		return fmt.Errorf("scenario: states and patterns must be positive")
	}
	if sc.Categories <= 0 {
		sc.Categories = 1
	}
	if len(sc.Tips) == 0 {
		return fmt.Errorf("scenario: at least one tip required")
	}
	if len(sc.Edges) == 0 {
		return fmt.Errorf("scenario: at least one edge required")
	}
	for i, op := range sc.Operations {
		if len(op) != 6 {
			return fmt.Errorf("scenario: operation %d has %d elements, want 6", i, len(op))
		}
	}
	return nil
}

// Config derives instance dimensions from the scenario contents.
func (sc *Scenario) Config() beagle.Config {
	compact := 0
	maxBuffer := sc.Root.Buffer
	for _, tip := range sc.Tips {
		if len(tip.States) > 0 {
			compact++
		}
		if tip.Buffer > maxBuffer {
			maxBuffer = tip.Buffer
		}
	}
	for _, op := range sc.Operations {
		// op[1] is the destination scale slot; it shares the partials
		// namespace and may exceed every partials index.
		for _, idx := range []int{op[0], op[1], op[2], op[4]} {
			if idx > maxBuffer {
				maxBuffer = idx
			}
		}
	}
	for _, idx := range sc.Root.ScaleIndices {
		if idx > maxBuffer {
			maxBuffer = idx
		}
	}
	return beagle.Config{
		TipCount:            len(sc.Tips),
		PartialsBufferCount: maxBuffer + 1 - compact,
		CompactBufferCount:  compact,
		StateCount:          sc.States,
		PatternCount:        sc.Patterns,
		EigenBufferCount:    1,
		MatrixBufferCount:   len(sc.Edges),
		CategoryCount:       sc.Categories,
	}
}

// Run evaluates the scenario on a fresh instance and returns the per-site
// log likelihoods.
func (sc *Scenario) Run(reg *engine.Registry, preferred, required beagle.Flags) ([]float64, error) {
	id, err := reg.CreateInstance(sc.Config(), nil, preferred, required)
	if err != nil {
		return nil, err
	}
	if _, err := reg.InitializeInstance(id); err != nil {
		return nil, err
	}
	defer reg.Finalize(id)

	for _, tip := range sc.Tips {
		if len(tip.States) > 0 {
			err = reg.SetTipStates(id, tip.Buffer, tip.States)
		} else {
			err = reg.SetPartials(id, tip.Buffer, tip.Partials)
		}
		if err != nil {
			return nil, err
		}
	}
	if err := reg.SetEigenDecomposition(id, 0, sc.Eigen.Vectors, sc.Eigen.InverseVectors, sc.Eigen.Values); err != nil {
		return nil, err
	}
	if len(sc.Rates) > 0 {
		if err := reg.SetCategoryRates(id, sc.Rates); err != nil {
			return nil, err
		}
	}

	probIndices := make([]int, len(sc.Edges))
	lengths := make([]float64, len(sc.Edges))
	for i, edge := range sc.Edges {
		probIndices[i] = edge.Matrix
		lengths[i] = edge.Length
	}
	if err := reg.UpdateTransitionMatrices(id, 0, probIndices, nil, nil, lengths); err != nil {
		return nil, err
	}

	ops := make([]beagle.Operation, len(sc.Operations))
	for i, t := range sc.Operations {
		ops[i] = beagle.OperationFromTuple([6]int{t[0], t[1], t[2], t[3], t[4], t[5]})
	}
	if err := reg.UpdatePartials([]int{id}, ops, sc.Rescale); err != nil {
		return nil, err
	}
	if err := reg.WaitForPartials([]int{id}, []int{sc.Root.Buffer}); err != nil {
		return nil, err
	}

	var scaleIndices [][]int
	if len(sc.Root.ScaleIndices) > 0 {
		scaleIndices = [][]int{sc.Root.ScaleIndices}
	}
	return reg.CalculateRootLogLikelihoods(id, []int{sc.Root.Buffer}, sc.Root.Weights, sc.Root.Frequencies, scaleIndices)
}
