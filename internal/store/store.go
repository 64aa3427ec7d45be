// Package store holds an instance's buffer arenas: partials, compact tip
// states, eigen decompositions, transition-probability matrices, category
// rates and scaling factors. Each buffer class is a fixed-capacity arena
// indexed by small integers; the namespaces do not alias. The store
// validates dimensions and indices at every boundary and copies data both
// ways, but is otherwise agnostic to buffer contents.
package store

import (
	"github.com/phylogo/beagle/pkg/beagle"
)

// MatrixSet is one transition-matrix buffer: the probability plane plus
// lazily allocated first- and second-derivative planes of identical shape.
type MatrixSet struct {
	P  []float64
	D1 []float64
	D2 []float64
}

// EigenSystem holds one spectral factorization of a substitution-rate
// matrix: eigenvectors, inverse eigenvectors (both stateCount x stateCount,
// row-major) and eigenvalues.
type EigenSystem struct {
	Vectors        []float64
	InverseVectors []float64
	Values         []float64
	set            bool
}

// Store owns all buffers of one instance. It is not safe for concurrent
// mutation; the engine serializes access.
type Store struct {
	cfg    beagle.Config
	single bool

	partials  [][]float64
	tipStates [][]int
	compact   int
	eigens    []EigenSystem
	matrices  []MatrixSet
	rates     []float64
	scales    [][]float64
}

// New allocates every arena for the given dimensions. Partials storage is
// allocated eagerly so that propagation never allocates; derivative matrix
// planes and scale buffers are allocated on first use.
func New(cfg beagle.Config, single bool) *Store {
	s := &Store{
		cfg:       cfg,
		single:    single,
		partials:  make([][]float64, cfg.BufferCount()),
		tipStates: make([][]int, cfg.TipCount),
		eigens:    make([]EigenSystem, cfg.EigenBufferCount),
		matrices:  make([]MatrixSet, cfg.MatrixBufferCount),
		rates:     make([]float64, cfg.CategoryCount),
		scales:    make([][]float64, cfg.BufferCount()),
	}
	for i := range s.partials {
		s.partials[i] = make([]float64, cfg.PartialsLen())
	}
	for i := range s.matrices {
		s.matrices[i].P = make([]float64, cfg.MatrixLen())
	}
	// Category rates default to 1 so transition matrices can be computed
	// before SetCategoryRates is called.
	for i := range s.rates {
		s.rates[i] = 1
	}
	return s
}

// Config returns the dimensions the store was built with.
func (s *Store) Config() beagle.Config { return s.cfg }

func (s *Store) checkPartialsIndex(idx int) error {
	if idx < 0 || idx >= len(s.partials) {
		return beagle.OutOfRangef("partials index %d outside [0,%d)", idx, len(s.partials))
	}
	return nil
}

func (s *Store) checkMatrixIndex(idx int) error {
	if idx < 0 || idx >= len(s.matrices) {
		return beagle.OutOfRangef("matrix index %d outside [0,%d)", idx, len(s.matrices))
	}
	return nil
}

func (s *Store) checkEigenIndex(idx int) error {
	if idx < 0 || idx >= len(s.eigens) {
		return beagle.OutOfRangef("eigen index %d outside [0,%d)", idx, len(s.eigens))
	}
	return nil
}

// SetPartials copies data into the named partials buffer. The data length
// must be exactly stateCount*patternCount*categoryCount.
func (s *Store) SetPartials(idx int, data []float64) error {
	if err := s.checkPartialsIndex(idx); err != nil {
		return err
	}
	if len(data) != s.cfg.PartialsLen() {
		return beagle.OutOfRangef("partials length %d, want %d", len(data), s.cfg.PartialsLen())
	}
	s.copyIn(s.partials[idx], data)
	return nil
}

// GetPartials copies the named partials buffer into out, which must have
// the exact buffer length.
func (s *Store) GetPartials(idx int, out []float64) error {
	if err := s.checkPartialsIndex(idx); err != nil {
		return err
	}
	if len(out) != s.cfg.PartialsLen() {
		return beagle.OutOfRangef("output length %d, want %d", len(out), s.cfg.PartialsLen())
	}
	copy(out, s.partials[idx])
	return nil
}

// SetTipStates installs a compact per-pattern state encoding for a tip.
// Values must lie in [0, stateCount]; the value stateCount encodes missing
// data.
func (s *Store) SetTipStates(tipIndex int, states []int) error {
	if tipIndex < 0 || tipIndex >= s.cfg.TipCount {
		return beagle.OutOfRangef("tip index %d outside [0,%d)", tipIndex, s.cfg.TipCount)
	}
	if len(states) != s.cfg.PatternCount {
		return beagle.OutOfRangef("tip states length %d, want %d", len(states), s.cfg.PatternCount)
	}
	for k, st := range states {
		if st < 0 || st > s.cfg.StateCount {
			return beagle.OutOfRangef("tip state %d at pattern %d outside [0,%d]", st, k, s.cfg.StateCount)
		}
	}
	if s.tipStates[tipIndex] == nil {
		if s.compact >= s.cfg.CompactBufferCount {
			return beagle.OutOfRangef("compact buffer count %d exhausted", s.cfg.CompactBufferCount)
		}
		s.compact++
	}
	s.tipStates[tipIndex] = append([]int(nil), states...)
	return nil
}

// TipStates returns the compact encoding for a buffer index, or nil when the
// index is interior or holds full partials.
func (s *Store) TipStates(idx int) []int {
	if idx < 0 || idx >= len(s.tipStates) {
		return nil
	}
	return s.tipStates[idx]
}

// Partials returns the backing slice of a partials buffer for in-place
// computation. Callers must have validated the index.
func (s *Store) Partials(idx int) []float64 { return s.partials[idx] }

// SetEigenDecomposition copies one spectral factorization into the named
// eigen buffer.
func (s *Store) SetEigenDecomposition(idx int, vectors, inverse, values []float64) error {
	if err := s.checkEigenIndex(idx); err != nil {
		return err
	}
	n := s.cfg.StateCount
	if len(vectors) != n*n {
		return beagle.OutOfRangef("eigenvectors length %d, want %d", len(vectors), n*n)
	}
	if len(inverse) != n*n {
		return beagle.OutOfRangef("inverse eigenvectors length %d, want %d", len(inverse), n*n)
	}
	if len(values) != n {
		return beagle.OutOfRangef("eigenvalues length %d, want %d", len(values), n)
	}
	s.eigens[idx] = EigenSystem{
		Vectors:        append([]float64(nil), vectors...),
		InverseVectors: append([]float64(nil), inverse...),
		Values:         append([]float64(nil), values...),
		set:            true,
	}
	return nil
}

// Eigen returns the named eigen system.
func (s *Store) Eigen(idx int) (*EigenSystem, error) {
	if err := s.checkEigenIndex(idx); err != nil {
		return nil, err
	}
	if !s.eigens[idx].set {
		return nil, beagle.Generalf("eigen buffer %d was never set", idx)
	}
	return &s.eigens[idx], nil
}

// SetCategoryRates copies the per-category rate scalars.
func (s *Store) SetCategoryRates(rates []float64) error {
	if len(rates) != s.cfg.CategoryCount {
		return beagle.OutOfRangef("category rates length %d, want %d", len(rates), s.cfg.CategoryCount)
	}
	copy(s.rates, rates)
	return nil
}

// CategoryRates returns the instance's rate vector.
func (s *Store) CategoryRates() []float64 { return s.rates }

// SetTransitionMatrix copies a precomputed probability matrix into the named
// buffer, bypassing the transition-matrix engine.
func (s *Store) SetTransitionMatrix(idx int, matrix []float64) error {
	if err := s.checkMatrixIndex(idx); err != nil {
		return err
	}
	if len(matrix) != s.cfg.MatrixLen() {
		return beagle.OutOfRangef("matrix length %d, want %d", len(matrix), s.cfg.MatrixLen())
	}
	s.copyIn(s.matrices[idx].P, matrix)
	return nil
}

// Matrix returns the named matrix set after an index check.
func (s *Store) Matrix(idx int) (*MatrixSet, error) {
	if err := s.checkMatrixIndex(idx); err != nil {
		return nil, err
	}
	return &s.matrices[idx], nil
}

// EnsureDeriv1 allocates the first-derivative plane of a matrix buffer.
func (s *Store) EnsureDeriv1(idx int) []float64 {
	if s.matrices[idx].D1 == nil {
		s.matrices[idx].D1 = make([]float64, s.cfg.MatrixLen())
	}
	return s.matrices[idx].D1
}

// EnsureDeriv2 allocates the second-derivative plane of a matrix buffer.
func (s *Store) EnsureDeriv2(idx int) []float64 {
	if s.matrices[idx].D2 == nil {
		s.matrices[idx].D2 = make([]float64, s.cfg.MatrixLen())
	}
	return s.matrices[idx].D2
}

// ScaleFactors returns the per-pattern log scale factors recorded for a
// partials index, allocating the slot on first use.
func (s *Store) ScaleFactors(idx int) []float64 {
	if s.scales[idx] == nil {
		s.scales[idx] = make([]float64, s.cfg.PatternCount)
	}
	return s.scales[idx]
}

// HasScaleFactors reports whether a scale slot was ever written.
func (s *Store) HasScaleFactors(idx int) bool {
	return idx >= 0 && idx < len(s.scales) && s.scales[idx] != nil
}

// CheckPartialsIndex exposes partials namespace validation to the engine.
func (s *Store) CheckPartialsIndex(idx int) error { return s.checkPartialsIndex(idx) }

// CheckMatrixIndex exposes matrix namespace validation to the engine.
func (s *Store) CheckMatrixIndex(idx int) error { return s.checkMatrixIndex(idx) }

// copyIn stores caller data, passing it through float32 when the instance
// was bound single-precision so that round-trips are bit-exact at the
// requested precision.
func (s *Store) copyIn(dst, src []float64) {
	if !s.single {
		copy(dst, src)
		return
	}
	for i, v := range src {
		dst[i] = float64(float32(v))
	}
}
