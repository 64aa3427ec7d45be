package engine

import (
	"math"
	"testing"

	"github.com/phylogo/beagle/pkg/beagle"
)

// Symmetric two-state chain with unit rate: Q = [[-1,1],[1,-1]].
// P(t) = [[(1+e^-2t)/2, (1-e^-2t)/2], [(1-e^-2t)/2, (1+e^-2t)/2]].
var (
	twoStateVectors = []float64{
		1, 1,
		1, -1,
	}
	twoStateInverse = []float64{
		0.5, 0.5,
		0.5, -0.5,
	}
	twoStateValues = []float64{0, -2}
)

// Jukes-Cantor four-state chain with unit total rate: eigenvalues 0 and
// -4/3, eigenvectors a symmetric sign matrix with inverse V/4.
var (
	jcVectors = []float64{
		1, 1, 1, 1,
		1, 1, -1, -1,
		1, -1, 1, -1,
		1, -1, -1, 1,
	}
	jcInverse = []float64{
		0.25, 0.25, 0.25, 0.25,
		0.25, 0.25, -0.25, -0.25,
		0.25, -0.25, 0.25, -0.25,
		0.25, -0.25, -0.25, 0.25,
	}
	jcValues = []float64{0, -4.0 / 3, -4.0 / 3, -4.0 / 3}
)

func twoStateP(t float64) (p, q float64) {
	e := math.Exp(-2 * t)
	return (1 + e) / 2, (1 - e) / 2
}

func syncDetails() beagle.InstanceDetails {
	return beagle.InstanceDetails{Flags: beagle.FlagDouble | beagle.FlagSynch | beagle.FlagCPU}
}

func asyncDetails() beagle.InstanceDetails {
	return beagle.InstanceDetails{Flags: beagle.FlagDouble | beagle.FlagAsynch | beagle.FlagCPU}
}

func newTestInstance(t *testing.T, cfg beagle.Config, details beagle.InstanceDetails) *Instance {
	t.Helper()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("config: %v", err)
	}
	in := newInstance(cfg, details)
	t.Cleanup(func() { _ = in.close() })
	return in
}

// twoTipConfig is the smallest interesting instance: two tips, one interior
// node, single category.
func twoTipConfig(states, patterns int) beagle.Config {
	return beagle.Config{
		TipCount:            2,
		PartialsBufferCount: 4,
		CompactBufferCount:  2,
		StateCount:          states,
		PatternCount:        patterns,
		EigenBufferCount:    1,
		MatrixBufferCount:   4,
		CategoryCount:       1,
	}
}

func setTwoStateSystem(t *testing.T, in *Instance, lengths []float64) {
	t.Helper()
	if err := in.Store().SetEigenDecomposition(0, twoStateVectors, twoStateInverse, twoStateValues); err != nil {
		t.Fatalf("set eigen: %v", err)
	}
	idx := make([]int, len(lengths))
	for i := range idx {
		idx[i] = i
	}
	if err := in.UpdateTransitionMatrices(0, idx, nil, nil, lengths); err != nil {
		t.Fatalf("update matrices: %v", err)
	}
}

func almostEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}
