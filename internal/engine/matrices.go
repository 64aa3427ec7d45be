package engine

import (
	"math"

	"github.com/phylogo/beagle/internal/store"
	"github.com/phylogo/beagle/pkg/beagle"
)

// UpdateTransitionMatrices computes, for each entry, the per-category
// transition probability matrix
//
//	P(t) = V · diag(exp(λ_i · r_c · t)) · V⁻¹
//
// from the named eigen decomposition. When derivative index lists are
// non-empty the first derivative scales the exponential diagonal by λ_i·r_c
// and the second derivative by (λ_i·r_c)²; empty lists skip the extra
// multiplications entirely.
func (in *Instance) UpdateTransitionMatrices(eigenIndex int, probIndices, firstDeriv, secondDeriv []int, edgeLengths []float64) error {
	eig, err := in.store.Eigen(eigenIndex)
	if err != nil {
		return err
	}
	count := len(probIndices)
	if len(edgeLengths) != count {
		return beagle.Generalf("edge lengths length %d, want %d", len(edgeLengths), count)
	}
	if len(firstDeriv) != 0 && len(firstDeriv) != count {
		return beagle.Generalf("first derivative indices length %d, want %d", len(firstDeriv), count)
	}
	if len(secondDeriv) != 0 && len(secondDeriv) != count {
		return beagle.Generalf("second derivative indices length %d, want %d", len(secondDeriv), count)
	}
	for _, list := range [][]int{probIndices, firstDeriv, secondDeriv} {
		for _, idx := range list {
			if err := in.store.CheckMatrixIndex(idx); err != nil {
				return err
			}
		}
	}

	n := in.cfg.StateCount
	rates := in.store.CategoryRates()
	// Scratch for one category: the exponentiated diagonal folded into V⁻¹.
	tmp := make([]float64, n*n)

	for e := 0; e < count; e++ {
		t := edgeLengths[e]
		m, _ := in.store.Matrix(probIndices[e])
		var d1, d2 []float64
		if len(firstDeriv) > 0 {
			d1 = in.store.EnsureDeriv1(firstDeriv[e])
		}
		if len(secondDeriv) > 0 {
			d2 = in.store.EnsureDeriv2(secondDeriv[e])
		}
		for c := 0; c < in.cfg.CategoryCount; c++ {
			r := rates[c]
			plane := c * n * n
			fillPlane(m.P[plane:plane+n*n], eig, tmp, n, r, t, 0)
			if d1 != nil {
				fillPlane(d1[plane:plane+n*n], eig, tmp, n, r, t, 1)
			}
			if d2 != nil {
				fillPlane(d2[plane:plane+n*n], eig, tmp, n, r, t, 2)
			}
		}
	}
	return nil
}

// fillPlane writes one category's matrix into out. order selects the
// diagonal factor: exp(wt) for the probability matrix, w·exp(wt) for the
// first derivative and w²·exp(wt) for the second, with w = λ_i·r.
func fillPlane(out []float64, eig *store.EigenSystem, tmp []float64, n int, rate, t float64, order int) {
	for i := 0; i < n; i++ {
		w := eig.Values[i] * rate
		diag := math.Exp(w * t)
		switch order {
		case 1:
			diag *= w
		case 2:
			diag *= w * w
		}
		row := i * n
		for b := 0; b < n; b++ {
			tmp[row+b] = diag * eig.InverseVectors[row+b]
		}
	}
	for a := 0; a < n; a++ {
		arow := a * n
		for b := 0; b < n; b++ {
			var sum float64
			for i := 0; i < n; i++ {
				sum += eig.Vectors[arow+i] * tmp[i*n+b]
			}
			out[arow+b] = sum
		}
	}
}
