package engine

import (
	"math"

	"github.com/phylogo/beagle/pkg/beagle"
)

// CalculateRootLogLikelihoods reduces finished partials at a root into
// per-site log likelihoods. weights carries categoryCount entries per
// buffer, frequencies stateCount entries per buffer, and scaleIndices one
// list of scaling-factor slots per buffer whose per-pattern log corrections
// are summed and added back.
//
// With a single buffer the result is log(site) + correction. With several
// buffers each is treated as an independent partition contribution: the
// per-pattern likelihoods, each rescaled by its own correction, are summed
// before taking the log.
func (in *Instance) CalculateRootLogLikelihoods(buffers []int, weights, frequencies []float64, scaleIndices [][]int) ([]float64, error) {
	count := len(buffers)
	if err := in.checkIntegrationLists(count, buffers, weights, frequencies, scaleIndices); err != nil {
		return nil, err
	}
	if err := in.quiesce(); err != nil {
		return nil, err
	}

	nPat := in.cfg.PatternCount
	nCat := in.cfg.CategoryCount
	nStates := in.cfg.StateCount
	out := make([]float64, nPat)
	acc := make([]float64, nPat)
	corr := make([]float64, nPat)

	for b := 0; b < count; b++ {
		partials := in.store.Partials(buffers[b])
		w := weights[b*nCat : (b+1)*nCat]
		f := frequencies[b*nStates : (b+1)*nStates]
		in.scaleCorrection(corr, scaleList(scaleIndices, b))

		for k := 0; k < nPat; k++ {
			var site float64
			for c := 0; c < nCat; c++ {
				base := (k*nCat + c) * nStates
				var sum float64
				for s := 0; s < nStates; s++ {
					sum += f[s] * partials[base+s]
				}
				site += w[c] * sum
			}
			if count == 1 {
				out[k] = math.Log(site) + corr[k]
			} else {
				acc[k] += site * math.Exp(corr[k])
			}
		}
	}
	if count > 1 {
		for k := 0; k < nPat; k++ {
			out[k] = math.Log(acc[k])
		}
	}
	return out, nil
}

// CalculateEdgeLogLikelihoods reduces parent/child buffer pairs through an
// edge's transition matrix, yielding per-site log likelihoods and, when the
// derivative index lists are non-empty, first and second derivatives with
// respect to edge length.
func (in *Instance) CalculateEdgeLogLikelihoods(parents, children, probIndices, firstDeriv, secondDeriv []int, weights, frequencies []float64, scaleIndices [][]int) (logLik, d1Out, d2Out []float64, err error) {
	count := len(parents)
	if err := in.checkIntegrationLists(count, parents, weights, frequencies, scaleIndices); err != nil {
		return nil, nil, nil, err
	}
	if len(children) != count {
		return nil, nil, nil, beagle.Generalf("child buffer list length %d, want %d", len(children), count)
	}
	if len(probIndices) != count {
		return nil, nil, nil, beagle.Generalf("matrix index list length %d, want %d", len(probIndices), count)
	}
	wantD1 := len(firstDeriv) != 0
	wantD2 := len(secondDeriv) != 0
	if wantD1 && len(firstDeriv) != count {
		return nil, nil, nil, beagle.Generalf("first derivative list length %d, want %d", len(firstDeriv), count)
	}
	if wantD2 && len(secondDeriv) != count {
		return nil, nil, nil, beagle.Generalf("second derivative list length %d, want %d", len(secondDeriv), count)
	}
	if wantD2 && !wantD1 {
		return nil, nil, nil, beagle.Generalf("second derivatives require first derivatives")
	}
	for _, idx := range children {
		if err := in.store.CheckPartialsIndex(idx); err != nil {
			return nil, nil, nil, err
		}
	}
	for _, list := range [][]int{probIndices, firstDeriv, secondDeriv} {
		for _, idx := range list {
			if err := in.store.CheckMatrixIndex(idx); err != nil {
				return nil, nil, nil, err
			}
		}
	}
	for b := 0; b < count; b++ {
		if wantD1 {
			m, _ := in.store.Matrix(firstDeriv[b])
			if m.D1 == nil {
				return nil, nil, nil, beagle.Generalf("matrix %d has no first derivative plane", firstDeriv[b])
			}
		}
		if wantD2 {
			m, _ := in.store.Matrix(secondDeriv[b])
			if m.D2 == nil {
				return nil, nil, nil, beagle.Generalf("matrix %d has no second derivative plane", secondDeriv[b])
			}
		}
	}
	if err := in.quiesce(); err != nil {
		return nil, nil, nil, err
	}

	nPat := in.cfg.PatternCount
	nCat := in.cfg.CategoryCount
	nStates := in.cfg.StateCount

	logLik = make([]float64, nPat)
	site := make([]float64, nPat)
	site1 := make([]float64, nPat)
	site2 := make([]float64, nPat)
	corr := make([]float64, nPat)
	if wantD1 {
		d1Out = make([]float64, nPat)
	}
	if wantD2 {
		d2Out = make([]float64, nPat)
	}

	childVec := make([]float64, nStates)
	for b := 0; b < count; b++ {
		parent := in.store.Partials(parents[b])
		tips := in.store.TipStates(children[b])
		var child []float64
		if tips == nil {
			child = in.store.Partials(children[b])
		}
		m, _ := in.store.Matrix(probIndices[b])
		var pd1, pd2 []float64
		if wantD1 {
			md, _ := in.store.Matrix(firstDeriv[b])
			pd1 = md.D1
		}
		if wantD2 {
			md, _ := in.store.Matrix(secondDeriv[b])
			pd2 = md.D2
		}
		w := weights[b*nCat : (b+1)*nCat]
		f := frequencies[b*nStates : (b+1)*nStates]
		in.scaleCorrection(corr, scaleList(scaleIndices, b))

		for k := 0; k < nPat; k++ {
			var v, v1, v2 float64
			for c := 0; c < nCat; c++ {
				plane := c * nStates * nStates
				base := (k*nCat + c) * nStates
				v += w[c] * edgeSum(parent[base:base+nStates], m.P[plane:plane+nStates*nStates], tips, child, childVec, f, k, base, nStates)
				if wantD1 {
					v1 += w[c] * edgeSum(parent[base:base+nStates], pd1[plane:plane+nStates*nStates], tips, child, childVec, f, k, base, nStates)
				}
				if wantD2 {
					v2 += w[c] * edgeSum(parent[base:base+nStates], pd2[plane:plane+nStates*nStates], tips, child, childVec, f, k, base, nStates)
				}
			}
			scaleFactor := 1.0
			if count > 1 {
				scaleFactor = math.Exp(corr[k])
			}
			site[k] += v * scaleFactor
			site1[k] += v1 * scaleFactor
			site2[k] += v2 * scaleFactor
			if count == 1 {
				logLik[k] = math.Log(v) + corr[k]
			}
		}
	}
	for k := 0; k < nPat; k++ {
		if count > 1 {
			logLik[k] = math.Log(site[k])
		}
		ratio := site1[k] / site[k]
		if wantD1 {
			d1Out[k] = ratio
		}
		if wantD2 {
			d2Out[k] = site2[k]/site[k] - ratio*ratio
		}
	}
	return logLik, d1Out, d2Out, nil
}

// edgeSum computes Σ_a f[a]·parent[a]·(Σ_s P[a][s]·child[s]) for one
// pattern/category, collapsing the inner sum when the child is a compact
// tip encoding.
func edgeSum(parent, p []float64, tips []int, child, scratch, f []float64, pattern, base, n int) float64 {
	childVector(scratch, p, tips, child, pattern, base, n)
	var sum float64
	for a := 0; a < n; a++ {
		sum += f[a] * parent[a] * scratch[a]
	}
	return sum
}

func (in *Instance) checkIntegrationLists(count int, buffers []int, weights, frequencies []float64, scaleIndices [][]int) error {
	if count == 0 {
		return beagle.Generalf("no buffers to integrate")
	}
	if len(weights) != count*in.cfg.CategoryCount {
		return beagle.Generalf("weights length %d, want %d", len(weights), count*in.cfg.CategoryCount)
	}
	if len(frequencies) != count*in.cfg.StateCount {
		return beagle.Generalf("state frequencies length %d, want %d", len(frequencies), count*in.cfg.StateCount)
	}
	if len(scaleIndices) != 0 && len(scaleIndices) != count {
		return beagle.Generalf("scale index lists length %d, want %d", len(scaleIndices), count)
	}
	for _, idx := range buffers {
		if err := in.store.CheckPartialsIndex(idx); err != nil {
			return err
		}
	}
	for _, list := range scaleIndices {
		for _, idx := range list {
			if err := in.store.CheckPartialsIndex(idx); err != nil {
				return err
			}
		}
	}
	return nil
}

func scaleList(lists [][]int, b int) []int {
	if len(lists) == 0 {
		return nil
	}
	return lists[b]
}

// scaleCorrection sums the per-pattern log corrections of the listed scale
// slots into corr. Slots that were never written contribute nothing.
func (in *Instance) scaleCorrection(corr []float64, indices []int) {
	for k := range corr {
		corr[k] = 0
	}
	for _, idx := range indices {
		if !in.store.HasScaleFactors(idx) {
			continue
		}
		factors := in.store.ScaleFactors(idx)
		for k := range corr {
			corr[k] += factors[k]
		}
	}
}
