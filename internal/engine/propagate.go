package engine

import (
	"math"
	"runtime"
	"sync"

	"github.com/phylogo/beagle/pkg/beagle"
)

// UpdatePartials applies a list of binary combine operations. List order
// defines the dependency order: a destination produced by operation i may be
// consumed by operation j > i. Under a synchronous binding every operation
// has completed when the call returns; under an asynchronous binding the
// batch is queued and WaitForPartials is the only safe way to read or
// overwrite a targeted destination.
//
// All validation happens here, eagerly, before any buffer is touched or any
// work is queued.
func (in *Instance) UpdatePartials(ops []beagle.Operation, rescale bool) error {
	if err := in.validateOps(ops, rescale); err != nil {
		return err
	}
	// Scale slots are allocated up front so the execution path, possibly on
	// the dispatcher goroutine, never mutates the arena table.
	if rescale {
		for _, op := range ops {
			if op.DestScale >= 0 {
				in.store.ScaleFactors(op.DestScale)
			}
		}
	}

	if !in.async {
		return in.runBatch(ops, rescale)
	}

	batch := opBatch{
		ops:     append([]beagle.Operation(nil), ops...),
		rescale: rescale,
	}
	in.submitMu.Lock()
	defer in.submitMu.Unlock()
	in.mu.Lock()
	if in.closed {
		in.mu.Unlock()
		return beagle.Uninitializedf("instance is finalized")
	}
	in.submitted++
	batch.seq = in.submitted
	for _, op := range batch.ops {
		in.lastWriter[op.Destination] = batch.seq
	}
	in.mu.Unlock()
	in.jobs <- batch
	return nil
}

func (in *Instance) validateOps(ops []beagle.Operation, rescale bool) error {
	for i, op := range ops {
		for _, idx := range []int{op.Destination, op.Child1, op.Child2} {
			if err := in.store.CheckPartialsIndex(idx); err != nil {
				return err
			}
		}
		for _, idx := range []int{op.Child1Matrix, op.Child2Matrix} {
			if err := in.store.CheckMatrixIndex(idx); err != nil {
				return err
			}
		}
		if rescale && op.DestScale >= 0 {
			if err := in.store.CheckPartialsIndex(op.DestScale); err != nil {
				return err
			}
			if op.DestScale <= in.cfg.TipCount {
				return beagle.Generalf("operation %d: scale index %d must exceed tip count %d", i, op.DestScale, in.cfg.TipCount)
			}
		}
	}
	return nil
}

func (in *Instance) runBatch(ops []beagle.Operation, rescale bool) error {
	for _, op := range ops {
		in.executeOp(op, rescale)
	}
	return nil
}

// executeOp computes one destination buffer. Per pattern k, category c and
// ancestor state a the value is
//
//	(Σ_s P1[c][a][s]·L1[k][c][s]) · (Σ_s P2[c][a][s]·L2[k][c][s])
//
// where a compact tip child collapses its sum to the matrix entry of the
// observed state, or to the row mean when the state encodes missing data.
// The pattern range is chunked across workers; operations themselves are
// never reordered.
func (in *Instance) executeOp(op beagle.Operation, rescale bool) {
	s := in.store
	m1, _ := s.Matrix(op.Child1Matrix)
	m2, _ := s.Matrix(op.Child2Matrix)
	dest := s.Partials(op.Destination)
	tips1 := s.TipStates(op.Child1)
	tips2 := s.TipStates(op.Child2)
	var part1, part2 []float64
	if tips1 == nil {
		part1 = s.Partials(op.Child1)
	}
	if tips2 == nil {
		part2 = s.Partials(op.Child2)
	}
	var scale []float64
	if rescale && op.DestScale >= 0 {
		scale = s.ScaleFactors(op.DestScale)
	}

	nStates := in.cfg.StateCount
	nCat := in.cfg.CategoryCount

	parallelRange(in.cfg.PatternCount, func(lo, hi int) {
		v1 := make([]float64, nStates)
		v2 := make([]float64, nStates)
		for k := lo; k < hi; k++ {
			for c := 0; c < nCat; c++ {
				plane := c * nStates * nStates
				base := (k*nCat + c) * nStates
				childVector(v1, m1.P[plane:plane+nStates*nStates], tips1, part1, k, base, nStates)
				childVector(v2, m2.P[plane:plane+nStates*nStates], tips2, part2, k, base, nStates)
				for a := 0; a < nStates; a++ {
					dest[base+a] = v1[a] * v2[a]
				}
			}
			if scale != nil {
				rescalePattern(dest, scale, k, nCat, nStates)
			}
		}
	})
}

// childVector fills v with the child contribution for one pattern/category.
func childVector(v, p []float64, tips []int, partials []float64, pattern, base, n int) {
	if tips != nil {
		st := tips[pattern]
		if st < n {
			for a := 0; a < n; a++ {
				v[a] = p[a*n+st]
			}
			return
		}
		// Missing data: uniform average over states.
		inv := 1.0 / float64(n)
		for a := 0; a < n; a++ {
			row := p[a*n : a*n+n]
			var sum float64
			for s := 0; s < n; s++ {
				sum += row[s]
			}
			v[a] = sum * inv
		}
		return
	}
	child := partials[base : base+n]
	for a := 0; a < n; a++ {
		row := p[a*n : a*n+n]
		var sum float64
		for s := 0; s < n; s++ {
			sum += row[s] * child[s]
		}
		v[a] = sum
	}
}

// rescalePattern divides one pattern's slice by its maximum across
// category and state and records the log of that maximum. A non-positive
// maximum leaves the slice untouched and records log(1).
func rescalePattern(dest, scale []float64, pattern, nCat, nStates int) {
	lo := pattern * nCat * nStates
	hi := lo + nCat*nStates
	peak := 0.0
	for i := lo; i < hi; i++ {
		if dest[i] > peak {
			peak = dest[i]
		}
	}
	if peak <= 0 {
		scale[pattern] = 0
		return
	}
	inv := 1 / peak
	for i := lo; i < hi; i++ {
		dest[i] *= inv
	}
	scale[pattern] = math.Log(peak)
}

// parallelRange splits [0,n) across up to GOMAXPROCS workers.
func parallelRange(n int, fn func(lo, hi int)) {
	workers := runtime.GOMAXPROCS(0)
	if workers > n {
		workers = n
	}
	if workers <= 1 {
		fn(0, n)
		return
	}
	chunk := (n + workers - 1) / workers
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		lo := i * chunk
		hi := lo + chunk
		if hi > n {
			hi = n
		}
		if lo >= hi {
			break
		}
		wg.Add(1)
		go func(lo, hi int) {
			defer wg.Done()
			fn(lo, hi)
		}(lo, hi)
	}
	wg.Wait()
}
