package resource

import (
	"math/bits"

	"github.com/phylogo/beagle/pkg/beagle"
)

// Select picks the catalog entry that best satisfies the constraints.
// Required flags act as a hard filter: a resource must advertise every
// required bit. Preferred flags rank surviving candidates by the size of
// their overlap; ties break to the lowest resource id. An empty allowed list
// means every catalog entry is a candidate.
//
// Returns the catalog index, or -1 when no resource satisfies the
// requirements.
func Select(catalog []beagle.Resource, allowed []int, preferred, required beagle.Flags) int {
	best := -1
	bestScore := -1
	for _, id := range candidates(len(catalog), allowed) {
		if id < 0 || id >= len(catalog) {
			continue
		}
		res := catalog[id]
		if !res.Flags.Has(required) {
			continue
		}
		score := bits.OnesCount64(uint64(res.Flags & preferred))
		if score > bestScore || (score == bestScore && id < best) {
			best, bestScore = id, score
		}
	}
	return best
}

func candidates(n int, allowed []int) []int {
	if len(allowed) > 0 {
		return allowed
	}
	ids := make([]int, n)
	for i := range ids {
		ids[i] = i
	}
	return ids
}

// ActiveFlags resolves the capability bits an instance actually runs with
// once bound to a resource: one precision bit, one synchrony bit and the
// resource's device class. Single precision and asynchronous execution are
// opt-in; the defaults are double and synchronous.
func ActiveFlags(res beagle.Resource, preferred, required beagle.Flags) beagle.Flags {
	active := res.Flags & (beagle.FlagCPU | beagle.FlagGPU | beagle.FlagFPGA | beagle.FlagSSE | beagle.FlagCell)

	if required.Has(beagle.FlagSingle) {
		active |= beagle.FlagSingle
	} else {
		active |= beagle.FlagDouble
	}

	wantAsync := required.Has(beagle.FlagAsynch) || preferred.Has(beagle.FlagAsynch)
	if wantAsync && res.Flags.Has(beagle.FlagAsynch) {
		active |= beagle.FlagAsynch
	} else {
		active |= beagle.FlagSynch
	}
	return active
}
