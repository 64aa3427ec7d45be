// Package engine implements the computation core: instance lifecycle, the
// transition-matrix engine, the operation-list propagation scheduler with
// its completion barrier, and the root/edge log-likelihood integrators.
package engine

import (
	"sync"

	"github.com/phylogo/beagle/internal/store"
	"github.com/phylogo/beagle/pkg/beagle"
)

// Instance is one dimensioned computation context bound to a resource for
// its lifetime. Buffer mutation entry points are synchronous by contract
// except UpdatePartials, which may queue work when the instance was bound
// asynchronously.
type Instance struct {
	cfg     beagle.Config
	store   *store.Store
	details beagle.InstanceDetails
	async   bool

	// submitMu orders queue submissions so ticket assignment and channel
	// send are atomic with respect to other submitters.
	submitMu sync.Mutex

	mu         sync.Mutex
	cond       *sync.Cond
	jobs       chan opBatch
	submitted  uint64
	completed  uint64
	lastWriter map[int]uint64
	fault      error
	closed     bool
}

type opBatch struct {
	seq     uint64
	ops     []beagle.Operation
	rescale bool
}

func newInstance(cfg beagle.Config, details beagle.InstanceDetails) *Instance {
	in := &Instance{
		cfg:     cfg,
		store:   store.New(cfg, details.Flags.Has(beagle.FlagSingle)),
		details: details,
		async:   details.Flags.Has(beagle.FlagAsynch),
	}
	in.cond = sync.NewCond(&in.mu)
	if in.async {
		in.jobs = make(chan opBatch, 16)
		in.lastWriter = make(map[int]uint64)
		go in.dispatch()
	}
	return in
}

// Details reports the resource binding and active capability flags.
func (in *Instance) Details() beagle.InstanceDetails { return in.details }

// Store exposes the buffer arenas for the synchronous setter entry points.
func (in *Instance) Store() *store.Store { return in.store }

// GetPartials copies a partials buffer out. Under an asynchronous binding it
// first joins on the buffer's most recent producing operation so the read is
// always safe.
func (in *Instance) GetPartials(idx int, out []float64) error {
	if err := in.WaitForPartials([]int{idx}); err != nil {
		return err
	}
	return in.store.GetPartials(idx, out)
}

func (in *Instance) close() error {
	if !in.async {
		in.closed = true
		return nil
	}
	// Holding submitMu keeps any in-flight UpdatePartials from sending on
	// the channel between its closed check and the close below.
	in.submitMu.Lock()
	defer in.submitMu.Unlock()
	err := in.quiesce()
	in.mu.Lock()
	if !in.closed {
		in.closed = true
		close(in.jobs)
	}
	in.mu.Unlock()
	return err
}
