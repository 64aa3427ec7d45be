package engine

import (
	"sync"

	"github.com/phylogo/beagle/internal/resource"
	"github.com/phylogo/beagle/pkg/beagle"
)

type slot struct {
	cfg       beagle.Config
	allowed   []int
	preferred beagle.Flags
	required  beagle.Flags
	inst      *Instance
}

// Registry creates and owns instances. Instance ids are small non-negative
// handles; a finalized handle is never reused. The registry is safe for
// concurrent use; distinct instances are fully independent.
type Registry struct {
	mu      sync.Mutex
	catalog []beagle.Resource
	slots   []*slot
}

// NewRegistry builds a registry over the host resource catalog.
func NewRegistry() *Registry {
	return NewRegistryWithCatalog(resource.Catalog())
}

// NewRegistryWithCatalog builds a registry over an explicit catalog. Used by
// tests and by embedders that enumerate their own resources.
func NewRegistryWithCatalog(catalog []beagle.Resource) *Registry {
	return &Registry{catalog: append([]beagle.Resource(nil), catalog...)}
}

// ResourceList returns a copy of the catalog.
func (r *Registry) ResourceList() []beagle.Resource {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]beagle.Resource(nil), r.catalog...)
}

// CreateInstance validates the dimensions and reserves a handle. The
// resource binding happens at InitializeInstance.
func (r *Registry) CreateInstance(cfg beagle.Config, allowed []int, preferred, required beagle.Flags) (int, error) {
	if err := cfg.Validate(); err != nil {
		return -1, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range allowed {
		if id < 0 || id >= len(r.catalog) {
			return -1, beagle.OutOfRangef("resource id %d outside catalog of %d", id, len(r.catalog))
		}
	}
	r.slots = append(r.slots, &slot{
		cfg:       cfg,
		allowed:   append([]int(nil), allowed...),
		preferred: preferred,
		required:  required,
	})
	return len(r.slots) - 1, nil
}

// InitializeInstance binds the best matching resource, allocates all buffer
// stores and reports the active capability flags.
func (r *Registry) InitializeInstance(id int) (beagle.InstanceDetails, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sl, err := r.slot(id)
	if err != nil {
		return beagle.InstanceDetails{}, err
	}
	if sl.inst != nil {
		return beagle.InstanceDetails{}, beagle.Generalf("instance %d already initialized", id)
	}
	resNum := resource.Select(r.catalog, sl.allowed, sl.preferred, sl.required)
	if resNum < 0 {
		return beagle.InstanceDetails{}, beagle.Generalf("no resource satisfies required flags %s", sl.required)
	}
	details := beagle.InstanceDetails{
		ResourceNumber: resNum,
		Flags:          resource.ActiveFlags(r.catalog[resNum], sl.preferred, sl.required),
	}
	sl.inst = newInstance(sl.cfg, details)
	return details, nil
}

// Finalize releases an instance's storage. Subsequent calls with the handle
// fail with UninitializedInstanceError.
func (r *Registry) Finalize(id int) error {
	r.mu.Lock()
	sl, err := r.slot(id)
	if err != nil {
		r.mu.Unlock()
		return err
	}
	inst := sl.inst
	r.slots[id] = nil
	r.mu.Unlock()
	if inst != nil {
		return inst.close()
	}
	return nil
}

func (r *Registry) slot(id int) (*slot, error) {
	if id < 0 || id >= len(r.slots) || r.slots[id] == nil {
		return nil, beagle.Uninitializedf("invalid instance handle %d", id)
	}
	return r.slots[id], nil
}

// Instance resolves a handle to its initialized instance.
func (r *Registry) Instance(id int) (*Instance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sl, err := r.slot(id)
	if err != nil {
		return nil, err
	}
	if sl.inst == nil {
		return nil, beagle.Uninitializedf("instance %d not initialized", id)
	}
	return sl.inst, nil
}

// SetPartials copies partials into an instance buffer.
func (r *Registry) SetPartials(id, bufferIndex int, data []float64) error {
	inst, err := r.Instance(id)
	if err != nil {
		return err
	}
	return inst.store.SetPartials(bufferIndex, data)
}

// GetPartials copies an instance buffer out, joining on any queued producer
// first.
func (r *Registry) GetPartials(id, bufferIndex int, out []float64) error {
	inst, err := r.Instance(id)
	if err != nil {
		return err
	}
	return inst.GetPartials(bufferIndex, out)
}

// SetTipStates installs a compact tip encoding.
func (r *Registry) SetTipStates(id, tipIndex int, states []int) error {
	inst, err := r.Instance(id)
	if err != nil {
		return err
	}
	return inst.store.SetTipStates(tipIndex, states)
}

// SetEigenDecomposition copies an eigen system into an instance buffer.
func (r *Registry) SetEigenDecomposition(id, eigenIndex int, vectors, inverse, values []float64) error {
	inst, err := r.Instance(id)
	if err != nil {
		return err
	}
	return inst.store.SetEigenDecomposition(eigenIndex, vectors, inverse, values)
}

// SetCategoryRates sets the per-category rate scalars.
func (r *Registry) SetCategoryRates(id int, rates []float64) error {
	inst, err := r.Instance(id)
	if err != nil {
		return err
	}
	return inst.store.SetCategoryRates(rates)
}

// SetTransitionMatrix installs a precomputed matrix, bypassing the
// transition-matrix engine.
func (r *Registry) SetTransitionMatrix(id, matrixIndex int, matrix []float64) error {
	inst, err := r.Instance(id)
	if err != nil {
		return err
	}
	return inst.store.SetTransitionMatrix(matrixIndex, matrix)
}

// UpdateTransitionMatrices computes transition matrices (and requested
// derivatives) from an eigen decomposition and edge lengths.
func (r *Registry) UpdateTransitionMatrices(id, eigenIndex int, probIndices, firstDeriv, secondDeriv []int, edgeLengths []float64) error {
	inst, err := r.Instance(id)
	if err != nil {
		return err
	}
	return inst.UpdateTransitionMatrices(eigenIndex, probIndices, firstDeriv, secondDeriv, edgeLengths)
}

// UpdatePartials applies an operation list to each named instance in turn.
func (r *Registry) UpdatePartials(ids []int, ops []beagle.Operation, rescale bool) error {
	for _, id := range ids {
		inst, err := r.Instance(id)
		if err != nil {
			return err
		}
		if err := inst.UpdatePartials(ops, rescale); err != nil {
			return err
		}
	}
	return nil
}

// WaitForPartials blocks until the named destination buffers are final on
// each named instance.
func (r *Registry) WaitForPartials(ids []int, destinations []int) error {
	for _, id := range ids {
		inst, err := r.Instance(id)
		if err != nil {
			return err
		}
		if err := inst.WaitForPartials(destinations); err != nil {
			return err
		}
	}
	return nil
}

// CalculateRootLogLikelihoods reduces finished partials into per-site log
// likelihoods at a root.
func (r *Registry) CalculateRootLogLikelihoods(id int, buffers []int, weights, frequencies []float64, scaleIndices [][]int) ([]float64, error) {
	inst, err := r.Instance(id)
	if err != nil {
		return nil, err
	}
	return inst.CalculateRootLogLikelihoods(buffers, weights, frequencies, scaleIndices)
}

// CalculateEdgeLogLikelihoods reduces a parent/child pair across an edge,
// with optional first and second derivatives with respect to edge length.
func (r *Registry) CalculateEdgeLogLikelihoods(id int, parents, children, probIndices, firstDeriv, secondDeriv []int, weights, frequencies []float64, scaleIndices [][]int) (logLik, d1, d2 []float64, err error) {
	inst, err := r.Instance(id)
	if err != nil {
		return nil, nil, nil, err
	}
	return inst.CalculateEdgeLogLikelihoods(parents, children, probIndices, firstDeriv, secondDeriv, weights, frequencies, scaleIndices)
}
