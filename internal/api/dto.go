package api

import "github.com/phylogo/beagle/pkg/beagle"

// ResourceInfo is one catalog entry as served to clients.
type ResourceInfo struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Flags int64  `json:"flags"`
	Label string `json:"label"`
}

// CreateInstanceRequest creates and initializes an instance in one call.
type CreateInstanceRequest struct {
	TipCount            int `json:"tip_count"`
	PartialsBufferCount int `json:"partials_buffer_count"`
	CompactBufferCount  int `json:"compact_buffer_count"`
	StateCount          int `json:"state_count"`
	PatternCount        int `json:"pattern_count"`
	EigenBufferCount    int `json:"eigen_buffer_count"`
	MatrixBufferCount   int `json:"matrix_buffer_count"`
	CategoryCount       int `json:"category_count"`

	Resources      []int `json:"resources,omitempty"`
	PreferredFlags int64 `json:"preferred_flags,omitempty"`
	RequiredFlags  int64 `json:"required_flags,omitempty"`
}

func (r CreateInstanceRequest) config() beagle.Config {
	return beagle.Config{
		TipCount:            r.TipCount,
		PartialsBufferCount: r.PartialsBufferCount,
		CompactBufferCount:  r.CompactBufferCount,
		StateCount:          r.StateCount,
		PatternCount:        r.PatternCount,
		EigenBufferCount:    r.EigenBufferCount,
		MatrixBufferCount:   r.MatrixBufferCount,
		CategoryCount:       r.CategoryCount,
	}
}

// InstanceResponse reports the public handle and the resource binding.
type InstanceResponse struct {
	ID             string `json:"id"`
	ResourceNumber int    `json:"resource_number"`
	Flags          int64  `json:"flags"`
	FlagLabel      string `json:"flag_label"`
}

// PartialsRequest carries a full partials buffer.
type PartialsRequest struct {
	Buffer int       `json:"buffer"`
	Data   []float64 `json:"data"`
}

// TipStatesRequest carries a compact tip encoding.
type TipStatesRequest struct {
	Tip    int   `json:"tip"`
	States []int `json:"states"`
}

// EigenRequest carries one spectral factorization.
type EigenRequest struct {
	Index          int       `json:"index"`
	Vectors        []float64 `json:"vectors"`
	InverseVectors []float64 `json:"inverse_vectors"`
	Values         []float64 `json:"values"`
}

// RatesRequest carries the per-category rate scalars.
type RatesRequest struct {
	Rates []float64 `json:"rates"`
}

// MatrixRequest installs a precomputed transition matrix.
type MatrixRequest struct {
	Index  int       `json:"index"`
	Matrix []float64 `json:"matrix"`
}

// UpdateMatricesRequest drives the transition-matrix engine.
type UpdateMatricesRequest struct {
	EigenIndex  int       `json:"eigen_index"`
	ProbIndices []int     `json:"prob_indices"`
	FirstDeriv  []int     `json:"first_deriv_indices,omitempty"`
	SecondDeriv []int     `json:"second_deriv_indices,omitempty"`
	EdgeLengths []float64 `json:"edge_lengths"`
}

// OperationsRequest submits a propagation list.
type OperationsRequest struct {
	Operations [][]int `json:"operations"`
	Rescale    bool    `json:"rescale,omitempty"`
}

// WaitRequest joins on queued destinations.
type WaitRequest struct {
	Destinations []int `json:"destinations"`
}

// RootLogLikRequest is the root integration query.
type RootLogLikRequest struct {
	Buffers      []int     `json:"buffers"`
	Weights      []float64 `json:"weights"`
	Frequencies  []float64 `json:"frequencies"`
	ScaleIndices [][]int   `json:"scale_indices,omitempty"`
}

// EdgeLogLikRequest is the edge integration query.
type EdgeLogLikRequest struct {
	Parents      []int     `json:"parents"`
	Children     []int     `json:"children"`
	ProbIndices  []int     `json:"prob_indices"`
	FirstDeriv   []int     `json:"first_deriv_indices,omitempty"`
	SecondDeriv  []int     `json:"second_deriv_indices,omitempty"`
	Weights      []float64 `json:"weights"`
	Frequencies  []float64 `json:"frequencies"`
	ScaleIndices [][]int   `json:"scale_indices,omitempty"`
}

// LogLikResponse carries per-site results.
type LogLikResponse struct {
	LogLikelihoods    []float64 `json:"log_likelihoods"`
	FirstDerivatives  []float64 `json:"first_derivatives,omitempty"`
	SecondDerivatives []float64 `json:"second_derivatives,omitempty"`
}

// PartialsResponse returns a buffer's contents.
type PartialsResponse struct {
	Buffer int       `json:"buffer"`
	Data   []float64 `json:"data"`
}

// ErrorResponse is the uniform failure envelope.
type ErrorResponse struct {
	Error struct {
		Message string `json:"message"`
		Code    int    `json:"code"`
	} `json:"error"`
}
