// Package api exposes the engine over HTTP for clients that keep their tree
// search out of process. Instances are addressed by opaque ids; everything
// else mirrors the engine entry points one to one.
package api

import (
	"io"
	"net/http"
	"strconv"
	"sync"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/labstack/echo/v5"

	"github.com/phylogo/beagle/internal/engine"
	"github.com/phylogo/beagle/pkg/beagle"
)

// Server serves the engine REST API.
type Server struct {
	reg *engine.Registry

	mu  sync.Mutex
	ids map[string]int
}

// NewServer wraps a registry.
func NewServer(reg *engine.Registry) *Server {
	return &Server{reg: reg, ids: make(map[string]int)}
}

// Register installs all routes on e.
func (s *Server) Register(e *echo.Echo) {
	e.GET("/v1/resources", s.handleResources)
	e.POST("/v1/instances", s.handleCreateInstance)
	e.DELETE("/v1/instances/:id", s.handleFinalize)
	e.POST("/v1/instances/:id/partials", s.handleSetPartials)
	e.GET("/v1/instances/:id/partials/:buffer", s.handleGetPartials)
	e.POST("/v1/instances/:id/tipstates", s.handleSetTipStates)
	e.POST("/v1/instances/:id/eigen", s.handleSetEigen)
	e.POST("/v1/instances/:id/rates", s.handleSetRates)
	e.POST("/v1/instances/:id/matrices", s.handleSetMatrix)
	e.POST("/v1/instances/:id/update-matrices", s.handleUpdateMatrices)
	e.POST("/v1/instances/:id/operations", s.handleOperations)
	e.POST("/v1/instances/:id/wait", s.handleWait)
	e.POST("/v1/instances/:id/root-loglikelihoods", s.handleRootLogLik)
	e.POST("/v1/instances/:id/edge-loglikelihoods", s.handleEdgeLogLik)
}

func (s *Server) handleResources(c *echo.Context) error {
	list := s.reg.ResourceList()
	out := make([]ResourceInfo, len(list))
	for i, res := range list {
		out[i] = ResourceInfo{
			ID:    i,
			Name:  res.Name,
			Flags: int64(res.Flags),
			Label: res.Flags.String(),
		}
	}
	return c.JSON(http.StatusOK, map[string]any{"resources": out})
}

func (s *Server) handleCreateInstance(c *echo.Context) error {
	req, err := decodeJSON[CreateInstanceRequest](c.Request().Body)
	if err != nil {
		return writeBadRequest(c, err.Error())
	}
	id, err := s.reg.CreateInstance(req.config(), req.Resources, beagle.Flags(req.PreferredFlags), beagle.Flags(req.RequiredFlags))
	if err != nil {
		return writeEngineError(c, err)
	}
	details, err := s.reg.InitializeInstance(id)
	if err != nil {
		s.reg.Finalize(id)
		return writeEngineError(c, err)
	}
	handle := "inst_" + uuid.NewString()
	s.mu.Lock()
	s.ids[handle] = id
	s.mu.Unlock()
	instancesCreated.Inc()
	return c.JSON(http.StatusOK, InstanceResponse{
		ID:             handle,
		ResourceNumber: details.ResourceNumber,
		Flags:          int64(details.Flags),
		FlagLabel:      details.Flags.String(),
	})
}

func (s *Server) resolve(c *echo.Context) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.ids[c.Param("id")]
	return id, ok
}

func (s *Server) handleFinalize(c *echo.Context) error {
	handle := c.Param("id")
	s.mu.Lock()
	id, ok := s.ids[handle]
	if ok {
		delete(s.ids, handle)
	}
	s.mu.Unlock()
	if !ok {
		return writeNotFound(c, "unknown instance "+handle)
	}
	if err := s.reg.Finalize(id); err != nil {
		return writeEngineError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"finalized": true})
}

func (s *Server) handleSetPartials(c *echo.Context) error {
	id, ok := s.resolve(c)
	if !ok {
		return writeNotFound(c, "unknown instance")
	}
	req, err := decodeJSON[PartialsRequest](c.Request().Body)
	if err != nil {
		return writeBadRequest(c, err.Error())
	}
	if err := s.reg.SetPartials(id, req.Buffer, req.Data); err != nil {
		return writeEngineError(c, err)
	}
	return okJSON(c)
}

func (s *Server) handleGetPartials(c *echo.Context) error {
	id, ok := s.resolve(c)
	if !ok {
		return writeNotFound(c, "unknown instance")
	}
	buffer, err := strconv.Atoi(c.Param("buffer"))
	if err != nil {
		return writeBadRequest(c, "buffer must be an integer")
	}
	inst, err := s.reg.Instance(id)
	if err != nil {
		return writeEngineError(c, err)
	}
	out := make([]float64, inst.Store().Config().PartialsLen())
	if err := s.reg.GetPartials(id, buffer, out); err != nil {
		return writeEngineError(c, err)
	}
	return c.JSON(http.StatusOK, PartialsResponse{Buffer: buffer, Data: out})
}

func (s *Server) handleSetTipStates(c *echo.Context) error {
	id, ok := s.resolve(c)
	if !ok {
		return writeNotFound(c, "unknown instance")
	}
	req, err := decodeJSON[TipStatesRequest](c.Request().Body)
	if err != nil {
		return writeBadRequest(c, err.Error())
	}
	if err := s.reg.SetTipStates(id, req.Tip, req.States); err != nil {
		return writeEngineError(c, err)
	}
	return okJSON(c)
}

func (s *Server) handleSetEigen(c *echo.Context) error {
	id, ok := s.resolve(c)
	if !ok {
		return writeNotFound(c, "unknown instance")
	}
	req, err := decodeJSON[EigenRequest](c.Request().Body)
	if err != nil {
		return writeBadRequest(c, err.Error())
	}
	if err := s.reg.SetEigenDecomposition(id, req.Index, req.Vectors, req.InverseVectors, req.Values); err != nil {
		return writeEngineError(c, err)
	}
	return okJSON(c)
}

func (s *Server) handleSetRates(c *echo.Context) error {
	id, ok := s.resolve(c)
	if !ok {
		return writeNotFound(c, "unknown instance")
	}
	req, err := decodeJSON[RatesRequest](c.Request().Body)
	if err != nil {
		return writeBadRequest(c, err.Error())
	}
	if err := s.reg.SetCategoryRates(id, req.Rates); err != nil {
		return writeEngineError(c, err)
	}
	return okJSON(c)
}

func (s *Server) handleSetMatrix(c *echo.Context) error {
	id, ok := s.resolve(c)
	if !ok {
		return writeNotFound(c, "unknown instance")
	}
	req, err := decodeJSON[MatrixRequest](c.Request().Body)
	if err != nil {
		return writeBadRequest(c, err.Error())
	}
	if err := s.reg.SetTransitionMatrix(id, req.Index, req.Matrix); err != nil {
		return writeEngineError(c, err)
	}
	return okJSON(c)
}

func (s *Server) handleUpdateMatrices(c *echo.Context) error {
	id, ok := s.resolve(c)
	if !ok {
		return writeNotFound(c, "unknown instance")
	}
	req, err := decodeJSON[UpdateMatricesRequest](c.Request().Body)
	if err != nil {
		return writeBadRequest(c, err.Error())
	}
	if err := s.reg.UpdateTransitionMatrices(id, req.EigenIndex, req.ProbIndices, req.FirstDeriv, req.SecondDeriv, req.EdgeLengths); err != nil {
		return writeEngineError(c, err)
	}
	return okJSON(c)
}

func (s *Server) handleOperations(c *echo.Context) error {
	id, ok := s.resolve(c)
	if !ok {
		return writeNotFound(c, "unknown instance")
	}
	req, err := decodeJSON[OperationsRequest](c.Request().Body)
	if err != nil {
		return writeBadRequest(c, err.Error())
	}
	ops := make([]beagle.Operation, len(req.Operations))
	for i, t := range req.Operations {
		if len(t) != 6 {
			return writeBadRequest(c, "operation "+strconv.Itoa(i)+" must have 6 elements")
		}
		ops[i] = beagle.OperationFromTuple([6]int{t[0], t[1], t[2], t[3], t[4], t[5]})
	}
	timer := observeOperations(len(ops))
	if err := s.reg.UpdatePartials([]int{id}, ops, req.Rescale); err != nil {
		return writeEngineError(c, err)
	}
	timer()
	return okJSON(c)
}

func (s *Server) handleWait(c *echo.Context) error {
	id, ok := s.resolve(c)
	if !ok {
		return writeNotFound(c, "unknown instance")
	}
	req, err := decodeJSON[WaitRequest](c.Request().Body)
	if err != nil {
		return writeBadRequest(c, err.Error())
	}
	if err := s.reg.WaitForPartials([]int{id}, req.Destinations); err != nil {
		return writeEngineError(c, err)
	}
	return okJSON(c)
}

func (s *Server) handleRootLogLik(c *echo.Context) error {
	id, ok := s.resolve(c)
	if !ok {
		return writeNotFound(c, "unknown instance")
	}
	req, err := decodeJSON[RootLogLikRequest](c.Request().Body)
	if err != nil {
		return writeBadRequest(c, err.Error())
	}
	logLik, err := s.reg.CalculateRootLogLikelihoods(id, req.Buffers, req.Weights, req.Frequencies, req.ScaleIndices)
	if err != nil {
		return writeEngineError(c, err)
	}
	return c.JSON(http.StatusOK, LogLikResponse{LogLikelihoods: logLik})
}

func (s *Server) handleEdgeLogLik(c *echo.Context) error {
	id, ok := s.resolve(c)
	if !ok {
		return writeNotFound(c, "unknown instance")
	}
	req, err := decodeJSON[EdgeLogLikRequest](c.Request().Body)
	if err != nil {
		return writeBadRequest(c, err.Error())
	}
	logLik, d1, d2, err := s.reg.CalculateEdgeLogLikelihoods(id, req.Parents, req.Children, req.ProbIndices, req.FirstDeriv, req.SecondDeriv, req.Weights, req.Frequencies, req.ScaleIndices)
	if err != nil {
		return writeEngineError(c, err)
	}
	return c.JSON(http.StatusOK, LogLikResponse{
		LogLikelihoods:    logLik,
		FirstDerivatives:  d1,
		SecondDerivatives: d2,
	})
}

func okJSON(c *echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{"ok": true})
}

func decodeJSON[T any](r io.Reader) (T, error) {
	var out T
	dec := json.NewDecoder(r)
	if err := dec.Decode(&out); err != nil {
		return out, err
	}
	return out, nil
}
