package beagle

// Resource describes one hardware resource the engine may bind an instance
// to. Resources are identified by their position in the catalog.
type Resource struct {
	Name  string
	Flags Flags
}

// InstanceDetails reports the binding an initialized instance ended up with.
type InstanceDetails struct {
	ResourceNumber int
	Flags          Flags
}

// Config carries the dimension parameters of an instance. All counts are
// fixed for the instance's lifetime.
type Config struct {
	TipCount            int
	PartialsBufferCount int
	CompactBufferCount  int
	StateCount          int
	PatternCount        int
	EigenBufferCount    int
	MatrixBufferCount   int
	CategoryCount       int
}

// Validate checks the dimension parameters at creation time.
func (c Config) Validate() error {
	switch {
	case c.TipCount <= 0:
		return Generalf("tip count must be positive, got %d", c.TipCount)
	case c.PartialsBufferCount <= 0:
		return Generalf("partials buffer count must be positive, got %d", c.PartialsBufferCount)
	case c.CompactBufferCount < 0:
		return Generalf("compact buffer count must be non-negative, got %d", c.CompactBufferCount)
	case c.StateCount <= 0:
		return Generalf("state count must be positive, got %d", c.StateCount)
	case c.PatternCount <= 0:
		return Generalf("pattern count must be positive, got %d", c.PatternCount)
	case c.EigenBufferCount <= 0:
		return Generalf("eigen buffer count must be positive, got %d", c.EigenBufferCount)
	case c.MatrixBufferCount <= 0:
		return Generalf("matrix buffer count must be positive, got %d", c.MatrixBufferCount)
	case c.CategoryCount <= 0:
		return Generalf("category count must be positive, got %d", c.CategoryCount)
	case c.CompactBufferCount > c.TipCount:
		return Generalf("compact buffer count %d exceeds tip count %d", c.CompactBufferCount, c.TipCount)
	case c.TipCount > c.PartialsBufferCount+c.CompactBufferCount:
		return Generalf("tip count %d exceeds total buffer count %d", c.TipCount, c.PartialsBufferCount+c.CompactBufferCount)
	}
	return nil
}

// BufferCount is the size of the partials index namespace: indices below
// TipCount are tip slots (full partials or compact encodings), the rest are
// interior buffers.
func (c Config) BufferCount() int {
	return c.PartialsBufferCount + c.CompactBufferCount
}

// PartialsLen is the flattened length of one partials buffer, laid out
// [pattern][category][state].
func (c Config) PartialsLen() int {
	return c.PatternCount * c.CategoryCount * c.StateCount
}

// MatrixLen is the flattened length of one transition-probability matrix
// buffer, laid out [category][row][column].
func (c Config) MatrixLen() int {
	return c.CategoryCount * c.StateCount * c.StateCount
}

// Operation is one binary combine in a propagation list: the two children's
// partials, transformed by their transition matrices, are merged into
// Destination. DestScale names the scaling-factor slot to write when
// rescaling is requested; a negative value means the destination has no
// scale slot.
type Operation struct {
	Destination  int
	DestScale    int
	Child1       int
	Child1Matrix int
	Child2       int
	Child2Matrix int
}

// OperationFromTuple decodes the classic flattened 6-tuple encoding.
func OperationFromTuple(t [6]int) Operation {
	return Operation{
		Destination:  t[0],
		DestScale:    t[1],
		Child1:       t[2],
		Child1Matrix: t[3],
		Child2:       t[4],
		Child2Matrix: t[5],
	}
}

// Tuple encodes the operation in the classic flattened order.
func (op Operation) Tuple() [6]int {
	return [6]int{op.Destination, op.DestScale, op.Child1, op.Child1Matrix, op.Child2, op.Child2Matrix}
}
