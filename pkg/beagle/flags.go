package beagle

import "strings"

// Flags is the capability bitset shared by resources, instance requests and
// the active bindings reported after initialization. Bit positions match the
// libhmsbeagle BeagleFlags enum and must never be renumbered.
type Flags int64

const (
	FlagDouble Flags = 1 << 0 // double precision computation
	FlagSingle Flags = 1 << 1 // single precision computation
	FlagAsynch Flags = 1 << 2 // asynchronous (queued) computation
	FlagSynch  Flags = 1 << 3 // synchronous computation

	FlagCPU  Flags = 1 << 16
	FlagGPU  Flags = 1 << 17
	FlagFPGA Flags = 1 << 18
	FlagSSE  Flags = 1 << 19
	FlagCell Flags = 1 << 20
)

// Has reports whether every bit in mask is set.
func (f Flags) Has(mask Flags) bool { return f&mask == mask }

var flagNames = []struct {
	bit  Flags
	name string
}{
	{FlagDouble, "DOUBLE"},
	{FlagSingle, "SINGLE"},
	{FlagAsynch, "ASYNCH"},
	{FlagSynch, "SYNCH"},
	{FlagCPU, "CPU"},
	{FlagGPU, "GPU"},
	{FlagFPGA, "FPGA"},
	{FlagSSE, "SSE"},
	{FlagCell, "CELL"},
}

func (f Flags) String() string {
	if f == 0 {
		return "NONE"
	}
	parts := make([]string, 0, len(flagNames))
	for _, fn := range flagNames {
		if f&fn.bit != 0 {
			parts = append(parts, fn.name)
		}
	}
	return strings.Join(parts, "|")
}
