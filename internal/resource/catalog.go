// Package resource enumerates the hardware resources an instance may bind to
// and ranks candidates under capability constraints. Resources are plain
// capability-flagged catalog entries; the engine never dispatches on their
// concrete type.
package resource

import (
	"runtime"

	"golang.org/x/sys/cpu"

	"github.com/phylogo/beagle/pkg/beagle"
)

// Catalog returns the resources available to this process. Resource 0 is
// always the host CPU. The catalog order is stable for the life of the
// process; selection tie-breaking depends on it.
func Catalog() []beagle.Resource {
	flags := beagle.FlagDouble | beagle.FlagSingle | beagle.FlagSynch | beagle.FlagAsynch | beagle.FlagCPU
	if hasSIMD() {
		flags |= beagle.FlagSSE
	}
	return []beagle.Resource{
		{Name: hostName(), Flags: flags},
	}
}

func hostName() string {
	return "CPU (" + runtime.GOARCH + ")"
}

func hasSIMD() bool {
	switch runtime.GOARCH {
	case "amd64":
		return cpu.X86.HasSSE2 || cpu.X86.HasAVX
	case "arm64":
		return cpu.ARM64.HasASIMD
	default:
		return false
	}
}
