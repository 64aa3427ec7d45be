package resource

import (
	"testing"

	"github.com/phylogo/beagle/pkg/beagle"
)

var fakeCatalog = []beagle.Resource{
	{Name: "cpu", Flags: beagle.FlagDouble | beagle.FlagSingle | beagle.FlagSynch | beagle.FlagAsynch | beagle.FlagCPU},
	{Name: "gpu-a", Flags: beagle.FlagSingle | beagle.FlagSynch | beagle.FlagGPU},
	{Name: "gpu-b", Flags: beagle.FlagDouble | beagle.FlagSingle | beagle.FlagSynch | beagle.FlagGPU},
}

func TestSelectRequiredIsHardFilter(t *testing.T) {
	if got := Select(fakeCatalog, nil, 0, beagle.FlagDouble|beagle.FlagGPU); got != 2 {
		t.Fatalf("selected %d, want 2", got)
	}
	if got := Select(fakeCatalog, nil, 0, beagle.FlagFPGA); got != -1 {
		t.Fatalf("selected %d, want -1 for unsatisfiable requirement", got)
	}
}

func TestSelectPreferredRanksByOverlap(t *testing.T) {
	got := Select(fakeCatalog, nil, beagle.FlagDouble|beagle.FlagAsynch|beagle.FlagCPU, 0)
	if got != 0 {
		t.Fatalf("selected %d, want 0", got)
	}
}

func TestSelectTiesBreakToLowestID(t *testing.T) {
	// Both GPU entries overlap the preference equally.
	got := Select(fakeCatalog, []int{2, 1}, beagle.FlagGPU|beagle.FlagSingle, beagle.FlagGPU)
	if got != 1 {
		t.Fatalf("selected %d, want lowest id 1", got)
	}
	// With no preference at all, the whole catalog ties and 0 wins.
	if got := Select(fakeCatalog, nil, 0, 0); got != 0 {
		t.Fatalf("selected %d, want 0", got)
	}
}

func TestSelectHonorsAllowedList(t *testing.T) {
	if got := Select(fakeCatalog, []int{1, 2}, beagle.FlagCPU, 0); got != 1 {
		t.Fatalf("selected %d, want 1", got)
	}
	if got := Select(fakeCatalog, []int{5}, 0, 0); got != -1 {
		t.Fatalf("selected %d, want -1 for out of range allowed entry", got)
	}
}

func TestActiveFlagsDefaults(t *testing.T) {
	res := fakeCatalog[0]
	got := ActiveFlags(res, 0, 0)
	want := beagle.FlagDouble | beagle.FlagSynch | beagle.FlagCPU
	if got != want {
		t.Fatalf("flags %s, want %s", got, want)
	}
}

func TestActiveFlagsOptIns(t *testing.T) {
	res := fakeCatalog[0]
	got := ActiveFlags(res, beagle.FlagAsynch, beagle.FlagSingle)
	want := beagle.FlagSingle | beagle.FlagAsynch | beagle.FlagCPU
	if got != want {
		t.Fatalf("flags %s, want %s", got, want)
	}

	// Asynch preference against a resource that cannot do it falls back to
	// synchronous.
	got = ActiveFlags(fakeCatalog[1], beagle.FlagAsynch, 0)
	want = beagle.FlagDouble | beagle.FlagSynch | beagle.FlagGPU
	if got != want {
		t.Fatalf("flags %s, want %s", got, want)
	}
}

func TestHostCatalogAdvertisesBaseline(t *testing.T) {
	cat := Catalog()
	if len(cat) == 0 {
		t.Fatal("empty catalog")
	}
	base := beagle.FlagDouble | beagle.FlagSingle | beagle.FlagSynch | beagle.FlagAsynch | beagle.FlagCPU
	if !cat[0].Flags.Has(base) {
		t.Fatalf("host resource flags %s missing baseline %s", cat[0].Flags, base)
	}
	if cat[0].Name == "" {
		t.Fatal("host resource has no name")
	}
}
