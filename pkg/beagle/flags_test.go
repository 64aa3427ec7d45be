package beagle

import "testing"

func TestFlagBitPositions(t *testing.T) {
	cases := []struct {
		flag Flags
		want int64
	}{
		{FlagDouble, 1 << 0},
		{FlagSingle, 1 << 1},
		{FlagAsynch, 1 << 2},
		{FlagSynch, 1 << 3},
		{FlagCPU, 1 << 16},
		{FlagGPU, 1 << 17},
		{FlagFPGA, 1 << 18},
		{FlagSSE, 1 << 19},
		{FlagCell, 1 << 20},
	}
	for _, tc := range cases {
		if int64(tc.flag) != tc.want {
			t.Fatalf("flag %s = %d, want %d", tc.flag, int64(tc.flag), tc.want)
		}
	}
}

func TestFlagsHas(t *testing.T) {
	f := FlagDouble | FlagSynch | FlagCPU
	if !f.Has(FlagDouble | FlagCPU) {
		t.Fatal("mask with set bits not matched")
	}
	if f.Has(FlagDouble | FlagGPU) {
		t.Fatal("mask with an unset bit matched")
	}
	if !f.Has(0) {
		t.Fatal("empty mask must always match")
	}
}

func TestFlagsString(t *testing.T) {
	if got := (FlagSingle | FlagAsynch | FlagGPU).String(); got != "SINGLE|ASYNCH|GPU" {
		t.Fatalf("string %q", got)
	}
	if got := Flags(0).String(); got != "NONE" {
		t.Fatalf("zero string %q", got)
	}
}

func TestOperationTupleRoundTrip(t *testing.T) {
	op := Operation{Destination: 9, DestScale: -1, Child1: 2, Child1Matrix: 4, Child2: 3, Child2Matrix: 5}
	tuple := op.Tuple()
	if tuple != [6]int{9, -1, 2, 4, 3, 5} {
		t.Fatalf("tuple %v", tuple)
	}
	if back := OperationFromTuple(tuple); back != op {
		t.Fatalf("round trip %+v, want %+v", back, op)
	}
}

func TestConfigValidate(t *testing.T) {
	good := Config{
		TipCount:            3,
		PartialsBufferCount: 4,
		CompactBufferCount:  2,
		StateCount:          4,
		PatternCount:        10,
		EigenBufferCount:    1,
		MatrixBufferCount:   4,
		CategoryCount:       2,
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}
	if got := good.BufferCount(); got != 6 {
		t.Fatalf("buffer count %d, want 6", got)
	}
	if got := good.PartialsLen(); got != 80 {
		t.Fatalf("partials length %d, want 80", got)
	}
	if got := good.MatrixLen(); got != 32 {
		t.Fatalf("matrix length %d, want 32", got)
	}

	bad := good
	bad.PatternCount = 0
	if err := bad.Validate(); CodeOf(err) != GeneralError {
		t.Fatalf("zero patterns: got %v, want GeneralError", err)
	}
	bad = good
	bad.CompactBufferCount = bad.TipCount + 1
	if err := bad.Validate(); CodeOf(err) != GeneralError {
		t.Fatalf("compact above tips: got %v, want GeneralError", err)
	}
	bad = good
	bad.TipCount = bad.PartialsBufferCount + bad.CompactBufferCount + 1
	if err := bad.Validate(); CodeOf(err) != GeneralError {
		t.Fatalf("tips above buffers: got %v, want GeneralError", err)
	}
}
