package beagle

import (
	"errors"
	"fmt"
	"testing"
)

func TestReturnCodeValues(t *testing.T) {
	cases := []struct {
		code ReturnCode
		want int
	}{
		{NoError, 0},
		{GeneralError, -1},
		{OutOfMemoryError, -2},
		{UnidentifiedExceptionError, -3},
		{UninitializedInstanceError, -4},
		{OutOfRangeError, -5},
	}
	for _, tc := range cases {
		if int(tc.code) != tc.want {
			t.Fatalf("code %d, want %d", int(tc.code), tc.want)
		}
	}
}

func TestCodeOf(t *testing.T) {
	cases := []struct {
		err  error
		want ReturnCode
	}{
		{nil, NoError},
		{Generalf("nope"), GeneralError},
		{OutOfRangef("index %d", 9), OutOfRangeError},
		{Uninitializedf("handle %d", 3), UninitializedInstanceError},
		{Internalf("panic"), UnidentifiedExceptionError},
		{errors.New("something else"), UnidentifiedExceptionError},
		{fmt.Errorf("wrapped: %w", OutOfRangef("deep")), OutOfRangeError},
	}
	for _, tc := range cases {
		if got := CodeOf(tc.err); got != tc.want {
			t.Fatalf("CodeOf(%v) = %d, want %d", tc.err, got, tc.want)
		}
	}
}

func TestCodedErrorsCarryMessageAndSentinel(t *testing.T) {
	err := OutOfRangef("partials index %d outside [0,%d)", 8, 6)
	if got, want := err.Error(), "partials index 8 outside [0,6)"; got != want {
		t.Fatalf("message %q, want %q", got, want)
	}
	if !errors.Is(err, ErrOutOfRange) {
		t.Fatal("sentinel not reachable through errors.Is")
	}
	if errors.Is(err, ErrGeneral) {
		t.Fatal("wrong sentinel matched")
	}
}
