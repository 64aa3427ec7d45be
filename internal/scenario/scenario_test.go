package scenario

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/phylogo/beagle/internal/engine"
)

const chainScenario = `states: 2
patterns: 2
tips:
  - buffer: 0
    states: [0, 1]
  - buffer: 1
    states: [1, 0]
eigen:
  vectors: [1, 1, 1, -1]
  inverse_vectors: [0.5, 0.5, 0.5, -0.5]
  values: [0, -2]
edges:
  - {matrix: 0, length: 1}
  - {matrix: 1, length: 1}
operations:
  - [2, -1, 0, 0, 1, 1]
root:
  buffer: 2
  weights: [1]
  frequencies: [0.5, 0.5]
`

func writeScenario(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write scenario: %v", err)
	}
	return path
}

func TestLoadDerivesDimensions(t *testing.T) {
	sc, err := Load(writeScenario(t, chainScenario))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	cfg := sc.Config()
	if cfg.TipCount != 2 {
		t.Fatalf("tip count %d, want 2", cfg.TipCount)
	}
	if cfg.CompactBufferCount != 2 {
		t.Fatalf("compact count %d, want 2", cfg.CompactBufferCount)
	}
	if cfg.BufferCount() != 3 {
		t.Fatalf("buffer count %d, want 3", cfg.BufferCount())
	}
	if cfg.CategoryCount != 1 {
		t.Fatalf("category count %d, want 1 by default", cfg.CategoryCount)
	}
	if cfg.MatrixBufferCount != 2 {
		t.Fatalf("matrix count %d, want 2", cfg.MatrixBufferCount)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("derived config invalid: %v", err)
	}
}

func TestRunMatchesClosedForm(t *testing.T) {
	sc, err := Load(writeScenario(t, chainScenario))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	logLik, err := sc.Run(engine.NewRegistry(), 0, 0)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	// Symmetric two-state chain, both branches length 1: each site reduces
	// to p*q with p = (1+e^-2)/2.
	p := (1 + math.Exp(-2)) / 2
	want := math.Log(p * (1 - p))
	for k, got := range logLik {
		if math.Abs(got-want) > 1e-10 {
			t.Fatalf("pattern %d log likelihood %.12f, want %.12f", k, got, want)
		}
	}
}

func TestRescaleScenarioSizesScaleSlots(t *testing.T) {
	// The scale slot (3) is above every partials index, so it only fits if
	// the derived dimensions account for scale indices too.
	body := `states: 2
patterns: 2
tips:
  - buffer: 0
    states: [0, 1]
  - buffer: 1
    states: [1, 0]
eigen:
  vectors: [1, 1, 1, -1]
  inverse_vectors: [0.5, 0.5, 0.5, -0.5]
  values: [0, -2]
edges:
  - {matrix: 0, length: 1}
  - {matrix: 1, length: 1}
operations:
  - [2, 3, 0, 0, 1, 1]
root:
  buffer: 2
  weights: [1]
  frequencies: [0.5, 0.5]
  scale_indices: [3]
rescale: true
`
	sc, err := Load(writeScenario(t, body))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got := sc.Config().BufferCount(); got != 4 {
		t.Fatalf("buffer count %d, want 4", got)
	}
	logLik, err := sc.Run(engine.NewRegistry(), 0, 0)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	p := (1 + math.Exp(-2)) / 2
	want := math.Log(p * (1 - p))
	for k, got := range logLik {
		if math.Abs(got-want) > 1e-10 {
			t.Fatalf("pattern %d log likelihood %.12f, want %.12f", k, got, want)
		}
	}
}

func TestLoadRejectsMalformedScenarios(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"not yaml", "states: [broken"},
		{"no tips", "states: 2\npatterns: 1\nedges:\n  - {matrix: 0, length: 1}\n"},
		{"no edges", "states: 2\npatterns: 1\ntips:\n  - {buffer: 0, states: [0]}\n"},
		{"zero states", "states: 0\npatterns: 1\ntips:\n  - {buffer: 0, states: [0]}\nedges:\n  - {matrix: 0, length: 1}\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Load(writeScenario(t, tc.body)); err == nil {
				t.Fatal("malformed scenario accepted")
			}
		})
	}
	t.Run("short operation", func(t *testing.T) {
		body := `states: 2
patterns: 1
tips:
  - {buffer: 0, states: [0]}
edges:
  - {matrix: 0, length: 1}
operations:
  - [2, -1, 0]
`
		if _, err := Load(writeScenario(t, body)); err == nil {
			t.Fatal("six-element check missed a short operation")
		}
	})
	t.Run("missing file", func(t *testing.T) {
		if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
			t.Fatal("missing file accepted")
		}
	})
}
