package main

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/phylogo/beagle/internal/engine"
	"github.com/phylogo/beagle/pkg/beagle"
)

func benchCmd() *cli.Command {
	var (
		states     int64
		patterns   int64
		categories int64
		tips       int64
		iters      int64
		rescale    bool
	)
	return &cli.Command{
		Name:  "bench",
		Usage: "Benchmark partials propagation throughput",
		Flags: []cli.Flag{
			&cli.Int64Flag{Name: "states", Value: 4, Destination: &states},
			&cli.Int64Flag{Name: "patterns", Value: 10000, Destination: &patterns},
			&cli.Int64Flag{Name: "categories", Value: 4, Destination: &categories},
			&cli.Int64Flag{Name: "tips", Value: 16, Destination: &tips},
			&cli.Int64Flag{Name: "iters", Value: 10, Destination: &iters},
			&cli.BoolFlag{Name: "rescale", Destination: &rescale},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			nTips := int(tips)
			interior := nTips - 1
			// Interior buffers start at nTips+1 so every destination can
			// double as its own scaling-factor index under --rescale.
			cfg := beagle.Config{
				TipCount:            nTips,
				PartialsBufferCount: nTips + interior + 1,
				CompactBufferCount:  0,
				StateCount:          int(states),
				PatternCount:        int(patterns),
				EigenBufferCount:    1,
				MatrixBufferCount:   2 * interior,
				CategoryCount:       int(categories),
			}
			reg := engine.NewRegistry()
			id, err := reg.CreateInstance(cfg, nil, 0, 0)
			if err != nil {
				return err
			}
			if _, err := reg.InitializeInstance(id); err != nil {
				return err
			}
			defer reg.Finalize(id)

			rng := rand.New(rand.NewSource(1))
			partials := make([]float64, cfg.PartialsLen())
			for i := 0; i < nTips; i++ {
				for j := range partials {
					partials[j] = rng.Float64()
				}
				if err := reg.SetPartials(id, i, partials); err != nil {
					return err
				}
			}
			matrix := make([]float64, cfg.MatrixLen())
			for c := 0; c < cfg.CategoryCount; c++ {
				for a := 0; a < cfg.StateCount; a++ {
					for b := 0; b < cfg.StateCount; b++ {
						v := 0.1 / float64(cfg.StateCount-1)
						if a == b {
							v = 0.9
						}
						matrix[(c*cfg.StateCount+a)*cfg.StateCount+b] = v
					}
				}
			}
			for m := 0; m < cfg.MatrixBufferCount; m++ {
				if err := reg.SetTransitionMatrix(id, m, matrix); err != nil {
					return err
				}
			}

			// Balanced postorder combine: pair buffers until one root remains.
			var ops []beagle.Operation
			next := nTips + 1
			frontier := make([]int, nTips)
			for i := range frontier {
				frontier[i] = i
			}
			m := 0
			for len(frontier) > 1 {
				var level []int
				for i := 0; i+1 < len(frontier); i += 2 {
					scale := -1
					if rescale {
						scale = next
					}
					ops = append(ops, beagle.Operation{
						Destination:  next,
						DestScale:    scale,
						Child1:       frontier[i],
						Child1Matrix: m % cfg.MatrixBufferCount,
						Child2:       frontier[i+1],
						Child2Matrix: (m + 1) % cfg.MatrixBufferCount,
					})
					level = append(level, next)
					next++
					m += 2
				}
				if len(frontier)%2 == 1 {
					level = append(level, frontier[len(frontier)-1])
				}
				frontier = level
			}

			start := time.Now()
			for i := int64(0); i < iters; i++ {
				if err := reg.UpdatePartials([]int{id}, ops, rescale); err != nil {
					return err
				}
			}
			if err := reg.WaitForPartials([]int{id}, []int{frontier[0]}); err != nil {
				return err
			}
			elapsed := time.Since(start)

			perIter := elapsed / time.Duration(iters)
			cells := float64(len(ops)) * float64(patterns) * float64(categories) * float64(states) * float64(states) * 2
			rate := cells * float64(iters) / elapsed.Seconds()
			fmt.Printf("ops/iter: %d  time/iter: %s  cell-rate: %s/s\n", len(ops), perIter, humanCount(rate))
			return nil
		},
	}
}

func humanCount(v float64) string {
	units := []string{"", "K", "M", "G", "T"}
	i := 0
	for v >= 1000 && i < len(units)-1 {
		v /= 1000
		i++
	}
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return "n/a"
	}
	return fmt.Sprintf("%.2f%s", v, units[i])
}
