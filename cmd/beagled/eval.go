package main

import (
	"context"
	"fmt"
	"os"

	"github.com/goccy/go-json"
	"github.com/urfave/cli/v3"

	"github.com/phylogo/beagle/internal/engine"
	"github.com/phylogo/beagle/internal/logger"
	"github.com/phylogo/beagle/internal/scenario"
	"github.com/phylogo/beagle/pkg/beagle"
)

func evalCmd() *cli.Command {
	var (
		scenarioPath string
		asJSON       bool
		async        bool
	)
	return &cli.Command{
		Name:  "eval",
		Usage: "Evaluate a tree-likelihood scenario file",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "scenario",
				Usage:       "path to scenario yaml",
				Destination: &scenarioPath,
				Required:    true,
			},
			&cli.BoolFlag{
				Name:        "json",
				Usage:       "emit results as JSON",
				Destination: &asJSON,
			},
			&cli.BoolFlag{
				Name:        "async",
				Usage:       "request an asynchronous resource binding",
				Destination: &async,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			log := logger.FromContext(ctx)
			sc, err := scenario.Load(scenarioPath)
			if err != nil {
				return err
			}
			cfg := loadConfig()
			var preferred, required beagle.Flags
			if cfg.PreferredFlags != nil {
				preferred = beagle.Flags(*cfg.PreferredFlags)
			}
			if cfg.RequiredFlags != nil {
				required = beagle.Flags(*cfg.RequiredFlags)
			}
			if async {
				preferred |= beagle.FlagAsynch
			}
			reg := engine.NewRegistry()
			logLik, err := sc.Run(reg, preferred, required)
			if err != nil {
				return err
			}
			var total float64
			for _, v := range logLik {
				total += v
			}
			log.Debug("scenario evaluated", "patterns", len(logLik), "total", total)
			if asJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(map[string]any{
					"log_likelihoods": logLik,
					"total":           total,
				})
			}
			for k, v := range logLik {
				fmt.Printf("pattern %d: %.10f\n", k, v)
			}
			fmt.Printf("total: %.10f\n", total)
			return nil
		},
	}
}
