package main

import (
	"context"
	"os"

	"github.com/goccy/go-json"
	"github.com/urfave/cli/v3"

	"github.com/phylogo/beagle/internal/engine"
)

func resourcesCmd() *cli.Command {
	return &cli.Command{
		Name:  "resources",
		Usage: "List available hardware resources and their capability flags",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			type entry struct {
				ID    int    `json:"id"`
				Name  string `json:"name"`
				Flags int64  `json:"flags"`
				Label string `json:"label"`
			}
			reg := engine.NewRegistry()
			list := reg.ResourceList()
			out := make([]entry, len(list))
			for i, res := range list {
				out[i] = entry{ID: i, Name: res.Name, Flags: int64(res.Flags), Label: res.Flags.String()}
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}
}
