package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/example/go-lerp/internal/grid"
	"github.com/spf13/cobra"
)

func newInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info <grid>",
		Short: "Describe a grid file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}

			m, err := loadMesh(cfg, args[0])
			if err != nil {
				return err
			}

			return writeInfo(cmd, args[0], m.Grid())
		},
	}
}

func writeInfo(cmd *cobra.Command, path string, g *grid.Grid) error {
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)

	fmt.Fprintf(tw, "file:\t%s\n", path)
	fmt.Fprintf(tw, "grid:\t%s\n", g)
	fmt.Fprintf(tw, "shape:\t%v\n", g.Shape())
	fmt.Fprintf(tw, "strides:\t%v\n", g.Strides())
	fmt.Fprintf(tw, "size:\t%d\n", g.Size())
	fmt.Fprintln(tw)
	fmt.Fprintln(tw, "DIM\tNAME\tLEN\tMIN\tMAX\tLABEL\tUNIT")

	for d, ax := range g.Axes() {
		lo, hi := g.Bounds(d)
		fmt.Fprintf(tw, "%d\t%s\t%d\t%g\t%g\t%s\t%s\n", d, ax.Name, g.Len(d), lo, hi, dash(ax.Label), dash(ax.Unit))
	}

	return tw.Flush()
}

func dash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}

	return s
}
